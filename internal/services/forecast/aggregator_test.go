package forecast

import (
	"math"
	"testing"

	"ShrimpCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateThreeDays(t *testing.T) {
	s, err := Aggregate([]float64{10, 20, 30}, 100, 1, 15000)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 2, 3}, s.DailyBiomassKg)
	assert.Equal(t, []float64{1, 3, 6}, s.CumulativeBiomassKg)
	assert.Equal(t, []float64{15000, 45000, 90000}, s.CumulativeRevenue)
	assert.Equal(t, 90000.0, s.FinalRevenue)
	assert.Equal(t, 6.0, s.FinalBiomassKg)
}

func TestAggregateEmptyHorizon(t *testing.T) {
	s, err := Aggregate([]float64{}, 95000, 12, 15000)
	require.NoError(t, err)

	assert.NotNil(t, s.CumulativeRevenue)
	assert.Empty(t, s.CumulativeRevenue)
	assert.Zero(t, s.FinalRevenue)
	assert.Zero(t, s.FinalBiomassKg)
}

func TestAggregateMonotoneForNonNegativeWeights(t *testing.T) {
	abw := make([]float64, 120)
	for i := range abw {
		abw[i] = math.Mod(float64(i)*7.3, 25)
	}
	s, err := Aggregate(abw, 95000, 12, 15000)
	require.NoError(t, err)

	for i := 1; i < len(abw); i++ {
		assert.GreaterOrEqual(t, s.CumulativeBiomassKg[i], s.CumulativeBiomassKg[i-1])
		assert.GreaterOrEqual(t, s.CumulativeRevenue[i], s.CumulativeRevenue[i-1])
	}
}

func TestAggregateFinalRevenueMatchesClosedForm(t *testing.T) {
	abw := []float64{12.5, 13.1, 13.8, 14.2, 15.0}
	s, err := Aggregate(abw, 95000, 12, 15000)
	require.NoError(t, err)

	var sum float64
	for _, w := range abw {
		sum += w
	}
	want := sum / 1000 * 95000 * 12 * 15000
	assert.InEpsilon(t, want, s.FinalRevenue, 1e-9)
}

func TestAggregateIsDeterministic(t *testing.T) {
	abw := []float64{0.1, 0.2, 0.3, 1e-9, 1e9}
	a, err := Aggregate(abw, 3, 0.7, 15000)
	require.NoError(t, err)
	b, err := Aggregate(abw, 3, 0.7, 15000)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAggregateRejectsOverflow(t *testing.T) {
	_, err := Aggregate([]float64{10, 20, 30}, 1e300, 1e10, 15000)
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = Aggregate([]float64{math.Inf(1)}, 100, 0, 15000)
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestAggregateRejectsNegativeInputs(t *testing.T) {
	_, err := Aggregate([]float64{1}, -1, 1, 15000)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = Aggregate([]float64{1}, 1, -1, 15000)
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = Aggregate([]float64{1}, 1, 1, 0)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}
