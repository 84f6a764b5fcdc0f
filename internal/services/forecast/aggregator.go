package forecast

import (
	"fmt"
	"math"

	"ShrimpCast/internal/domain/models"
)

// Series holds the per-day derived values of one forecast.
type Series struct {
	DailyBiomassKg      []float64
	CumulativeBiomassKg []float64
	CumulativeRevenue   []float64
	FinalRevenue        float64
	FinalBiomassKg      float64
}

// Aggregate turns body-weight predictions (grams) into biomass and revenue.
// Running totals are summed strictly left to right so results are
// reproducible bit for bit.
func Aggregate(abw []float64, totalShrimp, pricePerKg, exchangeRate float64) (Series, error) {
	if totalShrimp < 0 || math.IsNaN(totalShrimp) {
		return Series{}, fmt.Errorf("%w: total_shrimp must be >= 0", models.ErrInvalidInput)
	}
	if pricePerKg < 0 || math.IsNaN(pricePerKg) {
		return Series{}, fmt.Errorf("%w: price_per_kg must be >= 0", models.ErrInvalidInput)
	}
	if exchangeRate <= 0 || math.IsNaN(exchangeRate) {
		return Series{}, fmt.Errorf("%w: exchange rate must be > 0", models.ErrInvalidInput)
	}

	n := len(abw)
	s := Series{
		DailyBiomassKg:      make([]float64, n),
		CumulativeBiomassKg: make([]float64, n),
		CumulativeRevenue:   make([]float64, n),
	}

	var biomass, revenue float64
	for i, w := range abw {
		daily := w / 1000 * totalShrimp
		biomass += daily
		revenue += daily * pricePerKg * exchangeRate

		s.DailyBiomassKg[i] = daily
		s.CumulativeBiomassKg[i] = biomass
		s.CumulativeRevenue[i] = revenue
	}

	if !finite(biomass) || !finite(revenue) {
		return Series{}, fmt.Errorf("%w: forecast exceeds the representable range, reduce total_shrimp or price_per_kg", models.ErrInvalidInput)
	}

	if n > 0 {
		s.FinalRevenue = s.CumulativeRevenue[n-1]
		s.FinalBiomassKg = s.CumulativeBiomassKg[n-1]
	}
	return s, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
