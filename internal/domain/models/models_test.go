package models

import (
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultSet() ParameterSet {
	return ParameterSet{
		DaysUntilHarvest: 60, CycleAgeDays: 60, TotalSeed: 100000, Area: 1000,
		TotalShrimp: 95000, TotalWeight: 1500, FeedQuantity: 1200,
		MorningTemperature: 28, EveningTemperature: 27, MorningDO: 7.2, EveningDO: 6.8,
		MorningSalinity: 35, EveningSalinity: 34, MorningPH: 7.8, EveningPH: 7.7,
		Nitrate: 0.25, Nitrite: 0.02, Alkalinity: 120, PricePerKg: 12,
	}
}

func TestResolveFillsOnlyMissing(t *testing.T) {
	days := 30
	price := 9.5
	req := &ForecastRequest{DaysUntilHarvest: &days, PricePerKg: &price}

	p := req.Resolve(defaultSet())
	assert.Equal(t, 30, p.DaysUntilHarvest)
	assert.Equal(t, 9.5, p.PricePerKg)
	assert.Equal(t, 95000.0, p.TotalShrimp)

	var nilReq *ForecastRequest
	assert.Equal(t, defaultSet(), nilReq.Resolve(defaultSet()))
}

func TestResolveKeepsExplicitZero(t *testing.T) {
	zero := 0.0
	p := (&ForecastRequest{TotalShrimp: &zero}).Resolve(defaultSet())
	assert.Equal(t, 0.0, p.TotalShrimp)
}

func TestRequestFromValues(t *testing.T) {
	q := url.Values{}
	q.Set("days_until_harvest", "3")
	q.Set("total_shrimp", " 100 ")
	q.Set("area", "")

	req, err := RequestFromValues(q.Get)
	require.NoError(t, err)
	require.NotNil(t, req.DaysUntilHarvest)
	assert.Equal(t, 3, *req.DaysUntilHarvest)
	assert.Equal(t, 100.0, *req.TotalShrimp)
	assert.Nil(t, req.Area)
}

func TestRequestFromValuesReportsEveryBadField(t *testing.T) {
	q := url.Values{}
	q.Set("days_until_harvest", "soon")
	q.Set("nitrate", "n/a")
	q.Set("morning_pH", "7.8")

	_, err := RequestFromValues(q.Get)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var ie *InputError
	require.ErrorAs(t, err, &ie)
	require.Len(t, ie.Fields, 2)
	assert.Equal(t, "days_until_harvest", ie.Fields[0].Field)
	assert.Equal(t, "nitrate", ie.Fields[1].Field)
}

func TestValidate(t *testing.T) {
	require.NoError(t, defaultSet().Validate(365))

	zero := defaultSet()
	zero.DaysUntilHarvest = 0
	assert.NoError(t, zero.Validate(365))

	cases := map[string]func(p *ParameterSet){
		"days_until_harvest": func(p *ParameterSet) { p.DaysUntilHarvest = -1 },
		"total_shrimp":       func(p *ParameterSet) { p.TotalShrimp = -5 },
		"price_per_kg":       func(p *ParameterSet) { p.PricePerKg = -0.01 },
		"morning_pH":         func(p *ParameterSet) { p.MorningPH = 15 },
		"alkalinity":         func(p *ParameterSet) { p.Alkalinity = math.NaN() },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			p := defaultSet()
			mutate(&p)
			err := p.Validate(365)
			require.ErrorIs(t, err, ErrInvalidInput)

			var ie *InputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, field, ie.Fields[0].Field)
		})
	}
}

func TestValidateHorizon(t *testing.T) {
	p := defaultSet()
	p.DaysUntilHarvest = 366
	err := p.Validate(365)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "at most 365")
}

func TestValuesCanonicalOrder(t *testing.T) {
	v := defaultSet().Values()
	require.Len(t, v, len(ParameterNames))
	assert.Equal(t, 60.0, v[0])
	assert.Equal(t, 7.8, v[13])
	assert.Equal(t, 12.0, v[18])
}
