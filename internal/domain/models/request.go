package models

import (
	"fmt"
	"strconv"
	"strings"
)

// ForecastRequest carries the optional farm inputs of one forecast. A nil
// field falls back to the configured default.
type ForecastRequest struct {
	RequestID string `json:"request_id,omitempty"`

	DaysUntilHarvest   *int     `json:"days_until_harvest,omitempty"`
	CycleAgeDays       *float64 `json:"cycle_age_days,omitempty"`
	TotalSeed          *float64 `json:"total_seed,omitempty"`
	Area               *float64 `json:"area,omitempty"`
	TotalShrimp        *float64 `json:"total_shrimp,omitempty"`
	TotalWeight        *float64 `json:"total_weight,omitempty"`
	FeedQuantity       *float64 `json:"feed_quantity,omitempty"`
	MorningTemperature *float64 `json:"morning_temperature,omitempty"`
	EveningTemperature *float64 `json:"evening_temperature,omitempty"`
	MorningDO          *float64 `json:"morning_do,omitempty"`
	EveningDO          *float64 `json:"evening_do,omitempty"`
	MorningSalinity    *float64 `json:"morning_salinity,omitempty"`
	EveningSalinity    *float64 `json:"evening_salinity,omitempty"`
	MorningPH          *float64 `json:"morning_pH,omitempty"`
	EveningPH          *float64 `json:"evening_pH,omitempty"`
	Nitrate            *float64 `json:"nitrate,omitempty"`
	Nitrite            *float64 `json:"nitrite,omitempty"`
	Alkalinity         *float64 `json:"alkalinity,omitempty"`
	PricePerKg         *float64 `json:"price_per_kg,omitempty"`
}

func (r *ForecastRequest) floatFields() map[string]**float64 {
	return map[string]**float64{
		"cycle_age_days":      &r.CycleAgeDays,
		"total_seed":          &r.TotalSeed,
		"area":                &r.Area,
		"total_shrimp":        &r.TotalShrimp,
		"total_weight":        &r.TotalWeight,
		"feed_quantity":       &r.FeedQuantity,
		"morning_temperature": &r.MorningTemperature,
		"evening_temperature": &r.EveningTemperature,
		"morning_do":          &r.MorningDO,
		"evening_do":          &r.EveningDO,
		"morning_salinity":    &r.MorningSalinity,
		"evening_salinity":    &r.EveningSalinity,
		"morning_pH":          &r.MorningPH,
		"evening_pH":          &r.EveningPH,
		"nitrate":             &r.Nitrate,
		"nitrite":             &r.Nitrite,
		"alkalinity":          &r.Alkalinity,
		"price_per_kg":        &r.PricePerKg,
	}
}

// RequestFromValues builds a request from string inputs such as query or
// form values. Blank values count as missing. Every non-numeric value is
// reported in the returned *InputError.
func RequestFromValues(get func(name string) string) (*ForecastRequest, error) {
	req := &ForecastRequest{RequestID: strings.TrimSpace(get("request_id"))}
	var bad []FieldError

	if s := strings.TrimSpace(get("days_until_harvest")); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			req.DaysUntilHarvest = &v
		} else {
			bad = append(bad, notNumber("days_until_harvest", s, "a whole number"))
		}
	}

	fields := req.floatFields()
	for _, name := range ParameterNames[1:] {
		s := strings.TrimSpace(get(name))
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			bad = append(bad, notNumber(name, s, "a number"))
			continue
		}
		*fields[name] = &v
	}

	if len(bad) > 0 {
		return nil, &InputError{Fields: bad}
	}
	return req, nil
}

func notNumber(field, value, want string) FieldError {
	return FieldError{
		Field:   field,
		Rule:    "number",
		Message: fmt.Sprintf("%s must be %s, got %q", field, want, value),
	}
}

// Resolve fills every missing input from defaults.
func (r *ForecastRequest) Resolve(defaults ParameterSet) ParameterSet {
	p := defaults
	if r == nil {
		return p
	}
	if r.DaysUntilHarvest != nil {
		p.DaysUntilHarvest = *r.DaysUntilHarvest
	}
	pick(&p.CycleAgeDays, r.CycleAgeDays)
	pick(&p.TotalSeed, r.TotalSeed)
	pick(&p.Area, r.Area)
	pick(&p.TotalShrimp, r.TotalShrimp)
	pick(&p.TotalWeight, r.TotalWeight)
	pick(&p.FeedQuantity, r.FeedQuantity)
	pick(&p.MorningTemperature, r.MorningTemperature)
	pick(&p.EveningTemperature, r.EveningTemperature)
	pick(&p.MorningDO, r.MorningDO)
	pick(&p.EveningDO, r.EveningDO)
	pick(&p.MorningSalinity, r.MorningSalinity)
	pick(&p.EveningSalinity, r.EveningSalinity)
	pick(&p.MorningPH, r.MorningPH)
	pick(&p.EveningPH, r.EveningPH)
	pick(&p.Nitrate, r.Nitrate)
	pick(&p.Nitrite, r.Nitrite)
	pick(&p.Alkalinity, r.Alkalinity)
	pick(&p.PricePerKg, r.PricePerKg)
	return p
}

func pick(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
