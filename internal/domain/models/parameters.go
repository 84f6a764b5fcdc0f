package models

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ParameterNames lists the farm inputs in canonical order.
var ParameterNames = []string{
	"days_until_harvest",
	"cycle_age_days",
	"total_seed",
	"area",
	"total_shrimp",
	"total_weight",
	"feed_quantity",
	"morning_temperature",
	"evening_temperature",
	"morning_do",
	"evening_do",
	"morning_salinity",
	"evening_salinity",
	"morning_pH",
	"evening_pH",
	"nitrate",
	"nitrite",
	"alkalinity",
	"price_per_kg",
}

// ParameterSet is a fully resolved set of farm inputs. The field layout
// matches config.ParameterValues so defaults convert directly.
type ParameterSet struct {
	DaysUntilHarvest   int     `json:"days_until_harvest" validate:"gte=0"`
	CycleAgeDays       float64 `json:"cycle_age_days" validate:"gte=0"`
	TotalSeed          float64 `json:"total_seed" validate:"gte=0"`
	Area               float64 `json:"area" validate:"gte=0"`
	TotalShrimp        float64 `json:"total_shrimp" validate:"gte=0"`
	TotalWeight        float64 `json:"total_weight" validate:"gte=0"`
	FeedQuantity       float64 `json:"feed_quantity" validate:"gte=0"`
	MorningTemperature float64 `json:"morning_temperature"`
	EveningTemperature float64 `json:"evening_temperature"`
	MorningDO          float64 `json:"morning_do" validate:"gte=0"`
	EveningDO          float64 `json:"evening_do" validate:"gte=0"`
	MorningSalinity    float64 `json:"morning_salinity" validate:"gte=0"`
	EveningSalinity    float64 `json:"evening_salinity" validate:"gte=0"`
	MorningPH          float64 `json:"morning_pH" validate:"gte=0,lte=14"`
	EveningPH          float64 `json:"evening_pH" validate:"gte=0,lte=14"`
	Nitrate            float64 `json:"nitrate" validate:"gte=0"`
	Nitrite            float64 `json:"nitrite" validate:"gte=0"`
	Alkalinity         float64 `json:"alkalinity" validate:"gte=0"`
	PricePerKg         float64 `json:"price_per_kg" validate:"gte=0"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// Validate applies the domain rules. maxDays bounds the horizon; values
// that are not finite are rejected too.
func (p ParameterSet) Validate(maxDays int) error {
	var fields []FieldError

	if err := validatorInstance().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		for _, fe := range verrs {
			fields = append(fields, FieldError{
				Field:   fe.Field(),
				Rule:    fe.Tag(),
				Param:   fe.Param(),
				Message: fmt.Sprintf("%s must be %s %s", fe.Field(), ruleText(fe.Tag()), fe.Param()),
			})
		}
	}

	if p.DaysUntilHarvest > maxDays {
		fields = append(fields, FieldError{
			Field:   "days_until_harvest",
			Rule:    "lte",
			Param:   fmt.Sprint(maxDays),
			Message: fmt.Sprintf("days_until_harvest must be at most %d", maxDays),
		})
	}

	for i, v := range p.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			fields = append(fields, FieldError{
				Field:   ParameterNames[i],
				Rule:    "finite",
				Message: ParameterNames[i] + " must be a finite number",
			})
		}
	}

	if len(fields) > 0 {
		return &InputError{Fields: fields}
	}
	return nil
}

// Values returns the inputs as floats in canonical order.
func (p ParameterSet) Values() []float64 {
	return []float64{
		float64(p.DaysUntilHarvest),
		p.CycleAgeDays,
		p.TotalSeed,
		p.Area,
		p.TotalShrimp,
		p.TotalWeight,
		p.FeedQuantity,
		p.MorningTemperature,
		p.EveningTemperature,
		p.MorningDO,
		p.EveningDO,
		p.MorningSalinity,
		p.EveningSalinity,
		p.MorningPH,
		p.EveningPH,
		p.Nitrate,
		p.Nitrite,
		p.Alkalinity,
		p.PricePerKg,
	}
}

func ruleText(tag string) string {
	switch tag {
	case "gte":
		return "greater than or equal to"
	case "lte":
		return "less than or equal to"
	case "gt":
		return "greater than"
	case "lt":
		return "less than"
	default:
		return tag
	}
}
