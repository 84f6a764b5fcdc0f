package features

import (
	"fmt"

	"ShrimpCast/internal/domain/models"
)

// SurvivalColumns is the column order the survival-rate model was trained on.
var SurvivalColumns = []string{
	"day",
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
}

// ABWColumns is the column order the body-weight model was trained on.
var ABWColumns = []string{"day", "area", "feed_quantity"}

// Days returns 1..n. n == 0 yields an empty, non-nil slice.
func Days(n int) ([]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: days_until_harvest must be >= 0, got %d", models.ErrInvalidInput, n)
	}
	days := make([]int, n)
	for i := range days {
		days[i] = i + 1
	}
	return days, nil
}

// SurvivalRows builds one row per day; only the day column varies.
func SurvivalRows(p models.ParameterSet, days []int) [][]float64 {
	rows := make([][]float64, len(days))
	for i, d := range days {
		rows[i] = []float64{
			float64(d),
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
		}
	}
	return rows
}

// ABWRows builds one [day, area, feed_quantity] row per day.
func ABWRows(p models.ParameterSet, days []int) [][]float64 {
	rows := make([][]float64, len(days))
	for i, d := range days {
		rows[i] = []float64{float64(d), p.Area, p.FeedQuantity}
	}
	return rows
}
