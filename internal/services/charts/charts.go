package charts

import (
	"fmt"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/services/forecast"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	SurvivalRateID = "survival-rate-plot"
	ABWID          = "abw-plot"
	BiomassID      = "biomass-plot"
	RevenueID      = "revenue-plot"
)

// Build returns the four dashboard charts in display order.
func Build(days []int, survival, abw []float64, s forecast.Series, currency string) []models.ChartSpec {
	return []models.ChartSpec{
		{
			ID:         SurvivalRateID,
			Title:      "Predicted Survival Rate Over Time",
			SeriesName: "Survival Rate",
			X:          days,
			Y:          survival,
			XLabel:     "Days",
			YLabel:     "Survival Rate (%)",
			Color:      "blue",
		},
		{
			ID:         ABWID,
			Title:      "Predicted Average Body Weight Over Time",
			SeriesName: "Average Body Weight",
			X:          days,
			Y:          abw,
			XLabel:     "Days",
			YLabel:     "Weight (grams)",
			Color:      "green",
		},
		{
			ID:         BiomassID,
			Title:      "Cumulative Forecasted Biomass Over Time",
			SeriesName: "Cumulative Biomass",
			X:          days,
			Y:          s.CumulativeBiomassKg,
			XLabel:     "Days",
			YLabel:     "Cumulative Biomass (kg)",
			Color:      "orange",
		},
		{
			ID:         RevenueID,
			Title:      fmt.Sprintf("Cumulative Forecasted Revenue Over Time (%s)", currency),
			SeriesName: fmt.Sprintf("Cumulative Revenue (%s)", currency),
			X:          days,
			Y:          s.CumulativeRevenue,
			XLabel:     "Days",
			YLabel:     fmt.Sprintf("Cumulative Revenue (%s)", currency),
			Color:      "purple",
		},
	}
}

// FormatAmount renders v with thousands separators and two decimals,
// e.g. 1234567.891 -> "1,234,567.89".
func FormatAmount(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%.2f", v)
}

// Summary is the one-line revenue headline shown under the charts.
func Summary(days int, currency string, finalRevenue float64) string {
	return fmt.Sprintf("Forecasted Revenue by Day %d: %s %s", days, currency, FormatAmount(finalRevenue))
}
