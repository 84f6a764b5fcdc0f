package models

import "time"

// ChartSpec is a single-line chart ready for the dashboard.
type ChartSpec struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	SeriesName string    `json:"series_name"`
	X          []int     `json:"x"`
	Y          []float64 `json:"y"`
	XLabel     string    `json:"x_label"`
	YLabel     string    `json:"y_label"`
	Color      string    `json:"color"`
}

// ModelInfo identifies a loaded predictor.
type ModelInfo struct {
	Role     string `json:"role"`
	Kind     string `json:"kind"`
	Name     string `json:"name"`
	Features int    `json:"features"`
	Version  string `json:"version,omitempty"`
}

// ForecastResult is everything one forecast produces. Every per-day slice
// has len(Days) entries; slices are empty, not nil, for a zero horizon.
type ForecastResult struct {
	ID                  string       `json:"id"`
	RequestID           string       `json:"request_id,omitempty"`
	Days                []int        `json:"days"`
	SurvivalRate        []float64    `json:"survival_rate"`
	ABW                 []float64    `json:"abw"`
	DailyBiomassKg      []float64    `json:"daily_biomass_kg"`
	CumulativeBiomassKg []float64    `json:"cumulative_biomass_kg"`
	CumulativeRevenue   []float64    `json:"cumulative_revenue"`
	FinalRevenue        float64      `json:"final_revenue"`
	FinalBiomassKg      float64      `json:"final_biomass_kg"`
	Currency            string       `json:"currency"`
	ExchangeRate        float64      `json:"exchange_rate"`
	Summary             string       `json:"summary"`
	Charts              []ChartSpec  `json:"charts"`
	Parameters          ParameterSet `json:"parameters"`
	Models              []ModelInfo  `json:"models"`
	CacheKey            string       `json:"cache_key"`
	Cached              bool         `json:"cached"`
	ComputedAt          time.Time    `json:"computed_at"`
}

// ForecastRun is the persisted summary of one forecast.
type ForecastRun struct {
	ID             string       `json:"id"`
	ComputedAt     time.Time    `json:"computed_at"`
	RequestHash    string       `json:"request_hash"`
	Days           int          `json:"days"`
	TotalShrimp    float64      `json:"total_shrimp"`
	PricePerKg     float64      `json:"price_per_kg"`
	ExchangeRate   float64      `json:"exchange_rate"`
	Currency       string       `json:"currency"`
	FinalRevenue   float64      `json:"final_revenue"`
	FinalBiomassKg float64      `json:"final_biomass_kg"`
	Source         string       `json:"source"`
	Parameters     ParameterSet `json:"parameters"`
}

// RunFromResult summarizes r for history storage.
func RunFromResult(r *ForecastResult, source string) ForecastRun {
	return ForecastRun{
		ID:             r.ID,
		ComputedAt:     r.ComputedAt,
		RequestHash:    r.CacheKey,
		Days:           r.Parameters.DaysUntilHarvest,
		TotalShrimp:    r.Parameters.TotalShrimp,
		PricePerKg:     r.Parameters.PricePerKg,
		ExchangeRate:   r.ExchangeRate,
		Currency:       r.Currency,
		FinalRevenue:   r.FinalRevenue,
		FinalBiomassKg: r.FinalBiomassKg,
		Source:         source,
		Parameters:     r.Parameters,
	}
}

// ForecastEvent is published after every successful forecast.
type ForecastEvent struct {
	Type         string    `json:"type"`
	ID           string    `json:"id"`
	RequestID    string    `json:"request_id,omitempty"`
	Source       string    `json:"source"`
	Days         int       `json:"days"`
	FinalRevenue float64   `json:"final_revenue"`
	Currency     string    `json:"currency"`
	Cached       bool      `json:"cached"`
	ComputedAt   time.Time `json:"computed_at"`
}

const EventForecastComputed = "forecast.computed"

// ForecastReply is what the request consumer publishes for each message.
type ForecastReply struct {
	RequestID string          `json:"request_id,omitempty"`
	Result    *ForecastResult `json:"result,omitempty"`
	Error     *ReplyError     `json:"error,omitempty"`
}

type ReplyError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Fields  []FieldError `json:"fields,omitempty"`
}
