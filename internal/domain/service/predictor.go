package service

import (
	"context"

	"ShrimpCast/internal/domain/models"
)

// Predictor is a trained regression model. Predict returns one value per
// row and is safe for concurrent use.
type Predictor interface {
	Predict(ctx context.Context, rows [][]float64) ([]float64, error)
	Info() models.ModelInfo
}

// Forecaster turns farm inputs into a forecast.
type Forecaster interface {
	Resolve(req *models.ForecastRequest) (models.ParameterSet, error)
	ComputeForecast(ctx context.Context, params models.ParameterSet) (*models.ForecastResult, error)
	Forecast(ctx context.Context, req *models.ForecastRequest, source string) (*models.ForecastResult, error)
	Defaults() models.ParameterSet
	Models() []models.ModelInfo
}
