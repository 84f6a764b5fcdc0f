package predictor

import (
	"context"

	"ShrimpCast/internal/domain/models"
)

// Constant predicts the same value for every row.
type Constant struct {
	info  models.ModelInfo
	value float64
}

func NewConstant(role, name string, features int, value float64) *Constant {
	return &Constant{
		info:  models.ModelInfo{Role: role, Kind: KindConstant, Name: nameOr(name, role), Features: features},
		value: value,
	}
}

func (m *Constant) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i := range out {
		out[i] = m.value
	}
	return out, nil
}

func (m *Constant) Info() models.ModelInfo { return m.info }
