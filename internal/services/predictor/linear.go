package predictor

import (
	"context"
	"fmt"

	"ShrimpCast/internal/domain/models"
)

// Linear is an ordinary linear regression: intercept + coefficients . row.
type Linear struct {
	info         models.ModelInfo
	coefficients []float64
	intercept    float64
}

type linearArtifact struct {
	header
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// LoadLinear reads a linear artifact and checks it against columns.
func LoadLinear(path, role string, columns []string) (*Linear, error) {
	var a linearArtifact
	if err := readArtifact(path, &a); err != nil {
		return nil, err
	}
	return newLinear(a, role, columns)
}

func newLinear(a linearArtifact, role string, columns []string) (*Linear, error) {
	if err := a.check(KindLinear, columns); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrModelUnavailable, role, err)
	}
	if len(a.Coefficients) != len(columns) {
		return nil, fmt.Errorf("%w: %s: %d coefficients for %d features",
			models.ErrModelUnavailable, role, len(a.Coefficients), len(columns))
	}
	return &Linear{
		info:         models.ModelInfo{Role: role, Kind: KindLinear, Name: nameOr(a.Name, role), Features: len(columns), Version: a.Version},
		coefficients: a.Coefficients,
		intercept:    a.Intercept,
	}, nil
}

func (m *Linear) Predict(ctx context.Context, rows [][]float64) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkWidth(rows, len(m.coefficients)); err != nil {
		return nil, err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		y := m.intercept
		for j, c := range m.coefficients {
			y += c * r[j]
		}
		out[i] = y
	}
	return out, nil
}

func (m *Linear) Info() models.ModelInfo { return m.info }
