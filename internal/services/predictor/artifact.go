package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"ShrimpCast/internal/domain/models"
)

// header is the part every artifact file shares.
type header struct {
	Kind     string   `json:"kind"`
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Features []string `json:"features"`
}

func (h header) check(kind string, columns []string) error {
	if h.Kind != "" && h.Kind != kind {
		return fmt.Errorf("artifact kind %q, want %q", h.Kind, kind)
	}
	if len(h.Features) != len(columns) {
		return fmt.Errorf("artifact has %d features, model input has %d", len(h.Features), len(columns))
	}
	if !slices.Equal(h.Features, columns) {
		return fmt.Errorf("artifact feature order %v does not match %v", h.Features, columns)
	}
	return nil
}

func readArtifact(path string, dst interface{}) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: read %s: %v", models.ErrModelUnavailable, path, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", models.ErrModelUnavailable, path, err)
	}
	return nil
}

func checkWidth(rows [][]float64, width int) error {
	for i, r := range rows {
		if len(r) != width {
			return fmt.Errorf("row %d has %d columns, want %d", i, len(r), width)
		}
	}
	return nil
}
