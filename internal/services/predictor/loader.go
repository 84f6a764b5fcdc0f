// Package predictor loads the survival-rate and body-weight regression
// models and exposes them behind service.Predictor.
package predictor

import (
	"fmt"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/domain/service"
	"ShrimpCast/pkg/config"
)

const (
	KindLinear       = "linear"
	KindTreeEnsemble = "tree_ensemble"
	KindHTTP         = "http"
	KindConstant     = "constant"
)

const (
	RoleSurvival = "survival"
	RoleABW      = "abw"
)

// Load builds the predictor described by spec. columns is the feature order
// the model is fed with; artifacts that disagree are rejected.
func Load(role string, spec config.ModelSpec, columns []string) (service.Predictor, error) {
	switch spec.Kind {
	case KindLinear:
		return LoadLinear(spec.Path, role, columns)
	case KindTreeEnsemble:
		return LoadTreeEnsemble(spec.Path, role, columns)
	case KindHTTP:
		return NewRemote(role, spec.Name, spec.URL, spec.Path, columns, spec.Timeout, spec.Attempts)
	case KindConstant:
		return NewConstant(role, spec.Name, len(columns), spec.Value), nil
	default:
		return nil, fmt.Errorf("%w: %s: unknown model kind %q", models.ErrModelUnavailable, role, spec.Kind)
	}
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}
