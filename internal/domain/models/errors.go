package models

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidInput marks a request that failed parsing or domain rules.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelUnavailable marks a predictor that could not be loaded or reached.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrPredictionLength marks a predictor that returned the wrong number of values.
	ErrPredictionLength = errors.New("prediction length mismatch")
	// ErrPredictionNotFinite marks a predictor that returned NaN or Inf.
	ErrPredictionNotFinite = errors.New("prediction not finite")
)

// FieldError describes one rejected input.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message"`
}

// InputError collects every rejected input of a request.
type InputError struct {
	Fields []FieldError
}

func (e *InputError) Error() string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

// NewInputError builds a single-field InputError.
func NewInputError(field, rule, message string) *InputError {
	return &InputError{Fields: []FieldError{{Field: field, Rule: rule, Message: message}}}
}
