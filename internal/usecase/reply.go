package usecase

import (
	"errors"

	"ShrimpCast/internal/domain/models"
	xhttp "ShrimpCast/pkg/http"
)

// ReplyError converts a forecast error into the envelope sent to websocket
// and Kafka clients.
func ReplyError(err error) *models.ReplyError {
	var ie *models.InputError
	switch {
	case errors.As(err, &ie):
		return &models.ReplyError{Code: xhttp.CodeInvalidInput, Message: "invalid input", Fields: ie.Fields}
	case errors.Is(err, models.ErrInvalidInput):
		return &models.ReplyError{Code: xhttp.CodeInvalidInput, Message: err.Error()}
	case errors.Is(err, models.ErrModelUnavailable):
		return &models.ReplyError{Code: xhttp.CodeModelUnavailable, Message: "prediction model unavailable"}
	default:
		return &models.ReplyError{Code: xhttp.CodeInternal, Message: "internal error"}
	}
}
