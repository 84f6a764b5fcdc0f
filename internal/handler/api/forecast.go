package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"ShrimpCast/internal/domain/models"
	domrepo "ShrimpCast/internal/domain/repository"
	domsvc "ShrimpCast/internal/domain/service"
	"ShrimpCast/internal/service/ratelimit"
	"ShrimpCast/internal/usecase"
	xhttp "ShrimpCast/pkg/http"
	applogger "ShrimpCast/pkg/logger"
	"ShrimpCast/pkg/util"
)

// Info describes the running service for /api/info.
type Info struct {
	Name           string  `json:"name"`
	Version        string  `json:"version"`
	Environment    string  `json:"environment"`
	Currency       string  `json:"currency"`
	ExchangeRate   float64 `json:"exchange_rate"`
	MaxHorizonDays int     `json:"max_horizon_days"`
}

// ForecastHandler serves the forecast API.
type ForecastHandler struct {
	forecaster domsvc.Forecaster
	history    domrepo.ForecastHistory
	limiter    *ratelimit.Limiter
	ws         *WSConfig
	info       Info
	l          *applogger.Logger
}

type HandlerOption func(*ForecastHandler)

// WithHistory enables /api/forecasts/recent.
func WithHistory(h domrepo.ForecastHistory) HandlerOption {
	return func(fh *ForecastHandler) { fh.history = h }
}

// WithRateLimit limits forecast requests per client IP.
func WithRateLimit(l *ratelimit.Limiter) HandlerOption {
	return func(fh *ForecastHandler) { fh.limiter = l }
}

// WithWebSocket enables /ws/forecast.
func WithWebSocket(cfg WSConfig) HandlerOption {
	return func(fh *ForecastHandler) { fh.ws = &cfg }
}

func NewForecastHandler(f domsvc.Forecaster, info Info, l *applogger.Logger, opts ...HandlerOption) *ForecastHandler {
	if l == nil {
		l = applogger.Nop()
	}
	h := &ForecastHandler{forecaster: f, info: info, l: l}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *ForecastHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/info", h.Info)
	g.GET("/defaults", h.Defaults)
	g.GET("/forecasts/recent", h.Recent)

	f := g.Group("/forecast", h.rateLimit)
	f.POST("", h.PostForecast)
	f.GET("", h.GetForecast)
	f.GET("/export", h.Export)

	if h.ws != nil {
		e.GET("/ws/forecast", h.WebSocket, h.rateLimit)
	}
}

func (h *ForecastHandler) Health(c echo.Context) error {
	body := map[string]interface{}{"status": "ok"}
	if h.history != nil {
		history := "ok"
		if err := h.history.Health(c.Request().Context()); err != nil {
			history = "down"
			h.l.Warn("history health check failed", applogger.Error(err))
		}
		body["history"] = history
	}
	return c.JSON(http.StatusOK, body)
}

func (h *ForecastHandler) Info(c echo.Context) error {
	return xhttp.SuccessResponse(c, struct {
		Info
		Models []models.ModelInfo `json:"models"`
	}{h.info, h.forecaster.Models()})
}

func (h *ForecastHandler) Defaults(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.forecaster.Defaults())
}

func (h *ForecastHandler) PostForecast(c echo.Context) error {
	req := &models.ForecastRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.respond(c, req)
}

func (h *ForecastHandler) GetForecast(c echo.Context) error {
	req, err := models.RequestFromValues(c.QueryParam)
	if err != nil {
		return h.forecastError(c, err)
	}
	return h.respond(c, req)
}

func (h *ForecastHandler) respond(c echo.Context, req *models.ForecastRequest) error {
	res, err := h.forecaster.Forecast(c.Request().Context(), req, usecase.SourceHTTP)
	if err != nil {
		return h.forecastError(c, err)
	}
	return xhttp.SuccessResponse(c, res)
}

// Recent lists stored forecast runs, newest first.
func (h *ForecastHandler) Recent(c echo.Context) error {
	if h.history == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("forecast history is disabled"))
	}
	limit := xhttp.ClampInt(xhttp.ParseIntDefault(c.QueryParam("limit"), 20), 1, 500)
	since := util.ParseTimeDefault(c.QueryParam("since"), time.Time{})

	runs, err := h.history.Recent(c.Request().Context(), since, limit)
	if err != nil {
		h.l.Error("history query failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("could not read forecast history").WithError(err))
	}
	return xhttp.ListResponse(c, runs, int64(len(runs)))
}

// forecastError maps domain errors onto HTTP responses.
func (h *ForecastHandler) forecastError(c echo.Context, err error) error {
	var ie *models.InputError
	switch {
	case errors.As(err, &ie):
		return xhttp.BadRequestResponse(c, fieldErrors(ie.Fields))
	case errors.Is(err, models.ErrInvalidInput):
		return xhttp.AppErrorResponse(c, xhttp.InvalidInputError("", err.Error()).WithError(err))
	case errors.Is(err, models.ErrModelUnavailable):
		return xhttp.AppErrorResponse(c, xhttp.ModelUnavailableError("prediction model unavailable").WithError(err))
	default:
		return xhttp.AppErrorResponse(c, xhttp.InternalErrorf("forecast failed (%s)", usecase.ErrorKind(err)).WithError(err))
	}
}

func fieldErrors(fields []models.FieldError) []xhttp.ValidationError {
	out := make([]xhttp.ValidationError, 0, len(fields))
	for _, f := range fields {
		ve := xhttp.ValidationError{Code: xhttp.CodeInvalidInput, Field: f.Field, Message: f.Message}
		if f.Rule != "" {
			ve.Params = map[string]interface{}{"rule": f.Rule}
			if f.Param != "" {
				ve.Params["param"] = f.Param
			}
		}
		out = append(out, ve)
	}
	return out
}

func (h *ForecastHandler) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.limiter != nil && !h.limiter.Allow(c.RealIP()) {
			h.l.Warn("rate limited", applogger.String("remote", c.RealIP()), applogger.String("path", c.Path()))
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many forecast requests"))
		}
		return next(c)
	}
}
