package api

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/repository"
	"ShrimpCast/internal/service/ratelimit"
	"ShrimpCast/internal/services/predictor"
	"ShrimpCast/internal/usecase"
	xhttp "ShrimpCast/pkg/http"
)

// dayPredictor returns 10 * day.
type dayPredictor struct {
	err error
	inf bool
}

func (p dayPredictor) Predict(_ context.Context, rows [][]float64) ([]float64, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r[0] * 10
	}
	if p.inf && len(out) > 0 {
		out[0] = math.Inf(1)
	}
	return out, nil
}

func (dayPredictor) Info() models.ModelInfo {
	return models.ModelInfo{Role: predictor.RoleABW, Kind: "test", Name: "abw", Features: 3}
}

func defaults() models.ParameterSet {
	return models.ParameterSet{
		DaysUntilHarvest: 60, CycleAgeDays: 60, TotalSeed: 100000, Area: 1000,
		TotalShrimp: 95000, TotalWeight: 1500, FeedQuantity: 1200,
		MorningTemperature: 28, EveningTemperature: 27, MorningDO: 7.2, EveningDO: 6.8,
		MorningSalinity: 35, EveningSalinity: 34, MorningPH: 7.8, EveningPH: 7.7,
		Nitrate: 0.25, Nitrite: 0.02, Alkalinity: 120, PricePerKg: 12,
	}
}

func newTestEcho(t *testing.T, abw dayPredictor, opts ...HandlerOption) *echo.Echo {
	t.Helper()
	f := usecase.NewForecaster(usecase.ForecasterConfig{
		ExchangeRate:   15000,
		Currency:       "IDR",
		MaxHorizonDays: 365,
		Defaults:       defaults(),
	}, predictor.NewConstant(predictor.RoleSurvival, "survival", 17, 90), abw)

	h := NewForecastHandler(f, Info{Name: "shrimpcast", Version: "test", Currency: "IDR"}, nil, opts...)
	return xhttp.NewServer(h, nil, xhttp.WithMetricsPath("")).Echo()
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	var rdr *strings.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	} else {
		rdr = strings.NewReader("")
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHealth(t *testing.T) {
	rec, _ := do(newTestEcho(t, dayPredictor{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestInfoAndDefaults(t *testing.T) {
	e := newTestEcho(t, dayPredictor{})

	rec, env := do(e, http.MethodGet, "/api/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info struct {
		Name   string             `json:"name"`
		Models []models.ModelInfo `json:"models"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &info))
	assert.Equal(t, "shrimpcast", info.Name)
	assert.Len(t, info.Models, 2)

	rec, env = do(e, http.MethodGet, "/api/defaults", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.ParameterSet
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, defaults(), p)
}

func TestPostForecast(t *testing.T) {
	rec, env := do(newTestEcho(t, dayPredictor{}), http.MethodPost, "/api/forecast",
		`{"days_until_harvest": 3, "total_shrimp": 100, "price_per_kg": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.ForecastResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, []int{1, 2, 3}, res.Days)
	assert.InDeltaSlice(t, []float64{15000, 45000, 90000}, res.CumulativeRevenue, 1e-6)
	assert.Equal(t, "Forecasted Revenue by Day 3: IDR 90,000.00", res.Summary)
	require.Len(t, res.Charts, 4)
	assert.Equal(t, "survival-rate-plot", res.Charts[0].ID)
}

func TestGetForecastFromQuery(t *testing.T) {
	rec, env := do(newTestEcho(t, dayPredictor{}), http.MethodGet,
		"/api/forecast?days_until_harvest=0&total_shrimp=&price_per_kg=2", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.ForecastResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Empty(t, res.Days)
	assert.Equal(t, "Forecasted Revenue by Day 0: IDR 0.00", res.Summary)
	assert.Equal(t, 95000.0, res.Parameters.TotalShrimp, "blank input falls back to the default")
	assert.Equal(t, 2.0, res.Parameters.PricePerKg)
}

func validationErrors(t *testing.T, env envelope) []xhttp.ValidationError {
	t.Helper()
	var errs []xhttp.ValidationError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	return errs
}

func TestForecastInvalidInput(t *testing.T) {
	e := newTestEcho(t, dayPredictor{})

	cases := []struct {
		name, method, target, body, field string
	}{
		{"json type", http.MethodPost, "/api/forecast", `{"total_shrimp": "many"}`, "total_shrimp"},
		{"query type", http.MethodGet, "/api/forecast?area=big", "", "area"},
		{"negative days", http.MethodGet, "/api/forecast?days_until_harvest=-1", "", "days_until_harvest"},
		{"beyond horizon", http.MethodPost, "/api/forecast", `{"days_until_harvest": 400}`, "days_until_harvest"},
		{"negative price", http.MethodPost, "/api/forecast", `{"price_per_kg": -3}`, "price_per_kg"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(e, tc.method, tc.target, tc.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			errs := validationErrors(t, env)
			require.NotEmpty(t, errs)
			assert.Equal(t, xhttp.CodeInvalidInput, errs[0].Code)
			assert.Equal(t, tc.field, errs[0].Field)
		})
	}
}

func TestForecastModelUnavailable(t *testing.T) {
	rec, env := do(newTestEcho(t, dayPredictor{err: models.ErrModelUnavailable}), http.MethodGet, "/api/forecast?days_until_harvest=2", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, xhttp.CodeModelUnavailable, errs[0].Code)
}

func TestForecastOverflowIsInvalidInput(t *testing.T) {
	rec, env := do(newTestEcho(t, dayPredictor{}), http.MethodPost, "/api/forecast",
		`{"days_until_harvest": 3, "total_shrimp": 1e300, "price_per_kg": 1e10}`)
	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusBadRequest, env.Status)

	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, xhttp.CodeInvalidInput, errs[0].Code)
}

func TestForecastNonFinitePredictionIsInternal(t *testing.T) {
	rec, env := do(newTestEcho(t, dayPredictor{inf: true}), http.MethodGet, "/api/forecast?days_until_harvest=2", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusInternalServerError, env.Status)

	var errs []xhttp.AppError
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, xhttp.CodeInternal, errs[0].Code)
	assert.Equal(t, "forecast failed (internal)", errs[0].Message)
}

func TestExportCSV(t *testing.T) {
	rec, _ := do(newTestEcho(t, dayPredictor{}), http.MethodGet,
		"/api/forecast/export?days_until_harvest=3&total_shrimp=100&price_per_kg=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "shrimpcast-forecast-3d.csv")

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "cumulative_revenue_IDR", rows[0][5])
	assert.Equal(t, []string{"3", "90", "30", "3", "6", "90000"}, rows[3])
}

func TestExportXLSX(t *testing.T) {
	rec, _ := do(newTestEcho(t, dayPredictor{}), http.MethodGet,
		"/api/forecast/export?format=xlsx&days_until_harvest=2&total_shrimp=100&price_per_kg=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	fx, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer fx.Close()

	rows, err := fx.GetRows("Forecast")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "day", rows[0][0])
	assert.Equal(t, "2", rows[2][0])
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	rec, _ := do(newTestEcho(t, dayPredictor{}), http.MethodGet, "/api/forecast/export?format=pdf", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecent(t *testing.T) {
	rec, _ := do(newTestEcho(t, dayPredictor{}), http.MethodGet, "/api/forecasts/recent", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env := do(newTestEcho(t, dayPredictor{}, WithHistory(repository.NoopHistory{})), http.MethodGet, "/api/forecasts/recent?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list xhttp.ListDataResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Zero(t, list.Total)
}

func TestRateLimit(t *testing.T) {
	e := newTestEcho(t, dayPredictor{}, WithRateLimit(ratelimit.New(1, 0)))

	rec, _ := do(e, http.MethodGet, "/api/forecast?days_until_harvest=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(e, http.MethodGet, "/api/forecast?days_until_harvest=1", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(e, http.MethodGet, "/api/defaults", "")
	assert.Equal(t, http.StatusOK, rec.Code, "only forecast routes are limited")
}

func TestWebSocketSession(t *testing.T) {
	srv := httptest.NewServer(newTestEcho(t, dayPredictor{}, WithWebSocket(WSConfig{})))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/forecast", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"request_id":"w-1","days_until_harvest":3,"total_shrimp":100,"price_per_kg":1}`)))
	var ok models.ForecastReply
	require.NoError(t, conn.ReadJSON(&ok))
	assert.Equal(t, "w-1", ok.RequestID)
	require.NotNil(t, ok.Result)
	assert.Equal(t, "Forecasted Revenue by Day 3: IDR 90,000.00", ok.Result.Summary)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"request_id":"w-2","price_per_kg":-1}`)))
	var bad models.ForecastReply
	require.NoError(t, conn.ReadJSON(&bad))
	assert.Equal(t, "w-2", bad.RequestID)
	require.NotNil(t, bad.Error)
	assert.Equal(t, xhttp.CodeInvalidInput, bad.Error.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	var malformed models.ForecastReply
	require.NoError(t, conn.ReadJSON(&malformed))
	require.NotNil(t, malformed.Error)
	assert.Equal(t, xhttp.CodeInvalidInput, malformed.Error.Code)
}
