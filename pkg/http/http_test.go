package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type limitQuery struct {
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"gte=1,lte=500"`
	Format string `query:"format" json:"format" default:"csv" validate:"oneof=csv xlsx"`
}

func TestReadAndValidateRequestAppliesDefaults(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?format=xlsx", nil), httptest.NewRecorder())

	var q limitQuery
	assert.Nil(t, ReadAndValidateRequest(c, &q))
	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, "xlsx", q.Format)
}

func TestReadAndValidateRequestReportsJSONFieldNames(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=9999", nil), httptest.NewRecorder())

	var q limitQuery
	errs, ok := ReadAndValidateRequest(c, &q).([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_LTE", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "500", errs[0].Params["max"])
}

func TestValidationErrorsFromJSONTypeMismatch(t *testing.T) {
	var dst struct {
		TotalShrimp *float64 `json:"total_shrimp"`
	}
	err := json.Unmarshal([]byte(`{"total_shrimp":"lots"}`), &dst)
	require.Error(t, err)

	errs := ValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, CodeInvalidInput, errs[0].Code)
	assert.Equal(t, "total_shrimp", errs[0].Field)
}

func TestAppErrorResponseUsesErrorStatus(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, ModelUnavailableError("abw model down")))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, http.StatusServiceUnavailable, body.Status)
	assert.Equal(t, CodeModelUnavailable, body.Data[0].Code)
}

func TestAppErrorResponseFallsBackTo500(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	require.NoError(t, AppErrorResponse(c, errors.New("plain")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientSendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if strings.HasSuffix(r.URL.Path, "/down") {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"predictions":[1.5,2.5]}`))
	}))
	defer srv.Close()

	c := NewClient()
	var out struct {
		Predictions []float64 `json:"predictions"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodPost, URL: srv.URL + "/predict", Body: map[string]int{"a": 1}}, &out)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, out.Predictions)

	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodPost, URL: srv.URL + "/down", Body: map[string]int{}}, &out)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.True(t, se.Temporary())
	assert.Equal(t, "overloaded", se.Body)
}
