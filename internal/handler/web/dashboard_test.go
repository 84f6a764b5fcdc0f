package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShrimpCast/internal/domain/models"
)

func TestDashboardRendersInputsAndCharts(t *testing.T) {
	d, err := NewDashboard(models.ParameterSet{DaysUntilHarvest: 60, MorningPH: 7.8}, true, nil)
	require.NoError(t, err)

	e := echo.New()
	d.RegisterRoutes(e)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Shrimp Farming Forecast Dashboard")
	for _, name := range models.ParameterNames {
		assert.Contains(t, body, `id="`+name+`"`)
	}
	assert.Contains(t, body, `value="7.8"`)
	for _, id := range []string{"survival-rate-plot", "abw-plot", "biomass-plot", "revenue-plot", "revenue-output"} {
		assert.Contains(t, body, `id="`+id+`"`)
	}
	assert.Contains(t, body, "var useSocket = true;")
}
