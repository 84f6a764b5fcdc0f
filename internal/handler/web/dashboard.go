// Package web serves the single-page forecast dashboard.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/services/charts"
	applogger "ShrimpCast/pkg/logger"
)

//go:embed templates/*.html
var templates embed.FS

var page = template.Must(template.ParseFS(templates, "templates/index.html"))

type field struct {
	Name  string
	Value string
	Step  string
}

type pageData struct {
	Title     string
	Fields    []field
	ChartRows [][]string
	WebSocket bool
}

// Dashboard renders the input form and the four chart placeholders. The
// page talks to /ws/forecast when enabled and falls back to POST /api/forecast.
type Dashboard struct {
	html []byte
	l    *applogger.Logger
}

func NewDashboard(defaults models.ParameterSet, websocket bool, l *applogger.Logger) (*Dashboard, error) {
	if l == nil {
		l = applogger.Nop()
	}
	values := defaults.Values()
	fields := make([]field, len(models.ParameterNames))
	for i, name := range models.ParameterNames {
		step := "any"
		if i == 0 {
			step = "1"
		}
		fields[i] = field{Name: name, Value: strconv.FormatFloat(values[i], 'f', -1, 64), Step: step}
	}

	var buf bytes.Buffer
	err := page.Execute(&buf, pageData{
		Title:  "Shrimp Farming Forecast Dashboard",
		Fields: fields,
		ChartRows: [][]string{
			{charts.SurvivalRateID, charts.ABWID},
			{charts.BiomassID, charts.RevenueID},
		},
		WebSocket: websocket,
	})
	if err != nil {
		return nil, err
	}
	return &Dashboard{html: buf.Bytes(), l: l}, nil
}

func (d *Dashboard) RegisterRoutes(e *echo.Echo) {
	e.GET("/", d.Index)
}

func (d *Dashboard) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, d.html)
}
