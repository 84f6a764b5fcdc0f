package api

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/xuri/excelize/v2"

	"ShrimpCast/internal/domain/models"
	"ShrimpCast/internal/usecase"
	xhttp "ShrimpCast/pkg/http"
	applogger "ShrimpCast/pkg/logger"
)

const (
	mimeCSV  = "text/csv; charset=utf-8"
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export computes a forecast from query inputs and returns the per-day table
// as csv (default) or xlsx.
func (h *ForecastHandler) Export(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("format must be csv or xlsx, got %q", format))
	}

	req, err := models.RequestFromValues(c.QueryParam)
	if err != nil {
		return h.forecastError(c, err)
	}
	res, err := h.forecaster.Forecast(c.Request().Context(), req, usecase.SourceHTTP)
	if err != nil {
		return h.forecastError(c, err)
	}

	var (
		body []byte
		mime string
	)
	if format == "xlsx" {
		body, err = forecastXLSX(res)
		mime = mimeXLSX
	} else {
		body, err = forecastCSV(res)
		mime = mimeCSV
	}
	if err != nil {
		h.l.Error("export failed", applogger.String("format", format), applogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("export failed").WithError(err))
	}

	name := fmt.Sprintf("shrimpcast-forecast-%dd.%s", len(res.Days), format)
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, mime, body)
}

func exportHeader(currency string) []string {
	return []string{
		"day",
		"survival_rate_pct",
		"abw_g",
		"daily_biomass_kg",
		"cumulative_biomass_kg",
		"cumulative_revenue_" + currency,
	}
}

func forecastCSV(res *models.ForecastResult) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader(res.Currency)); err != nil {
		return nil, err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for i, d := range res.Days {
		row := []string{
			strconv.Itoa(d),
			f(res.SurvivalRate[i]),
			f(res.ABW[i]),
			f(res.DailyBiomassKg[i]),
			f(res.CumulativeBiomassKg[i]),
			f(res.CumulativeRevenue[i]),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func forecastXLSX(res *models.ForecastResult) ([]byte, error) {
	const sheet = "Forecast"
	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	header := exportHeader(res.Currency)
	hdr := make([]interface{}, len(header))
	for i, h := range header {
		hdr[i] = h
	}
	if err := fx.SetSheetRow(sheet, "A1", &hdr); err != nil {
		return nil, err
	}
	bold, err := fx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return nil, err
	}
	if err := fx.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, err
	}
	for i, d := range res.Days {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []interface{}{d, res.SurvivalRate[i], res.ABW[i], res.DailyBiomassKg[i], res.CumulativeBiomassKg[i], res.CumulativeRevenue[i]}
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	summaryRow := len(res.Days) + 3
	cell, err := excelize.CoordinatesToCellName(1, summaryRow)
	if err != nil {
		return nil, err
	}
	if err := fx.SetCellValue(sheet, cell, res.Summary); err != nil {
		return nil, err
	}

	buf, err := fx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
