// Package report renders forecasts and optimization results for export and archiving.
package report

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/szlkpr/ims-ml-service/internal/domain"
)

// ForecastDates returns one date per prediction, daily after the last history point.
func ForecastDates(history []domain.HistoricalPoint, horizon int) []time.Time {
	last := time.Now().UTC().Truncate(24 * time.Hour)
	if len(history) > 0 {
		if t, err := history[len(history)-1].Time(); err == nil {
			last = t
		}
	}

	dates := make([]time.Time, horizon)
	for i := range dates {
		dates[i] = last.AddDate(0, 0, i+1)
	}
	return dates
}

// WriteForecastCSV writes one row per forecast day with its band.
func WriteForecastCSV(w io.Writer, product string, history []domain.HistoricalPoint, result *domain.ForecastResult) error {
	if result == nil {
		return errors.New("nothing to export")
	}

	writer := csv.NewWriter(w)
	header := []string{"product", "date", "prediction", "lower", "upper"}
	if err := writer.Write(header); err != nil {
		return err
	}

	lower := result.ConfidenceIntervals["lower"]
	upper := result.ConfidenceIntervals["upper"]
	for i, date := range ForecastDates(history, len(result.Predictions)) {
		record := []string{
			product,
			date.Format("2006-01-02"),
			formatFloat(result.Predictions[i]),
			formatFloat(valueAt(lower, i)),
			formatFloat(valueAt(upper, i)),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// RenderForecastPNG draws the history, the forecast and its band.
func RenderForecastPNG(w io.Writer, product string, history []domain.HistoricalPoint, result *domain.ForecastResult) error {
	if result == nil || len(result.Predictions) == 0 {
		return errors.New("nothing to render")
	}

	histX := make([]time.Time, 0, len(history))
	histY := make([]float64, 0, len(history))
	for _, p := range history {
		t, err := p.Time()
		if err != nil {
			return err
		}
		histX = append(histX, t)
		histY = append(histY, p.Value)
	}

	forecastX := ForecastDates(history, len(result.Predictions))
	dashed := chart.Style{StrokeDashArray: []float64{5, 5}}

	series := []chart.Series{}
	if len(histX) > 0 {
		series = append(series, chart.TimeSeries{
			Name:    "History",
			XValues: histX,
			YValues: histY,
		})
	}
	series = append(series, chart.TimeSeries{
		Name:    "Forecast",
		XValues: forecastX,
		YValues: result.Predictions,
	})
	for _, band := range []string{"lower", "upper"} {
		values := result.ConfidenceIntervals[band]
		if len(values) != len(forecastX) {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    strings.ToUpper(band[:1]) + band[1:],
			XValues: forecastX,
			YValues: values,
			Style:   dashed,
		})
	}

	graph := chart.Chart{
		Title:  product,
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name: "Demand",
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f")
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// OptimizationJSON is the archived form of an optimization response.
func OptimizationJSON(resp *domain.OptimizationResponse, generatedAt time.Time) ([]byte, error) {
	payload := struct {
		GeneratedAt time.Time `json:"generated_at"`
		*domain.OptimizationResponse
	}{generatedAt.UTC(), resp}
	return json.MarshalIndent(payload, "", "  ")
}

// Key builds an archive object key: <prefix>/<kind>/<yyyy>/<mm>/<dd>/<name>-<unix>.<ext>.
func Key(prefix, kind, name string, at time.Time, ext string) string {
	at = at.UTC()
	file := fmt.Sprintf("%s-%d.%s", slug(name), at.Unix(), strings.TrimPrefix(ext, "."))
	return path.Join(prefix, kind, at.Format("2006/01/02"), file)
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "report"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

func valueAt(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
