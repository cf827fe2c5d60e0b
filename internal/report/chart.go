package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/demandcast/demandcast/internal/services"
)

// Series names used on the forecast chart
const (
	SeriesHistorical = "Historical"
	SeriesForecast   = "Forecast"
	SeriesUpper      = "Upper Bound"
	SeriesLower      = "Lower Bound"
)

// LineForecast builds a line chart of the historical series followed by the
// forecast and its bounds. Each line is blank outside its own range.
func LineForecast(result *services.ForecastResult) *charts.Line {
	line := charts.NewLine()

	title := fmt.Sprintf("%s Demand Forecast", result.Grain)
	if result.Group != "" {
		title = fmt.Sprintf("%s (%s)", title, result.Group)
	}
	subtitle := fmt.Sprintf("%s, %d%% confidence", result.Method, result.ConfidenceLevel)
	if result.EffectiveMethod != result.MethodID {
		subtitle = fmt.Sprintf("%s, via %s", subtitle, result.EffectiveMethod.DisplayName())
	}

	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)

	nHist, nFc := len(result.Historical), len(result.Forecast)
	xAxis := make([]string, 0, nHist+nFc)
	historical := make([]opts.LineData, 0, nHist+nFc)
	predicted := make([]opts.LineData, 0, nHist+nFc)
	upper := make([]opts.LineData, 0, nHist+nFc)
	lower := make([]opts.LineData, 0, nHist+nFc)

	for i, p := range result.Historical {
		xAxis = append(xAxis, p.Time.Format(DateLayout))
		historical = append(historical, opts.LineData{Value: p.Value})

		// join the forecast line to the last observed period
		if i == nHist-1 {
			predicted = append(predicted, opts.LineData{Value: p.Value})
		} else {
			predicted = append(predicted, opts.LineData{Value: nil})
		}
		upper = append(upper, opts.LineData{Value: nil})
		lower = append(lower, opts.LineData{Value: nil})
	}
	for _, p := range result.Forecast {
		xAxis = append(xAxis, p.Time.Format(DateLayout))
		historical = append(historical, opts.LineData{Value: nil})
		predicted = append(predicted, opts.LineData{Value: p.Value})
		upper = append(upper, opts.LineData{Value: p.UpperBound})
		lower = append(lower, opts.LineData{Value: p.LowerBound})
	}

	line.SetXAxis(xAxis).
		AddSeries(SeriesHistorical, historical).
		AddSeries(SeriesForecast, predicted).
		AddSeries(SeriesUpper, upper).
		AddSeries(SeriesLower, lower)
	return line
}

// RenderForecast writes an HTML page with the forecast chart to w
func RenderForecast(w io.Writer, result *services.ForecastResult) error {
	if result == nil {
		return fmt.Errorf("no forecast result to render")
	}
	page := components.NewPage()
	page.PageTitle = "Demand Forecast"
	page.AddCharts(LineForecast(result))
	return page.Render(w)
}
