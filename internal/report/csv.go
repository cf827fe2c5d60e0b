// Package report reads observation tables from delimited text and renders
// forecast results as CSV and HTML charts.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/demandcast/demandcast/internal/analytics/forecast"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/utils"
)

// DateLayout is the date format written to forecast CSVs
const DateLayout = "2006-01-02"

// ForecastHeader is the header row of a forecast CSV
var ForecastHeader = []string{"date", "forecast", "lower_bound", "upper_bound"}

// ReadTable reads a CSV with a header row into a table. Header names are
// trimmed and lower-cased; empty cells become nil.
func ReadTable(r io.Reader) (models.Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.Table{}, fmt.Errorf("csv is empty")
		}
		return models.Table{}, fmt.Errorf("failed to read csv header: %w", err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	table := models.Table{Columns: columns}
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return models.Table{}, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}

		record := make(models.Record, len(columns))
		for i, col := range columns {
			if i >= len(row) {
				record[col] = nil
				continue
			}
			if v := strings.TrimSpace(row[i]); v != "" {
				record[col] = v
			} else {
				record[col] = nil
			}
		}
		table.Records = append(table.Records, record)
	}

	return table, nil
}

// WriteForecastCSV writes the forecast series as date,forecast,lower_bound,upper_bound
func WriteForecastCSV(w io.Writer, points []forecast.ForecastPoint) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(ForecastHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range points {
		row := []string{
			p.Time.Format(DateLayout),
			formatValue(p.Value),
			formatValue(p.LowerBound),
			formatValue(p.UpperBound),
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(utils.Round(v, utils.AccuracyDecimals), 'f', int(utils.AccuracyDecimals), 64)
}
