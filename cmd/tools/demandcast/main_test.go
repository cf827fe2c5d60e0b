package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSalesCSV(t *testing.T, days int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("date,product_id,quantity\n")
	for i := 0; i < days; i++ {
		fmt.Fprintf(&b, "2024-01-%02d,P1,%d\n", i+1, 10+i)
		fmt.Fprintf(&b, "2024-01-%02d,P2,5\n", i+1)
	}
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0644))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestForecastCommand_CSV(t *testing.T) {
	input := writeSalesCSV(t, 14)

	stdout, stderr, err := execute(t, "", "forecast", "--input", input,
		"--method", "linear_trend", "--group", "P1", "--horizon", "7")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "date,forecast,lower_bound,upper_bound", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-15,24.00,"), lines[1])
	assert.Contains(t, stderr, "Linear Trend: 7 days")
}

func TestForecastCommand_StdinAndFiles(t *testing.T) {
	data, err := os.ReadFile(writeSalesCSV(t, 14))
	require.NoError(t, err)

	dir := t.TempDir()
	out := filepath.Join(dir, "forecast.json")
	chart := filepath.Join(dir, "chart.html")

	_, _, err = execute(t, string(data), "forecast", "-i", "-", "-o", out,
		"--json", "--chart", chart, "--group", "P2", "--horizon", "7", "--seed", "1")
	require.NoError(t, err)

	body, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"method_id": "moving_average"`)

	html, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(html), "Daily Demand Forecast")
}

func TestForecastCommand_Errors(t *testing.T) {
	input := writeSalesCSV(t, 3)

	_, _, err := execute(t, "", "forecast", "--input", input, "--group", "P1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INSUFFICIENT_DATA")

	_, _, err = execute(t, "", "forecast", "--input", input, "--method", "prophet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_CONFIG")

	_, _, err = execute(t, "", "forecast")
	assert.Error(t, err)

	_, _, err = execute(t, "", "forecast", "--input", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestGroupsCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "groups", "--input", writeSalesCSV(t, 2))
	require.NoError(t, err)
	assert.Equal(t, "P1\nP2\n", stdout)

	_, _, err = execute(t, "date,quantity\n2024-01-01,1\n", "groups", "--input", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MISSING_COLUMN")
}

func TestMethodsCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "methods")
	require.NoError(t, err)
	assert.Contains(t, stdout, "holt_winters")
	assert.Contains(t, stdout, "Monthly")
}
