package logging

import (
	"bytes"
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/demandcast/demandcast/internal/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLogger_FieldsAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.DebugLevel).With("component", "test")

	logger.Warn("fallback", "method", "holt_winters", "error", errors.New("too short"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "fallback", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "holt_winters", entry["method"])
	assert.Equal(t, "too short", entry["error"])
}

func TestLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.WarnLevel)

	logger.Info("hidden")
	assert.Zero(t, buf.Len())
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	ctx := WithJobID(WithRequestID(context.Background(), "req-1"), "job-9")
	logger.WithContext(ctx).Info("done")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-1", entry["request_id"])
	assert.Equal(t, "job-9", entry["job_id"])
	assert.Equal(t, "req-1", RequestID(ctx))
}

func TestFromContext_FallsBackToGlobal(t *testing.T) {
	assert.Same(t, Global(), FromContext(context.Background()))

	custom := Nop()
	assert.Same(t, custom, FromContext(WithLogger(context.Background(), custom)))
}

func TestNewFromConfig(t *testing.T) {
	logger, err := NewFromConfig(config.LoggingConfig{Level: "bogus", Format: "json", OutputPath: "stderr"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewFromConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "forecaster.log")

	logger, err := NewFromConfig(config.LoggingConfig{Level: "warn", Format: "json", OutputPath: path})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("Strategy fallback", "requested", "holt_winters")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), `"requested":"holt_winters"`)
}

func TestFiberMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, zerolog.InfoLevel)

	app := fiber.New()
	app.Use(FiberMiddleware(logger))
	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.SendString(RequestID(c.UserContext()))
	})
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	req := httptest.NewRequest("GET", "/ping", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", resp.Header.Get("X-Request-ID"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "/ping", entry["path"])
	assert.Equal(t, float64(200), entry["status"])

	buf.Reset()
	resp, err = app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Zero(t, buf.Len(), "health checks are not logged")
}
