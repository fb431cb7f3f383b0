package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONLevels(t *testing.T) {
	var buf bytes.Buffer
	log := setup(EnvProd, &buf)
	log.Debug("hidden")
	log.Info("order placed", slog.Int64("orderID", 7))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order placed", entry["msg"])
	assert.Equal(t, float64(7), entry["orderID"])

	buf.Reset()
	setup(EnvDev, &buf).Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSetup_Pretty(t *testing.T) {
	var buf bytes.Buffer
	log := setup(EnvLocal, &buf).With(slog.String("op", "service.OrderService.PlaceOrder"))
	log.Error("failed to commit", slog.Any("error", errors.New("connection reset")))

	out := buf.String()
	assert.Contains(t, out, "failed to commit")
	assert.Contains(t, out, "service.OrderService.PlaceOrder")
	assert.Contains(t, out, "connection reset")
}
