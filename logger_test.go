package relate

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).WithCollection("alloys")
	ctx := context.Background()

	l.LogDescribe(ctx, "A", "soap", true, nil)
	assert.Contains(t, buf.String(), `"msg":"describe completed"`)
	assert.Contains(t, buf.String(), `"collection":"alloys"`)
	assert.Contains(t, buf.String(), `"cached":true`)

	buf.Reset()
	l.LogProcess(ctx, "ler", "soap", false, errors.New("boom"))
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)

	buf.Reset()
	l.LogClear(ctx, "soap", nil)
	assert.Contains(t, buf.String(), `"target":"soap"`)

	buf.Reset()
	NoopLogger().LogClear(ctx, "soap", nil)
	assert.Empty(t, buf.String())
}

func TestApplyOptions(t *testing.T) {
	o := applyOptions([]Option{WithLogger(nil), WithMetricsCollector(nil), WithWorkers(-3), nil})
	assert.NotNil(t, o.logger)
	assert.Equal(t, NoopMetricsCollector{}, o.metricsCollector)
	assert.Equal(t, 1, o.workers)

	assert.True(t, applyCallOptions([]CallOption{WithOverride()}).override)
	assert.False(t, applyCallOptions(nil).override)
}
