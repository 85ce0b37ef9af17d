package cli

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"wisesplit/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	logger := SetupLogger("debug", log.ComponentWorker)
	assert.Equal(t, log.ComponentWorker, logger.Component())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
	assert.Same(t, logger.Logger, slog.Default())
}

func TestShutdownRunsEveryStep(t *testing.T) {
	logger := log.Default(log.ComponentApp)
	var order []string

	err := Shutdown(logger, time.Second,
		func(context.Context) error { order = append(order, "http"); return errors.New("busy") },
		func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			order = append(order, "store")
			return nil
		},
	)

	assert.EqualError(t, err, "busy")
	assert.Equal(t, []string{"http", "store"}, order)
}

func TestShutdownNoSteps(t *testing.T) {
	assert.NoError(t, Shutdown(log.Default(log.ComponentApp), time.Second))
}
