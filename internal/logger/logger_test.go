package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewExample()

	t.Run("returns fallback when missing", func(t *testing.T) {
		assert.Same(t, fallback, FromContext(context.Background(), fallback))
	})

	t.Run("returns nop when nothing available", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background(), nil))
	})

	t.Run("returns stored logger", func(t *testing.T) {
		stored := zap.NewNop()
		ctx := WithContext(context.Background(), stored)
		assert.Same(t, stored, FromContext(ctx, fallback))
	})
}

func TestNew_Formats(t *testing.T) {
	assert.NotNil(t, New(Config{Level: "debug", Format: "json"}))
	assert.NotNil(t, New(Config{Level: "info", Format: "console"}))
}
