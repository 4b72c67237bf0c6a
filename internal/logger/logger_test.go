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
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, ParseLevel(in))
		})
	}
}

func TestNewHonoursLevel(t *testing.T) {
	log := New(Config{Level: "warn", Format: "json"})
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
}

func TestFromContext(t *testing.T) {
	fallback := zap.NewExample()
	assert.Same(t, fallback, FromContext(context.Background(), fallback))
	assert.NotNil(t, FromContext(context.Background(), nil))

	scoped := zap.NewNop().With(zap.String("request_id", "abc"))
	ctx := WithContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx, fallback))
}
