package logging_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/goliatone/go-tiltguard/logging"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    zapcore.Level
		wantErr bool
	}{
		{name: "empty defaults to info", input: "", want: zapcore.InfoLevel},
		{name: "debug", input: "debug", want: zapcore.DebugLevel},
		{name: "upper case", input: "WARN", want: zapcore.WarnLevel},
		{name: "error", input: "error", want: zapcore.ErrorLevel},
		{name: "unknown", input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := logging.ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	logger, err := logging.New(logging.Options{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.True(t, logger.Zap().Core().Enabled(zapcore.DebugLevel))

	_, err = logging.New(logging.Options{Format: "xml"})
	assert.Error(t, err)

	_, err = logging.New(logging.Options{Level: "nope"})
	assert.Error(t, err)
}

func TestKeyValuesAndNames(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.Wrap(zap.New(core))

	logger.GetLogger("auth:http").Info("login", "user_id", "u-1", "status", 200)
	logger.With("request_id", "r-1").Warn("slow request")
	logger.Debug("debug line")
	logger.Error("failed", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, "auth:http", entries[0].LoggerName)
	assert.Equal(t, "login", entries[0].Message)
	assert.Equal(t, map[string]any{"user_id": "u-1", "status": int64(200)}, entries[0].ContextMap())

	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, "r-1", entries[1].ContextMap()["request_id"])

	assert.Equal(t, zapcore.DebugLevel, entries[2].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		logging.Nop().Info("discarded", "k", "v")
	})
}
