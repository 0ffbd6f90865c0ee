package app

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogLevel(t *testing.T) {
	cases := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, logLevel(&Config{LogLevel: tc.level}), "level %q", tc.level)
	}
	require.Equal(t, slog.LevelInfo, logLevel(nil))
}

func TestNewLoggerHonorsLevel(t *testing.T) {
	ctx := context.Background()

	quiet := NewLogger(&Config{LogFormat: "json", LogLevel: "warn"})
	require.False(t, quiet.Enabled(ctx, slog.LevelInfo))
	require.True(t, quiet.Enabled(ctx, slog.LevelWarn))

	verbose := NewLogger(&Config{LogLevel: "debug"})
	require.True(t, verbose.Enabled(ctx, slog.LevelDebug))
}
