package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"INFO":    zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
		"warning": zapcore.WarnLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		require.Equal(t, want, LevelFromString(in), in)
	}
}

func TestNew_StdoutOnly(t *testing.T) {
	lg, closer, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	defer closer.Close()

	require.False(t, lg.Core().Enabled(zapcore.InfoLevel))
	require.True(t, lg.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_WritesRotatedFile(t *testing.T) {
	base := filepath.Join(t.TempDir(), "logs", "server.log")

	lg, closer, err := New(Config{Level: "debug", File: base})
	require.NoError(t, err)

	lg.Info("hello from test")
	_ = lg.Sync()
	require.NoError(t, closer.Close())

	all, err := filepath.Glob(base + ".*")
	require.NoError(t, err)
	var matches []string
	for _, m := range all {
		if !strings.HasSuffix(m, "_lock") {
			matches = append(matches, m)
		}
	}
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `"msg":"hello from test"`), string(data))
}
