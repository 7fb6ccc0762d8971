package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"TRACE", zapcore.DebugLevel},
		{"warning", zapcore.WarnLevel},
		{"ERROR", zapcore.ErrorLevel},
		{"nonsense", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLogLevel(tt.in))
		})
	}
}

func TestFindWritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))

	unusable := filepath.Join(blocker, "nested", "operator.log")
	usable := filepath.Join(dir, "logs", "operator.log")

	got, err := findWritable([]string{unusable, usable})
	require.NoError(t, err)
	assert.Equal(t, usable, got)

	info, err := os.Stat(usable)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = findWritable([]string{unusable})
	assert.Error(t, err)
}

func TestGetLogger_Fallback(t *testing.T) {
	SetLogger(nil)
	l := GetLogger()
	require.NotNil(t, l)
	assert.Same(t, l, L())
}

func TestConsoleEncoderConfig_Colour(t *testing.T) {
	enc := zapcore.NewConsoleEncoder(ConsoleEncoderConfig(false))
	buf, err := enc.EncodeEntry(zapcore.Entry{Level: zapcore.WarnLevel, Message: "plain"}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "WARN")
	assert.NotContains(t, buf.String(), "\x1b[")

	enc = zapcore.NewConsoleEncoder(ConsoleEncoderConfig(true))
	buf, err = enc.EncodeEntry(zapcore.Entry{Level: zapcore.WarnLevel, Message: "colour"}, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\x1b[")
}
