package log_test

import (
	"testing"

	"github.com/Siasom1/devchain/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		cfg    log.Config
		level  zapcore.Level
		wantOK bool
	}{
		{"DebugConsole", log.Config{Level: "debug", Format: "console"}, zapcore.DebugLevel, true},
		{"InfoJSON", log.Config{Level: "info", Format: "json"}, zapcore.InfoLevel, true},
		{"Warn", log.Config{Level: "warn"}, zapcore.WarnLevel, true},
		{"EmptyLevel", log.Config{}, zapcore.InfoLevel, true},
		{"Invalid", log.Config{Level: "loud"}, zapcore.InfoLevel, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := log.NewLogger(&tt.cfg)
			if !tt.wantOK {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.level))
			if tt.level > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
			}
		})
	}
}
