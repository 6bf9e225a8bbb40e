package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_SetsGlobalLevelFromConfig(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "info", level: "info", want: zerolog.InfoLevel},
		{name: "warn", level: "warn", want: zerolog.WarnLevel},
		{name: "error", level: "error", want: zerolog.ErrorLevel},
		{name: "unrecognized defaults to info", level: "bogus", want: zerolog.InfoLevel},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			New(Config{Level: tc.level})
			assert.Equal(t, tc.want, zerolog.GlobalLevel())
		})
	}
}

func TestNew_ReturnsAUsableLogger(t *testing.T) {
	log := New(Config{Level: "info"})
	assert.NotPanics(t, func() {
		log.Info().Msg("hello")
	})
}

func TestNew_PrettyModeDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		New(Config{Level: "info", Pretty: true})
	})
}
