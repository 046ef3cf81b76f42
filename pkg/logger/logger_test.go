package logger

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"release", zerolog.InfoLevel},
		{"test", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SetLevel(tt.in))
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestSetup_SharesPackageLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	var buf bytes.Buffer
	Setup(&buf)
	SetLevel("info")

	zlog.Info().Str("component", "engine").Msg("hello")
	zlog.Debug().Msg("hidden")

	assert.Contains(t, buf.String(), `"component":"engine"`)
	assert.NotContains(t, buf.String(), "hidden")
}
