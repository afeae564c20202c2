package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Get()
	require.NotNil(t, cfg)
	assert.Equal(t, 30.0, cfg.Capture.RateLimit)
	assert.True(t, cfg.Capture.PreferDMABuf)
	assert.False(t, cfg.Auth.Enable)
}

func TestParseLine(t *testing.T) {
	cases := []struct {
		name      string
		line      string
		wantKey   string
		wantValue string
		wantOK    bool
		wantErr   bool
	}{
		{"comment", "# a comment", "", "", false, false},
		{"blank", "   ", "", "", false, false},
		{"simple", "address = 0.0.0.0", "address", "0.0.0.0", true, false},
		{"no_spaces", "enable_auth=true", "enable_auth", "true", true, false},
		{"malformed", "nonsense", "", "", false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, value, ok, err := ParseLine(tc.line)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)
			if ok {
				assert.Equal(t, tc.wantKey, key)
				assert.Equal(t, tc.wantValue, value)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	assert.True(t, ParseBool("true"))
	assert.True(t, ParseBool("TRUE"))
	assert.False(t, ParseBool("false"))
	assert.False(t, ParseBool("anything-else"))
}
