package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Duration
		wantErr bool
	}{
		{name: "minutes", input: "15m", want: 15 * time.Minute},
		{name: "hours", input: "12h", want: 12 * time.Hour},
		{name: "days", input: "7d", want: 7 * 24 * time.Hour},
		{name: "single day", input: "1d", want: 24 * time.Hour},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "sevendays", wantErr: true},
		{name: "bad day count", input: "xd", wantErr: true},
		{name: "negative", input: "-5m", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseExpiry(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWithPath("testdata/does-not-exist.env")
	require.NoError(t, err)

	assert.Equal(t, "medicalink-staff-backend", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "medicalink:", cfg.Redis.KeyPrefix)
	assert.Equal(t, 60*time.Second, cfg.Redis.ConnectTimeout)
	assert.Equal(t, 5*time.Second, cfg.Redis.CommandTimeout)
	assert.Equal(t, "15m", cfg.Auth.Expires)
	assert.Equal(t, "7d", cfg.Auth.RefreshExpires)

	access, err := cfg.Auth.AccessExpiry()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, access)

	refresh, err := cfg.Auth.RefreshExpiry()
	require.NoError(t, err)
	assert.Equal(t, 7*24*time.Hour, refresh)
}

func TestValidateRejectsSharedSecrets(t *testing.T) {
	cfg, err := LoadWithPath("testdata/does-not-exist.env")
	require.NoError(t, err)

	cfg.Auth.Secret = "same"
	cfg.Auth.RefreshSecret = "same"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsDevSecretsInProduction(t *testing.T) {
	cfg, err := LoadWithPath("testdata/does-not-exist.env")
	require.NoError(t, err)

	cfg.App.Environment = "production"
	assert.Error(t, cfg.Validate())

	cfg.Auth.Secret = "real-access-secret"
	cfg.Auth.RefreshSecret = "real-refresh-secret"
	assert.NoError(t, cfg.Validate())
}

func TestRedisAddr(t *testing.T) {
	cfg := &RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", cfg.Addr())
}
