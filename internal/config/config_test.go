package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
backend:
  url: https://abc.supabase.co/
  anon_key: anon
couple:
  anniversary: "2023-02-14"
  timezone: Europe/Lisbon
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://abc.supabase.co", cfg.Backend.URL)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8787, cfg.Server.Port)
	assert.Equal(t, "couple_uploads", cfg.Storage.Bucket)
	assert.Equal(t, "https://abc.supabase.co/storage/v1/s3", cfg.Storage.Endpoint)
	assert.Equal(t, "https://abc.supabase.co/storage/v1/object/public", cfg.Storage.PublicURL)
	assert.Equal(t, "push-notification", cfg.Push.Function)
	assert.Equal(t, 25*time.Second, cfg.Realtime.Heartbeat)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, time.Date(2023, 2, 14, 0, 0, 0, 0, time.UTC), cfg.Couple.AnniversaryDate())

	loc, err := cfg.Couple.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Lisbon", loc.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LOVENEST_ANON_KEY", "from-env")
	t.Setenv("LOVENEST_PUSH_PLAYER_ID", "player-7")
	path := writeConfig(t, `
backend:
  url: https://abc.supabase.co
  anon_key: from-file
realtime:
  heartbeat: 10s
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Backend.AnonKey)
	assert.Equal(t, "player-7", cfg.Push.PartnerPlayer)
	assert.Equal(t, 10*time.Second, cfg.Realtime.Heartbeat)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing url", "backend:\n  anon_key: anon\n"},
		{"missing key", "backend:\n  url: https://abc.supabase.co\n"},
		{"bad anniversary", "backend:\n  url: https://x.co\n  anon_key: a\ncouple:\n  anniversary: 14/02/2023\n"},
		{"bad timezone", "backend:\n  url: https://x.co\n  anon_key: a\ncouple:\n  timezone: Mars/Olympus\n"},
		{"bad yaml", "backend: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLocationDefaultsToLocal(t *testing.T) {
	loc, err := CoupleConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
	assert.True(t, CoupleConfig{}.AnniversaryDate().IsZero())
}
