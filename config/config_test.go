package config_test

import (
	"encoding/base64"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-id/aegis/config"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("AEGIS_MASTER_SECRET", "0123456789abcdef0123456789abcdef")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 5, cfg.Lockout.Threshold)
	assert.Equal(t, 15*time.Minute, cfg.Lockout.BaseDuration)
	assert.Equal(t, 24*time.Hour, cfg.Lockout.MaxDuration)
	assert.Equal(t, time.Hour, cfg.Sessions.BasicTTL)
	assert.Equal(t, 15*time.Minute, cfg.Sessions.ElevatedTTL)
	assert.Equal(t, 2*time.Minute, cfg.Challenge.TTL)
	assert.Equal(t, 5*time.Minute, cfg.SweepInterval)
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aegis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":8443"
master_secret: "0123456789abcdef0123456789abcdef"
lockout:
  threshold: 3
sessions:
  basic_ttl: 30m
  elevated_ttl: 5m
challenge:
  ttl: 2m
`), 0o600))

	t.Setenv("AEGIS_LOCKOUT_THRESHOLD", "7")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":8443", cfg.ListenAddr)
	assert.Equal(t, 7, cfg.Lockout.Threshold)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.BasicTTL)
}

func TestLoadRejectsMissingSecret(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master_secret")
}

func TestValidateRejectsShortSecret(t *testing.T) {
	cfg := &config.Config{MasterSecret: "short"}
	assert.Error(t, config.Validate(cfg))
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cfg := &config.Config{MasterSecret: "0123456789abcdef0123456789abcdef"}
	cfg.Lockout.Threshold = 0
	assert.Error(t, config.Validate(cfg))
}

func TestDecodeSecretVariants(t *testing.T) {
	raw := []byte("0123456789abcdefghijklmnopqrstuv")

	got, err := config.DecodeSecret(hex.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	got, err = config.DecodeSecret(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	// Not valid hex or base64, taken as raw bytes.
	plain := "super-secret-master-key!"
	got, err = config.DecodeSecret(plain)
	require.NoError(t, err)
	assert.Equal(t, []byte(plain), got)

	_, err = config.DecodeSecret("tiny")
	assert.Error(t, err)
}
