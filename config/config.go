package config

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultConfigPath = "config/aegis.yaml"

// Config is the process configuration, read from YAML with
// environment overrides.
type Config struct {
	ListenAddr    string        `yaml:"listen_addr" env:"AEGIS_LISTEN_ADDR" env-default:":9000"`
	RedisURL      string        `yaml:"redis_url" env:"AEGIS_REDIS_URL"`
	MasterSecret  string        `yaml:"master_secret" env:"AEGIS_MASTER_SECRET"`
	SigningKeyPEM string        `yaml:"signing_key_pem" env:"AEGIS_SIGNING_KEY_PEM"`
	SweepInterval time.Duration `yaml:"sweep_interval" env:"AEGIS_SWEEP_INTERVAL" env-default:"5m"`

	Lockout   LockoutConfig   `yaml:"lockout"`
	Sessions  SessionConfig   `yaml:"sessions"`
	Challenge ChallengeConfig `yaml:"challenge"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// LockoutConfig tunes the lockout policy.
type LockoutConfig struct {
	Threshold    int           `yaml:"threshold" env:"AEGIS_LOCKOUT_THRESHOLD" env-default:"5"`
	BaseDuration time.Duration `yaml:"base_duration" env:"AEGIS_LOCKOUT_DURATION" env-default:"15m"`
	MaxDuration  time.Duration `yaml:"max_duration" env:"AEGIS_LOCKOUT_MAX" env-default:"24h"`
}

// SessionConfig tunes session lifetimes.
type SessionConfig struct {
	BasicTTL    time.Duration `yaml:"basic_ttl" env:"AEGIS_SESSION_BASIC_TTL" env-default:"1h"`
	ElevatedTTL time.Duration `yaml:"elevated_ttl" env:"AEGIS_SESSION_ELEVATED_TTL" env-default:"15m"`
}

// ChallengeConfig tunes the challenge registry.
type ChallengeConfig struct {
	TTL time.Duration `yaml:"ttl" env:"AEGIS_CHALLENGE_TTL" env-default:"2m"`
}

// BootstrapConfig optionally provisions one user at startup. Intended
// for first-run setups; production provisioning is external.
type BootstrapConfig struct {
	Username string `yaml:"username" env:"AEGIS_BOOTSTRAP_USERNAME"`
	Password string `yaml:"password" env:"AEGIS_BOOTSTRAP_PASSWORD"`
}

// Load reads the config file if present, applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}
	cfg := &Config{}
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot start with.
// These are the only fatal conditions; everything past startup is a
// recoverable result value.
func Validate(cfg *Config) error {
	if cfg.MasterSecret == "" {
		return errors.New("master_secret is required")
	}
	secret, err := DecodeSecret(cfg.MasterSecret)
	if err != nil {
		return fmt.Errorf("master_secret: %w", err)
	}
	if len(secret) < 16 {
		return errors.New("master_secret must be at least 16 bytes")
	}
	if cfg.Lockout.Threshold < 1 {
		return errors.New("lockout.threshold must be positive")
	}
	if cfg.Sessions.BasicTTL <= 0 || cfg.Sessions.ElevatedTTL <= 0 {
		return errors.New("session TTLs must be positive")
	}
	if cfg.Challenge.TTL <= 0 {
		return errors.New("challenge.ttl must be positive")
	}
	return nil
}

// DecodeSecret accepts raw, hex, or base64 encoded secrets.
func DecodeSecret(s string) ([]byte, error) {
	if b, err := hex.DecodeString(s); err == nil && len(b) >= 16 {
		return b, nil
	}
	if b, err := base64.StdEncoding.DecodeString(s); err == nil && len(b) >= 16 {
		return b, nil
	}
	if len(s) >= 16 {
		return []byte(s), nil
	}
	return nil, errors.New("secret too short or undecodable")
}
