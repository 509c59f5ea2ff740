package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Endpoint describes how to reach one upstream REST API.
type Endpoint struct {
	BaseURL  string        `mapstructure:"base_url"`
	TokenURL string        `mapstructure:"token_url"`
	Scopes   []string      `mapstructure:"scopes"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// SyncConfig bounds a single synchronization run.
type SyncConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	FetchWindow time.Duration `mapstructure:"fetch_window"`
	ClaimTTL    time.Duration `mapstructure:"claim_ttl"`
	LockTTL     time.Duration `mapstructure:"lock_ttl"`
}

// IntegrationsConfig is read-only process state: upstream endpoints and sync bounds.
type IntegrationsConfig struct {
	Uber      Endpoint   `mapstructure:"uber"`
	Rappi     Endpoint   `mapstructure:"rappi"`
	PedidosYa Endpoint   `mapstructure:"pedidosya"`
	Loyverse  Endpoint   `mapstructure:"loyverse"`
	Sync      SyncConfig `mapstructure:"sync"`
}

// Endpoint returns the endpoint configured for provider.
func (c IntegrationsConfig) Endpoint(provider string) (Endpoint, bool) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "uber":
		return c.Uber, true
	case "rappi":
		return c.Rappi, true
	case "pedidosya":
		return c.PedidosYa, true
	case "loyverse":
		return c.Loyverse, true
	default:
		return Endpoint{}, false
	}
}

func DefaultIntegrationsConfig() IntegrationsConfig {
	return IntegrationsConfig{
		Uber: Endpoint{
			BaseURL:  "https://api.uber.com/v1/eats",
			TokenURL: "https://login.uber.com/oauth/v2/token",
			Scopes:   []string{"eats.store"},
			Timeout:  30 * time.Second,
		},
		Rappi: Endpoint{
			BaseURL: "https://services.grability.rappi.com/api",
			Timeout: 30 * time.Second,
		},
		PedidosYa: Endpoint{
			BaseURL:  "https://api.pedidosya.com/v1",
			TokenURL: "https://auth.pedidosya.com/oauth/token",
			Scopes:   []string{"restaurants:read", "orders:read", "orders:write"},
			Timeout:  30 * time.Second,
		},
		Loyverse: Endpoint{
			BaseURL: "https://api.loyverse.com/v1.0",
			Timeout: 30 * time.Second,
		},
		Sync: SyncConfig{
			BatchSize:   50,
			FetchWindow: 24 * time.Hour,
			ClaimTTL:    5 * time.Minute,
			LockTTL:     2 * time.Minute,
		},
	}
}

// LoadIntegrations reads integrations.yml once at startup. Missing files fall back
// to defaults; ORDERSYNC_* environment variables override individual keys.
func LoadIntegrations() (IntegrationsConfig, error) {
	v := viper.New()

	v.SetConfigName("integrations")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/ordersync")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ORDERSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultIntegrationsConfig()
	setEndpointDefaults(v, "uber", defaults.Uber)
	setEndpointDefaults(v, "rappi", defaults.Rappi)
	setEndpointDefaults(v, "pedidosya", defaults.PedidosYa)
	setEndpointDefaults(v, "loyverse", defaults.Loyverse)
	v.SetDefault("sync.batch_size", defaults.Sync.BatchSize)
	v.SetDefault("sync.fetch_window", defaults.Sync.FetchWindow)
	v.SetDefault("sync.claim_ttl", defaults.Sync.ClaimTTL)
	v.SetDefault("sync.lock_ttl", defaults.Sync.LockTTL)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return IntegrationsConfig{}, err
		}
	}

	var cfg IntegrationsConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return IntegrationsConfig{}, err
	}
	if err := validateIntegrationsConfig(cfg); err != nil {
		return IntegrationsConfig{}, err
	}
	return cfg, nil
}

func setEndpointDefaults(v *viper.Viper, key string, e Endpoint) {
	v.SetDefault(key+".base_url", e.BaseURL)
	v.SetDefault(key+".token_url", e.TokenURL)
	v.SetDefault(key+".scopes", e.Scopes)
	v.SetDefault(key+".timeout", e.Timeout)
}

func validateIntegrationsConfig(cfg IntegrationsConfig) error {
	for name, e := range map[string]Endpoint{
		"uber":      cfg.Uber,
		"rappi":     cfg.Rappi,
		"pedidosya": cfg.PedidosYa,
		"loyverse":  cfg.Loyverse,
	} {
		if strings.TrimSpace(e.BaseURL) == "" {
			return fmt.Errorf("%s.base_url cannot be empty", name)
		}
		if e.Timeout <= 0 {
			return fmt.Errorf("%s.timeout must be positive", name)
		}
	}
	if cfg.Sync.BatchSize <= 0 {
		return errors.New("sync.batch_size must be positive")
	}
	if cfg.Sync.FetchWindow <= 0 {
		return errors.New("sync.fetch_window must be positive")
	}
	return nil
}
