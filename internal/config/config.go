// Package config loads and validates the scoutnet2airkey.yaml file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jschlyter/scoutnet2airkey/pkg/constants"
	"github.com/jschlyter/scoutnet2airkey/pkg/errors"
)

// Defaults applied when the configuration file leaves a value unset.
const (
	DefaultCountryPrefix   = "+46"
	DefaultRevokeThreshold = 0.25
	DefaultWorkers         = 4
	DefaultSnapshotBackend = "file"
	DefaultSnapshotDir     = "."
)

// ScoutnetConfig holds the Scoutnet API settings.
type ScoutnetConfig struct {
	APIEndpoint   string `yaml:"api_endpoint"`
	APIID         string `yaml:"api_id"`
	APIKey        string `yaml:"api_key"`
	CountryPrefix string `yaml:"country_prefix"`
}

// AirkeyConfig holds the Airkey API settings, including which Scoutnet
// roles grant a key.
type AirkeyConfig struct {
	APIEndpoint  string   `yaml:"api_endpoint"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	TokenURL     string   `yaml:"token_url"`
	Scopes       []string `yaml:"scopes"`
	Roles        []string `yaml:"roles"`
}

// SyncConfig tunes the reconciliation pass.
type SyncConfig struct {
	// RevokeThreshold is the maximum fraction of observed credentials one
	// pass may revoke before all revokes are skipped. 1.0 disables the guard.
	RevokeThreshold *float64 `yaml:"revoke_threshold"`
	Workers         int      `yaml:"workers"`
}

// SnapshotConfig selects where raw memberlist dumps are kept.
type SnapshotConfig struct {
	Backend   string `yaml:"backend"` // file or nats
	Directory string `yaml:"directory"`
	NATSURL   string `yaml:"nats_url"`
}

// Config is the full configuration, passed explicitly to whoever needs it.
type Config struct {
	Scoutnet  ScoutnetConfig `yaml:"scoutnet"`
	Airkey    AirkeyConfig   `yaml:"airkey"`
	Sync      SyncConfig     `yaml:"sync"`
	Snapshots SnapshotConfig `yaml:"snapshots"`
}

// RevokeThreshold returns the configured threshold or the default.
func (c *Config) RevokeThreshold() float64 {
	if c.Sync.RevokeThreshold == nil {
		return DefaultRevokeThreshold
	}
	return *c.Sync.RevokeThreshold
}

// applyDefaults fills unset values and environment overrides for secrets.
func (c *Config) applyDefaults() {
	if c.Scoutnet.CountryPrefix == "" {
		c.Scoutnet.CountryPrefix = DefaultCountryPrefix
	}
	if c.Sync.Workers < 1 {
		c.Sync.Workers = DefaultWorkers
	}
	if c.Snapshots.Backend == "" {
		c.Snapshots.Backend = DefaultSnapshotBackend
	}
	if c.Snapshots.Directory == "" {
		c.Snapshots.Directory = DefaultSnapshotDir
	}

	if apiKey := os.Getenv(constants.ScoutnetAPIKeyEnvKey); apiKey != "" {
		c.Scoutnet.APIKey = apiKey
	}
	if clientSecret := os.Getenv(constants.AirkeyClientSecretEnvKey); clientSecret != "" {
		c.Airkey.ClientSecret = clientSecret
	}
}

// Validate checks that everything needed before the first external call
// is present.
func (c *Config) Validate() error {
	if c.Scoutnet.APIEndpoint == "" {
		return errors.NewValidation("scoutnet.api_endpoint is required")
	}
	if c.Scoutnet.APIID == "" || c.Scoutnet.APIKey == "" {
		return errors.NewValidation("scoutnet.api_id and scoutnet.api_key are required")
	}
	if c.Airkey.APIEndpoint == "" {
		return errors.NewValidation("airkey.api_endpoint is required")
	}
	if c.Airkey.ClientID == "" || c.Airkey.ClientSecret == "" || c.Airkey.TokenURL == "" {
		return errors.NewValidation("airkey.client_id, airkey.client_secret and airkey.token_url are required")
	}
	if len(c.Airkey.Roles) == 0 {
		return errors.NewValidation("airkey.roles must list at least one key-granting role")
	}

	if threshold := c.RevokeThreshold(); threshold < 0 || threshold > 1 {
		return errors.NewValidation(fmt.Sprintf("sync.revoke_threshold must be within [0,1], got %g", threshold))
	}

	switch c.Snapshots.Backend {
	case "file":
	case "nats":
		if c.Snapshots.NATSURL == "" {
			return errors.NewValidation("snapshots.nats_url is required for the nats backend")
		}
	default:
		return errors.NewValidation(fmt.Sprintf("unknown snapshot backend %q", c.Snapshots.Backend))
	}

	return nil
}

// Load reads, defaults and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("failed to read configuration file %s", path), err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.NewValidation(fmt.Sprintf("failed to parse configuration file %s", path), err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
