// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/actorlink/lib/service"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development against a mock backend.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Well-known service names.
const (
	ServiceMining = "mining"
	ServiceLedger = "ledger"
	ServiceSiwe   = "siwe"
)

// Contracts a service can speak.
const (
	ContractMining = "mining"
	ContractICRC   = "icrc"
	ContractSiwe   = "siwe"
)

// wellKnown pairs each contract with the service name that implies it
// when a service leaves contract unset.
var wellKnown = map[string]string{
	ContractMining: ServiceMining,
	ContractICRC:   ServiceLedger,
	ContractSiwe:   ServiceSiwe,
}

// Config is the master configuration for actorlink.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Network selects the column of canister_ids.json to read, e.g.
	// "local" or "ic".
	Network string `yaml:"network"`

	// CanisterIDsFile is an optional JSONC file mapping
	// canister name -> network -> canister id, as dfx writes it.
	// Explicit canister_id entries in Services take precedence over it.
	CanisterIDsFile string `yaml:"canister_ids_file"`

	// Services maps a service name to where it lives.
	Services map[string]ServiceConfig `yaml:"services"`

	// Identity configures the caller identity.
	Identity IdentityConfig `yaml:"identity"`

	// Transport configures remote calls.
	Transport TransportConfig `yaml:"transport"`

	// Decode configures tolerant decoding.
	Decode DecodeConfig `yaml:"decode"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Network         string                   `yaml:"network,omitempty"`
	CanisterIDsFile string                   `yaml:"canister_ids_file,omitempty"`
	Services        map[string]ServiceConfig `yaml:"services,omitempty"`
	Transport       *TransportConfig         `yaml:"transport,omitempty"`
}

// ServiceConfig locates one remote service.
type ServiceConfig struct {
	// Endpoint is where the service is reached:
	// unix:/path/to.sock, http://host:port or https://host.
	Endpoint string `yaml:"endpoint"`

	// CanisterID is the textual principal of the service. Empty means
	// look it up in the canister ids file.
	CanisterID string `yaml:"canister_id"`

	// Contract is the interface the service speaks: mining, icrc or
	// siwe. It may be left empty only for the services named mining,
	// ledger and siwe.
	Contract string `yaml:"contract"`

	// Canister is the entry to read from the canister ids file, e.g.
	// "drift_token".
	// Default: the service name
	Canister string `yaml:"canister"`
}

// IdentityConfig configures the caller identity.
type IdentityConfig struct {
	// File is an age-encrypted identity seed. Empty means anonymous.
	File string `yaml:"file"`

	// PassphraseEnv names the environment variable holding the
	// identity file passphrase.
	// Default: ACTORLINK_IDENTITY_PASSPHRASE
	PassphraseEnv string `yaml:"passphrase_env"`
}

// TransportConfig configures remote calls.
type TransportConfig struct {
	// Timeout bounds each HTTP call.
	// Default: 30s
	Timeout string `yaml:"timeout"`

	// TokenTTL is the lifetime of each call token.
	// Default: 2m
	TokenTTL string `yaml:"token_ttl"`
}

// DecodeConfig configures tolerant decoding.
type DecodeConfig struct {
	// NumericOrder is the order in which counter encodings are tried
	// for drifting mining replies. Values: nat, int, text.
	// Default: [nat, int, text]
	NumericOrder []string `yaml:"numeric_order"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	return &Config{
		Environment: Development,
		Network:     "local",
		Services:    map[string]ServiceConfig{},
		Identity: IdentityConfig{
			PassphraseEnv: "ACTORLINK_IDENTITY_PASSPHRASE",
		},
		Transport: TransportConfig{
			Timeout:  "30s",
			TokenTTL: "2m",
		},
		Decode: DecodeConfig{
			NumericOrder: []string{"nat", "int", "text"},
		},
	}
}

// Load loads configuration from the ACTORLINK_CONFIG environment
// variable.
//
// There are no fallbacks or defaults - if ACTORLINK_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("ACTORLINK_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("ACTORLINK_CONFIG environment variable not set; " +
			"set it to the path of your actorlink.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values. The only expansion performed is ${HOME} and
// ${VAR:-default} patterns in paths and endpoints.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()

	cfg.expandVariables()

	// A relative canister ids file is relative to the config file.
	if cfg.CanisterIDsFile != "" && !filepath.IsAbs(cfg.CanisterIDsFile) {
		cfg.CanisterIDsFile = filepath.Join(filepath.Dir(path), cfg.CanisterIDsFile)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Network != "" {
		c.Network = overrides.Network
	}
	if overrides.CanisterIDsFile != "" {
		c.CanisterIDsFile = overrides.CanisterIDsFile
	}
	if c.Services == nil {
		c.Services = map[string]ServiceConfig{}
	}
	for name, override := range overrides.Services {
		serviceConfig := c.Services[name]
		if override.Endpoint != "" {
			serviceConfig.Endpoint = override.Endpoint
		}
		if override.CanisterID != "" {
			serviceConfig.CanisterID = override.CanisterID
		}
		if override.Contract != "" {
			serviceConfig.Contract = override.Contract
		}
		if override.Canister != "" {
			serviceConfig.Canister = override.Canister
		}
		c.Services[name] = serviceConfig
	}
	if overrides.Transport != nil {
		if overrides.Transport.Timeout != "" {
			c.Transport.Timeout = overrides.Transport.Timeout
		}
		if overrides.Transport.TokenTTL != "" {
			c.Transport.TokenTTL = overrides.Transport.TokenTTL
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.CanisterIDsFile = expandVars(c.CanisterIDsFile, vars)
	c.Identity.File = expandVars(c.Identity.File, vars)
	for name, serviceConfig := range c.Services {
		serviceConfig.Endpoint = expandVars(serviceConfig.Endpoint, vars)
		c.Services[name] = serviceConfig
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if len(c.Services) == 0 {
		errs = append(errs, errors.New("services: at least one service is required"))
	}
	for _, name := range c.ServiceNames() {
		endpoint := c.Services[name].Endpoint
		if endpoint == "" {
			errs = append(errs, fmt.Errorf("services.%s.endpoint is required", name))
		} else if _, _, err := service.ParseEndpoint(endpoint); err != nil {
			errs = append(errs, fmt.Errorf("services.%s.endpoint: %w", name, err))
		}
		switch contract := c.ContractOf(name); contract {
		case "":
			errs = append(errs, fmt.Errorf("services.%s.contract is required (mining, icrc or siwe)", name))
		case ContractMining, ContractICRC, ContractSiwe:
		default:
			errs = append(errs, fmt.Errorf("services.%s.contract: unknown contract %q (want mining, icrc or siwe)", name, contract))
		}
	}

	if c.CanisterIDsFile != "" && c.Network == "" {
		errs = append(errs, errors.New("network is required with canister_ids_file"))
	}

	if _, err := c.Timeout(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.TokenTTL(); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Decode.NumericOrder))
	for _, encoding := range c.Decode.NumericOrder {
		if !contains([]string{"nat", "int", "text"}, encoding) {
			errs = append(errs, fmt.Errorf("decode.numeric_order: unknown encoding %q (want nat, int or text)", encoding))
		}
		if seen[encoding] {
			errs = append(errs, fmt.Errorf("decode.numeric_order: %q listed twice", encoding))
		}
		seen[encoding] = true
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Timeout parses Transport.Timeout.
func (c *Config) Timeout() (time.Duration, error) {
	return positiveDuration("transport.timeout", c.Transport.Timeout)
}

// TokenTTL parses Transport.TokenTTL.
func (c *Config) TokenTTL() (time.Duration, error) {
	return positiveDuration("transport.token_ttl", c.Transport.TokenTTL)
}

func positiveDuration(field, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return duration, nil
}

// ServiceNames returns the configured service names, sorted.
func (c *Config) ServiceNames() []string {
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContractOf returns the contract of the service called name. An unset
// contract on a well-known name resolves to that name's contract.
func (c *Config) ContractOf(name string) string {
	if contract := c.Services[name].Contract; contract != "" {
		return contract
	}
	for contract, serviceName := range wellKnown {
		if serviceName == name {
			return contract
		}
	}
	return ""
}

// ServicesWithContract returns the names of the services speaking
// contract, sorted.
func (c *Config) ServicesWithContract(contract string) []string {
	var names []string
	for _, name := range c.ServiceNames() {
		if c.ContractOf(name) == contract {
			names = append(names, name)
		}
	}
	return names
}

// DefaultService returns the service commands use for contract when
// none is named: the well-known name if it speaks contract, otherwise
// the first such service in sorted order.
func (c *Config) DefaultService(contract string) (string, error) {
	names := c.ServicesWithContract(contract)
	if len(names) == 0 {
		return "", fmt.Errorf("no %s service configured", contract)
	}
	for _, name := range names {
		if name == wellKnown[contract] {
			return name, nil
		}
	}
	return names[0], nil
}

// CanisterIDs maps canister name -> network name -> canister id.
type CanisterIDs map[string]map[string]string

// LoadCanisterIDs reads a canister ids file. The file is JSON with
// comments and trailing commas allowed.
func LoadCanisterIDs(path string) (CanisterIDs, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	stripped := jsonc.ToJSON(data)

	var ids CanisterIDs
	if err := json.Unmarshal(stripped, &ids); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ids, nil
}

// Lookup returns the canister id of canister on network.
func (ids CanisterIDs) Lookup(canister, network string) (string, bool) {
	id, ok := ids[canister][network]
	return id, ok && id != ""
}

// ResolvedService is a service with its canister id settled.
type ResolvedService struct {
	Name       string
	Contract   string
	Endpoint   string
	CanisterID string
}

// ResolveServices returns every configured service with its canister
// id, taking explicit canister_id entries first and the canister ids
// file second, under the service's canister name. A service whose id
// is found nowhere is returned with an empty CanisterID, which
// descriptors treat as a placeholder.
func (c *Config) ResolveServices() ([]ResolvedService, error) {
	var ids CanisterIDs
	if c.CanisterIDsFile != "" {
		loaded, err := LoadCanisterIDs(c.CanisterIDsFile)
		if err != nil {
			return nil, fmt.Errorf("loading canister ids: %w", err)
		}
		ids = loaded
	}

	resolved := make([]ResolvedService, 0, len(c.Services))
	for _, name := range c.ServiceNames() {
		serviceConfig := c.Services[name]
		canisterID := serviceConfig.CanisterID
		if canisterID == "" {
			canister := serviceConfig.Canister
			if canister == "" {
				canister = name
			}
			canisterID, _ = ids.Lookup(canister, c.Network)
		}
		resolved = append(resolved, ResolvedService{
			Name:       name,
			Contract:   c.ContractOf(name),
			Endpoint:   serviceConfig.Endpoint,
			CanisterID: canisterID,
		})
	}
	return resolved, nil
}

// Passphrase returns the identity file passphrase from the configured
// environment variable.
func (c *Config) Passphrase() string {
	if c.Identity.PassphraseEnv == "" {
		return ""
	}
	return os.Getenv(c.Identity.PassphraseEnv)
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
