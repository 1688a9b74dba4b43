// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Network != "local" {
		t.Errorf("expected network=local, got %s", cfg.Network)
	}
	if got := strings.Join(cfg.Decode.NumericOrder, ","); got != "nat,int,text" {
		t.Errorf("expected numeric_order=nat,int,text, got %s", got)
	}
	if timeout, err := cfg.Timeout(); err != nil || timeout != 30*time.Second {
		t.Errorf("expected timeout=30s, got %v (%v)", timeout, err)
	}
}

func TestLoad_RequiresActorlinkConfig(t *testing.T) {
	t.Setenv("ACTORLINK_CONFIG", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when ACTORLINK_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "ACTORLINK_CONFIG environment variable not set") {
		t.Errorf("unexpected error message: %q", err.Error())
	}
}

func TestLoad_WithActorlinkConfig(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "actorlink.yaml", `
environment: staging
network: ic
services:
  mining:
    endpoint: https://icp-api.io
    canister_id: rrkah-fqaaa-aaaaa-aaaaq-cai
`)
	t.Setenv("ACTORLINK_CONFIG", configPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Services[ServiceMining].Endpoint != "https://icp-api.io" {
		t.Errorf("expected mining endpoint, got %+v", cfg.Services[ServiceMining])
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	configPath := writeFile(t, dir, "actorlink.yaml", `
environment: development
identity:
  file: ${HOME}/.config/actorlink/identity.age
transport:
  timeout: 5s
  token_ttl: 1m
decode:
  numeric_order: [text, nat]
services:
  ledger:
    endpoint: unix:${ACTORLINK_TEST_RUN:-/run/actorlink}/ledger.sock
`)
	t.Setenv("HOME", "/home/miner")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Identity.File != "/home/miner/.config/actorlink/identity.age" {
		t.Errorf("identity file not expanded: %s", cfg.Identity.File)
	}
	if cfg.Services[ServiceLedger].Endpoint != "unix:/run/actorlink/ledger.sock" {
		t.Errorf("endpoint default not expanded: %s", cfg.Services[ServiceLedger].Endpoint)
	}
	if got := strings.Join(cfg.Decode.NumericOrder, ","); got != "text,nat" {
		t.Errorf("numeric_order: got %s", got)
	}
	if ttl, err := cfg.TokenTTL(); err != nil || ttl != time.Minute {
		t.Errorf("token_ttl: got %v (%v)", ttl, err)
	}
	if cfg.Identity.PassphraseEnv != "ACTORLINK_IDENTITY_PASSPHRASE" {
		t.Errorf("passphrase_env default lost: %s", cfg.Identity.PassphraseEnv)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "actorlink.yaml", `
environment: production
network: local
services:
  mining:
    endpoint: unix:/run/actorlink/mock.sock
production:
  network: ic
  transport:
    timeout: 10s
  services:
    mining:
      endpoint: https://icp-api.io
      canister_id: rrkah-fqaaa-aaaaa-aaaaq-cai
    siwe:
      endpoint: https://icp-api.io
development:
  network: never-applied
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Network != "ic" {
		t.Errorf("expected network=ic, got %s", cfg.Network)
	}
	if cfg.Transport.Timeout != "10s" {
		t.Errorf("expected timeout=10s, got %s", cfg.Transport.Timeout)
	}
	if cfg.Transport.TokenTTL != "2m" {
		t.Errorf("token_ttl should keep its default, got %s", cfg.Transport.TokenTTL)
	}
	mining := cfg.Services[ServiceMining]
	if mining.Endpoint != "https://icp-api.io" || mining.CanisterID != "rrkah-fqaaa-aaaaa-aaaaq-cai" {
		t.Errorf("mining override not applied: %+v", mining)
	}
	if cfg.Services[ServiceSiwe].Endpoint != "https://icp-api.io" {
		t.Errorf("override did not add siwe: %+v", cfg.Services)
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	configPath := writeFile(t, t.TempDir(), "actorlink.yaml", `
network: local
services:
  mining:
    endpoint: unix:/run/actorlink/mining.sock
`)
	t.Setenv("NETWORK", "ic")
	t.Setenv("ACTORLINK_NETWORK", "ic")

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Network != "local" {
		t.Errorf("environment variable overrode network: %s", cfg.Network)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("ACTORLINK_TEST_SET", "/from/env")

	tests := []struct {
		input string
		vars  map[string]string
		want  string
	}{
		{"${HOME}/x", map[string]string{"HOME": "/home/u"}, "/home/u/x"},
		{"${ACTORLINK_TEST_SET}/y", nil, "/from/env/y"},
		{"${ACTORLINK_TEST_UNSET:-/fallback}/z", nil, "/fallback/z"},
		{"${ACTORLINK_TEST_UNSET}", nil, ""},
		{"plain", nil, "plain"},
	}
	for _, test := range tests {
		if got := expandVars(test.input, test.vars); got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Services[ServiceMining] = ServiceConfig{Endpoint: "unix:/run/actorlink/mining.sock"}
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad environment", func(c *Config) { c.Environment = "qa" }, "invalid environment"},
		{"no services", func(c *Config) { c.Services = nil }, "at least one service"},
		{"missing endpoint", func(c *Config) { c.Services[ServiceLedger] = ServiceConfig{} }, "services.ledger.endpoint"},
		{"bad timeout", func(c *Config) { c.Transport.Timeout = "soon" }, "transport.timeout"},
		{"zero ttl", func(c *Config) { c.Transport.TokenTTL = "0s" }, "transport.token_ttl must be positive"},
		{"unknown encoding", func(c *Config) { c.Decode.NumericOrder = []string{"float"} }, "unknown encoding"},
		{"duplicate encoding", func(c *Config) { c.Decode.NumericOrder = []string{"nat", "nat"} }, "listed twice"},
		{"ids file without network", func(c *Config) { c.CanisterIDsFile = "ids.json"; c.Network = "" }, "network is required"},
		{"endpoint without scheme", func(c *Config) {
			c.Services[ServiceMining] = ServiceConfig{Endpoint: "localhost:4943"}
		}, "services.mining.endpoint"},
		{"relative socket path", func(c *Config) {
			c.Services[ServiceMining] = ServiceConfig{Endpoint: "unix:run/mining.sock"}
		}, "services.mining.endpoint"},
		{"extra ledger", func(c *Config) {
			c.Services["ak69"] = ServiceConfig{Endpoint: "https://icp-api.io", Contract: ContractICRC}
		}, ""},
		{"contract required off well-known names", func(c *Config) {
			c.Services["faucet"] = ServiceConfig{Endpoint: "https://icp-api.io"}
		}, "services.faucet.contract is required"},
		{"unknown contract", func(c *Config) {
			c.Services["faucet"] = ServiceConfig{Endpoint: "https://icp-api.io", Contract: "erc20"}
		}, "unknown contract"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := valid()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("Validate error = %v, want it to mention %q", err, test.wantErr)
			}
		})
	}
}

func TestResolveServices(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "canister_ids.json", `{
  // Deployed ids per network.
  "mining": {"local": "rrkah-fqaaa-aaaaa-aaaaq-cai", "ic": "aaaaa-aa"},
  "ledger": {"local": "ryjl3-tyaaa-aaaaa-aaaba-cai",},
}`)
	configPath := writeFile(t, dir, "actorlink.yaml", `
network: local
canister_ids_file: canister_ids.json
services:
  mining:
    endpoint: unix:/run/actorlink/mock.sock
  ledger:
    endpoint: unix:/run/actorlink/mock.sock
    canister_id: r7inp-6aaaa-aaaaa-aaabq-cai
  siwe:
    endpoint: unix:/run/actorlink/mock.sock
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.CanisterIDsFile != filepath.Join(dir, "canister_ids.json") {
		t.Errorf("canister ids file not resolved relative to the config: %s", cfg.CanisterIDsFile)
	}

	services, err := cfg.ResolveServices()
	if err != nil {
		t.Fatalf("ResolveServices: %v", err)
	}
	want := map[string]string{
		ServiceLedger: "r7inp-6aaaa-aaaaa-aaabq-cai",
		ServiceMining: "rrkah-fqaaa-aaaaa-aaaaq-cai",
		ServiceSiwe:   "",
	}
	if len(services) != len(want) {
		t.Fatalf("got %d services, want %d", len(services), len(want))
	}
	for _, service := range services {
		if service.CanisterID != want[service.Name] {
			t.Errorf("%s canister id: got %q, want %q", service.Name, service.CanisterID, want[service.Name])
		}
	}
	if services[0].Name != ServiceLedger {
		t.Errorf("services are not sorted: first is %s", services[0].Name)
	}
}

func TestResolveServices_BadIDsFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "canister_ids.json", `{"mining": [`)
	cfg := Default()
	cfg.CanisterIDsFile = filepath.Join(dir, "canister_ids.json")
	cfg.Services[ServiceMining] = ServiceConfig{Endpoint: "unix:/run/actorlink/mock.sock"}
	if _, err := cfg.ResolveServices(); err == nil {
		t.Fatal("expected error for malformed canister ids file")
	}
}

func TestDfxCanisterNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "canister_ids.json", `{
  "drift_miner":      {"ic": "rrkah-fqaaa-aaaaa-aaaaq-cai"},
  "drift_token":      {"ic": "ryjl3-tyaaa-aaaaa-aaaba-cai"},
  "ak69_token":       {"ic": "rkp4c-7iaaa-aaaaa-aaaca-cai"},
  "ic_siwe_provider": {"ic": "r7inp-6aaaa-aaaaa-aaabq-cai"},
}`)
	configPath := writeFile(t, dir, "actorlink.yaml", `
network: ic
canister_ids_file: canister_ids.json
services:
  mining:
    endpoint: https://icp-api.io
    canister: drift_miner
  ledger:
    endpoint: https://icp-api.io
    canister: drift_token
  ak69:
    endpoint: https://icp-api.io
    contract: icrc
    canister: ak69_token
  siwe:
    endpoint: https://icp-api.io
    canister: ic_siwe_provider
`)
	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	services, err := cfg.ResolveServices()
	if err != nil {
		t.Fatalf("ResolveServices: %v", err)
	}
	want := map[string]ResolvedService{
		"ak69":        {Name: "ak69", Contract: ContractICRC, Endpoint: "https://icp-api.io", CanisterID: "rkp4c-7iaaa-aaaaa-aaaca-cai"},
		ServiceLedger: {Name: ServiceLedger, Contract: ContractICRC, Endpoint: "https://icp-api.io", CanisterID: "ryjl3-tyaaa-aaaaa-aaaba-cai"},
		ServiceMining: {Name: ServiceMining, Contract: ContractMining, Endpoint: "https://icp-api.io", CanisterID: "rrkah-fqaaa-aaaaa-aaaaq-cai"},
		ServiceSiwe:   {Name: ServiceSiwe, Contract: ContractSiwe, Endpoint: "https://icp-api.io", CanisterID: "r7inp-6aaaa-aaaaa-aaabq-cai"},
	}
	if len(services) != len(want) {
		t.Fatalf("got %d services, want %d", len(services), len(want))
	}
	for _, service := range services {
		if service != want[service.Name] {
			t.Errorf("%s: got %+v, want %+v", service.Name, service, want[service.Name])
		}
	}

	if got := cfg.ServicesWithContract(ContractICRC); strings.Join(got, ",") != "ak69,ledger" {
		t.Errorf("ServicesWithContract(icrc) = %v, want [ak69 ledger]", got)
	}
	if name, err := cfg.DefaultService(ContractICRC); err != nil || name != ServiceLedger {
		t.Errorf("DefaultService(icrc) = %q, %v, want ledger", name, err)
	}
}

func TestDefaultService(t *testing.T) {
	cfg := Default()
	cfg.Services["tokens"] = ServiceConfig{Endpoint: "https://icp-api.io", Contract: ContractICRC}
	cfg.Services["rewards"] = ServiceConfig{Endpoint: "https://icp-api.io", Contract: ContractICRC}

	if name, err := cfg.DefaultService(ContractICRC); err != nil || name != "rewards" {
		t.Errorf("DefaultService(icrc) = %q, %v, want the first name in order", name, err)
	}
	if _, err := cfg.DefaultService(ContractMining); err == nil || !strings.Contains(err.Error(), "no mining service") {
		t.Errorf("DefaultService(mining) error = %v, want no mining service", err)
	}
}
