// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/actorlink/internal/mockbackend"
	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/config"
	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/dashboard"
	"github.com/bureau-foundation/actorlink/lib/ledger"
	"github.com/bureau-foundation/actorlink/lib/mining"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/service"
	"github.com/bureau-foundation/actorlink/lib/testutil"
)

const testPassphraseEnv = "ACTORLINK_TEST_PASSPHRASE"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// startBackend serves a mock backend on a Unix socket for the
// duration of the test.
func startBackend(t *testing.T, encoding string) (*mockbackend.Backend, string) {
	t.Helper()
	backend, err := mockbackend.New(mockbackend.Config{Encoding: encoding, Logger: testLogger()})
	if err != nil {
		t.Fatalf("mockbackend.New: %v", err)
	}
	socketPath := filepath.Join(testutil.SocketDir(t), "backend.sock")
	server := service.NewSocketServer(socketPath, backend.Dispatcher(), testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		testutil.RequireReceive(t, done, 5*time.Second, "socket server shutdown")
	})
	testutil.RequireClosed(t, server.Ready(), 5*time.Second, "socket server ready")
	return backend, socketPath
}

// writeConfig writes a config naming every mock service at socketPath,
// with the AK69 ledger found under its dfx canister name, and an
// identity file. It returns the config path and the identity.
func writeConfig(t *testing.T, backend *mockbackend.Backend, socketPath string) (string, credential.Credential) {
	t.Helper()
	directory := t.TempDir()

	cred, err := credential.FromSeed(bytes.Repeat([]byte{0x42}, 32))
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	t.Setenv(testPassphraseEnv, "correct horse")
	if err := credential.SaveIdentityFile(filepath.Join(directory, "identity.age"), cred, "correct horse", 10); err != nil {
		t.Fatalf("SaveIdentityFile: %v", err)
	}

	ids := fmt.Sprintf(`{
  // deployed by the local replica
  "mining": {"local": %q},
  "ledger": {"local": %q},
  "ak69_token": {"local": %q},
}`, backend.MiningCanister(), backend.LedgerCanister(), backend.AK69Canister())
	if err := os.WriteFile(filepath.Join(directory, "canister_ids.json"), []byte(ids), 0o600); err != nil {
		t.Fatal(err)
	}

	endpoint := "unix:" + socketPath
	configText := fmt.Sprintf(`environment: development
network: local
canister_ids_file: canister_ids.json
services:
  mining:
    endpoint: %[1]s
  ledger:
    endpoint: %[1]s
  ak69:
    endpoint: %[1]s
    contract: icrc
    canister: ak69_token
  siwe:
    endpoint: %[1]s
    canister_id: %[2]s
identity:
  file: %[3]s
  passphrase_env: %[4]s
decode:
  numeric_order: [text, nat, int]
`, endpoint, backend.SiweCanister(), filepath.Join(directory, "identity.age"), testPassphraseEnv)
	configPath := filepath.Join(directory, "actorlink.yaml")
	if err := os.WriteFile(configPath, []byte(configText), 0o600); err != nil {
		t.Fatal(err)
	}
	return configPath, cred
}

func TestBuildRegistryFromConfig(t *testing.T) {
	backend, socketPath := startBackend(t, mockbackend.EncodingNat)
	configPath, _ := writeConfig(t, backend, socketPath)

	flags := clientFlags{ConfigPath: configPath}
	_, registry, err := flags.loadRegistry()
	if err != nil {
		t.Fatalf("loadRegistry: %v", err)
	}

	names := registry.Names()
	if strings.Join(names, ",") != "ak69,ledger,mining,siwe" {
		t.Fatalf("names = %v, want [ak69 ledger mining siwe]", names)
	}
	want := map[string]string{
		config.ServiceMining: backend.MiningCanister(),
		config.ServiceLedger: backend.LedgerCanister(),
		config.ServiceSiwe:   backend.SiweCanister(),
		"ak69":               backend.AK69Canister(),
	}
	for name, canisterID := range want {
		descriptor, err := registry.Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%s): %v", name, err)
		}
		if descriptor.CanisterID != canisterID {
			t.Errorf("%s canister = %q, want %q", name, descriptor.CanisterID, canisterID)
		}
		if descriptor.IsPlaceholder() {
			t.Errorf("%s is a placeholder", name)
		}
	}
}

func TestBuildRegistryRejectsUnknownService(t *testing.T) {
	cfg := config.Default()
	cfg.Services["faucet"] = config.ServiceConfig{Endpoint: "unix:/run/faucet.sock"}
	if _, err := buildRegistry(cfg); err == nil {
		t.Fatal("expected error for a service without a contract")
	}
}

func TestUnresolvedServiceIsNotConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.Services[config.ServiceMining] = config.ServiceConfig{Endpoint: "unix:/run/mining.sock"}
	registry, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	c := &client{registry: registry}
	_, err = c.canisterID(config.ServiceMining)
	var configErr *actor.ConfigurationError
	if !errors.As(err, &configErr) {
		t.Fatalf("canisterID error = %v, want *actor.ConfigurationError", err)
	}
}

func TestBuildRegistryByContract(t *testing.T) {
	cfg := config.Default()
	cfg.Services["dirt"] = config.ServiceConfig{Endpoint: "unix:/run/tokens.sock", CanisterID: mockbackend.DefaultLedgerCanister, Contract: config.ContractICRC}
	cfg.Services["rig"] = config.ServiceConfig{Endpoint: "unix:/run/mining.sock", CanisterID: mockbackend.DefaultMiningCanister, Contract: config.ContractMining}
	registry, err := buildRegistry(cfg)
	if err != nil {
		t.Fatalf("buildRegistry: %v", err)
	}
	dirt, err := registry.Lookup("dirt")
	if err != nil {
		t.Fatalf("Lookup(dirt): %v", err)
	}
	if _, ok := dirt.Contract.Method(ledger.MethodBalanceOf); !ok {
		t.Errorf("dirt does not carry the ledger contract")
	}
	rig, err := registry.Lookup("rig")
	if err != nil {
		t.Fatalf("Lookup(rig): %v", err)
	}
	if _, ok := rig.Variants[mining.MethodUserMinersDetailed]; !ok {
		t.Errorf("rig does not carry the mining decode variants")
	}
}

func TestServiceForChecksContract(t *testing.T) {
	cfg := config.Default()
	cfg.Services[config.ServiceMining] = config.ServiceConfig{Endpoint: "unix:/run/mining.sock"}
	cfg.Services["ak69"] = config.ServiceConfig{Endpoint: "unix:/run/tokens.sock", Contract: config.ContractICRC}
	c := &client{config: cfg}

	if name, err := c.serviceFor(config.ContractICRC, ""); err != nil || name != "ak69" {
		t.Errorf("serviceFor(icrc) = %q, %v, want ak69", name, err)
	}
	if _, err := c.serviceFor(config.ContractICRC, config.ServiceMining); err == nil || !strings.Contains(err.Error(), "speaks mining") {
		t.Errorf("serviceFor(icrc, mining) error = %v, want a contract mismatch", err)
	}
	if _, err := c.serviceFor(config.ContractICRC, "nope"); !errors.Is(err, actor.ErrUnknownService) {
		t.Errorf("serviceFor(icrc, nope) error = %v, want ErrUnknownService", err)
	}
}

func TestTokenBalancesAcrossLedgers(t *testing.T) {
	backend, socketPath := startBackend(t, mockbackend.EncodingNat)
	configPath, cred := writeConfig(t, backend, socketPath)
	backend.Fund(cred.Principal(), big.NewInt(2_5000_0000))
	backend.FundAK69(cred.Principal(), big.NewInt(7_000_000_000))

	flags := clientFlags{ConfigPath: configPath}
	client, err := flags.connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	names := client.config.ServicesWithContract(config.ContractICRC)
	balances := fetchBalances(context.Background(), client, names, cred.Principal())
	if len(balances) != 2 {
		t.Fatalf("got %d balances, want 2: %+v", len(balances), balances)
	}
	want := []struct{ ledger, formatted, symbol string }{
		{"ak69", "7", mockbackend.AK69Symbol},
		{"ledger", "2.5", mockbackend.Symbol},
	}
	for i, entry := range balances {
		if entry.Error != "" {
			t.Fatalf("%s: %s", entry.Ledger, entry.Error)
		}
		if entry.Ledger != want[i].ledger || entry.Formatted != want[i].formatted || entry.Symbol != want[i].symbol {
			t.Errorf("balance %d = %s %s %s, want %s %s %s", i,
				entry.Ledger, entry.Formatted, entry.Symbol, want[i].ledger, want[i].formatted, want[i].symbol)
		}
	}
}

func TestTokenBalancesReportUnreachableLedger(t *testing.T) {
	backend, socketPath := startBackend(t, mockbackend.EncodingNat)
	configPath, cred := writeConfig(t, backend, socketPath)
	backend.Fund(cred.Principal(), big.NewInt(1_0000_0000))
	backend.SetFailing("icrc1_balance_of", true)

	flags := clientFlags{ConfigPath: configPath}
	client, err := flags.connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	balances := fetchBalances(context.Background(), client, []string{"ak69", "ledger"}, cred.Principal())
	for _, entry := range balances {
		if entry.Error == "" {
			t.Errorf("%s: expected an error with icrc1_balance_of failing", entry.Ledger)
		}
	}

	var output bytes.Buffer
	renderBalances(&output, balances)
	if got := strings.Count(output.String(), "N/A"); got != 2 {
		t.Errorf("rendered %d N/A lines, want 2:\n%s", got, output.String())
	}
}

func TestDashboardEndToEnd(t *testing.T) {
	backend, socketPath := startBackend(t, mockbackend.EncodingText)
	configPath, cred := writeConfig(t, backend, socketPath)

	flags := clientFlags{ConfigPath: configPath}
	client, err := flags.connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	if client.credential.Principal() != cred.Principal() {
		t.Fatalf("loaded identity %s, want %s", client.credential.Principal(), cred.Principal())
	}

	ctx := context.Background()
	backend.Fund(cred.Principal(), big.NewInt(10_0000_0000))
	amount, metadata, err := client.parseTokenAmount(ctx, "5")
	if err != nil {
		t.Fatalf("parseTokenAmount: %v", err)
	}
	if metadata.Symbol != mockbackend.Symbol || amount.Cmp(big.NewInt(5_0000_0000)) != 0 {
		t.Fatalf("parsed 5 %s as %s subunits", metadata.Symbol, amount)
	}
	spender, err := client.spender("")
	if err != nil {
		t.Fatalf("spender: %v", err)
	}
	ledgerHandle, err := client.handle(ctx, config.ServiceLedger)
	if err != nil {
		t.Fatalf("handle(ledger): %v", err)
	}
	if _, err := ledger.Approve(ctx, ledgerHandle, ledger.ApproveArgs{Spender: ledger.Account{Owner: spender}, Amount: amount}); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	miningClient, miningHandle, err := flags.miningHandle(ctx)
	if err != nil {
		t.Fatalf("miningHandle: %v", err)
	}
	defer miningClient.Close()
	if _, err := mining.CreateMiner(ctx, miningHandle, mining.CreateArgs{
		Name:              "rig-1",
		MiningPower:       big.NewInt(40),
		DailyDirtRate:     big.NewInt(100),
		InitialDirtAmount: big.NewInt(1_0000_0000),
	}); err != nil {
		t.Fatalf("CreateMiner: %v", err)
	}

	board := mining.BuildDashboard(ctx, client.aggregator, client.credential, cred.Principal(), mining.DashboardOptions{
		Service: config.ServiceMining,
	})
	if board.Partial() {
		t.Fatalf("dashboard is partial: %+v", board.Provenance)
	}

	var output bytes.Buffer
	renderDashboard(&output, board, metadata, newDashboardStyles())
	text := output.String()
	for _, want := range []string{"rig-1", "1 DIRT", "active", "1 of 1 active"} {
		if !strings.Contains(text, want) {
			t.Errorf("dashboard output missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "Partial dashboard") {
		t.Errorf("complete dashboard reported as partial:\n%s", text)
	}
}

func TestRenderDashboardMarksProvenance(t *testing.T) {
	board := mining.Dashboard{
		User:         principal.Anonymous(),
		CurrentRound: big.NewInt(7),
		BlockReward:  big.NewInt(5_0000_0000),
		Provenance: map[string]mining.FieldStatus{
			mining.FieldMiners:      {Source: dashboard.Fallback, Attempt: "getUserDashboard.miners"},
			mining.FieldRecentWins:  {Source: dashboard.Unavailable},
			mining.FieldBlockReward: {Source: dashboard.Primary},
		},
	}

	var output bytes.Buffer
	renderDashboard(&output, board, ledger.Metadata{Symbol: "DIRT", Decimals: 8}, newDashboardStyles())
	text := output.String()
	for _, want := range []string{
		"(via getUserDashboard.miners)",
		"(unavailable)",
		"5 DIRT",
		"Partial dashboard, unavailable: recentWins",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
}

func TestParseNat(t *testing.T) {
	if value, err := parseNat("id", "42"); err != nil || value.Int64() != 42 {
		t.Errorf("parseNat(42) = %v, %v", value, err)
	}
	for _, text := range []string{"", "-1", "4.2", "x"} {
		if _, err := parseNat("id", text); err == nil {
			t.Errorf("parseNat(%q) succeeded", text)
		}
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	var output bytes.Buffer
	root := Root()
	root.Output = &output
	if err := root.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute(--help): %v", err)
	}
	for _, name := range []string{"dashboard", "miner", "token", "address", "identity", "services", "version"} {
		if !strings.Contains(output.String(), name) {
			t.Errorf("help does not list %q", name)
		}
	}
}
