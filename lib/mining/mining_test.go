// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mining

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/actorlink/internal/backendtest"
	"github.com/bureau-foundation/actorlink/internal/mockbackend"
	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/clock"
	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/dashboard"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/ledger"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/session"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
)

var testEpoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

type harness struct {
	backend    *mockbackend.Backend
	transport  *backendtest.Transport
	clock      *clock.FakeClock
	registry   *prometheus.Registry
	factory    *actor.Factory
	store      *session.Store
	aggregator *dashboard.Aggregator
}

func newHarness(t *testing.T, encoding string) *harness {
	t.Helper()
	h := &harness{clock: clock.Fake(testEpoch), registry: prometheus.NewRegistry()}
	metrics := telemetry.New(h.registry)

	backend, err := mockbackend.New(mockbackend.Config{
		Encoding: encoding,
		Clock:    h.clock,
		Logger:   testLogger(),
	})
	if err != nil {
		t.Fatalf("mockbackend.New: %v", err)
	}
	h.backend = backend
	h.transport = backendtest.New(backend.Dispatcher())
	h.factory = actor.NewFactory(actor.FactoryConfig{
		Transport: h.transport,
		Clock:     h.clock,
		Logger:    testLogger(),
		Metrics:   metrics,
	})

	variants, err := NewVariants(nil)
	if err != nil {
		t.Fatalf("NewVariants: %v", err)
	}
	registry, err := actor.NewRegistry(
		Descriptor("mining", "unix:/run/actorlink/mining.sock", backend.MiningCanister(), variants),
		actor.ServiceDescriptor{
			Name:       "ledger",
			Endpoint:   "unix:/run/actorlink/ledger.sock",
			CanisterID: backend.LedgerCanister(),
			Contract:   ledger.Contract(),
		},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	h.store = session.New(h.factory, registry, testLogger())
	t.Cleanup(h.store.Close)
	h.aggregator = dashboard.NewAggregator(h.store, testLogger(), metrics)
	return h
}

func testCredential(t *testing.T, fill byte) credential.Credential {
	t.Helper()
	cred, err := credential.FromSeed(bytes.Repeat([]byte{fill}, 32))
	if err != nil {
		t.Fatalf("FromSeed: %v", err)
	}
	return cred
}

func (h *harness) handle(t *testing.T, service string, cred credential.Credential) *actor.Handle {
	t.Helper()
	handle, err := h.store.Get(context.Background(), service, cred)
	if err != nil {
		t.Fatalf("Get(%s): %v", service, err)
	}
	return handle
}

// fund gives cred a ledger balance and approves the mining canister to
// spend allowance of it.
func (h *harness) fund(t *testing.T, cred credential.Credential, balance, allowance int64) {
	t.Helper()
	h.backend.Fund(cred.Principal(), big.NewInt(balance))
	_, err := ledger.Approve(context.Background(), h.handle(t, "ledger", cred), ledger.ApproveArgs{
		Spender: ledger.Account{Owner: principal.MustParse(h.backend.MiningCanister())},
		Amount:  big.NewInt(allowance),
	})
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
}

func (h *harness) createMiner(t *testing.T, cred credential.Credential, name string, power int64) *big.Int {
	t.Helper()
	id, err := CreateMiner(context.Background(), h.handle(t, "mining", cred), CreateArgs{
		Name:              name,
		MiningPower:       big.NewInt(power),
		DailyDirtRate:     big.NewInt(100),
		InitialDirtAmount: big.NewInt(1_000),
	})
	if err != nil {
		t.Fatalf("CreateMiner: %v", err)
	}
	return id
}

func TestNewVariantsRejectsBadOrder(t *testing.T) {
	if _, err := NewVariants([]string{NumericNat, NumericNat}); err == nil {
		t.Error("duplicate encoding accepted")
	}
	if _, err := NewVariants([]string{"float"}); err == nil {
		t.Error("unknown encoding accepted")
	}
	variants, err := NewVariants([]string{NumericText, NumericNat})
	if err != nil {
		t.Fatalf("NewVariants: %v", err)
	}
	if len(variants.Miners) != 2 || variants.Miners[0].Name != NumericText {
		t.Errorf("miner variants follow the given order: got %+v", variants.Miners)
	}
}

func TestDescriptorValidates(t *testing.T) {
	variants, err := NewVariants(nil)
	if err != nil {
		t.Fatalf("NewVariants: %v", err)
	}
	descriptor := Descriptor("mining", "unix:/run/mining.sock", mockbackend.DefaultMiningCanister, variants)
	if err := descriptor.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestDashboardAcrossEncodings(t *testing.T) {
	tests := []struct {
		encoding    string
		wantVariant string
		// wantLastActive is the decoded lastActiveBlock of a miner
		// that never took part in a round.
		wantLastActive int64
	}{
		{mockbackend.EncodingNat, NumericNat, 0},
		{mockbackend.EncodingInt, NumericInt, -1},
		{mockbackend.EncodingText, NumericText, 0},
	}
	for _, test := range tests {
		t.Run(test.encoding, func(t *testing.T) {
			h := newHarness(t, test.encoding)
			owner := testCredential(t, 1)
			h.fund(t, owner, 100_000, 5_000)
			h.createMiner(t, owner, "rig", 10)

			result := BuildDashboard(context.Background(), h.aggregator, owner, owner.Principal(), DashboardOptions{Service: "mining"})
			if result.Partial() {
				t.Fatalf("dashboard is partial: %+v", result.Provenance)
			}
			if len(result.Miners) != 1 {
				t.Fatalf("miners: got %d, want 1", len(result.Miners))
			}
			miner := result.Miners[0]
			if miner.Name != "rig" || miner.MiningPower.Int64() != 10 {
				t.Errorf("miner: got %+v", miner)
			}
			if miner.LastActiveBlock.Int64() != test.wantLastActive {
				t.Errorf("lastActiveBlock: got %s, want %d", miner.LastActiveBlock, test.wantLastActive)
			}
			status := result.Provenance[FieldMiners]
			if status.Source != dashboard.Primary || status.Variant != test.wantVariant {
				t.Errorf("miners provenance: got %+v, want primary via %s", status, test.wantVariant)
			}
			if result.Stats.TotalMiners.Int64() != 1 || result.Stats.TotalDirtBalance.Int64() != 1_000 {
				t.Errorf("stats: got %+v", result.Stats)
			}
			if result.CurrentRound.Int64() != 1 {
				t.Errorf("current round: got %s, want 1", result.CurrentRound)
			}
			if result.BlockReward.Cmp(mockbackend.BlockReward) != 0 {
				t.Errorf("block reward: got %s", result.BlockReward)
			}
		})
	}
}

func TestDashboardFallsBackToUserDashboard(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	owner := testCredential(t, 1)
	h.fund(t, owner, 100_000, 5_000)
	h.createMiner(t, owner, "rig", 10)
	h.backend.SetFailing(MethodUserMinersDetailed, true)
	h.backend.SetFailing(MethodBlockReward, true)

	result := BuildDashboard(context.Background(), h.aggregator, owner, owner.Principal(), DashboardOptions{Service: "mining"})
	if result.Partial() {
		t.Fatalf("dashboard is partial: %+v", result.Provenance)
	}

	miners := result.Provenance[FieldMiners]
	if miners.Source != dashboard.Fallback || miners.Attempt != "getUserDashboard.miners" {
		t.Errorf("miners provenance: got %+v", miners)
	}
	if len(miners.Errors) != 1 {
		t.Errorf("miners errors: got %v, want the failed primary", miners.Errors)
	}
	if len(result.Miners) != 1 || result.Miners[0].LifetimeWins == nil {
		t.Errorf("miners from getUserDashboard carry lifetime wins: got %+v", result.Miners)
	}

	reward := result.Provenance[FieldBlockReward]
	if reward.Source != dashboard.Fallback || reward.Attempt != "getMiningConfig.blockReward" {
		t.Errorf("blockReward provenance: got %+v", reward)
	}
	if result.BlockReward.Cmp(mockbackend.BlockReward) != 0 {
		t.Errorf("block reward: got %s", result.BlockReward)
	}
}

func TestDashboardRecentWinsUnavailable(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	owner := testCredential(t, 1)
	h.fund(t, owner, 100_000, 5_000)
	h.createMiner(t, owner, "rig", 10)
	h.backend.SetFailing(MethodUserMiningWins, true)

	result := BuildDashboard(context.Background(), h.aggregator, owner, owner.Principal(), DashboardOptions{Service: "mining"})
	if !result.Partial() {
		t.Fatal("dashboard with a failed recentWins is not partial")
	}
	status := result.Provenance[FieldRecentWins]
	if status.Source != dashboard.Unavailable || len(status.Errors) != 1 {
		t.Errorf("recentWins provenance: got %+v", status)
	}
	if result.RecentWins == nil || len(result.RecentWins) != 0 {
		t.Errorf("recentWins default: got %#v, want empty list", result.RecentWins)
	}
	for _, name := range []string{FieldMiners, FieldStats, FieldCurrentRound, FieldWinningStats} {
		if source := result.Provenance[name].Source; source != dashboard.Primary {
			t.Errorf("%s source: got %s, want primary", name, source)
		}
	}
}

func TestDashboardRecentWins(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingInt)
	owner := testCredential(t, 1)
	h.fund(t, owner, 100_000, 5_000)
	h.createMiner(t, owner, "rig", 10)
	for range 3 {
		h.clock.Advance(mockbackend.BlockDuration)
		if !h.backend.MineBlock() {
			t.Fatal("MineBlock reported no winner")
		}
	}

	result := BuildDashboard(context.Background(), h.aggregator, owner, owner.Principal(), DashboardOptions{Service: "mining", RecentWinsLimit: 2})
	if len(result.RecentWins) != 2 {
		t.Fatalf("recent wins: got %d, want 2", len(result.RecentWins))
	}
	if result.RecentWins[0].RoundID.Int64() != 3 {
		t.Errorf("latest win first: got round %s", result.RecentWins[0].RoundID)
	}
	if winner := result.RecentWins[0].Winner; winner == nil || *winner != owner.Principal() {
		t.Errorf("winner: got %v", winner)
	}
	if result.WinningStats.TotalWins.Int64() != 3 || result.WinningStats.CurrentWinStreak.Int64() != 3 {
		t.Errorf("winning stats: got %+v", result.WinningStats)
	}
	if result.Miners[0].LastActiveBlock.Int64() != 3 {
		t.Errorf("lastActiveBlock after three rounds: got %s", result.Miners[0].LastActiveBlock)
	}
}

func TestDashboardAnonymous(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	anonymous := credential.Anonymous()

	result := BuildDashboard(context.Background(), h.aggregator, anonymous, anonymous.Principal(), DashboardOptions{Service: "mining"})
	if result.Partial() {
		t.Fatalf("anonymous dashboard is partial: %+v", result.Provenance)
	}
	if len(result.Miners) != 0 || result.Stats.TotalMiners.Sign() != 0 {
		t.Errorf("anonymous user has miners: %+v", result)
	}
	for _, request := range h.transport.Calls() {
		if len(request.Token) != 0 {
			t.Errorf("anonymous call to %s carried a token", request.Method)
		}
	}
}

func TestDashboardMetrics(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	anonymous := credential.Anonymous()
	BuildDashboard(context.Background(), h.aggregator, anonymous, anonymous.Principal(), DashboardOptions{Service: "mining"})

	count, err := promtestutil.GatherAndCount(h.registry, "actorlink_dashboard_field_sources_total")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != len(Plan(anonymous.Principal(), DashboardOptions{})) {
		t.Errorf("field series: got %d, want one per field", count)
	}
}

func TestCreateMinerErrorsSurfaceVerbatim(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	owner := testCredential(t, 1)
	handle := h.handle(t, "mining", owner)

	_, err := CreateMiner(context.Background(), handle, CreateArgs{
		Name:              "rig",
		MiningPower:       big.NewInt(1),
		DailyDirtRate:     big.NewInt(1),
		InitialDirtAmount: big.NewInt(500),
	})
	var minerErr *MinerError
	if !errors.As(err, &minerErr) {
		t.Fatalf("CreateMiner error = %v, want *MinerError", err)
	}
	if minerErr.Tag != "TransferError" {
		t.Errorf("tag: got %q, want TransferError", minerErr.Tag)
	}
	transfer, ok := minerErr.Payload.(idl.VariantValue)
	if !ok || transfer.Tag != "InsufficientAllowance" {
		t.Errorf("payload: got %#v, want InsufficientAllowance", minerErr.Payload)
	}
	var remote *actor.RemoteError
	if !errors.As(err, &remote) || remote.Method != MethodCreateMiner {
		t.Errorf("MinerError does not unwrap to the RemoteError: %v", err)
	}

	_, err = CreateMiner(context.Background(), handle, CreateArgs{
		Name:              "rig",
		MiningPower:       big.NewInt(1),
		DailyDirtRate:     big.NewInt(mockbackend.MaxDailyRate + 1),
		InitialDirtAmount: big.NewInt(0),
	})
	if !errors.As(err, &minerErr) || minerErr.Tag != "InvalidDirtRate" {
		t.Errorf("out of range rate: got %v, want InvalidDirtRate", err)
	}
}

func TestCreateMinerAnonymousRejected(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	_, err := CreateMiner(context.Background(), h.handle(t, "mining", credential.Anonymous()), CreateArgs{
		Name:              "rig",
		MiningPower:       big.NewInt(1),
		DailyDirtRate:     big.NewInt(1),
		InitialDirtAmount: big.NewInt(0),
	})
	var authErr *actor.AuthorizationError
	if !errors.As(err, &authErr) {
		t.Fatalf("anonymous CreateMiner error = %v, want *actor.AuthorizationError", err)
	}
}

func TestMinerLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, mockbackend.EncodingText)
	owner := testCredential(t, 1)
	h.fund(t, owner, 100_000, 5_000)
	id := h.createMiner(t, owner, "rig", 10)
	handle := h.handle(t, "mining", owner)

	name := "renamed"
	if err := EditMiner(ctx, handle, id, EditArgs{Name: &name, DailyDirtRate: big.NewInt(250)}); err != nil {
		t.Fatalf("EditMiner: %v", err)
	}
	if err := TopUp(ctx, handle, id, big.NewInt(2_000)); err != nil {
		t.Fatalf("TopUp: %v", err)
	}
	if err := Pause(ctx, handle, id); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := Pause(ctx, handle, id); !errors.Is(err, ErrNotApplied) {
		t.Errorf("second Pause: got %v, want ErrNotApplied", err)
	}

	miner, err := GetMiner(ctx, handle, id)
	if err != nil {
		t.Fatalf("GetMiner: %v", err)
	}
	if miner == nil {
		t.Fatal("GetMiner returned nil for an existing miner")
	}
	if miner.Name != name || miner.DailyDirtRate.Int64() != 250 || miner.DirtBalance.Int64() != 3_000 || miner.IsActive {
		t.Errorf("miner after edits: got %+v", miner)
	}

	if err := Resume(ctx, handle, id); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	missing, err := GetMiner(ctx, handle, big.NewInt(99))
	if err != nil || missing != nil {
		t.Errorf("GetMiner(99): got %v, %v, want nil, nil", missing, err)
	}
}

func TestEditMinerNotAuthorized(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	owner, other := testCredential(t, 1), testCredential(t, 2)
	h.fund(t, owner, 100_000, 5_000)
	id := h.createMiner(t, owner, "rig", 10)

	err := Pause(context.Background(), h.handle(t, "mining", other), id)
	var minerErr *MinerError
	if !errors.As(err, &minerErr) || minerErr.Tag != "NotAuthorized" {
		t.Fatalf("Pause by another user: got %v, want NotAuthorized", err)
	}
	if _, ok := minerErr.Payload.(string); !ok {
		t.Errorf("NotAuthorized payload: got %T, want string", minerErr.Payload)
	}
}

func TestGetDirtToken(t *testing.T) {
	h := newHarness(t, mockbackend.EncodingNat)
	token, err := GetDirtToken(context.Background(), h.handle(t, "mining", credential.Anonymous()))
	if err != nil {
		t.Fatalf("GetDirtToken: %v", err)
	}
	if token.String() != h.backend.LedgerCanister() {
		t.Errorf("dirt token: got %s, want %s", token, h.backend.LedgerCanister())
	}
}
