// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mockbackend is an in-memory implementation of the mining,
// ledger and sign-in provider services, served through a
// service.Dispatcher. It reproduces the numeric drift seen across real
// deployments: counters can be encoded as nat, as int (with -1
// sentinels for "never"), or as decimal text.
package mockbackend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/bureau-foundation/actorlink/lib/calltoken"
	"github.com/bureau-foundation/actorlink/lib/clock"
	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/service"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
)

// Numeric encodings.
const (
	EncodingNat  = "nat"
	EncodingInt  = "int"
	EncodingText = "text"
)

// Default canister ids.
const (
	DefaultMiningCanister = "rrkah-fqaaa-aaaaa-aaaaq-cai"
	DefaultLedgerCanister = "ryjl3-tyaaa-aaaaa-aaaba-cai"
	DefaultSiweCanister   = "r7inp-6aaaa-aaaaa-aaabq-cai"
	DefaultAK69Canister   = "rkp4c-7iaaa-aaaaa-aaaca-cai"
)

// Mining parameters.
const (
	BlockDuration = 5 * time.Minute
	MinDailyRate  = 1
	MaxDailyRate  = 1_000_000
	Decimals      = 8
	Symbol        = "DIRT"
)

// The AK69 ledger is a second ICRC token held alongside DIRT. Mining
// never touches it.
const (
	AK69Decimals = 9
	AK69Symbol   = "AK69"
)

// TransferFee is the fee both ledgers charge per approval.
var TransferFee = big.NewInt(10_000)

// BlockReward is paid to the winner of each round.
var BlockReward = big.NewInt(500_000_000)

// Config configures a Backend.
type Config struct {
	// Encoding is nat, int or text. Empty means nat.
	Encoding string

	MiningCanister string
	LedgerCanister string
	SiweCanister   string
	AK69Canister   string

	// Clock drives round timing and token checks. Nil uses the real
	// clock.
	Clock clock.Clock

	// Metrics is optional.
	Metrics *telemetry.Metrics

	Logger *slog.Logger
}

// Backend holds the state of the mining, sign-in and ledger services.
type Backend struct {
	dispatcher *service.Dispatcher
	replay     *calltoken.ReplayGuard
	clock      clock.Clock
	metrics    *telemetry.Metrics
	logger     *slog.Logger

	miningCanister string
	siweCanister   string

	mu       sync.Mutex
	encoding string
	failing  map[string]bool

	miners      map[uint64]*minerState
	nextMinerID uint64
	rounds      []roundState
	lastBlock   time.Time

	dirt *ledgerState
	ak69 *ledgerState

	// addresses and checksums are keyed by the lowercased address.
	addresses map[string]principal.Principal
	checksums map[string]string
}

type minerState struct {
	id        uint64
	owner     principal.Principal
	name      string
	power     *big.Int
	rate      *big.Int
	balance   *big.Int
	createdAt time.Time
	active    bool
	// lastActiveBlock is -1 until the miner first takes part.
	lastActiveBlock int64
	wins            uint64
}

type roundState struct {
	id          uint64
	start, end  time.Time
	winner      principal.Principal
	winnerMiner uint64
	seed        []byte
	consumed    *big.Int
	active      uint64
}

type allowanceKey struct {
	owner, spender principal.Principal
}

// ErrUnknownEncoding is returned for encodings other than nat, int and
// text.
var ErrUnknownEncoding = errors.New("unknown numeric encoding")

// New creates a backend and registers every method on its dispatcher.
func New(config Config) (*Backend, error) {
	if config.Encoding == "" {
		config.Encoding = EncodingNat
	}
	if err := checkEncoding(config.Encoding); err != nil {
		return nil, err
	}
	if config.MiningCanister == "" {
		config.MiningCanister = DefaultMiningCanister
	}
	if config.LedgerCanister == "" {
		config.LedgerCanister = DefaultLedgerCanister
	}
	if config.SiweCanister == "" {
		config.SiweCanister = DefaultSiweCanister
	}
	if config.AK69Canister == "" {
		config.AK69Canister = DefaultAK69Canister
	}
	for _, id := range []string{config.MiningCanister, config.LedgerCanister, config.SiweCanister, config.AK69Canister} {
		if _, err := principal.Parse(id); err != nil {
			return nil, fmt.Errorf("canister id %q: %w", id, err)
		}
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		return nil, errors.New("mockbackend: Logger is required")
	}

	replay := calltoken.NewReplayGuard()
	b := &Backend{
		dispatcher: service.NewDispatcher(service.AuthConfig{
			Clock:  config.Clock,
			Replay: replay,
		}, config.Logger),
		replay:         replay,
		clock:          config.Clock,
		metrics:        config.Metrics,
		logger:         config.Logger,
		miningCanister: config.MiningCanister,
		siweCanister:   config.SiweCanister,
		encoding:       config.Encoding,
		failing:        make(map[string]bool),
		miners:         make(map[uint64]*minerState),
		nextMinerID:    1,
		lastBlock:      config.Clock.Now(),
		dirt:           newLedgerState(config.LedgerCanister, Symbol, "Dirt", Decimals),
		ak69:           newLedgerState(config.AK69Canister, AK69Symbol, "AK69", AK69Decimals),
		addresses:      make(map[string]principal.Principal),
		checksums:      make(map[string]string),
	}
	b.registerMining()
	b.registerLedger(b.dirt)
	b.registerLedger(b.ak69)
	b.registerSiwe()
	return b, nil
}

func checkEncoding(encoding string) error {
	switch encoding {
	case EncodingNat, EncodingInt, EncodingText:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEncoding, encoding)
	}
}

// Dispatcher returns the dispatcher serving all three canisters.
func (b *Backend) Dispatcher() *service.Dispatcher { return b.dispatcher }

// MiningCanister returns the mining canister id.
func (b *Backend) MiningCanister() string { return b.miningCanister }

// LedgerCanister returns the DIRT ledger canister id.
func (b *Backend) LedgerCanister() string { return b.dirt.canister }

// AK69Canister returns the AK69 ledger canister id.
func (b *Backend) AK69Canister() string { return b.ak69.canister }

// SiweCanister returns the sign-in provider canister id.
func (b *Backend) SiweCanister() string { return b.siweCanister }

// SetEncoding switches the numeric encoding of later replies.
func (b *Backend) SetEncoding(encoding string) error {
	if err := checkEncoding(encoding); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.encoding = encoding
	return nil
}

// SetFailing makes method reject every call with canister_error, on
// whichever canister serves it.
func (b *Backend) SetFailing(method string, failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing[method] = failing
}

// CleanupReplay forgets expired call token nonces and returns how many
// were removed.
func (b *Backend) CleanupReplay() int {
	return b.replay.Cleanup(b.clock.Now())
}

// handle registers fn behind the failure switch and dispatch metrics.
func (b *Backend) handle(canister, method string, requireToken bool, fn service.MethodFunc) {
	wrapped := func(ctx context.Context, call *service.Call) (any, error) {
		b.mu.Lock()
		failing := b.failing[method]
		b.mu.Unlock()

		var result any
		var err error
		if failing {
			err = fmt.Errorf("%s is out of cycles", method)
		} else {
			result, err = fn(ctx, call)
		}
		b.metrics.ObserveDispatch(canister, method, dispatchCode(err))
		return result, err
	}
	if requireToken {
		b.dispatcher.HandleAuth(canister, method, wrapped)
	} else {
		b.dispatcher.Handle(canister, method, wrapped)
	}
}

func dispatchCode(err error) string {
	if err == nil {
		return ""
	}
	var reject *service.RejectError
	if errors.As(err, &reject) {
		return reject.Code
	}
	return service.CodeCanisterError
}

// decodeArgs decodes the call's arguments against types.
func decodeArgs(call *service.Call, types ...*idl.Type) ([]any, error) {
	tree, err := codec.DecodeTree(call.Args)
	if err != nil {
		return nil, service.Reject(service.CodeInvalidRequest, "arguments are not CBOR: %v", err)
	}
	args, err := idl.DecodeArgs(types, tree)
	if err != nil {
		return nil, service.Reject(service.CodeInvalidRequest, "%v", err)
	}
	return args, nil
}

// num encodes a counter in the current encoding. Caller holds b.mu.
func (b *Backend) num(n *big.Int) any {
	if b.encoding == EncodingText {
		return n.String()
	}
	return new(big.Int).Set(n)
}

// sentinel encodes a counter that may be "never" (negative): zero
// under the nat and text encodings, -1 under int. Caller holds b.mu.
func (b *Backend) sentinel(n int64) any {
	if n < 0 && b.encoding != EncodingInt {
		n = 0
	}
	return b.num(big.NewInt(n))
}

func (b *Backend) unum(n uint64) any {
	return b.num(new(big.Int).SetUint64(n))
}

func (b *Backend) timestamp(t time.Time) any {
	return b.num(big.NewInt(t.UnixNano()))
}
