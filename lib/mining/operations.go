// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mining

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// MinerError is a failure reported by the mining service, surfaced
// with its tag and payload unchanged.
type MinerError struct {
	Method string

	// Tag is the MinerError alternative, e.g. "InsufficientFunds".
	Tag string

	// Payload is the alternative's value: a message string for most
	// tags, the ledger's transfer error variant for TransferError.
	Payload any

	remote *actor.RemoteError
}

func (e *MinerError) Error() string {
	switch payload := e.Payload.(type) {
	case string:
		return fmt.Sprintf("%s: %s: %s", e.Method, e.Tag, payload)
	case idl.VariantValue:
		return fmt.Sprintf("%s: %s: %s %v", e.Method, e.Tag, payload.Tag, payload.Value)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Method, e.Tag, payload)
	}
}

func (e *MinerError) Unwrap() error { return e.remote }

// ErrNotApplied is returned when a mutating method answers ok(false).
var ErrNotApplied = errors.New("mining service did not apply the change")

// minerError converts a remote err result into a *MinerError and
// passes every other error through.
func minerError(method string, err error) error {
	var remote *actor.RemoteError
	if errors.As(err, &remote) {
		return &MinerError{Method: method, Tag: remote.Tag, Payload: remote.Payload, remote: remote}
	}
	return err
}

// CreateArgs are the parameters of a new miner.
type CreateArgs struct {
	Name              string
	MiningPower       *big.Int
	DailyDirtRate     *big.Int
	InitialDirtAmount *big.Int
}

// EditArgs changes a miner. Nil fields are left unchanged.
type EditArgs struct {
	Name          *string
	MiningPower   *big.Int
	DailyDirtRate *big.Int
}

// CreateMiner creates a miner funded from the caller's approved DIRT
// allowance and returns its id.
func CreateMiner(ctx context.Context, handle *actor.Handle, args CreateArgs) (*big.Int, error) {
	value, err := handle.CallResult(ctx, MethodCreateMiner, idl.Record{
		"name":              args.Name,
		"miningPower":       args.MiningPower,
		"dailyDirtRate":     args.DailyDirtRate,
		"initialDirtAmount": args.InitialDirtAmount,
	})
	if err != nil {
		return nil, minerError(MethodCreateMiner, err)
	}
	return natFromValue(value)
}

// EditMiner changes the name, mining power or daily rate of a miner.
func EditMiner(ctx context.Context, handle *actor.Handle, id *big.Int, args EditArgs) error {
	name := idl.None()
	if args.Name != nil {
		name = idl.Some(*args.Name)
	}
	value, err := handle.CallResult(ctx, MethodEditMiner, id, name, optional(args.MiningPower), optional(args.DailyDirtRate))
	return applied(MethodEditMiner, value, err)
}

// TopUp adds amount DIRT to a miner's balance.
func TopUp(ctx context.Context, handle *actor.Handle, id, amount *big.Int) error {
	value, err := handle.CallResult(ctx, MethodTopUpMiner, id, amount)
	return applied(MethodTopUpMiner, value, err)
}

// Pause stops a miner from taking part in rounds.
func Pause(ctx context.Context, handle *actor.Handle, id *big.Int) error {
	value, err := handle.CallResult(ctx, MethodPauseMiner, id)
	return applied(MethodPauseMiner, value, err)
}

// Resume lets a paused miner take part in rounds again.
func Resume(ctx context.Context, handle *actor.Handle, id *big.Int) error {
	value, err := handle.CallResult(ctx, MethodResumeMiner, id)
	return applied(MethodResumeMiner, value, err)
}

// GetDirtToken returns the ledger canister of the DIRT token.
func GetDirtToken(ctx context.Context, handle *actor.Handle) (principal.Principal, error) {
	value, err := handle.Call(ctx, MethodDirtToken)
	if err != nil {
		return principal.Principal{}, err
	}
	return value.(principal.Principal), nil
}

// GetMiner returns one miner, or nil when it does not exist.
func GetMiner(ctx context.Context, handle *actor.Handle, id *big.Int) (*Miner, error) {
	value, err := handle.Call(ctx, MethodMiner, id)
	if err != nil {
		return nil, err
	}
	found := value.(idl.Optional)
	if !found.Set {
		return nil, nil
	}
	record, err := recordFromValue(found.Value)
	if err != nil {
		return nil, err
	}
	miner := minerFromRecord(record)
	return &miner, nil
}

// applied interprets a Result(bool, MinerError) reply.
func applied(method string, value any, err error) error {
	if err != nil {
		return minerError(method, err)
	}
	if ok, _ := value.(bool); !ok {
		return fmt.Errorf("%s: %w", method, ErrNotApplied)
	}
	return nil
}

func optional(n *big.Int) idl.Optional {
	if n == nil {
		return idl.None()
	}
	return idl.Some(n)
}
