// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"sort"
	"time"

	"github.com/bureau-foundation/actorlink/lib/codec"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/service"
)

var (
	minerCreationArgs = idl.Rec(
		idl.F("name", idl.Text()),
		idl.F("miningPower", idl.Nat()),
		idl.F("dailyDirtRate", idl.Nat()),
		idl.F("initialDirtAmount", idl.Nat()),
	)
	optText = idl.Opt(idl.Text())
	optNat  = idl.Opt(idl.Nat())
)

func okResult(value any) map[string]any  { return map[string]any{"ok": value} }
func errResult(tag string, payload any) map[string]any {
	return map[string]any{"err": map[string]any{tag: payload}}
}

func (b *Backend) registerMining() {
	canister := b.miningCanister

	b.handle(canister, "echo", false, func(ctx context.Context, call *service.Call) (any, error) {
		tree, err := codec.DecodeTree(call.Args)
		if err != nil {
			return nil, service.Reject(service.CodeInvalidRequest, "arguments are not CBOR: %v", err)
		}
		return tree, nil
	})

	b.handle(canister, "getUserMinersDetailed", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Principal())
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.userMinersLocked(args[0].(principal.Principal), false), nil
	})

	b.handle(canister, "getUserStats", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Principal())
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.userStatsLocked(args[0].(principal.Principal)), nil
	})

	b.handle(canister, "getCurrentRound", false, func(ctx context.Context, call *service.Call) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.unum(uint64(len(b.rounds)) + 1), nil
	})

	b.handle(canister, "getTimeToNextBlock", false, func(ctx context.Context, call *service.Call) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.timeToNextBlockLocked(), nil
	})

	b.handle(canister, "getBlockReward", false, func(ctx context.Context, call *service.Call) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.num(BlockReward), nil
	})

	b.handle(canister, "getMiningConfig", false, func(ctx context.Context, call *service.Call) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		return map[string]any{
			"blockDurationSeconds": b.unum(uint64(BlockDuration / time.Second)),
			"minDailyRate":         b.unum(MinDailyRate),
			"maxDailyRate":         b.unum(MaxDailyRate),
			"blockReward":          b.num(BlockReward),
		}, nil
	})

	b.handle(canister, "getUserDashboard", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Principal())
		if err != nil {
			return nil, err
		}
		user := args[0].(principal.Principal)
		b.mu.Lock()
		defer b.mu.Unlock()
		return map[string]any{
			"miners":       b.userMinersLocked(user, true),
			"stats":        b.userStatsLocked(user),
			"winningStats": b.winningStatsLocked(user),
			"recentWins":   b.userWinsLocked(user, 10),
			"systemInfo": map[string]any{
				"currentRound":    b.unum(uint64(len(b.rounds)) + 1),
				"timeToNextBlock": b.timeToNextBlockLocked(),
				"blockReward":     b.num(BlockReward),
			},
		}, nil
	})

	b.handle(canister, "getUserMiningWins", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Principal(), idl.Nat())
		if err != nil {
			return nil, err
		}
		limit := args[1].(*big.Int)
		if !limit.IsUint64() {
			return nil, service.Reject(service.CodeInvalidRequest, "limit out of range")
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.userWinsLocked(args[0].(principal.Principal), limit.Uint64()), nil
	})

	b.handle(canister, "getMiner", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Nat())
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		miner := b.minerLocked(args[0].(*big.Int))
		if miner == nil {
			return nil, nil
		}
		return b.encodeMinerLocked(miner, false), nil
	})

	b.handle(canister, "getDirtToken", false, func(ctx context.Context, call *service.Call) (any, error) {
		return principal.MustParse(b.dirt.canister).Bytes(), nil
	})

	b.handle(canister, "createMiner", true, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, minerCreationArgs)
		if err != nil {
			return nil, err
		}
		request := args[0].(idl.Record)
		name := request.Text("name")
		power, rate, amount := request.Nat("miningPower"), request.Nat("dailyDirtRate"), request.Nat("initialDirtAmount")

		b.mu.Lock()
		defer b.mu.Unlock()
		if name == "" {
			return errResult("InvalidInput", "name must not be empty"), nil
		}
		if power.Sign() == 0 {
			return errResult("InvalidInput", "mining power must be positive"), nil
		}
		if !rateInRange(rate) {
			return errResult("InvalidDirtRate", "daily rate must be between 1 and 1000000"), nil
		}
		if failure := b.transferFromLocked(call.Caller, amount); failure != nil {
			return errResult("TransferError", failure), nil
		}

		miner := &minerState{
			id:              b.nextMinerID,
			owner:           call.Caller,
			name:            name,
			power:           power,
			rate:            rate,
			balance:         amount,
			createdAt:       b.clock.Now(),
			active:          true,
			lastActiveBlock: -1,
		}
		b.miners[miner.id] = miner
		b.nextMinerID++
		b.logger.Debug("miner created", "id", miner.id, "owner", call.Caller)
		return okResult(b.unum(miner.id)), nil
	})

	b.handle(canister, "editMiner", true, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Nat(), optText, optNat, optNat)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		miner, failure := b.ownedMinerLocked(call.Caller, args[0].(*big.Int))
		if failure != nil {
			return failure, nil
		}
		name, power, rate := args[1].(idl.Optional), args[2].(idl.Optional), args[3].(idl.Optional)
		if name.Set && name.Value.(string) == "" {
			return errResult("InvalidInput", "name must not be empty"), nil
		}
		if rate.Set && !rateInRange(rate.Value.(*big.Int)) {
			return errResult("InvalidDirtRate", "daily rate must be between 1 and 1000000"), nil
		}
		if name.Set {
			miner.name = name.Value.(string)
		}
		if power.Set {
			miner.power = power.Value.(*big.Int)
		}
		if rate.Set {
			miner.rate = rate.Value.(*big.Int)
		}
		return okResult(true), nil
	})

	b.handle(canister, "topUpMiner", true, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, idl.Nat(), idl.Nat())
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		miner, failure := b.ownedMinerLocked(call.Caller, args[0].(*big.Int))
		if failure != nil {
			return failure, nil
		}
		amount := args[1].(*big.Int)
		if transferFailure := b.transferFromLocked(call.Caller, amount); transferFailure != nil {
			return errResult("TransferError", transferFailure), nil
		}
		miner.balance = new(big.Int).Add(miner.balance, amount)
		return okResult(true), nil
	})

	setActive := func(active bool) service.MethodFunc {
		return func(ctx context.Context, call *service.Call) (any, error) {
			args, err := decodeArgs(call, idl.Nat())
			if err != nil {
				return nil, err
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			miner, failure := b.ownedMinerLocked(call.Caller, args[0].(*big.Int))
			if failure != nil {
				return failure, nil
			}
			changed := miner.active != active
			miner.active = active
			return okResult(changed), nil
		}
	}
	b.handle(canister, "pauseMiner", true, setActive(false))
	b.handle(canister, "resumeMiner", true, setActive(true))
}

func rateInRange(rate *big.Int) bool {
	return rate.Cmp(big.NewInt(MinDailyRate)) >= 0 && rate.Cmp(big.NewInt(MaxDailyRate)) <= 0
}

// MineBlock completes the current round, awarding it to the active
// miner with the highest mining power (lowest id on ties). Returns
// false when no miner is active.
func (b *Backend) MineBlock() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	var winner *minerState
	var active uint64
	consumed := new(big.Int)
	for _, id := range b.sortedMinerIDsLocked() {
		miner := b.miners[id]
		if !miner.active {
			continue
		}
		active++
		consumed.Add(consumed, miner.rate)
		miner.lastActiveBlock = int64(len(b.rounds)) + 1
		if winner == nil || miner.power.Cmp(winner.power) > 0 {
			winner = miner
		}
	}
	if winner == nil {
		return false
	}
	winner.wins++

	roundID := uint64(len(b.rounds)) + 1
	seed := sha256.Sum256(binary.BigEndian.AppendUint64(nil, roundID))
	b.rounds = append(b.rounds, roundState{
		id:          roundID,
		start:       b.lastBlock,
		end:         now,
		winner:      winner.owner,
		winnerMiner: winner.id,
		seed:        seed[:],
		consumed:    consumed,
		active:      active,
	})
	b.lastBlock = now
	b.dirt.credit(winner.owner, BlockReward)
	return true
}

func (b *Backend) sortedMinerIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(b.miners))
	for id := range b.miners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (b *Backend) minerLocked(id *big.Int) *minerState {
	if !id.IsUint64() {
		return nil
	}
	return b.miners[id.Uint64()]
}

// ownedMinerLocked returns the miner or the err result explaining why
// caller cannot change it.
func (b *Backend) ownedMinerLocked(caller principal.Principal, id *big.Int) (*minerState, map[string]any) {
	miner := b.minerLocked(id)
	if miner == nil {
		return nil, errResult("MinerNotFound", "no miner "+id.String())
	}
	if miner.owner != caller {
		return nil, errResult("NotAuthorized", "miner "+id.String()+" belongs to another user")
	}
	return miner, nil
}

func (b *Backend) encodeMinerLocked(miner *minerState, withWins bool) map[string]any {
	encoded := map[string]any{
		"id":              b.unum(miner.id),
		"owner":           miner.owner.Bytes(),
		"name":            miner.name,
		"miningPower":     b.num(miner.power),
		"dailyDirtRate":   b.num(miner.rate),
		"dirtBalance":     b.num(miner.balance),
		"createdAt":       b.timestamp(miner.createdAt),
		"isActive":        miner.active,
		"lastActiveBlock": b.sentinel(miner.lastActiveBlock),
	}
	if withWins {
		encoded["lifetimeWins"] = b.unum(miner.wins)
	}
	return encoded
}

func (b *Backend) userMinersLocked(user principal.Principal, withWins bool) []any {
	miners := []any{}
	for _, id := range b.sortedMinerIDsLocked() {
		if miner := b.miners[id]; miner.owner == user {
			miners = append(miners, b.encodeMinerLocked(miner, withWins))
		}
	}
	return miners
}

func (b *Backend) userStatsLocked(user principal.Principal) map[string]any {
	var total, active uint64
	rate, balance, power := new(big.Int), new(big.Int), new(big.Int)
	for _, miner := range b.miners {
		if miner.owner != user {
			continue
		}
		total++
		if miner.active {
			active++
			rate.Add(rate, miner.rate)
			power.Add(power, miner.power)
		}
		balance.Add(balance, miner.balance)
	}
	return map[string]any{
		"totalMiners":      b.unum(total),
		"activeMiners":     b.unum(active),
		"totalDailyRate":   b.num(rate),
		"totalDirtBalance": b.num(balance),
		"totalMiningPower": b.num(power),
	}
}

func (b *Backend) winningStatsLocked(user principal.Principal) map[string]any {
	var wins, streak, longest uint64
	var lastWin *roundState
	for i := range b.rounds {
		round := &b.rounds[i]
		if round.winner == user {
			wins++
			streak++
			longest = max(longest, streak)
			lastWin = round
		} else {
			streak = 0
		}
	}
	stats := map[string]any{
		"totalRewards":     b.num(new(big.Int).Mul(BlockReward, new(big.Int).SetUint64(wins))),
		"totalWins":        b.unum(wins),
		"longestWinStreak": b.unum(longest),
		"currentWinStreak": b.unum(streak),
	}
	if lastWin != nil {
		stats["lastWinRound"] = b.unum(lastWin.id)
	}
	return stats
}

func (b *Backend) userWinsLocked(user principal.Principal, limit uint64) []any {
	wins := []any{}
	for i := len(b.rounds) - 1; i >= 0 && uint64(len(wins)) < limit; i-- {
		round := b.rounds[i]
		if round.winner != user {
			continue
		}
		wins = append(wins, map[string]any{
			"roundId":           b.unum(round.id),
			"startTime":         b.timestamp(round.start),
			"endTime":           b.timestamp(round.end),
			"isCompleted":       true,
			"winner":            round.winner.Bytes(),
			"winnerMiner":       b.unum(round.winnerMiner),
			"randomSeed":        round.seed,
			"totalDirtConsumed": b.num(round.consumed),
			"totalActiveMiners": b.unum(round.active),
			"rewardsPaid":       b.num(BlockReward),
		})
	}
	return wins
}

func (b *Backend) timeToNextBlockLocked() any {
	remaining := BlockDuration - b.clock.Now().Sub(b.lastBlock)
	if remaining < 0 {
		remaining = 0
	}
	return b.unum(uint64(remaining / time.Second))
}
