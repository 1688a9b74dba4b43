// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mining

import (
	"fmt"
	"math/big"

	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// Miner is one of the user's miners.
type Miner struct {
	ID              *big.Int            `json:"id"`
	Owner           principal.Principal `json:"owner"`
	Name            string              `json:"name"`
	MiningPower     *big.Int            `json:"miningPower"`
	DailyDirtRate   *big.Int            `json:"dailyDirtRate"`
	DirtBalance     *big.Int            `json:"dirtBalance"`
	CreatedAt       *big.Int            `json:"createdAt"`
	IsActive        bool                `json:"isActive"`
	LastActiveBlock *big.Int            `json:"lastActiveBlock"`

	// LifetimeWins is nil when the source method does not report it.
	LifetimeWins *big.Int `json:"lifetimeWins,omitempty"`
}

// Stats aggregates the user's miners.
type Stats struct {
	TotalMiners      *big.Int `json:"totalMiners"`
	ActiveMiners     *big.Int `json:"activeMiners"`
	TotalDailyRate   *big.Int `json:"totalDailyRate"`
	TotalDirtBalance *big.Int `json:"totalDirtBalance"`
	TotalMiningPower *big.Int `json:"totalMiningPower"`
}

// WinningStats summarizes the user's wins.
type WinningStats struct {
	TotalRewards     *big.Int `json:"totalRewards"`
	TotalWins        *big.Int `json:"totalWins"`
	LastWinRound     *big.Int `json:"lastWinRound,omitempty"`
	LongestWinStreak *big.Int `json:"longestWinStreak"`
	CurrentWinStreak *big.Int `json:"currentWinStreak"`
}

// Round is one mining round.
type Round struct {
	RoundID           *big.Int             `json:"roundId"`
	StartTime         *big.Int             `json:"startTime"`
	EndTime           *big.Int             `json:"endTime"`
	IsCompleted       bool                 `json:"isCompleted"`
	Winner            *principal.Principal `json:"winner,omitempty"`
	WinnerMiner       *big.Int             `json:"winnerMiner,omitempty"`
	RandomSeed        []byte               `json:"randomSeed,omitempty"`
	TotalDirtConsumed *big.Int             `json:"totalDirtConsumed"`
	TotalActiveMiners *big.Int             `json:"totalActiveMiners"`
	RewardsPaid       *big.Int             `json:"rewardsPaid"`
}

// zeroStats is the default for unavailable stats.
func zeroStats() Stats {
	return Stats{
		TotalMiners:      new(big.Int),
		ActiveMiners:     new(big.Int),
		TotalDailyRate:   new(big.Int),
		TotalDirtBalance: new(big.Int),
		TotalMiningPower: new(big.Int),
	}
}

func zeroWinningStats() WinningStats {
	return WinningStats{
		TotalRewards:     new(big.Int),
		TotalWins:        new(big.Int),
		LongestWinStreak: new(big.Int),
		CurrentWinStreak: new(big.Int),
	}
}

func optionalNat(o idl.Optional) *big.Int {
	if !o.Set {
		return nil
	}
	n, _ := o.Value.(*big.Int)
	return n
}

func minerFromRecord(r idl.Record) Miner {
	return Miner{
		ID:              r.Nat("id"),
		Owner:           r.Principal("owner"),
		Name:            r.Text("name"),
		MiningPower:     r.Nat("miningPower"),
		DailyDirtRate:   r.Nat("dailyDirtRate"),
		DirtBalance:     r.Nat("dirtBalance"),
		CreatedAt:       r.Nat("createdAt"),
		IsActive:        r.Bool("isActive"),
		LastActiveBlock: r.Nat("lastActiveBlock"),
		LifetimeWins:    optionalNat(r.Opt("lifetimeWins")),
	}
}

func statsFromRecord(r idl.Record) Stats {
	return Stats{
		TotalMiners:      r.Nat("totalMiners"),
		ActiveMiners:     r.Nat("activeMiners"),
		TotalDailyRate:   r.Nat("totalDailyRate"),
		TotalDirtBalance: r.Nat("totalDirtBalance"),
		TotalMiningPower: r.Nat("totalMiningPower"),
	}
}

func winningStatsFromRecord(r idl.Record) WinningStats {
	return WinningStats{
		TotalRewards:     r.Nat("totalRewards"),
		TotalWins:        r.Nat("totalWins"),
		LastWinRound:     optionalNat(r.Opt("lastWinRound")),
		LongestWinStreak: r.Nat("longestWinStreak"),
		CurrentWinStreak: r.Nat("currentWinStreak"),
	}
}

func roundFromRecord(r idl.Record) Round {
	round := Round{
		RoundID:           r.Nat("roundId"),
		StartTime:         r.Nat("startTime"),
		EndTime:           r.Nat("endTime"),
		IsCompleted:       r.Bool("isCompleted"),
		WinnerMiner:       optionalNat(r.Opt("winnerMiner")),
		TotalDirtConsumed: r.Nat("totalDirtConsumed"),
		TotalActiveMiners: r.Nat("totalActiveMiners"),
		RewardsPaid:       r.Nat("rewardsPaid"),
	}
	if winner := r.Opt("winner"); winner.Set {
		p, _ := winner.Value.(principal.Principal)
		round.Winner = &p
	}
	if seed := r.Opt("randomSeed"); seed.Set {
		round.RandomSeed, _ = seed.Value.([]byte)
	}
	return round
}

// records asserts that a decoded vec holds records.
func records(value any) ([]idl.Record, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", value)
	}
	out := make([]idl.Record, len(list))
	for i, element := range list {
		record, ok := element.(idl.Record)
		if !ok {
			return nil, fmt.Errorf("element %d: expected a record, got %T", i, element)
		}
		out[i] = record
	}
	return out, nil
}

func minersFromValue(value any) ([]Miner, error) {
	list, err := records(value)
	if err != nil {
		return nil, err
	}
	miners := make([]Miner, len(list))
	for i, record := range list {
		miners[i] = minerFromRecord(record)
	}
	return miners, nil
}

func roundsFromValue(value any) ([]Round, error) {
	list, err := records(value)
	if err != nil {
		return nil, err
	}
	rounds := make([]Round, len(list))
	for i, record := range list {
		rounds[i] = roundFromRecord(record)
	}
	return rounds, nil
}

func recordFromValue(value any) (idl.Record, error) {
	record, ok := value.(idl.Record)
	if !ok {
		return nil, fmt.Errorf("expected a record, got %T", value)
	}
	return record, nil
}

func natFromValue(value any) (*big.Int, error) {
	n, ok := value.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("expected an integer, got %T", value)
	}
	return n, nil
}
