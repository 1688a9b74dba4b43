// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mining

import (
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/ledger"
)

// Method names.
const (
	MethodUserMinersDetailed = "getUserMinersDetailed"
	MethodUserStats          = "getUserStats"
	MethodCurrentRound       = "getCurrentRound"
	MethodTimeToNextBlock    = "getTimeToNextBlock"
	MethodBlockReward        = "getBlockReward"
	MethodMiningConfig       = "getMiningConfig"
	MethodUserDashboard      = "getUserDashboard"
	MethodUserMiningWins     = "getUserMiningWins"
	MethodMiner              = "getMiner"
	MethodCreateMiner        = "createMiner"
	MethodEditMiner          = "editMiner"
	MethodTopUpMiner         = "topUpMiner"
	MethodPauseMiner         = "pauseMiner"
	MethodResumeMiner        = "resumeMiner"
	MethodDirtToken          = "getDirtToken"
)

// MinerErrorType is the error alternative of every mutating method.
var MinerErrorType = idl.Variant(
	idl.F("InvalidInput", idl.Text()),
	idl.F("TransferError", ledger.TransferFromErrorType),
	idl.F("SystemError", idl.Text()),
	idl.F("NotAuthorized", idl.Text()),
	idl.F("MinerNotFound", idl.Text()),
	idl.F("InvalidDirtRate", idl.Text()),
	idl.F("InsufficientFunds", idl.Text()),
)

// The builders below take the numeric type used for every counter,
// so that one shape can be declared as nat, int or numeric text.

// MinerType is a miner as listed by getUserMinersDetailed.
func MinerType(n *idl.Type) *idl.Type {
	return idl.Rec(
		idl.F("id", n),
		idl.F("owner", idl.Principal()),
		idl.F("name", idl.Text()),
		idl.F("miningPower", n),
		idl.F("dailyDirtRate", n),
		idl.F("dirtBalance", n),
		idl.F("createdAt", n),
		idl.F("isActive", idl.Bool()),
		idl.F("lastActiveBlock", n),
		idl.F("lifetimeWins", idl.Opt(n)),
	)
}

// StatsType is the per-user aggregate of getUserStats.
func StatsType(n *idl.Type) *idl.Type {
	return idl.Rec(
		idl.F("totalMiners", n),
		idl.F("activeMiners", n),
		idl.F("totalDailyRate", n),
		idl.F("totalDirtBalance", n),
		idl.F("totalMiningPower", n),
	)
}

// WinningStatsType is the user's win history summary.
func WinningStatsType(n *idl.Type) *idl.Type {
	return idl.Rec(
		idl.F("totalRewards", n),
		idl.F("totalWins", n),
		idl.F("lastWinRound", idl.Opt(n)),
		idl.F("longestWinStreak", n),
		idl.F("currentWinStreak", n),
	)
}

// RoundType is one mining round.
func RoundType(n *idl.Type) *idl.Type {
	return idl.Rec(
		idl.F("roundId", n),
		idl.F("startTime", n),
		idl.F("endTime", n),
		idl.F("isCompleted", idl.Bool()),
		idl.F("winner", idl.Opt(idl.Principal())),
		idl.F("winnerMiner", idl.Opt(n)),
		idl.F("randomSeed", idl.Opt(idl.Blob())),
		idl.F("totalDirtConsumed", n),
		idl.F("totalActiveMiners", n),
		idl.F("rewardsPaid", n),
	)
}

// SystemInfoType is the system section of getUserDashboard.
func SystemInfoType(n *idl.Type) *idl.Type {
	return idl.Rec(
		idl.F("currentRound", n),
		idl.F("timeToNextBlock", n),
		idl.F("blockReward", n),
	)
}

// UserDashboardType is the combined reply of getUserDashboard.
func UserDashboardType(n *idl.Type) *idl.Type {
	return idl.Rec(
		idl.F("miners", idl.Vec(MinerType(n))),
		idl.F("stats", StatsType(n)),
		idl.F("winningStats", WinningStatsType(n)),
		idl.F("recentWins", idl.Vec(RoundType(n))),
		idl.F("systemInfo", SystemInfoType(n)),
	)
}

// MiningConfigType is the reply of getMiningConfig.
func MiningConfigType(n *idl.Type) *idl.Type {
	return idl.Rec(
		idl.F("blockDurationSeconds", n),
		idl.F("minDailyRate", n),
		idl.F("maxDailyRate", n),
		idl.F("blockReward", n),
	)
}

var minerCreationArgsType = idl.Rec(
	idl.F("name", idl.Text()),
	idl.F("miningPower", idl.Nat()),
	idl.F("dailyDirtRate", idl.Nat()),
	idl.F("initialDirtAmount", idl.Nat()),
)

// Contract returns the published mining interface, which declares
// every counter as nat.
func Contract() *idl.Service {
	n := idl.Nat()
	return idl.NewService("mining",
		idl.Method{Name: MethodUserMinersDetailed, Args: []*idl.Type{idl.Principal()}, Result: idl.Vec(MinerType(n)), Query: true},
		idl.Method{Name: MethodUserStats, Args: []*idl.Type{idl.Principal()}, Result: StatsType(n), Query: true},
		idl.Method{Name: MethodCurrentRound, Result: n, Query: true},
		idl.Method{Name: MethodTimeToNextBlock, Result: n, Query: true},
		idl.Method{Name: MethodBlockReward, Result: n, Query: true},
		idl.Method{Name: MethodMiningConfig, Result: MiningConfigType(n), Query: true},
		idl.Method{Name: MethodUserDashboard, Args: []*idl.Type{idl.Principal()}, Result: UserDashboardType(n), Query: true},
		idl.Method{Name: MethodUserMiningWins, Args: []*idl.Type{idl.Principal(), idl.Nat()}, Result: idl.Vec(RoundType(n)), Query: true},
		idl.Method{Name: MethodMiner, Args: []*idl.Type{idl.Nat()}, Result: idl.Opt(MinerType(n)), Query: true},
		idl.Method{Name: MethodDirtToken, Result: idl.Principal(), Query: true},
		idl.Method{Name: MethodCreateMiner, Args: []*idl.Type{minerCreationArgsType}, Result: idl.Result(n, MinerErrorType)},
		idl.Method{
			Name:   MethodEditMiner,
			Args:   []*idl.Type{idl.Nat(), idl.Opt(idl.Text()), idl.Opt(idl.Nat()), idl.Opt(idl.Nat())},
			Result: idl.Result(idl.Bool(), MinerErrorType),
		},
		idl.Method{Name: MethodTopUpMiner, Args: []*idl.Type{idl.Nat(), idl.Nat()}, Result: idl.Result(idl.Bool(), MinerErrorType)},
		idl.Method{Name: MethodPauseMiner, Args: []*idl.Type{idl.Nat()}, Result: idl.Result(idl.Bool(), MinerErrorType)},
		idl.Method{Name: MethodResumeMiner, Args: []*idl.Type{idl.Nat()}, Result: idl.Result(idl.Bool(), MinerErrorType)},
	)
}
