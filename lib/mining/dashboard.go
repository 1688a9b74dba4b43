// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mining

import (
	"context"
	"math/big"

	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/dashboard"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// Dashboard field names.
const (
	FieldMiners          = "miners"
	FieldStats           = "stats"
	FieldCurrentRound    = "currentRound"
	FieldTimeToNextBlock = "timeToNextBlock"
	FieldBlockReward     = "blockReward"
	FieldWinningStats    = "winningStats"
	FieldRecentWins      = "recentWins"
)

// DefaultRecentWinsLimit is how many recent wins the dashboard asks
// for.
const DefaultRecentWinsLimit = 10

// Dashboard is the user's mining overview.
type Dashboard struct {
	User            principal.Principal `json:"user"`
	Miners          []Miner             `json:"miners"`
	Stats           Stats               `json:"stats"`
	CurrentRound    *big.Int            `json:"currentRound"`
	TimeToNextBlock *big.Int            `json:"timeToNextBlock"`
	BlockReward     *big.Int            `json:"blockReward"`
	WinningStats    WinningStats        `json:"winningStats"`
	RecentWins      []Round             `json:"recentWins"`

	// Provenance records, per field, where the value came from.
	Provenance map[string]FieldStatus `json:"provenance"`
}

// FieldStatus is the provenance of one dashboard field.
type FieldStatus struct {
	Source  dashboard.Source `json:"source"`
	Attempt string           `json:"attempt,omitempty"`
	Variant string           `json:"variant,omitempty"`
	Errors  []string         `json:"errors,omitempty"`
}

// Partial reports whether any field fell back to its default.
func (d Dashboard) Partial() bool {
	for _, status := range d.Provenance {
		if status.Source == dashboard.Unavailable {
			return true
		}
	}
	return false
}

// DashboardOptions configures the plan.
type DashboardOptions struct {
	// Service is the registry name of the mining service.
	Service string

	// RecentWinsLimit bounds recentWins. Zero uses
	// DefaultRecentWinsLimit.
	RecentWinsLimit int
}

// Plan returns the dashboard field plan for user. Every field except
// winningStats and recentWins has a dedicated primary method and falls
// back to the combined getUserDashboard reply; blockReward falls back
// to getMiningConfig. recentWins has no fallback.
func Plan(user principal.Principal, options DashboardOptions) dashboard.Plan {
	service := options.Service
	limit := options.RecentWinsLimit
	if limit <= 0 {
		limit = DefaultRecentWinsLimit
	}

	userArg := func(dashboard.Values) ([]any, error) { return []any{user}, nil }

	// fromUserDashboard extracts one section of getUserDashboard.
	fromUserDashboard := func(convert func(any) (any, error), path ...string) dashboard.Attempt {
		return dashboard.Attempt{
			Label:   MethodUserDashboard + "." + path[len(path)-1],
			Service: service,
			Method:  MethodUserDashboard,
			Args:    userArg,
			Convert: func(decoded any, _ dashboard.Values) (any, error) {
				value := decoded
				for _, name := range path {
					record, err := recordFromValue(value)
					if err != nil {
						return nil, err
					}
					value = record[name]
				}
				return convert(value)
			},
		}
	}

	convertMiners := func(value any) (any, error) { return minersFromValue(value) }
	convertStats := func(value any) (any, error) {
		record, err := recordFromValue(value)
		if err != nil {
			return nil, err
		}
		return statsFromRecord(record), nil
	}
	convertWinningStats := func(value any) (any, error) {
		record, err := recordFromValue(value)
		if err != nil {
			return nil, err
		}
		return winningStatsFromRecord(record), nil
	}
	convertNat := func(value any) (any, error) { return natFromValue(value) }
	convertRounds := func(value any) (any, error) { return roundsFromValue(value) }

	direct := func(method string, args func(dashboard.Values) ([]any, error), convert func(any) (any, error)) dashboard.Attempt {
		return dashboard.Attempt{
			Service: service,
			Method:  method,
			Args:    args,
			Convert: func(decoded any, _ dashboard.Values) (any, error) { return convert(decoded) },
		}
	}

	return dashboard.Plan{
		{
			Name:    FieldMiners,
			Default: []Miner{},
			Attempts: []dashboard.Attempt{
				direct(MethodUserMinersDetailed, userArg, convertMiners),
				fromUserDashboard(convertMiners, "miners"),
			},
		},
		{
			Name:    FieldStats,
			Default: zeroStats(),
			Attempts: []dashboard.Attempt{
				direct(MethodUserStats, userArg, convertStats),
				fromUserDashboard(convertStats, "stats"),
			},
		},
		{
			Name:    FieldCurrentRound,
			Default: new(big.Int),
			Attempts: []dashboard.Attempt{
				direct(MethodCurrentRound, nil, convertNat),
				fromUserDashboard(convertNat, "systemInfo", "currentRound"),
			},
		},
		{
			Name:    FieldTimeToNextBlock,
			Default: new(big.Int),
			Attempts: []dashboard.Attempt{
				direct(MethodTimeToNextBlock, nil, convertNat),
				fromUserDashboard(convertNat, "systemInfo", "timeToNextBlock"),
			},
		},
		{
			Name:    FieldBlockReward,
			Default: new(big.Int),
			Attempts: []dashboard.Attempt{
				direct(MethodBlockReward, nil, convertNat),
				{
					Label:   MethodMiningConfig + ".blockReward",
					Service: service,
					Method:  MethodMiningConfig,
					Convert: func(decoded any, _ dashboard.Values) (any, error) {
						record, err := recordFromValue(decoded)
						if err != nil {
							return nil, err
						}
						return natFromValue(record["blockReward"])
					},
				},
			},
		},
		{
			Name:    FieldWinningStats,
			Default: zeroWinningStats(),
			Attempts: []dashboard.Attempt{
				fromUserDashboard(convertWinningStats, "winningStats"),
			},
		},
		{
			Name:    FieldRecentWins,
			Default: []Round{},
			Attempts: []dashboard.Attempt{
				direct(MethodUserMiningWins, func(dashboard.Values) ([]any, error) {
					return []any{user, limit}, nil
				}, convertRounds),
			},
		},
	}
}

// BuildDashboard assembles the mining dashboard of user with the
// identity cred. It always returns a dashboard; fields that could not
// be fetched hold zero values and are marked unavailable in
// Provenance.
func BuildDashboard(ctx context.Context, aggregator *dashboard.Aggregator, cred credential.Credential, user principal.Principal, options DashboardOptions) Dashboard {
	view := aggregator.Build(ctx, cred, Plan(user, options))

	result := Dashboard{
		User:            user,
		Miners:          view.Get(FieldMiners).([]Miner),
		Stats:           view.Get(FieldStats).(Stats),
		CurrentRound:    view.Get(FieldCurrentRound).(*big.Int),
		TimeToNextBlock: view.Get(FieldTimeToNextBlock).(*big.Int),
		BlockReward:     view.Get(FieldBlockReward).(*big.Int),
		WinningStats:    view.Get(FieldWinningStats).(WinningStats),
		RecentWins:      view.Get(FieldRecentWins).([]Round),
		Provenance:      make(map[string]FieldStatus, len(view.Names())),
	}
	for _, name := range view.Names() {
		field, _ := view.Field(name)
		status := FieldStatus{Source: field.Source, Attempt: field.Attempt, Variant: field.Variant}
		for _, err := range field.Errors {
			status.Errors = append(status.Errors, err.Error())
		}
		result.Provenance[name] = status
	}
	return result
}
