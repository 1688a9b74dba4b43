// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mining

import (
	"fmt"

	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/tolerant"
)

// Numeric encodings a mining deployment has been seen to use for its
// counters.
const (
	NumericNat  = "nat"
	NumericInt  = "int"
	NumericText = "text"
)

// DefaultNumericOrder tries the published encoding first, then the
// signed encoding older deployments used, then numeric text.
var DefaultNumericOrder = []string{NumericNat, NumericInt, NumericText}

// numericType maps an encoding name to its idl type.
func numericType(name string) (*idl.Type, error) {
	switch name {
	case NumericNat:
		return idl.Nat(), nil
	case NumericInt:
		return idl.Int(), nil
	case NumericText:
		return idl.IntText(), nil
	default:
		return nil, fmt.Errorf("unknown numeric encoding %q (want nat, int or text)", name)
	}
}

// Variants holds the decode variant lists for the drifting methods.
type Variants struct {
	Order []string

	Miners        []tolerant.Variant
	Miner         []tolerant.Variant
	Stats         []tolerant.Variant
	Scalar        []tolerant.Variant
	Rounds        []tolerant.Variant
	UserDashboard []tolerant.Variant
	MiningConfig  []tolerant.Variant
	MinerID       []tolerant.Variant
}

// NewVariants builds every variant list in the given numeric order.
// An empty order uses DefaultNumericOrder.
func NewVariants(order []string) (Variants, error) {
	if len(order) == 0 {
		order = DefaultNumericOrder
	}
	variants := Variants{Order: append([]string(nil), order...)}
	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if seen[name] {
			return Variants{}, fmt.Errorf("numeric encoding %q listed twice", name)
		}
		seen[name] = true
		n, err := numericType(name)
		if err != nil {
			return Variants{}, err
		}
		variants.Miners = append(variants.Miners, tolerant.Variant{Name: name, Type: idl.Vec(MinerType(n))})
		variants.Miner = append(variants.Miner, tolerant.Variant{Name: name, Type: idl.Opt(MinerType(n))})
		variants.Stats = append(variants.Stats, tolerant.Variant{Name: name, Type: StatsType(n)})
		variants.Scalar = append(variants.Scalar, tolerant.Variant{Name: name, Type: n})
		variants.Rounds = append(variants.Rounds, tolerant.Variant{Name: name, Type: idl.Vec(RoundType(n))})
		variants.UserDashboard = append(variants.UserDashboard, tolerant.Variant{Name: name, Type: UserDashboardType(n)})
		variants.MiningConfig = append(variants.MiningConfig, tolerant.Variant{Name: name, Type: MiningConfigType(n)})
		variants.MinerID = append(variants.MinerID, tolerant.Variant{Name: name, Type: idl.Result(n, MinerErrorType)})
	}
	return variants, nil
}

// MinerVariants is the miner list variant set in the default order.
func MinerVariants() []tolerant.Variant {
	variants, _ := NewVariants(nil)
	return variants.Miners
}

// ByMethod maps each drifting method to its variant list, in the
// shape ServiceDescriptor.Variants expects.
func (v Variants) ByMethod() map[string][]tolerant.Variant {
	return map[string][]tolerant.Variant{
		MethodUserMinersDetailed: v.Miners,
		MethodMiner:              v.Miner,
		MethodUserStats:          v.Stats,
		MethodCurrentRound:       v.Scalar,
		MethodTimeToNextBlock:    v.Scalar,
		MethodBlockReward:        v.Scalar,
		MethodMiningConfig:       v.MiningConfig,
		MethodUserDashboard:      v.UserDashboard,
		MethodUserMiningWins:     v.Rounds,
		MethodCreateMiner:        v.MinerID,
	}
}

// Descriptor returns the mining service descriptor decoding drifting
// replies with variants.
func Descriptor(name, endpoint, canisterID string, variants Variants) actor.ServiceDescriptor {
	return actor.ServiceDescriptor{
		Name:       name,
		Endpoint:   endpoint,
		CanisterID: canisterID,
		Contract:   Contract(),
		Variants:   variants.ByMethod(),
	}
}
