// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package mockbackend

import (
	"context"
	"math/big"

	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/service"
)

// The ledgers are ICRC-shaped and always encode amounts as nat, with
// capitalized result tags.

var (
	accountArgs = idl.Rec(
		idl.F("owner", idl.Principal()),
		idl.F("subaccount", idl.Opt(idl.Blob())),
	)
	allowanceArgs = idl.Rec(
		idl.F("account", accountArgs),
		idl.F("spender", accountArgs),
	)
	approveArgs = idl.Rec(
		idl.F("spender", accountArgs),
		idl.F("amount", idl.Nat()),
		idl.F("expected_allowance", idl.Opt(idl.Nat())),
		idl.F("expires_at", idl.Opt(idl.Nat())),
		idl.F("fee", idl.Opt(idl.Nat())),
		idl.F("memo", idl.Opt(idl.Blob())),
		idl.F("from_subaccount", idl.Opt(idl.Blob())),
		idl.F("created_at_time", idl.Opt(idl.Nat())),
	)
)

func ledgerErr(tag string, payload any) map[string]any {
	return map[string]any{"Err": map[string]any{tag: payload}}
}

// ledgerState is one ICRC ledger. The metadata is fixed at creation;
// balances, allowances and blockIndex are guarded by Backend.mu.
type ledgerState struct {
	canister string
	symbol   string
	name     string
	decimals uint64
	fee      *big.Int

	balances   map[principal.Principal]*big.Int
	allowances map[allowanceKey]*big.Int
	blockIndex uint64
}

func newLedgerState(canister, symbol, name string, decimals uint64) *ledgerState {
	return &ledgerState{
		canister:   canister,
		symbol:     symbol,
		name:       name,
		decimals:   decimals,
		fee:        TransferFee,
		balances:   make(map[principal.Principal]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

func (l *ledgerState) credit(owner principal.Principal, amount *big.Int) {
	l.balances[owner] = new(big.Int).Add(l.balance(owner), amount)
}

func (l *ledgerState) balance(owner principal.Principal) *big.Int {
	if balance, ok := l.balances[owner]; ok {
		return new(big.Int).Set(balance)
	}
	return new(big.Int)
}

func (l *ledgerState) allowance(key allowanceKey) *big.Int {
	if allowance, ok := l.allowances[key]; ok {
		return new(big.Int).Set(allowance)
	}
	return new(big.Int)
}

func (b *Backend) registerLedger(l *ledgerState) {
	canister := l.canister

	b.handle(canister, "icrc1_balance_of", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, accountArgs)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		return l.balance(args[0].(idl.Record).Principal("owner")), nil
	})

	constant := func(value any) service.MethodFunc {
		return func(ctx context.Context, call *service.Call) (any, error) { return value, nil }
	}
	b.handle(canister, "icrc1_decimals", false, constant(l.decimals))
	b.handle(canister, "icrc1_symbol", false, constant(l.symbol))
	b.handle(canister, "icrc1_name", false, constant(l.name))
	b.handle(canister, "icrc1_fee", false, constant(l.fee))

	b.handle(canister, "icrc1_total_supply", false, func(ctx context.Context, call *service.Call) (any, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		total := new(big.Int)
		for _, balance := range l.balances {
			total.Add(total, balance)
		}
		return total, nil
	})

	b.handle(canister, "icrc2_allowance", false, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, allowanceArgs)
		if err != nil {
			return nil, err
		}
		request := args[0].(idl.Record)
		key := allowanceKey{
			owner:   request.Record("account").Principal("owner"),
			spender: request.Record("spender").Principal("owner"),
		}
		b.mu.Lock()
		defer b.mu.Unlock()
		return map[string]any{"allowance": l.allowance(key)}, nil
	})

	b.handle(canister, "icrc2_approve", true, func(ctx context.Context, call *service.Call) (any, error) {
		args, err := decodeArgs(call, approveArgs)
		if err != nil {
			return nil, err
		}
		request := args[0].(idl.Record)
		key := allowanceKey{owner: call.Caller, spender: request.Record("spender").Principal("owner")}
		amount := request.Nat("amount")

		b.mu.Lock()
		defer b.mu.Unlock()
		if fee := request.Opt("fee"); fee.Set && fee.Value.(*big.Int).Cmp(l.fee) != 0 {
			return ledgerErr("BadFee", map[string]any{"expected_fee": l.fee}), nil
		}
		balance := l.balance(call.Caller)
		if balance.Cmp(l.fee) < 0 {
			return ledgerErr("InsufficientFunds", map[string]any{"balance": balance}), nil
		}
		current := l.allowance(key)
		if expected := request.Opt("expected_allowance"); expected.Set && expected.Value.(*big.Int).Cmp(current) != 0 {
			return ledgerErr("AllowanceChanged", map[string]any{"current_allowance": current}), nil
		}

		l.balances[call.Caller] = new(big.Int).Sub(balance, l.fee)
		l.allowances[key] = new(big.Int).Set(amount)
		l.blockIndex++
		return map[string]any{"Ok": l.blockIndex}, nil
	})
}

// Fund credits amount to owner's DIRT balance.
func (b *Backend) Fund(owner principal.Principal, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dirt.credit(owner, amount)
}

// Balance returns owner's DIRT balance.
func (b *Backend) Balance(owner principal.Principal) *big.Int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dirt.balance(owner)
}

// FundAK69 credits amount to owner's AK69 balance.
func (b *Backend) FundAK69(owner principal.Principal, amount *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ak69.credit(owner, amount)
}

// transferFromLocked moves amount of DIRT from owner to the mining
// canister against the allowance owner granted it. It returns the
// TransferFromError payload on failure, nil on success.
func (b *Backend) transferFromLocked(owner principal.Principal, amount *big.Int) map[string]any {
	mining := principal.MustParse(b.miningCanister)
	key := allowanceKey{owner: owner, spender: mining}
	allowance := b.dirt.allowance(key)
	if allowance.Cmp(amount) < 0 {
		return map[string]any{"InsufficientAllowance": map[string]any{"allowance": allowance}}
	}
	balance := b.dirt.balance(owner)
	if balance.Cmp(amount) < 0 {
		return map[string]any{"InsufficientFunds": map[string]any{"balance": balance}}
	}
	b.dirt.balances[owner] = balance.Sub(balance, amount)
	b.dirt.allowances[key] = allowance.Sub(allowance, amount)
	b.dirt.credit(mining, amount)
	b.dirt.blockIndex++
	return nil
}
