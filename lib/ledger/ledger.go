// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/idl"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// Account identifies a ledger account: an owner principal and an
// optional 32-byte subaccount.
type Account struct {
	Owner      principal.Principal `json:"owner"`
	Subaccount []byte              `json:"subaccount,omitempty"`
}

func (a Account) record() idl.Record {
	record := idl.Record{"owner": a.Owner}
	if a.Subaccount != nil {
		record["subaccount"] = a.Subaccount
	}
	return record
}

// ApproveArgs are the arguments of icrc2_approve. Nil optional fields
// are omitted.
type ApproveArgs struct {
	Spender           Account
	Amount            *big.Int
	ExpectedAllowance *big.Int
	ExpiresAt         *big.Int
	Fee               *big.Int
	Memo              []byte
	FromSubaccount    []byte
	CreatedAtTime     *big.Int
}

func (a ApproveArgs) record() idl.Record {
	record := idl.Record{
		"spender": a.Spender.record(),
		"amount":  a.Amount,
	}
	setNat(record, "expected_allowance", a.ExpectedAllowance)
	setNat(record, "expires_at", a.ExpiresAt)
	setNat(record, "fee", a.Fee)
	if a.Memo != nil {
		record["memo"] = a.Memo
	}
	if a.FromSubaccount != nil {
		record["from_subaccount"] = a.FromSubaccount
	}
	setNat(record, "created_at_time", a.CreatedAtTime)
	return record
}

func setNat(record idl.Record, name string, value *big.Int) {
	if value != nil {
		record[name] = value
	}
}

// Metadata is the token description used to format amounts.
type Metadata struct {
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// MaxDecimals bounds the decimals a ledger may report.
const MaxDecimals = 36

// BalanceOf returns the balance of account in subunits.
func BalanceOf(ctx context.Context, handle *actor.Handle, account Account) (*big.Int, error) {
	value, err := handle.Call(ctx, MethodBalanceOf, account.record())
	if err != nil {
		return nil, err
	}
	return value.(*big.Int), nil
}

// Decimals returns the number of decimal places of one token.
func Decimals(ctx context.Context, handle *actor.Handle) (int, error) {
	value, err := handle.Call(ctx, MethodDecimals)
	if err != nil {
		return 0, err
	}
	decimals := value.(*big.Int)
	if !decimals.IsInt64() || decimals.Int64() > MaxDecimals {
		return 0, fmt.Errorf("ledger %s reports %s decimals", handle.Service(), decimals)
	}
	return int(decimals.Int64()), nil
}

// Symbol returns the token symbol.
func Symbol(ctx context.Context, handle *actor.Handle) (string, error) {
	value, err := handle.Call(ctx, MethodSymbol)
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// FetchMetadata returns the symbol and decimals of the token.
func FetchMetadata(ctx context.Context, handle *actor.Handle) (Metadata, error) {
	symbol, err := Symbol(ctx, handle)
	if err != nil {
		return Metadata{}, err
	}
	decimals, err := Decimals(ctx, handle)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{Symbol: symbol, Decimals: decimals}, nil
}

// Allowance returns how much spender may still transfer from account.
func Allowance(ctx context.Context, handle *actor.Handle, account, spender Account) (*big.Int, error) {
	value, err := handle.Call(ctx, MethodAllowance, idl.Record{
		"account": account.record(),
		"spender": spender.record(),
	})
	if err != nil {
		return nil, err
	}
	return value.(idl.Record).Nat("allowance"), nil
}

// ErrInvalidAmount is returned for non-positive approval amounts.
var ErrInvalidAmount = errors.New("amount must be positive")

// Approve authorizes args.Spender to transfer up to args.Amount from
// the caller's account and returns the ledger block index. A ledger
// refusal is returned as *actor.RemoteError.
func Approve(ctx context.Context, handle *actor.Handle, args ApproveArgs) (*big.Int, error) {
	if args.Amount == nil || args.Amount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	value, err := handle.CallResult(ctx, MethodApprove, args.record())
	if err != nil {
		return nil, err
	}
	return value.(*big.Int), nil
}
