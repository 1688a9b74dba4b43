// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger calls token ledgers that implement the ICRC-1 and
// ICRC-2 standards: balances, token metadata and spending approvals.
//
// Calls go through an [actor.Handle] bound to the ledger service, so
// the caller's identity and the tolerant decoding of replies come from
// the handle. Approval failures are surfaced verbatim as
// *actor.RemoteError with the ledger's error tag (InsufficientFunds,
// BadFee, ...).
package ledger

import "github.com/bureau-foundation/actorlink/lib/idl"

// Method names.
const (
	MethodBalanceOf   = "icrc1_balance_of"
	MethodDecimals    = "icrc1_decimals"
	MethodSymbol      = "icrc1_symbol"
	MethodName        = "icrc1_name"
	MethodFee         = "icrc1_fee"
	MethodTotalSupply = "icrc1_total_supply"
	MethodAllowance   = "icrc2_allowance"
	MethodApprove     = "icrc2_approve"
)

var (
	// AccountType is an ICRC-1 account.
	AccountType = idl.Rec(
		idl.F("owner", idl.Principal()),
		idl.F("subaccount", idl.Opt(idl.Blob())),
	)

	// ApproveErrorType is the error alternative of icrc2_approve.
	ApproveErrorType = idl.Variant(
		idl.F("InsufficientFunds", idl.Rec(idl.F("balance", idl.Nat()))),
		idl.F("TooOld", idl.Null()),
		idl.F("Duplicate", idl.Rec(idl.F("duplicate_of", idl.Nat()))),
		idl.F("BadFee", idl.Rec(idl.F("expected_fee", idl.Nat()))),
		idl.F("AllowanceChanged", idl.Rec(idl.F("current_allowance", idl.Nat()))),
		idl.F("CreatedInFuture", idl.Rec(idl.F("ledger_time", idl.Nat()))),
		idl.F("TemporarilyUnavailable", idl.Null()),
		idl.F("Expired", idl.Rec(idl.F("ledger_time", idl.Nat()))),
		idl.F("GenericError", idl.Rec(idl.F("message", idl.Text()), idl.F("error_code", idl.Nat()))),
	)

	// TransferFromErrorType is the error of icrc2_transfer_from. The
	// mining service embeds it in its own errors.
	TransferFromErrorType = idl.Variant(
		idl.F("InsufficientFunds", idl.Rec(idl.F("balance", idl.Nat()))),
		idl.F("TooOld", idl.Null()),
		idl.F("Duplicate", idl.Rec(idl.F("duplicate_of", idl.Nat()))),
		idl.F("BadFee", idl.Rec(idl.F("expected_fee", idl.Nat()))),
		idl.F("CreatedInFuture", idl.Rec(idl.F("ledger_time", idl.Nat()))),
		idl.F("TemporarilyUnavailable", idl.Null()),
		idl.F("InsufficientAllowance", idl.Rec(idl.F("allowance", idl.Nat()))),
		idl.F("BadBurn", idl.Rec(idl.F("min_burn_amount", idl.Nat()))),
		idl.F("GenericError", idl.Rec(idl.F("message", idl.Text()), idl.F("error_code", idl.Nat()))),
	)

	approveArgsType = idl.Rec(
		idl.F("spender", AccountType),
		idl.F("amount", idl.Nat()),
		idl.F("expected_allowance", idl.Opt(idl.Nat())),
		idl.F("expires_at", idl.Opt(idl.Nat())),
		idl.F("fee", idl.Opt(idl.Nat())),
		idl.F("memo", idl.Opt(idl.Blob())),
		idl.F("from_subaccount", idl.Opt(idl.Blob())),
		idl.F("created_at_time", idl.Opt(idl.Nat())),
	)

	allowanceArgsType = idl.Rec(
		idl.F("account", AccountType),
		idl.F("spender", AccountType),
	)

	allowanceType = idl.Rec(
		idl.F("allowance", idl.Nat()),
		idl.F("expires_at", idl.Opt(idl.Nat())),
	)
)

// Contract returns the ledger interface.
func Contract() *idl.Service {
	return idl.NewService("ledger",
		idl.Method{Name: MethodBalanceOf, Args: []*idl.Type{AccountType}, Result: idl.Nat(), Query: true},
		idl.Method{Name: MethodDecimals, Result: idl.Nat(), Query: true},
		idl.Method{Name: MethodSymbol, Result: idl.Text(), Query: true},
		idl.Method{Name: MethodName, Result: idl.Text(), Query: true},
		idl.Method{Name: MethodFee, Result: idl.Nat(), Query: true},
		idl.Method{Name: MethodTotalSupply, Result: idl.Nat(), Query: true},
		idl.Method{Name: MethodAllowance, Args: []*idl.Type{allowanceArgsType}, Result: allowanceType, Query: true},
		idl.Method{Name: MethodApprove, Args: []*idl.Type{approveArgsType}, Result: idl.Result(idl.Nat(), ApproveErrorType)},
	)
}
