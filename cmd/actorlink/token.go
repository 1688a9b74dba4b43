// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/cmd/actorlink/cli"
	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/config"
	"github.com/bureau-foundation/actorlink/lib/ledger"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

func tokenCommand() *cli.Command {
	return &cli.Command{
		Name:    "token",
		Summary: "Query the token ledgers and approve spending",
		Subcommands: []*cli.Command{
			tokenInfoCommand(),
			tokenBalanceCommand(),
			tokenAllowanceCommand(),
			tokenApproveCommand(),
		},
	}
}

// ledgerFlag is --ledger, naming the ICRC ledger service a token
// command talks to.
type ledgerFlag struct {
	Name string
}

func (f *ledgerFlag) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.Name, "ledger", "", "ledger service to use (default: the ledger the mining service charges)")
}

// ledgerHandle binds the ledger named by override, or the default
// ledger, and fetches its metadata.
func (c *client) ledgerHandle(ctx context.Context, override string) (*actor.Handle, ledger.Metadata, error) {
	name, err := c.serviceFor(config.ContractICRC, override)
	if err != nil {
		return nil, ledger.Metadata{}, err
	}
	handle, err := c.handle(ctx, name)
	if err != nil {
		return nil, ledger.Metadata{}, err
	}
	metadata, err := ledger.FetchMetadata(ctx, handle)
	if err != nil {
		return nil, ledger.Metadata{}, err
	}
	return handle, metadata, nil
}

// amountResult is the --json form of a token amount.
type amountResult struct {
	Owner     string   `json:"owner,omitempty"`
	Spender   string   `json:"spender,omitempty"`
	Subunits  *big.Int `json:"subunits"`
	Formatted string   `json:"formatted"`
	Symbol    string   `json:"symbol"`
}

func tokenInfoCommand() *cli.Command {
	var (
		flags      clientFlags
		output     cli.JSONOutput
		ledgerName ledgerFlag
	)
	return &cli.Command{
		Name:    "info",
		Summary: "Show the token symbol and decimals",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("info", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			ledgerName.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			_, metadata, err := client.ledgerHandle(ctx, ledgerName.Name)
			if err != nil {
				return err
			}
			if done, err := output.EmitJSON(metadata); done {
				return err
			}
			fmt.Printf("%s (%d decimals)\n", metadata.Symbol, metadata.Decimals)
			return nil
		},
	}
}

// ownerOrSelf parses text as a principal, defaulting to the client's
// identity.
func (c *client) ownerOrSelf(text string) (principal.Principal, error) {
	if text == "" {
		if c.credential.IsAnonymous() {
			return principal.Principal{}, fmt.Errorf("no identity configured: pass a principal")
		}
		return c.credential.Principal(), nil
	}
	return principal.Parse(text)
}

// ledgerBalance is one ledger's line of 'token balance'.
type ledgerBalance struct {
	Ledger string `json:"ledger"`
	amountResult
	Error string `json:"error,omitempty"`
}

// fetchBalances reads owner's balance on every named ledger
// concurrently. A ledger that fails is reported in its entry's Error
// and does not affect the others.
func fetchBalances(ctx context.Context, c *client, names []string, owner principal.Principal) []ledgerBalance {
	balances := make([]ledgerBalance, len(names))
	var waitGroup sync.WaitGroup
	for i, name := range names {
		waitGroup.Add(1)
		go func() {
			defer waitGroup.Done()
			entry := ledgerBalance{Ledger: name, amountResult: amountResult{Owner: owner.String()}}
			balance, metadata, err := c.balanceOn(ctx, name, owner)
			if err != nil {
				c.logger.Debug("ledger balance unavailable", "ledger", name, "error", err)
				entry.Error = err.Error()
			} else {
				entry.Subunits = balance
				entry.Formatted = ledger.FormatAmount(balance, metadata.Decimals)
				entry.Symbol = metadata.Symbol
			}
			balances[i] = entry
		}()
	}
	waitGroup.Wait()
	return balances
}

func (c *client) balanceOn(ctx context.Context, name string, owner principal.Principal) (*big.Int, ledger.Metadata, error) {
	handle, err := c.handle(ctx, name)
	if err != nil {
		return nil, ledger.Metadata{}, err
	}
	metadata, err := ledger.FetchMetadata(ctx, handle)
	if err != nil {
		return nil, ledger.Metadata{}, err
	}
	balance, err := ledger.BalanceOf(ctx, handle, ledger.Account{Owner: owner})
	if err != nil {
		return nil, ledger.Metadata{}, err
	}
	return balance, metadata, nil
}

func renderBalances(w io.Writer, balances []ledgerBalance) {
	table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, entry := range balances {
		if entry.Error != "" {
			fmt.Fprintf(table, "%s\tN/A\t(unavailable)\n", entry.Ledger)
			continue
		}
		fmt.Fprintf(table, "%s\t%s\t%s\n", entry.Ledger, entry.Formatted, entry.Symbol)
	}
	table.Flush()
}

func tokenBalanceCommand() *cli.Command {
	var (
		flags      clientFlags
		output     cli.JSONOutput
		ledgerName ledgerFlag
	)
	return &cli.Command{
		Name:    "balance",
		Summary: "Show token balances on every configured ledger",
		Description: `Show the balance of PRINCIPAL, by default your own, on every ICRC
ledger in the config. Ledgers are queried concurrently; one that
cannot be reached is shown as N/A. With --ledger only that ledger is
queried.`,
		Usage: "actorlink token balance [PRINCIPAL] [--ledger NAME]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("balance", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			ledgerName.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: actorlink token balance [PRINCIPAL]")
			}
			ctx, cancel := commandContext()
			defer cancel()
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			owner, err := client.ownerOrSelf(firstArg(args))
			if err != nil {
				return err
			}
			names := client.config.ServicesWithContract(config.ContractICRC)
			if ledgerName.Name != "" {
				name, err := client.serviceFor(config.ContractICRC, ledgerName.Name)
				if err != nil {
					return err
				}
				names = []string{name}
			}
			if len(names) == 0 {
				return fmt.Errorf("no icrc ledger configured")
			}

			balances := fetchBalances(ctx, client, names, owner)
			if done, err := output.EmitJSON(balances); done {
				return err
			}
			renderBalances(os.Stdout, balances)
			for _, entry := range balances {
				if entry.Error == "" {
					return nil
				}
			}
			return fmt.Errorf("no ledger answered: %s", balances[0].Error)
		},
	}
}

func tokenAllowanceCommand() *cli.Command {
	var (
		flags      clientFlags
		output     cli.JSONOutput
		ledgerName ledgerFlag
		spender    string
	)
	return &cli.Command{
		Name:    "allowance",
		Summary: "Show how much a spender may transfer from your account",
		Usage:   "actorlink token allowance [--spender PRINCIPAL] [--ledger NAME]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("allowance", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			ledgerName.AddFlags(flagSet)
			flagSet.StringVar(&spender, "spender", "", "spender principal (default: the mining service)")
			return flagSet
		},
		Run: func(args []string) error {
			ctx, cancel := commandContext()
			defer cancel()
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			owner, err := client.ownerOrSelf("")
			if err != nil {
				return err
			}
			spenderPrincipal, err := client.spender(spender)
			if err != nil {
				return err
			}
			handle, metadata, err := client.ledgerHandle(ctx, ledgerName.Name)
			if err != nil {
				return err
			}
			allowance, err := ledger.Allowance(ctx, handle, ledger.Account{Owner: owner}, ledger.Account{Owner: spenderPrincipal})
			if err != nil {
				return err
			}

			result := amountResult{
				Owner:     owner.String(),
				Spender:   spenderPrincipal.String(),
				Subunits:  allowance,
				Formatted: ledger.FormatAmount(allowance, metadata.Decimals),
				Symbol:    metadata.Symbol,
			}
			if done, err := output.EmitJSON(result); done {
				return err
			}
			fmt.Printf("%s %s\n", result.Formatted, result.Symbol)
			return nil
		},
	}
}

// spender parses text, defaulting to the mining service's canister.
func (c *client) spender(text string) (principal.Principal, error) {
	if text != "" {
		return principal.Parse(text)
	}
	miningService, err := c.serviceFor(config.ContractMining, "")
	if err != nil {
		return principal.Principal{}, err
	}
	canisterID, err := c.canisterID(miningService)
	if err != nil {
		return principal.Principal{}, err
	}
	return principal.Parse(canisterID)
}

func tokenApproveCommand() *cli.Command {
	var (
		flags      clientFlags
		output     cli.JSONOutput
		ledgerName ledgerFlag
		spender    string
	)
	return &cli.Command{
		Name:    "approve",
		Summary: "Allow a spender to transfer tokens from your account",
		Description: `Approve a spender, by default the mining service, to transfer up to
AMOUNT tokens from your account on the DIRT ledger, or on the ledger
named by --ledger. AMOUNT is in whole tokens. The ledger charges its
transfer fee from your balance.`,
		Usage: "actorlink token approve AMOUNT [--spender PRINCIPAL] [--ledger NAME]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("approve", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			ledgerName.AddFlags(flagSet)
			flagSet.StringVar(&spender, "spender", "", "spender principal (default: the mining service)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: actorlink token approve AMOUNT")
			}
			ctx, cancel := commandContext()
			defer cancel()
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()
			if err := client.requireIdentity(); err != nil {
				return err
			}

			spenderPrincipal, err := client.spender(spender)
			if err != nil {
				return err
			}
			handle, metadata, err := client.ledgerHandle(ctx, ledgerName.Name)
			if err != nil {
				return err
			}
			amount, err := ledger.ToSubunits(args[0], metadata.Decimals)
			if err != nil {
				return err
			}
			blockIndex, err := ledger.Approve(ctx, handle, ledger.ApproveArgs{
				Spender: ledger.Account{Owner: spenderPrincipal},
				Amount:  amount,
			})
			if err != nil {
				return err
			}

			if done, err := output.EmitJSON(map[string]any{
				"spender":    spenderPrincipal.String(),
				"subunits":   amount,
				"blockIndex": blockIndex,
			}); done {
				return err
			}
			fmt.Printf("approved %s %s for %s (block %s)\n",
				ledger.FormatAmount(amount, metadata.Decimals), metadata.Symbol, spenderPrincipal, blockIndex)
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
