// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/cmd/actorlink/cli"
	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/config"
	"github.com/bureau-foundation/actorlink/lib/ledger"
	"github.com/bureau-foundation/actorlink/lib/mining"
)

func minerCommand() *cli.Command {
	return &cli.Command{
		Name:    "miner",
		Summary: "Create and manage miners",
		Description: `Create, edit, fund, pause and resume miners.

Creating or topping up a miner transfers DIRT from your ledger
account, so approve the mining service first with 'actorlink token
approve'. Errors reported by the mining service are printed verbatim.`,
		Subcommands: []*cli.Command{
			minerCreateCommand(),
			minerShowCommand(),
			minerEditCommand(),
			minerTopUpCommand(),
			minerStateCommand("pause", "Pause a miner", mining.Pause),
			minerStateCommand("resume", "Resume a paused miner", mining.Resume),
		},
	}
}

// parseNat parses a non-negative decimal integer.
func parseNat(what, text string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(text, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("%s: %q is not a non-negative integer", what, text)
	}
	return value, nil
}

// parseTokenAmount converts a decimal token amount into subunits using
// the ledger's decimals.
func (c *client) parseTokenAmount(ctx context.Context, text string) (*big.Int, ledger.Metadata, error) {
	metadata, err := c.tokenMetadata(ctx)
	if err != nil {
		return nil, ledger.Metadata{}, fmt.Errorf("fetching token metadata: %w", err)
	}
	amount, err := ledger.ToSubunits(text, metadata.Decimals)
	if err != nil {
		return nil, ledger.Metadata{}, err
	}
	return amount, metadata, nil
}

// miningHandle connects, checks the identity and binds the mining
// service.
func (f *clientFlags) miningHandle(ctx context.Context) (*client, *actor.Handle, error) {
	client, err := f.connect()
	if err != nil {
		return nil, nil, err
	}
	if err := client.requireIdentity(); err != nil {
		client.Close()
		return nil, nil, err
	}
	handle, err := client.handleFor(ctx, config.ContractMining)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, handle, nil
}

func minerCreateCommand() *cli.Command {
	var (
		flags  clientFlags
		output cli.JSONOutput
		name   string
		power  string
		rate   string
		amount string
	)
	return &cli.Command{
		Name:    "create",
		Summary: "Create a miner",
		Usage:   "actorlink miner create --name NAME --power N --rate N --amount DIRT",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("create", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			flagSet.StringVar(&name, "name", "", "miner name")
			flagSet.StringVar(&power, "power", "", "mining power")
			flagSet.StringVar(&rate, "rate", "", "daily DIRT consumption rate")
			flagSet.StringVar(&amount, "amount", "", "initial DIRT funding in whole tokens, e.g. 12.5")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			if name == "" || power == "" || rate == "" || amount == "" {
				return fmt.Errorf("--name, --power, --rate and --amount are required")
			}
			miningPower, err := parseNat("--power", power)
			if err != nil {
				return err
			}
			dailyRate, err := parseNat("--rate", rate)
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()
			client, handle, err := flags.miningHandle(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			initial, _, err := client.parseTokenAmount(ctx, amount)
			if err != nil {
				return fmt.Errorf("--amount: %w", err)
			}
			id, err := mining.CreateMiner(ctx, handle, mining.CreateArgs{
				Name:              name,
				MiningPower:       miningPower,
				DailyDirtRate:     dailyRate,
				InitialDirtAmount: initial,
			})
			if err != nil {
				return err
			}
			if done, err := output.EmitJSON(map[string]any{"id": id}); done {
				return err
			}
			fmt.Printf("created miner %s\n", id)
			return nil
		},
	}
}

func minerShowCommand() *cli.Command {
	var (
		flags  clientFlags
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "show",
		Summary: "Show one miner",
		Usage:   "actorlink miner show ID",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: actorlink miner show ID")
			}
			id, err := parseNat("miner id", args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()
			handle, err := client.handleFor(ctx, config.ContractMining)
			if err != nil {
				return err
			}

			miner, err := mining.GetMiner(ctx, handle, id)
			if err != nil {
				return err
			}
			if miner == nil {
				return fmt.Errorf("miner %s does not exist", id)
			}
			if done, err := output.EmitJSON(miner); done {
				return err
			}

			state := "paused"
			if miner.IsActive {
				state = "active"
			}
			fmt.Fprintf(os.Stdout, "miner %s %q (%s)\n", miner.ID, miner.Name, state)
			fmt.Fprintf(os.Stdout, "  owner:      %s\n", miner.Owner)
			fmt.Fprintf(os.Stdout, "  power:      %s\n", natString(miner.MiningPower))
			fmt.Fprintf(os.Stdout, "  daily rate: %s\n", natString(miner.DailyDirtRate))
			fmt.Fprintf(os.Stdout, "  balance:    %s\n", natString(miner.DirtBalance))
			return nil
		},
	}
}

func minerEditCommand() *cli.Command {
	var (
		flags clientFlags
		name  string
		power string
		rate  string
	)
	return &cli.Command{
		Name:    "edit",
		Summary: "Change a miner's name, power or rate",
		Usage:   "actorlink miner edit ID [--name NAME] [--power N] [--rate N]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("edit", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			flagSet.StringVar(&name, "name", "", "new name")
			flagSet.StringVar(&power, "power", "", "new mining power")
			flagSet.StringVar(&rate, "rate", "", "new daily DIRT rate")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: actorlink miner edit ID [flags]")
			}
			id, err := parseNat("miner id", args[0])
			if err != nil {
				return err
			}
			var edit mining.EditArgs
			if name != "" {
				edit.Name = &name
			}
			if power != "" {
				if edit.MiningPower, err = parseNat("--power", power); err != nil {
					return err
				}
			}
			if rate != "" {
				if edit.DailyDirtRate, err = parseNat("--rate", rate); err != nil {
					return err
				}
			}
			if edit.Name == nil && edit.MiningPower == nil && edit.DailyDirtRate == nil {
				return fmt.Errorf("nothing to change: pass --name, --power or --rate")
			}

			ctx, cancel := commandContext()
			defer cancel()
			client, handle, err := flags.miningHandle(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := mining.EditMiner(ctx, handle, id, edit); err != nil {
				return err
			}
			fmt.Printf("updated miner %s\n", id)
			return nil
		},
	}
}

func minerTopUpCommand() *cli.Command {
	var flags clientFlags
	return &cli.Command{
		Name:    "top-up",
		Summary: "Add DIRT to a miner",
		Usage:   "actorlink miner top-up ID AMOUNT",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("top-up", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return fmt.Errorf("usage: actorlink miner top-up ID AMOUNT")
			}
			id, err := parseNat("miner id", args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()
			client, handle, err := flags.miningHandle(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			amount, metadata, err := client.parseTokenAmount(ctx, args[1])
			if err != nil {
				return err
			}
			if err := mining.TopUp(ctx, handle, id, amount); err != nil {
				return err
			}
			fmt.Printf("added %s %s to miner %s\n", ledger.FormatAmount(amount, metadata.Decimals), metadata.Symbol, id)
			return nil
		},
	}
}

// minerStateCommand builds pause and resume, which differ only in the
// operation they call.
func minerStateCommand(name, summary string, operation func(context.Context, *actor.Handle, *big.Int) error) *cli.Command {
	var flags clientFlags
	return &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   "actorlink miner " + name + " ID",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet(name, pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: actorlink miner %s ID", name)
			}
			id, err := parseNat("miner id", args[0])
			if err != nil {
				return err
			}

			ctx, cancel := commandContext()
			defer cancel()
			client, handle, err := flags.miningHandle(ctx)
			if err != nil {
				return err
			}
			defer client.Close()

			if err := operation(ctx, handle, id); err != nil {
				return err
			}
			fmt.Printf("miner %s: %s done\n", id, name)
			return nil
		},
	}
}
