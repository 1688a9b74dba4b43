// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/cmd/actorlink/cli"
	"github.com/bureau-foundation/actorlink/lib/config"
	"github.com/bureau-foundation/actorlink/lib/siwe"
)

func addressCommand() *cli.Command {
	return &cli.Command{
		Name:    "address",
		Summary: "Map Ethereum sign-in addresses to principals",
		Subcommands: []*cli.Command{
			{
				Name:    "checksum",
				Summary: "Print the EIP-55 checksummed form of an address",
				Usage:   "actorlink address checksum ADDRESS",
				Run: func(args []string) error {
					if len(args) != 1 {
						return fmt.Errorf("usage: actorlink address checksum ADDRESS")
					}
					checksummed, err := siwe.ChecksumAddress(args[0])
					if err != nil {
						return err
					}
					fmt.Println(checksummed)
					return nil
				},
			},
			addressPrincipalCommand(),
			addressLookupCommand(),
		},
	}
}

func addressPrincipalCommand() *cli.Command {
	var (
		flags  clientFlags
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "principal",
		Summary: "Show the principal an address signed in as",
		Usage:   "actorlink address principal ADDRESS",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("principal", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: actorlink address principal ADDRESS")
			}
			ctx, cancel := commandContext()
			defer cancel()
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()
			handle, err := client.handleFor(ctx, config.ContractSiwe)
			if err != nil {
				return err
			}

			p, err := siwe.GetPrincipal(ctx, handle, args[0])
			if err != nil {
				return err
			}
			if done, err := output.EmitJSON(map[string]string{"address": args[0], "principal": p.String()}); done {
				return err
			}
			fmt.Println(p)
			return nil
		},
	}
}

func addressLookupCommand() *cli.Command {
	var (
		flags  clientFlags
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "of",
		Summary: "Show the address linked to a principal",
		Usage:   "actorlink address of [PRINCIPAL]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("of", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("usage: actorlink address of [PRINCIPAL]")
			}
			ctx, cancel := commandContext()
			defer cancel()
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			p, err := client.ownerOrSelf(firstArg(args))
			if err != nil {
				return err
			}
			handle, err := client.handleFor(ctx, config.ContractSiwe)
			if err != nil {
				return err
			}
			address, err := siwe.GetAddress(ctx, handle, p)
			if err != nil {
				return err
			}
			if done, err := output.EmitJSON(map[string]string{"address": address, "principal": p.String()}); done {
				return err
			}
			fmt.Println(address)
			return nil
		},
	}
}
