// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/cmd/actorlink/cli"
	"github.com/bureau-foundation/actorlink/lib/credential"
)

func identityCommand() *cli.Command {
	return &cli.Command{
		Name:    "identity",
		Summary: "Create and inspect identity files",
		Subcommands: []*cli.Command{
			identityNewCommand(),
			identityShowCommand(),
		},
	}
}

func identityNewCommand() *cli.Command {
	var (
		passphraseEnv string
		workFactor    int
		force         bool
	)
	return &cli.Command{
		Name:    "new",
		Summary: "Generate a new identity file",
		Description: `Generate a fresh Ed25519 identity and write it, age-encrypted under a
passphrase read from an environment variable, to PATH. Point
identity.file in the config at the result.`,
		Usage: "actorlink identity new PATH",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("new", pflag.ContinueOnError)
			flagSet.StringVar(&passphraseEnv, "passphrase-env", "ACTORLINK_IDENTITY_PASSPHRASE", "environment variable holding the passphrase")
			flagSet.IntVar(&workFactor, "work-factor", credential.DefaultWorkFactor, "scrypt work factor (log2 N)")
			flagSet.BoolVar(&force, "force", false, "overwrite an existing file")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("usage: actorlink identity new PATH")
			}
			path := args[0]
			passphrase := os.Getenv(passphraseEnv)
			if passphrase == "" {
				return fmt.Errorf("%s is not set", passphraseEnv)
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			cred, err := credential.Generate()
			if err != nil {
				return err
			}
			if err := credential.SaveIdentityFile(path, cred, passphrase, workFactor); err != nil {
				return err
			}
			fmt.Printf("wrote %s\nprincipal: %s\n", path, cred.Principal())
			return nil
		},
	}
}

func identityShowCommand() *cli.Command {
	var (
		flags  clientFlags
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "show",
		Summary: "Print the principal of the configured identity",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("show", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			result := map[string]any{
				"principal": client.credential.Principal().String(),
				"anonymous": client.credential.IsAnonymous(),
			}
			if done, err := output.EmitJSON(result); done {
				return err
			}
			if client.credential.IsAnonymous() {
				fmt.Printf("%s (anonymous)\n", client.credential.Principal())
				return nil
			}
			fmt.Println(client.credential.Principal())
			return nil
		},
	}
}
