// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/cmd/actorlink/cli"
	"github.com/bureau-foundation/actorlink/lib/version"
)

// Root builds the complete actorlink command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "actorlink",
		Description: `Actorlink: client for the DIRT mining services.

Calls the mining, ledger and sign-in services named in the deployment
config, tolerating the numeric encodings the mining service has used
across releases.`,
		Subcommands: []*cli.Command{
			dashboardCommand(),
			minerCommand(),
			tokenCommand(),
			addressCommand(),
			identityCommand(),
			servicesCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("actorlink %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Show your mining dashboard",
				Command:     "actorlink dashboard --config deploy/actorlink.yaml",
			},
			{
				Description: "Approve 25 DIRT for the mining service, then create a miner",
				Command:     "actorlink token approve 25 && actorlink miner create --name rig-1 --power 40 --rate 100 --amount 20",
			},
		},
	}
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// servicesCommand lists the configured services and whether each one
// is callable.
func servicesCommand() *cli.Command {
	var (
		flags  clientFlags
		output cli.JSONOutput
	)
	return &cli.Command{
		Name:    "services",
		Summary: "List configured services",
		Description: `List every service in the deployment config with its endpoint
and resolved canister id. Services still pointing at the placeholder
canister id are reported as not configured.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("services", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			cfg, registry, err := flags.loadRegistry()
			if err != nil {
				return err
			}

			type serviceStatus struct {
				Name       string `json:"name"`
				Contract   string `json:"contract"`
				Endpoint   string `json:"endpoint"`
				CanisterID string `json:"canisterId"`
				Configured bool   `json:"configured"`
			}
			statuses := make([]serviceStatus, 0)
			for _, name := range registry.Names() {
				descriptor, err := registry.Lookup(name)
				if err != nil {
					return err
				}
				statuses = append(statuses, serviceStatus{
					Name:       descriptor.Name,
					Contract:   cfg.ContractOf(name),
					Endpoint:   descriptor.Endpoint,
					CanisterID: descriptor.CanisterID,
					Configured: !descriptor.IsPlaceholder(),
				})
			}
			if done, err := output.EmitJSON(statuses); done {
				return err
			}

			writer := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			fmt.Fprintln(writer, "NAME\tCONTRACT\tENDPOINT\tCANISTER\tSTATUS")
			for _, status := range statuses {
				state := "ready"
				if !status.Configured {
					state = "not configured"
				}
				canisterID := status.CanisterID
				if canisterID == "" {
					canisterID = "-"
				}
				fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n", status.Name, status.Contract, status.Endpoint, canisterID, state)
			}
			return writer.Flush()
		},
	}
}
