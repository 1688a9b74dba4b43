// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/cmd/actorlink/cli"
	"github.com/bureau-foundation/actorlink/lib/config"
	"github.com/bureau-foundation/actorlink/lib/dashboard"
	"github.com/bureau-foundation/actorlink/lib/ledger"
	"github.com/bureau-foundation/actorlink/lib/mining"
	"github.com/bureau-foundation/actorlink/lib/principal"
)

// dashboardStyles colors the text rendering. Values outside the
// primary source are dimmed and tagged so the reader knows they came
// from a fallback method or are placeholders.
type dashboardStyles struct {
	title       lipgloss.Style
	label       lipgloss.Style
	fallback    lipgloss.Style
	unavailable lipgloss.Style
}

func newDashboardStyles() dashboardStyles {
	return dashboardStyles{
		title:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7aa2f7")),
		label:       lipgloss.NewStyle().Foreground(lipgloss.Color("#a9b1d6")),
		fallback:    lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68")),
		unavailable: lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")),
	}
}

func dashboardCommand() *cli.Command {
	var (
		flags  clientFlags
		output cli.JSONOutput
		user   string
		limit  int
		strict bool
	)
	return &cli.Command{
		Name:    "dashboard",
		Summary: "Show the mining dashboard",
		Description: `Show miners, stats, round timing and recent wins for a user.

Each field is fetched from its dedicated method and, when that fails,
from the combined dashboard reply. Fields that could not be fetched at
all are shown as unavailable; the rest of the dashboard still renders.`,
		Usage: "actorlink dashboard [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
			flags.AddFlags(flagSet)
			output.AddFlags(flagSet)
			flagSet.StringVar(&user, "user", "", "principal to show (default: the configured identity)")
			flagSet.IntVar(&limit, "wins", mining.DefaultRecentWinsLimit, "number of recent wins to show")
			flagSet.BoolVar(&strict, "strict", false, "exit with status 3 when any field is unavailable")
			return flagSet
		},
		Examples: []cli.Example{
			{Description: "Show another user's dashboard anonymously", Command: "actorlink dashboard --anonymous --user 2vxsx-fae"},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument: %s", args[0])
			}
			ctx, cancel := commandContext()
			defer cancel()

			client, err := flags.connect()
			if err != nil {
				return err
			}
			defer client.Close()

			subject := client.credential.Principal()
			if user != "" {
				subject, err = principal.Parse(user)
				if err != nil {
					return fmt.Errorf("--user: %w", err)
				}
			}

			miningService, err := client.serviceFor(config.ContractMining, "")
			if err != nil {
				return err
			}
			board := mining.BuildDashboard(ctx, client.aggregator, client.credential, subject, mining.DashboardOptions{
				Service:         miningService,
				RecentWinsLimit: limit,
			})
			if done, err := output.EmitJSON(board); done {
				if err == nil && strict && board.Partial() {
					return &cli.ExitError{Code: 3}
				}
				return err
			}

			metadata, err := client.tokenMetadata(ctx)
			if err != nil {
				client.logger.Debug("token metadata unavailable, showing raw amounts", "error", err)
				metadata = ledger.Metadata{}
			}
			renderDashboard(os.Stdout, board, metadata, newDashboardStyles())
			if strict && board.Partial() {
				return &cli.ExitError{Code: 3}
			}
			return nil
		},
	}
}

// renderDashboard writes the text form of board.
func renderDashboard(w io.Writer, board mining.Dashboard, metadata ledger.Metadata, styles dashboardStyles) {
	amount := func(value *big.Int) string {
		text := ledger.FormatAmount(value, metadata.Decimals)
		if metadata.Symbol != "" {
			text += " " + metadata.Symbol
		}
		return text
	}
	mark := func(field string) string {
		status := board.Provenance[field]
		switch status.Source {
		case dashboard.Fallback:
			return " " + styles.fallback.Render("(via "+status.Attempt+")")
		case dashboard.Unavailable:
			return " " + styles.unavailable.Render("(unavailable)")
		}
		return ""
	}
	label := func(text string) string { return styles.label.Render(text) }

	fmt.Fprintln(w, styles.title.Render("Mining dashboard for "+board.User.String()))
	fmt.Fprintf(w, "%s %s%s\n", label("Round:"), natString(board.CurrentRound), mark(mining.FieldCurrentRound))
	fmt.Fprintf(w, "%s %s%s\n", label("Next block in:"), secondsString(board.TimeToNextBlock), mark(mining.FieldTimeToNextBlock))
	fmt.Fprintf(w, "%s %s%s\n", label("Block reward:"), amount(board.BlockReward), mark(mining.FieldBlockReward))

	stats := board.Stats
	fmt.Fprintf(w, "\n%s%s\n", styles.title.Render("Stats"), mark(mining.FieldStats))
	fmt.Fprintf(w, "%s %s of %s active, power %s, %s per day, balance %s\n", label("Miners:"),
		natString(stats.ActiveMiners), natString(stats.TotalMiners), natString(stats.TotalMiningPower),
		natString(stats.TotalDailyRate), amount(stats.TotalDirtBalance))

	wins := board.WinningStats
	lastWin := "never"
	if wins.LastWinRound != nil {
		lastWin = "round " + wins.LastWinRound.String()
	}
	fmt.Fprintf(w, "%s %s won, %s earned, streak %s (longest %s), last %s%s\n", label("Wins:"),
		natString(wins.TotalWins), amount(wins.TotalRewards), natString(wins.CurrentWinStreak),
		natString(wins.LongestWinStreak), lastWin, mark(mining.FieldWinningStats))

	fmt.Fprintf(w, "\n%s%s\n", styles.title.Render("Miners"), mark(mining.FieldMiners))
	if len(board.Miners) == 0 {
		fmt.Fprintln(w, "  none")
	} else {
		table := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
		fmt.Fprintln(table, "  ID\tNAME\tPOWER\tRATE\tBALANCE\tSTATE\tLAST BLOCK\tWINS")
		for _, miner := range board.Miners {
			state := "paused"
			if miner.IsActive {
				state = "active"
			}
			lastBlock := "never"
			if miner.LastActiveBlock != nil && miner.LastActiveBlock.Sign() > 0 {
				lastBlock = miner.LastActiveBlock.String()
			}
			lifetimeWins := "-"
			if miner.LifetimeWins != nil {
				lifetimeWins = miner.LifetimeWins.String()
			}
			fmt.Fprintf(table, "  %s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				natString(miner.ID), miner.Name, natString(miner.MiningPower), natString(miner.DailyDirtRate),
				amount(miner.DirtBalance), state, lastBlock, lifetimeWins)
		}
		table.Flush()
	}

	fmt.Fprintf(w, "\n%s%s\n", styles.title.Render("Recent wins"), mark(mining.FieldRecentWins))
	if len(board.RecentWins) == 0 {
		fmt.Fprintln(w, "  none")
	} else {
		table := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
		fmt.Fprintln(table, "  ROUND\tMINER\tREWARD\tENDED")
		for _, round := range board.RecentWins {
			ended := "-"
			if round.EndTime != nil && round.EndTime.Sign() > 0 && round.EndTime.IsInt64() {
				ended = time.Unix(0, round.EndTime.Int64()).UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(table, "  %s\t%s\t%s\t%s\n",
				natString(round.RoundID), natString(round.WinnerMiner), amount(round.RewardsPaid), ended)
		}
		table.Flush()
	}

	if board.Partial() {
		var missing []string
		for _, field := range []string{
			mining.FieldMiners, mining.FieldStats, mining.FieldCurrentRound, mining.FieldTimeToNextBlock,
			mining.FieldBlockReward, mining.FieldWinningStats, mining.FieldRecentWins,
		} {
			if board.Provenance[field].Source == dashboard.Unavailable {
				missing = append(missing, field)
			}
		}
		fmt.Fprintf(w, "\n%s\n", styles.unavailable.Render("Partial dashboard, unavailable: "+strings.Join(missing, ", ")))
	}
}

func natString(value *big.Int) string {
	if value == nil {
		return "0"
	}
	return value.String()
}

func secondsString(value *big.Int) string {
	if value == nil || !value.IsInt64() {
		return natString(value) + "s"
	}
	return (time.Duration(value.Int64()) * time.Second).String()
}
