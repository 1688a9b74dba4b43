// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "actorlink",
		Subcommands: []*Command{
			{
				Name: "identity",
				Subcommands: []*Command{
					{
						Name: "new",
						Run: func(args []string) error {
							called = "identity new"
							receivedArgs = args
							return nil
						},
					},
				},
			},
			{
				Name: "dashboard",
				Run: func(args []string) error {
					called = "dashboard"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"identity", "new", "key.age"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "identity new" {
		t.Errorf("dispatched to %q, want %q", called, "identity new")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "key.age" {
		t.Errorf("args = %v, want [key.age]", receivedArgs)
	}
}

func TestCommand_Execute_UnknownCommandSuggests(t *testing.T) {
	root := &Command{
		Name:        "actorlink",
		Subcommands: []*Command{{Name: "dashboard", Run: func([]string) error { return nil }}},
	}

	err := root.Execute([]string{"dashbord"})
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), `did you mean "dashboard"`) {
		t.Errorf("error %q does not suggest dashboard", err)
	}
}

func TestCommand_Execute_ParsesFlags(t *testing.T) {
	var limit int
	var positional []string
	command := &Command{
		Name: "wins",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("wins", pflag.ContinueOnError)
			flagSet.IntVar(&limit, "limit", 10, "maximum wins")
			return flagSet
		},
		Run: func(args []string) error {
			positional = args
			return nil
		},
	}

	if err := command.Execute([]string{"--limit", "3", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if limit != 3 {
		t.Errorf("limit = %d, want 3", limit)
	}
	if len(positional) != 1 || positional[0] != "extra" {
		t.Errorf("positional = %v, want [extra]", positional)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "dashboard",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("dashboard", pflag.ContinueOnError)
			flagSet.Bool("json", false, "output as JSON")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--jsn"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --json") {
		t.Errorf("error %q does not suggest --json", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	var buffer bytes.Buffer
	root := &Command{
		Name:        "actorlink",
		Description: "Call backend actors.",
		Output:      &buffer,
		Subcommands: []*Command{
			{Name: "dashboard", Summary: "Show the mining dashboard"},
			{Name: "balance", Summary: "Show a token balance"},
		},
		Examples: []Example{{Description: "Show the dashboard", Command: "actorlink dashboard"}},
	}

	if err := root.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute(--help) error: %v", err)
	}
	help := buffer.String()
	for _, want := range []string{"Call backend actors.", "dashboard", "Show a token balance", "# Show the dashboard"} {
		if !strings.Contains(help, want) {
			t.Errorf("help output missing %q:\n%s", want, help)
		}
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	var buffer bytes.Buffer
	root := &Command{
		Name:        "actorlink",
		Output:      &buffer,
		Subcommands: []*Command{{Name: "dashboard"}},
	}
	if err := root.Execute(nil); err == nil {
		t.Fatal("expected error when no subcommand is given")
	}
	if !strings.Contains(buffer.String(), "Commands:") {
		t.Error("help was not printed")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "abc", 3},
		{"balance", "balance", 0},
		{"balnce", "balance", 1},
		{"kitten", "sitting", 3},
	}
	for _, test := range tests {
		if got := levenshtein(test.a, test.b); got != test.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
		}
	}
}

func TestEmitJSON(t *testing.T) {
	var buffer bytes.Buffer
	output := JSONOutput{Stdout: &buffer}

	if emitted, err := output.EmitJSON([]string{"x"}); emitted || err != nil {
		t.Fatalf("EmitJSON without --json = (%v, %v), want (false, nil)", emitted, err)
	}

	output.OutputJSON = true
	var nilSlice []string
	if emitted, err := output.EmitJSON(nilSlice); !emitted || err != nil {
		t.Fatalf("EmitJSON = (%v, %v), want (true, nil)", emitted, err)
	}
	if got := strings.TrimSpace(buffer.String()); got != "[]" {
		t.Errorf("nil slice encoded as %q, want []", got)
	}
}
