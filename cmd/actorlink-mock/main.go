// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Actorlink-mock serves an in-memory DIRT mining backend (mining,
// ledger and sign-in services) for local development and integration
// tests. It speaks the same call protocol as the real deployment over
// a Unix socket, HTTP, or both, so actorlink can be pointed at it by
// changing only the endpoints in its config.
//
// --encoding chooses how the mining service writes counters (nat, int
// or text), reproducing the reply shapes of successive mining service
// releases. Blocks are mined on a timer so dashboards show live round
// progress; --block-interval 0 disables it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/internal/mockbackend"
	"github.com/bureau-foundation/actorlink/lib/ledger"
	"github.com/bureau-foundation/actorlink/lib/principal"
	"github.com/bureau-foundation/actorlink/lib/process"
	"github.com/bureau-foundation/actorlink/lib/service"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
	"github.com/bureau-foundation/actorlink/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

// options are the parsed command line.
type options struct {
	SocketPath    string
	HTTPAddress   string
	Encoding      string
	BlockInterval time.Duration
	Funding       map[principal.Principal]*big.Int
	AK69Funding   map[principal.Principal]*big.Int
	Links         map[string]principal.Principal
	Failing       []string
	ShowVersion   bool
}

func parseOptions(args []string) (options, error) {
	var (
		opts      options
		funds     []string
		ak69Funds []string
		links     []string
	)
	flagSet := pflag.NewFlagSet("actorlink-mock", pflag.ContinueOnError)
	flagSet.StringVar(&opts.SocketPath, "socket", "", "serve the call protocol on this Unix socket")
	flagSet.StringVar(&opts.HTTPAddress, "http", "", "serve the call protocol and /metrics on this TCP address")
	flagSet.StringVar(&opts.Encoding, "encoding", mockbackend.EncodingNat, "mining counter encoding: nat, int or text")
	flagSet.DurationVar(&opts.BlockInterval, "block-interval", mockbackend.BlockDuration, "mine a block this often (0 disables)")
	flagSet.StringArrayVar(&funds, "fund", nil, "credit PRINCIPAL=AMOUNT whole DIRT at startup (repeatable)")
	flagSet.StringArrayVar(&ak69Funds, "fund-ak69", nil, "credit PRINCIPAL=AMOUNT whole AK69 at startup (repeatable)")
	flagSet.StringArrayVar(&links, "link", nil, "link ADDRESS=PRINCIPAL for sign-in lookups (repeatable)")
	flagSet.StringArrayVar(&opts.Failing, "fail", nil, "reject every call to METHOD (repeatable)")
	flagSet.BoolVar(&opts.ShowVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if opts.ShowVersion {
		return opts, nil
	}
	if opts.SocketPath == "" && opts.HTTPAddress == "" {
		return options{}, errors.New("at least one of --socket or --http is required")
	}
	if opts.BlockInterval < 0 {
		return options{}, errors.New("--block-interval must not be negative")
	}

	var err error
	if opts.Funding, err = parseFunding("--fund", funds, mockbackend.Decimals); err != nil {
		return options{}, err
	}
	if opts.AK69Funding, err = parseFunding("--fund-ak69", ak69Funds, mockbackend.AK69Decimals); err != nil {
		return options{}, err
	}

	opts.Links = make(map[string]principal.Principal, len(links))
	for _, entry := range links {
		address, owner, ok := strings.Cut(entry, "=")
		if !ok {
			return options{}, fmt.Errorf("--link %q: want ADDRESS=PRINCIPAL", entry)
		}
		p, err := principal.Parse(owner)
		if err != nil {
			return options{}, fmt.Errorf("--link %q: %w", entry, err)
		}
		opts.Links[address] = p
	}
	return opts, nil
}

// parseFunding parses PRINCIPAL=AMOUNT entries of flag, AMOUNT in
// whole tokens of a ledger with decimals.
func parseFunding(flag string, entries []string, decimals int) (map[principal.Principal]*big.Int, error) {
	funding := make(map[principal.Principal]*big.Int, len(entries))
	for _, entry := range entries {
		owner, amount, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("%s %q: want PRINCIPAL=AMOUNT", flag, entry)
		}
		p, err := principal.Parse(owner)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", flag, entry, err)
		}
		subunits, err := ledger.ToSubunits(amount, decimals)
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", flag, entry, err)
		}
		funding[p] = subunits
	}
	return funding, nil
}

func run(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	if opts.ShowVersion {
		fmt.Printf("actorlink-mock %s\n", version.Full())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	registry := prometheus.NewRegistry()
	backend, err := newBackend(opts, logger, telemetry.New(registry))
	if err != nil {
		return err
	}

	serveErrors := make(chan error, 2)
	servers := 0
	if opts.SocketPath != "" {
		socketServer := service.NewSocketServer(opts.SocketPath, backend.Dispatcher(), logger)
		servers++
		go func() { serveErrors <- socketServer.Serve(ctx) }()
	}
	if opts.HTTPAddress != "" {
		httpServer := service.NewHTTPServer(service.HTTPServerConfig{
			Address: opts.HTTPAddress,
			Handler: newMux(backend, registry, logger),
			Logger:  logger,
		})
		servers++
		go func() { serveErrors <- httpServer.Serve(ctx) }()
	}

	logger.Info("mock backend running",
		"version", version.Short(),
		"encoding", opts.Encoding,
		"mining", backend.MiningCanister(),
		"ledger", backend.LedgerCanister(),
		"ak69", backend.AK69Canister(),
		"siwe", backend.SiweCanister(),
		"socket", opts.SocketPath,
		"http", opts.HTTPAddress,
	)

	go runMaintenance(ctx, backend, opts.BlockInterval, logger)

	var firstErr error
	for range servers {
		if err := <-serveErrors; err != nil && firstErr == nil {
			firstErr = err
			stop()
		}
	}
	logger.Info("shutting down")
	return firstErr
}

// newBackend creates the backend and applies the startup state from
// opts.
func newBackend(opts options, logger *slog.Logger, metrics *telemetry.Metrics) (*mockbackend.Backend, error) {
	backend, err := mockbackend.New(mockbackend.Config{
		Encoding: opts.Encoding,
		Metrics:  metrics,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	for owner, amount := range opts.Funding {
		backend.Fund(owner, amount)
	}
	for owner, amount := range opts.AK69Funding {
		backend.FundAK69(owner, amount)
	}
	for address, owner := range opts.Links {
		backend.LinkAddress(address, owner)
	}
	for _, method := range opts.Failing {
		backend.SetFailing(method, true)
	}
	return backend, nil
}

// newMux serves the call protocol and the metrics of registry.
func newMux(backend *mockbackend.Backend, registry *prometheus.Registry, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", telemetry.Handler(registry))
	mux.Handle("/", service.NewHTTPHandler(backend.Dispatcher(), logger))
	return mux
}

// runMaintenance mines a block every interval and drops expired
// replay nonces every minute until ctx is done.
func runMaintenance(ctx context.Context, backend *mockbackend.Backend, interval time.Duration, logger *slog.Logger) {
	cleanup := time.NewTicker(time.Minute)
	defer cleanup.Stop()

	var blocks <-chan time.Time
	if interval > 0 {
		blockTicker := time.NewTicker(interval)
		defer blockTicker.Stop()
		blocks = blockTicker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-blocks:
			if !backend.MineBlock() {
				logger.Debug("no active miners, round skipped")
			}
		case <-cleanup.C:
			if removed := backend.CleanupReplay(); removed > 0 {
				logger.Debug("replay nonces expired", "count", removed)
			}
		}
	}
}
