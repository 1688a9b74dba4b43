// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/actorlink/cmd/actorlink/cli"
	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/config"
	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/dashboard"
	"github.com/bureau-foundation/actorlink/lib/ledger"
	"github.com/bureau-foundation/actorlink/lib/mining"
	"github.com/bureau-foundation/actorlink/lib/service"
	"github.com/bureau-foundation/actorlink/lib/session"
	"github.com/bureau-foundation/actorlink/lib/siwe"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
)

// clientFlags are the connection flags shared by every command that
// calls a service.
type clientFlags struct {
	ConfigPath string
	Anonymous  bool
	Verbose    bool
}

// AddFlags registers --config, --anonymous and --verbose.
func (f *clientFlags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&f.ConfigPath, "config", "", "config file (default: $ACTORLINK_CONFIG)")
	flagSet.BoolVar(&f.Anonymous, "anonymous", false, "call as the anonymous identity instead of the configured one")
	flagSet.BoolVarP(&f.Verbose, "verbose", "v", false, "log decode variants and rebinds")
}

func (f *clientFlags) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.ConfigPath != "" {
		cfg, err = config.LoadFile(f.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (f *clientFlags) loadRegistry() (*config.Config, *actor.Registry, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, registry, nil
}

// buildRegistry turns the configured services into descriptors by
// contract. Mining services additionally decode drifting counters in
// the configured order.
func buildRegistry(cfg *config.Config) (*actor.Registry, error) {
	resolved, err := cfg.ResolveServices()
	if err != nil {
		return nil, err
	}
	variants, err := mining.NewVariants(cfg.Decode.NumericOrder)
	if err != nil {
		return nil, fmt.Errorf("decode.numeric_order: %w", err)
	}

	descriptors := make([]actor.ServiceDescriptor, 0, len(resolved))
	for _, resolvedService := range resolved {
		switch resolvedService.Contract {
		case config.ContractMining:
			descriptors = append(descriptors, mining.Descriptor(
				resolvedService.Name, resolvedService.Endpoint, resolvedService.CanisterID, variants))
		case config.ContractICRC:
			descriptors = append(descriptors, actor.ServiceDescriptor{
				Name:       resolvedService.Name,
				Endpoint:   resolvedService.Endpoint,
				CanisterID: resolvedService.CanisterID,
				Contract:   ledger.Contract(),
			})
		case config.ContractSiwe:
			descriptors = append(descriptors, actor.ServiceDescriptor{
				Name:       resolvedService.Name,
				Endpoint:   resolvedService.Endpoint,
				CanisterID: resolvedService.CanisterID,
				Contract:   siwe.Contract(),
			})
		default:
			return nil, fmt.Errorf("service %q has no known contract %q", resolvedService.Name, resolvedService.Contract)
		}
	}
	return actor.NewRegistry(descriptors...)
}

// client is everything a command needs to call services.
type client struct {
	config     *config.Config
	registry   *actor.Registry
	logger     *slog.Logger
	credential credential.Credential
	store      *session.Store
	aggregator *dashboard.Aggregator
}

// connect loads the config and identity and wires the session store.
// Close the client when done.
func (f *clientFlags) connect() (*client, error) {
	cfg, registry, err := f.loadRegistry()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return nil, err
	}
	tokenTTL, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}

	cred := credential.Anonymous()
	if cfg.Identity.File != "" && !f.Anonymous {
		cred, err = credential.LoadIdentityFile(cfg.Identity.File, cfg.Passphrase())
		if err != nil {
			return nil, fmt.Errorf("loading identity %s: %w", cfg.Identity.File, err)
		}
	}

	logger := cli.NewCommandLogger(f.Verbose)
	metrics := telemetry.New(prometheus.NewRegistry())
	factory := actor.NewFactory(actor.FactoryConfig{
		Transport: service.NewRouter(&http.Client{Timeout: timeout}),
		Logger:    logger,
		TokenTTL:  tokenTTL,
		Metrics:   metrics,
	})
	store := session.New(factory, registry, logger)

	return &client{
		config:     cfg,
		registry:   registry,
		logger:     logger,
		credential: cred,
		store:      store,
		aggregator: dashboard.NewAggregator(store, logger, metrics),
	}, nil
}

// handle returns the handle of serviceName bound to the client's
// identity.
func (c *client) handle(ctx context.Context, serviceName string) (*actor.Handle, error) {
	return c.store.Get(ctx, serviceName, c.credential)
}

// serviceFor returns the service a command talks to for contract:
// override when set, which must speak contract, else the default.
func (c *client) serviceFor(contract, override string) (string, error) {
	if override == "" {
		return c.config.DefaultService(contract)
	}
	if _, ok := c.config.Services[override]; !ok {
		return "", fmt.Errorf("%w: %q", actor.ErrUnknownService, override)
	}
	if got := c.config.ContractOf(override); got != contract {
		return "", fmt.Errorf("service %q speaks %s, not %s", override, got, contract)
	}
	return override, nil
}

// handleFor returns the handle of the default service for contract.
func (c *client) handleFor(ctx context.Context, contract string) (*actor.Handle, error) {
	name, err := c.serviceFor(contract, "")
	if err != nil {
		return nil, err
	}
	return c.handle(ctx, name)
}

// requireIdentity fails early for commands that change state.
func (c *client) requireIdentity() error {
	if c.credential.IsAnonymous() {
		return fmt.Errorf("this command needs an identity: set identity.file in the config (see 'actorlink identity new')")
	}
	return nil
}

// tokenMetadata fetches the symbol and decimals of the default
// ledger, the one the mining service charges.
func (c *client) tokenMetadata(ctx context.Context) (ledger.Metadata, error) {
	handle, err := c.handleFor(ctx, config.ContractICRC)
	if err != nil {
		return ledger.Metadata{}, err
	}
	return ledger.FetchMetadata(ctx, handle)
}

// canisterID returns the canister id of a configured service.
func (c *client) canisterID(serviceName string) (string, error) {
	descriptor, err := c.registry.Lookup(serviceName)
	if err != nil {
		return "", err
	}
	if descriptor.IsPlaceholder() {
		return "", &actor.ConfigurationError{Service: serviceName, Reason: "no canister id"}
	}
	return descriptor.CanisterID, nil
}

func (c *client) Close() {
	c.store.Close()
}
