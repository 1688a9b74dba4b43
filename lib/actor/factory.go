// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package actor

import (
	"context"
	"log/slog"
	"time"

	"github.com/bureau-foundation/actorlink/lib/clock"
	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/service"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
)

// DefaultTokenTTL is the validity window of the call tokens a handle
// mints when FactoryConfig.TokenTTL is zero.
const DefaultTokenTTL = 2 * time.Minute

// Transport sends one request and returns the raw reply payload.
// *service.Router, *service.SocketClient and *service.HTTPClient
// implement it. Rejections are reported as *service.ServiceError.
type Transport interface {
	Call(ctx context.Context, request *service.Request) ([]byte, error)
}

// FactoryConfig holds the collaborators shared by every handle a
// factory creates.
type FactoryConfig struct {
	// Transport is required.
	Transport Transport

	// Clock stamps call tokens. Nil uses the real clock.
	Clock clock.Clock

	// Logger is required.
	Logger *slog.Logger

	// TokenTTL is how long each call token stays valid.
	TokenTTL time.Duration

	// Metrics is optional.
	Metrics *telemetry.Metrics
}

// Factory binds service descriptors to credentials.
type Factory struct {
	transport Transport
	clock     clock.Clock
	logger    *slog.Logger
	tokenTTL  time.Duration
	metrics   *telemetry.Metrics
}

// NewFactory creates a factory. Panics if Transport or Logger is nil.
func NewFactory(config FactoryConfig) *Factory {
	if config.Transport == nil {
		panic("actor.NewFactory: Transport is required")
	}
	if config.Logger == nil {
		panic("actor.NewFactory: Logger is required")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.TokenTTL <= 0 {
		config.TokenTTL = DefaultTokenTTL
	}
	return &Factory{
		transport: config.Transport,
		clock:     config.Clock,
		logger:    config.Logger,
		tokenTTL:  config.TokenTTL,
		metrics:   config.Metrics,
	}
}

// Metrics returns the factory's metrics, possibly nil.
func (f *Factory) Metrics() *telemetry.Metrics { return f.metrics }

// Bind creates a handle for descriptor under cred. It performs no
// I/O. A placeholder descriptor or an endpoint no transport can reach
// yields a *ConfigurationError and an invalid one a *DescriptorError.
func (f *Factory) Bind(descriptor ServiceDescriptor, cred credential.Credential) (*Handle, error) {
	if descriptor.IsPlaceholder() {
		reason := "canister id is the placeholder " + PlaceholderCanisterID
		switch {
		case descriptor.Endpoint == "":
			reason = "no endpoint"
		case descriptor.CanisterID == "":
			reason = "no canister id"
		}
		return nil, &ConfigurationError{Service: descriptor.Name, Reason: reason}
	}
	if _, _, err := service.ParseEndpoint(descriptor.Endpoint); err != nil {
		return nil, &ConfigurationError{Service: descriptor.Name, Reason: err.Error()}
	}
	if err := descriptor.Validate(); err != nil {
		return nil, &DescriptorError{Service: descriptor.Name, Err: err}
	}

	f.logger.Debug("actor bound",
		"service", descriptor.Name,
		"canister", descriptor.CanisterID,
		"identity", cred.Key(),
	)
	return &Handle{
		factory:    f,
		descriptor: descriptor,
		credential: cred,
	}, nil
}
