// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bureau-foundation/actorlink/lib/actor"
	"github.com/bureau-foundation/actorlink/lib/credential"
	"github.com/bureau-foundation/actorlink/lib/telemetry"
	"github.com/bureau-foundation/actorlink/lib/tolerant"
)

// HandleSource hands out actor handles. *session.Store implements it.
type HandleSource interface {
	Get(ctx context.Context, service string, cred credential.Credential) (*actor.Handle, error)
}

// Aggregator builds views from plans.
type Aggregator struct {
	handles HandleSource
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// NewAggregator creates an aggregator that obtains handles from
// handles. metrics may be nil.
func NewAggregator(handles HandleSource, logger *slog.Logger, metrics *telemetry.Metrics) *Aggregator {
	return &Aggregator{handles: handles, logger: logger, metrics: metrics}
}

// Build resolves every field of plan for cred. It never fails: an
// invalid plan, a cancelled context or a failing backend turn into
// unavailable fields carrying the cause.
func (a *Aggregator) Build(ctx context.Context, cred credential.Credential, plan Plan) View {
	start := time.Now()
	view := View{
		order:  make([]string, 0, len(plan)),
		fields: make(map[string]Value, len(plan)),
	}

	if err := plan.Validate(); err != nil {
		for _, field := range plan {
			if _, seen := view.fields[field.Name]; seen {
				continue
			}
			view.order = append(view.order, field.Name)
			view.fields[field.Name] = Value{Value: field.Default, Source: Unavailable, Errors: []error{err}}
		}
		a.logger.Error("dashboard plan rejected", "error", err)
		return view
	}

	results := make([]Value, len(plan))
	finished := make(map[string]chan struct{}, len(plan))
	slots := make(map[string]int, len(plan))
	for i, field := range plan {
		finished[field.Name] = make(chan struct{})
		slots[field.Name] = i
	}

	var wg sync.WaitGroup
	for i, field := range plan {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(finished[field.Name])

			deps := make(Values, len(field.DependsOn))
			for _, dependency := range field.DependsOn {
				<-finished[dependency]
				deps[dependency] = results[slots[dependency]]
			}
			results[i] = a.resolve(ctx, cred, field, deps)
		}()
	}
	wg.Wait()

	for i, field := range plan {
		view.order = append(view.order, field.Name)
		view.fields[field.Name] = results[i]
		a.metrics.ObserveField(field.Name, string(results[i].Source))
	}
	a.metrics.ObserveBuild(time.Since(start))
	if view.Partial() {
		a.logger.Info("dashboard built with unavailable fields",
			"identity", cred.Key(),
			"unavailable", len(view.Failures()),
			"fields", len(plan),
		)
	}
	return view
}

// resolve runs a field's attempts in order.
func (a *Aggregator) resolve(ctx context.Context, cred credential.Credential, field Field, deps Values) Value {
	var errs []error
	for i, attempt := range field.Attempts {
		value, variant, err := a.try(ctx, cred, attempt, deps)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", attempt.label(), err))
			a.logger.Debug("dashboard attempt failed",
				"field", field.Name,
				"attempt", attempt.label(),
				"error", err,
			)
			continue
		}
		source := Primary
		if i > 0 {
			source = Fallback
		}
		return Value{Value: value, Source: source, Attempt: attempt.label(), Variant: variant, Errors: errs}
	}
	return Value{Value: field.Default, Source: Unavailable, Errors: errs}
}

func (a *Aggregator) try(ctx context.Context, cred credential.Credential, attempt Attempt, deps Values) (any, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	var args []any
	if attempt.Args != nil {
		built, err := attempt.Args(deps)
		if err != nil {
			return nil, "", fmt.Errorf("building arguments: %w", err)
		}
		args = built
	}

	handle, err := a.handles.Get(ctx, attempt.Service, cred)
	if err != nil {
		return nil, "", err
	}

	var outcome tolerant.Outcome
	if attempt.Variants != nil {
		outcome, err = handle.CallVariants(ctx, attempt.Variants, attempt.Method, args...)
	} else {
		outcome, err = handle.CallOutcome(ctx, attempt.Method, args...)
	}
	if err != nil {
		return nil, "", err
	}

	value := outcome.Value
	if attempt.Convert != nil {
		value, err = attempt.Convert(value, deps)
		if err != nil {
			return nil, "", fmt.Errorf("converting reply: %w", err)
		}
	}
	return value, outcome.Variant, nil
}
