package broker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kbukum/voicegate/availability"
	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
	"github.com/kbukum/voicegate/provider"
)

// Probe reasons recorded for skipped or cached probes.
const ReasonProbeCached = "probe_cached"

// Failure is one provider's reason for not serving a request.
type Failure struct {
	Provider string `json:"provider"`
	Reason   string `json:"reason"`
}

// Result is a successful orchestration.
type Result[O any] struct {
	Output   O
	Provider string
	// Failures lists the providers tried or skipped before Provider.
	Failures []Failure
}

// ProviderStatus pairs a canonical provider with its ledger state.
type ProviderStatus struct {
	Provider string             `json:"provider"`
	State    availability.State `json:"state"`
	Cooling  bool               `json:"cooling_down"`
}

// Option configures an Orchestrator.
type Option func(*options)

type options struct {
	log     *logger.Logger
	metrics *observability.Metrics
}

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics enables skip and exhaustion counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// Orchestrator runs requests of one capability across its providers.
type Orchestrator[I, O any] struct {
	cfg      Config
	registry *provider.Registry[provider.RequestResponse[I, O]]
	ledger   *availability.Ledger
	log      *logger.Logger
	metrics  *observability.Metrics
}

// New creates an Orchestrator. The ledger is shared with every other
// Orchestrator in the process.
func New[I, O any](cfg Config, registry *provider.Registry[provider.RequestResponse[I, O]], ledger *availability.Ledger, opts ...Option) *Orchestrator[I, O] {
	cfg.ApplyDefaults()
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.WithComponent("broker")
	}
	o.log = o.log.WithFields(logger.Fields(logger.FieldCapability, cfg.Capability))

	orch := &Orchestrator[I, O]{cfg: cfg, registry: registry, ledger: ledger, log: o.log, metrics: o.metrics}
	if _, unknown := registry.Resolve(cfg.Priority, cfg.Defaults); len(unknown) > 0 {
		orch.log.Warn("ignoring unknown providers in priority list", logger.Fields("unknown", unknown))
	}
	return orch
}

// Capability returns the capability name.
func (o *Orchestrator[I, O]) Capability() string { return o.cfg.Capability }

// Registry returns the provider registry.
func (o *Orchestrator[I, O]) Registry() *provider.Registry[provider.RequestResponse[I, O]] {
	return o.registry
}

// Candidates returns the ordered canonical providers for a request. An
// empty pin or "auto" selects the configured priority. Any other pin must
// name a registered provider or alias.
func (o *Orchestrator[I, O]) Candidates(pin string) ([]string, error) {
	pin = provider.Normalize(pin)
	if pin == "" || pin == "auto" {
		resolved, _ := o.registry.Resolve(o.cfg.Priority, o.cfg.Defaults)
		return resolved, nil
	}
	name, ok := o.registry.Canonical(pin)
	if !ok {
		return nil, apperrors.UnsupportedProvider(o.cfg.Capability, pin)
	}
	p, _ := o.registry.Get(name)
	if err := provider.CheckConfig(p); err != nil {
		return nil, apperrors.Configuration(name, err.Error()).WithCause(err)
	}
	return []string{name}, nil
}

// Execute runs input through the candidates for pin and returns the first
// success.
func (o *Orchestrator[I, O]) Execute(ctx context.Context, input I, pin string) (Result[O], error) {
	var res Result[O]
	candidates, err := o.Candidates(pin)
	if err != nil {
		return res, err
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanBrokerExecute)
	defer span.End()
	observability.SetSpanAttribute(ctx, observability.AttrCapability, o.cfg.Capability)
	pinned := provider.Normalize(pin)
	observability.SetSpanAttribute(ctx, observability.AttrPinned, pinned != "" && pinned != "auto")

	log := o.log.WithContext(ctx)
	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return res, o.cancelled(ctx, err, res.Failures)
		}
		p, _ := o.registry.Get(name)
		out, reason, ok := o.attempt(ctx, name, p, input)
		if ok {
			res.Output, res.Provider = out, name
			observability.SetSpanAttribute(ctx, observability.AttrProvider, name)
			observability.SetSpanAttribute(ctx, observability.AttrAttempts, len(res.Failures)+1)
			return res, nil
		}
		if reason == "" {
			return res, o.cancelled(ctx, ctx.Err(), res.Failures)
		}
		res.Failures = append(res.Failures, Failure{Provider: name, Reason: reason})
		log.Warn("provider failed", logger.Fields(logger.FieldProvider, name, logger.FieldReason, reason))
	}

	err = o.exhausted(res.Failures)
	o.metrics.RecordExhausted(ctx, o.cfg.Capability)
	observability.SetSpanError(ctx, err)
	return res, err
}

// attempt runs the skip, probe and invoke steps for one provider. It
// returns ok on success, otherwise the failure reason. An empty reason
// means the request was cancelled mid-attempt and nothing was recorded.
func (o *Orchestrator[I, O]) attempt(ctx context.Context, name string, p provider.RequestResponse[I, O], input I) (out O, reason string, ok bool) {
	key := availability.Key(o.cfg.Capability, name)

	if skip, remaining := o.ledger.ShouldSkip(key); skip {
		o.metrics.RecordSkip(ctx, o.cfg.Capability, name)
		return out, fmt.Sprintf("in cooldown (%.1fs)", remaining.Seconds()), false
	}

	if o.ledger.ShouldProbe(key, o.cfg.ProbeInterval) {
		probe := o.probe(ctx, p)
		if ctx.Err() != nil {
			return out, "", false
		}
		o.ledger.RecordProbe(key, probe.OK)
		if !probe.OK {
			o.ledger.MarkFailure(key, probe.Reason, o.cfg.FailureCooldown)
			return out, fmt.Sprintf("probe failed (%s)", probe.Reason), false
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.CallTimeout)
	defer cancel()
	out, err := p.Execute(callCtx, input)
	if err == nil {
		o.ledger.MarkSuccess(key)
		return out, "", true
	}
	if ctx.Err() != nil {
		return out, "", false
	}
	reason = errorReason(err)
	// Local guard rejections say nothing about the provider's health.
	if apperrors.IsCode(err, apperrors.ErrCodeRateLimited) {
		return out, "guard rejected call (" + reason + ")", false
	}
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		reason = fmt.Sprintf("timed out after %s: %s", o.cfg.CallTimeout, reason)
	}
	o.ledger.MarkFailure(key, reason, o.cfg.FailureCooldown)
	return out, reason, false
}

// probe runs p.Probe under the probe timeout.
func (o *Orchestrator[I, O]) probe(ctx context.Context, p provider.RequestResponse[I, O]) provider.ProbeResult {
	probeCtx, cancel := context.WithTimeout(ctx, o.cfg.ProbeTimeout)
	defer cancel()
	res := p.Probe(probeCtx)
	if !res.OK && res.Reason == "" {
		res.Reason = "unknown probe failure"
	}
	return res
}

// ProbeAll probes every candidate concurrently without touching the
// ledger. Results are keyed by canonical name.
func (o *Orchestrator[I, O]) ProbeAll(ctx context.Context) map[string]provider.ProbeResult {
	candidates, _ := o.Candidates("")
	results := make([]provider.ProbeResult, len(candidates))

	var g errgroup.Group
	for i, name := range candidates {
		p, _ := o.registry.Get(name)
		g.Go(func() error {
			results[i] = o.probe(ctx, p)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]provider.ProbeResult, len(candidates))
	for i, name := range candidates {
		out[name] = results[i]
	}
	return out
}

// Statuses returns the ledger state of every registered provider in
// priority order, followed by registered providers outside the list.
func (o *Orchestrator[I, O]) Statuses() []ProviderStatus {
	ordered, _ := o.Candidates("")
	seen := make(map[string]bool, len(ordered))
	for _, n := range ordered {
		seen[n] = true
	}
	for _, n := range o.registry.Names() {
		if !seen[n] {
			ordered = append(ordered, n)
		}
	}

	now := o.ledger.Now()
	out := make([]ProviderStatus, 0, len(ordered))
	for _, name := range ordered {
		state, _ := o.ledger.State(availability.Key(o.cfg.Capability, name))
		out = append(out, ProviderStatus{Provider: name, State: state, Cooling: state.CoolingDown(now)})
	}
	return out
}

func (o *Orchestrator[I, O]) exhausted(failures []Failure) *apperrors.AppError {
	summary := o.cfg.NoProviderReason
	if len(failures) > 0 {
		parts := make([]string, len(failures))
		for i, f := range failures {
			parts[i] = f.Provider + ": " + f.Reason
		}
		summary = strings.Join(parts, "; ")
	}
	return apperrors.ProviderUnavailable(o.cfg.Capability, o.cfg.UnavailableMessage+": "+summary).
		WithDetail("failures", failures)
}

func (o *Orchestrator[I, O]) cancelled(ctx context.Context, cause error, failures []Failure) error {
	o.log.WithContext(ctx).Debug("request cancelled", logger.Fields("tried", len(failures)))
	observability.SetSpanError(ctx, cause)
	return apperrors.Timeout(o.cfg.Capability).WithCause(cause).WithDetail("failures", failures)
}

// errorReason prefers an AppError's message over its full Error string.
func errorReason(err error) string {
	if app, ok := apperrors.AsAppError(err); ok {
		if app.Cause != nil {
			return app.Message + ": " + app.Cause.Error()
		}
		return app.Message
	}
	return err.Error()
}
