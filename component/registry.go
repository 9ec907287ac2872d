package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
)

const defaultStopTimeout = 10 * time.Second

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the lifecycle logger. The default is the global logger.
func WithLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// WithStopTimeout bounds each component's Stop on top of the caller's
// deadline.
func WithStopTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.stopTimeout = d }
}

// Registry runs components in registration order and stops the running
// ones in reverse.
type Registry struct {
	mu          sync.RWMutex
	components  []Component
	running     map[string]bool
	log         *logger.Logger
	stopTimeout time.Duration
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{running: make(map[string]bool), stopTimeout: defaultStopTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.WithComponent("lifecycle")
	}
	return r
}

// Register appends c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	for _, existing := range r.components {
		if existing.Name() == name {
			return fmt.Errorf("component %s already registered", name)
		}
	}
	r.components = append(r.components, c)
	r.log.Debug("component registered", logger.Fields(logger.FieldComponent, name))
	return nil
}

// StartAll starts every component not yet running. It can run again after
// late registrations; the first failure stops the pass.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.components {
		name := c.Name()
		if r.running[name] {
			continue
		}
		start := time.Now()
		if err := c.Start(ctx); err != nil {
			r.log.Error("component failed to start", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			return fmt.Errorf("start %s: %w", name, err)
		}
		r.running[name] = true
		r.log.Info("component started", logger.MergeWithDuration(logger.Fields(logger.FieldComponent, name), time.Since(start)))
	}
	return nil
}

// StopAll stops running components in reverse order. Every component is
// given the chance to stop; the errors are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.components) - 1; i >= 0; i-- {
		c := r.components[i]
		name := c.Name()
		if !r.running[name] {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		err := c.Stop(stopCtx)
		cancel()
		delete(r.running, name)
		if err != nil {
			r.log.Error("component failed to stop", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("stop %s: %w", name, err))
			continue
		}
		r.log.Info("component stopped", logger.Fields(logger.FieldComponent, name))
	}
	return errors.Join(errs...)
}

// HealthAll checks every component in registration order.
func (r *Registry) HealthAll(ctx context.Context) []observability.Health {
	checkers := r.Checkers()
	out := make([]observability.Health, len(checkers))
	for i, c := range checkers {
		out[i] = c.CheckHealth(ctx)
	}
	return out
}

// Checkers returns the components as health checkers for /health.
func (r *Registry) Checkers() []observability.HealthChecker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]observability.HealthChecker, len(r.components))
	for i, c := range r.components {
		out[i] = c
	}
	return out
}

// Describe collects the startup summary lines of Describable components.
func (r *Registry) Describe() []Description {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Description
	for _, c := range r.components {
		d, ok := c.(Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		if desc.Name == "" {
			desc.Name = c.Name()
		}
		out = append(out, desc)
	}
	return out
}
