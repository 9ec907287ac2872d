package resilience

import (
	"context"
	"errors"
	"time"
)

var (
	ErrBulkheadFull    = errors.New("bulkhead is full")
	ErrBulkheadTimeout = errors.New("bulkhead wait timeout")
)

const defaultMaxConcurrent = 10

// BulkheadConfig configures a Bulkhead.
type BulkheadConfig struct {
	Name string
	// MaxConcurrent values below 1 mean 10.
	MaxConcurrent int
	// MaxWait is how long Execute queues for a slot. Zero rejects at once.
	MaxWait time.Duration
	// OnReject runs when a call is turned away.
	OnReject func(name string, err error)
}

// Bulkhead caps the calls in flight to one provider. Slots are tokens in a
// buffered channel.
type Bulkhead struct {
	name     string
	maxWait  time.Duration
	onReject func(string, error)
	slots    chan struct{}
}

// NewBulkhead creates a Bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	n := config.MaxConcurrent
	if n <= 0 {
		n = defaultMaxConcurrent
	}
	return &Bulkhead{
		name:     config.Name,
		maxWait:  config.MaxWait,
		onReject: config.OnReject,
		slots:    make(chan struct{}, n),
	}
}

// Execute runs fn once a slot is free.
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	if err := b.acquire(ctx); err != nil {
		if b.onReject != nil {
			b.onReject(b.name, err)
		}
		return err
	}
	defer func() { <-b.slots }()
	return fn()
}

func (b *Bulkhead) acquire(ctx context.Context) error {
	select {
	case b.slots <- struct{}{}:
		return nil
	default:
		if b.maxWait <= 0 {
			return ErrBulkheadFull
		}
	}

	wait, cancel := context.WithTimeoutCause(ctx, b.maxWait, ErrBulkheadTimeout)
	defer cancel()
	select {
	case b.slots <- struct{}{}:
		return nil
	case <-wait.Done():
		return context.Cause(wait)
	}
}

// InUse returns the number of occupied slots.
func (b *Bulkhead) InUse() int { return len(b.slots) }

// Available returns the number of free slots.
func (b *Bulkhead) Available() int { return cap(b.slots) - len(b.slots) }
