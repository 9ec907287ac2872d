package availability

import (
	"sort"
	"sync"
	"time"
)

const (
	// MinCooldown is the shortest cooldown MarkFailure will apply.
	MinCooldown = time.Second
	// MinProbeInterval is the shortest interval ShouldProbe will honour.
	MinProbeInterval = 500 * time.Millisecond
)

// ProbeState is the result of the most recent probe.
type ProbeState int

const (
	ProbeUnknown ProbeState = iota
	ProbeOK
	ProbeFailed
)

func (p ProbeState) String() string {
	switch p {
	case ProbeOK:
		return "ok"
	case ProbeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the probe state as its name.
func (p ProbeState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is the health record of one provider.
type State struct {
	Key              string     `json:"key"`
	UnavailableUntil time.Time  `json:"unavailable_until"`
	LastError        string     `json:"last_error,omitempty"`
	LastFailureAt    time.Time  `json:"last_failure_at"`
	LastSuccessAt    time.Time  `json:"last_success_at"`
	LastProbeAt      time.Time  `json:"last_probe_at"`
	LastProbe        ProbeState `json:"last_probe"`
}

// CoolingDown reports whether the provider is skipped at now.
func (s State) CoolingDown(now time.Time) bool {
	return now.Before(s.UnavailableUntil)
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger is the process-wide availability map. One Ledger is built at
// startup and shared by every broker. It is safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]*State
	now     func() time.Time
}

// NewLedger creates an empty Ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{entries: make(map[string]*State), now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// entry returns the state for key, creating it on first use. Callers hold mu.
func (l *Ledger) entry(key string) *State {
	s, ok := l.entries[key]
	if !ok {
		s = &State{Key: key}
		l.entries[key] = s
	}
	return s
}

// ShouldSkip reports whether key is cooling down and how long remains.
// The remaining duration is informational.
func (l *Ledger) ShouldSkip(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	s := l.entry(key)
	if !s.CoolingDown(now) {
		return false, 0
	}
	return true, s.UnavailableUntil.Sub(now)
}

// MarkSuccess closes any cooldown on key and clears its last error.
func (l *Ledger) MarkSuccess(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	s := l.entry(key)
	s.UnavailableUntil = now
	s.LastError = ""
	s.LastSuccessAt = now
}

// MarkFailure opens a cooldown of at least MinCooldown on key, replacing
// any window already open.
func (l *Ledger) MarkFailure(key, reason string, cooldown time.Duration) {
	cooldown = max(cooldown, MinCooldown)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	s := l.entry(key)
	s.UnavailableUntil = now.Add(cooldown)
	s.LastError = reason
	s.LastFailureAt = now
}

// ShouldProbe reports whether at least interval has passed since the last
// probe of key. A key that was never probed always needs one.
func (l *Ledger) ShouldProbe(key string, interval time.Duration) bool {
	interval = max(interval, MinProbeInterval)
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.entry(key)
	if s.LastProbeAt.IsZero() {
		return true
	}
	return l.now().Sub(s.LastProbeAt) >= interval
}

// RecordProbe stamps the probe time and result for key.
func (l *Ledger) RecordProbe(key string, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s := l.entry(key)
	s.LastProbeAt = l.now()
	if ok {
		s.LastProbe = ProbeOK
	} else {
		s.LastProbe = ProbeFailed
	}
}

// State returns a copy of the entry for key. The second result is false
// when key has never been referenced.
func (l *Ledger) State(key string) (State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.entries[key]
	if !ok {
		return State{Key: key}, false
	}
	return *s, true
}

// Snapshot returns copies of every entry sorted by key.
func (l *Ledger) Snapshot() []State {
	l.mu.Lock()
	out := make([]State, 0, len(l.entries))
	for _, s := range l.entries {
		out = append(out, *s)
	}
	l.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Now returns the ledger clock's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Key builds the ledger key for a canonical provider name.
func Key(capability, provider string) string {
	return capability + ":" + provider
}
