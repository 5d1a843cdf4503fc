// Package breaker implements a three-state circuit breaker guarding calls to a node.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"neorpc/internal/rpcerr"
)

// State is the circuit state
type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Default values
const (
	DefaultFailureThreshold    = 5
	DefaultTimeout             = 30 * time.Second
	DefaultSuccessThreshold    = 2
	DefaultFailureWindow       = time.Minute
	DefaultHalfOpenMaxRequests = 3
)

// Config holds circuit breaker configuration
type Config struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int
	// Timeout is how long the circuit stays open before probing
	Timeout time.Duration
	// SuccessThreshold is the number of half-open successes that closes the circuit
	SuccessThreshold int
	// FailureWindow restarts the failure count when the previous failure is older.
	// Zero disables it.
	FailureWindow       time.Duration
	HalfOpenMaxRequests int
}

func (c *Config) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = DefaultSuccessThreshold
	}
	if c.FailureWindow < 0 {
		c.FailureWindow = 0
	}
	if c.HalfOpenMaxRequests <= 0 {
		c.HalfOpenMaxRequests = DefaultHalfOpenMaxRequests
	}
}

// Outcome is how a finished call affects the circuit
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
	// OutcomeIgnored releases the half-open slot without counting
	OutcomeIgnored
)

// Classify maps a call result to an outcome. The node answering with an
// application error is healthy. Caller cancellation and client shutdown say
// nothing about the node.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, rpcerr.ErrPoolShutdown):
		return OutcomeIgnored
	case rpcerr.IsApplication(err):
		return OutcomeSuccess
	default:
		return OutcomeFailure
	}
}

// StateChangeFunc is called after every transition, outside the breaker lock
type StateChangeFunc func(from, to State)

type transition struct {
	from, to State
}

// Breaker guards calls to one endpoint
type Breaker struct {
	endpoint string
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time

	mu sync.Mutex

	state               State
	generation          uint64
	consecutiveFailures int
	halfOpenSuccesses   int
	probesInFlight      int // probes of any generation still running
	openedAt            time.Time
	lastFailure         time.Time
	lastSuccess         time.Time

	total       uint64
	successful  uint64
	failed      uint64
	rejected    uint64
	transitions uint64

	onStateChange StateChangeFunc
}

// New creates a closed breaker
func New(endpoint string, cfg Config, logger zerolog.Logger) *Breaker {
	cfg.applyDefaults()
	return &Breaker{
		endpoint: endpoint,
		cfg:      cfg,
		logger:   logger.With().Str("component", "breaker").Str("endpoint", endpoint).Logger(),
		now:      time.Now,
		state:    StateClosed,
	}
}

// OnStateChange sets the transition hook. Call it before the breaker is used.
func (b *Breaker) OnStateChange(fn StateChangeFunc) {
	b.mu.Lock()
	b.onStateChange = fn
	b.mu.Unlock()
}

// Call runs op if the circuit admits it and records the outcome
func (b *Breaker) Call(ctx context.Context, op func(ctx context.Context) error) error {
	adm, err := b.allow()
	if err != nil {
		return err
	}

	err = op(ctx)
	outcome := Classify(err)
	if outcome == OutcomeFailure && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		outcome = OutcomeIgnored
	}
	b.record(adm, outcome)
	return err
}

// Do runs op through b and returns its value
func Do[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Call(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		out = v
		return err
	})
	return out, err
}

// admission describes how a call was let through
type admission struct {
	generation uint64
	probe      bool
}

// allow admits or rejects a call
func (b *Breaker) allow() (admission, error) {
	b.mu.Lock()
	b.total++

	var notify []transition
	now := b.now()

	if b.state == StateOpen {
		if elapsed := now.Sub(b.openedAt); elapsed < b.cfg.Timeout {
			b.rejected++
			b.mu.Unlock()
			return admission{}, &rpcerr.Error{Kind: rpcerr.KindCircuitOpen, Endpoint: b.endpoint,
				Message: fmt.Sprintf("circuit open, next probe in %s", (b.cfg.Timeout - elapsed).Round(time.Millisecond))}
		}
		notify = append(notify, b.setState(StateHalfOpen, now))
	}

	adm := admission{generation: b.generation}
	if b.state == StateHalfOpen {
		if b.probesInFlight >= b.cfg.HalfOpenMaxRequests {
			b.rejected++
			b.mu.Unlock()
			b.notify(notify)
			return admission{}, &rpcerr.Error{Kind: rpcerr.KindCircuitOpen, Endpoint: b.endpoint,
				Message: "circuit half-open, probe limit reached"}
		}
		b.probesInFlight++
		adm.probe = true
	}

	b.mu.Unlock()
	b.notify(notify)
	return adm, nil
}

// record applies the outcome of an admitted call. Only calls admitted in the
// current generation move the state.
func (b *Breaker) record(adm admission, outcome Outcome) {
	b.mu.Lock()
	now := b.now()

	if adm.probe {
		b.probesInFlight--
	}

	switch outcome {
	case OutcomeSuccess:
		b.successful++
		b.lastSuccess = now
	case OutcomeFailure:
		b.failed++
	}

	var notify []transition
	if adm.generation == b.generation {
		switch b.state {
		case StateClosed:
			switch outcome {
			case OutcomeSuccess:
				b.consecutiveFailures = 0
			case OutcomeFailure:
				if b.cfg.FailureWindow > 0 && !b.lastFailure.IsZero() && now.Sub(b.lastFailure) > b.cfg.FailureWindow {
					b.consecutiveFailures = 0
				}
				b.consecutiveFailures++
				if b.consecutiveFailures >= b.cfg.FailureThreshold {
					notify = append(notify, b.setState(StateOpen, now))
				}
			}
		case StateHalfOpen:
			switch outcome {
			case OutcomeSuccess:
				b.halfOpenSuccesses++
				if b.halfOpenSuccesses >= b.cfg.SuccessThreshold {
					notify = append(notify, b.setState(StateClosed, now))
				}
			case OutcomeFailure:
				notify = append(notify, b.setState(StateOpen, now))
			}
		}
	}
	if outcome == OutcomeFailure {
		b.lastFailure = now
	}

	b.mu.Unlock()
	b.notify(notify)
}

// setState must be called with b.mu held
func (b *Breaker) setState(to State, now time.Time) transition {
	from := b.state
	b.state = to
	b.generation++
	b.transitions++
	b.halfOpenSuccesses = 0

	switch to {
	case StateOpen:
		b.openedAt = now
	case StateClosed:
		b.consecutiveFailures = 0
	}

	event := b.logger.Info()
	if to == StateOpen {
		event = b.logger.Warn().Int("consecutiveFailures", b.consecutiveFailures)
	}
	event.Str("from", from.String()).Str("to", to.String()).Msg("circuit state changed")

	return transition{from: from, to: to}
}

func (b *Breaker) notify(transitions []transition) {
	if len(transitions) == 0 {
		return
	}
	b.mu.Lock()
	fn := b.onStateChange
	b.mu.Unlock()
	if fn == nil {
		return
	}
	for _, t := range transitions {
		fn(t.from, t.to)
	}
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Stats is a snapshot of breaker counters
type Stats struct {
	Total               uint64    `json:"total"`
	Successful          uint64    `json:"successful"`
	Failed              uint64    `json:"failed"`
	Rejected            uint64    `json:"rejected"`
	StateTransitions    uint64    `json:"stateTransitions"`
	State               State     `json:"state"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	LastFailure         time.Time `json:"lastFailure"`
	LastSuccess         time.Time `json:"lastSuccess"`
}

// Stats returns current breaker statistics
func (b *Breaker) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		Total:               b.total,
		Successful:          b.successful,
		Failed:              b.failed,
		Rejected:            b.rejected,
		StateTransitions:    b.transitions,
		State:               b.state,
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailure:         b.lastFailure,
		LastSuccess:         b.lastSuccess,
	}
}
