package breaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorpc/internal/jsonrpc"
	"neorpc/internal/rpcerr"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *testClock) {
	b := New("http://node:10332", cfg, zerolog.Nop())
	clock := &testClock{now: time.Unix(1700000000, 0)}
	b.now = clock.Now
	return b, clock
}

var errConn = rpcerr.New(rpcerr.KindTransport, "connection refused")

func fail(context.Context) error    { return errConn }
func succeed(context.Context) error { return nil }

func TestBreaker_OpensAndRecovers(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 3, Timeout: time.Second, SuccessThreshold: 1, HalfOpenMaxRequests: 1})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Call(context.Background(), fail), rpcerr.ErrTransport)
	}
	require.Equal(t, StateOpen, b.State())

	var called bool
	err := b.Call(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, rpcerr.ErrCircuitOpen)
	assert.False(t, called, "open circuit must not reach downstream")
	assert.True(t, rpcerr.IsRetryable(err))

	clock.Advance(999 * time.Millisecond)
	assert.ErrorIs(t, b.Call(context.Background(), succeed), rpcerr.ErrCircuitOpen)

	clock.Advance(time.Millisecond)
	require.NoError(t, b.Call(context.Background(), succeed))
	assert.Equal(t, StateClosed, b.State())

	stats := b.Stats()
	assert.EqualValues(t, 6, stats.Total)
	assert.EqualValues(t, 3, stats.Failed)
	assert.EqualValues(t, 1, stats.Successful)
	assert.EqualValues(t, 2, stats.Rejected)
	assert.EqualValues(t, 3, stats.StateTransitions) // closed->open->half-open->closed
	assert.Equal(t, clock.Now(), stats.LastSuccess)
}

func TestBreaker_TwoProbesClose(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 3, Timeout: 100 * time.Millisecond, SuccessThreshold: 2, HalfOpenMaxRequests: 2})
	var calls int
	probe := func(context.Context) error {
		calls++
		return nil
	}

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Call(context.Background(), fail), rpcerr.ErrTransport)
	}
	assert.ErrorIs(t, b.Call(context.Background(), probe), rpcerr.ErrCircuitOpen)
	assert.Zero(t, calls)

	clock.Advance(110 * time.Millisecond)
	require.NoError(t, b.Call(context.Background(), probe))
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Call(context.Background(), probe))
	assert.Equal(t, StateClosed, b.State())

	require.NoError(t, b.Call(context.Background(), probe))
	assert.Equal(t, 3, calls)
	assert.Zero(t, b.Stats().ConsecutiveFailures)
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 3})

	for i := 0; i < 10; i++ {
		_ = b.Call(context.Background(), fail)
		_ = b.Call(context.Background(), fail)
		require.NoError(t, b.Call(context.Background(), succeed))
	}
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 0, b.Stats().ConsecutiveFailures)
}

func TestBreaker_FailureWindow(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 3, FailureWindow: 10 * time.Second})

	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), fail)
	clock.Advance(11 * time.Second)

	_ = b.Call(context.Background(), fail)
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 1, b.Stats().ConsecutiveFailures)

	clock.Advance(5 * time.Second)
	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second, SuccessThreshold: 2})

	_ = b.Call(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())

	clock.Advance(time.Second)
	require.NoError(t, b.Call(context.Background(), succeed))
	require.Equal(t, StateHalfOpen, b.State())

	_ = b.Call(context.Background(), fail)
	assert.Equal(t, StateOpen, b.State())

	// opened_at was reset by the half-open failure
	clock.Advance(500 * time.Millisecond)
	assert.ErrorIs(t, b.Call(context.Background(), succeed), rpcerr.ErrCircuitOpen)
}

func TestBreaker_HalfOpenProbeLimit(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second, SuccessThreshold: 2, HalfOpenMaxRequests: 1})
	_ = b.Call(context.Background(), fail)
	clock.Advance(time.Second)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Call(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	assert.ErrorIs(t, b.Call(context.Background(), succeed), rpcerr.ErrCircuitOpen)
	assert.Equal(t, StateHalfOpen, b.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateHalfOpen, b.State(), "one success of two")

	require.NoError(t, b.Call(context.Background(), succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenConcurrency(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second, SuccessThreshold: 100, HalfOpenMaxRequests: 3})
	_ = b.Call(context.Background(), fail)
	clock.Advance(time.Second)

	var inFlight, maxSeen atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Call(context.Background(), func(context.Context) error {
				n := inFlight.Add(1)
				for {
					m := maxSeen.Load()
					if n <= m || maxSeen.CompareAndSwap(m, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				inFlight.Add(-1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, maxSeen.Load(), int32(3))
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_StaleProbesCountAgainstLimit(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second, SuccessThreshold: 5, HalfOpenMaxRequests: 2})
	_ = b.Call(context.Background(), fail)
	clock.Advance(time.Second)

	blocking := func(started, release chan struct{}) func(context.Context) error {
		return func(context.Context) error {
			close(started)
			<-release
			return nil
		}
	}

	firstStarted, firstRelease := make(chan struct{}), make(chan struct{})
	firstDone := make(chan error, 1)
	go func() { firstDone <- b.Call(context.Background(), blocking(firstStarted, firstRelease)) }()
	<-firstStarted

	// a failed probe reopens the circuit while the first one still runs
	_ = b.Call(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())
	clock.Advance(time.Second)

	secondStarted, secondRelease := make(chan struct{}), make(chan struct{})
	secondDone := make(chan error, 1)
	go func() { secondDone <- b.Call(context.Background(), blocking(secondStarted, secondRelease)) }()
	<-secondStarted
	require.Equal(t, StateHalfOpen, b.State())

	assert.ErrorIs(t, b.Call(context.Background(), succeed), rpcerr.ErrCircuitOpen)

	close(firstRelease)
	require.NoError(t, <-firstDone)
	assert.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Call(context.Background(), succeed))

	close(secondRelease)
	require.NoError(t, <-secondDone)
}

func TestBreaker_ApplicationErrorsAreSuccesses(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 2})

	appErr := rpcerr.FromRPC("getblock", "http://node:10332", jsonrpc.NewError(jsonrpc.CodeUnknownBlock, "Unknown block"))
	for i := 0; i < 5; i++ {
		err := b.Call(context.Background(), func(context.Context) error { return appErr })
		assert.ErrorIs(t, err, rpcerr.ErrRPC)
	}
	assert.Equal(t, StateClosed, b.State())
	assert.EqualValues(t, 5, b.Stats().Successful)

	serverErr := rpcerr.FromRPC("getblock", "http://node:10332", jsonrpc.NewError(jsonrpc.CodeInternalError, "Internal error"))
	for i := 0; i < 2; i++ {
		_ = b.Call(context.Background(), func(context.Context) error { return serverErr })
	}
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_CancellationIsIgnored(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second, SuccessThreshold: 1, HalfOpenMaxRequests: 1})
	_ = b.Call(context.Background(), fail)
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := b.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateHalfOpen, b.State())

	// the slot was released
	require.NoError(t, b.Call(context.Background(), succeed))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_StaleResultIgnored(t *testing.T) {
	b, _ := newTestBreaker(Config{FailureThreshold: 2, Timeout: time.Minute})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Call(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	_ = b.Call(context.Background(), fail)
	_ = b.Call(context.Background(), fail)
	require.Equal(t, StateOpen, b.State())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateOpen, b.State())
	assert.EqualValues(t, 1, b.Stats().Successful)
}

func TestBreaker_StateChangeHook(t *testing.T) {
	b, clock := newTestBreaker(Config{FailureThreshold: 1, Timeout: time.Second, SuccessThreshold: 1})

	var got []string
	b.OnStateChange(func(from, to State) {
		// the hook runs outside the lock
		_ = b.State()
		got = append(got, from.String()+">"+to.String())
	})

	_ = b.Call(context.Background(), fail)
	clock.Advance(time.Second)
	_ = b.Call(context.Background(), succeed)

	assert.Equal(t, []string{"closed>open", "open>half-open", "half-open>closed"}, got)
}

func TestDo(t *testing.T) {
	b, _ := newTestBreaker(Config{})
	v, err := Do(context.Background(), b, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	_, err = Do(context.Background(), b, func(context.Context) (int, error) { return 0, errors.New("boom") })
	assert.Error(t, err)
	assert.EqualValues(t, 1, b.Stats().Failed)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, OutcomeSuccess, Classify(nil))
	assert.Equal(t, OutcomeIgnored, Classify(context.Canceled))
	assert.Equal(t, OutcomeIgnored, Classify(rpcerr.New(rpcerr.KindPoolShutdown, "closed")))
	assert.Equal(t, OutcomeSuccess, Classify(rpcerr.New(rpcerr.KindSerialization, "bad int")))
	assert.Equal(t, OutcomeFailure, Classify(rpcerr.New(rpcerr.KindTimeout, "slow")))
	assert.Equal(t, OutcomeFailure, Classify(rpcerr.New(rpcerr.KindRateLimited, "429")))
	assert.Equal(t, OutcomeFailure, Classify(errors.New("unknown")))
}

func TestStateText(t *testing.T) {
	text, err := StateHalfOpen.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "half-open", string(text))
}
