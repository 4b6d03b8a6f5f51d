package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// ErrCircuitOpen is returned when a call is rejected without being attempted.
var ErrCircuitOpen = eris.New("resilience: circuit open")

// Breaker is a minimal circuit breaker: after Threshold consecutive
// failures it rejects calls until Cooldown has passed, then lets a single
// probe through. A successful probe closes it again.
type Breaker struct {
	// Threshold is the consecutive-failure count that opens the circuit.
	// Default 5.
	Threshold int
	// Cooldown is how long the circuit stays open. Default 30s.
	Cooldown time.Duration

	mu       sync.Mutex
	failures int
	openedAt time.Time
	now      func() time.Time
}

// NewBreaker creates a breaker with the given threshold and cooldown.
func NewBreaker(threshold int, cooldown time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &Breaker{Threshold: threshold, Cooldown: cooldown, now: time.Now}
}

// Call runs fn unless the circuit is open. Only transient errors count
// toward opening the circuit; a caller bug should not lock out a healthy
// service.
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	b.record(err)
	return err
}

// CallVal is Call for functions that return a value.
func CallVal[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !b.allow() {
		return zero, ErrCircuitOpen
	}
	val, err := fn(ctx)
	b.record(err)
	return val, err
}

// Open reports whether calls would currently be rejected.
func (b *Breaker) Open() bool { return !b.allow() }

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < b.Threshold {
		return true
	}
	// Open; allow a probe once the cooldown has elapsed.
	return b.now().Sub(b.openedAt) >= b.Cooldown
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil || !IsTransient(err) {
		b.failures = 0
		return
	}

	b.failures++
	if b.failures >= b.Threshold {
		b.openedAt = b.now()
	}
}
