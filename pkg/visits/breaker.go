package visits

import (
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker trips after more than maxFailures errors inside window and stays
// open for timeout. The first call after that is a half-open probe: success
// closes the breaker, failure opens it again.
type Breaker struct {
	maxFailures int
	window      time.Duration
	timeout     time.Duration
	now         func() time.Time

	mu       sync.Mutex
	state    State
	failures []time.Time
	openedAt time.Time
}

func NewBreaker(maxFailures int, timeout, window time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		window:      window,
		timeout:     timeout,
		now:         time.Now,
		state:       StateClosed,
	}
}

// Do runs fn unless the breaker is open, in which case it returns
// ErrBreakerOpen without calling fn.
func (b *Breaker) Do(fn func() error) error {
	if !b.allow() {
		return ErrBreakerOpen
	}
	err := fn()
	b.record(err)
	return err
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateOpen {
		return true
	}
	if b.now().Sub(b.openedAt) < b.timeout {
		return false
	}
	b.state = StateHalfOpen
	b.failures = b.failures[:0]
	return true
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	now := b.now()
	b.prune(now)
	if err == nil {
		if b.state == StateHalfOpen {
			b.state = StateClosed
			b.failures = b.failures[:0]
		}
		return
	}
	b.failures = append(b.failures, now)
	if b.state == StateHalfOpen || len(b.failures) > b.maxFailures {
		b.state = StateOpen
		b.openedAt = now
	}
}

// prune drops failures older than the window.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.failures) && !b.failures[i].After(cutoff) {
		i++
	}
	b.failures = b.failures[i:]
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
