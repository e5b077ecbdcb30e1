package bucket

import (
	"context"
	"fmt"
	"math"
	"time"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/scheduling/timer"
)

// Allow reports whether an event may happen now.
func (l *Limiter) Allow() bool {
	return l.AllowN(1)
}

// AllowN reports whether n events may happen now, taking the tokens if so.
func (l *Limiter) AllowN(n int) bool {
	r := l.reserveN(l.clock.Now(), n, 0)
	if r.ok {
		l.metrics.allowed()
	} else {
		l.metrics.denied()
	}
	return r.ok
}

// Wait suspends the caller until one token is available.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN suspends the caller until n tokens are available. Inside a fabric
// task the task parks for the delay. If ctx ends first the tokens are
// returned and ctx.Err() is reported; if the delay would outlast the
// ctx deadline WaitN fails immediately with ErrWouldExceedDeadline.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	burst, limit := l.burst, l.limit
	l.mu.Unlock()
	if n > burst && limit != Inf {
		return gferrors.NewValidationError("bucket", "n", n, fmt.Sprintf("exceeds burst %d", burst))
	}

	now := l.clock.Now()
	maxWait := time.Duration(math.MaxInt64)
	if deadline, ok := ctx.Deadline(); ok {
		maxWait = deadline.Sub(now)
	}

	r := l.reserveN(now, n, maxWait)
	if !r.ok {
		l.metrics.denied()
		if limit == 0 {
			return gferrors.NewOperationError("bucket", "WaitN", gferrors.ErrInvalidConfiguration).
				WithContext("zero rate and not enough tokens left")
		}
		return ErrWouldExceedDeadline
	}

	if err := timer.Sleep(ctx, r.DelayFrom(now)); err != nil {
		r.Cancel()
		return err
	}
	l.metrics.allowed()
	return nil
}

// Reserve reserves one token.
func (l *Limiter) Reserve() *Reservation {
	return l.ReserveN(1)
}

// ReserveN reserves n tokens, however long they take to accrue.
func (l *Limiter) ReserveN(n int) *Reservation {
	return l.reserveN(l.clock.Now(), n, time.Duration(math.MaxInt64))
}

// SetLimit changes the refill rate. Tokens accrued so far are kept.
func (l *Limiter) SetLimit(limit Limit) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advanceLocked(l.clock.Now())
	l.limit = limit
}

// SetBurst changes the bucket size, dropping tokens above it.
func (l *Limiter) SetBurst(burst int) {
	if burst <= 0 {
		gferrors.Misuse("bucket", "SetBurst",
			gferrors.NewValidationError("bucket", "Burst", burst, "burst must be positive"))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.advanceLocked(l.clock.Now())
	l.burst = burst
	if l.tokens > float64(burst) {
		l.tokens = float64(burst)
	}
}

// Limit returns the refill rate.
func (l *Limiter) Limit() Limit {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limit
}

// Burst returns the bucket size.
func (l *Limiter) Burst() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burst
}

// Tokens returns the tokens available now. It is negative while
// outstanding reservations are still accruing.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advanceLocked(l.clock.Now())
	return l.tokens
}

func (l *Limiter) reserveN(now time.Time, n int, maxWait time.Duration) *Reservation {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := &Reservation{timeToAct: now, tokens: n, lim: l}
	if n <= 0 || l.limit == Inf {
		r.ok = true
		return r
	}

	l.advanceLocked(now)
	if l.tokens >= float64(n) {
		l.tokens -= float64(n)
		l.metrics.tokens(l.tokens)
		r.ok = true
		return r
	}
	if l.limit == 0 {
		return r
	}

	missing := float64(n) - l.tokens
	wait := time.Duration(float64(time.Second) * missing / float64(l.limit))
	if wait > maxWait {
		return r
	}

	// Tokens may go negative; later callers queue behind this reservation.
	l.tokens -= float64(n)
	l.metrics.tokens(l.tokens)
	r.ok = true
	r.timeToAct = now.Add(wait)
	return r
}

func (l *Limiter) advanceLocked(now time.Time) {
	if l.limit == Inf {
		l.tokens = float64(l.burst)
		l.lastUpdate = now
		return
	}

	elapsed := now.Sub(l.lastUpdate)
	if elapsed <= 0 {
		return
	}
	l.lastUpdate = now
	if l.limit == 0 {
		return
	}
	l.tokens = math.Min(l.tokens+elapsed.Seconds()*float64(l.limit), float64(l.burst))
}

func (l *Limiter) cancel(r *Reservation) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.advanceLocked(l.clock.Now())
	l.tokens = math.Min(l.tokens+float64(r.tokens), float64(l.burst))
	l.metrics.tokens(l.tokens)
}
