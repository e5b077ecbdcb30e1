// Package bucket provides a token bucket rate limiter whose waits park
// fabric tasks.
//
// Tokens refill at Rate per second up to Burst. Allow and AllowN never
// block. Wait and WaitN sleep until the requested tokens are due: inside a
// fabric task the task parks and its worker keeps running other tasks.
package bucket

import (
	"errors"
	"math"
	"sync"
	"time"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

// Limit is a rate of events per second. A zero Limit allows only the
// initial tokens. Use Inf for unlimited rates.
type Limit float64

// Inf is the infinite rate limit; it allows all events.
var Inf = Limit(math.Inf(1))

// Every converts a minimum interval between events to a Limit.
func Every(interval time.Duration) Limit {
	if interval <= 0 {
		return Inf
	}
	return Limit(time.Second) / Limit(interval)
}

// ErrWouldExceedDeadline is returned by WaitN when the tokens would not be
// available before the context deadline.
var ErrWouldExceedDeadline = errors.New("bucket: wait would exceed context deadline")

// Clock provides the current time. It can be mocked for testing.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds configuration options for creating a Limiter.
type Config struct {
	// Rate is the number of tokens added per second.
	Rate Limit

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// InitialTokens is the number of tokens to start with.
	// If negative, starts full.
	InitialTokens int

	// Clock defaults to the wall clock.
	Clock Clock

	// Name labels metrics. Defaults to "bucket".
	Name string

	// Metrics receives allow and deny counts. Nil disables metrics.
	Metrics *metrics.Registry
}

// Limiter is a token bucket. It is safe for concurrent use by tasks and
// goroutines.
type Limiter struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock

	metrics bucketMetrics
}

// Reservation records tokens taken ahead of time. The holder should act
// after Delay, or Cancel to return the tokens.
type Reservation struct {
	ok        bool
	timeToAct time.Time
	tokens    int
	lim       *Limiter
}

// New creates a limiter and panics on invalid arguments; use NewSafe to
// get an error instead.
func New(rate Limit, burst int) *Limiter {
	l, err := NewSafe(rate, burst)
	if err != nil {
		panic(err)
	}
	return l
}

// NewSafe creates a limiter that starts full.
func NewSafe(rate Limit, burst int) (*Limiter, error) {
	return NewWithConfigSafe(Config{Rate: rate, Burst: burst, InitialTokens: -1})
}

// NewWithConfigSafe creates a limiter from config.
func NewWithConfigSafe(config Config) (*Limiter, error) {
	if config.Rate < 0 {
		return nil, gferrors.NewValidationError("bucket", "Rate", config.Rate, "rate cannot be negative").
			WithHint("use 0 to allow only the initial tokens or Inf for no limit")
	}
	if config.Burst <= 0 {
		return nil, gferrors.NewValidationError("bucket", "Burst", config.Burst, "burst must be positive").
			WithHint("burst determines how many tokens can be consumed instantly")
	}
	if config.Clock == nil {
		config.Clock = systemClock{}
	}
	if config.Name == "" {
		config.Name = "bucket"
	}

	tokens := float64(config.InitialTokens)
	if config.InitialTokens < 0 || config.InitialTokens > config.Burst {
		tokens = float64(config.Burst)
	}

	return &Limiter{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     tokens,
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
		metrics:    newBucketMetrics(config.Metrics, config.Name),
	}, nil
}

// OK reports whether the reservation holds tokens.
func (r *Reservation) OK() bool {
	return r.ok
}

// Delay returns how long the holder must wait before acting.
func (r *Reservation) Delay() time.Duration {
	return r.DelayFrom(r.lim.clock.Now())
}

// DelayFrom returns the wait measured from now.
func (r *Reservation) DelayFrom(now time.Time) time.Duration {
	if !r.ok {
		return 0
	}
	if d := r.timeToAct.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Cancel returns the reserved tokens to the bucket.
func (r *Reservation) Cancel() {
	if !r.ok || r.tokens == 0 {
		return
	}
	r.lim.cancel(r)
	r.ok = false
}
