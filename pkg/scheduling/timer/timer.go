package timer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	gferrors "github.com/vnykmshr/gofabric/pkg/common/errors"
	"github.com/vnykmshr/gofabric/pkg/common/validation"
	"github.com/vnykmshr/gofabric/pkg/fabric"
	"github.com/vnykmshr/gofabric/pkg/metrics"
)

const (
	// DefaultTickInterval is how often due jobs are checked.
	DefaultTickInterval = 50 * time.Millisecond

	// DefaultMaxJobs bounds the number of scheduled jobs.
	DefaultMaxJobs = 10000

	maxIDLength = 255
)

var (
	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("timer: scheduler already running")

	// ErrDuplicateID is returned when a job ID is already scheduled.
	ErrDuplicateID = errors.New("timer: job ID already scheduled")

	// ErrTooManyJobs is returned when MaxJobs is reached.
	ErrTooManyJobs = errors.New("timer: maximum number of jobs reached")
)

// Submitter accepts tasks for execution. *fabric.Fabric implements it.
type Submitter interface {
	Submit(task fabric.Task) error
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Job describes a scheduled job.
type Job struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // Zero for one-time and cron jobs
	Cron     string
	Created  time.Time
	Runs     int64
}

// Config holds scheduler configuration.
type Config struct {
	// Name labels log lines and metrics. Defaults to "timer".
	Name string

	// Fabric receives due jobs. Required.
	Fabric Submitter

	// Location is used to evaluate cron expressions. Defaults to time.Local.
	Location *time.Location

	// TickInterval is how often due jobs are checked.
	TickInterval time.Duration

	// MaxJobs bounds the number of scheduled jobs.
	MaxJobs int

	// Clock defaults to the wall clock.
	Clock Clock

	// Logger defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics receives fired and failed job counts. Nil disables metrics.
	Metrics *metrics.Registry
}

type scheduledJob struct {
	id       string
	task     fabric.Task
	runAt    time.Time
	interval time.Duration
	cronExpr string
	schedule cron.Schedule
	created  time.Time
	runs     atomic.Int64
}

// Scheduler submits tasks into a fabric at a time, after a delay, at a
// fixed interval or on a cron schedule. Due jobs are detected on each tick
// and submitted; they run as ordinary fabric tasks.
type Scheduler struct {
	config     Config
	logger     *zap.Logger
	cronParser cron.Parser
	firedC     prometheus.Counter
	failedC    prometheus.Counter

	mu      sync.RWMutex
	jobs    map[string]*scheduledJob
	done    chan struct{}
	stopped chan struct{}
	running bool
}

// New creates a scheduler. It does not start ticking until Start.
func New(config Config) (*Scheduler, error) {
	if err := validation.ValidateNotNil("timer", "Fabric", config.Fabric); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = "timer"
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.TickInterval == 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.MaxJobs == 0 {
		config.MaxJobs = DefaultMaxJobs
	}
	if config.Clock == nil {
		config.Clock = realClock{}
	}
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.TickInterval < 0 {
		return nil, gferrors.NewValidationError("timer", "TickInterval", config.TickInterval, "must be positive")
	}
	if err := validation.ValidatePositive("timer", "MaxJobs", config.MaxJobs); err != nil {
		return nil, err
	}

	s := &Scheduler{
		config:     config,
		logger:     config.Logger.Named("timer").With(zap.String("scheduler", config.Name)),
		cronParser: cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		jobs:       make(map[string]*scheduledJob),
	}
	if config.Metrics != nil {
		s.firedC = config.Metrics.TimerJobsFired.WithLabelValues(config.Name)
		s.failedC = config.Metrics.TimerJobsFailed.WithLabelValues(config.Name)
	}
	return s, nil
}

// Schedule runs task once at runAt. An empty id is replaced by a generated
// one; the effective id is returned.
func (s *Scheduler) Schedule(id string, task fabric.Task, runAt time.Time) (string, error) {
	if runAt.IsZero() {
		return "", gferrors.NewValidationError("timer", "runAt", runAt, "cannot be zero")
	}
	return s.add(id, task, func(j *scheduledJob) {
		j.runAt = runAt
	})
}

// ScheduleAfter runs task once after delay.
func (s *Scheduler) ScheduleAfter(id string, task fabric.Task, delay time.Duration) (string, error) {
	if err := validation.ValidateNonNegative("timer", "delay", int(delay)); err != nil {
		return "", err
	}
	return s.Schedule(id, task, s.config.Clock.Now().Add(delay))
}

// ScheduleRepeating runs task now and then every interval.
func (s *Scheduler) ScheduleRepeating(id string, task fabric.Task, interval time.Duration) (string, error) {
	if interval <= 0 {
		return "", gferrors.NewValidationError("timer", "interval", interval, "must be positive")
	}
	return s.add(id, task, func(j *scheduledJob) {
		j.runAt = s.config.Clock.Now()
		j.interval = interval
	})
}

// ScheduleCron runs task on a cron schedule. Expressions have a leading
// seconds field, e.g. "*/5 * * * * *", or use descriptors such as "@hourly".
func (s *Scheduler) ScheduleCron(id string, cronExpr string, task fabric.Task) (string, error) {
	if cronExpr == "" {
		return "", gferrors.NewValidationError("timer", "cronExpr", cronExpr, "cannot be empty")
	}
	schedule, err := s.cronParser.Parse(cronExpr)
	if err != nil {
		return "", gferrors.NewValidationError("timer", "cronExpr", cronExpr, err.Error())
	}
	return s.add(id, task, func(j *scheduledJob) {
		j.cronExpr = cronExpr
		j.schedule = schedule
		j.runAt = schedule.Next(s.config.Clock.Now().In(s.config.Location))
	})
}

func (s *Scheduler) add(id string, task fabric.Task, init func(j *scheduledJob)) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if len(id) > maxIDLength {
		return "", gferrors.NewValidationError("timer", "id", len(id), "too long").
			WithHint("use at most 255 characters")
	}
	if task == nil {
		return "", gferrors.NewValidationError("timer", "task", nil, "cannot be nil")
	}

	j := &scheduledJob{id: id, task: task, created: s.config.Clock.Now()}
	init(j)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		return "", gferrors.NewOperationError("timer", "Schedule", ErrDuplicateID).WithContext(id)
	}
	if len(s.jobs) >= s.config.MaxJobs {
		return "", gferrors.NewOperationError("timer", "Schedule", ErrTooManyJobs)
	}
	s.jobs[id] = j
	return id, nil
}

// Cancel removes a job. It reports whether the job existed.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[id]; exists {
		delete(s.jobs, id)
		return true
	}
	return false
}

// CancelAll removes every job.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jobs = make(map[string]*scheduledJob)
}

// List returns the scheduled jobs ordered by next run time.
func (s *Scheduler) List() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, Job{
			ID:       j.id,
			RunAt:    j.runAt,
			Interval: j.interval,
			Cron:     j.cronExpr,
			Created:  j.created,
			Runs:     j.runs.Load(),
		})
	}

	sort.Slice(jobs, func(i, k int) bool {
		return jobs[i].RunAt.Before(jobs[k].RunAt)
	})
	return jobs
}

// Start begins ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	s.running = true
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})

	go s.run(s.done, s.stopped)
	s.logger.Debug("timer started", zap.Duration("tick", s.config.TickInterval))
	return nil
}

// Stop halts ticking and waits for the loop to exit. Jobs already
// submitted keep running on the fabric.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	stopped := s.stopped
	s.mu.Unlock()

	<-stopped
	s.logger.Debug("timer stopped")
}

func (s *Scheduler) run(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.fireDue()
		}
	}
}

// fireDue submits every job whose time has come and reschedules repeating
// and cron jobs.
func (s *Scheduler) fireDue() {
	now := s.config.Clock.Now()

	s.mu.Lock()
	if len(s.jobs) == 0 {
		s.mu.Unlock()
		return
	}

	var due []*scheduledJob
	for id, j := range s.jobs {
		if j.runAt.After(now) {
			continue
		}
		due = append(due, j)

		switch {
		case j.interval > 0:
			j.runAt = now.Add(j.interval)
		case j.schedule != nil:
			j.runAt = j.schedule.Next(now.In(s.config.Location))
		default:
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		if err := s.config.Fabric.Submit(s.wrap(j)); err != nil {
			s.logger.Warn("job submission failed", zap.String("job", j.id), zap.Error(err))
			continue
		}
		j.runs.Add(1)
		if s.firedC != nil {
			s.firedC.Inc()
		}
	}
}

func (s *Scheduler) wrap(j *scheduledJob) fabric.Task {
	return fabric.TaskFunc(func(ctx context.Context) error {
		err := j.task.Execute(ctx)
		if err != nil && s.failedC != nil {
			s.failedC.Inc()
		}
		return err
	})
}
