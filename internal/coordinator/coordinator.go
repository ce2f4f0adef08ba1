// Package coordinator owns the run state machine: at most one pipeline
// execution in flight, a timer for the scheduled cadence, and the status
// snapshot external observers read. All state lives behind one mutex;
// the long-running pipeline executes on a single worker goroutine
// outside the lock, so status queries are never blocked by a run.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/BerriAI/fireworks-ai-cost-agent/internal/pipeline"
)

// Phase is the coordinator's externally visible state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
)

// Reason records what admitted a run.
type Reason string

const (
	ReasonScheduled Reason = "scheduled"
	ReasonManual    Reason = "manual"
)

// RunRecord is one historical execution. It is mutated only by the
// coordinator and is immutable once CompletedAt is set.
type RunRecord struct {
	ID          string            `json:"id"`
	Reason      Reason            `json:"reason"`
	StartedAt   time.Time         `json:"started_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
	Outcome     *pipeline.Outcome `json:"outcome,omitempty"`
}

// Runner executes one pipeline run.
type Runner interface {
	Run(ctx context.Context) pipeline.Outcome
}

// DefaultInterval is the cadence used when a Schedule carries neither a
// cron expression nor a positive interval.
const DefaultInterval = 24 * time.Hour

// Schedule decides the next deadline after a completion time. A cron
// expression takes precedence over the fixed interval.
type Schedule struct {
	Interval time.Duration
	Cron     cron.Schedule
}

// Next returns the deadline following t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.Cron != nil {
		return s.Cron.Next(t)
	}
	return t.Add(s.Interval)
}

// ParseCronSpec parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseCronSpec(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// Snapshot is a consistent view of the coordinator state: phase, last
// run and next deadline are read together under one lock, never torn.
type Snapshot struct {
	Phase            Phase      `json:"status"`
	IsRunning        bool       `json:"is_running"`
	Current          *RunRecord `json:"current_run,omitempty"`
	LastRun          *RunRecord `json:"last_run,omitempty"`
	NextScheduledRun time.Time  `json:"next_scheduled_run"`
}

// Coordinator enforces the single-flight policy over pipeline runs.
type Coordinator struct {
	runner   Runner
	schedule Schedule

	mu      sync.Mutex
	phase   Phase
	current *RunRecord
	lastRun *RunRecord
	nextRun time.Time
	closed  bool

	// jobs carries the single admitted run to the worker; capacity one
	// is enough because admission is gated on Idle.
	jobs   chan *RunRecord
	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a Coordinator in the Idle phase with the first deadline
// scheduled relative to now. A zero-value Schedule would make every
// deadline due immediately and spin the timer loop, so it falls back to
// DefaultInterval.
func New(runner Runner, schedule Schedule) *Coordinator {
	if schedule.Cron == nil && schedule.Interval <= 0 {
		schedule.Interval = DefaultInterval
	}
	return &Coordinator{
		runner:   runner,
		schedule: schedule,
		phase:    PhaseIdle,
		nextRun:  schedule.Next(time.Now().UTC()),
		jobs:     make(chan *RunRecord, 1),
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Start launches the worker and the timer loop. Call Close to stop.
func (c *Coordinator) Start() {
	c.wg.Add(2)
	go c.worker()
	go c.timerLoop()
	c.mu.Lock()
	next := c.nextRun
	c.mu.Unlock()
	slog.Info("coordinator started", "next_run", next)
}

// Close stops the timer loop, waits for any in-flight run to finish,
// and rejects all further admissions. A running pipeline executes to
// completion; there is no mid-run cancellation.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	close(c.done)
	c.wg.Wait()
}

// TryRun admits a run if the coordinator is Idle. It returns the run ID
// and true on admission, or "" and false when a run is already in
// flight (no queueing: the caller retries or waits for the schedule).
func (c *Coordinator) TryRun(reason Reason) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.phase == PhaseRunning {
		return "", false
	}

	rec := &RunRecord{
		ID:        uuid.NewString(),
		Reason:    reason,
		StartedAt: time.Now().UTC(),
	}
	c.phase = PhaseRunning
	c.current = rec
	// Capacity one and Idle-gated admission: this send cannot block.
	c.jobs <- rec

	slog.Info("run admitted", "run_id", rec.ID, "reason", reason)
	return rec.ID, true
}

// Status returns a consistent snapshot of the coordinator state.
func (c *Coordinator) Status() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Phase:            c.phase,
		IsRunning:        c.phase == PhaseRunning,
		NextScheduledRun: c.nextRun,
	}
	if c.current != nil {
		cur := *c.current
		snap.Current = &cur
	}
	if c.lastRun != nil {
		last := *c.lastRun
		snap.LastRun = &last
	}
	return snap
}

func (c *Coordinator) worker() {
	defer c.wg.Done()
	for {
		select {
		case rec := <-c.jobs:
			c.execute(rec)
		case <-c.done:
			// Drain a run admitted just before shutdown so the record
			// is finalized rather than abandoned in Running.
			select {
			case rec := <-c.jobs:
				c.execute(rec)
			default:
			}
			return
		}
	}
}

// execute runs the pipeline outside any lock and finalizes the record.
// Panics are caught here: a failed run must never leave the machine
// stuck in Running.
func (c *Coordinator) execute(rec *RunRecord) {
	var outcome pipeline.Outcome
	func() {
		defer func() {
			if p := recover(); p != nil {
				outcome = pipeline.Failure(pipeline.StageInternal, fmt.Errorf("panic: %v", p))
			}
		}()
		outcome = c.runner.Run(context.Background())
	}()
	c.finalize(rec, outcome)
}

// finalize records the outcome, flips back to Idle, and recomputes the
// next deadline from the completion time so a late run does not cause
// runs to bunch up.
func (c *Coordinator) finalize(rec *RunRecord, outcome pipeline.Outcome) {
	c.mu.Lock()
	now := time.Now().UTC()
	rec.CompletedAt = &now
	rec.Outcome = &outcome
	c.lastRun = rec
	c.current = nil
	c.phase = PhaseIdle
	c.nextRun = c.schedule.Next(now)
	next := c.nextRun
	c.mu.Unlock()

	c.wake()
	slog.Info("run finalized",
		"run_id", rec.ID,
		"status", outcome.Status,
		"stage", outcome.Stage,
		"scraped", outcome.ScrapedCount,
		"missing", outcome.MissingCount,
		"pr_url", outcome.ProposalURL,
		"next_run", next)
}

// timerLoop fires scheduled runs. It re-arms whenever the deadline
// moves (finalization, or a rejected fire while a manual run holds the
// machine).
func (c *Coordinator) timerLoop() {
	defer c.wg.Done()
	for {
		c.mu.Lock()
		deadline := c.nextRun
		c.mu.Unlock()

		timer := time.NewTimer(time.Until(deadline))
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-c.notify:
			timer.Stop()
			continue
		case <-timer.C:
			if _, ok := c.TryRun(ReasonScheduled); !ok {
				// A manual run is in flight. Push the deadline forward;
				// finalization will overwrite it with the real one.
				c.mu.Lock()
				c.nextRun = c.schedule.Next(time.Now().UTC())
				c.mu.Unlock()
			}
		}
	}
}

// wake nudges the timer loop to re-read the deadline.
func (c *Coordinator) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
