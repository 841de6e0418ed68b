// Package orchestrator runs the mention polling loop.
// It coordinates: fetch mentions → select → pipeline → commit cursor → sleep
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"mention-token-bot/internal/cursor"
	"mention-token-bot/internal/domain"
	"mention-token-bot/internal/observability"
	"mention-token-bot/internal/pipeline"
	"mention-token-bot/internal/social"
	"mention-token-bot/internal/storage"
)

// State is the orchestrator's position in the polling loop.
type State string

const (
	StateIdle       State = "IDLE"
	StateFetching   State = "FETCHING"
	StateProcessing State = "PROCESSING"
	StateSleeping   State = "SLEEPING"
	StateStopped    State = "STOPPED"
)

// Loop defaults.
const (
	DefaultPollInterval = 15 * time.Second
	DefaultErrorBackoff = 5 * time.Second

	// DefaultStoreTimeout bounds cursor commits and cycle history writes.
	DefaultStoreTimeout = 5 * time.Second
)

// MentionSource fetches the mentions timeline.
type MentionSource interface {
	FetchMentions(ctx context.Context, userID string, cursor domain.Cursor) (*social.MentionPage, error)
}

// Processor runs the pipeline for one mention.
type Processor interface {
	Process(ctx context.Context, job pipeline.Job) (*pipeline.Result, error)
}

// Options for creating Orchestrator.
type Options struct {
	// Required
	Mentions  MentionSource
	Processor Processor
	Cursor    *cursor.Cursor

	// Optional cycle history sink
	Outcomes storage.CycleOutcomeStore

	Policy       cursor.Policy
	PollInterval time.Duration
	ErrorBackoff time.Duration
	StoreTimeout time.Duration

	Logger *log.Logger
	Now    func() time.Time
	// Sleep blocks for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Snapshot is a point-in-time view of the loop for status reporting.
type Snapshot struct {
	BotID       string             `json:"bot_id"`
	State       State              `json:"state"`
	Cursor      string             `json:"cursor"`
	Cycles      int64              `json:"cycles"`
	Deployed    int64              `json:"deployed"`
	LastResult  domain.CycleResult `json:"last_result,omitempty"`
	LastStatus  string             `json:"last_status,omitempty"`
	LastError   string             `json:"last_error,omitempty"`
	LastCycleAt time.Time          `json:"last_cycle_at,omitempty"`
	NextWakeAt  time.Time          `json:"next_wake_at,omitempty"`
	LastLaunch  *domain.Launch     `json:"last_launch,omitempty"`
}

// CycleReport summarizes one cycle.
type CycleReport struct {
	Outcome domain.CycleOutcome
	Sleep   time.Duration
	Results []*pipeline.Result
}

// Orchestrator drives one cycle at a time; it is not safe to call Run concurrently.
type Orchestrator struct {
	mentions  MentionSource
	processor Processor
	cursor    *cursor.Cursor
	outcomes  storage.CycleOutcomeStore

	policy       cursor.Policy
	pollInterval time.Duration
	errorBackoff time.Duration
	storeTimeout time.Duration

	logger *log.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error

	mu   sync.RWMutex
	snap Snapshot
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	policy := opts.Policy
	if policy == "" {
		policy = cursor.PolicyNewest
	}
	poll := opts.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	backoff := opts.ErrorBackoff
	if backoff <= 0 {
		backoff = DefaultErrorBackoff
	}
	storeTimeout := opts.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}

	return &Orchestrator{
		mentions:     opts.Mentions,
		processor:    opts.Processor,
		cursor:       opts.Cursor,
		outcomes:     opts.Outcomes,
		policy:       policy,
		pollInterval: poll,
		errorBackoff: backoff,
		storeTimeout: storeTimeout,
		logger:       logger,
		now:          now,
		sleep:        sleep,
		snap: Snapshot{
			BotID:  opts.Cursor.BotID(),
			State:  StateIdle,
			Cursor: opts.Cursor.Value().String(),
		},
	}
}

// Run polls until ctx is canceled and returns ctx.Err().
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Printf("polling mentions for bot %s (policy %s, interval %s)", o.cursor.BotID(), o.policy, o.pollInterval)

	for {
		if err := ctx.Err(); err != nil {
			o.stop()
			return err
		}

		report := o.RunCycle(ctx)

		if err := ctx.Err(); err != nil {
			o.stop()
			return err
		}

		o.update(func(s *Snapshot) {
			s.State = StateSleeping
			s.NextWakeAt = o.now().Add(report.Sleep)
		})
		if err := o.sleep(ctx, report.Sleep); err != nil {
			o.stop()
			return err
		}
	}
}

// RunCycle performs FETCHING and PROCESSING once and returns the sleep to apply.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleReport {
	start := o.now()
	report := CycleReport{
		Outcome: domain.CycleOutcome{BotID: o.cursor.BotID(), StartedAt: start.UnixMilli()},
	}

	o.setState(StateFetching)
	page, err := o.mentions.FetchMentions(ctx, o.cursor.BotID(), o.cursor.Value())
	observability.RecordExternalCall(observability.TargetMentions, o.now().Sub(start))
	if err != nil {
		o.fetchFailed(&report, err)
		o.finish(ctx, &report, start)
		return report
	}
	report.Outcome.Mentions = len(page.Mentions)

	selected := o.cursor.Select(page.Mentions, o.policy)
	observability.RecordMentionsSelected(len(selected))
	if len(selected) == 0 {
		o.logger.Printf("no new reply mentions (%d fetched)", len(page.Mentions))
		report.Outcome.Result = domain.CycleIdle
		report.Sleep = o.pollInterval
		o.cursor.Advance(page.Mentions)
		o.commit(ctx)
		o.finish(ctx, &report, start)
		return report
	}

	o.setState(StateProcessing)
	report.Outcome.Result = domain.CycleProcessed
	report.Sleep = o.pollInterval
	retry := false

	for _, m := range selected {
		report.Outcome.MentionID = m.ID
		res, err := o.process(ctx, m)
		if res != nil && res.Status != "" {
			report.Results = append(report.Results, res)
			report.Outcome.SourceURL = res.SourceURL
			report.Outcome.Status = res.Status.String()
			o.recordResult(res)
		}
		if err == nil {
			continue
		}

		report.Outcome.Result = domain.CycleFailed
		report.Outcome.Error = err.Error()
		if !pipeline.IsRetryable(err) {
			o.logger.Printf("mention %s failed, skipping: %v", m.ID, err)
			continue
		}

		o.logger.Printf("mention %s failed, will retry: %v", m.ID, err)
		report.Sleep = o.retrySleep(err)
		o.cursor.Advance(cursor.OlderThan(page.Mentions, m.ID))
		retry = true
		break
	}

	if !retry {
		o.cursor.Advance(page.Mentions)
	}
	o.commit(ctx)
	o.finish(ctx, &report, start)
	return report
}

// Snapshot returns the current loop state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()
	s := o.snap
	if s.LastLaunch != nil {
		l := *s.LastLaunch
		s.LastLaunch = &l
	}
	return s
}

// process runs the pipeline, converting a panic into an error.
func (o *Orchestrator) process(ctx context.Context, m domain.Mention) (res *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			o.logger.Printf("PANIC processing mention %s: %v", m.ID, r)
			res, err = nil, fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	o.logger.Printf("processing mention %s (reply to %s)", m.ID, m.ReferencedPostID)
	return o.processor.Process(ctx, pipeline.Job{MentionID: m.ID, PostID: m.ReferencedPostID})
}

func (o *Orchestrator) fetchFailed(report *CycleReport, err error) {
	report.Outcome.Error = err.Error()

	if rl, ok := social.IsRateLimited(err); ok {
		report.Outcome.Result = domain.CycleRateLimited
		report.Sleep = max(rl.RetryAfter, social.MinRetryAfter)
		observability.RecordRateLimitSleep(report.Sleep)
		o.logger.Printf("rate limited, sleeping %s", report.Sleep)
		return
	}

	report.Outcome.Result = domain.CycleFetchFailed
	report.Sleep = o.errorBackoff
	if errors.Is(err, context.Canceled) {
		return
	}
	kind := "transient"
	if social.IsUpstream(err) {
		kind = "upstream"
	}
	o.logger.Printf("fetch mentions failed (%s), backing off %s: %v", kind, report.Sleep, err)
}

// retrySleep picks the sleep after a retryable pipeline error.
func (o *Orchestrator) retrySleep(err error) time.Duration {
	if rl, ok := social.IsRateLimited(err); ok {
		d := max(rl.RetryAfter, social.MinRetryAfter)
		observability.RecordRateLimitSleep(d)
		return d
	}
	return o.errorBackoff
}

// commit persists the cursor even when ctx is already canceled.
func (o *Orchestrator) commit(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.storeTimeout)
	defer cancel()

	if err := o.cursor.Commit(ctx); err != nil {
		o.logger.Printf("cursor commit failed, will retry next cycle: %v", err)
	}
}

// finish records the outcome and publishes it to the snapshot.
func (o *Orchestrator) finish(ctx context.Context, report *CycleReport, start time.Time) {
	end := o.now()
	elapsed := end.Sub(start)
	report.Outcome.DurationMs = elapsed.Milliseconds()
	report.Outcome.SleepMs = report.Sleep.Milliseconds()

	observability.RecordCycle(report.Outcome.Result.String(), elapsed, report.Outcome.Mentions)
	if report.Outcome.Result == domain.CycleIdle || report.Outcome.Result == domain.CycleProcessed {
		observability.MarkCycleSuccess(end)
	}

	if o.outcomes != nil && ctx.Err() == nil {
		outcome := report.Outcome
		insertCtx, cancel := context.WithTimeout(ctx, o.storeTimeout)
		err := o.outcomes.Insert(insertCtx, &outcome)
		cancel()
		if err != nil {
			o.logger.Printf("record cycle outcome: %v", err)
		}
	}

	o.update(func(s *Snapshot) {
		s.State = StateIdle
		s.Cursor = o.cursor.Value().String()
		s.Cycles++
		s.LastResult = report.Outcome.Result
		s.LastError = report.Outcome.Error
		s.LastCycleAt = end
		if report.Outcome.Status != "" {
			s.LastStatus = report.Outcome.Status
		}
	})
}

func (o *Orchestrator) recordResult(res *pipeline.Result) {
	o.logger.Printf("mention %s: %s", res.MentionID, res.Status)
	if res.Status != pipeline.StatusDeployed {
		return
	}
	o.update(func(s *Snapshot) {
		s.Deployed++
		s.LastLaunch = res.Launch
	})
}

func (o *Orchestrator) setState(st State) {
	o.update(func(s *Snapshot) { s.State = st })
}

func (o *Orchestrator) stop() {
	o.logger.Printf("polling stopped for bot %s", o.cursor.BotID())
	o.update(func(s *Snapshot) {
		s.State = StateStopped
		s.NextWakeAt = time.Time{}
	})
}

func (o *Orchestrator) update(fn func(*Snapshot)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.snap)
}

// sleepContext waits for d or ctx cancellation.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
