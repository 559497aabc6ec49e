package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

// DefaultReviewDelay is the cancellable countdown between submit and durable
// commit. Deliberately much shorter than the edit window: the delay covers
// pre-commit regret, the window post-commit correction.
const DefaultReviewDelay = 10 * time.Second

// AttemptState enumerates sequencer states for one submission attempt.
type AttemptState string

const (
	AttemptPending    AttemptState = "pending"
	AttemptCommitting AttemptState = "committing"
	AttemptCommitted  AttemptState = "committed"
	AttemptCancelled  AttemptState = "cancelled"
	AttemptFailed     AttemptState = "failed"
)

// Attempt is one in-flight submission held by the sequencer. Answers are
// already validated and visibility-filtered; they are not persisted until the
// countdown elapses.
type Attempt struct {
	ID          string
	FormID      string
	SessionID   string
	Fingerprint models.Fingerprint
	MarkerToken string
	Answers     models.AnswerSet
	Metadata    models.SubmissionMetadata
	Location    *models.LocationData

	State    AttemptState
	Deadline time.Time
	Result   *ResolveResult
	Err      error

	timer *time.Timer
}

// SequencerEventKind enumerates client-observable transitions.
type SequencerEventKind string

const (
	EventInitiated SequencerEventKind = "initiated"
	EventCancelled SequencerEventKind = "cancelled"
	EventCommitted SequencerEventKind = "committed"
	EventFailed    SequencerEventKind = "failed"
)

// SequencerEvent is delivered to the single event owner on each transition.
type SequencerEvent struct {
	Kind      SequencerEventKind
	AttemptID string
	FormID    string
	Result    *ResolveResult
	Err       error
}

// Committer performs the durable persistence for an expired attempt. The
// implementation re-checks the admission gate at commit time, closing the
// race between rendering the form and persisting the response.
type Committer interface {
	Commit(ctx context.Context, attempt *Attempt) (*ResolveResult, error)
}

// Sequencer implements the delay-then-commit protocol:
//
//	Idle → Pending → {Committing → Committed} | Cancelled
//
// Timer callbacks never mutate attempt state directly; they push the attempt
// id onto a channel consumed by a single run loop, which owns all commits.
// Cancellation is accepted at any point before the expiry is consumed. At
// most one Pending attempt exists per session: a second Start replaces the
// first, logging an implicit cancellation.
type Sequencer struct {
	delay     time.Duration
	retention time.Duration
	committer Committer
	activity  activityRecorder
	metrics   *MetricsService
	logger    *zap.Logger
	onEvent   func(SequencerEvent)
	now       func() time.Time

	mu        sync.Mutex
	attempts  map[string]*Attempt
	bySession map[string]string

	expiries chan string
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  bool
}

// SequencerConfig configures a Sequencer.
type SequencerConfig struct {
	Delay time.Duration
	// Retention bounds how long a terminal attempt stays pollable before it
	// is dropped, along with its held answers. Defaults to the edit window
	// so a committed attempt outlives the period it can still be edited in.
	Retention time.Duration
	Activity  activityRecorder
	Metrics   *MetricsService
	Logger    *zap.Logger
	OnEvent   func(SequencerEvent)
	Now       func() time.Time
}

// NewSequencer builds a sequencer committing through the given committer.
func NewSequencer(committer Committer, cfg SequencerConfig) *Sequencer {
	if cfg.Delay < 0 {
		cfg.Delay = DefaultReviewDelay
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultEditWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sequencer{
		delay:     cfg.Delay,
		retention: cfg.Retention,
		committer: committer,
		activity:  cfg.Activity,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		onEvent:   cfg.OnEvent,
		now:       cfg.Now,
		attempts:  make(map[string]*Attempt),
		bySession: make(map[string]string),
		expiries:  make(chan string, 64),
	}
}

// Run starts the commit loop. It must be called once before Start.
func (s *Sequencer) Run(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
}

// Stop terminates the commit loop and waits for it to drain.
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
}

func (s *Sequencer) loop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case id := <-s.expiries:
			s.commit(s.ctx, id)
		}
	}
}

// Start opens a Pending attempt. Callers must have validated the answers and
// confirmed the gate allows the submission; the gate is re-checked at commit
// time regardless. The submission_initiated event is recorded immediately and
// intentionally survives a later cancellation as a trace of intent.
// With a zero delay the attempt commits inline and no Pending state is
// observable.
func (s *Sequencer) Start(ctx context.Context, attempt *Attempt) (*Attempt, error) {
	if attempt.ID == "" {
		attempt.ID = uuid.NewString()
	}

	s.recordInitiated(ctx, attempt)

	if s.delay == 0 {
		attempt.State = AttemptCommitting
		s.mu.Lock()
		s.attempts[attempt.ID] = attempt
		s.mu.Unlock()
		s.commit(ctx, attempt.ID)
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.attempts[attempt.ID], nil
	}

	s.mu.Lock()
	var replaced *Attempt
	if priorID, ok := s.bySession[attempt.SessionID]; ok && attempt.SessionID != "" {
		if prior, ok := s.attempts[priorID]; ok && prior.State == AttemptPending {
			s.cancelLocked(prior)
			replaced = prior
		}
	}

	attempt.State = AttemptPending
	attempt.Deadline = s.now().Add(s.delay)
	id := attempt.ID
	done := s.doneChan()
	attempt.timer = time.AfterFunc(s.delay, func() {
		select {
		case s.expiries <- id:
		case <-done:
		}
	})
	s.attempts[attempt.ID] = attempt
	if attempt.SessionID != "" {
		s.bySession[attempt.SessionID] = attempt.ID
	}
	s.mu.Unlock()

	if replaced != nil {
		s.recordUndone(ctx, replaced, true)
	}
	s.emit(SequencerEvent{Kind: EventInitiated, AttemptID: attempt.ID, FormID: attempt.FormID})
	return attempt, nil
}

// Cancel retracts a Pending attempt before its countdown elapses. No
// submission record is ever created for a cancelled attempt.
func (s *Sequencer) Cancel(ctx context.Context, attemptID string) error {
	s.mu.Lock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		s.mu.Unlock()
		return appErrors.ErrAttemptNotFound
	}
	if attempt.State != AttemptPending {
		s.mu.Unlock()
		return appErrors.ErrAttemptFinal
	}
	s.cancelLocked(attempt)
	s.mu.Unlock()

	s.recordUndone(ctx, attempt, false)
	s.emit(SequencerEvent{Kind: EventCancelled, AttemptID: attemptID, FormID: attempt.FormID})
	return nil
}

// Get returns a snapshot of the attempt for status polling.
func (s *Sequencer) Get(attemptID string) (*Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		return nil, appErrors.ErrAttemptNotFound
	}
	snapshot := *attempt
	snapshot.timer = nil
	return &snapshot, nil
}

// Retry re-runs the commit for an attempt that failed with a retryable
// persistence error. The held answers are reused; the countdown is not
// restarted.
func (s *Sequencer) Retry(ctx context.Context, attemptID string) (*Attempt, error) {
	s.mu.Lock()
	attempt, ok := s.attempts[attemptID]
	if !ok {
		s.mu.Unlock()
		return nil, appErrors.ErrAttemptNotFound
	}
	if attempt.State != AttemptFailed {
		s.mu.Unlock()
		return nil, appErrors.ErrAttemptFinal
	}
	attempt.State = AttemptCommitting
	s.mu.Unlock()

	s.commit(ctx, attemptID)
	return s.Get(attemptID)
}

// cancelLocked flips an attempt to Cancelled under s.mu. Activity recording
// is I/O and stays with the callers, outside the lock.
func (s *Sequencer) cancelLocked(attempt *Attempt) {
	if attempt.timer != nil {
		attempt.timer.Stop()
	}
	attempt.State = AttemptCancelled
	if attempt.SessionID != "" && s.bySession[attempt.SessionID] == attempt.ID {
		delete(s.bySession, attempt.SessionID)
	}
	s.metrics.ObserveCancellation()
	s.scheduleEvict(attempt.ID)
}

// scheduleEvict drops a terminal attempt after the retention period so held
// answer sets do not accumulate for the life of the process. Committed
// attempts stay pollable through the retention; failed ones stay retryable.
// An attempt that went back to Committing by the time the timer fires is
// left alone and rescheduled by whichever terminal transition follows.
func (s *Sequencer) scheduleEvict(attemptID string) {
	time.AfterFunc(s.retention, func() {
		s.mu.Lock()
		if attempt, ok := s.attempts[attemptID]; ok && attempt.State != AttemptPending && attempt.State != AttemptCommitting {
			delete(s.attempts, attemptID)
		}
		s.mu.Unlock()
	})
}

func (s *Sequencer) commit(ctx context.Context, attemptID string) {
	s.mu.Lock()
	attempt, ok := s.attempts[attemptID]
	if !ok || attempt.State == AttemptCancelled || attempt.State == AttemptCommitted {
		// Cancelled between timer fire and dequeue, or already done.
		s.mu.Unlock()
		return
	}
	attempt.State = AttemptCommitting
	snapshot := *attempt
	s.mu.Unlock()

	result, err := s.committer.Commit(ctx, &snapshot)

	s.mu.Lock()
	if err != nil {
		attempt.State = AttemptFailed
		attempt.Err = err
	} else {
		attempt.State = AttemptCommitted
		attempt.Result = result
		attempt.Err = nil
		if attempt.SessionID != "" && s.bySession[attempt.SessionID] == attempt.ID {
			delete(s.bySession, attempt.SessionID)
		}
	}
	s.scheduleEvict(attemptID)
	formID := attempt.FormID
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("attempt commit failed", zap.String("attempt_id", attemptID), zap.String("form_id", formID), zap.Error(err))
		s.emit(SequencerEvent{Kind: EventFailed, AttemptID: attemptID, FormID: formID, Err: err})
		return
	}
	s.emit(SequencerEvent{Kind: EventCommitted, AttemptID: attemptID, FormID: formID, Result: result})
}

// doneChan must be called with s.mu held. A sequencer that was never Run has
// no loop context yet; a nil done channel leaves its timers to enqueue on the
// buffered expiry channel until Run drains it.
func (s *Sequencer) doneChan() <-chan struct{} {
	if s.ctx != nil {
		return s.ctx.Done()
	}
	return nil
}

func (s *Sequencer) emit(event SequencerEvent) {
	if s.onEvent != nil {
		s.onEvent(event)
	}
}

func (s *Sequencer) recordInitiated(ctx context.Context, attempt *Attempt) {
	if s.activity == nil {
		return
	}
	err := s.activity.Record(ctx, attempt.FormID, models.EventSubmissionInitiated, "Submission review window started", models.EventMetadata{
		"attemptId": attempt.ID,
	})
	if err != nil {
		s.logger.Warn("activity record failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
}

func (s *Sequencer) recordUndone(ctx context.Context, attempt *Attempt, implicit bool) {
	if s.activity == nil {
		return
	}
	description := "Submission undone during review window"
	if implicit {
		description = "Pending submission replaced by a new attempt"
	}
	err := s.activity.Record(ctx, attempt.FormID, models.EventSubmissionUndone, description, models.EventMetadata{
		"attemptId": attempt.ID,
		"implicit":  implicit,
	})
	if err != nil {
		s.logger.Warn("activity record failed", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
}
