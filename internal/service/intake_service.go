package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/dto"
	"github.com/formhive/formhive-api/internal/models"
	"github.com/formhive/formhive-api/pkg/device"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

type formReader interface {
	FindByID(ctx context.Context, id string) (*models.Form, error)
}

type markerStore interface {
	Has(ctx context.Context, formID string, fp models.Fingerprint, token string) bool
	Set(ctx context.Context, formID string, fp models.Fingerprint) (string, error)
	TTL() time.Duration
}

// FieldErrors maps field ids to validation messages. It is recoverable
// locally by the respondent and never reaches the resolver.
type FieldErrors map[string]string

// Error implements the error interface.
func (e FieldErrors) Error() string {
	return "field validation failed"
}

// FormView is the public rendering payload: the field list plus the gate
// decision so the client knows whether to render the form or the closure
// message.
type FormView struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Fields      models.FieldList `json:"fields"`
	Locked      bool             `json:"locked"`
	Gate        GateResult       `json:"gate"`
}

// AttemptView is the client-observable state of a submission attempt.
type AttemptView struct {
	AttemptID    string         `json:"attemptId"`
	State        AttemptState   `json:"state"`
	Deadline     *time.Time     `json:"deadline,omitempty"`
	Result       *ResolveResult `json:"result,omitempty"`
	EditDeadline *time.Time     `json:"editDeadline,omitempty"`
	Error        string         `json:"error,omitempty"`
	MarkerToken  string         `json:"-"`
}

// IntakeService orchestrates the public submission flow: gate evaluation for
// rendering, schema validation, the review-window sequencer, and the commit
// path. It implements Committer so the sequencer hands expired attempts back
// here, where the gate is re-checked at the moment of persistence.
type IntakeService struct {
	forms       formReader
	submissions *SubmissionService
	markers     markerStore
	sequencer   *Sequencer
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewIntakeService constructs IntakeService. The sequencer must be attached
// afterwards via SetSequencer because the two reference each other.
func NewIntakeService(forms formReader, submissions *SubmissionService, markers markerStore, metrics *MetricsService, logger *zap.Logger) *IntakeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		forms:       forms,
		submissions: submissions,
		markers:     markers,
		metrics:     metrics,
		logger:      logger,
	}
}

// SetSequencer attaches the review-window sequencer.
func (s *IntakeService) SetSequencer(seq *Sequencer) {
	s.sequencer = seq
}

// View loads the public form payload with its current gate decision.
// A password-protected form is reported locked until unlocked; the lock is
// form-global and independent of the per-attempt gate.
func (s *IntakeService) View(ctx context.Context, formID string, fp models.Fingerprint, markerToken string, unlocked bool) (*FormView, error) {
	form, gate, err := s.gateCheck(ctx, formID, fp, markerToken, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	view := &FormView{
		ID:          form.ID,
		Title:       form.Title,
		Description: form.Description,
		Gate:        gate,
	}
	if form.Settings.Visibility == models.VisibilityProtected && !unlocked {
		view.Locked = true
		return view, nil
	}
	if gate.Allowed() {
		view.Fields = form.Fields
	}
	return view, nil
}

// Initiate validates an incoming answer set and opens a review-window
// attempt. Validation errors come back as FieldErrors; gate rejections as
// typed errors carrying the closure message. The marker token travels with
// the attempt so the commit-time re-check sees the same requester identity.
func (s *IntakeService) Initiate(ctx context.Context, formID, sessionID string, fp models.Fingerprint, markerToken string, answers models.AnswerSet, loc *dto.RawLocation) (*AttemptView, error) {
	now := time.Now().UTC()
	form, gate, err := s.gateCheck(ctx, formID, fp, markerToken, now)
	if err != nil {
		return nil, err
	}
	if !gate.Allowed() {
		return nil, gate.Err()
	}

	schema := CompileSchema(form.Fields)
	if fieldErrs := schema.Validate(answers); len(fieldErrs) > 0 {
		return nil, FieldErrors(fieldErrs)
	}

	attempt := &Attempt{
		FormID:      formID,
		SessionID:   sessionID,
		Fingerprint: fp,
		MarkerToken: markerToken,
		Answers:     schema.Filter(answers),
		Metadata: models.SubmissionMetadata{
			IP:        fp.IP,
			UserAgent: fp.UserAgent,
			Device:    models.DeviceClass(device.Detect(fp.UserAgent)),
		},
		Location: s.resolveLocation(form, loc, now),
	}

	started, err := s.sequencer.Start(ctx, attempt)
	if err != nil {
		return nil, err
	}
	return s.attemptView(started), nil
}

// Cancel retracts a pending attempt.
func (s *IntakeService) Cancel(ctx context.Context, attemptID string) error {
	return s.sequencer.Cancel(ctx, attemptID)
}

// Status reports the attempt state. Once committed on a single-submission
// form, a marker token is issued for the client cookie.
func (s *IntakeService) Status(ctx context.Context, attemptID string) (*AttemptView, error) {
	attempt, err := s.sequencer.Get(attemptID)
	if err != nil {
		return nil, err
	}
	view := s.attemptView(attempt)

	if attempt.State == AttemptCommitted {
		form, err := s.forms.FindByID(ctx, attempt.FormID)
		if err == nil && form.Settings.SingleSubmission {
			token, tokenErr := s.markers.Set(ctx, attempt.FormID, attempt.Fingerprint)
			if tokenErr != nil {
				s.logger.Warn("marker token issue failed", zap.String("form_id", attempt.FormID), zap.Error(tokenErr))
			} else {
				view.MarkerToken = token
			}
		}
	}
	return view, nil
}

// Retry re-runs a failed commit with the held answers.
func (s *IntakeService) Retry(ctx context.Context, attemptID string) (*AttemptView, error) {
	attempt, err := s.sequencer.Retry(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	return s.attemptView(attempt), nil
}

// Commit implements Committer. The gate is re-evaluated here with a fresh
// response count, closing the window between rendering and persistence.
func (s *IntakeService) Commit(ctx context.Context, attempt *Attempt) (*ResolveResult, error) {
	now := time.Now().UTC()
	form, gate, err := s.gateCheck(ctx, attempt.FormID, attempt.Fingerprint, attempt.MarkerToken, now)
	if err != nil {
		return nil, err
	}
	if !gate.Allowed() {
		return nil, gate.Err()
	}

	result, err := s.submissions.Resolve(ctx, attempt.FormID, attempt.Fingerprint, attempt.Answers, attempt.Metadata, attempt.Location, now)
	if err != nil {
		return nil, err
	}

	if form.Settings.SingleSubmission {
		if _, markerErr := s.markers.Set(ctx, attempt.FormID, attempt.Fingerprint); markerErr != nil {
			s.logger.Warn("marker set failed", zap.String("form_id", attempt.FormID), zap.Error(markerErr))
		}
	}
	return result, nil
}

func (s *IntakeService) gateCheck(ctx context.Context, formID string, fp models.Fingerprint, markerToken string, now time.Time) (*models.Form, GateResult, error) {
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, GateResult{}, appErrors.Clone(appErrors.ErrNotFound, "form not found")
		}
		return nil, GateResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}

	count, err := s.submissions.Count(ctx, formID)
	if err != nil {
		return nil, GateResult{}, err
	}

	prior := false
	if form.Settings.SingleSubmission {
		prior = s.markers.Has(ctx, formID, fp, markerToken)
	}

	gate := EvaluateGate(form.Settings, count, now, prior)
	if gate.Reason == GateAlreadySubmitted || gate.Reason == GateLimitReached {
		// A requester with an in-window submission amends the existing
		// record on resolve, so neither the marker nor the response count
		// blocks them. Closure checks above are unaffected.
		amend, amendErr := s.submissions.HasRecent(ctx, formID, fp, now)
		if amendErr != nil {
			s.logger.Warn("amend lookup failed", zap.String("form_id", formID), zap.Error(amendErr))
		} else if amend {
			gate = GateResult{Reason: GateAllowed}
		}
	}
	s.metrics.ObserveGate(gate.Reason)
	return form, gate, nil
}

func (s *IntakeService) attemptView(attempt *Attempt) *AttemptView {
	view := &AttemptView{
		AttemptID: attempt.ID,
		State:     attempt.State,
	}
	if attempt.State == AttemptPending && !attempt.Deadline.IsZero() {
		deadline := attempt.Deadline
		view.Deadline = &deadline
	}
	if attempt.Result != nil {
		view.Result = attempt.Result
		editDeadline := attempt.Result.SubmittedAt.Add(s.submissions.EditWindow())
		view.EditDeadline = &editDeadline
	}
	if attempt.Err != nil {
		view.Error = appErrors.FromError(attempt.Err).Message
	}
	return view
}

// resolveLocation maps the optional raw coordinates into stored location
// data. Address parsing is best-effort and only attempted when the form has
// a location field capturing cities.
func (s *IntakeService) resolveLocation(form *models.Form, loc *dto.RawLocation, now time.Time) *models.LocationData {
	if loc == nil {
		return nil
	}
	data := &models.LocationData{
		Latitude:  loc.Latitude,
		Longitude: loc.Longitude,
		Timestamp: now,
	}
	if captureCity(form.Fields) && loc.Address != "" {
		parsed := device.ExtractLocation(loc.Address)
		data.City = parsed.City
		data.Country = parsed.Country
	}
	return data
}

func captureCity(fields []models.Field) bool {
	for _, f := range fields {
		if f.Type == models.FieldTypeLocation && f.Validation != nil && f.Validation.CaptureCity {
			return true
		}
	}
	return false
}
