package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

// DefaultEditWindow is the period after a response's original timestamp
// during which a resubmission from the same fingerprint amends the record
// instead of creating a new one.
const DefaultEditWindow = 10 * time.Minute

type submissionRepository interface {
	FindRecentByFingerprint(ctx context.Context, formID, ip, userAgent string, since time.Time) (*models.Submission, error)
	Insert(ctx context.Context, submission *models.Submission) error
	UpdateAnswers(ctx context.Context, id string, answers models.AnswerSet) error
	CountByForm(ctx context.Context, formID string) (int, error)
	ListByForm(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error)
}

type activityRecorder interface {
	Record(ctx context.Context, formID string, eventType models.EventType, description string, metadata models.EventMetadata) error
}

// ResolveResult reports the outcome of a resolve call. SubmittedAt is the
// record's original timestamp even on amend; callers surface
// SubmittedAt + EditWindow as the edit deadline.
type ResolveResult struct {
	SubmissionID string    `json:"submissionId"`
	SubmittedAt  time.Time `json:"submittedAt"`
	WasAmend     bool      `json:"wasAmend"`
}

// SubmissionService decides create-vs-amend for incoming responses and
// performs the persistence. The fingerprint is a deliberately weak identity
// proxy (IP + user agent); two concurrent resolves from the same fingerprint
// may race, in which case the last write wins on the answers.
type SubmissionService struct {
	repo       submissionRepository
	activity   activityRecorder
	editWindow time.Duration
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionRepository, activity activityRecorder, editWindow time.Duration, metrics *MetricsService, logger *zap.Logger) *SubmissionService {
	if editWindow <= 0 {
		editWindow = DefaultEditWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{repo: repo, activity: activity, editWindow: editWindow, metrics: metrics, logger: logger}
}

// EditWindow exposes the configured window for deadline computation.
func (s *SubmissionService) EditWindow() time.Duration {
	return s.editWindow
}

// Resolve persists an incoming answer set. A prior in-window submission from
// the same fingerprint is amended in place; its metadata and original
// submittedAt stay untouched, so the window is anchored at the first
// submission and never extended by edits. Outside the window a new record is
// always created. The activity event is recorded only after a successful
// write: the log never claims a submission that does not exist.
func (s *SubmissionService) Resolve(ctx context.Context, formID string, fp models.Fingerprint, answers models.AnswerSet, meta models.SubmissionMetadata, location *models.LocationData, now time.Time) (*ResolveResult, error) {
	since := now.Add(-s.editWindow)

	prior, err := s.repo.FindRecentByFingerprint(ctx, formID, fp.IP, fp.UserAgent, since)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up prior submission")
	}

	if prior != nil {
		if err := s.repo.UpdateAnswers(ctx, prior.ID, answers); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to amend submission")
		}
		s.recordSaved(ctx, formID, prior.ID, "Response updated within edit window", true)
		s.metrics.ObserveResolve(true)
		return &ResolveResult{SubmissionID: prior.ID, SubmittedAt: prior.SubmittedAt, WasAmend: true}, nil
	}

	submission := &models.Submission{
		FormID:      formID,
		Answers:     answers,
		Metadata:    meta,
		Location:    location,
		SubmittedAt: now,
	}
	if err := s.repo.Insert(ctx, submission); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save submission")
	}
	s.recordSaved(ctx, formID, submission.ID, "New response submitted", false)
	s.metrics.ObserveResolve(false)
	return &ResolveResult{SubmissionID: submission.ID, SubmittedAt: submission.SubmittedAt, WasAmend: false}, nil
}

// HasRecent reports whether the fingerprint holds an in-window submission,
// meaning a resolve right now would amend rather than create.
func (s *SubmissionService) HasRecent(ctx context.Context, formID string, fp models.Fingerprint, now time.Time) (bool, error) {
	prior, err := s.repo.FindRecentByFingerprint(ctx, formID, fp.IP, fp.UserAgent, now.Add(-s.editWindow))
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up prior submission")
	}
	return prior != nil, nil
}

// Count returns the current response count for a form, feeding the gate's
// limit check. The read carries no transactional guarantee.
func (s *SubmissionService) Count(ctx context.Context, formID string) (int, error) {
	count, err := s.repo.CountByForm(ctx, formID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count submissions")
	}
	return count, nil
}

// List returns submissions for the dashboard table, newest first.
func (s *SubmissionService) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	submissions, total, err := s.repo.ListByForm(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list submissions")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return submissions, pagination, nil
}

// The write is already durable when recording fails, so the failure is
// logged and swallowed rather than surfaced as a submission error.
func (s *SubmissionService) recordSaved(ctx context.Context, formID, submissionID, description string, amended bool) {
	err := s.activity.Record(ctx, formID, models.EventResponseReceived, description, models.EventMetadata{
		"submissionId": submissionID,
		"amended":      amended,
	})
	if err != nil {
		s.logger.Warn("activity record failed",
			zap.String("form_id", formID),
			zap.String("submission_id", submissionID),
			zap.Error(err),
		)
	}
}
