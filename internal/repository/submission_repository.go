package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formhive/formhive-api/internal/models"
)

const submissionColumns = "id, form_id, answers, ip, user_agent, device, location, submitted_at, created_at, updated_at"

// SubmissionRepository manages persistence for responses.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs a new repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// FindRecentByFingerprint returns the newest submission for the form from
// the same fingerprint at or after the given instant, or nil when none
// exists. This single read backs the resolver's create-vs-amend decision.
func (r *SubmissionRepository) FindRecentByFingerprint(ctx context.Context, formID, ip, userAgent string, since time.Time) (*models.Submission, error) {
	query := fmt.Sprintf(`SELECT %s FROM submissions
WHERE form_id = $1 AND ip = $2 AND user_agent = $3 AND submitted_at >= $4
ORDER BY submitted_at DESC LIMIT 1`, submissionColumns)
	row := r.db.QueryRowxContext(ctx, query, formID, ip, userAgent, since)
	submission, err := scanSubmission(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find recent submission: %w", err)
	}
	return submission, nil
}

// Insert persists a new submission.
func (r *SubmissionRepository) Insert(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = now
	}
	query := `INSERT INTO submissions (id, form_id, answers, ip, user_agent, device, location, submitted_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		submission.ID,
		submission.FormID,
		submission.Answers,
		submission.Metadata.IP,
		submission.Metadata.UserAgent,
		string(submission.Metadata.Device),
		locationValue(submission.Location),
		submission.SubmittedAt,
		submission.CreatedAt,
		submission.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// UpdateAnswers overwrites the answer set in place. Metadata and the
// original submitted_at are deliberately left untouched so the edit window
// stays anchored at the first submission.
func (r *SubmissionRepository) UpdateAnswers(ctx context.Context, id string, answers models.AnswerSet) error {
	query := `UPDATE submissions SET answers = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, answers, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update submission answers: %w", err)
	}
	return nil
}

// CountByForm returns the number of responses for a form.
func (r *SubmissionRepository) CountByForm(ctx context.Context, formID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM submissions WHERE form_id = $1", formID); err != nil {
		return 0, fmt.Errorf("count submissions: %w", err)
	}
	return count, nil
}

// ListByForm returns submissions for the dashboard table, newest first.
func (r *SubmissionRepository) ListByForm(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE form_id = $1
ORDER BY submitted_at DESC LIMIT %d OFFSET %d`, submissionColumns, size, offset)
	submissions, err := r.querySubmissions(ctx, query, filter.FormID)
	if err != nil {
		return nil, 0, fmt.Errorf("list submissions: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM submissions WHERE form_id = $1", filter.FormID); err != nil {
		return nil, 0, fmt.Errorf("count submissions: %w", err)
	}
	return submissions, total, nil
}

// AllByForm returns every submission for a form, oldest first, for the
// analytics aggregation.
func (r *SubmissionRepository) AllByForm(ctx context.Context, formID string) ([]models.Submission, error) {
	query := fmt.Sprintf("SELECT %s FROM submissions WHERE form_id = $1 ORDER BY submitted_at ASC", submissionColumns)
	submissions, err := r.querySubmissions(ctx, query, formID)
	if err != nil {
		return nil, fmt.Errorf("load submissions: %w", err)
	}
	return submissions, nil
}

func (r *SubmissionRepository) querySubmissions(ctx context.Context, query string, args ...interface{}) ([]models.Submission, error) {
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	submissions := make([]models.Submission, 0)
	for rows.Next() {
		submission, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, *submission)
	}
	return submissions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanSubmission maps a row onto the nested submission shape; the metadata
// columns are flat in the table.
func scanSubmission(row rowScanner) (*models.Submission, error) {
	var (
		s        models.Submission
		device   string
		location []byte
	)
	err := row.Scan(
		&s.ID,
		&s.FormID,
		&s.Answers,
		&s.Metadata.IP,
		&s.Metadata.UserAgent,
		&device,
		&location,
		&s.SubmittedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Metadata.Device = models.DeviceClass(device)
	if len(location) > 0 {
		var loc models.LocationData
		if err := loc.Scan(location); err != nil {
			return nil, err
		}
		s.Location = &loc
	}
	return &s, nil
}

func locationValue(loc *models.LocationData) interface{} {
	if loc == nil {
		return nil
	}
	return *loc
}
