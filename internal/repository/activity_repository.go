package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/formhive/formhive-api/internal/models"
)

// ActivityRepository manages the per-form activity log.
type ActivityRepository struct {
	db *sqlx.DB
}

// NewActivityRepository constructs a new repository.
func NewActivityRepository(db *sqlx.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert appends an activity event. Events are never updated afterwards.
func (r *ActivityRepository) Insert(ctx context.Context, event *models.ActivityEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO form_activity (id, form_id, event_type, description, metadata, timestamp)
VALUES (:id, :form_id, :event_type, :description, :metadata, :timestamp)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

// ListByForm returns events for a form, newest first.
func (r *ActivityRepository) ListByForm(ctx context.Context, formID string, limit, offset int) ([]models.ActivityEvent, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT id, form_id, event_type, description, metadata, timestamp
FROM form_activity WHERE form_id = $1
ORDER BY timestamp DESC, id DESC LIMIT %d OFFSET %d`, limit, offset)
	events := make([]models.ActivityEvent, 0)
	if err := r.db.SelectContext(ctx, &events, query, formID); err != nil {
		return nil, 0, fmt.Errorf("list activity events: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM form_activity WHERE form_id = $1", formID); err != nil {
		return nil, 0, fmt.Errorf("count activity events: %w", err)
	}
	return events, total, nil
}
