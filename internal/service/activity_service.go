package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

// DefaultActivityPageSize caps the activity read path.
const DefaultActivityPageSize = 50

type activityRepository interface {
	Insert(ctx context.Context, event *models.ActivityEvent) error
	ListByForm(ctx context.Context, formID string, limit, offset int) ([]models.ActivityEvent, int, error)
}

// ActivityService is the append-only event log sink used by every other
// component. It accepts the closed event-type enumeration and nothing else;
// there is no update or delete path.
type ActivityService struct {
	repo     activityRepository
	pageSize int
	logger   *zap.Logger
}

// NewActivityService constructs ActivityService.
func NewActivityService(repo activityRepository, pageSize int, logger *zap.Logger) *ActivityService {
	if pageSize <= 0 {
		pageSize = DefaultActivityPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, pageSize: pageSize, logger: logger}
}

// Record appends an event to the form's activity log.
func (s *ActivityService) Record(ctx context.Context, formID string, eventType models.EventType, description string, metadata models.EventMetadata) error {
	if !eventType.Known() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event type %q", eventType))
	}
	event := &models.ActivityEvent{
		FormID:      formID,
		EventType:   eventType,
		Description: description,
		Metadata:    metadata,
	}
	if err := s.repo.Insert(ctx, event); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record activity")
	}
	return nil
}

// List returns events for a form, newest first, page size capped.
func (s *ActivityService) List(ctx context.Context, formID string, page, size int) ([]models.ActivityEvent, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > s.pageSize {
		size = s.pageSize
	}
	events, total, err := s.repo.ListByForm(ctx, formID, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list activity")
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return events, pagination, nil
}
