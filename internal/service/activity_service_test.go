package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
)

type mockActivityRepo struct {
	inserted   []*models.ActivityEvent
	events     []models.ActivityEvent
	total      int
	lastLimit  int
	lastOffset int
}

func (m *mockActivityRepo) Insert(ctx context.Context, event *models.ActivityEvent) error {
	m.inserted = append(m.inserted, event)
	return nil
}

func (m *mockActivityRepo) ListByForm(ctx context.Context, formID string, limit, offset int) ([]models.ActivityEvent, int, error) {
	m.lastLimit = limit
	m.lastOffset = offset
	return m.events, m.total, nil
}

func TestActivityServiceRecord(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := NewActivityService(repo, 50, zap.NewNop())

	err := svc.Record(context.Background(), "form-1", models.EventFormCreated, "Form created", nil)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, models.EventFormCreated, repo.inserted[0].EventType)
}

func TestActivityServiceRecordRejectsUnknownType(t *testing.T) {
	repo := &mockActivityRepo{}
	svc := NewActivityService(repo, 50, zap.NewNop())

	err := svc.Record(context.Background(), "form-1", models.EventType("form_deleted_forever"), "nope", nil)
	require.Error(t, err)
	assert.Empty(t, repo.inserted)
}

func TestActivityServiceListCapsPageSize(t *testing.T) {
	repo := &mockActivityRepo{total: 120}
	svc := NewActivityService(repo, 50, zap.NewNop())

	_, pagination, err := svc.List(context.Background(), "form-1", 2, 500)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastLimit)
	assert.Equal(t, 50, repo.lastOffset)
	assert.Equal(t, 50, pagination.PageSize)
	assert.Equal(t, 120, pagination.TotalCount)
}
