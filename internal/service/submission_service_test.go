package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
)

type mockSubmissionRepo struct {
	recent      *models.Submission
	recentSince time.Time
	inserted    []*models.Submission
	updated     map[string]models.AnswerSet
	count       int
	listed      []models.Submission
	listTotal   int
	findErr     error
	insertErr   error
	updateErr   error
}

func (m *mockSubmissionRepo) FindRecentByFingerprint(ctx context.Context, formID, ip, userAgent string, since time.Time) (*models.Submission, error) {
	m.recentSince = since
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.recent, nil
}

func (m *mockSubmissionRepo) Insert(ctx context.Context, submission *models.Submission) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if submission.ID == "" {
		submission.ID = "generated"
	}
	m.inserted = append(m.inserted, submission)
	return nil
}

func (m *mockSubmissionRepo) UpdateAnswers(ctx context.Context, id string, answers models.AnswerSet) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if m.updated == nil {
		m.updated = make(map[string]models.AnswerSet)
	}
	m.updated[id] = answers
	return nil
}

func (m *mockSubmissionRepo) CountByForm(ctx context.Context, formID string) (int, error) {
	return m.count, nil
}

func (m *mockSubmissionRepo) ListByForm(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, int, error) {
	return m.listed, m.listTotal, nil
}

type mockActivityRecorder struct {
	events []recordedEvent
	err    error
}

type recordedEvent struct {
	formID      string
	eventType   models.EventType
	description string
	metadata    models.EventMetadata
}

func (m *mockActivityRecorder) Record(ctx context.Context, formID string, eventType models.EventType, description string, metadata models.EventMetadata) error {
	m.events = append(m.events, recordedEvent{formID, eventType, description, metadata})
	return m.err
}

func TestSubmissionServiceResolveCreates(t *testing.T) {
	repo := &mockSubmissionRepo{}
	activity := &mockActivityRecorder{}
	svc := NewSubmissionService(repo, activity, 10*time.Minute, nil, zap.NewNop())

	now := time.Now().UTC()
	fp := models.Fingerprint{IP: "10.0.0.1", UserAgent: "test-agent"}
	meta := models.SubmissionMetadata{IP: fp.IP, UserAgent: fp.UserAgent, Device: models.DeviceDesktop}

	result, err := svc.Resolve(context.Background(), "form-1", fp, models.AnswerSet{"name": "Ada"}, meta, nil, now)
	require.NoError(t, err)

	assert.False(t, result.WasAmend)
	assert.Equal(t, now, result.SubmittedAt)
	require.Len(t, repo.inserted, 1)
	assert.Equal(t, meta, repo.inserted[0].Metadata)
	assert.Equal(t, now.Add(-10*time.Minute), repo.recentSince)

	require.Len(t, activity.events, 1)
	assert.Equal(t, models.EventResponseReceived, activity.events[0].eventType)
	assert.Equal(t, "New response submitted", activity.events[0].description)
	assert.Equal(t, false, activity.events[0].metadata["amended"])
}

func TestSubmissionServiceResolveAmendsInWindow(t *testing.T) {
	original := time.Now().UTC().Add(-5 * time.Minute)
	repo := &mockSubmissionRepo{
		recent: &models.Submission{
			ID:          "sub-1",
			FormID:      "form-1",
			SubmittedAt: original,
			Metadata:    models.SubmissionMetadata{IP: "10.0.0.1", UserAgent: "first-agent"},
		},
	}
	activity := &mockActivityRecorder{}
	svc := NewSubmissionService(repo, activity, 10*time.Minute, nil, zap.NewNop())

	fp := models.Fingerprint{IP: "10.0.0.1", UserAgent: "first-agent"}
	newAnswers := models.AnswerSet{"name": "Ada Lovelace"}
	result, err := svc.Resolve(context.Background(), "form-1", fp, newAnswers, models.SubmissionMetadata{}, nil, time.Now().UTC())
	require.NoError(t, err)

	assert.True(t, result.WasAmend)
	assert.Equal(t, "sub-1", result.SubmissionID)
	// The window stays anchored at the original timestamp.
	assert.Equal(t, original, result.SubmittedAt)
	assert.Equal(t, newAnswers, repo.updated["sub-1"])
	assert.Empty(t, repo.inserted)

	require.Len(t, activity.events, 1)
	assert.Equal(t, "Response updated within edit window", activity.events[0].description)
	assert.Equal(t, true, activity.events[0].metadata["amended"])
}

func TestSubmissionServiceResolveNoEventOnFailedWrite(t *testing.T) {
	repo := &mockSubmissionRepo{insertErr: errors.New("disk full")}
	activity := &mockActivityRecorder{}
	svc := NewSubmissionService(repo, activity, 10*time.Minute, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "form-1", models.Fingerprint{}, models.AnswerSet{}, models.SubmissionMetadata{}, nil, time.Now().UTC())
	require.Error(t, err)
	assert.Empty(t, activity.events)
}

func TestSubmissionServiceResolveSurvivesRecordFailure(t *testing.T) {
	repo := &mockSubmissionRepo{}
	activity := &mockActivityRecorder{err: errors.New("log table locked")}
	svc := NewSubmissionService(repo, activity, 10*time.Minute, nil, zap.NewNop())

	result, err := svc.Resolve(context.Background(), "form-1", models.Fingerprint{}, models.AnswerSet{}, models.SubmissionMetadata{}, nil, time.Now().UTC())
	require.NoError(t, err)
	assert.NotEmpty(t, result.SubmissionID)
}

func TestSubmissionServiceListDefaultsPagination(t *testing.T) {
	repo := &mockSubmissionRepo{listTotal: 42}
	svc := NewSubmissionService(repo, &mockActivityRecorder{}, 0, nil, zap.NewNop())

	_, pagination, err := svc.List(context.Background(), models.SubmissionFilter{FormID: "form-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}
