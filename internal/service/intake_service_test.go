package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/dto"
	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

type mockFormReader struct {
	forms map[string]models.Form
}

func (m *mockFormReader) FindByID(ctx context.Context, id string) (*models.Form, error) {
	if f, ok := m.forms[id]; ok {
		return &f, nil
	}
	return nil, sql.ErrNoRows
}

type mockMarkerStore struct {
	marked map[string]bool
	tokens []string
	setErr error
}

func (m *mockMarkerStore) Has(ctx context.Context, formID string, fp models.Fingerprint, token string) bool {
	if m.marked[formID] {
		return true
	}
	for _, issued := range m.tokens {
		if token != "" && token == issued {
			return true
		}
	}
	return false
}

func (m *mockMarkerStore) Set(ctx context.Context, formID string, fp models.Fingerprint) (string, error) {
	if m.setErr != nil {
		return "", m.setErr
	}
	if m.marked == nil {
		m.marked = make(map[string]bool)
	}
	m.marked[formID] = true
	token := "token-" + formID
	m.tokens = append(m.tokens, token)
	return token, nil
}

func (m *mockMarkerStore) TTL() time.Duration { return time.Hour }

func liveForm() models.Form {
	settings := models.DefaultSettings()
	settings.Status = models.StatusLive
	return models.Form{
		ID:       "form-1",
		Title:    "RSVP",
		Settings: settings,
		Fields: models.FieldList{
			{ID: "name", Type: models.FieldTypeText, Required: true},
			{ID: "diet", Type: models.FieldTypeText, Logic: &models.Logic{
				TriggerFieldID: "name", Condition: models.ConditionNotEquals, Value: "",
			}},
		},
	}
}

// newIntakeHarness wires an intake service with an inline-commit sequencer
// and in-memory dependencies.
func newIntakeHarness(t *testing.T, form models.Form) (*IntakeService, *mockSubmissionRepo, *mockMarkerStore, *mockActivityRecorder) {
	t.Helper()
	forms := &mockFormReader{forms: map[string]models.Form{form.ID: form}}
	repo := &mockSubmissionRepo{}
	activity := &mockActivityRecorder{}
	markers := &mockMarkerStore{}
	submissions := NewSubmissionService(repo, activity, 10*time.Minute, nil, zap.NewNop())
	intake := NewIntakeService(forms, submissions, markers, nil, zap.NewNop())
	seq := NewSequencer(intake, SequencerConfig{Delay: 0, Activity: activity})
	seq.Run(context.Background())
	t.Cleanup(seq.Stop)
	intake.SetSequencer(seq)
	return intake, repo, markers, activity
}

func TestIntakeViewRendersFieldsWhenAllowed(t *testing.T) {
	intake, _, _, _ := newIntakeHarness(t, liveForm())

	view, err := intake.View(context.Background(), "form-1", models.Fingerprint{IP: "1.1.1.1"}, "", false)
	require.NoError(t, err)

	assert.True(t, view.Gate.Allowed())
	assert.False(t, view.Locked)
	assert.Len(t, view.Fields, 2)
}

func TestIntakeViewHidesFieldsWhenGateRejects(t *testing.T) {
	form := liveForm()
	form.Settings.Status = models.StatusClosed
	form.Settings.ClosedMessage = "Come back later."
	intake, _, _, _ := newIntakeHarness(t, form)

	view, err := intake.View(context.Background(), "form-1", models.Fingerprint{}, "", false)
	require.NoError(t, err)

	assert.Equal(t, GateClosed, view.Gate.Reason)
	assert.Equal(t, "Come back later.", view.Gate.ClosedMessage)
	assert.Empty(t, view.Fields)
}

func TestIntakeViewLockedUntilUnlocked(t *testing.T) {
	form := liveForm()
	form.Settings.Visibility = models.VisibilityProtected
	intake, _, _, _ := newIntakeHarness(t, form)

	view, err := intake.View(context.Background(), "form-1", models.Fingerprint{}, "", false)
	require.NoError(t, err)
	assert.True(t, view.Locked)
	assert.Empty(t, view.Fields)

	view, err = intake.View(context.Background(), "form-1", models.Fingerprint{}, "", true)
	require.NoError(t, err)
	assert.False(t, view.Locked)
	assert.Len(t, view.Fields, 2)
}

func TestIntakeViewUnknownForm(t *testing.T) {
	intake, _, _, _ := newIntakeHarness(t, liveForm())

	_, err := intake.View(context.Background(), "missing", models.Fingerprint{}, "", false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestIntakeInitiateValidationErrors(t *testing.T) {
	intake, repo, _, _ := newIntakeHarness(t, liveForm())

	_, err := intake.Initiate(context.Background(), "form-1", "s1", models.Fingerprint{}, "", models.AnswerSet{}, nil)
	require.Error(t, err)

	var fieldErrs FieldErrors
	require.True(t, errors.As(err, &fieldErrs))
	assert.Equal(t, "This field is required", fieldErrs["name"])
	assert.Empty(t, repo.inserted)
}

func TestIntakeInitiateCommitsAndFiltersAnswers(t *testing.T) {
	intake, repo, _, _ := newIntakeHarness(t, liveForm())

	answers := models.AnswerSet{
		"name":  "Ada",
		"diet":  "vegan",
		"extra": "dropped",
	}
	view, err := intake.Initiate(context.Background(), "form-1", "s1",
		models.Fingerprint{IP: "1.1.1.1", UserAgent: "Mozilla/5.0 (Windows NT 10.0)"}, "", answers, nil)
	require.NoError(t, err)

	assert.Equal(t, AttemptCommitted, view.State)
	require.NotNil(t, view.Result)
	require.NotNil(t, view.EditDeadline)
	assert.Equal(t, view.Result.SubmittedAt.Add(10*time.Minute), *view.EditDeadline)

	require.Len(t, repo.inserted, 1)
	saved := repo.inserted[0]
	assert.Equal(t, models.AnswerSet{"name": "Ada", "diet": "vegan"}, saved.Answers)
	assert.Equal(t, "1.1.1.1", saved.Metadata.IP)
	assert.Equal(t, models.DeviceDesktop, saved.Metadata.Device)
}

func TestIntakeInitiateRejectedByGate(t *testing.T) {
	form := liveForm()
	form.Settings.IsActive = false
	intake, repo, _, _ := newIntakeHarness(t, form)

	_, err := intake.Initiate(context.Background(), "form-1", "s1", models.Fingerprint{}, "", models.AnswerSet{"name": "Ada"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFormInactive.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.inserted)
}

func TestIntakeCommitSetsMarkerOnSingleSubmission(t *testing.T) {
	form := liveForm()
	form.Settings.SingleSubmission = true
	intake, repo, markers, _ := newIntakeHarness(t, form)

	fp := models.Fingerprint{IP: "1.1.1.1", UserAgent: "agent"}
	_, err := intake.Initiate(context.Background(), "form-1", "s1", fp, "", models.AnswerSet{"name": "Ada"}, nil)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	assert.True(t, markers.marked["form-1"])

	// The second attempt from the same requester is turned away.
	_, err = intake.Initiate(context.Background(), "form-1", "s2", fp, "", models.AnswerSet{"name": "Ada"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadySubmitted.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.inserted, 1)
}

func TestIntakeAmendWithinWindowOnSingleSubmission(t *testing.T) {
	form := liveForm()
	form.Settings.SingleSubmission = true
	intake, repo, markers, _ := newIntakeHarness(t, form)

	fp := models.Fingerprint{IP: "1.1.1.1", UserAgent: "agent"}
	_, err := intake.Initiate(context.Background(), "form-1", "s1", fp, "", models.AnswerSet{"name": "Ada"}, nil)
	require.NoError(t, err)
	require.Len(t, repo.inserted, 1)
	require.True(t, markers.marked["form-1"])

	// Minutes later the same requester edits their answers. The marker is
	// set, but the in-window record means the resubmission amends it
	// rather than bouncing off the single-submission check.
	repo.recent = repo.inserted[0]
	view, err := intake.Initiate(context.Background(), "form-1", "s2", fp, "", models.AnswerSet{"name": "Ada Lovelace"}, nil)
	require.NoError(t, err)
	require.NotNil(t, view.Result)
	assert.True(t, view.Result.WasAmend)
	assert.Equal(t, models.AnswerSet{"name": "Ada Lovelace"}, repo.updated[repo.inserted[0].ID])
	assert.Len(t, repo.inserted, 1)
}

func TestIntakeAmendWithinWindowBypassesLimit(t *testing.T) {
	form := liveForm()
	form.Settings.MaxResponses = 1
	intake, repo, _, _ := newIntakeHarness(t, form)

	// The form is full, but this requester owns one of the counted
	// responses and is still inside the edit window.
	repo.count = 1
	repo.recent = &models.Submission{ID: "sub-1", FormID: "form-1", SubmittedAt: time.Now().UTC().Add(-5 * time.Minute)}

	view, err := intake.Initiate(context.Background(), "form-1", "s1", models.Fingerprint{IP: "1.1.1.1"}, "", models.AnswerSet{"name": "Ada"}, nil)
	require.NoError(t, err)
	require.NotNil(t, view.Result)
	assert.True(t, view.Result.WasAmend)
	assert.Empty(t, repo.inserted)
	assert.Equal(t, models.AnswerSet{"name": "Ada"}, repo.updated["sub-1"])
}

func TestIntakeMarkerTokenHonoredWithoutRedis(t *testing.T) {
	form := liveForm()
	form.Settings.SingleSubmission = true
	forms := &mockFormReader{forms: map[string]models.Form{form.ID: form}}
	repo := &mockSubmissionRepo{}
	activity := &mockActivityRecorder{}
	markers := NewMarkerService(nil, "test-secret", time.Hour, zap.NewNop())
	submissions := NewSubmissionService(repo, activity, 10*time.Minute, nil, zap.NewNop())
	intake := NewIntakeService(forms, submissions, markers, nil, zap.NewNop())
	seq := NewSequencer(intake, SequencerConfig{Delay: 0, Activity: activity})
	seq.Run(context.Background())
	t.Cleanup(seq.Stop)
	intake.SetSequencer(seq)

	fp := models.Fingerprint{IP: "1.1.1.1", UserAgent: "agent"}
	token, err := markers.Set(context.Background(), "form-1", fp)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	// With no redis the marker lives only in the signed token; a submit
	// carrying it must still be turned away.
	_, err = intake.Initiate(context.Background(), "form-1", "s1", fp, token, models.AnswerSet{"name": "Ada"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrAlreadySubmitted.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.inserted)
}

func TestIntakeCommitReChecksLimit(t *testing.T) {
	form := liveForm()
	form.Settings.MaxResponses = 1
	intake, repo, _, _ := newIntakeHarness(t, form)

	// Another submission landed between render and commit.
	repo.count = 1

	_, err := intake.Initiate(context.Background(), "form-1", "s1", models.Fingerprint{}, "", models.AnswerSet{"name": "Ada"}, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLimitReached.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.inserted)
}

func TestIntakeLocationCapture(t *testing.T) {
	form := liveForm()
	form.Fields = append(form.Fields, models.Field{
		ID: "where", Type: models.FieldTypeLocation,
		Validation: &models.Validation{CaptureCity: true},
	})
	intake, repo, _, _ := newIntakeHarness(t, form)

	loc := &dto.RawLocation{Latitude: 52.52, Longitude: 13.405, Address: "Unter den Linden 1, Berlin, Germany"}
	_, err := intake.Initiate(context.Background(), "form-1", "s1", models.Fingerprint{}, "", models.AnswerSet{"name": "Ada"}, loc)
	require.NoError(t, err)

	require.Len(t, repo.inserted, 1)
	saved := repo.inserted[0].Location
	require.NotNil(t, saved)
	assert.Equal(t, 52.52, saved.Latitude)
	assert.Equal(t, "Berlin", saved.City)
	assert.Equal(t, "Germany", saved.Country)
}
