package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
)

type mockAnalyticsReader struct {
	submissions []models.Submission
}

func (m *mockAnalyticsReader) AllByForm(ctx context.Context, formID string) ([]models.Submission, error) {
	return m.submissions, nil
}

func TestAnalyticsForForm(t *testing.T) {
	forms := &mockFormReader{forms: map[string]models.Form{
		"form-1": {
			ID:       "form-1",
			Settings: models.DefaultSettings(),
			Fields: models.FieldList{
				{ID: "name", Type: models.FieldTypeText},
				{ID: "lang", Type: models.FieldTypeRadio, Label: "Language", Options: []string{"go", "rust", "zig"}},
				{ID: "topics", Type: models.FieldTypeCheckbox, Label: "Topics", Options: []string{"db", "web"}},
			},
		},
	}}
	reader := &mockAnalyticsReader{submissions: []models.Submission{
		{Answers: models.AnswerSet{"lang": "go", "topics": []interface{}{"db", "web"}}, Metadata: models.SubmissionMetadata{Device: models.DeviceMobile}},
		{Answers: models.AnswerSet{"lang": "go", "topics": []interface{}{"db"}}, Metadata: models.SubmissionMetadata{Device: models.DeviceDesktop}},
		{Answers: models.AnswerSet{"lang": "rust"}, Metadata: models.SubmissionMetadata{Device: models.DeviceMobile}},
	}}
	svc := NewAnalyticsService(forms, reader, zap.NewNop())

	analytics, err := svc.ForForm(context.Background(), "form-1")
	require.NoError(t, err)

	assert.Equal(t, 3, analytics.ResponseCount)
	assert.Equal(t, map[string]int{"mobile": 2, "desktop": 1}, analytics.Devices)

	// Text fields are not chartable.
	require.Len(t, analytics.Fields, 2)

	lang := analytics.Fields[0]
	assert.Equal(t, "lang", lang.FieldID)
	assert.Equal(t, []OptionCount{{Name: "go", Value: 2}, {Name: "rust", Value: 1}, {Name: "zig", Value: 0}}, lang.Data)
	assert.Equal(t, "go", lang.Summary.TopOption)
	assert.Equal(t, 67, lang.Summary.Percentage)

	topics := analytics.Fields[1]
	assert.Equal(t, []OptionCount{{Name: "db", Value: 2}, {Name: "web", Value: 1}}, topics.Data)
}

func TestAnalyticsNoResponses(t *testing.T) {
	forms := &mockFormReader{forms: map[string]models.Form{
		"form-1": {
			ID:       "form-1",
			Settings: models.DefaultSettings(),
			Fields: models.FieldList{
				{ID: "lang", Type: models.FieldTypeSelect, Options: []string{"go", "rust"}},
			},
		},
	}}
	svc := NewAnalyticsService(forms, &mockAnalyticsReader{}, zap.NewNop())

	analytics, err := svc.ForForm(context.Background(), "form-1")
	require.NoError(t, err)

	assert.Equal(t, 0, analytics.ResponseCount)
	require.Len(t, analytics.Fields, 1)
	assert.Equal(t, "N/A", analytics.Fields[0].Summary.TopOption)
	assert.Equal(t, 0, analytics.Fields[0].Summary.Percentage)
}
