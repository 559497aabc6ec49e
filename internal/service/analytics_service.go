package service

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

type analyticsSubmissionReader interface {
	AllByForm(ctx context.Context, formID string) ([]models.Submission, error)
}

// OptionCount is one slice of a choice-field breakdown.
type OptionCount struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// FieldStats aggregates answers for one chartable field.
type FieldStats struct {
	FieldID string           `json:"fieldId"`
	Label   string           `json:"label"`
	Type    models.FieldType `json:"type"`
	Data    []OptionCount    `json:"data"`
	Total   int              `json:"total"`
	Summary StatsSummary     `json:"summary"`
}

// StatsSummary highlights the most selected option.
type StatsSummary struct {
	TopOption  string `json:"topOption"`
	Percentage int    `json:"percentage"`
}

// FormAnalytics is the aggregation payload for a form's responses. Rendering
// is a client concern; this service only counts.
type FormAnalytics struct {
	ResponseCount int            `json:"responseCount"`
	Fields        []FieldStats   `json:"fields"`
	Devices       map[string]int `json:"devices"`
}

// AnalyticsService aggregates choice-field answers and device classes over a
// form's submissions.
type AnalyticsService struct {
	forms       formReader
	submissions analyticsSubmissionReader
	logger      *zap.Logger
}

// NewAnalyticsService constructs AnalyticsService.
func NewAnalyticsService(forms formReader, submissions analyticsSubmissionReader, logger *zap.Logger) *AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsService{forms: forms, submissions: submissions, logger: logger}
}

// ForForm computes per-option counts for every choice field plus a device
// breakdown.
func (s *AnalyticsService) ForForm(ctx context.Context, formID string) (*FormAnalytics, error) {
	form, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}
	submissions, err := s.submissions.AllByForm(ctx, formID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}

	analytics := &FormAnalytics{
		ResponseCount: len(submissions),
		Fields:        make([]FieldStats, 0),
		Devices:       make(map[string]int),
	}
	for _, sub := range submissions {
		analytics.Devices[string(sub.Metadata.Device)]++
	}

	for _, field := range form.Fields {
		if !field.Type.IsChoice() {
			continue
		}
		analytics.Fields = append(analytics.Fields, fieldStats(field, submissions))
	}
	return analytics, nil
}

func fieldStats(field models.Field, submissions []models.Submission) FieldStats {
	data := make([]OptionCount, 0, len(field.Options))
	total := 0
	for _, option := range field.Options {
		count := 0
		for _, sub := range submissions {
			if answerMatches(sub.Answers[field.ID], option) {
				count++
			}
		}
		data = append(data, OptionCount{Name: option, Value: count})
		total += count
	}

	summary := StatsSummary{TopOption: "N/A"}
	if len(data) > 0 && total > 0 {
		sorted := make([]OptionCount, len(data))
		copy(sorted, data)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Value > sorted[j].Value })
		summary.TopOption = sorted[0].Name
		summary.Percentage = int(float64(sorted[0].Value)/float64(total)*100 + 0.5)
	}

	return FieldStats{
		FieldID: field.ID,
		Label:   field.Label,
		Type:    field.Type,
		Data:    data,
		Total:   total,
		Summary: summary,
	}
}
