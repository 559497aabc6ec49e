package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/formhive/formhive-api/internal/dto"
	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

type formRepository interface {
	FindByID(ctx context.Context, id string) (*models.Form, error)
	List(ctx context.Context, filter models.FormFilter) ([]models.Form, int, error)
	Create(ctx context.Context, form *models.Form) error
	Update(ctx context.Context, form *models.Form) error
	Delete(ctx context.Context, id string) error
}

// FormService manages form documents and their settings. Field-list writes
// are guarded by the schema compiler's save-time checks so a form carrying
// dangling or cyclic visibility rules is never persisted.
type FormService struct {
	repo      formRepository
	activity  activityRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFormService constructs FormService.
func NewFormService(repo formRepository, activity activityRecorder, validate *validator.Validate, logger *zap.Logger) *FormService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormService{repo: repo, activity: activity, validator: validate, logger: logger}
}

// Create persists a new form in draft state.
func (s *FormService) Create(ctx context.Context, req dto.CreateFormRequest) (*models.Form, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid form payload")
	}
	if err := validateFields(req.Fields); err != nil {
		return nil, err
	}

	form := &models.Form{
		Title:       req.Title,
		Description: req.Description,
		CreatorID:   req.CreatorID,
		Fields:      req.Fields,
		Settings:    models.DefaultSettings(),
		FolderName:  req.FolderName,
	}
	if form.FolderName == "" {
		form.FolderName = "Uncategorized"
	}
	if err := s.repo.Create(ctx, form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create form")
	}

	s.record(ctx, form.ID, models.EventFormCreated, fmt.Sprintf("Form %q created", form.Title), nil)
	return form, nil
}

// Get loads a form by id.
func (s *FormService) Get(ctx context.Context, id string) (*models.Form, error) {
	form, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "form not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load form")
	}
	return form, nil
}

// List returns forms for the dashboard.
func (s *FormService) List(ctx context.Context, filter models.FormFilter) ([]models.Form, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	forms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list forms")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return forms, pagination, nil
}

// UpdateFields replaces the field list, recompiling the save-time checks.
func (s *FormService) UpdateFields(ctx context.Context, id string, fields models.FieldList) (*models.Form, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateFields(fields); err != nil {
		return nil, err
	}
	form.Fields = fields
	if err := s.repo.Update(ctx, form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update form")
	}
	return form, nil
}

// UpdateSettings applies a partial settings update. A status transition is
// logged separately from the generic settings event.
func (s *FormService) UpdateSettings(ctx context.Context, id string, req dto.UpdateSettingsRequest) (*models.Form, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prevStatus := form.Settings.Status
	applySettings(&form.Settings, req)

	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
		}
		form.Settings.Password = string(hash)
	}

	if err := s.repo.Update(ctx, form); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update settings")
	}

	s.record(ctx, form.ID, models.EventSettingsUpdated, "Form settings updated", nil)
	if form.Settings.Status != prevStatus {
		s.record(ctx, form.ID, models.EventStatusChanged,
			fmt.Sprintf("Status changed from %s to %s", prevStatus, form.Settings.Status),
			models.EventMetadata{"from": string(prevStatus), "to": string(form.Settings.Status)})
	}
	return form, nil
}

// Delete removes a form.
func (s *FormService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete form")
	}
	return nil
}

// Unlock checks the password gate of a protected form. The gate is
// form-global: one unlock opens the whole form, not a single submission.
func (s *FormService) Unlock(ctx context.Context, id, password string) error {
	form, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if form.Settings.Visibility != models.VisibilityProtected {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(form.Settings.Password), []byte(password)); err != nil {
		return appErrors.ErrFormLocked
	}
	return nil
}

// FindByID satisfies the intake service's form reader.
func (s *FormService) FindByID(ctx context.Context, id string) (*models.Form, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *FormService) record(ctx context.Context, formID string, eventType models.EventType, description string, metadata models.EventMetadata) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Record(ctx, formID, eventType, description, metadata); err != nil {
		s.logger.Warn("activity record failed", zap.String("form_id", formID), zap.Error(err))
	}
}

func applySettings(settings *models.Settings, req dto.UpdateSettingsRequest) {
	if req.IsActive != nil {
		settings.IsActive = *req.IsActive
	}
	if req.ExpiryDate != nil {
		settings.ExpiryDate = req.ExpiryDate
	}
	if req.MaxResponses != nil {
		settings.MaxResponses = *req.MaxResponses
	}
	if req.SingleSubmission != nil {
		settings.SingleSubmission = *req.SingleSubmission
	}
	if req.ClosedMessage != nil {
		settings.ClosedMessage = *req.ClosedMessage
	}
	if req.Status != nil {
		settings.Status = *req.Status
	}
	if req.Visibility != nil {
		settings.Visibility = *req.Visibility
	}
}

// validateFields enforces the structural field invariants: known types,
// non-empty options on choice fields, and acyclic visibility rules.
func validateFields(fields models.FieldList) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f.ID == "" {
			return appErrors.Clone(appErrors.ErrValidation, "field id is required")
		}
		if _, dup := seen[f.ID]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate field id %q", f.ID))
		}
		seen[f.ID] = struct{}{}
		if !f.Type.Known() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown field type %q", f.Type))
		}
		if f.Type.IsChoice() && len(f.Options) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q requires options", f.ID))
		}
	}
	return CheckLogic(fields)
}
