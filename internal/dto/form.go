package dto

import (
	"time"

	"github.com/formhive/formhive-api/internal/models"
)

// CreateFormRequest defines the form creation payload.
type CreateFormRequest struct {
	Title       string           `json:"title" validate:"required"`
	Description string           `json:"description"`
	CreatorID   string           `json:"creatorId" validate:"required"`
	Fields      models.FieldList `json:"fields"`
	FolderName  string           `json:"folderName"`
}

// UpdateFieldsRequest replaces a form's field list.
type UpdateFieldsRequest struct {
	Fields models.FieldList `json:"fields" validate:"required"`
}

// UpdateSettingsRequest is a partial settings update; nil members are left
// untouched.
type UpdateSettingsRequest struct {
	IsActive         *bool                  `json:"isActive,omitempty"`
	ExpiryDate       *time.Time             `json:"expiryDate,omitempty"`
	MaxResponses     *int                   `json:"maxResponses,omitempty" validate:"omitempty,min=0"`
	SingleSubmission *bool                  `json:"singleSubmission,omitempty"`
	ClosedMessage    *string                `json:"closedMessage,omitempty"`
	Status           *models.FormStatus     `json:"status,omitempty" validate:"omitempty,oneof=Draft Live Closed"`
	Visibility       *models.FormVisibility `json:"visibility,omitempty" validate:"omitempty,oneof=Public Private 'Password Protected'"`
	Password         *string                `json:"password,omitempty"`
}

// UnlockFormRequest carries the password for a protected form.
type UnlockFormRequest struct {
	Password string `json:"password" validate:"required"`
}
