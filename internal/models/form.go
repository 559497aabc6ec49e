package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FieldType enumerates the supported field kinds.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeDate     FieldType = "date"
	FieldTypeFile     FieldType = "file"
	FieldTypeLocation FieldType = "location"
)

// IsChoice reports whether the field type carries an option list.
func (t FieldType) IsChoice() bool {
	return t == FieldTypeSelect || t == FieldTypeRadio || t == FieldTypeCheckbox
}

// IsTextLike reports whether character bounds apply to the field type.
func (t FieldType) IsTextLike() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeSelect, FieldTypeRadio:
		return true
	}
	return false
}

// Known reports whether the value is part of the closed enumeration.
func (t FieldType) Known() bool {
	switch t {
	case FieldTypeText, FieldTypeTextarea, FieldTypeEmail, FieldTypeNumber,
		FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox, FieldTypeDate,
		FieldTypeFile, FieldTypeLocation:
		return true
	}
	return false
}

// LogicCondition enumerates visibility rule operators.
type LogicCondition string

const (
	ConditionEquals    LogicCondition = "equals"
	ConditionNotEquals LogicCondition = "not_equals"
)

// Logic gates the visibility of its owning field on another field's answer.
type Logic struct {
	TriggerFieldID string         `json:"triggerFieldId"`
	Condition      LogicCondition `json:"condition"`
	Value          string         `json:"value"`
}

// Validation refines per-field constraints beyond the type defaults.
// Bounds only apply to the types they are defined for: character bounds for
// text-likes, digit count for numbers, city capture for location fields.
type Validation struct {
	MinChars    *int `json:"minChars,omitempty"`
	MaxChars    *int `json:"maxChars,omitempty"`
	ExactDigits *int `json:"exactDigits,omitempty"`
	CaptureCity bool `json:"captureCity,omitempty"`
}

// Field is a single entry in a form's ordered field list.
type Field struct {
	ID          string      `json:"id"`
	Type        FieldType   `json:"type"`
	Label       string      `json:"label"`
	Placeholder string      `json:"placeholder,omitempty"`
	HelpText    string      `json:"helpText,omitempty"`
	Required    bool        `json:"required"`
	Options     []string    `json:"options,omitempty"`
	Logic       *Logic      `json:"logic,omitempty"`
	Validation  *Validation `json:"validation,omitempty"`
}

// FormStatus enumerates form lifecycle states.
type FormStatus string

const (
	StatusDraft  FormStatus = "Draft"
	StatusLive   FormStatus = "Live"
	StatusClosed FormStatus = "Closed"
)

// FormVisibility enumerates who may reach the public form.
type FormVisibility string

const (
	VisibilityPublic    FormVisibility = "Public"
	VisibilityPrivate   FormVisibility = "Private"
	VisibilityProtected FormVisibility = "Password Protected"
)

// DefaultClosedMessage is shown when a form stops accepting responses and the
// creator has not configured a custom message.
const DefaultClosedMessage = "This form is no longer accepting responses."

// Settings controls how a form admits submissions.
type Settings struct {
	IsActive         bool           `json:"isActive"`
	ExpiryDate       *time.Time     `json:"expiryDate,omitempty"`
	MaxResponses     int            `json:"maxResponses"`
	SingleSubmission bool           `json:"singleSubmission"`
	ClosedMessage    string         `json:"closedMessage"`
	Status           FormStatus     `json:"status"`
	Visibility       FormVisibility `json:"visibility"`
	Password         string         `json:"-"`
}

// settingsJSON carries the password hash through the database round trip
// while keeping it out of API payloads.
type settingsJSON struct {
	IsActive         bool           `json:"isActive"`
	ExpiryDate       *time.Time     `json:"expiryDate,omitempty"`
	MaxResponses     int            `json:"maxResponses"`
	SingleSubmission bool           `json:"singleSubmission"`
	ClosedMessage    string         `json:"closedMessage"`
	Status           FormStatus     `json:"status"`
	Visibility       FormVisibility `json:"visibility"`
	Password         string         `json:"password,omitempty"`
}

// Value implements driver.Valuer for the JSONB settings column.
func (s Settings) Value() (driver.Value, error) {
	return json.Marshal(settingsJSON(s))
}

// Scan implements sql.Scanner for the JSONB settings column.
func (s *Settings) Scan(src interface{}) error {
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("settings: unsupported scan type %T", src)
	}
	var decoded settingsJSON
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	*s = Settings(decoded)
	return nil
}

// DefaultSettings returns creator defaults for a newly created form.
func DefaultSettings() Settings {
	return Settings{
		IsActive:      true,
		ClosedMessage: DefaultClosedMessage,
		Status:        StatusDraft,
		Visibility:    VisibilityPublic,
	}
}

// FieldList supports JSONB storage of the ordered field sequence.
type FieldList []Field

// Value implements driver.Valuer for the JSONB fields column.
func (l FieldList) Value() (driver.Value, error) {
	if l == nil {
		l = FieldList{}
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for the JSONB fields column.
func (l *FieldList) Scan(src interface{}) error {
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("field list: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, l)
}

// Form owns an ordered field list and the admission settings.
type Form struct {
	ID          string    `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description,omitempty"`
	CreatorID   string    `db:"creator_id" json:"creatorId"`
	Fields      FieldList `db:"fields" json:"fields"`
	Settings    Settings  `db:"settings" json:"settings"`
	FolderName  string    `db:"folder_name" json:"folderName"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// FormFilter filters dashboard listings.
type FormFilter struct {
	CreatorID  string
	FolderName string
	Search     string
	Page       int
	PageSize   int
}
