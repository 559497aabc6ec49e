package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/formhive/formhive-api/internal/models"
	appErrors "github.com/formhive/formhive-api/pkg/errors"
)

var emailRe = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

// Schema is a compiled per-form validation contract plus the conditional
// visibility predicate table. It is a pure function of the field list:
// compiling the same fields twice yields equivalent behavior. Schemas are
// rebuilt whenever the field list changes, never cached across edits.
type Schema struct {
	fields []models.Field
	byID   map[string]models.Field
}

// CompileSchema builds the contract for a form's field list.
func CompileSchema(fields []models.Field) *Schema {
	byID := make(map[string]models.Field, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}
	return &Schema{fields: fields, byID: byID}
}

// Visible resolves the set of currently visible field ids for the given
// answers. Fields without logic are always visible. A field whose trigger is
// itself hidden resolves to hidden, so visibility is computed to a fixpoint
// with a pass cap equal to the field count. Fields left unresolved at the cap
// are treated as hidden rather than looping.
func (s *Schema) Visible(answers models.AnswerSet) map[string]struct{} {
	visible := make(map[string]struct{}, len(s.fields))
	pending := make([]models.Field, 0)

	for _, f := range s.fields {
		if f.Logic == nil {
			visible[f.ID] = struct{}{}
		} else {
			pending = append(pending, f)
		}
	}

	for pass := 0; pass < len(s.fields) && len(pending) > 0; pass++ {
		next := pending[:0:0]
		for _, f := range pending {
			if _, ok := visible[f.Logic.TriggerFieldID]; !ok {
				next = append(next, f)
				continue
			}
			if conditionHolds(f.Logic, answers[f.Logic.TriggerFieldID]) {
				visible[f.ID] = struct{}{}
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}

	return visible
}

// Validate checks answers against the contract and returns per-field error
// messages keyed by field id. Hidden fields are skipped entirely, so their
// required flag is never enforced.
func (s *Schema) Validate(answers models.AnswerSet) map[string]string {
	visible := s.Visible(answers)
	errs := make(map[string]string)

	for _, f := range s.fields {
		if _, ok := visible[f.ID]; !ok {
			continue
		}
		if msg := validateField(f, answers[f.ID]); msg != "" {
			errs[f.ID] = msg
		}
	}

	return errs
}

// Filter drops answers for hidden fields and unknown field ids. A hidden
// field may carry a stale value from a prior visible state; it must not be
// validated nor persisted.
func (s *Schema) Filter(answers models.AnswerSet) models.AnswerSet {
	visible := s.Visible(answers)
	filtered := make(models.AnswerSet, len(visible))
	for id, value := range answers {
		if _, ok := visible[id]; ok {
			filtered[id] = value
		}
	}
	return filtered
}

func validateField(f models.Field, value interface{}) string {
	if isEmpty(value) {
		if !f.Required {
			return ""
		}
		switch f.Type {
		case models.FieldTypeCheckbox:
			return "Please select at least one option"
		default:
			return "This field is required"
		}
	}

	switch f.Type {
	case models.FieldTypeEmail:
		raw, ok := value.(string)
		if !ok || !emailRe.MatchString(raw) {
			return "Invalid email format"
		}
	case models.FieldTypeNumber:
		raw, ok := value.(string)
		if !ok {
			raw = fmt.Sprintf("%v", value)
		}
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return "Must be a number"
		}
		// Digit count applies to the raw input string, not the parsed value.
		if f.Validation != nil && f.Validation.ExactDigits != nil {
			if len(raw) != *f.Validation.ExactDigits {
				return fmt.Sprintf("Must be exactly %d digits", *f.Validation.ExactDigits)
			}
		}
	case models.FieldTypeCheckbox:
		if _, ok := toStringSlice(value); !ok {
			return "Please select at least one option"
		}
	}

	if f.Type.IsTextLike() && f.Validation != nil {
		raw, _ := value.(string)
		if f.Validation.MinChars != nil && len(raw) < *f.Validation.MinChars {
			return fmt.Sprintf("Must be at least %d characters", *f.Validation.MinChars)
		}
		if f.Validation.MaxChars != nil && len(raw) > *f.Validation.MaxChars {
			return fmt.Sprintf("Must be at most %d characters", *f.Validation.MaxChars)
		}
	}

	return ""
}

func conditionHolds(logic *models.Logic, triggerValue interface{}) bool {
	matched := answerMatches(triggerValue, logic.Value)
	if logic.Condition == models.ConditionNotEquals {
		return !matched
	}
	return matched
}

// answerMatches compares a trigger answer against a rule value. Choice-group
// answers arrive as string slices; a selected option counts as a match.
func answerMatches(value interface{}, target string) bool {
	switch v := value.(type) {
	case string:
		return v == target
	case nil:
		return target == ""
	default:
		if items, ok := toStringSlice(value); ok {
			for _, item := range items {
				if item == target {
					return true
				}
			}
			return false
		}
		return fmt.Sprintf("%v", v) == target
	}
}

func isEmpty(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		if items, ok := toStringSlice(value); ok {
			return len(items) == 0
		}
		return false
	}
}

// toStringSlice accepts both []string and the []interface{} shape produced
// by JSON decoding.
func toStringSlice(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// CheckLogic rejects dangling or cyclic visibility rules at form-save time.
// The runtime evaluator tolerates bad rules by hiding the affected fields,
// but a form carrying them must never be persisted.
func CheckLogic(fields []models.Field) error {
	byID := make(map[string]models.Field, len(fields))
	for _, f := range fields {
		byID[f.ID] = f
	}

	for _, f := range fields {
		if f.Logic == nil {
			continue
		}
		trigger := f.Logic.TriggerFieldID
		if trigger == f.ID {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q cannot trigger itself", f.ID))
		}
		if _, ok := byID[trigger]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q references unknown trigger %q", f.ID, trigger))
		}
	}

	// Walk each trigger chain; a chain longer than the field count loops.
	for _, f := range fields {
		seen := map[string]struct{}{}
		current := f
		for current.Logic != nil {
			if _, ok := seen[current.ID]; ok {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("field %q is part of a visibility cycle", f.ID))
			}
			seen[current.ID] = struct{}{}
			current = byID[current.Logic.TriggerFieldID]
		}
	}

	return nil
}
