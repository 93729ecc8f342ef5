package domain

import (
	"fmt"
	"strings"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

// ValidateDraft checks that the required fields are present. It does not
// check that type is one of EventTypes; the type list is a UI concern.
func ValidateDraft(d *Draft) []FieldError {
	var errs []FieldError

	required := []struct {
		field string
		value string
	}{
		{"title", d.Title},
		{"description", d.Description},
		{"type", d.Type},
		{"date", d.Date},
		{"city", d.City},
		{"address", d.Address},
		{"host", d.Host},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, FieldError{r.field, "required"})
		}
	}

	if strings.TrimSpace(d.Date) != "" {
		if _, err := ParseDate(d.Date); err != nil {
			errs = append(errs, FieldError{"date", "must be a date (YYYY-MM-DD)"})
		}
	}
	if d.Capacity < 0 {
		errs = append(errs, FieldError{"capacity", "must not be negative"})
	}

	return errs
}

// CheckLimits applies the request size caps of the HTTP API. The store does
// not call it.
func CheckLimits(d *Draft) []FieldError {
	var errs []FieldError
	if len(d.Title) > MaxTitleLen {
		errs = append(errs, FieldError{"title", fmt.Sprintf("max length %d", MaxTitleLen)})
	}
	if len(d.Description) > MaxDescriptionLen {
		errs = append(errs, FieldError{"description", fmt.Sprintf("max length %d", MaxDescriptionLen)})
	}
	return errs
}

// ValidateCollection enforces the collection invariants on bulk-loaded data:
// unique ids, non-empty titles, non-negative attendance.
func ValidateCollection(events []Event) error {
	seen := make(map[int]struct{}, len(events))
	for i := range events {
		ev := &events[i]
		if _, dup := seen[ev.ID]; dup {
			return fmt.Errorf("events[%d]: duplicate id %d", i, ev.ID)
		}
		seen[ev.ID] = struct{}{}
		if strings.TrimSpace(ev.Title) == "" {
			return fmt.Errorf("events[%d]: title required", i)
		}
		if ev.Attendees < 0 {
			return fmt.Errorf("events[%d]: attendees must not be negative", i)
		}
	}
	return nil
}
