// Package validate holds the pure form-field checks run before any write
// reaches the store. Checks are format-level only: a date like 2024-13-40
// passes, and no ordering between start and end dates is enforced.
package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"sitetrack/internal/model"
)

// Reason identifies why a field failed validation. The zero value means valid.
type Reason string

const (
	OK         Reason = ""
	Required   Reason = "required"
	BadFormat  Reason = "bad_format"
	NotNumeric Reason = "not_numeric"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Name requires a non-empty value after trimming whitespace.
func Name(s string) Reason {
	if strings.TrimSpace(s) == "" {
		return Required
	}
	return OK
}

// Date accepts the empty string (unset) or a YYYY-MM-DD shaped value.
// Calendar validity is not checked.
func Date(s string) Reason {
	if s == "" {
		return OK
	}
	if !datePattern.MatchString(s) {
		return BadFormat
	}
	return OK
}

// Budget accepts the empty string (unset) or any finite decimal.
func Budget(s string) Reason {
	s = strings.TrimSpace(s)
	if s == "" {
		return OK
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return NotNumeric
	}
	return OK
}

// FieldError names the first field that failed and why. Validation
// short-circuits: one failing field blocks the whole submission.
type FieldError struct {
	Field  string
	Reason Reason
}

func (e *FieldError) Error() string {
	return e.Field + ": " + string(e.Reason)
}

// ProjectForm carries the raw field values of the project create/edit form.
type ProjectForm struct {
	Name        string
	Description string
	Address     string
	StartDate   string
	EndDate     string
	Budget      string
}

// Project checks a project form, returning nil when every field passes.
func Project(f ProjectForm) *FieldError {
	if r := Name(f.Name); r != OK {
		return &FieldError{Field: "name", Reason: r}
	}
	if r := Date(f.StartDate); r != OK {
		return &FieldError{Field: "start_date", Reason: r}
	}
	if r := Date(f.EndDate); r != OK {
		return &FieldError{Field: "end_date", Reason: r}
	}
	if r := Budget(f.Budget); r != OK {
		return &FieldError{Field: "budget", Reason: r}
	}
	return nil
}

// TaskForm carries the raw field values of the task create/edit form.
// Status comes from a picker; empty means "leave at the default".
type TaskForm struct {
	Title       string
	Description string
	CategoryID  string
	Status      string
	DueDate     string
}

// Task checks a task form, returning nil when every field passes.
func Task(f TaskForm) *FieldError {
	if r := Name(f.Title); r != OK {
		return &FieldError{Field: "title", Reason: r}
	}
	if r := Name(f.CategoryID); r != OK {
		return &FieldError{Field: "category_id", Reason: r}
	}
	if f.Status != "" && !model.Status(f.Status).Valid() {
		return &FieldError{Field: "status", Reason: BadFormat}
	}
	if r := Date(f.DueDate); r != OK {
		return &FieldError{Field: "due_date", Reason: r}
	}
	return nil
}
