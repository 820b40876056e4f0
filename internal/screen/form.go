package screen

import (
	"strconv"
	"strings"
	"time"

	"sitetrack/internal/model"
	"sitetrack/internal/store"
	"sitetrack/internal/validate"
)

// Form values are normalized before they go on the wire: text is trimmed
// and empties become nulls, so the store never holds "" where it means
// "unset". Runs after validation, so the numeric parse cannot fail.

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func nullableBudget(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &f
}

func projectInsert(f validate.ProjectForm, userID string) store.ProjectInsert {
	return store.ProjectInsert{
		Name:        strings.TrimSpace(f.Name),
		Description: nullable(f.Description),
		Address:     nullable(f.Address),
		StartDate:   nullable(f.StartDate),
		EndDate:     nullable(f.EndDate),
		Budget:      nullableBudget(f.Budget),
		UserID:      userID,
	}
}

func projectUpdate(f validate.ProjectForm, now time.Time) store.ProjectUpdate {
	return store.ProjectUpdate{
		Name:        strings.TrimSpace(f.Name),
		Description: nullable(f.Description),
		Address:     nullable(f.Address),
		StartDate:   nullable(f.StartDate),
		EndDate:     nullable(f.EndDate),
		Budget:      nullableBudget(f.Budget),
		UpdatedAt:   now.UTC().Format(time.RFC3339),
	}
}

func taskStatus(f validate.TaskForm) model.Status {
	if f.Status == "" {
		return model.StatusNotStarted
	}
	return model.Status(f.Status)
}

func taskInsert(f validate.TaskForm, projectID string) store.TaskInsert {
	return store.TaskInsert{
		Title:       strings.TrimSpace(f.Title),
		Description: nullable(f.Description),
		Status:      taskStatus(f),
		ProjectID:   projectID,
		CategoryID:  f.CategoryID,
		DueDate:     nullable(f.DueDate),
	}
}

func taskUpdate(f validate.TaskForm, now time.Time) store.TaskUpdate {
	return store.TaskUpdate{
		Title:       strings.TrimSpace(f.Title),
		Description: nullable(f.Description),
		Status:      taskStatus(f),
		CategoryID:  f.CategoryID,
		DueDate:     nullable(f.DueDate),
		UpdatedAt:   now.UTC().Format(time.RFC3339),
	}
}

// ProjectFormOf pre-fills an edit form from a stored row.
func ProjectFormOf(p model.Project) validate.ProjectForm {
	f := validate.ProjectForm{Name: p.Name}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Address != nil {
		f.Address = *p.Address
	}
	if p.StartDate != nil {
		f.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		f.EndDate = *p.EndDate
	}
	if p.Budget != nil {
		f.Budget = strconv.FormatFloat(*p.Budget, 'f', -1, 64)
	}
	return f
}

// TaskFormOf pre-fills an edit form from a stored row.
func TaskFormOf(t model.Task) validate.TaskForm {
	f := validate.TaskForm{
		Title:      t.Title,
		CategoryID: t.CategoryID,
		Status:     string(t.Status),
	}
	if t.Description != nil {
		f.Description = *t.Description
	}
	if t.DueDate != nil {
		f.DueDate = *t.DueDate
	}
	return f
}
