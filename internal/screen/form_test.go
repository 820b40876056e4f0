package screen_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/model"
	"sitetrack/internal/screen"
	"sitetrack/internal/session"
	"sitetrack/internal/store"
	"sitetrack/internal/validate"
)

func strPtr(s string) *string { return &s }

func readyProjectForm(t *testing.T, st *fakeStore, ids screen.IdentitySource) (*screen.ProjectForm, *collector) {
	t.Helper()
	col := newCollector()
	form := screen.NewProjectForm(st, ids, col.sink)
	form.Mount("")
	col.expect(t, screen.EventReady)
	return form, col
}

func TestProjectFormInvalidFieldMakesNoStoreCall(t *testing.T) {
	st := newFakeStore()
	form, col := readyProjectForm(t, st, fakeIdentity{})

	form.Submit(validate.ProjectForm{Name: "   "})

	ev := col.expect(t, screen.EventFieldInvalid)
	require.NotNil(t, ev.Field)
	assert.Equal(t, "name", ev.Field.Field)
	assert.Equal(t, validate.Required, ev.Field.Reason)
	assert.Equal(t, 0, st.callCount("CreateProject"))
	assert.Equal(t, 0, st.callCount("UpdateProject"))
}

func TestProjectFormCreateStampsOwner(t *testing.T) {
	st := newFakeStore()
	var got store.ProjectInsert
	st.createProject = func(ctx context.Context, ins store.ProjectInsert) (model.Project, error) {
		got = ins
		return sampleProject("p1", ins.Name), nil
	}

	ids := fakeIdentity{ident: session.Identity{UserID: "owner-7"}}
	form, col := readyProjectForm(t, st, ids)

	form.Submit(validate.ProjectForm{
		Name:      "  Tour Horizon  ",
		StartDate: "2026-03-01",
		Budget:    "125000.50",
	})

	col.expect(t, screen.EventSubmitting)
	col.expect(t, screen.EventSaved)
	col.expect(t, screen.EventNavigateBack)

	assert.Equal(t, "owner-7", got.UserID)
	assert.Equal(t, "Tour Horizon", got.Name)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2026-03-01", *got.StartDate)
	require.NotNil(t, got.Budget)
	assert.Equal(t, 125000.50, *got.Budget)
	assert.Nil(t, got.Description)
}

func TestProjectFormFailedSubmitKeepsValues(t *testing.T) {
	st := newFakeStore()
	st.createProject = func(ctx context.Context, ins store.ProjectInsert) (model.Project, error) {
		return model.Project{}, &store.Error{Kind: store.KindTransport, Message: "gateway down"}
	}

	form, col := readyProjectForm(t, st, fakeIdentity{ident: session.Identity{UserID: "u1"}})

	entered := validate.ProjectForm{Name: "Pont Neuf", Address: "12 quai des Orfèvres"}
	form.Submit(entered)

	col.expect(t, screen.EventSubmitting)
	ev := col.expect(t, screen.EventSubmitFailed)
	require.Error(t, ev.Err)
	assert.Equal(t, entered, form.Form())
}

func TestProjectFormEditPrefills(t *testing.T) {
	st := newFakeStore()
	st.fetchProject = func(ctx context.Context, id string) (model.Project, error) {
		p := sampleProject(id, "Pont Neuf")
		p.Address = strPtr("12 quai des Orfèvres")
		b := 90000.0
		p.Budget = &b
		return p, nil
	}

	col := newCollector()
	form := screen.NewProjectForm(st, fakeIdentity{}, col.sink)
	form.Mount("p1")

	col.expect(t, screen.EventLoading)
	col.expect(t, screen.EventReady)

	f := form.Form()
	assert.Equal(t, "Pont Neuf", f.Name)
	assert.Equal(t, "12 quai des Orfèvres", f.Address)
	assert.Equal(t, "90000", f.Budget)
}

func TestTaskBoardGroupsByCategory(t *testing.T) {
	st := newFakeStore()
	st.fetchTasks = func(ctx context.Context, projectID string) ([]model.TaskWithCategory, error) {
		return []model.TaskWithCategory{
			{Task: model.Task{ID: "t1", Title: "Pull cable", CategoryID: "c-el"}, CategoryName: "Electrical"},
			{Task: model.Task{ID: "t2", Title: "Frame walls", CategoryID: "c-ca"}, CategoryName: "Carpentry"},
			{Task: model.Task{ID: "t3", Title: "Fit outlets", CategoryID: "c-el"}, CategoryName: "Electrical"},
		}, nil
	}

	col := newCollector()
	board := screen.NewTaskBoard(st, col.sink)
	board.Mount("p1")

	col.expect(t, screen.EventLoading)
	col.expect(t, screen.EventReady)

	view := board.View()
	require.Equal(t, 3, view.TaskCount())
	buckets := view.Buckets()
	require.Len(t, buckets, 2)
	assert.Equal(t, "Electrical", buckets[0].CategoryName)
	assert.Len(t, buckets[0].Tasks, 2)
	assert.Equal(t, "Carpentry", buckets[1].CategoryName)
}

func TestTaskFormCreateUsesProjectAndDefaults(t *testing.T) {
	st := newFakeStore()
	st.listCategories = func(ctx context.Context) ([]model.WorkCategory, error) {
		return []model.WorkCategory{{ID: "c1", Name: "Electrical"}}, nil
	}
	var got store.TaskInsert
	st.createTask = func(ctx context.Context, ins store.TaskInsert) (model.Task, error) {
		got = ins
		return model.Task{ID: "t1", Title: ins.Title}, nil
	}

	col := newCollector()
	form := screen.NewTaskForm(st, col.sink)
	form.Mount("p1", "")
	col.expect(t, screen.EventLoading)
	col.expect(t, screen.EventReady)
	require.Len(t, form.Categories(), 1)

	form.Submit(validate.TaskForm{Title: "Pull cable", CategoryID: "c1"})
	col.expect(t, screen.EventSubmitting)
	col.expect(t, screen.EventSaved)
	col.expect(t, screen.EventNavigateBack)

	assert.Equal(t, "p1", got.ProjectID)
	assert.Equal(t, "c1", got.CategoryID)
	assert.Equal(t, model.StatusNotStarted, got.Status)
}

func TestTaskFormDeleteIsNoOpInCreateMode(t *testing.T) {
	st := newFakeStore()
	st.listCategories = func(ctx context.Context) ([]model.WorkCategory, error) {
		return nil, nil
	}

	col := newCollector()
	form := screen.NewTaskForm(st, col.sink)
	form.Mount("p1", "")
	col.expect(t, screen.EventLoading)
	col.expect(t, screen.EventReady)

	form.Delete()
	col.expectSilence(t)
	assert.Equal(t, 0, st.callCount("DeleteTask"))
}

func TestTaskFormDeleteInEditMode(t *testing.T) {
	st := newFakeStore()
	st.listCategories = func(ctx context.Context) ([]model.WorkCategory, error) {
		return []model.WorkCategory{{ID: "c1", Name: "Electrical"}}, nil
	}
	st.fetchTask = func(ctx context.Context, id string) (model.TaskWithCategory, error) {
		return model.TaskWithCategory{
			Task:         model.Task{ID: id, Title: "Pull cable", CategoryID: "c1", Status: model.StatusInProgress},
			CategoryName: "Electrical",
		}, nil
	}
	st.deleteTask = func(ctx context.Context, id string) error { return nil }

	col := newCollector()
	form := screen.NewTaskForm(st, col.sink)
	form.Mount("p1", "t1")
	col.expect(t, screen.EventLoading)
	col.expect(t, screen.EventReady)
	assert.Equal(t, "Pull cable", form.Form().Title)

	form.Delete()
	col.expect(t, screen.EventSubmitting)
	col.expect(t, screen.EventNavigateBack)
	assert.Equal(t, 1, st.callCount("DeleteTask"))
}
