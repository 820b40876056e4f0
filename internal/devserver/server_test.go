package devserver_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/config"
	"sitetrack/internal/devserver"
	"sitetrack/internal/model"
	"sitetrack/internal/session"
	"sitetrack/internal/store"
)

const testAPIKey = "test-anon-key"

// newEnv spins up a fresh backend on a throwaway database and returns a
// guard and client pointed at it.
func newEnv(t *testing.T) (*session.Guard, *store.Client, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := devserver.NewDB(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)

	srv := httptest.NewServer(devserver.NewServer(db, testAPIKey).Handler())
	t.Cleanup(srv.Close)

	cfg := config.Config{
		StoreURL:       srv.URL,
		StoreKey:       testAPIKey,
		RequestTimeout: 5 * time.Second,
	}
	guard := session.New(cfg)
	return guard, store.New(cfg, guard), srv.URL
}

func signedUp(t *testing.T, g *session.Guard, email string) session.Identity {
	t.Helper()
	require.NoError(t, g.SignUp(context.Background(), email, "hardhat123"))
	ident, err := g.Identity()
	require.NoError(t, err)
	return ident
}

func TestProjectLifecycle(t *testing.T) {
	guard, client, _ := newEnv(t)
	ctx := context.Background()
	ident := signedUp(t, guard, "chef@chantier.fr")

	desc := "Six-story residential build"
	created, err := client.CreateProject(ctx, store.ProjectInsert{
		Name:        "Tour Horizon",
		Description: &desc,
		UserID:      ident.UserID,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, ident.UserID, created.UserID)

	projects, err := client.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "Tour Horizon", projects[0].Name)

	budget := 250000.0
	updated, err := client.UpdateProject(ctx, created.ID, store.ProjectUpdate{
		Name:      "Tour Horizon II",
		Budget:    &budget,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	})
	require.NoError(t, err)
	assert.Equal(t, "Tour Horizon II", updated.Name)
	require.NotNil(t, updated.Budget)
	assert.Equal(t, 250000.0, *updated.Budget)
	// Description was not resent; full-row semantics clear it.
	assert.Nil(t, updated.Description)

	require.NoError(t, client.DeleteProject(ctx, created.ID))

	_, err = client.FetchProject(ctx, created.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestTasksJoinCategoriesNewestFirst(t *testing.T) {
	guard, client, _ := newEnv(t)
	ctx := context.Background()
	ident := signedUp(t, guard, "chef@chantier.fr")

	project, err := client.CreateProject(ctx, store.ProjectInsert{
		Name: "Pont Neuf", UserID: ident.UserID,
	})
	require.NoError(t, err)

	categories, err := client.ListCategories(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, categories)
	// Seeded reference data comes back alphabetically.
	assert.Equal(t, "Carpentry", categories[0].Name)

	first, err := client.CreateTask(ctx, store.TaskInsert{
		Title: "Frame walls", ProjectID: project.ID, CategoryID: categories[0].ID,
	})
	require.NoError(t, err)
	assert.Equal(t, model.StatusNotStarted, first.Status)

	// Distinct creation timestamps keep the ordering assertion meaningful.
	time.Sleep(20 * time.Millisecond)

	second, err := client.CreateTask(ctx, store.TaskInsert{
		Title: "Pull cable", ProjectID: project.ID, CategoryID: categories[1].ID,
		Status: model.StatusInProgress,
	})
	require.NoError(t, err)

	tasks, err := client.FetchTasks(ctx, project.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, categories[1].Name, tasks[0].CategoryName)
	assert.Equal(t, first.ID, tasks[1].ID)
	assert.Equal(t, categories[0].Name, tasks[1].CategoryName)

	got, err := client.FetchTask(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Frame walls", got.Title)
	assert.Equal(t, categories[0].Name, got.CategoryName)
}

func TestDanglingCategoryIsConstraintViolation(t *testing.T) {
	guard, client, _ := newEnv(t)
	ctx := context.Background()
	ident := signedUp(t, guard, "chef@chantier.fr")

	project, err := client.CreateProject(ctx, store.ProjectInsert{
		Name: "Pont Neuf", UserID: ident.UserID,
	})
	require.NoError(t, err)

	_, err = client.CreateTask(ctx, store.TaskInsert{
		Title: "Pull cable", ProjectID: project.ID, CategoryID: "no-such-category",
	})
	require.Error(t, err)
	assert.True(t, store.IsConstraint(err))
}

func TestReferencedCategoryCannotBeDeleted(t *testing.T) {
	guard, client, base := newEnv(t)
	ctx := context.Background()
	ident := signedUp(t, guard, "chef@chantier.fr")

	project, err := client.CreateProject(ctx, store.ProjectInsert{
		Name: "Pont Neuf", UserID: ident.UserID,
	})
	require.NoError(t, err)

	categories, err := client.ListCategories(ctx)
	require.NoError(t, err)

	_, err = client.CreateTask(ctx, store.TaskInsert{
		Title: "Frame walls", ProjectID: project.ID, CategoryID: categories[0].ID,
	})
	require.NoError(t, err)

	access, err := guard.AccessToken()
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodDelete,
		base+"/rest/v1/work_categories?id=eq."+categories[0].ID, nil)
	require.NoError(t, err)
	req.Header.Set("apikey", testAPIKey)
	req.Header.Set("Authorization", "Bearer "+access)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestDeletingProjectRemovesItsTasks(t *testing.T) {
	guard, client, _ := newEnv(t)
	ctx := context.Background()
	ident := signedUp(t, guard, "chef@chantier.fr")

	project, err := client.CreateProject(ctx, store.ProjectInsert{
		Name: "Pont Neuf", UserID: ident.UserID,
	})
	require.NoError(t, err)

	categories, err := client.ListCategories(ctx)
	require.NoError(t, err)
	_, err = client.CreateTask(ctx, store.TaskInsert{
		Title: "Frame walls", ProjectID: project.ID, CategoryID: categories[0].ID,
	})
	require.NoError(t, err)

	require.NoError(t, client.DeleteProject(ctx, project.ID))

	tasks, err := client.FetchTasks(ctx, project.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestOwnersAreIsolated(t *testing.T) {
	guardA, clientA, base := newEnv(t)
	ctx := context.Background()
	identA := signedUp(t, guardA, "alice@chantier.fr")

	project, err := clientA.CreateProject(ctx, store.ProjectInsert{
		Name: "Tour Horizon", UserID: identA.UserID,
	})
	require.NoError(t, err)

	cfg := config.Config{StoreURL: base, StoreKey: testAPIKey, RequestTimeout: 5 * time.Second}
	guardB := session.New(cfg)
	clientB := store.New(cfg, guardB)
	signedUp(t, guardB, "bob@chantier.fr")

	projects, err := clientB.ListProjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)

	_, err = clientB.FetchProject(ctx, project.ID)
	assert.True(t, store.IsNotFound(err))

	err = clientB.DeleteProject(ctx, project.ID)
	assert.True(t, store.IsNotFound(err))
}

func TestSignInAfterSignUp(t *testing.T) {
	guard, _, base := newEnv(t)
	ctx := context.Background()
	signedUp(t, guard, "chef@chantier.fr")

	cfg := config.Config{StoreURL: base, StoreKey: testAPIKey, RequestTimeout: 5 * time.Second}
	fresh := session.New(cfg)
	require.NoError(t, fresh.SignIn(ctx, "chef@chantier.fr", "hardhat123"))
	assert.Equal(t, session.SignedIn, fresh.State())

	wrong := session.New(cfg)
	err := wrong.SignIn(ctx, "chef@chantier.fr", "wrong-password")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)
	assert.Equal(t, session.SignedOut, wrong.State())
}
