package devserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ctxAccountID is the gin context key carrying the authenticated account.
const ctxAccountID = "accountID"

// Server exposes the store boundary over HTTP: a GoTrue-style auth
// surface and a PostgREST-style REST surface for the three resources.
type Server struct {
	apiKey     string
	accounts   *AccountRepository
	projects   *ProjectRepository
	tasks      *TaskRepository
	categories *CategoryRepository
	router     *gin.Engine
}

// NewServer wires the routes. apiKey is the shared key every request must
// present, mirroring the hosted backend's anon key.
func NewServer(db *gorm.DB, apiKey string) *Server {
	s := &Server{
		apiKey:     apiKey,
		accounts:   NewAccountRepository(db),
		projects:   NewProjectRepository(db),
		tasks:      NewTaskRepository(db),
		categories: NewCategoryRepository(db),
		router:     gin.Default(),
	}

	auth := s.router.Group("/auth/v1", s.requireAPIKey)
	{
		auth.POST("/signup", s.handleSignup)
		auth.POST("/token", s.handleToken)
		auth.POST("/logout", s.handleLogout)
	}

	rest := s.router.Group("/rest/v1", s.requireAPIKey, s.requireSession)
	{
		rest.GET("/projects", s.handleProjectsGet)
		rest.POST("/projects", s.handleProjectsPost)
		rest.PATCH("/projects", s.handleProjectsPatch)
		rest.DELETE("/projects", s.handleProjectsDelete)

		rest.GET("/tasks", s.handleTasksGet)
		rest.POST("/tasks", s.handleTasksPost)
		rest.PATCH("/tasks", s.handleTasksPatch)
		rest.DELETE("/tasks", s.handleTasksDelete)

		rest.GET("/work_categories", s.handleCategoriesGet)
		rest.DELETE("/work_categories", s.handleCategoriesDelete)
	}

	return s
}

// Run starts serving on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requireAPIKey(c *gin.Context) {
	if c.GetHeader("apikey") != s.apiKey {
		writePGError(c, http.StatusUnauthorized, "", "invalid api key")
		c.Abort()
		return
	}
	c.Next()
}

func (s *Server) requireSession(c *gin.Context) {
	access := bearerToken(c)
	if access == "" {
		writePGError(c, http.StatusUnauthorized, "", "missing bearer token")
		c.Abort()
		return
	}
	token, err := s.accounts.FindByAccess(c.Request.Context(), access)
	if err != nil {
		writePGError(c, http.StatusUnauthorized, "", "invalid or expired token")
		c.Abort()
		return
	}
	c.Set(ctxAccountID, token.AccountID)
	c.Next()
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// wantsObject reports whether the request asked for a single object
// instead of a row set.
func wantsObject(c *gin.Context) bool {
	return strings.Contains(c.GetHeader("Accept"), "vnd.pgrst.object")
}

// eqParam extracts an `id=eq.<value>` style filter.
func eqParam(c *gin.Context, name string) (string, bool) {
	raw := c.Query(name)
	if strings.HasPrefix(raw, "eq.") {
		return strings.TrimPrefix(raw, "eq."), true
	}
	return "", false
}

// writePGError emits the PostgREST error body the client classifies on.
func writePGError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{
		"code":    code,
		"message": message,
		"details": nil,
		"hint":    nil,
	})
}

// writeDBError maps database failures onto wire errors: missing rows to
// the single-object-not-found code, constraint trips to their Postgres
// codes, everything else to a 500.
func writeDBError(c *gin.Context, err error) {
	msg := err.Error()
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		writePGError(c, http.StatusNotAcceptable, "PGRST116", "JSON object requested, multiple (or no) rows returned")
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		writePGError(c, http.StatusConflict, "23503", "foreign key violation")
	case strings.Contains(msg, "UNIQUE constraint failed"):
		writePGError(c, http.StatusConflict, "23505", "duplicate key value violates unique constraint")
	default:
		writePGError(c, http.StatusInternalServerError, "", msg)
	}
}
