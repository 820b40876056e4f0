package devserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sitetrack/internal/model"
)

// categoryRef is the nested shape of a joined category.
type categoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// taskPayload is the wire shape of a task read: the row plus its joined
// category, null when the category is gone.
type taskPayload struct {
	model.Task
	WorkCategories *categoryRef `json:"work_categories"`
}

func payloadOf(j JoinedTask) taskPayload {
	p := taskPayload{Task: j.Task}
	if j.CatID != nil {
		name := ""
		if j.CatName != nil {
			name = *j.CatName
		}
		p.WorkCategories = &categoryRef{ID: *j.CatID, Name: name}
	}
	return p
}

type projectBody struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	StartDate   *string  `json:"start_date"`
	EndDate     *string  `json:"end_date"`
	Budget      *float64 `json:"budget"`
	UserID      *string  `json:"user_id"`
	UpdatedAt   *string  `json:"updated_at"`
}

func (s *Server) handleProjectsGet(c *gin.Context) {
	owner := c.GetString(ctxAccountID)
	ctx := c.Request.Context()

	if id, ok := eqParam(c, "id"); ok && wantsObject(c) {
		project, err := s.projects.FindByID(ctx, owner, id)
		if err != nil {
			writeDBError(c, err)
			return
		}
		c.JSON(http.StatusOK, project)
		return
	}

	projects, err := s.projects.ListByOwner(ctx, owner)
	if err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusOK, projects)
}

func (s *Server) handleProjectsPost(c *gin.Context) {
	owner := c.GetString(ctxAccountID)

	var body projectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writePGError(c, http.StatusBadRequest, "", "malformed body")
		return
	}
	if body.Name == nil || *body.Name == "" {
		writePGError(c, http.StatusBadRequest, "23502", "null value in column \"name\"")
		return
	}
	// Row security: an insert may only claim the authenticated owner.
	if body.UserID != nil && *body.UserID != owner {
		writePGError(c, http.StatusForbidden, "42501", "new row violates row-level security policy")
		return
	}

	project := model.Project{
		Name:        *body.Name,
		Description: body.Description,
		Address:     body.Address,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
		Budget:      body.Budget,
		UserID:      owner,
	}
	if err := s.projects.Create(c.Request.Context(), &project); err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) handleProjectsPatch(c *gin.Context) {
	owner := c.GetString(ctxAccountID)
	id, ok := eqParam(c, "id")
	if !ok {
		writePGError(c, http.StatusBadRequest, "", "missing id filter")
		return
	}

	var body projectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writePGError(c, http.StatusBadRequest, "", "malformed body")
		return
	}

	updates := map[string]interface{}{
		"description": body.Description,
		"address":     body.Address,
		"start_date":  body.StartDate,
		"end_date":    body.EndDate,
		"budget":      body.Budget,
		"updated_at":  parsedOrNow(body.UpdatedAt),
	}
	if body.Name != nil {
		if *body.Name == "" {
			writePGError(c, http.StatusBadRequest, "23502", "null value in column \"name\"")
			return
		}
		updates["name"] = *body.Name
	}

	project, err := s.projects.Update(c.Request.Context(), owner, id, updates)
	if err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) handleProjectsDelete(c *gin.Context) {
	owner := c.GetString(ctxAccountID)
	id, ok := eqParam(c, "id")
	if !ok {
		writePGError(c, http.StatusBadRequest, "", "missing id filter")
		return
	}
	project, err := s.projects.Delete(c.Request.Context(), owner, id)
	if err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

type taskBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	ProjectID   *string `json:"project_id"`
	CategoryID  *string `json:"category_id"`
	DueDate     *string `json:"due_date"`
	UpdatedAt   *string `json:"updated_at"`
}

func (s *Server) handleTasksGet(c *gin.Context) {
	owner := c.GetString(ctxAccountID)
	ctx := c.Request.Context()

	if id, ok := eqParam(c, "id"); ok && wantsObject(c) {
		row, err := s.tasks.FindByID(ctx, owner, id)
		if err != nil {
			writeDBError(c, err)
			return
		}
		c.JSON(http.StatusOK, payloadOf(*row))
		return
	}

	projectID, ok := eqParam(c, "project_id")
	if !ok {
		writePGError(c, http.StatusBadRequest, "", "missing project_id filter")
		return
	}
	rows, err := s.tasks.ListByProject(ctx, owner, projectID)
	if err != nil {
		writeDBError(c, err)
		return
	}
	out := make([]taskPayload, len(rows))
	for i, r := range rows {
		out[i] = payloadOf(r)
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleTasksPost(c *gin.Context) {
	owner := c.GetString(ctxAccountID)

	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writePGError(c, http.StatusBadRequest, "", "malformed body")
		return
	}
	if body.Title == nil || *body.Title == "" {
		writePGError(c, http.StatusBadRequest, "23502", "null value in column \"title\"")
		return
	}
	if body.ProjectID == nil || body.CategoryID == nil {
		writePGError(c, http.StatusBadRequest, "23502", "null value in column \"project_id\"")
		return
	}

	task := model.Task{
		Title:       *body.Title,
		Description: body.Description,
		ProjectID:   *body.ProjectID,
		CategoryID:  *body.CategoryID,
		DueDate:     body.DueDate,
	}
	if body.Status != nil {
		if !model.Status(*body.Status).Valid() {
			writePGError(c, http.StatusBadRequest, "22P02", "invalid input value for enum task_status")
			return
		}
		task.Status = model.Status(*body.Status)
	}

	if err := s.tasks.Create(c.Request.Context(), owner, &task); err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

func (s *Server) handleTasksPatch(c *gin.Context) {
	owner := c.GetString(ctxAccountID)
	id, ok := eqParam(c, "id")
	if !ok {
		writePGError(c, http.StatusBadRequest, "", "missing id filter")
		return
	}

	var body taskBody
	if err := c.ShouldBindJSON(&body); err != nil {
		writePGError(c, http.StatusBadRequest, "", "malformed body")
		return
	}

	updates := map[string]interface{}{
		"description": body.Description,
		"due_date":    body.DueDate,
		"updated_at":  parsedOrNow(body.UpdatedAt),
	}
	if body.Title != nil {
		if *body.Title == "" {
			writePGError(c, http.StatusBadRequest, "23502", "null value in column \"title\"")
			return
		}
		updates["title"] = *body.Title
	}
	if body.Status != nil {
		if !model.Status(*body.Status).Valid() {
			writePGError(c, http.StatusBadRequest, "22P02", "invalid input value for enum task_status")
			return
		}
		updates["status"] = *body.Status
	}
	if body.CategoryID != nil {
		updates["category_id"] = *body.CategoryID
	}

	row, err := s.tasks.Update(c.Request.Context(), owner, id, updates)
	if err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusOK, payloadOf(*row))
}

func (s *Server) handleTasksDelete(c *gin.Context) {
	owner := c.GetString(ctxAccountID)
	id, ok := eqParam(c, "id")
	if !ok {
		writePGError(c, http.StatusBadRequest, "", "missing id filter")
		return
	}
	row, err := s.tasks.Delete(c.Request.Context(), owner, id)
	if err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusOK, payloadOf(*row))
}

func (s *Server) handleCategoriesGet(c *gin.Context) {
	categories, err := s.categories.List(c.Request.Context())
	if err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// handleCategoriesDelete exists for administration and tests; the client
// never mutates categories. Deleting a referenced category trips the
// restrict foreign key and reports a constraint violation.
func (s *Server) handleCategoriesDelete(c *gin.Context) {
	id, ok := eqParam(c, "id")
	if !ok {
		writePGError(c, http.StatusBadRequest, "", "missing id filter")
		return
	}
	category, err := s.categories.Delete(c.Request.Context(), id)
	if err != nil {
		writeDBError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

func parsedOrNow(raw *string) time.Time {
	if raw != nil {
		if t, err := time.Parse(time.RFC3339, *raw); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
