package handlers

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/api/middleware"
	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/webhook"
)

type JobRequest struct {
	Title       string `json:"title"`
	Quantity    int    `json:"quantity"`
	Hot         bool   `json:"hot"`
	PressID     string `json:"pressId"`
	FrontColor1 string `json:"frontColor1"`
	FrontColor2 string `json:"frontColor2"`
	BackColor1  string `json:"backColor1"`
	BackColor2  string `json:"backColor2"`
	PlateBin    string `json:"plateBin"`
	Notes       string `json:"notes"`
	ImageURL    string `json:"imageUrl"`
}

type ListJobsQuery struct {
	Filter string `form:"filter"`
	Sort   string `form:"sort"`
}

type ListJobsResponse struct {
	Jobs  []core.Job `json:"jobs"`
	Count int        `json:"count"`
	Stats core.Stats `json:"stats"`
}

type BoardResponse struct {
	Groups   []core.PressGroup `json:"groups"`
	Settings db.AppSettings    `json:"settings"`
}

type JobHandler struct {
	notify Notifiers
}

func NewJobHandler(notify Notifiers) *JobHandler {
	return &JobHandler{notify: notify.withDefaults()}
}

func (h *JobHandler) ListJobs(c *gin.Context) {
	var q ListJobsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := db.Jobs.ListJobs(c.Request.Context())
	if err != nil {
		respondError(c, err, "jobs")
		return
	}

	view := core.FilterAndSort(jobs, core.ParseFilterMode(q.Filter), core.ParseSortMode(q.Sort))
	c.JSON(http.StatusOK, ListJobsResponse{
		Jobs:  view,
		Count: len(view),
		Stats: core.Summarize(jobs),
	})
}

func (h *JobHandler) GetBoard(c *gin.Context) {
	ctx := c.Request.Context()
	jobs, err := db.Jobs.ListJobs(ctx)
	if err != nil {
		respondError(c, err, "jobs")
		return
	}
	presses, err := db.Presses.ListPresses(ctx)
	if err != nil {
		respondError(c, err, "presses")
		return
	}
	settings, err := db.Settings.GetAppSettings(ctx)
	if err != nil {
		respondError(c, err, "settings")
		return
	}

	c.JSON(http.StatusOK, BoardResponse{
		Groups:   core.GroupByPress(jobs, presses),
		Settings: settings,
	})
}

func (h *JobHandler) GetJob(c *gin.Context) {
	job, err := db.Jobs.GetJobByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "job")
		return
	}
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	now := h.notify.now()
	job := &core.Job{
		Status:    core.JobStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if claims := middleware.CurrentClaims(c); claims != nil {
		job.CreatedBy = &core.Creator{ID: claims.UserID(), FirstName: claims.FirstName, LastName: claims.LastName}
	}
	if !h.apply(c, job, &req) {
		return
	}

	if err := db.Jobs.CreateJob(c.Request.Context(), job); err != nil {
		respondError(c, err, "job")
		return
	}

	h.notify.Events.JobEvent(webhook.EventJobCreated, job)
	h.notify.Feed.Publish()
	c.JSON(http.StatusCreated, job)
}

// UpdateJob replaces the editable fields. Status, creator and createdAt are
// kept from the stored job.
func (h *JobHandler) UpdateJob(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := db.Jobs.GetJobByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "job")
		return
	}

	var req JobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	oldImage := job.ImageURL
	if !h.apply(c, job, &req) {
		return
	}
	job.UpdatedAt = h.notify.now()

	if err := db.Jobs.UpdateJob(ctx, job); err != nil {
		respondError(c, err, "job")
		return
	}
	h.notify.dropImage(c, oldImage, job.ImageURL)

	h.notify.Events.JobEvent(webhook.EventJobUpdated, job)
	h.notify.Feed.Publish()
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) CompleteJob(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := db.Jobs.CompleteJob(ctx, id, h.notify.Now()); err != nil {
		respondError(c, err, "job")
		return
	}

	job, err := db.Jobs.GetJobByID(ctx, id)
	if err != nil {
		respondError(c, err, "job")
		return
	}

	h.notify.Events.JobEvent(webhook.EventJobCompleted, job)
	h.notify.Feed.Publish()
	c.JSON(http.StatusOK, job)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	ctx := c.Request.Context()
	job, err := db.Jobs.GetJobByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "job")
		return
	}

	if err := db.Jobs.DeleteJob(ctx, job.ID); err != nil {
		respondError(c, err, "job")
		return
	}
	h.notify.dropImage(c, job.ImageURL, "")

	h.notify.Events.JobEvent(webhook.EventJobDeleted, job)
	h.notify.Feed.Publish()
	c.Status(http.StatusNoContent)
}

// apply copies the request onto job, resolving the press name. It writes the
// error response itself and reports whether the caller should continue.
func (h *JobHandler) apply(c *gin.Context, job *core.Job, req *JobRequest) bool {
	job.Title = strings.TrimSpace(req.Title)
	job.Quantity = req.Quantity
	job.Hot = req.Hot
	job.FrontColor1 = req.FrontColor1
	job.FrontColor2 = req.FrontColor2
	job.BackColor1 = req.BackColor1
	job.BackColor2 = req.BackColor2
	job.PlateBin = req.PlateBin
	job.Notes = req.Notes
	job.ImageURL = req.ImageURL

	if err := job.Validate(); err != nil {
		respondError(c, err, "job")
		return false
	}

	job.PressID, job.PressName = "", ""
	if req.PressID != "" {
		press, err := db.Presses.GetPressByID(c.Request.Context(), req.PressID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "press not found"})
				return false
			}
			respondError(c, err, "press")
			return false
		}
		job.PressID, job.PressName = press.ID, press.Name
	}
	return true
}

func (h *JobHandler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/jobs", h.ListJobs)
	authed.GET("/jobs/:id", h.GetJob)
	authed.POST("/jobs/:id/complete", h.CompleteJob)
	authed.GET("/board", h.GetBoard)

	admin.POST("/jobs", h.CreateJob)
	admin.PUT("/jobs/:id", h.UpdateJob)
	admin.DELETE("/jobs/:id", h.DeleteJob)
}
