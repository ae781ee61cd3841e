package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
)

type PressRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}

type PressHandler struct {
	notify Notifiers
}

func NewPressHandler(notify Notifiers) *PressHandler {
	return &PressHandler{notify: notify.withDefaults()}
}

func (h *PressHandler) ListPresses(c *gin.Context) {
	presses, err := db.Presses.ListPresses(c.Request.Context())
	if err != nil {
		respondError(c, err, "presses")
		return
	}
	c.JSON(http.StatusOK, presses)
}

func (h *PressHandler) CreatePress(c *gin.Context) {
	var req PressRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "press name is required"})
		return
	}

	now := h.notify.now()
	p := &core.Press{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := db.Presses.CreatePress(c.Request.Context(), p); err != nil {
		respondError(c, err, "press")
		return
	}

	h.notify.Feed.Publish()
	c.JSON(http.StatusCreated, p)
}

func (h *PressHandler) UpdatePress(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := db.Presses.GetPressByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "press")
		return
	}

	var req PressRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "press name is required"})
		return
	}

	oldImage := p.ImageURL
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.ImageURL = req.ImageURL
	p.UpdatedAt = h.notify.now()

	if err := db.Presses.UpdatePress(ctx, p); err != nil {
		respondError(c, err, "press")
		return
	}
	h.notify.dropImage(c, oldImage, p.ImageURL)

	h.notify.Feed.Publish()
	c.JSON(http.StatusOK, p)
}

// DeletePress removes the press and its image. Its jobs keep their press id
// and show up under Unassigned on the board.
func (h *PressHandler) DeletePress(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := db.Presses.GetPressByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "press")
		return
	}
	if err := db.Presses.DeletePress(ctx, p.ID); err != nil {
		respondError(c, err, "press")
		return
	}
	h.notify.dropImage(c, p.ImageURL, "")

	h.notify.Feed.Publish()
	c.Status(http.StatusNoContent)
}

func (h *PressHandler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/presses", h.ListPresses)

	admin.POST("/presses", h.CreatePress)
	admin.PUT("/presses/:id", h.UpdatePress)
	admin.DELETE("/presses/:id", h.DeletePress)
}
