package handlers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/db"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type ColorRequest struct {
	Name string `json:"name" binding:"required"`
	Hex  string `json:"hex" binding:"required"`
}

func (r *ColorRequest) normalize() bool {
	r.Name = strings.TrimSpace(r.Name)
	r.Hex = strings.ToUpper(strings.TrimSpace(r.Hex))
	return r.Name != "" && hexColor.MatchString(r.Hex)
}

type ColorHandler struct {
	notify Notifiers
}

func NewColorHandler(notify Notifiers) *ColorHandler {
	return &ColorHandler{notify: notify.withDefaults()}
}

func (h *ColorHandler) ListColors(c *gin.Context) {
	colors, err := db.Colors.ListColors(c.Request.Context())
	if err != nil {
		respondError(c, err, "colors")
		return
	}
	c.JSON(http.StatusOK, colors)
}

func (h *ColorHandler) CreateColor(c *gin.Context) {
	var req ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.normalize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and hex (#RRGGBB) are required"})
		return
	}

	now := h.notify.now()
	color := &db.Color{Name: req.Name, Hex: req.Hex, CreatedAt: now, UpdatedAt: now}
	if err := db.Colors.CreateColor(c.Request.Context(), color); err != nil {
		respondError(c, err, "color")
		return
	}
	c.JSON(http.StatusCreated, color)
}

func (h *ColorHandler) UpdateColor(c *gin.Context) {
	ctx := c.Request.Context()
	color, err := db.Colors.GetColorByID(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err, "color")
		return
	}

	var req ColorRequest
	if err := c.ShouldBindJSON(&req); err != nil || !req.normalize() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and hex (#RRGGBB) are required"})
		return
	}

	color.Name, color.Hex = req.Name, req.Hex
	color.UpdatedAt = h.notify.now()
	if err := db.Colors.UpdateColor(ctx, color); err != nil {
		respondError(c, err, "color")
		return
	}
	c.JSON(http.StatusOK, color)
}

func (h *ColorHandler) DeleteColor(c *gin.Context) {
	if err := db.Colors.DeleteColor(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, "color")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ColorHandler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/colors", h.ListColors)

	admin.POST("/colors", h.CreateColor)
	admin.PUT("/colors/:id", h.UpdateColor)
	admin.DELETE("/colors/:id", h.DeleteColor)
}
