package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/db"
)

type SettingsHandler struct {
	notify Notifiers
}

func NewSettingsHandler(notify Notifiers) *SettingsHandler {
	return &SettingsHandler{notify: notify.withDefaults()}
}

func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := db.Settings.GetAppSettings(c.Request.Context())
	if err != nil {
		respondError(c, err, "settings")
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req db.AppSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := db.Settings.SaveAppSettings(c.Request.Context(), req); err != nil {
		respondError(c, err, "settings")
		return
	}

	h.notify.Feed.Publish()
	c.JSON(http.StatusOK, req)
}

func (h *SettingsHandler) RegisterRoutes(authed, admin *gin.RouterGroup) {
	authed.GET("/settings", h.GetSettings)
	admin.PUT("/settings", h.UpdateSettings)
}
