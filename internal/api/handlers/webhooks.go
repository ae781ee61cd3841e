package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/webhook"
)

// Tester sends a one-off delivery to check a webhook endpoint.
type Tester interface {
	SendTest(w *db.Webhook) error
}

type CreateWebhookRequest struct {
	Name   string   `json:"name" binding:"required"`
	URL    string   `json:"url" binding:"required,url"`
	Secret string   `json:"secret"`
	Events []string `json:"events" binding:"required"`
}

type UpdateWebhookRequest struct {
	Name    string   `json:"name"`
	URL     string   `json:"url" binding:"omitempty,url"`
	Secret  string   `json:"secret"`
	Events  []string `json:"events"`
	Enabled *bool    `json:"enabled"`
}

type WebhookResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Enabled   bool      `json:"enabled"`
	HasSecret bool      `json:"hasSecret"`
	CreatedAt time.Time `json:"createdAt"`
}

type TestWebhookResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type WebhookHandler struct {
	tester Tester
}

func NewWebhookHandler(tester Tester) *WebhookHandler {
	return &WebhookHandler{tester: tester}
}

func (h *WebhookHandler) ListWebhooks(c *gin.Context) {
	webhooks, err := db.Webhooks.ListWebhooks(c.Request.Context())
	if err != nil {
		respondError(c, err, "webhooks")
		return
	}

	responses := make([]WebhookResponse, 0, len(webhooks))
	for i := range webhooks {
		responses = append(responses, webhookToResponse(&webhooks[i]))
	}
	c.JSON(http.StatusOK, responses)
}

func (h *WebhookHandler) GetWebhook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	w, err := db.Webhooks.GetWebhookByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "webhook")
		return
	}
	c.JSON(http.StatusOK, webhookToResponse(w))
}

func (h *WebhookHandler) CreateWebhook(c *gin.Context) {
	var req CreateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	eventsJSON, ok := encodeEvents(c, req.Events)
	if !ok {
		return
	}

	w := &db.Webhook{
		Name:       req.Name,
		URL:        req.URL,
		Secret:     req.Secret,
		EventsJSON: eventsJSON,
		Enabled:    true,
	}
	if err := db.Webhooks.CreateWebhook(c.Request.Context(), w); err != nil {
		respondError(c, err, "webhook")
		return
	}

	// created_at is filled in by the database
	if stored, err := db.Webhooks.GetWebhookByID(c.Request.Context(), w.ID); err == nil {
		w = stored
	}
	c.JSON(http.StatusCreated, webhookToResponse(w))
}

func (h *WebhookHandler) UpdateWebhook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	w, err := db.Webhooks.GetWebhookByID(ctx, id)
	if err != nil {
		respondError(c, err, "webhook")
		return
	}

	var req UpdateWebhookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		w.Name = req.Name
	}
	if req.URL != "" {
		w.URL = req.URL
	}
	if req.Secret != "" {
		w.Secret = req.Secret
	}
	if len(req.Events) > 0 {
		eventsJSON, ok := encodeEvents(c, req.Events)
		if !ok {
			return
		}
		w.EventsJSON = eventsJSON
	}
	if req.Enabled != nil {
		w.Enabled = *req.Enabled
	}

	if err := db.Webhooks.UpdateWebhook(ctx, w); err != nil {
		respondError(c, err, "webhook")
		return
	}
	c.JSON(http.StatusOK, webhookToResponse(w))
}

func (h *WebhookHandler) DeleteWebhook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := db.Webhooks.DeleteWebhook(c.Request.Context(), id); err != nil {
		respondError(c, err, "webhook")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *WebhookHandler) TestWebhook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	w, err := db.Webhooks.GetWebhookByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "webhook")
		return
	}

	if err := h.tester.SendTest(w); err != nil {
		c.JSON(http.StatusOK, TestWebhookResponse{
			Success: false,
			Message: fmt.Sprintf("Webhook test failed: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, TestWebhookResponse{Success: true, Message: "Webhook test successful"})
}

func encodeEvents(c *gin.Context, events []string) (string, bool) {
	if len(events) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one event must be specified"})
		return "", false
	}
	for _, event := range events {
		if !webhook.Event(event).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid event type: %s", event)})
			return "", false
		}
	}

	data, err := json.Marshal(events)
	if err != nil {
		respondError(c, err, "webhook")
		return "", false
	}
	return string(data), true
}

func webhookToResponse(w *db.Webhook) WebhookResponse {
	var events []string
	if w.EventsJSON != "" {
		json.Unmarshal([]byte(w.EventsJSON), &events)
	}
	if events == nil {
		events = []string{}
	}

	return WebhookResponse{
		ID:        w.ID,
		Name:      w.Name,
		URL:       w.URL,
		Events:    events,
		Enabled:   w.Enabled,
		HasSecret: w.Secret != "",
		CreatedAt: w.CreatedAt,
	}
}

func (h *WebhookHandler) RegisterRoutes(admin *gin.RouterGroup) {
	admin.GET("/webhooks", h.ListWebhooks)
	admin.POST("/webhooks", h.CreateWebhook)
	admin.GET("/webhooks/:id", h.GetWebhook)
	admin.PUT("/webhooks/:id", h.UpdateWebhook)
	admin.DELETE("/webhooks/:id", h.DeleteWebhook)
	admin.POST("/webhooks/:id/test", h.TestWebhook)
}
