package handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/webhook"
)

// JobEvents receives job lifecycle events for outbound webhooks.
type JobEvents interface {
	JobEvent(event webhook.Event, job *core.Job)
}

// Publisher wakes live feed subscribers after a write.
type Publisher interface {
	Publish()
}

// ImageRemover deletes stored images that a record no longer references.
type ImageRemover interface {
	Remove(ctx context.Context, url string) error
}

type nopEvents struct{}

func (nopEvents) JobEvent(webhook.Event, *core.Job) {}

type nopPublisher struct{}

func (nopPublisher) Publish() {}

type nopRemover struct{}

func (nopRemover) Remove(context.Context, string) error { return nil }

// Notifiers bundles the side effects of a successful write. Nil fields are
// replaced with no-ops.
type Notifiers struct {
	Events JobEvents
	Feed   Publisher
	Images ImageRemover
	Now    func() time.Time
}

func (n Notifiers) withDefaults() Notifiers {
	if n.Events == nil {
		n.Events = nopEvents{}
	}
	if n.Feed == nil {
		n.Feed = nopPublisher{}
	}
	if n.Images == nil {
		n.Images = nopRemover{}
	}
	if n.Now == nil {
		n.Now = time.Now
	}
	return n
}

func (n Notifiers) now() *time.Time {
	t := n.Now().UTC()
	return &t
}

// dropImage removes old once current no longer points at it. A failed removal
// is recorded on the request and does not fail it.
func (n Notifiers) dropImage(c *gin.Context, old, current string) {
	if old == "" || old == current {
		return
	}
	if err := n.Images.Remove(c.Request.Context(), old); err != nil {
		c.Error(err)
	}
}

// respondError maps store and domain errors onto HTTP statuses. what names the
// resource in not-found messages.
func respondError(c *gin.Context, err error, what string) {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
	case errors.Is(err, core.ErrInvalidJob):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, core.ErrAlreadyComplete):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, db.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
