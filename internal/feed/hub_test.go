package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHubPublishCoalesces(t *testing.T) {
	h := NewHub()
	ch, release := h.Subscribe()
	defer release()

	h.Publish()
	h.Publish()
	h.Publish()

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected notification")
	}

	select {
	case <-ch:
		t.Fatal("burst should coalesce into one notification")
	default:
	}
}

func TestHubRelease(t *testing.T) {
	h := NewHub()
	ch, release := h.Subscribe()
	assert.Equal(t, 1, h.Subscribers())

	release()
	release()
	assert.Equal(t, 0, h.Subscribers())

	_, ok := <-ch
	assert.False(t, ok)

	// publishing with no subscribers must not block
	h.Publish()
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	ch, release := h.Subscribe()
	defer release()

	h.Close()
	_, ok := <-ch
	assert.False(t, ok)

	late, _ := h.Subscribe()
	_, ok = <-late
	assert.False(t, ok)
	assert.Equal(t, 0, h.Subscribers())
}
