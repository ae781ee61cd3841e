package feed

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
	"github.com/orrn/printqueue/internal/logging"
)

type fakeSource struct {
	mu      sync.Mutex
	jobs    []core.Job
	presses []core.Press
}

func (f *fakeSource) ListJobs(context.Context) ([]core.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Job(nil), f.jobs...), nil
}

func (f *fakeSource) ListPresses(context.Context) ([]core.Press, error) {
	return f.presses, nil
}

func (f *fakeSource) AppSettings(context.Context) (db.AppSettings, error) {
	return db.AppSettings{ShowPressImagesInPressView: true}, nil
}

func (f *fakeSource) add(j core.Job) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, j)
}

func at(minute int) *time.Time {
	t := time.Date(2024, 1, 1, 8, minute, 0, 0, time.UTC)
	return &t
}

func TestBuild(t *testing.T) {
	src := &fakeSource{
		jobs: []core.Job{
			{ID: "1", Status: core.JobStatusOpen, PressID: "p1", CreatedAt: at(1)},
			{ID: "2", Status: core.JobStatusCompleted, Hot: true, CreatedAt: at(2)},
			{ID: "3", Status: core.JobStatusOpen, Hot: true, PressID: "p1", CreatedAt: at(3)},
		},
		presses: []core.Press{{ID: "p1", Name: "Press 1"}},
	}

	snap, err := Build(context.Background(), src, Selection{Filter: "hot", Sort: "oldest"})
	require.NoError(t, err)

	assert.Equal(t, "snapshot", snap.Type)
	assert.Equal(t, core.FilterHot, snap.Filter)
	require.Len(t, snap.Jobs, 2)
	assert.Equal(t, "2", snap.Jobs[0].ID)
	assert.Equal(t, "3", snap.Jobs[1].ID)
	assert.Equal(t, 3, snap.Stats.Total)
	assert.Equal(t, 2, snap.Stats.Hot)

	require.Len(t, snap.Board, 2)
	assert.Equal(t, "p1", snap.Board[0].Press.ID)
	assert.Equal(t, "3", snap.Board[0].Jobs[0].ID)
	assert.True(t, snap.Board[1].Unassigned)
	assert.True(t, snap.Settings.ShowPressImagesInPressView)
}

func TestServerStreamsSnapshots(t *testing.T) {
	src := &fakeSource{
		jobs:    []core.Job{{ID: "1", Status: core.JobStatusOpen, CreatedAt: at(1)}},
		presses: []core.Press{{ID: "p1", Name: "Press 1"}},
	}
	hub := NewHub()
	srv := httptest.NewServer(NewServer(hub, src, logging.Nop()))
	defer srv.Close()
	defer hub.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?filter=all"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var snap Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Len(t, snap.Jobs, 1)

	// a selection change answers straight away
	require.NoError(t, conn.WriteJSON(Selection{Filter: "completed"}))
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, core.FilterCompleted, snap.Filter)
	assert.Empty(t, snap.Jobs)

	// the selection sticks across change notifications
	src.add(core.Job{ID: "2", Status: core.JobStatusCompleted, CreatedAt: at(2)})
	hub.Publish()
	require.NoError(t, conn.ReadJSON(&snap))
	assert.Equal(t, core.FilterCompleted, snap.Filter)
	require.Len(t, snap.Jobs, 1)
	assert.Equal(t, "2", snap.Jobs[0].ID)
	assert.Equal(t, 2, snap.Stats.Total)
}
