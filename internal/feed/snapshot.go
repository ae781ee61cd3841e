package feed

import (
	"context"
	"fmt"

	"github.com/orrn/printqueue/internal/core"
	"github.com/orrn/printqueue/internal/db"
)

// Source is the read side a snapshot is computed from.
type Source interface {
	ListJobs(ctx context.Context) ([]core.Job, error)
	ListPresses(ctx context.Context) ([]core.Press, error)
	AppSettings(ctx context.Context) (db.AppSettings, error)
}

// Selection is a client's current list view.
type Selection struct {
	Filter string `json:"filter"`
	Sort   string `json:"sort"`
}

type Snapshot struct {
	Type     string            `json:"type"`
	Filter   core.FilterMode   `json:"filter"`
	Sort     core.SortMode     `json:"sort"`
	Jobs     []core.Job        `json:"jobs"`
	Stats    core.Stats        `json:"stats"`
	Board    []core.PressGroup `json:"board"`
	Settings db.AppSettings    `json:"settings"`
}

func Build(ctx context.Context, src Source, sel Selection) (*Snapshot, error) {
	jobs, err := src.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}
	presses, err := src.ListPresses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load presses: %w", err)
	}
	settings, err := src.AppSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	filter := core.ParseFilterMode(sel.Filter)
	order := core.ParseSortMode(sel.Sort)
	return &Snapshot{
		Type:     "snapshot",
		Filter:   filter,
		Sort:     order,
		Jobs:     core.FilterAndSort(jobs, filter, order),
		Stats:    core.Summarize(jobs),
		Board:    core.GroupByPress(jobs, presses),
		Settings: settings,
	}, nil
}

// StoreSource reads snapshots from the sqlite store.
type StoreSource struct{}

func (StoreSource) ListJobs(ctx context.Context) ([]core.Job, error) {
	return db.Jobs.ListJobs(ctx)
}

func (StoreSource) ListPresses(ctx context.Context) ([]core.Press, error) {
	return db.Presses.ListPresses(ctx)
}

func (StoreSource) AppSettings(ctx context.Context) (db.AppSettings, error) {
	return db.Settings.GetAppSettings(ctx)
}
