package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type JobStatus string

const (
	JobStatusOpen       JobStatus = "open"
	JobStatusInProgress JobStatus = "in-progress"
	JobStatusCompleted  JobStatus = "completed"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusOpen, JobStatusInProgress, JobStatusCompleted:
		return true
	}
	return false
}

type FilterMode string

const (
	FilterAll       FilterMode = "all"
	FilterOpen      FilterMode = "open"
	FilterCompleted FilterMode = "completed"
	FilterHot       FilterMode = "hot"
)

type SortMode string

const (
	SortNewest SortMode = "newest"
	SortOldest SortMode = "oldest"
)

const (
	UnassignedPressID   = "unassigned"
	UnassignedPressName = "Unassigned"

	waitingOnPlates = "Waiting on Plates"
)

var (
	ErrInvalidJob      = errors.New("invalid job")
	ErrAlreadyComplete = errors.New("job already completed")
)

type Creator struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Job is a unit of print work. Only ID, Hot, Status, PressID and CreatedAt
// take part in board ordering; the rest is carried through untouched.
type Job struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Quantity    int        `json:"quantity"`
	Hot         bool       `json:"hot"`
	Status      JobStatus  `json:"status"`
	PressID     string     `json:"pressId,omitempty"`
	PressName   string     `json:"pressName,omitempty"`
	FrontColor1 string     `json:"frontColor1,omitempty"`
	FrontColor2 string     `json:"frontColor2,omitempty"`
	BackColor1  string     `json:"backColor1,omitempty"`
	BackColor2  string     `json:"backColor2,omitempty"`
	PlateBin    string     `json:"plateBin,omitempty"`
	Notes       string     `json:"notes,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	CreatedBy   *Creator   `json:"createdBy,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (j *Job) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidJob)
	}
	if j.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidJob)
	}
	if j.Status != "" && !j.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidJob, j.Status)
	}
	return nil
}

// PlateBinLabel renders the plate bin the way the shop floor reads it.
func (j *Job) PlateBinLabel() string {
	if j.PlateBin == "" || j.PlateBin == waitingOnPlates {
		return waitingOnPlates
	}
	return "Bin " + j.PlateBin
}

// MarshalJSON adds the rendered plate bin label to the stored fields.
func (j Job) MarshalJSON() ([]byte, error) {
	type job Job
	return json.Marshal(struct {
		job
		PlateBinLabel string `json:"plateBinLabel"`
	}{job(j), j.PlateBinLabel()})
}

type Press struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

// PressGroup is one board column. Unassigned marks the synthetic column for
// jobs without a known press, whatever its Press.ID.
type PressGroup struct {
	Press      Press `json:"press"`
	Jobs       []Job `json:"jobs"`
	HotCount   int   `json:"hotCount"`
	Unassigned bool  `json:"unassigned"`
}

type Stats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
	Hot        int `json:"hot"`
}

func ParseFilterMode(s string) FilterMode {
	switch m := FilterMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FilterOpen, FilterCompleted, FilterHot:
		return m
	}
	return FilterAll
}

func ParseSortMode(s string) SortMode {
	switch m := SortMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return SortNewest
	default:
		return m
	}
}
