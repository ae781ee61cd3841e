package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/orrn/printqueue/internal/core"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func utc(t *time.Time) *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	u := t.UTC()
	return &u
}

type JobOperations struct{}

func (o *JobOperations) CreateJob(ctx context.Context, j *core.Job) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = core.JobStatusOpen
	}

	var byID, byFirst, byLast string
	if j.CreatedBy != nil {
		byID, byFirst, byLast = j.CreatedBy.ID, j.CreatedBy.FirstName, j.CreatedBy.LastName
	}

	_, err := GetDB().ExecContext(ctx, InsertJob,
		j.ID, j.Title, j.Quantity, j.Hot, j.Status, j.PressID, j.PressName,
		j.FrontColor1, j.FrontColor2, j.BackColor1, j.BackColor2, j.PlateBin, j.Notes, j.ImageURL,
		byID, byFirst, byLast, utc(j.CreatedAt), utc(j.UpdatedAt), utc(j.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (o *JobOperations) GetJobByID(ctx context.Context, id string) (*core.Job, error) {
	j, err := scanJob(GetDB().QueryRowContext(ctx, GetJobByID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// ListJobs returns every job, newest first. Board and list views are derived
// from this snapshot.
func (o *JobOperations) ListJobs(ctx context.Context) ([]core.Job, error) {
	rows, err := GetDB().QueryContext(ctx, ListJobs)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]core.Job, 0)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}

func (o *JobOperations) UpdateJob(ctx context.Context, j *core.Job) error {
	result, err := GetDB().ExecContext(ctx, UpdateJob,
		j.Title, j.Quantity, j.Hot, j.Status, j.PressID, j.PressName,
		j.FrontColor1, j.FrontColor2, j.BackColor1, j.BackColor2,
		j.PlateBin, j.Notes, j.ImageURL, utc(j.CreatedAt), utc(j.UpdatedAt), j.ID)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return requireRow(result)
}

// CompleteJob marks a job completed. It returns core.ErrAlreadyComplete when
// the job was already done and sql.ErrNoRows when it does not exist.
func (o *JobOperations) CompleteJob(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	result, err := GetDB().ExecContext(ctx, CompleteJob, at, at, id)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := o.GetJobByID(ctx, id); err != nil {
		return err
	}
	return core.ErrAlreadyComplete
}

func (o *JobOperations) DeleteJob(ctx context.Context, id string) error {
	result, err := GetDB().ExecContext(ctx, DeleteJob, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return requireRow(result)
}

func scanJob(row rowScanner) (*core.Job, error) {
	j := &core.Job{}
	var byID, byFirst, byLast string
	err := row.Scan(
		&j.ID, &j.Title, &j.Quantity, &j.Hot, &j.Status, &j.PressID, &j.PressName,
		&j.FrontColor1, &j.FrontColor2, &j.BackColor1, &j.BackColor2, &j.PlateBin, &j.Notes, &j.ImageURL,
		&byID, &byFirst, &byLast, &j.CreatedAt, &j.UpdatedAt, &j.CompletedAt)
	if err != nil {
		return nil, err
	}
	if byID != "" {
		j.CreatedBy = &core.Creator{ID: byID, FirstName: byFirst, LastName: byLast}
	}
	return j, nil
}

type PressOperations struct{}

func (o *PressOperations) CreatePress(ctx context.Context, p *core.Press) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := GetDB().ExecContext(ctx, InsertPress,
		p.ID, p.Name, p.Description, p.ImageURL, utc(p.CreatedAt), utc(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create press: %w", err)
	}
	return nil
}

func (o *PressOperations) GetPressByID(ctx context.Context, id string) (*core.Press, error) {
	p := &core.Press{}
	err := GetDB().QueryRowContext(ctx, GetPressByID, id).Scan(
		&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get press: %w", err)
	}
	return p, nil
}

func (o *PressOperations) ListPresses(ctx context.Context) ([]core.Press, error) {
	rows, err := GetDB().QueryContext(ctx, ListPresses)
	if err != nil {
		return nil, fmt.Errorf("failed to list presses: %w", err)
	}
	defer rows.Close()

	presses := make([]core.Press, 0)
	for rows.Next() {
		var p core.Press
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan press: %w", err)
		}
		presses = append(presses, p)
	}
	return presses, rows.Err()
}

func (o *PressOperations) UpdatePress(ctx context.Context, p *core.Press) error {
	result, err := GetDB().ExecContext(ctx, UpdatePress,
		p.Name, p.Description, p.ImageURL, utc(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update press: %w", err)
	}
	return requireRow(result)
}

func (o *PressOperations) DeletePress(ctx context.Context, id string) error {
	result, err := GetDB().ExecContext(ctx, DeletePress, id)
	if err != nil {
		return fmt.Errorf("failed to delete press: %w", err)
	}
	return requireRow(result)
}

type ColorOperations struct{}

func (o *ColorOperations) CreateColor(ctx context.Context, c *Color) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := GetDB().ExecContext(ctx, InsertColor, c.ID, c.Name, c.Hex, utc(c.CreatedAt), utc(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create color: %w", err)
	}
	return nil
}

func (o *ColorOperations) GetColorByID(ctx context.Context, id string) (*Color, error) {
	c := &Color{}
	err := GetDB().QueryRowContext(ctx, GetColorByID, id).Scan(&c.ID, &c.Name, &c.Hex, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get color: %w", err)
	}
	return c, nil
}

func (o *ColorOperations) ListColors(ctx context.Context) ([]Color, error) {
	rows, err := GetDB().QueryContext(ctx, ListColors)
	if err != nil {
		return nil, fmt.Errorf("failed to list colors: %w", err)
	}
	defer rows.Close()

	colors := make([]Color, 0)
	for rows.Next() {
		var c Color
		if err := rows.Scan(&c.ID, &c.Name, &c.Hex, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan color: %w", err)
		}
		colors = append(colors, c)
	}
	return colors, rows.Err()
}

func (o *ColorOperations) UpdateColor(ctx context.Context, c *Color) error {
	result, err := GetDB().ExecContext(ctx, UpdateColor, c.Name, c.Hex, utc(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update color: %w", err)
	}
	return requireRow(result)
}

func (o *ColorOperations) DeleteColor(ctx context.Context, id string) error {
	result, err := GetDB().ExecContext(ctx, DeleteColor, id)
	if err != nil {
		return fmt.Errorf("failed to delete color: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var (
	Jobs     = &JobOperations{}
	Presses  = &PressOperations{}
	Colors   = &ColorOperations{}
	Users    = &UserOperations{}
	Settings = &SettingsOperations{}
	Webhooks = &WebhookOperations{}
)
