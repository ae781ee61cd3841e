package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printqueue/internal/core"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "printqueue-db-*")
	if err != nil {
		panic(err)
	}
	if err := Init(Config{Path: filepath.Join(dir, "test.db")}); err != nil {
		panic(err)
	}
	code := m.Run()
	Close()
	os.RemoveAll(dir)
	os.Exit(code)
}

func TestMigrationsRecorded(t *testing.T) {
	applied, err := appliedMigrations(GetDB())
	require.NoError(t, err)
	assert.True(t, applied["001_init"])

	// running again is a no-op
	require.NoError(t, runMigrations(GetDB(), migrationsFS))
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	job := &core.Job{
		Title:     "Business cards",
		Quantity:  500,
		Hot:       true,
		PressID:   "p1",
		PressName: "Press 1",
		PlateBin:  "4",
		CreatedBy: &core.Creator{ID: "u1", FirstName: "Ada", LastName: "Lovelace"},
		CreatedAt: &created,
		UpdatedAt: &created,
	}
	require.NoError(t, Jobs.CreateJob(ctx, job))
	require.NotEmpty(t, job.ID)
	assert.Equal(t, core.JobStatusOpen, job.Status)

	got, err := Jobs.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Business cards", got.Title)
	assert.True(t, got.Hot)
	assert.Equal(t, 500, got.Quantity)
	require.NotNil(t, got.CreatedAt)
	assert.True(t, created.Equal(*got.CreatedAt))
	require.NotNil(t, got.CreatedBy)
	assert.Equal(t, "Ada", got.CreatedBy.FirstName)
	assert.Nil(t, got.CompletedAt)

	got.Notes = "rush"
	got.Hot = false
	require.NoError(t, Jobs.UpdateJob(ctx, got))

	got, err = Jobs.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "rush", got.Notes)
	assert.False(t, got.Hot)

	doneAt := created.Add(2 * time.Hour)
	require.NoError(t, Jobs.CompleteJob(ctx, job.ID, doneAt))
	assert.ErrorIs(t, Jobs.CompleteJob(ctx, job.ID, doneAt), core.ErrAlreadyComplete)

	got, err = Jobs.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, doneAt.Equal(*got.CompletedAt))

	require.NoError(t, Jobs.DeleteJob(ctx, job.ID))
	_, err = Jobs.GetJobByID(ctx, job.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, Jobs.DeleteJob(ctx, job.ID), sql.ErrNoRows)
	assert.ErrorIs(t, Jobs.CompleteJob(ctx, job.ID, doneAt), sql.ErrNoRows)
}

func TestJobWithoutCreatedAt(t *testing.T) {
	ctx := context.Background()
	job := &core.Job{Title: "Legacy import", Quantity: 1}
	require.NoError(t, Jobs.CreateJob(ctx, job))
	t.Cleanup(func() { Jobs.DeleteJob(ctx, job.ID) })

	got, err := Jobs.GetJobByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CreatedAt)
	assert.Nil(t, got.CreatedBy)

	jobs, err := Jobs.ListJobs(ctx)
	require.NoError(t, err)
	var found bool
	for _, j := range jobs {
		if j.ID == job.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPressAndColorCRUD(t *testing.T) {
	ctx := context.Background()

	p := &core.Press{Name: "Heidelberg", Description: "Two color"}
	require.NoError(t, Presses.CreatePress(ctx, p))
	p.Name = "Heidelberg GTO"
	require.NoError(t, Presses.UpdatePress(ctx, p))
	got, err := Presses.GetPressByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Heidelberg GTO", got.Name)
	require.NoError(t, Presses.DeletePress(ctx, p.ID))
	assert.ErrorIs(t, Presses.UpdatePress(ctx, p), sql.ErrNoRows)

	c := &Color{Name: "Orange", Hex: "#FFA500"}
	require.NoError(t, Colors.CreateColor(ctx, c))
	c.Hex = "#FF8C00"
	require.NoError(t, Colors.UpdateColor(ctx, c))
	gotColor, err := Colors.GetColorByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "#FF8C00", gotColor.Hex)
	require.NoError(t, Colors.DeleteColor(ctx, c.ID))
	_, err = Colors.GetColorByID(ctx, c.ID)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()

	u := &User{Email: " Grace@Example.com ", FirstName: "Grace", LastName: "Hopper", Role: RoleAdmin, PasswordHash: "x"}
	require.NoError(t, Users.CreateUser(ctx, u))
	t.Cleanup(func() { Users.DeleteUser(ctx, u.ID) })
	assert.Equal(t, "grace@example.com", u.Email)

	dup := &User{Email: "GRACE@example.com", Role: RoleUser, PasswordHash: "y"}
	assert.ErrorIs(t, Users.CreateUser(ctx, dup), ErrDuplicateEmail)

	got, err := Users.GetUserByEmail(ctx, "grace@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, RoleAdmin, got.Role)

	require.NoError(t, Users.UpdatePassword(ctx, u.ID, "z"))
	got, err = Users.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "z", got.PasswordHash)

	n, err := Users.CountUsers(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 1)

	_, err = Users.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAppSettings(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, Settings.DeleteSetting(ctx, settingsKeyApp))

	app, err := Settings.GetAppSettings(ctx)
	require.NoError(t, err)
	assert.False(t, app.ShowPressImagesInPressView)

	require.NoError(t, Settings.SaveAppSettings(ctx, AppSettings{ShowPressImagesInPressView: true}))
	app, err = Settings.GetAppSettings(ctx)
	require.NoError(t, err)
	assert.True(t, app.ShowPressImagesInPressView)
}

func TestWebhooksForEvent(t *testing.T) {
	ctx := context.Background()

	on := &Webhook{Name: "slack", URL: "http://example.invalid/a", EventsJSON: `["job_created","job_completed"]`, Enabled: true}
	off := &Webhook{Name: "disabled", URL: "http://example.invalid/b", EventsJSON: `["job_created"]`, Enabled: false}
	require.NoError(t, Webhooks.CreateWebhook(ctx, on))
	require.NoError(t, Webhooks.CreateWebhook(ctx, off))
	t.Cleanup(func() {
		Webhooks.DeleteWebhook(ctx, on.ID)
		Webhooks.DeleteWebhook(ctx, off.ID)
	})

	hooks, err := Webhooks.ListActiveWebhooksForEvent(ctx, "job_created")
	require.NoError(t, err)
	require.Len(t, hooks, 1)
	assert.Equal(t, on.ID, hooks[0].ID)

	hooks, err = Webhooks.ListActiveWebhooksForEvent(ctx, "job_deleted")
	require.NoError(t, err)
	assert.Empty(t, hooks)

	got, err := Webhooks.GetWebhookByID(ctx, off.ID)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
}

func TestSetupAdmin(t *testing.T) {
	ctx := context.Background()
	users, err := Users.ListUsers(ctx)
	require.NoError(t, err)
	for _, u := range users {
		require.NoError(t, Users.DeleteUser(ctx, u.ID))
	}
	before, err := Presses.ListPresses(ctx)
	require.NoError(t, err)

	admin := &User{Email: "Owner@Shop.test", FirstName: "Olive", PasswordHash: "x"}
	require.NoError(t, SetupAdmin(ctx, admin, time.Now()))
	t.Cleanup(func() { Users.DeleteUser(ctx, admin.ID) })
	assert.Equal(t, RoleAdmin, admin.Role)
	assert.Equal(t, "owner@shop.test", admin.Email)

	presses, err := Presses.ListPresses(ctx)
	require.NoError(t, err)
	assert.Len(t, presses, len(before)+2)

	colors, err := Colors.ListColors(ctx)
	require.NoError(t, err)
	names := make([]string, 0, len(colors))
	for _, c := range colors {
		names = append(names, c.Name)
	}
	assert.Subset(t, names, []string{"Black", "White", "Red", "Blue", "Yellow", "Green"})

	second := &User{Email: "late@shop.test", FirstName: "Late", PasswordHash: "y"}
	assert.ErrorIs(t, SetupAdmin(ctx, second, time.Now()), ErrSetupComplete)

	n, err := Users.CountUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	presses, err = Presses.ListPresses(ctx)
	require.NoError(t, err)
	assert.Len(t, presses, len(before)+2)
}
