package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/orrn/printqueue/internal/core"
)

const settingsKeyApp = "app"

type UserOperations struct{}

func (o *UserOperations) CreateUser(ctx context.Context, u *User) error {
	return insertUser(ctx, GetDB(), u)
}

func insertUser(ctx context.Context, q execer, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Email = normalizeEmail(u.Email)

	_, err := q.ExecContext(ctx, InsertUser,
		u.ID, u.Email, u.FirstName, u.LastName, u.Role, u.PasswordHash, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (o *UserOperations) GetUserByID(ctx context.Context, id string) (*User, error) {
	return o.getUser(ctx, GetUserByID, id)
}

func (o *UserOperations) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return o.getUser(ctx, GetUserByEmail, normalizeEmail(email))
}

func (o *UserOperations) getUser(ctx context.Context, query string, arg string) (*User, error) {
	u := &User{}
	err := GetDB().QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (o *UserOperations) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := GetDB().QueryContext(ctx, ListUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]User, 0)
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (o *UserOperations) UpdateUser(ctx context.Context, u *User) error {
	u.Email = normalizeEmail(u.Email)
	result, err := GetDB().ExecContext(ctx, UpdateUser, u.Email, u.FirstName, u.LastName, u.Role, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(result)
}

func (o *UserOperations) UpdatePassword(ctx context.Context, id, hash string) error {
	result, err := GetDB().ExecContext(ctx, UpdateUserPassword, hash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireRow(result)
}

func (o *UserOperations) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := GetDB().QueryRowContext(ctx, CountUsers).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (o *UserOperations) DeleteUser(ctx context.Context, id string) error {
	result, err := GetDB().ExecContext(ctx, DeleteUser, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireRow(result)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

type SettingsOperations struct{}

func (o *SettingsOperations) GetSetting(ctx context.Context, key string) (*Setting, error) {
	s := &Setting{Key: key}
	err := GetDB().QueryRowContext(ctx, GetSetting, key).Scan(&s.Value, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return s, nil
}

func (o *SettingsOperations) SetSetting(ctx context.Context, key, value string) error {
	if _, err := GetDB().ExecContext(ctx, SetSetting, key, value); err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

func (o *SettingsOperations) DeleteSetting(ctx context.Context, key string) error {
	if _, err := GetDB().ExecContext(ctx, DeleteSetting, key); err != nil {
		return fmt.Errorf("failed to delete setting: %w", err)
	}
	return nil
}

// GetAppSettings returns the stored settings document, or the defaults when
// none has been saved yet.
func (o *SettingsOperations) GetAppSettings(ctx context.Context) (AppSettings, error) {
	var app AppSettings
	s, err := o.GetSetting(ctx, settingsKeyApp)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app, nil
		}
		return app, err
	}
	if err := json.Unmarshal([]byte(s.Value), &app); err != nil {
		return AppSettings{}, fmt.Errorf("failed to decode app settings: %w", err)
	}
	return app, nil
}

func (o *SettingsOperations) SaveAppSettings(ctx context.Context, app AppSettings) error {
	data, err := json.Marshal(app)
	if err != nil {
		return fmt.Errorf("failed to encode app settings: %w", err)
	}
	return o.SetSetting(ctx, settingsKeyApp, string(data))
}

type WebhookOperations struct{}

func (o *WebhookOperations) CreateWebhook(ctx context.Context, w *Webhook) error {
	result, err := GetDB().ExecContext(ctx, InsertWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled)
	if err != nil {
		return fmt.Errorf("failed to create webhook: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get webhook id: %w", err)
	}
	w.ID = id
	return nil
}

func (o *WebhookOperations) GetWebhookByID(ctx context.Context, id int64) (*Webhook, error) {
	w := &Webhook{}
	err := GetDB().QueryRowContext(ctx, GetWebhookByID, id).Scan(
		&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &w.Enabled, &w.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get webhook: %w", err)
	}
	return w, nil
}

func (o *WebhookOperations) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	return o.list(ctx, ListWebhooks)
}

func (o *WebhookOperations) ListActiveWebhooksForEvent(ctx context.Context, event string) ([]Webhook, error) {
	return o.list(ctx, ListWebhooksForEvent, "%\""+event+"\"%")
}

func (o *WebhookOperations) list(ctx context.Context, query string, args ...any) ([]Webhook, error) {
	rows, err := GetDB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list webhooks: %w", err)
	}
	defer rows.Close()

	webhooks := make([]Webhook, 0)
	for rows.Next() {
		var w Webhook
		if err := rows.Scan(&w.ID, &w.Name, &w.URL, &w.Secret, &w.EventsJSON, &w.Enabled, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}
		webhooks = append(webhooks, w)
	}
	return webhooks, rows.Err()
}

func (o *WebhookOperations) UpdateWebhook(ctx context.Context, w *Webhook) error {
	result, err := GetDB().ExecContext(ctx, UpdateWebhook,
		w.Name, w.URL, w.Secret, w.EventsJSON, w.Enabled, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update webhook: %w", err)
	}
	return requireRow(result)
}

func (o *WebhookOperations) DeleteWebhook(ctx context.Context, id int64) error {
	result, err := GetDB().ExecContext(ctx, DeleteWebhook, id)
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	return requireRow(result)
}

var defaultColors = []Color{
	{Name: "Black", Hex: "#000000"},
	{Name: "White", Hex: "#FFFFFF"},
	{Name: "Red", Hex: "#FF0000"},
	{Name: "Blue", Hex: "#0000FF"},
	{Name: "Yellow", Hex: "#FFFF00"},
	{Name: "Green", Hex: "#008000"},
}

var defaultPresses = []core.Press{
	{Name: "Press 1", Description: "Main printing press"},
	{Name: "Press 2", Description: "Secondary printing press"},
}

// SetupAdmin creates the first admin and seeds the defaults in one
// transaction. It returns ErrSetupComplete when any user already exists.
func SetupAdmin(ctx context.Context, admin *User, now time.Time) error {
	return inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx, CountUsers).Scan(&n); err != nil {
			return fmt.Errorf("failed to count users: %w", err)
		}
		if n > 0 {
			return ErrSetupComplete
		}
		admin.Role = RoleAdmin
		if err := insertUser(ctx, tx, admin); err != nil {
			return err
		}
		return seedDefaults(ctx, tx, now)
	})
}

// seedDefaults creates the starter colors, presses and settings document
// used by a fresh installation.
func seedDefaults(ctx context.Context, q execer, now time.Time) error {
	now = now.UTC()
	for _, c := range defaultColors {
		if _, err := q.ExecContext(ctx, InsertColor, uuid.NewString(), c.Name, c.Hex, now, now); err != nil {
			return fmt.Errorf("failed to seed color %s: %w", c.Name, err)
		}
	}
	for _, p := range defaultPresses {
		if _, err := q.ExecContext(ctx, InsertPress, uuid.NewString(), p.Name, p.Description, p.ImageURL, now, now); err != nil {
			return fmt.Errorf("failed to seed press %s: %w", p.Name, err)
		}
	}
	data, err := json.Marshal(AppSettings{})
	if err != nil {
		return fmt.Errorf("failed to encode app settings: %w", err)
	}
	if _, err := q.ExecContext(ctx, SetSetting, settingsKeyApp, string(data)); err != nil {
		return fmt.Errorf("failed to seed settings: %w", err)
	}
	return nil
}
