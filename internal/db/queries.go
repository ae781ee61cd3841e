package db

const jobColumns = `id, title, quantity, hot, status, press_id, press_name,
	front_color1, front_color2, back_color1, back_color2, plate_bin, notes, image_url,
	created_by_id, created_by_first, created_by_last, created_at, updated_at, completed_at`

const (
	InsertJob = `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	GetJobByID = `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`

	ListJobs = `SELECT ` + jobColumns + ` FROM jobs ORDER BY created_at DESC`

	UpdateJob = `
		UPDATE jobs SET
			title = ?, quantity = ?, hot = ?, status = ?, press_id = ?, press_name = ?,
			front_color1 = ?, front_color2 = ?, back_color1 = ?, back_color2 = ?,
			plate_bin = ?, notes = ?, image_url = ?, created_at = ?, updated_at = ?
		WHERE id = ?
	`

	CompleteJob = `
		UPDATE jobs SET status = 'completed', completed_at = ?, updated_at = ?
		WHERE id = ? AND status != 'completed'
	`

	DeleteJob = `DELETE FROM jobs WHERE id = ?`
)

const (
	InsertPress = `
		INSERT INTO presses (id, name, description, image_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	GetPressByID = `
		SELECT id, name, description, image_url, created_at, updated_at
		FROM presses WHERE id = ?
	`

	ListPresses = `
		SELECT id, name, description, image_url, created_at, updated_at
		FROM presses ORDER BY name ASC
	`

	UpdatePress = `
		UPDATE presses SET name = ?, description = ?, image_url = ?, updated_at = ? WHERE id = ?
	`

	DeletePress = `DELETE FROM presses WHERE id = ?`
)

const (
	InsertColor = `
		INSERT INTO colors (id, name, hex, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`

	GetColorByID = `SELECT id, name, hex, created_at, updated_at FROM colors WHERE id = ?`

	ListColors = `SELECT id, name, hex, created_at, updated_at FROM colors ORDER BY name ASC`

	UpdateColor = `UPDATE colors SET name = ?, hex = ?, updated_at = ? WHERE id = ?`

	DeleteColor = `DELETE FROM colors WHERE id = ?`
)

const (
	InsertUser = `
		INSERT INTO users (id, email, first_name, last_name, role, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	GetUserByID = `
		SELECT id, email, first_name, last_name, role, password_hash, created_at
		FROM users WHERE id = ?
	`

	GetUserByEmail = `
		SELECT id, email, first_name, last_name, role, password_hash, created_at
		FROM users WHERE email = ?
	`

	ListUsers = `
		SELECT id, email, first_name, last_name, role, password_hash, created_at
		FROM users ORDER BY last_name ASC, first_name ASC
	`

	UpdateUser = `
		UPDATE users SET email = ?, first_name = ?, last_name = ?, role = ? WHERE id = ?
	`

	UpdateUserPassword = `UPDATE users SET password_hash = ? WHERE id = ?`

	CountUsers = `SELECT COUNT(*) FROM users`

	DeleteUser = `DELETE FROM users WHERE id = ?`
)

const (
	GetSetting = `SELECT value, updated_at FROM settings WHERE key = ?`

	SetSetting = `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`

	DeleteSetting = `DELETE FROM settings WHERE key = ?`
)

const (
	InsertWebhook = `
		INSERT INTO webhooks (name, url, secret, events_json, enabled)
		VALUES (?, ?, ?, ?, ?)
	`

	GetWebhookByID = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE id = ?
	`

	ListWebhooks = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks ORDER BY name ASC
	`

	ListWebhooksForEvent = `
		SELECT id, name, url, secret, events_json, enabled, created_at
		FROM webhooks WHERE enabled = 1 AND events_json LIKE ?
	`

	UpdateWebhook = `
		UPDATE webhooks SET name = ?, url = ?, secret = ?, events_json = ?, enabled = ? WHERE id = ?
	`

	DeleteWebhook = `DELETE FROM webhooks WHERE id = ?`
)

const (
	GetAppliedMigrations = `SELECT version FROM schema_migrations`
)
