package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// ─── Profile Key-Value ──────────────────────────────────────────────────────

// PutProfileValue stores v as JSON under (userID, key).
func (d *DB) PutProfileValue(userID, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = d.db.Exec(
		`INSERT INTO profile_kv (user_id, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		userID, key, string(raw), time.Now().UnixNano(),
	)
	return err
}

// GetProfileValue decodes the value under (userID, key) into v.
// Returns false if the key is absent.
func (d *DB) GetProfileValue(userID, key string, v any) (bool, error) {
	var raw string
	err := d.db.QueryRow(
		`SELECT value FROM profile_kv WHERE user_id = ? AND key = ?`, userID, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// DeleteProfile removes all profile values of a user.
func (d *DB) DeleteProfile(userID string) error {
	_, err := d.db.Exec(`DELETE FROM profile_kv WHERE user_id = ?`, userID)
	return err
}

// ProfileUsers lists every user id that has stored state.
func (d *DB) ProfileUsers() ([]string, error) {
	rows, err := d.db.Query(`SELECT DISTINCT user_id FROM profile_kv ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ─── Points Ledger ──────────────────────────────────────────────────────────

// InsertPoints records a grant. Returns false if the idempotency key was
// already recorded (nothing inserted).
func (d *DB) InsertPoints(e domain.PointsEntry) (bool, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	result, err := d.db.Exec(
		`INSERT OR IGNORE INTO points_ledger (user_id, idempotency_key, amount, source, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.UserID, e.IdempotencyKey, e.Amount, string(e.Source), e.Reason, e.CreatedAt.UnixNano(),
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// PointsBalance returns the sum of all grants for a user.
func (d *DB) PointsBalance(userID string) (int64, error) {
	var total sql.NullInt64
	err := d.db.QueryRow(
		`SELECT SUM(amount) FROM points_ledger WHERE user_id = ?`, userID,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

// PointsHistory returns the most recent grants, newest first.
func (d *DB) PointsHistory(userID string, limit int) ([]domain.PointsEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := d.db.Query(
		`SELECT id, user_id, idempotency_key, amount, source, reason, created_at
		 FROM points_ledger WHERE user_id = ? ORDER BY id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.PointsEntry
	for rows.Next() {
		e, err := scanPoints(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeletePoints removes all grants of a user.
func (d *DB) DeletePoints(userID string) error {
	_, err := d.db.Exec(`DELETE FROM points_ledger WHERE user_id = ?`, userID)
	return err
}

func scanPoints(s scanner) (domain.PointsEntry, error) {
	var e domain.PointsEntry
	var source string
	var reason sql.NullString
	var createdAt int64
	if err := s.Scan(&e.ID, &e.UserID, &e.IdempotencyKey, &e.Amount, &source, &reason, &createdAt); err != nil {
		return e, err
	}
	e.Source = domain.PointsSource(source)
	e.Reason = reason.String
	e.CreatedAt = fromUnixNano(createdAt)
	return e, nil
}

// ─── Outbox ─────────────────────────────────────────────────────────────────

// EnqueueOutbox stores an undelivered op. Returns false if an entry with
// the same idempotency key is already queued.
func (d *DB) EnqueueOutbox(e domain.OutboxEntry) (bool, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	result, err := d.db.Exec(
		`INSERT OR IGNORE INTO outbox (idempotency_key, user_id, kind, payload, created_at, attempts, last_error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Op.IdempotencyKey, e.Op.UserID, string(e.Op.Kind), string(e.Op.Payload),
		e.CreatedAt.UnixNano(), e.Attempts, e.LastError,
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// PendingOutbox returns queued ops for a user in enqueue order.
// An empty userID returns ops of every user.
func (d *DB) PendingOutbox(userID string, limit int) ([]domain.OutboxEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT idempotency_key, user_id, kind, payload, created_at, attempts, last_error
		 FROM outbox`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.OutboxEntry
	for rows.Next() {
		var e domain.OutboxEntry
		var kind, payload string
		var createdAt int64
		var lastErr sql.NullString
		if err := rows.Scan(&e.Op.IdempotencyKey, &e.Op.UserID, &kind, &payload,
			&createdAt, &e.Attempts, &lastErr); err != nil {
			return nil, err
		}
		e.Op.Kind = domain.OpKind(kind)
		e.Op.Payload = json.RawMessage(payload)
		e.CreatedAt = fromUnixNano(createdAt)
		e.LastError = lastErr.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// MarkOutboxAttempt records a failed delivery attempt.
func (d *DB) MarkOutboxAttempt(key, lastErr string) error {
	_, err := d.db.Exec(
		`UPDATE outbox SET attempts = attempts + 1, last_error = ? WHERE idempotency_key = ?`,
		lastErr, key,
	)
	return err
}

// DeleteOutbox removes a delivered (or dropped) op.
func (d *DB) DeleteOutbox(key string) error {
	_, err := d.db.Exec(`DELETE FROM outbox WHERE idempotency_key = ?`, key)
	return err
}

// DeleteUserOutbox removes every queued op of a user.
func (d *DB) DeleteUserOutbox(userID string) error {
	_, err := d.db.Exec(`DELETE FROM outbox WHERE user_id = ?`, userID)
	return err
}

// OutboxDepth returns the number of queued ops across all users.
func (d *DB) OutboxDepth() (int, error) {
	var count int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM outbox`).Scan(&count)
	return count, err
}

// Compile-time interface checks.
var (
	_ domain.ProfileStore = (*DB)(nil)
	_ domain.PointsStore  = (*DB)(nil)
	_ domain.OutboxStore  = (*DB)(nil)
)
