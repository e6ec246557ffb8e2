package domain

import (
	"context"
	"encoding/json"
	"time"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ProfileStore is the durable local store. It behaves as a dictionary
// keyed by user id whose values are JSON-serializable.
type ProfileStore interface {
	// GetProfileValue decodes the stored value into v.
	// Returns false (and leaves v untouched) if the key is absent.
	GetProfileValue(userID, key string, v any) (bool, error)

	// PutProfileValue encodes v as JSON and stores it under key.
	PutProfileValue(userID, key string, v any) error

	// DeleteProfile removes every value belonging to the user.
	DeleteProfile(userID string) error
}

// PointsStore persists points grants. Inserts are keyed by
// IdempotencyKey; a repeated key is ignored.
type PointsStore interface {
	InsertPoints(e PointsEntry) (bool, error)
	PointsBalance(userID string) (int64, error)
	PointsHistory(userID string, limit int) ([]PointsEntry, error)
	DeletePoints(userID string) error
}

// OutboxStore persists mutating operations that could not reach the
// remote authority.
type OutboxStore interface {
	EnqueueOutbox(e OutboxEntry) (bool, error)
	PendingOutbox(userID string, limit int) ([]OutboxEntry, error)
	MarkOutboxAttempt(key, lastErr string) error
	DeleteOutbox(key string) error
	DeleteUserOutbox(userID string) error
	OutboxDepth() (int, error)
}

// Authority is the capability interface to the remote authority.
// Do returns ErrRemoteUnavailable (possibly wrapped) when the remote
// cannot answer; any other error is a definitive answer.
type Authority interface {
	Do(ctx context.Context, op RemoteOp) (RemoteResult, error)
}

// ─── Remote Operations ──────────────────────────────────────────────────────

// OpKind names a remote operation.
type OpKind string

const (
	OpRecordDay       OpKind = "record_day"
	OpFetchStreak     OpKind = "fetch_streak"
	OpClaimBonus      OpKind = "claim_bonus"
	OpCompleteSession OpKind = "complete_session"
	OpBumpProgress    OpKind = "bump_progress"
)

// Mutating reports whether the op changes remote state and must be
// replayed when it could not be delivered.
func (k OpKind) Mutating() bool {
	return k != OpFetchStreak
}

// RemoteOp is one request to the remote authority. IdempotencyKey is
// derived from the semantic identity of the action, never per attempt.
type RemoteOp struct {
	Kind           OpKind          `json:"kind"`
	UserID         string          `json:"user_id"`
	IdempotencyKey string          `json:"idempotency_key"`
	Payload        json.RawMessage `json:"payload"`
}

// RemoteResult is the authority's answer.
type RemoteResult struct {
	Payload json.RawMessage `json:"payload"`
}

// OutboxEntry is a queued, not yet delivered RemoteOp.
type OutboxEntry struct {
	Op        RemoteOp  `json:"op"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"attempts"`
	LastError string    `json:"last_error,omitempty"`
}

// ─── Request Payloads ───────────────────────────────────────────────────────

// RecordDayRequest records one completion day.
type RecordDayRequest struct {
	Day CompletionDay `json:"day"`
}

// StreakRequest asks for the streak as of Today.
type StreakRequest struct {
	Today CompletionDay `json:"today"`
}

// StreakResponse is the authority's view of the ledger.
type StreakResponse struct {
	Snapshot StreakSnapshot  `json:"snapshot"`
	Days     []CompletionDay `json:"days"`
}

// ClaimRequest claims the bonus for Streak.
type ClaimRequest struct {
	Streak int           `json:"streak"`
	Today  CompletionDay `json:"today"`
}

// SessionRequest submits one completed session.
type SessionRequest struct {
	Session    FocusSession   `json:"session"`
	Outcome    SessionOutcome `json:"outcome"`
	Multiplier float64        `json:"multiplier"`
}

// BumpRequest advances one progress item.
type BumpRequest struct {
	ItemID  string    `json:"item_id"`
	Delta   int       `json:"delta"`
	EventID string    `json:"event_id"`
	At      time.Time `json:"at"`
}
