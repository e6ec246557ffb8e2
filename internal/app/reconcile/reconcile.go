// Package reconcile wraps the progress engine with the sync policy.
// When the remote authority answers, its result is authoritative and the
// local state is overwritten to match. When it cannot answer, the local
// result is returned flagged unsynced and mutating operations are queued in
// a durable outbox under their stable idempotency key for later replay.
package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/metrics"
)

// DefaultTimeout bounds one remote call.
const DefaultTimeout = 5 * time.Second

// replayBatch is how many outbox entries one replay pass reads.
const replayBatch = 100

// Source says where a result was computed.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"

	// sourceRefused marks a local write the authority refused. Callers
	// see it as SourceLocal, never unsynced.
	sourceRefused Source = "refused"
)

// Result is a reconciled value. Unsynced means the value was computed
// locally because the remote authority was unreachable and the operation
// is queued for replay. A write the authority refused keeps its local
// result but is not queued.
type Result[T any] struct {
	Value    T      `json:"value"`
	Source   Source `json:"source"`
	Unsynced bool   `json:"unsynced"`
}

// ReplayReport summarizes one outbox replay pass.
type ReplayReport struct {
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
	Pending   int `json:"pending"`
}

// Reconciler is the single sync policy object. A nil authority means
// local-only operation: results are local and nothing is queued.
type Reconciler struct {
	engine    *progress.Engine
	authority domain.Authority
	outbox    domain.OutboxStore
	timeout   time.Duration
	now       func() time.Time
	locks     progress.UserLocks
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithTimeout sets the per-call remote timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithClock sets the clock used for outbox timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// New creates a reconciler. authority may be nil.
func New(engine *progress.Engine, authority domain.Authority, outbox domain.OutboxStore, opts ...Option) *Reconciler {
	r := &Reconciler{
		engine:    engine,
		authority: authority,
		outbox:    outbox,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Engine returns the wrapped engine.
func (r *Reconciler) Engine() *progress.Engine { return r.engine }

// Remote reports whether a remote authority is configured.
func (r *Reconciler) Remote() bool { return r.authority != nil }

// ─── Reconciled Operations ──────────────────────────────────────────────────

// RecordDay records a completion day locally and on the authority.
func (r *Reconciler) RecordDay(ctx context.Context, userID string, day domain.CompletionDay) (Result[bool], error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	added, err := r.engine.RecordDay(userID, day)
	if err != nil {
		return Result[bool]{}, err
	}
	op, err := newOp(domain.OpRecordDay, userID, domain.RecordDayKey(userID, day), domain.RecordDayRequest{Day: day})
	if err != nil {
		return Result[bool]{}, err
	}
	_, src, err := r.mutate(ctx, op)
	if err != nil {
		return Result[bool]{}, err
	}
	return result(r, added, src), nil
}

// Streak returns the streak as of today. A remote answer replaces the local
// ledger with the authority's days.
func (r *Reconciler) Streak(ctx context.Context, userID string, today domain.CompletionDay) (Result[domain.StreakSnapshot], error) {
	op, err := newOp(domain.OpFetchStreak, userID, "", domain.StreakRequest{Today: today})
	if err != nil {
		return Result[domain.StreakSnapshot]{}, err
	}
	unlock := r.locks.Lock(userID)
	defer unlock()

	// With days still queued the local ledger is ahead of the authority.
	if r.pendingFor(ctx, userID) == 0 {
		res, err := r.call(ctx, op)
		if err == nil {
			var resp domain.StreakResponse
			if err := json.Unmarshal(res.Payload, &resp); err != nil {
				return Result[domain.StreakSnapshot]{}, fmt.Errorf("decode streak response: %w", err)
			}
			if err := r.engine.AdoptLedger(userID, resp.Days); err != nil {
				return Result[domain.StreakSnapshot]{}, err
			}
			return Result[domain.StreakSnapshot]{Value: resp.Snapshot, Source: SourceRemote}, nil
		}
		if r.refused(op, err) {
			snap, err := r.engine.Streak(userID, today)
			if err != nil {
				return Result[domain.StreakSnapshot]{}, err
			}
			return Result[domain.StreakSnapshot]{Value: snap, Source: SourceLocal}, nil
		}
	}

	snap, err := r.engine.Streak(userID, today)
	if err != nil {
		return Result[domain.StreakSnapshot]{}, err
	}
	return local(r, op, snap), nil
}

// ClaimBonus claims the streak bonus as of today. The claim is keyed by
// (user, streak), so a replayed claim cannot be granted twice.
func (r *Reconciler) ClaimBonus(ctx context.Context, userID string, today domain.CompletionDay) (Result[domain.ClaimResult], error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	snap, err := r.engine.Streak(userID, today)
	if err != nil {
		return Result[domain.ClaimResult]{}, err
	}
	op, err := newOp(domain.OpClaimBonus, userID, domain.BonusClaimKey(userID, snap.Current),
		domain.ClaimRequest{Streak: snap.Current, Today: today})
	if err != nil {
		return Result[domain.ClaimResult]{}, err
	}

	if r.pendingFor(ctx, userID) == 0 {
		res, err := r.call(ctx, op)
		if err == nil {
			var claim domain.ClaimResult
			if err := json.Unmarshal(res.Payload, &claim); err != nil {
				return Result[domain.ClaimResult]{}, fmt.Errorf("decode claim response: %w", err)
			}
			if err := r.engine.AdoptClaim(userID, claim); err != nil {
				return Result[domain.ClaimResult]{}, err
			}
			return Result[domain.ClaimResult]{Value: claim, Source: SourceRemote}, nil
		}
		if r.refused(op, err) {
			// The authority has seen this claim or will not pay it.
			st, err := r.engine.BonusState(userID)
			if err != nil {
				return Result[domain.ClaimResult]{}, err
			}
			metrics.BonusClaims.WithLabelValues(string(domain.RejectAlreadyClaimed)).Inc()
			claim := domain.ClaimResult{Reason: domain.RejectAlreadyClaimed, Streak: snap.Current, State: st}
			return Result[domain.ClaimResult]{Value: claim, Source: SourceRemote}, nil
		}
	}

	claim, err := r.engine.ClaimBonus(userID, today)
	if err != nil {
		return Result[domain.ClaimResult]{}, err
	}
	// Only a locally granted claim is queued; a rejection changed nothing.
	if claim.Granted && r.authority != nil {
		if err := r.enqueue(op); err != nil {
			return Result[domain.ClaimResult]{}, err
		}
	}
	return local(r, op, claim), nil
}

// SubmitSession scores and records a completed session.
func (r *Reconciler) SubmitSession(ctx context.Context, userID string, s domain.FocusSession, outcome domain.SessionOutcome, today domain.CompletionDay) (Result[progress.SessionResult], error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	if prev, ok, err := r.engine.StoredSession(userID, s.ID); err != nil {
		return Result[progress.SessionResult]{}, err
	} else if ok {
		prev.Duplicate = true
		return Result[progress.SessionResult]{Value: prev, Source: SourceLocal}, nil
	}

	snap, err := r.engine.Streak(userID, today)
	if err != nil {
		return Result[progress.SessionResult]{}, err
	}
	op, err := newOp(domain.OpCompleteSession, userID, domain.SessionKey(userID, s.ID),
		domain.SessionRequest{Session: s, Outcome: outcome, Multiplier: snap.Multiplier})
	if err != nil {
		return Result[progress.SessionResult]{}, err
	}

	if s.Status == domain.SessionCompleted && r.pendingFor(ctx, userID) == 0 {
		res, err := r.call(ctx, op)
		if err == nil {
			var breakdown domain.PointsBreakdown
			if err := json.Unmarshal(res.Payload, &breakdown); err != nil {
				return Result[progress.SessionResult]{}, fmt.Errorf("decode session response: %w", err)
			}
			out, err := r.engine.AdoptSession(userID, s, breakdown, today)
			if err != nil {
				return Result[progress.SessionResult]{}, err
			}
			return Result[progress.SessionResult]{Value: out, Source: SourceRemote}, nil
		}
		if r.refused(op, err) {
			out, err := r.engine.SubmitSession(userID, s, outcome, today)
			if err != nil {
				return Result[progress.SessionResult]{}, err
			}
			return Result[progress.SessionResult]{Value: out, Source: SourceLocal}, nil
		}
	}

	out, err := r.engine.SubmitSession(userID, s, outcome, today)
	if err != nil {
		return Result[progress.SessionResult]{}, err
	}
	if r.authority != nil {
		if err := r.enqueue(op); err != nil {
			return Result[progress.SessionResult]{}, err
		}
	}
	return local(r, op, out), nil
}

// Bump advances one progress item. eventID makes the bump replay-safe.
func (r *Reconciler) Bump(ctx context.Context, userID, itemID string, delta int, eventID string, at time.Time) (Result[domain.ProgressStatus], error) {
	if eventID == "" {
		return Result[domain.ProgressStatus]{}, domain.Invalid("bump needs an event id")
	}
	unlock := r.locks.Lock(userID)
	defer unlock()

	if at.IsZero() {
		at = r.now()
	}
	op, err := newOp(domain.OpBumpProgress, userID, domain.ProgressKey(userID, itemID, eventID),
		domain.BumpRequest{ItemID: itemID, Delta: delta, EventID: eventID, At: at})
	if err != nil {
		return Result[domain.ProgressStatus]{}, err
	}

	if r.pendingFor(ctx, userID) == 0 {
		res, err := r.call(ctx, op)
		if err == nil {
			var st domain.ProgressStatus
			if err := json.Unmarshal(res.Payload, &st); err != nil {
				return Result[domain.ProgressStatus]{}, fmt.Errorf("decode bump response: %w", err)
			}
			if err := r.engine.AdoptItem(userID, st); err != nil {
				return Result[domain.ProgressStatus]{}, err
			}
			return Result[domain.ProgressStatus]{Value: st, Source: SourceRemote}, nil
		}
		if r.refused(op, err) {
			st, err := r.engine.Bump(userID, itemID, delta, eventID, at)
			if err != nil {
				return Result[domain.ProgressStatus]{}, err
			}
			return Result[domain.ProgressStatus]{Value: st, Source: SourceLocal}, nil
		}
	}

	st, err := r.engine.Bump(userID, itemID, delta, eventID, at)
	if err != nil {
		return Result[domain.ProgressStatus]{}, err
	}
	if r.authority != nil {
		if err := r.enqueue(op); err != nil {
			return Result[domain.ProgressStatus]{}, err
		}
	}
	return local(r, op, st), nil
}

// Apply feeds an activity event to the engine. Item progress from events is
// computed locally; a newly recorded day is synced to the authority.
func (r *Reconciler) Apply(ctx context.Context, userID string, ev domain.ActivityEvent) (Result[progress.ApplyResult], error) {
	unlock := r.locks.Lock(userID)
	defer unlock()

	applied, err := r.engine.Apply(userID, ev)
	if err != nil {
		return Result[progress.ApplyResult]{}, err
	}
	if !applied.DayAdded {
		return Result[progress.ApplyResult]{Value: applied, Source: SourceLocal}, nil
	}

	day := ev.Day
	if day.IsZero() {
		day = domain.DayOf(ev.At)
	}
	op, err := newOp(domain.OpRecordDay, userID, domain.RecordDayKey(userID, day), domain.RecordDayRequest{Day: day})
	if err != nil {
		return Result[progress.ApplyResult]{}, err
	}
	_, src, err := r.mutate(ctx, op)
	if err != nil {
		return Result[progress.ApplyResult]{}, err
	}
	return result(r, applied, src), nil
}

// Reset wipes the user's local progress and discards their unsynced ops.
func (r *Reconciler) Reset(userID string) error {
	unlock := r.locks.Lock(userID)
	defer unlock()

	if err := r.engine.Reset(userID); err != nil {
		return err
	}
	if err := r.outbox.DeleteUserOutbox(userID); err != nil {
		return fmt.Errorf("clear outbox: %w", err)
	}
	r.updateDepth()
	return nil
}

// Pending returns the user's unsynced operations, oldest first.
func (r *Reconciler) Pending(userID string) ([]domain.OutboxEntry, error) {
	return r.outbox.PendingOutbox(userID, 0)
}

// ─── Replay ─────────────────────────────────────────────────────────────────

// Replay delivers the user's queued operations in order. Each entry is sent
// with its stored key; a delivered or rejected entry is removed, and the
// pass stops at the first entry the authority still cannot take.
func (r *Reconciler) Replay(ctx context.Context, userID string) (ReplayReport, error) {
	if userID == "" {
		return ReplayReport{}, domain.ErrUnknownUser
	}
	unlock := r.locks.Lock(userID)
	defer unlock()
	return r.replay(ctx, userID)
}

// ReplayAll replays every user's queue. Used by the background loop.
func (r *Reconciler) ReplayAll(ctx context.Context) (ReplayReport, error) {
	entries, err := r.outbox.PendingOutbox("", replayBatch)
	if err != nil {
		return ReplayReport{}, fmt.Errorf("read outbox: %w", err)
	}
	seen := make(map[string]bool)
	var total ReplayReport
	for _, e := range entries {
		if seen[e.Op.UserID] {
			continue
		}
		seen[e.Op.UserID] = true
		rep, err := r.Replay(ctx, e.Op.UserID)
		if err != nil {
			return total, err
		}
		total.Delivered += rep.Delivered
		total.Dropped += rep.Dropped
		total.Pending += rep.Pending
	}
	return total, nil
}

func (r *Reconciler) replay(ctx context.Context, userID string) (ReplayReport, error) {
	var rep ReplayReport
	if r.authority == nil {
		return rep, domain.ErrRemoteNotConfigured
	}
	defer r.updateDepth()

	entries, err := r.outbox.PendingOutbox(userID, replayBatch)
	if err != nil {
		return rep, fmt.Errorf("read outbox: %w", err)
	}
	for i, e := range entries {
		res, err := r.call(ctx, e.Op)
		switch {
		case err == nil:
			if err := r.adoptReplayed(e.Op, res); err != nil {
				log.Printf("[reconcile] replay %s %s: adopt result: %v", e.Op.Kind, e.Op.IdempotencyKey, err)
			}
			if err := r.outbox.DeleteOutbox(e.Op.IdempotencyKey); err != nil {
				return rep, fmt.Errorf("delete outbox entry: %w", err)
			}
			rep.Delivered++
			metrics.OutboxReplays.WithLabelValues("delivered").Inc()

		case isUnavailable(err):
			if err := r.outbox.MarkOutboxAttempt(e.Op.IdempotencyKey, err.Error()); err != nil {
				return rep, fmt.Errorf("mark outbox attempt: %w", err)
			}
			metrics.OutboxReplays.WithLabelValues("deferred").Inc()
			rep.Pending = len(entries) - i
			return rep, nil

		default:
			log.Printf("[reconcile] WARNING: dropping %s %s for user %s: %v", e.Op.Kind, e.Op.IdempotencyKey, userID, err)
			if err := r.outbox.DeleteOutbox(e.Op.IdempotencyKey); err != nil {
				return rep, fmt.Errorf("delete outbox entry: %w", err)
			}
			rep.Dropped++
			metrics.OutboxReplays.WithLabelValues("dropped").Inc()
		}
	}
	if rep.Delivered+rep.Dropped > 0 {
		log.Printf("[reconcile] replayed user %s: %d delivered, %d dropped", userID, rep.Delivered, rep.Dropped)
	}
	return rep, nil
}

// adoptReplayed applies the authority's answer to a replayed op where the
// answer can differ from what was computed offline.
func (r *Reconciler) adoptReplayed(op domain.RemoteOp, res domain.RemoteResult) error {
	if len(res.Payload) == 0 {
		return nil
	}
	switch op.Kind {
	case domain.OpClaimBonus:
		var claim domain.ClaimResult
		if err := json.Unmarshal(res.Payload, &claim); err != nil {
			return err
		}
		return r.engine.AdoptClaim(op.UserID, claim)
	case domain.OpBumpProgress:
		var st domain.ProgressStatus
		if err := json.Unmarshal(res.Payload, &st); err != nil {
			return err
		}
		return r.engine.AdoptItem(op.UserID, st)
	case domain.OpCompleteSession:
		var req domain.SessionRequest
		if err := json.Unmarshal(op.Payload, &req); err != nil {
			return err
		}
		var breakdown domain.PointsBreakdown
		if err := json.Unmarshal(res.Payload, &breakdown); err != nil {
			return err
		}
		_, _, err := r.engine.ReviseSession(op.UserID, req.Session.ID, breakdown)
		return err
	}
	return nil
}

// ─── Remote Path ────────────────────────────────────────────────────────────

// mutate sends op to the authority, queueing it if the authority cannot
// take it now. Pending ops for the user go first to keep them in order.
// A refused op is not queued; the caller keeps its local result.
func (r *Reconciler) mutate(ctx context.Context, op domain.RemoteOp) (domain.RemoteResult, Source, error) {
	if r.authority == nil {
		return domain.RemoteResult{}, SourceLocal, nil
	}
	if r.pendingFor(ctx, op.UserID) == 0 {
		res, err := r.call(ctx, op)
		if err == nil {
			return res, SourceRemote, nil
		}
		if r.refused(op, err) {
			return domain.RemoteResult{}, sourceRefused, nil
		}
	}
	metrics.LocalFallbacks.WithLabelValues(string(op.Kind)).Inc()
	return domain.RemoteResult{}, SourceLocal, r.enqueue(op)
}

// call performs one remote call under the reconciler timeout.
func (r *Reconciler) call(ctx context.Context, op domain.RemoteOp) (domain.RemoteResult, error) {
	if r.authority == nil {
		return domain.RemoteResult{}, domain.ErrRemoteNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	res, err := r.authority.Do(ctx, op)
	metrics.RemoteLatency.WithLabelValues(string(op.Kind)).Observe(time.Since(start).Seconds())

	outcome := "ok"
	switch {
	case err == nil:
	case isUnavailable(err):
		outcome = "unavailable"
	case errors.Is(err, domain.ErrRemoteRejected):
		outcome = "rejected"
	default:
		outcome = "error"
	}
	metrics.RemoteCalls.WithLabelValues(string(op.Kind), outcome).Inc()
	return res, err
}

// refused reports whether the authority answered but would not take op.
// Replaying such an op would be refused the same way, so it is never queued.
func (r *Reconciler) refused(op domain.RemoteOp, err error) bool {
	if err == nil || isUnavailable(err) {
		return false
	}
	log.Printf("[reconcile] WARNING: authority refused %s %s for user %s, keeping local result: %v",
		op.Kind, op.IdempotencyKey, op.UserID, err)
	return true
}

// pendingFor replays the user's queue and returns what is left. New
// mutating ops go to the authority only behind an empty queue.
func (r *Reconciler) pendingFor(ctx context.Context, userID string) int {
	if r.authority == nil {
		return 0
	}
	pending, err := r.outbox.PendingOutbox(userID, 1)
	if err != nil {
		log.Printf("[reconcile] read outbox for %s: %v", userID, err)
		return 1
	}
	if len(pending) == 0 {
		return 0
	}
	rep, err := r.replay(ctx, userID)
	if err != nil {
		log.Printf("[reconcile] replay for %s: %v", userID, err)
		return 1
	}
	return rep.Pending
}

func (r *Reconciler) enqueue(op domain.RemoteOp) error {
	inserted, err := r.outbox.EnqueueOutbox(domain.OutboxEntry{Op: op, CreatedAt: r.now()})
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", op.Kind, err)
	}
	if inserted {
		log.Printf("[reconcile] queued %s for user %s (remote unavailable)", op.Kind, op.UserID)
	}
	r.updateDepth()
	return nil
}

func (r *Reconciler) updateDepth() {
	n, err := r.outbox.OutboxDepth()
	if err != nil {
		return
	}
	metrics.OutboxDepth.Set(float64(n))
}

// local wraps a value computed on the local path. It is unsynced only when
// an authority is configured.
func local[T any](r *Reconciler, op domain.RemoteOp, v T) Result[T] {
	if r.authority == nil {
		return Result[T]{Value: v, Source: SourceLocal}
	}
	metrics.LocalFallbacks.WithLabelValues(string(op.Kind)).Inc()
	return Result[T]{Value: v, Source: SourceLocal, Unsynced: true}
}

func result[T any](r *Reconciler, v T, src Source) Result[T] {
	if src == sourceRefused {
		return Result[T]{Value: v, Source: SourceLocal}
	}
	return Result[T]{Value: v, Source: src, Unsynced: r.authority != nil && src == SourceLocal}
}

func newOp(kind domain.OpKind, userID, key string, payload any) (domain.RemoteOp, error) {
	if userID == "" {
		return domain.RemoteOp{}, domain.ErrUnknownUser
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return domain.RemoteOp{}, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	return domain.RemoteOp{Kind: kind, UserID: userID, IdempotencyKey: key, Payload: raw}, nil
}

// isUnavailable reports whether err means the authority could not answer.
// A timeout or cancellation counts as unavailable.
func isUnavailable(err error) bool {
	return errors.Is(err, domain.ErrRemoteUnavailable) ||
		errors.Is(err, domain.ErrRemoteNotConfigured) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled)
}
