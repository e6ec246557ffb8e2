package progress

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/app/points"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/metrics"
)

// Profile keys in the durable store.
const (
	keyLedger        = "ledger"
	keyBonus         = "bonus_claim"
	keyItems         = "items"
	keyEvents        = "events"
	keySessionPrefix = "session:"
)

// maxRememberedEvents bounds the replay-detection window per user.
const maxRememberedEvents = 1000

// ─── Per-User Locks ─────────────────────────────────────────────────────────

// UserLocks serializes work per user id. The zero value is ready to use.
type UserLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Lock acquires the user's lock and returns its release func.
func (l *UserLocks) Lock(userID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// ─── Engine ─────────────────────────────────────────────────────────────────

// Engine applies activity to one user's durable progress state.
// Claims, session submissions and writes are serialized per user;
// reads take no lock.
type Engine struct {
	profiles domain.ProfileStore
	points   *points.Service
	catalog  Catalog
	now      func() time.Time
	debug    bool
	locks    UserLocks
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog replaces the default item catalog.
func WithCatalog(c Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithClock sets the clock used for unlock timestamps and challenge expiry
// when an event carries no time of its own.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithDebug enables per-operation trace logging.
func WithDebug(on bool) Option {
	return func(e *Engine) { e.debug = on }
}

// NewEngine creates an engine over the durable store.
func NewEngine(profiles domain.ProfileStore, pts *points.Service, opts ...Option) *Engine {
	e := &Engine{
		profiles: profiles,
		points:   pts,
		catalog:  DefaultCatalog(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Points returns the engine's points service.
func (e *Engine) Points() *points.Service { return e.points }

// Catalog returns the engine's item catalog.
func (e *Engine) Catalog() Catalog { return e.catalog }

// ApplyResult is the outcome of one activity event.
type ApplyResult struct {
	Duplicate bool                    `json:"duplicate"`
	DayAdded  bool                    `json:"day_added"`
	Streak    domain.StreakSnapshot   `json:"streak"`
	Progress  []domain.ProgressStatus `json:"progress,omitempty"`
}

// SessionResult is the outcome of a session submission.
type SessionResult struct {
	Session   domain.FocusSession     `json:"session"`
	Breakdown domain.PointsBreakdown  `json:"breakdown"`
	Progress  []domain.ProgressStatus `json:"progress,omitempty"`
	Duplicate bool                    `json:"duplicate"`
}

// ─── Ledger & Streak ────────────────────────────────────────────────────────

// Ledger loads the user's completion ledger.
func (e *Engine) Ledger(userID string) (*Ledger, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	var days []domain.CompletionDay
	if _, err := e.profiles.GetProfileValue(userID, keyLedger, &days); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return NewLedger(days...), nil
}

// RecordDay adds a completion day. Returns false if it was already there.
func (e *Engine) RecordDay(userID string, day domain.CompletionDay) (bool, error) {
	if day.IsZero() {
		return false, domain.Invalid("completion day is required")
	}
	if err := requireUser(userID); err != nil {
		return false, err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	l, err := e.Ledger(userID)
	if err != nil {
		return false, err
	}
	if !l.Add(day) {
		return false, nil
	}
	return true, e.saveLedger(userID, l)
}

// Streak computes the user's streak as of today.
func (e *Engine) Streak(userID string, today domain.CompletionDay) (domain.StreakSnapshot, error) {
	l, err := e.Ledger(userID)
	if err != nil {
		return domain.StreakSnapshot{}, err
	}
	return ComputeStreak(l, today), nil
}

// AdoptLedger overwrites the local ledger with the authority's days.
func (e *Engine) AdoptLedger(userID string, days []domain.CompletionDay) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()
	return e.saveLedger(userID, NewLedger(days...))
}

func (e *Engine) saveLedger(userID string, l *Ledger) error {
	if err := e.profiles.PutProfileValue(userID, keyLedger, l.Days()); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// ─── Streak Bonus ───────────────────────────────────────────────────────────

// BonusState loads the user's claim state.
func (e *Engine) BonusState(userID string) (domain.BonusClaimState, error) {
	var st domain.BonusClaimState
	if err := requireUser(userID); err != nil {
		return st, err
	}
	if _, err := e.profiles.GetProfileValue(userID, keyBonus, &st); err != nil {
		return st, fmt.Errorf("load bonus state: %w", err)
	}
	return st, nil
}

// BonusAvailable reports whether a bonus can be claimed as of today.
func (e *Engine) BonusAvailable(userID string, today domain.CompletionDay) (bool, domain.StreakSnapshot, error) {
	snap, err := e.Streak(userID, today)
	if err != nil {
		return false, snap, err
	}
	st, err := e.BonusState(userID)
	if err != nil {
		return false, snap, err
	}
	return IsBonusAvailable(snap.Current, st.LastClaimedStreak), snap, nil
}

// ClaimBonus claims the streak bonus as of today. A rejection is a normal
// result. The grant is keyed by (user, streak), so a replay never pays
// twice even if the claim state was lost.
func (e *Engine) ClaimBonus(userID string, today domain.CompletionDay) (domain.ClaimResult, error) {
	if err := requireUser(userID); err != nil {
		return domain.ClaimResult{}, err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	snap, err := e.Streak(userID, today)
	if err != nil {
		return domain.ClaimResult{}, err
	}
	st, err := e.BonusState(userID)
	if err != nil {
		return domain.ClaimResult{}, err
	}

	result, err := ClaimBonus(snap.Current, st)
	if err != nil {
		return domain.ClaimResult{}, err
	}
	if err := e.commitClaim(userID, result); err != nil {
		return domain.ClaimResult{}, err
	}
	return result, nil
}

// AdoptClaim overwrites local claim state with the authority's result and
// records its grant.
func (e *Engine) AdoptClaim(userID string, result domain.ClaimResult) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	if err := e.profiles.PutProfileValue(userID, keyBonus, result.State); err != nil {
		return fmt.Errorf("save bonus state: %w", err)
	}
	if result.Granted {
		_, err := e.points.Grant(userID, domain.BonusClaimKey(userID, result.Streak),
			result.PointsGranted, domain.PointsStreakBonus, "streak bonus "+strconv.Itoa(result.Streak))
		return err
	}
	return nil
}

func (e *Engine) commitClaim(userID string, result domain.ClaimResult) error {
	outcome := "granted"
	if !result.Granted {
		outcome = string(result.Reason)
	}
	metrics.BonusClaims.WithLabelValues(outcome).Inc()
	e.debugf("claim user=%s streak=%d outcome=%s", userID, result.Streak, outcome)

	if !result.Granted {
		return nil
	}
	if err := e.profiles.PutProfileValue(userID, keyBonus, result.State); err != nil {
		return fmt.Errorf("save bonus state: %w", err)
	}
	_, err := e.points.Grant(userID, domain.BonusClaimKey(userID, result.Streak),
		result.PointsGranted, domain.PointsStreakBonus, "streak bonus "+strconv.Itoa(result.Streak))
	return err
}

// ─── Sessions ───────────────────────────────────────────────────────────────

// SubmitSession scores a completed session with the multiplier of the
// streak as of today, grants its points, and applies it as activity.
// Resubmitting the same session returns the stored result.
func (e *Engine) SubmitSession(userID string, s domain.FocusSession, outcome domain.SessionOutcome, today domain.CompletionDay) (SessionResult, error) {
	return e.submitSession(userID, s, today, func(multiplier float64) (domain.PointsBreakdown, error) {
		return ScoreOutcome(s.Type, outcome, multiplier)
	})
}

// AdoptSession records a session whose breakdown came from the authority.
func (e *Engine) AdoptSession(userID string, s domain.FocusSession, breakdown domain.PointsBreakdown, today domain.CompletionDay) (SessionResult, error) {
	return e.submitSession(userID, s, today, func(float64) (domain.PointsBreakdown, error) {
		return breakdown, nil
	})
}

// StoredSession returns a previously submitted session result.
func (e *Engine) StoredSession(userID, sessionID string) (SessionResult, bool, error) {
	var res SessionResult
	ok, err := e.profiles.GetProfileValue(userID, keySessionPrefix+sessionID, &res)
	return res, ok, err
}

// ReviseSession replaces the stored breakdown of a submitted session with
// the authority's and books the difference as a correction. It reports
// false when no result is stored for the session.
func (e *Engine) ReviseSession(userID, sessionID string, breakdown domain.PointsBreakdown) (SessionResult, bool, error) {
	if err := requireUser(userID); err != nil {
		return SessionResult{}, false, err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	res, ok, err := e.StoredSession(userID, sessionID)
	if err != nil {
		return SessionResult{}, false, fmt.Errorf("load session result: %w", err)
	}
	if !ok {
		return SessionResult{}, false, nil
	}
	delta := breakdown.Total - res.Breakdown.Total
	if delta == 0 {
		return res, true, nil
	}
	if _, err := e.points.Adjust(userID, domain.SessionCorrectionKey(userID, sessionID), delta,
		string(res.Session.Type)+" session rescored"); err != nil {
		return SessionResult{}, false, err
	}
	res.Breakdown = breakdown
	if err := e.profiles.PutProfileValue(userID, keySessionPrefix+sessionID, res); err != nil {
		return SessionResult{}, false, fmt.Errorf("save session result: %w", err)
	}
	e.debugf("session user=%s id=%s rescored delta=%d", userID, sessionID, delta)
	return res, true, nil
}

func (e *Engine) submitSession(userID string, s domain.FocusSession, today domain.CompletionDay,
	score func(multiplier float64) (domain.PointsBreakdown, error)) (SessionResult, error) {
	if err := requireUser(userID); err != nil {
		return SessionResult{}, err
	}
	if s.ID == "" {
		return SessionResult{}, domain.Invalid("session id is required")
	}
	if s.Status != domain.SessionCompleted {
		err := &domain.TransitionError{SessionID: s.ID, From: s.Status, Action: "submit"}
		log.Printf("[progress] ERROR state machine violation: %v", err)
		return SessionResult{}, err
	}

	unlock := e.locks.Lock(userID)
	defer unlock()

	if prev, ok, err := e.StoredSession(userID, s.ID); err != nil {
		return SessionResult{}, fmt.Errorf("load session result: %w", err)
	} else if ok {
		prev.Duplicate = true
		prev.Progress = nil
		return prev, nil
	}

	l, err := e.Ledger(userID)
	if err != nil {
		return SessionResult{}, err
	}
	breakdown, err := score(ComputeStreak(l, today).Multiplier)
	if err != nil {
		return SessionResult{}, err
	}

	if _, err := e.points.Grant(userID, domain.SessionKey(userID, s.ID), breakdown.Total,
		domain.PointsSession, string(s.Type)+" session"); err != nil {
		return SessionResult{}, err
	}
	metrics.SessionsScored.WithLabelValues(string(s.Type)).Inc()
	metrics.SessionPoints.Observe(float64(breakdown.Total))

	at := s.CompletedAt
	if at.IsZero() {
		at = e.now()
	}
	applied, err := e.apply(userID, domain.ActivityEvent{
		ID:   "session:" + s.ID,
		Type: domain.EventSessionCompleted,
		Day:  today,
		At:   at,
		Payload: domain.EventPayload{
			SessionType:     s.Type,
			DurationMinutes: s.DurationMinutes,
		},
	})
	if err != nil {
		return SessionResult{}, err
	}

	res := SessionResult{Session: s, Breakdown: breakdown}
	if err := e.profiles.PutProfileValue(userID, keySessionPrefix+s.ID, res); err != nil {
		return SessionResult{}, fmt.Errorf("save session result: %w", err)
	}
	res.Progress = applied.Progress
	e.debugf("session user=%s id=%s type=%s total=%d", userID, s.ID, s.Type, breakdown.Total)
	return res, nil
}

// ─── Activity Events ────────────────────────────────────────────────────────

// Apply feeds one activity event into the ledger and the tracker.
// Events are deduplicated by ID; a replay reports Duplicate and changes
// nothing.
func (e *Engine) Apply(userID string, ev domain.ActivityEvent) (ApplyResult, error) {
	if err := requireUser(userID); err != nil {
		return ApplyResult{}, err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()
	return e.apply(userID, ev)
}

func (e *Engine) apply(userID string, ev domain.ActivityEvent) (ApplyResult, error) {
	if ev.ID == "" {
		return ApplyResult{}, domain.Invalid("event id is required")
	}
	day := ev.Day
	if day.IsZero() {
		if ev.At.IsZero() {
			return ApplyResult{}, domain.Invalid("event %s needs a day or a timestamp", ev.ID)
		}
		day = domain.DayOf(ev.At)
	}
	at := ev.At
	if at.IsZero() {
		at = e.now()
	}

	seen, err := e.loadEvents(userID)
	if err != nil {
		return ApplyResult{}, err
	}
	if seen.has(ev.ID) {
		snap, err := e.Streak(userID, day)
		return ApplyResult{Duplicate: true, Streak: snap}, err
	}

	l, err := e.Ledger(userID)
	if err != nil {
		return ApplyResult{}, err
	}
	items, err := e.loadItems(userID, at)
	if err != nil {
		return ApplyResult{}, err
	}

	bumps := make(map[domain.Metric]int)
	var dayAdded bool
	switch ev.Type {
	case domain.EventTaskCompleted:
		count := ev.Payload.Count
		if count < 0 {
			return ApplyResult{}, domain.Invalid("task count must be non-negative, got %d", count)
		}
		if count == 0 {
			count = 1
		}
		dayAdded = l.Add(day)
		bumps[domain.MetricTasksCompleted] += count

	case domain.EventSessionCompleted:
		if ev.Payload.DurationMinutes < 0 {
			return ApplyResult{}, domain.Invalid("session duration must be non-negative, got %d", ev.Payload.DurationMinutes)
		}
		if ev.Payload.SessionType != "" {
			if _, err := domain.ParseSessionType(string(ev.Payload.SessionType)); err != nil {
				return ApplyResult{}, err
			}
		}
		dayAdded = l.Add(day)
		bumps[domain.MetricSessionsCompleted]++
		bumps[domain.MetricFocusMinutes] += ev.Payload.DurationMinutes
		if ev.Payload.SessionType == domain.SessionDeepWork {
			bumps[domain.MetricDeepWorkSessions]++
		}

	case domain.EventDayRollover:
		items = e.refreshChallenges(items, at)

	default:
		return ApplyResult{}, domain.Invalid("unknown event type %q", ev.Type)
	}
	if dayAdded {
		bumps[domain.MetricActiveDays]++
		if err := e.saveLedger(userID, l); err != nil {
			return ApplyResult{}, err
		}
	}

	snap := ComputeStreak(l, day)
	var statuses []domain.ProgressStatus
	for i, item := range items {
		delta := bumps[item.Metric]
		if item.Metric == domain.MetricStreakDays {
			delta = snap.Current - item.Progress
		}
		if delta == 0 {
			continue
		}
		st, err := BumpProgress(item, delta, at)
		if err != nil {
			return ApplyResult{}, err
		}
		items[i] = st.Item
		statuses = append(statuses, st)
	}

	if err := e.saveItems(userID, items); err != nil {
		return ApplyResult{}, err
	}
	seen.add(ev.ID)
	if err := e.saveEvents(userID, seen); err != nil {
		return ApplyResult{}, err
	}
	if err := e.grantRewards(userID, statuses); err != nil {
		return ApplyResult{}, err
	}

	e.debugf("apply user=%s event=%s type=%s day=%s streak=%d", userID, ev.ID, ev.Type, day, snap.Current)
	return ApplyResult{DayAdded: dayAdded, Streak: snap, Progress: statuses}, nil
}

// ─── Progress Items ─────────────────────────────────────────────────────────

// Items returns the user's items, seeding them from the catalog on first
// access and adding the current week's challenges.
func (e *Engine) Items(userID string) ([]domain.ProgressItem, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	now := e.now()
	items, err := e.loadItems(userID, now)
	if err != nil {
		return nil, err
	}
	items = e.refreshChallenges(items, now)
	if err := e.saveItems(userID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// Bump applies a delta to one item. A non-empty eventID deduplicates the
// bump; a replay returns the current status unchanged.
func (e *Engine) Bump(userID, itemID string, delta int, eventID string, at time.Time) (domain.ProgressStatus, error) {
	if err := requireUser(userID); err != nil {
		return domain.ProgressStatus{}, err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	if at.IsZero() {
		at = e.now()
	}
	items, err := e.loadItems(userID, at)
	if err != nil {
		return domain.ProgressStatus{}, err
	}
	idx := indexOf(items, itemID)
	if idx < 0 {
		return domain.ProgressStatus{}, fmt.Errorf("%w: %s", domain.ErrItemNotFound, itemID)
	}

	seen, err := e.loadEvents(userID)
	if err != nil {
		return domain.ProgressStatus{}, err
	}
	if eventID != "" && seen.has("bump:"+eventID) {
		item := items[idx]
		return domain.ProgressStatus{Item: item, Expired: item.IsExpired(at)}, nil
	}

	st, err := BumpProgress(items[idx], delta, at)
	if err != nil {
		return domain.ProgressStatus{}, err
	}
	items[idx] = st.Item
	if err := e.saveItems(userID, items); err != nil {
		return domain.ProgressStatus{}, err
	}
	if eventID != "" {
		seen.add("bump:" + eventID)
		if err := e.saveEvents(userID, seen); err != nil {
			return domain.ProgressStatus{}, err
		}
	}
	if err := e.grantRewards(userID, []domain.ProgressStatus{st}); err != nil {
		return domain.ProgressStatus{}, err
	}
	return st, nil
}

// AdoptItem overwrites one local item with the authority's status and
// grants its reward when the authority reports it eligible.
func (e *Engine) AdoptItem(userID string, st domain.ProgressStatus) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := ValidateItem(st.Item); err != nil {
		return err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	items, err := e.loadItems(userID, e.now())
	if err != nil {
		return err
	}
	if idx := indexOf(items, st.Item.ID); idx >= 0 {
		items[idx] = st.Item
	} else {
		items = append(items, st.Item)
	}
	if err := e.saveItems(userID, items); err != nil {
		return err
	}
	return e.grantRewards(userID, []domain.ProgressStatus{st})
}

func (e *Engine) loadItems(userID string, now time.Time) ([]domain.ProgressItem, error) {
	var items []domain.ProgressItem
	ok, err := e.profiles.GetProfileValue(userID, keyItems, &items)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	if !ok {
		items = e.catalog.ItemsFor(now)
	}
	return items, nil
}

func (e *Engine) saveItems(userID string, items []domain.ProgressItem) error {
	if err := e.profiles.PutProfileValue(userID, keyItems, items); err != nil {
		return fmt.Errorf("save items: %w", err)
	}
	return nil
}

// refreshChallenges appends the current week's challenges that are missing.
// Past challenges stay for bookkeeping.
func (e *Engine) refreshChallenges(items []domain.ProgressItem, now time.Time) []domain.ProgressItem {
	for _, c := range e.catalog.WeeklyChallenges(now) {
		if indexOf(items, c.ID) < 0 {
			items = append(items, c)
		}
	}
	return items
}

func (e *Engine) grantRewards(userID string, statuses []domain.ProgressStatus) error {
	for _, st := range statuses {
		if !st.JustUnlocked {
			continue
		}
		metrics.Unlocks.WithLabelValues(string(st.Item.Kind), strconv.FormatBool(st.RewardEligible)).Inc()
		if !st.RewardEligible {
			log.Printf("[progress] %s %s unlocked after its deadline, no reward", st.Item.Kind, st.Item.ID)
			continue
		}
		if _, err := e.points.Grant(userID, domain.RewardKey(userID, st.Item.ID), st.Item.Reward.Points,
			domain.PointsReward, string(st.Item.Kind)+" "+st.Item.ID); err != nil {
			return err
		}
	}
	return nil
}

func indexOf(items []domain.ProgressItem, id string) int {
	for i, it := range items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// ─── Reset ──────────────────────────────────────────────────────────────────

// Reset wipes the user's ledger, claim state, replay window, session
// results and points, and returns every item to locked with zero progress.
func (e *Engine) Reset(userID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	unlock := e.locks.Lock(userID)
	defer unlock()

	items, err := e.loadItems(userID, e.now())
	if err != nil {
		return err
	}
	for i := range items {
		items[i] = ResetItem(items[i])
	}

	if err := e.profiles.DeleteProfile(userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if err := e.points.Reset(userID); err != nil {
		return fmt.Errorf("reset points: %w", err)
	}
	if err := e.saveItems(userID, items); err != nil {
		return err
	}
	log.Printf("[progress] reset all progress for user %s", userID)
	return nil
}

// ─── Replay Window ──────────────────────────────────────────────────────────

type eventWindow struct {
	order []string
	set   map[string]struct{}
}

func (w *eventWindow) has(id string) bool {
	_, ok := w.set[id]
	return ok
}

func (w *eventWindow) add(id string) {
	if w.has(id) {
		return
	}
	w.order = append(w.order, id)
	w.set[id] = struct{}{}
	for len(w.order) > maxRememberedEvents {
		delete(w.set, w.order[0])
		w.order = w.order[1:]
	}
}

func (e *Engine) loadEvents(userID string) (*eventWindow, error) {
	var ids []string
	if _, err := e.profiles.GetProfileValue(userID, keyEvents, &ids); err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	w := &eventWindow{set: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		w.add(id)
	}
	return w, nil
}

func (e *Engine) saveEvents(userID string, w *eventWindow) error {
	if err := e.profiles.PutProfileValue(userID, keyEvents, w.order); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

func requireUser(userID string) error {
	if userID == "" {
		return domain.ErrUnknownUser
	}
	return nil
}

func (e *Engine) debugf(format string, args ...any) {
	if e.debug {
		log.Printf("[progress] "+format, args...)
	}
}
