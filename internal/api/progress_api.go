package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// ─── Progress API (/api/v1) ─────────────────────────────────────────────────
// Reconciled routes answer {"value": ..., "source": ..., "unsynced": ...}.

func userOf(r *http.Request) string { return chi.URLParam(r, "user") }

// --- POST /api/v1/score (pure scoring) ---

type scoreRequest struct {
	Type           string  `json:"type" validate:"required"`
	TasksCompleted int     `json:"tasks_completed" validate:"gte=0"`
	Interruptions  int     `json:"interruptions" validate:"gte=0"`
	FocusRating    int     `json:"focus_rating" validate:"gte=0,lte=10"`
	Multiplier     float64 `json:"multiplier" validate:"gte=0"`
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	typ, err := domain.ParseSessionType(req.Type)
	if err != nil {
		writeErr(w, err)
		return
	}
	if req.Multiplier == 0 {
		req.Multiplier = 1.0
	}
	b, err := progress.ScoreSession(typ, req.TasksCompleted, req.Interruptions, req.FocusRating, req.Multiplier)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// --- GET /api/v1/tiers ---

func (s *Server) handleTiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tiers": progress.Tiers()})
}

// --- Streak & ledger ---

func (s *Server) handleStreak(w http.ResponseWriter, r *http.Request) {
	today, err := s.today(r.URL.Query().Get("today"))
	if err != nil {
		writeErr(w, err)
		return
	}
	res, err := s.rec.Streak(r.Context(), userOf(r), today)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type recordDayRequest struct {
	Day string `json:"day"`
}

func (s *Server) handleRecordDay(w http.ResponseWriter, r *http.Request) {
	var req recordDayRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	day, err := s.today(req.Day)
	if err != nil {
		writeErr(w, err)
		return
	}
	res, err := s.rec.RecordDay(r.Context(), userOf(r), day)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type activityRequest struct {
	ID      string              `json:"id" validate:"required,max=256"`
	Type    domain.EventType    `json:"type" validate:"required,oneof=task_completed session_completed day_rollover"`
	Day     string              `json:"day"`
	At      time.Time           `json:"at"`
	Payload domain.EventPayload `json:"payload"`
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	ev := domain.ActivityEvent{ID: req.ID, Type: req.Type, At: req.At, Payload: req.Payload}
	if req.Day != "" || req.At.IsZero() {
		day, err := s.today(req.Day)
		if err != nil {
			writeErr(w, err)
			return
		}
		ev.Day = day
	}
	res, err := s.rec.Apply(r.Context(), userOf(r), ev)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Streak bonus ---

func (s *Server) handleBonus(w http.ResponseWriter, r *http.Request) {
	today, err := s.today(r.URL.Query().Get("today"))
	if err != nil {
		writeErr(w, err)
		return
	}
	engine := s.rec.Engine()
	available, snap, err := engine.BonusAvailable(userOf(r), today)
	if err != nil {
		writeErr(w, err)
		return
	}
	state, err := engine.BonusState(userOf(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": available,
		"streak":    snap.Current,
		"points":    progress.BonusPoints(snap.Current),
		"state":     state,
	})
}

type claimRequest struct {
	Today string `json:"today"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	today, err := s.today(req.Today)
	if err != nil {
		writeErr(w, err)
		return
	}
	// A rejected claim is a normal 200 answer with granted=false.
	res, err := s.rec.ClaimBonus(r.Context(), userOf(r), today)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Focus sessions ---

type startSessionRequest struct {
	Type            string `json:"type" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0,lte=600"`
	Today           string `json:"today"`
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	typ, err := domain.ParseSessionType(req.Type)
	if err != nil {
		writeErr(w, err)
		return
	}
	today, err := s.today(req.Today)
	if err != nil {
		writeErr(w, err)
		return
	}
	snap, err := s.rec.Engine().Streak(userOf(r), today)
	if err != nil {
		writeErr(w, err)
		return
	}
	sess, err := s.sessions.Start(userOf(r), typ, req.DurationMinutes, snap.Multiplier)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(userOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handlePauseSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Pause(userOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleResumeSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Resume(userOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

type completeSessionRequest struct {
	TasksCompleted int    `json:"tasks_completed" validate:"gte=0"`
	Interruptions  int    `json:"interruptions" validate:"gte=0"`
	FocusRating    int    `json:"focus_rating" validate:"gte=0,lte=10"`
	Today          string `json:"today"`
}

func (s *Server) handleCompleteSession(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	today, err := s.today(req.Today)
	if err != nil {
		writeErr(w, err)
		return
	}
	sess, err := s.sessions.Complete(userOf(r), chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	outcome := domain.SessionOutcome{
		TasksCompleted: req.TasksCompleted,
		Interruptions:  req.Interruptions,
		FocusRating:    req.FocusRating,
	}
	res, err := s.rec.SubmitSession(r.Context(), userOf(r), sess, outcome, today)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.End(userOf(r), chi.URLParam(r, "id")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Achievements & challenges ---

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.rec.Engine().Items(userOf(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	now := s.now()
	out := make([]map[string]any, len(items))
	for i, it := range items {
		out[i] = map[string]any{
			"item":         it,
			"progress_pct": it.ProgressPct(),
			"expired":      it.IsExpired(now),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out})
}

type bumpRequest struct {
	Delta   int       `json:"delta"`
	EventID string    `json:"event_id" validate:"required,max=256"`
	At      time.Time `json:"at"`
}

func (s *Server) handleBump(w http.ResponseWriter, r *http.Request) {
	var req bumpRequest
	if err := decode(r, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := s.rec.Bump(r.Context(), userOf(r), chi.URLParam(r, "id"), req.Delta, req.EventID, req.At)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// --- Points ---

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be in 1..500")
			return
		}
		limit = n
	}
	pts := s.rec.Engine().Points()
	balance, err := pts.Balance(userOf(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	history, err := pts.History(userOf(r), limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	if history == nil {
		history = []domain.PointsEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
		"history": history,
	})
}

// --- Sync ---

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending, err := s.rec.Pending(userOf(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	if pending == nil {
		pending = []domain.OutboxEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"remote":  s.rec.Remote(),
		"pending": pending,
	})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	rep, err := s.rec.Replay(r.Context(), userOf(r))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// --- Reset ---

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.rec.Reset(userOf(r)); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
