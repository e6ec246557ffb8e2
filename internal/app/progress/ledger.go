package progress

import (
	"sort"

	"github.com/ssaritan18/Project-1-sub000/internal/domain"
)

// Ledger is the per-user set of completion days.
// Inserts are idempotent; days leave only through Reset.
// A Ledger is not safe for concurrent mutation.
type Ledger struct {
	days map[domain.CompletionDay]struct{}
}

// NewLedger creates a ledger holding the given days.
func NewLedger(days ...domain.CompletionDay) *Ledger {
	l := &Ledger{days: make(map[domain.CompletionDay]struct{}, len(days))}
	for _, d := range days {
		l.Add(d)
	}
	return l
}

// Add records a day. Returns false if the day was already present.
func (l *Ledger) Add(day domain.CompletionDay) bool {
	if _, ok := l.days[day]; ok {
		return false
	}
	l.days[day] = struct{}{}
	return true
}

// Has reports whether the day is in the ledger.
func (l *Ledger) Has(day domain.CompletionDay) bool {
	_, ok := l.days[day]
	return ok
}

// Len returns the number of recorded days.
func (l *Ledger) Len() int {
	return len(l.days)
}

// Days returns all recorded days in ascending order.
func (l *Ledger) Days() []domain.CompletionDay {
	out := make([]domain.CompletionDay, 0, len(l.days))
	for d := range l.days {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Reset empties the ledger. Only used by a full account reset.
func (l *Ledger) Reset() {
	l.days = make(map[domain.CompletionDay]struct{})
}
