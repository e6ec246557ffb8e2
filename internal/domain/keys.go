package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ─── Idempotency Keys ───────────────────────────────────────────────────────
// Keys are name-based (v5) UUIDs over the semantic identity of an action, so
// every retry of the same action carries the same key.

// keyNamespace scopes all engine keys.
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:focus:progress-engine"))

func semanticKey(kind OpKind, parts ...string) string {
	name := string(kind) + "|" + strings.Join(parts, "|")
	return uuid.NewSHA1(keyNamespace, []byte(name)).String()
}

// BonusClaimKey identifies a bonus claim by (user, streak value).
func BonusClaimKey(userID string, streak int) string {
	return semanticKey(OpClaimBonus, userID, strconv.Itoa(streak))
}

// SessionKey identifies a session completion by (user, session).
func SessionKey(userID, sessionID string) string {
	return semanticKey(OpCompleteSession, userID, sessionID)
}

// SessionCorrectionKey identifies the adjustment made when the authority
// rescored a session that was scored offline.
func SessionCorrectionKey(userID, sessionID string) string {
	return semanticKey(OpCompleteSession, userID, sessionID, "correction")
}

// ProgressKey identifies a progress bump by (user, item, event).
func ProgressKey(userID, itemID, eventID string) string {
	return semanticKey(OpBumpProgress, userID, itemID, eventID)
}

// RecordDayKey identifies a completion day by (user, day).
func RecordDayKey(userID string, day CompletionDay) string {
	return semanticKey(OpRecordDay, userID, day.String())
}

// RewardKey identifies an unlock reward by (user, item).
func RewardKey(userID, itemID string) string {
	return semanticKey(OpBumpProgress, userID, itemID, "reward")
}
