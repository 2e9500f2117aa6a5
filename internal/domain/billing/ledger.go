package billing

import "time"

// LedgerStatus is the state of a user's quota ledger.
type LedgerStatus string

const (
	LedgerActive     LedgerStatus = "active"
	LedgerUnassigned LedgerStatus = "unassigned"
)

// QuotaLedger is the per-user record of search usage and limit.
//
// The ledger is persisted twice — in the legacy userPlans/{uid} collection and
// in users/{uid}/plan/current — because both paths are read by different
// consumers and the duplication is a permanent external contract.  The
// LedgerRepository hides the dual write behind Sync and performs a read-max
// merge on load so that SearchesUsed is never silently decreased by a write
// that saw only one stale copy.
type QuotaLedger struct {
	UserID         string       `firestore:"userId" json:"user_id"`
	SubscriptionID string       `firestore:"subscriptionId,omitempty" json:"subscription_id,omitempty"`
	PlanID         string       `firestore:"planId" json:"plan_id"`
	PlanName       string       `firestore:"planName" json:"plan_name"`
	SearchesUsed   int          `firestore:"searchesUsed" json:"searches_used"`
	SearchesLimit  int          `firestore:"searchesLimit" json:"searches_limit"`
	Status         LedgerStatus `firestore:"status" json:"status"`
	// LastJobID records the most recent search job billed against this
	// ledger.  Incrementing twice for the same job is a no-op, which keeps
	// "found in cache" and "saved to history" mapped to one logical search.
	LastJobID string    `firestore:"lastJobId,omitempty" json:"last_job_id,omitempty"`
	UpdatedAt time.Time `firestore:"updatedAt,serverTimestamp" json:"updated_at"`
}

// Unlimited reports whether the ledger's limit is the unmetered sentinel.
func (l *QuotaLedger) Unlimited() bool {
	return l.SearchesLimit == UnlimitedSearches
}

// Remaining returns how many searches are left, or UnlimitedSearches for
// unmetered ledgers.
func (l *QuotaLedger) Remaining() int {
	if l.Unlimited() {
		return UnlimitedSearches
	}
	r := l.SearchesLimit - l.SearchesUsed
	if r < 0 {
		return 0
	}
	return r
}

// Exhausted reports whether the user has consumed the full allowance.
func (l *QuotaLedger) Exhausted() bool {
	return !l.Unlimited() && l.SearchesUsed >= l.SearchesLimit
}

// MergeUsage returns the larger of the two usage counters.  Used when the
// legacy and current ledger copies disagree: preserving the maximum is the
// only safe choice because usage is monotonically non-decreasing outside an
// explicit admin reset.
func MergeUsage(legacy, current int) int {
	if legacy > current {
		return legacy
	}
	return current
}
