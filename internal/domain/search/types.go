// Package search contains the patent search domain: the request and result
// types, the cache and history contracts, and the orchestrator that runs a
// quota-gated search end to end against the external job API.
package search

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"
	"time"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// Request describes one patent search.
type Request struct {
	Molecule  string   `json:"molecule"`
	Brand     string   `json:"brand,omitempty"`
	Countries []string `json:"countries"`
}

// Validate checks the request fields.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Molecule) == "" {
		return apperrors.New(apperrors.ErrCodeSearchInvalidRequest, "molecule name required")
	}
	if len(r.Countries) == 0 {
		return apperrors.New(apperrors.ErrCodeSearchInvalidRequest, "at least one country required")
	}
	return nil
}

// CacheKey returns the deterministic cache key for the request: molecule and
// brand case-folded, countries sorted, hashed.  Two users searching the same
// molecule share one cache entry and one external job.
func (r Request) CacheKey() string {
	countries := append([]string(nil), r.Countries...)
	for i := range countries {
		countries[i] = strings.ToUpper(strings.TrimSpace(countries[i]))
	}
	sort.Strings(countries)

	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(r.Molecule))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(r.Brand))))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(countries, ",")))
	return hex.EncodeToString(h.Sum(nil))
}

// JobStatus is the state reported by the external job API.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status ends the polling loop.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobUpdate is a progress snapshot of a running job.
type JobUpdate struct {
	JobID         string    `json:"job_id"`
	Status        JobStatus `json:"status"`
	Progress      int       `json:"progress"`
	Step          string    `json:"step,omitempty"`
	QueuePosition int       `json:"queue_position,omitempty"`
	Error         string    `json:"error,omitempty"`
}

// PatentEntry is one patent in a search result, the unit the cliff timeline is
// built from.
type PatentEntry struct {
	PatentNumber   string    `json:"patent_number" firestore:"patentNumber"`
	Country        string    `json:"country" firestore:"country"`
	Title          string    `json:"title,omitempty" firestore:"title,omitempty"`
	Holder         string    `json:"holder,omitempty" firestore:"holder,omitempty"`
	ExpirationDate time.Time `json:"expiration_date" firestore:"expirationDate"`
	Source         string    `json:"source,omitempty" firestore:"source,omitempty"`
}

// Result is a completed search: the structured patent entries plus the full
// provider payload, kept opaque so provider additions survive a round trip
// through the cache.
type Result struct {
	JobID       string          `json:"job_id" firestore:"jobId"`
	Molecule    string          `json:"molecule" firestore:"molecule"`
	Brand       string          `json:"brand,omitempty" firestore:"brand,omitempty"`
	Countries   []string        `json:"countries" firestore:"countries"`
	Patents     []PatentEntry   `json:"patents" firestore:"patents"`
	Payload     json.RawMessage `json:"payload,omitempty" firestore:"-"`
	CompletedAt time.Time       `json:"completed_at" firestore:"completedAt"`
}

// HistoryRecord is one entry in a user's search history.
type HistoryRecord struct {
	ID        string    `json:"id" firestore:"-"`
	UserID    string    `json:"user_id" firestore:"userId"`
	JobID     string    `json:"job_id" firestore:"jobId"`
	Molecule  string    `json:"molecule" firestore:"molecule"`
	Brand     string    `json:"brand,omitempty" firestore:"brand,omitempty"`
	Countries []string  `json:"countries" firestore:"countries"`
	FromCache bool      `json:"from_cache" firestore:"fromCache"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt,serverTimestamp"`
}
