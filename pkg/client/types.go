package client

import "time"

// Wire types mirroring the API's JSON responses. Kept separate from the
// server's domain types so SDK consumers never import internal packages.

// Organization is a customer account, individual or company.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Email     string    `json:"email"`
	CNPJ      string    `json:"cnpj,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Plan is a sellable quota template.
type Plan struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Price           float64   `json:"price"`
	SearchesPerUser int       `json:"searches_per_user"`
	MaxUsers        int       `json:"max_users"`
	Features        []string  `json:"features"`
	IsActive        bool      `json:"is_active"`
	Version         int       `json:"version,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Subscription binds an organization to a plan with seat assignments.
type Subscription struct {
	ID                string    `json:"id"`
	OrganizationID    string    `json:"organization_id"`
	PlanID            string    `json:"plan_id"`
	Status            string    `json:"status"`
	StartDate         time.Time `json:"start_date"`
	EndDate           time.Time `json:"end_date"`
	MonthlyPrice      float64   `json:"monthly_price"`
	MaxUsers          int       `json:"max_users"`
	SearchesPerUser   int       `json:"searches_per_user"`
	CurrentUsers      int       `json:"current_users"`
	TotalSearchesUsed int64     `json:"total_searches_used"`
	UserIDs           []string  `json:"user_ids"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// User is a platform account.
type User struct {
	UID            string    `json:"uid"`
	Email          string    `json:"email"`
	DisplayName    string    `json:"display_name"`
	Role           string    `json:"role"`
	OrganizationID string    `json:"organization_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// QuotaLedger is a user's per-period search allowance and consumption.
type QuotaLedger struct {
	UserID         string    `json:"user_id"`
	SubscriptionID string    `json:"subscription_id,omitempty"`
	PlanID         string    `json:"plan_id"`
	PlanName       string    `json:"plan_name"`
	SearchesUsed   int       `json:"searches_used"`
	SearchesLimit  int       `json:"searches_limit"`
	Status         string    `json:"status"`
	LastJobID      string    `json:"last_job_id,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// SyncFailure records one user whose quota fan-out did not apply.
type SyncFailure struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// SyncReport summarizes a member quota fan-out.
type SyncReport struct {
	Synced   int           `json:"synced"`
	Failures []SyncFailure `json:"failures,omitempty"`
}

// MigrationReport summarizes a plan deletion with user migration.
type MigrationReport struct {
	Migrated    int           `json:"migrated"`
	Failures    []SyncFailure `json:"failures,omitempty"`
	PlanDeleted bool          `json:"plan_deleted"`
}

// PatentEntry is one patent in a search result.
type PatentEntry struct {
	PatentNumber   string    `json:"patent_number"`
	Country        string    `json:"country"`
	Title          string    `json:"title,omitempty"`
	Holder         string    `json:"holder,omitempty"`
	ExpirationDate time.Time `json:"expiration_date"`
	Source         string    `json:"source,omitempty"`
}

// SearchResult is the completed payload of a patent search job.
type SearchResult struct {
	JobID       string        `json:"job_id"`
	Molecule    string        `json:"molecule"`
	Brand       string        `json:"brand,omitempty"`
	Countries   []string      `json:"countries"`
	Patents     []PatentEntry `json:"patents"`
	CompletedAt time.Time     `json:"completed_at"`
}

// SearchOutcome is the server's answer to a search submission.
type SearchOutcome struct {
	Result    *SearchResult `json:"result"`
	FromCache bool          `json:"from_cache"`
}

// JobStatus is a point-in-time snapshot of an in-flight search job.
type JobStatus struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
	Step          string `json:"step,omitempty"`
	QueuePosition int    `json:"queue_position,omitempty"`
	Error         string `json:"error,omitempty"`
}

// HistoryEntry is one row of the caller's search history.
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	JobID     string    `json:"job_id"`
	Molecule  string    `json:"molecule"`
	Brand     string    `json:"brand,omitempty"`
	Countries []string  `json:"countries"`
	FromCache bool      `json:"from_cache"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis is a Dr. Root expiry analysis.
type Analysis struct {
	JobID        string    `json:"job_id"`
	PatentNumber string    `json:"patent_number,omitempty"`
	Content      string    `json:"content"`
	Model        string    `json:"model"`
	CreatedAt    time.Time `json:"created_at"`
	FromCache    bool      `json:"from_cache"`
}

// ChatMessage is one turn of a Dr. Root conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Message ChatMessage `json:"message"`
	Model   string      `json:"model"`
}
