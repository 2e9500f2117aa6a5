package billing

import "context"

// OrganizationRepository defines the persistence contract for organizations.
type OrganizationRepository interface {
	Create(ctx context.Context, org *Organization) error
	GetByID(ctx context.Context, id string) (*Organization, error)
	List(ctx context.Context) ([]*Organization, error)
	Update(ctx context.Context, org *Organization) error
	Delete(ctx context.Context, id string) error
}

// PlanRepository defines the persistence contract for plans.
type PlanRepository interface {
	Create(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context, onlyActive bool) ([]*Plan, error)
	Update(ctx context.Context, plan *Plan) error
	Delete(ctx context.Context, id string) error
}

// SubscriptionRepository defines the persistence contract for subscriptions.
type SubscriptionRepository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	List(ctx context.Context) ([]*Subscription, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*Subscription, error)
	// ListActiveByUser returns every subscription with status "active" whose
	// membership list contains uid.  Under the no-double-membership invariant
	// the result has at most one element; the reconciler still scans all of
	// them so that pre-existing violations are repaired rather than repeated.
	ListActiveByUser(ctx context.Context, uid string) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id string) error
}

// LedgerRepository hides the dual-document quota ledger behind one interface.
type LedgerRepository interface {
	// Get loads both ledger copies for uid and returns the merged view:
	// field values from the current copy where present, SearchesUsed as the
	// maximum of both counters.  Returns ErrCodeLedgerNotFound when neither
	// copy exists.
	Get(ctx context.Context, uid string) (*QuotaLedger, error)
	// Sync writes both external representations (userPlans/{uid} and
	// users/{uid}/plan/current) of the ledger.
	Sync(ctx context.Context, ledger *QuotaLedger) error
	// ListByPlan returns the merged ledgers of every user whose ledger
	// references planID.
	ListByPlan(ctx context.Context, planID string) ([]*QuotaLedger, error)
}

// UserRepository defines the persistence contract for user profiles.
type UserRepository interface {
	GetByID(ctx context.Context, uid string) (*UserProfile, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*UserProfile, error)
	Upsert(ctx context.Context, profile *UserProfile) error
}

// TxRunner executes fn inside a single document-store transaction.  Repository
// calls made with the ctx passed to fn participate in the transaction; all
// reads must happen before the first write, per Firestore transaction rules.
// Implementations retry fn on contention, so fn must be side-effect free
// outside repository calls.
type TxRunner interface {
	RunTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NopTxRunner runs fn without any transaction.  Used in tests and by
// deployments pointing at stores without multi-document transactions.
type NopTxRunner struct{}

func (NopTxRunner) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
