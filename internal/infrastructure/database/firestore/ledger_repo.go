package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// ledgerRepo persists the quota ledger in its two external representations:
// the flat userPlans/{uid} collection and the per-user subdocument
// users/{uid}/plan/current.  Both are read by other consumers, so Sync always
// writes both and Get merges both, taking the larger usage counter.
type ledgerRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewLedgerRepo returns the Firestore-backed quota ledger repository.
func NewLedgerRepo(client *Client, log logging.Logger) billing.LedgerRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &ledgerRepo{client: client.Firestore(), log: log.Named("ledger_repo")}
}

func (r *ledgerRepo) legacyRef(uid string) *firestore.DocumentRef {
	return r.client.Collection(userPlansCollection).Doc(uid)
}

func (r *ledgerRepo) currentRef(uid string) *firestore.DocumentRef {
	return r.client.Collection(usersCollection).Doc(uid).
		Collection(planSubcollection).Doc(planCurrentDoc)
}

func (r *ledgerRepo) Get(ctx context.Context, uid string) (*billing.QuotaLedger, error) {
	if uid == "" {
		return nil, apperrors.NewValidation("user id required")
	}

	legacy, err := r.read(ctx, r.legacyRef(uid), uid)
	if err != nil {
		return nil, err
	}
	current, err := r.read(ctx, r.currentRef(uid), uid)
	if err != nil {
		return nil, err
	}

	switch {
	case legacy == nil && current == nil:
		return nil, apperrors.New(apperrors.ErrCodeLedgerNotFound, "quota ledger for user "+uid+" not found")
	case current == nil:
		return legacy, nil
	case legacy == nil:
		return current, nil
	}

	// Both copies exist: field values come from the current copy, usage is
	// the maximum of both counters so a write that saw only one stale copy
	// can never lower it.
	if legacy.SearchesUsed != current.SearchesUsed {
		r.log.Warn("quota ledger copies disagree on usage",
			logging.String("user_id", uid),
			logging.Int("legacy", legacy.SearchesUsed),
			logging.Int("current", current.SearchesUsed),
		)
	}
	current.SearchesUsed = billing.MergeUsage(legacy.SearchesUsed, current.SearchesUsed)
	return current, nil
}

func (r *ledgerRepo) Sync(ctx context.Context, ledger *billing.QuotaLedger) error {
	if ledger == nil || ledger.UserID == "" {
		return apperrors.NewValidation("ledger with user id required")
	}
	if err := setDoc(ctx, r.legacyRef(ledger.UserID), ledger); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore,
			"failed to write userPlans ledger for "+ledger.UserID)
	}
	if err := setDoc(ctx, r.currentRef(ledger.UserID), ledger); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore,
			"failed to write current-plan ledger for "+ledger.UserID)
	}
	return nil
}

func (r *ledgerRepo) ListByPlan(ctx context.Context, planID string) ([]*billing.QuotaLedger, error) {
	if planID == "" {
		return nil, apperrors.NewValidation("plan id required")
	}
	iter := docs(ctx, r.client.Collection(userPlansCollection).Where("planId", "==", planID))
	defer iter.Stop()

	var out []*billing.QuotaLedger
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to list ledgers by plan")
		}
		ledger, err := decodeLedger(snap)
		if err != nil {
			r.log.Warn("skipping undecodable ledger document",
				logging.String("doc_id", snap.Ref.ID), logging.Err(err))
			continue
		}
		// Merge in the subdocument copy so migrations see the true counter.
		merged, err := r.Get(ctx, ledger.UserID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				out = append(out, ledger)
				continue
			}
			return nil, err
		}
		out = append(out, merged)
	}
	return out, nil
}

// read loads one ledger copy, returning nil without error when the document
// does not exist.
func (r *ledgerRepo) read(ctx context.Context, ref *firestore.DocumentRef, uid string) (*billing.QuotaLedger, error) {
	snap, err := getDoc(ctx, ref)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to read ledger for "+uid)
	}
	if !snap.Exists() {
		return nil, nil
	}
	ledger, err := decodeLedger(snap)
	if err != nil {
		return nil, err
	}
	if ledger.UserID == "" {
		ledger.UserID = uid
	}
	return ledger, nil
}

// decodeLedger unmarshals a ledger document, filling gaps from the snake_case
// field names some historical writers used.
func decodeLedger(snap *firestore.DocumentSnapshot) (*billing.QuotaLedger, error) {
	var ledger billing.QuotaLedger
	if err := snap.DataTo(&ledger); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode ledger "+snap.Ref.ID)
	}
	raw := snap.Data()
	if ledger.SearchesUsed == 0 {
		ledger.SearchesUsed = intField(raw, "searches_used")
	}
	if ledger.SearchesLimit == 0 {
		ledger.SearchesLimit = intField(raw, "searches_limit")
	}
	if ledger.PlanID == "" {
		ledger.PlanID = stringField(raw, "plan_id")
	}
	if ledger.PlanName == "" {
		ledger.PlanName = stringField(raw, "plan_name")
	}
	if ledger.SubscriptionID == "" {
		ledger.SubscriptionID = stringField(raw, "subscription_id")
	}
	return &ledger, nil
}

func intField(raw map[string]interface{}, key string) int {
	switch v := raw[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

func stringField(raw map[string]interface{}, key string) string {
	s, _ := raw[key].(string)
	return s
}
