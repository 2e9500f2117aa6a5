package billing

import (
	"context"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// QuotaGate is the pre-flight check consulted immediately before a billable
// search executes.  The gate read here is the authoritative one; a stale UI
// render showing remaining quota is an accepted race.
type QuotaGate interface {
	// CanUserSearch reports whether the user's ledger still has allowance.
	// Unlimited ledgers always pass.  A user with no ledger at all is denied:
	// searches are only available to users linked to a subscription.
	CanUserSearch(ctx context.Context, userID string) (bool, error)
	// IncrementSearchUsage charges one search against both ledger copies and
	// the owning subscription's aggregate.  Calling it again with the same
	// jobID is a no-op, so a cache hit and the subsequent history write map
	// to one logical search event.
	IncrementSearchUsage(ctx context.Context, userID, jobID string) error
	// UsageSnapshot returns the merged ledger for dashboards and the
	// upgrade prompt.
	UsageSnapshot(ctx context.Context, userID string) (*QuotaLedger, error)
}

type quotaGate struct {
	ledgers LedgerRepository
	subs    SubscriptionRepository
	tx      TxRunner
	events  EventPublisher
	log     logging.Logger
}

// NewQuotaGate constructs the QuotaGate service.
func NewQuotaGate(ledgers LedgerRepository, subs SubscriptionRepository, tx TxRunner, events EventPublisher, log logging.Logger) QuotaGate {
	if events == nil {
		events = NopEventPublisher{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &quotaGate{
		ledgers: ledgers,
		subs:    subs,
		tx:      tx,
		events:  events,
		log:     log.Named("quota"),
	}
}

func (g *quotaGate) CanUserSearch(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, apperrors.NewValidation("userID required")
	}
	ledger, err := g.ledgers.Get(ctx, userID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			g.log.Debug("search denied: no ledger", logging.String("user_id", userID))
			return false, nil
		}
		return false, err
	}
	if ledger.Unlimited() {
		return true, nil
	}
	if ledger.Exhausted() {
		g.log.Info("search denied: quota exhausted",
			logging.String("user_id", userID),
			logging.Int("used", ledger.SearchesUsed),
			logging.Int("limit", ledger.SearchesLimit),
		)
		return false, nil
	}
	return true, nil
}

func (g *quotaGate) IncrementSearchUsage(ctx context.Context, userID, jobID string) error {
	if userID == "" || jobID == "" {
		return apperrors.NewValidation("userID and jobID required")
	}

	var charged bool
	err := g.tx.RunTx(ctx, func(ctx context.Context) error {
		charged = false
		ledger, err := g.ledgers.Get(ctx, userID)
		if err != nil {
			return err
		}
		if ledger.LastJobID == jobID {
			// Already billed for this job.
			return nil
		}

		var sub *Subscription
		if ledger.SubscriptionID != "" {
			sub, err = g.subs.GetByID(ctx, ledger.SubscriptionID)
			if err != nil && !apperrors.IsNotFound(err) {
				return err
			}
		}

		ledger.SearchesUsed++
		ledger.LastJobID = jobID
		if err := g.ledgers.Sync(ctx, ledger); err != nil {
			return err
		}
		if sub != nil {
			sub.TotalSearchesUsed++
			if err := g.subs.Update(ctx, sub); err != nil {
				return err
			}
		}
		charged = true
		return nil
	})
	if err != nil {
		return err
	}

	if charged {
		g.log.Info("search usage incremented",
			logging.String("user_id", userID),
			logging.String("job_id", jobID),
		)
		if perr := g.events.Publish(ctx, Event{Type: EventUsageIncremented, UserID: userID, JobID: jobID}); perr != nil {
			g.log.Warn("audit event publish failed", logging.Err(perr))
		}
	}
	return nil
}

func (g *quotaGate) UsageSnapshot(ctx context.Context, userID string) (*QuotaLedger, error) {
	if userID == "" {
		return nil, apperrors.NewValidation("userID required")
	}
	return g.ledgers.Get(ctx, userID)
}
