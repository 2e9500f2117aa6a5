package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// AssignOptions controls AssignUserToSubscription behaviour.
type AssignOptions struct {
	// ConfirmMigration must be set when the user is already a member of a
	// different active subscription.  Without it the assignment is rejected
	// with ErrCodeMigrationRequired so the caller can ask the admin to
	// confirm moving the user.
	ConfirmMigration bool
}

// SyncFailure records one per-user ledger synchronization failure during a
// fan-out operation.
type SyncFailure struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// SyncReport summarizes a fan-out ledger synchronization.  Failures are
// reported as data, not as an error halting the batch: one bad user record
// must not block syncing the other members.
type SyncReport struct {
	Synced   int           `json:"synced"`
	Failures []SyncFailure `json:"failures,omitempty"`
}

// MigrationReport summarizes DeletePlanAndMigrateUsers.
type MigrationReport struct {
	Migrated    int           `json:"migrated"`
	Failures    []SyncFailure `json:"failures,omitempty"`
	PlanDeleted bool          `json:"plan_deleted"`
}

// Reconciler keeps subscription membership and per-user quota ledgers
// mutually consistent.  Membership mutations run inside a single store
// transaction; per-user fan-outs after a subscription or plan edit are
// best-effort with per-user failure reporting.
type Reconciler interface {
	AssignUserToSubscription(ctx context.Context, userID, subscriptionID string, opts AssignOptions) (*Subscription, error)
	RemoveUserFromSubscription(ctx context.Context, userID, subscriptionID string) (*Subscription, error)
	MigrateUser(ctx context.Context, userID, fromSubscriptionID, toSubscriptionID string) (*Subscription, error)
	UpdateSubscriptionPlanFields(ctx context.Context, subscriptionID string, fields SubscriptionUpdate) (*SyncReport, error)
	DeletePlanAndMigrateUsers(ctx context.Context, planID, targetPlanID string) (*MigrationReport, error)
	RecomputeAggregates(ctx context.Context, subscriptionID string) (*Subscription, error)
}

type reconciler struct {
	subs    SubscriptionRepository
	plans   PlanRepository
	ledgers LedgerRepository
	tx      TxRunner
	events  EventPublisher
	log     logging.Logger
}

// NewReconciler constructs the Reconciler service.
func NewReconciler(subs SubscriptionRepository, plans PlanRepository, ledgers LedgerRepository, tx TxRunner, events EventPublisher, log logging.Logger) Reconciler {
	if events == nil {
		events = NopEventPublisher{}
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &reconciler{
		subs:    subs,
		plans:   plans,
		ledgers: ledgers,
		tx:      tx,
		events:  events,
		log:     log.Named("reconciler"),
	}
}

// AssignUserToSubscription appends userID to the target subscription and
// writes the user's quota ledger, preserving any prior usage.  When the user
// is already a member of a different active subscription the call is a
// migration and requires opts.ConfirmMigration; the removal and the addition
// then happen inside the same transaction.
func (r *reconciler) AssignUserToSubscription(ctx context.Context, userID, subscriptionID string, opts AssignOptions) (*Subscription, error) {
	if userID == "" || subscriptionID == "" {
		return nil, apperrors.NewValidation("userID and subscriptionID required")
	}

	var result *Subscription
	err := r.tx.RunTx(ctx, func(ctx context.Context) error {
		// Reads first: target, conflicting memberships, plan, prior ledger.
		target, err := r.subs.GetByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		if !target.IsActive() {
			return apperrors.New(apperrors.ErrCodeSubscriptionInactive,
				"cannot assign user to a non-active subscription").
				WithDetail(fmt.Sprintf("subscription=%s status=%s", subscriptionID, target.Status))
		}
		if !target.HasUser(userID) && target.AtCapacity() {
			return apperrors.New(apperrors.ErrCodeSubscriptionCapacity,
				"subscription has reached its seat limit").
				WithDetail(fmt.Sprintf("subscription=%s maxUsers=%d", subscriptionID, target.MaxUsers))
		}

		others, err := r.conflictingMemberships(ctx, userID, subscriptionID)
		if err != nil {
			return err
		}
		if len(others) > 0 && !opts.ConfirmMigration {
			return apperrors.New(apperrors.ErrCodeMigrationRequired,
				"user already belongs to another active subscription").
				WithDetail("subscription=" + others[0].ID)
		}

		plan, err := r.plans.GetByID(ctx, target.PlanID)
		if err != nil {
			return err
		}

		prior, err := r.ledgers.Get(ctx, userID)
		if err != nil && !apperrors.IsNotFound(err) {
			return err
		}

		// Writes.
		for _, other := range others {
			other.RemoveUser(userID)
			if err := r.subs.Update(ctx, other); err != nil {
				return err
			}
		}

		target.AddUser(userID)
		if err := r.subs.Update(ctx, target); err != nil {
			return err
		}

		ledger := r.buildLedger(userID, target, plan, prior)
		if err := r.ledgers.Sync(ctx, ledger); err != nil {
			return err
		}

		result = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("user assigned to subscription",
		logging.String("user_id", userID),
		logging.String("subscription_id", subscriptionID),
		logging.Int("current_users", result.CurrentUsers),
	)
	r.publish(ctx, Event{Type: EventUserAssigned, UserID: userID, SubscriptionID: subscriptionID})
	return result, nil
}

// RemoveUserFromSubscription deletes userID from the membership list,
// recomputes the denormalized count, and detaches the ledger without touching
// its usage counter.
func (r *reconciler) RemoveUserFromSubscription(ctx context.Context, userID, subscriptionID string) (*Subscription, error) {
	if userID == "" || subscriptionID == "" {
		return nil, apperrors.NewValidation("userID and subscriptionID required")
	}

	var result *Subscription
	err := r.tx.RunTx(ctx, func(ctx context.Context) error {
		sub, err := r.subs.GetByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		ledger, err := r.ledgers.Get(ctx, userID)
		if err != nil && !apperrors.IsNotFound(err) {
			return err
		}

		sub.RemoveUser(userID)
		if err := r.subs.Update(ctx, sub); err != nil {
			return err
		}
		if ledger != nil && ledger.SubscriptionID == subscriptionID {
			ledger.SubscriptionID = ""
			ledger.Status = LedgerUnassigned
			if err := r.ledgers.Sync(ctx, ledger); err != nil {
				return err
			}
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("user removed from subscription",
		logging.String("user_id", userID),
		logging.String("subscription_id", subscriptionID),
	)
	r.publish(ctx, Event{Type: EventUserRemoved, UserID: userID, SubscriptionID: subscriptionID})
	return result, nil
}

// MigrateUser moves userID from one subscription to another, preserving the
// usage counter.  The operation is idempotent: removing an id that is absent
// and re-adding an id that is present are both no-ops, so calling migrate
// twice with the same arguments yields the same end state as calling it once.
func (r *reconciler) MigrateUser(ctx context.Context, userID, fromSubscriptionID, toSubscriptionID string) (*Subscription, error) {
	if userID == "" || fromSubscriptionID == "" || toSubscriptionID == "" {
		return nil, apperrors.NewValidation("userID, from and to subscription ids required")
	}
	if fromSubscriptionID == toSubscriptionID {
		return nil, apperrors.NewValidation("source and target subscriptions are the same")
	}

	var result *Subscription
	err := r.tx.RunTx(ctx, func(ctx context.Context) error {
		from, err := r.subs.GetByID(ctx, fromSubscriptionID)
		if err != nil {
			return err
		}
		target, err := r.subs.GetByID(ctx, toSubscriptionID)
		if err != nil {
			return err
		}
		if !target.IsActive() {
			return apperrors.New(apperrors.ErrCodeSubscriptionInactive,
				"cannot migrate user into a non-active subscription").
				WithDetail("subscription=" + toSubscriptionID)
		}
		if !target.HasUser(userID) && target.AtCapacity() {
			return apperrors.New(apperrors.ErrCodeSubscriptionCapacity,
				"target subscription has reached its seat limit").
				WithDetail("subscription=" + toSubscriptionID)
		}
		others, err := r.conflictingMemberships(ctx, userID, toSubscriptionID)
		if err != nil {
			return err
		}
		plan, err := r.plans.GetByID(ctx, target.PlanID)
		if err != nil {
			return err
		}
		prior, err := r.ledgers.Get(ctx, userID)
		if err != nil && !apperrors.IsNotFound(err) {
			return err
		}

		// Remove-before-add so an interleaved reader never sees the user in
		// two membership lists.  Removal covers every active membership, not
		// just the named source: a stale fromSubscriptionID must not leave
		// the user in two active subscriptions.
		sources := others
		if !containsSubscription(others, from.ID) {
			sources = append(sources, from)
		}
		for _, src := range sources {
			src.RemoveUser(userID)
			if err := r.subs.Update(ctx, src); err != nil {
				return err
			}
		}
		target.AddUser(userID)
		if err := r.subs.Update(ctx, target); err != nil {
			return err
		}

		ledger := r.buildLedger(userID, target, plan, prior)
		if err := r.ledgers.Sync(ctx, ledger); err != nil {
			return err
		}
		result = target
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.log.Info("user migrated between subscriptions",
		logging.String("user_id", userID),
		logging.String("from", fromSubscriptionID),
		logging.String("to", toSubscriptionID),
	)
	r.publish(ctx, Event{
		Type:             EventUserMigrated,
		UserID:           userID,
		SubscriptionID:   toSubscriptionID,
		FromSubscription: fromSubscriptionID,
	})
	return result, nil
}

// UpdateSubscriptionPlanFields writes the scalar fields of a subscription and
// then re-synchronizes every member's ledger with the subscription's current
// limits.  The scalar write is transactional; the per-user fan-out is
// best-effort and failures are returned in the report, never rolled back.
func (r *reconciler) UpdateSubscriptionPlanFields(ctx context.Context, subscriptionID string, fields SubscriptionUpdate) (*SyncReport, error) {
	if subscriptionID == "" {
		return nil, apperrors.NewValidation("subscriptionID required")
	}

	var sub *Subscription
	var plan *Plan
	err := r.tx.RunTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = r.subs.GetByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		plan, err = r.plans.GetByID(ctx, sub.PlanID)
		if err != nil {
			return err
		}

		if fields.Status != nil {
			sub.Status = *fields.Status
		}
		if fields.MonthlyPrice != nil {
			sub.MonthlyPrice = *fields.MonthlyPrice
		}
		if fields.MaxUsers != nil {
			sub.MaxUsers = *fields.MaxUsers
		}
		if fields.EndDate != nil {
			sub.EndDate = *fields.EndDate
		}
		if fields.UserIDs != nil {
			sub.UserIDs = append([]string(nil), (*fields.UserIDs)...)
		}
		sub.CurrentUsers = len(sub.UserIDs)
		return r.subs.Update(ctx, sub)
	})
	if err != nil {
		return nil, err
	}

	report := &SyncReport{}
	for _, uid := range sub.UserIDs {
		if err := r.syncMemberLedger(ctx, uid, sub, plan); err != nil {
			r.log.Warn("ledger sync failed during subscription edit",
				logging.String("user_id", uid),
				logging.String("subscription_id", subscriptionID),
				logging.Err(err),
			)
			report.Failures = append(report.Failures, SyncFailure{UserID: uid, Reason: err.Error()})
			continue
		}
		report.Synced++
	}

	r.publish(ctx, Event{Type: EventSubscriptionEdited, SubscriptionID: subscriptionID})
	return report, nil
}

// DeletePlanAndMigrateUsers rewrites every ledger referencing planID to the
// target plan's name and limit, preserving usage, then deletes the plan.  The
// plan is deleted even when some migrations failed; failures are reported in
// the result and logged, matching the documented non-atomicity of the
// operation.
func (r *reconciler) DeletePlanAndMigrateUsers(ctx context.Context, planID, targetPlanID string) (*MigrationReport, error) {
	if planID == "" || targetPlanID == "" {
		return nil, apperrors.NewValidation("planID and targetPlanID required")
	}
	if planID == targetPlanID {
		return nil, apperrors.New(apperrors.ErrCodePlanSelfMigration, "cannot migrate a plan onto itself")
	}

	target, err := r.plans.GetByID(ctx, targetPlanID)
	if err != nil {
		return nil, err
	}
	if _, err := r.plans.GetByID(ctx, planID); err != nil {
		return nil, err
	}

	ledgers, err := r.ledgers.ListByPlan(ctx, planID)
	if err != nil {
		return nil, err
	}

	report := &MigrationReport{}
	for _, ledger := range ledgers {
		ledger.PlanID = target.ID
		ledger.PlanName = target.Name
		ledger.SearchesLimit = target.SearchesPerUser
		// SearchesUsed deliberately untouched.
		if err := r.ledgers.Sync(ctx, ledger); err != nil {
			r.log.Warn("ledger migration failed during plan deletion",
				logging.String("user_id", ledger.UserID),
				logging.String("plan_id", planID),
				logging.Err(err),
			)
			report.Failures = append(report.Failures, SyncFailure{UserID: ledger.UserID, Reason: err.Error()})
			continue
		}
		report.Migrated++
	}

	if err := r.plans.Delete(ctx, planID); err != nil {
		return report, err
	}
	report.PlanDeleted = true

	r.log.Info("plan deleted, users migrated",
		logging.String("plan_id", planID),
		logging.String("target_plan_id", targetPlanID),
		logging.Int("migrated", report.Migrated),
		logging.Int("failed", len(report.Failures)),
	)
	r.publish(ctx, Event{Type: EventPlanDeleted, PlanID: planID})
	return report, nil
}

// RecomputeAggregates repairs the denormalized CurrentUsers and
// TotalSearchesUsed fields from the authoritative membership list and the
// members' ledgers.
func (r *reconciler) RecomputeAggregates(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var result *Subscription
	err := r.tx.RunTx(ctx, func(ctx context.Context) error {
		sub, err := r.subs.GetByID(ctx, subscriptionID)
		if err != nil {
			return err
		}
		var total int64
		for _, uid := range sub.UserIDs {
			ledger, err := r.ledgers.Get(ctx, uid)
			if err != nil {
				if apperrors.IsNotFound(err) {
					continue
				}
				return err
			}
			total += int64(ledger.SearchesUsed)
		}
		sub.CurrentUsers = len(sub.UserIDs)
		sub.TotalSearchesUsed = total
		if err := r.subs.Update(ctx, sub); err != nil {
			return err
		}
		result = sub
		return nil
	})
	return result, err
}

// conflictingMemberships returns the active subscriptions other than exclude
// that contain uid.
func (r *reconciler) conflictingMemberships(ctx context.Context, uid, exclude string) ([]*Subscription, error) {
	active, err := r.subs.ListActiveByUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	out := active[:0]
	for _, s := range active {
		if s.ID != exclude {
			out = append(out, s)
		}
	}
	return out, nil
}

func containsSubscription(subs []*Subscription, id string) bool {
	for _, s := range subs {
		if s.ID == id {
			return true
		}
	}
	return false
}

// buildLedger derives the ledger written on assignment or migration.  The
// limit comes from the subscription (falling back to the plan when the
// subscription copy is zero) and the usage counter is preserved from any
// prior ledger, never reset.
func (r *reconciler) buildLedger(uid string, sub *Subscription, plan *Plan, prior *QuotaLedger) *QuotaLedger {
	limit := sub.SearchesPerUser
	if limit == 0 {
		limit = plan.SearchesPerUser
	}
	ledger := &QuotaLedger{
		UserID:         uid,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		PlanName:       plan.Name,
		SearchesLimit:  limit,
		Status:         LedgerActive,
	}
	if prior != nil {
		ledger.SearchesUsed = prior.SearchesUsed
		ledger.LastJobID = prior.LastJobID
	}
	return ledger
}

// syncMemberLedger refreshes one member's limit and plan name after a
// subscription edit, preserving usage.
func (r *reconciler) syncMemberLedger(ctx context.Context, uid string, sub *Subscription, plan *Plan) error {
	prior, err := r.ledgers.Get(ctx, uid)
	if err != nil && !apperrors.IsNotFound(err) {
		return err
	}
	ledger := r.buildLedger(uid, sub, plan, prior)
	return r.ledgers.Sync(ctx, ledger)
}

func (r *reconciler) publish(ctx context.Context, event Event) {
	event.OccurredAt = time.Now().UTC()
	if err := r.events.Publish(ctx, event); err != nil {
		r.log.Warn("audit event publish failed",
			logging.String("event", string(event.Type)),
			logging.Err(err),
		)
	}
}
