package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

func TestAssignUser_FreshAssignment(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-basic", "Basic", 5, 2)
	f.seedSubscription("sub-1", "plan-basic", billing.SubscriptionActive, 2, 5)

	sub, err := f.reconciler.AssignUserToSubscription(context.Background(), "u1", "sub-1", billing.AssignOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"u1"}, sub.UserIDs)
	assert.Equal(t, 1, sub.CurrentUsers)

	ledger, err := f.ledgers.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, ledger.SearchesUsed)
	assert.Equal(t, 5, ledger.SearchesLimit)
	assert.Equal(t, "Basic", ledger.PlanName)
	assert.Equal(t, "sub-1", ledger.SubscriptionID)
	assert.Equal(t, billing.LedgerActive, ledger.Status)

	assert.Len(t, f.events.byType(billing.EventUserAssigned), 1)
}

func TestAssignUser_CapacityExceeded(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-basic", "Basic", 5, 2)
	f.seedSubscription("sub-1", "plan-basic", billing.SubscriptionActive, 2, 5, "u1", "u2")

	_, err := f.reconciler.AssignUserToSubscription(context.Background(), "u3", "sub-1", billing.AssignOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSubscriptionCapacity))

	// Membership list unchanged.
	sub, err := f.subs.GetByID(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, sub.UserIDs)
	assert.Equal(t, 2, sub.CurrentUsers)
}

func TestAssignUser_ReassignExistingMemberAtCapacity(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-basic", "Basic", 5, 2)
	f.seedSubscription("sub-1", "plan-basic", billing.SubscriptionActive, 2, 5, "u1", "u2")
	f.seedLedger("u1", "sub-1", "plan-basic", "Basic", 3, 5)

	// Re-assigning a current member must not trip the capacity check or
	// duplicate the membership entry.
	sub, err := f.reconciler.AssignUserToSubscription(context.Background(), "u1", "sub-1", billing.AssignOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, sub.UserIDs)

	ledger, err := f.ledgers.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, ledger.SearchesUsed, "usage must survive re-assignment")
}

func TestAssignUser_InactiveSubscription(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-basic", "Basic", 5, 2)
	f.seedSubscription("sub-1", "plan-basic", billing.SubscriptionPaused, 2, 5)

	_, err := f.reconciler.AssignUserToSubscription(context.Background(), "u1", "sub-1", billing.AssignOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSubscriptionInactive))
}

func TestAssignUser_MigrationRequiresConfirmation(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-basic", "Basic", 5, 2)
	f.seedSubscription("sub-a", "plan-basic", billing.SubscriptionActive, 2, 5, "u1")
	f.seedSubscription("sub-b", "plan-basic", billing.SubscriptionActive, 2, 5)
	f.seedLedger("u1", "sub-a", "plan-basic", "Basic", 2, 5)

	_, err := f.reconciler.AssignUserToSubscription(context.Background(), "u1", "sub-b", billing.AssignOptions{})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeMigrationRequired))

	// With confirmation the user moves and is a member of exactly one
	// active subscription afterwards.
	sub, err := f.reconciler.AssignUserToSubscription(context.Background(), "u1", "sub-b", billing.AssignOptions{ConfirmMigration: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, sub.UserIDs)

	active, err := f.subs.ListActiveByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "sub-b", active[0].ID)

	ledger, err := f.ledgers.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.SearchesUsed)
}

func TestMigrateUser_PreservesUsage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	f.seedPlan("plan-b", "Pro", 10, 10)
	f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5, "u1")
	f.seedSubscription("sub-b", "plan-b", billing.SubscriptionActive, 10, 10)
	f.seedLedger("u1", "sub-a", "plan-a", "Starter", 3, 5)

	target, err := f.reconciler.MigrateUser(context.Background(), "u1", "sub-a", "sub-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, target.UserIDs)

	from, err := f.subs.GetByID(context.Background(), "sub-a")
	require.NoError(t, err)
	assert.False(t, from.HasUser("u1"))
	assert.Equal(t, 0, from.CurrentUsers)

	ledger, err := f.ledgers.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, ledger.SearchesUsed)
	assert.Equal(t, 10, ledger.SearchesLimit)
	assert.Equal(t, "Pro", ledger.PlanName)
}

func TestMigrateUser_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	f.seedPlan("plan-b", "Pro", 10, 10)
	f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5, "u1")
	f.seedSubscription("sub-b", "plan-b", billing.SubscriptionActive, 10, 10)
	f.seedLedger("u1", "sub-a", "plan-a", "Starter", 3, 5)

	_, err := f.reconciler.MigrateUser(context.Background(), "u1", "sub-a", "sub-b")
	require.NoError(t, err)
	_, err = f.reconciler.MigrateUser(context.Background(), "u1", "sub-a", "sub-b")
	require.NoError(t, err)

	target, err := f.subs.GetByID(context.Background(), "sub-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, target.UserIDs, "no duplicate membership entry")
	assert.Equal(t, 1, target.CurrentUsers)

	from, err := f.subs.GetByID(context.Background(), "sub-a")
	require.NoError(t, err)
	assert.Empty(t, from.UserIDs)

	ledger, err := f.ledgers.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, ledger.SearchesUsed)
}

func TestMigrateUser_StaleSourceStillSingleMembership(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	f.seedPlan("plan-b", "Pro", 10, 10)
	f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5)
	f.seedSubscription("sub-b", "plan-b", billing.SubscriptionActive, 10, 10)
	f.seedSubscription("sub-c", "plan-a", billing.SubscriptionActive, 10, 5, "u1")
	f.seedLedger("u1", "sub-c", "plan-a", "Starter", 2, 5)

	// The caller names sub-a as the source even though the user actually
	// lives in sub-c.
	target, err := f.reconciler.MigrateUser(context.Background(), "u1", "sub-a", "sub-b")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, target.UserIDs)

	stale, err := f.subs.GetByID(context.Background(), "sub-c")
	require.NoError(t, err)
	assert.False(t, stale.HasUser("u1"))
	assert.Equal(t, 0, stale.CurrentUsers)

	active, err := f.subs.ListActiveByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, active, 1, "user must belong to at most one active subscription")
	assert.Equal(t, "sub-b", active[0].ID)

	ledger, err := f.ledgers.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.SearchesUsed)
	assert.Equal(t, "sub-b", ledger.SubscriptionID)
}

func TestMigrateUser_SameSourceAndTarget(t *testing.T) {
	t.Parallel()

	f := newFixture()
	_, err := f.reconciler.MigrateUser(context.Background(), "u1", "sub-a", "sub-a")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeValidation))
}

func TestRemoveUser_DetachesLedgerKeepingUsage(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5, "u1", "u2")
	f.seedLedger("u1", "sub-a", "plan-a", "Starter", 4, 5)

	sub, err := f.reconciler.RemoveUserFromSubscription(context.Background(), "u1", "sub-a")
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, sub.UserIDs)
	assert.Equal(t, 1, sub.CurrentUsers)

	ledger, err := f.ledgers.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, ledger.SubscriptionID)
	assert.Equal(t, billing.LedgerUnassigned, ledger.Status)
	assert.Equal(t, 4, ledger.SearchesUsed)
}

func TestUpdateSubscriptionPlanFields_FanOutSync(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5, "u1", "u2")
	f.seedLedger("u1", "sub-a", "plan-a", "Starter", 2, 5)
	f.seedLedger("u2", "sub-a", "plan-a", "Starter", 5, 5)

	newMax := 20
	report, err := f.reconciler.UpdateSubscriptionPlanFields(context.Background(), "sub-a", billing.SubscriptionUpdate{
		MaxUsers: &newMax,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Synced)
	assert.Empty(t, report.Failures)

	sub, err := f.subs.GetByID(context.Background(), "sub-a")
	require.NoError(t, err)
	assert.Equal(t, 20, sub.MaxUsers)
	assert.Equal(t, 2, sub.CurrentUsers)

	for uid, wantUsed := range map[string]int{"u1": 2, "u2": 5} {
		ledger, err := f.ledgers.Get(context.Background(), uid)
		require.NoError(t, err)
		assert.Equal(t, wantUsed, ledger.SearchesUsed, "usage preserved for %s", uid)
	}
}

func TestUpdateSubscriptionPlanFields_PartialFailureReported(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5, "u1", "u2", "u3")
	f.seedLedger("u1", "sub-a", "plan-a", "Starter", 1, 5)
	f.seedLedger("u2", "sub-a", "plan-a", "Starter", 2, 5)
	f.seedLedger("u3", "sub-a", "plan-a", "Starter", 3, 5)
	f.store.failLedgerSync["u2"] = apperrors.New(apperrors.ErrCodeDocumentStore, "write failed")

	status := billing.SubscriptionPaused
	report, err := f.reconciler.UpdateSubscriptionPlanFields(context.Background(), "sub-a", billing.SubscriptionUpdate{
		Status: &status,
	})
	require.NoError(t, err, "per-user failures must not fail the operation")
	assert.Equal(t, 2, report.Synced)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "u2", report.Failures[0].UserID)

	// The subscription's own write stands despite the failed sync.
	sub, err := f.subs.GetByID(context.Background(), "sub-a")
	require.NoError(t, err)
	assert.Equal(t, billing.SubscriptionPaused, sub.Status)
}

func TestDeletePlanAndMigrateUsers_Cascades(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-old", "Legacy", 5, 10)
	f.seedPlan("plan-new", "Pro", 20, 10)
	f.seedLedger("u1", "sub-a", "plan-old", "Legacy", 3, 5)
	f.seedLedger("u2", "sub-a", "plan-old", "Legacy", 1, 5)

	report, err := f.reconciler.DeletePlanAndMigrateUsers(context.Background(), "plan-old", "plan-new")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Migrated)
	assert.True(t, report.PlanDeleted)
	assert.Empty(t, report.Failures)

	for uid, wantUsed := range map[string]int{"u1": 3, "u2": 1} {
		ledger, err := f.ledgers.Get(context.Background(), uid)
		require.NoError(t, err)
		assert.Equal(t, "plan-new", ledger.PlanID)
		assert.Equal(t, "Pro", ledger.PlanName)
		assert.Equal(t, 20, ledger.SearchesLimit)
		assert.Equal(t, wantUsed, ledger.SearchesUsed)
	}

	_, err = f.plans.GetByID(context.Background(), "plan-old")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeletePlanAndMigrateUsers_DeletesDespitePartialFailure(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-old", "Legacy", 5, 10)
	f.seedPlan("plan-new", "Pro", 20, 10)
	f.seedLedger("u1", "sub-a", "plan-old", "Legacy", 3, 5)
	f.seedLedger("u2", "sub-a", "plan-old", "Legacy", 1, 5)
	f.store.failLedgerSync["u1"] = apperrors.New(apperrors.ErrCodeDocumentStore, "write failed")

	report, err := f.reconciler.DeletePlanAndMigrateUsers(context.Background(), "plan-old", "plan-new")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Migrated)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "u1", report.Failures[0].UserID)
	assert.True(t, report.PlanDeleted)

	_, err = f.plans.GetByID(context.Background(), "plan-old")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestDeletePlan_SelfMigrationRejected(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)

	_, err := f.reconciler.DeletePlanAndMigrateUsers(context.Background(), "plan-a", "plan-a")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodePlanSelfMigration))
}

func TestRecomputeAggregates(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	sub := f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5, "u1", "u2")
	sub.CurrentUsers = 7 // corrupt the denormalized count
	sub.TotalSearchesUsed = 0
	f.seedLedger("u1", "sub-a", "plan-a", "Starter", 2, 5)
	f.seedLedger("u2", "sub-a", "plan-a", "Starter", 3, 5)

	repaired, err := f.reconciler.RecomputeAggregates(context.Background(), "sub-a")
	require.NoError(t, err)
	assert.Equal(t, 2, repaired.CurrentUsers)
	assert.Equal(t, int64(5), repaired.TotalSearchesUsed)
}

// TestNoDoubleActiveMembership drives a sequence of assigns and migrations
// and checks the core invariant after every step: a user appears in the
// membership list of at most one active subscription.
func TestNoDoubleActiveMembership(t *testing.T) {
	t.Parallel()

	f := newFixture()
	f.seedPlan("plan-a", "Starter", 5, 10)
	f.seedSubscription("sub-a", "plan-a", billing.SubscriptionActive, 10, 5)
	f.seedSubscription("sub-b", "plan-a", billing.SubscriptionActive, 10, 5)
	f.seedSubscription("sub-c", "plan-a", billing.SubscriptionActive, 10, 5)

	ctx := context.Background()
	steps := []func() error{
		func() error {
			_, err := f.reconciler.AssignUserToSubscription(ctx, "u1", "sub-a", billing.AssignOptions{})
			return err
		},
		func() error {
			_, err := f.reconciler.AssignUserToSubscription(ctx, "u1", "sub-b", billing.AssignOptions{ConfirmMigration: true})
			return err
		},
		func() error {
			_, err := f.reconciler.MigrateUser(ctx, "u1", "sub-b", "sub-c")
			return err
		},
		func() error {
			_, err := f.reconciler.MigrateUser(ctx, "u1", "sub-b", "sub-c") // repeat
			return err
		},
		func() error {
			_, err := f.reconciler.AssignUserToSubscription(ctx, "u1", "sub-a", billing.AssignOptions{ConfirmMigration: true})
			return err
		},
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		active, err := f.subs.ListActiveByUser(ctx, "u1")
		require.NoError(t, err)
		assert.LessOrEqual(t, len(active), 1, "after step %d", i)
		for _, sub := range active {
			assert.Equal(t, len(sub.UserIDs), sub.CurrentUsers, "count consistency after step %d", i)
		}
	}
}
