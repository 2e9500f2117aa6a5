package billing

import (
	"context"
	"time"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// CreateSubscriptionCommand carries the inputs for a new subscription.
type CreateSubscriptionCommand struct {
	OrganizationID string
	PlanID         string
	StartDate      time.Time
	EndDate        time.Time
	// InitialUserIDs are assigned through the Reconciler one by one after the
	// subscription document is created, so every membership invariant applies
	// to the initial list as well.
	InitialUserIDs []string
}

// AdminService exposes the administrative CRUD surface over organizations,
// plans, and subscriptions.  Membership mutations are delegated to the
// Reconciler; this service never edits userIds or ledgers directly.
type AdminService interface {
	CreateOrganization(ctx context.Context, name string, orgType OrganizationType, email, cnpj, phone string) (*Organization, error)
	GetOrganization(ctx context.Context, id string) (*Organization, error)
	ListOrganizations(ctx context.Context) ([]*Organization, error)
	UpdateOrganization(ctx context.Context, org *Organization) error
	SetOrganizationStatus(ctx context.Context, id string, status OrganizationStatus) error

	CreatePlan(ctx context.Context, name string, price float64, searchesPerUser, maxUsers int, features []string) (*Plan, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	ListPlans(ctx context.Context, onlyActive bool) ([]*Plan, error)
	UpdatePlan(ctx context.Context, plan *Plan) error

	CreateSubscription(ctx context.Context, cmd CreateSubscriptionCommand) (*Subscription, *SyncReport, error)
	GetSubscription(ctx context.Context, id string) (*Subscription, error)
	ListSubscriptions(ctx context.Context, orgID string) ([]*Subscription, error)
	SetSubscriptionStatus(ctx context.Context, id string, status SubscriptionStatus) (*Subscription, error)
	DeleteSubscription(ctx context.Context, id string) error
}

type adminService struct {
	orgs       OrganizationRepository
	plans      PlanRepository
	subs       SubscriptionRepository
	ledgers    LedgerRepository
	reconciler Reconciler
	tx         TxRunner
	log        logging.Logger
}

// NewAdminService constructs the AdminService.
func NewAdminService(orgs OrganizationRepository, plans PlanRepository, subs SubscriptionRepository, ledgers LedgerRepository, rec Reconciler, tx TxRunner, log logging.Logger) AdminService {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &adminService{
		orgs:       orgs,
		plans:      plans,
		subs:       subs,
		ledgers:    ledgers,
		reconciler: rec,
		tx:         tx,
		log:        log.Named("admin"),
	}
}

func (s *adminService) CreateOrganization(ctx context.Context, name string, orgType OrganizationType, email, cnpj, phone string) (*Organization, error) {
	org, err := NewOrganization(name, orgType, email)
	if err != nil {
		return nil, err
	}
	org.CNPJ = cnpj
	org.Phone = phone
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, err
	}
	s.log.Info("organization created", logging.String("org_id", org.ID), logging.String("name", org.Name))
	return org, nil
}

func (s *adminService) GetOrganization(ctx context.Context, id string) (*Organization, error) {
	return s.orgs.GetByID(ctx, id)
}

func (s *adminService) ListOrganizations(ctx context.Context) ([]*Organization, error) {
	return s.orgs.List(ctx)
}

func (s *adminService) UpdateOrganization(ctx context.Context, org *Organization) error {
	if org == nil || org.ID == "" {
		return apperrors.NewValidation("organization id required")
	}
	return s.orgs.Update(ctx, org)
}

func (s *adminService) SetOrganizationStatus(ctx context.Context, id string, status OrganizationStatus) error {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	org.Status = status
	return s.orgs.Update(ctx, org)
}

func (s *adminService) CreatePlan(ctx context.Context, name string, price float64, searchesPerUser, maxUsers int, features []string) (*Plan, error) {
	plan, err := NewPlan(name, price, searchesPerUser, maxUsers)
	if err != nil {
		return nil, err
	}
	plan.Features = features
	if err := s.plans.Create(ctx, plan); err != nil {
		return nil, err
	}
	s.log.Info("plan created", logging.String("plan_id", plan.ID), logging.String("name", plan.Name))
	return plan, nil
}

func (s *adminService) GetPlan(ctx context.Context, id string) (*Plan, error) {
	return s.plans.GetByID(ctx, id)
}

func (s *adminService) ListPlans(ctx context.Context, onlyActive bool) ([]*Plan, error) {
	return s.plans.List(ctx, onlyActive)
}

func (s *adminService) UpdatePlan(ctx context.Context, plan *Plan) error {
	if plan == nil || plan.ID == "" {
		return apperrors.NewValidation("plan id required")
	}
	if _, err := NewPlan(plan.Name, plan.Price, plan.SearchesPerUser, plan.MaxUsers); err != nil {
		return err
	}
	return s.plans.Update(ctx, plan)
}

// CreateSubscription creates the subscription document and then assigns the
// initial members through the Reconciler.  Assignment failures do not undo
// the subscription; they are reported in the SyncReport so the admin can
// retry individual users.
func (s *adminService) CreateSubscription(ctx context.Context, cmd CreateSubscriptionCommand) (*Subscription, *SyncReport, error) {
	org, err := s.orgs.GetByID(ctx, cmd.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.plans.GetByID(ctx, cmd.PlanID)
	if err != nil {
		return nil, nil, err
	}
	sub, err := NewSubscription(org, plan, cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, nil, err
	}
	if err := s.subs.Create(ctx, sub); err != nil {
		return nil, nil, err
	}

	report := &SyncReport{}
	for _, uid := range cmd.InitialUserIDs {
		if _, err := s.reconciler.AssignUserToSubscription(ctx, uid, sub.ID, AssignOptions{}); err != nil {
			report.Failures = append(report.Failures, SyncFailure{UserID: uid, Reason: err.Error()})
			continue
		}
		report.Synced++
	}

	// Re-read so the returned snapshot reflects the assignments.
	final, err := s.subs.GetByID(ctx, sub.ID)
	if err != nil {
		return sub, report, nil
	}
	s.log.Info("subscription created",
		logging.String("subscription_id", final.ID),
		logging.String("org_id", cmd.OrganizationID),
		logging.Int("members", final.CurrentUsers),
	)
	return final, report, nil
}

func (s *adminService) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	return s.subs.GetByID(ctx, id)
}

func (s *adminService) ListSubscriptions(ctx context.Context, orgID string) ([]*Subscription, error) {
	if orgID == "" {
		return s.subs.List(ctx)
	}
	return s.subs.ListByOrganization(ctx, orgID)
}

func (s *adminService) SetSubscriptionStatus(ctx context.Context, id string, status SubscriptionStatus) (*Subscription, error) {
	switch status {
	case SubscriptionActive, SubscriptionPaused, SubscriptionExpired, SubscriptionCancelled:
	default:
		return nil, apperrors.NewValidation("unknown subscription status %q", status)
	}
	var sub *Subscription
	err := s.tx.RunTx(ctx, func(ctx context.Context) error {
		var err error
		sub, err = s.subs.GetByID(ctx, id)
		if err != nil {
			return err
		}
		sub.Status = status
		return s.subs.Update(ctx, sub)
	})
	return sub, err
}

// DeleteSubscription removes the subscription after detaching every member's
// ledger.  Member ledgers keep their usage counters so a later re-assignment
// does not grant a fresh allowance.
func (s *adminService) DeleteSubscription(ctx context.Context, id string) error {
	sub, err := s.subs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	for _, uid := range sub.UserIDs {
		if _, err := s.reconciler.RemoveUserFromSubscription(ctx, uid, id); err != nil {
			s.log.Warn("ledger detach failed during subscription delete",
				logging.String("user_id", uid),
				logging.String("subscription_id", id),
				logging.Err(err),
			)
		}
	}
	return s.subs.Delete(ctx, id)
}
