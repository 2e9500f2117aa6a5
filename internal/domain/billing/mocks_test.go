package billing_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// memStore is an in-memory document store shared by the mock repositories.
// Get returns deep copies so callers mutate nothing until Update, mirroring
// document-store semantics.
type memStore struct {
	mu      sync.Mutex
	orgs    map[string]*billing.Organization
	plans   map[string]*billing.Plan
	subs    map[string]*billing.Subscription
	ledgers map[string]*billing.QuotaLedger

	nextID int

	// failLedgerSync injects a sync error for specific user ids.
	failLedgerSync map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		orgs:           map[string]*billing.Organization{},
		plans:          map[string]*billing.Plan{},
		subs:           map[string]*billing.Subscription{},
		ledgers:        map[string]*billing.QuotaLedger{},
		failLedgerSync: map[string]error{},
	}
}

func (m *memStore) id(prefix string) string {
	m.nextID++
	return fmt.Sprintf("%s-%d", prefix, m.nextID)
}

func copySub(s *billing.Subscription) *billing.Subscription {
	c := *s
	c.UserIDs = append([]string(nil), s.UserIDs...)
	return &c
}

func copyLedger(l *billing.QuotaLedger) *billing.QuotaLedger {
	c := *l
	return &c
}

type memOrgRepo struct{ s *memStore }

func (r *memOrgRepo) Create(_ context.Context, org *billing.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if org.ID == "" {
		org.ID = r.s.id("org")
	}
	c := *org
	r.s.orgs[org.ID] = &c
	return nil
}

func (r *memOrgRepo) GetByID(_ context.Context, id string) (*billing.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org, ok := r.s.orgs[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeOrganizationNotFound, "organization not found").WithDetail("id=" + id)
	}
	c := *org
	return &c, nil
}

func (r *memOrgRepo) List(_ context.Context) ([]*billing.Organization, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*billing.Organization, 0, len(r.s.orgs))
	for _, o := range r.s.orgs {
		c := *o
		out = append(out, &c)
	}
	return out, nil
}

func (r *memOrgRepo) Update(_ context.Context, org *billing.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[org.ID]; !ok {
		return apperrors.New(apperrors.ErrCodeOrganizationNotFound, "organization not found")
	}
	c := *org
	r.s.orgs[org.ID] = &c
	return nil
}

func (r *memOrgRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orgs, id)
	return nil
}

type memPlanRepo struct{ s *memStore }

func (r *memPlanRepo) Create(_ context.Context, plan *billing.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if plan.ID == "" {
		plan.ID = r.s.id("plan")
	}
	c := *plan
	r.s.plans[plan.ID] = &c
	return nil
}

func (r *memPlanRepo) GetByID(_ context.Context, id string) (*billing.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.plans[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodePlanNotFound, "plan not found").WithDetail("id=" + id)
	}
	c := *p
	return &c, nil
}

func (r *memPlanRepo) List(_ context.Context, onlyActive bool) ([]*billing.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*billing.Plan{}
	for _, p := range r.s.plans {
		if onlyActive && !p.IsActive {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (r *memPlanRepo) Update(_ context.Context, plan *billing.Plan) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.plans[plan.ID]; !ok {
		return apperrors.New(apperrors.ErrCodePlanNotFound, "plan not found")
	}
	c := *plan
	r.s.plans[plan.ID] = &c
	return nil
}

func (r *memPlanRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.plans, id)
	return nil
}

type memSubRepo struct{ s *memStore }

func (r *memSubRepo) Create(_ context.Context, sub *billing.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = r.s.id("sub")
	}
	r.s.subs[sub.ID] = copySub(sub)
	return nil
}

func (r *memSubRepo) GetByID(_ context.Context, id string) (*billing.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sub, ok := r.s.subs[id]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeSubscriptionNotFound, "subscription not found").WithDetail("id=" + id)
	}
	return copySub(sub), nil
}

func (r *memSubRepo) List(_ context.Context) ([]*billing.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*billing.Subscription{}
	for _, sub := range r.s.subs {
		out = append(out, copySub(sub))
	}
	return out, nil
}

func (r *memSubRepo) ListByOrganization(_ context.Context, orgID string) ([]*billing.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*billing.Subscription{}
	for _, sub := range r.s.subs {
		if sub.OrganizationID == orgID {
			out = append(out, copySub(sub))
		}
	}
	return out, nil
}

func (r *memSubRepo) ListActiveByUser(_ context.Context, uid string) ([]*billing.Subscription, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*billing.Subscription{}
	for _, sub := range r.s.subs {
		if sub.Status == billing.SubscriptionActive && sub.HasUser(uid) {
			out = append(out, copySub(sub))
		}
	}
	return out, nil
}

func (r *memSubRepo) Update(_ context.Context, sub *billing.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.subs[sub.ID]; !ok {
		return apperrors.New(apperrors.ErrCodeSubscriptionNotFound, "subscription not found")
	}
	r.s.subs[sub.ID] = copySub(sub)
	return nil
}

func (r *memSubRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.subs, id)
	return nil
}

type memLedgerRepo struct{ s *memStore }

func (r *memLedgerRepo) Get(_ context.Context, uid string) (*billing.QuotaLedger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.ledgers[uid]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeLedgerNotFound, "quota ledger not found").WithDetail("uid=" + uid)
	}
	return copyLedger(l), nil
}

func (r *memLedgerRepo) Sync(_ context.Context, ledger *billing.QuotaLedger) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err, ok := r.s.failLedgerSync[ledger.UserID]; ok {
		return err
	}
	r.s.ledgers[ledger.UserID] = copyLedger(ledger)
	return nil
}

func (r *memLedgerRepo) ListByPlan(_ context.Context, planID string) ([]*billing.QuotaLedger, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*billing.QuotaLedger{}
	for _, l := range r.s.ledgers {
		if l.PlanID == planID {
			out = append(out, copyLedger(l))
		}
	}
	return out, nil
}

// recordingPublisher captures audit events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []billing.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e billing.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) byType(t billing.EventType) []billing.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := []billing.Event{}
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// fixture bundles a fully wired reconciler over the in-memory store.
type fixture struct {
	store      *memStore
	orgs       *memOrgRepo
	plans      *memPlanRepo
	subs       *memSubRepo
	ledgers    *memLedgerRepo
	events     *recordingPublisher
	reconciler billing.Reconciler
	gate       billing.QuotaGate
}

func newFixture() *fixture {
	s := newMemStore()
	f := &fixture{
		store:   s,
		orgs:    &memOrgRepo{s: s},
		plans:   &memPlanRepo{s: s},
		subs:    &memSubRepo{s: s},
		ledgers: &memLedgerRepo{s: s},
		events:  &recordingPublisher{},
	}
	f.reconciler = billing.NewReconciler(f.subs, f.plans, f.ledgers, billing.NopTxRunner{}, f.events, nil)
	f.gate = billing.NewQuotaGate(f.ledgers, f.subs, billing.NopTxRunner{}, f.events, nil)
	return f
}

// seedPlan inserts a plan document directly.
func (f *fixture) seedPlan(id, name string, searchesPerUser, maxUsers int) *billing.Plan {
	p := &billing.Plan{ID: id, Name: name, SearchesPerUser: searchesPerUser, MaxUsers: maxUsers, IsActive: true}
	f.store.plans[id] = p
	return p
}

// seedSubscription inserts a subscription document directly.
func (f *fixture) seedSubscription(id, planID string, status billing.SubscriptionStatus, maxUsers, searchesPerUser int, userIDs ...string) *billing.Subscription {
	s := &billing.Subscription{
		ID:              id,
		OrganizationID:  "org-1",
		PlanID:          planID,
		Status:          status,
		MaxUsers:        maxUsers,
		SearchesPerUser: searchesPerUser,
		UserIDs:         append([]string{}, userIDs...),
		CurrentUsers:    len(userIDs),
	}
	f.store.subs[id] = s
	return s
}

// seedLedger inserts a ledger document directly.
func (f *fixture) seedLedger(uid, subID, planID, planName string, used, limit int) *billing.QuotaLedger {
	l := &billing.QuotaLedger{
		UserID:         uid,
		SubscriptionID: subID,
		PlanID:         planID,
		PlanName:       planName,
		SearchesUsed:   used,
		SearchesLimit:  limit,
		Status:         billing.LedgerActive,
	}
	f.store.ledgers[uid] = l
	return l
}
