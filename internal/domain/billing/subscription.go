package billing

import (
	"time"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPaused    SubscriptionStatus = "paused"
	SubscriptionExpired   SubscriptionStatus = "expired"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription links an organization to a plan for a billing period.
//
// UserIDs is the authoritative membership list; CurrentUsers is a denormalized
// count that must equal len(UserIDs) after every reconciler operation.  A user
// may appear in at most one subscription with status "active" at any time.
type Subscription struct {
	ID                string             `firestore:"-" json:"id"`
	OrganizationID    string             `firestore:"organizationId" json:"organization_id"`
	PlanID            string             `firestore:"planId" json:"plan_id"`
	Status            SubscriptionStatus `firestore:"status" json:"status"`
	StartDate         time.Time          `firestore:"startDate" json:"start_date"`
	EndDate           time.Time          `firestore:"endDate" json:"end_date"`
	MonthlyPrice      float64            `firestore:"monthlyPrice" json:"monthly_price"`
	MaxUsers          int                `firestore:"maxUsers" json:"max_users"`
	SearchesPerUser   int                `firestore:"searchesPerUser" json:"searches_per_user"`
	CurrentUsers      int                `firestore:"currentUsers" json:"current_users"`
	TotalSearchesUsed int64              `firestore:"totalSearchesUsed" json:"total_searches_used"`
	UserIDs           []string           `firestore:"userIds" json:"user_ids"`
	CreatedAt         time.Time          `firestore:"createdAt,serverTimestamp" json:"created_at"`
	UpdatedAt         time.Time          `firestore:"updatedAt,serverTimestamp" json:"updated_at"`
}

// NewSubscription constructs an active subscription from an organization and
// a plan, copying the plan's seat and quota parameters so later plan edits do
// not silently change live subscriptions.
func NewSubscription(org *Organization, plan *Plan, start, end time.Time) (*Subscription, error) {
	if org == nil {
		return nil, apperrors.New(apperrors.ErrCodeOrganizationNotFound, "organization required")
	}
	if !org.IsActive() {
		return nil, apperrors.New(apperrors.ErrCodeOrganizationInactive, "organization is inactive").WithDetail("id=" + org.ID)
	}
	if plan == nil {
		return nil, apperrors.New(apperrors.ErrCodePlanNotFound, "plan required")
	}
	if !plan.IsActive {
		return nil, apperrors.New(apperrors.ErrCodePlanInvalid, "plan is not active").WithDetail("id=" + plan.ID)
	}
	if end.Before(start) {
		return nil, apperrors.NewValidation("subscription end date before start date")
	}
	return &Subscription{
		OrganizationID:  org.ID,
		PlanID:          plan.ID,
		Status:          SubscriptionActive,
		StartDate:       start,
		EndDate:         end,
		MonthlyPrice:    plan.Price,
		MaxUsers:        plan.MaxUsers,
		SearchesPerUser: plan.SearchesPerUser,
		UserIDs:         []string{},
	}, nil
}

// IsActive reports whether the subscription accepts members and searches.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}

// HasUser reports whether uid is a member.
func (s *Subscription) HasUser(uid string) bool {
	for _, id := range s.UserIDs {
		if id == uid {
			return true
		}
	}
	return false
}

// AtCapacity reports whether the membership list is full.
func (s *Subscription) AtCapacity() bool {
	return s.MaxUsers > 0 && len(s.UserIDs) >= s.MaxUsers
}

// AddUser appends uid to the membership list and recomputes CurrentUsers.
// Adding an id that is already present is a no-op, so repeated migrations
// never duplicate entries.
func (s *Subscription) AddUser(uid string) {
	if !s.HasUser(uid) {
		s.UserIDs = append(s.UserIDs, uid)
	}
	s.CurrentUsers = len(s.UserIDs)
}

// RemoveUser deletes uid from the membership list and recomputes
// CurrentUsers.  Removing an absent id is a no-op.
func (s *Subscription) RemoveUser(uid string) {
	out := s.UserIDs[:0]
	for _, id := range s.UserIDs {
		if id != uid {
			out = append(out, id)
		}
	}
	s.UserIDs = out
	s.CurrentUsers = len(s.UserIDs)
}

// SubscriptionUpdate carries the scalar fields an admin edit may change.
// Nil fields are left untouched.
type SubscriptionUpdate struct {
	Status       *SubscriptionStatus
	MonthlyPrice *float64
	MaxUsers     *int
	EndDate      *time.Time
	UserIDs      *[]string
}

// UserProfile is the Firestore profile document mirroring a Firebase Auth
// identity.
type UserProfile struct {
	UID            string    `firestore:"-" json:"uid"`
	Email          string    `firestore:"email" json:"email"`
	DisplayName    string    `firestore:"displayName" json:"display_name"`
	Role           string    `firestore:"role" json:"role"`
	OrganizationID string    `firestore:"organizationId,omitempty" json:"organization_id,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt,serverTimestamp" json:"created_at"`
}
