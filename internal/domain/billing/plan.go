package billing

import (
	"strings"
	"time"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// UnlimitedSearches is the sentinel limit meaning no quota is enforced.
const UnlimitedSearches = -1

// Plan is a subscription template: price, per-user search allowance, and seat
// count.  Plans are created once and edited rarely; editing a plan that is
// referenced by subscriptions cascades to the linked users' ledgers through
// the Reconciler.
type Plan struct {
	ID              string    `firestore:"-" json:"id"`
	Name            string    `firestore:"name" json:"name"`
	Price           float64   `firestore:"price" json:"price"`
	SearchesPerUser int       `firestore:"searchesPerUser" json:"searches_per_user"`
	MaxUsers        int       `firestore:"maxUsers" json:"max_users"`
	Features        []string  `firestore:"features" json:"features"`
	IsActive        bool      `firestore:"isActive" json:"is_active"`
	Version         int       `firestore:"version,omitempty" json:"version,omitempty"`
	CreatedAt       time.Time `firestore:"createdAt,serverTimestamp" json:"created_at"`
	UpdatedAt       time.Time `firestore:"updatedAt,serverTimestamp" json:"updated_at"`
}

// NewPlan validates and constructs an active Plan.
func NewPlan(name string, price float64, searchesPerUser, maxUsers int) (*Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrCodePlanInvalid, "plan name required")
	}
	if price < 0 {
		return nil, apperrors.New(apperrors.ErrCodePlanInvalid, "plan price must not be negative")
	}
	if searchesPerUser < UnlimitedSearches || searchesPerUser == 0 {
		return nil, apperrors.New(apperrors.ErrCodePlanInvalid, "searchesPerUser must be positive or the unlimited sentinel")
	}
	if maxUsers <= 0 {
		return nil, apperrors.New(apperrors.ErrCodePlanInvalid, "maxUsers must be positive")
	}
	return &Plan{
		Name:            name,
		Price:           price,
		SearchesPerUser: searchesPerUser,
		MaxUsers:        maxUsers,
		IsActive:        true,
	}, nil
}

// IsUnlimited reports whether the plan grants unmetered searches.
func (p *Plan) IsUnlimited() bool {
	return p.SearchesPerUser == UnlimitedSearches
}
