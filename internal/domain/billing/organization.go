// Package billing contains the subscription, plan, and quota-ledger domain:
// the entities stored in Firestore, the repository contracts, and the
// reconciliation services that keep subscription membership and per-user
// quota ledgers mutually consistent.
package billing

import (
	"strings"
	"time"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// OrganizationType distinguishes individual customers from companies.
type OrganizationType string

const (
	OrganizationIndividual OrganizationType = "individual"
	OrganizationCompany    OrganizationType = "company"
)

// OrganizationStatus is the lifecycle state of an organization.
type OrganizationStatus string

const (
	OrganizationActive   OrganizationStatus = "active"
	OrganizationInactive OrganizationStatus = "inactive"
)

// Organization is a customer account that subscriptions are billed to.
// CNPJ is the Brazilian company registration number and only applies to
// company-type organizations.
type Organization struct {
	ID        string             `firestore:"-" json:"id"`
	Name      string             `firestore:"name" json:"name"`
	Type      OrganizationType   `firestore:"type" json:"type"`
	Email     string             `firestore:"email" json:"email"`
	CNPJ      string             `firestore:"cnpj,omitempty" json:"cnpj,omitempty"`
	Phone     string             `firestore:"phone,omitempty" json:"phone,omitempty"`
	Status    OrganizationStatus `firestore:"status" json:"status"`
	CreatedAt time.Time          `firestore:"createdAt,serverTimestamp" json:"created_at"`
	UpdatedAt time.Time          `firestore:"updatedAt,serverTimestamp" json:"updated_at"`
}

// NewOrganization validates and constructs an Organization in the active state.
func NewOrganization(name string, orgType OrganizationType, email string) (*Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.ErrCodeOrganizationInvalid, "organization name required")
	}
	if email == "" {
		return nil, apperrors.New(apperrors.ErrCodeOrganizationInvalid, "organization email required")
	}
	switch orgType {
	case OrganizationIndividual, OrganizationCompany:
	default:
		return nil, apperrors.Newf(apperrors.ErrCodeOrganizationInvalid, "unknown organization type %q", orgType)
	}
	return &Organization{
		Name:   name,
		Type:   orgType,
		Email:  email,
		Status: OrganizationActive,
	}, nil
}

// IsActive reports whether the organization can hold active subscriptions.
func (o *Organization) IsActive() bool {
	return o.Status == OrganizationActive
}
