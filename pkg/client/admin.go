package client

import (
	"context"
	"net/url"
	"time"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// AdminClient covers the administrative billing surface: organizations,
// plans, subscriptions and user management. Every call requires a token
// carrying the admin claim.
type AdminClient struct {
	client *Client
}

// CreateOrganizationRequest creates a customer account.
type CreateOrganizationRequest struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Email string `json:"email"`
	CNPJ  string `json:"cnpj,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// UpdateOrganizationRequest patches contact fields. Empty strings are left
// unchanged.
type UpdateOrganizationRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	CNPJ  string `json:"cnpj,omitempty"`
	Phone string `json:"phone,omitempty"`
}

func (a *AdminClient) CreateOrganization(ctx context.Context, req CreateOrganizationRequest) (*Organization, error) {
	var org Organization
	if err := a.client.post(ctx, "/api/v1/organizations/", req, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (a *AdminClient) ListOrganizations(ctx context.Context) ([]Organization, error) {
	var orgs []Organization
	if err := a.client.get(ctx, "/api/v1/organizations/", &orgs); err != nil {
		return nil, err
	}
	return orgs, nil
}

func (a *AdminClient) GetOrganization(ctx context.Context, orgID string) (*Organization, error) {
	var org Organization
	if err := a.client.get(ctx, "/api/v1/organizations/"+url.PathEscape(orgID), &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (a *AdminClient) UpdateOrganization(ctx context.Context, orgID string, req UpdateOrganizationRequest) (*Organization, error) {
	var org Organization
	if err := a.client.put(ctx, "/api/v1/organizations/"+url.PathEscape(orgID), req, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (a *AdminClient) SetOrganizationStatus(ctx context.Context, orgID, status string) error {
	body := map[string]string{"status": status}
	return a.client.put(ctx, "/api/v1/organizations/"+url.PathEscape(orgID)+"/status", body, nil)
}

// CreatePlanRequest creates a quota template.
type CreatePlanRequest struct {
	Name            string   `json:"name"`
	Price           float64  `json:"price"`
	SearchesPerUser int      `json:"searches_per_user"`
	MaxUsers        int      `json:"max_users"`
	Features        []string `json:"features,omitempty"`
}

// UpdatePlanRequest patches a plan. Nil fields are left unchanged.
type UpdatePlanRequest struct {
	Name            *string   `json:"name,omitempty"`
	Price           *float64  `json:"price,omitempty"`
	SearchesPerUser *int      `json:"searches_per_user,omitempty"`
	MaxUsers        *int      `json:"max_users,omitempty"`
	Features        *[]string `json:"features,omitempty"`
	IsActive        *bool     `json:"is_active,omitempty"`
}

func (a *AdminClient) CreatePlan(ctx context.Context, req CreatePlanRequest) (*Plan, error) {
	var plan Plan
	if err := a.client.post(ctx, "/api/v1/plans/", req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// ListPlans lists plans; activeOnly filters out retired ones.
func (a *AdminClient) ListPlans(ctx context.Context, activeOnly bool) ([]Plan, error) {
	path := "/api/v1/plans/"
	if activeOnly {
		path += "?active=true"
	}
	var plans []Plan
	if err := a.client.get(ctx, path, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (a *AdminClient) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	var plan Plan
	if err := a.client.get(ctx, "/api/v1/plans/"+url.PathEscape(planID), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (a *AdminClient) UpdatePlan(ctx context.Context, planID string, req UpdatePlanRequest) (*Plan, error) {
	var plan Plan
	if err := a.client.put(ctx, "/api/v1/plans/"+url.PathEscape(planID), req, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// DeletePlan removes a plan, migrating its users to targetPlanID first. The
// report lists users that could not be moved; the plan survives if any
// migration failed.
func (a *AdminClient) DeletePlan(ctx context.Context, planID, targetPlanID string) (*MigrationReport, error) {
	if targetPlanID == "" {
		return nil, apperrors.NewValidation("target plan required")
	}
	body := map[string]string{"target_plan_id": targetPlanID}
	var report MigrationReport
	if err := a.client.do(ctx, "DELETE", "/api/v1/plans/"+url.PathEscape(planID), body, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// CreateSubscriptionRequest opens a subscription for an organization.
type CreateSubscriptionRequest struct {
	OrganizationID string    `json:"organization_id"`
	PlanID         string    `json:"plan_id"`
	StartDate      time.Time `json:"start_date"`
	EndDate        time.Time `json:"end_date"`
	UserIDs        []string  `json:"user_ids,omitempty"`
}

// CreateSubscriptionResult pairs the created subscription with the member
// quota fan-out report.
type CreateSubscriptionResult struct {
	Subscription *Subscription `json:"subscription"`
	MemberSync   *SyncReport   `json:"member_sync,omitempty"`
}

// UpdateSubscriptionRequest patches a subscription. Nil fields are left
// unchanged.
type UpdateSubscriptionRequest struct {
	MonthlyPrice *float64   `json:"monthly_price,omitempty"`
	MaxUsers     *int       `json:"max_users,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
	UserIDs      *[]string  `json:"user_ids,omitempty"`
}

func (a *AdminClient) CreateSubscription(ctx context.Context, req CreateSubscriptionRequest) (*CreateSubscriptionResult, error) {
	var result CreateSubscriptionResult
	if err := a.client.post(ctx, "/api/v1/subscriptions/", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSubscriptions lists subscriptions, optionally filtered by organization.
func (a *AdminClient) ListSubscriptions(ctx context.Context, organizationID string) ([]Subscription, error) {
	path := "/api/v1/subscriptions/"
	if organizationID != "" {
		path += "?organization_id=" + url.QueryEscape(organizationID)
	}
	var subs []Subscription
	if err := a.client.get(ctx, path, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

func (a *AdminClient) GetSubscription(ctx context.Context, subID string) (*Subscription, error) {
	var sub Subscription
	if err := a.client.get(ctx, "/api/v1/subscriptions/"+url.PathEscape(subID), &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpdateSubscription applies a patch and returns the member fan-out report.
func (a *AdminClient) UpdateSubscription(ctx context.Context, subID string, req UpdateSubscriptionRequest) (*SyncReport, error) {
	var report SyncReport
	if err := a.client.put(ctx, "/api/v1/subscriptions/"+url.PathEscape(subID), req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (a *AdminClient) DeleteSubscription(ctx context.Context, subID string) error {
	return a.client.delete(ctx, "/api/v1/subscriptions/"+url.PathEscape(subID), nil)
}

func (a *AdminClient) PauseSubscription(ctx context.Context, subID string) (*Subscription, error) {
	return a.subscriptionAction(ctx, subID, "pause")
}

func (a *AdminClient) ResumeSubscription(ctx context.Context, subID string) (*Subscription, error) {
	return a.subscriptionAction(ctx, subID, "resume")
}

// RecountSubscription recomputes the subscription's seat count and usage
// aggregates from its members' ledgers.
func (a *AdminClient) RecountSubscription(ctx context.Context, subID string) (*Subscription, error) {
	return a.subscriptionAction(ctx, subID, "recount")
}

func (a *AdminClient) subscriptionAction(ctx context.Context, subID, action string) (*Subscription, error) {
	var sub Subscription
	path := "/api/v1/subscriptions/" + url.PathEscape(subID) + "/" + action
	if err := a.client.post(ctx, path, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// AssignUser adds a user to a subscription. When the user already belongs to
// another subscription the server answers 409 unless confirmMigration is set.
func (a *AdminClient) AssignUser(ctx context.Context, subID, userID string, confirmMigration bool) (*Subscription, error) {
	body := map[string]interface{}{"user_id": userID}
	if confirmMigration {
		body["confirm_migration"] = true
	}
	var sub Subscription
	path := "/api/v1/subscriptions/" + url.PathEscape(subID) + "/users"
	if err := a.client.post(ctx, path, body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (a *AdminClient) RemoveUser(ctx context.Context, subID, userID string) (*Subscription, error) {
	var sub Subscription
	path := "/api/v1/subscriptions/" + url.PathEscape(subID) + "/users/" + url.PathEscape(userID)
	if err := a.client.do(ctx, "DELETE", path, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// MigrateUser moves a user into subID from their current subscription.
func (a *AdminClient) MigrateUser(ctx context.Context, subID, userID, fromSubscriptionID string) (*Subscription, error) {
	body := map[string]string{
		"user_id":              userID,
		"from_subscription_id": fromSubscriptionID,
	}
	var sub Subscription
	path := "/api/v1/subscriptions/" + url.PathEscape(subID) + "/migrate"
	if err := a.client.post(ctx, path, body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpsertUserRequest creates or replaces a user profile.
type UpsertUserRequest struct {
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
	Role           string `json:"role,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

func (a *AdminClient) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := a.client.get(ctx, "/api/v1/users/"+url.PathEscape(userID), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *AdminClient) ListUsers(ctx context.Context, organizationID string) ([]User, error) {
	if organizationID == "" {
		return nil, apperrors.NewValidation("organizationID required")
	}
	var users []User
	path := "/api/v1/users/?organization_id=" + url.QueryEscape(organizationID)
	if err := a.client.get(ctx, path, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *AdminClient) UpsertUser(ctx context.Context, userID string, req UpsertUserRequest) (*User, error) {
	var user User
	if err := a.client.put(ctx, "/api/v1/users/"+url.PathEscape(userID), req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
