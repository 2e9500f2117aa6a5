package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type subscriptionRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewSubscriptionRepo returns the Firestore-backed subscription repository.
func NewSubscriptionRepo(client *Client, log logging.Logger) billing.SubscriptionRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &subscriptionRepo{client: client.Firestore(), log: log.Named("subscription_repo")}
}

func (r *subscriptionRepo) Create(ctx context.Context, sub *billing.Subscription) error {
	ref := r.client.Collection(subscriptionsCollection).NewDoc()
	sub.ID = ref.ID
	if err := setDoc(ctx, ref, sub); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to create subscription")
	}
	return nil
}

func (r *subscriptionRepo) GetByID(ctx context.Context, id string) (*billing.Subscription, error) {
	if id == "" {
		return nil, apperrors.NewValidation("subscription id required")
	}
	snap, err := getDoc(ctx, r.client.Collection(subscriptionsCollection).Doc(id))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodeSubscriptionNotFound, "subscription "+id+" not found")
	}
	return r.decode(snap)
}

func (r *subscriptionRepo) List(ctx context.Context) ([]*billing.Subscription, error) {
	return r.collect(ctx, r.client.Collection(subscriptionsCollection).Query)
}

func (r *subscriptionRepo) ListByOrganization(ctx context.Context, orgID string) ([]*billing.Subscription, error) {
	if orgID == "" {
		return nil, apperrors.NewValidation("organization id required")
	}
	query := r.client.Collection(subscriptionsCollection).
		Where("organizationId", "==", orgID)
	return r.collect(ctx, query)
}

func (r *subscriptionRepo) ListActiveByUser(ctx context.Context, uid string) ([]*billing.Subscription, error) {
	if uid == "" {
		return nil, apperrors.NewValidation("user id required")
	}
	query := r.client.Collection(subscriptionsCollection).
		Where("status", "==", string(billing.SubscriptionActive)).
		Where("userIds", "array-contains", uid)
	return r.collect(ctx, query)
}

func (r *subscriptionRepo) Update(ctx context.Context, sub *billing.Subscription) error {
	if sub.ID == "" {
		return apperrors.NewValidation("subscription id required")
	}
	// Full Set, not MergeAll: userIds must be replaced wholesale, a merge
	// would leave removed members behind.
	ref := r.client.Collection(subscriptionsCollection).Doc(sub.ID)
	if err := setDoc(ctx, ref, sub); err != nil {
		return mapErr(err, apperrors.ErrCodeSubscriptionNotFound, "failed to update subscription "+sub.ID)
	}
	return nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidation("subscription id required")
	}
	if err := deleteDoc(ctx, r.client.Collection(subscriptionsCollection).Doc(id)); err != nil {
		return mapErr(err, apperrors.ErrCodeSubscriptionNotFound, "failed to delete subscription "+id)
	}
	return nil
}

func (r *subscriptionRepo) collect(ctx context.Context, query firestore.Query) ([]*billing.Subscription, error) {
	iter := docs(ctx, query)
	defer iter.Stop()

	var out []*billing.Subscription
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to list subscriptions")
		}
		sub, err := r.decode(snap)
		if err != nil {
			r.log.Warn("skipping undecodable subscription document",
				logging.String("doc_id", snap.Ref.ID), logging.Err(err))
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

func (r *subscriptionRepo) decode(snap *firestore.DocumentSnapshot) (*billing.Subscription, error) {
	var sub billing.Subscription
	if err := snap.DataTo(&sub); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode subscription "+snap.Ref.ID)
	}
	sub.ID = snap.Ref.ID
	if sub.UserIDs == nil {
		sub.UserIDs = []string{}
	}
	return &sub, nil
}
