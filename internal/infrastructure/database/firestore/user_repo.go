package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type userRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewUserRepo returns the Firestore-backed user profile repository.  The
// documents mirror Firebase Auth identities; the auth middleware creates them
// on first login.
func NewUserRepo(client *Client, log logging.Logger) billing.UserRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &userRepo{client: client.Firestore(), log: log.Named("user_repo")}
}

func (r *userRepo) GetByID(ctx context.Context, uid string) (*billing.UserProfile, error) {
	if uid == "" {
		return nil, apperrors.NewValidation("user id required")
	}
	snap, err := getDoc(ctx, r.client.Collection(usersCollection).Doc(uid))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodeNotFound, "user "+uid+" not found")
	}
	var profile billing.UserProfile
	if err := snap.DataTo(&profile); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode user "+uid)
	}
	profile.UID = snap.Ref.ID
	return &profile, nil
}

func (r *userRepo) ListByOrganization(ctx context.Context, orgID string) ([]*billing.UserProfile, error) {
	if orgID == "" {
		return nil, apperrors.NewValidation("organization id required")
	}
	iter := docs(ctx, r.client.Collection(usersCollection).Where("organizationId", "==", orgID))
	defer iter.Stop()

	var out []*billing.UserProfile
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to list users")
		}
		var profile billing.UserProfile
		if err := snap.DataTo(&profile); err != nil {
			r.log.Warn("skipping undecodable user document",
				logging.String("doc_id", snap.Ref.ID), logging.Err(err))
			continue
		}
		profile.UID = snap.Ref.ID
		out = append(out, &profile)
	}
	return out, nil
}

func (r *userRepo) Upsert(ctx context.Context, profile *billing.UserProfile) error {
	if profile == nil || profile.UID == "" {
		return apperrors.NewValidation("user profile with uid required")
	}
	ref := r.client.Collection(usersCollection).Doc(profile.UID)
	if err := setDoc(ctx, ref, profile, firestore.MergeAll); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to upsert user "+profile.UID)
	}
	return nil
}
