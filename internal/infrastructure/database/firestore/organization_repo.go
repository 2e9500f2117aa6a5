package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type organizationRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewOrganizationRepo returns the Firestore-backed organization repository.
func NewOrganizationRepo(client *Client, log logging.Logger) billing.OrganizationRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &organizationRepo{client: client.Firestore(), log: log.Named("org_repo")}
}

func (r *organizationRepo) Create(ctx context.Context, org *billing.Organization) error {
	ref := r.client.Collection(organizationsCollection).NewDoc()
	org.ID = ref.ID
	if err := setDoc(ctx, ref, org); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to create organization")
	}
	return nil
}

func (r *organizationRepo) GetByID(ctx context.Context, id string) (*billing.Organization, error) {
	if id == "" {
		return nil, apperrors.NewValidation("organization id required")
	}
	snap, err := getDoc(ctx, r.client.Collection(organizationsCollection).Doc(id))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodeOrganizationNotFound, "organization "+id+" not found")
	}
	var org billing.Organization
	if err := snap.DataTo(&org); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode organization "+id)
	}
	org.ID = snap.Ref.ID
	return &org, nil
}

func (r *organizationRepo) List(ctx context.Context) ([]*billing.Organization, error) {
	iter := docs(ctx, r.client.Collection(organizationsCollection).OrderBy("createdAt", firestore.Desc))
	defer iter.Stop()

	var out []*billing.Organization
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to list organizations")
		}
		var org billing.Organization
		if err := snap.DataTo(&org); err != nil {
			r.log.Warn("skipping undecodable organization document",
				logging.String("doc_id", snap.Ref.ID), logging.Err(err))
			continue
		}
		org.ID = snap.Ref.ID
		out = append(out, &org)
	}
	return out, nil
}

func (r *organizationRepo) Update(ctx context.Context, org *billing.Organization) error {
	if org.ID == "" {
		return apperrors.NewValidation("organization id required")
	}
	ref := r.client.Collection(organizationsCollection).Doc(org.ID)
	if err := setDoc(ctx, ref, org, firestore.MergeAll); err != nil {
		return mapErr(err, apperrors.ErrCodeOrganizationNotFound, "failed to update organization "+org.ID)
	}
	return nil
}

func (r *organizationRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidation("organization id required")
	}
	if err := deleteDoc(ctx, r.client.Collection(organizationsCollection).Doc(id)); err != nil {
		return mapErr(err, apperrors.ErrCodeOrganizationNotFound, "failed to delete organization "+id)
	}
	return nil
}
