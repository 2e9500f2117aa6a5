package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type planRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewPlanRepo returns the Firestore-backed plan repository.
func NewPlanRepo(client *Client, log logging.Logger) billing.PlanRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &planRepo{client: client.Firestore(), log: log.Named("plan_repo")}
}

func (r *planRepo) Create(ctx context.Context, plan *billing.Plan) error {
	ref := r.client.Collection(plansCollection).NewDoc()
	plan.ID = ref.ID
	if err := setDoc(ctx, ref, plan); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to create plan")
	}
	return nil
}

func (r *planRepo) GetByID(ctx context.Context, id string) (*billing.Plan, error) {
	if id == "" {
		return nil, apperrors.NewValidation("plan id required")
	}
	snap, err := getDoc(ctx, r.client.Collection(plansCollection).Doc(id))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodePlanNotFound, "plan "+id+" not found")
	}
	var plan billing.Plan
	if err := snap.DataTo(&plan); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode plan "+id)
	}
	plan.ID = snap.Ref.ID
	return &plan, nil
}

func (r *planRepo) List(ctx context.Context, onlyActive bool) ([]*billing.Plan, error) {
	query := r.client.Collection(plansCollection).Query
	if onlyActive {
		query = query.Where("isActive", "==", true)
	}
	iter := docs(ctx, query)
	defer iter.Stop()

	var out []*billing.Plan
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to list plans")
		}
		var plan billing.Plan
		if err := snap.DataTo(&plan); err != nil {
			r.log.Warn("skipping undecodable plan document",
				logging.String("doc_id", snap.Ref.ID), logging.Err(err))
			continue
		}
		plan.ID = snap.Ref.ID
		out = append(out, &plan)
	}
	return out, nil
}

func (r *planRepo) Update(ctx context.Context, plan *billing.Plan) error {
	if plan.ID == "" {
		return apperrors.NewValidation("plan id required")
	}
	ref := r.client.Collection(plansCollection).Doc(plan.ID)
	if err := setDoc(ctx, ref, plan, firestore.MergeAll); err != nil {
		return mapErr(err, apperrors.ErrCodePlanNotFound, "failed to update plan "+plan.ID)
	}
	return nil
}

func (r *planRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.NewValidation("plan id required")
	}
	if err := deleteDoc(ctx, r.client.Collection(plansCollection).Doc(id)); err != nil {
		return mapErr(err, apperrors.ErrCodePlanNotFound, "failed to delete plan "+id)
	}
	return nil
}
