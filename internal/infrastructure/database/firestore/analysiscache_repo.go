package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/analysis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

const analysisCacheCollection = "analysis_cache"

// analysisCacheRepo is the durable tier of the assistant response cache,
// keyed by "{jobId}" or "{jobId}:{patentNumber}".
type analysisCacheRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewAnalysisCacheRepo returns the Firestore-backed assistant response
// cache.
func NewAnalysisCacheRepo(client *Client, log logging.Logger) analysis.ResponseCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &analysisCacheRepo{client: client.Firestore(), log: log.Named("analysis_cache_repo")}
}

func (r *analysisCacheRepo) Get(ctx context.Context, key string) (*analysis.Analysis, error) {
	if key == "" {
		return nil, apperrors.NewValidation("cache key required")
	}
	snap, err := getDoc(ctx, r.client.Collection(analysisCacheCollection).Doc(key))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodeNotFound, "no cached analysis for key")
	}
	var a analysis.Analysis
	if err := snap.DataTo(&a); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode cached analysis "+key)
	}
	return &a, nil
}

func (r *analysisCacheRepo) Put(ctx context.Context, key string, a *analysis.Analysis) error {
	if key == "" || a == nil {
		return apperrors.NewValidation("cache key and analysis required")
	}
	if err := setDoc(ctx, r.client.Collection(analysisCacheCollection).Doc(key), a); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to write cached analysis")
	}
	return nil
}
