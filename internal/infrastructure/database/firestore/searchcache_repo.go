package firestore

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/firestore"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/analysis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

const (
	patentCacheIndexCollection = "patent_cache_index"
	patentCacheDataCollection  = "patent_cache_data"
)

// searchCacheRepo is the durable tier of the search result cache: an index
// document keyed by the request hash pointing at the result document keyed by
// job id.  The split lets many request variants share one result document.
type searchCacheRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewSearchCacheRepo returns the Firestore-backed result cache.
func NewSearchCacheRepo(client *Client, log logging.Logger) search.ResultCache {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &searchCacheRepo{client: client.Firestore(), log: log.Named("search_cache_repo")}
}

// NewSearchResultSource exposes the cached result documents by job id for
// the analysis assistant.
func NewSearchResultSource(client *Client, log logging.Logger) analysis.ResultSource {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &searchCacheRepo{client: client.Firestore(), log: log.Named("search_result_source")}
}

type cacheIndexDoc struct {
	JobID string `firestore:"jobId"`
}

// cacheDataDoc stores the result with the opaque provider payload as a JSON
// string, since Firestore cannot hold raw JSON bytes natively.
type cacheDataDoc struct {
	Result  *search.Result `firestore:"result"`
	Payload string         `firestore:"payload,omitempty"`
}

func (r *searchCacheRepo) Lookup(ctx context.Context, key string) (*search.Result, error) {
	if key == "" {
		return nil, apperrors.NewValidation("cache key required")
	}
	idxSnap, err := getDoc(ctx, r.client.Collection(patentCacheIndexCollection).Doc(key))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodeNotFound, "no cached result for key")
	}
	var idx cacheIndexDoc
	if err := idxSnap.DataTo(&idx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode cache index "+key)
	}
	if idx.JobID == "" {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "cache index entry is empty")
	}

	dataSnap, err := getDoc(ctx, r.client.Collection(patentCacheDataCollection).Doc(idx.JobID))
	if err != nil {
		// A dangling index entry behaves like a miss.
		if isNotFound(err) {
			r.log.Warn("cache index points at missing result document",
				logging.String("key", key), logging.String("job_id", idx.JobID))
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "cached result document missing")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to read cached result")
	}

	var data cacheDataDoc
	if err := dataSnap.DataTo(&data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode cached result "+idx.JobID)
	}
	if data.Result == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "cached result document is empty")
	}
	if data.Payload != "" {
		data.Result.Payload = json.RawMessage(data.Payload)
	}
	return data.Result, nil
}

// ResultByJob reads a cached result document directly by its job id,
// bypassing the request-hash index.
func (r *searchCacheRepo) ResultByJob(ctx context.Context, jobID string) (*search.Result, error) {
	if jobID == "" {
		return nil, apperrors.NewValidation("job id required")
	}
	snap, err := getDoc(ctx, r.client.Collection(patentCacheDataCollection).Doc(jobID))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodeNotFound, "no cached result for job "+jobID)
	}
	var data cacheDataDoc
	if err := snap.DataTo(&data); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode cached result "+jobID)
	}
	if data.Result == nil {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "cached result document is empty")
	}
	if data.Payload != "" {
		data.Result.Payload = json.RawMessage(data.Payload)
	}
	return data.Result, nil
}

func (r *searchCacheRepo) Store(ctx context.Context, key string, result *search.Result) error {
	if key == "" || result == nil || result.JobID == "" {
		return apperrors.NewValidation("cache key and result with job id required")
	}
	data := cacheDataDoc{Result: result, Payload: string(result.Payload)}
	if err := setDoc(ctx, r.client.Collection(patentCacheDataCollection).Doc(result.JobID), data); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to write cached result")
	}
	if err := setDoc(ctx, r.client.Collection(patentCacheIndexCollection).Doc(key), cacheIndexDoc{JobID: result.JobID}); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to write cache index")
	}
	return nil
}
