package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/search"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

const searchHistoryCollection = "search_history"

const defaultHistoryLimit = 50

type historyRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewHistoryRepo returns the Firestore-backed search history repository.
func NewHistoryRepo(client *Client, log logging.Logger) search.HistoryRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &historyRepo{client: client.Firestore(), log: log.Named("history_repo")}
}

func (r *historyRepo) Add(ctx context.Context, record *search.HistoryRecord) error {
	if record == nil || record.UserID == "" {
		return apperrors.NewValidation("history record with user id required")
	}
	ref := r.client.Collection(searchHistoryCollection).NewDoc()
	record.ID = ref.ID
	if err := setDoc(ctx, ref, record); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to write search history")
	}
	return nil
}

func (r *historyRepo) ListByUser(ctx context.Context, userID string, limit int) ([]*search.HistoryRecord, error) {
	if userID == "" {
		return nil, apperrors.NewValidation("user id required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	query := r.client.Collection(searchHistoryCollection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)

	iter := docs(ctx, query)
	defer iter.Stop()

	var out []*search.HistoryRecord
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to list search history")
		}
		var record search.HistoryRecord
		if err := snap.DataTo(&record); err != nil {
			r.log.Warn("skipping undecodable history document",
				logging.String("doc_id", snap.Ref.ID), logging.Err(err))
			continue
		}
		record.ID = snap.Ref.ID
		out = append(out, &record)
	}
	return out, nil
}
