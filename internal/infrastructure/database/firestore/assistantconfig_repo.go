package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/analysis"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

const (
	configCollection     = "config"
	assistantConfigDocID = "drroot"
)

// assistantConfigRepo reads the config/drroot document that carries the
// assistant's model parameters and system prompt.
type assistantConfigRepo struct {
	client *firestore.Client
	log    logging.Logger
}

// NewAssistantConfigRepo returns the Firestore-backed assistant profile
// source.
func NewAssistantConfigRepo(client *Client, log logging.Logger) analysis.ProfileRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &assistantConfigRepo{client: client.Firestore(), log: log.Named("assistant_config_repo")}
}

func (r *assistantConfigRepo) Get(ctx context.Context) (*analysis.Profile, error) {
	snap, err := getDoc(ctx, r.client.Collection(configCollection).Doc(assistantConfigDocID))
	if err != nil {
		return nil, mapErr(err, apperrors.ErrCodeNotFound, "assistant configuration document not found")
	}
	var profile analysis.Profile
	if err := snap.DataTo(&profile); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeSerialization, "failed to decode assistant configuration")
	}
	return &profile, nil
}
