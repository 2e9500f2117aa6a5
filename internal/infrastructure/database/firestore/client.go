// Package firestore provides the Firestore-backed persistence layer: the
// Firebase app bootstrap, the billing repositories, and the transaction
// runner the reconciliation services execute under.
package firestore

import (
	"context"
	"encoding/base64"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/config"
	"github.com/turtacn/PharmaCliff-Intelligence/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// Client bundles the Firestore and Firebase Auth handles created from one
// Firebase app.
type Client struct {
	fs   *firestore.Client
	auth *auth.Client
	log  logging.Logger
}

// New initializes the Firebase app and opens the Firestore and Auth clients.
// Credentials are resolved in order: service-account file, base64-encoded
// service-account JSON, then Application Default Credentials.
func New(ctx context.Context, cfg config.FirestoreConfig, log logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("firestore")

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		log.Info("initializing firebase app with credentials file",
			logging.String("file", cfg.CredentialsFile))
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	case cfg.CredentialsJSON != "":
		log.Info("initializing firebase app with inline credentials")
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsJSON)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation,
				"credentials_json is not valid base64")
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	default:
		log.Info("initializing firebase app with application default credentials")
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to initialize firebase app")
	}

	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to open firestore client")
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		fs.Close()
		return nil, apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "failed to open firebase auth client")
	}

	log.Info("firestore client ready", logging.String("project_id", cfg.ProjectID))
	return &Client{fs: fs, auth: authClient, log: log}, nil
}

// Firestore returns the underlying Firestore client.
func (c *Client) Firestore() *firestore.Client { return c.fs }

// Auth returns the Firebase Auth client used by the HTTP middleware.
func (c *Client) Auth() *auth.Client { return c.auth }

// Close releases the Firestore connection.
func (c *Client) Close() error { return c.fs.Close() }
