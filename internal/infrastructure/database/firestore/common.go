package firestore

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

// Collection and document names.  userPlans and users/{uid}/plan/current are
// external contracts read by other consumers; their names and field casing
// must not change.
const (
	organizationsCollection = "organizations"
	plansCollection         = "plans"
	subscriptionsCollection = "subscriptions"
	usersCollection         = "users"
	userPlansCollection     = "userPlans"
	planSubcollection       = "plan"
	planCurrentDoc          = "current"
)

// isNotFound reports whether err is the Firestore missing-document error.
func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// mapErr converts a Firestore error into an AppError, using notFoundCode for
// missing documents and the generic document-store code otherwise.
func mapErr(err error, notFoundCode apperrors.ErrorCode, msg string) error {
	if isNotFound(err) {
		return apperrors.New(notFoundCode, msg)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, msg)
}
