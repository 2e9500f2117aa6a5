package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"github.com/turtacn/PharmaCliff-Intelligence/internal/domain/billing"
	apperrors "github.com/turtacn/PharmaCliff-Intelligence/pkg/errors"
)

type txKey struct{}

// txFrom extracts the active transaction from ctx, or nil outside RunTx.
func txFrom(ctx context.Context) *firestore.Transaction {
	tx, _ := ctx.Value(txKey{}).(*firestore.Transaction)
	return tx
}

// txRunner implements billing.TxRunner over Firestore transactions.  The
// transaction handle travels in the context so the repositories pick it up
// transparently: the same repository code serves transactional and plain
// calls.  Firestore retries the function on contention, and requires every
// read to happen before the first write.
type txRunner struct {
	client *firestore.Client
}

// NewTxRunner returns a billing.TxRunner backed by Firestore transactions.
func NewTxRunner(client *Client) billing.TxRunner {
	return &txRunner{client: client.Firestore()}
}

func (r *txRunner) RunTx(ctx context.Context, fn func(ctx context.Context) error) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
	if err != nil {
		if _, ok := err.(*apperrors.AppError); ok {
			return err
		}
		return apperrors.Wrap(err, apperrors.ErrCodeDocumentStore, "transaction failed")
	}
	return nil
}

// getDoc reads a document, inside the ambient transaction when one is active.
func getDoc(ctx context.Context, ref *firestore.DocumentRef) (*firestore.DocumentSnapshot, error) {
	if tx := txFrom(ctx); tx != nil {
		return tx.Get(ref)
	}
	return ref.Get(ctx)
}

// setDoc writes a document, inside the ambient transaction when one is active.
func setDoc(ctx context.Context, ref *firestore.DocumentRef, data interface{}, opts ...firestore.SetOption) error {
	if tx := txFrom(ctx); tx != nil {
		return tx.Set(ref, data, opts...)
	}
	_, err := ref.Set(ctx, data, opts...)
	return err
}

// deleteDoc deletes a document, inside the ambient transaction when one is
// active.
func deleteDoc(ctx context.Context, ref *firestore.DocumentRef) error {
	if tx := txFrom(ctx); tx != nil {
		return tx.Delete(ref)
	}
	_, err := ref.Delete(ctx)
	return err
}

// docs runs a query, inside the ambient transaction when one is active.
func docs(ctx context.Context, q firestore.Query) *firestore.DocumentIterator {
	if tx := txFrom(ctx); tx != nil {
		return tx.Documents(q)
	}
	return q.Documents(ctx)
}
