package mongodb

import (
	"context"
	"fmt"
	"time"

	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/firestore"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BatchOperations stages writes and applies them in one transaction
type BatchOperations struct {
	store     *DocumentStore
	writes    []model.WriteOperation
	committed bool
}

func (b *BatchOperations) Delete(collection, documentID string) {
	b.writes = append(b.writes, model.WriteOperation{
		Type:       model.WriteTypeDelete,
		Collection: collection,
		DocumentID: documentID,
	})
}

func (b *BatchOperations) Update(collection, documentID string, fields map[string]interface{}) {
	b.writes = append(b.writes, model.WriteOperation{
		Type:       model.WriteTypeUpdate,
		Collection: collection,
		DocumentID: documentID,
		Data:       fields,
	})
}

func (b *BatchOperations) Len() int {
	return len(b.writes)
}

// Commit runs every staged write inside a transaction; any failure aborts all of them.
func (b *BatchOperations) Commit(ctx context.Context) error {
	if b.committed {
		return errors.ErrBatchCommitted
	}
	b.committed = true
	if len(b.writes) == 0 {
		return nil
	}

	for i, w := range b.writes {
		if err := firestore.ValidateDocumentPath(w.Collection, w.DocumentID); err != nil {
			return fmt.Errorf("operation %d failed: %w", i, err)
		}
	}

	session, err := b.store.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	now := time.Now().UTC()
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		for i, w := range b.writes {
			if err := b.executeBatchOperation(sc, w, now); err != nil {
				return nil, fmt.Errorf("operation %d failed: %w", i, err)
			}
		}
		return nil, nil
	})
	if err != nil {
		b.store.logger.Error("Batch transaction aborted", zap.Int("writes", len(b.writes)), zap.Error(err))
		return err
	}
	return nil
}

func (b *BatchOperations) executeBatchOperation(ctx context.Context, w model.WriteOperation, now time.Time) error {
	switch w.Type {
	case model.WriteTypeUpdate:
		return executeUpdateOperation(ctx, b.store.db, w, now)
	case model.WriteTypeDelete:
		return executeDeleteOperation(ctx, b.store.db, w)
	default:
		return fmt.Errorf("unsupported write operation type: %s", w.Type)
	}
}

func executeUpdateOperation(ctx context.Context, db *mongo.Database, w model.WriteOperation, now time.Time) error {
	result, err := db.Collection(w.Collection).UpdateOne(ctx, documentFilter(w.Collection, w.DocumentID), updateDocument(w.Data, now))
	if err != nil {
		return fmt.Errorf("update %s: %w", w.Path(), err)
	}
	if result.MatchedCount == 0 {
		return errors.NewNotFoundError(w.Path()).WithDetail("operation", "update")
	}
	return nil
}

// executeDeleteOperation succeeds for documents that are already gone, as a
// Firestore batch delete does.
func executeDeleteOperation(ctx context.Context, db *mongo.Database, w model.WriteOperation) error {
	if _, err := db.Collection(w.Collection).DeleteOne(ctx, documentFilter(w.Collection, w.DocumentID)); err != nil {
		return fmt.Errorf("delete %s: %w", w.Path(), err)
	}
	return nil
}
