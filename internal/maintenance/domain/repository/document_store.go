package repository

import (
	"context"
	"time"

	"queue-maintenance/internal/maintenance/domain/model"
)

// DocumentStore is the subset of a Firestore-style document database the
// maintenance job needs.
type DocumentStore interface {
	// ListDocuments returns every document of a top-level collection.
	ListDocuments(ctx context.Context, collection string) ([]*model.Document, error)

	// UpdateDocument merges fields into an existing document. It fails with
	// errors.ErrDocumentNotFound when the document does not exist.
	UpdateDocument(ctx context.Context, collection, documentID string, fields map[string]interface{}) error

	// NewBatch starts an atomic write batch.
	NewBatch() WriteBatch

	Close() error
}

// WriteBatch stages writes that are committed together or not at all.
type WriteBatch interface {
	Delete(collection, documentID string)
	Update(collection, documentID string, fields map[string]interface{})
	Len() int
	Commit(ctx context.Context) error
}

// RunLock guards against overlapping reset runs.
type RunLock interface {
	// TryAcquire returns false without error when another holder owns the lock.
	TryAcquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}
