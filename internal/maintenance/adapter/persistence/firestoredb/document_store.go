package firestoredb

import (
	"context"
	"fmt"
	"sort"

	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/shared/errors"
	firestorepath "queue-maintenance/internal/shared/firestore"
	"queue-maintenance/internal/shared/logger"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DocumentStore implements repository.DocumentStore on Cloud Firestore
// through the Firebase Admin SDK.
type DocumentStore struct {
	client *firestore.Client
	logger logger.Logger
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore initializes a Firebase app from a service-account JSON
// credential and opens its Firestore client.
func NewDocumentStore(ctx context.Context, projectID string, credentialsJSON []byte, log logger.Logger) (*DocumentStore, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, errors.NewConfigurationError("failed to initialize firebase app").WithCause(err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, errors.NewInfrastructureError("failed to open firestore client").WithCause(err)
	}

	log.Info("Firestore client initialized", zap.String("project_id", projectID))
	return NewDocumentStoreFromClient(client, log), nil
}

// NewDocumentStoreFromClient wraps an existing client, e.g. one pointed at the emulator
func NewDocumentStoreFromClient(client *firestore.Client, log logger.Logger) *DocumentStore {
	return &DocumentStore{client: client, logger: log}
}

// ListDocuments returns every document of a top-level collection
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	snaps, err := s.client.Collection(collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	docs := make([]*model.Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, &model.Document{
			ID:         snap.Ref.ID,
			Collection: collection,
			Data:       snap.Data(),
		})
	}
	return docs, nil
}

// UpdateDocument merges fields into an existing document
func (s *DocumentStore) UpdateDocument(ctx context.Context, collection, documentID string, fields map[string]interface{}) error {
	if err := firestorepath.ValidateDocumentPath(collection, documentID); err != nil {
		return err
	}
	_, err := s.client.Collection(collection).Doc(documentID).Update(ctx, toUpdates(fields))
	if err != nil {
		return mapError("update", firestorepath.BuildDocumentPath(collection, documentID), err)
	}
	return nil
}

// NewBatch starts an atomic Firestore write batch
func (s *DocumentStore) NewBatch() repository.WriteBatch {
	return &writeBatch{client: s.client, batch: s.client.Batch()}
}

// Close releases the client connection
func (s *DocumentStore) Close() error {
	return s.client.Close()
}

type writeBatch struct {
	client    *firestore.Client
	batch     *firestore.WriteBatch
	size      int
	committed bool
}

func (b *writeBatch) Delete(collection, documentID string) {
	b.batch.Delete(b.client.Collection(collection).Doc(documentID))
	b.size++
}

func (b *writeBatch) Update(collection, documentID string, fields map[string]interface{}) {
	b.batch.Update(b.client.Collection(collection).Doc(documentID), toUpdates(fields))
	b.size++
}

func (b *writeBatch) Len() int {
	return b.size
}

// Commit writes the batch. Firestore rejects empty batches, so an empty
// batch commits nothing and succeeds.
func (b *writeBatch) Commit(ctx context.Context) error {
	if b.committed {
		return errors.ErrBatchCommitted
	}
	b.committed = true
	if b.size == 0 {
		return nil
	}
	if _, err := b.batch.Commit(ctx); err != nil {
		return mapError("commit batch", "", err)
	}
	return nil
}

// toUpdates converts a field map to Firestore updates in a stable order.
func toUpdates(fields map[string]interface{}) []firestore.Update {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	updates := make([]firestore.Update, 0, len(keys))
	for _, k := range keys {
		updates = append(updates, firestore.Update{Path: k, Value: fields[k]})
	}
	return updates
}

// mapError turns gRPC NotFound into a not-found AppError; path is empty when
// the failing document is not known, as for a batch commit.
func mapError(op, path string, err error) error {
	if status.Code(err) == codes.NotFound {
		if path == "" {
			path = "document"
		}
		return errors.NewNotFoundError(path).
			WithDetail("operation", op).
			WithDetail("status", status.Convert(err).Message())
	}
	return fmt.Errorf("%s: %w", op, err)
}
