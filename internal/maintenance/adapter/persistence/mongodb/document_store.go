package mongodb

import (
	"context"
	"fmt"
	"time"

	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/firestore"
	"queue-maintenance/internal/shared/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Stored document field names. Each Firestore collection maps to a MongoDB
// collection of the same name holding one record per document.
const (
	fieldDocumentID   = "document_id"
	fieldCollectionID = "collection_id"
	fieldFields       = "fields"
	fieldUpdateTime   = "update_time"
	fieldVersion      = "version"
)

// storedDocument is the MongoDB shape of a Firestore-style document
type storedDocument struct {
	DocumentID   string                 `bson:"document_id"`
	CollectionID string                 `bson:"collection_id"`
	Path         string                 `bson:"path"`
	Fields       map[string]interface{} `bson:"fields"`
	UpdateTime   time.Time              `bson:"update_time"`
	Version      int64                  `bson:"version"`
}

// DocumentStore implements repository.DocumentStore on MongoDB. Batches are
// committed inside a multi-document transaction, which needs a replica set.
type DocumentStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger logger.Logger
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// Connect dials MongoDB and verifies the connection
func Connect(ctx context.Context, uri, databaseName string, log logger.Logger) (*DocumentStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.NewInfrastructureError("failed to connect to MongoDB").WithCause(err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.NewInfrastructureError("failed to ping MongoDB").WithCause(err)
	}

	log.Info("MongoDB connection established", zap.String("database", databaseName))
	return NewDocumentStore(client, databaseName, log), nil
}

// NewDocumentStore wraps a connected client
func NewDocumentStore(client *mongo.Client, databaseName string, log logger.Logger) *DocumentStore {
	return &DocumentStore{
		client: client,
		db:     client.Database(databaseName),
		logger: log,
	}
}

// ListDocuments returns the documents of a collection ordered by ID
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	if err := firestore.ValidateCollectionID(collection); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: fieldDocumentID, Value: 1}})
	cursor, err := s.db.Collection(collection).Find(ctx, bson.M{fieldCollectionID: collection}, opts)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var stored []storedDocument
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}

	docs := make([]*model.Document, 0, len(stored))
	for _, sd := range stored {
		docs = append(docs, &model.Document{
			ID:         sd.DocumentID,
			Collection: collection,
			Data:       sd.Fields,
		})
	}
	return docs, nil
}

// UpdateDocument merges fields into an existing document
func (s *DocumentStore) UpdateDocument(ctx context.Context, collection, documentID string, fields map[string]interface{}) error {
	if err := firestore.ValidateDocumentPath(collection, documentID); err != nil {
		return err
	}
	return executeUpdateOperation(ctx, s.db, model.WriteOperation{
		Type:       model.WriteTypeUpdate,
		Collection: collection,
		DocumentID: documentID,
		Data:       fields,
	}, time.Now().UTC())
}

// Put creates or replaces a document. The job never creates documents; this
// exists for seeding local databases and tests.
func (s *DocumentStore) Put(ctx context.Context, collection, documentID string, data map[string]interface{}) error {
	doc := storedDocument{
		DocumentID:   documentID,
		CollectionID: collection,
		Path:         firestore.BuildDocumentPath(collection, documentID),
		Fields:       data,
		UpdateTime:   time.Now().UTC(),
		Version:      1,
	}
	_, err := s.db.Collection(collection).ReplaceOne(ctx, documentFilter(collection, documentID), doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put %s: %w", doc.Path, err)
	}
	return nil
}

// NewBatch starts a transactional batch
func (s *DocumentStore) NewBatch() repository.WriteBatch {
	return &BatchOperations{store: s}
}

// Close disconnects the client
func (s *DocumentStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func documentFilter(collection, documentID string) bson.M {
	return bson.M{
		fieldCollectionID: collection,
		fieldDocumentID:   documentID,
	}
}

// updateDocument builds the $set/$inc update for a field merge.
func updateDocument(fields map[string]interface{}, now time.Time) bson.M {
	set := bson.M{fieldUpdateTime: now}
	for k, v := range fields {
		set[fieldFields+"."+k] = v
	}
	return bson.M{
		"$set": set,
		"$inc": bson.M{fieldVersion: 1},
	}
}
