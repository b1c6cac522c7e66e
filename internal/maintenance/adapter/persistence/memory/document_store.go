package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/firestore"
)

// DocumentStore is an in-process document database with Firestore batch
// semantics. It backs DOCUMENT_STORE=memory and the package tests.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]interface{}
	commits     int
	updates     int
}

var _ repository.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty store
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]map[string]interface{}),
	}
}

// Put creates or replaces a document
func (s *DocumentStore) Put(collection, documentID string, data map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]map[string]interface{})
		s.collections[collection] = docs
	}
	docs[documentID] = copyFields(data)
}

// Get returns a copy of a document's fields
func (s *DocumentStore) Get(collection, documentID string) (map[string]interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.collections[collection][documentID]
	if !ok {
		return nil, false
	}
	return copyFields(data), true
}

// Count returns the number of documents in a collection
func (s *DocumentStore) Count(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// Commits returns how many non-empty batches were committed
func (s *DocumentStore) Commits() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.commits
}

// Updates returns how many single-document updates were applied
func (s *DocumentStore) Updates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}

// ListDocuments returns the documents of a collection ordered by ID
func (s *DocumentStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := firestore.ValidateCollectionID(collection); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.collections[collection]
	result := make([]*model.Document, 0, len(docs))
	for id, data := range docs {
		result = append(result, &model.Document{
			ID:         id,
			Collection: collection,
			Data:       copyFields(data),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// UpdateDocument merges fields into an existing document
func (s *DocumentStore) UpdateDocument(ctx context.Context, collection, documentID string, fields map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := firestore.ValidateDocumentPath(collection, documentID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][documentID]
	if !ok {
		return errors.NewNotFoundError(firestore.BuildDocumentPath(collection, documentID)).
			WithDetail("operation", "update")
	}
	for k, v := range fields {
		doc[k] = v
	}
	s.updates++
	return nil
}

// NewBatch starts a write batch against this store
func (s *DocumentStore) NewBatch() repository.WriteBatch {
	return &writeBatch{store: s}
}

// Close is a no-op
func (s *DocumentStore) Close() error {
	return nil
}

type writeBatch struct {
	store     *DocumentStore
	writes    []model.WriteOperation
	committed bool
}

func (b *writeBatch) Delete(collection, documentID string) {
	b.writes = append(b.writes, model.WriteOperation{
		Type:       model.WriteTypeDelete,
		Collection: collection,
		DocumentID: documentID,
	})
}

func (b *writeBatch) Update(collection, documentID string, fields map[string]interface{}) {
	b.writes = append(b.writes, model.WriteOperation{
		Type:       model.WriteTypeUpdate,
		Collection: collection,
		DocumentID: documentID,
		Data:       copyFields(fields),
	})
}

func (b *writeBatch) Len() int {
	return len(b.writes)
}

// Commit validates every staged write before applying any of them.
func (b *writeBatch) Commit(ctx context.Context) error {
	if b.committed {
		return errors.ErrBatchCommitted
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	b.committed = true
	if len(b.writes) == 0 {
		return nil
	}

	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, w := range b.writes {
		if err := firestore.ValidateDocumentPath(w.Collection, w.DocumentID); err != nil {
			return fmt.Errorf("operation %d failed: %w", i, err)
		}
		if w.Type == model.WriteTypeUpdate {
			if _, ok := s.collections[w.Collection][w.DocumentID]; !ok {
				return fmt.Errorf("operation %d failed: %w", i,
					errors.NewNotFoundError(w.Path()).WithDetail("operation", "update"))
			}
		}
	}

	for _, w := range b.writes {
		switch w.Type {
		case model.WriteTypeDelete:
			delete(s.collections[w.Collection], w.DocumentID)
		case model.WriteTypeUpdate:
			doc := s.collections[w.Collection][w.DocumentID]
			for k, v := range w.Data {
				doc[k] = v
			}
		}
	}
	s.commits++
	return nil
}

func copyFields(data map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}
