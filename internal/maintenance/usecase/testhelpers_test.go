package usecase

import (
	"context"
	"errors"

	"queue-maintenance/internal/maintenance/adapter/persistence/memory"
	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/maintenance/domain/repository"

	"github.com/stretchr/testify/mock"
)

var errBackend = errors.New("backend unavailable")

// faultyStore wraps the memory store and fails selected calls
type faultyStore struct {
	*memory.DocumentStore
	listErr   map[string]error
	updateErr map[string]error
	commitErr error
	lists     []string
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		DocumentStore: memory.NewDocumentStore(),
		listErr:       map[string]error{},
		updateErr:     map[string]error{},
	}
}

func (f *faultyStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	f.lists = append(f.lists, collection)
	if err := f.listErr[collection]; err != nil {
		return nil, err
	}
	return f.DocumentStore.ListDocuments(ctx, collection)
}

func (f *faultyStore) UpdateDocument(ctx context.Context, collection, documentID string, fields map[string]interface{}) error {
	if err := f.updateErr[collection]; err != nil {
		return err
	}
	return f.DocumentStore.UpdateDocument(ctx, collection, documentID, fields)
}

func (f *faultyStore) NewBatch() repository.WriteBatch {
	batch := f.DocumentStore.NewBatch()
	if f.commitErr != nil {
		return &failingBatch{WriteBatch: batch, err: f.commitErr}
	}
	return batch
}

type failingBatch struct {
	repository.WriteBatch
	err error
}

func (b *failingBatch) Commit(context.Context) error {
	return b.err
}

// MockDocumentStore is a testify mock of repository.DocumentStore
type MockDocumentStore struct {
	mock.Mock
}

func (m *MockDocumentStore) ListDocuments(ctx context.Context, collection string) ([]*model.Document, error) {
	args := m.Called(ctx, collection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Document), args.Error(1)
}

func (m *MockDocumentStore) UpdateDocument(ctx context.Context, collection, documentID string, fields map[string]interface{}) error {
	args := m.Called(ctx, collection, documentID, fields)
	return args.Error(0)
}

func (m *MockDocumentStore) NewBatch() repository.WriteBatch {
	args := m.Called()
	return args.Get(0).(repository.WriteBatch)
}

func (m *MockDocumentStore) Close() error {
	return m.Called().Error(0)
}

// blockingJob blocks in RunDailyReset until released
type blockingJob struct {
	entered chan struct{}
	release chan struct{}
	calls   int
}

func newBlockingJob() *blockingJob {
	return &blockingJob{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (j *blockingJob) RunDailyReset(ctx context.Context) (*model.RunReport, error) {
	j.calls++
	j.entered <- struct{}{}
	select {
	case <-j.release:
		return &model.RunReport{RunID: "blocking"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
