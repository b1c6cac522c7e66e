package usecase

import (
	"context"
	"testing"

	"queue-maintenance/internal/maintenance/adapter/persistence/memory"
	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/shared/contextkeys"
	apperrors "queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func seedCounterDoc(store *memory.DocumentStore, collection string) {
	store.Put(collection, model.CounterDetailDocID, map[string]interface{}{
		"receivedTokens":  []interface{}{"A1", "A2"},
		"priority":        []interface{}{"P1"},
		"nowservingtoken": "A1",
		"counterName":     collection,
	})
}

func assertCounterDocReset(t *testing.T, store *memory.DocumentStore, collection string) {
	t.Helper()
	data, ok := store.Get(collection, model.CounterDetailDocID)
	require.True(t, ok, "counterDoc missing in %s", collection)
	assert.Equal(t, []interface{}{}, data["receivedTokens"])
	assert.Equal(t, []interface{}{}, data["priority"])
	assert.Equal(t, "-", data["nowservingtoken"])
}

func completedOf(t *testing.T, store *memory.DocumentStore, id string) interface{} {
	t.Helper()
	data, ok := store.Get(model.CollectionCounters, id)
	require.True(t, ok)
	return data["completed"]
}

func TestClearCollection_DeletesEverything(t *testing.T) {
	store := memory.NewDocumentStore()
	for _, id := range []string{"r1", "r2", "r3"} {
		store.Put("requests", id, map[string]interface{}{"token": id})
	}
	uc := NewResetUsecase(store, logger.Nop())

	deleted, err := uc.ClearCollection(context.Background(), "requests")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)
	assert.Equal(t, 0, store.Count("requests"))
	assert.Equal(t, 1, store.Commits())
}

func TestClearCollection_EmptyIsIdempotentNoOp(t *testing.T) {
	store := memory.NewDocumentStore()
	uc := NewResetUsecase(store, logger.Nop())

	for i := 0; i < 2; i++ {
		deleted, err := uc.ClearCollection(context.Background(), "queue")
		require.NoError(t, err)
		assert.Zero(t, deleted)
	}
	assert.Zero(t, store.Commits())
}

func TestClearCollection_EmptyMakesNoWrite(t *testing.T) {
	store := new(MockDocumentStore)
	store.On("ListDocuments", mock.Anything, "queue").Return([]*model.Document{}, nil)
	uc := NewResetUsecase(store, logger.Nop())

	deleted, err := uc.ClearCollection(context.Background(), "queue")
	require.NoError(t, err)
	assert.Zero(t, deleted)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "NewBatch")
}

func TestClearCollection_InvalidName(t *testing.T) {
	uc := NewResetUsecase(memory.NewDocumentStore(), logger.Nop())
	_, err := uc.ClearCollection(context.Background(), "requests/r1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCollectionID)
}

func TestClearCollection_FetchError(t *testing.T) {
	store := newFaultyStore()
	store.listErr["queue"] = errBackend
	uc := NewResetUsecase(store, logger.Nop())

	_, err := uc.ClearCollection(context.Background(), "queue")
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackend)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrorTypeInfrastructure, appErr.Type)
	assert.Equal(t, "queue", appErr.Details["collection"])
}

func TestClearCollection_CommitErrorKeepsDocuments(t *testing.T) {
	store := newFaultyStore()
	store.Put("requests", "r1", nil)
	store.commitErr = errBackend
	uc := NewResetUsecase(store, logger.Nop())

	_, err := uc.ClearCollection(context.Background(), "requests")
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 1, store.Count("requests"))
}

func TestResetCounters_AliceScenario(t *testing.T) {
	store := memory.NewDocumentStore()
	store.Put("counters", "counter1", map[string]interface{}{"email": "alice@example.com", "completed": int64(5)})
	seedCounterDoc(store, "alice")
	uc := NewResetUsecase(store, logger.Nop())

	result, err := uc.ResetCounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.CounterResetResult{Counters: 1, DetailsReset: 1}, result)

	assert.Equal(t, int64(0), completedOf(t, store, "counter1"))
	assertCounterDocReset(t, store, "alice")

	data, _ := store.Get("alice", model.CounterDetailDocID)
	assert.Equal(t, "alice", data["counterName"], "unrelated fields are preserved")
}

func TestResetCounters_EveryCounterZeroed(t *testing.T) {
	store := memory.NewDocumentStore()
	store.Put("counters", "a", map[string]interface{}{"email": "a@x.io", "completed": int64(12)})
	store.Put("counters", "b", map[string]interface{}{"email": "b@x.io", "completed": 3.0})
	store.Put("counters", "c", map[string]interface{}{"completed": int64(0)})
	seedCounterDoc(store, "a")
	seedCounterDoc(store, "b")
	uc := NewResetUsecase(store, logger.Nop())

	result, err := uc.ResetCounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, result.Counters)
	assert.Equal(t, 2, result.DetailsReset)

	for _, id := range []string{"a", "b", "c"} {
		assert.Equal(t, int64(0), completedOf(t, store, id))
	}
	assertCounterDocReset(t, store, "a")
	assertCounterDocReset(t, store, "b")
	assert.Equal(t, 1, store.Commits(), "completed resets are committed in one batch")
	assert.Equal(t, 2, store.Updates(), "one independent write per counterDoc")
}

func TestResetCounters_NoEmailTouchesOnlyCompleted(t *testing.T) {
	store := memory.NewDocumentStore()
	store.Put("counters", "walkin", map[string]interface{}{"completed": int64(9)})
	store.Put("counters", "blank", map[string]interface{}{"completed": int64(2), "email": ""})
	uc := NewResetUsecase(store, logger.Nop())

	result, err := uc.ResetCounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Counters)
	assert.Zero(t, result.DetailsReset)
	assert.Empty(t, result.Skipped)
	assert.Zero(t, store.Updates())
	assert.Equal(t, int64(0), completedOf(t, store, "walkin"))
	assert.Equal(t, int64(0), completedOf(t, store, "blank"))
}

func TestResetCounters_MalformedEmailSkipped(t *testing.T) {
	store := memory.NewDocumentStore()
	store.Put("counters", "noat", map[string]interface{}{"completed": int64(1), "email": "desk.example.com"})
	store.Put("counters", "nolocal", map[string]interface{}{"completed": int64(1), "email": "@example.com"})
	store.Put("counters", "ok", map[string]interface{}{"completed": int64(1), "email": "ok@example.com"})
	seedCounterDoc(store, "ok")
	seedCounterDoc(store, "desk.example.com")
	uc := NewResetUsecase(store, logger.Nop())

	result, err := uc.ResetCounters(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"noat", "nolocal"}, result.Skipped)
	assert.Equal(t, 1, result.DetailsReset)

	data, _ := store.Get("desk.example.com", model.CounterDetailDocID)
	assert.Equal(t, "A1", data["nowservingtoken"], "whole-email collection is never derived")
	for _, id := range []string{"noat", "nolocal", "ok"} {
		assert.Equal(t, int64(0), completedOf(t, store, id))
	}
}

func TestResetCounters_DetailFailureDoesNotBlockBatch(t *testing.T) {
	store := newFaultyStore()
	store.Put("counters", "c1", map[string]interface{}{"email": "broken@example.com", "completed": int64(4)})
	store.Put("counters", "c2", map[string]interface{}{"email": "fine@example.com", "completed": int64(6)})
	seedCounterDoc(store.DocumentStore, "fine")
	store.updateErr["broken"] = errBackend
	uc := NewResetUsecase(store, logger.Nop())

	result, err := uc.ResetCounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DetailsFailed)
	assert.Equal(t, 1, result.DetailsReset)
	assert.Equal(t, int64(0), completedOf(t, store.DocumentStore, "c1"))
	assert.Equal(t, int64(0), completedOf(t, store.DocumentStore, "c2"))
	assertCounterDocReset(t, store.DocumentStore, "fine")
}

func TestResetCounters_MissingCounterDocIsLoggedNotFatal(t *testing.T) {
	store := memory.NewDocumentStore()
	store.Put("counters", "c1", map[string]interface{}{"email": "ghost@example.com", "completed": int64(4)})
	uc := NewResetUsecase(store, logger.Nop())

	result, err := uc.ResetCounters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.DetailsFailed)
	assert.Equal(t, int64(0), completedOf(t, store, "c1"))
	_, exists := store.Get("ghost", model.CounterDetailDocID)
	assert.False(t, exists, "the job never creates documents")
}

func TestResetCounters_CommitFailureKeepsDetailResets(t *testing.T) {
	store := newFaultyStore()
	store.Put("counters", "c1", map[string]interface{}{"email": "alice@example.com", "completed": int64(5)})
	seedCounterDoc(store.DocumentStore, "alice")
	store.commitErr = errBackend
	uc := NewResetUsecase(store, logger.Nop())

	_, err := uc.ResetCounters(context.Background())
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, int64(5), completedOf(t, store.DocumentStore, "c1"))
	assertCounterDocReset(t, store.DocumentStore, "alice")
}

func TestResetCounters_NoCounters(t *testing.T) {
	store := memory.NewDocumentStore()
	uc := NewResetUsecase(store, logger.Nop())

	result, err := uc.ResetCounters(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Counters)
	assert.Zero(t, store.Commits())
}

func TestResetCounters_FetchError(t *testing.T) {
	store := newFaultyStore()
	store.listErr["counters"] = errBackend
	uc := NewResetUsecase(store, logger.Nop())

	_, err := uc.ResetCounters(context.Background())
	assert.ErrorIs(t, err, errBackend)
}

func TestRunDailyReset_FullRun(t *testing.T) {
	store := memory.NewDocumentStore()
	for _, id := range []string{"r1", "r2", "r3"} {
		store.Put("requests", id, nil)
	}
	store.Put("counters", "counter1", map[string]interface{}{"email": "alice@example.com", "completed": int64(5)})
	seedCounterDoc(store, "alice")
	uc := NewResetUsecase(store, logger.Nop())

	report, err := uc.RunDailyReset(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Succeeded())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, map[string]int{"requests": 3, "queue": 0}, report.Cleared)
	assert.Equal(t, 1, report.Counters.Counters)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	assert.Equal(t, 0, store.Count("requests"))
	assert.Equal(t, int64(0), completedOf(t, store, "counter1"))
	assertCounterDocReset(t, store, "alice")
	assert.Equal(t, 2, store.Commits(), "requests batch and counters batch; empty queue writes nothing")
}

func TestRunDailyReset_QueueFetchFailureHaltsSequence(t *testing.T) {
	store := newFaultyStore()
	for _, id := range []string{"r1", "r2", "r3"} {
		store.Put("requests", id, nil)
	}
	store.Put("counters", "counter1", map[string]interface{}{"email": "alice@example.com", "completed": int64(5)})
	store.listErr["queue"] = errBackend
	uc := NewResetUsecase(store, logger.Nop())

	report, err := uc.RunDailyReset(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackend)
	assert.False(t, report.Succeeded())
	assert.Contains(t, report.Error, "backend unavailable")

	assert.Equal(t, 0, store.Count("requests"), "requests ran first and was cleared")
	assert.Equal(t, []string{"requests", "queue"}, store.lists, "counters are never read")
	assert.Nil(t, report.Counters)
	assert.Equal(t, int64(5), completedOf(t, store.DocumentStore, "counter1"))
}

func TestRunDailyReset_KeepsRunIDFromContext(t *testing.T) {
	uc := NewResetUsecase(memory.NewDocumentStore(), logger.Nop())
	ctx := context.WithValue(context.Background(), contextkeys.RunIDKey, "run-42")

	report, err := uc.RunDailyReset(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-42", report.RunID)
}

func TestRunDailyReset_CounterFailureReported(t *testing.T) {
	store := newFaultyStore()
	store.listErr["counters"] = errBackend
	uc := NewResetUsecase(store, logger.Nop())

	report, err := uc.RunDailyReset(context.Background())
	assert.ErrorIs(t, err, errBackend)
	assert.NotNil(t, report.Counters)
	assert.False(t, report.Succeeded())
}
