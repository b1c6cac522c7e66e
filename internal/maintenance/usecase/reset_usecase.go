package usecase

import (
	"context"
	stderrors "errors"
	"time"

	"queue-maintenance/internal/maintenance/domain/model"
	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/shared/contextkeys"
	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/firestore"
	"queue-maintenance/internal/shared/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResetUsecaseInterface is the daily maintenance job
type ResetUsecaseInterface interface {
	ClearCollection(ctx context.Context, collection string) (int, error)
	ResetCounters(ctx context.Context) (*model.CounterResetResult, error)
	RunDailyReset(ctx context.Context) (*model.RunReport, error)
}

// ResetUsecase clears the request/queue collections and resets counters
type ResetUsecase struct {
	store  repository.DocumentStore
	logger logger.Logger
	now    func() time.Time
}

var _ ResetUsecaseInterface = (*ResetUsecase)(nil)

// NewResetUsecase creates the job on top of a document store
func NewResetUsecase(store repository.DocumentStore, log logger.Logger) *ResetUsecase {
	return &ResetUsecase{
		store:  store,
		logger: log.WithComponent("reset-job"),
		now:    time.Now,
	}
}

// ClearCollection deletes every document of a collection in one atomic batch
// and returns how many were deleted. Documents written between the read and
// the commit are not included.
func (u *ResetUsecase) ClearCollection(ctx context.Context, collection string) (int, error) {
	ctx = context.WithValue(ctx, contextkeys.OperationKey, "clear-collection")
	ctx = context.WithValue(ctx, contextkeys.CollectionKey, collection)
	log := u.logger.WithContext(ctx)

	log.Info("Attempting to clear collection")
	if err := firestore.ValidateCollectionID(collection); err != nil {
		return 0, err
	}

	docs, err := u.store.ListDocuments(ctx, collection)
	if err != nil {
		return 0, errors.NewInfrastructureError("failed to fetch documents").
			WithCause(err).
			WithComponent("reset-job").
			WithDetail("collection", collection)
	}

	if len(docs) == 0 {
		log.Info("No documents found in collection")
		return 0, nil
	}

	batch := u.store.NewBatch()
	for _, doc := range docs {
		batch.Delete(collection, doc.ID)
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, errors.NewInfrastructureError("failed to delete documents").
			WithCause(err).
			WithComponent("reset-job").
			WithDetail("collection", collection).
			WithDetail("documents", len(docs))
	}

	log.Info("Collection has been cleared", zap.Int("deleted", len(docs)))
	return len(docs), nil
}

// ResetCounters sets completed to 0 on every counter in one batch and resets
// each counter's counterDoc as it goes.
//
// The counterDoc updates are independent writes made before the batch
// commits: they are not rolled back if the commit fails, and a failed
// counterDoc update does not keep its counter out of the batch.
func (u *ResetUsecase) ResetCounters(ctx context.Context) (*model.CounterResetResult, error) {
	ctx = context.WithValue(ctx, contextkeys.OperationKey, "reset-counters")
	log := u.logger.WithContext(ctx)
	result := &model.CounterResetResult{}

	log.Info("Resetting counters...")
	docs, err := u.store.ListDocuments(ctx, model.CollectionCounters)
	if err != nil {
		return result, u.counterError(log, "failed to fetch counters", err)
	}
	if len(docs) == 0 {
		log.Info("No counters found.")
		return result, nil
	}

	batch := u.store.NewBatch()
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return result, u.counterError(log, "counter reset interrupted", err)
		}

		counter := model.CounterFromDocument(doc)
		log.Info("Updating counter",
			zap.String("counter_id", counter.ID),
			zap.Int64("completed", counter.Completed))

		batch.Update(model.CollectionCounters, counter.ID, model.CompletedResetFields())
		result.Counters++

		detailCollection, err := model.CounterCollectionName(counter.Email)
		if err != nil {
			if !stderrors.Is(err, errors.ErrEmptyEmail) {
				log.Warn("Skipping counterDoc reset: unusable email",
					zap.String("counter_id", counter.ID),
					zap.String("email", counter.Email),
					zap.Error(err))
				result.Skipped = append(result.Skipped, counter.ID)
			}
			continue
		}

		if err := u.clearCounterDoc(ctx, log, detailCollection); err != nil {
			result.DetailsFailed++
			continue
		}
		result.DetailsReset++
	}

	if err := batch.Commit(ctx); err != nil {
		return result, u.counterError(log, "failed to commit counter reset", err)
	}

	log.Info("Counters have been reset: completed set to 0 and received history cleared",
		zap.Int("counters", result.Counters),
		zap.Int("details_reset", result.DetailsReset),
		zap.Int("details_failed", result.DetailsFailed),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

// clearCounterDoc empties the token queues of one counter. Failures are
// logged and reported to the caller but never abort the counter loop.
func (u *ResetUsecase) clearCounterDoc(ctx context.Context, log logger.Logger, collection string) error {
	err := u.store.UpdateDocument(ctx, collection, model.CounterDetailDocID, model.CounterDetailResetFields())
	if err != nil {
		log.Error("Error updating counterDoc",
			zap.String("detail_collection", collection),
			zap.Error(err))
		return err
	}
	log.Info("Cleared receivedTokens and priority and set nowservingtoken to '-'",
		zap.String("detail_collection", collection))
	return nil
}

func (u *ResetUsecase) counterError(log logger.Logger, message string, err error) error {
	log.Error("Error resetting counters", zap.Error(err))
	return errors.NewInfrastructureError(message).
		WithCause(err).
		WithComponent("reset-job")
}

// RunDailyReset clears requests, then queue, then resets counters. A failing
// step stops the sequence; the error is logged and returned with the report.
func (u *ResetUsecase) RunDailyReset(ctx context.Context) (*model.RunReport, error) {
	ctx, runID := withRunID(ctx)
	log := u.logger.WithContext(ctx)

	report := &model.RunReport{
		RunID:     runID,
		StartedAt: u.now(),
		Cleared:   make(map[string]int),
	}
	log.Info("Reset run started", zap.Time("started_at", report.StartedAt))

	fail := func(err error) (*model.RunReport, error) {
		report.FinishedAt = u.now()
		report.Error = err.Error()
		log.Error("Error resetting collections or counters",
			zap.Error(err),
			zap.Duration("duration", report.Duration()))
		return report, err
	}

	for _, collection := range []string{model.CollectionRequests, model.CollectionQueue} {
		deleted, err := u.ClearCollection(ctx, collection)
		if err != nil {
			return fail(err)
		}
		report.Cleared[collection] = deleted
	}

	counters, err := u.ResetCounters(ctx)
	report.Counters = counters
	if err != nil {
		return fail(err)
	}

	report.FinishedAt = u.now()
	log.Info("Collections and counters have been reset successfully.",
		zap.Int("requests_deleted", report.Cleared[model.CollectionRequests]),
		zap.Int("queue_deleted", report.Cleared[model.CollectionQueue]),
		zap.Int("counters_reset", counters.Counters),
		zap.Duration("duration", report.Duration()))
	return report, nil
}

// withRunID returns ctx carrying a run ID, generating one when absent.
func withRunID(ctx context.Context) (context.Context, string) {
	if id, ok := ctx.Value(contextkeys.RunIDKey).(string); ok && id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return context.WithValue(ctx, contextkeys.RunIDKey, id), id
}
