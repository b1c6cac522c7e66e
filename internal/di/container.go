package di

import (
	"context"
	"fmt"
	"sync"
	"time"

	"queue-maintenance/internal/maintenance/adapter/http"
	"queue-maintenance/internal/maintenance/adapter/lock"
	"queue-maintenance/internal/maintenance/adapter/persistence/firestoredb"
	"queue-maintenance/internal/maintenance/adapter/persistence/memory"
	"queue-maintenance/internal/maintenance/adapter/persistence/mongodb"
	"queue-maintenance/internal/maintenance/config"
	"queue-maintenance/internal/maintenance/domain/repository"
	"queue-maintenance/internal/maintenance/usecase"
	"queue-maintenance/internal/shared/errors"
	"queue-maintenance/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container wires the reset job and the static server from configuration
type Container struct {
	mu sync.RWMutex

	Config *config.Config
	Logger logger.Logger

	Store     repository.DocumentStore
	Redis     *redis.Client
	Lock      repository.RunLock
	Reset     *usecase.ResetUsecase
	Scheduler *usecase.Scheduler
	App       *fiber.App
}

// NewContainer creates an empty container for cfg
func NewContainer(cfg *config.Config, log logger.Logger) *Container {
	return &Container{Config: cfg, Logger: log}
}

// Build initializes every component in dependency order
func (c *Container) Build(ctx context.Context) error {
	if err := c.InitializeStore(ctx); err != nil {
		return err
	}
	if err := c.InitializeLock(ctx); err != nil {
		return err
	}
	if err := c.InitializeScheduler(); err != nil {
		return err
	}
	c.InitializeServer()
	return nil
}

// InitializeStore connects the configured document store backend
func (c *Container) InitializeStore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var (
		store repository.DocumentStore
		err   error
	)
	switch c.Config.Store.Backend {
	case config.StoreFirestore:
		if c.Config.Firebase == nil {
			return errors.NewConfigurationError("firebase credentials are not loaded").
				WithCause(errors.ErrMissingSetting)
		}
		creds, jerr := c.Config.Firebase.JSON()
		if jerr != nil {
			return errors.NewConfigurationError("failed to encode firebase credentials").WithCause(jerr)
		}
		store, err = firestoredb.NewDocumentStore(ctx, c.Config.Firebase.ProjectID, creds, c.Logger)
	case config.StoreMongoDB:
		store, err = mongodb.Connect(ctx, c.Config.Store.MongoDBURI, c.Config.Store.MongoDBDatabase, c.Logger)
	case config.StoreMemory:
		c.Logger.Warn("Using the in-memory document store; data is not persisted")
		store = memory.NewDocumentStore()
	default:
		return errors.NewConfigurationError("unknown document store").
			WithDetail("document_store", c.Config.Store.Backend)
	}
	if err != nil {
		return errors.WrapError(err, "failed to initialize document store").
			WithDetail("document_store", c.Config.Store.Backend)
	}

	c.Store = store
	c.Logger.Info("Document store initialized", zap.String("backend", c.Config.Store.Backend))
	return nil
}

// InitializeLock picks the Redis lock when REDIS_ADDR is set and the
// in-process lock otherwise.
func (c *Container) InitializeLock(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.Config.Redis.Enabled() {
		c.Lock = lock.NewLocalLock()
		return nil
	}

	client := config.NewRedisClient(c.Config.Redis)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return errors.NewInfrastructureError("failed to connect to Redis").
			WithCause(err).
			WithDetail("addr", c.Config.Redis.Addr)
	}

	c.Redis = client
	c.Lock = lock.NewRedisLock(client, c.Config.Redis.LockKey, c.Logger.WithComponent("run-lock"))
	c.Logger.Info("Redis run lock enabled", zap.String("addr", c.Config.Redis.Addr))
	return nil
}

// InitializeScheduler creates the reset usecase and registers it on the cron
func (c *Container) InitializeScheduler() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Store == nil || c.Lock == nil {
		return fmt.Errorf("store and lock must be initialized before the scheduler")
	}

	c.Reset = usecase.NewResetUsecase(c.Store, c.Logger)
	sched := c.Config.Schedule
	scheduler, err := usecase.NewScheduler(c.Reset, c.Lock, usecase.ScheduleOptions{
		Cron:        sched.Cron,
		Location:    sched.Location(),
		Description: sched.Description,
		LockTTL:     sched.LockTTL,
	}, c.Logger)
	if err != nil {
		return err
	}
	c.Scheduler = scheduler
	return nil
}

// InitializeServer builds the static file server
func (c *Container) InitializeServer() {
	c.mu.Lock()
	defer c.mu.Unlock()

	static := http.NewStaticHandler(c.Config.Server.StaticDir, c.Config.Server.IndexFile, c.Logger)
	c.App = http.NewServer(static, c.Logger)
}

// Close stops the scheduler and releases connections in reverse order of
// initialization.
func (c *Container) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.Scheduler != nil {
		if err := c.Scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop scheduler: %w", err))
		}
		c.Scheduler = nil
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis: %w", err))
		}
		c.Redis = nil
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close document store: %w", err))
		}
		c.Store = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}
