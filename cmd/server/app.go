package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/scry-planner/internal/api/middleware"
	"github.com/phrazzld/scry-planner/internal/config"
	"github.com/phrazzld/scry-planner/internal/events"
	"github.com/phrazzld/scry-planner/internal/generation"
	"github.com/phrazzld/scry-planner/internal/platform/gemini"
	"github.com/phrazzld/scry-planner/internal/platform/metrics"
	"github.com/phrazzld/scry-planner/internal/platform/postgres"
	"github.com/phrazzld/scry-planner/internal/platform/rabbitmq"
	"github.com/phrazzld/scry-planner/internal/platform/redisq"
	"github.com/phrazzld/scry-planner/internal/service"
	"github.com/phrazzld/scry-planner/internal/store"
	"github.com/phrazzld/scry-planner/internal/task"
	"github.com/redis/go-redis/v9"
)

// application holds the shared dependencies of the server and releases them
// on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	plans     store.PlanStore
	schedules *postgres.PostgresScheduleStore
	attempts  *postgres.PostgresAttemptStore

	// Job system
	redis    *redis.Client
	jobStore task.JobStore
	queue    *task.QueueManager
	status   *task.StatusReporter
	workers  *task.WorkerPool

	// Generation and services
	generator       *generation.Adapter
	scheduleService *service.ScheduleService
	subtopicService *service.SubtopicService
	quizService     *service.QuizService

	// Outbound notifications and observability
	publisher *rabbitmq.Publisher
	emitter   *events.InMemoryEventEmitter
	metrics   *metrics.Metrics

	auth *middleware.AuthMiddleware
}

// newApplication creates the application on top of an established database
// connection. On error every resource opened so far is released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (_ *application, err error) {
	app := &application{
		config:  cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}
	defer func() {
		if err != nil {
			app.closeResources()
		}
	}()

	validator, err := middleware.NewJWTValidator(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
	}
	app.auth = middleware.NewAuthMiddleware(validator)

	app.plans = postgres.NewPostgresPlanStore(db, logger)
	app.schedules = postgres.NewPostgresScheduleStore(db, logger)
	app.attempts = postgres.NewPostgresAttemptStore(db, logger)

	if err = app.setupJobStore(ctx); err != nil {
		return nil, err
	}
	app.queue, err = task.NewQueueManager(app.jobStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue manager: %w", err)
	}
	app.status = task.NewStatusReporter(app.jobStore)

	agent, err := gemini.NewAgent(ctx, logger.With("component", "llm_agent"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM agent: %w", err)
	}
	app.generator, err = generation.NewAdapter(agent, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create generation adapter: %w", err)
	}
	logger.Info("LLM agent initialized", "model", cfg.LLM.ModelName)

	if err = app.setupServices(); err != nil {
		return nil, err
	}

	app.publisher, err = rabbitmq.Dial(cfg.AMQP.URL, cfg.AMQP.Exchange, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to message broker: %w", err)
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLoggingHandler(logger))
	app.emitter.RegisterHandler(rabbitmq.NewJobEventPublisher(app.publisher))

	if err = app.setupWorkers(); err != nil {
		return nil, err
	}

	logger.Info("application initialized")
	return app, nil
}

// setupJobStore selects the job backend named by the queue configuration.
func (app *application) setupJobStore(ctx context.Context) error {
	switch app.config.Queue.Backend {
	case "memory":
		app.jobStore = task.NewMemoryJobStore()
		app.logger.Warn("using in-memory job store; jobs do not survive restarts")
		return nil
	case "redis":
		opts, err := redis.ParseURL(app.config.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		app.redis = redis.NewClient(opts)

		rs, err := redisq.NewStore(app.redis, app.config.Redis.KeyPrefix, app.logger,
			redisq.WithVisibilityTimeout(app.config.Redis.VisibilityTimeout()))
		if err != nil {
			return fmt.Errorf("failed to create redis job store: %w", err)
		}
		if err := rs.Ping(ctx); err != nil {
			return err
		}
		app.jobStore = rs
		app.logger.Info("redis job store connected", "prefix", app.config.Redis.KeyPrefix)
		return nil
	default:
		return fmt.Errorf("unknown queue backend %q", app.config.Queue.Backend)
	}
}

func (app *application) setupServices() error {
	var err error

	app.scheduleService, err = service.NewScheduleService(app.db, app.schedules, app.plans, app.queue, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create schedule service: %w", err)
	}

	app.subtopicService, err = service.NewSubtopicService(
		app.db,
		app.plans,
		app.schedules,
		app.generator,
		app.logger,
		service.WithCriticalFailureHook(app.metrics.CriticalFailure),
	)
	if err != nil {
		return fmt.Errorf("failed to create subtopic service: %w", err)
	}

	app.quizService, err = service.NewQuizService(app.db, app.plans, app.schedules, app.generator, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create quiz service: %w", err)
	}
	return nil
}

// setupWorkers creates the worker pool with one handler per job family. The
// pool is started by Run.
func (app *application) setupWorkers() error {
	scheduleHandler, err := task.NewScheduleGenerationHandler(app.generator, app.logger)
	if err != nil {
		return err
	}
	quizHandler, err := task.NewQuizGenerationHandler(
		app.quizService,
		app.logger,
		service.ErrSubtopicsIncomplete,
		service.ErrPlanItemNotFound,
		service.ErrNotOwned,
	)
	if err != nil {
		return err
	}
	reminderHandler, err := task.NewReminderHandler(app.schedules, rabbitmq.NewNotifier(app.publisher), app.logger)
	if err != nil {
		return err
	}
	analyticsHandler, err := task.NewAnalyticsHandler(app.attempts, app.logger)
	if err != nil {
		return err
	}
	emailHandler, err := task.NewEmailHandler(rabbitmq.NewMailer(app.publisher), app.logger)
	if err != nil {
		return err
	}

	handlers := map[task.Family]task.Handler{
		task.FamilyScheduleGeneration: scheduleHandler,
		task.FamilyQuizGeneration:     quizHandler,
		task.FamilyReminders:          reminderHandler,
		task.FamilyAnalytics:          analyticsHandler,
		task.FamilyEmail:              emailHandler,
	}

	app.workers, err = task.NewWorkerPool(app.jobStore, nil, handlers, app.logger,
		task.WithPollInterval(app.config.Queue.PollInterval()),
		task.WithTerminalHook(app.metrics.ObserveJob),
		task.WithTerminalHook(app.emitter.TerminalHook()),
	)
	if err != nil {
		return fmt.Errorf("failed to create worker pool: %w", err)
	}
	return nil
}

// ready reports whether the backing services are reachable.
func (app *application) ready(ctx context.Context) error {
	if err := app.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if app.redis != nil {
		if err := app.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	return nil
}

// Run starts the workers and serves HTTP until ctx is cancelled or a
// shutdown signal arrives.
func (app *application) Run(ctx context.Context) error {
	app.workers.Start()
	app.logger.Info("worker pool started")

	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the workers within the shutdown budget and then releases
// every connection.
func (app *application) cleanup(ctx context.Context) {
	if app.workers != nil {
		if err := app.workers.Stop(ctx); err != nil {
			app.logger.Error("worker pool did not drain before the deadline", "error", err)
		}
	}
	app.closeResources()
	app.logger.Info("application shutdown completed")
}

func (app *application) closeResources() {
	var errs []error
	if app.publisher != nil {
		errs = append(errs, app.publisher.Close())
	}
	if app.redis != nil {
		errs = append(errs, app.redis.Close())
	}
	if app.db != nil {
		errs = append(errs, app.db.Close())
	}
	if err := errors.Join(errs...); err != nil {
		app.logger.Error("error closing connections", "error", err)
	}
}
