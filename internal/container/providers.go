// Package container provides dependency injection and lifecycle management
// for the permit tracker.
package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/application/service"
	"github.com/garyjia/permits-on-the-go/internal/config"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/document"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/export"
	infraLark "github.com/garyjia/permits-on-the-go/internal/infrastructure/external/lark"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/external/openai"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/repository"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/storage"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/worker"
	"github.com/garyjia/permits-on-the-go/internal/rag"
	"github.com/garyjia/permits-on-the-go/migrations"
	"github.com/garyjia/permits-on-the-go/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *database.DB
	TransactionMgr *sqlite.DB
}

// ExternalBundle holds the adapters to outside systems. ChatModel and
// Embedder are nil when no OpenAI key is configured.
type ExternalBundle struct {
	ChatModel    port.ChatModel
	Embedder     port.Embedder
	Notifier     port.Notifier
	ReportWriter port.PermitReportWriter
}

// ProvideDatabase opens the database and applies pending migrations.
func ProvideDatabase(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(ctx, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(bundle *DatabaseBundle, logger *zap.Logger) (*RepositoryBundle, error) {
	if bundle == nil || bundle.SqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	sqlDB := bundle.SqlDB.DB
	return &RepositoryBundle{
		Permit:       repository.NewPermitRepository(sqlDB, logger),
		Property:     repository.NewPropertyRepository(sqlDB, logger),
		Activity:     repository.NewActivityRepository(sqlDB, logger),
		Task:         repository.NewTaskRepository(sqlDB, logger),
		Inspection:   repository.NewInspectionRepository(sqlDB, logger),
		Document:     repository.NewDocumentRepository(sqlDB, logger),
		Chunk:        repository.NewChunkRepository(sqlDB, logger),
		Conversation: repository.NewConversationRepository(sqlDB, logger),
	}, nil
}

// ProvideExternalClients creates the OpenAI and Lark adapters and the
// report writer.
func ProvideExternalClients(aiCfg *config.OpenAIConfig, larkCfg *config.LarkConfig, logger *zap.Logger) (*ExternalBundle, error) {
	if aiCfg == nil || larkCfg == nil {
		return nil, fmt.Errorf("openai and lark config are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	bundle := &ExternalBundle{
		Notifier:     service.NoopNotifier{},
		ReportWriter: export.NewPermitReportWriter(logger),
	}

	if aiCfg.Enabled() {
		prompts, err := openai.LoadPrompts(aiCfg.PromptsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load prompts: %w", err)
		}
		client := openai.NewClient(openai.Config{
			APIKey:         aiCfg.APIKey,
			BaseURL:        aiCfg.BaseURL,
			Model:          aiCfg.Model,
			EmbeddingModel: aiCfg.EmbeddingModel,
			Timeout:        aiCfg.Timeout,
		}, prompts, logger)
		bundle.ChatModel = client
		bundle.Embedder = client
	} else {
		logger.Info("OpenAI not configured, chat disabled and retrieval uses text overlap")
	}

	if larkCfg.Enabled() {
		cfg := infraLark.Config{
			AppID:         larkCfg.AppID,
			AppSecret:     larkCfg.AppSecret,
			ReceiveIDType: larkCfg.ReceiveIDType,
			ReceiveID:     larkCfg.ReceiveID,
		}
		bundle.Notifier = infraLark.NewNotifier(infraLark.NewSDKClient(cfg, logger), cfg, logger)
	} else {
		logger.Info("Lark not configured, notifications are discarded")
	}

	return bundle, nil
}

// ProvideStorage creates the document file storage.
func ProvideStorage(cfg *config.StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if err := os.MkdirAll(cfg.DocumentsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create documents directory: %w", err)
	}
	return storage.NewLocalFileStorage(cfg.DocumentsDir, logger), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	External  *ExternalBundle
	Storage   port.FileStorage
	Documents *config.DocumentsConfig
	Chat      *config.ChatConfig
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.External == nil || deps.Storage == nil {
		return nil, fmt.Errorf("external clients and storage are required")
	}
	if deps.Documents == nil || deps.Chat == nil {
		return nil, fmt.Errorf("documents and chat config are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := NewLoggerAdapter(deps.Logger)
	repos := deps.Repos

	notifications := service.NewNotificationService(repos.Property, deps.External.Notifier, serviceLogger)
	permits := service.NewPermitService(
		repos.Permit,
		repos.Property,
		repos.Activity,
		repos.Document,
		deps.Storage,
		notifications,
		deps.TxManager,
		serviceLogger,
	)

	return &ServiceBundle{
		Permit:       permits,
		Property:     service.NewPropertyService(repos.Property, repos.Permit, serviceLogger),
		Task:         service.NewTaskService(repos.Task, repos.Permit, repos.Property, serviceLogger),
		Notification: notifications,
		Inspection: service.NewInspectionService(
			repos.Inspection,
			repos.Permit,
			repos.Activity,
			permits,
			deps.TxManager,
			serviceLogger,
		),
		Document: service.NewDocumentService(
			repos.Document,
			repos.Chunk,
			repos.Permit,
			repos.Activity,
			deps.Storage,
			deps.TxManager,
			service.DocumentConfig{
				MaxSizeBytes: deps.Documents.MaxSizeBytes,
				AllowedTypes: deps.Documents.AllowedTypes,
			},
			serviceLogger,
		),
		Chat: service.NewChatService(
			repos.Conversation,
			repos.Permit,
			repos.Chunk,
			rag.NewRetriever(deps.External.Embedder, deps.Logger),
			deps.External.ChatModel,
			deps.TxManager,
			service.ChatConfig{
				TopK:             deps.Chat.TopK,
				HistoryLimit:     deps.Chat.HistoryLimit,
				CandidateLimit:   deps.Chat.CandidateLimit,
				MaxMessageLength: deps.Chat.MaxMessageLength,
			},
			serviceLogger,
		),
		Report: service.NewReportService(repos.Permit, repos.Property, deps.External.ReportWriter, serviceLogger),
	}, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	External  *ExternalBundle
	Storage   port.FileStorage
	Services  *ServiceBundle
	WorkerCfg *config.WorkerConfig
	Documents *config.DocumentsConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates and registers all background workers.
// Returns *worker.WorkerManager with all workers registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.WorkerManager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Repos == nil || deps.External == nil || deps.Services == nil {
		return nil, fmt.Errorf("repositories, external clients and services are required")
	}
	if deps.WorkerCfg == nil || deps.Documents == nil {
		return nil, fmt.Errorf("worker and documents config are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewWorkerManager(deps.Logger)

	extractor := document.NewTextExtractor(deps.Documents.MaxPDFPages, deps.Logger)

	indexCfg := worker.DefaultIndexingWorkerConfig()
	indexCfg.PollInterval = deps.WorkerCfg.IndexPollInterval
	indexCfg.BatchSize = deps.WorkerCfg.IndexBatchSize
	indexCfg.ProcessTimeout = deps.WorkerCfg.IndexTimeout
	indexCfg.ChunkSize = deps.Documents.ChunkSize
	indexCfg.ChunkOverlap = deps.Documents.ChunkOverlap
	manager.Register(worker.NewIndexingWorker(
		indexCfg,
		deps.Repos.Document,
		deps.Repos.Chunk,
		deps.Storage,
		extractor,
		deps.External.Embedder,
		deps.Logger,
	))

	expiryCfg := worker.ExpiryWorkerConfig{
		PollInterval: deps.WorkerCfg.ExpiryPollInterval,
		BatchSize:    deps.WorkerCfg.ExpiryBatchSize,
		Window:       deps.WorkerCfg.ExpiryReminderAhead,
	}
	manager.Register(worker.NewExpiryWorker(
		expiryCfg,
		deps.Repos.Permit,
		deps.Repos.Activity,
		deps.TxManager,
		deps.Services.Notification,
		deps.Logger,
	))

	return manager, nil
}
