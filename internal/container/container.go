package container

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/application/service"
	"github.com/garyjia/permits-on-the-go/internal/config"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/permits-on-the-go/internal/infrastructure/worker"
	"github.com/garyjia/permits-on-the-go/pkg/database"
	"go.uber.org/zap"
)

// Container owns the permit tracker's database, repositories, services and
// background workers. Start brings them up in order; Close releases them.
type Container struct {
	config *config.Config
	logger *zap.Logger

	sqlDB    *database.DB
	txMgr    *sqlite.DB
	repos    *RepositoryBundle
	external *ExternalBundle
	files    port.FileStorage
	services *ServiceBundle
	workers  *worker.WorkerManager

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	ready  atomic.Bool
	closed atomic.Bool
}

// RepositoryBundle is the set of SQLite-backed repositories
type RepositoryBundle struct {
	Permit       port.PermitRepository
	Property     port.PropertyRepository
	Activity     port.ActivityRepository
	Task         port.TaskRepository
	Inspection   port.InspectionRepository
	Document     port.DocumentRepository
	Chunk        port.ChunkRepository
	Conversation port.ConversationRepository
}

// ServiceBundle is what the HTTP layer and workers call into
type ServiceBundle struct {
	Permit       service.PermitService
	Property     service.PropertyService
	Task         service.TaskService
	Inspection   service.InspectionService
	Document     service.DocumentService
	Chat         service.ChatService
	Report       service.ReportService
	Notification service.NotificationService
}

// HealthStatus is the per-component readiness report
type HealthStatus struct {
	Overall    bool                       `json:"overall"`
	Components map[string]ComponentHealth `json:"components"`
}

type ComponentHealth struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// NewContainer validates cfg. Nothing is opened until Start.
func NewContainer(cfg *config.Config, logger *zap.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Container{config: cfg, logger: logger}, nil
}

type bootStep struct {
	name string
	run  func(ctx context.Context) error
}

func (c *Container) bootSteps() []bootStep {
	return []bootStep{
		{"database", c.openDatabase},
		{"external clients", c.connectExternal},
		{"document storage", c.openStorage},
		{"services", c.buildServices},
		{"workers", c.startWorkers},
	}
}

// Start opens the database, connects OpenAI and Lark, builds the services
// and starts the workers. When a step fails the database is closed again.
func (c *Container) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container has been closed")
	}
	if c.ready.Load() {
		return fmt.Errorf("container already started")
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	for _, step := range c.bootSteps() {
		if err := step.run(c.ctx); err != nil {
			c.cancel()
			if cerr := c.closeDatabase(); cerr != nil {
				c.logger.Error("Failed to close database after boot failure", zap.Error(cerr))
			}
			return fmt.Errorf("start %s: %w", step.name, err)
		}
		c.logger.Debug("Boot step done", zap.String("step", step.name))
	}

	c.ready.Store(true)
	c.logger.Info("Permit tracker ready",
		zap.String("database", c.config.Database.Path),
		zap.String("documents_dir", c.config.Storage.DocumentsDir),
		zap.Bool("chat_model", c.external.ChatModel != nil),
		zap.Bool("lark", c.config.Lark.Enabled()),
		zap.Strings("workers", c.workers.Running()))
	return nil
}

// Close stops the workers before closing the database they write to
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return fmt.Errorf("container already closed")
	}

	if c.cancel != nil {
		c.cancel()
	}

	var errs []error
	if c.workers != nil {
		if err := c.workers.StopAll(); err != nil {
			errs = append(errs, fmt.Errorf("stop workers: %w", err))
		}
	}
	if err := c.closeDatabase(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	c.closed.Store(true)
	c.ready.Store(false)

	if len(errs) > 0 {
		for _, err := range errs {
			c.logger.Error("Shutdown error", zap.Error(err))
		}
		return fmt.Errorf("container closed with %d errors", len(errs))
	}

	c.logger.Info("Permit tracker stopped")
	return nil
}

func (c *Container) Ready() bool {
	return c.ready.Load()
}

// Health pings the database and checks every worker is running. A missing
// chat model is reported but does not make the process unhealthy.
func (c *Container) Health(ctx context.Context) *HealthStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := &HealthStatus{
		Overall:    true,
		Components: make(map[string]ComponentHealth),
	}
	set := func(name string, healthy bool, msg string) {
		status.Components[name] = ComponentHealth{Healthy: healthy, Message: msg}
		if !healthy {
			status.Overall = false
		}
	}

	switch {
	case c.sqlDB == nil:
		set("database", false, "not open")
	default:
		if err := c.sqlDB.PingContext(ctx); err != nil {
			set("database", false, fmt.Sprintf("ping failed: %v", err))
		} else {
			set("database", true, "")
		}
	}

	if c.workers == nil {
		set("workers", false, "not started")
	} else {
		running := c.workers.Running()
		set("workers", c.workers.IsRunning() && len(running) == c.workers.GetWorkerCount(),
			fmt.Sprintf("running: %s", strings.Join(running, ", ")))
	}

	if c.external != nil && c.external.ChatModel == nil {
		status.Components["chat"] = ComponentHealth{Healthy: true, Message: "disabled"}
	}

	return status
}

func (c *Container) openDatabase(ctx context.Context) error {
	bundle, err := ProvideDatabase(ctx, &c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.sqlDB = bundle.SqlDB
	c.txMgr = bundle.TransactionMgr

	repos, err := ProvideRepositories(bundle, c.logger)
	if err != nil {
		return err
	}
	c.repos = repos
	return nil
}

func (c *Container) connectExternal(context.Context) error {
	external, err := ProvideExternalClients(&c.config.OpenAI, &c.config.Lark, c.logger)
	if err != nil {
		return err
	}
	c.external = external
	return nil
}

func (c *Container) openStorage(context.Context) error {
	files, err := ProvideStorage(&c.config.Storage, c.logger)
	if err != nil {
		return err
	}
	c.files = files
	return nil
}

func (c *Container) buildServices(context.Context) error {
	services, err := ProvideServices(&ServiceDeps{
		Repos:     c.repos,
		TxManager: c.txMgr,
		External:  c.external,
		Storage:   c.files,
		Documents: &c.config.Documents,
		Chat:      &c.config.Chat,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.services = services
	return nil
}

func (c *Container) startWorkers(ctx context.Context) error {
	workers, err := ProvideWorkers(&WorkerDeps{
		Repos:     c.repos,
		TxManager: c.txMgr,
		External:  c.external,
		Storage:   c.files,
		Services:  c.services,
		WorkerCfg: &c.config.Worker,
		Documents: &c.config.Documents,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	c.workers = workers
	return c.workers.StartAll(ctx)
}

func (c *Container) closeDatabase() error {
	if c.sqlDB == nil {
		return nil
	}
	err := c.sqlDB.Close()
	c.sqlDB = nil
	return err
}

func (c *Container) Services() *ServiceBundle {
	return c.services
}

func (c *Container) Workers() *worker.WorkerManager {
	return c.workers
}

// serviceLogger feeds service-layer key/value logging into zap
type serviceLogger struct {
	zl *zap.Logger
}

func (l serviceLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, zapFields(keysAndValues)...)
}

func (l serviceLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, zapFields(keysAndValues)...)
}

// NewLoggerAdapter wraps logger for the service and HTTP layers
func NewLoggerAdapter(logger *zap.Logger) service.Logger {
	return serviceLogger{zl: logger}
}

// zapFields pairs up keysAndValues. Non-string keys and a trailing key
// without a value are dropped.
func zapFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		key, ok := keysAndValues[i].(string)
		if !ok {
			continue
		}
		if err, isErr := keysAndValues[i+1].(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
			continue
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
