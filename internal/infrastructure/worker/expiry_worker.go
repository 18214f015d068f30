package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/permits-on-the-go/internal/application/port"
	"github.com/garyjia/permits-on-the-go/internal/domain/entity"
	"go.uber.org/zap"
)

// ExpiryNotifier sends the reminder for a permit nearing expiry
type ExpiryNotifier interface {
	NotifyExpiryReminder(ctx context.Context, p *entity.Permit) error
}

// ExpiryWorkerConfig holds configuration for the expiry worker
type ExpiryWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
	// Window is how far ahead of expires_at the reminder goes out
	Window time.Duration
}

// DefaultExpiryWorkerConfig returns default configuration
func DefaultExpiryWorkerConfig() ExpiryWorkerConfig {
	return ExpiryWorkerConfig{
		PollInterval: time.Hour,
		BatchSize:    50,
		Window:       30 * 24 * time.Hour,
	}
}

// ExpiryWorker reminds the team about issued permits that are about to
// lapse. Each permit is reminded once; its status is left alone.
type ExpiryWorker struct {
	config ExpiryWorkerConfig

	permitRepo   port.PermitRepository
	activityRepo port.ActivityRepository
	txManager    port.TransactionManager
	notifier     ExpiryNotifier
	logger       *zap.Logger
	now          func() time.Time

	mu            sync.RWMutex
	ctx           context.Context
	cancel        context.CancelFunc
	isRunning     bool
	wg            sync.WaitGroup
	remindedCount int
	failedCount   int
}

// NewExpiryWorker creates a new expiry worker
func NewExpiryWorker(
	config ExpiryWorkerConfig,
	permitRepo port.PermitRepository,
	activityRepo port.ActivityRepository,
	txManager port.TransactionManager,
	notifier ExpiryNotifier,
	logger *zap.Logger,
) *ExpiryWorker {
	defaults := DefaultExpiryWorkerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.Window <= 0 {
		config.Window = defaults.Window
	}
	return &ExpiryWorker{
		config:       config,
		permitRepo:   permitRepo,
		activityRepo: activityRepo,
		txManager:    txManager,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// Start begins the worker polling loop. The first check runs immediately.
func (w *ExpiryWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("expiry worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("ExpiryWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Duration("window", w.config.Window))

	w.wg.Add(1)
	go w.pollLoop()
	return nil
}

// Stop cancels the poll loop and waits for it to return
func (w *ExpiryWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	reminded, failed := w.remindedCount, w.failedCount
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()

	w.logger.Info("ExpiryWorker stopped",
		zap.Int("reminded_count", reminded),
		zap.Int("failed_count", failed))
	return nil
}

// Name returns the worker name for identification
func (w *ExpiryWorker) Name() string {
	return "ExpiryWorker"
}

func (w *ExpiryWorker) pollLoop() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(w.ctx); err != nil && w.ctx.Err() == nil {
			w.logger.Error("Failed to send expiry reminders", zap.Error(err))
		}

		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce sends reminders for one batch of expiring permits and returns how
// many went out. A permit whose reminder fails stays unmarked and is retried
// on the next run.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (int, error) {
	now := w.now().UTC()
	permits, err := w.permitRepo.ListExpiring(ctx, now.Add(w.config.Window), w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring permits: %w", err)
	}

	reminded := 0
	for _, p := range permits {
		if ctx.Err() != nil {
			return reminded, ctx.Err()
		}

		if err := w.remind(ctx, p, now); err != nil {
			w.logger.Error("Failed to send expiry reminder", zap.Int64("permit_id", p.ID), zap.Error(err))
			w.mu.Lock()
			w.failedCount++
			w.mu.Unlock()
			continue
		}
		reminded++
	}

	w.mu.Lock()
	w.remindedCount += reminded
	w.mu.Unlock()

	if len(permits) > 0 {
		w.logger.Info("Expiry reminders sent",
			zap.Int("reminded", reminded),
			zap.Int("candidates", len(permits)))
	}
	return reminded, nil
}

func (w *ExpiryWorker) remind(ctx context.Context, p *entity.Permit, now time.Time) error {
	if err := w.notifier.NotifyExpiryReminder(ctx, p); err != nil {
		return err
	}

	detail := "expiry reminder sent"
	if p.ExpiresAt != nil {
		detail = "expires " + p.ExpiresAt.UTC().Format("2006-01-02")
	}

	return w.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := w.activityRepo.Create(txCtx, &entity.Activity{
			PermitID:  p.ID,
			Actor:     entity.SystemActor,
			Action:    entity.ActivityExpiryReminder,
			Detail:    detail,
			CreatedAt: now,
		}); err != nil {
			return fmt.Errorf("failed to record reminder: %w", err)
		}
		return w.permitRepo.MarkExpiryNotified(txCtx, p.ID, now)
	})
}
