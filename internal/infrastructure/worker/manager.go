package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Worker defines the interface for background workers
type Worker interface {
	Start(ctx context.Context) error
	Stop() error
	Name() string
}

// WorkerManager starts and stops the background workers together. Only
// workers that started successfully are stopped.
type WorkerManager struct {
	logger *zap.Logger

	mu      sync.RWMutex
	workers []Worker
	running []Worker
	cancel  context.CancelFunc
}

// NewWorkerManager creates a new worker manager
func NewWorkerManager(logger *zap.Logger) *WorkerManager {
	return &WorkerManager{logger: logger}
}

// Register adds a worker to be managed
func (m *WorkerManager) Register(w Worker) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.workers = append(m.workers, w)
	m.logger.Info("Worker registered", zap.String("worker_name", w.Name()))
}

// StartAll starts every registered worker. A worker that fails to start is
// logged and left out; the rest keep running.
func (m *WorkerManager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel != nil {
		return fmt.Errorf("workers already running")
	}

	ctx, m.cancel = context.WithCancel(ctx)
	for _, w := range m.workers {
		if err := w.Start(ctx); err != nil {
			m.logger.Error("Failed to start worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			continue
		}
		m.running = append(m.running, w)
	}

	m.logger.Info("Workers started",
		zap.Int("running", len(m.running)),
		zap.Int("registered", len(m.workers)))
	return nil
}

// StopAll stops the running workers, last started first
func (m *WorkerManager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cancel == nil {
		return nil
	}
	m.cancel()
	m.cancel = nil

	var failed []string
	for i := len(m.running) - 1; i >= 0; i-- {
		w := m.running[i]
		if err := w.Stop(); err != nil {
			m.logger.Error("Failed to stop worker",
				zap.String("worker_name", w.Name()),
				zap.Error(err))
			failed = append(failed, w.Name())
		}
	}
	m.running = nil

	if len(failed) > 0 {
		return fmt.Errorf("failed to stop workers: %s", strings.Join(failed, ", "))
	}
	m.logger.Info("All workers stopped")
	return nil
}

// GetWorkerCount returns the number of registered workers
func (m *WorkerManager) GetWorkerCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.workers)
}

// Running returns the names of the workers currently running
func (m *WorkerManager) Running() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, len(m.running))
	for i, w := range m.running {
		names[i] = w.Name()
	}
	return names
}

// IsRunning reports whether StartAll has been called and not yet stopped
func (m *WorkerManager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cancel != nil
}
