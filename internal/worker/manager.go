package worker

import (
	"context"
	"log/slog"
	"sync"

	"applyd/internal/config"
	"applyd/internal/engine"
	"applyd/internal/logging"
)

// Manager runs the configured number of worker loops against one engine.
// Each loop is single-threaded; horizontal scale comes from running more of
// them, all racing on the store's atomic claim.
type Manager struct {
	loops  []*Loop
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager builds cfg.Workflow.Workers loops sharing the collaborators.
func NewManager(cfg *config.Config, eng *engine.Engine, t Tailorer, s Submitter, logger *slog.Logger) *Manager {
	count := cfg.Workflow.Workers
	if count < 1 {
		count = 1
	}
	loops := make([]*Loop, count)
	for i := range loops {
		loops[i] = New(cfg, eng, t, s, logger)
	}
	return &Manager{
		loops:  loops,
		logger: logging.WithComponent(logger, "workers"),
	}
}

// Start launches all loops. It returns immediately; loops run until Stop or
// parent context cancellation.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	for _, loop := range m.loops {
		m.wg.Add(1)
		go func(l *Loop) {
			defer m.wg.Done()
			l.Run(runCtx)
		}(loop)
	}
	m.logger.Info("worker pool started", logging.Int("workers", len(m.loops)))
}

// Stop cancels all loops and waits for them to drain their current task.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
	m.logger.Info("worker pool stopped")
}
