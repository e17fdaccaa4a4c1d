// Package shutdown coordinates process teardown: cleanup handlers run
// in reverse registration order once a termination signal arrives, so
// the HTTP server drains before the pools it depends on close.
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"reelforge/internal/pkg/logger"
)

type handler struct {
	name    string
	cleanup func(ctx context.Context) error
}

type Manager struct {
	log     *logger.Logger
	timeout time.Duration

	mu       sync.Mutex
	handlers []handler
}

func NewManager(log *logger.Logger, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Manager{log: log, timeout: timeout}
}

func (m *Manager) Register(name string, cleanup func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, handler{name: name, cleanup: cleanup})
}

func (m *Manager) RegisterSimple(name string, cleanup func()) {
	m.Register(name, func(context.Context) error {
		cleanup()
		return nil
	})
}

// Wait blocks until SIGINT/SIGTERM/SIGHUP, then runs Shutdown.
func (m *Manager) Wait() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	sig := <-sigCh
	m.log.Info("shutdown signal received", "signal", sig.String())

	m.Shutdown()
}

// Shutdown runs the handlers last-registered first under one shared
// deadline. A failed handler is logged and does not stop the rest.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	handlers := make([]handler, len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.log.Info("starting graceful shutdown",
		"handlers", len(handlers),
		"timeout", m.timeout.String())

	for i := len(handlers) - 1; i >= 0; i-- {
		h := handlers[i]
		if ctx.Err() != nil {
			m.log.Warn("shutdown deadline exceeded, skipping remaining handlers",
				"skipped", h.name)
			return
		}

		start := time.Now()
		if err := h.cleanup(ctx); err != nil {
			m.log.Error("shutdown handler failed",
				"name", h.name,
				"error", err.Error(),
				"duration_ms", time.Since(start).Milliseconds())
			continue
		}
		m.log.Debug("shutdown handler completed",
			"name", h.name,
			"duration_ms", time.Since(start).Milliseconds())
	}

	m.log.Info("graceful shutdown completed")
}
