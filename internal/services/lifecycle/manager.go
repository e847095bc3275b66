package lifecycle

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownFunc releases a component during graceful shutdown.
type ShutdownFunc func(ctx context.Context) error

// WorkerFunc is a long-running component that blocks until ctx ends.
type WorkerFunc func(ctx context.Context) error

type hook struct {
	name string
	fn   ShutdownFunc
}

// Manager owns the application's lifetime: it reacts to OS signals, supervises
// background workers and runs shutdown hooks in reverse registration order.
type Manager struct {
	timeout time.Duration
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	hooks []hook

	workers sync.WaitGroup
	errOnce sync.Once
	err     error
}

// New derives the application context from parent.
func New(parent context.Context, timeout time.Duration, logger *zap.Logger) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		timeout: timeout,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Context is cancelled on a termination signal, a worker failure or Stop.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Stop cancels the application context.
func (m *Manager) Stop() {
	m.cancel()
}

// Err returns the first worker failure, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Register adds a shutdown hook.
func (m *Manager) Register(name string, fn ShutdownFunc) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook{name: name, fn: fn})
}

// Go runs fn in the background. A non-nil error from fn stops the application.
func (m *Manager) Go(name string, fn WorkerFunc) {
	if fn == nil {
		return
	}
	m.workers.Add(1)
	go func() {
		defer m.workers.Done()
		m.logger.Info("worker started", zap.String("component", name))
		if err := fn(m.ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("worker failed", zap.String("component", name), zap.Error(err))
			m.errOnce.Do(func() {
				m.mu.Lock()
				m.err = err
				m.mu.Unlock()
			})
			m.cancel()
			return
		}
		m.logger.Info("worker finished", zap.String("component", name))
	}()
}

// Wait blocks until the application context is cancelled.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// Shutdown cancels the application context, runs every hook within the
// configured timeout and then waits for workers to return.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	m.cancel()

	m.mu.Lock()
	hooks := append([]hook(nil), m.hooks...)
	m.hooks = nil
	m.mu.Unlock()

	var result error
	for i := len(hooks) - 1; i >= 0; i-- {
		h := hooks[i]
		if err := h.fn(ctx); err != nil {
			m.logger.Error("shutdown hook failed", zap.String("component", h.name), zap.Error(err))
			result = errors.Join(result, err)
			continue
		}
		m.logger.Info("component stopped", zap.String("component", h.name))
	}

	done := make(chan struct{})
	go func() {
		m.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		result = errors.Join(result, ctx.Err())
	}
	return result
}

// Listen cancels the application context on SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case sig := <-sigCh:
			m.logger.Info("shutdown signal received", zap.String("signal", sig.String()))
			m.cancel()
		case <-m.ctx.Done():
		}
	}()
}
