// Package shutdown coordinates graceful shutdown of service components.
package shutdown

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	shutdownDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shutdown_duration_seconds",
		Help:    "Total time taken to shutdown gracefully",
		Buckets: []float64{1, 5, 10, 15, 20, 25, 30},
	})

	shutdownErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shutdown_errors_total",
		Help: "Total number of shutdown errors by component",
	}, []string{"component"})
)

// Func shuts down one component within the given context.
type Func func(context.Context) error

type component struct {
	name string
	fn   Func
}

// Manager runs registered shutdown functions in reverse registration order,
// so producers stop before the resources they depend on. Register in startup
// order: background jobs, then servers, then the database.
type Manager struct {
	logger     *zap.Logger
	components []component
	mu         sync.Mutex
	timeout    time.Duration
}

// NewManager creates a shutdown manager with an overall timeout.
func NewManager(logger *zap.Logger, timeout time.Duration) *Manager {
	return &Manager{logger: logger, timeout: timeout}
}

// Register adds a shutdown function. Components run in reverse registration
// order.
func (m *Manager) Register(name string, fn Func) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.components = append(m.components, component{name: name, fn: fn})
}

// RegisterNoErr registers a shutdown function without an error return.
func (m *Manager) RegisterNoErr(name string, fn func()) {
	m.Register(name, func(context.Context) error {
		fn()
		return nil
	})
}

// Shutdown runs every registered component, newest first, within the
// manager's timeout. Errors are logged and counted, never fatal.
func (m *Manager) Shutdown() {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	components := make([]component, len(m.components))
	copy(components, m.components)
	m.mu.Unlock()

	m.logger.Info("starting graceful shutdown",
		zap.Int("components", len(components)),
		zap.Duration("timeout", m.timeout))

	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		componentStart := time.Now()
		if err := c.fn(ctx); err != nil {
			shutdownErrors.WithLabelValues(c.name).Inc()
			m.logger.Error("component shutdown failed",
				zap.String("component", c.name),
				zap.Error(err))
			continue
		}
		m.logger.Info("component shut down",
			zap.String("component", c.name),
			zap.Duration("elapsed", time.Since(componentStart)))
	}

	shutdownDuration.Observe(time.Since(start).Seconds())
	m.logger.Info("graceful shutdown complete", zap.Duration("elapsed", time.Since(start)))
}
