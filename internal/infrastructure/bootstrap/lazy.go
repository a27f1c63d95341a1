package bootstrap

import (
	"context"
	"log/slog"
	"sync"
)

// BuildFunc constructs the services. It is called until it succeeds once.
type BuildFunc func(ctx context.Context) (*Services, error)

// Lazy builds Services on first use and caches them.
// A failed build is remembered for Status and retried by the next Get.
type Lazy struct {
	build  BuildFunc
	logger *slog.Logger

	mu       sync.Mutex
	services *Services
	lastErr  error
}

// NewLazy creates a lazy initializer around build.
func NewLazy(build BuildFunc, logger *slog.Logger) *Lazy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lazy{build: build, logger: logger.With(slog.String("component", "bootstrap"))}
}

// Get returns the cached services, building them if needed.
func (l *Lazy) Get(ctx context.Context) (*Services, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.services != nil {
		return l.services, nil
	}

	l.logger.Info("initializing backend services")
	services, err := l.build(ctx)
	if err != nil {
		l.lastErr = err
		l.logger.Error("init failed", slog.Any("error", err))
		return nil, err
	}
	l.services = services
	l.lastErr = nil
	l.logger.Info("backend services ready")
	return services, nil
}

// Status reports whether services are built and the last build error, if any.
func (l *Lazy) Status() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.services != nil, l.lastErr
}

// Close releases built services.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.services.Close()
	l.services = nil
	return err
}
