// Package server runs the long-lived services of stockpiled: they start in
// registration order and stop in reverse on signal, cancellation or the
// first service failure.
package server

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// DefaultDrainTimeout bounds how long Run waits for Start calls to return
// after every service has been stopped.
const DefaultDrainTimeout = 10 * time.Second

// Service represents a long-running component that can be started and stopped.
type Service interface {
	// Start runs the service. It blocks until Stop is called or the service
	// fails; returning nil after Stop is a clean exit.
	Start() error
	// Stop asks Start to return. It must be safe to call more than once.
	Stop()
}

// FuncService adapts a start/stop function pair into the Service interface.
type FuncService struct {
	StartFn func() error
	StopFn  func()
}

// Start calls the underlying start function.
func (f *FuncService) Start() error { return f.StartFn() }

// Stop calls the underlying stop function.
func (f *FuncService) Stop() { f.StopFn() }

// Lifecycle manages the startup and shutdown of multiple services.
type Lifecycle struct {
	logger       *zap.Logger
	drainTimeout time.Duration

	mu       sync.Mutex
	services []namedService
	running  bool
}

type namedService struct {
	name    string
	service Service
}

// NewLifecycle creates a new Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	if logger == nil {
		panic("server.NewLifecycle: logger must not be nil")
	}
	return &Lifecycle{logger: logger, drainTimeout: DefaultDrainTimeout}
}

// SetDrainTimeout overrides DefaultDrainTimeout.
func (l *Lifecycle) SetDrainTimeout(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.drainTimeout = d
}

// Add registers a named service. Services start in the order they are
// added and stop in reverse.
//
// Precondition: name must be non-empty and unique; svc must be non-nil.
func (l *Lifecycle) Add(name string, svc Service) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return fmt.Errorf("server: Lifecycle.Add: %q added while running", name)
	}
	if name == "" || svc == nil {
		return errors.New("server: Lifecycle.Add: name and service are required")
	}
	for _, ns := range l.services {
		if ns.name == name {
			return fmt.Errorf("server: Lifecycle.Add: duplicate service %q", name)
		}
	}
	l.services = append(l.services, namedService{name: name, service: svc})
	return nil
}

// Names returns the registered service names in start order.
func (l *Lifecycle) Names() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.services))
	for i, ns := range l.services {
		out[i] = ns.name
	}
	return out
}

// Run starts all services and blocks until SIGINT/SIGTERM, ctx is done or a
// service fails, then stops every service in reverse order.
//
// Postcondition: every service has been stopped; the returned error joins
// the failures of services whose Start returned an error.
func (l *Lifecycle) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("server: Lifecycle.Run: already running")
	}
	l.running = true
	services := append([]namedService(nil), l.services...)
	drain := l.drainTimeout
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	start := time.Now()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		errs    []error
		failed  = make(chan struct{})
		failure sync.Once
	)
	for _, ns := range services {
		ns := ns
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.logger.Info("starting service", zap.String("service", ns.name))
			svcStart := time.Now()
			if err := ns.service.Start(); err != nil {
				l.logger.Error("service failed",
					zap.String("service", ns.name),
					zap.Error(err),
					zap.Duration("uptime", time.Since(svcStart)),
				)
				errMu.Lock()
				errs = append(errs, fmt.Errorf("service %s: %w", ns.name, err))
				errMu.Unlock()
				failure.Do(func() { close(failed) })
			}
		}()
	}
	l.logger.Info("all services started",
		zap.Int("count", len(services)),
		zap.Duration("startup", time.Since(start)),
	)

	select {
	case <-ctx.Done():
		l.logger.Info("shutting down", zap.NamedError("cause", context.Cause(ctx)))
	case <-failed:
		l.logger.Error("service error, shutting down")
	}

	l.shutdown(services)

	drained := make(chan struct{})
	go func() {
		wg.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drain):
		l.logger.Warn("services did not return before drain timeout", zap.Duration("timeout", drain))
	}

	l.logger.Info("shutdown complete", zap.Duration("total_uptime", time.Since(start)))
	errMu.Lock()
	defer errMu.Unlock()
	return errors.Join(errs...)
}

func (l *Lifecycle) shutdown(services []namedService) {
	shutdownStart := time.Now()
	for i := len(services) - 1; i >= 0; i-- {
		ns := services[i]
		svcStart := time.Now()
		l.logger.Info("stopping service", zap.String("service", ns.name))
		ns.service.Stop()
		l.logger.Info("service stopped",
			zap.String("service", ns.name),
			zap.Duration("elapsed", time.Since(svcStart)),
		)
	}
	l.logger.Info("all services stopped",
		zap.Duration("shutdown_elapsed", time.Since(shutdownStart)),
	)
}
