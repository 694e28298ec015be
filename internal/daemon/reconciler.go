package daemon

import (
	"context"
	"log/slog"
	"time"
)

// ManagerProbe reports whether yabai currently answers on its socket.
type ManagerProbe func(ctx context.Context) error

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	// ProbeTimeout bounds a single probe.
	ProbeTimeout time.Duration
	Logger       *slog.Logger
}

// Reconciler periodically probes yabai. yabai drops every rule when it
// restarts, so when it answers again after being unreachable the scratchpad
// rules are restored.
type Reconciler struct {
	interval     time.Duration
	probeTimeout time.Duration
	probe        ManagerProbe
	restore      func(ctx context.Context)
	logger       *slog.Logger

	reachable bool
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, probe ManagerProbe, restore func(ctx context.Context)) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval:     interval,
		probeTimeout: timeout,
		probe:        probe,
		restore:      restore,
		logger:       logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
// The first probe only records whether yabai is up; rules registered at
// startup are not registered twice.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.reachable = r.check(ctx) == nil
	r.logger.Info("reconciler started", "interval", r.interval, "manager_reachable", r.reachable)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *Reconciler) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()
	return r.probe(ctx)
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile(ctx context.Context) {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	if err := r.check(ctx); err != nil {
		if r.reachable {
			r.logger.Warn("yabai is unreachable", "error", err)
		}
		r.reachable = false
		return
	}

	if !r.reachable {
		r.logger.Info("yabai is reachable again, restoring scratchpad rules")
		r.restore(ctx)
	}
	r.reachable = true
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow(ctx context.Context) {
	r.reconcile(ctx)
}
