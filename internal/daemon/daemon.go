// Package daemon wires yctrl's long running process: the control socket,
// the automation engine, the scratchpad toggler, the seed file watcher and
// the yabai restart reconciler.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/engine"
	"github.com/1broseidon/yctrl/internal/ipc"
	"github.com/1broseidon/yctrl/internal/platform"
	"github.com/1broseidon/yctrl/internal/scratchpad"
	"github.com/1broseidon/yctrl/internal/watch"
	"github.com/1broseidon/yctrl/internal/yabai"
)

type Options struct {
	Logger *slog.Logger
	// Hider and Launcher default to osascript and detached processes.
	Hider    platform.Hider
	Launcher platform.Launcher
}

type Daemon struct {
	settings *config.Settings
	logger   *slog.Logger

	client  *yabai.Client
	store   *config.Store
	toggler *scratchpad.Toggler
	server  *ipc.Server
}

// New builds a daemon from settings. Nothing is started until Run.
func New(settings *config.Settings, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	managerPath, err := settings.ManagerSocketPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve yabai socket: %w", err)
	}
	client := yabai.NewClient(managerPath)
	client.Timeout = settings.Manager.Timeout
	client.MaxRetries = settings.Manager.MaxRetries

	hider := opts.Hider
	if hider == nil {
		hider = platform.AppleScriptHider{}
	}
	launcher := opts.Launcher
	if launcher == nil {
		launcher = platform.ProcessLauncher{Logger: logger.With("component", "launcher")}
	}

	store := config.NewStore(config.Default(),
		scratchpad.Registrar(client, logger.With("component", "rules")))

	eng := engine.New(client, store, hider, engine.Options{
		SettleDelay: settings.SettleDelay,
		Logger:      logger.With("component", "engine"),
	})
	toggler := scratchpad.NewToggler(client, store, launcher, scratchpad.Options{
		Logger: logger.With("component", "scratchpad"),
	})

	dispatcher := NewDispatcher(eng, store, toggler, logger)
	server := ipc.NewServer(settings.Socket, dispatcher, ipc.ServerOptions{
		ConnTimeout: settings.ConnTimeout,
		Logger:      logger.With("component", "ipc"),
	})

	return &Daemon{
		settings: settings,
		logger:   logger,
		client:   client,
		store:    store,
		toggler:  toggler,
		server:   server,
	}, nil
}

// Store exposes the runtime configuration.
func (d *Daemon) Store() *config.Store {
	return d.store
}

// Run applies the seed file, serves the control socket and blocks until ctx
// is done. Only failing to bind the socket is returned as an error.
func (d *Daemon) Run(ctx context.Context) error {
	d.logger.Info("starting yctrl daemon",
		"socket", d.settings.Socket,
		"yabai_socket", d.client.SocketPath(),
		"pid", os.Getpid())

	if err := d.applySeed(ctx); err != nil {
		d.logger.Error("failed to apply seed, using defaults", "path", d.settings.Seed, "error", err)
	}

	if err := d.server.Start(); err != nil {
		d.toggler.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	if w := d.seedWatcher(); w != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(runCtx); err != nil {
				d.logger.Warn("seed watcher stopped", "error", err)
			}
		}()
	}

	if d.settings.Manager.ReconcileInterval > 0 {
		r := NewReconciler(ReconcilerConfig{
			Interval:     d.settings.Manager.ReconcileInterval,
			ProbeTimeout: d.settings.Manager.Timeout,
			Logger:       d.logger.With("component", "reconciler"),
		}, d.probe, d.store.RegisterRules)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Run(runCtx)
		}()
	}

	<-ctx.Done()
	d.logger.Info("shutting down")

	cancel()
	d.server.Stop()
	d.toggler.Close()
	wg.Wait()
	return nil
}

func (d *Daemon) applySeed(ctx context.Context) error {
	if d.settings.Seed == "" {
		return nil
	}
	seed, err := config.LoadSeed(d.settings.Seed)
	if err != nil {
		return err
	}
	if seed.Empty() {
		return nil
	}
	if err := d.store.Apply(ctx, seed); err != nil {
		return err
	}
	d.logger.Info("applied seed", "path", d.settings.Seed)
	return nil
}

func (d *Daemon) seedWatcher() *watch.Watcher {
	if !d.settings.WatchSeed || d.settings.Seed == "" {
		return nil
	}
	w, err := watch.New(d.settings.Seed, d.reloadSeed, watch.Options{
		Logger: d.logger.With("component", "watch"),
	})
	if err != nil {
		d.logger.Warn("not watching seed file", "path", d.settings.Seed, "error", err)
		return nil
	}
	return w
}

// reloadSeed re-applies the seed after it changed on disk. A removed seed
// leaves the current configuration alone.
func (d *Daemon) reloadSeed(ctx context.Context, op fsnotify.Op) {
	if op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename) {
		if _, err := os.Stat(d.settings.Seed); errors.Is(err, os.ErrNotExist) {
			d.logger.Info("seed removed, keeping current config", "path", d.settings.Seed)
			return
		}
	}
	if err := d.applySeed(ctx); err != nil {
		d.logger.Error("failed to reload seed", "path", d.settings.Seed, "error", err)
	}
}

func (d *Daemon) probe(ctx context.Context) error {
	_, err := d.client.FocusedSpace(ctx)
	return err
}
