package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/1broseidon/yctrl/internal/config"
	"github.com/1broseidon/yctrl/internal/engine"
	"github.com/1broseidon/yctrl/internal/event"
	"github.com/1broseidon/yctrl/internal/ipc"
	"github.com/1broseidon/yctrl/internal/wire"
)

// EventHandler runs the automation for one event.
type EventHandler interface {
	Handle(ctx context.Context, ev event.Event) error
}

// ConfigStore is the runtime configuration as seen by control requests.
type ConfigStore interface {
	Get(key string) (string, error)
	Set(ctx context.Context, key string, values []string) error
	Snapshot() config.RuntimeConfig
}

// Toggler toggles scratchpads by tag.
type Toggler interface {
	Toggle(ctx context.Context, tag string) error
}

// Dispatcher routes control requests to the engine, the config store and the
// scratchpad toggler. It implements ipc.Handler.
type Dispatcher struct {
	events  EventHandler
	store   ConfigStore
	toggler Toggler
	logger  *slog.Logger
}

func NewDispatcher(events EventHandler, store ConfigStore, toggler Toggler, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{events: events, store: store, toggler: toggler, logger: logger}
}

func (d *Dispatcher) Handle(ctx context.Context, req wire.Request) (any, error) {
	switch req.Kind {
	case ipc.KindEvent:
		return nil, d.event(ctx, req.Args)
	case ipc.KindConfig:
		return d.config(ctx, req.Args)
	case ipc.KindScratchpad:
		if len(req.Args) != 1 {
			return nil, fmt.Errorf("scratchpad: expected exactly one tag, got %d", len(req.Args))
		}
		return nil, d.toggler.Toggle(ctx, req.Args[0])
	case ipc.KindStatus:
		return d.store.Snapshot(), nil
	}
	return nil, fmt.Errorf("unknown request kind %q", req.Kind)
}

func (d *Dispatcher) event(ctx context.Context, args []string) error {
	ev, err := event.ParseFields(args)
	if err != nil {
		return err
	}
	d.logger.Debug("event received", "event", event.Describe(ev))

	err = d.events.Handle(ctx, ev)
	if errors.Is(err, engine.ErrNoWindows) {
		// Switching to an empty space is routine.
		d.logger.Debug("event handled", "event", ev.Token(), "error", err)
		return nil
	}
	return err
}

func (d *Dispatcher) config(ctx context.Context, args []string) (any, error) {
	switch len(args) {
	case 0:
		return nil, fmt.Errorf("config: missing key")
	case 1:
		value, err := d.store.Get(args[0])
		if err != nil {
			return nil, err
		}
		return ipc.ConfigValue{Key: args[0], Value: value}, nil
	}
	if err := d.store.Set(ctx, args[0], args[1:]); err != nil {
		return nil, err
	}
	d.logger.Info("config updated", "key", args[0])
	return nil, nil
}
