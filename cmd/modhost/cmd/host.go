package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/GoCodeAlone/modhost"
	"github.com/GoCodeAlone/modhost/api"
	"github.com/GoCodeAlone/modhost/resolver"
)

const shutdownTimeout = 30 * time.Second

// host is everything `modhost run` wires together.
type host struct {
	cfg      *modhost.HostConfig
	logger   *slog.Logger
	provider *modhost.Provider
	bus      *modhost.EventBus
	janitor  *resolver.Janitor
	watcher  *modhost.DirectoryWatcher
	api      *api.Server
	lock     sync.Mutex
}

func newHost(cfg *modhost.HostConfig, logger *slog.Logger, entryPoints *modhost.EntryPoints) (*host, error) {
	h := &host{cfg: cfg, logger: logger}

	fetcher := cfg.NewArtifactFetcher()
	r, janitor, err := cfg.NewResolver(fetcher, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver: %w", err)
	}
	h.janitor = janitor

	h.bus = modhost.NewEventBus(logger)
	if len(cfg.EventTargets) > 0 {
		fwd, err := modhost.NewEventForwarder(cfg.EventTargets, logger)
		if err != nil {
			return nil, err
		}
		if err := h.bus.RegisterObserver(fwd, modhost.PostTransitionEventTypes...); err != nil {
			return nil, err
		}
	}
	hostname, _ := os.Hostname()
	handler := modhost.HandlerChain{
		modhost.LoggingHandler{Logger: logger},
		modhost.NewEventHandler(h.bus, "modhost://"+hostname, logger),
	}

	opts := cfg.ProviderOptions(r, fetcher)
	opts = append(opts,
		modhost.WithEntryPoints(entryPoints),
		modhost.WithHandler(handler),
		modhost.WithLogger(logger),
	)
	h.provider = modhost.NewProvider(opts...)

	if cfg.Watch.Enabled {
		wcfg := cfg.WatcherConfig()
		wcfg.Lock = &h.lock
		if err := os.MkdirAll(cfg.ModuleDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create module directory: %w", err)
		}
		h.watcher, err = modhost.NewDirectoryWatcher(h.provider, wcfg)
		if err != nil {
			return nil, err
		}
	}
	if cfg.API.Addr != "" {
		h.api = api.New(h.provider, api.WithLock(&h.lock), api.WithLogger(logger))
	}
	return h, nil
}

// start loads the module directory, starts the modules unless deferred and
// brings up the janitor and the admin API. Module failures are logged; the
// host keeps running.
func (h *host) start(ctx context.Context) error {
	h.lock.Lock()
	loaded, err := h.provider.LoadDirectory(ctx, h.cfg.ModuleDir)
	if err != nil {
		h.logger.Error("Some modules failed to load", "error", err)
	}
	h.logger.Info("Loaded modules", "dir", h.cfg.ModuleDir, "count", len(loaded))
	if !h.cfg.DeferStart {
		if err := h.provider.StartAll(ctx); err != nil {
			h.logger.Error("Some modules failed to start", "error", err)
		}
	}
	h.lock.Unlock()

	if h.janitor != nil {
		h.janitor.Start()
	}
	if h.api != nil {
		if err := h.api.Start(h.cfg.API.Addr); err != nil {
			return err
		}
		h.logger.Info("Admin API listening", "addr", h.api.Addr())
	}
	return nil
}

// serve blocks until ctx is done, running the directory watcher if enabled.
func (h *host) serve(ctx context.Context) error {
	if h.watcher == nil {
		<-ctx.Done()
		return nil
	}
	h.logger.Info("Watching module directory", "dir", h.cfg.ModuleDir)
	if err := h.watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// shutdown stops the API and the janitor and unloads every module.
func (h *host) shutdown(ctx context.Context) error {
	var errs error
	if h.api != nil {
		if err := h.api.Stop(ctx); err != nil && !errors.Is(err, api.ErrServerNotStarted) {
			errs = multierr.Append(errs, err)
		}
	}
	if h.janitor != nil {
		errs = multierr.Append(errs, h.janitor.Stop(ctx))
	}
	h.lock.Lock()
	errs = multierr.Append(errs, h.provider.UnloadAll(ctx))
	h.lock.Unlock()
	h.bus.Wait()
	return errs
}
