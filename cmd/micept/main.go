// micept is the overlay daemon: it follows the running League client,
// accepts ready checks, and serves the overlay UI over HTTP and a
// websocket event stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mirakyux/micept/internal/commands"
	"github.com/mirakyux/micept/internal/config"
	"github.com/mirakyux/micept/internal/httpapi"
	"github.com/mirakyux/micept/internal/hub"
	"github.com/mirakyux/micept/internal/journal"
	"github.com/mirakyux/micept/internal/lcu"
	"github.com/mirakyux/micept/internal/reconcile"
	"github.com/mirakyux/micept/internal/state"
	"github.com/mirakyux/micept/pkg/types"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "micept: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	settings, settingsErr := config.LoadSettings()

	var origins []string
	flagSet := pflag.NewFlagSet("micept", pflag.ContinueOnError)
	flagSet.StringVar(&settings.ListenAddr, "listen", settings.ListenAddr, "HTTP listen address")
	flagSet.StringVar(&settings.ConfigPath, "config", settings.ConfigPath, "path to config.json (default: user config dir)")
	flagSet.DurationVar(&settings.Policy.Base, "base-interval", settings.Policy.Base, "polling interval while idle")
	flagSet.DurationVar(&settings.Policy.ReadyCheck, "ready-check-interval", settings.Policy.ReadyCheck, "polling interval during a ready check")
	flagSet.DurationVar(&settings.Policy.InGame, "in-game-interval", settings.Policy.InGame, "polling interval while in game")
	flagSet.DurationVar(&settings.RequestTimeout, "request-timeout", settings.RequestTimeout, "timeout for each client API call")
	flagSet.StringVar(&settings.DatabaseURL, "database-url", settings.DatabaseURL, "Postgres URL for the transition journal (empty disables it)")
	flagSet.BoolVar(&settings.Dev, "dev", settings.Dev, "human-readable debug logging")
	flagSet.StringSliceVar(&origins, "allow-origin", nil, "extra websocket origin patterns, e.g. localhost:*")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := newLogger(settings.Dev)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if settingsErr != nil {
		logger.Warn("ignoring invalid settings", zap.Error(settingsErr))
	}
	if settings.ConfigPath == "" {
		if settings.ConfigPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	if p := lcu.CheckPrivileges(); !p.IsAdmin {
		logger.Warn(p.Message)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := config.Open(settings.ConfigPath, logger.Named("config"))
	st := state.New(commands.TogglesFromConfig(store.Config()))

	h := hub.New(ctx, func() types.AppState { return st.Snapshot().AppState() }, logger.Named("hub"))
	sinks := reconcile.Sinks{h}

	var recorder *journal.Recorder
	if settings.DatabaseURL != "" {
		recorder, err = journal.Open(settings.DatabaseURL, logger.Named("journal"))
		if err != nil {
			logger.Warn("journal disabled", zap.Error(err))
		} else {
			sinks = append(sinks, recorder)
		}
	}

	discoverer := lcu.NewDiscoverer(nil, logger.Named("discovery"))
	client := lcu.NewClient(lcu.Options{Timeout: settings.RequestTimeout, Logger: logger.Named("lcu")})

	loop := reconcile.New(st, discoverer, client, sinks, reconcile.Options{
		Policy:         settings.Policy,
		RequestTimeout: settings.RequestTimeout,
		Logger:         logger.Named("reconcile"),
		Window:         h,
		Config:         store,
	})

	svc := commands.New(st, store, commands.Options{
		Notifier:   h,
		Discoverer: discoverer,
		Quit:       cancel,
		Logger:     logger.Named("commands"),
	})

	srv := &http.Server{
		Addr:              settings.ListenAddr,
		Handler:           httpapi.SetupRoutes(h, svc, httpapi.Options{OriginPatterns: origins, Logger: logger.Named("http")}),
		ReadHeaderTimeout: 2 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return loop.Run(gctx) })
	if recorder != nil {
		g.Go(func() error { return recorder.Run(gctx) })
	}
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", settings.ListenAddr), zap.String("config", store.Path()))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		st.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	cancel()
	if recorder != nil {
		err = multierr.Append(err, recorder.Close())
	}
	<-h.Done()
	logger.Info("stopped")
	return err
}

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
