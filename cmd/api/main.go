package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fakestore-offline/internal/bootstrap"
	"fakestore-offline/internal/config"
	"fakestore-offline/internal/handler"
	"fakestore-offline/internal/model"
	"fakestore-offline/internal/policy"
	"fakestore-offline/internal/router"
	"fakestore-offline/internal/service"

	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()
	setupLogging(&cfg.Log)

	log.WithField("component", "Main").Infof("Starting Fake Store offline gateway %s (%s)", cfg.App.Version, cfg.App.Environment)

	if err := run(cfg); err != nil {
		log.WithField("component", "Main").Fatalf("gateway failed: %v", err)
	}
	fmt.Println("Goodbye!")
}

func setupLogging(cfg *config.LogConfig) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func run(cfg *config.Config) error {
	logger := log.WithField("component", "Main")
	ctx := context.Background()

	appOrigin, err := cfg.Upstream.AppOriginURL()
	if err != nil {
		return err
	}
	apiOrigin, err := cfg.Upstream.APIOriginURL()
	if err != nil {
		return err
	}

	// Initialize storage backends based on config
	stores, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warnf("closing stores: %v", err)
		}
	}()

	// Initialize services
	hub := service.NewEventHub(32)
	monitor := service.NewConnectivityMonitor(true, hub)
	updates := service.NewUpdateCoordinator(ctx, stores.Cache, stores.Records, hub)
	prompter := service.NewInstallPrompter(hub)

	cart := service.NewCartStore(stores.Records)
	if err := cart.Hydrate(ctx); err != nil {
		logger.Warnf("starting with an empty cart: %v", err)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: 5 * time.Second}).DialContext,
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     90 * time.Second,
		},
		// Redirects are returned to the client as they are.
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}

	table := policy.DefaultTable()
	table.APIHosts = append(table.APIHosts, apiOrigin.Hostname())
	routerCfg := service.DefaultRouterConfig()
	routerCfg.AppOrigin = appOrigin
	routerCfg.NetworkTimeout = cfg.Upstream.NetworkTimeout
	routerCfg.MaxBodyBytes = cfg.Upstream.MaxBodyBytes
	routerCfg.ShellPaths = cfg.Offline.ShellPaths
	routerCfg.PrecacheConcurrency = cfg.Offline.PrecacheConcurrency
	cacheRouter := service.NewCacheRouter(policy.NewClassifier(table), stores.Cache, httpClient, updates, monitor, routerCfg)

	worker := service.NewWorker(cacheRouter, updates, cart, hub, cfg.Offline.BackgroundTimeout)

	var prober *service.ConnectivityProber
	if cfg.Connectivity.ProbeEnabled {
		prober = service.NewConnectivityProber(monitor, httpClient, service.ProberConfig{
			URL:      cfg.Connectivity.ProbeURL,
			Interval: cfg.Connectivity.ProbeInterval,
			Timeout:  cfg.Connectivity.ProbeTimeout,
		})
		prober.Start()
		defer prober.Stop()
	}

	// Install this build's generation; a first install takes control at once.
	installCtx, cancel := context.WithTimeout(ctx, 2*cfg.Upstream.NetworkTimeout)
	if _, err := worker.Handle(installCtx, model.InstallEvent{Generation: cfg.App.Version, Manifest: cfg.Offline.Manifest}); err != nil {
		logger.Warnf("install of %s failed, serving without it: %v", cfg.App.Version, err)
	} else if updates.State().Phase == model.PhaseCurrent {
		if _, err := worker.Handle(installCtx, model.ActivateEvent{Generation: cfg.App.Version}); err != nil {
			logger.Warnf("activation cleanup failed: %v", err)
		}
	}
	cancel()
	logger.Infof("update state: %+v", updates.State())

	// Initialize handlers
	r := router.New(router.Config{
		Handler: handler.New(cfg.App.Version, statusSource{monitor, updates},
			handler.ReadinessCheck{Name: "cache", Pinger: handler.PingFunc(func(ctx context.Context) error {
				_, err := stores.Cache.ListGenerations(ctx)
				return err
			})},
			handler.ReadinessCheck{Name: "records", Pinger: stores.Records},
		),
		CartHandler:         handler.NewCartHandler(cart),
		UpdateHandler:       handler.NewUpdateHandler(worker, updates, cfg.Offline.Manifest),
		ConnectivityHandler: handler.NewConnectivityHandler(monitor, prober),
		InstallHandler:      handler.NewInstallHandler(prompter),
		WorkerHandler:       handler.NewWorkerHandler(worker),
		EventsHandler:       handler.NewEventsHandler(hub),
		Proxy:               handler.NewProxyHandler(worker, apiOrigin, cfg.Upstream.APIPrefix),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	}
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("Server shutdown error: %v", err)
	}

	// Let push, click and sync tasks finish before the stores close.
	worker.Wait()

	logger.Info("Server stopped")
	return nil
}

// statusSource joins the monitor and the coordinator for the status endpoint.
type statusSource struct {
	monitor *service.ConnectivityMonitor
	updates *service.UpdateCoordinator
}

func (s statusSource) Online() bool              { return s.monitor.Online() }
func (s statusSource) CurrentGeneration() string { return s.updates.CurrentGeneration() }
