package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/multilink-proxy/config"
	"github.com/angeloszaimis/multilink-proxy/internal/backend"
	"github.com/angeloszaimis/multilink-proxy/internal/circuitbreaker"
	"github.com/angeloszaimis/multilink-proxy/internal/httpserver"
	"github.com/angeloszaimis/multilink-proxy/internal/linkstatus"
	"github.com/angeloszaimis/multilink-proxy/internal/loadbalancer"
	"github.com/angeloszaimis/multilink-proxy/internal/metrics"
	"github.com/angeloszaimis/multilink-proxy/internal/netmon"
	"github.com/angeloszaimis/multilink-proxy/internal/proxy"
	"github.com/angeloszaimis/multilink-proxy/internal/requestworker"
	"github.com/angeloszaimis/multilink-proxy/internal/routing"
	"github.com/angeloszaimis/multilink-proxy/internal/strategy"
	"github.com/angeloszaimis/multilink-proxy/internal/tracing"
	"github.com/angeloszaimis/multilink-proxy/pkg/logger"
)

const eventBufferSize = 1024

func main() {
	configPath := flag.String("config", "", "path to the config file (default: config.yaml in ./config or .)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Multi-link proxy stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("Multi-link proxy stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFile(path)
}

// run starts every component and blocks until ctx is done or one of them
// fails.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	provider, err := metrics.NewProvider(cfg.Telemetry.Exporter)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to shut down meter provider", slog.Any("err", err))
		}
	}()

	tracerProvider, err := tracing.NewProvider(cfg.Telemetry.Tracing)
	if err != nil {
		return err
	}
	shutdownTracing := tracing.Install(tracerProvider)
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("Failed to shut down tracer provider", slog.Any("err", err))
		}
	}()

	instruments, err := provider.Instruments()
	if err != nil {
		return fmt.Errorf("create instruments: %w", err)
	}

	breakers := circuitbreaker.NewRegistry(cfg.CircuitBreaker.Threshold, cfg.CircuitBreaker.ResetTimeoutDuration())
	table, registry, err := initializeLinks(cfg, breakers)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector(eventBufferSize, table, registry, instruments, log)

	proxies, err := newProxyServers(cfg, registry, collector, log)
	if err != nil {
		return err
	}

	admin, err := httpserver.New("admin", cfg.Server.Address, setupRouter(linkstatus.NewBuilder(table, breakers), provider.Handler(), log), log)
	if err != nil {
		return fmt.Errorf("create admin server: %w", err)
	}

	monitor := netmon.New(table, cfg.HealthCheck.IntervalDuration(), cfg.HealthCheck.QueueSize, log)
	worker := requestworker.New(monitor.Queue(), cfg.HealthCheck.ProbeTimeoutDuration(), instruments, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		collector.Run(gctx)
		return nil
	})
	g.Go(func() error {
		monitor.Run(gctx)
		return nil
	})
	g.Go(func() error {
		reason := worker.Run(gctx)
		log.Debug("Request worker exited", slog.String("reason", reason.String()))
		return nil
	})
	for _, srv := range append(proxies, admin) {
		g.Go(func() error {
			if err := srv.Serve(gctx); err != nil {
				return fmt.Errorf("%s server: %w", srv.Addr(), err)
			}
			return nil
		})
	}

	log.Info("Multi-link proxy started",
		slog.Int("proxies", len(proxies)),
		slog.String("admin_addr", cfg.Server.Address))

	return g.Wait()
}

// initializeLinks builds the routing table and a backend for every target
// server of every configured link group, enabled or not.
func initializeLinks(cfg *config.Config, breakers *circuitbreaker.Registry) (*routing.Table, *backend.Registry, error) {
	registry := backend.NewRegistry()
	groups := make([]*routing.LinkGroup, 0, len(cfg.Links))

	for _, link := range cfg.Links {
		servers := make([]routing.TargetServer, 0, len(link.Servers))
		backends := make([]*backend.Backend, 0, len(link.Servers))

		for idx, server := range link.Servers {
			u, err := url.Parse(server.URL)
			if err != nil {
				return nil, nil, fmt.Errorf("link %q server %q: %w", link.Name, server.Alias, err)
			}
			servers = append(servers, routing.TargetServer{Alias: server.Alias, URL: server.URL})
			backends = append(backends, backend.New(idx, server.Alias, u, breakers.GetBreaker(link.Name, idx)))
		}

		groups = append(groups, routing.NewLinkGroup(link.Name, link.ProxyPort, link.Enabled, servers...))
		registry.Register(link.Name, backends)
	}

	return routing.NewTable(groups...), registry, nil
}

// newProxyServers creates one loopback proxy listener per enabled link group.
func newProxyServers(cfg *config.Config, registry *backend.Registry, emitter proxy.EventEmitter, log *slog.Logger) ([]*httpserver.Server, error) {
	var servers []*httpserver.Server

	for _, link := range cfg.Links {
		if !link.Enabled {
			continue
		}

		strat, err := strategy.New(link.Strategy)
		if err != nil {
			return nil, fmt.Errorf("link %q: %w", link.Name, err)
		}

		handler := proxy.NewHandler(link.Name, log, loadbalancer.NewLoadBalancer(strat), registry.Backends(link.Name), emitter)
		srv, err := httpserver.New("proxy-"+link.Name, fmt.Sprintf("127.0.0.1:%d", link.ProxyPort), handler, log)
		if err != nil {
			return nil, fmt.Errorf("link %q: %w", link.Name, err)
		}
		servers = append(servers, srv)
	}

	if len(servers) == 0 {
		return nil, errors.New("no enabled link group")
	}

	return servers, nil
}
