package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/haukened/hesiod-dns/internal/dns/common/clock"
	"github.com/haukened/hesiod-dns/internal/dns/common/log"
	"github.com/haukened/hesiod-dns/internal/dns/config"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/health"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/transport"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/wire"
	"github.com/haukened/hesiod-dns/internal/dns/repos/answercache"
	"github.com/haukened/hesiod-dns/internal/dns/repos/keyfilter"
	"github.com/haukened/hesiod-dns/internal/dns/repos/zone"
	"github.com/haukened/hesiod-dns/internal/dns/services/resolver"
	"github.com/haukened/hesiod-dns/internal/dns/services/state"
)

const (
	defaultShutdownTimeout = 10 * time.Second
)

// Application holds every component of a running server.
type Application struct {
	config    *config.AppConfig
	zone      *zone.Zone
	state     *state.State
	handler   *resolver.QueryHandler
	transport transport.ServerTransport
	health    *health.Server
	logger    log.Logger
}

// listenAddrs picks the DNS and HTTP listen addresses. A non-zero flag wins
// over the environment, which wins over the zone configuration.
func listenAddrs(cfg *config.AppConfig, zcfg *zone.Config, dnsFlag, httpFlag int) (dnsAddr, httpAddr string) {
	dnsPort := firstNonZero(dnsFlag, cfg.DNSPort, int(zcfg.DNSPort))
	httpPort := firstNonZero(httpFlag, cfg.HTTPPort, int(zcfg.HTTPPort))
	return net.JoinHostPort(cfg.BindAddress, strconv.Itoa(dnsPort)),
		net.JoinHostPort(cfg.BindAddress, strconv.Itoa(httpPort))
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

// appOptions carries the runtime choices buildApplication does not read from config.
type appOptions struct {
	DNSAddr   string
	HTTPAddr  string
	Transport transport.TransportType // empty means UDP
	Logger    log.Logger
	Clock     clock.Clock
}

// buildApplication wires the zone from zcfg into a server listening on opts.DNSAddr and opts.HTTPAddr.
func buildApplication(cfg *config.AppConfig, zcfg *zone.Config, opts appOptions) (*Application, error) {
	logger := opts.Logger
	transportType := opts.Transport
	if transportType == "" {
		transportType = transport.TransportUDP
	}

	z := zone.FromConfig(zcfg)
	st := state.New(z, opts.Clock)

	entries := z.Records()
	keys := make([]keyfilter.Keyed, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, keyfilter.Keyed{MapType: e.Record.MapType(), Key: e.Key})
	}

	resolverOpts := resolver.NameResolverOptions{
		Zone:   z,
		Filter: keyfilter.New(keys, cfg.BloomFPRate),
	}
	var cacheStats health.CacheStats
	if cfg.CacheSize > 0 {
		cache, err := answercache.New(cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create answer cache: %w", err)
		}
		resolverOpts.Cache = cache
		cacheStats = cache
	}

	handler := resolver.NewQueryHandler(resolver.QueryHandlerOptions{
		Codec:        wire.NewCodec(logger),
		Resolver:     resolver.NewNameResolver(resolverOpts),
		Logger:       logger,
		TTL:          z.TTL(),
		MaxQuestions: cfg.MaxQuestions,
	})

	serverTransport, err := transport.NewTransport(transportType, opts.DNSAddr, st, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	return &Application{
		config:    cfg,
		zone:      z,
		state:     st,
		handler:   handler,
		transport: serverTransport,
		health:    health.NewServer(opts.HTTPAddr, st, cacheStats, logger),
		logger:    logger,
	}, nil
}

// Run binds both listeners and serves until ctx is cancelled or the HTTP server fails.
func (app *Application) Run(ctx context.Context) error {
	if err := app.health.Listen(); err != nil {
		return err
	}
	if err := app.transport.Start(ctx, app.handler); err != nil {
		_ = app.health.Shutdown(context.Background())
		return fmt.Errorf("failed to start transport: %w", err)
	}

	app.logger.Info(map[string]any{
		"domain":       app.zone.Domain(),
		"suffix":       app.zone.Suffix(),
		"records":      app.zone.RecordCount(),
		"dns_address":  app.transport.Address(),
		"http_address": app.health.Address(),
	}, "Hesiod DNS server started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(app.health.Serve)
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info(nil, "Shutdown initiated")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()

		var errs []error
		if err := app.transport.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop transport: %w", err))
		}
		if err := app.health.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop health server: %w", err))
		}
		if len(errs) == 0 {
			app.logger.Info(map[string]any{
				"queries": app.state.QueryCount(),
				"uptime":  app.state.Uptime().String(),
			}, "Hesiod DNS server stopped")
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
