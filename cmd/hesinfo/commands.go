package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/haukened/hesiod-dns/internal/dns/common/clock"
	"github.com/haukened/hesiod-dns/internal/dns/common/log"
	"github.com/haukened/hesiod-dns/internal/dns/config"
	"github.com/haukened/hesiod-dns/internal/dns/domain"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/client"
	"github.com/haukened/hesiod-dns/internal/dns/gateways/transport"
	"github.com/haukened/hesiod-dns/internal/dns/repos/zone"
	"github.com/haukened/hesiod-dns/internal/dns/repos/zonefile"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

func cmdServe(args []string, _, stderr io.Writer) int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return exitError
	}

	fs := newFlagSet("serve", "", stderr)
	configPath := fs.String("config", cfg.ConfigFile, "zone configuration file")
	dnsPort := fs.Int("dns-port", 0, "DNS port (overrides environment and zone configuration)")
	httpPort := fs.Int("http-port", 0, "HTTP port (overrides environment and zone configuration)")
	transportName := fs.String("transport", string(transport.TransportUDP), "DNS transport")
	if err := fs.Parse(args); err != nil {
		return parseErrCode(err)
	}
	transportType := transport.TransportType(*transportName)
	if !transport.IsTransportSupported(transportType) {
		fmt.Fprintf(stderr, "Unsupported transport %q (supported: %v)\n", *transportName, transport.GetSupportedTransports())
		return exitUsage
	}

	if err := log.Configure(cfg.Env, cfg.LogLevel); err != nil {
		fmt.Fprintf(stderr, "Failed to configure logger: %v\n", err)
		return exitError
	}
	logger := log.GetLogger()
	defer func() { _ = log.Sync(logger) }()

	zcfg, err := zone.LoadConfig(*configPath)
	if err != nil {
		logger.Error(map[string]any{"path": *configPath, "error": err.Error()}, "Failed to load zone configuration")
		return exitError
	}

	dnsAddr, httpAddr := listenAddrs(cfg, zcfg, *dnsPort, *httpPort)
	app, err := buildApplication(cfg, zcfg, appOptions{
		DNSAddr:   dnsAddr,
		HTTPAddr:  httpAddr,
		Transport: transportType,
		Logger:    logger,
		Clock:     clock.RealClock{},
	})
	if err != nil {
		logger.Error(map[string]any{"error": err.Error()}, "Failed to build application")
		return exitError
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info(map[string]any{"signal": sig.String()}, "Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := app.Run(ctx); err != nil {
		logger.Error(map[string]any{"error": err.Error()}, "Server error")
		return exitError
	}
	return exitOK
}

func cmdLookup(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("lookup", "<key> <map>", stderr)
	server := fs.String("server", "localhost", "server host")
	port := fs.Uint("port", 5353, "server port")
	lhs := fs.String("lhs", ".ns", "Hesiod LHS")
	rhs := fs.String("rhs", "", "Hesiod RHS")
	timeout := fs.Duration("timeout", client.DefaultTimeout, "query timeout")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return parseErrCode(err)
	}
	if len(positional) != 2 {
		fs.Usage()
		return exitUsage
	}
	if *port == 0 || *port > 65535 {
		fmt.Fprintf(stderr, "Invalid port %d\n", *port)
		return exitUsage
	}

	key := positional[0]
	mapType, err := domain.ParseMapType(positional[1])
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}

	c := client.New(client.Options{
		Server:  *server,
		Port:    uint16(*port),
		LHS:     *lhs,
		RHS:     *rhs,
		Timeout: *timeout,
	})
	ctx, cancel := context.WithTimeout(context.Background(), *timeout+time.Second)
	defer cancel()

	texts, err := c.Lookup(ctx, key, mapType)
	if err != nil {
		fmt.Fprintf(stderr, "Lookup failed: %v\n", err)
		return exitError
	}
	if len(texts) == 0 {
		fmt.Fprintf(stdout, "No records found for %s.%s\n", key, mapType.Label())
		return exitOK
	}
	for _, t := range texts {
		fmt.Fprintln(stdout, t)
	}
	return exitOK
}

func cmdGenerate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("generate", "", stderr)
	configPath := fs.String("config", config.DEFAULT_APP_CONFIG.ConfigFile, "zone configuration file")
	output := fs.String("output", "", "zone file to write, or - for standard output")
	if err := fs.Parse(args); err != nil {
		return parseErrCode(err)
	}
	if *output == "" {
		fmt.Fprintln(stderr, "Missing required flag -output")
		fs.Usage()
		return exitUsage
	}

	zcfg, err := zone.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load zone configuration: %v\n", err)
		return exitError
	}
	z := zone.FromConfig(zcfg)

	if *output == "-" {
		if err := zonefile.Generate(stdout, z); err != nil {
			fmt.Fprintf(stderr, "Failed to write zone file: %v\n", err)
			return exitError
		}
		return exitOK
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create %s: %v\n", *output, err)
		return exitError
	}
	if err := zonefile.Generate(f, z); err != nil {
		_ = f.Close()
		fmt.Fprintf(stderr, "Failed to write zone file: %v\n", err)
		return exitError
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(stderr, "Failed to write zone file: %v\n", err)
		return exitError
	}
	fmt.Fprintf(stdout, "Generated zone file with %d records -> %s\n", z.RecordCount(), *output)
	return exitOK
}

func cmdValidate(args []string, stdout, stderr io.Writer) int {
	fs := newFlagSet("validate", "<file>", stderr)
	lhs := fs.String("lhs", "", "Hesiod LHS; with -rhs, owners must end in lhs+rhs")
	rhs := fs.String("rhs", "", "Hesiod RHS")
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return parseErrCode(err)
	}
	if len(positional) != 1 {
		fs.Usage()
		return exitUsage
	}

	f, err := os.Open(positional[0])
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open zone file: %v\n", err)
		return exitError
	}
	defer f.Close()

	report, err := zonefile.Validate(f, zonefile.Options{Suffix: *lhs + *rhs})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to read zone file: %v\n", err)
		return exitError
	}
	for _, d := range report.Diagnostics {
		fmt.Fprintln(stderr, d.String())
	}
	if report.OK() {
		fmt.Fprintf(stdout, "Valid: %d records checked, no errors\n", report.Records)
		return exitOK
	}
	fmt.Fprintf(stdout, "%d errors in %d records\n", len(report.Diagnostics), report.Records)
	return exitError
}
