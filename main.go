package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/libdns/libdns"

	"github.com/evanofslack/pihole-unifi-sync/config"
	"github.com/evanofslack/pihole-unifi-sync/logger"
	"github.com/evanofslack/pihole-unifi-sync/metrics"
	"github.com/evanofslack/pihole-unifi-sync/provider/unifi"
	"github.com/evanofslack/pihole-unifi-sync/reconcile"
	"github.com/evanofslack/pihole-unifi-sync/source/pihole"
)

// fatalExitCode is returned on auth or source-fetch failure. The value is
// carried over from the tool this replaces so existing wrappers keep working.
const fatalExitCode = 1603

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "report intended changes without writing")
	testRecord := flag.Bool("test-record", false, "sync hard-coded test records instead of pihole data")
	flag.Parse()

	// Default logger first so config-load warnings are structured too,
	// reconfigured below once the real settings are known
	logger.Configure("info", "prod")

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(fatalExitCode)
	}
	if *dryRun {
		cfg.Sync.DryRun = true
	}
	if *testRecord {
		cfg.Sync.TestRecord = true
	}

	logger.Configure(cfg.Log.Level, cfg.Log.Env)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(fatalExitCode)
	}

	m := metrics.New()

	// Optional metrics listener, off by default for one-shot use
	var server *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
		go func() {
			slog.Info("Starting metrics server", "address", server.Addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = performSync(ctx, cfg, m)

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	if err != nil {
		slog.Error("Sync aborted", "error", err)
		os.Exit(fatalExitCode)
	}
}

func performSync(ctx context.Context, cfg *config.Config, m *metrics.Metrics) error {
	slog.Info("Starting sync", "dry_run", cfg.Sync.DryRun, "test_record", cfg.Sync.TestRecord)
	start := time.Now()
	defer func() {
		m.SetSyncDuration(time.Since(start))
	}()

	// Source first: a dead source must abort before the controller is touched
	records, err := sourceRecords(ctx, cfg, m)
	if err != nil {
		m.IncSyncRun(false)
		return err
	}
	slog.Info("Fetched source records", "count", len(records))

	dest, err := unifi.New(cfg.Unifi, m)
	if err != nil {
		m.IncSyncRun(false)
		return err
	}
	if err := dest.Login(ctx); err != nil {
		m.IncSyncRun(false)
		return err
	}

	engine := reconcile.NewEngine(dest, cfg, m)
	results, err := engine.Reconcile(ctx, records)
	report(results)
	if err != nil {
		m.IncSyncRun(false)
		return fmt.Errorf("reconcile: %w", err)
	}

	slog.Info("Sync completed",
		"created", results.Count(reconcile.OutcomeCreated),
		"already_present", results.Count(reconcile.OutcomeAlreadyPresent),
		"skipped", results.Count(reconcile.OutcomeSkippedDryRun),
		"failed", results.Count(reconcile.OutcomeFailed))
	m.IncSyncRun(true)

	return nil
}

func sourceRecords(ctx context.Context, cfg *config.Config, m *metrics.Metrics) ([]libdns.Record, error) {
	if cfg.Sync.TestRecord {
		return testRecords(cfg.Sync.TTL), nil
	}

	client := pihole.New(cfg.Pihole.URL, cfg.Pihole.Token, time.Duration(cfg.Sync.TTL)*time.Second, m)
	records, err := client.Records(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch source records: %w", err)
	}
	return records, nil
}

// testRecords returns fixed entries from the TEST-NET-1 range, used to verify
// connectivity end to end without touching real data.
func testRecords(ttl int) []libdns.Record {
	return []libdns.Record{
		&libdns.Address{Name: "test", IP: netip.MustParseAddr("192.0.2.1"), TTL: time.Duration(ttl) * time.Second},
		&libdns.Address{Name: "test2", IP: netip.MustParseAddr("192.0.2.2"), TTL: time.Duration(ttl) * time.Second},
	}
}

// report prints one line per record outcome.
func report(results reconcile.Results) {
	for _, res := range results.Records {
		switch res.Outcome {
		case reconcile.OutcomeAlreadyPresent:
			slog.Info("Record already present", "name", res.Hostname, "data", res.Address)
		case reconcile.OutcomeCreated:
			slog.Info("Record created", "name", res.Hostname, "data", res.Address)
		case reconcile.OutcomeSkippedDryRun:
			slog.Info("Record skipped, dry run", "name", res.Hostname, "data", res.Address)
		case reconcile.OutcomeFailed:
			slog.Error("Record failed", "name", res.Hostname, "data", res.Address, "error", errString(res.Err))
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
