package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/libdns/libdns"

	"github.com/evanofslack/pihole-unifi-sync/config"
	"github.com/evanofslack/pihole-unifi-sync/metrics"
	"github.com/evanofslack/pihole-unifi-sync/provider"
)

type Engine interface {
	Reconcile(ctx context.Context, records []libdns.Record) (Results, error)
}

type engine struct {
	dnsProvider provider.Provider
	dryRun      bool
	metrics     *metrics.Metrics
}

func NewEngine(dp provider.Provider, cfg *config.Config, metrics *metrics.Metrics) *engine {
	return &engine{
		dnsProvider: dp,
		dryRun:      cfg.Sync.DryRun,
		metrics:     metrics,
	}
}

// Reconcile processes records in slice order, one full
// query-decide-create-confirm cycle per record. A session-expired error aborts
// the run with whatever results accumulated so far; any other per-record
// error downgrades to a failed outcome and processing continues.
func (e *engine) Reconcile(ctx context.Context, records []libdns.Record) (Results, error) {
	results := Results{}

	for _, r := range records {
		rec := provider.FromLibdns(r)
		res, err := e.reconcileRecord(ctx, rec)
		if err != nil {
			if errors.Is(err, provider.ErrSessionExpired) {
				return results, err
			}
			slog.Error("Unexpected failure reconciling record", "name", rec.Name, "error", err)
			res = RecordResult{
				Hostname: rec.Name,
				Address:  rec.Data,
				Outcome:  OutcomeFailed,
				Err:      err,
			}
		}
		e.metrics.IncRecordOutcome(res.Outcome.String())
		results.Records = append(results.Records, res)
	}
	return results, nil
}

func (e *engine) reconcileRecord(ctx context.Context, rec provider.Record) (RecordResult, error) {
	res := RecordResult{Hostname: rec.Name, Address: rec.Data}

	present, err := e.hostnamePresent(ctx, rec.Name)
	if err != nil {
		return res, err
	}
	if present {
		res.Outcome = OutcomeAlreadyPresent
		return res, nil
	}

	if e.dryRun {
		slog.Info("Dry run mode - would create record", "name", rec.Name, "data", rec.Data)
		res.Outcome = OutcomeSkippedDryRun
		return res, nil
	}

	if err := e.dnsProvider.CreateRecord(ctx, rec); err != nil {
		if errors.Is(err, provider.ErrSessionExpired) {
			return res, err
		}
		res.Outcome = OutcomeFailed
		res.Err = err
		return res, nil
	}

	// The controller's create response carries no usable success signal, so
	// confirm by re-reading the entry list.
	confirmed, err := e.entryExists(ctx, rec.Name)
	if err != nil {
		return res, err
	}
	if confirmed {
		res.Outcome = OutcomeCreated
	} else {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("record %s not present after create", rec.Name)
	}
	return res, nil
}

// hostnamePresent reports whether the hostname already resolves at the
// destination, either as a static entry or a device-derived name.
func (e *engine) hostnamePresent(ctx context.Context, hostname string) (bool, error) {
	exists, err := e.entryExists(ctx, hostname)
	if err != nil {
		return false, err
	}
	if exists {
		return true, nil
	}

	hostnames, err := e.dnsProvider.GetDeviceHostnames(ctx)
	if err != nil {
		return false, fmt.Errorf("get device hostnames: %w", err)
	}
	for _, h := range hostnames {
		if h == hostname {
			return true, nil
		}
	}
	return false, nil
}

func (e *engine) entryExists(ctx context.Context, hostname string) (bool, error) {
	existing, err := e.dnsProvider.GetRecords(ctx)
	if err != nil {
		return false, fmt.Errorf("get records: %w", err)
	}
	for _, r := range existing {
		if r.Name == hostname {
			return true, nil
		}
	}
	return false, nil
}
