package pihole

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"

	"github.com/libdns/libdns"

	"github.com/evanofslack/pihole-unifi-sync/metrics"
)

// ErrSourceUnavailable covers every way the Pi-hole fetch can fail: transport
// error, bad status, unparseable body, or an empty record set. The sync aborts
// on any of them, there is no retry.
var ErrSourceUnavailable = errors.New("pihole custom dns unavailable")

type Client interface {
	Records(ctx context.Context) ([]libdns.Record, error)
}

type Httper interface {
	Do(req *http.Request) (*http.Response, error)
}

type client struct {
	baseURL string
	token   string
	ttl     time.Duration
	http    Httper
	metrics *metrics.Metrics
}

func New(baseURL, token string, ttl time.Duration, metrics *metrics.Metrics) Client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		ttl:     ttl,
		http:    &http.Client{Timeout: 30 * time.Second},
		metrics: metrics,
	}
}

func (c *client) Records(ctx context.Context) ([]libdns.Record, error) {
	resp, err := c.getCustomDNS(ctx)
	if err != nil {
		c.metrics.IncPiholeRequest(false)
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	c.metrics.IncPiholeRequest(true)

	records := c.extractRecords(resp)
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no custom dns records returned", ErrSourceUnavailable)
	}
	return records, nil
}

func (c *client) getCustomDNS(ctx context.Context) (customDNSResponse, error) {
	endpoint := fmt.Sprintf("%s/admin/api.php?customdns&action=get&auth=%s", c.baseURL, url.QueryEscape(c.token))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return customDNSResponse{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return customDNSResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return customDNSResponse{}, fmt.Errorf("pihole api request, status=%d", resp.StatusCode)
	}

	var parsed customDNSResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return customDNSResponse{}, fmt.Errorf("parse pihole response, err=%w", err)
	}
	return parsed, nil
}

// extractRecords turns the raw [hostname, ip] pairs into A records. Order is
// preserved as returned by Pi-hole; duplicate hostnames keep the first entry.
func (c *client) extractRecords(resp customDNSResponse) []libdns.Record {
	records := []libdns.Record{}
	seen := map[string]bool{}

	for _, pair := range resp.Data {
		if len(pair) != 2 {
			slog.Warn("Skipping malformed custom dns entry", "entry", pair)
			continue
		}
		hostname, value := pair[0], pair[1]
		if seen[hostname] {
			slog.Warn("Skipping duplicate hostname", "hostname", hostname)
			continue
		}

		addr, err := netip.ParseAddr(value)
		if err != nil || !addr.Is4() {
			slog.Warn("Skipping entry without IPv4 address", "hostname", hostname, "value", value)
			continue
		}

		seen[hostname] = true
		records = append(records, &libdns.Address{
			Name: hostname,
			IP:   addr,
			TTL:  c.ttl,
		})
	}
	return records
}
