package unifi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/evanofslack/pihole-unifi-sync/config"
	"github.com/evanofslack/pihole-unifi-sync/metrics"
	"github.com/evanofslack/pihole-unifi-sync/provider"
)

// UnifiProvider talks to a Unifi network controller through its proxied
// network API. Authentication is cookie based: Login must succeed before any
// other call, and the cookie jar on the embedded http client is the session.
type UnifiProvider struct {
	baseURL   string
	username  string
	password  string
	site      string
	csrfToken string
	http      *http.Client
	metrics   *metrics.Metrics
}

func New(cfg config.Unifi, metrics *metrics.Metrics) (*UnifiProvider, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("unifi controller url empty")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifyTLS {
		// Controllers ship self-signed certs, trust is the operator's call.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	p := &UnifiProvider{
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		site:     cfg.Site,
		http: &http.Client{
			Jar:       jar,
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		metrics: metrics,
	}
	return p, nil
}

func (p *UnifiProvider) Login(ctx context.Context) error {
	slog.Info("Logging in to unifi controller", "url", p.baseURL, "username", p.username)

	body, err := json.Marshal(loginRequest{Username: p.username, Password: p.password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		p.metrics.IncUnifiRequest("login", false)
		return fmt.Errorf("%w: %w", provider.ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.metrics.IncUnifiRequest("login", false)
		return fmt.Errorf("%w: login status=%d", provider.ErrAuthFailed, resp.StatusCode)
	}

	// Session cookies land in the jar; the csrf token rides a header and has
	// to be replayed on writes.
	p.csrfToken = resp.Header.Get("X-Csrf-Token")
	p.metrics.IncUnifiRequest("login", true)
	return nil
}

func (p *UnifiProvider) GetRecords(ctx context.Context) ([]provider.Record, error) {
	var entries []staticDNSEntry
	if err := p.get(ctx, p.staticDNSPath(), &entries); err != nil {
		p.metrics.IncUnifiRequest("read", false)
		return nil, err
	}
	p.metrics.IncUnifiRequest("read", true)

	var result []provider.Record
	for _, e := range entries {
		result = append(result, provider.Record{
			Name: e.Key,
			Type: e.RecordType,
			Data: e.Value,
			TTL:  e.TTL,
		})
	}
	return result, nil
}

func (p *UnifiProvider) GetDeviceHostnames(ctx context.Context) ([]string, error) {
	var devices []deviceEntry
	if err := p.get(ctx, p.staticDNSPath()+"/devices", &devices); err != nil {
		p.metrics.IncUnifiRequest("devices", false)
		return nil, err
	}
	p.metrics.IncUnifiRequest("devices", true)

	var hostnames []string
	for _, d := range devices {
		if d.Hostname != "" {
			hostnames = append(hostnames, d.Hostname)
		}
	}
	return hostnames, nil
}

func (p *UnifiProvider) CreateRecord(ctx context.Context, record provider.Record) error {
	slog.Info("Creating static dns entry", "name", record.Name, "type", record.Type, "data", record.Data)

	entry := staticDNSEntry{
		Key:        record.Name,
		RecordType: record.Type,
		Value:      record.Data,
		Enabled:    true,
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.baseURL+p.staticDNSPath(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.csrfToken != "" {
		req.Header.Set("X-Csrf-Token", p.csrfToken)
	}

	resp, err := p.http.Do(req)
	if err != nil {
		p.metrics.IncUnifiRequest("create", false)
		return err
	}
	defer resp.Body.Close()

	if err := checkSessionStatus(resp.StatusCode); err != nil {
		p.metrics.IncUnifiRequest("create", false)
		return err
	}

	// The create response is not a trustworthy success signal on this API, a
	// non-error status here only means the request was accepted. Callers
	// confirm by re-reading the entry list.
	p.metrics.IncUnifiRequest("create", resp.StatusCode < 400)
	return nil
}

func (p *UnifiProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", p.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkSessionStatus(resp.StatusCode); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unifi api request %s, status=%d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse unifi response, err=%w", err)
	}
	return nil
}

func (p *UnifiProvider) staticDNSPath() string {
	return "/proxy/network/v2/api/site/" + p.site + "/static-dns"
}

func checkSessionStatus(status int) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%w: status=%d", provider.ErrSessionExpired, status)
	}
	return nil
}
