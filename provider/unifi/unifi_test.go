package unifi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evanofslack/pihole-unifi-sync/config"
	"github.com/evanofslack/pihole-unifi-sync/metrics"
	"github.com/evanofslack/pihole-unifi-sync/provider"
)

const staticDNSPath = "/proxy/network/v2/api/site/default/static-dns"

func newTestProvider(t *testing.T, url string) *UnifiProvider {
	t.Helper()
	cfg := config.Unifi{
		URL:      url,
		Username: "admin",
		Password: "secret",
		Site:     "default",
	}
	p, err := New(cfg, metrics.New())
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}
	return p
}

func TestLoginEstablishesSession(t *testing.T) {
	var loginBody map[string]string
	var entriesCookie, entriesCSRF string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST login but got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&loginBody); err != nil {
			t.Errorf("Failed to decode login body: %v", err)
		}
		http.SetCookie(w, &http.Cookie{Name: "TOKEN", Value: "session-token", Path: "/"})
		w.Header().Set("X-Csrf-Token", "csrf-token")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc(staticDNSPath, func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("TOKEN"); err == nil {
			entriesCookie = c.Value
		}
		entriesCSRF = r.Header.Get("X-Csrf-Token")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]staticDNSEntry{})
		case http.MethodPost:
			w.WriteHeader(http.StatusOK)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	ctx := context.Background()

	if err := p.Login(ctx); err != nil {
		t.Fatalf("Unexpected login error: %v", err)
	}
	if loginBody["username"] != "admin" || loginBody["password"] != "secret" {
		t.Errorf("Unexpected login body %v", loginBody)
	}

	if _, err := p.GetRecords(ctx); err != nil {
		t.Fatalf("Unexpected get records error: %v", err)
	}
	if entriesCookie != "session-token" {
		t.Errorf("Expected session cookie on read but got %q", entriesCookie)
	}

	if err := p.CreateRecord(ctx, provider.Record{Name: "printer", Type: "A", Data: "192.168.1.50"}); err != nil {
		t.Fatalf("Unexpected create error: %v", err)
	}
	if entriesCSRF != "csrf-token" {
		t.Errorf("Expected csrf token on write but got %q", entriesCSRF)
	}
}

func TestLoginRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	err := p.Login(context.Background())
	if !errors.Is(err, provider.ErrAuthFailed) {
		t.Fatalf("Expected ErrAuthFailed but got %v", err)
	}
}

func TestGetRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != staticDNSPath {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]staticDNSEntry{
			{ID: "abc", Key: "printer", RecordType: "A", Value: "192.168.1.50", Enabled: true},
			{ID: "def", Key: "nas", RecordType: "A", Value: "192.168.1.51", Enabled: true, TTL: 300},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	records, err := p.GetRecords(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records but got %d", len(records))
	}
	if records[0].Name != "printer" || records[0].Data != "192.168.1.50" || records[0].Type != "A" {
		t.Errorf("Unexpected record %+v", records[0])
	}
	if records[1].TTL != 300 {
		t.Errorf("Expected ttl 300 but got %d", records[1].TTL)
	}
}

func TestGetDeviceHostnames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != staticDNSPath+"/devices" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]deviceEntry{
			{Hostname: "gateway"},
			{Hostname: ""},
			{Hostname: "switch"},
		})
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	hostnames, err := p.GetDeviceHostnames(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []string{"gateway", "switch"}
	if len(hostnames) != len(want) {
		t.Fatalf("Expected %d hostnames but got %d", len(want), len(hostnames))
	}
	for i := range want {
		if hostnames[i] != want[i] {
			t.Errorf("Hostname %d: expected %s but got %s", i, want[i], hostnames[i])
		}
	}
}

func TestCreateRecordBody(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST but got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode create body: %v", err)
		}
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)
	rec := provider.Record{Name: "printer", Type: "A", Data: "192.168.1.50"}
	if err := p.CreateRecord(context.Background(), rec); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if body["record_type"] != "A" || body["value"] != "192.168.1.50" || body["key"] != "printer" || body["enabled"] != true {
		t.Errorf("Unexpected create body %v", body)
	}
	if _, hasID := body["_id"]; hasID {
		t.Errorf("Create body should not carry an id, got %v", body)
	}
}

func TestExpiredSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL)

	if _, err := p.GetRecords(context.Background()); !errors.Is(err, provider.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired on read but got %v", err)
	}
	err := p.CreateRecord(context.Background(), provider.Record{Name: "printer", Type: "A", Data: "192.168.1.50"})
	if !errors.Is(err, provider.ErrSessionExpired) {
		t.Errorf("Expected ErrSessionExpired on write but got %v", err)
	}
}
