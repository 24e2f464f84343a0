package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultSite     = "default"
	defaultTTL      = 300
	defaultLogLevel = "info"
	defaultLogEnv   = "prod"
)

type Config struct {
	MetricsAddr string `yaml:"metricsAddr"`
	Log         Log    `yaml:"log"`
	Pihole      Pihole `yaml:"pihole"`
	Unifi       Unifi  `yaml:"unifi"`
	Sync        Sync   `yaml:"sync"`
}

type Pihole struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

type Unifi struct {
	URL       string `yaml:"url"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Site      string `yaml:"site"`
	VerifyTLS bool   `yaml:"verifyTls"`
}

type Log struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"`
}

type Sync struct {
	DryRun     bool `yaml:"dryRun"`
	TestRecord bool `yaml:"testRecord"`
	TTL        int  `yaml:"ttl"`
}

func Load(path string) (*Config, error) {
	configFile := true
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Default().Warn("fail find config file, proceeding", "path", path)
		configFile = false
	}

	var cfg Config
	if configFile {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, err
		}
		if err := f.Close(); err != nil {
			slog.Default().Warn("fail close config file", "path", path, "error", err)
		}
	}

	if cfg.Unifi.Site == "" {
		cfg.Unifi.Site = defaultSite
	}
	if cfg.Sync.TTL == 0 {
		cfg.Sync.TTL = defaultTTL
	}

	// Set log defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaultLogLevel
	}
	if cfg.Log.Env == "" {
		cfg.Log.Env = defaultLogEnv
	}

	// Override from environment if set
	if piholeURL := os.Getenv("PIHOLE_UNIFI_SYNC_PIHOLE_URL"); piholeURL != "" {
		cfg.Pihole.URL = piholeURL
	}
	if token := os.Getenv("PIHOLE_UNIFI_SYNC_PIHOLE_TOKEN"); token != "" {
		cfg.Pihole.Token = token
	}
	if unifiURL := os.Getenv("PIHOLE_UNIFI_SYNC_UNIFI_URL"); unifiURL != "" {
		cfg.Unifi.URL = unifiURL
	}
	if username := os.Getenv("PIHOLE_UNIFI_SYNC_UNIFI_USERNAME"); username != "" {
		cfg.Unifi.Username = username
	}
	if password := os.Getenv("PIHOLE_UNIFI_SYNC_UNIFI_PASSWORD"); password != "" {
		cfg.Unifi.Password = password
	}
	if site := os.Getenv("PIHOLE_UNIFI_SYNC_UNIFI_SITE"); site != "" {
		cfg.Unifi.Site = site
	}
	if verifyTLS := os.Getenv("PIHOLE_UNIFI_SYNC_UNIFI_VERIFY_TLS"); verifyTLS != "" {
		switch strings.ToLower(verifyTLS) {
		case "true":
			cfg.Unifi.VerifyTLS = true
		case "false":
			cfg.Unifi.VerifyTLS = false
		default:
			slog.Default().Warn("fail parse verify tls to bool from string", "verifytls", verifyTLS)
		}
	}
	if dryRun := os.Getenv("PIHOLE_UNIFI_SYNC_DRYRUN"); dryRun != "" {
		switch strings.ToLower(dryRun) {
		case "true":
			cfg.Sync.DryRun = true
		case "false":
			cfg.Sync.DryRun = false
		default:
			slog.Default().Warn("fail parse dryrun to bool from string", "dryrun", dryRun)
		}
	}
	if ttl := os.Getenv("PIHOLE_UNIFI_SYNC_TTL"); ttl != "" {
		if parsed, err := strconv.Atoi(ttl); err == nil {
			cfg.Sync.TTL = parsed
		} else {
			slog.Default().Warn("fail parse ttl to int from string", "ttl", ttl, "error", err)
		}
	}
	if metricsAddr := os.Getenv("PIHOLE_UNIFI_SYNC_METRICS_ADDR"); metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	if loglevel := os.Getenv("PIHOLE_UNIFI_SYNC_LOG_LEVEL"); loglevel != "" {
		cfg.Log.Level = loglevel
	}
	if logenv := os.Getenv("PIHOLE_UNIFI_SYNC_LOG_ENV"); logenv != "" {
		cfg.Log.Env = logenv
	}
	return &cfg, nil
}

// Validate checks that everything needed to reach both systems is present.
// Test-record mode still needs the Unifi side, just not the Pi-hole side.
func (cfg *Config) Validate() error {
	if !cfg.Sync.TestRecord {
		if cfg.Pihole.URL == "" {
			return fmt.Errorf("pihole url empty")
		}
		if cfg.Pihole.Token == "" {
			return fmt.Errorf("pihole api token empty")
		}
	}
	if cfg.Unifi.URL == "" {
		return fmt.Errorf("unifi url empty")
	}
	if cfg.Unifi.Username == "" {
		return fmt.Errorf("unifi username empty")
	}
	if cfg.Unifi.Password == "" {
		return fmt.Errorf("unifi password empty")
	}
	return nil
}
