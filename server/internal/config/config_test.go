package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	// Server section absent; every field falls back to its default.
	p := writeConfig(t, `client:
  endpoint: "localhost:8080"
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.GRPCPort != DefaultGRPCPort {
		t.Errorf("grpc_port: got %d, want %d", s.GRPCPort, DefaultGRPCPort)
	}
	if s.HTTPPort != DefaultHTTPPort {
		t.Errorf("http_port: got %d, want %d", s.HTTPPort, DefaultHTTPPort)
	}
	if s.Store.Driver != "fs" || s.Store.Dir != DefaultStoreDir {
		t.Errorf("store: got %q %q, want fs %q", s.Store.Driver, s.Store.Dir, DefaultStoreDir)
	}
	if s.Flush.Interval != DefaultFlushInterval {
		t.Errorf("flush.interval: got %v, want %v", s.Flush.Interval, DefaultFlushInterval)
	}
	if s.Retention.VersionLifeDays != DefaultVersionLifeDays {
		t.Errorf("retention.version_life_days: got %d, want %d", s.Retention.VersionLifeDays, DefaultVersionLifeDays)
	}
	if s.Stats.Interval != DefaultStatsInterval {
		t.Errorf("stats.interval: got %v, want %v", s.Stats.Interval, DefaultStatsInterval)
	}
}

func TestLoad_FullServer(t *testing.T) {
	p := writeConfig(t, `server:
  grpc_port: 9090
  http_port: 9091
  log_level: debug
  auth:
    mode: apikey
    key_env: MY_KEY
    header: x-tlb-key
  store:
    driver: s3
    s3:
      bucket: tlb-state
      region: eu-north-1
      prefix: prod/
      path_style: true
  flush:
    interval: 30s
  retention:
    version_life_days: 3
    prune_interval: 10m
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.GRPCPort != 9090 {
		t.Errorf("grpc_port: got %d, want 9090", s.GRPCPort)
	}
	if s.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel: got %v, want debug", s.SlogLevel())
	}
	if s.Auth.EffectiveHeader() != "x-tlb-key" {
		t.Errorf("header: got %q, want x-tlb-key", s.Auth.EffectiveHeader())
	}
	if s.Store.Driver != "s3" || s.Store.S3.Bucket != "tlb-state" || !s.Store.S3.PathStyle {
		t.Errorf("store: got %+v", s.Store)
	}
	if s.Flush.Interval != 30*time.Second {
		t.Errorf("flush.interval: got %v, want 30s", s.Flush.Interval)
	}
	if s.Retention.VersionLifeDays != 3 || s.Retention.PruneInterval != 10*time.Minute {
		t.Errorf("retention: got %+v", s.Retention)
	}
}

func TestLoad_DefaultHeader(t *testing.T) {
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: K
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if h := cfg.Server.Auth.EffectiveHeader(); h != "x-api-key" {
		t.Errorf("EffectiveHeader: got %q, want x-api-key", h)
	}
}

func TestLoad_KeyEnvResolution(t *testing.T) {
	t.Setenv("TEST_SERVER_KEY", "supersecret")
	p := writeConfig(t, `server:
  auth:
    mode: apikey
    key_env: TEST_SERVER_KEY
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if k := cfg.Server.Auth.Key(); k != "supersecret" {
		t.Errorf("Key(): got %q, want supersecret", k)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown auth mode": "server:\n  auth:\n    mode: oauth2\n",
		"unknown driver":    "server:\n  store:\n    driver: redis\n",
		"s3 without bucket": "server:\n  store:\n    driver: s3\n",
		"fs without dir":    "server:\n  store:\n    driver: fs\n    dir: \"\"\n",
		"zero flush":        "server:\n  flush:\n    interval: 0s\n",
		"negative days":     "server:\n  retention:\n    version_life_days: -1\n",
		"days too large":    "server:\n  retention:\n    version_life_days: 200000\n",
		"bad log level":     "server:\n  log_level: chatty\n",
		"port out of range": "server:\n  http_port: 70000\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestApplyEnv_Overrides(t *testing.T) {
	t.Setenv(EnvDataDir, "/var/lib/tlb")
	t.Setenv(EnvStoreDriver, "SQLITE")
	t.Setenv(EnvVersionLifeDays, "14")

	cfg := Defaults()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if cfg.Server.Store.Dir != "/var/lib/tlb" {
		t.Errorf("store.dir: got %q, want /var/lib/tlb", cfg.Server.Store.Dir)
	}
	if cfg.Server.Store.Driver != "sqlite" {
		t.Errorf("store.driver: got %q, want sqlite", cfg.Server.Store.Driver)
	}
	if cfg.Server.Retention.VersionLifeDays != 14 {
		t.Errorf("version_life_days: got %d, want 14", cfg.Server.Retention.VersionLifeDays)
	}
}

func TestApplyEnv_BadDays(t *testing.T) {
	for _, days := range []string{"a week", "200000"} {
		t.Setenv(EnvVersionLifeDays, days)
		if err := ApplyEnv(Defaults()); err == nil {
			t.Errorf("%s=%q: expected error, got nil", EnvVersionLifeDays, days)
		}
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := cfg.Server
	if s.Auth.Mode != "apikey" || s.Auth.KeyEnv != "TLB_API_KEY" {
		t.Errorf("auth: got %+v", s.Auth)
	}
	if s.Store.S3.Prefix != "tlb/" {
		t.Errorf("store.s3.prefix: got %q, want tlb/", s.Store.S3.Prefix)
	}
	if s.Retention.PruneInterval != time.Hour {
		t.Errorf("retention.prune_interval: got %v, want 1h", s.Retention.PruneInterval)
	}
}
