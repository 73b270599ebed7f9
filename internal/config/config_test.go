package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
env: production

server:
  port: 9090

mysql:
  host: 10.0.0.5
  port: 3307
  user: gateway
  password: secret
  database: toolgate_prod

redis:
  url: redis://10.0.0.6:6379/0

context:
  ttl_seconds: 600
  max_length: 800

athena:
  url: https://athena.internal
  api_key: athena-key

moad:
  url: https://moad.internal
  api_key: moad-key

retention:
  schedule: "0 3 * * *"
  days: 14
`

const minimalYAML = `
redis:
  url: redis://localhost:6379

athena:
  url: http://localhost:9001
  api_key: a

moad:
  url: http://localhost:9002
  api_key: m
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "production" {
		t.Errorf("env = %q, want production", cfg.Env)
	}
	if !cfg.Production() {
		t.Error("Production() = false, want true")
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("server.port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.MySQL.Host != "10.0.0.5" || cfg.MySQL.Port != 3307 {
		t.Errorf("mysql = %s:%d, want 10.0.0.5:3307", cfg.MySQL.Host, cfg.MySQL.Port)
	}
	if cfg.MySQL.Database != "toolgate_prod" {
		t.Errorf("mysql.database = %q, want toolgate_prod", cfg.MySQL.Database)
	}
	if cfg.Context.TTLSeconds != 600 || cfg.Context.MaxLength != 800 {
		t.Errorf("context = %d/%d, want 600/800", cfg.Context.TTLSeconds, cfg.Context.MaxLength)
	}
	if cfg.Retention.Schedule != "0 3 * * *" || cfg.Retention.Days != 14 {
		t.Errorf("retention = %q/%d, want '0 3 * * *'/14", cfg.Retention.Schedule, cfg.Retention.Days)
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Env != "development" {
		t.Errorf("env = %q, want development", cfg.Env)
	}
	if cfg.Production() {
		t.Error("Production() = true, want false")
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server.port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.MySQL.Host != "127.0.0.1" || cfg.MySQL.Port != 3306 {
		t.Errorf("mysql = %s:%d, want 127.0.0.1:3306", cfg.MySQL.Host, cfg.MySQL.Port)
	}
	if cfg.MySQL.User != "root" {
		t.Errorf("mysql.user = %q, want root", cfg.MySQL.User)
	}
	if cfg.MySQL.Database != "toolgate" {
		t.Errorf("mysql.database = %q, want toolgate", cfg.MySQL.Database)
	}
	if cfg.Context.TTLSeconds != 3600 {
		t.Errorf("context.ttl_seconds = %d, want 3600", cfg.Context.TTLSeconds)
	}
	if cfg.Context.MaxLength != 500 {
		t.Errorf("context.max_length = %d, want 500", cfg.Context.MaxLength)
	}
	if cfg.Retention.Schedule != "" || cfg.Retention.Days != 0 {
		t.Errorf("retention should stay disabled, got %q/%d", cfg.Retention.Schedule, cfg.Retention.Days)
	}
}

func TestParse_RetentionDaysDefault(t *testing.T) {
	yaml := minimalYAML + "\nretention:\n  schedule: \"0 4 * * *\"\n"
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retention.Days != 30 {
		t.Errorf("retention.days = %d, want 30 when schedule is set", cfg.Retention.Days)
	}
}

func TestParse_MissingRequired(t *testing.T) {
	_, err := Parse([]byte("env: development\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"redis.url", "athena.url", "athena.api_key", "moad.url", "moad.api_key"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestParse_BadEnv(t *testing.T) {
	_, err := Parse([]byte("env: staging\n" + minimalYAML))
	if err == nil || !strings.Contains(err.Error(), "env must be") {
		t.Errorf("expected env validation error, got %v", err)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("redis: [unclosed"))
	if err == nil || !strings.Contains(err.Error(), "config: parse") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "toolgate.yaml")
	if err := os.WriteFile(path, []byte(minimalYAML), 0644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Redis.URL != "redis://localhost:6379" {
		t.Errorf("redis.url = %q", cfg.Redis.URL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "config: read") {
		t.Errorf("expected read error, got %v", err)
	}
}
