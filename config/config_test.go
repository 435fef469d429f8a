package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/httpsmgr/logger"
)

type sampleSection struct {
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	Metrics     bool          `yaml:"metrics" mapstructure:"metrics"`
}

type sampleConfig struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`
	HTTPS         sampleSection `yaml:"https" mapstructure:"https"`
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestServiceConfigApplyDefaults(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ServiceConfig
		wantDebug bool
		wantLevel string
		wantOut   string
	}{
		{"development lowers level", ServiceConfig{Name: "httpsctl"}, true, "debug", "stderr"},
		{"production keeps info", ServiceConfig{Name: "httpsctl", Environment: "production"}, false, "info", "stderr"},
		{"explicit level wins", ServiceConfig{Name: "httpsctl", Logging: logger.Config{Level: "warn"}}, true, "warn", "stderr"},
		{"explicit output wins", ServiceConfig{Name: "httpsctl", Environment: "staging", Logging: logger.Config{Output: "stdout"}}, false, "info", "stdout"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			if cfg.Debug != tc.wantDebug {
				t.Errorf("Debug = %v, want %v", cfg.Debug, tc.wantDebug)
			}
			if cfg.Logging.Level != tc.wantLevel {
				t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, tc.wantLevel)
			}
			if cfg.Logging.Output != tc.wantOut {
				t.Errorf("Logging.Output = %q, want %q", cfg.Logging.Output, tc.wantOut)
			}
			if cfg.Logging.ServiceName != "httpsctl" {
				t.Errorf("Logging.ServiceName = %q, want propagated name", cfg.Logging.ServiceName)
			}
		})
	}
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		cfg    ServiceConfig
		errMsg string
	}{
		{"valid", ServiceConfig{Name: "svc", Environment: "staging"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "qa"}, "config.environment must be one of"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.Logging.ApplyDefaults()
			err := tc.cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %v", tc.errMsg, err)
			}
		})
	}
}

func TestLoadConfigWithYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", `
name: httpsctl
environment: staging
https:
  dial_timeout: 5s
  metrics: true
`)

	var cfg sampleConfig
	if err := LoadConfig("httpsctl", &cfg, WithConfigFile(path), WithEnvPrefix("HTTPSMGR_TEST_NONE")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Name != "httpsctl" || cfg.Environment != "staging" {
		t.Errorf("unexpected service config %+v", cfg.ServiceConfig)
	}
	if cfg.HTTPS.DialTimeout != 5*time.Second || !cfg.HTTPS.Metrics {
		t.Errorf("unexpected https section %+v", cfg.HTTPS)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: httpsctl\nhttps:\n  dial_timeout: 5s\n")
	t.Setenv("HTTPSCTL_HTTPS_DIAL_TIMEOUT", "9s")
	t.Setenv("HTTPSCTL_ENVIRONMENT", "production")
	t.Setenv("OTHER_ENVIRONMENT", "staging")

	var cfg sampleConfig
	if err := LoadConfig("httpsctl", &cfg, WithConfigFile(path), WithEnvPrefix("httpsctl_")); err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.HTTPS.DialTimeout != 9*time.Second {
		t.Errorf("expected env override, got %v", cfg.HTTPS.DialTimeout)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected prefixed variable only, got %q", cfg.Environment)
	}
}

func TestLoadConfigEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yml", "name: httpsctl\n")
	envPath := writeFile(t, dir, ".env", "HTTPSCTL_HTTPS_METRICS=true\n")
	t.Cleanup(func() { os.Unsetenv("HTTPSCTL_HTTPS_METRICS") })

	var cfg sampleConfig
	err := LoadConfig("httpsctl", &cfg, WithConfigFile(path), WithEnvFile(envPath), WithEnvPrefix("HTTPSCTL"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.HTTPS.Metrics {
		t.Error("expected value from .env file")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg sampleConfig
	err := LoadConfig("nonexistent-service", &cfg, WithConfigFile("/nonexistent/path.yml"), WithEnvPrefix("HTTPSMGR_TEST_NONE"))
	if err != nil {
		t.Fatalf("expected LoadConfig to succeed with missing file, got %v", err)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: [unterminated\n")
	var cfg sampleConfig
	if err := LoadConfig("httpsctl", &cfg, WithConfigFile(path)); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoadGeneric(t *testing.T) {
	path := writeFile(t, t.TempDir(), "config.yml", "name: httpsctl\n")
	cfg, err := Load[ServiceConfig]("httpsctl", WithConfigFile(path), WithEnvPrefix("HTTPSMGR_TEST_NONE"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Environment != "development" {
		t.Errorf("expected defaults applied, got %q", cfg.Environment)
	}

	bad := writeFile(t, t.TempDir(), "config.yml", "environment: qa\n")
	if _, err := Load[ServiceConfig]("httpsctl", WithConfigFile(bad), WithEnvPrefix("HTTPSMGR_TEST_NONE")); err == nil {
		t.Error("expected validation error")
	}
}

type mockFS struct {
	files map[string]bool
}

func (m *mockFS) Exists(path string) bool  { return m.files[path] }
func (m *mockFS) LoadEnv(path string) error { return nil }

func TestResolverSearchOrder(t *testing.T) {
	t.Setenv(EnvConfigFile, "")
	fs := &mockFS{files: map[string]bool{
		"./cmd/httpsctl/config.yml": true,
		"./config.yml":              true,
		"./cmd/httpsctl/.env":       true,
		"./.env.httpsctl":           true,
	}}
	resolver := &Resolver{FileSystem: fs}
	files := resolver.ResolveFiles("httpsctl", LoaderConfig{})
	if files.ConfigFile != "./cmd/httpsctl/config.yml" {
		t.Errorf("config file = %q", files.ConfigFile)
	}
	if files.EnvFile != "./.env.httpsctl" {
		t.Errorf("service-specific env file should win, got %q", files.EnvFile)
	}
}

func TestResolverEnvOverride(t *testing.T) {
	t.Setenv(EnvConfigFile, "/etc/httpsmgr/config.yml")
	resolver := &Resolver{FileSystem: &mockFS{files: map[string]bool{"./config.yml": true}}}
	if got := resolver.ResolveFiles("httpsctl", LoaderConfig{}).ConfigFile; got != "/etc/httpsmgr/config.yml" {
		t.Errorf("expected $%s to win, got %q", EnvConfigFile, got)
	}
	explicit := resolver.ResolveFiles("httpsctl", LoaderConfig{ConfigFile: "x.yml"}).ConfigFile
	if explicit != "x.yml" {
		t.Errorf("explicit path should win, got %q", explicit)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	got := envKeyVariants("HTTPS_DIAL_TIMEOUT")
	want := map[string]bool{"https_dial_timeout": true, "https.dial.timeout": true, "https.dial_timeout": true}
	for _, v := range got {
		delete(want, v)
	}
	if len(want) != 0 {
		t.Errorf("missing variants %v in %v", want, got)
	}
	if v := envKeyVariants("NAME"); len(v) != 1 || v[0] != "name" {
		t.Errorf("single-part key = %v", v)
	}
}

func TestLoaderOptions(t *testing.T) {
	var lc LoaderConfig
	WithFileSystem(&mockFS{})(&lc)
	WithConfigFile("/path/to/config.yml")(&lc)
	WithEnvFile("/path/to/.env")(&lc)
	WithEnvPrefix("httpsctl_")(&lc)
	if lc.FileSystem == nil || lc.ConfigFile == "" || lc.EnvFile == "" {
		t.Errorf("options not applied: %+v", lc)
	}
	if lc.EnvPrefix != "HTTPSCTL" {
		t.Errorf("EnvPrefix = %q", lc.EnvPrefix)
	}
}
