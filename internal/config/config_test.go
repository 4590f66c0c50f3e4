package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/skyfeed/internal/source"
)

func writeTestYAML(t *testing.T, dir, filename, content string) string {
	t.Helper()
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write test yaml: %v", err)
	}
	return path
}

func loadErr(t *testing.T, content string) error {
	t.Helper()
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, content)
	_, err := Load(dir)
	if err == nil {
		t.Fatal("expected error")
	}
	return err
}

// --- Load tests ---

func TestLoad_FullConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_BSKY_PASS", "env-secret")

	writeTestYAML(t, dir, DefaultConfigFile, `
bluesky:
  pds_host: https://pds.example.com
  public_host: https://appview.example.com
  timeout: 10s
server:
  listen: 0.0.0.0:9000
log:
  level: DEBUG
  format: json
feeds:
  - name: home
    handle: "@alice.test"
    app_password_env: TEST_BSKY_PASS
    feed_type: Timeline
    post_limit: 50
    update_interval: 60
  - handle: alice.test
    app_password: inline-secret
    feed_type: custom
    feed_uri: at://did:plc:gen/app.bsky.feed.generator/whats-hot
    update_interval: 15m
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Bluesky.PDSHost != "https://pds.example.com" || cfg.Bluesky.PublicHost != "https://appview.example.com" {
		t.Errorf("hosts = %q / %q", cfg.Bluesky.PDSHost, cfg.Bluesky.PublicHost)
	}
	if cfg.Bluesky.Timeout.Duration != 10*time.Second {
		t.Errorf("timeout = %s, want 10s", cfg.Bluesky.Timeout)
	}
	if cfg.Server.Listen != "0.0.0.0:9000" {
		t.Errorf("listen = %q", cfg.Server.Listen)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("slog level = %v", cfg.Log.SlogLevel())
	}

	if len(cfg.Feeds) != 2 {
		t.Fatalf("feeds = %d, want 2", len(cfg.Feeds))
	}
	home := cfg.Feeds[0]
	if home.Handle != "alice.test" {
		t.Errorf("handle = %q, want @ stripped", home.Handle)
	}
	if home.AppPassword != "env-secret" {
		t.Errorf("app password = %q, want env-secret", home.AppPassword)
	}
	if home.FeedType != "timeline" || home.PostLimit != 50 || home.UpdateInterval.Duration != time.Minute {
		t.Errorf("home = %+v", home)
	}
	if home.EntityID() != "home" {
		t.Errorf("entity = %q, want home", home.EntityID())
	}

	custom := cfg.Feeds[1]
	if custom.EntityID() != "custom_whats-hot" {
		t.Errorf("entity = %q, want custom_whats-hot", custom.EntityID())
	}
	if custom.UpdateInterval.Duration != 15*time.Minute || custom.PostLimit != source.DefaultPostLimit {
		t.Errorf("custom = %+v", custom)
	}
	req := custom.Request()
	if req.Resolve() != source.FeedCustom || req.Limit != source.DefaultPostLimit {
		t.Errorf("request = %+v", req)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
feeds:
  - handle: alice.test
    app_password: secret
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bluesky.PDSHost != source.DefaultPDSHost || cfg.Bluesky.PublicHost != source.DefaultPublicHost {
		t.Errorf("hosts = %q / %q", cfg.Bluesky.PDSHost, cfg.Bluesky.PublicHost)
	}
	if cfg.Bluesky.Timeout.Duration != source.DefaultTimeout {
		t.Errorf("timeout = %s", cfg.Bluesky.Timeout)
	}
	if cfg.Server.Listen != DefaultListen {
		t.Errorf("listen = %q", cfg.Server.Listen)
	}
	if cfg.Log.Level != DefaultLogLevel || cfg.Log.Format != DefaultLogFormat {
		t.Errorf("log = %+v", cfg.Log)
	}
	f := cfg.Feeds[0]
	if f.FeedType != "timeline" {
		t.Errorf("feed_type = %q, want timeline", f.FeedType)
	}
	if f.PostLimit != 20 {
		t.Errorf("post_limit = %d, want 20", f.PostLimit)
	}
	if f.UpdateInterval.Duration != 300*time.Second {
		t.Errorf("update_interval = %s, want 5m", f.UpdateInterval)
	}
	if f.EntityID() != "timeline_alice.test" {
		t.Errorf("entity = %q", f.EntityID())
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	const key = "SKYFEED_DOTENV_TEST_PASS"
	t.Cleanup(func() { os.Unsetenv(key) })

	writeTestYAML(t, dir, DefaultEnvFile, key+"=from-dotenv\n")
	writeTestYAML(t, dir, DefaultConfigFile, `
feeds:
  - handle: alice.test
    app_password_env: `+key+`
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feeds[0].AppPassword != "from-dotenv" {
		t.Errorf("app password = %q, want from-dotenv", cfg.Feeds[0].AppPassword)
	}
}

func TestLoad_EnvWinsOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	const key = "SKYFEED_DOTENV_OVERRIDE_PASS"
	t.Setenv(key, "from-env")

	writeTestYAML(t, dir, DefaultEnvFile, key+"=from-dotenv\n")
	writeTestYAML(t, dir, DefaultConfigFile, `
feeds:
  - handle: alice.test
    app_password_env: `+key+`
`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Feeds[0].AppPassword != "from-env" {
		t.Errorf("app password = %q, want from-env", cfg.Feeds[0].AppPassword)
	}
}

func TestLoad_EnvVarMissing(t *testing.T) {
	err := loadErr(t, `
feeds:
  - handle: alice.test
    app_password_env: NONEXISTENT_VAR_12345
`)
	if want := "NONEXISTENT_VAR_12345"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_DurationParsing(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"30", 30 * time.Second},
		{"3600", time.Hour},
		{`"120"`, 2 * time.Minute},
		{"90s", 90 * time.Second},
		{"1h", time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			dir := t.TempDir()
			writeTestYAML(t, dir, DefaultConfigFile, `
feeds:
  - handle: alice.test
    app_password: secret
    update_interval: `+tt.value+`
`)
			cfg, err := Load(dir)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got := cfg.Feeds[0].UpdateInterval.Duration; got != tt.want {
				t.Errorf("update_interval = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no feeds", `log: {level: info}`, "at least one feed"},
		{"missing handle", `
feeds:
  - app_password: secret`, "handle is required"},
		{"missing password", `
feeds:
  - handle: alice.test`, "app_password"},
		{"unknown feed type", `
feeds:
  - handle: alice.test
    app_password: secret
    feed_type: list`, "feed_type"},
		{"post limit high", `
feeds:
  - handle: alice.test
    app_password: secret
    post_limit: 51`, "post_limit"},
		{"post limit negative", `
feeds:
  - handle: alice.test
    app_password: secret
    post_limit: -1`, "post_limit"},
		{"interval too short", `
feeds:
  - handle: alice.test
    app_password: secret
    update_interval: 29`, "update_interval"},
		{"interval too long", `
feeds:
  - handle: alice.test
    app_password: secret
    update_interval: 2h`, "update_interval"},
		{"duplicate entity", `
feeds:
  - handle: alice.test
    app_password: secret
  - handle: "@alice.test"
    app_password: other`, "duplicate entity"},
		{"bad log level", `
log: {level: loud}
feeds:
  - handle: alice.test
    app_password: secret`, "log.level"},
		{"bad log format", `
log: {format: xml}
feeds:
  - handle: alice.test
    app_password: secret`, "log.format"},
		{"bad duration", `
feeds:
  - handle: alice.test
    app_password: secret
    update_interval: soon`, "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := loadErr(t, tt.yaml)
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoad_CustomWithoutURIAccepted(t *testing.T) {
	dir := t.TempDir()
	writeTestYAML(t, dir, DefaultConfigFile, `
feeds:
  - handle: alice.test
    app_password: secret
    feed_type: custom
`)
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := cfg.Feeds[0]
	if f.Request().Resolve() != source.FeedAuthor {
		t.Errorf("resolve = %q, want author fallback", f.Request().Resolve())
	}
	if f.EntityID() != "timeline_alice.test" {
		t.Errorf("entity = %q", f.EntityID())
	}
}

func TestFeedConfig_EntityID(t *testing.T) {
	tests := []struct {
		name string
		feed FeedConfig
		want string
	}{
		{"explicit name", FeedConfig{Name: "mine", Handle: "a.test"}, "mine"},
		{"custom", FeedConfig{Handle: "a.test", FeedType: "custom", FeedURI: "at://did:plc:x/app.bsky.feed.generator/cats"}, "custom_cats"},
		{"author", FeedConfig{Handle: "a.test", FeedType: "author", AuthorHandle: "bob.test"}, "author_bob.test"},
		{"author without handle", FeedConfig{Handle: "a.test", FeedType: "author"}, "timeline_a.test"},
		{"timeline", FeedConfig{Handle: "a.test", FeedType: "timeline"}, "timeline_a.test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.feed.EntityID(); got != tt.want {
				t.Errorf("EntityID = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if want := "read config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	err := loadErr(t, `{{{invalid`)
	if want := "parse config"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}

func TestLoad_EmptyDir(t *testing.T) {
	_, err := Load("")
	if err == nil {
		t.Fatal("expected error for empty dir")
	}
	if want := "config dir is required"; !strings.Contains(err.Error(), want) {
		t.Errorf("error = %q, want containing %q", err, want)
	}
}
