package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/skyfeed/internal/poller"
	"github.com/ppiankov/skyfeed/internal/source"
)

const (
	DefaultConfigFile = "config.yaml"
	DefaultEnvFile    = ".env"
	DefaultListen     = "127.0.0.1:8787"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
)

// Duration accepts a YAML integer of seconds or a duration string like "5m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	if secs, err := strconv.Atoi(s); err == nil {
		d.Duration = time.Duration(secs) * time.Second
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

type Config struct {
	Bluesky BlueskyConfig `yaml:"bluesky"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Feeds   []FeedConfig  `yaml:"feeds"`
}

type BlueskyConfig struct {
	PDSHost    string   `yaml:"pds_host"`
	PublicHost string   `yaml:"public_host"`
	Timeout    Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Listen string `yaml:"listen"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type FeedConfig struct {
	Name           string   `yaml:"name"`
	Handle         string   `yaml:"handle"`
	AppPasswordEnv string   `yaml:"app_password_env"`
	AppPassword    string   `yaml:"app_password"`
	FeedType       string   `yaml:"feed_type"`
	AuthorHandle   string   `yaml:"author_handle"`
	FeedURI        string   `yaml:"feed_uri"`
	PostLimit      int      `yaml:"post_limit"`
	UpdateInterval Duration `yaml:"update_interval"`
}

// Request converts the feed entry into a source request.
func (f FeedConfig) Request() source.FeedRequest {
	return source.FeedRequest{
		Type:         source.FeedType(f.FeedType),
		AuthorHandle: f.AuthorHandle,
		FeedURI:      f.FeedURI,
		Limit:        f.PostLimit,
	}
}

// EntityID is the explicit name, or one derived from the feed selection.
func (f FeedConfig) EntityID() string {
	if f.Name != "" {
		return f.Name
	}
	switch {
	case f.FeedType == string(source.FeedCustom) && f.FeedURI != "":
		return "custom_" + f.FeedURI[strings.LastIndex(f.FeedURI, "/")+1:]
	case f.FeedType == string(source.FeedAuthor) && f.AuthorHandle != "":
		return "author_" + f.AuthorHandle
	default:
		return "timeline_" + f.Handle
	}
}

// SlogLevel maps the configured level onto slog.
func (l LogConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config.yaml from dir, applies defaults, resolves env vars, and validates.
// A .env file next to it is loaded first; variables already set win.
func Load(dir string) (*Config, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("config dir is required")
	}

	path := filepath.Join(dir, DefaultConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := loadEnvFile(filepath.Join(dir, DefaultEnvFile)); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	applyDefaults(&cfg)
	resolveEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Bluesky.PDSHost == "" {
		cfg.Bluesky.PDSHost = source.DefaultPDSHost
	}
	if cfg.Bluesky.PublicHost == "" {
		cfg.Bluesky.PublicHost = source.DefaultPublicHost
	}
	if cfg.Bluesky.Timeout.Duration == 0 {
		cfg.Bluesky.Timeout.Duration = source.DefaultTimeout
	}
	if cfg.Server.Listen == "" {
		cfg.Server.Listen = DefaultListen
	}
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	for i := range cfg.Feeds {
		f := &cfg.Feeds[i]
		f.FeedType = strings.ToLower(strings.TrimSpace(f.FeedType))
		if f.FeedType == "" {
			f.FeedType = string(source.FeedTimeline)
		}
		f.Handle = strings.TrimPrefix(strings.TrimSpace(f.Handle), "@")
		f.AuthorHandle = strings.TrimPrefix(strings.TrimSpace(f.AuthorHandle), "@")
		f.FeedURI = strings.TrimSpace(f.FeedURI)
		if f.PostLimit == 0 {
			f.PostLimit = source.DefaultPostLimit
		}
		if f.UpdateInterval.Duration == 0 {
			f.UpdateInterval.Duration = poller.DefaultInterval
		}
	}
}

func resolveEnv(cfg *Config) {
	for i := range cfg.Feeds {
		f := &cfg.Feeds[i]
		if f.AppPasswordEnv != "" {
			if v := os.Getenv(f.AppPasswordEnv); v != "" {
				f.AppPassword = v
			}
		}
	}
}

func validate(cfg *Config) error {
	if len(cfg.Feeds) == 0 {
		return errors.New("feeds: at least one feed must be configured")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level: unknown level %q (want debug, info, warn or error)", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q (want text or json)", cfg.Log.Format)
	}
	if cfg.Bluesky.Timeout.Duration < 0 {
		return fmt.Errorf("bluesky.timeout: must be positive, got %s", cfg.Bluesky.Timeout)
	}

	seen := make(map[string]bool, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		if err := validateFeed(f); err != nil {
			return fmt.Errorf("feeds[%d]: %w", i, err)
		}
		id := f.EntityID()
		if seen[id] {
			return fmt.Errorf("feeds[%d]: duplicate entity %q", i, id)
		}
		seen[id] = true
	}
	return nil
}

func validateFeed(f FeedConfig) error {
	if f.Handle == "" {
		return errors.New("handle is required")
	}
	if f.AppPassword == "" {
		if f.AppPasswordEnv != "" {
			return fmt.Errorf("app password: env %s is not set", f.AppPasswordEnv)
		}
		return errors.New("app_password or app_password_env is required")
	}
	switch source.FeedType(f.FeedType) {
	case source.FeedTimeline, source.FeedAuthor, source.FeedCustom:
	default:
		return fmt.Errorf("feed_type: unknown type %q (want timeline, author or custom)", f.FeedType)
	}
	if f.PostLimit < source.MinPostLimit || f.PostLimit > source.MaxPostLimit {
		return fmt.Errorf("post_limit: %d out of range [%d, %d]", f.PostLimit, source.MinPostLimit, source.MaxPostLimit)
	}
	if d := f.UpdateInterval.Duration; d < poller.MinInterval || d > poller.MaxInterval {
		return fmt.Errorf("update_interval: %s out of range [%s, %s]", d, poller.MinInterval, poller.MaxInterval)
	}
	return nil
}
