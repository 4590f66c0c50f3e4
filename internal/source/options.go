package source

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultPDSHost    = "https://bsky.social"
	DefaultPublicHost = "https://public.api.bsky.app"
	DefaultTimeout    = 30 * time.Second

	userAgent       = "skyfeed/1.0"
	maxResponseSize = 8 << 20
)

// Options configures the hosts and transport shared by a Session and its Client.
type Options struct {
	PDSHost    string       // session host: auth, timeline, repo writes
	PublicHost string       // AppView host: author and custom feeds
	HTTPClient *http.Client // nil uses a client with DefaultTimeout
	Logger     *slog.Logger
	Now        func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PDSHost == "" {
		o.PDSHost = DefaultPDSHost
	}
	if o.PublicHost == "" {
		o.PublicHost = DefaultPublicHost
	}
	o.PDSHost = strings.TrimRight(o.PDSHost, "/")
	o.PublicHost = strings.TrimRight(o.PublicHost, "/")
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
