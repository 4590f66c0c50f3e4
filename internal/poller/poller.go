package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ppiankov/skyfeed/internal/source"
)

const (
	DefaultInterval = 300 * time.Second
	MinInterval     = 30 * time.Second
	MaxInterval     = 3600 * time.Second
)

// ErrPollInProgress is returned by Poll when a cycle is already running.
var ErrPollInProgress = errors.New("poll already in progress")

// State is the coordinator's position in the poll cycle.
type State string

const (
	StateUninitialized  State = "uninitialized"
	StateAuthenticating State = "authenticating"
	StateFetching       State = "fetching"
	StateNormalizing    State = "normalizing"
	StateIdle           State = "idle"
)

// Feed is the upstream a coordinator polls and writes through.
// *source.Feed satisfies it.
type Feed interface {
	Name() string
	Request() source.FeedRequest
	Authenticated() bool
	EnsureSession(ctx context.Context) error
	FetchFeed(ctx context.Context) (map[string]any, error)
	Like(ctx context.Context, uri, cid string) (string, error)
	Unlike(ctx context.Context, recordURI string) error
	Repost(ctx context.Context, uri, cid string) (string, error)
	Unrepost(ctx context.Context, recordURI string) error
}

// Options configures a Coordinator.
type Options struct {
	Interval time.Duration // time between scheduled polls
	Timeout  time.Duration // budget for one scheduled poll; defaults to Interval
	Logger   *slog.Logger
	Now      func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.Timeout <= 0 {
		o.Timeout = o.Interval
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Coordinator drives one feed: it polls on a fixed interval, keeps the last
// good snapshot, and forwards write actions to the feed's session.
type Coordinator struct {
	feed   Feed
	opts   Options
	logger *slog.Logger

	pollMu sync.Mutex

	mu          sync.RWMutex
	state       State
	posts       []source.Post
	lastErr     error
	updatedAt   time.Time
	lastAttempt time.Time

	runMu  sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New creates a coordinator in the uninitialized state.
func New(feed Feed, opts Options) (*Coordinator, error) {
	if feed == nil {
		return nil, errors.New("poller: feed is required")
	}
	opts = opts.withDefaults()
	if opts.Interval < MinInterval || opts.Interval > MaxInterval {
		return nil, fmt.Errorf("poller: interval %s out of range [%s, %s]", opts.Interval, MinInterval, MaxInterval)
	}
	return &Coordinator{
		feed:   feed,
		opts:   opts,
		logger: opts.Logger.With("feed", feed.Name()),
		state:  StateUninitialized,
		posts:  []source.Post{},
	}, nil
}

// Name returns the feed name.
func (c *Coordinator) Name() string {
	return c.feed.Name()
}

// Interval returns the scheduled poll interval.
func (c *Coordinator) Interval() time.Duration {
	return c.opts.Interval
}

// Poll runs one cycle. On failure the previous posts are kept, the error is
// recorded and returned, and the coordinator goes back to idle.
func (c *Coordinator) Poll(ctx context.Context) error {
	if !c.pollMu.TryLock() {
		return ErrPollInProgress
	}
	defer c.pollMu.Unlock()

	start := c.opts.Now()
	c.mu.Lock()
	c.lastAttempt = start
	c.mu.Unlock()

	posts, err := c.cycle(ctx)
	if err != nil {
		c.finish(nil, err)
		c.logger.Warn("poll failed", "error", err, "duration", time.Since(start))
		return err
	}

	c.finish(posts, nil)
	c.logger.Info("poll complete", "posts", len(posts), "duration", time.Since(start))
	return nil
}

func (c *Coordinator) cycle(ctx context.Context) ([]source.Post, error) {
	if !c.feed.Authenticated() {
		c.setState(StateAuthenticating)
		if err := c.feed.EnsureSession(ctx); err != nil {
			return nil, err
		}
	}

	c.setState(StateFetching)
	doc, err := c.feed.FetchFeed(ctx)
	if err != nil {
		return nil, err
	}

	c.setState(StateNormalizing)
	return source.Normalize(doc), nil
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) finish(posts []source.Post, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateIdle
	c.lastErr = err
	if err == nil {
		c.posts = posts
		c.updatedAt = c.opts.Now()
	}
}

// Snapshot returns the current state and the posts of the last good poll.
func (c *Coordinator) Snapshot() Snapshot {
	req := c.feed.Request()

	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		EntityID:    c.feed.Name(),
		Label:       req.Label(),
		FeedType:    req.Type,
		State:       c.state,
		Posts:       c.posts,
		UpdatedAt:   c.updatedAt,
		LastAttempt: c.lastAttempt,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Start schedules Poll every Interval until Stop is called or ctx is done.
// It does not poll immediately.
func (c *Coordinator) Start(ctx context.Context) error {
	c.runMu.Lock()
	defer c.runMu.Unlock()
	if c.cron != nil {
		return errors.New("poller: already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	logger := cronLogger{logger: c.logger}
	cr := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	cr.Schedule(cron.Every(c.opts.Interval), cron.FuncJob(func() { c.tick(runCtx) }))
	cr.Start()

	c.cron = cr
	c.cancel = cancel
	c.logger.Debug("poller started", "interval", c.opts.Interval)
	return nil
}

// Stop halts the schedule, cancels any in-flight poll, and waits for it.
func (c *Coordinator) Stop() {
	c.runMu.Lock()
	cr, cancel := c.cron, c.cancel
	c.cron, c.cancel = nil, nil
	c.runMu.Unlock()

	if cr == nil {
		return
	}
	cancel()
	<-cr.Stop().Done()
	c.logger.Debug("poller stopped")
}

func (c *Coordinator) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	pollCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	if err := c.Poll(pollCtx); errors.Is(err, ErrPollInProgress) {
		c.logger.Debug("scheduled poll skipped", "reason", err)
	}
}

// Like likes a post through the coordinator's session.
func (c *Coordinator) Like(ctx context.Context, uri, cid string) (string, error) {
	return c.feed.Like(ctx, uri, cid)
}

// Unlike removes a like record.
func (c *Coordinator) Unlike(ctx context.Context, recordURI string) error {
	return c.feed.Unlike(ctx, recordURI)
}

// Repost reposts a post through the coordinator's session.
func (c *Coordinator) Repost(ctx context.Context, uri, cid string) (string, error) {
	return c.feed.Repost(ctx, uri, cid)
}

// Unrepost removes a repost record.
func (c *Coordinator) Unrepost(ctx context.Context, recordURI string) error {
	return c.feed.Unrepost(ctx, recordURI)
}

// cronLogger routes cron's internal logging into slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
