package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ssaritan18/Project-1-sub000/internal/api"
	"github.com/ssaritan18/Project-1-sub000/internal/app/points"
	"github.com/ssaritan18/Project-1-sub000/internal/app/progress"
	"github.com/ssaritan18/Project-1-sub000/internal/app/reconcile"
	"github.com/ssaritan18/Project-1-sub000/internal/domain"
	"github.com/ssaritan18/Project-1-sub000/internal/health"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/metrics"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/remote"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/scheduler"
	"github.com/ssaritan18/Project-1-sub000/internal/infra/sqlite"
)

// Version is reported by the API and the remote client's User-Agent.
// Set by the CLI from the build version.
var Version = "dev"

// replayScan is how many outbox entries one background pass inspects.
const replayScan = 500

// Daemon is the focus runtime. It wires together all services.
type Daemon struct {
	Config     Config
	DB         *sqlite.DB
	Points     *points.Service
	Engine     *progress.Engine
	Reconciler *reconcile.Reconciler
	Sessions   *progress.Sessions
	Remote     *remote.Client // nil when no authority is configured
	Health     *health.Checker
	Retry      *scheduler.RetryQueue
	Server     *api.Server

	loc     *time.Location
	logFile *os.File
	cancel  context.CancelFunc
}

// New creates and initializes a Daemon with all services wired.
func New() (*Daemon, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return NewWithConfig(cfg)
}

// NewWithConfig creates a Daemon with the given configuration.
func NewWithConfig(cfg Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	d := &Daemon{Config: cfg, loc: loc}
	if err := d.setupLogging(); err != nil {
		return nil, err
	}

	// Open SQLite
	dir := cfg.Store.Dir
	if dir == "" {
		dir = focusHome()
	}
	db, err := sqlite.Open(dir)
	if err != nil {
		d.closeLog()
		return nil, fmt.Errorf("open database: %w", err)
	}
	d.DB = db

	catalog, err := loadCatalog(cfg.Profile.Catalog)
	if err != nil {
		d.Close()
		return nil, err
	}

	debug := cfg.Logging.Level == "debug"
	d.Points = points.NewService(db)
	d.Engine = progress.NewEngine(db, d.Points,
		progress.WithCatalog(catalog),
		progress.WithDebug(debug),
	)
	d.Sessions = progress.NewSessions()

	// Remote authority (optional). The interface stays nil when disabled
	// so the reconciler runs local-only.
	var authority domain.Authority
	if cfg.Remote.Enabled {
		client, err := remote.New(remote.Config{
			Endpoint: cfg.Remote.Endpoint,
			Token:    cfg.Remote.Token,
			Timeout:  parseDuration(cfg.Remote.Timeout, reconcile.DefaultTimeout),
			Version:  Version,
		})
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("remote authority: %w", err)
		}
		d.Remote = client
		authority = client
	}
	d.Reconciler = reconcile.New(d.Engine, authority, db,
		reconcile.WithTimeout(parseDuration(cfg.Remote.Timeout, reconcile.DefaultTimeout)),
	)

	d.Retry = scheduler.NewRetryQueue(scheduler.RetryConfig{
		BaseDelay: parseDuration(cfg.Remote.ReplayInterval, 30*time.Second),
		MaxDelay:  parseDuration(cfg.Remote.MaxBackoff, 10*time.Minute),
	})

	// Health checker
	opts := health.Options{
		Interval:  parseDuration(cfg.Telemetry.HealthInterval, health.DefaultInterval),
		Outbox:    db,
		MaxOutbox: cfg.Telemetry.MaxOutbox,
	}
	if d.Remote != nil {
		opts.Remote = d.Remote
		opts.Replay = func(ctx context.Context) error {
			_, err := d.Reconciler.ReplayAll(ctx)
			return err
		}
	}
	d.Health = health.NewChecker(db, dir, opts)

	// API server
	srv := api.NewServer(d.Reconciler, d.Sessions)
	srv.SetHealth(d.Health)
	srv.SetLocation(loc)
	srv.SetVersion(Version)
	srv.SetCORSOrigins(cfg.API.CORSOrigins)
	if cfg.Telemetry.Prometheus {
		srv.EnableMetrics()
	}
	d.Server = srv

	return d, nil
}

// User returns the configured local user id.
func (d *Daemon) User() string { return d.Config.Profile.User }

// Today returns the current calendar day in the profile's zone.
func (d *Daemon) Today() domain.CompletionDay {
	return domain.DayOf(time.Now().In(d.loc))
}

// Serve starts the HTTP server and blocks until shutdown.
func (d *Daemon) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	// Health checker (always runs)
	go d.Health.Run(ctx)

	// Outbox replay (only with an authority)
	if d.Remote != nil {
		go d.ReplayLoop(ctx)
	}

	addr := fmt.Sprintf("%s:%d", d.Config.API.Host, d.Config.API.Port)

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      d.Server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigCh:
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	fmt.Printf("focus serving on http://%s (user %s)\n", addr, d.User())
	if d.Remote != nil {
		fmt.Printf("  Remote: %s\n", d.Remote.Endpoint())
	} else {
		fmt.Printf("  Remote: disabled (local only)\n")
	}
	if d.Config.Telemetry.Prometheus {
		fmt.Printf("  Metrics: http://%s/metrics\n", addr)
	}

	err := httpServer.ListenAndServe()
	d.Close()
	if err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ReplayLoop replays due users' outboxes every replay interval until ctx
// is done. Call in a goroutine.
func (d *Daemon) ReplayLoop(ctx context.Context) {
	ticker := time.NewTicker(parseDuration(d.Config.Remote.ReplayInterval, 30*time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			d.ReplayDue(ctx, now)
		}
	}
}

// ReplayDue runs one replay pass over every user with queued operations
// who is not backing off. A user whose pass leaves entries behind backs
// off exponentially.
func (d *Daemon) ReplayDue(ctx context.Context, now time.Time) reconcile.ReplayReport {
	var total reconcile.ReplayReport
	defer func() { metrics.ReplayBackoff.Set(float64(d.Retry.Len())) }()

	entries, err := d.DB.PendingOutbox("", replayScan)
	if err != nil {
		log.Printf("[daemon] read outbox: %v", err)
		return total
	}

	seen := make(map[string]bool)
	for _, e := range entries {
		user := e.Op.UserID
		if seen[user] || !d.Retry.Due(user, now) {
			continue
		}
		seen[user] = true

		rep, err := d.Reconciler.Replay(ctx, user)
		total.Delivered += rep.Delivered
		total.Dropped += rep.Dropped
		total.Pending += rep.Pending

		switch {
		case err != nil:
			delay := d.Retry.ScheduleRetry(user, err.Error(), now)
			log.Printf("[daemon] replay for %s failed: %v (retry in %s)", user, err, delay)
		case rep.Pending > 0:
			delay := d.Retry.ScheduleRetry(user, "remote unavailable", now)
			log.Printf("[daemon] %d ops still queued for %s (retry in %s)", rep.Pending, user, delay)
		default:
			d.Retry.Clear(user)
		}
	}
	return total
}

// Close shuts down all daemon resources.
func (d *Daemon) Close() {
	if d.cancel != nil {
		d.cancel()
	}
	if d.DB != nil {
		_ = d.DB.Close()
		d.DB = nil
	}
	d.closeLog()
}

// setupLogging points the standard logger at logging.file when set.
func (d *Daemon) setupLogging() error {
	log.SetPrefix("")
	log.SetFlags(log.LstdFlags)
	if d.Config.Logging.File == "" {
		return nil
	}
	path := d.Config.Logging.File
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	log.SetOutput(f)
	d.logFile = f
	return nil
}

func (d *Daemon) closeLog() {
	if d.logFile != nil {
		log.SetOutput(os.Stderr)
		_ = d.logFile.Close()
		d.logFile = nil
	}
}

// loadCatalog reads a JSON catalog file, or returns the built-in one.
func loadCatalog(path string) (progress.Catalog, error) {
	if path == "" {
		return progress.DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return progress.Catalog{}, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()

	c, err := progress.LoadCatalog(f)
	if err != nil {
		return progress.Catalog{}, fmt.Errorf("load catalog %s: %w", path, err)
	}
	log.Printf("[daemon] loaded catalog %s: %d achievements, %d challenge templates",
		path, len(c.Achievements), len(c.Challenges))
	return c, nil
}
