package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/ibeckermayer/fbsweep/internal/auth"
	"github.com/ibeckermayer/fbsweep/internal/config"
	"github.com/ibeckermayer/fbsweep/internal/digest"
	"github.com/ibeckermayer/fbsweep/internal/notifier"
	"github.com/ibeckermayer/fbsweep/internal/scheduler"
	"github.com/ibeckermayer/fbsweep/internal/scraper"
	"github.com/ibeckermayer/fbsweep/internal/store"
	"github.com/ibeckermayer/fbsweep/internal/types"
	"github.com/ibeckermayer/fbsweep/internal/view"
	"github.com/ibeckermayer/fbsweep/internal/vision"
)

// ErrPartial wraps a session error that still left usable results.
var ErrPartial = errors.New("search ended early")

// Searcher runs one search session in a browser.
type Searcher interface {
	Search(ctx context.Context, cookies []*network.Cookie) (*scraper.Result, error)
}

// SearcherFunc builds the session for a run.
type SearcherFunc func(opts scraper.Options, v scraper.BatchExtractor, sink scraper.CaptureSink, log *slog.Logger) Searcher

func newScraper(opts scraper.Options, v scraper.BatchExtractor, sink scraper.CaptureSink, log *slog.Logger) Searcher {
	s := scraper.New(opts, log)
	if v != nil {
		s.WithVision(v)
	}
	if sink != nil {
		s.WithSink(sink)
	}
	return s
}

// App holds the application state.
type App struct {
	mu  sync.RWMutex
	cfg *config.Config // replaced by ReloadConfig
	log *slog.Logger

	newSearcher SearcherFunc
}

// New creates a new App instance.
func New(cfg *config.Config, log *slog.Logger) *App {
	return &App{cfg: cfg, log: log, newSearcher: newScraper}
}

// WithSearcher replaces the browser session, for tests and dry runs.
func (a *App) WithSearcher(f SearcherFunc) *App {
	a.newSearcher = f
	return a
}

// Config returns the current configuration.
func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// ReloadConfig reloads the configuration from disk.
func (a *App) ReloadConfig(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.mu.Lock()
	a.cfg = cfg
	a.mu.Unlock()

	a.log.Info("configuration reloaded", "query", cfg.Search.Query, "strategy", cfg.Search.Strategy)
	return nil
}

// credentials holds what a run needs before a browser is started.
type credentials struct {
	cookies []*network.Cookie
	apiKey  string
}

// preflight loads the session cookies and, for the vision strategy, the
// service key. Both failures are fatal.
func (a *App) preflight(cfg *config.Config) (*credentials, error) {
	cs := auth.NewCookieStore(cfg.Auth.CredentialPath)
	cookies, err := cs.GetFacebookCookies()
	if err != nil {
		return nil, err
	}
	if !cs.IsValid() {
		a.log.Warn("stored cookies look expired or incomplete, the search may be redirected to login", "path", cs.Path())
	}

	creds := &credentials{cookies: cookies}
	if cfg.Search.Strategy != config.StrategyVision {
		return creds, nil
	}

	creds.apiKey = cfg.Vision.APIKey
	if creds.apiKey == "" {
		key, err := auth.LoadAPIKey(cfg.Auth.KeyStorePath, cfg.Auth.KeyField)
		if err != nil {
			return nil, err
		}
		creds.apiKey = key
	}
	return creds, nil
}

// Run performs one search and returns its document. When the session is
// cut short the posts gathered so far are still returned, with an error
// wrapping ErrPartial.
func (a *App) Run(ctx context.Context) (types.Document, error) {
	cfg := a.Config()
	if err := cfg.Validate(); err != nil {
		return types.Document{}, err
	}

	creds, err := a.preflight(cfg)
	if err != nil {
		return types.Document{}, err
	}

	cache := a.cache(cfg)

	var extractor scraper.BatchExtractor
	if cfg.Search.Strategy == config.StrategyVision {
		an, err := vision.New(cfg.Vision, creds.apiKey, a.log)
		if err != nil {
			return types.Document{}, err
		}
		if cache != nil && cfg.Debug.SaveScreenshots {
			an.WithRecorder(cache)
		}
		extractor = an
	}

	var sink scraper.CaptureSink
	if cache != nil && (cfg.Debug.SaveSnapshots || cfg.Debug.SaveScreenshots) {
		sink = cache
	}

	start := time.Now()
	a.log.Info("starting search", "query", cfg.Search.Query, "strategy", cfg.Search.Strategy,
		"scroll_budget", cfg.Search.ScrollBudget, "stabilize", cfg.Search.Stabilize)

	res, runErr := a.newSearcher(scraper.OptionsFrom(cfg), extractor, sink, a.log).Search(ctx, creds.cookies)
	if res == nil {
		return types.Document{}, runErr
	}
	if runErr != nil {
		a.log.Warn("search ended early, keeping partial results", "posts", len(res.Posts), "error", runErr)
		runErr = fmt.Errorf("%w: %w", ErrPartial, runErr)
	}

	doc := types.NewDocument(cfg.Search.Query, cfg.Search.Strategy, res.Posts)
	a.log.Info("search finished", "posts", len(doc.Posts), "elapsed", time.Since(start))

	a.persist(context.WithoutCancel(ctx), cfg, cache, doc, res.Stats)
	return doc, runErr
}

// Extract replays saved page snapshots through the locator and extractor.
func (a *App) Extract(ctx context.Context, paths []string) (types.Document, error) {
	cfg := a.Config()

	snaps := make([]*view.Snapshot, 0, len(paths))
	for _, p := range paths {
		snap, err := readSnapshot(p)
		if err != nil {
			return types.Document{}, err
		}
		snaps = append(snaps, snap)
	}

	res, err := scraper.New(scraper.OptionsFrom(cfg), a.log).Replay(ctx, snaps)
	if err != nil && res == nil {
		return types.Document{}, err
	}
	return types.NewDocument(cfg.Search.Query, cfg.Search.Strategy, res.Posts), err
}

func readSnapshot(path string) (*view.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	snap, err := view.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// cache returns the step cache, or nil when it cannot be created.
func (a *App) cache(cfg *config.Config) *store.Cache {
	c, err := store.NewCache(cfg.Debug.CacheDir)
	if err != nil {
		a.log.Warn("step cache unavailable", "error", err)
		return nil
	}
	return c
}

// persist saves, records and announces a finished run. Every step is best
// effort: the document is already the run's result.
func (a *App) persist(ctx context.Context, cfg *config.Config, cache *store.Cache, doc types.Document, stats scraper.Stats) {
	if cache != nil {
		if path, err := store.SaveStepOutput(cache, store.StepDocuments, "", doc); err != nil {
			a.log.Warn("failed to cache document", "error", err)
		} else {
			a.log.Debug("cached document", "path", path)
		}
	}

	// nil means every post is reported
	var fresh []types.PostRecord
	if cfg.Store.Enabled {
		st, err := store.New(cfg.Store.Path)
		if err != nil {
			a.log.Error("failed to open store", "path", cfg.Store.Path, "error", err)
		} else {
			runID, newPosts, err := st.SaveRun(ctx, doc, stats)
			if err != nil {
				a.log.Error("failed to save run", "error", err)
			} else {
				fresh = newPosts
				a.log.Info("run saved", "run", runID, "new_posts", len(newPosts))
			}
			st.Close()
		}
	}

	a.notify(cfg, doc, fresh)
}

func (a *App) notify(cfg *config.Config, doc types.Document, posts []types.PostRecord) {
	n, err := notifier.NewFromConfig(cfg.Notify, a.log)
	if err != nil {
		a.log.Error("failed to create notifier", "provider", cfg.Notify.Provider, "error", err)
		return
	}
	if n == nil {
		return
	}

	b, err := digest.New(cfg.Notify.MaxPosts)
	if err != nil {
		a.log.Error("failed to create digest builder", "error", err)
		return
	}
	d, err := b.Build(doc, posts)
	if errors.Is(err, digest.ErrNoPosts) {
		a.log.Info("nothing new to report")
		return
	}
	if err != nil {
		a.log.Error("failed to build summary", "error", err)
		return
	}
	if err := n.SendDigest(d); err != nil {
		a.log.Error("failed to send summary", "provider", cfg.Notify.Provider, "error", err)
	}
}

// Login opens a visible browser for the user to sign in and stores the
// resulting session cookies.
func (a *App) Login(ctx context.Context) error {
	cfg := a.Config()
	m := auth.NewManager(auth.NewCookieStore(cfg.Auth.CredentialPath), a.log)
	a.log.Info("opening browser for facebook login")
	if err := m.Login(ctx); err != nil {
		return err
	}
	a.log.Info("login successful, cookies saved", "path", cfg.Auth.CredentialPath)
	return nil
}

// Logout clears stored session cookies.
func (a *App) Logout() error {
	cfg := a.Config()
	if err := auth.NewManager(auth.NewCookieStore(cfg.Auth.CredentialPath), a.log).Logout(); err != nil {
		return err
	}
	a.log.Info("cookies cleared", "path", cfg.Auth.CredentialPath)
	return nil
}

// Schedule runs searches on the configured cron schedule until ctx is done,
// reloading configuration before each run and writing every document to out.
func (a *App) Schedule(ctx context.Context, configPath string, out io.Writer) error {
	cfg := a.Config()
	s, err := scheduler.New(ctx, cfg.Schedule.Timezone, 30*time.Minute, a.log)
	if err != nil {
		return err
	}

	job := func(ctx context.Context) error {
		if err := a.ReloadConfig(configPath); err != nil {
			a.log.Warn("keeping previous configuration", "error", err)
		}
		doc, err := a.Run(ctx)
		if errors.Is(err, auth.ErrNoCredentials) || errors.Is(err, auth.ErrMissingKey) {
			return err
		}
		if err == nil || errors.Is(err, ErrPartial) {
			if werr := doc.WriteJSON(out); werr != nil {
				return werr
			}
		}
		return err
	}

	if err := s.AddJob("sweep", cfg.Schedule.Cron, job); err != nil {
		return err
	}
	s.Start()
	for _, j := range s.ListJobs() {
		a.log.Info("next run", "job", j.Name, "at", j.NextRun)
	}

	<-ctx.Done()
	<-s.Stop().Done()
	return nil
}
