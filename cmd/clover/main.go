package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/mmcdole/clover/internal/config"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/filecache"
	"github.com/mmcdole/clover/internal/loadable"
	"github.com/mmcdole/clover/internal/loader"
	"github.com/mmcdole/clover/internal/log"
	"github.com/mmcdole/clover/internal/metrics"
	"github.com/mmcdole/clover/internal/netqueue"
	"github.com/mmcdole/clover/internal/settings"
	"github.com/mmcdole/clover/internal/site"
	"github.com/mmcdole/clover/internal/site/chan4"
	"github.com/mmcdole/clover/internal/store"
	"github.com/mmcdole/clover/internal/store/pg"
	"github.com/mmcdole/clover/internal/tui"
	"github.com/mmcdole/clover/internal/viewer"
	"golang.org/x/term"
)

// Version is set at build time via -ldflags
var Version = "dev"

type flags struct {
	configPath  string
	board       string
	thread      int
	metricsAddr string
	history     bool
	open        string
}

func main() {
	var showVersion bool
	var f flags
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.StringVar(&f.configPath, "config", config.DefaultConfigFile(), "config file")
	flag.StringVar(&f.board, "board", "", "open this board's catalog")
	flag.IntVar(&f.thread, "thread", 0, "open this thread (needs -board)")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	flag.BoolVar(&f.history, "history", false, "list recently opened threads and exit")
	flag.StringVar(&f.open, "open", "", "reopen a thread from a -history token")
	flag.Parse()

	if showVersion {
		fmt.Printf("clover %s\n", Version)
		return
	}

	if err := run(f); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired services and what has to be closed on exit
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	sites    *site.Registry
	site     site.Site
	manager  *loadable.Manager
	commands *loader.Commands
	queries  *loader.Queries
	files    *filecache.Cache
	settings *settings.ChanSettings

	closers []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Error("shutdown", "error", err)
		}
	}
}

func run(f flags) error {
	// A missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f.metricsAddr != "" {
		cfg.Metrics.Addr = f.metricsAddr
	}
	var handed *loadable.Loadable
	if f.open != "" {
		handed, err = loadable.ParseToken(f.open)
		if err != nil {
			return err
		}
		f.board, f.thread = handed.BoardCode, 0
		if handed.IsThreadMode() {
			f.thread = handed.No
		}
	}
	if f.board == "" {
		f.board = cfg.UI.DefaultBoard
	}
	if f.thread > 0 && f.board == "" {
		return errors.New("-thread needs -board")
	}

	logger, logFile, err := log.Setup(cfg.Logging.File, cfg.Logging.Level)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	} else {
		defer logFile.Close()
	}
	slog.SetDefault(logger)
	logger.Info("starting clover", "version", Version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := wire(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close()

	switch {
	case f.history:
		return printHistory(ctx, os.Stdout, a)
	case handed != nil && handed.SiteID != a.site.ID():
		return fmt.Errorf("token is for site %d: %w", handed.SiteID, domain.ErrSiteNotFound)
	case term.IsTerminal(int(os.Stdout.Fd())):
		return runTUI(a, f, handed)
	default:
		return dump(ctx, os.Stdout, a, f)
	}
}

// wire builds the network queue, stores, caches and site clients
func wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}
	ok := false
	defer func() {
		if !ok {
			a.close()
		}
	}()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	queue, err := netqueue.New(netqueue.Config{
		Workers:     cfg.Network.Workers,
		UserAgent:   cfg.Network.UserAgent,
		Proxy:       cfg.Network.Proxy,
		Timeout:     cfg.Network.Timeout,
		MaxBodySize: netqueue.DefaultMaxBodySize,
	}, logger, m)
	if err != nil {
		return nil, fmt.Errorf("network queue: %w", err)
	}
	a.closers = append(a.closers, func() error { queue.Stop(); return nil })

	a.files, err = filecache.New(cfg.Cache.Dir, cfg.Cache.CapacityMB<<20, queue, logger, m)
	if err != nil {
		return nil, fmt.Errorf("file cache: %w", err)
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st.Close)

	a.manager = loadable.NewManager(st, logger).WithMetrics(m)
	a.closers = append(a.closers, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.manager.Flush(ctx)
	})

	provider := settings.OpenFile(cfg.UI.SettingsFile, logger)
	a.closers = append(a.closers, provider.Close)
	a.settings = settings.NewChanSettings(provider)

	a.site = chan4.New(chan4.Config{
		ID:        cfg.Site.ID,
		Name:      cfg.Site.Name,
		APIURL:    cfg.Site.APIURL,
		MediaURL:  cfg.Site.MediaURL,
		MirrorURL: cfg.Site.MirrorURL,
	}, queue, provider, logger)
	a.sites = site.NewRegistry(a.site)

	cache := loader.NewCache()
	a.commands = loader.NewCommands(a.sites, a.manager, cache, logger)
	a.queries = loader.NewQueries(cache)

	ok = true
	return a, nil
}

type closableStore interface {
	loadable.Store
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config) (closableStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pc := pg.DefaultConfig()
		pc.Host = cfg.Storage.Postgres.Host
		pc.Port = cfg.Storage.Postgres.Port
		pc.User = cfg.Storage.Postgres.User
		pc.Password = cfg.Storage.Postgres.Password
		pc.Dbname = cfg.Storage.Postgres.DBName
		pc.SSLMode = cfg.Storage.Postgres.SSLMode
		s, err := pg.New(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		return s, nil
	case config.BackendMemory:
		return store.NewLoadableStore("")
	default:
		s, err := store.NewLoadableStore(cfg.Storage.Dir)
		if err != nil {
			return nil, fmt.Errorf("bolt store: %w", err)
		}
		return s, nil
	}
}

func runTUI(a *app, f flags, handed *loadable.Loadable) error {
	deps := tui.Deps{
		Sites:    a.sites,
		Commands: a.commands,
		Queries:  a.queries,
		Files:    a.files,
		Settings: a.settings,
		Logger:   a.logger,
	}
	if a.cfg.Viewer.Enabled {
		deps.Viewer = viewer.NewLauncher(a.cfg.Viewer.Command, a.cfg.Viewer.Args, a.logger)
	}
	model, err := tui.NewModel(deps, tui.Options{SiteID: a.site.ID(), Board: f.board, Thread: f.thread, Open: handed})
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen())

	a.logger.Info("starting TUI")
	if _, err := p.Run(); err != nil {
		a.logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	a.logger.Info("shutting down")
	return nil
}
