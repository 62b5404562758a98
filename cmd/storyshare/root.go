package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"storyshare/internal/api"
	"storyshare/internal/auth"
	"storyshare/internal/config"
	"storyshare/internal/connectivity"
	"storyshare/internal/domain"
	"storyshare/internal/httpcache"
	"storyshare/internal/service"
	"storyshare/internal/storage/sqlite"
)

var (
	configPath  string
	offlineFlag bool

	cfg       *config.Config
	logger    *slog.Logger
	db        *sqlx.DB
	tokens    *auth.TokenStore
	observer  *connectivity.Observer
	transport *httpcache.Transport
	apiClient *api.Client
	feed      *service.FeedService
	library   *service.LibraryService
)

var rootCmd = &cobra.Command{
	Use:   "storyshare",
	Short: "Offline-first client for the story sharing API",
	Long: `storyshare keeps a local replica of the story feed and stays usable
with zero connectivity: reads fall back to the replica, bookmarks and
likes are local-only, and a background watcher notifies on new stories.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		return setupApp(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if db != nil {
			_ = db.Close()
			db = nil
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVar(&offlineFlag, "offline", false, "treat the network as unavailable")
}

func setupApp(ctx context.Context) error {
	var err error
	path := configPath
	if path == "" {
		path = defaultConfigPath()
	}
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = setupLogger(cfg.LogLevel)

	dbPath, err := cfg.Database.ResolvePath()
	if err != nil {
		return err
	}
	db, err = sqlite.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open local store: %w", err)
	}
	if err := sqlite.Migrate(ctx, db); err != nil {
		return fmt.Errorf("migrate local store: %w", err)
	}

	tokens, err = auth.NewTokenStore(filepath.Dir(dbPath))
	if err != nil {
		return err
	}

	observer = connectivity.NewObserver(logger)
	if offlineFlag {
		observer.Set(false)
	}

	cacheStore := sqlite.NewCacheStore(db)
	transport = httpcache.NewTransport(nil, cacheStore, httpcache.DefaultRules(httpcache.RulesConfig{
		APIOrigin:       apiOrigin(cfg.API.BaseURL),
		Prefix:          cfg.Cache.Prefix,
		APIMaxAge:       cfg.Cache.APIMaxAge,
		APIMaxEntries:   cfg.Cache.APIMaxEntries,
		ImageMaxAge:     cfg.Cache.ImageMaxAge,
		ImageMaxEntries: cfg.Cache.ImageMaxEntries,
	}), cfg.Cache.Prefix, cfg.Cache.OfflineURL, logger)

	// Every outgoing request of every component rides through the
	// routing cache layer.
	httpClient := &http.Client{Transport: transport, Timeout: cfg.API.Timeout}

	apiClient = api.New(api.Config{BaseURL: cfg.API.BaseURL, Timeout: cfg.API.Timeout}, tokens, httpClient, logger)

	storyStore := sqlite.NewStoryStore(db)
	bookmarkStore := sqlite.NewBookmarkStore(db)
	likeStore := sqlite.NewLikeStore(db)
	txManager := sqlite.NewTransactionManager(db)

	feed = service.NewFeedService(apiClient, storyStore, txManager, observer, tokens, logger)
	library = service.NewLibraryService(bookmarkStore, likeStore, txManager, cfg.Bookmarks.TTL, logger)

	// Expired bookmarks are swept opportunistically at startup.
	if _, err := library.CleanOldBookmarks(ctx); err != nil {
		logger.Warn("bookmark sweep failed", "error", err)
	}

	return nil
}

// feedFetcher adapts the feed service to the paginator's page-shaped
// interface.
type feedFetcher struct {
	feed     *service.FeedService
	location int
}

func (f feedFetcher) FetchPage(ctx context.Context, page, size int) (*domain.ListResult, error) {
	return f.feed.FetchList(ctx, domain.ListParams{Page: page, Size: size, Location: f.location})
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".storyshare", "config.yaml")
}

func apiOrigin(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	return u.Scheme + "://" + u.Host
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	handler := slog.NewJSONHandler(os.Stderr, opts)
	return slog.New(handler)
}
