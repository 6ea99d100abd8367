// Package cli wires the sync daemon and its management commands.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailsync/internal/cache"
	"github.com/lu-zhengda/mailsync/internal/config"
	"github.com/lu-zhengda/mailsync/internal/events"
	"github.com/lu-zhengda/mailsync/internal/feed"
	"github.com/lu-zhengda/mailsync/internal/queue"
	"github.com/lu-zhengda/mailsync/internal/store"
	"github.com/lu-zhengda/mailsync/internal/store/sqlite"
)

var (
	// version is set via ldflags at build time.
	version = "dev"
	cfgFile string

	// jsonFlag enables JSON output for all commands.
	jsonFlag bool
	verbose  bool
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "mailsyncd",
		Short:   "Mailbox sync daemon",
		Long:    "Keeps a local encrypted replica of remote mailboxes in sync via the server's delta-event stream.",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A .env beside the process may carry the index passphrase
			// and feed overrides; absence is fine.
			godotenv.Load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(cmd)
		},
	}
	root.SetVersionTemplate(fmt.Sprintf("mailsyncd %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	root.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(newAccountCmd())
	root.AddCommand(newSyncCmd())
	root.AddCommand(newStatusCmd())
	root.AddCommand(newIndexCmd())
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command) error {
	logger := newLogger()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Feed.BaseURL == "" {
		return fmt.Errorf("feed.base_url is not configured")
	}
	schedCfg, err := schedulerConfig(cfg)
	if err != nil {
		return err
	}
	feedOpts, err := feedOptions(cfg)
	if err != nil {
		return err
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	accounts, err := db.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	if len(accounts) == 0 {
		return fmt.Errorf("no accounts configured; run 'mailsyncd account add' first")
	}

	sessions := store.NewKeyringSessionStore()
	pending := queue.NewManager()
	sched := events.NewScheduler(schedCfg, logger)

	for _, acc := range accounts {
		hot, err := cache.New[string, any](cfg.Cache.MaxCost)
		if err != nil {
			return fmt.Errorf("failed to create cache for %s: %w", acc.ID, err)
		}
		client := feed.NewClient(cfg.Feed.BaseURL, acc.ID, sessions, feedOpts)
		sched.Register(events.NewLoop(acc.ID, db, client, pending, hot, logger))
	}

	sched.Start()
	logger.WithField("accounts", len(accounts)).Info("sync daemon started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	logger.WithField("signal", sig.String()).Info("shutting down")

	sched.Stop()
	return nil
}

// newLogger builds the process logger; --verbose enables debug output.
func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// openDB creates the data directory and opens the SQLite database.
func openDB() (*sqlite.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "mailsync.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// loadConfig loads the application configuration from the config file.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.toml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func schedulerConfig(cfg *config.Config) (events.SchedulerConfig, error) {
	interval, err := config.Duration("sync.interval", cfg.Sync.Interval)
	if err != nil {
		return events.SchedulerConfig{}, err
	}
	retryBase, err := config.Duration("sync.retry_base", cfg.Sync.RetryBase)
	if err != nil {
		return events.SchedulerConfig{}, err
	}
	retryMax, err := config.Duration("sync.retry_max", cfg.Sync.RetryMax)
	if err != nil {
		return events.SchedulerConfig{}, err
	}
	return events.SchedulerConfig{
		Interval:   interval,
		RetryBase:  retryBase,
		RetryMax:   retryMax,
		FailureCap: cfg.Sync.FailureCap,
	}, nil
}

func feedOptions(cfg *config.Config) (feed.Options, error) {
	timeout, err := config.Duration("feed.timeout", cfg.Feed.Timeout)
	if err != nil {
		return feed.Options{}, err
	}
	return feed.Options{
		Timeout:           timeout,
		RequestsPerSecond: cfg.Feed.RequestsPerSecond,
	}, nil
}
