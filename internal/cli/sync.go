package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailsync/internal/cache"
	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/events"
	"github.com/lu-zhengda/mailsync/internal/feed"
	"github.com/lu-zhengda/mailsync/internal/queue"
	"github.com/lu-zhengda/mailsync/internal/store"
)

func newSyncCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass and exit",
		Long:  "Ticks each account's event loop until the feed reports no more pages, then exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Feed.BaseURL == "" {
				return fmt.Errorf("feed.base_url is not configured")
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
			var accounts []domain.Account
			if accountFlag != "" {
				target, err := findAccount(cmd, db, accountFlag)
				if err != nil {
					return err
				}
				accounts = []domain.Account{*target}
			} else {
				accounts, err = db.ListAccounts(ctx)
				if err != nil {
					return fmt.Errorf("failed to list accounts: %w", err)
				}
			}
			if len(accounts) == 0 {
				return fmt.Errorf("no accounts configured; run 'mailsyncd account add' first")
			}

			sessions := store.NewKeyringSessionStore()
			pending := queue.NewManager()

			for _, acc := range accounts {
				hot, err := cache.New[string, any](cfg.Cache.MaxCost)
				if err != nil {
					return fmt.Errorf("failed to create cache: %w", err)
				}
				client := feed.NewClient(cfg.Feed.BaseURL, acc.ID, sessions, feedOpts)
				loop := events.NewLoop(acc.ID, db, client, pending, hot, logger)

				for {
					more, err := loop.Tick(ctx)
					if err != nil {
						return fmt.Errorf("sync failed for %s: %w", acc.Email, err)
					}
					if !more {
						break
					}
				}
				if !jsonFlag {
					fmt.Printf("Synced: %s\n", acc.Email)
				}
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "sync"})
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "sync only this account (email or ID)")
	return cmd
}
