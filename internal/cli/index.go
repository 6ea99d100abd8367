package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailsync/internal/esindex"
	"github.com/lu-zhengda/mailsync/internal/store/sqlite"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage the encrypted search index",
	}
	cmd.AddCommand(newIndexBuildCmd())
	cmd.AddCommand(newIndexDeleteCmd())
	cmd.AddCommand(newIndexStatusCmd())
	cmd.AddCommand(newIndexSearchCmd())
	return cmd
}

// indexPassphrase resolves the at-rest encryption passphrase for the
// search index. It comes from the environment (or a .env file loaded at
// startup), never from the config file.
func indexPassphrase() ([]byte, error) {
	pass := os.Getenv("MAILSYNC_INDEX_PASSPHRASE")
	if pass == "" {
		return nil, fmt.Errorf("MAILSYNC_INDEX_PASSPHRASE is not set")
	}
	return []byte(pass), nil
}

func newIndexBuilder(cmd *cobra.Command, db *sqlite.DB, account string) (*esindex.Builder, error) {
	target, err := findAccount(cmd, db, account)
	if err != nil {
		return nil, err
	}
	pass, err := indexPassphrase()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cipher := esindex.NewPGPCipher(pass)
	return esindex.NewBuilder(target.ID, db, cipher, cfg.Index.PageSize, newLogger()), nil
}

func newIndexBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build [account]",
		Short: "Build the encrypted search index for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			builder, err := newIndexBuilder(cmd, db, args[0])
			if err != nil {
				return err
			}

			builder.Enable()
			start := time.Now()
			if err := builder.Run(cmd.Context()); err != nil {
				return fmt.Errorf("index build failed: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "index build", Email: args[0]})
			}
			fmt.Printf("Index built in %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

func newIndexDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [account]",
		Short: "Delete an account's search index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			builder, err := newIndexBuilder(cmd, db, args[0])
			if err != nil {
				return err
			}
			if err := builder.DeleteIndex(cmd.Context()); err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "index delete", Email: args[0]})
			}
			fmt.Println("Index deleted.")
			return nil
		},
	}
}

func newIndexStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [account]",
		Short: "Show index coverage for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			target, err := findAccount(cmd, db, args[0])
			if err != nil {
				return err
			}
			messages, err := db.CountMessages(ctx, target.ID)
			if err != nil {
				return fmt.Errorf("failed to count messages: %w", err)
			}
			indexed, err := db.CountSearchEntries(ctx, target.ID)
			if err != nil {
				return fmt.Errorf("failed to count index entries: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonIndexStatus{
					Email:    target.Email,
					Messages: messages,
					Indexed:  indexed,
				})
			}
			fmt.Printf("%s: %d of %d messages indexed\n", target.Email, indexed, messages)
			return nil
		},
	}
}

func newIndexSearchCmd() *cobra.Command {
	var accountFlag string

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the encrypted index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if accountFlag == "" {
				return fmt.Errorf("--account is required")
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			builder, err := newIndexBuilder(cmd, db, accountFlag)
			if err != nil {
				return err
			}
			// The index exists on disk; flip the machine past disabled so
			// a one-shot search can read it.
			builder.Enable()

			results, err := builder.Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if jsonFlag {
				return printJSON(toJSONSearchResults(results))
			}

			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MESSAGE\tTIME")
			for _, r := range results {
				fmt.Fprintf(w, "%s\t%s\n", r.MessageID, time.Unix(r.Time, 0).Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&accountFlag, "account", "", "account to search (email or ID)")
	return cmd
}
