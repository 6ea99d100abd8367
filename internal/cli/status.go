package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-account sync state",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			statuses := make([]jsonStatus, 0, len(accounts))
			for _, a := range accounts {
				messages, err := db.CountMessages(ctx, a.ID)
				if err != nil {
					return fmt.Errorf("failed to count messages for %s: %w", a.Email, err)
				}
				indexed, err := db.CountSearchEntries(ctx, a.ID)
				if err != nil {
					return fmt.Errorf("failed to count index entries for %s: %w", a.Email, err)
				}
				statuses = append(statuses, jsonStatus{
					Email:    a.Email,
					Cursor:   a.EventCursor,
					Synced:   a.Synced(),
					LastSync: formatLastSync(a.LastSync),
					Messages: messages,
					Indexed:  indexed,
				})
			}

			if jsonFlag {
				return printJSON(statuses)
			}

			if len(statuses) == 0 {
				fmt.Println("No accounts configured.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "EMAIL\tCURSOR\tLAST SYNC\tMESSAGES\tINDEXED")
			for _, s := range statuses {
				cursor := s.Cursor
				if cursor == "" {
					cursor = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n",
					s.Email, cursor, s.LastSync, s.Messages, s.Indexed)
			}
			return w.Flush()
		},
	}
}

func formatLastSync(unix int64) string {
	if unix == 0 {
		return "never"
	}
	return time.Unix(unix, 0).Format(time.RFC3339)
}
