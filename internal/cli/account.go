package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/store"
	"github.com/lu-zhengda/mailsync/internal/store/sqlite"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage synced accounts",
	}
	cmd.AddCommand(newAccountAddCmd())
	cmd.AddCommand(newAccountListCmd())
	cmd.AddCommand(newAccountRemoveCmd())
	return cmd
}

func newAccountAddCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "add [email]",
		Short: "Add an account and store its session token in the keyring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]
			if token == "" {
				token = os.Getenv("MAILSYNC_SESSION_TOKEN")
			}
			if token == "" {
				return fmt.Errorf("no session token; pass --token or set MAILSYNC_SESSION_TOKEN")
			}

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			account := &domain.Account{
				ID:          uuid.NewString(),
				Email:       email,
				DisplayName: email,
				CreatedAt:   time.Now(),
			}
			if err := db.CreateAccount(cmd.Context(), account); err != nil {
				return fmt.Errorf("failed to store account: %w", err)
			}

			sessions := store.NewKeyringSessionStore()
			if err := sessions.SaveSession(account.ID, token); err != nil {
				// Roll the account back so a retry starts clean.
				if delErr := db.DeleteAccount(cmd.Context(), account.ID); delErr != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to remove account after keyring error: %v\n", delErr)
				}
				return err
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "add", Email: email})
			}
			fmt.Printf("Account added: %s (%s)\n", email, account.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "session token (defaults to MAILSYNC_SESSION_TOKEN)")
	return cmd
}

func newAccountListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			accounts, err := db.ListAccounts(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list accounts: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONAccounts(accounts))
			}

			if len(accounts) == 0 {
				fmt.Println("No accounts configured. Run 'mailsyncd account add' to add one.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tSYNCED\tCREATED")
			for _, a := range accounts {
				fmt.Fprintf(w, "%s\t%s\t%v\t%s\n",
					a.ID,
					a.Email,
					a.Synced(),
					a.CreatedAt.Format(time.DateOnly),
				)
			}
			return w.Flush()
		},
	}
}

func newAccountRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [email]",
		Short: "Remove an account and its local replica",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			email := args[0]

			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			target, err := findAccount(cmd, db, email)
			if err != nil {
				return err
			}

			if err := db.DeleteAccount(ctx, target.ID); err != nil {
				return fmt.Errorf("failed to delete account: %w", err)
			}

			sessions := store.NewKeyringSessionStore()
			if err := sessions.DeleteSession(target.ID); err != nil {
				// Non-fatal: the session may already be gone.
				fmt.Fprintf(os.Stderr, "Warning: could not remove session from keyring: %v\n", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "remove", Email: target.Email})
			}
			fmt.Printf("Account removed: %s\n", target.Email)
			return nil
		},
	}
}

// findAccount resolves an account by email or ID.
func findAccount(cmd *cobra.Command, db *sqlite.DB, key string) (*domain.Account, error) {
	accounts, err := db.ListAccounts(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	for i := range accounts {
		if accounts[i].Email == key || accounts[i].ID == key {
			return &accounts[i], nil
		}
	}
	return nil, fmt.Errorf("account not found: %s", key)
}
