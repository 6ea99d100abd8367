package cli

import (
	"time"

	"github.com/lu-zhengda/mailsync/internal/domain"
	"github.com/lu-zhengda/mailsync/internal/esindex"
)

type jsonAccount struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Synced    bool   `json:"synced"`
	CreatedAt string `json:"created_at"`
}

func toJSONAccounts(accounts []domain.Account) []jsonAccount {
	out := make([]jsonAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, jsonAccount{
			ID:        a.ID,
			Email:     a.Email,
			Synced:    a.Synced(),
			CreatedAt: a.CreatedAt.Format(time.DateOnly),
		})
	}
	return out
}

type jsonStatus struct {
	Email    string `json:"email"`
	Cursor   string `json:"cursor,omitempty"`
	Synced   bool   `json:"synced"`
	LastSync string `json:"last_sync"`
	Messages int    `json:"messages"`
	Indexed  int    `json:"indexed"`
}

type jsonIndexStatus struct {
	Email    string `json:"email"`
	Messages int    `json:"messages"`
	Indexed  int    `json:"indexed"`
}

type jsonSearchResult struct {
	MessageID string `json:"message_id"`
	Time      string `json:"time"`
}

func toJSONSearchResults(results []esindex.Result) []jsonSearchResult {
	out := make([]jsonSearchResult, 0, len(results))
	for _, r := range results {
		out = append(out, jsonSearchResult{
			MessageID: r.MessageID,
			Time:      time.Unix(r.Time, 0).Format(time.RFC3339),
		})
	}
	return out
}

// jsonAction is the generic success envelope for mutating commands.
type jsonAction struct {
	OK     bool   `json:"ok"`
	Action string `json:"action"`
	Email  string `json:"email,omitempty"`
}
