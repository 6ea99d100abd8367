package store

import (
	"context"
	"errors"

	"github.com/lu-zhengda/mailsync/internal/domain"
)

// ErrDegraded indicates the persistent store itself is no longer usable
// (disk failure, corrupted database). It is not retryable; the caller must
// stop the affected loop rather than back off.
var ErrDegraded = errors.New("store: persistent store unavailable")

// ListMessageOptions configures message listing queries.
type ListMessageOptions struct {
	AccountID string
	LabelID   string
	Limit     int
	Offset    int
}

// SearchEntry is one row of the encrypted search index: the message
// identity in the clear, the indexed content as an opaque ciphertext.
type SearchEntry struct {
	MessageID  string
	AccountID  string
	Time       int64
	Ciphertext []byte
}

// Queries is the read side of the store, available both directly and
// inside a transaction.
type Queries interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	GetMessage(ctx context.Context, id string) (*domain.Message, error)
	ListMessages(ctx context.Context, opts ListMessageOptions) ([]domain.Message, error)
	CountMessages(ctx context.Context, accountID string) (int, error)

	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)

	GetLabel(ctx context.Context, id string) (*domain.Label, error)
	ListLabels(ctx context.Context, accountID string) ([]domain.Label, error)

	ListContacts(ctx context.Context, accountID string) ([]domain.Contact, error)

	// GetIncomingDefaultByEmail returns the non-soft-deleted rule for the
	// address, or nil if none exists.
	GetIncomingDefaultByEmail(ctx context.Context, accountID, email string) (*domain.IncomingDefault, error)
	ListIncomingDefaults(ctx context.Context, accountID string) ([]domain.IncomingDefault, error)

	GetMessageCounts(ctx context.Context, accountID string) ([]domain.LabelCount, error)
	GetConversationCounts(ctx context.Context, accountID string) ([]domain.LabelCount, error)

	GetMailSettings(ctx context.Context, accountID string) (*domain.MailSettings, error)

	ListSearchEntries(ctx context.Context, accountID string, limit, offset int) ([]SearchEntry, error)
	CountSearchEntries(ctx context.Context, accountID string) (int, error)
	// ListUnindexedMessages returns messages with no search index row,
	// oldest first. Indexing a message removes it from this set, so a
	// walk that repeatedly takes the first page visits every message
	// exactly once regardless of new arrivals.
	ListUnindexedMessages(ctx context.Context, accountID string, limit int) ([]domain.Message, error)
}

// Tx is the mutation surface of one store transaction. All mutations made
// through a Tx commit or roll back together, including cursor advancement.
type Tx interface {
	Queries

	UpsertMessage(ctx context.Context, msg *domain.Message) error
	DeleteMessage(ctx context.Context, id string) error

	UpsertConversation(ctx context.Context, conv *domain.Conversation) error
	DeleteConversation(ctx context.Context, id string) error
	// RefreshContextLabels rebuilds a conversation's per-label rollups from
	// the messages currently stored for it, deleting rollups for labels no
	// message carries anymore.
	RefreshContextLabels(ctx context.Context, conversationID string) error

	UpsertLabel(ctx context.Context, label *domain.Label) error
	DeleteLabel(ctx context.Context, id string) error

	UpsertContact(ctx context.Context, contact *domain.Contact) error
	DeleteContact(ctx context.Context, id string) error

	UpsertIncomingDefault(ctx context.Context, rule *domain.IncomingDefault) error
	DeleteIncomingDefault(ctx context.Context, id string) error

	SetMessageCounts(ctx context.Context, accountID string, counts []domain.LabelCount) error
	SetConversationCounts(ctx context.Context, accountID string, counts []domain.LabelCount) error

	SetMailSettings(ctx context.Context, settings *domain.MailSettings) error

	// SetEventCursor advances the account's delta-stream position.
	SetEventCursor(ctx context.Context, accountID, cursor string, lastSync int64) error

	// WipeAccountData removes every replicated entity and the cursor for
	// the account, keeping the account record itself. Used on full resync.
	WipeAccountData(ctx context.Context, accountID string) error

	UpsertSearchEntry(ctx context.Context, entry *SearchEntry) error
	DeleteSearchEntry(ctx context.Context, messageID string) error
	DropSearchIndex(ctx context.Context, accountID string) error
}

// Store is the persistence interface for the sync engine.
type Store interface {
	Queries

	CreateAccount(ctx context.Context, account *domain.Account) error
	DeleteAccount(ctx context.Context, id string) error

	// InTransaction runs fn inside one transaction. If fn returns an
	// error, every mutation made through the Tx is rolled back.
	InTransaction(ctx context.Context, fn func(tx Tx) error) error

	Close() error
}
