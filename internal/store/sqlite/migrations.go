package sqlite

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
    id           TEXT PRIMARY KEY,
    email        TEXT NOT NULL UNIQUE,
    display_name TEXT,
    event_cursor TEXT NOT NULL DEFAULT '',
    last_sync    INTEGER NOT NULL DEFAULT 0,
    created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
    id              TEXT PRIMARY KEY,
    account_id      TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    conversation_id TEXT,
    subject         TEXT,
    sender_addr     TEXT,
    sender_name     TEXT,
    to_addrs        TEXT,
    cc_addrs        TEXT,
    flags           INTEGER NOT NULL DEFAULT 0,
    unread          BOOLEAN NOT NULL DEFAULT FALSE,
    time            INTEGER NOT NULL DEFAULT 0,
    size            INTEGER NOT NULL DEFAULT 0,
    num_attachments INTEGER NOT NULL DEFAULT 0,
    snippet         TEXT,
    sort_order      INTEGER NOT NULL DEFAULT 0
);

-- label_id is intentionally not a foreign key: deltas may reference labels
-- that were never replicated locally, or that arrive later in the stream.
CREATE TABLE IF NOT EXISTS message_labels (
    message_id TEXT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    label_id   TEXT NOT NULL,
    PRIMARY KEY (message_id, label_id)
);

CREATE TABLE IF NOT EXISTS conversations (
    id              TEXT PRIMARY KEY,
    account_id      TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    subject         TEXT,
    senders         TEXT,
    num_messages    INTEGER NOT NULL DEFAULT 0,
    num_unread      INTEGER NOT NULL DEFAULT 0,
    num_attachments INTEGER NOT NULL DEFAULT 0,
    size            INTEGER NOT NULL DEFAULT 0,
    sort_order      INTEGER NOT NULL DEFAULT 0
);

-- conversation_id is intentionally not a foreign key: a message delta may
-- reference a conversation that was never replicated locally, or whose own
-- delta arrives later in the stream. Rollups for a deleted conversation are
-- removed explicitly in DeleteConversation.
CREATE TABLE IF NOT EXISTS conversation_labels (
    conversation_id TEXT NOT NULL,
    label_id        TEXT NOT NULL,
    num_messages    INTEGER NOT NULL DEFAULT 0,
    num_unread      INTEGER NOT NULL DEFAULT 0,
    time            INTEGER NOT NULL DEFAULT 0,
    size            INTEGER NOT NULL DEFAULT 0,
    num_attachments INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (conversation_id, label_id)
);

CREATE TABLE IF NOT EXISTS labels (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    color      TEXT,
    type       INTEGER NOT NULL DEFAULT 1,
    parent_id  TEXT,
    sort_order INTEGER NOT NULL DEFAULT 0,
    notify     BOOLEAN NOT NULL DEFAULT FALSE,
    sticky     BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS contacts (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    name       TEXT,
    emails     TEXT
);

CREATE TABLE IF NOT EXISTS incoming_defaults (
    id           TEXT PRIMARY KEY,
    account_id   TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    email        TEXT NOT NULL,
    location     INTEGER NOT NULL DEFAULT 0,
    time         INTEGER NOT NULL DEFAULT 0,
    soft_deleted BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_incoming_defaults_email
    ON incoming_defaults(account_id, email) WHERE soft_deleted = FALSE;

CREATE TABLE IF NOT EXISTS label_counts (
    account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    label_id   TEXT NOT NULL,
    kind       TEXT NOT NULL,
    total      INTEGER NOT NULL DEFAULT 0,
    unread     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (account_id, label_id, kind)
);

CREATE TABLE IF NOT EXISTS mail_settings (
    account_id         TEXT PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
    display_name       TEXT,
    signature          TEXT,
    auto_save_contacts BOOLEAN NOT NULL DEFAULT FALSE,
    raw                BLOB
);

CREATE TABLE IF NOT EXISTS search_index (
    message_id TEXT PRIMARY KEY,
    account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
    time       INTEGER NOT NULL DEFAULT 0,
    ciphertext BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_account ON messages(account_id);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id);
CREATE INDEX IF NOT EXISTS idx_messages_time ON messages(time DESC);
CREATE INDEX IF NOT EXISTS idx_message_labels_label ON message_labels(label_id);
CREATE INDEX IF NOT EXISTS idx_search_index_account ON search_index(account_id, time DESC);
`
