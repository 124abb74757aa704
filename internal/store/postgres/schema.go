package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlTables = `
CREATE TABLE IF NOT EXISTS tasks (
    id           BIGSERIAL    PRIMARY KEY,
    description  TEXT         NOT NULL,
    priority     TEXT         NOT NULL DEFAULT '',
    done         BOOLEAN      NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ  NOT NULL DEFAULT now(),
    completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS reminders (
    id         BIGSERIAL    PRIMARY KEY,
    text       TEXT         NOT NULL,
    due_at     TIMESTAMPTZ  NOT NULL,
    recurring  TEXT         NOT NULL DEFAULT '',
    done       BOOLEAN      NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reminders_due
    ON reminders (done, due_at);

CREATE TABLE IF NOT EXISTS classes (
    id         BIGSERIAL    PRIMARY KEY,
    title      TEXT         NOT NULL,
    days       TEXT         NOT NULL,
    start_time TEXT         NOT NULL,
    end_time   TEXT         NOT NULL DEFAULT '',
    location   TEXT         NOT NULL DEFAULT '',
    semester   TEXT         NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS assignments (
    id          BIGSERIAL    PRIMARY KEY,
    title       TEXT         NOT NULL,
    course      TEXT         NOT NULL DEFAULT '',
    due_date    TIMESTAMPTZ  NOT NULL,
    description TEXT         NOT NULL DEFAULT '',
    priority    TEXT         NOT NULL DEFAULT '',
    done        BOOLEAN      NOT NULL DEFAULT FALSE,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assignments_due
    ON assignments (done, due_date);

CREATE TABLE IF NOT EXISTS study_sessions (
    id         BIGSERIAL    PRIMARY KEY,
    kind       TEXT         NOT NULL,
    subject    TEXT         NOT NULL DEFAULT '',
    minutes    INTEGER      NOT NULL,
    completed  BOOLEAN      NOT NULL DEFAULT FALSE,
    started_at TIMESTAMPTZ  NOT NULL,
    ended_at   TIMESTAMPTZ  NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_study_sessions_started
    ON study_sessions (kind, started_at);

CREATE TABLE IF NOT EXISTS user_preferences (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// ddlConversations returns the conversations DDL. When embeddingDimensions is
// zero the table is created without a vector column and semantic recall is
// unavailable.
func ddlConversations(embeddingDimensions int) string {
	if embeddingDimensions <= 0 {
		return `
CREATE TABLE IF NOT EXISTS conversations (
    id             BIGSERIAL    PRIMARY KEY,
    user_text      TEXT         NOT NULL,
    assistant_text TEXT         NOT NULL,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_created
    ON conversations (created_at);
`
	}
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS conversations (
    id             BIGSERIAL    PRIMARY KEY,
    user_text      TEXT         NOT NULL,
    assistant_text TEXT         NOT NULL,
    embedding      vector(%d),
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_conversations_created
    ON conversations (created_at);

CREATE INDEX IF NOT EXISTS idx_conversations_embedding
    ON conversations USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate ensures all tables, indexes, and (when embeddings are enabled) the
// pgvector extension exist. It is idempotent and safe to run on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if _, err := pool.Exec(ctx, ddlConversations(embeddingDimensions)); err != nil {
		return fmt.Errorf("migrate conversations: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlTables); err != nil {
		return fmt.Errorf("migrate tables: %w", err)
	}
	return nil
}
