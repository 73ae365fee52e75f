package db

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect opens the database, checks connectivity and applies migrations.
func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

// Migrate creates the conversation schema for the connection's dialect.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, m := range migrations(db.DriverName()) {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("%s: %w", firstLine(m), err)
		}
	}
	log.Printf("database migrations applied driver=%s", db.DriverName())
	return nil
}

func migrations(driver string) []string {
	pk := "BIGSERIAL PRIMARY KEY"
	ts := "TIMESTAMPTZ"
	uuidType := "UUID"
	if driver == "sqlite3" {
		// go-sqlite3 only parses declared TIMESTAMP columns back into time.Time.
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
		ts = "TIMESTAMP"
		uuidType = "VARCHAR(36)"
	}

	r := strings.NewReplacer("{pk}", pk, "{ts}", ts, "{uuid}", uuidType)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS listings (
            id {pk},
            user_id BIGINT NOT NULL,
            status VARCHAR(20) NOT NULL DEFAULT 'pending',
            contacts_count INT NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS conversations (
            id {pk},
            uuid {uuid} NOT NULL UNIQUE,
            listing_id BIGINT NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
            buyer_id BIGINT NOT NULL,
            seller_id BIGINT NOT NULL,
            buyer_last_read_at {ts} NULL,
            seller_last_read_at {ts} NULL,
            buyer_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            seller_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            is_blocked BOOLEAN NOT NULL DEFAULT FALSE,
            blocked_by BIGINT NULL,
            last_message_at {ts} NULL,
            created_at {ts} NOT NULL,
            updated_at {ts} NOT NULL,
            UNIQUE(listing_id, buyer_id, seller_id)
        );`,
		`CREATE INDEX IF NOT EXISTS conversations_buyer_id_idx ON conversations (buyer_id);`,
		`CREATE INDEX IF NOT EXISTS conversations_seller_id_idx ON conversations (seller_id);`,
		`CREATE TABLE IF NOT EXISTS messages (
            id {pk},
            uuid {uuid} NOT NULL UNIQUE,
            conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id BIGINT NOT NULL,
            body TEXT NOT NULL,
            type VARCHAR(10) NOT NULL DEFAULT 'text' CHECK (type IN ('text', 'system', 'offer')),
            offer_amount NUMERIC(12, 2) NULL,
            offer_status VARCHAR(10) NULL CHECK (offer_status IN ('pending', 'accepted', 'rejected', 'expired')),
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            read_at {ts} NULL,
            created_at {ts} NOT NULL,
            updated_at {ts} NOT NULL,
            deleted_at {ts} NULL,
            CHECK ((type = 'offer') = (offer_amount IS NOT NULL AND offer_status IS NOT NULL))
        );`,
		`CREATE INDEX IF NOT EXISTS messages_conversation_created_idx ON messages (conversation_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS messages_sender_id_idx ON messages (sender_id);`,
	}

	out := make([]string, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, r.Replace(s))
	}
	return out
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return strings.TrimSpace(stmt[:i])
	}
	return stmt
}
