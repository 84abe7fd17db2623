package db

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"global-relay/pkg/model"
)

// AuditLog is an optional SQLite mirror of the in-memory audit ring, so an
// operator can reconstruct register/evict history across restarts. The relay
// registry and mailboxes themselves are deliberately ephemeral; only the
// audit trail is worth keeping.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (creating if needed) the audit database at path.
func OpenAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := "file:" + path + "?_pragma=busy_timeout=5000"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	if _, err := sqlDB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS audit(id TEXT, actor TEXT, action TEXT, target TEXT, detail TEXT, ts INTEGER); CREATE INDEX IF NOT EXISTS idx_audit_target ON audit(target);`); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &AuditLog{db: sqlDB}, nil
}

// Append mirrors one entry. Best-effort: a failed write only logs, it never
// fails the request that produced the entry.
func (l *AuditLog) Append(e model.AuditEntry) {
	if l == nil || l.db == nil {
		return
	}
	_, err := l.db.Exec(`INSERT INTO audit(id, actor, action, target, detail, ts) VALUES(?,?,?,?,?,?)`,
		e.ID, e.Actor, e.Action, e.Target, e.Detail, e.Timestamp.UnixMilli())
	if err != nil {
		log.Printf("audit mirror write failed: %v", err)
	}
}

func (l *AuditLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}
