package dedup

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS processed_documents (
	fingerprint TEXT PRIMARY KEY,
	invoice_id  TEXT NOT NULL,
	recorded_at TEXT NOT NULL
);`

// SQLiteIndex is the durable Index. It survives restarts so a re-run over the
// same input directory skips documents processed in earlier runs.
type SQLiteIndex struct {
	db *sql.DB
}

func OpenSQLiteIndex(path string) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open dedup index %s: %w", path, err)
	}
	// modernc sqlite serializes writes itself; keep one connection to avoid
	// SQLITE_BUSY on concurrent workers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init dedup index %s: %w", path, err)
	}
	return &SQLiteIndex{db: db}, nil
}

func (s *SQLiteIndex) Seen(fingerprint string) (string, bool, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT invoice_id FROM processed_documents WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("dedup lookup: %w", err)
	}
	return id, true, nil
}

func (s *SQLiteIndex) Record(fingerprint, invoiceID string) error {
	_, err := s.db.Exec(
		`INSERT INTO processed_documents (fingerprint, invoice_id, recorded_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET invoice_id = excluded.invoice_id`,
		fingerprint, invoiceID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("dedup record: %w", err)
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}
