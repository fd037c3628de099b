package cleanstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/corpus-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/postgres"
)

// Schema creates the clean_records table and the clean_datasets table that
// marks each saved dataset with its fingerprint.
const Schema = `
CREATE TABLE IF NOT EXISTS clean_datasets (
    dataset     TEXT        PRIMARY KEY,
    fingerprint TEXT        NOT NULL,
    records     INTEGER     NOT NULL,
    saved_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS clean_records (
    dataset    TEXT    NOT NULL,
    row_id     INTEGER NOT NULL,
    judul      TEXT    NOT NULL,
    clean_text TEXT    NOT NULL,
    file       TEXT    NOT NULL,
    sumber     TEXT    NOT NULL,
    PRIMARY KEY (dataset, row_id)
)`

// PostgresStore keeps clean records in the clean_records table.
type PostgresStore struct {
	db *postgres.Client
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the tables when they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("creating clean record tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, dataset, fingerprint string) ([]ingestion.CleanRecord, bool, error) {
	var saved string
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT fingerprint FROM clean_datasets WHERE dataset = $1`, dataset).Scan(&saved)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying fingerprint of %s: %w", dataset, err)
	}
	if saved != fingerprint {
		return nil, false, nil
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT judul, clean_text, dataset, file, row_id, sumber
		 FROM clean_records WHERE dataset = $1 ORDER BY row_id`, dataset)
	if err != nil {
		return nil, false, fmt.Errorf("querying clean records for %s: %w", dataset, err)
	}
	defer rows.Close()

	records := []ingestion.CleanRecord{}
	for rows.Next() {
		var rec ingestion.CleanRecord
		if err := rows.Scan(&rec.Title, &rec.CleanText, &rec.Dataset, &rec.File, &rec.Row, &rec.Source); err != nil {
			return nil, false, fmt.Errorf("scanning clean record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterating clean records: %w", err)
	}
	return records, true, nil
}

// Save replaces the dataset's rows and its clean_datasets marker in one
// transaction.
func (s *PostgresStore) Save(ctx context.Context, dataset, fingerprint string, records []ingestion.CleanRecord) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM clean_records WHERE dataset = $1`, dataset); err != nil {
			return fmt.Errorf("clearing %s: %w", dataset, err)
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO clean_records (dataset, row_id, judul, clean_text, file, sumber)
			 VALUES ($1, $2, $3, $4, $5, $6)`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for _, rec := range records {
			if _, err := stmt.ExecContext(ctx, dataset, rec.Row, rec.Title, rec.CleanText, rec.File, rec.Source); err != nil {
				return fmt.Errorf("inserting %s row %d: %w", dataset, rec.Row, err)
			}
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO clean_datasets (dataset, fingerprint, records, saved_at)
			 VALUES ($1, $2, $3, now())
			 ON CONFLICT (dataset) DO UPDATE
			 SET fingerprint = EXCLUDED.fingerprint, records = EXCLUDED.records, saved_at = EXCLUDED.saved_at`,
			dataset, fingerprint, len(records))
		if err != nil {
			return fmt.Errorf("marking %s: %w", dataset, err)
		}
		return nil
	})
}
