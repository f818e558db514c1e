package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/drift-pay/drift-gateway/pkg/models"
	_ "modernc.org/sqlite"
)

// SQLiteMirror stores transaction records in a SQLite database
type SQLiteMirror struct {
	db *sql.DB
}

var _ Mirror = (*SQLiteMirror)(nil)

// OpenSQLiteMirror opens or creates the database at path
func OpenSQLiteMirror(path string) (*SQLiteMirror, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mirror database: %v", err)
	}
	// Single writer
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			payment_id TEXT PRIMARY KEY,
			merchant TEXT,
			user_address TEXT,
			fan_token_symbol TEXT,
			fan_token_amount TEXT,
			payment_token TEXT,
			payment_token_amount TEXT,
			usd_value TEXT,
			transaction_hash TEXT,
			status TEXT,
			created_at INTEGER,
			completed_at INTEGER
		);

		CREATE INDEX IF NOT EXISTS transactions_merchant ON transactions (merchant);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create mirror schema: %v", err)
	}

	return &SQLiteMirror{db: db}, nil
}

// Upsert inserts the record or replaces the row with the same payment id
func (m *SQLiteMirror) Upsert(ctx context.Context, r models.TransactionRecord) error {
	var completedAt sql.NullInt64
	if r.CompletedAt != nil {
		completedAt = sql.NullInt64{Int64: r.CompletedAt.UnixMilli(), Valid: true}
	}
	_, err := m.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transactions
		(payment_id, merchant, user_address, fan_token_symbol, fan_token_amount, payment_token,
		 payment_token_amount, usd_value, transaction_hash, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.PaymentID, r.Merchant, r.UserAddress, r.FanTokenSymbol, r.FanTokenAmount, r.PaymentToken,
		r.PaymentTokenAmount, r.USDValue, r.TransactionHash, r.Status, r.CreatedAt.UnixMilli(), completedAt)
	return err
}

const selectRecord = `
	SELECT payment_id, merchant, user_address, fan_token_symbol, fan_token_amount, payment_token,
	       payment_token_amount, usd_value, transaction_hash, status, created_at, completed_at
	FROM transactions`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (models.TransactionRecord, error) {
	var (
		r           models.TransactionRecord
		createdAt   int64
		completedAt sql.NullInt64
	)
	err := row.Scan(&r.PaymentID, &r.Merchant, &r.UserAddress, &r.FanTokenSymbol, &r.FanTokenAmount, &r.PaymentToken,
		&r.PaymentTokenAmount, &r.USDValue, &r.TransactionHash, &r.Status, &createdAt, &completedAt)
	if err != nil {
		return models.TransactionRecord{}, err
	}
	r.CreatedAt = time.UnixMilli(createdAt).UTC()
	if completedAt.Valid {
		t := time.UnixMilli(completedAt.Int64).UTC()
		r.CompletedAt = &t
	}
	return r, nil
}

// Load returns the record of a payment
func (m *SQLiteMirror) Load(ctx context.Context, paymentID string) (models.TransactionRecord, error) {
	r, err := scanRecord(m.db.QueryRowContext(ctx, selectRecord+` WHERE payment_id = ?`, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransactionRecord{}, ErrNotFound
	}
	return r, err
}

// List returns the most recent records, newest first
func (m *SQLiteMirror) List(ctx context.Context, limit int) ([]models.TransactionRecord, error) {
	rows, err := m.db.QueryContext(ctx, selectRecord+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransactionRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (m *SQLiteMirror) Close() error {
	return m.db.Close()
}
