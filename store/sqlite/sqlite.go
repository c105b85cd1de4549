/*
Package sqlite provides a SQLite-backed implementation of the ledger
storage interfaces.

PURPOSE:
  Implements ledger.Store and ledger.AtomicStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  accounts:         Materialized balance + optimistic version per customer
  credit_batches:   One row per credit event, with remaining + expiry
  ledger_entries:   Immutable append-only log of every credit and debit
  reward_issuances: Award-once markers, unique per (account, reason)

APPEND-ONLY ENFORCEMENT:
  The store enforces append-only semantics on ledger_entries:
  - No UPDATE statements on the entries table
  - No DELETE statements on the entries table
  - Corrections via compensating entries only

OPTIMISTIC CONCURRENCY:
  Every atomic unit ends with
    UPDATE accounts SET balance=?, version=version+1
    WHERE id=? AND version=<version read at unit start>
  Zero rows affected means another unit committed in between; the
  transaction rolls back and ledger.ErrConcurrentModification is
  returned for the engine to retry.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/points.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := ledger.NewEngine(store, ledger.Options{})

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/points-engine/ledger"
)

// Store implements ledger.AtomicStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A second pooled connection would get its own empty :memory:
	// database; SQLite allows one writer anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ ledger.AtomicStore = (*Store)(nil)

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Accounts (materialized balance, optimistic version)
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		balance INTEGER NOT NULL DEFAULT 0,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		CHECK (balance >= 0)
	);

	-- Credit batches (one per credit event)
	CREATE TABLE IF NOT EXISTS credit_batches (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		original INTEGER NOT NULL,
		remaining INTEGER NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		expires_at TEXT NOT NULL,
		CHECK (original > 0),
		CHECK (remaining >= 0 AND remaining <= original)
	);

	-- FIFO walks and sweep scans (hot path)
	CREATE INDEX IF NOT EXISTS idx_batches_account_status_expiry
		ON credit_batches(account_id, status, expires_at, issued_at, id);

	-- Ledger entries (append-only log)
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id),
		kind TEXT NOT NULL,
		amount INTEGER NOT NULL,
		reason TEXT NOT NULL,
		concept TEXT,
		batch_id TEXT,
		draws_json TEXT,
		reverses_id TEXT,
		balance_after INTEGER NOT NULL,
		ts TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_account_ts
		ON ledger_entries(account_id, ts DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_reverses
		ON ledger_entries(reverses_id) WHERE reverses_id IS NOT NULL;

	-- Award-once markers; the unique key is the last line of defense
	-- against duplicate reward issuance
	CREATE TABLE IF NOT EXISTS reward_issuances (
		account_id TEXT NOT NULL REFERENCES accounts(id),
		reason TEXT NOT NULL,
		issued_at TEXT NOT NULL,
		PRIMARY KEY (account_id, reason)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

// CreateAccount registers a new account row.
func (s *Store) CreateAccount(ctx context.Context, account ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, balance, version, created_at) VALUES (?, ?, 1, ?)`,
		account.ID, account.Balance, account.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrAccountExists
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount retrieves an account by ID.
func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scanAccount(s.db.QueryRowContext(ctx,
		`SELECT id, balance, version, created_at FROM accounts WHERE id = ?`, id))
}

// ListAccountIDs returns all account IDs.
func (s *Store) ListAccountIDs(ctx context.Context) ([]ledger.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM accounts ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []ledger.AccountID
	for rows.Next() {
		var id ledger.AccountID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// =============================================================================
// READ SURFACE
// =============================================================================

const batchColumns = `id, account_id, original, remaining, reason, status, issued_at, expires_at`

// ActiveBatches returns active batches in FIFO (earliest-expiry) order.
func (s *Store) ActiveBatches(ctx context.Context, id ledger.AccountID) ([]ledger.CreditBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryBatches(ctx, s.db, `
		SELECT `+batchColumns+` FROM credit_batches
		WHERE account_id = ? AND status = ?
		ORDER BY expires_at ASC, issued_at ASC, id ASC`,
		id, ledger.BatchActive)
}

// Batches returns all of the account's batches regardless of status.
func (s *Store) Batches(ctx context.Context, id ledger.AccountID) ([]ledger.CreditBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryBatches(ctx, s.db, `
		SELECT `+batchColumns+` FROM credit_batches
		WHERE account_id = ?
		ORDER BY expires_at ASC, issued_at ASC, id ASC`,
		id)
}

const entryColumns = `id, account_id, kind, amount, reason, concept, batch_id, draws_json, reverses_id, balance_after, ts`

// Entries returns the account's log in replay (oldest-first) order.
func (s *Store) Entries(ctx context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryEntries(ctx, s.db, `
		SELECT `+entryColumns+` FROM ledger_entries
		WHERE account_id = ?
		ORDER BY ts ASC, rowid ASC`,
		id)
}

// GetEntry returns one entry by ID.
func (s *Store) GetEntry(ctx context.Context, id ledger.EntryID) (ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEntry(ctx, s.db, id)
}

// HasIssuance checks the award-once marker.
func (s *Store) HasIssuance(ctx context.Context, id ledger.AccountID, reason ledger.ReasonKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasIssuance(ctx, s.db, id, reason)
}

// =============================================================================
// ATOMIC UNITS (ledger.AtomicStore)
// =============================================================================

// InAccount runs fn inside one database transaction scoped to the
// account, committing conditioned on the version read at the start.
func (s *Store) InAccount(ctx context.Context, id ledger.AccountID, fn func(tx ledger.AccountTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	account, err := scanAccount(sqlTx.QueryRowContext(ctx,
		`SELECT id, balance, version, created_at FROM accounts WHERE id = ?`, id))
	if err != nil {
		return err
	}

	view := &accountTx{tx: sqlTx, account: account}
	if err := fn(view); err != nil {
		return err
	}

	if !view.dirty {
		// Nothing written; no version bump, nothing to conflict with.
		return sqlTx.Commit()
	}

	balance := account.Balance
	if view.balanceSet {
		balance = view.balance
	}
	res, err := sqlTx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, version = version + 1 WHERE id = ? AND version = ?`,
		balance, id, account.Version)
	if err != nil {
		return fmt.Errorf("failed to commit account: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ledger.ErrConcurrentModification
	}

	return sqlTx.Commit()
}

// accountTx implements ledger.AccountTx over one sql transaction.
type accountTx struct {
	tx         *sql.Tx
	account    ledger.Account
	balance    ledger.Points
	balanceSet bool
	dirty      bool
}

func (t *accountTx) Account() ledger.Account { return t.account }

func (t *accountTx) ActiveBatches(ctx context.Context) ([]ledger.CreditBatch, error) {
	return queryBatches(ctx, t.tx, `
		SELECT `+batchColumns+` FROM credit_batches
		WHERE account_id = ? AND status = ?
		ORDER BY expires_at ASC, issued_at ASC, id ASC`,
		t.account.ID, ledger.BatchActive)
}

func (t *accountTx) GetBatch(ctx context.Context, id ledger.BatchID) (ledger.CreditBatch, error) {
	batches, err := queryBatches(ctx, t.tx,
		`SELECT `+batchColumns+` FROM credit_batches WHERE id = ? AND account_id = ?`,
		id, t.account.ID)
	if err != nil {
		return ledger.CreditBatch{}, err
	}
	if len(batches) == 0 {
		return ledger.CreditBatch{}, ledger.ErrBatchNotFound
	}
	return batches[0], nil
}

func (t *accountTx) GetEntry(ctx context.Context, id ledger.EntryID) (ledger.Entry, error) {
	return getEntry(ctx, t.tx, id)
}

func (t *accountTx) IsReversed(ctx context.Context, id ledger.EntryID) (bool, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE reverses_id = ?`, id).Scan(&count)
	return count > 0, err
}

func (t *accountTx) HasIssuance(ctx context.Context, reason ledger.ReasonKey) (bool, error) {
	return hasIssuance(ctx, t.tx, t.account.ID, reason)
}

func (t *accountTx) PutBatch(ctx context.Context, batch ledger.CreditBatch) error {
	t.dirty = true
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO credit_batches
		(id, account_id, original, remaining, reason, status, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			remaining = excluded.remaining,
			status = excluded.status`,
		batch.ID, batch.AccountID, batch.Original, batch.Remaining,
		batch.Reason, batch.Status,
		batch.IssuedAt.UTC().Format(time.RFC3339),
		batch.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to put batch: %w", err)
	}
	return nil
}

func (t *accountTx) AppendEntry(ctx context.Context, entry ledger.Entry) error {
	t.dirty = true
	var drawsJSON sql.NullString
	if len(entry.Draws) > 0 {
		raw, err := json.Marshal(entry.Draws)
		if err != nil {
			return fmt.Errorf("failed to encode draws: %w", err)
		}
		drawsJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries
		(id, account_id, kind, amount, reason, concept, batch_id, draws_json, reverses_id, balance_after, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.Kind, entry.Amount, entry.Reason,
		nullString(entry.Concept), nullString(string(entry.BatchID)),
		drawsJSON, nullString(string(entry.ReversesID)),
		entry.BalanceAfter, entry.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ledger.ErrDuplicateEntry
		}
		return fmt.Errorf("failed to append entry: %w", err)
	}
	return nil
}

func (t *accountTx) PutIssuance(ctx context.Context, issuance ledger.Issuance) error {
	t.dirty = true
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO reward_issuances (account_id, reason, issued_at) VALUES (?, ?, ?)`,
		issuance.AccountID, issuance.Reason,
		issuance.IssuedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			// Schema-level backstop for the award-once invariant.
			return &ledger.AlreadyAwardedError{AccountID: issuance.AccountID, Reason: issuance.Reason}
		}
		return fmt.Errorf("failed to put issuance: %w", err)
	}
	return nil
}

func (t *accountTx) SetBalance(balance ledger.Points) {
	t.balance = balance
	t.balanceSet = true
	t.dirty = true
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanAccount(row *sql.Row) (ledger.Account, error) {
	var account ledger.Account
	var createdAt string
	err := row.Scan(&account.ID, &account.Balance, &account.Version, &createdAt)
	if err == sql.ErrNoRows {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	if err != nil {
		return ledger.Account{}, fmt.Errorf("failed to scan account: %w", err)
	}
	account.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return account, nil
}

func queryBatches(ctx context.Context, q querier, query string, args ...any) ([]ledger.CreditBatch, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []ledger.CreditBatch
	for rows.Next() {
		var b ledger.CreditBatch
		var issuedAt, expiresAt string
		if err := rows.Scan(&b.ID, &b.AccountID, &b.Original, &b.Remaining,
			&b.Reason, &b.Status, &issuedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		b.IssuedAt, _ = time.Parse(time.RFC3339, issuedAt)
		b.ExpiresAt, _ = time.Parse(time.RFC3339, expiresAt)
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func queryEntries(ctx context.Context, q querier, query string, args ...any) ([]ledger.Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(rows *sql.Rows) (ledger.Entry, error) {
	var (
		entry      ledger.Entry
		concept    sql.NullString
		batchID    sql.NullString
		drawsJSON  sql.NullString
		reversesID sql.NullString
		ts         string
	)
	err := rows.Scan(&entry.ID, &entry.AccountID, &entry.Kind, &entry.Amount,
		&entry.Reason, &concept, &batchID, &drawsJSON, &reversesID,
		&entry.BalanceAfter, &ts)
	if err != nil {
		return entry, fmt.Errorf("failed to scan entry: %w", err)
	}

	entry.Concept = concept.String
	entry.BatchID = ledger.BatchID(batchID.String)
	entry.ReversesID = ledger.EntryID(reversesID.String)
	entry.Timestamp, _ = time.Parse(time.RFC3339, ts)
	if drawsJSON.Valid && drawsJSON.String != "" {
		if err := json.Unmarshal([]byte(drawsJSON.String), &entry.Draws); err != nil {
			return entry, fmt.Errorf("failed to decode draws: %w", err)
		}
	}
	return entry, nil
}

func getEntry(ctx context.Context, q querier, id ledger.EntryID) (ledger.Entry, error) {
	entries, err := queryEntries(ctx, q,
		`SELECT `+entryColumns+` FROM ledger_entries WHERE id = ?`, id)
	if err != nil {
		return ledger.Entry{}, err
	}
	if len(entries) == 0 {
		return ledger.Entry{}, ledger.ErrEntryNotFound
	}
	return entries[0], nil
}

func hasIssuance(ctx context.Context, q querier, id ledger.AccountID, reason ledger.ReasonKey) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reward_issuances WHERE account_id = ? AND reason = ?`,
		id, reason).Scan(&count)
	return count > 0, err
}

// =============================================================================
// UTILITIES
// =============================================================================

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
