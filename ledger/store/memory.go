/*
Package store provides ledger.Store implementations.

memory.go - In-memory implementation (for testing/dev)

  InAccount takes a snapshot of the account's state under a read lock,
  runs the unit against private copies, and commits under the write lock
  only if the account version is unchanged - genuine optimistic
  concurrency, so tests can interleave goroutines and observe real
  ErrConcurrentModification conflicts.
*/
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/points-engine/ledger"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	accounts  map[ledger.AccountID]ledger.Account
	batches   map[ledger.AccountID]map[ledger.BatchID]ledger.CreditBatch
	entries   map[ledger.AccountID][]ledger.Entry
	issuances map[issuanceKey]ledger.Issuance
}

type issuanceKey struct {
	AccountID ledger.AccountID
	Reason    ledger.ReasonKey
}

func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[ledger.AccountID]ledger.Account),
		batches:   make(map[ledger.AccountID]map[ledger.BatchID]ledger.CreditBatch),
		entries:   make(map[ledger.AccountID][]ledger.Entry),
		issuances: make(map[issuanceKey]ledger.Issuance),
	}
}

var _ ledger.AtomicStore = (*Memory)(nil)

// =============================================================================
// ACCOUNT LIFECYCLE
// =============================================================================

func (m *Memory) CreateAccount(_ context.Context, account ledger.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return ledger.ErrAccountExists
	}
	account.Version = 1
	m.accounts[account.ID] = account
	m.batches[account.ID] = make(map[ledger.BatchID]ledger.CreditBatch)
	return nil
}

func (m *Memory) GetAccount(_ context.Context, id ledger.AccountID) (ledger.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	account, ok := m.accounts[id]
	if !ok {
		return ledger.Account{}, ledger.ErrAccountNotFound
	}
	return account, nil
}

func (m *Memory) ListAccountIDs(_ context.Context) ([]ledger.AccountID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]ledger.AccountID, 0, len(m.accounts))
	for id := range m.accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// =============================================================================
// READ SURFACE
// =============================================================================

func (m *Memory) ActiveBatches(_ context.Context, id ledger.AccountID) ([]ledger.CreditBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return activeSorted(m.batches[id]), nil
}

func (m *Memory) Batches(_ context.Context, id ledger.AccountID) ([]ledger.CreditBatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.CreditBatch, 0, len(m.batches[id]))
	for _, b := range m.batches[id] {
		result = append(result, b)
	}
	sortFIFO(result)
	return result, nil
}

func (m *Memory) Entries(_ context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ledger.Entry, len(m.entries[id]))
	copy(result, m.entries[id])
	return result, nil
}

func (m *Memory) GetEntry(_ context.Context, id ledger.EntryID) (ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, accountEntries := range m.entries {
		for _, entry := range accountEntries {
			if entry.ID == id {
				return entry, nil
			}
		}
	}
	return ledger.Entry{}, ledger.ErrEntryNotFound
}

func (m *Memory) HasIssuance(_ context.Context, id ledger.AccountID, reason ledger.ReasonKey) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.issuances[issuanceKey{AccountID: id, Reason: reason}]
	return ok, nil
}

// =============================================================================
// ATOMIC UNITS
// =============================================================================

// InAccount snapshots the account under RLock, runs fn against private
// copies, and commits under the write lock conditioned on the version
// observed at snapshot time.
func (m *Memory) InAccount(ctx context.Context, id ledger.AccountID, fn func(tx ledger.AccountTx) error) error {
	m.mu.RLock()
	account, ok := m.accounts[id]
	if !ok {
		m.mu.RUnlock()
		return ledger.ErrAccountNotFound
	}
	view := &memoryTx{
		store:    m,
		account:  account,
		batches:  make(map[ledger.BatchID]ledger.CreditBatch, len(m.batches[id])),
		appended: nil,
	}
	for batchID, b := range m.batches[id] {
		view.batches[batchID] = b
	}
	view.entries = make([]ledger.Entry, len(m.entries[id]))
	copy(view.entries, m.entries[id])
	m.mu.RUnlock()

	if err := fn(view); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.accounts[id]
	if !ok {
		return ledger.ErrAccountNotFound
	}
	if current.Version != account.Version {
		return ledger.ErrConcurrentModification
	}

	// A unit that wrote nothing commits as a no-op without bumping the
	// version, so read-only sweeps never conflict with each other.
	if len(view.putBatches) == 0 && len(view.appended) == 0 &&
		len(view.putIssuances) == 0 && !view.balanceSet {
		return nil
	}

	for _, b := range view.putBatches {
		m.batches[id][b.ID] = b
	}
	for _, entry := range view.appended {
		m.entries[id] = append(m.entries[id], entry)
	}
	for _, issuance := range view.putIssuances {
		m.issuances[issuanceKey{AccountID: id, Reason: issuance.Reason}] = issuance
	}
	if view.balanceSet {
		current.Balance = view.balance
	}
	current.Version++
	m.accounts[id] = current
	return nil
}

// =============================================================================
// TRANSACTIONAL VIEW
// =============================================================================

type memoryTx struct {
	store   *Memory
	account ledger.Account

	// snapshot copies, updated in place by this unit's own writes
	batches map[ledger.BatchID]ledger.CreditBatch
	entries []ledger.Entry

	// staged writes applied at commit
	putBatches   []ledger.CreditBatch
	appended     []ledger.Entry
	putIssuances []ledger.Issuance
	balance      ledger.Points
	balanceSet   bool
}

func (tx *memoryTx) Account() ledger.Account { return tx.account }

func (tx *memoryTx) ActiveBatches(_ context.Context) ([]ledger.CreditBatch, error) {
	return activeSorted(tx.batches), nil
}

func (tx *memoryTx) GetBatch(_ context.Context, id ledger.BatchID) (ledger.CreditBatch, error) {
	b, ok := tx.batches[id]
	if !ok {
		return ledger.CreditBatch{}, ledger.ErrBatchNotFound
	}
	return b, nil
}

func (tx *memoryTx) GetEntry(_ context.Context, id ledger.EntryID) (ledger.Entry, error) {
	for _, entry := range tx.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return ledger.Entry{}, ledger.ErrEntryNotFound
}

func (tx *memoryTx) IsReversed(_ context.Context, id ledger.EntryID) (bool, error) {
	for _, entry := range tx.entries {
		if entry.ReversesID == id {
			return true, nil
		}
	}
	return false, nil
}

func (tx *memoryTx) HasIssuance(ctx context.Context, reason ledger.ReasonKey) (bool, error) {
	for _, issuance := range tx.putIssuances {
		if issuance.Reason == reason {
			return true, nil
		}
	}
	return tx.store.HasIssuance(ctx, tx.account.ID, reason)
}

func (tx *memoryTx) PutBatch(_ context.Context, batch ledger.CreditBatch) error {
	tx.batches[batch.ID] = batch
	tx.putBatches = append(tx.putBatches, batch)
	return nil
}

func (tx *memoryTx) AppendEntry(_ context.Context, entry ledger.Entry) error {
	for _, existing := range tx.entries {
		if existing.ID == entry.ID {
			return ledger.ErrDuplicateEntry
		}
	}
	tx.entries = append(tx.entries, entry)
	tx.appended = append(tx.appended, entry)
	return nil
}

func (tx *memoryTx) PutIssuance(_ context.Context, issuance ledger.Issuance) error {
	tx.putIssuances = append(tx.putIssuances, issuance)
	return nil
}

func (tx *memoryTx) SetBalance(balance ledger.Points) {
	tx.balance = balance
	tx.balanceSet = true
}

// =============================================================================
// HELPERS
// =============================================================================

func activeSorted(batches map[ledger.BatchID]ledger.CreditBatch) []ledger.CreditBatch {
	result := make([]ledger.CreditBatch, 0, len(batches))
	for _, b := range batches {
		if b.Status == ledger.BatchActive {
			result = append(result, b)
		}
	}
	sortFIFO(result)
	return result
}

// sortFIFO orders batches earliest-expiry-first, ties broken by issue
// time, then ID for determinism.
func sortFIFO(batches []ledger.CreditBatch) {
	sort.Slice(batches, func(i, j int) bool {
		if !batches[i].ExpiresAt.Equal(batches[j].ExpiresAt) {
			return batches[i].ExpiresAt.Before(batches[j].ExpiresAt)
		}
		if !batches[i].IssuedAt.Equal(batches[j].IssuedAt) {
			return batches[i].IssuedAt.Before(batches[j].IssuedAt)
		}
		return batches[i].ID < batches[j].ID
	})
}
