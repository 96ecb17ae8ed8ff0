// Package memory is an in-process implementation of every repository and of
// tx.Manager. A transaction holds the store's write lock and restores the
// pre-transaction state when fn fails.
package memory

import (
	"context"
	"errors"
	"sync"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/core/tx"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/period"
	"barstock/internal/domain/snapshot"
	"barstock/internal/domain/stocktake"
)

var errReadOnly = errors.New("memory: write inside read-only transaction")

type snapshotKey struct {
	hotel, period, item id.ID
}

type state struct {
	items       map[id.ID]catalog.StockItem
	periods     map[id.ID]period.StockPeriod
	snapshots   map[id.ID]snapshot.StockSnapshot
	snapshotIdx map[snapshotKey]id.ID
	archives    []snapshot.Archive
	stocktakes  map[id.ID]stocktake.Stocktake
	lines       map[id.ID]stocktake.Line
	movements   []movement.StockMovement
}

func newState() *state {
	return &state{
		items:       make(map[id.ID]catalog.StockItem),
		periods:     make(map[id.ID]period.StockPeriod),
		snapshots:   make(map[id.ID]snapshot.StockSnapshot),
		snapshotIdx: make(map[snapshotKey]id.ID),
		stocktakes:  make(map[id.ID]stocktake.Stocktake),
		lines:       make(map[id.ID]stocktake.Line),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *state) clone() *state {
	return &state{
		items:       cloneMap(s.items),
		periods:     cloneMap(s.periods),
		snapshots:   cloneMap(s.snapshots),
		snapshotIdx: cloneMap(s.snapshotIdx),
		archives:    append([]snapshot.Archive(nil), s.archives...),
		stocktakes:  cloneMap(s.stocktakes),
		lines:       cloneMap(s.lines),
		movements:   append([]movement.StockMovement(nil), s.movements...),
	}
}

// Store holds all data.
type Store struct {
	mu   sync.RWMutex
	data *state
}

// New creates an empty store.
func New() *Store {
	return &Store{data: newState()}
}

type txKey struct{}

type txMarker struct {
	store    *Store
	readOnly bool
}

func (s *Store) marker(ctx context.Context) *txMarker {
	if m, ok := ctx.Value(txKey{}).(*txMarker); ok && m.store == s {
		return m
	}
	return nil
}

func (s *Store) read(ctx context.Context, fn func(*state) error) error {
	if s.marker(ctx) != nil {
		return fn(s.data)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(ctx context.Context, fn func(*state) error) error {
	if m := s.marker(ctx); m != nil {
		if m.readOnly {
			return errReadOnly
		}
		return fn(s.data)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// TxManager implements tx.Manager over a Store.
type TxManager struct {
	store *Store
}

var _ tx.Manager = (*TxManager)(nil)

// TxManager returns the store's transaction manager.
func (s *Store) TxManager() *TxManager {
	return &TxManager{store: s}
}

// RunInTransaction runs fn under the write lock; a failing fn leaves no trace.
// Nested calls reuse the outer transaction.
func (m *TxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mk := m.store.marker(ctx); mk != nil {
		if mk.readOnly {
			return errReadOnly
		}
		return fn(ctx)
	}

	m.store.mu.Lock()
	defer m.store.mu.Unlock()

	saved := m.store.data.clone()
	err := fn(context.WithValue(ctx, txKey{}, &txMarker{store: m.store}))
	if err != nil {
		m.store.data = saved
	}
	return err
}

// RunSerializable is RunInTransaction; the store serializes all writers.
func (m *TxManager) RunSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.RunInTransaction(ctx, fn)
}

// ReadOnly runs fn under the read lock.
func (m *TxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.store.marker(ctx) != nil {
		return fn(ctx)
	}
	m.store.mu.RLock()
	defer m.store.mu.RUnlock()
	return fn(context.WithValue(ctx, txKey{}, &txMarker{store: m.store, readOnly: true}))
}

func notFound(entity string, v id.ID) error {
	return apperror.NewNotFound(entity, v)
}
