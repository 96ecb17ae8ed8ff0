package postgres

import (
	"github.com/Masterminds/squirrel"
)

// Store hands out the repositories backed by one pool.
type Store struct {
	pool      *Pool
	txManager *TxManager
}

// NewStore creates a store on pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool, txManager: NewTxManager(pool)}
}

// TxManager returns the store's transaction manager.
func (s *Store) TxManager() *TxManager { return s.txManager }

// Pool returns the underlying pool.
func (s *Store) Pool() *Pool { return s.pool }

func (s *Store) Items() *ItemRepo           { return &ItemRepo{base{s.txManager}} }
func (s *Store) Periods() *PeriodRepo       { return &PeriodRepo{base{s.txManager}} }
func (s *Store) Snapshots() *SnapshotRepo   { return &SnapshotRepo{base{s.txManager}} }
func (s *Store) Stocktakes() *StocktakeRepo { return &StocktakeRepo{base{s.txManager}} }
func (s *Store) Movements() *MovementRepo   { return &MovementRepo{base{s.txManager}} }

// Archives returns the zstd-compressed snapshot archive.
func (s *Store) Archives() (*ArchiveRepo, error) { return NewArchiveRepo(s.txManager) }

// base carries what every repository needs.
type base struct {
	txm *TxManager
}

// builder returns a squirrel builder with PostgreSQL placeholders.
func (b base) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}
