// Package app wires repositories, locks and services into the engine used by
// the binaries and the end-to-end tests.
package app

import (
	"time"

	"github.com/shopspring/decimal"

	"barstock/internal/config"
	"barstock/internal/core/lock"
	"barstock/internal/core/tx"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/closing"
	"barstock/internal/domain/integrity"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/period"
	"barstock/internal/domain/snapshot"
	"barstock/internal/domain/stocktake"
	"barstock/internal/domain/uom"
	"barstock/internal/domain/valuation"
	"barstock/internal/infrastructure/storage/memory"
	"barstock/internal/infrastructure/storage/postgres"
)

// Stores are the repositories one backend provides.
type Stores struct {
	Items      catalog.Repository
	Periods    period.Repository
	Snapshots  snapshot.Repository
	Archives   snapshot.ArchiveRepository
	Stocktakes stocktake.Repository
	Movements  movement.Repository
	TxManager  tx.Manager
}

// MemoryStores exposes an in-memory store as Stores.
func MemoryStores(s *memory.Store) Stores {
	return Stores{
		Items:      s.Items(),
		Periods:    s.Periods(),
		Snapshots:  s.Snapshots(),
		Archives:   s.Archives(),
		Stocktakes: s.Stocktakes(),
		Movements:  s.Movements(),
		TxManager:  s.TxManager(),
	}
}

// PostgresStores exposes a PostgreSQL store as Stores.
func PostgresStores(s *postgres.Store) (Stores, error) {
	archives, err := s.Archives()
	if err != nil {
		return Stores{}, err
	}
	return Stores{
		Items:      s.Items(),
		Periods:    s.Periods(),
		Snapshots:  s.Snapshots(),
		Archives:   archives,
		Stocktakes: s.Stocktakes(),
		Movements:  s.Movements(),
		TxManager:  s.TxManager(),
	}, nil
}

// Options tune the engine. Zero values select defaults.
type Options struct {
	Locker               lock.Locker
	CollapseRatio        decimal.Decimal
	ServingML            decimal.Decimal
	LockTTL              time.Duration
	// Now overrides the clock of every service.
	Now func() time.Time
	IntegrityConcurrency int
}

// OptionsFromConfig maps runtime configuration onto engine options.
func OptionsFromConfig(cfg *config.Config, locker lock.Locker) Options {
	return Options{
		Locker:               locker,
		CollapseRatio:        cfg.CollapseRatio(),
		ServingML:            cfg.ServingML(),
		LockTTL:              cfg.ApprovalLockTTL,
		IntegrityConcurrency: cfg.IntegrityConcurrency,
	}
}

// Engine bundles the services.
type Engine struct {
	Stores     Stores
	Calc       *valuation.Calculator
	Periods    *period.Service
	Movements  *movement.Service
	Closing    *closing.Service
	Stocktakes *stocktake.Service
	Integrity  *integrity.Checker
}

// New wires an engine over stores.
func New(stores Stores, opts Options) *Engine {
	var regOpts []uom.Option
	if opts.ServingML.IsPositive() {
		regOpts = append(regOpts, uom.WithServingML(opts.ServingML))
	}
	calc := valuation.NewCalculator(uom.NewRegistry(regOpts...))

	periods := period.NewService(stores.Periods, stores.TxManager)
	periods.WithNow(opts.Now)
	closer := closing.NewService(periods, stores.Items, stores.Snapshots, stores.Archives, stores.Stocktakes, stores.TxManager, calc)
	closer.WithNow(opts.Now)
	movements := movement.NewService(stores.Movements, stores.Items, stores.Periods, stores.TxManager)
	movements.WithNow(opts.Now)

	stOpts := []stocktake.Option{stocktake.WithLockTTL(opts.LockTTL), stocktake.WithNow(opts.Now)}
	if opts.CollapseRatio.IsPositive() {
		stOpts = append(stOpts, stocktake.WithCollapseRatio(opts.CollapseRatio))
	}

	return &Engine{
		Stores:    stores,
		Calc:      calc,
		Periods:   periods,
		Movements: movements,
		Closing:   closer,
		Stocktakes: stocktake.NewService(stocktake.Deps{
			Repo:      stores.Stocktakes,
			Items:     stores.Items,
			Periods:   periods,
			Snapshots: stores.Snapshots,
			Movements: stores.Movements,
			Closer:    closer,
			Locker:    opts.Locker,
			TxManager: stores.TxManager,
			Calc:      calc,
		}, stOpts...),
		Integrity: integrity.NewChecker(stores.Periods, stores.Stocktakes, stores.Snapshots, stores.Items,
			stores.TxManager, calc, opts.IntegrityConcurrency),
	}
}

// NewMemory is an engine over a fresh in-memory store.
func NewMemory(opts Options) (*Engine, *memory.Store) {
	store := memory.New()
	return New(MemoryStores(store), opts), store
}
