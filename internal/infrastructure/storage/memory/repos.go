package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"

	"barstock/internal/core/apperror"
	"barstock/internal/core/id"
	"barstock/internal/domain/catalog"
	"barstock/internal/domain/movement"
	"barstock/internal/domain/period"
	"barstock/internal/domain/snapshot"
	"barstock/internal/domain/stocktake"
)

func lessID(a, b id.ID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// --- Items ---

// ItemRepo implements catalog.Repository.
type ItemRepo struct{ s *Store }

var _ catalog.Repository = (*ItemRepo)(nil)

// Items returns the item repository.
func (s *Store) Items() *ItemRepo { return &ItemRepo{s} }

// Put stores items, replacing any with the same id. Item maintenance lives
// outside the engine; this stands in for it.
func (r *ItemRepo) Put(ctx context.Context, items ...catalog.StockItem) error {
	return r.s.write(ctx, func(st *state) error {
		for _, it := range items {
			it.Subcategory = it.Subcategory.Normalize()
			st.items[it.ID] = it
		}
		return nil
	})
}

func (r *ItemRepo) GetItem(ctx context.Context, itemID id.ID) (*catalog.StockItem, error) {
	var out *catalog.StockItem
	err := r.s.read(ctx, func(st *state) error {
		it, ok := st.items[itemID]
		if !ok {
			return notFound("stock item", itemID)
		}
		out = &it
		return nil
	})
	return out, err
}

func (r *ItemRepo) ListActiveItems(ctx context.Context, hotelID id.ID) ([]catalog.StockItem, error) {
	var out []catalog.StockItem
	err := r.s.read(ctx, func(st *state) error {
		for _, it := range st.items {
			if it.HotelID == hotelID && it.Active {
				out = append(out, it)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].CategoryCode.Rank(), out[j].CategoryCode.Rank()
		if ri != rj {
			return ri < rj
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, err
}

func (r *ItemRepo) ListItems(ctx context.Context, itemIDs []id.ID) ([]catalog.StockItem, error) {
	var out []catalog.StockItem
	err := r.s.read(ctx, func(st *state) error {
		for _, itemID := range itemIDs {
			if it, ok := st.items[itemID]; ok {
				out = append(out, it)
			}
		}
		return nil
	})
	return out, err
}

// --- Periods ---

// PeriodRepo implements period.Repository.
type PeriodRepo struct{ s *Store }

var _ period.Repository = (*PeriodRepo)(nil)

// Periods returns the period repository.
func (s *Store) Periods() *PeriodRepo { return &PeriodRepo{s} }

// Create enforces the same uniqueness the database does: no two periods of a
// hotel may share a day.
func (r *PeriodRepo) Create(ctx context.Context, p *period.StockPeriod) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.periods {
			if other.HotelID == p.HotelID && other.Overlaps(p.StartDate, p.EndDate) {
				return period.OverlapError(&other, p.StartDate, p.EndDate)
			}
		}
		st.periods[p.ID] = *p
		return nil
	})
}

func (r *PeriodRepo) GetByID(ctx context.Context, periodID id.ID) (*period.StockPeriod, error) {
	var out *period.StockPeriod
	err := r.s.read(ctx, func(st *state) error {
		p, ok := st.periods[periodID]
		if !ok {
			return notFound("period", periodID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *PeriodRepo) GetForUpdate(ctx context.Context, periodID id.ID) (*period.StockPeriod, error) {
	return r.GetByID(ctx, periodID)
}

func (r *PeriodRepo) ListByHotel(ctx context.Context, hotelID id.ID) ([]period.StockPeriod, error) {
	var out []period.StockPeriod
	err := r.s.read(ctx, func(st *state) error {
		for _, p := range st.periods {
			if p.HotelID == hotelID {
				out = append(out, p)
			}
		}
		return nil
	})
	period.SortByStart(out)
	return out, err
}

func (r *PeriodRepo) Update(ctx context.Context, p *period.StockPeriod) error {
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.periods[p.ID]
		if !ok {
			return notFound("period", p.ID)
		}
		if cur.Version != p.Version {
			return apperror.NewConcurrentModification("period", p.ID)
		}
		p.Version++
		st.periods[p.ID] = *p
		return nil
	})
}

func (r *PeriodRepo) ListHotels(ctx context.Context) ([]id.ID, error) {
	seen := make(id.Set)
	var out []id.ID
	err := r.s.read(ctx, func(st *state) error {
		for _, p := range st.periods {
			if !seen.Has(p.HotelID) {
				seen[p.HotelID] = struct{}{}
				out = append(out, p.HotelID)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return lessID(out[i], out[j]) })
	return out, err
}

// Insert stores a period without any checks. Tests use it to plant corrupt data.
func (r *PeriodRepo) Insert(ctx context.Context, p period.StockPeriod) error {
	return r.s.write(ctx, func(st *state) error {
		st.periods[p.ID] = p
		return nil
	})
}

// --- Snapshots ---

// SnapshotRepo implements snapshot.Repository.
type SnapshotRepo struct{ s *Store }

var _ snapshot.Repository = (*SnapshotRepo)(nil)

// Snapshots returns the snapshot repository.
func (s *Store) Snapshots() *SnapshotRepo { return &SnapshotRepo{s} }

func (r *SnapshotRepo) Upsert(ctx context.Context, snaps []snapshot.StockSnapshot) error {
	return r.s.write(ctx, func(st *state) error {
		for _, sn := range snaps {
			key := snapshotKey{sn.HotelID, sn.PeriodID, sn.ItemID}
			if existing, ok := st.snapshotIdx[key]; ok {
				sn.ID = existing
			}
			st.snapshots[sn.ID] = sn
			st.snapshotIdx[key] = sn.ID
		}
		return nil
	})
}

func (r *SnapshotRepo) ListByPeriod(ctx context.Context, periodID id.ID) ([]snapshot.StockSnapshot, error) {
	var out []snapshot.StockSnapshot
	err := r.s.read(ctx, func(st *state) error {
		for _, sn := range st.snapshots {
			if sn.PeriodID == periodID {
				out = append(out, sn)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return lessID(out[i].ItemID, out[j].ItemID) })
	return out, err
}

func (r *SnapshotRepo) DeleteExcept(ctx context.Context, periodID id.ID, keep []id.ID) (int, error) {
	keepSet := id.NewSet(keep...)
	n := 0
	err := r.s.write(ctx, func(st *state) error {
		for snapID, sn := range st.snapshots {
			if sn.PeriodID == periodID && !keepSet.Has(sn.ItemID) {
				delete(st.snapshots, snapID)
				delete(st.snapshotIdx, snapshotKey{sn.HotelID, sn.PeriodID, sn.ItemID})
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *SnapshotRepo) MarkStale(ctx context.Context, periodID id.ID, stale bool) error {
	return r.s.write(ctx, func(st *state) error {
		for snapID, sn := range st.snapshots {
			if sn.PeriodID == periodID {
				sn.Stale = stale
				st.snapshots[snapID] = sn
			}
		}
		return nil
	})
}

// ArchiveRepo implements snapshot.ArchiveRepository.
type ArchiveRepo struct{ s *Store }

var _ snapshot.ArchiveRepository = (*ArchiveRepo)(nil)

// Archives returns the snapshot archive repository.
func (s *Store) Archives() *ArchiveRepo { return &ArchiveRepo{s} }

func (r *ArchiveRepo) Save(ctx context.Context, a *snapshot.Archive) error {
	return r.s.write(ctx, func(st *state) error {
		cp := *a
		cp.Snapshots = append([]snapshot.StockSnapshot(nil), a.Snapshots...)
		st.archives = append(st.archives, cp)
		return nil
	})
}

func (r *ArchiveRepo) ListByPeriod(ctx context.Context, periodID id.ID) ([]snapshot.Archive, error) {
	var out []snapshot.Archive
	err := r.s.read(ctx, func(st *state) error {
		for _, a := range st.archives {
			if a.PeriodID == periodID {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// --- Stocktakes ---

// StocktakeRepo implements stocktake.Repository.
type StocktakeRepo struct{ s *Store }

var _ stocktake.Repository = (*StocktakeRepo)(nil)

// Stocktakes returns the stocktake repository.
func (s *Store) Stocktakes() *StocktakeRepo { return &StocktakeRepo{s} }

func (r *StocktakeRepo) Create(ctx context.Context, stk *stocktake.Stocktake) error {
	return r.s.write(ctx, func(st *state) error {
		for _, other := range st.stocktakes {
			if other.PeriodID == stk.PeriodID {
				return apperror.NewDuplicate("stocktake", "period_id", stk.PeriodID.String())
			}
		}
		header := *stk
		header.Lines = nil
		st.stocktakes[stk.ID] = header
		for _, l := range stk.Lines {
			st.lines[l.ID] = l
		}
		return nil
	})
}

func loadLines(st *state, stocktakeID id.ID) []stocktake.Line {
	lines := make([]stocktake.Line, 0)
	for _, l := range st.lines {
		if l.StocktakeID == stocktakeID {
			lines = append(lines, l)
		}
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].LineNo < lines[j].LineNo })
	return lines
}

func (r *StocktakeRepo) GetByID(ctx context.Context, stocktakeID id.ID) (*stocktake.Stocktake, error) {
	var out *stocktake.Stocktake
	err := r.s.read(ctx, func(st *state) error {
		header, ok := st.stocktakes[stocktakeID]
		if !ok {
			return notFound("stocktake", stocktakeID)
		}
		header.Lines = loadLines(st, stocktakeID)
		out = &header
		return nil
	})
	return out, err
}

func (r *StocktakeRepo) GetForUpdate(ctx context.Context, stocktakeID id.ID) (*stocktake.Stocktake, error) {
	return r.GetByID(ctx, stocktakeID)
}

func (r *StocktakeRepo) GetByPeriod(ctx context.Context, periodID id.ID) (*stocktake.Stocktake, error) {
	var out *stocktake.Stocktake
	err := r.s.read(ctx, func(st *state) error {
		for _, header := range st.stocktakes {
			if header.PeriodID == periodID {
				header.Lines = loadLines(st, header.ID)
				out = &header
				return nil
			}
		}
		return notFound("stocktake", periodID)
	})
	return out, err
}

func (r *StocktakeRepo) ListByHotel(ctx context.Context, hotelID id.ID) ([]stocktake.Stocktake, error) {
	var out []stocktake.Stocktake
	err := r.s.read(ctx, func(st *state) error {
		for _, header := range st.stocktakes {
			if header.HotelID == hotelID {
				out = append(out, header)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out, err
}

func (r *StocktakeRepo) Update(ctx context.Context, stk *stocktake.Stocktake) error {
	return r.s.write(ctx, func(st *state) error {
		cur, ok := st.stocktakes[stk.ID]
		if !ok {
			return notFound("stocktake", stk.ID)
		}
		if cur.Version != stk.Version {
			return apperror.NewConcurrentModification("stocktake", stk.ID)
		}
		stk.Version++
		header := *stk
		header.Lines = nil
		st.stocktakes[stk.ID] = header
		return nil
	})
}

func (r *StocktakeRepo) GetLine(ctx context.Context, lineID id.ID) (*stocktake.Line, error) {
	var out *stocktake.Line
	err := r.s.read(ctx, func(st *state) error {
		l, ok := st.lines[lineID]
		if !ok {
			return notFound("stocktake line", lineID)
		}
		out = &l
		return nil
	})
	return out, err
}

func (r *StocktakeRepo) SaveLine(ctx context.Context, line *stocktake.Line) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.lines[line.ID]; !ok {
			return notFound("stocktake line", line.ID)
		}
		st.lines[line.ID] = *line
		return nil
	})
}

func (r *StocktakeRepo) SaveLines(ctx context.Context, stocktakeID id.ID, lines []stocktake.Line) error {
	return r.s.write(ctx, func(st *state) error {
		keep := make(id.Set, len(lines))
		for _, l := range lines {
			keep[l.ID] = struct{}{}
		}
		for lineID, l := range st.lines {
			if l.StocktakeID == stocktakeID && !keep.Has(lineID) {
				delete(st.lines, lineID)
			}
		}
		for _, l := range lines {
			l.StocktakeID = stocktakeID
			st.lines[l.ID] = l
		}
		return nil
	})
}

// --- Movements ---

// MovementRepo implements movement.Repository.
type MovementRepo struct{ s *Store }

var _ movement.Repository = (*MovementRepo)(nil)

// Movements returns the movement repository.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s} }

func (r *MovementRepo) Append(ctx context.Context, m *movement.StockMovement) error {
	return r.s.write(ctx, func(st *state) error {
		st.movements = append(st.movements, *m)
		return nil
	})
}

func (r *MovementRepo) ListByPeriod(ctx context.Context, periodID id.ID) ([]movement.StockMovement, error) {
	var out []movement.StockMovement
	err := r.s.read(ctx, func(st *state) error {
		for _, m := range st.movements {
			if m.PeriodID == periodID {
				out = append(out, m)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, err
}

func (r *MovementRepo) TotalsByPeriod(ctx context.Context, periodID id.ID) (map[id.ID]movement.Totals, error) {
	ms, err := r.ListByPeriod(ctx, periodID)
	if err != nil {
		return nil, err
	}
	return movement.Aggregate(ms), nil
}
