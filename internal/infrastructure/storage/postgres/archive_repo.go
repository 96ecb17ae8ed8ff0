package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"barstock/internal/core/id"
	"barstock/internal/domain/snapshot"
)

const archivesTable = "snapshot_archives"

// CompressionAlgo names how an archive payload is encoded.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// compressThreshold is the payload size below which zstd is not worth it.
const compressThreshold = 1024

type archiveRow struct {
	snapshot.Archive
	SnapshotCount   int             `db:"snapshot_count"`
	Payload         []byte          `db:"payload"`
	CompressionAlgo CompressionAlgo `db:"compression_algo"`
}

var archiveColumns = ExtractDBColumns[archiveRow]()

// ArchiveRepo implements snapshot.ArchiveRepository. The snapshots of an
// archive are stored as one JSON document, zstd-compressed when large.
type ArchiveRepo struct {
	base
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

var _ snapshot.ArchiveRepository = (*ArchiveRepo)(nil)

// NewArchiveRepo creates the repository with its zstd codec.
func NewArchiveRepo(txm *TxManager) (*ArchiveRepo, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &ArchiveRepo{base: base{txm}, encoder: encoder, decoder: decoder}, nil
}

func (r *ArchiveRepo) encode(snaps []snapshot.StockSnapshot) ([]byte, CompressionAlgo, error) {
	raw, err := json.Marshal(snaps)
	if err != nil {
		return nil, "", fmt.Errorf("marshal snapshots: %w", err)
	}
	if len(raw) <= compressThreshold {
		return raw, CompressionNone, nil
	}
	return r.encoder.EncodeAll(raw, nil), CompressionZstd, nil
}

func (r *ArchiveRepo) decode(payload []byte, algo CompressionAlgo) ([]snapshot.StockSnapshot, error) {
	switch algo {
	case CompressionNone:
	case CompressionZstd:
		var err error
		if payload, err = r.decoder.DecodeAll(payload, nil); err != nil {
			return nil, fmt.Errorf("decompress archive: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown compression %q", algo)
	}
	var snaps []snapshot.StockSnapshot
	if err := json.Unmarshal(payload, &snaps); err != nil {
		return nil, fmt.Errorf("unmarshal archive: %w", err)
	}
	return snaps, nil
}

func (r *ArchiveRepo) Save(ctx context.Context, a *snapshot.Archive) error {
	if id.IsNil(a.ID) {
		a.ID = id.New()
	}
	payload, algo, err := r.encode(a.Snapshots)
	if err != nil {
		return err
	}
	row := archiveRow{
		Archive:         *a,
		SnapshotCount:   len(a.Snapshots),
		Payload:         payload,
		CompressionAlgo: algo,
	}
	sql, args, err := r.builder().Insert(archivesTable).SetMap(StructToMap(&row)).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return mapError(err, "insert archive")
	}
	return nil
}

func (r *ArchiveRepo) ListByPeriod(ctx context.Context, periodID id.ID) ([]snapshot.Archive, error) {
	sql, args, err := r.builder().Select(archiveColumns...).From(archivesTable).
		Where(squirrel.Eq{"period_id": periodID}).
		OrderBy("archived_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var rows []archiveRow
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}

	out := make([]snapshot.Archive, 0, len(rows))
	for _, row := range rows {
		a := row.Archive
		if a.Snapshots, err = r.decode(row.Payload, row.CompressionAlgo); err != nil {
			return nil, fmt.Errorf("archive %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, nil
}
