package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/sqlinline"
)

// Postgres is a durable registry backed by the job_records table. Pruning of
// expired terminal rows is driven by the background worker.
type Postgres struct {
	runner infra.SQLExecutor
	ttl    time.Duration
}

// NewPostgres constructs a Postgres registry; ttl <= 0 uses
// DefaultTerminalTTL.
func NewPostgres(runner infra.SQLExecutor, ttl time.Duration) *Postgres {
	if ttl <= 0 {
		ttl = DefaultTerminalTTL
	}
	return &Postgres{runner: runner, ttl: ttl}
}

func (p *Postgres) Put(ctx context.Context, rec domain.JobRecord) error {
	metadata := []byte("{}")
	if len(rec.Status.Metadata) > 0 {
		encoded, err := json.Marshal(rec.Status.Metadata)
		if err != nil {
			return fmt.Errorf("registry: encode metadata: %w", err)
		}
		metadata = encoded
	}
	updatedAt := rec.Status.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	// Terminal-wins lives in the upsert's where clause.
	_, err := p.runner.Exec(ctx, sqlinline.QUpsertJobRecord,
		rec.Handle.ID,
		rec.Handle.Provider,
		rec.Handle.ProviderJobID,
		string(rec.Status.State),
		rec.Status.Progress,
		rec.Status.Message,
		rec.Status.VideoURL,
		rec.Status.PosterURL,
		metadata,
		rec.Status.ErrorDetail,
		updatedAt,
	)
	if err != nil {
		return fmt.Errorf("registry: upsert job record: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, handleID string) (domain.JobRecord, error) {
	row := p.runner.QueryRow(ctx, sqlinline.QSelectJobRecord, handleID)
	rec, err := scanJobRecord(row.Scan)
	if err != nil {
		if infra.IsNoRows(err) {
			return domain.JobRecord{}, domain.ErrUnknownJob
		}
		return domain.JobRecord{}, fmt.Errorf("registry: select job record: %w", err)
	}
	return rec, nil
}

func (p *Postgres) List(ctx context.Context) ([]domain.JobRecord, error) {
	rows, err := p.runner.Query(ctx, sqlinline.QListJobRecords)
	if err != nil {
		return nil, fmt.Errorf("registry: list job records: %w", err)
	}
	defer rows.Close()
	var records []domain.JobRecord
	for rows.Next() {
		rec, err := scanJobRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("registry: scan job record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (p *Postgres) Prune(ctx context.Context) (int, error) {
	tag, err := p.runner.Exec(ctx, sqlinline.QPruneJobRecords, int64(p.ttl.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("registry: prune job records: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanJobRecord(scan func(dest ...any) error) (domain.JobRecord, error) {
	var rec domain.JobRecord
	var state string
	var metadata []byte
	if err := scan(
		&rec.Handle.ID,
		&rec.Handle.Provider,
		&rec.Handle.ProviderJobID,
		&state,
		&rec.Status.Progress,
		&rec.Status.Message,
		&rec.Status.VideoURL,
		&rec.Status.PosterURL,
		&metadata,
		&rec.Status.ErrorDetail,
		&rec.Status.UpdatedAt,
	); err != nil {
		return domain.JobRecord{}, err
	}
	rec.Status.State = domain.JobState(state)
	if len(metadata) > 0 {
		_ = json.Unmarshal(metadata, &rec.Status.Metadata)
	}
	return rec, nil
}

var _ Registry = (*Postgres)(nil)
