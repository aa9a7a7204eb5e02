package sector

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// PostgresStore persists sectors and validation points in PostgreSQL so
// attendee sector references survive restarts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const sectorSchema = `
CREATE TABLE IF NOT EXISTS sectors (
	id         UUID PRIMARY KEY,
	event_id   UUID NOT NULL,
	label      TEXT NOT NULL,
	color      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sectors_event_idx ON sectors (event_id);

CREATE TABLE IF NOT EXISTS validation_points (
	id         UUID PRIMARY KEY,
	event_id   UUID NOT NULL,
	sector_id  UUID NOT NULL,
	label      TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS validation_points_event_idx ON validation_points (event_id);
`

// EnsureSchema creates the tables when they do not exist yet.
func (st *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := st.pool.Exec(ctx, sectorSchema); err != nil {
		return fmt.Errorf("ensure sector schema: %w", err)
	}
	return nil
}

func (st *PostgresStore) CreateSector(ctx context.Context, s *Sector) error {
	_, err := st.pool.Exec(ctx,
		`INSERT INTO sectors (id, event_id, label, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		uuid.UUID(s.ID), uuid.UUID(s.EventID), s.Label, s.Color, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert sector: %w", err)
	}
	return nil
}

func (st *PostgresStore) FindSector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (*Sector, error) {
	var (
		s           Sector
		id, eventUU uuid.UUID
	)
	err := st.pool.QueryRow(ctx,
		`SELECT id, event_id, label, color, created_at, updated_at
		 FROM sectors WHERE event_id = $1 AND id = $2`,
		uuid.UUID(eventID), uuid.UUID(sectorID)).
		Scan(&id, &eventUU, &s.Label, &s.Color, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan sector: %w", err)
	}
	s.ID = domain.SectorID(id)
	s.EventID = domain.EventID(eventUU)
	return &s, nil
}

func (st *PostgresStore) ListSectors(ctx context.Context, eventID domain.EventID) ([]*Sector, error) {
	rows, err := st.pool.Query(ctx,
		`SELECT id, event_id, label, color, created_at, updated_at
		 FROM sectors WHERE event_id = $1 ORDER BY created_at`,
		uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	defer rows.Close()

	var out []*Sector
	for rows.Next() {
		var (
			s           Sector
			id, eventUU uuid.UUID
		)
		if err := rows.Scan(&id, &eventUU, &s.Label, &s.Color, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sector: %w", err)
		}
		s.ID = domain.SectorID(id)
		s.EventID = domain.EventID(eventUU)
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sectors: %w", err)
	}
	return out, nil
}

func (st *PostgresStore) UpdateSector(ctx context.Context, s *Sector) error {
	tag, err := st.pool.Exec(ctx,
		`UPDATE sectors SET label = $3, color = $4, updated_at = $5
		 WHERE event_id = $1 AND id = $2`,
		uuid.UUID(s.EventID), uuid.UUID(s.ID), s.Label, s.Color, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update sector: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (st *PostgresStore) DeleteSector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) error {
	tag, err := st.pool.Exec(ctx,
		`DELETE FROM sectors WHERE event_id = $1 AND id = $2`,
		uuid.UUID(eventID), uuid.UUID(sectorID))
	if err != nil {
		return fmt.Errorf("delete sector: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (st *PostgresStore) CreatePoint(ctx context.Context, p *ValidationPoint) error {
	_, err := st.pool.Exec(ctx,
		`INSERT INTO validation_points (id, event_id, sector_id, label, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(p.ID), uuid.UUID(p.EventID), uuid.UUID(p.SectorID), p.Label, p.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert validation point: %w", err)
	}
	return nil
}

func (st *PostgresStore) FindPoint(ctx context.Context, eventID domain.EventID, pointID domain.ValidationPointID) (*ValidationPoint, error) {
	var (
		p                     ValidationPoint
		id, eventUU, sectorUU uuid.UUID
	)
	err := st.pool.QueryRow(ctx,
		`SELECT id, event_id, sector_id, label, created_at
		 FROM validation_points WHERE event_id = $1 AND id = $2`,
		uuid.UUID(eventID), uuid.UUID(pointID)).
		Scan(&id, &eventUU, &sectorUU, &p.Label, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan validation point: %w", err)
	}
	p.ID = domain.ValidationPointID(id)
	p.EventID = domain.EventID(eventUU)
	p.SectorID = domain.SectorID(sectorUU)
	return &p, nil
}

func (st *PostgresStore) ListPoints(ctx context.Context, eventID domain.EventID) ([]*ValidationPoint, error) {
	rows, err := st.pool.Query(ctx,
		`SELECT id, event_id, sector_id, label, created_at
		 FROM validation_points WHERE event_id = $1 ORDER BY created_at`,
		uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("list validation points: %w", err)
	}
	defer rows.Close()

	var out []*ValidationPoint
	for rows.Next() {
		var (
			p                     ValidationPoint
			id, eventUU, sectorUU uuid.UUID
		)
		if err := rows.Scan(&id, &eventUU, &sectorUU, &p.Label, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan validation point: %w", err)
		}
		p.ID = domain.ValidationPointID(id)
		p.EventID = domain.EventID(eventUU)
		p.SectorID = domain.SectorID(sectorUU)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate validation points: %w", err)
	}
	return out, nil
}

func (st *PostgresStore) DeletePoint(ctx context.Context, eventID domain.EventID, pointID domain.ValidationPointID) error {
	tag, err := st.pool.Exec(ctx,
		`DELETE FROM validation_points WHERE event_id = $1 AND id = $2`,
		uuid.UUID(eventID), uuid.UUID(pointID))
	if err != nil {
		return fmt.Errorf("delete validation point: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (st *PostgresStore) CountPointsBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error) {
	var count int
	err := st.pool.QueryRow(ctx,
		`SELECT count(*) FROM validation_points WHERE event_id = $1 AND sector_id = $2`,
		uuid.UUID(eventID), uuid.UUID(sectorID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count validation points: %w", err)
	}
	return count, nil
}
