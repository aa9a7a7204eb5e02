package supplier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// PostgresStore persists suppliers in PostgreSQL so attendee records keep
// valid supplier references across restarts.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const supplierSchema = `
CREATE TABLE IF NOT EXISTS suppliers (
	id                 UUID PRIMARY KEY,
	event_id           UUID NOT NULL,
	name               TEXT NOT NULL,
	sectors            JSONB NOT NULL DEFAULT '[]',
	registration_limit INT NOT NULL,
	active             BOOLEAN NOT NULL,
	sub_companies      JSONB,
	token_hash         BYTEA,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS suppliers_event_idx ON suppliers (event_id);
`

// EnsureSchema creates the table when it does not exist yet.
func (st *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := st.pool.Exec(ctx, supplierSchema); err != nil {
		return fmt.Errorf("ensure supplier schema: %w", err)
	}
	return nil
}

const supplierColumns = `id, event_id, name, sectors, registration_limit, active,
	sub_companies, token_hash, created_at, updated_at`

func (st *PostgresStore) Create(ctx context.Context, s *Supplier) error {
	sectors, subCompanies, err := marshalSupplierFields(s)
	if err != nil {
		return err
	}
	_, err = st.pool.Exec(ctx,
		`INSERT INTO suppliers (`+supplierColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(s.ID), uuid.UUID(s.EventID), s.Name, sectors, s.RegistrationLimit,
		s.Active, subCompanies, s.TokenHash, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert supplier: %w", err)
	}
	return nil
}

func (st *PostgresStore) FindByID(ctx context.Context, eventID domain.EventID, supplierID domain.SupplierID) (*Supplier, error) {
	row := st.pool.QueryRow(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE event_id = $1 AND id = $2`,
		uuid.UUID(eventID), uuid.UUID(supplierID))
	return scanSupplier(row)
}

func (st *PostgresStore) List(ctx context.Context, eventID domain.EventID) ([]*Supplier, error) {
	rows, err := st.pool.Query(ctx,
		`SELECT `+supplierColumns+` FROM suppliers WHERE event_id = $1 ORDER BY created_at`,
		uuid.UUID(eventID))
	if err != nil {
		return nil, fmt.Errorf("list suppliers: %w", err)
	}
	defer rows.Close()

	var out []*Supplier
	for rows.Next() {
		s, err := scanSupplier(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suppliers: %w", err)
	}
	return out, nil
}

func (st *PostgresStore) Update(ctx context.Context, s *Supplier) error {
	sectors, subCompanies, err := marshalSupplierFields(s)
	if err != nil {
		return err
	}
	tag, err := st.pool.Exec(ctx,
		`UPDATE suppliers SET
			name = $3, sectors = $4, registration_limit = $5, active = $6,
			sub_companies = $7, token_hash = $8, updated_at = $9
		 WHERE event_id = $1 AND id = $2`,
		uuid.UUID(s.EventID), uuid.UUID(s.ID), s.Name, sectors, s.RegistrationLimit,
		s.Active, subCompanies, s.TokenHash, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update supplier: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (st *PostgresStore) CountBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error) {
	var count int
	err := st.pool.QueryRow(ctx,
		`SELECT count(*) FROM suppliers WHERE event_id = $1 AND sectors @> to_jsonb(ARRAY[$2::text])`,
		uuid.UUID(eventID), sectorID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sector references: %w", err)
	}
	return count, nil
}

func marshalSupplierFields(s *Supplier) (sectors, subCompanies []byte, err error) {
	sectors, err = json.Marshal(s.Sectors)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal sectors: %w", err)
	}
	if s.SubCompanies != nil {
		subCompanies, err = json.Marshal(s.SubCompanies)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal sub-companies: %w", err)
		}
	}
	return sectors, subCompanies, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSupplier(row rowScanner) (*Supplier, error) {
	var (
		s            Supplier
		id, eventID  uuid.UUID
		sectors      []byte
		subCompanies []byte
	)
	err := row.Scan(&id, &eventID, &s.Name, &sectors, &s.RegistrationLimit, &s.Active,
		&subCompanies, &s.TokenHash, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan supplier: %w", err)
	}
	s.ID = domain.SupplierID(id)
	s.EventID = domain.EventID(eventID)
	if err := json.Unmarshal(sectors, &s.Sectors); err != nil {
		return nil, fmt.Errorf("unmarshal sectors: %w", err)
	}
	if len(subCompanies) > 0 {
		if err := json.Unmarshal(subCompanies, &s.SubCompanies); err != nil {
			return nil, fmt.Errorf("unmarshal sub-companies: %w", err)
		}
	}
	return &s, nil
}
