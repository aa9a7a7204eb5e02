package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"gatepass/internal/attendee/models"
	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// PostgresStore persists attendees in PostgreSQL. Wristband uniqueness is a
// primary key on (event_id, sector_id, code); supplier capacity and CPF
// uniqueness are serialized with a per-event advisory lock inside the
// insert transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const schema = `
CREATE TABLE IF NOT EXISTS attendees (
	id                   UUID PRIMARY KEY,
	event_id             UUID NOT NULL,
	name                 TEXT NOT NULL,
	cpf                  TEXT NOT NULL,
	photo_ref            TEXT NOT NULL,
	sectors              JSONB NOT NULL DEFAULT '[]',
	supplier_id          UUID,
	sub_company          TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL,
	block_reason         TEXT NOT NULL DEFAULT '',
	proposal             JSONB,
	wristbands           JSONB,
	current_sector_id    UUID,
	last_sector_entry_at TIMESTAMPTZ,
	checkin_time         TIMESTAMPTZ,
	checkout_time        TIMESTAMPTZ,
	checked_in_by        TEXT NOT NULL DEFAULT '',
	checked_out_by       TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS attendees_event_idx ON attendees (event_id);
CREATE INDEX IF NOT EXISTS attendees_cpf_idx ON attendees (cpf);

CREATE TABLE IF NOT EXISTS wristbands (
	event_id    UUID NOT NULL,
	sector_id   UUID NOT NULL,
	code        TEXT NOT NULL,
	attendee_id UUID NOT NULL REFERENCES attendees (id) ON DELETE CASCADE,
	PRIMARY KEY (event_id, sector_id, code)
);
CREATE INDEX IF NOT EXISTS wristbands_attendee_idx ON wristbands (attendee_id);
`

// EnsureSchema creates the tables when they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure attendee schema: %w", err)
	}
	return nil
}

const attendeeColumns = `id, event_id, name, cpf, photo_ref, sectors, supplier_id, sub_company,
	status, block_reason, proposal, wristbands, current_sector_id, last_sector_entry_at,
	checkin_time, checkout_time, checked_in_by, checked_out_by, created_at, updated_at`

func (s *PostgresStore) CreateWithinLimit(ctx context.Context, a *models.Attendee, limit int) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		// One advisory lock per event serializes registrations for that
		// event, closing the race window for both the CPF check and the
		// supplier counter without locking unrelated events.
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
			"attendee-registration:"+a.EventID.String()); err != nil {
			return fmt.Errorf("acquire registration lock: %w", err)
		}

		var (
			holderID   uuid.UUID
			holderName string
		)
		err := tx.QueryRow(ctx,
			`SELECT id, name FROM attendees
			 WHERE event_id = $1 AND cpf = $2 AND status NOT IN ('CANCELLED', 'REJECTED')
			 LIMIT 1`,
			uuid.UUID(a.EventID), a.CPF.String()).Scan(&holderID, &holderName)
		if err == nil {
			return &DuplicateCPFError{EventID: a.EventID, AttendeeID: domain.AttendeeID(holderID), Name: holderName}
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("check cpf: %w", err)
		}

		if !a.SupplierID.IsNil() && limit >= 0 {
			var count int
			err := tx.QueryRow(ctx,
				`SELECT count(*) FROM attendees
				 WHERE event_id = $1 AND supplier_id = $2 AND status NOT IN ('CANCELLED', 'REJECTED')`,
				uuid.UUID(a.EventID), uuid.UUID(a.SupplierID)).Scan(&count)
			if err != nil {
				return fmt.Errorf("count supplier registrations: %w", err)
			}
			if count >= limit {
				return sentinel.ErrLimitReached
			}
		}

		if err := insertAttendee(ctx, tx, a); err != nil {
			return err
		}
		// Pre-assigned wristbands enter the sector namespace at registration.
		return s.issueWristbands(ctx, tx, a.EventID, a.ID, a.Wristbands)
	})
}

// issueWristbands claims codes in the per-sector namespace. A primary-key
// violation means another credential already holds the code.
func (s *PostgresStore) issueWristbands(ctx context.Context, tx pgx.Tx, eventID domain.EventID,
	attendeeID domain.AttendeeID, wristbands map[domain.SectorID]domain.WristbandCode) error {
	for sectorID, code := range wristbands {
		_, err := tx.Exec(ctx,
			`INSERT INTO wristbands (event_id, sector_id, code, attendee_id) VALUES ($1, $2, $3, $4)`,
			uuid.UUID(eventID), uuid.UUID(sectorID), code.String(), uuid.UUID(attendeeID))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				holder := s.wristbandHolder(ctx, eventID, sectorID, code)
				return &WristbandConflictError{SectorID: sectorID, Code: code, HolderID: holder}
			}
			return fmt.Errorf("issue wristband: %w", err)
		}
	}
	return nil
}

func insertAttendee(ctx context.Context, tx pgx.Tx, a *models.Attendee) error {
	sectors, proposal, wristbands, err := marshalJSONFields(a)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO attendees (`+attendeeColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		uuid.UUID(a.ID), uuid.UUID(a.EventID), a.Name, a.CPF.String(), a.PhotoRef, sectors,
		nullableUUID(uuid.UUID(a.SupplierID)), a.SubCompany, string(a.Status), a.BlockReason,
		proposal, wristbands, nullableUUID(uuid.UUID(a.CurrentSectorID)), a.LastSectorEntryAt,
		a.CheckinTime, a.CheckoutTime, a.CheckedInBy, a.CheckedOutBy, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert attendee: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attendeeColumns+` FROM attendees WHERE event_id = $1 AND id = $2`,
		uuid.UUID(eventID), uuid.UUID(attendeeID))
	return scanAttendee(row)
}

func (s *PostgresStore) FindActiveByCPF(ctx context.Context, eventID domain.EventID, cpf domain.CPF) (*models.Attendee, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attendeeColumns+` FROM attendees
		 WHERE event_id = $1 AND cpf = $2 AND status NOT IN ('CANCELLED', 'REJECTED')
		 LIMIT 1`,
		uuid.UUID(eventID), cpf.String())
	return scanAttendee(row)
}

func (s *PostgresStore) FindByWristband(ctx context.Context, eventID domain.EventID, code domain.WristbandCode) (*models.Attendee, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+attendeeColumns+` FROM attendees
		 WHERE id = (SELECT attendee_id FROM wristbands WHERE event_id = $1 AND code = $2 LIMIT 1)`,
		uuid.UUID(eventID), code.String())
	return scanAttendee(row)
}

func (s *PostgresStore) List(ctx context.Context, eventID domain.EventID, filter Filter) ([]*models.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE event_id = $1`
	args := []any{uuid.UUID(eventID)}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if !filter.SupplierID.IsNil() {
		args = append(args, uuid.UUID(filter.SupplierID))
		query += fmt.Sprintf(" AND supplier_id = $%d", len(args))
	}
	if !filter.SectorID.IsNil() {
		args = append(args, filter.SectorID.String())
		query += fmt.Sprintf(" AND sectors @> to_jsonb(ARRAY[$%d::text])", len(args))
	}
	query += " ORDER BY created_at"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()
	return scanAttendees(rows)
}

func (s *PostgresStore) SearchByCPF(ctx context.Context, cpf domain.CPF) ([]*models.Attendee, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+attendeeColumns+` FROM attendees WHERE cpf = $1 ORDER BY created_at`,
		cpf.String())
	if err != nil {
		return nil, fmt.Errorf("search by cpf: %w", err)
	}
	defer rows.Close()
	return scanAttendees(rows)
}

func (s *PostgresStore) Execute(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID,
	validate func(*models.Attendee) error, mutate func(*models.Attendee)) (*models.Attendee, error) {
	var out *models.Attendee
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		a, err := lockAttendee(ctx, tx, eventID, attendeeID)
		if err != nil {
			return err
		}
		if err := validate(a); err != nil {
			return err
		}
		mutate(a)
		if err := updateAttendee(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) CheckIn(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID,
	wristbands map[domain.SectorID]domain.WristbandCode, role domain.Role, by string, now time.Time) (*models.Attendee, error) {
	var out *models.Attendee
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		a, err := lockAttendee(ctx, tx, eventID, attendeeID)
		if err != nil {
			return err
		}
		if err := a.CanCheckIn(role, wristbands); err != nil {
			return err
		}
		if a.Status != models.StatusCheckedOut {
			// Only codes not already held by this credential are new to the
			// namespace; pre-assigned ones were inserted at registration.
			fresh := make(map[domain.SectorID]domain.WristbandCode, len(wristbands))
			for sectorID, code := range wristbands {
				if held, ok := a.Wristbands[sectorID]; !ok || held != code {
					fresh[sectorID] = code
				}
			}
			if err := s.issueWristbands(ctx, tx, eventID, attendeeID, fresh); err != nil {
				return err
			}
		}
		a.ApplyCheckIn(wristbands, by, now)
		if err := updateAttendee(ctx, tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// wristbandHolder looks up who holds a colliding code, outside the failed
// transaction. Best effort: a nil holder still reports the collision.
func (s *PostgresStore) wristbandHolder(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID, code domain.WristbandCode) domain.AttendeeID {
	var holder uuid.UUID
	_ = s.pool.QueryRow(ctx,
		`SELECT attendee_id FROM wristbands WHERE event_id = $1 AND sector_id = $2 AND code = $3`,
		uuid.UUID(eventID), uuid.UUID(sectorID), code.String()).Scan(&holder)
	return domain.AttendeeID(holder)
}

func (s *PostgresStore) Delete(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM attendees WHERE event_id = $1 AND id = $2`,
		uuid.UUID(eventID), uuid.UUID(attendeeID))
	if err != nil {
		return fmt.Errorf("delete attendee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountActiveBySupplier(ctx context.Context, eventID domain.EventID, supplierID domain.SupplierID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM attendees
		 WHERE event_id = $1 AND supplier_id = $2 AND status NOT IN ('CANCELLED', 'REJECTED')`,
		uuid.UUID(eventID), uuid.UUID(supplierID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count supplier registrations: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) CountBySector(ctx context.Context, eventID domain.EventID, sectorID domain.SectorID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM attendees WHERE event_id = $1 AND sectors @> to_jsonb(ARRAY[$2::text])`,
		uuid.UUID(eventID), sectorID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count sector references: %w", err)
	}
	return count, nil
}

// ---------------------------------------------------------------------------
// Row mapping
// ---------------------------------------------------------------------------

func lockAttendee(ctx context.Context, tx pgx.Tx, eventID domain.EventID, attendeeID domain.AttendeeID) (*models.Attendee, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+attendeeColumns+` FROM attendees WHERE event_id = $1 AND id = $2 FOR UPDATE`,
		uuid.UUID(eventID), uuid.UUID(attendeeID))
	return scanAttendee(row)
}

func updateAttendee(ctx context.Context, tx pgx.Tx, a *models.Attendee) error {
	sectors, proposal, wristbands, err := marshalJSONFields(a)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		`UPDATE attendees SET
			name = $3, cpf = $4, photo_ref = $5, sectors = $6, supplier_id = $7, sub_company = $8,
			status = $9, block_reason = $10, proposal = $11, wristbands = $12,
			current_sector_id = $13, last_sector_entry_at = $14, checkin_time = $15,
			checkout_time = $16, checked_in_by = $17, checked_out_by = $18, updated_at = $19
		 WHERE event_id = $1 AND id = $2`,
		uuid.UUID(a.EventID), uuid.UUID(a.ID), a.Name, a.CPF.String(), a.PhotoRef, sectors,
		nullableUUID(uuid.UUID(a.SupplierID)), a.SubCompany, string(a.Status), a.BlockReason,
		proposal, wristbands, nullableUUID(uuid.UUID(a.CurrentSectorID)), a.LastSectorEntryAt,
		a.CheckinTime, a.CheckoutTime, a.CheckedInBy, a.CheckedOutBy, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update attendee: %w", err)
	}
	// Released wristbands (undo check-in, substitution) leave the namespace.
	if len(a.Wristbands) == 0 {
		if _, err := tx.Exec(ctx, `DELETE FROM wristbands WHERE attendee_id = $1`, uuid.UUID(a.ID)); err != nil {
			return fmt.Errorf("release wristbands: %w", err)
		}
	}
	return nil
}

func marshalJSONFields(a *models.Attendee) (sectors, proposal, wristbands []byte, err error) {
	sectors, err = json.Marshal(a.Sectors)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal sectors: %w", err)
	}
	if a.Proposal != nil {
		proposal, err = json.Marshal(a.Proposal)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal proposal: %w", err)
		}
	}
	if a.Wristbands != nil {
		wristbands, err = json.Marshal(a.Wristbands)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal wristbands: %w", err)
		}
	}
	return sectors, proposal, wristbands, nil
}

func nullableUUID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendee(row rowScanner) (*models.Attendee, error) {
	var (
		a                 models.Attendee
		id, eventID       uuid.UUID
		cpf, status       string
		sectors           []byte
		proposal          []byte
		wristbands        []byte
		supplierID        *uuid.UUID
		currentSectorID   *uuid.UUID
		lastSectorEntryAt *time.Time
	)
	err := row.Scan(&id, &eventID, &a.Name, &cpf, &a.PhotoRef, &sectors, &supplierID, &a.SubCompany,
		&status, &a.BlockReason, &proposal, &wristbands, &currentSectorID, &lastSectorEntryAt,
		&a.CheckinTime, &a.CheckoutTime, &a.CheckedInBy, &a.CheckedOutBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan attendee: %w", err)
	}
	a.ID = domain.AttendeeID(id)
	a.EventID = domain.EventID(eventID)
	a.CPF = domain.CPF(cpf)
	a.Status = models.CheckinStatus(status)
	if supplierID != nil {
		a.SupplierID = domain.SupplierID(*supplierID)
	}
	if currentSectorID != nil {
		a.CurrentSectorID = domain.SectorID(*currentSectorID)
	}
	a.LastSectorEntryAt = lastSectorEntryAt
	if err := json.Unmarshal(sectors, &a.Sectors); err != nil {
		return nil, fmt.Errorf("unmarshal sectors: %w", err)
	}
	if len(proposal) > 0 {
		a.Proposal = &models.Proposal{}
		if err := json.Unmarshal(proposal, a.Proposal); err != nil {
			return nil, fmt.Errorf("unmarshal proposal: %w", err)
		}
	}
	if len(wristbands) > 0 {
		if err := json.Unmarshal(wristbands, &a.Wristbands); err != nil {
			return nil, fmt.Errorf("unmarshal wristbands: %w", err)
		}
	}
	return &a, nil
}

func scanAttendees(rows pgx.Rows) ([]*models.Attendee, error) {
	var out []*models.Attendee
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendees: %w", err)
	}
	return out, nil
}
