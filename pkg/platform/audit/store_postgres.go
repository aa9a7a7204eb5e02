package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	// Registers the postgres driver for database/sql.
	_ "github.com/lib/pq"

	"gatepass/pkg/domain"
)

// PostgresStore persists the audit trail via database/sql with the lib/pq
// driver. The trail is insert-only; there is no update path.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres opens a database/sql handle on the lib/pq driver.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	return db, nil
}

const auditSchema = `
CREATE TABLE IF NOT EXISTS audit_events (
	id          BIGSERIAL PRIMARY KEY,
	kind        TEXT NOT NULL,
	event_id    UUID NOT NULL,
	attendee_id UUID,
	actor       TEXT NOT NULL DEFAULT '',
	actor_role  TEXT NOT NULL DEFAULT '',
	ts          TIMESTAMPTZ NOT NULL,
	detail      JSONB
);
CREATE INDEX IF NOT EXISTS audit_events_attendee_idx ON audit_events (event_id, attendee_id);
`

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, auditSchema); err != nil {
		return fmt.Errorf("ensure audit schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	var detail []byte
	if event.Detail != nil {
		var err error
		detail, err = json.Marshal(event.Detail)
		if err != nil {
			return fmt.Errorf("marshal audit detail: %w", err)
		}
	}
	var attendeeID any
	if !event.AttendeeID.IsNil() {
		attendeeID = event.AttendeeID.String()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_events (kind, event_id, attendee_id, actor, actor_role, ts, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(event.Kind), event.EventID.String(), attendeeID,
		event.Actor, string(event.ActorRole), event.Timestamp, detail)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAttendee(ctx context.Context, eventID domain.EventID, attendeeID domain.AttendeeID) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, event_id, attendee_id, actor, actor_role, ts, detail
		 FROM audit_events WHERE event_id = $1 AND attendee_id = $2 ORDER BY id`,
		eventID.String(), attendeeID.String())
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e           Event
			kind        string
			rawEventID  string
			rawAttendee sql.NullString
			role        string
			detail      []byte
		)
		if err := rows.Scan(&kind, &rawEventID, &rawAttendee, &e.Actor, &role, &e.Timestamp, &detail); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Kind = Kind(kind)
		e.ActorRole = domain.Role(role)
		parsedEvent, err := domain.ParseEventID(rawEventID)
		if err != nil {
			return nil, fmt.Errorf("parse audit event id: %w", err)
		}
		e.EventID = parsedEvent
		if rawAttendee.Valid {
			parsedAttendee, err := domain.ParseAttendeeID(rawAttendee.String)
			if err != nil {
				return nil, fmt.Errorf("parse audit attendee id: %w", err)
			}
			e.AttendeeID = parsedAttendee
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal audit detail: %w", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return out, nil
}
