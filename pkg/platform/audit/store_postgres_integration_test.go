//go:build integration

package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatepass/pkg/domain"
	"gatepass/pkg/testutil/containers"
)

func TestPostgresStore_AppendAndList(t *testing.T) {
	ctx := context.Background()
	pg := containers.NewPostgresContainer(t)

	db, err := OpenPostgres(pg.DSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresStore(db)
	require.NoError(t, s.EnsureSchema(ctx))

	eventID := domain.NewEventID()
	attendeeID := domain.NewAttendeeID()
	otherID := domain.NewAttendeeID()
	base := time.Now().UTC().Truncate(time.Microsecond)

	records := []Event{
		{Kind: KindAttendeeRegistered, EventID: eventID, AttendeeID: attendeeID, Actor: "ops", ActorRole: domain.RoleAdmin, Timestamp: base},
		{Kind: KindStatusChanged, EventID: eventID, AttendeeID: attendeeID, Actor: "gate-1", ActorRole: domain.RoleStaff, Timestamp: base.Add(time.Minute),
			Detail: map[string]string{"from": "PENDING", "to": "CHECKED_IN"}},
		{Kind: KindAttendeeRegistered, EventID: eventID, AttendeeID: otherID, Actor: "ops", ActorRole: domain.RoleAdmin, Timestamp: base},
	}
	for _, e := range records {
		require.NoError(t, s.Append(ctx, e))
	}

	got, err := s.ListByAttendee(ctx, eventID, attendeeID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, KindAttendeeRegistered, got[0].Kind)
	assert.Equal(t, KindStatusChanged, got[1].Kind)
	assert.Equal(t, "gate-1", got[1].Actor)
	assert.Equal(t, domain.RoleStaff, got[1].ActorRole)
	assert.Equal(t, "CHECKED_IN", got[1].Detail["to"])
	assert.True(t, got[1].Timestamp.Equal(base.Add(time.Minute)))

	none, err := s.ListByAttendee(ctx, eventID, domain.NewAttendeeID())
	require.NoError(t, err)
	assert.Empty(t, none)
}
