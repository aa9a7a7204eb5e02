//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"gatepass/pkg/domain"
	"gatepass/pkg/testutil/containers"
)

func TestKafkaPublisher(t *testing.T) {
	ctx := context.Background()
	rp := containers.NewRedpandaContainer(t)

	const topic = "gatepass.audit.test"
	pub, err := NewKafkaPublisher(ctx, []string{rp.Broker}, topic, slog.Default())
	require.NoError(t, err)

	attendeeID := domain.NewAttendeeID()
	event := Event{
		Kind:       KindStatusChanged,
		EventID:    domain.NewEventID(),
		AttendeeID: attendeeID,
		Actor:      "gate-1",
		ActorRole:  domain.RoleStaff,
		Timestamp:  time.Now().UTC(),
		Detail:     map[string]string{"from": "PENDING", "to": "CHECKED_IN"},
	}
	require.NoError(t, pub.Emit(ctx, event))

	// Close flushes the async produce before we consume.
	require.NoError(t, pub.Close(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	fetches := consumer.PollFetches(fetchCtx)
	require.NoError(t, fetches.Err())

	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, attendeeID.String(), string(records[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, KindStatusChanged, got.Kind)
	assert.Equal(t, attendeeID, got.AttendeeID)
	assert.Equal(t, "CHECKED_IN", got.Detail["to"])
}
