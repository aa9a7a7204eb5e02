package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// RedisIndex shares the CPF namespace across service instances. Claims are
// JSON values under a per-CPF key; claim and release are atomic via SETNX
// and a compare-and-delete script.
type RedisIndex struct {
	client *redis.Client
}

func NewRedisIndex(client *redis.Client) *RedisIndex {
	return &RedisIndex{client: client}
}

func key(cpf domain.CPF) string { return "gatepass:cpf:" + cpf.String() }

// releaseScript deletes the key only when the stored claim belongs to the
// releasing attendee, so a stale release never frees someone else's claim.
var releaseScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then return 0 end
local claim = cjson.decode(current)
if claim['attendee_id'] == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

func (i *RedisIndex) Claim(ctx context.Context, cpf domain.CPF, claim Claim) error {
	payload, err := json.Marshal(claim)
	if err != nil {
		return fmt.Errorf("marshal claim: %w", err)
	}
	ok, err := i.client.SetNX(ctx, key(cpf), payload, 0).Result()
	if err != nil {
		return fmt.Errorf("claim cpf: %w", err)
	}
	if ok {
		return nil
	}
	existing, err := i.Lookup(ctx, cpf)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Holder released between SETNX and GET; retry once.
			return i.Claim(ctx, cpf, claim)
		}
		return err
	}
	if existing.AttendeeID == claim.AttendeeID {
		return nil
	}
	return fmt.Errorf("cpf held by %q in event %s: %w", existing.Name, existing.EventID, sentinel.ErrConflict)
}

func (i *RedisIndex) Lookup(ctx context.Context, cpf domain.CPF) (*Claim, error) {
	payload, err := i.client.Get(ctx, key(cpf)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lookup cpf: %w", err)
	}
	var claim Claim
	if err := json.Unmarshal(payload, &claim); err != nil {
		return nil, fmt.Errorf("unmarshal claim: %w", err)
	}
	return &claim, nil
}

func (i *RedisIndex) Release(ctx context.Context, cpf domain.CPF, attendeeID domain.AttendeeID) error {
	if err := releaseScript.Run(ctx, i.client, []string{key(cpf)}, attendeeID.String()).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release cpf: %w", err)
	}
	return nil
}
