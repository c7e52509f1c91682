package desk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const maxUpdateAttempts = 5

// Store keeps drafts in Redis as JSON documents with a sliding TTL.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore constructs a draft store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Store{client: client, ttl: ttl, now: time.Now}
}

func draftKey(tenant, id string) string {
	return fmt.Sprintf("billdesk:%s:draft:%s", tenant, id)
}

// Create persists a fresh draft for tenant.
func (s *Store) Create(ctx context.Context, tenant string) (Draft, error) {
	d := NewDraft(tenant, s.now().UTC())
	raw, err := json.Marshal(d)
	if err != nil {
		return Draft{}, err
	}
	if err := s.client.Set(ctx, draftKey(tenant, d.ID), raw, s.ttl).Err(); err != nil {
		return Draft{}, fmt.Errorf("desk: store draft: %w", err)
	}
	return d, nil
}

// Get loads a draft and extends its TTL.
func (s *Store) Get(ctx context.Context, tenant, id string) (Draft, error) {
	raw, err := s.client.GetEx(ctx, draftKey(tenant, id), s.ttl).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, ErrDraftNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("desk: load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return Draft{}, fmt.Errorf("desk: decode draft: %w", err)
	}
	return d, nil
}

// Delete removes a draft.
func (s *Store) Delete(ctx context.Context, tenant, id string) error {
	n, err := s.client.Del(ctx, draftKey(tenant, id)).Result()
	if err != nil {
		return fmt.Errorf("desk: delete draft: %w", err)
	}
	if n == 0 {
		return ErrDraftNotFound
	}
	return nil
}

// Update applies fn to the stored draft under optimistic locking. fn errors
// abort the update and leave the stored draft untouched.
func (s *Store) Update(ctx context.Context, tenant, id string, fn func(*Draft) error) (Draft, error) {
	key := draftKey(tenant, id)
	var out Draft
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrDraftNotFound
		}
		if err != nil {
			return err
		}
		var d Draft
		if err := json.Unmarshal(raw, &d); err != nil {
			return fmt.Errorf("desk: decode draft: %w", err)
		}
		if err := fn(&d); err != nil {
			return err
		}
		d.UpdatedAt = s.now().UTC()
		enc, err := json.Marshal(d)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, enc, s.ttl)
			return nil
		})
		if err == nil {
			out = d
		}
		return err
	}

	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return Draft{}, err
		}
		return out, nil
	}
	return Draft{}, ErrConcurrentUpdate
}
