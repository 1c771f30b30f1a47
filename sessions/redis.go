package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang/snappy"
)

// Redis stores sessions as snappy-compressed JSON under prefix+userID.
// Per-user serialization still comes from Locker, so one bot process per Redis
// keyspace is assumed.
type Redis struct {
	client *redis.Client
	prefix string
	now    func() time.Time

	beforeDelete func(key string) // testes: roda entre a leitura e o delete do Sweep
}

func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

// DialRedis connects to addr and pings it once.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	log.Println("sessions: redis initialized with address:", addr)
	return client, nil
}

func (r *Redis) key(userID string) string {
	return r.prefix + userID
}

func (r *Redis) Get(ctx context.Context, userID string) (State, error) {
	raw, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err == redis.Nil {
		return Initial(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("redis get session: %w", err)
	}
	st, err := decodeState(raw)
	if err != nil {
		// estado corrompido: recomeça do zero
		log.Printf("sessions: dropping unreadable session %s: %v", userID, err)
		return Initial(), nil
	}
	return st, nil
}

func (r *Redis) Put(ctx context.Context, userID string, st State) error {
	st.LastActivity = r.now()
	raw, err := encodeState(st)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(userID), raw, 0).Err(); err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis clear session: %w", err)
	}
	return nil
}

// Sweep removes sessions idle for longer than idle. Each key is checked and deleted
// under WATCH, so a Put that lands between the read and the delete aborts the
// delete instead of losing the fresh state.
func (r *Redis) Sweep(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := r.now().Add(-idle)
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.prefix+"*", 200).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan sessions: %w", err)
		}
		for _, k := range keys {
			ok, err := r.sweepKey(ctx, k, cutoff)
			if err != nil {
				return removed, err
			}
			if ok {
				removed++
			}
		}
		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

func (r *Redis) sweepKey(ctx context.Context, key string, cutoff time.Time) (bool, error) {
	deleted := false
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		if !staleSession(raw, cutoff) {
			return nil
		}
		if r.beforeDelete != nil {
			r.beforeDelete(key)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}, key)
	if err == redis.TxFailedErr {
		// alguém escreveu na sessão no meio do caminho: ela está ativa
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis sweep %s: %w", key, err)
	}
	return deleted, nil
}

// staleSession reports whether a stored payload is unreadable or last written before cutoff.
func staleSession(raw []byte, cutoff time.Time) bool {
	st, err := decodeState(raw)
	return err != nil || st.LastActivity.Before(cutoff)
}

func encodeState(st State) ([]byte, error) {
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return snappy.Encode(nil, b), nil
}

func decodeState(raw []byte) (State, error) {
	b, err := snappy.Decode(nil, raw)
	if err != nil {
		return State{}, fmt.Errorf("decompress session: %w", err)
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return State{}, fmt.Errorf("decode session: %w", err)
	}
	if st.Step == "" {
		st.Step = StepInit
	}
	return st, nil
}
