package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

var (
	ErrLockNotAcquired = errors.New("doctor schedule lock not acquired")
)

const retryInterval = 25 * time.Millisecond

// Locker serializes bookings for one doctor on one date so that the
// read-then-insert in a booking does not interleave with another booking
// for the same day.
type Locker interface {
	WithDoctorDayLock(ctx context.Context, doctorID uuid.UUID, date clock.Date, fn func(ctx context.Context) error) error
}

type redisDoctorDayLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisDoctorDayLocker creates a locker that uses a per doctor-day Redis
// key. A contended lock is retried for up to wait before giving up.
func NewRedisDoctorDayLocker(client *redis.Client, ttl, wait time.Duration) Locker {
	return &redisDoctorDayLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
	}
}

func lockKey(doctorID uuid.UUID, date clock.Date) string {
	return fmt.Sprintf("lock:doctor:%s:%s", doctorID.String(), date.String())
}

func (l *redisDoctorDayLocker) WithDoctorDayLock(ctx context.Context, doctorID uuid.UUID, date clock.Date, fn func(ctx context.Context) error) error {
	key := lockKey(doctorID, date)
	token := uuid.NewString()

	if err := l.acquire(ctx, key, token); err != nil {
		return err
	}

	defer func() {
		// release must run even when ctx is already done
		_ = l.release(context.WithoutCancel(ctx), key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

func (l *redisDoctorDayLocker) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return fmt.Errorf("acquire doctor schedule lock: %w", err)
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrLockNotAcquired
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisDoctorDayLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release doctor schedule lock: %w", err)
	}
	return nil
}

type nopLocker struct{}

// NewNopLocker returns a Locker that runs fn directly. The store's unique
// constraint still prevents double booking without it.
func NewNopLocker() Locker {
	return nopLocker{}
}

func (nopLocker) WithDoctorDayLock(ctx context.Context, _ uuid.UUID, _ clock.Date, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
