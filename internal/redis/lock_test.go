package redisclient

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/medical-appointment-scheduler/internal/clock"
)

var testDate = clock.NewDate(2024, time.May, 6)

func newTestLocker(t *testing.T, wait time.Duration) (*miniredis.Miniredis, Locker) {
	t.Helper()
	m := miniredis.RunT(t)
	client, err := NewRedisClient(context.Background(), ClientConfig{Addr: m.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return m, NewRedisDoctorDayLocker(client, 5*time.Second, wait)
}

func TestWithDoctorDayLock_ReleasesAfterRun(t *testing.T) {
	m, locker := newTestLocker(t, time.Second)
	doctorID := uuid.New()
	key := lockKey(doctorID, testDate)

	ran := false
	err := locker.WithDoctorDayLock(context.Background(), doctorID, testDate, func(ctx context.Context) error {
		ran = true
		assert.True(t, m.Exists(key))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.False(t, m.Exists(key))
}

func TestWithDoctorDayLock_PropagatesError(t *testing.T) {
	m, locker := newTestLocker(t, time.Second)
	doctorID := uuid.New()
	boom := errors.New("boom")

	err := locker.WithDoctorDayLock(context.Background(), doctorID, testDate, func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, m.Exists(lockKey(doctorID, testDate)))
}

func TestWithDoctorDayLock_GivesUpAfterWait(t *testing.T) {
	m, locker := newTestLocker(t, 60*time.Millisecond)
	doctorID := uuid.New()
	key := lockKey(doctorID, testDate)
	require.NoError(t, m.Set(key, "someone-else"))

	err := locker.WithDoctorDayLock(context.Background(), doctorID, testDate, func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, ErrLockNotAcquired)

	got, _ := m.Get(key)
	assert.Equal(t, "someone-else", got)
}

func TestWithDoctorDayLock_KeysAreDoctorDayScoped(t *testing.T) {
	m, locker := newTestLocker(t, 60*time.Millisecond)
	doctorID := uuid.New()
	require.NoError(t, m.Set(lockKey(doctorID, testDate), "someone-else"))

	err := locker.WithDoctorDayLock(context.Background(), doctorID, testDate.AddDays(1), func(context.Context) error { return nil })
	assert.NoError(t, err)

	err = locker.WithDoctorDayLock(context.Background(), uuid.New(), testDate, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestWithDoctorDayLock_DoesNotReleaseForeignToken(t *testing.T) {
	m, locker := newTestLocker(t, time.Second)
	doctorID := uuid.New()
	key := lockKey(doctorID, testDate)

	err := locker.WithDoctorDayLock(context.Background(), doctorID, testDate, func(context.Context) error {
		// simulate expiry and takeover by another holder
		return m.Set(key, "next-holder")
	})
	require.NoError(t, err)

	got, _ := m.Get(key)
	assert.Equal(t, "next-holder", got)
}

func TestWithDoctorDayLock_Serializes(t *testing.T) {
	_, locker := newTestLocker(t, 2*time.Second)
	doctorID := uuid.New()

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locker.WithDoctorDayLock(context.Background(), doctorID, testDate, func(context.Context) error {
				n := atomic.AddInt32(&active, 1)
				for {
					old := atomic.LoadInt32(&maxActive)
					if n <= old || atomic.CompareAndSwapInt32(&maxActive, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&active, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
}

func TestNopLocker(t *testing.T) {
	ran := false
	err := NewNopLocker().WithDoctorDayLock(context.Background(), uuid.New(), testDate, func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
