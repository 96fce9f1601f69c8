package otp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newMemoryStore() (*Store, *MemoryBackend, *fakeClock) {
	clock := &fakeClock{now: time.Now()}
	backend := NewMemoryBackend()
	backend.now = clock.Now
	store := NewStore(backend)
	store.now = clock.Now
	return store, backend, clock
}

func TestGenerate(t *testing.T) {
	for _, length := range []int{4, 6, 8} {
		code, err := Generate(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.Regexp(t, `^[0-9]+$`, code)
	}

	code, err := Generate(0)
	require.NoError(t, err)
	assert.Len(t, code, DefaultLength)
}

func TestGenerate_CoversAllDigits(t *testing.T) {
	seen := map[rune]bool{}
	for i := 0; i < 200 && len(seen) < 10; i++ {
		code, err := Generate(6)
		require.NoError(t, err)
		for _, r := range code {
			seen[r] = true
		}
	}
	assert.Len(t, seen, 10)
}

func TestStore_VerifySuccessRemovesEntry(t *testing.T) {
	store, backend, _ := newMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ana@example.com", "123456", 0))

	res, err := store.Verify(ctx, "ana@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, res.Valid)
	assert.Equal(t, CodeVerified, res.Code)
	assert.Equal(t, 0, backend.Len())

	res, err = store.Verify(ctx, "ana@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.Equal(t, CodeNotFound, res.Code)
}

func TestStore_WrongCodesExhaustAttempts(t *testing.T) {
	store, backend, _ := newMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "+14155552671", "123456", time.Minute))

	for i := 1; i <= DefaultMaxAttempts; i++ {
		res, err := store.Verify(ctx, "+14155552671", "000000")
		require.NoError(t, err)
		assert.Equal(t, CodeInvalid, res.Code)
		assert.Equal(t, DefaultMaxAttempts-i, res.RemainingAttempts)
	}
	assert.Equal(t, 1, backend.Len())

	res, err := store.Verify(ctx, "+14155552671", "123456")
	require.NoError(t, err)
	assert.Equal(t, CodeMaxAttempts, res.Code)
	assert.False(t, res.Valid)
	assert.Equal(t, 0, backend.Len())

	res, err = store.Verify(ctx, "+14155552671", "123456")
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, res.Code)
}

func TestStore_ExpiredTakesPrecedence(t *testing.T) {
	store, backend, clock := newMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "ana@example.com", "123456", time.Minute))

	clock.Advance(2 * time.Minute)
	res, err := store.Verify(ctx, "ana@example.com", "123456")

	require.NoError(t, err)
	assert.Equal(t, CodeExpired, res.Code)
	assert.Equal(t, 0, backend.Len())
}

func TestStore_ExpiredBeatsAttemptLimit(t *testing.T) {
	store, _, clock := newMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "id", "123456", time.Minute))
	for i := 0; i < DefaultMaxAttempts; i++ {
		_, err := store.Verify(ctx, "id", "bad")
		require.NoError(t, err)
	}

	clock.Advance(time.Hour)
	res, err := store.Verify(ctx, "id", "123456")
	require.NoError(t, err)
	assert.Equal(t, CodeExpired, res.Code)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, backend, _ := newMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "id", "111111", time.Minute))
	require.NoError(t, store.Save(ctx, "id", "222222", time.Minute))

	assert.Equal(t, 1, backend.Len())
	backend.mu.Lock()
	assert.Len(t, backend.timers, 1)
	backend.mu.Unlock()

	res, err := store.Verify(ctx, "id", "111111")
	require.NoError(t, err)
	assert.Equal(t, CodeInvalid, res.Code)

	res, err = store.Verify(ctx, "id", "222222")
	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestStore_ClearAndInfo(t *testing.T) {
	store, _, _ := newMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.Clear(ctx, "missing"))
	info, err := store.Info(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, store.Save(ctx, "id", "123456", time.Minute))
	_, err = store.Verify(ctx, "id", "000000")
	require.NoError(t, err)

	info, err = store.Info(ctx, "id")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, 1, info.Attempts)
	assert.Equal(t, DefaultMaxAttempts-1, info.RemainingAttempts)
	assert.False(t, info.Expired)

	require.NoError(t, store.Clear(ctx, "id"))
	res, err := store.Verify(ctx, "id", "123456")
	require.NoError(t, err)
	assert.Equal(t, CodeNotFound, res.Code)
}

func TestStore_ConcurrentVerifyCountsEveryAttempt(t *testing.T) {
	store, _, _ := newMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "id", "123456", time.Minute))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = store.Verify(ctx, "id", "bad")
		}()
	}
	wg.Wait()

	info, err := store.Info(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, 3, info.Attempts)
}
