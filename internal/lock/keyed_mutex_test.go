package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedMutex_AcquireAndRelease(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "purchase_order", 1))

	// 二重取得はBusy
	err := m.Acquire(ctx, "purchase_order", 1)
	var busy *BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, "purchase_order", busy.ResourceType)
	assert.Equal(t, int64(1), busy.ResourceID)
	assert.True(t, busy.Retryable())

	// 解放すれば取り直せる
	require.NoError(t, m.Release(ctx, "purchase_order", 1))
	require.NoError(t, m.Acquire(ctx, "purchase_order", 1))
}

func TestKeyedMutex_KeysAreIndependent(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "purchase_order", 1))

	// 別ID・別種別には影響しない
	require.NoError(t, m.Acquire(ctx, "purchase_order", 2))
	require.NoError(t, m.Acquire(ctx, "inventory", 1))
}

func TestKeyedMutex_ReleaseIsIdempotent(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	// 保持していないロックの解放もエラーにならない
	require.NoError(t, m.Release(ctx, "purchase_order", 99))

	require.NoError(t, m.Acquire(ctx, "purchase_order", 99))
	require.NoError(t, m.Release(ctx, "purchase_order", 99))
	require.NoError(t, m.Release(ctx, "purchase_order", 99))
}

func TestKeyedMutex_StaleLeaseIsTakenOver(t *testing.T) {
	m := NewKeyedMutexWithTTL(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "purchase_order", 1))
	time.Sleep(30 * time.Millisecond)

	// リース切れなら奪い取れる
	require.NoError(t, m.Acquire(ctx, "purchase_order", 1))
}

func TestKeyedMutex_CleanupStale(t *testing.T) {
	m := NewKeyedMutexWithTTL(20 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, m.Acquire(ctx, "purchase_order", 1))
	require.NoError(t, m.Acquire(ctx, "purchase_order", 2))

	assert.Equal(t, 0, m.CleanupStale())

	time.Sleep(30 * time.Millisecond)
	require.NoError(t, m.Acquire(ctx, "inventory", 3))

	// 期限切れの2件だけ回収される
	assert.Equal(t, 2, m.CleanupStale())
	err := m.Acquire(ctx, "inventory", 3)
	var busy *BusyError
	assert.ErrorAs(t, err, &busy)
}

func TestKeyedMutex_ConcurrentAcquireSingleWinner(t *testing.T) {
	m := NewKeyedMutex()
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- m.Acquire(ctx, "purchase_order", 7)
		}()
	}
	wg.Wait()
	close(results)

	won := 0
	for err := range results {
		if err == nil {
			won++
		}
	}
	assert.Equal(t, 1, won)
}
