package lock

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ロックが取得済みのときのエラー。呼び出し側がリトライするか決める。
type BusyError struct {
	ResourceType string
	ResourceID   int64
}

func (e *BusyError) Error() string {
	return fmt.Sprintf("resource %s:%d is locked", e.ResourceType, e.ResourceID)
}

// リトライ許可（Retry Executorが見る）
func (e *BusyError) Retryable() bool { return true }

// アドバイザリロックの約束。
// Acquireはノンブロッキング（取れなければ即BusyError）。
// Releaseは無条件・冪等。
type Manager interface {
	Acquire(ctx context.Context, resourceType string, resourceID int64) error
	Release(ctx context.Context, resourceType string, resourceID int64) error
}

// ロック保持の上限。超えたものはstale扱いで回収する
const defaultLeaseTTL = time.Hour

const shardCount = 16

type key struct {
	resourceType string
	resourceID   int64
}

type entry struct {
	token    string
	lockedAt time.Time
}

type shard struct {
	mu   sync.Mutex
	held map[key]entry
}

// プロセス内のキー付きミューテックス。
// (resource_type, resource_id) ごとに排他し、リースTTLで自動失効する。
type KeyedMutex struct {
	leaseTTL time.Duration
	shards   [shardCount]shard
}

func NewKeyedMutex() *KeyedMutex {
	return NewKeyedMutexWithTTL(defaultLeaseTTL)
}

func NewKeyedMutexWithTTL(ttl time.Duration) *KeyedMutex {
	m := &KeyedMutex{leaseTTL: ttl}
	for i := range m.shards {
		m.shards[i].held = make(map[key]entry)
	}
	return m
}

func (m *KeyedMutex) shardFor(k key) *shard {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s:%d", k.resourceType, k.resourceID)
	return &m.shards[h.Sum32()%shardCount]
}

// 取得。既に保持されていればBusyError。
// 保持がリースTTLを超えていたらstaleとみなして奪い取る。
func (m *KeyedMutex) Acquire(ctx context.Context, resourceType string, resourceID int64) error {
	k := key{resourceType: resourceType, resourceID: resourceID}
	s := m.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if e, ok := s.held[k]; ok {
		if now.Sub(e.lockedAt) < m.leaseTTL {
			return &BusyError{ResourceType: resourceType, ResourceID: resourceID}
		}
		//リース切れ。クラッシュ残骸として回収する
		delete(s.held, k)
	}

	s.held[k] = entry{token: uuid.NewString(), lockedAt: now}
	return nil
}

// 解放。保持されていなくてもエラーにしない（冪等）
func (m *KeyedMutex) Release(ctx context.Context, resourceType string, resourceID int64) error {
	k := key{resourceType: resourceType, resourceID: resourceID}
	s := m.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.held, k)
	return nil
}

// リース切れロックの一括回収。回収件数を返す
func (m *KeyedMutex) CleanupStale() int {
	now := time.Now()
	removed := 0

	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		for k, e := range s.held {
			if now.Sub(e.lockedAt) >= m.leaseTTL {
				delete(s.held, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// 定期的にCleanupStaleを回す。ctxのキャンセルで止まる
func (m *KeyedMutex) StartJanitor(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.CleanupStale()
			}
		}
	}()
}
