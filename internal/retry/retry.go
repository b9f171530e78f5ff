package retry

import (
	"context"
	"errors"
	"time"
)

// リトライ可能エラーが実装する能力。
// エラーコードの文字列比較ではなく、エラー自身に判断させる。
type Retryable interface {
	Retryable() bool
}

// errがリトライ許可を申告しているかどうか
func IsRetryable(err error) bool {
	var r Retryable
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

const baseDelay = 100 * time.Millisecond

// opを最大maxRetries回までリトライ付きで実行する。
// リトライするのはIsRetryableなエラーだけで、それ以外は即座に返す。
// 待ち時間は 100ms * 2^(attempt-1)。使い切ったら最後のエラーを返す。
func Do(ctx context.Context, maxRetries int, op func() error) error {
	var lastErr error

	for attempt := 0; ; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt >= maxRetries {
			return lastErr
		}

		delay := baseDelay << attempt

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
