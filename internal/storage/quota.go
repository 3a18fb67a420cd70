package storage

import (
	"context"
	"fmt"
)

type quotaKV struct {
	KV
	max int
}

// WithQuota wraps kv so that writes larger than maxBytes fail with
// ErrQuotaExceeded, the way a browser's storage quota does. A non-positive
// maxBytes returns kv unchanged.
func WithQuota(kv KV, maxBytes int) KV {
	if maxBytes <= 0 {
		return kv
	}
	return &quotaKV{KV: kv, max: maxBytes}
}

func (q *quotaKV) Set(ctx context.Context, key string, value []byte) error {
	if len(value) > q.max {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrQuotaExceeded, len(value), q.max)
	}
	return q.KV.Set(ctx, key, value)
}
