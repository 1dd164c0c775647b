package storage

import (
	"context"
	"strings"
	"time"
)

const keySeparator = ":"

// SessionKey builds "<namespace>:<sessionID>:<key>".
func SessionKey(namespace, sessionID, key string) string {
	return strings.Join([]string{namespace, sessionID, key}, keySeparator)
}

// Scoped prefixes every key with a session prefix and bounds each call with
// a timeout. Callers work with logical keys such as "navigation-state".
type Scoped struct {
	kv        KV
	namespace string
	sessionID string
	timeout   time.Duration
}

func NewScoped(kv KV, namespace, sessionID string, timeout time.Duration) *Scoped {
	return &Scoped{kv: kv, namespace: namespace, sessionID: sessionID, timeout: timeout}
}

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.kv.Get(ctx, s.key(key))
}

func (s *Scoped) Set(ctx context.Context, key, value string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.kv.Set(ctx, s.key(key), value)
}

func (s *Scoped) Remove(ctx context.Context, keys ...string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = s.key(k)
	}
	return s.kv.Remove(ctx, full...)
}

func (s *Scoped) key(k string) string {
	return SessionKey(s.namespace, s.sessionID, k)
}

func (s *Scoped) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
