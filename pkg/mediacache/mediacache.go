// Package mediacache remembers the server url of uploaded media by content,
// so the same file is not uploaded twice.
package mediacache

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

const DEFAULT_TTL = 24 * time.Hour

type Cache interface {
	// Get reports false on a miss
	Get(ctx context.Context, data []byte) (string, bool, error)
	Set(ctx context.Context, data []byte, url string) error
}

// Key is the cache key of a media file
func Key(data []byte) string {
	sum := sha1.Sum(data)
	return "media:" + base64.RawURLEncoding.EncodeToString(sum[:])
}

// Nop never hits
type Nop struct{}

func (Nop) Get(context.Context, []byte) (string, bool, error) { return "", false, nil }
func (Nop) Set(context.Context, []byte, string) error         { return nil }

type Memcached struct {
	client *memcache.Client
	ttl    time.Duration
}

func NewMemcached(client *memcache.Client, ttl time.Duration) *Memcached {
	if ttl <= 0 {
		ttl = DEFAULT_TTL
	}
	return &Memcached{client: client, ttl: ttl}
}

func (m *Memcached) Get(_ context.Context, data []byte) (string, bool, error) {
	item, err := m.client.Get(Key(data))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("error reading media cache: %w", err)
	}
	return string(item.Value), true, nil
}

func (m *Memcached) Set(_ context.Context, data []byte, url string) error {
	err := m.client.Set(&memcache.Item{
		Key:        Key(data),
		Value:      []byte(url),
		Expiration: int32(m.ttl.Seconds()),
	})
	if err != nil {
		return fmt.Errorf("error writing media cache: %w", err)
	}
	return nil
}
