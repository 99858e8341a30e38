package mediacache

import (
	"context"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"nework/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	a := Key([]byte("one"))
	assert.Equal(t, a, Key([]byte("one")))
	assert.NotEqual(t, a, Key([]byte("two")))
	assert.True(t, strings.HasPrefix(a, "media:"))
	assert.NotContains(t, a, " ")
	assert.LessOrEqual(t, len(a), 250)
}

func TestNopNeverHits(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, Nop{}.Set(ctx, []byte("x"), "https://cdn/x"))
	_, ok, err := Nop{}.Get(ctx, []byte("x"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemcached(t *testing.T) {
	addr := os.Getenv("NEWORK_TEST_MEMCACHED")
	if addr == "" {
		t.Skip("NEWORK_TEST_MEMCACHED not set")
	}
	host, portStr, _ := strings.Cut(addr, ":")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ctx := context.Background()
	cache := NewMemcached(storage.MemCachedClient(host, port), time.Minute)
	data := []byte("media-" + strconv.FormatInt(time.Now().UnixNano(), 10))

	_, ok, err := cache.Get(ctx, data)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, data, "https://cdn/file.png"))
	url, ok, err := cache.Get(ctx, data)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://cdn/file.png", url)
}
