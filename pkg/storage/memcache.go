package storage

import (
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
)

func MemCachedClient(address string, port int) *memcache.Client {
	client := memcache.New(fmt.Sprintf("%s:%d", address, port))
	client.MaxIdleConns = 16
	return client
}
