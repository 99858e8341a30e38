package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisClientAddr(t *testing.T) {
	client := RedisClient("localhost", 6379)
	defer client.Close()
	assert.Equal(t, "localhost:6379", client.Options().Addr)

	v6 := RedisClient("::1", 6380)
	defer v6.Close()
	assert.Equal(t, "[::1]:6380", v6.Options().Addr)
}
