package storage

import (
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient does not dial; an unreachable server surfaces on the first command
func RedisClient(address string, port int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(address, strconv.Itoa(port)),
		DialTimeout: 5 * time.Second,
	})
}
