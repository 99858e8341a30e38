package changefeed

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

// NEWORK_TEST_RABBITMQ is host:port of a broker accepting guest/guest
func TestAMQPPublisher(t *testing.T) {
	addr := os.Getenv("NEWORK_TEST_RABBITMQ")
	if addr == "" {
		t.Skip("NEWORK_TEST_RABBITMQ not set")
	}
	host, portStr, _ := strings.Cut(addr, ":")
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	ch, conn, err := storage.RabbitMQClient("guest", "guest", host, port)
	require.NoError(t, err)
	exchange := "nework-test-" + strconv.FormatInt(time.Now().UnixNano(), 10)
	publisher, err := NewAMQPPublisher(ch, conn, exchange)
	require.NoError(t, err)
	defer publisher.Close()
	defer ch.ExchangeDelete(exchange, false, false)

	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(queue.Name, RoutingKey("posts"), exchange, false, nil))
	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, publisher.Publish(ctx, NewChange(ctx, "events", OP_UPSERT, []int64{9})))
	require.NoError(t, publisher.Publish(ctx, NewChange(ctx, "posts", OP_REMOVE, []int64{3})))

	select {
	case d := <-deliveries:
		_, change, err := Decode(ctx, d.Body)
		require.NoError(t, err)
		assert.Equal(t, "posts", change.Table)
		assert.Equal(t, OP_REMOVE, change.Op)
		assert.Equal(t, []int64{3}, change.IDs)
	case <-time.After(5 * time.Second):
		t.Fatal("no change delivered")
	}
}
