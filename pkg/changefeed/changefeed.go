// Package changefeed exports committed local store writes to other processes.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sn_trace "nework/pkg/trace"

	"go.opentelemetry.io/otel/trace"
)

type Op string

const (
	OP_UPSERT Op = "upsert"
	OP_SYNC   Op = "sync"
	OP_REMOVE Op = "remove"
)

type Change struct {
	Table     string  `json:"table"`
	Op        Op      `json:"op"`
	IDs       []int64 `json:"ids"`
	Evicted   []int64 `json:"evicted,omitempty"`
	Timestamp int64   `json:"timestamp"`
	// tracing
	SpanContext sn_trace.SpanContext `json:"span_context"`
}

type Publisher interface {
	Publish(ctx context.Context, change Change) error
}

// Nop discards every change
type Nop struct{}

func (Nop) Publish(context.Context, Change) error { return nil }

// NewChange stamps a change with the time and the span of ctx
func NewChange(ctx context.Context, table string, op Op, ids []int64) Change {
	return Change{
		Table:       table,
		Op:          op,
		IDs:         ids,
		Timestamp:   time.Now().UnixMilli(),
		SpanContext: sn_trace.BuildSpanContext(trace.SpanContextFromContext(ctx)),
	}
}

func Encode(change Change) ([]byte, error) {
	return json.Marshal(change)
}

// Decode parses a published change and returns a context carrying the
// publisher's span as remote parent
func Decode(ctx context.Context, body []byte) (context.Context, Change, error) {
	var change Change
	if err := json.Unmarshal(body, &change); err != nil {
		return ctx, Change{}, fmt.Errorf("error parsing change: %w", err)
	}
	sc, err := sn_trace.ParseSpanContext(change.SpanContext)
	if err != nil {
		return ctx, Change{}, fmt.Errorf("error parsing change span context: %w", err)
	}
	if sc.IsValid() {
		ctx = trace.ContextWithRemoteSpanContext(ctx, sc)
	}
	return ctx, change, nil
}
