// Package store is the local cache: one durable table per entity kind.
//
// Tables are the single source of truth for readers. Every committed write
// bumps the table version, and watchers re-read the table when it changes.
package store

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nework/pkg/changefeed"
	"nework/pkg/flow"
	sn_metrics "nework/pkg/metrics"
	"nework/pkg/model"
)

const (
	POSTS  = "posts"
	EVENTS = "events"
	JOBS   = "jobs"
	USERS  = "users"
)

var ErrNotFound = errors.New("not found in local store")

// Row is an entity addressable by id and grouped by owner
type Row interface {
	Key() int64
	Owner() int64
}

// Scope selects the rows of one owner, or all rows when Owner is zero
type Scope struct {
	Owner int64
}

var All = Scope{}

func OwnedBy(id int64) Scope {
	return Scope{Owner: id}
}

type Options struct {
	Publisher changefeed.Publisher
	Logger    *slog.Logger
}

type Store struct {
	Posts  *Table[model.Post]
	Events *Table[model.Event]
	Jobs   *Table[model.Job]
	Users  *Table[model.User]
}

type backend[T Row] interface {
	upsert(ctx context.Context, rows []T) error
	// sync returns the ids it evicted
	sync(ctx context.Context, scope Scope, rows []T) ([]int64, error)
	remove(ctx context.Context, id int64) error
	get(ctx context.Context, id int64) (T, error)
	list(ctx context.Context, scope Scope) ([]T, error)
}

type Table[T Row] struct {
	name      string
	backend   backend[T]
	version   *flow.Value[uint64]
	publisher changefeed.Publisher
	logger    *slog.Logger
}

func newTable[T Row](name string, b backend[T], opts Options) *Table[T] {
	publisher := opts.Publisher
	if publisher == nil {
		publisher = changefeed.Nop{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Table[T]{
		name:      name,
		backend:   b,
		version:   flow.New[uint64](0),
		publisher: publisher,
		logger:    logger.With("table", name),
	}
}

func (t *Table[T]) Name() string {
	return t.name
}

// Upsert replaces every given row by id, whole rows only
func (t *Table[T]) Upsert(ctx context.Context, rows ...T) error {
	if len(rows) == 0 {
		return nil
	}
	if err := t.backend.upsert(ctx, rows); err != nil {
		t.logger.Error("error upserting rows", "msg", err.Error())
		return err
	}
	t.committed(ctx, changefeed.NewChange(ctx, t.name, changefeed.OP_UPSERT, keys(rows)))
	return nil
}

// Sync upserts rows and evicts the rows of scope that are not among them
func (t *Table[T]) Sync(ctx context.Context, scope Scope, rows []T) error {
	evicted, err := t.backend.sync(ctx, scope, rows)
	if err != nil {
		t.logger.Error("error syncing rows", "owner", scope.Owner, "msg", err.Error())
		return err
	}
	change := changefeed.NewChange(ctx, t.name, changefeed.OP_SYNC, keys(rows))
	change.Evicted = evicted
	t.committed(ctx, change)
	return nil
}

// Remove deletes the row; a missing row is not an error
func (t *Table[T]) Remove(ctx context.Context, id int64) error {
	if err := t.backend.remove(ctx, id); err != nil {
		t.logger.Error("error removing row", "id", id, "msg", err.Error())
		return err
	}
	t.committed(ctx, changefeed.NewChange(ctx, t.name, changefeed.OP_REMOVE, []int64{id}))
	return nil
}

// Get returns ErrNotFound when no row has the id
func (t *Table[T]) Get(ctx context.Context, id int64) (T, error) {
	return t.backend.get(ctx, id)
}

// List returns the rows of scope, newest id first
func (t *Table[T]) List(ctx context.Context, scope Scope) ([]T, error) {
	return t.backend.list(ctx, scope)
}

// Watch emits the rows of scope now and after every committed write.
// Snapshots are conflated. The channel is closed once ctx is done.
func (t *Table[T]) Watch(ctx context.Context, scope Scope) <-chan []T {
	out := make(chan []T, 1)
	versions := t.version.Subscribe(ctx)
	go func() {
		defer close(out)
		for range versions {
			rows, err := t.backend.list(ctx, scope)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				t.logger.Error("error reading rows for watcher", "msg", err.Error())
				continue
			}
			flow.Emit(out, rows)
		}
	}()
	return out
}

func (t *Table[T]) committed(ctx context.Context, change changefeed.Change) {
	sn_metrics.StoreWrites.Get(sn_metrics.TableLabel{Table: t.name, Op: string(change.Op)}).Inc()
	t.version.Update(func(v uint64) uint64 { return v + 1 })

	// the write is durable already, a lost notification only affects other processes
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := t.publisher.Publish(pubCtx, change); err != nil {
		sn_metrics.ChangesDropped.Inc()
		t.logger.Warn("error publishing change", "op", change.Op, "msg", err.Error())
	}
}

func keys[T Row](rows []T) []int64 {
	ids := make([]int64, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Key())
	}
	return ids
}
