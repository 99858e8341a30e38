// Package repository turns remote api calls into local store updates and
// exposes the store as session-aware snapshots and streams.
package repository

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"nework/pkg/apperror"
	"nework/pkg/mediacache"
	"nework/pkg/model"
	"nework/pkg/remote"
	"nework/pkg/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrLoggedOut is returned by operations on "my" resources without a session
	ErrLoggedOut = errors.New("no active session")
	// ErrInvalidUser rejects a user id that would select every owner
	ErrInvalidUser = errors.New("invalid user id")
	// ErrUnsupportedMedia rejects an upload that is no image, video or audio
	ErrUnsupportedMedia = errors.New("unsupported media")
)

// Remote is the server api; *remote.Client implements it
type Remote interface {
	Posts(ctx context.Context) ([]model.Post, error)
	Post(ctx context.Context, postID int64) (model.Post, error)
	SavePost(ctx context.Context, post remote.PostRequest) (model.Post, error)
	RemovePost(ctx context.Context, postID int64) error
	LikePost(ctx context.Context, postID int64) (model.Post, error)
	UnlikePost(ctx context.Context, postID int64) (model.Post, error)
	Wall(ctx context.Context, authorID int64) ([]model.Post, error)
	MyWall(ctx context.Context) ([]model.Post, error)

	Events(ctx context.Context) ([]model.Event, error)
	Event(ctx context.Context, eventID int64) (model.Event, error)
	SaveEvent(ctx context.Context, event remote.EventRequest) (model.Event, error)
	RemoveEvent(ctx context.Context, eventID int64) error
	LikeEvent(ctx context.Context, eventID int64) (model.Event, error)
	UnlikeEvent(ctx context.Context, eventID int64) (model.Event, error)
	Participate(ctx context.Context, eventID int64) (model.Event, error)
	Unparticipate(ctx context.Context, eventID int64) (model.Event, error)

	MyJobs(ctx context.Context) ([]model.Job, error)
	SaveJob(ctx context.Context, job remote.JobRequest) (model.Job, error)
	RemoveJob(ctx context.Context, jobID int64) error
	JobsByUser(ctx context.Context, userID int64) ([]model.Job, error)

	Users(ctx context.Context) ([]model.User, error)
	User(ctx context.Context, userID int64) (model.User, error)
	Authenticate(ctx context.Context, login string, password string) (remote.AuthResponse, error)
	Register(ctx context.Context, login string, password string, name string, avatar *model.MediaUpload) (remote.AuthResponse, error)
	Upload(ctx context.Context, media model.MediaUpload) (model.Media, error)
}

var _ Remote = (*remote.Client)(nil)

// Sessions is the current session and its changes; *auth.Holder implements it
type Sessions interface {
	Session() model.Session
	Subscribe(ctx context.Context) <-chan model.Session
}

type Options struct {
	// PruneOnRefresh evicts cached rows that a full listing no longer returns
	PruneOnRefresh bool
}

type Repository struct {
	store    *store.Store
	remote   Remote
	sessions Sessions
	media    mediacache.Cache
	logger   *slog.Logger
	opts     Options
}

func New(st *store.Store, r Remote, sessions Sessions, media mediacache.Cache, logger *slog.Logger, opts Options) *Repository {
	if media == nil {
		media = mediacache.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		store:    st,
		remote:   r,
		sessions: sessions,
		media:    media,
		logger:   logger,
		opts:     opts,
	}
}

// fail classifies err and records it on the span of ctx
func (r *Repository) fail(ctx context.Context, op string, err error) error {
	err = apperror.Classify(err)
	r.logger.Error("error in "+op, "kind", apperror.Kind(err), "msg", err.Error())
	trace.SpanFromContext(ctx).AddEvent(op+" failed",
		trace.WithAttributes(
			attribute.String("error_kind", apperror.Kind(err)),
			attribute.Int("status", apperror.Status(err)),
		))
	return err
}

func (r *Repository) done(ctx context.Context, op string, start time.Time, count int) {
	trace.SpanFromContext(ctx).AddEvent(op,
		trace.WithAttributes(
			attribute.Int("rows", count),
			attribute.Int64(op+"_start_ms", start.UnixMilli()),
			attribute.Int64(op+"_end_ms", time.Now().UnixMilli()),
		))
}

// refresh stores a listing: Sync when pruning full listings, Upsert otherwise
func refresh[T store.Row](ctx context.Context, t *store.Table[T], prune bool, scope store.Scope, rows []T) error {
	if prune {
		return t.Sync(ctx, scope, rows)
	}
	return t.Upsert(ctx, rows...)
}

func mergePreviews(into map[int64]model.UserPreview, from map[int64]model.UserPreview) {
	for id, u := range from {
		into[id] = u
	}
}

// saveUsers upserts the previews embedded in post and event responses.
// A preview carries no login, so a cached login is kept.
func (r *Repository) saveUsers(ctx context.Context, previews map[int64]model.UserPreview) error {
	if len(previews) == 0 {
		return nil
	}
	users := model.Previews(previews)
	for i, u := range users {
		cached, err := r.store.Users.Get(ctx, u.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		users[i].Login = cached.Login
	}
	return r.store.Users.Upsert(ctx, users...)
}

func project[T any](rows []T, s model.Session, fn func(T, model.Session) T) []T {
	out := make([]T, len(rows))
	for i, row := range rows {
		out[i] = fn(row, s)
	}
	return out
}
