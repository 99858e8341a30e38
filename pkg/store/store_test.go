package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"nework/pkg/changefeed"
	"nework/pkg/model"
	"nework/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	changes []changefeed.Change
	err     error
}

func (r *recorder) Publish(_ context.Context, change changefeed.Change) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
	return r.err
}

func (r *recorder) all() []changefeed.Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]changefeed.Change(nil), r.changes...)
}

func openTestStore(t *testing.T, publisher changefeed.Publisher) *Store {
	t.Helper()
	ctx := context.Background()
	db, err := storage.SQLiteDB(ctx, filepath.Join(t.TempDir(), "nework.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := OpenSQLite(ctx, db, Options{Publisher: publisher})
	require.NoError(t, err)
	return s
}

func TestUpsertReplacesWholeRow(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)

	first := model.Post{
		ID:         1,
		AuthorID:   10,
		Author:     "Ann",
		Content:    "hello",
		Link:       "https://example.com",
		MentionIDs: []int64{2, 3},
		Attachment: &model.Attachment{URL: "a.png", Type: model.ATTACHMENT_IMAGE},
	}
	require.NoError(t, s.Posts.Upsert(ctx, first))

	second := model.Post{ID: 1, AuthorID: 10, Author: "Ann", Content: "edited"}
	require.NoError(t, s.Posts.Upsert(ctx, second))

	got, err := s.Posts.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)
	assert.Empty(t, got.Link)
	assert.Empty(t, got.MentionIDs)
	assert.Nil(t, got.Attachment)
}

func TestGetMissing(t *testing.T) {
	s := openTestStore(t, nil)
	_, err := s.Events.Get(context.Background(), 42)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListOrderAndScope(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)
	require.NoError(t, s.Jobs.Upsert(ctx,
		model.Job{ID: 1, UserID: 5, Name: "Acme"},
		model.Job{ID: 3, UserID: 6, Name: "Initech"},
		model.Job{ID: 2, UserID: 5, Name: "Globex"},
	))

	all, err := s.Jobs.List(ctx, All)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].ID, all[1].ID, all[2].ID})

	owned, err := s.Jobs.List(ctx, OwnedBy(5))
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "Globex", owned[0].Name)
}

func TestSyncEvictsOnlyInScope(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	s := openTestStore(t, rec)
	require.NoError(t, s.Jobs.Upsert(ctx,
		model.Job{ID: 1, UserID: 5},
		model.Job{ID: 2, UserID: 5},
		model.Job{ID: 3, UserID: 6},
	))

	require.NoError(t, s.Jobs.Sync(ctx, OwnedBy(5), []model.Job{{ID: 2, UserID: 5, Name: "kept"}, {ID: 4, UserID: 5}}))

	rows, err := s.Jobs.List(ctx, All)
	require.NoError(t, err)
	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{4, 3, 2}, ids)

	changes := rec.all()
	require.Len(t, changes, 2)
	assert.Equal(t, changefeed.OP_SYNC, changes[1].Op)
	assert.Equal(t, []int64{1}, changes[1].Evicted)
	assert.Equal(t, JOBS, changes[1].Table)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, nil)
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 9, Name: "Bob"}))
	require.NoError(t, s.Users.Remove(ctx, 9))
	require.NoError(t, s.Users.Remove(ctx, 9))

	_, err := s.Users.Get(ctx, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishFailureKeepsWrite(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, &recorder{err: errors.New("broker down")})
	require.NoError(t, s.Users.Upsert(ctx, model.User{ID: 1, Name: "Ann"}))

	got, err := s.Users.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)
}

func TestWatchFollowsWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := openTestStore(t, nil)

	updates := s.Posts.Watch(ctx, All)
	assert.Empty(t, next(t, updates))

	require.NoError(t, s.Posts.Upsert(ctx, model.Post{ID: 1, AuthorID: 1, Content: "a"}))
	rows := next(t, updates)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].Content)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-updates:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func next[T any](t *testing.T, ch <-chan []T) []T {
	t.Helper()
	select {
	case rows := <-ch:
		return rows
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return nil
	}
}
