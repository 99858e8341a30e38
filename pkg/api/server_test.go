package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nework/pkg/auth"
	"nework/pkg/model"
	"nework/pkg/remote"
	"nework/pkg/repository"
	"nework/pkg/storage"
	"nework/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	backend *http.ServeMux // fake social network api
	api     *httptest.Server
	store   *store.Store
	holder  *auth.Holder
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := storage.SQLiteDB(ctx, filepath.Join(t.TempDir(), "nework.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st, err := store.OpenSQLite(ctx, db, store.Options{})
	require.NoError(t, err)
	sessions, err := auth.SQLStorage(ctx, db)
	require.NoError(t, err)
	holder, err := auth.NewHolder(ctx, sessions, nil)
	require.NoError(t, err)

	backend := http.NewServeMux()
	backendSrv := httptest.NewServer(backend)
	t.Cleanup(backendSrv.Close)
	client, err := remote.New(backendSrv.URL+"/api", remote.WithTokenSource(holder))
	require.NoError(t, err)

	s := &server{
		repo:   repository.New(st, client, holder, nil, nil, repository.Options{}),
		holder: holder,
		logger: slog.Default(),
	}
	api := httptest.NewServer(s.routes())
	t.Cleanup(api.Close)
	return &testEnv{backend: backend, api: api, store: st, holder: holder}
}

func (e *testEnv) do(t *testing.T, method string, path string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.api.URL+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func serveJSON(v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
}

func TestRefreshThenList(t *testing.T) {
	env := newTestEnv(t)
	env.backend.HandleFunc("GET /api/posts", serveJSON([]model.Post{
		{ID: 1, AuthorID: 5, Content: "a"},
		{ID: 2, AuthorID: 6, Content: "b"},
	}))
	require.NoError(t, env.holder.SetAuth(context.Background(), 5, "tok", "Five"))

	resp := env.do(t, http.MethodPost, "/posts/refresh", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/posts", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := decode[[]model.Post](t, resp)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(2), posts[0].ID)
	assert.False(t, posts[0].OwnedByMe)
	assert.True(t, posts[1].OwnedByMe)
}

func TestErrorMapping(t *testing.T) {
	env := newTestEnv(t)
	env.backend.HandleFunc("GET /api/events", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "teapot", http.StatusTeapot)
	})

	resp := env.do(t, http.MethodPost, "/events/refresh", nil, "")
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	body := decode[errorResponse](t, resp)
	assert.Equal(t, "api", body.Kind)
	assert.Equal(t, http.StatusTeapot, body.Status)
}

func TestMalformedBackendIsInternalError(t *testing.T) {
	env := newTestEnv(t)
	env.backend.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not json")
	})

	resp := env.do(t, http.MethodPost, "/users/refresh", nil, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "unknown", decode[errorResponse](t, resp).Kind)
}

func TestMyJobsRequireSession(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/jobs", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/jobs/refresh", nil, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestInvalidID(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodDelete, "/posts/abc", nil, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemoveReportsRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Posts.Upsert(context.Background(), model.Post{ID: 4, AuthorID: 1}))
	env.backend.HandleFunc("DELETE /api/posts/4", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	resp := env.do(t, http.MethodDelete, "/posts/4", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/posts", nil, "")
	assert.Empty(t, decode[[]model.Post](t, resp))
}

func TestLoginAndLogout(t *testing.T) {
	env := newTestEnv(t)
	env.backend.HandleFunc("POST /api/users/authentication", serveJSON(remote.AuthResponse{ID: 7, Token: "t7"}))
	env.backend.HandleFunc("GET /api/users/7", serveJSON(model.User{ID: 7, Name: "Seven"}))

	resp := env.do(t, http.MethodPost, "/auth/login", strings.NewReader(`{"login":"seven","password":"pw"}`), "application/json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sessionView{ID: 7, Name: "Seven", LoggedIn: true}, decode[sessionView](t, resp))
	assert.Equal(t, "t7", env.holder.Token())

	resp = env.do(t, http.MethodPost, "/auth/logout", nil, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/auth", nil, "")
	assert.Equal(t, sessionView{}, decode[sessionView](t, resp))
}

func TestRegisterWithAvatarForm(t *testing.T) {
	env := newTestEnv(t)
	env.backend.HandleFunc("POST /api/users/registration", func(w http.ResponseWriter, r *http.Request) {
		_, header, err := r.FormFile("file")
		if assert.NoError(t, err) {
			assert.Equal(t, "me.png", header.Filename)
		}
		serveJSON(remote.AuthResponse{ID: 8, Token: "t8"})(w, r)
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("login", "eight")
	mw.WriteField("password", "pw")
	mw.WriteField("name", "Eight")
	part, err := mw.CreateFormFile("file", "me.png")
	require.NoError(t, err)
	part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, mw.Close())

	resp := env.do(t, http.MethodPost, "/auth/register", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, sessionView{ID: 8, Name: "Eight", LoggedIn: true}, decode[sessionView](t, resp))
}

func TestRegisterRequiresFields(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodPost, "/auth/register", strings.NewReader(`{"login":"x"}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSavePostWithMedia(t *testing.T) {
	env := newTestEnv(t)
	env.backend.HandleFunc("POST /api/media", serveJSON(model.Media{URL: "https://cdn/p.png"}))
	env.backend.HandleFunc("POST /api/posts", func(w http.ResponseWriter, r *http.Request) {
		var req remote.PostRequest
		json.NewDecoder(r.Body).Decode(&req)
		serveJSON(model.Post{ID: 12, AuthorID: 1, Content: req.Content, Attachment: req.Attachment})(w, r)
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("entity", `{"content":"pic"}`)
	part, err := mw.CreateFormFile("file", "p.png")
	require.NoError(t, err)
	part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, mw.Close())

	resp := env.do(t, http.MethodPost, "/posts/media", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, resp.StatusCode)
	post := decode[model.Post](t, resp)
	assert.Equal(t, "pic", post.Content)
	require.NotNil(t, post.Attachment)
	assert.Equal(t, model.ATTACHMENT_IMAGE, post.Attachment.Type)
}

func TestWatchStreamsSnapshots(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.api.URL+"/users/watch", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	events := bufio.NewScanner(resp.Body)
	nextUsers := func() []model.User {
		for events.Scan() {
			line := events.Text()
			if data, ok := strings.CutPrefix(line, "data: "); ok {
				var users []model.User
				require.NoError(t, json.Unmarshal([]byte(data), &users))
				return users
			}
		}
		t.Fatalf("stream ended: %v", events.Err())
		return nil
	}

	assert.Empty(t, nextUsers())
	require.NoError(t, env.store.Users.Upsert(context.Background(), model.User{ID: 3, Name: "Three"}))
	for {
		users := nextUsers()
		if len(users) == 1 {
			assert.Equal(t, "Three", users[0].Name)
			return
		}
	}
}

// openStream subscribes to an event stream and returns a reader of its snapshots
func openStream[T any](t *testing.T, env *testEnv, path string) func() T {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, env.api.URL+path, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	events := bufio.NewScanner(resp.Body)
	return func() T {
		for events.Scan() {
			if data, ok := strings.CutPrefix(events.Text(), "data: "); ok {
				var v T
				require.NoError(t, json.Unmarshal([]byte(data), &v))
				return v
			}
		}
		t.Fatalf("stream ended: %v", events.Err())
		var zero T
		return zero
	}
}

func TestMyJobsStreamFollowsSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Jobs.Upsert(ctx,
		model.Job{ID: 1, UserID: 7, Name: "seven's job"},
		model.Job{ID: 2, UserID: 8, Name: "eight's job"},
	))
	require.NoError(t, env.holder.SetAuth(ctx, 7, "t7", "Seven"))

	next := openStream[[]model.Job](t, env, "/jobs/watch")
	jobs := next()
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(7), jobs[0].UserID)

	require.NoError(t, env.holder.SetAuth(ctx, 8, "t8", "Eight"))
	for {
		jobs = next()
		if len(jobs) == 1 && jobs[0].UserID == 8 {
			break
		}
		for _, j := range jobs {
			assert.Equal(t, int64(7), j.UserID)
			assert.True(t, j.OwnedByMe, "job of the previous user served without ownership")
		}
	}
	assert.True(t, jobs[0].OwnedByMe)

	require.NoError(t, env.holder.RemoveAuth(ctx))
	for len(jobs) != 0 {
		jobs = next()
		for _, j := range jobs {
			assert.Equal(t, int64(8), j.UserID)
		}
	}
}

func TestUnsupportedMediaIsBadRequest(t *testing.T) {
	env := newTestEnv(t)
	env.backend.HandleFunc("POST /api/media", func(w http.ResponseWriter, r *http.Request) {
		t.Error("uploaded unsupported media")
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("entity", `{"content":"notes"}`)
	part, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	part.Write([]byte("plain text"))
	require.NoError(t, mw.Close())

	resp := env.do(t, http.MethodPost, "/posts/media", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "request", decode[errorResponse](t, resp).Kind)
}

func TestLoginWithExpiredTokenIsUnauthorized(t *testing.T) {
	env := newTestEnv(t)
	// header {"alg":"none"}, claims {"exp":1}
	expired := "eyJhbGciOiJub25lIn0.eyJleHAiOjF9."
	env.backend.HandleFunc("POST /api/users/authentication", serveJSON(remote.AuthResponse{ID: 7, Token: expired}))
	env.backend.HandleFunc("GET /api/users/7", serveJSON(model.User{ID: 7, Name: "Seven"}))

	resp := env.do(t, http.MethodPost, "/auth/login", strings.NewReader(`{"login":"seven","password":"pw"}`), "application/json")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.False(t, env.holder.Session().LoggedIn())
}
