// Package api serves the repository over http as the application entry point.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"nework/pkg/auth"
	"nework/pkg/repository"

	"github.com/ServiceWeaver/weaver"
)

type serverOptions struct {
	BaseURL            string `toml:"base_url"`
	StoreBackend       string `toml:"store_backend"`
	SQLitePath         string `toml:"sqlite_path"`
	MongoDBAddr        string `toml:"mongodb_address"`
	MongoDBPort        int    `toml:"mongodb_port"`
	MongoDBDatabase    string `toml:"mongodb_database"`
	SessionBackend     string `toml:"session_backend"`
	RedisAddr          string `toml:"redis_address"`
	RedisPort          int    `toml:"redis_port"`
	MemCachedAddr      string `toml:"memcached_address"`
	MemCachedPort      int    `toml:"memcached_port"`
	RabbitMQAddr       string `toml:"rabbitmq_address"`
	RabbitMQPort       int    `toml:"rabbitmq_port"`
	RabbitMQUsername   string `toml:"rabbitmq_username"`
	RabbitMQPassword   string `toml:"rabbitmq_password"`
	ChangefeedExchange string `toml:"changefeed_exchange"`
	PruneOnRefresh     bool   `toml:"prune_on_refresh"`
}

type server struct {
	weaver.Implements[weaver.Main]
	weaver.WithConfig[serverOptions]
	lis weaver.Listener `weaver:"nework"`

	repo   *repository.Repository
	holder *auth.Holder
	logger *slog.Logger
}

func Serve(ctx context.Context, s *server) error {
	s.logger = s.Logger(ctx)
	backends, err := open(ctx, *s.Config(), s.logger)
	if err != nil {
		s.logger.Error("error opening backends", "msg", err.Error())
		return err
	}
	defer backends.close()
	s.repo = backends.repo
	s.holder = backends.holder

	s.logger.Info("nework api available", "addr", s.lis, "base_url", s.Config().BaseURL, "store_backend", backends.storeBackend, "session_backend", backends.sessionBackend)
	return http.Serve(s.lis, s.routes())
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /posts", s.instrument("posts", s.listPosts))
	mux.Handle("POST /posts/refresh", s.instrument("posts_refresh", s.refreshPosts))
	mux.Handle("GET /posts/watch", s.streaming("posts_watch", s.watchPosts))
	mux.Handle("POST /posts", s.instrument("posts_save", s.savePost))
	mux.Handle("POST /posts/media", s.instrument("posts_save_media", s.savePostWithMedia))
	mux.Handle("DELETE /posts/{id}", s.instrument("posts_remove", s.withID(s.removePost)))
	mux.Handle("POST /posts/{id}/like", s.instrument("posts_like", s.withID(s.likePost)))

	mux.Handle("GET /events", s.instrument("events", s.listEvents))
	mux.Handle("POST /events/refresh", s.instrument("events_refresh", s.refreshEvents))
	mux.Handle("GET /events/watch", s.streaming("events_watch", s.watchEvents))
	mux.Handle("POST /events", s.instrument("events_save", s.saveEvent))
	mux.Handle("POST /events/media", s.instrument("events_save_media", s.saveEventWithMedia))
	mux.Handle("DELETE /events/{id}", s.instrument("events_remove", s.withID(s.removeEvent)))
	mux.Handle("POST /events/{id}/like", s.instrument("events_like", s.withID(s.likeEvent)))
	mux.Handle("POST /events/{id}/participate", s.instrument("events_participate", s.withID(s.participate)))

	mux.Handle("GET /jobs", s.instrument("jobs", s.listMyJobs))
	mux.Handle("POST /jobs/refresh", s.instrument("jobs_refresh", s.refreshMyJobs))
	mux.Handle("GET /jobs/watch", s.streaming("jobs_watch", s.watchMyJobs))
	mux.Handle("POST /jobs", s.instrument("jobs_save", s.saveJob))
	mux.Handle("DELETE /jobs/{id}", s.instrument("jobs_remove", s.withID(s.removeJob)))

	mux.Handle("GET /users", s.instrument("users", s.listUsers))
	mux.Handle("POST /users/refresh", s.instrument("users_refresh", s.refreshUsers))
	mux.Handle("GET /users/watch", s.streaming("users_watch", s.watchUsers))
	mux.Handle("POST /users/{id}/refresh", s.instrument("user_refresh", s.withID(s.refreshUser)))
	mux.Handle("GET /users/{id}/jobs", s.instrument("user_jobs", s.withID(s.listJobs)))
	mux.Handle("POST /users/{id}/jobs/refresh", s.instrument("user_jobs_refresh", s.withID(s.refreshJobs)))
	mux.Handle("GET /users/{id}/jobs/watch", s.streaming("user_jobs_watch", s.withID(s.watchJobs)))
	mux.Handle("GET /users/{id}/wall", s.instrument("user_wall", s.withID(s.listWall)))
	mux.Handle("POST /users/{id}/wall/refresh", s.instrument("user_wall_refresh", s.withID(s.refreshWall)))
	mux.Handle("GET /users/{id}/wall/watch", s.streaming("user_wall_watch", s.withID(s.watchWall)))
	mux.Handle("POST /wall/refresh", s.instrument("my_wall_refresh", s.refreshMyWall))

	mux.Handle("GET /auth", s.instrument("auth", s.session))
	mux.Handle("GET /auth/watch", s.streaming("auth_watch", s.watchSession))
	mux.Handle("POST /auth/login", s.instrument("auth_login", s.login))
	mux.Handle("POST /auth/register", s.instrument("auth_register", s.register))
	mux.Handle("POST /auth/logout", s.instrument("auth_logout", s.logout))

	return mux
}

// streaming serves long lived event streams, kept out of the request metrics
func (s *server) streaming(label string, fn func(http.ResponseWriter, *http.Request)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("entering "+label, "path", r.URL.Path)
		fn(w, r)
	})
}

func (s *server) instrument(label string, fn func(http.ResponseWriter, *http.Request)) http.Handler {
	handler := func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("entering "+label, "method", r.Method, "path", r.URL.Path)
		fn(w, r)
	}
	return weaver.InstrumentHandlerFunc(label, handler)
}
