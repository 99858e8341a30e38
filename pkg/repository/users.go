package repository

import (
	"context"
	"time"

	"nework/pkg/model"
	"nework/pkg/store"
)

func (r *Repository) FetchUsers(ctx context.Context) error {
	r.logger.Debug("entering FetchUsers")
	start := time.Now()
	users, err := r.remote.Users(ctx)
	if err != nil {
		return r.fail(ctx, "FetchUsers", err)
	}
	if err := refresh(ctx, r.store.Users, r.opts.PruneOnRefresh, store.All, users); err != nil {
		return r.fail(ctx, "FetchUsers", err)
	}
	r.done(ctx, "fetch_users", start, len(users))
	return nil
}

func (r *Repository) FetchUser(ctx context.Context, userID int64) (model.User, error) {
	r.logger.Debug("entering FetchUser", "user_id", userID)
	user, err := r.remote.User(ctx, userID)
	if err != nil {
		return model.User{}, r.fail(ctx, "FetchUser", err)
	}
	if err := r.store.Users.Upsert(ctx, user); err != nil {
		return model.User{}, r.fail(ctx, "FetchUser", err)
	}
	return user, nil
}

// Authenticate logs in and resolves the display name of the account.
// The session is returned, not installed.
func (r *Repository) Authenticate(ctx context.Context, login string, password string) (model.Session, error) {
	r.logger.Debug("entering Authenticate", "login", login)
	resp, err := r.remote.Authenticate(ctx, login, password)
	if err != nil {
		return model.Session{}, r.fail(ctx, "Authenticate", err)
	}
	user, err := r.remote.User(ctx, resp.ID)
	if err != nil {
		return model.Session{}, r.fail(ctx, "Authenticate", err)
	}
	return model.Session{ID: resp.ID, Token: resp.Token, Name: user.Name}, nil
}

func (r *Repository) Register(ctx context.Context, login string, password string, name string) (model.Session, error) {
	r.logger.Debug("entering Register", "login", login)
	return r.register(ctx, "Register", login, password, name, nil)
}

func (r *Repository) RegisterWithAvatar(ctx context.Context, login string, password string, name string, avatar model.MediaUpload) (model.Session, error) {
	r.logger.Debug("entering RegisterWithAvatar", "login", login, "file", avatar.Filename)
	return r.register(ctx, "RegisterWithAvatar", login, password, name, &avatar)
}

func (r *Repository) register(ctx context.Context, op string, login string, password string, name string, avatar *model.MediaUpload) (model.Session, error) {
	resp, err := r.remote.Register(ctx, login, password, name, avatar)
	if err != nil {
		return model.Session{}, r.fail(ctx, op, err)
	}
	return model.Session{ID: resp.ID, Token: resp.Token, Name: name}, nil
}

func (r *Repository) Users(ctx context.Context) ([]model.User, error) {
	return snapshot(ctx, r, r.store.Users, store.All, model.User.For)
}

func (r *Repository) WatchUsers(ctx context.Context) <-chan []model.User {
	return watch(ctx, r, r.store.Users, store.All, model.User.For)
}
