// Package auth holds the current session and persists it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"nework/pkg/flow"
	sn_metrics "nework/pkg/metrics"
	"nework/pkg/model"
)

// ErrExpired rejects a session whose token has already expired
var ErrExpired = errors.New("session token has expired")

// Holder is the reactive session of the process. It starts from the
// persisted session and changes only through SetAuth and RemoveAuth.
type Holder struct {
	// serializes writers so storage and state agree
	mu      sync.Mutex
	storage Storage
	state   *flow.Value[model.Session]
	logger  *slog.Logger
}

func NewHolder(ctx context.Context, storage Storage, logger *slog.Logger) (*Holder, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := storage.Load(ctx)
	if err != nil {
		logger.Error("error loading persisted session", "msg", err.Error())
		return nil, err
	}
	if session.ExpiresAt.IsZero() && session.Token != "" {
		session.ExpiresAt = tokenExpiry(session.Token)
	}
	if session.LoggedIn() && session.Expired(time.Now()) {
		logger.Info("discarding expired session", "user_id", session.ID, "expired_at", session.ExpiresAt)
		if err := storage.Clear(ctx); err != nil {
			logger.Error("error clearing expired session", "msg", err.Error())
			return nil, err
		}
		session = model.Session{}
	}
	return &Holder{
		storage: storage,
		state:   flow.New(session),
		logger:  logger,
	}, nil
}

func (h *Holder) Session() model.Session {
	return h.state.Load()
}

// Token returns the bearer token of the current session, "" when logged out
func (h *Holder) Token() string {
	return h.state.Load().Token
}

// Subscribe emits the current session and every later one
func (h *Holder) Subscribe(ctx context.Context) <-chan model.Session {
	return h.state.Subscribe(ctx)
}

func (h *Holder) SetAuth(ctx context.Context, id int64, token string, name string) error {
	if id == model.LOGGED_OUT {
		return fmt.Errorf("invalid session user id %d", id)
	}
	session := model.Session{ID: id, Token: token, Name: name, ExpiresAt: tokenExpiry(token)}
	if session.Expired(time.Now()) {
		return ErrExpired
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.storage.Save(ctx, session); err != nil {
		h.logger.Error("error persisting session", "user_id", id, "msg", err.Error())
		return err
	}
	h.state.Store(session)
	sn_metrics.SessionChanges.Inc()
	h.logger.Info("session started", "user_id", id)
	return nil
}

func (h *Holder) RemoveAuth(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.storage.Clear(ctx); err != nil {
		h.logger.Error("error clearing session", "msg", err.Error())
		return err
	}
	h.state.Store(model.Session{})
	sn_metrics.SessionChanges.Inc()
	h.logger.Info("session ended")
	return nil
}
