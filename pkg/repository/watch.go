package repository

import (
	"context"

	"nework/pkg/flow"
	"nework/pkg/model"
	"nework/pkg/store"
)

// watch combines a table stream with the session stream. It emits once both
// have produced a value and again on every change of either, always
// projecting the latest rows for the latest session.
func watch[T store.Row](ctx context.Context, r *Repository, t *store.Table[T], scope store.Scope, fn func(T, model.Session) T) <-chan []T {
	ctx, cancel := context.WithCancel(ctx)
	rowsCh := t.Watch(ctx, scope)
	sessions := r.sessions.Subscribe(ctx)
	out := make(chan []T, 1)

	go func() {
		defer close(out)
		defer cancel()
		var rows []T
		var session model.Session
		haveRows, haveSession := false, false
		for {
			select {
			case next, ok := <-rowsCh:
				if !ok {
					return
				}
				rows, haveRows = next, true
			case next, ok := <-sessions:
				if !ok {
					return
				}
				session, haveSession = next, true
			}
			if haveRows && haveSession {
				flow.Emit(out, project(rows, session, fn))
			}
		}
	}()
	return out
}

// snapshot lists the rows of scope projected for the current session
func snapshot[T store.Row](ctx context.Context, r *Repository, t *store.Table[T], scope store.Scope, fn func(T, model.Session) T) ([]T, error) {
	rows, err := t.List(ctx, scope)
	if err != nil {
		return nil, r.fail(ctx, "list "+t.Name(), err)
	}
	return project(rows, r.sessions.Session(), fn), nil
}
