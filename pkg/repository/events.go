package repository

import (
	"context"
	"time"

	"nework/pkg/model"
	"nework/pkg/remote"
	"nework/pkg/store"
)

func (r *Repository) FetchEvents(ctx context.Context) error {
	r.logger.Debug("entering FetchEvents")
	start := time.Now()
	events, err := r.remote.Events(ctx)
	if err != nil {
		return r.fail(ctx, "FetchEvents", err)
	}
	if err := r.storeEvents(ctx, events, r.opts.PruneOnRefresh); err != nil {
		return r.fail(ctx, "FetchEvents", err)
	}
	r.done(ctx, "fetch_events", start, len(events))
	return nil
}

func (r *Repository) storeEvents(ctx context.Context, events []model.Event, prune bool) error {
	rows := make([]model.Event, len(events))
	previews := make(map[int64]model.UserPreview)
	for i, e := range events {
		mergePreviews(previews, e.Users)
		rows[i] = e.Stored()
	}
	if err := refresh(ctx, r.store.Events, prune, store.All, rows); err != nil {
		return err
	}
	return r.saveUsers(ctx, previews)
}

func (r *Repository) SaveEvent(ctx context.Context, event model.Event) (model.Event, error) {
	r.logger.Debug("entering SaveEvent", "event_id", event.ID)
	saved, err := r.remote.SaveEvent(ctx, remote.NewEventRequest(event))
	if err != nil {
		return model.Event{}, r.fail(ctx, "SaveEvent", err)
	}
	if err := r.storeEvents(ctx, []model.Event{saved}, false); err != nil {
		return model.Event{}, r.fail(ctx, "SaveEvent", err)
	}
	return saved.Stored().For(r.sessions.Session()), nil
}

func (r *Repository) SaveEventWithAttachment(ctx context.Context, event model.Event, media model.MediaUpload) (model.Event, error) {
	r.logger.Debug("entering SaveEventWithAttachment", "event_id", event.ID, "file", media.Filename)
	attachment, err := r.upload(ctx, media)
	if err != nil {
		return model.Event{}, r.fail(ctx, "SaveEventWithAttachment", err)
	}
	event.Attachment = &attachment
	return r.SaveEvent(ctx, event)
}

// RemoveEvent is optimistic like RemovePost
func (r *Repository) RemoveEvent(ctx context.Context, eventID int64) error {
	r.logger.Debug("entering RemoveEvent", "event_id", eventID)
	if err := r.store.Events.Remove(ctx, eventID); err != nil {
		return r.fail(ctx, "RemoveEvent", err)
	}
	if err := r.remote.RemoveEvent(ctx, eventID); err != nil {
		return r.fail(ctx, "RemoveEvent", err)
	}
	return nil
}

func (r *Repository) ToggleLikeEvent(ctx context.Context, eventID int64) (model.Event, error) {
	r.logger.Debug("entering ToggleLikeEvent", "event_id", eventID)
	return r.toggleEvent(ctx, "ToggleLikeEvent", eventID,
		func(e model.Event) bool { return e.LikedByMe },
		r.remote.LikeEvent, r.remote.UnlikeEvent)
}

func (r *Repository) ToggleParticipate(ctx context.Context, eventID int64) (model.Event, error) {
	r.logger.Debug("entering ToggleParticipate", "event_id", eventID)
	return r.toggleEvent(ctx, "ToggleParticipate", eventID,
		func(e model.Event) bool { return e.ParticipatedByMe },
		r.remote.Participate, r.remote.Unparticipate)
}

type eventAction func(ctx context.Context, eventID int64) (model.Event, error)

func (r *Repository) toggleEvent(ctx context.Context, op string, eventID int64, isSet func(model.Event) bool, set eventAction, unset eventAction) (model.Event, error) {
	current, err := r.remote.Event(ctx, eventID)
	if err != nil {
		return model.Event{}, r.fail(ctx, op, err)
	}
	action := set
	if isSet(current) {
		action = unset
	}
	updated, err := action(ctx, eventID)
	if err != nil {
		return model.Event{}, r.fail(ctx, op, err)
	}
	if err := r.storeEvents(ctx, []model.Event{updated}, false); err != nil {
		return model.Event{}, r.fail(ctx, op, err)
	}
	return updated.Stored().For(r.sessions.Session()), nil
}

func (r *Repository) Events(ctx context.Context) ([]model.Event, error) {
	return snapshot(ctx, r, r.store.Events, store.All, model.Event.For)
}

func (r *Repository) WatchEvents(ctx context.Context) <-chan []model.Event {
	return watch(ctx, r, r.store.Events, store.All, model.Event.For)
}
