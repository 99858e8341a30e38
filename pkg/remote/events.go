package remote

import (
	"context"
	"net/http"
	"time"

	"nework/pkg/model"
)

type EventRequest struct {
	ID         int64              `json:"id"`
	Content    string             `json:"content"`
	Datetime   time.Time          `json:"datetime"`
	Coords     *model.Coordinates `json:"coords,omitempty"`
	Type       model.EventType    `json:"type"`
	Attachment *model.Attachment  `json:"attachment,omitempty"`
	Link       string             `json:"link,omitempty"`
	SpeakerIDs []int64            `json:"speakerIds,omitempty"`
}

func NewEventRequest(e model.Event) EventRequest {
	return EventRequest{
		ID:         e.ID,
		Content:    e.Content,
		Datetime:   e.Datetime,
		Coords:     e.Coords,
		Type:       e.Type,
		Attachment: e.Attachment,
		Link:       e.Link,
		SpeakerIDs: e.SpeakerIDs,
	}
}

func (c *Client) Events(ctx context.Context) ([]model.Event, error) {
	return call[[]model.Event](ctx, c, request{endpoint: "events.list", method: http.MethodGet, path: []string{"events"}})
}

func (c *Client) Event(ctx context.Context, eventID int64) (model.Event, error) {
	return call[model.Event](ctx, c, request{endpoint: "events.get", method: http.MethodGet, path: []string{"events", id(eventID)}})
}

func (c *Client) SaveEvent(ctx context.Context, event EventRequest) (model.Event, error) {
	body, err := jsonBody(event)
	if err != nil {
		return model.Event{}, err
	}
	return call[model.Event](ctx, c, request{
		endpoint:    "events.save",
		method:      http.MethodPost,
		path:        []string{"events"},
		body:        body,
		contentType: "application/json",
	})
}

func (c *Client) RemoveEvent(ctx context.Context, eventID int64) error {
	return c.exec(ctx, request{endpoint: "events.remove", method: http.MethodDelete, path: []string{"events", id(eventID)}})
}

func (c *Client) LikeEvent(ctx context.Context, eventID int64) (model.Event, error) {
	return call[model.Event](ctx, c, request{endpoint: "events.like", method: http.MethodPost, path: []string{"events", id(eventID), "likes"}})
}

func (c *Client) UnlikeEvent(ctx context.Context, eventID int64) (model.Event, error) {
	return call[model.Event](ctx, c, request{endpoint: "events.unlike", method: http.MethodDelete, path: []string{"events", id(eventID), "likes"}})
}

func (c *Client) Participate(ctx context.Context, eventID int64) (model.Event, error) {
	return call[model.Event](ctx, c, request{endpoint: "events.participate", method: http.MethodPost, path: []string{"events", id(eventID), "participants"}})
}

func (c *Client) Unparticipate(ctx context.Context, eventID int64) (model.Event, error) {
	return call[model.Event](ctx, c, request{endpoint: "events.unparticipate", method: http.MethodDelete, path: []string{"events", id(eventID), "participants"}})
}
