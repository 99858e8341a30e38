package remote

import (
	"context"
	"net/http"
	"strconv"

	"nework/pkg/model"
)

type PostRequest struct {
	ID         int64              `json:"id"`
	Content    string             `json:"content"`
	Coords     *model.Coordinates `json:"coords,omitempty"`
	Link       string             `json:"link,omitempty"`
	Attachment *model.Attachment  `json:"attachment,omitempty"`
	MentionIDs []int64            `json:"mentionIds,omitempty"`
}

func NewPostRequest(p model.Post) PostRequest {
	return PostRequest{
		ID:         p.ID,
		Content:    p.Content,
		Coords:     p.Coords,
		Link:       p.Link,
		Attachment: p.Attachment,
		MentionIDs: p.MentionIDs,
	}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

func (c *Client) Posts(ctx context.Context) ([]model.Post, error) {
	return call[[]model.Post](ctx, c, request{endpoint: "posts.list", method: http.MethodGet, path: []string{"posts"}})
}

func (c *Client) Post(ctx context.Context, postID int64) (model.Post, error) {
	return call[model.Post](ctx, c, request{endpoint: "posts.get", method: http.MethodGet, path: []string{"posts", id(postID)}})
}

func (c *Client) SavePost(ctx context.Context, post PostRequest) (model.Post, error) {
	body, err := jsonBody(post)
	if err != nil {
		return model.Post{}, err
	}
	return call[model.Post](ctx, c, request{
		endpoint:    "posts.save",
		method:      http.MethodPost,
		path:        []string{"posts"},
		body:        body,
		contentType: "application/json",
	})
}

func (c *Client) RemovePost(ctx context.Context, postID int64) error {
	return c.exec(ctx, request{endpoint: "posts.remove", method: http.MethodDelete, path: []string{"posts", id(postID)}})
}

func (c *Client) LikePost(ctx context.Context, postID int64) (model.Post, error) {
	return call[model.Post](ctx, c, request{endpoint: "posts.like", method: http.MethodPost, path: []string{"posts", id(postID), "likes"}})
}

func (c *Client) UnlikePost(ctx context.Context, postID int64) (model.Post, error) {
	return call[model.Post](ctx, c, request{endpoint: "posts.unlike", method: http.MethodDelete, path: []string{"posts", id(postID), "likes"}})
}

// Wall lists the posts of one author
func (c *Client) Wall(ctx context.Context, authorID int64) ([]model.Post, error) {
	return call[[]model.Post](ctx, c, request{endpoint: "wall.list", method: http.MethodGet, path: []string{id(authorID), "wall"}})
}

func (c *Client) MyWall(ctx context.Context) ([]model.Post, error) {
	return call[[]model.Post](ctx, c, request{endpoint: "mywall.list", method: http.MethodGet, path: []string{"my", "wall"}})
}
