package remote

import (
	"context"
	"net/http"
	"time"

	"nework/pkg/model"
)

type JobRequest struct {
	ID       int64      `json:"id"`
	Name     string     `json:"name"`
	Position string     `json:"position"`
	Start    time.Time  `json:"start"`
	Finish   *time.Time `json:"finish,omitempty"`
	Link     string     `json:"link,omitempty"`
}

func NewJobRequest(j model.Job) JobRequest {
	return JobRequest{
		ID:       j.ID,
		Name:     j.Name,
		Position: j.Position,
		Start:    j.Start,
		Finish:   j.Finish,
		Link:     j.Link,
	}
}

func (c *Client) MyJobs(ctx context.Context) ([]model.Job, error) {
	return call[[]model.Job](ctx, c, request{endpoint: "myjobs.list", method: http.MethodGet, path: []string{"my", "jobs"}})
}

func (c *Client) SaveJob(ctx context.Context, job JobRequest) (model.Job, error) {
	body, err := jsonBody(job)
	if err != nil {
		return model.Job{}, err
	}
	return call[model.Job](ctx, c, request{
		endpoint:    "myjobs.save",
		method:      http.MethodPost,
		path:        []string{"my", "jobs"},
		body:        body,
		contentType: "application/json",
	})
}

func (c *Client) RemoveJob(ctx context.Context, jobID int64) error {
	return c.exec(ctx, request{endpoint: "myjobs.remove", method: http.MethodDelete, path: []string{"my", "jobs", id(jobID)}})
}

// JobsByUser lists the jobs of any user. The response does not name the
// owner; callers attach it.
func (c *Client) JobsByUser(ctx context.Context, userID int64) ([]model.Job, error) {
	return call[[]model.Job](ctx, c, request{endpoint: "jobs.list", method: http.MethodGet, path: []string{id(userID), "jobs"}})
}
