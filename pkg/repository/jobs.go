package repository

import (
	"context"
	"time"

	"nework/pkg/flow"
	"nework/pkg/model"
	"nework/pkg/remote"
	"nework/pkg/store"
)

// FetchMyJobs refreshes the jobs of the session user
func (r *Repository) FetchMyJobs(ctx context.Context) error {
	r.logger.Debug("entering FetchMyJobs")
	session := r.sessions.Session()
	if !session.LoggedIn() {
		return r.fail(ctx, "FetchMyJobs", ErrLoggedOut)
	}
	start := time.Now()
	jobs, err := r.remote.MyJobs(ctx)
	if err != nil {
		return r.fail(ctx, "FetchMyJobs", err)
	}
	if err := r.storeJobs(ctx, session.ID, jobs); err != nil {
		return r.fail(ctx, "FetchMyJobs", err)
	}
	r.done(ctx, "fetch_my_jobs", start, len(jobs))
	return nil
}

// FetchJobs refreshes the jobs of any user
func (r *Repository) FetchJobs(ctx context.Context, userID int64) error {
	r.logger.Debug("entering FetchJobs", "user_id", userID)
	if userID <= 0 {
		return r.fail(ctx, "FetchJobs", ErrInvalidUser)
	}
	start := time.Now()
	jobs, err := r.remote.JobsByUser(ctx, userID)
	if err != nil {
		return r.fail(ctx, "FetchJobs", err)
	}
	if err := r.storeJobs(ctx, userID, jobs); err != nil {
		return r.fail(ctx, "FetchJobs", err)
	}
	r.done(ctx, "fetch_jobs", start, len(jobs))
	return nil
}

// storeJobs sets the owner the server leaves out of job responses
func (r *Repository) storeJobs(ctx context.Context, userID int64, jobs []model.Job) error {
	rows := make([]model.Job, len(jobs))
	for i, j := range jobs {
		j.UserID = userID
		rows[i] = j.Stored()
	}
	return refresh(ctx, r.store.Jobs, r.opts.PruneOnRefresh, store.OwnedBy(userID), rows)
}

// SaveJob creates or updates a job of the session user
func (r *Repository) SaveJob(ctx context.Context, job model.Job) (model.Job, error) {
	r.logger.Debug("entering SaveJob", "job_id", job.ID)
	session := r.sessions.Session()
	if !session.LoggedIn() {
		return model.Job{}, r.fail(ctx, "SaveJob", ErrLoggedOut)
	}
	saved, err := r.remote.SaveJob(ctx, remote.NewJobRequest(job))
	if err != nil {
		return model.Job{}, r.fail(ctx, "SaveJob", err)
	}
	saved.UserID = session.ID
	saved = saved.Stored()
	if err := r.store.Jobs.Upsert(ctx, saved); err != nil {
		return model.Job{}, r.fail(ctx, "SaveJob", err)
	}
	return saved.For(session), nil
}

// RemoveJob is optimistic like RemovePost
func (r *Repository) RemoveJob(ctx context.Context, jobID int64) error {
	r.logger.Debug("entering RemoveJob", "job_id", jobID)
	if err := r.store.Jobs.Remove(ctx, jobID); err != nil {
		return r.fail(ctx, "RemoveJob", err)
	}
	if err := r.remote.RemoveJob(ctx, jobID); err != nil {
		return r.fail(ctx, "RemoveJob", err)
	}
	return nil
}

func (r *Repository) Jobs(ctx context.Context, userID int64) ([]model.Job, error) {
	return snapshot(ctx, r, r.store.Jobs, store.OwnedBy(userID), model.Job.For)
}

// WatchMyJobs follows the session: it streams the jobs of whoever is logged
// in and an empty list while nobody is
func (r *Repository) WatchMyJobs(ctx context.Context) <-chan []model.Job {
	out := make(chan []model.Job, 1)
	sessions := r.sessions.Subscribe(ctx)

	go func() {
		defer close(out)
		var session model.Session
		var rows <-chan []model.Job
		stop := func() {}
		defer func() { stop() }()
		for {
			select {
			case next, ok := <-sessions:
				if !ok {
					return
				}
				stop()
				session, rows, stop = next, nil, func() {}
				// a snapshot of the previous user must not reach the reader
				select {
				case <-out:
				default:
				}
				if !session.LoggedIn() {
					flow.Emit(out, []model.Job{})
					continue
				}
				jobsCtx, cancel := context.WithCancel(ctx)
				rows, stop = r.store.Jobs.Watch(jobsCtx, store.OwnedBy(session.ID)), cancel
			case next, ok := <-rows:
				if !ok {
					return
				}
				flow.Emit(out, project(next, session, model.Job.For))
			}
		}
	}()
	return out
}

func (r *Repository) WatchJobs(ctx context.Context, userID int64) <-chan []model.Job {
	return watch(ctx, r, r.store.Jobs, store.OwnedBy(userID), model.Job.For)
}
