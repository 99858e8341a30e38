package repository

import (
	"context"
	"time"

	"nework/pkg/model"
	"nework/pkg/remote"
	"nework/pkg/store"
)

// FetchPosts refreshes the cached feed. On failure the cache is left as it was.
func (r *Repository) FetchPosts(ctx context.Context) error {
	r.logger.Debug("entering FetchPosts")
	start := time.Now()
	posts, err := r.remote.Posts(ctx)
	if err != nil {
		return r.fail(ctx, "FetchPosts", err)
	}
	if err := r.storePosts(ctx, posts, r.opts.PruneOnRefresh, store.All); err != nil {
		return r.fail(ctx, "FetchPosts", err)
	}
	r.done(ctx, "fetch_posts", start, len(posts))
	return nil
}

// FetchWall caches the posts of one author
func (r *Repository) FetchWall(ctx context.Context, authorID int64) error {
	r.logger.Debug("entering FetchWall", "author_id", authorID)
	if authorID <= 0 {
		return r.fail(ctx, "FetchWall", ErrInvalidUser)
	}
	start := time.Now()
	posts, err := r.remote.Wall(ctx, authorID)
	if err != nil {
		return r.fail(ctx, "FetchWall", err)
	}
	if err := r.storePosts(ctx, posts, false, store.OwnedBy(authorID)); err != nil {
		return r.fail(ctx, "FetchWall", err)
	}
	r.done(ctx, "fetch_wall", start, len(posts))
	return nil
}

func (r *Repository) FetchMyWall(ctx context.Context) error {
	r.logger.Debug("entering FetchMyWall")
	start := time.Now()
	posts, err := r.remote.MyWall(ctx)
	if err != nil {
		return r.fail(ctx, "FetchMyWall", err)
	}
	if err := r.storePosts(ctx, posts, false, store.All); err != nil {
		return r.fail(ctx, "FetchMyWall", err)
	}
	r.done(ctx, "fetch_my_wall", start, len(posts))
	return nil
}

// storePosts writes the posts, then the users they embed in a single write
func (r *Repository) storePosts(ctx context.Context, posts []model.Post, prune bool, scope store.Scope) error {
	rows := make([]model.Post, len(posts))
	previews := make(map[int64]model.UserPreview)
	for i, p := range posts {
		mergePreviews(previews, p.Users)
		rows[i] = p.Stored()
	}
	if err := refresh(ctx, r.store.Posts, prune, scope, rows); err != nil {
		return err
	}
	return r.saveUsers(ctx, previews)
}

// SavePost creates the post when its id is 0 and updates it otherwise
func (r *Repository) SavePost(ctx context.Context, post model.Post) (model.Post, error) {
	r.logger.Debug("entering SavePost", "post_id", post.ID)
	saved, err := r.remote.SavePost(ctx, remote.NewPostRequest(post))
	if err != nil {
		return model.Post{}, r.fail(ctx, "SavePost", err)
	}
	if err := r.storePosts(ctx, []model.Post{saved}, false, store.All); err != nil {
		return model.Post{}, r.fail(ctx, "SavePost", err)
	}
	return saved.Stored().For(r.sessions.Session()), nil
}

// SavePostWithAttachment uploads media first and saves the post referencing it
func (r *Repository) SavePostWithAttachment(ctx context.Context, post model.Post, media model.MediaUpload) (model.Post, error) {
	r.logger.Debug("entering SavePostWithAttachment", "post_id", post.ID, "file", media.Filename)
	attachment, err := r.upload(ctx, media)
	if err != nil {
		return model.Post{}, r.fail(ctx, "SavePostWithAttachment", err)
	}
	post.Attachment = &attachment
	return r.SavePost(ctx, post)
}

// RemovePost deletes the cached post before asking the server to. A remote
// failure is returned but the post stays removed locally.
func (r *Repository) RemovePost(ctx context.Context, postID int64) error {
	r.logger.Debug("entering RemovePost", "post_id", postID)
	if err := r.store.Posts.Remove(ctx, postID); err != nil {
		return r.fail(ctx, "RemovePost", err)
	}
	if err := r.remote.RemovePost(ctx, postID); err != nil {
		return r.fail(ctx, "RemovePost", err)
	}
	return nil
}

// ToggleLikePost reads the current like state from the server and flips it
func (r *Repository) ToggleLikePost(ctx context.Context, postID int64) (model.Post, error) {
	r.logger.Debug("entering ToggleLikePost", "post_id", postID)
	current, err := r.remote.Post(ctx, postID)
	if err != nil {
		return model.Post{}, r.fail(ctx, "ToggleLikePost", err)
	}
	var updated model.Post
	if current.LikedByMe {
		updated, err = r.remote.UnlikePost(ctx, postID)
	} else {
		updated, err = r.remote.LikePost(ctx, postID)
	}
	if err != nil {
		return model.Post{}, r.fail(ctx, "ToggleLikePost", err)
	}
	if err := r.storePosts(ctx, []model.Post{updated}, false, store.All); err != nil {
		return model.Post{}, r.fail(ctx, "ToggleLikePost", err)
	}
	return updated.Stored().For(r.sessions.Session()), nil
}

func (r *Repository) Posts(ctx context.Context) ([]model.Post, error) {
	return snapshot(ctx, r, r.store.Posts, store.All, model.Post.For)
}

func (r *Repository) Wall(ctx context.Context, authorID int64) ([]model.Post, error) {
	return snapshot(ctx, r, r.store.Posts, store.OwnedBy(authorID), model.Post.For)
}

func (r *Repository) WatchPosts(ctx context.Context) <-chan []model.Post {
	return watch(ctx, r, r.store.Posts, store.All, model.Post.For)
}

func (r *Repository) WatchWall(ctx context.Context, authorID int64) <-chan []model.Post {
	return watch(ctx, r, r.store.Posts, store.OwnedBy(authorID), model.Post.For)
}
