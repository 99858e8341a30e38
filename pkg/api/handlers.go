package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"nework/pkg/model"
	"nework/pkg/repository"
)

// MAX_UPLOAD_BYTES bounds multipart requests
const MAX_UPLOAD_BYTES = 32 << 20

// posts

func (s *server) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.repo.Posts(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, posts)
}

func (s *server) refreshPosts(w http.ResponseWriter, r *http.Request) {
	s.refreshed(w, s.repo.FetchPosts(r.Context()))
}

func (s *server) watchPosts(w http.ResponseWriter, r *http.Request) {
	stream(s, w, r, s.repo.WatchPosts(r.Context()))
}

func (s *server) savePost(w http.ResponseWriter, r *http.Request) {
	var post model.Post
	if err := json.NewDecoder(r.Body).Decode(&post); err != nil {
		s.badRequest(w, "invalid post: "+err.Error())
		return
	}
	saved, err := s.repo.SavePost(r.Context(), post)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *server) savePostWithMedia(w http.ResponseWriter, r *http.Request) {
	var post model.Post
	media, err := readEntityWithMedia(w, r, &post)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	saved, err := s.repo.SavePostWithAttachment(r.Context(), post, media)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *server) removePost(w http.ResponseWriter, r *http.Request, id int64) {
	s.removed(w, s.repo.RemovePost(r.Context(), id))
}

func (s *server) likePost(w http.ResponseWriter, r *http.Request, id int64) {
	post, err := s.repo.ToggleLikePost(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

// events

func (s *server) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.repo.Events(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, events)
}

func (s *server) refreshEvents(w http.ResponseWriter, r *http.Request) {
	s.refreshed(w, s.repo.FetchEvents(r.Context()))
}

func (s *server) watchEvents(w http.ResponseWriter, r *http.Request) {
	stream(s, w, r, s.repo.WatchEvents(r.Context()))
}

func (s *server) saveEvent(w http.ResponseWriter, r *http.Request) {
	var event model.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		s.badRequest(w, "invalid event: "+err.Error())
		return
	}
	saved, err := s.repo.SaveEvent(r.Context(), event)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *server) saveEventWithMedia(w http.ResponseWriter, r *http.Request) {
	var event model.Event
	media, err := readEntityWithMedia(w, r, &event)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	saved, err := s.repo.SaveEventWithAttachment(r.Context(), event, media)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *server) removeEvent(w http.ResponseWriter, r *http.Request, id int64) {
	s.removed(w, s.repo.RemoveEvent(r.Context(), id))
}

func (s *server) likeEvent(w http.ResponseWriter, r *http.Request, id int64) {
	event, err := s.repo.ToggleLikeEvent(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

func (s *server) participate(w http.ResponseWriter, r *http.Request, id int64) {
	event, err := s.repo.ToggleParticipate(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, event)
}

// jobs

func (s *server) me(w http.ResponseWriter) (model.Session, bool) {
	session := s.holder.Session()
	if !session.LoggedIn() {
		s.writeError(w, repository.ErrLoggedOut)
		return session, false
	}
	return session, true
}

func (s *server) listMyJobs(w http.ResponseWriter, r *http.Request) {
	if session, ok := s.me(w); ok {
		s.listJobs(w, r, session.ID)
	}
}

func (s *server) refreshMyJobs(w http.ResponseWriter, r *http.Request) {
	s.refreshed(w, s.repo.FetchMyJobs(r.Context()))
}

func (s *server) watchMyJobs(w http.ResponseWriter, r *http.Request) {
	stream(s, w, r, s.repo.WatchMyJobs(r.Context()))
}

func (s *server) saveJob(w http.ResponseWriter, r *http.Request) {
	var job model.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		s.badRequest(w, "invalid job: "+err.Error())
		return
	}
	saved, err := s.repo.SaveJob(r.Context(), job)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, saved)
}

func (s *server) removeJob(w http.ResponseWriter, r *http.Request, id int64) {
	s.removed(w, s.repo.RemoveJob(r.Context(), id))
}

func (s *server) listJobs(w http.ResponseWriter, r *http.Request, userID int64) {
	jobs, err := s.repo.Jobs(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

func (s *server) refreshJobs(w http.ResponseWriter, r *http.Request, userID int64) {
	s.refreshed(w, s.repo.FetchJobs(r.Context(), userID))
}

func (s *server) watchJobs(w http.ResponseWriter, r *http.Request, userID int64) {
	stream(s, w, r, s.repo.WatchJobs(r.Context(), userID))
}

// users and walls

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.repo.Users(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, users)
}

func (s *server) refreshUsers(w http.ResponseWriter, r *http.Request) {
	s.refreshed(w, s.repo.FetchUsers(r.Context()))
}

func (s *server) watchUsers(w http.ResponseWriter, r *http.Request) {
	stream(s, w, r, s.repo.WatchUsers(r.Context()))
}

func (s *server) refreshUser(w http.ResponseWriter, r *http.Request, id int64) {
	user, err := s.repo.FetchUser(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

func (s *server) listWall(w http.ResponseWriter, r *http.Request, authorID int64) {
	posts, err := s.repo.Wall(r.Context(), authorID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, posts)
}

func (s *server) refreshWall(w http.ResponseWriter, r *http.Request, authorID int64) {
	s.refreshed(w, s.repo.FetchWall(r.Context(), authorID))
}

func (s *server) watchWall(w http.ResponseWriter, r *http.Request, authorID int64) {
	stream(s, w, r, s.repo.WatchWall(r.Context(), authorID))
}

func (s *server) refreshMyWall(w http.ResponseWriter, r *http.Request) {
	s.refreshed(w, s.repo.FetchMyWall(r.Context()))
}

// auth

type credentials struct {
	Login    string `json:"login"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

// sessionView hides the token from readers of the session
type sessionView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name,omitempty"`
	LoggedIn bool   `json:"logged_in"`
}

func viewOf(session model.Session) sessionView {
	return sessionView{ID: session.ID, Name: session.Name, LoggedIn: session.LoggedIn()}
}

func (s *server) session(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, viewOf(s.holder.Session()))
}

func (s *server) watchSession(w http.ResponseWriter, r *http.Request) {
	sessions := s.holder.Subscribe(r.Context())
	views := make(chan sessionView)
	go func() {
		defer close(views)
		for session := range sessions {
			select {
			case views <- viewOf(session):
			case <-r.Context().Done():
				return
			}
		}
	}()
	stream(s, w, r, views)
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.badRequest(w, "invalid credentials: "+err.Error())
		return
	}
	session, err := s.repo.Authenticate(r.Context(), creds.Login, creds.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.startSession(w, r, session)
}

// register accepts json credentials, or a multipart form with the fields
// login, password, name and an optional avatar in "file"
func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	var avatar *model.MediaUpload
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, MAX_UPLOAD_BYTES)
		if err := r.ParseMultipartForm(MAX_UPLOAD_BYTES); err != nil {
			s.badRequest(w, "invalid form: "+err.Error())
			return
		}
		creds = credentials{Login: r.FormValue("login"), Password: r.FormValue("password"), Name: r.FormValue("name")}
		media, err := formFile(r)
		if err != nil && !errors.Is(err, http.ErrMissingFile) {
			s.badRequest(w, err.Error())
			return
		}
		if err == nil {
			avatar = &media
		}
	} else if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		s.badRequest(w, "invalid credentials: "+err.Error())
		return
	}
	if creds.Login == "" || creds.Password == "" || creds.Name == "" {
		s.badRequest(w, "login, password and name are required")
		return
	}

	var session model.Session
	var err error
	if avatar != nil {
		session, err = s.repo.RegisterWithAvatar(r.Context(), creds.Login, creds.Password, creds.Name, *avatar)
	} else {
		session, err = s.repo.Register(r.Context(), creds.Login, creds.Password, creds.Name)
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.startSession(w, r, session)
}

func (s *server) startSession(w http.ResponseWriter, r *http.Request, session model.Session) {
	if err := s.holder.SetAuth(r.Context(), session.ID, session.Token, session.Name); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, viewOf(s.holder.Session()))
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.holder.RemoveAuth(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// helpers

func (s *server) refreshed(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) removed(w http.ResponseWriter, err error) {
	s.refreshed(w, err)
}

// readEntityWithMedia decodes the json "entity" field into v and reads "file"
func readEntityWithMedia(w http.ResponseWriter, r *http.Request, v any) (model.MediaUpload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MAX_UPLOAD_BYTES)
	if err := r.ParseMultipartForm(MAX_UPLOAD_BYTES); err != nil {
		return model.MediaUpload{}, fmt.Errorf("invalid form: %w", err)
	}
	if err := json.Unmarshal([]byte(r.FormValue("entity")), v); err != nil {
		return model.MediaUpload{}, fmt.Errorf("invalid entity: %w", err)
	}
	return formFile(r)
}

func formFile(r *http.Request) (model.MediaUpload, error) {
	file, header, err := r.FormFile("file")
	if err != nil {
		return model.MediaUpload{}, err
	}
	defer file.Close()
	return readUpload(file, header)
}

func readUpload(file multipart.File, header *multipart.FileHeader) (model.MediaUpload, error) {
	data, err := io.ReadAll(file)
	if err != nil {
		return model.MediaUpload{}, fmt.Errorf("error reading upload %s: %w", header.Filename, err)
	}
	return model.MediaUpload{Filename: header.Filename, Data: data}, nil
}
