package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"nework/pkg/apperror"
	"nework/pkg/auth"
	"nework/pkg/repository"
)

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Status int    `json:"status,omitempty"`
}

func (s *server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("error writing response", "msg", err.Error())
	}
}

// writeError answers with the status of an api error, 502 for network
// failures and 500 for anything else
func (s *server) writeError(w http.ResponseWriter, err error) {
	err = apperror.Classify(err)
	resp := errorResponse{Error: err.Error(), Kind: apperror.Kind(err), Status: apperror.Status(err)}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrLoggedOut), errors.Is(err, auth.ErrExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, repository.ErrInvalidUser), errors.Is(err, repository.ErrUnsupportedMedia):
		status = http.StatusBadRequest
		resp.Kind = "request"
	case resp.Kind == "api":
		status = resp.Status
	case resp.Kind == "network":
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, resp)
}

func (s *server) badRequest(w http.ResponseWriter, msg string) {
	s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: "request"})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", r.PathValue("id"))
	}
	return id, nil
}

// withID parses the {id} path segment before calling fn
func (s *server) withID(fn func(http.ResponseWriter, *http.Request, int64)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			s.badRequest(w, err.Error())
			return
		}
		fn(w, r, id)
	}
}

// stream writes every value of ch as a server-sent event until the client
// goes away or ch is closed
func stream[T any](s *server, w http.ResponseWriter, r *http.Request, ch <-chan T) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	for v := range ch {
		b, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("error converting snapshot to json", "msg", err.Error())
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", b); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			s.logger.Debug("stream flush failed", "path", r.URL.Path, "msg", err.Error())
			return
		}
	}
}
