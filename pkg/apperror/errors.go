// Package apperror holds the three kinds of failure the repository reports.
package apperror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
)

// NetworkError is a transport or connectivity failure
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ApiError is a response with a non-success status
type ApiError struct {
	Status  int
	Message string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("api error: %d %s", e.Status, e.Message)
}

// UnknownError is anything else
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown error: %s", e.Err)
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// Classify maps err onto the taxonomy. Errors that are already classified
// are returned unchanged, nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *ApiError
	var netErr *NetworkError
	var unknownErr *UnknownError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &netErr):
		return netErr
	case errors.As(err, &unknownErr):
		return unknownErr
	case errors.Is(err, context.Canceled):
		return &UnknownError{Err: err}
	case isNetwork(err):
		return &NetworkError{Err: err}
	}
	return &UnknownError{Err: err}
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr net.Error
	if errors.As(err, &opErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Status returns the http status carried by an ApiError, or 0
func Status(err error) int {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Kind names the taxonomy entry of err
func Kind(err error) string {
	var apiErr *ApiError
	var netErr *NetworkError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &netErr):
		return "network"
	}
	return "unknown"
}
