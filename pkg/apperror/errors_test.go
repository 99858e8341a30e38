package apperror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	dialErr := &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"api", &ApiError{Status: 404, Message: "Not Found"}, "api"},
		{"wrapped api", fmt.Errorf("fetch posts: %w", &ApiError{Status: 500}), "api"},
		{"dial", dialErr, "network"},
		{"url", &url.Error{Op: "Get", URL: "http://x", Err: dialErr}, "network"},
		{"eof", io.ErrUnexpectedEOF, "network"},
		{"deadline", context.DeadlineExceeded, "network"},
		{"canceled", context.Canceled, "unknown"},
		{"decode", errors.New("invalid character 'x'"), "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, Kind(Classify(tc.err)))
		})
	}
}

func TestClassifyKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Classify(cause)

	var unknownErr *UnknownError
	require.ErrorAs(t, err, &unknownErr)
	assert.ErrorIs(t, err, cause)
	assert.Same(t, err, Classify(err))
	assert.Nil(t, Classify(nil))
}

func TestStatus(t *testing.T) {
	assert.Equal(t, 403, Status(fmt.Errorf("save: %w", &ApiError{Status: 403})))
	assert.Equal(t, 0, Status(&NetworkError{Err: io.EOF}))
}
