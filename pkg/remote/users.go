package remote

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"nework/pkg/model"
)

type AuthResponse struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
}

func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	return call[[]model.User](ctx, c, request{endpoint: "users.list", method: http.MethodGet, path: []string{"users"}})
}

func (c *Client) User(ctx context.Context, userID int64) (model.User, error) {
	return call[model.User](ctx, c, request{endpoint: "users.get", method: http.MethodGet, path: []string{"users", id(userID)}})
}

func (c *Client) Authenticate(ctx context.Context, login string, password string) (AuthResponse, error) {
	form := url.Values{}
	form.Set("login", login)
	form.Set("password", password)
	return call[AuthResponse](ctx, c, request{
		endpoint:    "users.authentication",
		method:      http.MethodPost,
		path:        []string{"users", "authentication"},
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	})
}

// Register creates an account; avatar may be nil
func (c *Client) Register(ctx context.Context, login string, password string, name string, avatar *model.MediaUpload) (AuthResponse, error) {
	fields := map[string]string{"login": login, "password": password, "name": name}
	r := request{
		endpoint: "users.registration",
		method:   http.MethodPost,
		path:     []string{"users", "registration"},
	}
	if avatar == nil {
		form := url.Values{}
		for k, v := range fields {
			form.Set(k, v)
		}
		r.body = strings.NewReader(form.Encode())
		r.contentType = "application/x-www-form-urlencoded"
	} else {
		body, contentType, err := multipartBody(fields, avatar)
		if err != nil {
			return AuthResponse{}, err
		}
		r.body = body
		r.contentType = contentType
	}
	return call[AuthResponse](ctx, c, r)
}

// Upload sends a file to the media endpoint and returns its reference
func (c *Client) Upload(ctx context.Context, media model.MediaUpload) (model.Media, error) {
	body, contentType, err := multipartBody(nil, &media)
	if err != nil {
		return model.Media{}, err
	}
	return call[model.Media](ctx, c, request{
		endpoint:    "media.upload",
		method:      http.MethodPost,
		path:        []string{"media"},
		body:        body,
		contentType: contentType,
	})
}

func multipartBody(fields map[string]string, file *model.MediaUpload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Filename)))
	header.Set("Content-Type", http.DetectContentType(file.Data))
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(file.Data); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
