package repository

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"nework/pkg/model"
)

// AttachmentType returns the declared type of media, or sniffs it from the
// content and then the file extension
func AttachmentType(media model.MediaUpload) (model.AttachmentType, error) {
	if media.Type != "" {
		return media.Type, nil
	}
	if t, ok := attachmentTypeOf(http.DetectContentType(media.Data)); ok {
		return t, nil
	}
	ext := strings.ToLower(filepath.Ext(media.Filename))
	if t, ok := extensionTypes[ext]; ok {
		return t, nil
	}
	if t, ok := attachmentTypeOf(mime.TypeByExtension(ext)); ok {
		return t, nil
	}
	return "", fmt.Errorf("%w %q", ErrUnsupportedMedia, media.Filename)
}

// extensions the content sniffer does not recognize
var extensionTypes = map[string]model.AttachmentType{
	".mp4":  model.ATTACHMENT_VIDEO,
	".m4v":  model.ATTACHMENT_VIDEO,
	".mov":  model.ATTACHMENT_VIDEO,
	".mkv":  model.ATTACHMENT_VIDEO,
	".3gp":  model.ATTACHMENT_VIDEO,
	".m4a":  model.ATTACHMENT_AUDIO,
	".aac":  model.ATTACHMENT_AUDIO,
	".flac": model.ATTACHMENT_AUDIO,
	".heic": model.ATTACHMENT_IMAGE,
}

func attachmentTypeOf(contentType string) (model.AttachmentType, bool) {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return model.ATTACHMENT_IMAGE, true
	case strings.HasPrefix(contentType, "video/"):
		return model.ATTACHMENT_VIDEO, true
	case strings.HasPrefix(contentType, "audio/"):
		return model.ATTACHMENT_AUDIO, true
	}
	return "", false
}

// upload sends media to the server unless the same content was uploaded
// before. Media cache failures only cost an upload.
func (r *Repository) upload(ctx context.Context, media model.MediaUpload) (model.Attachment, error) {
	kind, err := AttachmentType(media)
	if err != nil {
		return model.Attachment{}, err
	}

	url, ok, err := r.media.Get(ctx, media.Data)
	if err != nil {
		r.logger.Warn("error reading media cache", "msg", err.Error())
	}
	if ok {
		r.logger.Debug("reusing uploaded media", "file", media.Filename, "url", url)
		return model.Attachment{URL: url, Type: kind}, nil
	}

	uploaded, err := r.remote.Upload(ctx, media)
	if err != nil {
		return model.Attachment{}, err
	}
	if err := r.media.Set(ctx, media.Data, uploaded.URL); err != nil {
		r.logger.Warn("error writing media cache", "msg", err.Error())
	}
	return model.Attachment{URL: uploaded.URL, Type: kind}, nil
}
