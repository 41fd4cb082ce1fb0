package jobapi

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"roadeye/internal/config"
	"roadeye/internal/services"
)

// Upload sends the media file at path for jobID using the configured upload
// mode.
func (c *Client) Upload(ctx context.Context, jobID, path string) error {
	if c.cfg.UploadMode == config.UploadModePresigned {
		return c.UploadPresigned(ctx, jobID, path)
	}
	return c.UploadFile(ctx, jobID, path)
}

// UploadFile streams the file as multipart form data under field "file".
func (c *Client) UploadFile(ctx context.Context, jobID, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "uploading", "open media", path, err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		part, err := form.CreateFormFile("file", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = form.Close()
		}
		pw.CloseWithError(err)
	}()

	resp, err := c.send(ctx, "upload media", http.MethodPost, jobPath(jobID, "upload"), pr, form.FormDataContentType())
	// Unblock the writer goroutine if the request ended before draining the pipe.
	_ = pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// UploadPresigned asks the service for a storage URL, PUTs the bytes there,
// and confirms completion.
func (c *Client) UploadPresigned(ctx context.Context, jobID, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return services.Wrap(services.ErrValidation, "uploading", "open media", path, err)
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return services.Wrap(services.ErrValidation, "uploading", "stat media", path, err)
	}

	contentType := contentTypeFor(path)
	var target uploadURLResponse
	request := uploadURLRequest{Filename: filepath.Base(path), ContentType: contentType}
	if err := c.doJSON(ctx, "request upload url", http.MethodPost, jobPath(jobID, "upload-url"), request, &target); err != nil {
		return err
	}
	if strings.TrimSpace(target.UploadURL) == "" || strings.TrimSpace(target.VideoKey) == "" {
		return services.Wrap(services.ErrRemoteRejected, "uploading", "request upload url", "response missing upload_url or video_key", nil)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target.UploadURL, file)
	if err != nil {
		return fmt.Errorf("put media: build request: %w", err)
	}
	req.ContentLength = info.Size()
	req.Header.Set("Content-Type", contentType)
	resp, err := c.do(req, "put media")
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	complete := uploadCompleteRequest{VideoKey: target.VideoKey}
	return c.doJSON(ctx, "complete upload", http.MethodPost, jobPath(jobID, "upload-complete"), complete, nil)
}

var videoContentTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := videoContentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
