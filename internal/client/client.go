package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultResultFilename is used when the server response carries no usable
// Content-Disposition filename.
const DefaultResultFilename = "result.xlsx"

var contentDispositionFilename = regexp.MustCompile(`filename="?([^"]+)"?`)

// Client talks to the validation server's task API. It deliberately sets no
// request-level timeout: the upstream protocol defines none, and polling
// cadence is owned by the session. Callers control cancellation via ctx.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{},
	}
}

// Upload submits the input file together with the submission options as one
// multipart POST /api/upload and returns the server-issued task id.
func (c *Client) Upload(ctx context.Context, filePath string, opts SubmitOptions) (string, error) {
	body, contentType, err := buildUploadBody(filePath, opts)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/upload", body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpc.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("upload request failed")
		return "", &UploadError{Message: genericUploadError}
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		log.Warn().Err(err).Int("status", resp.StatusCode).Msg("upload response decode failed")
		return "", &UploadError{Message: genericUploadError}
	}
	if resp.StatusCode != http.StatusOK || parsed.TaskID == "" {
		msg := parsed.Error
		if msg == "" {
			msg = genericUploadError
		}
		return "", &UploadError{Message: msg}
	}
	return parsed.TaskID, nil
}

// Status queries GET /api/status/{task_id}. Transport and decode failures are
// reported as *PollError, same as a server-side error payload would be.
func (c *Client) Status(ctx context.Context, taskID string) (StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/status/"+taskID, nil)
	if err != nil {
		return StatusResponse{}, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return StatusResponse{}, &PollError{Message: genericPollError}
	}
	defer func() { _ = resp.Body.Close() }()

	var parsed StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return StatusResponse{}, &PollError{Message: genericPollError}
	}
	if resp.StatusCode != http.StatusOK {
		msg := parsed.Error
		if msg == "" {
			msg = genericPollError
		}
		return StatusResponse{}, &PollError{Message: msg}
	}
	return parsed, nil
}

// Download fetches the result artifact of a completed task via
// GET /api/download/{task_id}. The suggested filename comes from the
// Content-Disposition header, falling back to DefaultResultFilename.
func (c *Client) Download(ctx context.Context, taskID string) (data []byte, filename string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/download/"+taskID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, "", &DownloadError{Message: genericDownloadError}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var parsed errorResponse
		msg := genericDownloadError
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err == nil && parsed.Error != "" {
			msg = parsed.Error
		}
		return nil, "", &DownloadError{Message: msg}
	}

	data, err = io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", &DownloadError{Message: genericDownloadError}
	}
	return data, filenameFromHeader(resp.Header.Get("Content-Disposition")), nil
}

// filenameFromHeader extracts the suggested filename from a
// Content-Disposition value.
func filenameFromHeader(header string) string {
	if m := contentDispositionFilename.FindStringSubmatch(header); m != nil {
		return m[1]
	}
	return DefaultResultFilename
}

func buildUploadBody(filePath string, opts SubmitOptions) (io.Reader, string, error) {
	f, err := os.Open(filePath) //nolint:gosec // path was vetted by the file gate
	if err != nil {
		return nil, "", fmt.Errorf("open input file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("copy file into form: %w", err)
	}

	fields := map[string]string{
		"timeout":          strconv.Itoa(opts.TimeoutSeconds),
		"check_smtp":       strconv.FormatBool(opts.CheckSMTP),
		"separate_invalid": strconv.FormatBool(opts.SeparateInvalid),
	}
	if opts.MaxEmails > 0 {
		fields["max_emails"] = strconv.Itoa(opts.MaxEmails)
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
