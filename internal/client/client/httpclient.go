package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/examvault/internal/client/models"
	"github.com/dmitrijs2005/examvault/internal/netx"
)

type HTTPClient struct {
	baseURL         string
	http            *http.Client
	requestTimeout  time.Duration
	transferTimeout time.Duration
}

// NewHTTPClient returns a client for the API rooted at baseURL, e.g.
// "http://127.0.0.1:5000/api".
func NewHTTPClient(baseURL string, requestTimeout, transferTimeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}
	return &HTTPClient{
		baseURL:         strings.TrimRight(baseURL, "/"),
		http:            &http.Client{},
		requestTimeout:  requestTimeout,
		transferTimeout: transferTimeout,
	}, nil
}

func (c *HTTPClient) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// do sends req and maps transport failures and error statuses onto the
// package sentinels. On success the caller owns resp.Body.
func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if err := netx.CheckStatus(resp); err != nil {
		resp.Body.Close()
		return nil, mapError(err)
	}
	return resp, nil
}

func mapError(err error) error {
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch {
	case se.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", ErrUnauthorized, se)
	case se.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, se)
	case se.StatusCode >= 500:
		return fmt.Errorf("%w: %w", ErrServer, se)
	default:
		return fmt.Errorf("%w: %w", ErrRejected, se)
	}
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return netx.DecodeJSON(resp, v)
}

func (c *HTTPClient) Health(ctx context.Context) (*models.Health, error) {
	var h models.Health
	if err := c.getJSON(ctx, "health", &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *HTTPClient) List(ctx context.Context) ([]models.FileInfo, error) {
	var l models.FileList
	if err := c.getJSON(ctx, "files", &l); err != nil {
		return nil, err
	}
	return l.Files, nil
}

// Upload streams the form through a pipe so large documents are not held in
// memory twice.
func (c *HTTPClient) Upload(ctx context.Context, in UploadRequest) (*models.UploadResult, error) {
	ctx, cancel := withTimeout(ctx, c.transferTimeout)
	defer cancel()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeUploadForm(mw, in))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("upload"), pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	defer resp.Body.Close()

	var out models.UploadResult
	if err := netx.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func writeUploadForm(mw *multipart.Writer, in UploadRequest) error {
	fields := []struct{ name, value string }{
		{"password", string(in.Password)},
		{"subject", in.Subject},
		{"exam_date", in.ExamDate},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return err
		}
	}

	fw, err := mw.CreateFormFile("file", in.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fw, in.Content); err != nil {
		return err
	}
	return mw.Close()
}

func (c *HTTPClient) postSecret(ctx context.Context, op, id string, password []byte) (*http.Response, error) {
	body, err := json.Marshal(map[string]string{"password": string(password)})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(op, id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *HTTPClient) Verify(ctx context.Context, id string, password []byte) (*models.FileInfo, error) {
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.postSecret(ctx, "verify", id, password)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out models.VerifyResult
	if err := netx.DecodeJSON(resp, &out); err != nil {
		return nil, err
	}
	if !out.Valid {
		return nil, ErrUnauthorized
	}
	if out.FileInfo == nil {
		out.FileInfo = &models.FileInfo{}
	}
	out.FileInfo.FileID = id
	return out.FileInfo, nil
}

func (c *HTTPClient) Download(ctx context.Context, id string, password []byte, w io.Writer) (string, error) {
	ctx, cancel := withTimeout(ctx, c.transferTimeout)
	defer cancel()

	resp, err := c.postSecret(ctx, "download", id, password)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("download %s: %w", id, err)
	}
	return attachmentName(resp.Header.Get("Content-Disposition")), nil
}

// attachmentName extracts filename from a Content-Disposition header, or
// returns "" when there is none.
func attachmentName(header string) string {
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}

func (c *HTTPClient) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint("delete", id), nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}
