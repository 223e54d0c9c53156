// Package transcription is the HTTP client for the transcription service.
package transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alkime/scribe/internal/audio"
	"github.com/alkime/scribe/pkg/uictl"
)

const (
	// TranscribePath is the service route that accepts uploads.
	TranscribePath = "/transcribe"
	// FileField is the multipart field carrying the audio.
	FileField = "file"

	maxErrorBody = 4 << 10
)

// Client posts audio files to a transcription service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	progress   atomic.Pointer[uploadProgress]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client. hc itself is never
// modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds every request. Zero leaves the http.Client's own
// timeout in place.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for the service rooted at endpoint,
// e.g. http://localhost:5000.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}

	c.progress.Store(&uploadProgress{})

	for _, opt := range opts {
		opt(c)
	}

	// copy so a shared client such as http.DefaultClient keeps its timeout
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	return c
}

// Endpoint returns the service base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Progress reports bytes sent for the most recent upload against its body
// size. An abandoned upload that is still draining does not count.
func (c *Client) Progress() uictl.CappedDial[int64] {
	return latestProgress{c: c}
}

// Transcribe uploads file and returns the transcribed text. Exactly one
// request is made; any failure is returned as a *ServiceError.
func (c *Client) Transcribe(ctx context.Context, file audio.File) (string, error) {
	body, contentType, err := encodeForm(file)
	if err != nil {
		return "", &ServiceError{Err: err}
	}

	progress := &uploadProgress{total: int64(body.Len())}
	c.progress.Store(progress)

	url := c.endpoint + TranscribePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &countingReader{r: body, n: &progress.sent})
	if err != nil {
		return "", &ServiceError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.ContentLength = progress.total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Submitting audio for transcription",
		"url", url,
		"file", file.Name,
		"media_type", file.MediaType,
		"bytes", req.ContentLength,
	)

	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ServiceError{Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ServiceError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.Debug("Transcription service responded",
		"status", resp.StatusCode,
		"elapsed", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ServiceError{
			StatusCode: resp.StatusCode,
			Body:       truncate(payload, maxErrorBody),
			Err:        ErrUnexpectedStatus,
		}
	}

	text, err := decodeTranscription(payload)
	if err != nil {
		return "", &ServiceError{
			StatusCode: resp.StatusCode,
			Body:       truncate(payload, maxErrorBody),
			Err:        err,
		}
	}

	return text, nil
}

// encodeForm builds the single-part multipart body. The part carries the
// original filename and the declared media type.
func encodeForm(file audio.File) (*bytes.Buffer, string, error) {
	src, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer src.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", multipart.FileContentDisposition(FileField, file.Name))

	mediaType := file.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	header.Set("Content-Type", mediaType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form part: %w", err)
	}

	if _, err := io.Copy(part, src); err != nil {
		return nil, "", fmt.Errorf("failed to copy audio into form: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form writer: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

type transcriptionBody struct {
	Transcription *string `json:"transcription"`
}

func decodeTranscription(payload []byte) (string, error) {
	var body transcriptionBody
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if body.Transcription == nil {
		return "", fmt.Errorf("%w: missing transcription field", ErrMalformedResponse)
	}

	return *body.Transcription, nil
}

func truncate(b []byte, limit int) string {
	if len(b) > limit {
		b = b[:limit]
	}

	return strings.TrimSpace(string(b))
}

// uploadProgress counts one request's body bytes. total is fixed before
// the request starts.
type uploadProgress struct {
	sent  atomic.Int64
	total int64
}

// latestProgress implements uictl.CappedDial[int64] over whichever upload
// started last.
type latestProgress struct {
	c *Client
}

func (lp latestProgress) Read() int64 {
	return lp.c.progress.Load().sent.Load()
}

func (lp latestProgress) Cap() (int64, int64) {
	p := lp.c.progress.Load()
	return p.sent.Load(), p.total
}

type countingReader struct {
	r io.Reader
	n *atomic.Int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n.Add(int64(n))

	return n, err
}

// isTimeout reports whether err came from a deadline rather than a refusal.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }

	return errors.As(err, &timeout) && timeout.Timeout()
}
