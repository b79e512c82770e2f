// Package client talks to the forensiq API: it submits evidence for
// analysis and reads past investigations.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/forensiq/internal/domain/artifacterrors"
	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
	"github.com/bryanwahyu/forensiq/internal/domain/investigation"
)

// DefaultErrorMessage is reported when the server gives no reason.
const DefaultErrorMessage = "Analysis failed"

const formField = "evidence_files"

// ErrBusy is returned when a submission is already in flight.
var ErrBusy = errors.New("an analysis is already in progress")

// APIError is a failure reported by the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// File is one piece of evidence to upload.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// Result is the analysis outcome returned by POST /analyze.
type Result struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Report     string           `json:"report"`
	Timeline   []evidence.Event `json:"timeline"`
	ArchiveURL string           `json:"archive_url,omitempty"`
	Error      string           `json:"error,omitempty"`
}

type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client

	inFlight atomic.Bool
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Loading reports whether a submission is in flight.
func (c *Client) Loading() bool { return c.inFlight.Load() }

// Analyze uploads files in one multipart request. Only one call may run at a
// time; a concurrent call fails with ErrBusy.
func (c *Client) Analyze(ctx context.Context, files []File) (*Result, error) {
	if !c.inFlight.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer c.inFlight.Store(false)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeParts(mw, files))
	}()

	// closing the reader unblocks writeParts if the server answers early
	defer pr.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/analyze", pr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var res Result
	decodeErr := json.NewDecoder(resp.Body).Decode(&res)
	if resp.StatusCode < 200 || resp.StatusCode > 299 || res.Error != "" {
		msg := res.Error
		if msg == "" {
			msg = DefaultErrorMessage
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: DefaultErrorMessage}
	}
	return &res, nil
}

func writeParts(mw *multipart.Writer, files []File) error {
	for _, f := range files {
		part, err := mw.CreateFormFile(formField, f.Name)
		if err != nil {
			return err
		}
		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("open %s: %w", f.Name, err)
		}
		_, err = io.Copy(part, rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	return mw.Close()
}

// Latest lists recent investigations.
func (c *Client) Latest(ctx context.Context, limit int) ([]*investigation.Investigation, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []*investigation.Investigation
	return out, c.getJSON(ctx, "/v1/investigations/latest?"+q.Encode(), &out)
}

func (c *Client) Get(ctx context.Context, id string) (*investigation.Investigation, error) {
	var out investigation.Investigation
	if err := c.getJSON(ctx, "/v1/investigations/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Errors lists the files of an investigation that produced no events.
func (c *Client) Errors(ctx context.Context, id string) ([]*artifacterrors.ArtifactError, error) {
	var out []*artifacterrors.ArtifactError
	return out, c.getJSON(ctx, "/v1/investigations/"+url.PathEscape(id)+"/errors", &out)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) authorize(req *http.Request) {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
}
