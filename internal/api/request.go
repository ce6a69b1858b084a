package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"
)

// Error taxonomy surfaced to callers. Wrapped by *APIError, so callers branch
// with errors.Is against these sentinels.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrUnsupported  = errors.New("api unsupported")
	ErrRateLimited  = errors.New("rate limited")
)

// APIError represents a failed KOOK API call. StatusCode is the HTTP status;
// Code is the KOOK envelope code (non-zero means failure even on HTTP 200).
type APIError struct {
	StatusCode int
	Code       int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("kook api error code %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("kook api error %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the HTTP status onto the error taxonomy.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return ErrUnsupported
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return nil
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// envelope is the wrapper shared by every KOOK REST response.
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// doRequest performs an HTTP request and unwraps the response envelope,
// returning the inner data payload.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (json.RawMessage, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bot "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       respBody,
		}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fmt.Errorf("unmarshal response envelope: %w", err)
	}
	if env.Code != 0 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Code:       env.Code,
			Message:    env.Message,
			Body:       respBody,
		}
	}

	return env.Data, nil
}

// doWithRetry performs a request with exponential backoff retry. Only GET
// requests are retried; a non-idempotent body cannot be replayed from here.
func (c *Client) doWithRetry(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"path", path,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		data, err := c.doRequest(ctx, http.MethodGet, path, query, nil, "")
		if err == nil {
			return data, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// get performs a GET request with retries and decodes the data payload.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	data, err := c.doWithRetry(ctx, path, query)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// Call performs a generic API call. GET requests encode params as a query
// string; other methods send them as a JSON body. The inner data payload is
// returned undecoded.
func (c *Client) Call(ctx context.Context, method, path string, params map[string]any) (json.RawMessage, error) {
	if method == http.MethodGet {
		query := url.Values{}
		for k, v := range params {
			query.Set(k, fmt.Sprint(v))
		}
		return c.doWithRetry(ctx, path, query)
	}

	var body io.Reader
	contentType := ""
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	return c.doRequest(ctx, method, path, nil, body, contentType)
}

// CallWithFile performs a multipart POST, used by asset/create style uploads.
func (c *Client) CallWithFile(ctx context.Context, path, field, filename string, file io.Reader) (json.RawMessage, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	return c.doRequest(ctx, http.MethodPost, path, nil, &buf, mw.FormDataContentType())
}
