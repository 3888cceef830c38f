package jobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/notttired/aire-frontend/internal/entity"
	"github.com/notttired/aire-frontend/internal/repository"
	"github.com/notttired/aire-frontend/pkg/metrics"
	"github.com/notttired/aire-frontend/pkg/utils"
)

const (
	endpointScrape  = "scrape"
	endpointResults = "results"
)

// Client talks JSON to the scrape job API, either directly or through the proxy.
type Client struct {
	baseURL string
	http    *http.Client
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, m *metrics.Metrics, l *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		metrics: m,
		logger:  l,
	}
}

var _ repository.JobAPIRepository = (*Client)(nil)

// Submit posts req to /scrape. A truthy task_id yields a handle to poll;
// any other JSON body is returned as a direct result.
func (c *Client) Submit(ctx context.Context, req *entity.ScrapeRequest) (*entity.SubmitResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, utils.JoinURL(c.baseURL, endpointScrape), body)
	c.metrics.IncUpstream(endpointScrape, outcome(err))
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		if id, ok := truthyString(fields["task_id"]); ok {
			return &entity.SubmitResult{Handle: entity.JobHandle(id)}, nil
		}
	}
	return &entity.SubmitResult{Direct: raw}, nil
}

// FetchStatus issues a single GET /results/{id}.
func (c *Client) FetchStatus(ctx context.Context, id entity.JobHandle) (*entity.JobStatus, error) {
	raw, err := c.do(ctx, http.MethodGet, utils.JoinURL(c.baseURL, endpointResults, string(id)), nil)
	c.metrics.IncUpstream(endpointResults, outcome(err))
	if err != nil {
		return nil, err
	}

	status := &entity.JobStatus{Raw: raw}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		// Valid JSON but not an object: no status, keep polling.
		return status, nil
	}

	var kind string
	if err := json.Unmarshal(fields["status"], &kind); err == nil {
		status.Status = entity.StatusKind(kind)
	}
	status.Data = fields["data"]
	status.Error, _ = truthyString(fields["error"])
	return status, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) (json.RawMessage, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &repository.TransportError{URL: endpoint, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &repository.TransportError{URL: endpoint, Err: fmt.Errorf("read response: %w", err)}
	}
	c.logger.Debug("upstream response",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.ByteString("body", truncate(raw, 512)),
	)

	var probe any
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, &repository.MalformedResponseError{
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       raw,
			Summary:    summarize(resp.Header.Get("Content-Type"), raw),
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &repository.RemoteError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(raw, resp.StatusCode),
		}
	}
	return raw, nil
}

// errorMessage picks detail, then error, then the reason phrase.
func errorMessage(raw []byte, code int) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err == nil {
		for _, key := range []string{"detail", "error"} {
			if msg, ok := truthyString(fields[key]); ok {
				return msg
			}
		}
	}
	return repository.ReasonMessage(code)
}

// truthyString returns a non-empty string form of v, skipping null, false,
// zero and "" the way a loose JSON consumer would.
func truthyString(v json.RawMessage) (string, bool) {
	if len(v) == 0 {
		return "", false
	}
	var decoded any
	if err := json.Unmarshal(v, &decoded); err != nil {
		return "", false
	}
	switch t := decoded.(type) {
	case nil:
		return "", false
	case string:
		return t, t != ""
	case bool:
		if !t {
			return "", false
		}
	case float64:
		if t == 0 {
			return "", false
		}
	}
	compact := new(bytes.Buffer)
	if err := json.Compact(compact, v); err != nil {
		return string(v), true
	}
	return compact.String(), true
}

func outcome(err error) string {
	var (
		transport *repository.TransportError
		malformed *repository.MalformedResponseError
		remote    *repository.RemoteError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &transport):
		return "transport_error"
	case errors.As(err, &malformed):
		return "malformed_response"
	case errors.As(err, &remote):
		return "remote_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
