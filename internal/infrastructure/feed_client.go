package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/yourusername/suno-sync-go/internal/domain"
)

// HTTPFeedClient implements domain.FeedClient against the Suno studio API.
type HTTPFeedClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewHTTPFeedClient creates a feed client with a per-call timeout.
func NewHTTPFeedClient(baseURL, token string, timeout time.Duration) *HTTPFeedClient {
	return &HTTPFeedClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
	}
}

// pageURL builds the feed URL for one page. The filter flags match what the
// web client sends; without them the feed includes disliked and studio clips.
func (c *HTTPFeedClient) pageURL(index int) string {
	q := url.Values{}
	q.Set("hide_disliked", "true")
	q.Set("hide_gen_stems", "true")
	q.Set("hide_studio_clips", "true")
	q.Set("page", strconv.Itoa(index))
	return c.baseURL + "?" + q.Encode()
}

// FetchPage retrieves one page of the feed and decodes its clip batch.
func (c *HTTPFeedClient) FetchPage(ctx context.Context, index int) ([]domain.Clip, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(index), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build page request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page %d request failed: %w", index, err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d body: %w", index, err)
	}
	return decodeClipBatch(body)
}

// Stream opens the audio resource for reading. Callers own the ReadCloser.
func (c *HTTPFeedClient) Stream(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, -1, fmt.Errorf("failed to build stream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, -1, fmt.Errorf("stream request failed: %w", err)
	}
	if err := classifyStatus(resp.StatusCode); err != nil {
		resp.Body.Close()
		return nil, -1, err
	}
	return resp.Body, resp.ContentLength, nil
}

// classifyStatus maps response codes onto the error taxonomy: 401/403 are
// credential failures, everything else non-2xx is an HTTP status error whose
// retryability depends on the code (429/5xx transient, other 4xx permanent).
func classifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &domain.AuthError{StatusCode: code}
	case code >= 200 && code < 300:
		return nil
	default:
		return &domain.HTTPStatusError{StatusCode: code}
	}
}

// decodeClipBatch accepts both feed payload shapes: a bare JSON array of
// clips, or an object with a "clips" field.
func decodeClipBatch(body []byte) ([]domain.Clip, error) {
	var direct []domain.Clip
	if err := json.Unmarshal(body, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Clips []domain.Clip `json:"clips"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode feed payload: %w", err)
	}
	if wrapped.Clips == nil {
		wrapped.Clips = []domain.Clip{}
	}
	return wrapped.Clips, nil
}
