// Package graph is a minimal client for the Meta Graph API: authenticated
// reads of media/comment context and threaded comment replies.
package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrMissingCredential reports that a Graph API call was attempted without
// an access token. Fatal for the specific call; caught at the call site.
var ErrMissingCredential = errors.New("graph api access token not configured")

// UpstreamError is a non-2xx response from the Graph API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("graph api returned %d: %s", e.StatusCode, e.Body)
}

// Media is a read-only snapshot of a piece of media, fetched to decide
// whether the mention happened on the tracked account's own content.
type Media struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	MediaType string `json:"media_type"`
	Permalink string `json:"permalink"`
}

// Comment is a read-only snapshot of the comment carrying the mention.
type Comment struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Text     string `json:"text"`
}

type Client interface {
	GetMedia(ctx context.Context, mediaID string) (*Media, error)
	GetComment(ctx context.Context, commentID string) (*Comment, error)
	// ReplyToComment posts a reply on the media's comment collection,
	// threaded under the parent comment.
	ReplyToComment(ctx context.Context, mediaID, commentID, message string) error
}

type httpClient struct {
	baseURL     string
	accessToken string
	timeout     time.Duration
	httpc       *http.Client
}

// NewClient builds a Graph API client rooted at baseURL (no trailing slash
// required). Every call carries its own timeout independent of the caller's
// deadline so a slow upstream cannot stall sibling work indefinitely.
func NewClient(baseURL, accessToken string, timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &httpClient{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		accessToken: accessToken,
		timeout:     timeout,
		httpc:       &http.Client{Timeout: timeout},
	}
}

func (c *httpClient) GetMedia(ctx context.Context, mediaID string) (*Media, error) {
	var media Media
	if err := c.get(ctx, mediaID, "id,username,media_type,permalink", &media); err != nil {
		return nil, err
	}
	return &media, nil
}

func (c *httpClient) GetComment(ctx context.Context, commentID string) (*Comment, error) {
	var comment Comment
	if err := c.get(ctx, commentID, "id,username,text", &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

func (c *httpClient) ReplyToComment(ctx context.Context, mediaID, commentID, message string) error {
	if c.accessToken == "" {
		return ErrMissingCredential
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	form := url.Values{
		"message":      {message},
		"comment_id":   {commentID},
		"access_token": {c.accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+mediaID+"/comments", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("posting reply to comment %s: %w", commentID, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return nil
}

func (c *httpClient) get(ctx context.Context, id, fields string, out any) error {
	if c.accessToken == "" {
		return ErrMissingCredential
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{
		"fields":       {fields},
		"access_token": {c.accessToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+id+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("building graph request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", id, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("reading graph response for %s: %w", id, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding graph response for %s: %w", id, err)
	}

	return nil
}
