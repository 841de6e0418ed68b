package social

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"mention-token-bot/internal/config"
	"mention-token-bot/internal/domain"
)

// Default configuration values.
const (
	DefaultBaseURL       = "https://api.x.com"
	DefaultTimeout       = 15 * time.Second
	DefaultBatchSize     = 10
	DefaultMentionWindow = 10 * time.Minute

	maxErrorBody = 4 << 10
)

// HTTPClient implements Client over the X API v2.
// Post lookups use the app bearer token; everything acting as the bot
// account uses OAuth 1.0a user context.
type HTTPClient struct {
	baseURL    string
	appClient  *http.Client
	userClient *http.Client
	limiter    *rate.Limiter
	batchSize  int
	window     time.Duration
	now        func() time.Time
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) ClientOption {
	return func(c *HTTPClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithBatchSize sets max_results for mention fetches.
func WithBatchSize(n int) ClientOption {
	return func(c *HTTPClient) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithMentionWindow sets the look-back window used when no cursor exists.
func WithMentionWindow(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.window = d
		}
	}
}

// WithRateLimit paces outgoing requests to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) ClientOption {
	return func(c *HTTPClient) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithClock overrides the time source used for rate-limit and window math.
func WithClock(now func() time.Time) ClientOption {
	return func(c *HTTPClient) {
		c.now = now
	}
}

// NewHTTPClient creates a client from credentials in cfg.
func NewHTTPClient(cfg config.Social, opts ...ClientOption) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	appClient := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: cfg.BearerToken,
		TokenType:   "Bearer",
	}))
	appClient.Timeout = timeout

	userClient := oauth1.NewConfig(cfg.APIKey, cfg.APISecret).
		Client(oauth1.NoContext, oauth1.NewToken(cfg.AccessToken, cfg.AccessSecret))
	userClient.Timeout = timeout

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		appClient:  appClient,
		userClient: userClient,
		batchSize:  DefaultBatchSize,
		window:     DefaultMentionWindow,
		now:        time.Now,
	}
	WithRateLimit(cfg.RequestsPerSecond)(c)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compile-time interface check.
var _ Client = (*HTTPClient)(nil)

// apiUser, apiPost and friends mirror the v2 JSON payloads.
type apiUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type apiReference struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type apiPost struct {
	ID               string         `json:"id"`
	Text             string         `json:"text"`
	AuthorID         string         `json:"author_id"`
	CreatedAt        string         `json:"created_at"`
	ReferencedTweets []apiReference `json:"referenced_tweets"`
}

type apiIncludes struct {
	Users []apiUser `json:"users"`
}

type apiProblem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// call performs one request and decodes a 2xx body into result.
func (c *HTTPClient) call(ctx context.Context, client *http.Client, method, path string, query url.Values, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &TransientError{Err: err}
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransientError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter, reset := c.retryAfter(resp.Header)
		return &RateLimitedError{RetryAfter: retryAfter, Reset: reset}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &UpstreamError{StatusCode: resp.StatusCode, Message: problemMessage(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return &UpstreamError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err)}
		}
	}
	return nil
}

// retryAfter derives the sleep from x-rate-limit-reset, then Retry-After,
// then DefaultRetryAfter. The result is never below MinRetryAfter.
func (c *HTTPClient) retryAfter(h http.Header) (time.Duration, time.Time) {
	now := c.now()

	if v := h.Get("x-rate-limit-reset"); v != "" {
		if sec, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			reset := time.Unix(sec, 0)
			return clampRetryAfter(reset.Sub(now)), reset
		}
	}

	if v := h.Get("Retry-After"); v != "" {
		if sec, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			d := clampRetryAfter(time.Duration(sec) * time.Second)
			return d, now.Add(d)
		}
	}

	return DefaultRetryAfter, now.Add(DefaultRetryAfter)
}

func clampRetryAfter(d time.Duration) time.Duration {
	if d < MinRetryAfter {
		return MinRetryAfter
	}
	return d
}

func problemMessage(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}

	var p apiProblem
	if err := json.Unmarshal(body, &p); err == nil {
		if p.Detail != "" {
			return p.Detail
		}
		if p.Title != "" {
			return p.Title
		}
	}
	return strings.TrimSpace(string(body))
}

// Me returns the authenticated account.
func (c *HTTPClient) Me(ctx context.Context) (*domain.User, error) {
	var resp struct {
		Data *apiUser `json:"data"`
	}
	if err := c.call(ctx, c.userClient, http.MethodGet, "/2/users/me", nil, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.ID == "" {
		return nil, &UpstreamError{StatusCode: http.StatusOK, Message: "users/me returned no data"}
	}
	return &domain.User{ID: resp.Data.ID, Username: resp.Data.Username}, nil
}

// FetchMentions returns mentions newer than cursor, newest first.
func (c *HTTPClient) FetchMentions(ctx context.Context, userID string, cursor domain.Cursor) (*MentionPage, error) {
	if userID == "" {
		return nil, fmt.Errorf("fetch mentions: user id is required")
	}

	q := url.Values{}
	q.Set("max_results", strconv.Itoa(c.batchSize))
	q.Set("tweet.fields", "referenced_tweets,author_id,created_at")
	q.Set("expansions", "referenced_tweets.id,author_id")
	if cursor.IsZero() {
		q.Set("start_time", c.now().Add(-c.window).UTC().Format(time.RFC3339))
	} else {
		q.Set("since_id", cursor.String())
	}

	var resp struct {
		Data []apiPost `json:"data"`
		Meta struct {
			NewestID    string `json:"newest_id"`
			ResultCount int    `json:"result_count"`
		} `json:"meta"`
	}
	path := "/2/users/" + url.PathEscape(userID) + "/mentions"
	if err := c.call(ctx, c.userClient, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}

	page := &MentionPage{
		Mentions:   make([]domain.Mention, 0, len(resp.Data)),
		NextCursor: cursor,
	}
	for _, p := range resp.Data {
		page.Mentions = append(page.Mentions, toMention(p))
	}
	if resp.Meta.NewestID != "" {
		page.NextCursor = domain.Cursor(resp.Meta.NewestID)
	}
	return page, nil
}

func toMention(p apiPost) domain.Mention {
	m := domain.Mention{
		ID:       p.ID,
		AuthorID: p.AuthorID,
		Text:     p.Text,
	}
	if t, err := time.Parse(time.RFC3339, p.CreatedAt); err == nil {
		m.CreatedAt = t
	}
	for _, ref := range p.ReferencedTweets {
		if ref.Type == domain.ReferenceRepliedTo {
			m.ReferencedPostID = ref.ID
			break
		}
	}
	return m
}

// GetPost retrieves a post and resolves its author handle.
func (c *HTTPClient) GetPost(ctx context.Context, id string) (*domain.OriginalPost, error) {
	if id == "" {
		return nil, fmt.Errorf("get post: id is required")
	}

	q := url.Values{}
	q.Set("expansions", "author_id")
	q.Set("user.fields", "username")

	var resp struct {
		Data     *apiPost     `json:"data"`
		Includes apiIncludes  `json:"includes"`
		Errors   []apiProblem `json:"errors"`
	}
	if err := c.call(ctx, c.appClient, http.MethodGet, "/2/tweets/"+url.PathEscape(id), q, nil, &resp); err != nil {
		var ue *UpstreamError
		if errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
		}
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrPostNotFound, id)
	}

	post := &domain.OriginalPost{
		ID:       resp.Data.ID,
		AuthorID: resp.Data.AuthorID,
		Text:     resp.Data.Text,
	}
	for _, u := range resp.Includes.Users {
		if u.ID == resp.Data.AuthorID {
			post.AuthorHandle = u.Username
			break
		}
	}
	if post.AuthorHandle == "" {
		return nil, &UpstreamError{StatusCode: http.StatusOK, Message: "post author not expanded"}
	}
	return post, nil
}

// Reply posts text as a reply to parentID.
func (c *HTTPClient) Reply(ctx context.Context, parentID, text string) (string, error) {
	body := map[string]any{
		"text": text,
		"reply": map[string]string{
			"in_reply_to_tweet_id": parentID,
		},
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := c.call(ctx, c.userClient, http.MethodPost, "/2/tweets", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Data.ID, nil
}
