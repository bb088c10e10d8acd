// Package reddit polls a subreddit for new comments and posts replies as a script app.
package reddit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/sukalov/geniusbot/internal/dispatcher"
	"github.com/sukalov/geniusbot/internal/logger"
)

const (
	DefaultAPIURL   = "https://oauth.reddit.com"
	DefaultTokenURL = "https://www.reddit.com/api/v1/access_token"

	pageSize = 100
	seenSize = 4096
)

var (
	ErrRateLimited = errors.New("reddit: rate limited")
	ErrUnavailable = errors.New("reddit: service unavailable")
)

// Config holds the script app credentials and polling settings.
type Config struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
	Subreddit    string
	PollInterval time.Duration

	APIURL   string
	TokenURL string
}

// Client is a comment stream over one subreddit and the replier that answers it.
type Client struct {
	http      *http.Client
	apiURL    string
	userAgent string
	subreddit string
	username  string

	limiter *rate.Limiter
	seen    *lru.Cache[string, struct{}]
	queue   []dispatcher.Comment
}

// New authenticates with the password grant. The token is renewed with the same grant when it
// expires since script apps get no refresh token.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.Username == "" {
		return nil, fmt.Errorf("reddit client id and username must be configured")
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "geniusbot/1.0"
	}

	base := &http.Client{
		Timeout:   30 * time.Second,
		Transport: &userAgentTransport{agent: cfg.UserAgent, next: http.DefaultTransport},
	}
	// the token exchange must outlive the ctx passed to New
	authCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  cfg.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	src := &passwordSource{ctx: authCtx, conf: conf, username: cfg.Username, password: cfg.Password}

	tokCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	tok, err := conf.PasswordCredentialsToken(context.WithValue(tokCtx, oauth2.HTTPClient, base), cfg.Username, cfg.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate as %s: %w", cfg.Username, err)
	}

	seen, err := lru.New[string, struct{}](seenSize)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:      oauth2.NewClient(authCtx, oauth2.ReuseTokenSource(tok, src)),
		apiURL:    strings.TrimRight(cfg.APIURL, "/"),
		userAgent: cfg.UserAgent,
		subreddit: cfg.Subreddit,
		username:  cfg.Username,
		limiter:   rate.NewLimiter(rate.Every(cfg.PollInterval), 1),
		seen:      seen,
	}, nil
}

type passwordSource struct {
	ctx                context.Context
	conf               *oauth2.Config
	username, password string
}

func (s *passwordSource) Token() (*oauth2.Token, error) {
	return s.conf.PasswordCredentialsToken(s.ctx, s.username, s.password)
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	return t.next.RoundTrip(req)
}

// Next returns the next unseen comment, polling the subreddit as needed. Comments written by
// the bot itself are skipped.
func (c *Client) Next(ctx context.Context) (dispatcher.Comment, error) {
	for len(c.queue) == 0 {
		if err := c.limiter.Wait(ctx); err != nil {
			return dispatcher.Comment{}, err
		}
		if err := c.poll(ctx); err != nil {
			return dispatcher.Comment{}, err
		}
	}

	next := c.queue[0]
	c.queue = c.queue[1:]
	return next, nil
}

func (c *Client) poll(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/r/%s/comments?limit=%d&raw_json=1", c.apiURL, url.PathEscape(c.subreddit), pageSize)
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to list comments in r/%s: %w", c.subreddit, err)
	}

	children := gjson.GetBytes(body, "data.children").Array()
	fresh := 0
	// listings are newest first
	for i := len(children) - 1; i >= 0; i-- {
		data := children[i].Get("data")
		id := data.Get("id").String()
		if id == "" || c.seen.Contains(id) {
			continue
		}
		c.seen.Add(id, struct{}{})

		if strings.EqualFold(data.Get("author").String(), c.username) {
			continue
		}
		c.queue = append(c.queue, dispatcher.Comment{ID: id, Body: data.Get("body").String()})
		fresh++
	}

	if fresh > 0 {
		logger.Debug("polled comments", zap.String("subreddit", c.subreddit), zap.Int("new", fresh))
	}
	return nil
}

// Reply posts text as a reply to the comment with the given id.
func (c *Client) Reply(ctx context.Context, commentID, text string) error {
	form := url.Values{
		"api_type": {"json"},
		"thing_id": {"t1_" + commentID},
		"text":     {text},
	}
	body, err := c.do(ctx, http.MethodPost, c.apiURL+"/api/comment", form)
	if err != nil {
		return fmt.Errorf("failed to reply to %s: %w", commentID, err)
	}

	if errs := gjson.GetBytes(body, "json.errors").Array(); len(errs) > 0 {
		code := errs[0].Get("0").String()
		if code == "RATELIMIT" {
			return fmt.Errorf("reply to %s: %w: %s", commentID, ErrRateLimited, errs[0].Get("1").String())
		}
		return fmt.Errorf("reply to %s rejected: %s", commentID, errs[0].Raw)
	}
	return nil
}

// Me returns the authenticated account name.
func (c *Client) Me(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodGet, c.apiURL+"/api/v1/me", nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch account: %w", err)
	}
	return gjson.GetBytes(body, "name").String(), nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, form url.Values) ([]byte, error) {
	var reader io.Reader
	if form != nil {
		reader = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
