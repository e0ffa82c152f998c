// Package twitter talks to the X/Twitter APIs with OAuth1 user-context auth:
// v1.1 simple media upload, v2 post creation, and a credential check.
package twitter

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
	"strconv"
	"time"

	gotwitter "github.com/dghubble/go-twitter/twitter"
	"github.com/dghubble/oauth1"
	"github.com/rs/zerolog/log"

	"github.com/mikequentel/sheetposter/internal/model"
)

const (
	defaultAPIURL    = "https://api.twitter.com"
	defaultUploadURL = "https://upload.twitter.com"
	defaultTimeout   = 30 * time.Second

	maxResponseBytes = 1 << 20
)

type Credentials struct {
	ConsumerKey    string
	ConsumerSecret string
	AccessToken    string
	AccessSecret   string
}

// Client is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	apiURL     string
	uploadURL  string
}

type Option func(*Client)

func WithAPIURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.apiURL = u
		}
	}
}

func WithUploadURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.uploadURL = u
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient builds an OAuth1-signing client. Credentials are not validated
// here; an empty pair simply produces requests the API rejects.
func NewClient(creds Credentials, opts ...Option) *Client {
	config := oauth1.NewConfig(creds.ConsumerKey, creds.ConsumerSecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = defaultTimeout

	c := &Client{
		httpClient: httpClient,
		apiURL:     defaultAPIURL,
		uploadURL:  defaultUploadURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UploadMedia uploads one staged image and returns its media ID.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy media: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart: %w", err)
	}

	endpoint := c.uploadURL + "/1.1/media/upload.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	raw, err := c.do(req, "POST /1.1/media/upload.json")
	if err != nil {
		return "", err
	}

	var out model.MediaUploadResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode media upload response: %w", err)
	}
	id := out.MediaIDString
	if id == "" && out.MediaID != 0 {
		id = strconv.FormatInt(out.MediaID, 10)
	}
	if id == "" {
		return "", fmt.Errorf("media upload: missing media_id in response: %s", truncate(string(raw), 200))
	}
	log.Debug().Str("mediaId", id).Str("file", filepath.Base(path)).Msg("Media uploaded")
	return id, nil
}

// CreatePost publishes text with the given media attached and returns the
// new post ID.
func (c *Client) CreatePost(ctx context.Context, text string, mediaIDs []string) (string, error) {
	payload := model.TweetReq{Text: text}
	if len(mediaIDs) > 0 {
		payload.Media = &model.TweetMedia{MediaIDs: mediaIDs}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal post: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/2/tweets", bytes.NewReader(b))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.do(req, "POST /2/tweets")
	if err != nil {
		return "", err
	}

	var out model.TweetResp
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode post response: %w", err)
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("create post: missing id in response: %s", truncate(string(raw), 200))
	}
	log.Info().Str("postId", out.Data.ID).Int("media", len(mediaIDs)).Msg("Post created")
	return out.Data.ID, nil
}

// VerifyCredentials returns the screen name the credentials belong to.
func (c *Client) VerifyCredentials() (string, error) {
	client := gotwitter.NewClient(c.httpClient)
	user, _, err := client.Accounts.VerifyCredentials(&gotwitter.AccountVerifyParams{
		SkipStatus:   gotwitter.Bool(true),
		IncludeEmail: gotwitter.Bool(false),
	})
	if err != nil {
		return "", fmt.Errorf("verify credentials: %w", err)
	}
	return user.ScreenName, nil
}

func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", op, err)
	}
	log.Debug().Str("op", op).Int("statusCode", resp.StatusCode).Dur("duration", time.Since(start)).Msg("Twitter API response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Op:         op,
			Message:    diagnoseHTTPError(resp, body, op),
		}
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
