package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultRequestTimeout bounds every gateway HTTP request. A hung remote
// call must not leave a submission stuck indefinitely.
const DefaultRequestTimeout = 10 * time.Second

// ClientConfig configures the HTTP gateway client.
type ClientConfig struct {
	// BaseURL is the store's root URL, e.g. https://project.example.co.
	BaseURL string
	// AnonKey is the store's public API key, sent with every request.
	AnonKey string
	// JWTSecret, when set, lets the client validate access tokens locally
	// (HS256) instead of a round trip to the auth endpoint.
	JWTSecret string
	// Timeout overrides DefaultRequestTimeout when positive.
	Timeout time.Duration
}

// Client talks to the hosted store's REST API: /auth/v1 for sessions,
// /rest/v1 for table reads and inserts, /storage/v1 for object upload.
type Client struct {
	baseURL   string
	anonKey   string
	jwtSecret string
	http      *http.Client
}

// NewClient creates an HTTP gateway client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:   cfg.AnonKey,
		jwtSecret: cfg.JWTSecret,
		http:      &http.Client{Timeout: timeout},
	}
}

type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Session resolves the caller behind an access token. With a configured
// JWT secret the token is validated locally; otherwise the auth endpoint
// is consulted.
func (c *Client) Session(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, ErrNotAuthenticated
	}
	if c.jwtSecret != "" {
		return c.sessionFromToken(accessToken)
	}
	return c.sessionFromRemote(ctx, accessToken)
}

func (c *Client) sessionFromToken(accessToken string) (*Session, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(accessToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(c.jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAuthenticated, err)
	}
	sess := &Session{UserID: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	if sess.UserID == "" {
		return nil, ErrNotAuthenticated
	}
	return sess, nil
}

func (c *Client) sessionFromRemote(ctx context.Context, accessToken string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req, accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrNotAuthenticated
	}
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var body struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding session response: %w", err)
	}
	if body.ID == "" {
		return nil, ErrNotAuthenticated
	}
	return &Session{UserID: body.ID, Email: body.Email}, nil
}

// Select fetches rows via the table endpoint with order and filter params.
func (c *Client) Select(ctx context.Context, table string, opts SelectOptions) ([]Record, error) {
	q := url.Values{}
	q.Set("select", "*")
	applyOptions(q, opts)

	resp, err := c.get(ctx, "/rest/v1/"+table+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, remoteError(resp)
	}

	var rows []Record
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decoding select response: %w", err)
	}
	return rows, nil
}

// Count issues a count-only read: no rows cross the wire, only the exact
// total in the Content-Range header.
func (c *Client) Count(ctx context.Context, table string, opts SelectOptions) (int, error) {
	q := url.Values{}
	q.Set("select", "*")
	applyOptions(q, opts)

	resp, err := c.get(ctx, "/rest/v1/"+table+"?"+q.Encode(), map[string]string{
		"Prefer": "count=exact",
		"Range":  "0-0",
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, remoteError(resp)
	}

	// Content-Range: 0-0/42
	cr := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 {
		return 0, fmt.Errorf("missing count in Content-Range %q", cr)
	}
	var total int
	if _, err := fmt.Sscanf(cr[idx+1:], "%d", &total); err != nil {
		return 0, fmt.Errorf("parsing count from Content-Range %q: %w", cr, err)
	}
	return total, nil
}

// Insert posts a single record. The idempotency key travels as a header so
// the store can deduplicate a replayed attempt.
func (c *Client) Insert(ctx context.Context, table string, rec Record, idempotencyKey string) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/"+table, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.authorize(req, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return remoteError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Upload writes an object to the storage endpoint and returns the public
// URL the store serves it from.
func (c *Client) Upload(ctx context.Context, bucket, key, contentType string, r io.Reader) (string, error) {
	if bucket == "" {
		return "", ErrBucketRequired
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, key), r)
	if err != nil {
		return "", err
	}
	c.authorize(req, "")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", remoteError(resp)
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, key), nil
}

func (c *Client) get(ctx context.Context, path string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	c.authorize(req, "")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.http.Do(req)
}

// authorize sets the apikey header and a bearer token: an explicit one,
// else the caller's token carried on the request context, else the anon key.
func (c *Client) authorize(req *http.Request, accessToken string) {
	if c.anonKey != "" {
		req.Header.Set("apikey", c.anonKey)
	}
	token := accessToken
	if token == "" {
		token = TokenFrom(req.Context())
	}
	if token == "" {
		token = c.anonKey
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func applyOptions(q url.Values, opts SelectOptions) {
	if opts.OrderBy != "" {
		dir := "asc"
		if opts.Descending {
			dir = "desc"
		}
		q.Set("order", opts.OrderBy+"."+dir)
	}
	for _, col := range sortedKeys(opts.Equals) {
		q.Set(col, "eq."+opts.Equals[col])
	}
	for _, col := range sortedKeys(opts.AtLeast) {
		q.Set(col, "gte."+opts.AtLeast[col])
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func remoteError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Msg     string `json:"msg"`
		Error   string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	_ = json.Unmarshal(data, &body)

	msg := body.Message
	if msg == "" {
		msg = body.Msg
	}
	if msg == "" {
		msg = body.Error
	}
	return &RemoteError{Status: resp.StatusCode, Message: msg}
}
