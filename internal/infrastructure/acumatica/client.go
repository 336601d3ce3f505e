package acumatica

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arflow/backend/internal/domain/syncstate"
)

// maxResponseSize is the maximum allowed response size from the ERP (10MB).
const maxResponseSize = 10 * 1024 * 1024

// defaultDetailTimeout bounds nested/detail fetches so one slow record
// cannot stall a whole batch.
const defaultDetailTimeout = 10 * time.Second

// sessionLimitMarkers are the response-body substrings that identify a
// login rejected for capacity rather than bad credentials.
var sessionLimitMarkers = []string{
	"concurrent API logins",
	"API Login Limit",
	"login limit",
}

// Endpoint addresses one Acumatica instance and contract version.
type Endpoint struct {
	BaseURL string
	// Version is the entity contract version, e.g. "24.200.001".
	Version string
}

// Endpoint returns the endpoint addressed by the credentials.
func (c Credentials) Endpoint() Endpoint {
	return Endpoint{BaseURL: c.BaseURL, Version: c.EndpointVersion}
}

// Client talks to the Acumatica contract-based REST API. It holds no session
// state: the cookie obtained from Login is passed by value into every call.
type Client struct {
	httpClient    *http.Client
	detailTimeout time.Duration
	logger        *zap.Logger
}

// ClientOption is a functional option for configuring the client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithDetailTimeout overrides the per-detail-fetch timeout.
func WithDetailTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.detailTimeout = d
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an Acumatica API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: 60 * time.Second},
		detailTimeout: defaultDetailTimeout,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login authenticates against POST {base}/entity/auth/login and returns the
// concatenated session cookies. A body matching one of the session-limit
// markers yields syncstate.ErrSessionLimitReached so callers can surface a
// remediation message instead of retrying blindly; other 4xx rejections
// yield syncstate.ErrLoginFailed.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	payload, err := json.Marshal(loginRequest{
		Name:     creds.Username,
		Password: creds.Password,
		Company:  creds.Company,
		Branch:   creds.Branch,
	})
	if err != nil {
		return "", fmt.Errorf("acumatica: failed to encode login request: %w", err)
	}

	endpoint := strings.TrimRight(creds.BaseURL, "/") + "/entity/auth/login"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("acumatica: failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("acumatica: login request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		cookie := joinSessionCookies(resp.Header.Values("Set-Cookie"))
		if cookie == "" {
			return "", fmt.Errorf("%w: login succeeded but returned no session cookies", syncstate.ErrLoginFailed)
		}
		return cookie, nil
	}

	text := string(body)
	for _, marker := range sessionLimitMarkers {
		if strings.Contains(strings.ToLower(text), strings.ToLower(marker)) {
			return "", fmt.Errorf("%w: %s", syncstate.ErrSessionLimitReached, strings.TrimSpace(text))
		}
	}
	if resp.StatusCode >= 500 {
		return "", &StatusError{Code: resp.StatusCode, Body: truncateBody(text)}
	}
	return "", fmt.Errorf("%w: HTTP %d: %s", syncstate.ErrLoginFailed, resp.StatusCode, truncateBody(text))
}

// Logout ends the session at POST {base}/entity/auth/logout. Best effort:
// callers ignore the returned error beyond logging it.
func (c *Client) Logout(ctx context.Context, baseURL, cookie string) error {
	endpoint := strings.TrimRight(baseURL, "/") + "/entity/auth/logout"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("acumatica: failed to create logout request: %w", err)
	}
	req.Header.Set("Cookie", cookie)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("acumatica: logout request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
	return nil
}

// List fetches GET {base}/entity/Default/{version}/{Entity} with the query's
// filter/select/expand/pagination parameters. An empty array is a valid,
// non-error result meaning nothing matched.
func (c *Client) List(ctx context.Context, ep Endpoint, cookie string, q *Query) ([]Record, error) {
	body, err := c.get(ctx, entityURL(ep, q.Entity), q.Values(), cookie)
	if err != nil {
		return nil, err
	}

	var records []Record
	if err := decodeJSON(body, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Detail fetches one record by key:
// GET {base}/entity/Default/{version}/{Entity}/{Type}/{ReferenceNbr}.
// The call carries its own bounded timeout; callers treat a timeout as a
// retryable per-record error, not a fatal batch error.
func (c *Client) Detail(ctx context.Context, ep Endpoint, cookie, entity, docType, refNbr string, expand ...string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, c.detailTimeout)
	defer cancel()

	target := entityURL(ep, entity) + "/" + url.PathEscape(docType) + "/" + url.PathEscape(refNbr)
	values := url.Values{}
	if len(expand) > 0 {
		values.Set("$expand", strings.Join(expand, ","))
	}

	body, err := c.get(ctx, target, values, cookie)
	if err != nil {
		return nil, err
	}

	var record Record
	if err := decodeJSON(body, &record); err != nil {
		return nil, err
	}
	return record, nil
}

// get performs one authenticated GET and returns the raw body after the
// structural checks shared by all fetches.
func (c *Client) get(ctx context.Context, target string, values url.Values, cookie string) ([]byte, error) {
	if len(values) > 0 {
		target = target + "?" + values.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("acumatica: failed to create request: %w", err)
	}
	req.Header.Set("Cookie", cookie)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acumatica: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("acumatica: failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 400:
		return nil, &StatusError{Code: resp.StatusCode, Body: truncateBody(string(body))}
	}

	return body, nil
}

// decodeJSON parses a response body, treating an HTML body as a session
// signal rather than data. Numbers decode as json.Number to keep amounts
// exact until coercion.
func decodeJSON(body []byte, out any) error {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return ErrUpstreamFormat
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrUpstreamFormat, err)
	}
	return nil
}

func entityURL(ep Endpoint, entity string) string {
	return strings.TrimRight(ep.BaseURL, "/") + "/entity/Default/" + ep.Version + "/" + url.PathEscape(entity)
}

// joinSessionCookies concatenates the cookie pairs from Set-Cookie headers
// into one Cookie header value.
func joinSessionCookies(setCookies []string) string {
	pairs := make([]string, 0, len(setCookies))
	for _, sc := range setCookies {
		if pair, _, _ := strings.Cut(sc, ";"); strings.TrimSpace(pair) != "" {
			pairs = append(pairs, strings.TrimSpace(pair))
		}
	}
	return strings.Join(pairs, "; ")
}

func truncateBody(body string) string {
	const max = 512
	body = strings.TrimSpace(body)
	if len(body) > max {
		return body[:max]
	}
	return body
}
