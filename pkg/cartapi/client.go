package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/cartsync/pkg/errors"
	"github.com/angelmondragon/cartsync/pkg/types"
)

const (
	defaultTimeout              = 10 * time.Second
	cartPath                    = "cart"
	responseBodyReadLimit int64 = 1024
)

var errBaseURLRequired = errors.New("cart service base url is required")

// TokenSource returns the bearer credential to forward for the request context.
type TokenSource func(ctx context.Context) string

// Client calls the remote cart REST service.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	staticToken string
	tokens      TokenSource
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithStaticToken sets the bearer token used when no per-request token is available.
func WithStaticToken(token string) Option {
	return func(c *Client) {
		c.staticToken = strings.TrimSpace(token)
	}
}

// WithTokenSource forwards per-request credentials, typically the caller's access token.
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		c.tokens = source
	}
}

// NewClient builds a cart service client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}
	if _, err := url.ParseRequestURI(trimmed); err != nil {
		return nil, fmt.Errorf("parsing cart service url: %w", err)
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// AddToCart creates a cart line and returns the stored item.
func (c *Client) AddToCart(ctx context.Context, item types.CartItem) (types.CartItem, error) {
	var created types.CartItem
	if err := c.do(ctx, http.MethodPost, c.buildURL(cartPath), item, &created, "add to cart"); err != nil {
		return types.CartItem{}, err
	}
	return created, nil
}

// FetchItemsByUser lists every cart line owned by userID.
func (c *Client) FetchItemsByUser(ctx context.Context, userID string) ([]types.CartItem, error) {
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	endpoint := c.buildURL(cartPath) + "?" + url.Values{"user": []string{trimmed}}.Encode()

	var items []types.CartItem
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &items, "fetch cart items"); err != nil {
		return nil, err
	}
	if items == nil {
		items = []types.CartItem{}
	}
	return items, nil
}

// UpdateCart patches the cart line identified by update's id.
func (c *Client) UpdateCart(ctx context.Context, update types.CartItem) (types.CartItem, error) {
	if !update.HasID() {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	var updated types.CartItem
	if err := c.do(ctx, http.MethodPatch, c.itemURL(update.ID()), update, &updated, "update cart item"); err != nil {
		return types.CartItem{}, err
	}
	return updated, nil
}

// DeleteItemFromCart removes a cart line. The response may be an empty object.
func (c *Client) DeleteItemFromCart(ctx context.Context, itemID string) (types.CartItem, error) {
	trimmed := strings.TrimSpace(itemID)
	if trimmed == "" {
		return types.CartItem{}, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	var deleted types.CartItem
	if err := c.do(ctx, http.MethodDelete, c.itemURL(trimmed), nil, &deleted, "delete cart item"); err != nil {
		return types.CartItem{}, err
	}
	return deleted, nil
}

// ResetCart clears every line of the caller's cart.
func (c *Client) ResetCart(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, c.buildURL(cartPath), nil, nil, "reset cart")
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, dest any, action string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "cart service client not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "marshal "+action+" request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRequest, err, "build "+action+" request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRequest, err, "execute "+action+" request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		return pkgerrors.Wrap(codeForStatus(resp.StatusCode), statusErr, action+" request failed")
	}

	if dest == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRequest, err, "read "+action+" response")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeRequest, err, "decode "+action+" response")
	}
	return nil
}

func (c *Client) token(ctx context.Context) string {
	if c.tokens != nil {
		if token := strings.TrimSpace(c.tokens(ctx)); token != "" {
			return token
		}
	}
	return c.staticToken
}

func (c *Client) buildURL(path string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(path, "/"))
}

func (c *Client) itemURL(id string) string {
	return c.buildURL(cartPath + "/" + url.PathEscape(id))
}

// StatusError describes a non-2xx answer from the cart service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) UpstreamStatus() int  { return e.StatusCode }
func (e *StatusError) UpstreamBody() string { return e.Body }

func codeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	}
	return pkgerrors.CodeRequest
}
