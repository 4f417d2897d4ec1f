package etsy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// Limit error-body reads so we don't accidentally slurp huge responses.
	maxErrBodyBytes = 4096

	// Hard stop for runaway pagination.
	maxPages = 1000
)

// ErrNotFound is returned when the order endpoint answers with no results.
var ErrNotFound = errors.New("etsy: resource not found")

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Credentials authorize shop-scoped calls.
type Credentials struct {
	AccessToken string
	// APIKey is the app keystring sent as x-api-key.
	APIKey string
}

// Client talks to the Etsy Open API v3.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a new Etsy API client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := applyOptions(&cfg, opts)

	return &Client{
		cfg:        cfg,
		httpClient: s.httpClient,
		limiter:    s.limiter,
		logger:     s.logger,
	}, nil
}

// ListPayments returns every payment of a shop, following limit/offset
// pagination until the ledger is exhausted. Payments keep API order and a
// payment id seen on an earlier page is dropped. A page that adds no new
// payment ends the listing, so a server that ignores offset is read once.
func (c *Client) ListPayments(ctx context.Context, creds Credentials, shopID string) ([]Payment, error) {
	var (
		all    []Payment
		offset int
		seen   = make(map[ID]struct{})
	)

	for page := 0; page < maxPages; page++ {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(c.cfg.PageLimit))
		q.Set("offset", strconv.Itoa(offset))

		var resp listResponse[Payment]
		endpoint := c.shopURL(shopID, "payments") + "?" + q.Encode()
		if err := c.get(ctx, creds, endpoint, &resp); err != nil {
			return nil, err
		}

		added := 0
		for _, p := range resp.Results {
			if p.PaymentID != "" {
				if _, dup := seen[p.PaymentID]; dup {
					continue
				}
				seen[p.PaymentID] = struct{}{}
			}
			all = append(all, p)
			added++
		}
		offset += len(resp.Results)

		if len(resp.Results) < c.cfg.PageLimit {
			return all, nil
		}
		if resp.Count > 0 && offset >= resp.Count {
			return all, nil
		}
		if added == 0 {
			c.logger.Warn("payment page repeated earlier results, stopping pagination",
				zap.String("shop_id", shopID),
				zap.Int("page", page),
				zap.Int("payments", len(all)),
			)
			return all, nil
		}
	}

	c.logger.Warn("payment pagination stopped at page cap",
		zap.String("shop_id", shopID),
		zap.Int("payments", len(all)),
	)
	return all, nil
}

// GetOrder fetches one order with its line items.
func (c *Client) GetOrder(ctx context.Context, creds Credentials, shopID, orderID string) (*Order, error) {
	var resp listResponse[Order]
	if err := c.get(ctx, creds, c.shopURL(shopID, "orders", orderID), &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	return &resp.Results[0], nil
}

func (c *Client) shopURL(shopID string, parts ...string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(c.cfg.BaseURL, "/"))
	b.WriteString("/application/shops/")
	b.WriteString(url.PathEscape(shopID))
	for _, p := range parts {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func (c *Client) get(ctx context.Context, creds Credentials, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if creds.APIKey != "" {
		req.Header.Set("x-api-key", creds.APIKey)
	}
	(&oauth2.Token{AccessToken: creds.AccessToken, TokenType: "Bearer"}).SetAuthHeader(req)

	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}

// do waits for the limiter, sends the request and turns non-2xx into *StatusError.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("call %s: %w", req.URL.Path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readHTTPError(req.URL.Path, resp)
	}
	return resp, nil
}

func readHTTPError(endpoint string, resp *http.Response) error {
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodyBytes))
	if err != nil {
		return fmt.Errorf("%s returned %d and body read failed: %w", endpoint, resp.StatusCode, err)
	}
	return &StatusError{Endpoint: endpoint, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
}
