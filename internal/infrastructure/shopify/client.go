package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/scentsync/backend/internal/domain"
	"golang.org/x/time/rate"
)

const apiVersion = "2023-07"

// maxBackoff caps the retry delay so a long outage never pushes the wait
// beyond a minute per attempt.
const maxBackoff = time.Minute

// ClientConfig holds the settings for one store's client.
type ClientConfig struct {
	Domain     string
	Token      string
	LocationID string

	// BaseURL overrides the URL derived from Domain; used by tests.
	BaseURL string

	// Label names the store in log lines ("primary"/"secondary").
	Label string

	PageSize      int
	CallInterval  time.Duration
	RetryInterval time.Duration
	MaxRetries    int
}

// Client talks to one store's admin API. Every call waits on a rate limiter
// first, so consecutive calls are spaced at least CallInterval apart, and
// transport failures are retried with capped exponential backoff. A non-2xx
// response is never retried; it comes back wrapped in ErrAPIRejected so the
// caller can abandon that one mutation and move on.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	locationID int64
	label      string

	pageSize      int
	limiter       *rate.Limiter
	retryInterval time.Duration
	maxRetries    int
}

// NewClient creates a client bound to one store and one location.
func NewClient(config ClientConfig) (*Client, error) {
	locationID, err := strconv.ParseInt(config.LocationID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid location id %q: %w", config.LocationID, err)
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s/admin/api/%s", config.Domain, apiVersion)
	}

	pageSize := config.PageSize
	if pageSize <= 0 || pageSize > 250 {
		pageSize = 250
	}
	callInterval := config.CallInterval
	if callInterval <= 0 {
		callInterval = time.Second
	}
	retryInterval := config.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 5 * time.Second
	}
	label := config.Label
	if label == "" {
		label = config.Domain
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:       baseURL,
		token:         config.Token,
		locationID:    locationID,
		label:         label,
		pageSize:      pageSize,
		limiter:       rate.NewLimiter(rate.Every(callInterval), 1),
		retryInterval: retryInterval,
		maxRetries:    config.MaxRetries,
	}, nil
}

// do executes one API call: pace, send, classify. Returns the response body
// and headers on 2xx.
func (c *Client) do(ctx context.Context, method, reqURL string, payload any) ([]byte, http.Header, error) {
	var encoded []byte
	if payload != nil {
		var err error
		encoded, err = json.Marshal(payload)
		if err != nil {
			return nil, nil, fmt.Errorf("encode payload: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, nil, err
		}

		var reqBody io.Reader
		if encoded != nil {
			reqBody = bytes.NewReader(encoded)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
		if err != nil {
			return nil, nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", c.token)
		if encoded != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			if attempt == c.maxRetries {
				break
			}
			delay := c.backoff(attempt)
			log.Printf("[shopify:%s] %s %s transport error (attempt %d/%d), retrying in %s: %v",
				c.label, method, reqURL, attempt+1, c.maxRetries+1, delay, err)
			select {
			case <-ctx.Done():
				return nil, nil, ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			if attempt == c.maxRetries {
				break
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, nil, fmt.Errorf("%w: %s %s: status %d: %s",
				domain.ErrAPIRejected, method, reqURL, resp.StatusCode, truncate(body, 200))
		}

		return body, resp.Header, nil
	}

	return nil, nil, fmt.Errorf("%w: %s %s: %v", domain.ErrAPIUnavailable, method, reqURL, lastErr)
}

// backoff doubles the retry interval per attempt, capped at maxBackoff.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.retryInterval << attempt
	if d > maxBackoff || d <= 0 {
		return maxBackoff
	}
	return d
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

// ListAllProducts fetches the full catalog, following the Link header's
// rel="next" cursor until exhausted. On a mid-fetch error it returns the
// pages collected so far along with the error.
func (c *Client) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	reqURL := fmt.Sprintf("%s/products.json?limit=%d", c.baseURL, c.pageSize)

	var all []domain.Product
	for reqURL != "" {
		body, header, err := c.do(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return all, err
		}

		var page productsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return all, fmt.Errorf("decode products page: %w", err)
		}
		for _, wp := range page.Products {
			all = append(all, wp.toDomain())
		}
		log.Printf("[shopify:%s] fetched %d products (%d total)", c.label, len(page.Products), len(all))

		reqURL = nextPageURL(header.Get("Link"))
	}

	return all, nil
}

// SetInventoryLevel sets the available quantity for one inventory item at
// the client's location. An absolute set, safe to re-apply.
func (c *Client) SetInventoryLevel(ctx context.Context, inventoryItemID string, quantity int) error {
	itemID, err := strconv.ParseInt(inventoryItemID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid inventory item id %q: %w", inventoryItemID, err)
	}

	reqURL := c.baseURL + "/inventory_levels/set.json"
	payload := inventoryLevelSet{
		LocationID:      c.locationID,
		InventoryItemID: itemID,
		Available:       quantity,
	}
	_, _, err = c.do(ctx, http.MethodPost, reqURL, payload)
	return err
}

// SetTags replaces the product's full tag string. The admin API has no
// partial update for tags.
func (c *Client) SetTags(ctx context.Context, productID string, tags []string) error {
	id, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", productID, err)
	}

	reqURL := fmt.Sprintf("%s/products/%d.json", c.baseURL, id)
	payload := productUpdate{Product: productTags{ID: id, Tags: joinTags(tags)}}
	_, _, err = c.do(ctx, http.MethodPut, reqURL, payload)
	return err
}

// ListCollects returns the product's current collection memberships.
func (c *Client) ListCollects(ctx context.Context, productID string) ([]domain.CollectionMembership, error) {
	reqURL := fmt.Sprintf("%s/collects.json?product_id=%s&limit=%d",
		c.baseURL, url.QueryEscape(productID), c.pageSize)

	body, _, err := c.do(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var resp collectsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode collects: %w", err)
	}

	memberships := make([]domain.CollectionMembership, 0, len(resp.Collects))
	for _, wc := range resp.Collects {
		memberships = append(memberships, wc.toDomain())
	}
	return memberships, nil
}

// AddCollect joins the product to a collection.
func (c *Client) AddCollect(ctx context.Context, productID, collectionID string) error {
	pid, err := strconv.ParseInt(productID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid product id %q: %w", productID, err)
	}
	cid, err := strconv.ParseInt(collectionID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid collection id %q: %w", collectionID, err)
	}

	reqURL := c.baseURL + "/collects.json"
	payload := collectCreate{Collect: collectBody{CollectionID: cid, ProductID: pid}}
	_, _, err = c.do(ctx, http.MethodPost, reqURL, payload)
	return err
}

// DeleteCollect removes one membership join record.
func (c *Client) DeleteCollect(ctx context.Context, membershipID string) error {
	id, err := strconv.ParseInt(membershipID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid collect id %q: %w", membershipID, err)
	}

	reqURL := fmt.Sprintf("%s/collects/%d.json", c.baseURL, id)
	_, _, err = c.do(ctx, http.MethodDelete, reqURL, nil)
	return err
}
