// Package baselinker is the HTTP client for the Baselinker order API.
//
// Every call is a signed POST against the connector endpoint with a method
// name and JSON-encoded parameters. Transport failures are retried with
// linear backoff; an API response whose status is not SUCCESS is an
// application-level error and is never retried.
package baselinker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/config"
)

const (
	maxRetries = 3
	retryDelay = 5 * time.Second
)

// Client calls the Baselinker connector API.
type Client struct {
	endpoint string
	token    string
	http     *retryablehttp.Client
	logger   *slog.Logger
}

// NewClient creates a client from config. The retry schedule is linear:
// 5s after the first failed attempt, 10s after the second.
func NewClient(cfg config.BaselinkerConfig, logger *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries - 1
	rc.Logger = nil
	rc.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	rc.Backoff = func(_, _ time.Duration, attemptNum int, _ *http.Response) time.Duration {
		return retryDelay * time.Duration(attemptNum+1)
	}

	return &Client{
		endpoint: cfg.Endpoint,
		token:    cfg.Token,
		http:     rc,
		logger:   logger,
	}
}

// envelope is the common part of every connector response.
type envelope struct {
	Status       string `json:"status"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

// call performs one signed POST and decodes the response into out when the
// API reports SUCCESS.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("encode %s parameters: %w", method, err)
	}

	form := url.Values{
		"token":      {c.token},
		"method":     {method},
		"parameters": {string(paramsJSON)},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	c.logger.Debug("baselinker request", "method", method)

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return &TransportError{Method: method, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}

	if env.Status != "SUCCESS" {
		msg := env.ErrorMessage
		if msg == "" {
			msg = "unknown error"
		}
		return &APIError{Method: method, Code: env.ErrorCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &TransportError{Method: method, Err: fmt.Errorf("decode %s response: %w", method, err)}
		}
	}

	return nil
}

// GetOrdersParams are the parameters of the getOrders method.
type GetOrdersParams struct {
	StatusID             int   `json:"status_id,omitempty"`
	DateConfirmedFrom    int64 `json:"date_confirmed_from,omitempty"`
	DateLimit            int   `json:"date_limit,omitempty"`
	GetUnconfirmedOrders bool  `json:"get_unconfirmed_orders"`
}

// GetOrders fetches one page of orders.
func (c *Client) GetOrders(ctx context.Context, params GetOrdersParams) ([]Order, error) {
	var out struct {
		Orders []Order `json:"orders"`
	}
	if err := c.call(ctx, "getOrders", params, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("fetched orders page", "count", len(out.Orders), "status_id", params.StatusID)
	return out.Orders, nil
}

// GetOrdersRange fetches every order confirmed inside [from, to], paging by
// advancing date_confirmed_from past the last order of each page. Returns
// the orders and the number of API pages consumed.
func (c *Client) GetOrdersRange(ctx context.Context, from, to time.Time, limitPerPage int) ([]Order, int, error) {
	const maxPages = 100

	var all []Order
	pages := 0
	cursor := from.Unix()

	for pages < maxPages {
		orders, err := c.GetOrders(ctx, GetOrdersParams{
			DateConfirmedFrom:    cursor,
			DateLimit:            limitPerPage,
			GetUnconfirmedOrders: true,
		})
		if err != nil {
			return nil, pages, err
		}
		pages++

		for _, o := range orders {
			if o.DateConfirmed > 0 && o.DateConfirmed > to.Unix() {
				continue
			}
			all = append(all, o)
		}

		if len(orders) < limitPerPage || len(orders) == 0 {
			break
		}

		last := orders[len(orders)-1].DateConfirmed
		if last <= cursor {
			break
		}
		cursor = last + 1
	}

	c.logger.Info("fetched order range",
		"orders", len(all),
		"pages", pages,
		"from", from.Format("2006-01-02"),
		"to", to.Format("2006-01-02"),
	)

	return all, pages, nil
}

// SetOrderStatus moves an order to the given Baselinker status.
func (c *Client) SetOrderStatus(ctx context.Context, orderID, statusID int) error {
	params := map[string]int{
		"order_id":  orderID,
		"status_id": statusID,
	}
	if err := c.call(ctx, "setOrderStatus", params, nil); err != nil {
		return err
	}

	c.logger.Info("order status changed", "order_id", orderID, "status_id", statusID)
	return nil
}

// SetOrderComment overwrites the admin comment field of an order.
func (c *Client) SetOrderComment(ctx context.Context, orderID int, comment string) error {
	params := map[string]any{
		"order_id":       orderID,
		"admin_comments": comment,
	}
	if err := c.call(ctx, "setOrderFields", params, nil); err != nil {
		return err
	}

	c.logger.Info("order comment updated", "order_id", orderID, "length", len(comment))
	return nil
}

// GetOrderStatusList fetches the account's order status definitions.
func (c *Client) GetOrderStatusList(ctx context.Context) ([]StatusInfo, error) {
	var out struct {
		Statuses []StatusInfo `json:"statuses"`
	}
	if err := c.call(ctx, "getOrderStatusList", struct{}{}, &out); err != nil {
		return nil, err
	}
	return out.Statuses, nil
}
