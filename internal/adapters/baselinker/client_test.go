package baselinker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodpower/baselinker-sync-backend/internal/infrastructure/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(config.BaselinkerConfig{
		Token:          "test-token",
		Endpoint:       srv.URL,
		TimeoutSeconds: 5,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// No sleeping between attempts in tests.
	c.http.Backoff = func(_, _ time.Duration, _ int, _ *http.Response) time.Duration {
		return 0
	}
	return c
}

func TestGetOrdersDecodesOrders(t *testing.T) {
	var gotMethod, gotToken string

	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotMethod = r.FormValue("method")
		gotToken = r.FormValue("token")

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "SUCCESS",
			"orders": []map[string]any{
				{
					"order_id":        12345,
					"order_status_id": "155824",
					"date_add":        1700000000,
					"products": []map[string]any{
						{"order_product_id": 99, "name": "Blat dębowy", "quantity": "2"},
					},
				},
			},
		})
	})

	orders, err := c.GetOrders(context.Background(), GetOrdersParams{StatusID: 155824})
	require.NoError(t, err)

	assert.Equal(t, "getOrders", gotMethod)
	assert.Equal(t, "test-token", gotToken)
	require.Len(t, orders, 1)
	assert.Equal(t, 12345, orders[0].OrderID)
	assert.Equal(t, 155824, orders[0].StatusID.Int())
	require.Len(t, orders[0].Products, 1)
	assert.Equal(t, 2, orders[0].Products[0].Quantity.Int())
	assert.Equal(t, "99", orders[0].Products[0].OrderProductID.String())
}

func TestCallAPIErrorNotRetried(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":        "ERROR",
			"error_code":    "ERROR_AUTH_TOKEN",
			"error_message": "Invalid token",
		})
	})

	_, err := c.GetOrders(context.Background(), GetOrdersParams{})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "getOrders", apiErr.Method)
	assert.Equal(t, "ERROR_AUTH_TOKEN", apiErr.Code)
	assert.Equal(t, 1, calls)
}

func TestCallRetriesTransportFailures(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "SUCCESS", "orders": []any{}})
	})

	orders, err := c.GetOrders(context.Background(), GetOrdersParams{})
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, 3, calls)
}

func TestCallTransportErrorAfterExhaustedRetries(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := c.SetOrderStatus(context.Background(), 1, 138619)
	require.Error(t, err)

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "setOrderStatus", transportErr.Method)
	assert.Equal(t, 3, calls)
}

func TestSetOrderCommentSendsFields(t *testing.T) {
	var params map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("parameters")), &params))
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "SUCCESS"})
	})

	err := c.SetOrderComment(context.Background(), 777, "SYSTEM: Brak danych do produkcji.")
	require.NoError(t, err)
	assert.Equal(t, float64(777), params["order_id"])
	assert.Equal(t, "SYSTEM: Brak danych do produkcji.", params["admin_comments"])
}

func TestGetOrdersRangePagesUntilShortPage(t *testing.T) {
	page := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		page++

		var orders []map[string]any
		switch page {
		case 1:
			orders = []map[string]any{
				{"order_id": 1, "date_confirmed": 1000},
				{"order_id": 2, "date_confirmed": 2000},
			}
		default:
			orders = []map[string]any{
				{"order_id": 3, "date_confirmed": 3000},
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"status": "SUCCESS", "orders": orders})
	})

	orders, pages, err := c.GetOrdersRange(context.Background(), time.Unix(0, 0), time.Unix(5000, 0), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, pages)
	require.Len(t, orders, 3)
	assert.Equal(t, 3, orders[2].OrderID)
}

func TestGetOrdersRangeFiltersBeyondUpperBound(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "SUCCESS",
			"orders": []map[string]any{
				{"order_id": 1, "date_confirmed": 1000},
				{"order_id": 2, "date_confirmed": 9000},
			},
		})
	})

	orders, _, err := c.GetOrdersRange(context.Background(), time.Unix(0, 0), time.Unix(5000, 0), 100)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 1, orders[0].OrderID)
}

func TestCallInvalidJSONIsTransportError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	})

	_, err := c.GetOrderStatusList(context.Background())
	require.Error(t, err)
	assert.True(t, errors.As(err, new(*TransportError)))
}
