package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
)

func makeOrders(start, n int) []Order {
	out := make([]Order, n)
	for i := range out {
		out[i] = Order{ID: int64(start + i), Name: fmt.Sprintf("#%d", start+i)}
	}
	return out
}

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:     baseURL,
		AccessToken: "shpat_test",
		MaxRetries:  retries,
		RetryDelay:  time.Millisecond,
		Timeout:     2 * time.Second,
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

var testWindow = Window{
	From: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	To:   time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC),
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"valid", Config{StoreURL: "tienda.myshopify.com", AccessToken: "t"}, nil},
		{"missing store", Config{AccessToken: "t"}, ErrMissingStore},
		{"missing token", Config{StoreURL: "tienda.myshopify.com"}, ErrMissingToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, MaxPageSize, tt.cfg.PageSize)
			assert.NotEmpty(t, tt.cfg.APIVersion)
		})
	}
}

func TestForEachPage_FollowsLinkHeader(t *testing.T) {
	sizes := []int{250, 250, 10}
	var srv *httptest.Server
	var requests int32
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "shpat_test", r.Header.Get("X-Shopify-Access-Token"))
		assert.Equal(t, "/admin/api/2023-01/orders.json", r.URL.Path)

		page := 0
		if p := r.URL.Query().Get("page_info"); p != "" {
			fmt.Sscanf(p, "%d", &page)
		} else {
			assert.Equal(t, "250", r.URL.Query().Get("limit"))
			assert.Equal(t, "any", r.URL.Query().Get("status"))
		}
		if page+1 < len(sizes) {
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2023-01/orders.json?page_info=%d>; rel="next"`, srv.URL, page+1))
		}
		_ = json.NewEncoder(w).Encode(ordersResponse{Orders: makeOrders(page*1000, sizes[page])})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	var got []int
	stats, err := c.ForEachPage(context.Background(), testWindow, func(page int, orders []Order) error {
		got = append(got, len(orders))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{250, 250, 10}, got)
	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, 510, stats.Orders)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestForEachPage_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		category apperr.UpstreamCategory
	}{
		{"auth", http.StatusUnauthorized, apperr.UpstreamAuth},
		{"not found", http.StatusNotFound, apperr.UpstreamNotFound},
		{"rate limit", http.StatusTooManyRequests, apperr.UpstreamRateLimit},
		{"server", http.StatusBadGateway, apperr.UpstreamServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(`{"errors":"nope"}`))
			}))
			defer srv.Close()

			c := newTestClient(t, srv.URL, 0)
			called := false
			stats, err := c.ForEachPage(context.Background(), testWindow, func(int, []Order) error {
				called = true
				return nil
			})
			require.Error(t, err)
			assert.False(t, called)
			assert.Zero(t, stats.Pages)

			var up *apperr.UpstreamError
			require.True(t, errors.As(err, &up))
			assert.Equal(t, tt.category, up.Category)
			assert.Equal(t, tt.code, up.StatusCode)
		})
	}
}

func TestForEachPage_RetriesRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_ = json.NewEncoder(w).Encode(ordersResponse{Orders: makeOrders(0, 3)})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	stats, err := c.ForEachPage(context.Background(), testWindow, func(int, []Order) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Orders)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestForEachPage_DoesNotRetryAuth(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.ForEachPage(context.Background(), testWindow, func(int, []Order) error { return nil })
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestForEachPage_LaterPageFailureKeepsDeliveredPages(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_info") == "2" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/prev>; rel="previous", <%s/admin/api/2023-01/orders.json?page_info=2>; rel="next"`, srv.URL, srv.URL))
		_ = json.NewEncoder(w).Encode(ordersResponse{Orders: makeOrders(0, 5)})
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	delivered := 0
	stats, err := c.ForEachPage(context.Background(), testWindow, func(_ int, orders []Order) error {
		delivered += len(orders)
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, 1, stats.Pages)
	assert.Equal(t, 5, delivered)
}

func TestForEachPage_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.ForEachPage(context.Background(), testWindow, func(int, []Order) error { return nil })
	var up *apperr.UpstreamError
	require.True(t, errors.As(err, &up))
	assert.Equal(t, apperr.UpstreamDecode, up.Category)
}

func TestParseNextLink(t *testing.T) {
	assert.Equal(t, "", parseNextLink(""))
	assert.Equal(t, "", parseNextLink(`<https://x/prev>; rel="previous"`))
	assert.Equal(t, "https://x/next", parseNextLink(`<https://x/prev>; rel="previous", <https://x/next>; rel="next"`))
}
