package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"order-tracking-service/internal/apperr"
)

const serviceName = "shopify"

// MaxPageSize es el tope de la API para limit.
const MaxPageSize = 250

const maxResponseSize = 20 * 1024 * 1024

var (
	ErrMissingStore = errors.New("shopify: store url is required")
	ErrMissingToken = errors.New("shopify: access token is required")
)

var nextLinkRe = regexp.MustCompile(`<([^>]+)>;\s*rel="next"`)

type Config struct {
	StoreURL    string
	AccessToken string
	APIVersion  string
	// BaseURL reemplaza https://<StoreURL> (pruebas, proxies)
	BaseURL    string
	PageSize   int
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (c *Config) Validate() error {
	if c.StoreURL == "" && c.BaseURL == "" {
		return ErrMissingStore
	}
	if c.AccessToken == "" {
		return ErrMissingToken
	}
	if c.APIVersion == "" {
		c.APIVersion = "2023-01"
	}
	if c.PageSize <= 0 || c.PageSize > MaxPageSize {
		c.PageSize = MaxPageSize
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
	return nil
}

// Client pagina el recurso de órdenes de Shopify.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.Named("shopify"),
	}, nil
}

// StoreURL es el handle de la tienda, usado para armar links al admin.
func (c *Client) StoreURL() string { return c.cfg.StoreURL }

func (c *Client) ordersURL(w Window) string {
	base := c.cfg.BaseURL
	if base == "" {
		base = "https://" + c.cfg.StoreURL
	}
	q := url.Values{}
	q.Set("created_at_min", w.From.UTC().Format(time.RFC3339))
	q.Set("created_at_max", w.To.UTC().Format(time.RFC3339))
	q.Set("status", "any")
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	return fmt.Sprintf("%s/admin/api/%s/orders.json?%s", base, c.cfg.APIVersion, q.Encode())
}

// ForEachPage recorre todas las páginas de la ventana y entrega cada una a fn.
// Una falla en la primera página se devuelve sin llamar a fn. Una falla posterior
// corta la paginación y se devuelve junto con las estadísticas de lo ya entregado.
func (c *Client) ForEachPage(ctx context.Context, w Window, fn func(page int, orders []Order) error) (PageStats, error) {
	var stats PageStats
	next := c.ordersURL(w)

	for next != "" {
		orders, link, err := c.fetchPageWithRetry(ctx, next)
		if err != nil {
			c.logger.Error("fallo al obtener página de órdenes",
				zap.Int("page", stats.Pages+1),
				zap.Error(err),
			)
			return stats, err
		}
		stats.Pages++
		stats.Orders += len(orders)
		c.logger.Info("página de órdenes obtenida",
			zap.Int("page", stats.Pages),
			zap.Int("orders", len(orders)),
		)

		if err := fn(stats.Pages, orders); err != nil {
			return stats, err
		}
		next = link
	}
	return stats, nil
}

func (c *Client) fetchPageWithRetry(ctx context.Context, pageURL string) ([]Order, string, error) {
	var (
		orders []Order
		next   string
	)
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.cfg.RetryDelay
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(c.cfg.MaxRetries)), ctx)

	op := func() error {
		var err error
		orders, next, err = c.fetchPage(ctx, pageURL)
		if err == nil {
			return nil
		}
		var up *apperr.UpstreamError
		if errors.As(err, &up) && up.Retryable() {
			c.logger.Warn("reintentando página", zap.String("category", string(up.Category)), zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(op, policy); err != nil {
		return nil, "", err
	}
	return orders, next, nil
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) ([]Order, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.cfg.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamTransport, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamTransport, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, "", &apperr.UpstreamError{
			Service:    serviceName,
			Category:   apperr.CategoryFromStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        errors.New(snippet),
		}
	}

	var data ordersResponse
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, "", &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamDecode, StatusCode: resp.StatusCode, Err: err}
	}

	return data.Orders, parseNextLink(resp.Header.Get("Link")), nil
}

// parseNextLink extrae la URL rel="next" del header Link.
func parseNextLink(header string) string {
	if header == "" {
		return ""
	}
	m := nextLinkRe.FindStringSubmatch(header)
	if m == nil {
		return ""
	}
	return m[1]
}
