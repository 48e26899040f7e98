// Package tracking es el cliente del proveedor de seguimiento de envíos (Ship24).
package tracking

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

	"order-tracking-service/internal/apperr"
)

const serviceName = "ship24"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}, logger: logger}
}

// Enabled es falso cuando no hay API key configurada.
func (c *Client) Enabled() bool { return c.cfg.APIKey != "" }

type createTrackerRequest struct {
	TrackingNumber string `json:"trackingNumber"`
	CourierCode    string `json:"courierCode,omitempty"`
}

// La API pública envuelve el tracker en data.tracker; versiones viejas lo devolvían plano.
type createTrackerResponse struct {
	TrackerID string `json:"trackerId"`
	Data      struct {
		Tracker struct {
			TrackerID string `json:"trackerId"`
		} `json:"tracker"`
	} `json:"data"`
}

// CreateTracker registra el número en el proveedor y devuelve el trackerId.
func (c *Client) CreateTracker(ctx context.Context, trackingNumber, courierCode string) (string, error) {
	if strings.TrimSpace(trackingNumber) == "" {
		return "", apperr.NewValidation("trackingNumber", "requerido")
	}
	body, err := json.Marshal(createTrackerRequest{TrackingNumber: trackingNumber, CourierCode: courierCode})
	if err != nil {
		return "", err
	}

	raw, err := c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/trackers", body)
	if err != nil {
		return "", err
	}
	var resp createTrackerResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamDecode, Err: err}
	}
	id := resp.Data.Tracker.TrackerID
	if id == "" {
		id = resp.TrackerID
	}
	if id == "" {
		return "", &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamDecode, Err: fmt.Errorf("respuesta sin trackerId")}
	}
	c.logger.Info("tracker creado", zap.String("tracking_number", trackingNumber), zap.String("tracker_id", id))
	return id, nil
}

// TrackerResults devuelve el cuerpo del proveedor sin reinterpretarlo.
func (c *Client) TrackerResults(ctx context.Context, trackerID string) (json.RawMessage, error) {
	if strings.TrimSpace(trackerID) == "" {
		return nil, apperr.NewValidation("trackerId", "requerido")
	}
	raw, err := c.do(ctx, http.MethodGet, c.cfg.BaseURL+"/trackers/"+url.PathEscape(trackerID)+"/results", nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		return nil, &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamDecode, Err: fmt.Errorf("JSON inválido")}
	}
	return raw, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	if !c.Enabled() {
		return nil, &apperr.ConfigurationError{Kind: serviceName, Reason: "SHIP24_API_KEY no configurada"}
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamTransport, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, &apperr.UpstreamError{Service: serviceName, Category: apperr.UpstreamTransport, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("ship24 respondió con error", zap.Int("status", resp.StatusCode), zap.ByteString("body", truncate(raw)))
		return nil, &apperr.UpstreamError{Service: serviceName, Category: apperr.CategoryFromStatus(resp.StatusCode), StatusCode: resp.StatusCode}
	}
	return raw, nil
}

func truncate(b []byte) []byte {
	if len(b) > 512 {
		return b[:512]
	}
	return b
}
