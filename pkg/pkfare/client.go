package pkfare

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	circuit "github.com/rubyist/circuitbreaker"
	"github.com/sirupsen/logrus"
)

// Provider endpoint paths, relative to the configured base URL
const (
	pathShopping       = "/json/shoppingV8"
	pathPrecisePricing = "/json/precisePricing_V10"
	pathBooking        = "/json/preciseBooking_V7"
	pathOrderPricing   = "/json/orderPricing_V7"
	pathTicketing      = "/json/ticketing_V7"
	pathCancel         = "/json/cancel_V6"
	pathOrderDetail    = "/json/orderDetail_V7"
)

// DefaultBaseURL is the production API host
const DefaultBaseURL = "https://api.pkfare.com"

// Config holds the credentials and transport limits for the provider.
type Config struct {
	BaseURL          string
	PartnerID        string
	PartnerKey       string
	Timeout          time.Duration
	BreakerThreshold int64
}

// Client implements Gateway over HTTPS. Calls go through a consecutive-failure
// circuit breaker so a stalled provider stops tying up request goroutines.
type Client struct {
	baseURL   string
	partnerID string
	sign      string
	http      *circuit.HTTPClient
	logger    *logrus.Logger
}

var _ Gateway = (*Client)(nil)

// NewClient creates a provider client from cfg
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	threshold := cfg.BreakerThreshold
	if threshold <= 0 {
		threshold = 5
	}

	breaker := circuit.NewConsecutiveBreaker(threshold)
	httpClient := circuit.NewHTTPClientWithBreaker(breaker, 0, &http.Client{Timeout: timeout})

	return &Client{
		baseURL:   baseURL,
		partnerID: cfg.PartnerID,
		sign:      Sign(cfg.PartnerID, cfg.PartnerKey),
		http:      httpClient,
		logger:    logger,
	}
}

// Sign computes the request signature: lowercase hex MD5 of partnerId+partnerKey.
func Sign(partnerID, partnerKey string) string {
	sum := md5.Sum([]byte(partnerID + partnerKey))
	return hex.EncodeToString(sum[:])
}

type envelope struct {
	ErrorCode FlexString      `json:"errorCode"`
	ErrorMsg  string          `json:"errorMsg"`
	Data      json.RawMessage `json:"data"`
}

// Search runs a shopping request
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchData, error) {
	if req.ReturnTagPrice == "" {
		req.ReturnTagPrice = "Y"
	}
	var out SearchData
	if _, err := c.call(ctx, EndpointSearch, pathShopping, "search", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PrecisePricing reprices one solution
func (c *Client) PrecisePricing(ctx context.Context, req PricingRequest) (*PricingData, error) {
	var out PricingData
	if _, err := c.call(ctx, EndpointPrecisePricing, pathPrecisePricing, "pricing", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBooking places an order
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*BookingData, error) {
	var out BookingData
	if _, err := c.call(ctx, EndpointBooking, pathBooking, "booking", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// OrderPricing revalidates price, PNR and ticketing window for an order
func (c *Client) OrderPricing(ctx context.Context, orderNum string) (*OrderPricingData, error) {
	var out OrderPricingData
	body := map[string]string{"orderNum": orderNum}
	if _, err := c.call(ctx, EndpointOrderPricing, pathOrderPricing, "data", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ticketing asks the provider to issue tickets
func (c *Client) Ticketing(ctx context.Context, req TicketingRequest) (*TicketingData, error) {
	var out TicketingData
	if _, err := c.call(ctx, EndpointTicketing, pathTicketing, "data", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Cancel cancels an unticketed order
func (c *Client) Cancel(ctx context.Context, orderNum, virtualPnr string) error {
	body := map[string]string{"orderNum": orderNum, "virtualPnr": virtualPnr}
	_, err := c.call(ctx, EndpointCancel, pathCancel, "data", body, nil)
	return err
}

// OrderDetail fetches the provider's view of an order
func (c *Client) OrderDetail(ctx context.Context, orderNum string) (*OrderDetailData, error) {
	var out OrderDetailData
	raw, err := c.call(ctx, EndpointOrderDetail, pathOrderDetail, "data", map[string]string{"orderNum": orderNum}, &out)
	if err != nil {
		return nil, err
	}
	out.Raw = raw
	return &out, nil
}

// call posts {authentication, <section>: body} and decodes "data" into out.
// It returns the raw data member for callers that keep a snapshot.
func (c *Client) call(ctx context.Context, endpoint Endpoint, path, section string, body any, out any) (json.RawMessage, error) {
	payload := map[string]any{
		"authentication": Authentication{PartnerID: c.partnerID, Sign: c.sign},
		section:          body,
	}
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	c.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"path":     path,
	}).Debug("Calling PKFare")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, circuit.ErrBreakerOpen) {
			c.logger.WithField("endpoint", endpoint).Warn("PKFare circuit open, call skipped")
			return nil, fmt.Errorf("pkfare %s: %w", endpoint, ErrProviderUnavailable)
		}
		c.logger.WithFields(logrus.Fields{
			"endpoint":   endpoint,
			"latency_ms": time.Since(start).Milliseconds(),
		}).WithError(err).Error("PKFare call did not complete")
		return nil, &UnknownOutcomeError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UnknownOutcomeError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	c.logger.WithFields(logrus.Fields{
		"endpoint":    endpoint,
		"status_code": resp.StatusCode,
		"latency_ms":  time.Since(start).Milliseconds(),
	}).Debug("PKFare response received")

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &UnknownOutcomeError{Endpoint: endpoint, Err: fmt.Errorf("provider returned status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, NewProviderError(endpoint, fmt.Sprintf("HTTP%d", resp.StatusCode), "")
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, &UnknownOutcomeError{Endpoint: endpoint, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	if code := env.ErrorCode.String(); code != "0" {
		perr := NewProviderError(endpoint, code, env.ErrorMsg)
		c.logger.WithFields(logrus.Fields{
			"endpoint":      endpoint,
			"provider_code": perr.Code,
			"provider_msg":  env.ErrorMsg,
		}).Warn("PKFare returned an error")
		return nil, perr
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			err = fmt.Errorf("failed to decode %s data: %w", endpoint, err)
			// The provider accepted the call; its side effect may have happened
			if endpoint.changesOrder() {
				return nil, &UnknownOutcomeError{Endpoint: endpoint, Err: err}
			}
			return nil, err
		}
	}

	return env.Data, nil
}
