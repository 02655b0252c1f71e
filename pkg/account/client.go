// Package account fetches account details from a local brokerage
// gateway. The gateway speaks HTTPS with a self-signed certificate and
// throttles aggressively, so the client carries an insecure-TLS option
// and a shared rate limiter.
package account

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Gateway supplies the account values the ranker needs.
type Gateway interface {
	NetLiquidationValue(ctx context.Context) (float64, error)
}

type RESTClient struct {
	baseURL    string
	accountID  string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

// NewRESTClient targets a gateway such as https://localhost:5000.
// requestsPerSecond bounds the request rate; insecure skips TLS
// verification for the gateway's self-signed certificate. token may be
// empty for session-authenticated gateways.
func NewRESTClient(baseURL, accountID, token string, requestsPerSecond float64, insecure bool, logger *logrus.Logger) *RESTClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &RESTClient{
		baseURL:   baseURL,
		accountID: accountID,
		token:     token,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logger,
	}
}

type summaryValue struct {
	Amount float64 `json:"amount"`
}

type accountSummary struct {
	NetLiquidation summaryValue `json:"netliquidation"`
}

func (c *RESTClient) doGet(ctx context.Context, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway request %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// NetLiquidationValue reads the account summary and returns its net
// liquidation amount.
func (c *RESTClient) NetLiquidationValue(ctx context.Context) (float64, error) {
	path := fmt.Sprintf("/v1/api/portfolio/%s/summary", c.accountID)
	var summary accountSummary
	if err := c.doGet(ctx, path, &summary); err != nil {
		return 0, err
	}
	c.logger.WithField("net_liquidation", summary.NetLiquidation.Amount).Info("Fetched account summary")
	return summary.NetLiquidation.Amount, nil
}

// StaticGateway serves a fixed net liquidation value for offline and
// replay runs.
type StaticGateway struct {
	Value float64
}

func (s StaticGateway) NetLiquidationValue(ctx context.Context) (float64, error) {
	return s.Value, nil
}
