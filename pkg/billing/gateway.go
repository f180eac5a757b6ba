package billing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// secretKeyHeader authenticates this service to the external gateway
const secretKeyHeader = "Billing-Api-Secret-Key"

// GatewayClient talks to the external billing gateway for payment
// links and invoice data. The gateway never mutates engine state;
// callers apply subscription changes only after it reports a
// successful payment.
type GatewayClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewGatewayClient creates a new GatewayClient
func NewGatewayClient(baseURL, secretKey string) *GatewayClient {
	return &GatewayClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PaymentLink fetches the checkout link for a plan purchase
func (c *GatewayClient) PaymentLink(plan Plan, interval Interval, prefilledEmail, tenantID string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("plan", string(plan))
	params.Set("interval", string(interval))
	params.Set("prefilled_email", prefilledEmail)
	params.Set("tenant_id", tenantID)
	return c.send(http.MethodGet, "/subscription/payment-link", params)
}

// ModelProviderPaymentLink fetches the checkout link for model
// provider credits
func (c *GatewayClient) ModelProviderPaymentLink(providerName, tenantID, accountID, prefilledEmail string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("provider_name", providerName)
	params.Set("tenant_id", tenantID)
	params.Set("account_id", accountID)
	params.Set("prefilled_email", prefilledEmail)
	return c.send(http.MethodGet, "/model-provider/payment-link", params)
}

// Invoices fetches invoice data for a tenant
func (c *GatewayClient) Invoices(prefilledEmail, tenantID string) (map[string]interface{}, error) {
	params := url.Values{}
	params.Set("prefilled_email", prefilledEmail)
	params.Set("tenant_id", tenantID)
	return c.send(http.MethodGet, "/invoices", params)
}

func (c *GatewayClient) send(method, endpoint string, params url.Values) (map[string]interface{}, error) {
	req, err := http.NewRequest(method, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(secretKeyHeader, c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return body, nil
}
