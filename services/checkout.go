package services

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"paycontrol/control"
	"paycontrol/utils"
)

// CheckoutClient posts payment nonces to a merchant checkout endpoint.
type CheckoutClient struct {
	http *resty.Client
}

// NewCheckoutClient returns a checkout client. A positive timeout bounds each
// POST; zero leaves the request unbounded apart from its context.
func NewCheckoutClient(timeout time.Duration) *CheckoutClient {
	httpClient := resty.New()
	if timeout > 0 {
		httpClient.SetTimeout(timeout)
	}
	// One attempt only; a retried charge could double-bill.
	httpClient.SetRetryCount(0)
	return &CheckoutClient{http: httpClient}
}

// InsecureLocalTLS accepts the self-signed certificate of a local checkout
// endpoint.
func (c *CheckoutClient) InsecureLocalTLS() {
	c.http.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
}

// Post sends req as JSON to url. A 2xx response or exactly 500 is parsed as a
// checkout reply; anything else is a *control.CheckoutTransportError.
func (c *CheckoutClient) Post(ctx context.Context, url string, req control.CheckoutRequest) (*control.CheckoutResponse, error) {
	requestID := uuid.NewString()

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("X-Request-Id", requestID).
		SetBody(req).
		Post(url)
	if err != nil {
		utils.Error("checkout", "Checkout request failed", "request_id", requestID, "error", err)
		return nil, &control.CheckoutTransportError{Err: fmt.Errorf("post checkout: %w", err)}
	}

	utils.Debug("checkout", "Checkout response received",
		"request_id", requestID,
		"status", resp.StatusCode(),
		"duration", resp.Time().String())

	code := resp.StatusCode()
	if !acceptedStatus(code) {
		return nil, &control.CheckoutTransportError{StatusCode: code, Status: resp.Status()}
	}

	var out control.CheckoutResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &control.CheckoutTransportError{
			StatusCode: code,
			Status:     resp.Status(),
			Err:        fmt.Errorf("decode checkout response: %w", err),
		}
	}
	return &out, nil
}

func acceptedStatus(code int) bool {
	return (code >= 200 && code < 300) || code == http.StatusInternalServerError
}
