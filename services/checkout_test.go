package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paycontrol/control"
)

func TestCheckoutClient_Post(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantResp   *control.CheckoutResponse
		wantStatus int
		wantDecode bool
	}{
		{
			name:     "success",
			status:   http.StatusOK,
			body:     `{"success":true}`,
			wantResp: &control.CheckoutResponse{Success: true},
		},
		{
			name:     "created_counts_as_ok",
			status:   http.StatusCreated,
			body:     `{"success":true}`,
			wantResp: &control.CheckoutResponse{Success: true},
		},
		{
			name:     "declined",
			status:   http.StatusOK,
			body:     `{"success":false,"message":"Card declined"}`,
			wantResp: &control.CheckoutResponse{Success: false, Message: "Card declined"},
		},
		{
			name:     "server_error_with_body",
			status:   http.StatusInternalServerError,
			body:     `{"success":false,"message":"Processor unavailable"}`,
			wantResp: &control.CheckoutResponse{Success: false, Message: "Processor unavailable"},
		},
		{
			name:       "not_found",
			status:     http.StatusNotFound,
			body:       `not here`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "bad_gateway",
			status:     http.StatusBadGateway,
			body:       `{"success":false}`,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "unparseable",
			status:     http.StatusOK,
			body:       `<html>`,
			wantStatus: http.StatusOK,
			wantDecode: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got control.CheckoutRequest
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewCheckoutClient(time.Second)
			resp, err := client.Post(context.Background(), srv.URL, control.CheckoutRequest{
				PaymentMethodNonce: "nonce-1",
				Amount:             12.5,
			})

			require.Equal(t, "nonce-1", got.PaymentMethodNonce)
			require.Equal(t, 12.5, got.Amount)

			if tt.wantResp != nil {
				require.NoError(t, err)
				require.Equal(t, tt.wantResp, resp)
				return
			}

			require.Nil(t, resp)
			var transportErr *control.CheckoutTransportError
			require.True(t, errors.As(err, &transportErr), "got %T", err)
			require.Equal(t, tt.wantStatus, transportErr.StatusCode)
			if tt.wantDecode {
				require.Error(t, transportErr.Err)
			} else {
				require.Contains(t, err.Error(), http.StatusText(tt.status))
			}
		})
	}
}

func TestCheckoutClient_NetworkError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewCheckoutClient(time.Second).Post(context.Background(), url, control.CheckoutRequest{PaymentMethodNonce: "n"})

	var transportErr *control.CheckoutTransportError
	require.ErrorAs(t, err, &transportErr)
	require.Zero(t, transportErr.StatusCode)
	require.Equal(t, "checkout_transport", control.Kind(err))
}

func TestCheckoutClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCheckoutClient(time.Second).Post(ctx, srv.URL, control.CheckoutRequest{PaymentMethodNonce: "n"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewCheckoutClient_Timeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		timeout time.Duration
		want    time.Duration
	}{
		{name: "zero_means_unbounded", timeout: 0, want: 0},
		{name: "negative_means_unbounded", timeout: -time.Second, want: 0},
		{name: "explicit_timeout_applied", timeout: 5 * time.Second, want: 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := NewCheckoutClient(tt.timeout)
			require.Equal(t, tt.want, client.http.GetClient().Timeout)
		})
	}
}
