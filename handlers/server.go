package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"paycontrol/control"
	"paycontrol/services"
	"paycontrol/utils"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Server holds the dependencies of the HTTP surface.
type Server struct {
	Control   *control.Control
	Events    *services.SSEBroadcaster
	Bridge    *services.BrowserDropin
	Charger   services.Charger
	HostToken string
	PublicURL string
}

// Routes registers every endpoint and wraps the mux with request logging.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	host := HostAuthMiddleware(s.HostToken)

	// Payer-facing page and actions
	mux.HandleFunc("GET /{$}", s.PageHandler)
	mux.HandleFunc("GET /control/outputs", s.OutputsHandler)
	mux.HandleFunc("POST /control/submit", s.SubmitHandler)
	mux.HandleFunc("GET /control/events", s.EventsHandler)
	mux.HandleFunc("GET /control/qr.png", s.QRHandler)

	// Host lifecycle
	mux.Handle("POST /control/config", host(http.HandlerFunc(s.ConfigHandler)))
	mux.Handle("POST /control/reset", host(http.HandlerFunc(s.ResetHandler)))

	// Browser bridge callbacks
	mux.HandleFunc("POST /widget/created", s.WidgetCreatedHandler)
	mux.HandleFunc("POST /widget/event", s.WidgetEventHandler)
	mux.HandleFunc("POST /widget/payment-method", s.WidgetPaymentMethodHandler)

	// Reference merchant endpoint
	if s.Charger != nil {
		mux.HandleFunc("POST /checkout", s.CheckoutHandler)
	}

	return Logging(mux)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		utils.Error("http", "Error writing JSON response", "error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// errorResponse is the body of a failed control request.
type errorResponse struct {
	Error         string `json:"error"`
	Kind          string `json:"kind"`
	PaymentStatus string `json:"PaymentStatus,omitempty"`
}

// httpStatus maps control errors to response codes.
func httpStatus(err error) int {
	var (
		cfgErr       *control.ConfigurationError
		methodErr    *control.PaymentMethodError
		businessErr  *control.CheckoutBusinessError
		transportErr *control.CheckoutTransportError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, control.ErrSubmitUnavailable), errors.Is(err, control.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, control.ErrDestroyed):
		return http.StatusServiceUnavailable
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError
	case errors.As(err, &methodErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &businessErr):
		return http.StatusPaymentRequired
	case errors.As(err, &transportErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
