package handlers

import (
	"errors"
	"net/http"

	"paycontrol/services"
	"paycontrol/utils"
)

// WidgetCreatedHandler receives the browser's answer to a widget-create command.
func (s *Server) WidgetCreatedHandler(w http.ResponseWriter, r *http.Request) {
	var report services.CreatedReport
	if err := decodeJSON(r, &report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}
	s.answerBridge(w, "created", s.Bridge.ReportCreated(report))
}

// WidgetEventHandler forwards a drop-in event from the browser.
func (s *Server) WidgetEventHandler(w http.ResponseWriter, r *http.Request) {
	var report services.EventReport
	if err := decodeJSON(r, &report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}
	s.answerBridge(w, "event", s.Bridge.ReportEvent(report))
}

// WidgetPaymentMethodHandler receives the browser's answer to a
// widget-request command.
func (s *Server) WidgetPaymentMethodHandler(w http.ResponseWriter, r *http.Request) {
	var report services.PaymentMethodReport
	if err := decodeJSON(r, &report); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}
	s.answerBridge(w, "payment-method", s.Bridge.ReportPaymentMethod(report))
}

// answerBridge acknowledges a bridge callback. Late or duplicate answers,
// such as a second tab reporting the same widget, get 410.
func (s *Server) answerBridge(w http.ResponseWriter, callback string, err error) {
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, services.ErrUnknownWidget):
		utils.Debug("bridge", "Ignored stale callback", "callback", callback, "error", err)
		writeJSON(w, http.StatusGone, errorResponse{Error: err.Error(), Kind: "stale"})
	default:
		utils.Error("bridge", "Callback failed", "callback", callback, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error(), Kind: "internal"})
	}
}
