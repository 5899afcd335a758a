package handlers

import (
	"errors"
	"net/http"

	"paycontrol/control"
	"paycontrol/services"
	"paycontrol/utils"
)

// CheckoutHandler is a reference merchant checkout endpoint. It answers in
// the shape the control expects: {"success": bool, "message": string}.
func (s *Server) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	var req control.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, control.CheckoutResponse{Message: err.Error()})
		return
	}

	charge, err := s.Charger.Charge(r.Context(), req.PaymentMethodNonce, req.Amount)
	if err != nil {
		var decline *services.DeclineError
		if errors.As(err, &decline) {
			writeJSON(w, http.StatusOK, control.CheckoutResponse{Message: decline.Reason})
			return
		}
		utils.Error("merchant", "Charge failed", "amount", req.Amount, "error", err)
		writeJSON(w, http.StatusInternalServerError, control.CheckoutResponse{Message: err.Error()})
		return
	}

	utils.Info("merchant", "Checkout settled", "transaction", charge.ID, "status", charge.Status, "amount", req.Amount)
	writeJSON(w, http.StatusOK, control.CheckoutResponse{Success: true})
}
