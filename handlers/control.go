package handlers

import (
	"context"
	"net/http"

	"paycontrol/control"
	"paycontrol/templates"
	"paycontrol/utils"
)

// PageHandler renders the control page in its current state.
func (s *Server) PageHandler(w http.ResponseWriter, r *http.Request) {
	data := templates.PageData{
		View:      s.Control.View(),
		Container: control.DefaultContainer,
		Amount:    s.Control.Settings().PaymentAmount,
		PublicURL: s.PublicURL,
	}
	if s.PublicURL != "" {
		data.QRURL = "/control/qr.png"
	}

	w.Header().Set("Content-Type", "text/html")
	if err := templates.ControlPage(data).Render(r.Context(), w); err != nil {
		utils.Error("http", "Error rendering control page", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// configResponse reports how an update was classified.
type configResponse struct {
	Change        string `json:"change"`
	PaymentStatus string `json:"PaymentStatus"`
}

// ConfigHandler applies a host configuration snapshot (updateView).
// Properties missing from the body are treated as absent.
func (s *Server) ConfigHandler(w http.ResponseWriter, r *http.Request) {
	var snap control.Snapshot
	if err := decodeJSON(r, &snap); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Kind: "bad_request"})
		return
	}

	change := s.Control.UpdateView(snap)
	utils.Debug("http", "Host configuration applied", "change", change.String())
	writeJSON(w, http.StatusOK, configResponse{
		Change:        change.String(),
		PaymentStatus: s.Control.GetOutputs().PaymentStatus,
	})
}

// OutputsHandler returns the host-visible outputs (getOutputs).
func (s *Server) OutputsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Control.GetOutputs())
}

// SubmitHandler runs one payment submission. The attempt is not abandoned
// if the payer disconnects: once the nonce is posted the outcome must still
// reach the status.
func (s *Server) SubmitHandler(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())

	err := s.Control.Submit(ctx)
	outputs := s.Control.GetOutputs()
	if err != nil {
		writeJSON(w, httpStatus(err), errorResponse{
			Error:         err.Error(),
			Kind:          control.Kind(err),
			PaymentStatus: outputs.PaymentStatus,
		})
		return
	}
	writeJSON(w, http.StatusOK, outputs)
}

// ResetHandler recreates the widget with the current configuration.
func (s *Server) ResetHandler(w http.ResponseWriter, r *http.Request) {
	s.Control.Remount()
	writeJSON(w, http.StatusAccepted, s.Control.GetOutputs())
}
