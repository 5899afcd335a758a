package handlers

import (
	"net/http"

	"github.com/skip2/go-qrcode"

	"paycontrol/utils"
)

// QRHandler serves a QR code of the control page URL, so the payer can
// continue on a phone.
func (s *Server) QRHandler(w http.ResponseWriter, r *http.Request) {
	if s.PublicURL == "" {
		http.NotFound(w, r)
		return
	}

	// Generate the QR code using the go-qrcode library
	qrCode, err := qrcode.New(s.PublicURL, qrcode.Medium)
	if err != nil {
		utils.Error("http", "Error generating QR code", "url", s.PublicURL, "error", err)
		http.Error(w, "Error generating QR code", http.StatusInternalServerError)
		return
	}

	qrPNG, err := qrCode.PNG(256)
	if err != nil {
		utils.Error("http", "Error converting QR code to PNG", "error", err)
		http.Error(w, "Error generating QR code image", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(qrPNG); err != nil {
		utils.Error("http", "Error writing QR code", "error", err)
	}
}
