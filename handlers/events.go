package handlers

import (
	"net/http"

	"paycontrol/control"
	"paycontrol/services"
	"paycontrol/utils"
)

// ViewSurface pushes every view the control renders to connected browsers.
func ViewSurface(events *services.SSEBroadcaster) control.Surface {
	return control.SurfaceFunc(func(v control.View) {
		if err := events.Broadcast(services.EventView, v); err != nil {
			utils.Error("sse", "Error broadcasting view", "status", string(v.Status), "error", err)
		}
	})
}

// OutputsNotifier returns the host notification callback: it reads the
// outputs back, as the host does, and publishes them.
func OutputsNotifier(events *services.SSEBroadcaster, outputs func() control.Outputs) func() {
	return func() {
		out := outputs()
		utils.Info("control", "Host notified", "PaymentStatus", out.PaymentStatus)
		if err := events.Broadcast(services.EventOutputs, out); err != nil {
			utils.Error("sse", "Error broadcasting outputs", "error", err)
		}
	}
}

// lastEventIDHeader is sent by EventSource when it reconnects after a drop.
const lastEventIDHeader = "Last-Event-ID"

// EventsHandler streams control events to one browser. A freshly loaded page
// has no drop-in of its own, so the control reattaches a widget for it. A
// reconnecting stream keeps the widget it already has.
func (s *Server) EventsHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported by client", http.StatusInternalServerError)
		return
	}

	conn := s.Events.AddConnection()
	defer s.Events.RemoveConnection(conn.ID)

	if err := conn.Send(services.EventView, s.Control.View()); err != nil {
		utils.Error("sse", "Error sending initial view", "connection", conn.ID, "error", err)
	}
	if lastID := r.Header.Get(lastEventIDHeader); lastID != "" {
		utils.Debug("sse", "Stream resumed", "connection", conn.ID, "last_event_id", lastID)
	} else if s.Control.Reattach() {
		utils.Debug("sse", "Widget reattached for new page", "connection", conn.ID)
	}

	if err := s.Events.Stream(w, r, conn); err != nil {
		utils.Warn("sse", "Stream ended", "connection", conn.ID, "error", err)
	}
}
