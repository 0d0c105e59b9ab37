package api

import (
	"net/http"

	"github.com/emmett/lens/internal/ocr"
)

type Availability struct {
	Available  bool   `json:"available"`
	State      string `json:"state"`
	Engine     string `json:"engine"`
	Rechecking bool   `json:"rechecking,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	state := h.service.Availability()

	if state != ocr.Available {
		writeError(w, http.StatusServiceUnavailable, nil)
		return
	}

	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	if valueBool(r, "refresh") {
		h.service.CheckAvailability(r.Context())
	}

	state := h.service.Availability()

	writeJson(w, Availability{
		Available:  state == ocr.Available,
		State:      state.String(),
		Engine:     h.service.EngineName(),
		Rechecking: h.service.Rechecking(),
	})
}
