package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/msgpo/kalliope-app/internal/geofence"
	"github.com/msgpo/kalliope-app/internal/geofence/owntracks"
)

// armResponse reports the outcome of POST /geofences/arm.
type armResponse struct {
	Registered []string        `json:"registered"`
	Failed     []failedFence `json:"failed"`
}

type failedFence struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// handleListFences returns the locally stored fences.
func (s *Server) handleListFences(w http.ResponseWriter, r *http.Request) {
	fences, err := s.fences.List(r.Context())
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"geofences": fences,
		"count":     len(fences),
	})
}

// handleArmGeofences fetches the synapse list and arms a fence for every
// geolocation synapse.
func (s *Server) handleArmGeofences(w http.ResponseWriter, r *http.Request) {
	synapses, err := s.synapses.GetSynapses(r.Context(), s.settings)
	if err != nil {
		s.logger.Warn("listing synapses failed", "error", err)
		writeUpstreamError(w, err)
		return
	}

	result, err := s.geofence.SetGeofence(r.Context(), synapses)
	if err != nil {
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toArmResponse(result))
}

func toArmResponse(result geofence.Result) armResponse {
	resp := armResponse{
		Registered: result.Registered,
		Failed:     make([]failedFence, 0, len(result.Failed)),
	}
	if resp.Registered == nil {
		resp.Registered = []string{}
	}
	for _, f := range result.Failed {
		resp.Failed = append(resp.Failed, failedFence{ID: f.ID, Error: f.Err.Error()})
	}
	return resp
}

// handleOwnTracks accepts messages from OwnTracks in HTTP mode. The app
// expects a JSON array of commands in reply; the relay never sends any.
//
// Synapse run failures are logged and answered with 200 so the app does
// not resend the transition.
func (s *Server) handleOwnTracks(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "reading body failed")
		return
	}

	source := r.RemoteAddr
	if user := r.Header.Get("X-Limit-U"); user != "" {
		source = user + "/" + r.Header.Get("X-Limit-D")
	}

	if err := s.ownTracks.HandleEvent(r.Context(), source, payload); err != nil {
		if errors.Is(err, owntracks.ErrInvalidEvent) {
			writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		s.logger.Warn("owntracks event failed", "source", source, "error", err)
	}
	writeJSON(w, http.StatusOK, []any{})
}
