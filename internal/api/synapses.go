package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/msgpo/kalliope-app/internal/synapse"
)

// signalRelay names the signal built from request parameters.
const signalRelay = "relay"

// startRequest is the optional body of POST /synapses/{name}/start.
type startRequest struct {
	Parameters map[string]any `json:"parameters"`
	Mute       *bool          `json:"mute"`
}

// orderRequest is the body of POST /orders.
type orderRequest struct {
	Order string `json:"order"`
	Mute  *bool  `json:"mute"`
}

// handleListSynapses returns the server's synapses in the Kalliope list
// shape, so the relay can stand in for the server.
func (s *Server) handleListSynapses(w http.ResponseWriter, r *http.Request) {
	synapses, err := s.synapses.GetSynapses(r.Context(), s.settings)
	if err != nil {
		s.logger.Warn("listing synapses failed", "error", err)
		writeUpstreamError(w, err)
		return
	}

	body, err := synapse.EncodeSynapses(synapses)
	if err != nil {
		writeInternalError(w, "encoding synapses failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body) //nolint:errcheck // Best-effort write to response
}

// handleStartSynapse starts one synapse by name.
func (s *Server) handleStartSynapse(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		writeBadRequest(w, "invalid synapse name")
		return
	}

	var req startRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	var signal synapse.Signal
	if len(req.Parameters) > 0 {
		signal = synapse.NewGenericSignal(signalRelay, req.Parameters)
	}

	resp, err := s.synapses.RunSynapseByName(r.Context(), name, s.withMute(req.Mute), signal)
	if err != nil {
		s.logger.Warn("starting synapse failed", "synapse", name, "error", err)
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRunOrder sends a free-text order.
func (s *Server) handleRunOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	resp, err := s.synapses.RunOrder(r.Context(), req.Order, s.withMute(req.Mute))
	if err != nil {
		s.logger.Warn("running order failed", "error", err)
		writeUpstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// withMute returns the relay settings with Mute overridden when set.
func (s *Server) withMute(mute *bool) synapse.Settings {
	settings := s.settings
	if mute != nil {
		settings.Mute = *mute
	}
	return settings
}

// pathParam returns the decoded URL parameter key. chi matches on the raw
// path when the request has one, leaving the parameter escaped.
func pathParam(r *http.Request, key string) (string, error) {
	v := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return v, nil
	}
	return url.PathUnescape(v)
}

// decodeOptionalBody decodes a JSON body into v. An empty body leaves v
// unchanged.
func decodeOptionalBody(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
