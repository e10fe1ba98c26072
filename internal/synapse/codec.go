package synapse

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Signal keys as they appear in server JSON.
const (
	keySynapses   = "synapses"
	keyName       = "name"
	keySignals    = "signals"
	keyParameters = "parameters"
	keyOrder      = "order"
	keyText       = "text"
	keyGeo        = "geolocation"
	keyLatitude   = "latitude"
	keyLongitude  = "longitude"
	keyRadius     = "radius"
)

// ParseSynapses decodes a synapse list response.
//
// It never fails: a body that is not a JSON object, or has no "synapses"
// array, yields an empty slice. Entries without a non-empty string "name"
// are skipped. The first decodable entry of an entry's "signals" list
// becomes its Signal.
func ParseSynapses(data []byte) []Synapse {
	synapses := []Synapse{}

	fields, ok := decodeObject(data)
	if !ok {
		return synapses
	}
	var entries []json.RawMessage
	if raw, ok := fields[keySynapses]; !ok || json.Unmarshal(raw, &entries) != nil {
		return synapses
	}

	for _, entry := range entries {
		s, ok := decodeSynapse(entry)
		if !ok {
			continue
		}
		synapses = append(synapses, s)
	}
	return synapses
}

// decodeSynapse decodes one entry of the synapse list.
func decodeSynapse(raw json.RawMessage) (Synapse, bool) {
	fields, ok := decodeObject(raw)
	if !ok {
		return Synapse{}, false
	}
	name, ok := decodeString(fields[keyName])
	if !ok || name == "" {
		return Synapse{}, false
	}

	s := Synapse{Name: name}

	var signals []json.RawMessage
	if rawSignals, ok := fields[keySignals]; ok && json.Unmarshal(rawSignals, &signals) == nil {
		for _, rawSignal := range signals {
			if sig, ok := decodeSignal(rawSignal); ok {
				s.Signal = sig
				break
			}
		}
	}
	return s, true
}

// decodeSignal accepts both the named shape {"name": X, "parameters": P}
// and the legacy keyed shape {X: P}.
func decodeSignal(raw json.RawMessage) (Signal, bool) {
	fields, ok := decodeObject(raw)
	if !ok || len(fields) == 0 {
		return nil, false
	}

	if name, ok := decodeString(fields[keyName]); ok && name != "" {
		return signalFromParts(name, fields[keyParameters])
	}

	if params, ok := fields[keyOrder]; ok {
		return signalFromParts(keyOrder, params)
	}
	if params, ok := fields[keyGeo]; ok {
		return signalFromParts(keyGeo, params)
	}
	if len(fields) != 1 {
		return nil, false
	}
	for name, params := range fields {
		return signalFromParts(name, params)
	}
	return nil, false
}

// signalFromParts builds the variant matching name from its parameters.
func signalFromParts(name string, params json.RawMessage) (Signal, bool) {
	switch name {
	case keyOrder:
		text, ok := decodeOrderText(params)
		if !ok {
			return nil, false
		}
		return OrderSignal{Text: text}, true
	case keyGeo:
		geo, ok := decodeGeolocation(params)
		if !ok {
			return nil, false
		}
		return geo, true
	default:
		return GenericSignal{Name: name, Parameters: decodeParams(params)}, true
	}
}

// decodeOrderText accepts "text" or {"text": "text", ...}.
func decodeOrderText(raw json.RawMessage) (string, bool) {
	if text, ok := decodeString(raw); ok {
		return text, text != ""
	}
	fields, ok := decodeObject(raw)
	if !ok {
		return "", false
	}
	text, ok := decodeString(fields[keyText])
	return text, ok && text != ""
}

// decodeGeolocation requires all three fields and rejects coordinates
// outside their valid ranges or a non-positive radius.
func decodeGeolocation(raw json.RawMessage) (Geolocation, bool) {
	fields, ok := decodeObject(raw)
	if !ok {
		return Geolocation{}, false
	}
	lat, okLat := decodeNumber(fields[keyLatitude])
	lon, okLon := decodeNumber(fields[keyLongitude])
	radius, okRadius := decodeNumber(fields[keyRadius])
	if !okLat || !okLon || !okRadius {
		return Geolocation{}, false
	}
	if math.Abs(lat) > 90 || math.Abs(lon) > 180 || radius <= 0 {
		return Geolocation{}, false
	}
	return Geolocation{Latitude: lat, Longitude: lon, Radius: radius}, true
}

// decodeParams flattens a parameter object into a name-sorted list.
// Anything other than an object yields no parameters.
func decodeParams(raw json.RawMessage) []Param {
	var values map[string]any
	if len(raw) == 0 || json.Unmarshal(raw, &values) != nil || len(values) == 0 {
		return nil
	}
	params := make([]Param, 0, len(values))
	for name, value := range values {
		params = append(params, Param{Name: name, Value: value})
	}
	sortParams(params)
	return params
}

// BuildStartPayload builds the body of a start-by-name request.
//
// Every parameter of signal is copied into the flat parameters map. A nil
// signal produces an empty (non-nil) map so the body always carries
// "parameters": {}.
func BuildStartPayload(settings Settings, signal Signal) StartPayload {
	payload := StartPayload{
		Mute:       settings.Mute,
		Parameters: map[string]any{},
	}
	if signal == nil {
		return payload
	}
	for _, p := range signal.Params() {
		payload.Parameters[p.Name] = p.Value
	}
	return payload
}

// ResponseToObject maps a start-request response body to an OrderResponse.
// Fields that are missing or of the wrong type are left zero.
func ResponseToObject(data []byte) OrderResponse {
	resp := OrderResponse{}
	if json.Valid(data) {
		resp.Raw = append(json.RawMessage(nil), data...)
	}

	fields, ok := decodeObject(data)
	if !ok {
		return resp
	}
	resp.Status, _ = decodeString(fields["status"])
	resp.UserOrder, _ = decodeString(fields["user_order"])

	var matched []json.RawMessage
	if json.Unmarshal(fields["matched_synapses"], &matched) != nil {
		return resp
	}
	for _, raw := range matched {
		m, ok := decodeObject(raw)
		if !ok {
			continue
		}
		ms := MatchedSynapse{}
		ms.SynapseName, _ = decodeString(m["synapse_name"])
		ms.MatchedOrder, _ = decodeString(m["matched_order"])

		var neurons []json.RawMessage
		if json.Unmarshal(m["neuron_module_list"], &neurons) == nil {
			for _, rawNeuron := range neurons {
				n, ok := decodeObject(rawNeuron)
				if !ok {
					continue
				}
				nr := NeuronResult{}
				nr.Name, _ = decodeString(n["neuron_name"])
				nr.GeneratedMessage, _ = decodeString(n["generated_message"])
				ms.Neurons = append(ms.Neurons, nr)
			}
		}
		resp.MatchedSynapses = append(resp.MatchedSynapses, ms)
	}
	return resp
}

// MarshalJSON encodes the synapse in the server's named-signal shape, so
// the output of a relay can be read back with ParseSynapses.
func (s Synapse) MarshalJSON() ([]byte, error) {
	type wireSignal struct {
		Name       string `json:"name"`
		Parameters any    `json:"parameters"`
	}
	out := struct {
		Name    string       `json:"name"`
		Signals []wireSignal `json:"signals"`
	}{Name: s.Name, Signals: []wireSignal{}}

	switch sig := s.Signal.(type) {
	case OrderSignal:
		out.Signals = append(out.Signals, wireSignal{Name: keyOrder, Parameters: sig.Text})
	case Geolocation:
		out.Signals = append(out.Signals, wireSignal{Name: keyGeo, Parameters: map[string]float64{
			keyLatitude:  sig.Latitude,
			keyLongitude: sig.Longitude,
			keyRadius:    sig.Radius,
		}})
	case GenericSignal:
		params := make(map[string]any, len(sig.Parameters))
		for _, p := range sig.Parameters {
			params[p.Name] = p.Value
		}
		out.Signals = append(out.Signals, wireSignal{Name: sig.Name, Parameters: params})
	case nil:
	}
	return json.Marshal(out)
}

// EncodeSynapses encodes a list response {"synapses": [...]}.
func EncodeSynapses(synapses []Synapse) ([]byte, error) {
	if synapses == nil {
		synapses = []Synapse{}
	}
	return json.Marshal(map[string][]Synapse{keySynapses: synapses})
}

// decodeObject decodes raw as a JSON object. null is not an object.
func decodeObject(raw []byte) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &fields) != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// decodeString reports ok only for a JSON string.
func decodeString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	var s string
	if len(raw) == 0 || raw[0] != '"' || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

// decodeNumber accepts a JSON number or a string holding one; Kalliope
// brains commonly quote coordinates.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	s, ok := decodeString(raw)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
