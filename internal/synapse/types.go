package synapse

import (
	"encoding/json"
	"strings"
)

// Settings identifies a Kalliope server and the credentials used to call it.
// It is passed by value on every call and never mutated by this module.
type Settings struct {
	// URL is the server base address, e.g. "http://kalliope.local:5000".
	// A value without a scheme is treated as plain HTTP.
	URL string `json:"url" yaml:"url"`

	Username string `json:"username" yaml:"username"`
	Password string `json:"-" yaml:"password"`

	// Mute asks the server not to speak the neurons' generated messages.
	Mute bool `json:"mute" yaml:"mute"`
}

// Synapse is a named automation routine on the Kalliope server.
type Synapse struct {
	// Name uniquely identifies the synapse on the server. Never empty.
	Name string `json:"name"`

	// Signal is the trigger that can fire the synapse, or nil when the
	// server listed none this package could decode.
	Signal Signal `json:"signal,omitempty"`
}

// Kind names a Signal variant.
type Kind string

const (
	// KindOrder is a spoken-order trigger.
	KindOrder Kind = "order"
	// KindGeolocation is a region-entry trigger.
	KindGeolocation Kind = "geolocation"
	// KindGeneric is any other named signal.
	KindGeneric Kind = "generic"
)

// Signal is the trigger attached to a synapse.
//
// The interface is sealed; the only implementations are OrderSignal,
// GenericSignal and Geolocation.
type Signal interface {
	// Kind reports which variant this is.
	Kind() Kind

	// Params returns the parameters sent when the synapse is started
	// through this signal. Names are unique within one signal.
	Params() []Param

	sealed()
}

// Param is a single named signal parameter.
type Param struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// OrderSignal fires a synapse when the user speaks Text.
type OrderSignal struct {
	Text string `json:"text"`
}

func (OrderSignal) Kind() Kind      { return KindOrder }
func (OrderSignal) Params() []Param { return nil }
func (OrderSignal) sealed()         {}

// GenericSignal is any named signal the client does not model
// specifically (event, mqtt_subscriber, ...). Its parameters are sorted by
// name.
type GenericSignal struct {
	Name       string  `json:"name"`
	Parameters []Param `json:"params"`
}

func (GenericSignal) Kind() Kind        { return KindGeneric }
func (s GenericSignal) Params() []Param { return s.Parameters }
func (GenericSignal) sealed()           {}

// Geolocation fires a synapse when the device enters a circular region.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	// Radius in metres.
	Radius float64 `json:"radius"`
}

func (Geolocation) Kind() Kind      { return KindGeolocation }
func (Geolocation) Params() []Param { return nil }
func (Geolocation) sealed()         {}

// StartPayload is the JSON body of a start-by-name request.
type StartPayload struct {
	Mute       bool           `json:"mute"`
	Parameters map[string]any `json:"parameters"`
}

// OrderPayload is the JSON body of a start-by-order request.
type OrderPayload struct {
	Order string `json:"order"`
	Mute  bool   `json:"mute"`
}

// OrderResponse is the outcome of starting a synapse.
//
// The server defines the exact shape; fields that cannot be decoded are
// left zero and the undecoded body is always kept in Raw.
type OrderResponse struct {
	Status          string           `json:"status"`
	UserOrder       string           `json:"user_order,omitempty"`
	MatchedSynapses []MatchedSynapse `json:"matched_synapses"`

	// Raw is the response body exactly as received.
	Raw json.RawMessage `json:"-"`
}

// MatchedSynapse is one synapse the server ran for a request.
type MatchedSynapse struct {
	SynapseName  string         `json:"synapse_name"`
	MatchedOrder string         `json:"matched_order,omitempty"`
	Neurons      []NeuronResult `json:"neuron_module_list"`
}

// NeuronResult is the output of one neuron executed by a synapse.
type NeuronResult struct {
	Name             string `json:"neuron_name"`
	GeneratedMessage string `json:"generated_message,omitempty"`
}

// Completed reports whether the server finished running the synapse.
func (r OrderResponse) Completed() bool {
	return r.Status == StatusComplete
}

// Response status values reported by the server.
const (
	StatusComplete   = "complete"
	StatusWaiting    = "waiting_for_answer"
	StatusProcessing = "is_processing"
)

// Messages returns every non-empty generated message in execution order.
func (r OrderResponse) Messages() []string {
	var msgs []string
	for _, m := range r.MatchedSynapses {
		for _, n := range m.Neurons {
			if n.GeneratedMessage != "" {
				msgs = append(msgs, n.GeneratedMessage)
			}
		}
	}
	return msgs
}

// BaseURL returns URL with "http://" prefixed when it has no scheme and
// without trailing slashes.
func (s Settings) BaseURL() string {
	raw := strings.TrimSpace(s.URL)
	if raw != "" && !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	return strings.TrimRight(raw, "/")
}
