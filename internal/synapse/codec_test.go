package synapse

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestParseSynapses_MissingKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty object", input: `{}`},
		{name: "other keys only", input: `{"status": "ok", "count": 3}`},
		{name: "synapses not a list", input: `{"synapses": "nope"}`},
		{name: "synapses null", input: `{"synapses": null}`},
		{name: "top-level array", input: `[{"name": "s1"}]`},
		{name: "not json", input: `<html>502 Bad Gateway</html>`},
		{name: "empty body", input: ``},
		{name: "null", input: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSynapses([]byte(tt.input))
			if got == nil {
				t.Fatal("ParseSynapses() = nil, want empty slice")
			}
			if len(got) != 0 {
				t.Errorf("ParseSynapses() len = %d, want 0", len(got))
			}
		})
	}
}

func TestParseSynapses_SkipsEntriesWithoutName(t *testing.T) {
	body := `{"synapses": [
		{"signals": [{"order": "orphan"}]},
		{"name": "s1", "signals": []},
		{"name": ""},
		{"name": 42},
		"not an object",
		{"name": "s2"}
	]}`

	got := ParseSynapses([]byte(body))

	if len(got) != 2 {
		t.Fatalf("ParseSynapses() len = %d, want 2: %+v", len(got), got)
	}
	if got[0].Name != "s1" || got[1].Name != "s2" {
		t.Errorf("names = %q, %q, want s1, s2", got[0].Name, got[1].Name)
	}
	for _, s := range got {
		if s.Signal != nil {
			t.Errorf("%s: Signal = %#v, want nil", s.Name, s.Signal)
		}
	}
}

func TestParseSynapses_EmptySignals(t *testing.T) {
	got := ParseSynapses([]byte(`{"synapses":[{"name":"s1","signals":[]}]}`))

	want := []Synapse{{Name: "s1"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSynapses() = %#v, want %#v", got, want)
	}
}

func TestParseSynapses_SignalShapes(t *testing.T) {
	tests := []struct {
		name   string
		signal string
		want   Signal
	}{
		{
			name:   "legacy order",
			signal: `{"order": "say hello"}`,
			want:   OrderSignal{Text: "say hello"},
		},
		{
			name:   "named order",
			signal: `{"name": "order", "parameters": "say hello"}`,
			want:   OrderSignal{Text: "say hello"},
		},
		{
			name:   "named order with options",
			signal: `{"name": "order", "parameters": {"text": "say hello", "matching-type": "strict"}}`,
			want:   OrderSignal{Text: "say hello"},
		},
		{
			name:   "legacy geolocation",
			signal: `{"geolocation": {"name": "Home", "latitude": 46.2, "longitude": 6.1, "radius": 50}}`,
			want:   Geolocation{Latitude: 46.2, Longitude: 6.1, Radius: 50},
		},
		{
			name:   "named geolocation with quoted numbers",
			signal: `{"name": "geolocation", "parameters": {"latitude": "1", "longitude": " 2 ", "radius": "50"}}`,
			want:   Geolocation{Latitude: 1, Longitude: 2, Radius: 50},
		},
		{
			name:   "named generic",
			signal: `{"name": "event", "parameters": {"minute": "30", "hour": "8"}}`,
			want: GenericSignal{Name: "event", Parameters: []Param{
				{Name: "hour", Value: "8"},
				{Name: "minute", Value: "30"},
			}},
		},
		{
			name:   "legacy generic",
			signal: `{"mqtt_subscriber": {"topic": "home/door"}}`,
			want: GenericSignal{Name: "mqtt_subscriber", Parameters: []Param{
				{Name: "topic", Value: "home/door"},
			}},
		},
		{
			name:   "generic without parameters",
			signal: `{"name": "kalliope_started"}`,
			want:   GenericSignal{Name: "kalliope_started"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"synapses": [{"name": "s", "signals": [` + tt.signal + `]}]}`
			got := ParseSynapses([]byte(body))
			if len(got) != 1 {
				t.Fatalf("ParseSynapses() len = %d, want 1", len(got))
			}
			if !reflect.DeepEqual(got[0].Signal, tt.want) {
				t.Errorf("Signal = %#v, want %#v", got[0].Signal, tt.want)
			}
		})
	}
}

func TestParseSynapses_FirstDecodableSignalWins(t *testing.T) {
	body := `{"synapses": [{"name": "s", "signals": [
		"garbage",
		{"geolocation": {"latitude": 1, "longitude": 2}},
		{"order": ""},
		{"order": "second"},
		{"order": "third"}
	]}]}`

	got := ParseSynapses([]byte(body))
	if len(got) != 1 {
		t.Fatalf("ParseSynapses() len = %d, want 1", len(got))
	}
	want := OrderSignal{Text: "second"}
	if got[0].Signal != want {
		t.Errorf("Signal = %#v, want %#v", got[0].Signal, want)
	}
}

func TestParseSynapses_RejectsInvalidGeolocation(t *testing.T) {
	tests := []struct {
		name   string
		params string
	}{
		{name: "missing radius", params: `{"latitude": 1, "longitude": 2}`},
		{name: "latitude out of range", params: `{"latitude": 91, "longitude": 2, "radius": 5}`},
		{name: "longitude out of range", params: `{"latitude": 1, "longitude": -181, "radius": 5}`},
		{name: "zero radius", params: `{"latitude": 1, "longitude": 2, "radius": 0}`},
		{name: "non-numeric", params: `{"latitude": "north", "longitude": 2, "radius": 5}`},
		{name: "not an object", params: `[1, 2, 5]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{"synapses": [{"name": "s", "signals": [{"geolocation": ` + tt.params + `}]}]}`
			got := ParseSynapses([]byte(body))
			if len(got) != 1 {
				t.Fatalf("ParseSynapses() len = %d, want 1", len(got))
			}
			if got[0].Signal != nil {
				t.Errorf("Signal = %#v, want nil", got[0].Signal)
			}
		})
	}
}

func TestBuildStartPayload(t *testing.T) {
	settings := Settings{URL: "kalliope.local:5000", Mute: true}

	t.Run("copies params", func(t *testing.T) {
		signal := GenericSignal{Name: "event", Parameters: []Param{
			{Name: "a", Value: 1},
			{Name: "b", Value: 2},
		}}

		got := BuildStartPayload(settings, signal)

		want := StartPayload{Mute: true, Parameters: map[string]any{"a": 1, "b": 2}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("BuildStartPayload() = %#v, want %#v", got, want)
		}
	})

	t.Run("nil signal", func(t *testing.T) {
		got := BuildStartPayload(settings, nil)

		if got.Mute != true {
			t.Errorf("Mute = %v, want true", got.Mute)
		}
		if got.Parameters == nil || len(got.Parameters) != 0 {
			t.Errorf("Parameters = %#v, want empty map", got.Parameters)
		}

		data, err := json.Marshal(got)
		if err != nil {
			t.Fatalf("json.Marshal() error = %v", err)
		}
		if string(data) != `{"mute":true,"parameters":{}}` {
			t.Errorf("json = %s, want {\"mute\":true,\"parameters\":{}}", data)
		}
	})

	t.Run("signal without params", func(t *testing.T) {
		got := BuildStartPayload(Settings{}, Geolocation{Latitude: 1, Longitude: 2, Radius: 3})

		if got.Mute {
			t.Error("Mute = true, want false")
		}
		if len(got.Parameters) != 0 {
			t.Errorf("Parameters = %#v, want empty", got.Parameters)
		}
	})
}

func TestResponseToObject(t *testing.T) {
	body := `{
		"status": "complete",
		"user_order": "hello",
		"matched_synapses": [{
			"synapse_name": "say-hello",
			"matched_order": "hello",
			"neuron_module_list": [
				{"neuron_name": "Say", "generated_message": "Hello sir"},
				{"neuron_name": "Script", "generated_message": null},
				"bogus"
			]
		}]
	}`

	got := ResponseToObject([]byte(body))

	if !got.Completed() {
		t.Errorf("Completed() = false, status %q", got.Status)
	}
	if got.UserOrder != "hello" {
		t.Errorf("UserOrder = %q, want hello", got.UserOrder)
	}
	if len(got.MatchedSynapses) != 1 {
		t.Fatalf("MatchedSynapses len = %d, want 1", len(got.MatchedSynapses))
	}
	ms := got.MatchedSynapses[0]
	if ms.SynapseName != "say-hello" || ms.MatchedOrder != "hello" {
		t.Errorf("MatchedSynapse = %+v", ms)
	}
	if len(ms.Neurons) != 2 {
		t.Fatalf("Neurons len = %d, want 2", len(ms.Neurons))
	}
	if msgs := got.Messages(); !reflect.DeepEqual(msgs, []string{"Hello sir"}) {
		t.Errorf("Messages() = %v, want [Hello sir]", msgs)
	}
	if string(got.Raw) != body {
		t.Error("Raw does not hold the original body")
	}
}

func TestResponseToObject_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRaw bool
	}{
		{name: "not json", input: `oops`, wantRaw: false},
		{name: "array", input: `[1,2]`, wantRaw: true},
		{name: "wrong types", input: `{"status": 1, "matched_synapses": {}}`, wantRaw: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResponseToObject([]byte(tt.input))
			if got.Status != "" || len(got.MatchedSynapses) != 0 {
				t.Errorf("ResponseToObject() = %+v, want zero fields", got)
			}
			if (got.Raw != nil) != tt.wantRaw {
				t.Errorf("Raw = %q, wantRaw %v", got.Raw, tt.wantRaw)
			}
		})
	}
}

func TestEncodeSynapses_RoundTrip(t *testing.T) {
	in := []Synapse{
		{Name: "greet", Signal: OrderSignal{Text: "hello"}},
		{Name: "home", Signal: Geolocation{Latitude: 1, Longitude: 2, Radius: 50}},
		{Name: "alarm", Signal: GenericSignal{Name: "event", Parameters: []Param{{Name: "hour", Value: "8"}}}},
		{Name: "bare"},
	}

	data, err := EncodeSynapses(in)
	if err != nil {
		t.Fatalf("EncodeSynapses() error = %v", err)
	}

	got := ParseSynapses(data)
	if !reflect.DeepEqual(got, in) {
		t.Errorf("round trip = %#v, want %#v", got, in)
	}
}

func TestValidateParams(t *testing.T) {
	if err := ValidateParams([]Param{{Name: "a"}, {Name: "b"}}); err != nil {
		t.Errorf("ValidateParams() unique names error = %v", err)
	}
	if err := ValidateParams([]Param{{Name: "a"}, {Name: "a"}}); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("ValidateParams() duplicate error = %v, want ErrInvalidParam", err)
	}
	if err := ValidateParams([]Param{{Name: ""}}); !errors.Is(err, ErrInvalidParam) {
		t.Errorf("ValidateParams() empty name error = %v, want ErrInvalidParam", err)
	}
	if err := ValidateName(""); !errors.Is(err, ErrInvalidName) {
		t.Errorf("ValidateName(\"\") error = %v, want ErrInvalidName", err)
	}
}
