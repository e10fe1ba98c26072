package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements and tag values.
const (
	MeasurementSynapseRuns = "synapse_runs"
	MeasurementTransitions = "geofence_transitions"

	// StatusError tags a run whose request failed.
	StatusError = "error"

	// StatusUnknown tags a run whose response carried no status.
	StatusUnknown = "unknown"
)

// SynapseRun describes one attempt to start a synapse.
type SynapseRun struct {
	// Synapse is the synapse name, or the order text for order runs.
	Synapse string

	// Trigger is how the run was started: "name" or "order".
	Trigger string

	// Status is the status reported by the server; empty when none.
	Status string

	Duration time.Duration
	Err      error
	At       time.Time
}

// RecordRun writes a synapse_runs point. It implements kalliope.Recorder.
func (c *Client) RecordRun(synapse, trigger, status string, duration time.Duration, err error) {
	if !c.writable() {
		return
	}
	c.writeAPI.WritePoint(synapseRunPoint(SynapseRun{
		Synapse:  synapse,
		Trigger:  trigger,
		Status:   status,
		Duration: duration,
		Err:      err,
		At:       time.Now(),
	}))
}

// RecordTransition writes a geofence_transitions point. It implements
// owntracks.TransitionRecorder.
func (c *Client) RecordTransition(fence, device, event string, at time.Time) {
	if !c.writable() {
		return
	}
	c.writeAPI.WritePoint(transitionPoint(fence, device, event, at))
}

// synapseRunPoint tags synapse, trigger and status, with duration_ms and
// success fields. A zero At is stamped now.
func synapseRunPoint(run SynapseRun) *write.Point {
	status := run.Status
	switch {
	case run.Err != nil:
		status = StatusError
	case status == "":
		status = StatusUnknown
	}

	return write.NewPoint(MeasurementSynapseRuns,
		map[string]string{
			"synapse": run.Synapse,
			"trigger": run.Trigger,
			"status":  status,
		},
		map[string]interface{}{
			"duration_ms": float64(run.Duration) / float64(time.Millisecond),
			"success":     run.Err == nil,
		},
		stamp(run.At),
	)
}

// transitionPoint tags fence and event; the device goes in a field since
// it is unbounded (MQTT topics, remote addresses).
func transitionPoint(fence, device, event string, at time.Time) *write.Point {
	return write.NewPoint(MeasurementTransitions,
		map[string]string{"fence": fence, "event": event},
		map[string]interface{}{"device": device, "count": 1},
		stamp(at),
	)
}

func stamp(at time.Time) time.Time {
	if at.IsZero() {
		return time.Now()
	}
	return at
}
