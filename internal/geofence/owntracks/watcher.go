package owntracks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/msgpo/kalliope-app/internal/geofence"
	"github.com/msgpo/kalliope-app/internal/infrastructure/mqtt"
	"github.com/msgpo/kalliope-app/internal/synapse"
)

// Runner starts synapses. Satisfied by *kalliope.Client.
type Runner interface {
	RunSynapseByName(ctx context.Context, name string, settings synapse.Settings, signal synapse.Signal) (synapse.OrderResponse, error)
}

// Subscriber is the subset of *mqtt.Client used to receive events.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Announcer publishes run announcements. Satisfied by *mqtt.Client.
type Announcer interface {
	PublishJSON(topic string, v any, retained bool) error
}

// EventRecorder keeps the last transition per fence. Satisfied by
// *geofence.SQLiteStore. RecordEvent returns geofence.ErrFenceNotFound for
// a fence that was never armed.
type EventRecorder interface {
	RecordEvent(ctx context.Context, id string, event geofence.Transition, at time.Time) error
}

// TransitionRecorder keeps a history of transitions. Satisfied by
// *audit.Recorder and *influxdb.Client.
type TransitionRecorder interface {
	RecordTransition(fence, device, event string, at time.Time)
}

// TransitionRecorders fans each transition out to every recorder in order.
type TransitionRecorders []TransitionRecorder

func (rs TransitionRecorders) RecordTransition(fence, device, event string, at time.Time) {
	for _, r := range rs {
		r.RecordTransition(fence, device, event, at)
	}
}

// Logger is the logging interface used by Watcher.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// WatcherConfig holds the dependencies of a Watcher. Runner is required;
// the rest are optional.
type WatcherConfig struct {
	Runner   Runner
	Settings synapse.Settings

	// TopicPrefix is the OwnTracks base topic. Default: "owntracks"
	TopicPrefix string
	QoS         byte

	Announcer Announcer
	Recorder  EventRecorder
	History   TransitionRecorder
	Logger    Logger
}

// Watcher runs synapses when a device enters one of their fences.
// HandleEvent is safe for concurrent use; Start and Stop are not.
type Watcher struct {
	cfg    WatcherConfig
	topics mqtt.Topics
	sub    Subscriber
	logger Logger
}

// NewWatcher creates a Watcher.
func NewWatcher(cfg WatcherConfig) *Watcher {
	logger := cfg.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Watcher{
		cfg:    cfg,
		topics: mqtt.Topics{Prefix: cfg.TopicPrefix},
		logger: logger,
	}
}

// Start subscribes to transition events of every device. Messages are
// handled with ctx until Stop is called.
func (w *Watcher) Start(ctx context.Context, sub Subscriber) error {
	topic := w.topics.AllDeviceEvents()
	err := sub.Subscribe(topic, w.cfg.QoS, func(topic string, payload []byte) error {
		return w.HandleEvent(ctx, topic, payload)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	w.sub = sub
	w.logger.Info("watching geofence transitions", "topic", topic)
	return nil
}

// Stop unsubscribes from transition events.
func (w *Watcher) Stop() error {
	if w.sub == nil {
		return nil
	}
	err := w.sub.Unsubscribe(w.topics.AllDeviceEvents())
	w.sub = nil
	return err
}

// ParseEvent decodes a transition message.
func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if ev.Type != typeTransition {
		return Event{}, fmt.Errorf("%w: _type %q", ErrInvalidEvent, ev.Type)
	}
	if ev.Description == "" {
		return Event{}, fmt.Errorf("%w: missing desc", ErrInvalidEvent)
	}
	switch ev.Transition() {
	case geofence.TransitionEnter, geofence.TransitionExit:
	default:
		return Event{}, fmt.Errorf("%w: event %q", ErrInvalidEvent, ev.Event)
	}
	return ev, nil
}

// HandleEvent processes one message from source (an MQTT topic or an HTTP
// device identifier). Messages other than transitions are ignored; a
// malformed transition is an error.
//
// An "enter" starts the synapse named by the waypoint description, but only
// for fences this application armed: with a Recorder the fence must be in
// the registry, otherwise the event must carry the waypoint timestamp
// SetWaypoints assigned. Run failures are announced and returned.
func (w *Watcher) HandleEvent(ctx context.Context, source string, payload []byte) error {
	var head struct {
		Type string `json:"_type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}
	if head.Type != typeTransition {
		return nil
	}

	ev, err := ParseEvent(payload)
	if err != nil {
		return err
	}

	armed := w.record(ctx, source, ev)
	if ev.Transition() != geofence.TransitionEnter {
		return nil
	}
	if !armed {
		w.logger.Info("ignoring transition for unknown fence", "fence", ev.Description, "source", source)
		return nil
	}

	w.logger.Info("geofence entered", "synapse", ev.Description, "source", source)
	resp, runErr := w.cfg.Runner.RunSynapseByName(ctx, ev.Description, w.cfg.Settings, nil)
	w.announce(source, ev, resp, runErr)
	if runErr != nil {
		return fmt.Errorf("running synapse %s: %w", ev.Description, runErr)
	}
	return nil
}

// record stores the transition and reports whether ev is for an armed fence.
func (w *Watcher) record(ctx context.Context, source string, ev Event) bool {
	at := time.Now()
	if ev.Timestamp > 0 {
		at = time.Unix(ev.Timestamp, 0)
	}
	if w.cfg.History != nil {
		w.cfg.History.RecordTransition(ev.Description, source, ev.Event, at)
	}
	if w.cfg.Recorder == nil {
		return ev.WaypointTST == waypointTST(ev.Description)
	}
	err := w.cfg.Recorder.RecordEvent(ctx, ev.Description, ev.Transition(), at)
	switch {
	case err == nil:
		return true
	case errors.Is(err, geofence.ErrFenceNotFound):
		return false
	default:
		w.logger.Warn("recording geofence event failed", "fence", ev.Description, "error", err)
		return false
	}
}

func (w *Watcher) announce(source string, ev Event, resp synapse.OrderResponse, runErr error) {
	if w.cfg.Announcer == nil {
		return
	}
	msg := RunAnnouncement{
		Synapse:  ev.Description,
		Device:   source,
		Event:    ev.Event,
		Status:   resp.Status,
		Messages: resp.Messages(),
	}
	if runErr != nil {
		msg.Status = "error"
		msg.Error = runErr.Error()
	}
	if err := w.cfg.Announcer.PublishJSON(w.topics.SynapseRun(ev.Description), msg, false); err != nil {
		w.logger.Warn("announcing synapse run failed", "synapse", ev.Description, "error", err)
	}
}
