package owntracks

import "github.com/msgpo/kalliope-app/internal/geofence"

// OwnTracks message types.
const (
	typeCmd        = "cmd"
	typeWaypoint   = "waypoint"
	typeWaypoints  = "waypoints"
	typeTransition = "transition"

	actionSetWaypoints = "setWaypoints"
)

// Command is an OwnTracks remote command.
type Command struct {
	Type      string     `json:"_type"`
	Action    string     `json:"action"`
	Waypoints *Waypoints `json:"waypoints,omitempty"`
}

// Waypoints wraps the waypoint list of a setWaypoints command.
type Waypoints struct {
	Type      string     `json:"_type"`
	Waypoints []Waypoint `json:"waypoints"`
}

// Waypoint is a circular region known to the device.
type Waypoint struct {
	Type        string  `json:"_type"`
	Description string  `json:"desc"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Radius      int     `json:"rad"`

	// Timestamp identifies the waypoint on the device. A waypoint sent with
	// an existing Timestamp replaces the old one.
	Timestamp int64 `json:"tst"`
}

// Event is a transition message published by a device.
type Event struct {
	Type        string  `json:"_type"`
	Event       string  `json:"event"`
	Description string  `json:"desc"`
	WaypointTST int64   `json:"wtst"`
	Timestamp   int64   `json:"tst"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lon"`
	Accuracy    float64 `json:"acc"`
	Trigger     string  `json:"t,omitempty"`
}

// Transition returns the event as a geofence transition.
func (e Event) Transition() geofence.Transition {
	return geofence.Transition(e.Event)
}

// RunAnnouncement is published after a transition started a synapse.
type RunAnnouncement struct {
	Synapse  string   `json:"synapse"`
	Device   string   `json:"device,omitempty"`
	Event    string   `json:"event"`
	Status   string   `json:"status"`
	Messages []string `json:"messages,omitempty"`
	Error    string   `json:"error,omitempty"`
}
