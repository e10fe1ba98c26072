package owntracks

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/msgpo/kalliope-app/internal/geofence"
	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
	"github.com/msgpo/kalliope-app/internal/infrastructure/mqtt"
)

// Publisher is the subset of *mqtt.Client used by Platform.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// Platform arms fences as waypoints on one OwnTracks device.
type Platform struct {
	pub    Publisher
	topic  string
	qos    byte
	device string
}

// NewPlatform creates a Platform publishing to the device named in cfg.
func NewPlatform(pub Publisher, cfg config.OwnTracksConfig, qos byte) *Platform {
	return &Platform{
		pub:    pub,
		topic:  mqtt.Topics{Prefix: cfg.TopicPrefix}.DeviceCommand(cfg.User, cfg.Device),
		qos:    qos,
		device: cfg.User + "/" + cfg.Device,
	}
}

// Topic returns the command topic waypoints are published on.
func (p *Platform) Topic() string {
	return p.topic
}

// Initialize checks the broker connection.
func (p *Platform) Initialize(_ context.Context) error {
	if !p.pub.IsConnected() {
		return fmt.Errorf("%w: device %s", ErrNotConnected, p.device)
	}
	return nil
}

// AddOrUpdate publishes f as a single-waypoint setWaypoints command.
func (p *Platform) AddOrUpdate(ctx context.Context, f geofence.Fence) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(SetWaypoints(f))
	if err != nil {
		return fmt.Errorf("encoding waypoint %s: %w", f.ID, err)
	}
	if err := p.pub.Publish(p.topic, payload, p.qos, false); err != nil {
		return fmt.Errorf("publishing waypoint %s: %w", f.ID, err)
	}
	return nil
}

// SetWaypoints builds the remote command that arms fences on a device.
func SetWaypoints(fences ...geofence.Fence) Command {
	wps := make([]Waypoint, 0, len(fences))
	for _, f := range fences {
		wps = append(wps, Waypoint{
			Type:        typeWaypoint,
			Description: f.ID,
			Latitude:    f.Latitude,
			Longitude:   f.Longitude,
			Radius:      int(math.Ceil(f.Radius)),
			Timestamp:   waypointTST(f.ID),
		})
	}
	return Command{
		Type:   typeCmd,
		Action: actionSetWaypoints,
		Waypoints: &Waypoints{
			Type:      typeWaypoints,
			Waypoints: wps,
		},
	}
}

// waypointTST derives a stable waypoint timestamp from the fence ID, so
// re-arming a fence replaces its waypoint instead of adding another.
func waypointTST(id string) int64 {
	h := fnv.New32a()
	h.Write([]byte(id)) //nolint:errcheck // hash.Hash never fails
	return int64(h.Sum32())
}
