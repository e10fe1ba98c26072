package mqtt

import "fmt"

const (
	// TopicPrefixApp roots the topics this application publishes.
	TopicPrefixApp = "kalliope-app"

	// DefaultOwnTracksPrefix roots OwnTracks device topics.
	DefaultOwnTracksPrefix = "owntracks"
)

// Topics builds topic names. OwnTracks topics are
// {Prefix}/{user}/{device}[/suffix] with Prefix defaulting to "owntracks".
type Topics struct {
	Prefix string
}

func (t Topics) prefix() string {
	if t.Prefix == "" {
		return DefaultOwnTracksPrefix
	}
	return t.Prefix
}

// DeviceCommand is where a device takes setWaypoints, e.g.
// owntracks/alice/phone/cmd.
func (t Topics) DeviceCommand(user, device string) string {
	return fmt.Sprintf("%s/%s/%s/cmd", t.prefix(), user, device)
}

// AllDeviceEvents matches region transitions from every device.
func (t Topics) AllDeviceEvents() string {
	return t.prefix() + "/+/+/event"
}

// AppStatus carries the retained online/offline status.
func (Topics) AppStatus() string {
	return TopicPrefixApp + "/status"
}

// SynapseRun is where the outcome of a fence-triggered run is announced.
func (Topics) SynapseRun(name string) string {
	return fmt.Sprintf("%s/synapse/%s/run", TopicPrefixApp, name)
}
