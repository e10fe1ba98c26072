package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/msgpo/kalliope-app/internal/infrastructure/config"
)

// Client is a broker connection shared by the OwnTracks platform and
// watcher. Subscriptions are replayed after every reconnect. All methods
// are safe for concurrent use.
type Client struct {
	paho     pahomqtt.Client
	clientID string
	qos      byte

	mu     sync.RWMutex
	online bool
	routes map[string]route
	log    Logger
}

// Logger is the logging subset used by Client. *logging.Logger satisfies it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Connect dials the broker described by cfg and waits for the session.
// The retained status topic is set online on every (re)connect and a will
// marks it offline if the process dies.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{
		clientID: cfg.Broker.ClientID,
		qos:      byte(cfg.QoS),
		routes:   make(map[string]route),
	}

	opts := buildClientOptions(cfg)
	configureLWT(opts, c.clientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })
	opts.SetReconnectingHandler(func(pahomqtt.Client, *pahomqtt.ClientOptions) {
		c.logger().Warn("MQTT reconnecting", "client_id", c.clientID)
	})

	c.paho = pahomqtt.NewClient(opts)
	if err := await(c.paho.Connect(), connectTimeout); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The connect handler runs on its own goroutine and may lag behind.
	c.setOnline(true)
	return c, nil
}

func (c *Client) connected() {
	c.setOnline(true)
	c.logger().Info("MQTT connected", "client_id", c.clientID)

	c.mu.RLock()
	for topic, r := range c.routes {
		c.paho.Subscribe(topic, r.qos, c.deliver(r.handler))
	}
	c.mu.RUnlock()

	c.paho.Publish(Topics{}.AppStatus(), c.qos, true, buildStatusPayload(c.clientID, statusOnline, ""))
}

func (c *Client) lost(err error) {
	c.setOnline(false)
	c.logger().Warn("MQTT connection lost", "error", err)
}

func (c *Client) setOnline(v bool) {
	c.mu.Lock()
	c.online = v
	c.mu.Unlock()
}

// Close marks the status topic offline and disconnects. It is a no-op on a
// client that never connected.
func (c *Client) Close() error {
	if c.paho == nil {
		return nil
	}
	if c.IsConnected() {
		payload := buildStatusPayload(c.clientID, statusOffline, reasonGraceful)
		c.paho.Publish(Topics{}.AppStatus(), c.qos, true, payload).WaitTimeout(publishTimeout)
	}
	c.paho.Disconnect(disconnectQuiesceMS)
	c.setOnline(false)
	return nil
}

// HealthCheck reports ErrNotConnected while the broker session is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports the last known session state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.online && c.paho != nil && c.paho.IsConnected()
}

// QoS returns the configured default QoS level.
func (c *Client) QoS() byte {
	return c.qos
}

// SetLogger sets the logger for connection changes and handler failures.
// A nil logger discards them.
func (c *Client) SetLogger(logger Logger) {
	c.mu.Lock()
	c.log = logger
	c.mu.Unlock()
}

func (c *Client) logger() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.log == nil {
		return noopLogger{}
	}
	return c.log
}

// await waits for tok and returns its error, or a timeout error.
func await(tok pahomqtt.Token, d time.Duration) error {
	if !tok.WaitTimeout(d) {
		return fmt.Errorf("timeout after %v", d)
	}
	return tok.Error()
}
