// Package mqttlink is the MQTT transport: a broker-mediated control and
// status surface. It is connection-oriented toward the broker but has no
// per-peer sessions, so it never touches the session registry. Reconnection
// is owned by the health supervisor, not by the paho client.
package mqttlink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lednode/lednode/internal/core"
	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/events"
	"github.com/lednode/lednode/internal/logging"
	"github.com/lednode/lednode/internal/transport"
)

// origin label used for commands submitted by this transport.
const origin = "mqtt"

const connectTimeout = 10 * time.Second

// Topics are the broker topics the link subscribes and publishes on.
type Topics struct {
	// Control receives actuator commands and answers on LEDStatus.
	Control string
	// LEDStatus carries command results and actuator change notifications.
	LEDStatus string
	// DeviceStatus carries full status snapshots.
	DeviceStatus string
	// DeviceCommand receives node-level commands (status, restart).
	DeviceCommand string
}

// DefaultTopics returns the topic layout used when none is configured.
func DefaultTopics() Topics {
	return Topics{
		Control:       "lednode/led/control",
		LEDStatus:     "lednode/led/status",
		DeviceStatus:  "lednode/device/status",
		DeviceCommand: "lednode/device/command",
	}
}

// Options wires the link's collaborators.
type Options struct {
	Broker   string
	ClientID string
	Topics   Topics
	Loop     *core.Loop
	State    *device.State
	Bus      *events.Bus
}

// Link is the MQTT client plus its topic plumbing. It implements both
// health.Link (the supervisor probes and reconnects it) and
// transport.Broadcaster (the scheduler pushes periodic status through it).
type Link struct {
	opts   *Options
	client mqtt.Client
	logger *slog.Logger
}

// NewLink configures the paho client. Connect is not attempted here; call
// Start once the control loop is running.
func NewLink(opts *Options) *Link {
	l := &Link{
		opts:   opts,
		logger: logging.GetLogger("mqtt"),
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetConnectRetry(false).
		SetConnectTimeout(connectTimeout).
		SetOnConnectHandler(l.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			l.logger.Warn("Broker connection lost", "error", err)
		})

	l.client = mqtt.NewClient(clientOpts)

	if opts.Bus != nil {
		opts.Bus.Subscribe(func(e events.StateChangedEvent) {
			// Propagate changes made on any transport to MQTT observers.
			l.publish(opts.Topics.LEDStatus, transport.LEDUpdate(e.LED, e.Timestamp))
		})
	}

	return l
}

// Start makes the initial broker connection. A failed first connect is not
// fatal: the supervisor keeps retrying.
func (l *Link) Start() error {
	l.logger.Info("Connecting to broker", "broker", l.opts.Broker, "client_id", l.opts.ClientID)
	token := l.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("connect to %s: timeout", l.opts.Broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to %s: %w", l.opts.Broker, err)
	}
	return nil
}

// Stop disconnects from the broker.
func (l *Link) Stop() {
	l.client.Disconnect(250)
}

// Name implements health.Link and transport.Broadcaster.
func (l *Link) Name() string { return origin }

// Probe implements health.Link.
func (l *Link) Probe() bool {
	return l.client.IsConnectionOpen()
}

// Reconnect implements health.Link. The supervisor calls it at most once
// per polling interval.
func (l *Link) Reconnect() error {
	return l.Start()
}

// Recipients implements transport.Broadcaster. The broker is the single
// recipient; with it down there is nobody to talk to.
func (l *Link) Recipients() int {
	if l.client.IsConnectionOpen() {
		return 1
	}
	return 0
}

// BroadcastStatus implements transport.Broadcaster, publishing the
// periodic status snapshot to the device status topic.
func (l *Link) BroadcastStatus(snap device.Snapshot) {
	l.publish(l.opts.Topics.DeviceStatus, transport.Status(snap))
}

// onConnect runs after every successful (re)connect: subscriptions do not
// survive a clean-session reconnect, so they are re-established here, and
// a status snapshot announces the node.
func (l *Link) onConnect(client mqtt.Client) {
	l.logger.Info("Connected to broker", "broker", l.opts.Broker)

	if token := client.Subscribe(l.opts.Topics.Control, 1, l.handleControl); token.Wait() && token.Error() != nil {
		l.logger.Error("Subscribe failed", "topic", l.opts.Topics.Control, "error", token.Error())
	}
	if token := client.Subscribe(l.opts.Topics.DeviceCommand, 1, l.handleDeviceCommand); token.Wait() && token.Error() != nil {
		l.logger.Error("Subscribe failed", "topic", l.opts.Topics.DeviceCommand, "error", token.Error())
	}

	l.publish(l.opts.Topics.DeviceStatus, transport.Status(l.opts.State.Snapshot()))
}

// handleControl submits the raw payload to the control loop and publishes
// the result to the LED status topic.
func (l *Link) handleControl(_ mqtt.Client, msg mqtt.Message) {
	res, err := l.opts.Loop.Submit(context.Background(), origin, msg.Payload())
	if err != nil {
		l.logger.Warn("Command dropped", "topic", msg.Topic(), "error", err)
		return
	}
	l.publish(l.opts.Topics.LEDStatus, transport.Result(res))
}

// handleDeviceCommand serves node-level commands: status republishes the
// full snapshot, everything else (restart included) goes through the
// control loop like any other command.
func (l *Link) handleDeviceCommand(_ mqtt.Client, msg mqtt.Message) {
	payload := msg.Payload()
	if string(payload) == "status" {
		l.publish(l.opts.Topics.DeviceStatus, transport.Status(l.opts.State.Snapshot()))
		return
	}

	if _, err := l.opts.Loop.Submit(context.Background(), origin, payload); err != nil {
		l.logger.Warn("Command dropped", "topic", msg.Topic(), "error", err)
	}
}

func (l *Link) publish(topic string, payload []byte) {
	if !l.client.IsConnectionOpen() {
		return
	}
	token := l.client.Publish(topic, 0, false, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			l.logger.Warn("Publish failed", "topic", topic, "error", token.Error())
		}
	}()
}
