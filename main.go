package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/lednode/lednode/cmd"
	"github.com/lednode/lednode/internal/broadcast"
	"github.com/lednode/lednode/internal/command"
	"github.com/lednode/lednode/internal/config"
	"github.com/lednode/lednode/internal/core"
	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/events"
	"github.com/lednode/lednode/internal/health"
	"github.com/lednode/lednode/internal/led"
	"github.com/lednode/lednode/internal/logging"
	"github.com/lednode/lednode/internal/session"
	"github.com/lednode/lednode/internal/transport"
	"github.com/lednode/lednode/internal/transport/btline"
	"github.com/lednode/lednode/internal/transport/httpapi"
	"github.com/lednode/lednode/internal/transport/mqttlink"
	"github.com/lednode/lednode/internal/transport/wshub"
)

// restartDelay gives transports time to deliver the "Restarting" reply
// before the process exits for the supervisor to bring it back.
const restartDelay = 3 * time.Second

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// Device settings
	DeviceName  string `help:"Device name reported in status" default:"" toml:"device.name" env:"DEVICE_NAME"`
	DeviceIface string `help:"Network interface for status reporting" default:"" toml:"device.iface" env:"DEVICE_IFACE"`
	DeviceSSID  string `help:"Wireless network name reported in status" default:"" toml:"device.ssid" env:"DEVICE_SSID"`

	// LED settings
	LEDName string `help:"Sysfs LED name (empty auto-detects the board)" default:"" toml:"led.name" env:"LED_NAME"`

	// Session settings
	SessionCapacity int `help:"WebSocket session slots" default:"8" toml:"sessions.capacity" env:"SESSION_CAPACITY"`

	// MQTT settings
	MQTTEnabled     bool   `help:"Enable MQTT transport" default:"false" toml:"mqtt.enabled" env:"MQTT_ENABLED"`
	MQTTBroker      string `help:"MQTT broker URL" default:"" toml:"mqtt.broker" env:"MQTT_BROKER"`
	MQTTTopicPrefix string `help:"MQTT topic prefix" default:"lednode" toml:"mqtt.topic_prefix" env:"MQTT_TOPIC_PREFIX"`

	// Bluetooth settings
	BluetoothDevice string `help:"RFCOMM tty for the serial transport (empty disables)" default:"" toml:"bluetooth.device" env:"BLUETOOTH_DEVICE"`

	// Scheduler settings
	BroadcastInterval string `help:"Periodic status broadcast interval" default:"5s" toml:"broadcast.interval" env:"BROADCAST_INTERVAL"`
	HealthInterval    string `help:"Link health polling interval" default:"30s" toml:"health.interval" env:"HEALTH_INTERVAL"`

	// Logging settings
	LoggingLevel     string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat    string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingHTTP      string `help:"HTTP listener logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingWebSocket string `help:"WebSocket listener logging level" default:"info" toml:"logging.websocket" env:"LOGGING_WEBSOCKET"`
	LoggingMQTT      string `help:"MQTT transport logging level" default:"info" toml:"logging.mqtt" env:"LOGGING_MQTT"`
	LoggingBluetooth string `help:"Bluetooth transport logging level" default:"info" toml:"logging.bluetooth" env:"LOGGING_BLUETOOTH"`
	LoggingCore      string `help:"Control loop logging level" default:"info" toml:"logging.core" env:"LOGGING_CORE"`
	LoggingHealth    string `help:"Health supervisor logging level" default:"info" toml:"logging.health" env:"LOGGING_HEALTH"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		loggingConfig := logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"http":      opts.LoggingHTTP,
				"websocket": opts.LoggingWebSocket,
				"mqtt":      opts.LoggingMQTT,
				"bluetooth": opts.LoggingBluetooth,
				"core":      opts.LoggingCore,
				"health":    opts.LoggingHealth,
			},
		}
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		// MQTT without a broker cannot do anything useful; fail fast.
		if opts.MQTTEnabled && opts.MQTTBroker == "" {
			logger.Error("MQTT is enabled but no broker is configured")
			os.Exit(1)
		}

		deviceName := opts.DeviceName
		if deviceName == "" {
			deviceName = "lednode-" + device.DeviceID()
		}

		eventBus := events.New()
		registry := session.NewRegistry(opts.SessionCapacity)
		netProbe := device.NewNetProbe(opts.DeviceIface, opts.DeviceSSID)
		ledController := led.New(logger, opts.LEDName)

		state := device.NewState(device.Options{
			DeviceName: deviceName,
			LinkInfo:   netProbe.Status,
			FreeMemory: device.FreeHeap,
			Sessions:   registry.ActiveCount,
		})

		dispatcher := command.NewDispatcher(command.DispatcherOptions{
			State:    state,
			Registry: registry,
			Actuator: ledController,
			Bus:      eventBus,
			Restart: func() {
				go func() {
					time.Sleep(restartDelay)
					logger.Warn("Restarting now")
					os.Exit(0)
				}()
			},
			Logger: logging.GetLogger("core"),
		})

		loop := core.NewLoop(core.Options{
			Dispatcher: dispatcher,
			Logger:     logging.GetLogger("core"),
		})

		hub := wshub.NewHub(&wshub.Options{
			Loop:     loop,
			State:    state,
			Registry: registry,
			Bus:      eventBus,
		})

		var mqttLink *mqttlink.Link
		if opts.MQTTEnabled {
			prefix := opts.MQTTTopicPrefix
			mqttLink = mqttlink.NewLink(&mqttlink.Options{
				Broker:   opts.MQTTBroker,
				ClientID: deviceName,
				Topics: mqttlink.Topics{
					Control:       prefix + "/led/control",
					LEDStatus:     prefix + "/led/status",
					DeviceStatus:  prefix + "/device/status",
					DeviceCommand: prefix + "/device/command",
				},
				Loop:  loop,
				State: state,
				Bus:   eventBus,
			})
		}

		var btLine *btline.Line
		if opts.BluetoothDevice != "" {
			btLine = btline.NewLine(&btline.Options{
				DevicePath: opts.BluetoothDevice,
				Loop:       loop,
				State:      state,
			})
		}

		links := []health.Link{
			health.NewNetworkLink(netProbe, logging.GetLogger("health")),
		}
		if mqttLink != nil {
			links = append(links, mqttLink)
		}
		supervisor := health.NewSupervisor(health.Options{
			Links:    links,
			Interval: parseInterval(opts.HealthInterval, 30*time.Second),
			Bus:      eventBus,
			Uptime:   state.UptimeMillis,
			Logger:   logging.GetLogger("health"),
		})

		targets := []transport.Broadcaster{hub}
		if mqttLink != nil {
			targets = append(targets, mqttLink)
		}
		scheduler := broadcast.NewScheduler(broadcast.Options{
			Interval: parseInterval(opts.BroadcastInterval, 5*time.Second),
			Targets:  targets,
			Snapshot: state.Snapshot,
			Logger:   logging.GetLogger("core"),
		})

		loop.AddTicker(supervisor)
		loop.AddTicker(scheduler)

		server := httpapi.NewServer(&httpapi.Options{
			Loop:       loop,
			State:      state,
			Registry:   registry,
			Supervisor: supervisor,
			WSHandler:  hub,
		})

		// Runtime logging level changes via config file edits.
		watcher := config.NewWatcher(opts.Config, func(path string) (logging.Config, error) {
			return config.LoadLoggingConfig(path), nil
		}, logger)
		watcher.OnReload(func(cfg logging.Config) {
			logging.SetGlobalLevel(cfg.Level)
			for module, level := range cfg.Modules {
				logging.SetModuleLevel(module, level)
			}
		})

		ctx, cancel := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			go loop.Run(ctx)
			go hub.Run(ctx)

			if btLine != nil {
				go btLine.Run(ctx)
			}

			if mqttLink != nil {
				if startErr := mqttLink.Start(); startErr != nil {
					// Not fatal: the health supervisor keeps retrying.
					logger.Warn("Initial MQTT connect failed", "error", startErr)
				}
			}

			if watchErr := watcher.Start(); watchErr != nil {
				logger.Warn("Config watcher disabled", "error", watchErr)
			}

			logger.Info("Starting node", "device", deviceName, "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}
			if mqttLink != nil {
				mqttLink.Stop()
			}
			_ = watcher.Stop()
			cancel()
		})
	})

	cli.Root().AddCommand(cmd.CreateValidateConfigCmd())
	cli.Root().AddCommand(cmd.CreateProbeCmd())

	cli.Run()
}

func parseInterval(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
