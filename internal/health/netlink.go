package health

import (
	"log/slog"
)

// NetworkProbe is the view of the network interface the supervisor needs.
// *device.NetProbe satisfies it.
type NetworkProbe interface {
	Up() bool
}

// NetworkLink supervises the local network interface. The operating system
// owns association and DHCP, so Reconnect only logs; the link recovers on
// its own and the supervisor observes it through Probe.
type NetworkLink struct {
	probe  NetworkProbe
	logger *slog.Logger
}

// NewNetworkLink creates the network link.
func NewNetworkLink(probe NetworkProbe, logger *slog.Logger) *NetworkLink {
	return &NetworkLink{probe: probe, logger: logger}
}

// Name implements Link.
func (n *NetworkLink) Name() string { return "network" }

// Probe implements Link.
func (n *NetworkLink) Probe() bool { return n.probe.Up() }

// Reconnect implements Link. There is nothing to actively reconnect; the
// kernel and network manager re-associate on their own.
func (n *NetworkLink) Reconnect() error {
	n.logger.Info("Waiting for network to recover")
	return nil
}
