package device

import (
	"bufio"
	"bytes"
	"net"
	"os"
	"strconv"
	"strings"
)

const procWirelessPath = "/proc/net/wireless"

// NetProbe reports the status of one network interface. The SSID cannot be
// read from procfs, so it is passed through from configuration.
type NetProbe struct {
	iface string
	ssid  string
}

// NewNetProbe creates a probe for the named interface. An empty name means
// "first interface with a global unicast IPv4 address".
func NewNetProbe(iface, ssid string) *NetProbe {
	return &NetProbe{iface: iface, ssid: ssid}
}

// Status returns the current link status for snapshot rendering.
func (p *NetProbe) Status() LinkStatus {
	status := LinkStatus{SSID: p.ssid}

	if ip, ok := p.localIP(); ok {
		status.IP = ip
	}

	if data, err := os.ReadFile(procWirelessPath); err == nil {
		if level, ok := parseWirelessLevel(data, p.iface); ok {
			status.RSSI = level
		}
	}

	return status
}

// Up reports whether the interface currently holds a usable address.
// Consumed by the health supervisor's network link.
func (p *NetProbe) Up() bool {
	_, ok := p.localIP()
	return ok
}

func (p *NetProbe) localIP() (string, bool) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", false
	}

	for _, iface := range ifaces {
		if p.iface != "" && iface.Name != p.iface {
			continue
		}
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && ip4.IsGlobalUnicast() {
				return ip4.String(), true
			}
		}
	}
	return "", false
}

// DeviceID derives a stable identifier from the first non-loopback
// interface's hardware address, matching the firmware's MAC-based IDs.
func DeviceID() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "unknown"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		id := strings.ToUpper(iface.HardwareAddr.String())
		return strings.ReplaceAll(id, ":", "")
	}
	return "unknown"
}

// parseWirelessLevel extracts the signal level in dBm for an interface from
// /proc/net/wireless contents. An empty iface matches the first data row.
func parseWirelessLevel(data []byte, iface string) (int, bool) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		if line <= 2 {
			// Two header rows
			continue
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) < 4 {
			continue
		}

		name := strings.TrimSuffix(fields[0], ":")
		if iface != "" && name != iface {
			continue
		}

		level := strings.TrimSuffix(fields[3], ".")
		v, err := strconv.ParseFloat(level, 64)
		if err != nil {
			return 0, false
		}
		return int(v), true
	}
	return 0, false
}
