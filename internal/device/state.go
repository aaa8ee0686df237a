package device

import (
	"sync"
	"time"
)

// LinkStatus describes the network link as seen at snapshot time.
type LinkStatus struct {
	IP   string
	SSID string
	RSSI int
}

// Options configures a State with its external collaborators. All providers
// are optional; missing ones degrade to zero values in snapshots.
type Options struct {
	DeviceName string
	LinkInfo   func() LinkStatus
	FreeMemory func() uint64
	Sessions   func() int
}

// State is the single source of truth for the actuator and its derived
// status fields. Only the command dispatcher mutates it, but transports
// read snapshots from their own goroutines (connect pushes, broker
// publishes), so the mutable fields are guarded by mu.
type State struct {
	mu         sync.RWMutex
	deviceName string
	actuatorOn bool
	version    uint64
	startedAt  time.Time

	linkInfo   func() LinkStatus
	freeMemory func() uint64
	sessions   func() int
}

// NewState creates the process-wide device state with the actuator off.
func NewState(opts Options) *State {
	name := opts.DeviceName
	if name == "" {
		name = "lednode"
	}
	return &State{
		deviceName: name,
		startedAt:  time.Now(),
		linkInfo:   opts.LinkInfo,
		freeMemory: opts.FreeMemory,
		sessions:   opts.Sessions,
	}
}

// DeviceName returns the configured device name.
func (s *State) DeviceName() string {
	return s.deviceName
}

// ActuatorOn reports the current actuator state.
func (s *State) ActuatorOn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actuatorOn
}

// SetActuator sets the actuator state and bumps the version counter.
// Must only be called from the command dispatcher.
func (s *State) SetActuator(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actuatorOn = on
	s.version++
}

// Version returns the mutation counter. It strictly increases with every
// actuator mutation and never resets while the process runs.
func (s *State) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// UptimeMillis returns milliseconds elapsed since the state was created.
// This is the timestamp clock used on every wire format.
func (s *State) UptimeMillis() int64 {
	return time.Since(s.startedAt).Milliseconds()
}

// Snapshot captures a fully-formed copy of the device state plus derived
// status fields. Transports render snapshots, never the live State; it is
// safe to call from any goroutine.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	led := s.actuatorOn
	version := s.version
	s.mu.RUnlock()

	var link LinkStatus
	if s.linkInfo != nil {
		link = s.linkInfo()
	}

	var heap uint64
	if s.freeMemory != nil {
		heap = s.freeMemory()
	}

	var sessions int
	if s.sessions != nil {
		sessions = s.sessions()
	}

	return Snapshot{
		Device:    s.deviceName,
		IP:        link.IP,
		SSID:      link.SSID,
		RSSI:      link.RSSI,
		LED:       led,
		Uptime:    int64(time.Since(s.startedAt).Seconds()),
		Heap:      heap,
		WSClients: sessions,
		Version:   version,
		Timestamp: s.UptimeMillis(),
	}
}

// Snapshot is an immutable copy of the device state at a point in time.
type Snapshot struct {
	Device    string `json:"device"`
	IP        string `json:"ip"`
	SSID      string `json:"ssid"`
	RSSI      int    `json:"rssi"`
	LED       bool   `json:"led"`
	Uptime    int64  `json:"uptime"`
	Heap      uint64 `json:"heap"`
	WSClients int    `json:"ws_clients"`
	Version   uint64 `json:"version"`
	Timestamp int64  `json:"timestamp"`
}
