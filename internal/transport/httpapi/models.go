package httpapi

import (
	"github.com/lednode/lednode/internal/device"
	"github.com/lednode/lednode/internal/session"
	"github.com/lednode/lednode/internal/version"
)

// ResultBody is the shared command-result wire shape: success, message,
// flattened actuator state when a snapshot was produced, and timestamp.
type ResultBody struct {
	Success   bool   `json:"success" doc:"Whether the command was applied"`
	Message   string `json:"message" example:"LED ON" doc:"Human-readable outcome"`
	LED       *bool  `json:"led,omitempty" doc:"Actuator state after the command"`
	Timestamp int64  `json:"timestamp" doc:"Milliseconds since process start"`
}

// LEDControlRequest carries the raw POST /led body. The body is matched by
// substring containment, so it is deliberately not schema-validated.
type LEDControlRequest struct {
	RawBody []byte `contentType:"application/json"`
}

// LEDResponse wraps ResultBody with a dynamic status code (400 on
// unmatched payloads).
type LEDResponse struct {
	Status int
	Body   ResultBody
}

// StatusResponse wraps the device status snapshot.
type StatusResponse struct {
	Body device.Snapshot
}

// HealthData reports daemon health and supervised link states.
type HealthData struct {
	Status string            `json:"status" example:"ok" doc:"Daemon health"`
	Links  map[string]string `json:"links" doc:"Supervised link states"`
}

// HealthResponse wraps HealthData.
type HealthResponse struct {
	Body HealthData
}

// VersionResponse wraps build metadata.
type VersionResponse struct {
	Body version.Info
}

// SessionsData lists active bidirectional sessions.
type SessionsData struct {
	Count    int                  `json:"count" doc:"Number of active sessions"`
	Sessions []session.Descriptor `json:"sessions" doc:"Active session descriptors"`
}

// SessionsResponse wraps SessionsData.
type SessionsResponse struct {
	Body SessionsData
}
