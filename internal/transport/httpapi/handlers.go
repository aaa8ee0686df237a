package httpapi

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/lednode/lednode/internal/command"
)

// registerDeviceRoutes registers the firmware-compatible device endpoints.
func (s *Server) registerDeviceRoutes() {
	// GET /status - full device status
	huma.Register(s.api, huma.Operation{
		OperationID: "get-status",
		Method:      http.MethodGet,
		Path:        "/status",
		Summary:     "Device Status",
		Description: "Full device status snapshot",
		Tags:        []string{"device"},
	}, func(ctx context.Context, input *struct{}) (*StatusResponse, error) {
		res, err := s.opts.Loop.Submit(ctx, origin, []byte("status"))
		if err != nil {
			return nil, huma.Error503ServiceUnavailable("Control loop unavailable", err)
		}
		return &StatusResponse{Body: *res.Snapshot}, nil
	})

	// GET /led/on - turn LED on
	huma.Register(s.api, huma.Operation{
		OperationID: "led-on",
		Method:      http.MethodGet,
		Path:        "/led/on",
		Summary:     "LED On",
		Tags:        []string{"device"},
	}, func(ctx context.Context, input *struct{}) (*LEDResponse, error) {
		return s.submitLED(ctx, []byte("led on"))
	})

	// GET /led/off - turn LED off
	huma.Register(s.api, huma.Operation{
		OperationID: "led-off",
		Method:      http.MethodGet,
		Path:        "/led/off",
		Summary:     "LED Off",
		Tags:        []string{"device"},
	}, func(ctx context.Context, input *struct{}) (*LEDResponse, error) {
		return s.submitLED(ctx, []byte("led off"))
	})

	// POST /led - control LED with a JSON body containing "state":true|false.
	// Matching is tolerant substring containment, preserving compatibility
	// with the deployed firmware clients.
	huma.Register(s.api, huma.Operation{
		OperationID:      "led-control",
		Method:           http.MethodPost,
		Path:             "/led",
		Summary:          "Control LED",
		Description:      `Set the LED from a JSON body containing "state":true or "state":false`,
		Tags:             []string{"device"},
		Errors:           []int{400},
		SkipValidateBody: true,
	}, func(ctx context.Context, input *LEDControlRequest) (*LEDResponse, error) {
		if len(input.RawBody) == 0 {
			return &LEDResponse{
				Status: http.StatusBadRequest,
				Body: ResultBody{
					Success:   false,
					Message:   "Missing JSON body",
					Timestamp: s.opts.State.UptimeMillis(),
				},
			}, nil
		}

		// Only an explicit state assignment is accepted on this endpoint.
		if cmd := command.Parse(input.RawBody); cmd.Kind != command.KindSetActuator {
			return &LEDResponse{
				Status: http.StatusBadRequest,
				Body: ResultBody{
					Success:   false,
					Message:   "Invalid JSON format",
					Timestamp: s.opts.State.UptimeMillis(),
				},
			}, nil
		}

		return s.submitLED(ctx, input.RawBody)
	})
}

func (s *Server) submitLED(ctx context.Context, payload []byte) (*LEDResponse, error) {
	res, err := s.opts.Loop.Submit(ctx, origin, payload)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("Control loop unavailable", err)
	}

	body := ResultBody{
		Success:   res.Success,
		Message:   res.Message,
		Timestamp: res.Timestamp,
	}
	if res.Snapshot != nil {
		body.LED = &res.Snapshot.LED
	}

	return &LEDResponse{Body: body}, nil
}
