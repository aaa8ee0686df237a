package command

import "testing"

func TestParseVariants(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Command
	}{
		{"json command led_on", `{"command":"led_on"}`, SetActuator(true)},
		{"json command led_off", `{"command":"led_off"}`, SetActuator(false)},
		{"json command toggle", `{"command":"toggle"}`, Toggle()},
		{"json command status", `{"command":"status"}`, QueryStatus()},
		{"json command list", `{"command":"list"}`, ListSessions()},
		{"json state true", `{"state":true}`, SetActuator(true)},
		{"json state false", `{"state":false}`, SetActuator(false)},
		{"phrase led on", "led on", SetActuator(true)},
		{"phrase led off", "led off", SetActuator(false)},
		{"phrase toggle", "toggle", Toggle()},
		{"phrase status", "status", QueryStatus()},
		{"phrase list", "list", ListSessions()},
		{"phrase help", "help", Help()},
		{"phrase restart", "restart", Restart()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse([]byte(tt.raw))
			if got != tt.want {
				t.Fatalf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseToleratesWhitespaceAndCase(t *testing.T) {
	tests := []struct {
		raw  string
		want Command
	}{
		{`{"state": true}`, SetActuator(true)},
		{`{ "state" : FALSE }`, SetActuator(false)},
		{"  {\n\t\"command\": \"LED_ON\"\n}  ", SetActuator(true)},
		{"LED  ON", SetActuator(true)},
		{"  Led Off\r\n", SetActuator(false)},
		{"STATUS", QueryStatus()},
	}

	for _, tt := range tests {
		got := Parse([]byte(tt.raw))
		if got != tt.want {
			t.Fatalf("Parse(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
}

func TestParseCommandKeyWinsOverStateKey(t *testing.T) {
	got := Parse([]byte(`{"command":"toggle","state":true}`))
	if got.Kind != KindToggle {
		t.Fatalf("expected toggle to win over state key, got %+v", got)
	}
}

func TestParseUnrecognized(t *testing.T) {
	tests := []string{
		"",
		"blink",
		`{"state":"on"}`,
		`{"command":"reboot"}`,
		"\x00\xff\xfe",
		"led",
	}

	for _, raw := range tests {
		got := Parse([]byte(raw))
		if got.Kind != KindUnrecognized {
			t.Fatalf("Parse(%q) = %+v, want unrecognized", raw, got)
		}
	}
}

func TestParseIsPure(t *testing.T) {
	raw := []byte(`{"state":true}`)
	first := Parse(raw)
	for range 10 {
		if got := Parse(raw); got != first {
			t.Fatalf("Parse not stable: %+v != %+v", got, first)
		}
	}
}
