package command

import (
	"strings"
	"unicode"
)

// Parse converts a raw transport payload into a Command. It is pure and
// total: every byte sequence maps to exactly one variant, with
// Unrecognized as the catch-all, so transports always have a defined
// response and never drop a connection over bad input.
//
// Two wire shapes are accepted, matching the deployed firmware clients:
//
//   - JSON-ish payloads matched by substring containment after lowercasing
//     and whitespace stripping, so malformed-but-recognizable bodies like
//     `{"state": True,}` still match;
//   - bare lower-cased phrases (`led on`, `status`) from line-oriented
//     transports.
func Parse(raw []byte) Command {
	normalized := normalize(string(raw))

	// Keyed JSON shapes. Command keys are checked before the state key so
	// a payload carrying both resolves to the more specific form.
	switch {
	case strings.Contains(normalized, `"command":"led_on"`):
		return SetActuator(true)
	case strings.Contains(normalized, `"command":"led_off"`):
		return SetActuator(false)
	case strings.Contains(normalized, `"command":"toggle"`):
		return Toggle()
	case strings.Contains(normalized, `"command":"status"`):
		return QueryStatus()
	case strings.Contains(normalized, `"command":"list"`):
		return ListSessions()
	case strings.Contains(normalized, `"state":true`):
		return SetActuator(true)
	case strings.Contains(normalized, `"state":false`):
		return SetActuator(false)
	}

	// Bare phrases with inner whitespace collapsed: "LED  On" == "led on".
	switch phrase(string(raw)) {
	case "led on":
		return SetActuator(true)
	case "led off":
		return SetActuator(false)
	case "toggle":
		return Toggle()
	case "status":
		return QueryStatus()
	case "list":
		return ListSessions()
	case "help":
		return Help()
	case "restart":
		return Restart()
	}

	return Unrecognized(strings.TrimSpace(string(raw)))
}

// normalize lowercases and strips all whitespace so `{"state": TRUE}`
// matches the same substring as `{"state":true}`.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

// phrase lowercases, trims, and collapses runs of whitespace to one space.
func phrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
