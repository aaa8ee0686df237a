package led

import "log/slog"

// noop implements Controller as a no-op for systems without LED support.
type noop struct {
	logger *slog.Logger
}

// newNoop creates a new no-op LED controller.
func newNoop(logger *slog.Logger) *noop {
	return &noop{
		logger: logger,
	}
}

// Apply logs the request but performs no actual LED control.
func (n *noop) Apply(on bool) error {
	n.logger.Debug("LED control not available (no-op)", "on", on)
	return nil
}
