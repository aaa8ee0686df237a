package led

import (
	"fmt"
	"os"
	"path/filepath"
)

const sysfsLEDPath = "/sys/class/leds"

// sysfs implements Controller using the Linux sysfs LED interface.
type sysfs struct {
	name string // sysfs LED name under /sys/class/leds
}

// newSysfs creates a sysfs LED controller for the named LED.
func newSysfs(name string) *sysfs {
	return &sysfs{name: name}
}

// Apply drives the LED by writing its brightness attribute. The trigger is
// forced to "none" first so a board trigger (heartbeat, mmc activity)
// cannot fight manual control.
func (s *sysfs) Apply(on bool) error {
	ledPath := filepath.Join(sysfsLEDPath, s.name)

	if _, err := os.Stat(ledPath); os.IsNotExist(err) {
		return fmt.Errorf("LED %q not found at %s", s.name, ledPath)
	}

	triggerPath := filepath.Join(ledPath, "trigger")
	if err := os.WriteFile(triggerPath, []byte("none"), 0644); err != nil {
		return fmt.Errorf("failed to clear LED trigger: %w", err)
	}

	brightness := "0"
	if on {
		brightness = "1"
	}

	brightnessPath := filepath.Join(ledPath, "brightness")
	if err := os.WriteFile(brightnessPath, []byte(brightness), 0644); err != nil {
		return fmt.Errorf("failed to set LED brightness: %w", err)
	}

	return nil
}
