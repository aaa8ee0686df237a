package led

// Controller abstracts the single boolean actuator across boards.
// It satisfies the command dispatcher's Actuator interface.
type Controller interface {
	// Apply drives the LED on or off.
	Apply(on bool) error
}
