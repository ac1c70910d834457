// Package system abstracts the OS session layer: querying whether the
// interactive session is locked and locking it now. The monitor core
// only sees the Controller interface, so platforms and tests plug in
// their own implementations.
package system

// Controller is the injected OS session capability.
//
// Lock reports success from the lock command's own status; it does not
// verify the session actually locked afterwards. That weak guarantee is
// deliberate and matches the behavior users already rely on.
type Controller interface {
	IsLocked() (bool, error)
	Lock() (success bool, status string)
}

// New returns the Controller for the current platform.
func New() Controller {
	return newPlatform()
}

// Noop is a Controller that never reports a locked session and refuses
// to lock. Used on unsupported platforms and as a base for test fakes.
type Noop struct{}

func (Noop) IsLocked() (bool, error) {
	return false, nil
}

func (Noop) Lock() (bool, string) {
	return false, "session locking not supported on this platform"
}
