//go:build !darwin

package system

func newPlatform() Controller {
	return Noop{}
}
