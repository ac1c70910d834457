//go:build darwin

package system

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"
)

const commandTimeout = 5 * time.Second

func newPlatform() Controller {
	return &darwinController{}
}

type darwinController struct{}

// IsLocked inspects the IOConsoleUsers registry entry, which carries the
// CGSSessionScreenIsLocked flag while the login session is locked.
func (d *darwinController) IsLocked() (bool, error) {
	out, err := run("ioreg", "-n", "Root", "-d1", "-a")
	if err != nil {
		return false, err
	}
	if bytes.Contains(out, []byte("CGSSessionScreenIsLocked")) ||
		bytes.Contains(out, []byte("<key>IOConsoleLocked</key><true/>")) {
		return true, nil
	}
	return false, nil
}

// Lock requires a password immediately on wake, then puts the display to
// sleep, which locks the session. Any command failure is reported in the
// status string, never escalated.
func (d *darwinController) Lock() (bool, string) {
	steps := [][]string{
		{"defaults", "write", "com.apple.screensaver", "askForPassword", "-int", "1"},
		{"defaults", "write", "com.apple.screensaver", "askForPasswordDelay", "-int", "0"},
		{"pmset", "displaysleepnow"},
	}
	for _, args := range steps {
		if _, err := run(args[0], args[1:]...); err != nil {
			return false, fmt.Sprintf("failed to lock screen: %v", err)
		}
	}
	return true, "screen locked (password required)"
}

func run(name string, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}
