// Package scan defines the boundary to the advertisement-scanning
// backend. The monitor owns exactly one Scanner at a time and replaces
// it wholesale on every reconnect cycle; a handle that failed once is
// never reused.
package scan

import (
	"context"
	"fmt"
	"runtime"

	"brios/internal/model"
)

// Callback receives one advertisement per detection. It must return
// quickly: the backend invokes it directly from its delivery path.
type Callback func(adv model.Advertisement)

// Scanner is a single scan subscription. Start and Stop are fallible
// and must honor context cancellation so callers can bound them with
// timeouts.
type Scanner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Factory produces a fresh Scanner wired to the given callback.
type Factory func(cb Callback) Scanner

// NewBackend returns the platform scan backend factory. The BLE
// transport itself ships separately; on hosts without one every Start
// fails with a descriptive error so the caller can report it.
func NewBackend(useBDAddr bool) Factory {
	return func(cb Callback) Scanner {
		return &unsupported{platform: runtime.GOOS}
	}
}

type unsupported struct {
	platform string
}

func (u *unsupported) Start(ctx context.Context) error {
	return fmt.Errorf("no scan backend available on %s: install a BLE transport or run with a test backend", u.platform)
}

func (u *unsupported) Stop(ctx context.Context) error {
	return nil
}
