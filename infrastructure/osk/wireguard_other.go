//go:build !linux

package osk

import (
	"context"
	"fmt"
	"runtime"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// NewWireGuardOskHandler is unavailable outside Linux: wgctrl's kernel
// backend talks to the WireGuard netlink interface, which only exists
// there. Configurations asking for the wireguard sink on another platform
// fail at startup with this error rather than silently falling back to a
// no-op sink.
func NewWireGuardOskHandler(string, keycrypto.Key, application.Logger) (*WireGuardOskHandler, error) {
	return nil, fmt.Errorf("osk: the wireguard sink is not supported on %s", runtime.GOOS)
}

// WireGuardOskHandler is an unconstructible placeholder on non-Linux
// builds so C9's config wiring still type-checks against the same name.
type WireGuardOskHandler struct{}

func (h *WireGuardOskHandler) SetOsk(_ context.Context, _ keycrypto.Key, _ application.SetOskReason) error {
	return fmt.Errorf("osk: the wireguard sink is not supported on %s", runtime.GOOS)
}

func (h *WireGuardOskHandler) Close() error { return nil }
