// Package osk collects application.OskHandler sinks: a plain file, a
// running WireGuard interface, and the deadman liveness wrapper that sits
// in front of either.
package osk

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// OutfileOskHandler writes the current operational session key, base64
// encoded, to a plain file. Used for testing and for sinks that read the
// key out-of-band rather than through WireGuard's own PSK mechanism.
type OutfileOskHandler struct {
	Path   string
	Logger application.Logger
}

// NewOutfileOskHandler returns a handler that (over)writes path on every
// SetOsk call.
func NewOutfileOskHandler(path string, logger application.Logger) *OutfileOskHandler {
	return &OutfileOskHandler{Path: path, Logger: logger}
}

func (h *OutfileOskHandler) SetOsk(_ context.Context, key keycrypto.Key, reason application.SetOskReason) error {
	why := "exchanged"
	switch reason {
	case application.Fresh:
		h.Logger.Infof("writing fresh output key to %s", h.Path)
	case application.Stale:
		h.Logger.Errorf("erasing stale key in %s by overwriting with a random key", h.Path)
		why = "stale"
	}

	// 44 = base64.StdEncoding.EncodedLen(keycrypto.KeyLength), computed by
	// hand since array sizes must be constant expressions.
	var encBuf [44]byte
	base64.StdEncoding.Encode(encBuf[:], key[:])

	if err := os.WriteFile(h.Path, encBuf[:], 0o600); err != nil {
		keycrypto.Zeroize(encBuf[:])
		return fmt.Errorf("osk: failed to write output key to %s: %w", h.Path, err)
	}
	keycrypto.Zeroize(encBuf[:])

	fmt.Printf("output-key %s %s\n", h.Path, why)
	return nil
}
