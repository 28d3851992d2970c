//go:build linux

package osk

import (
	"context"
	"fmt"

	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// WireGuardOskHandler injects the operational session key as a running
// WireGuard interface's preshared key for a specific peer.
type WireGuardOskHandler struct {
	client    *wgctrl.Client
	ifaceName string
	peerID    wgtypes.Key
	logger    application.Logger
}

// NewWireGuardOskHandler opens the WireGuard control socket, confirms the
// named interface has the given peer configured, and returns a handler
// ready to update its preshared key.
func NewWireGuardOskHandler(interfaceName string, peerID keycrypto.Key, logger application.Logger) (*WireGuardOskHandler, error) {
	client, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("osk: failed to connect to WireGuard control socket: %w", err)
	}

	wgKey := wgtypes.Key(peerID)

	device, err := client.Device(interfaceName)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("osk: failed to access WireGuard interface %s: %w", interfaceName, err)
	}

	found := false
	for _, peer := range device.Peers {
		if peer.PublicKey == wgKey {
			found = true
			break
		}
	}
	if !found {
		client.Close()
		return nil, fmt.Errorf("osk: could not find WireGuard peer %s on interface %s", wgKey, interfaceName)
	}

	return &WireGuardOskHandler{
		client:    client,
		ifaceName: interfaceName,
		peerID:    wgKey,
		logger:    logger,
	}, nil
}

func (h *WireGuardOskHandler) SetOsk(_ context.Context, key keycrypto.Key, reason application.SetOskReason) error {
	switch reason {
	case application.Fresh:
		h.logger.Infof("injecting fresh PSK into WireGuard interface %s", h.ifaceName)
	case application.Stale:
		h.logger.Errorf("erasing stale PSK in WireGuard interface %s by overwriting with a random key", h.ifaceName)
	}

	psk := wgtypes.Key(key)

	err := h.client.ConfigureDevice(h.ifaceName, wgtypes.Config{
		Peers: []wgtypes.PeerConfig{{
			PublicKey:         h.peerID,
			UpdateOnly:        true,
			PresharedKey:      &psk,
			ReplaceAllowedIPs: false,
		}},
	})
	if err != nil {
		return fmt.Errorf("osk: failed to configure WireGuard peer on %s: %w", h.ifaceName, err)
	}
	return nil
}

// Close releases the underlying control socket.
func (h *WireGuardOskHandler) Close() error {
	return h.client.Close()
}
