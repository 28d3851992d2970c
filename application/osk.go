package application

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/aparcar/daisyway/domain/keycrypto"
)

// SetOskReason tags why a sink is receiving a new operational session key:
// Fresh keys come from a completed rekey round, Stale keys are erasure
// writes issued by the deadman guard.
type SetOskReason int

const (
	Fresh SetOskReason = iota
	Stale
)

func (r SetOskReason) String() string {
	switch r {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// OskHandler is the sink port: anything that can install an operational
// session key (a file, a running WireGuard interface, ...).
type OskHandler interface {
	SetOsk(ctx context.Context, key keycrypto.Key, reason SetOskReason) error
}

// SetFreshOsk installs a newly derived key.
func SetFreshOsk(ctx context.Context, h OskHandler, key keycrypto.Key) error {
	return h.SetOsk(ctx, key, Fresh)
}

// EraseStaleOsk overwrites the sink with a random key, tagged Stale. A
// random rather than zero key is used so a sink that merely mirrors
// whatever it's given can't be mistaken for "still holding the last good
// key" by an observer who only checks for all-zero.
func EraseStaleOsk(ctx context.Context, h OskHandler) error {
	var key keycrypto.Key
	if _, err := rand.Read(key[:]); err != nil {
		return fmt.Errorf("application: failed to draw erasure key: %w", err)
	}
	return h.SetOsk(ctx, key, Stale)
}
