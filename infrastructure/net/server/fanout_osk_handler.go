package server

import (
	"context"
	"fmt"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// fanoutOskHandler is the application.OskHandler given to each
// connection's ServerProtocol. It doesn't touch the real sink itself; it
// reports every key to the ConnectionManager, which decides whether this
// connection is the active one before forwarding (or dropping) the event.
type fanoutOskHandler struct {
	connectionID ConnectionID
	notify       chan<- connectionHandlerEvent
}

func (h *fanoutOskHandler) SetOsk(ctx context.Context, key keycrypto.Key, reason application.SetOskReason) error {
	ev := connectionHandlerEvent{osk: &oskEvent{connectionID: h.connectionID, key: key, reason: reason}}
	select {
	case h.notify <- ev:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("server: connection #%d: %w", h.connectionID, ctx.Err())
	}
}
