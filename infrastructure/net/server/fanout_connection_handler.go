package server

import (
	"context"
	"net"
	"time"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
	"github.com/aparcar/daisyway/infrastructure/daisyway"
)

// fanoutConnectionHandler builds and runs one connection's ServerProtocol,
// reporting its OSK events and eventual exit back to the manager.
type fanoutConnectionHandler struct {
	params        keycrypto.ProtocolParameters
	qkdClient     application.QkdClient
	logger        application.Logger
	rekeyInterval time.Duration
	notify        chan<- connectionHandlerEvent
}

func (h *fanoutConnectionHandler) spawn(ctx context.Context, connectionID ConnectionID, conn net.Conn) context.CancelFunc {
	connCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer conn.Close()

		osk := &fanoutOskHandler{connectionID: connectionID, notify: h.notify}
		protocol := &daisyway.ServerProtocol{
			Params:        h.params,
			Stream:        conn,
			QkdClient:     h.qkdClient,
			OskHandler:    osk,
			Logger:        h.logger,
			RekeyInterval: h.rekeyInterval,
		}

		if err := protocol.Run(connCtx); err != nil && connCtx.Err() == nil {
			h.logger.Warnf("error in connection #%d: %v", connectionID, err)
		}

		select {
		case h.notify <- connectionHandlerEvent{exit: &exitEvent{connectionID: connectionID}}:
		case <-ctx.Done():
		}
	}()

	return cancel
}
