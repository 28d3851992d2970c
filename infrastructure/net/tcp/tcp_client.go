// Package tcp implements both sides of a rekey relationship's transport:
// a client that dials a listening peer and runs the rekey-request
// acceptor role over the connection, reconnecting with a fixed delay
// whenever it drops, and (via the sibling server package) the listener that
// accepts connections and drives the rekey-round initiator role.
package tcp

import (
	"context"
	"net"
	"time"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
	"github.com/aparcar/daisyway/infrastructure/daisyway"
)

// reconnectDelay is the fixed pause between connection attempts. The
// original has no backoff or jitter; neither does this.
const reconnectDelay = 2 * time.Second

// Client dials Endpoint repeatedly, running ClientProtocol over each
// successful connection.
type Client struct {
	Endpoint   string
	Params     keycrypto.ProtocolParameters
	QkdClient  application.QkdClient
	OskHandler application.OskHandler
	Logger     application.Logger
}

// Run never returns until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := c.runOnce(ctx); err != nil {
			c.Logger.Warnf("error on connection to %s: %v", c.Endpoint, err)
		}

		c.Logger.Infof("retrying connection to peer at %s...", c.Endpoint)
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) runOnce(ctx context.Context) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", c.Endpoint)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.Logger.Infof("connected to server %s", c.Endpoint)

	protocol := &daisyway.ClientProtocol{
		Params:     c.Params,
		Stream:     conn,
		QkdClient:  c.QkdClient,
		OskHandler: c.OskHandler,
		Logger:     c.Logger,
	}
	return protocol.Run(ctx)
}
