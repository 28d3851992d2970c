package daisyway

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// ServerProtocol is the rekey-round initiator: on an interval it draws a
// fresh key from its own QKD device, announces the key id and a nonce to
// the peer, waits for acknowledgement, and derives the resulting OSK.
type ServerProtocol struct {
	Params        keycrypto.ProtocolParameters
	Stream        io.ReadWriter
	QkdClient     application.QkdClient
	OskHandler    application.OskHandler
	Logger        application.Logger
	RekeyInterval time.Duration
}

// Run drives the protocol until the stream errs or the context is
// cancelled, sleeping RekeyInterval between successful rounds.
func (p *ServerProtocol) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		key, err := p.negotiateKey(ctx)
		if err != nil {
			return err
		}
		if err := application.SetFreshOsk(ctx, p.OskHandler, key); err != nil {
			return fmt.Errorf("daisyway: failed to install negotiated key: %w", err)
		}

		select {
		case <-time.After(p.RekeyInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *ServerProtocol) negotiateKey(ctx context.Context) (keycrypto.Key, error) {
	qkdKey, err := p.QkdClient.FetchAnyKey(ctx)
	if err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: failed to fetch a QKD key: %w", err)
	}
	p.Logger.Debugf("sending QKD id: %s", qkdKey.ID)

	req, err := keycrypto.NewRekeyReq(qkdKey.IDBytesLE())
	if err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: failed to build rekey request: %w", err)
	}

	reqBuf := req.MarshalBinary()
	if _, err := p.Stream.Write(reqBuf[:]); err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: failed to send rekey request: %w", err)
	}

	var ackByte [1]byte
	if _, err := io.ReadFull(p.Stream, ackByte[:]); err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: failed to read rekey acknowledgement: %w", err)
	}
	if err := keycrypto.RekeyAck(ackByte[0]).Validate(); err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: %w", err)
	}

	return keycrypto.DeriveDaisywayKey(p.Params, req.Nonce, qkdKey.IDBytesLE(), qkdKey.Key), nil
}
