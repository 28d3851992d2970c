// Package daisyway implements the rekey protocol's two roles on top of an
// arbitrary io.ReadWriter: the client role accepts rekey requests and
// fetches the matching QKD key half, the server role initiates a rekey
// round on an interval and drives the QKD device that picks the key.
package daisyway

import (
	"context"
	"fmt"
	"io"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// ClientProtocol is the rekey-request acceptor: it waits for the peer to
// announce a QKD key id and nonce, fetches the matching key half from its
// own QKD device, acknowledges, and derives the resulting OSK.
type ClientProtocol struct {
	Params     keycrypto.ProtocolParameters
	Stream     io.ReadWriter
	QkdClient  application.QkdClient
	OskHandler application.OskHandler
	Logger     application.Logger
}

// Run drives the protocol until the stream errs or the context is
// cancelled, installing each negotiated key as it arrives.
func (p *ClientProtocol) Run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		key, err := p.waitForKeyNegotiation(ctx)
		if err != nil {
			return err
		}
		if err := application.SetFreshOsk(ctx, p.OskHandler, key); err != nil {
			return fmt.Errorf("daisyway: failed to install negotiated key: %w", err)
		}
	}
}

func (p *ClientProtocol) waitForKeyNegotiation(ctx context.Context) (keycrypto.Key, error) {
	var reqBuf [keycrypto.RekeyReqLength]byte
	if _, err := io.ReadFull(p.Stream, reqBuf[:]); err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: failed to read rekey request: %w", err)
	}
	req := keycrypto.ParseRekeyReq(reqBuf)

	keyID := application.UUIDFromBytesLE(req.QkdKeyID)
	qkdKey, err := p.QkdClient.FetchSpecificKey(ctx, keyID)
	if err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: failed to fetch key %s from QKD device: %w", keyID, err)
	}

	if _, err := p.Stream.Write([]byte{byte(keycrypto.RekeyAckOK)}); err != nil {
		return keycrypto.Key{}, fmt.Errorf("daisyway: failed to send rekey acknowledgement: %w", err)
	}

	p.Logger.Debugf("received QKD id: %s", qkdKey.ID)

	return keycrypto.DeriveDaisywayKey(p.Params, req.Nonce, req.QkdKeyID, qkdKey.Key), nil
}
