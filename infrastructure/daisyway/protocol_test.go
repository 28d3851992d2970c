package daisyway

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

type stubLogger struct{}

func (stubLogger) Debugf(string, ...any) {}
func (stubLogger) Infof(string, ...any)  {}
func (stubLogger) Warnf(string, ...any)  {}
func (stubLogger) Errorf(string, ...any) {}

type stubQkdClient struct {
	key application.Etsi014Key
}

func (c *stubQkdClient) FetchAnyKey(context.Context) (application.Etsi014Key, error) {
	return c.key, nil
}

func (c *stubQkdClient) FetchSpecificKey(_ context.Context, id uuid.UUID) (application.Etsi014Key, error) {
	if id != c.key.ID {
		return application.Etsi014Key{}, errors.New("unknown key id")
	}
	return c.key, nil
}

type stubOskHandler struct {
	keys chan keycrypto.Key
}

func newStubOskHandler() *stubOskHandler {
	return &stubOskHandler{keys: make(chan keycrypto.Key, 8)}
}

func (h *stubOskHandler) SetOsk(_ context.Context, key keycrypto.Key, _ application.SetOskReason) error {
	h.keys <- key
	return nil
}

func fillKey(b byte) keycrypto.Key {
	var k keycrypto.Key
	for i := range k {
		k[i] = b
	}
	return k
}

func TestProtocol_RoundTrip(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	params := keycrypto.ProtocolParameters{
		PSK:          fillKey(0xAA),
		LocalPeerID:  fillKey(0x01),
		RemotePeerID: fillKey(0x02),
	}

	qkdKey := application.Etsi014Key{ID: uuid.New(), Key: fillKey(0x55)}
	qkd := &stubQkdClient{key: qkdKey}

	serverOsk := newStubOskHandler()
	clientOsk := newStubOskHandler()

	server := &ServerProtocol{
		Params:        params,
		Stream:        serverConn,
		QkdClient:     qkd,
		OskHandler:    serverOsk,
		Logger:        stubLogger{},
		RekeyInterval: time.Hour,
	}
	client := &ClientProtocol{
		Params:     params,
		Stream:     clientConn,
		QkdClient:  qkd,
		OskHandler: clientOsk,
		Logger:     stubLogger{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go server.Run(ctx)
	go client.Run(ctx)

	var serverKey, clientKey keycrypto.Key
	select {
	case serverKey = <-serverOsk.keys:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for server-side OSK")
	}
	select {
	case clientKey = <-clientOsk.keys:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for client-side OSK")
	}

	if serverKey != clientKey {
		t.Fatalf("OSK mismatch between roles: server=%x client=%x", serverKey, clientKey)
	}
}

func TestClientProtocol_RejectsUnknownKeyID(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	params := keycrypto.ProtocolParameters{
		PSK:          fillKey(0xAA),
		LocalPeerID:  fillKey(0x01),
		RemotePeerID: fillKey(0x02),
	}

	req, err := keycrypto.NewRekeyReq([16]byte{0xFF})
	if err != nil {
		t.Fatalf("NewRekeyReq: %v", err)
	}

	qkd := &stubQkdClient{key: application.Etsi014Key{ID: uuid.New(), Key: fillKey(0x11)}}
	clientOsk := newStubOskHandler()
	client := &ClientProtocol{
		Params:     params,
		Stream:     clientConn,
		QkdClient:  qkd,
		OskHandler: clientOsk,
		Logger:     stubLogger{},
	}

	errCh := make(chan error, 1)
	go func() { errCh <- client.Run(context.Background()) }()

	buf := req.MarshalBinary()
	if _, err := serverConn.Write(buf[:]); err != nil {
		t.Fatalf("write rekey request: %v", err)
	}

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error for an unresolvable key id")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ClientProtocol to fail")
	}
}
