package tcp

import (
	"context"
	"fmt"
	"time"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
	"github.com/aparcar/daisyway/infrastructure/net/server"
)

// Role selects which side of the rekey relationship a Participant plays.
type Role int

const (
	// RoleClient dials Endpoint and accepts rekey requests.
	RoleClient Role = iota
	// RoleServer listens on ListenAddr and initiates rekey rounds.
	RoleServer
)

// Participant wraps either a dialing Client or a listening Server behind
// one Run method, selected by Role.
type Participant struct {
	Role          Role
	Endpoint      string
	ListenAddr    string
	Params        keycrypto.ProtocolParameters
	QkdClient     application.QkdClient
	OskHandler    application.OskHandler
	Logger        application.Logger
	RekeyInterval time.Duration
}

// Run dispatches to the Client or Server event loop and blocks until ctx
// is cancelled.
func (p *Participant) Run(ctx context.Context) error {
	switch p.Role {
	case RoleClient:
		client := &Client{
			Endpoint:   p.Endpoint,
			Params:     p.Params,
			QkdClient:  p.QkdClient,
			OskHandler: p.OskHandler,
			Logger:     p.Logger,
		}
		return client.Run(ctx)
	case RoleServer:
		srv := &server.Server{
			ListenAddr:    p.ListenAddr,
			Params:        p.Params,
			QkdClient:     p.QkdClient,
			OskHandler:    p.OskHandler,
			Logger:        p.Logger,
			RekeyInterval: p.RekeyInterval,
		}
		return srv.Run(ctx)
	default:
		return fmt.Errorf("tcp: unknown participant role %d", p.Role)
	}
}
