package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// acceptRateLimit bounds how many new TCP connections the listener will
// hand to the ConnectionManager per second, on top of MaxBuddingConnections'
// bound on connections held in memory at once.
const acceptRateLimit = 50

// Server binds a TCP listener and runs a ConnectionManager behind an
// accept-rate limiter.
type Server struct {
	ListenAddr    string
	Params        keycrypto.ProtocolParameters
	QkdClient     application.QkdClient
	OskHandler    application.OskHandler
	Logger        application.Logger
	RekeyInterval time.Duration
}

// Run binds the listener and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: failed to bind %s: %w", s.ListenAddr, err)
	}
	defer listener.Close()

	limiter := rate.NewLimiter(rate.Limit(acceptRateLimit), acceptRateLimit)
	rateLimited := &rateLimitedListener{Listener: listener, ctx: ctx, limiter: limiter}

	manager := NewConnectionManager(rateLimited, s.Params, s.QkdClient, s.OskHandler, s.Logger, s.RekeyInterval)
	return manager.Run(ctx)
}

// rateLimitedListener makes Accept wait on a token bucket before returning
// a connection, so a burst of dialers can't flood the connection manager
// faster than MaxBuddingConnections can absorb.
type rateLimitedListener struct {
	net.Listener
	ctx     context.Context
	limiter *rate.Limiter
}

func (l *rateLimitedListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	if err := l.limiter.Wait(l.ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
