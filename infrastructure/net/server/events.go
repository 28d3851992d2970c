// Package server implements the TCP listener side of a rekey relationship:
// ConnectionManager accepts any number of concurrent connections but lets
// only one at a time drive the live operational session key, superseding
// the previous one whenever a newer connection completes its first round.
package server

import (
	"net"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// ConnectionID identifies one accepted TCP connection for the lifetime of
// the process. IDs are assigned in acceptance order, so comparing them
// tells you which connection is newer.
type ConnectionID uint64

type acceptEvent struct {
	conn net.Conn
	addr net.Addr
}

type exitEvent struct {
	connectionID ConnectionID
}

type oskEvent struct {
	connectionID ConnectionID
	key          keycrypto.Key
	reason       application.SetOskReason
}

// connectionHandlerEvent is what a per-connection handler goroutine can
// report back to the manager.
type connectionHandlerEvent struct {
	exit *exitEvent
	osk  *oskEvent
}
