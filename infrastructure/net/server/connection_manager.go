package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

// MaxBuddingConnections bounds how many not-yet-active connections the
// manager tracks at once. The oldest is pruned to make room for a new one.
const MaxBuddingConnections = 2000

type buddingEntry struct {
	cancel context.CancelFunc
}

// ConnectionManager accepts connections from a net.Listener, running one
// ServerProtocol per connection, and arbitrates which connection's output
// key reaches the real OskHandler: the first connection to complete a
// rekey round becomes "active"; any connection older than it is cancelled,
// any connection younger is left budding in case it becomes active later.
type ConnectionManager struct {
	listener   net.Listener
	params     keycrypto.ProtocolParameters
	qkdClient  application.QkdClient
	oskHandler application.OskHandler
	logger     application.Logger

	rekeyInterval time.Duration
	connHandler   *fanoutConnectionHandler

	notify chan connectionHandlerEvent

	nextConnectionID ConnectionID
	activeID         *ConnectionID
	activeCancel     context.CancelFunc
	budding          map[ConnectionID]buddingEntry
	buddingOrder     []ConnectionID
}

// NewConnectionManager wires a ConnectionManager around an already-bound
// listener.
func NewConnectionManager(
	listener net.Listener,
	params keycrypto.ProtocolParameters,
	qkdClient application.QkdClient,
	oskHandler application.OskHandler,
	logger application.Logger,
	rekeyInterval time.Duration,
) *ConnectionManager {
	notify := make(chan connectionHandlerEvent, 16)
	return &ConnectionManager{
		listener:      listener,
		params:        params,
		qkdClient:     qkdClient,
		oskHandler:    oskHandler,
		logger:        logger,
		rekeyInterval: rekeyInterval,
		connHandler: &fanoutConnectionHandler{
			params:        params,
			qkdClient:     qkdClient,
			logger:        logger,
			rekeyInterval: rekeyInterval,
			notify:        notify,
		},
		notify:  notify,
		budding: make(map[ConnectionID]buddingEntry),
	}
}

// Run accepts connections and processes events until ctx is cancelled or
// the listener errs.
func (m *ConnectionManager) Run(ctx context.Context) error {
	acceptCh := make(chan acceptEvent)
	acceptErrCh := make(chan error, 1)

	go func() {
		for {
			conn, err := m.listener.Accept()
			if err != nil {
				acceptErrCh <- err
				return
			}
			select {
			case acceptCh <- acceptEvent{conn: conn, addr: conn.RemoteAddr()}:
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	}()

	defer m.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-acceptErrCh:
			return fmt.Errorf("server: listener accept failed: %w", err)
		case ev := <-acceptCh:
			m.onAccept(ctx, ev)
		case ev := <-m.notify:
			if err := m.onEvent(ctx, ev); err != nil {
				return err
			}
		}
	}
}

func (m *ConnectionManager) shutdown() {
	if m.activeCancel != nil {
		m.activeCancel()
	}
	for _, entry := range m.budding {
		entry.cancel()
	}
}

func (m *ConnectionManager) onAccept(ctx context.Context, ev acceptEvent) {
	connectionID := m.allocateConnectionID()
	m.logger.Infof("accepted connection #%d from %s", connectionID, ev.addr)

	m.pruneOldestBuddingIfNeeded(connectionID)

	cancel := m.connHandler.spawn(ctx, connectionID, ev.conn)
	m.registerBudding(connectionID, cancel)
}

// pruneOldestBuddingIfNeeded evicts the oldest budding connection once the
// bound is reached, making room for the connection about to be registered.
func (m *ConnectionManager) pruneOldestBuddingIfNeeded(newConnectionID ConnectionID) {
	if len(m.budding) < MaxBuddingConnections {
		return
	}
	oldest := m.buddingOrder[0]
	m.buddingOrder = m.buddingOrder[1:]
	if entry, ok := m.budding[oldest]; ok {
		entry.cancel()
		delete(m.budding, oldest)
		m.logger.Infof("pruning oldest budding connection #%d to make space for new connection #%d", oldest, newConnectionID)
	}
}

func (m *ConnectionManager) registerBudding(connectionID ConnectionID, cancel context.CancelFunc) {
	m.budding[connectionID] = buddingEntry{cancel: cancel}
	m.buddingOrder = append(m.buddingOrder, connectionID)
}

func (m *ConnectionManager) onEvent(ctx context.Context, ev connectionHandlerEvent) error {
	switch {
	case ev.exit != nil:
		m.onExit(*ev.exit)
	case ev.osk != nil:
		return m.onOsk(ctx, *ev.osk)
	}
	return nil
}

func (m *ConnectionManager) onExit(ev exitEvent) {
	switch {
	case m.activeID != nil && *m.activeID == ev.connectionID:
		m.logger.Infof("the TCP connection currently used to negotiate keys (#%d) has exited", ev.connectionID)
		m.activeID = nil
		m.activeCancel = nil
	default:
		if _, ok := m.budding[ev.connectionID]; ok {
			delete(m.budding, ev.connectionID)
			m.removeFromBuddingOrder(ev.connectionID)
			m.logger.Debugf("budding connection #%d has exited", ev.connectionID)
		} else {
			m.logger.Warnf("received exit notification for non-existent connection #%d", ev.connectionID)
		}
	}
}

func (m *ConnectionManager) removeFromBuddingOrder(id ConnectionID) {
	for i, candidate := range m.buddingOrder {
		if candidate == id {
			m.buddingOrder = append(m.buddingOrder[:i], m.buddingOrder[i+1:]...)
			return
		}
	}
}

func (m *ConnectionManager) onOsk(ctx context.Context, ev oskEvent) error {
	switch {
	case m.activeID == nil:
		return m.onOskFromBudding(ctx, ev)
	case ev.connectionID < *m.activeID:
		m.logger.Debugf("received OSK event from stale session #%d; discarding", ev.connectionID)
		return nil
	case ev.connectionID == *m.activeID:
		m.logger.Debugf("receiving OSK from active connection #%d; forwarding", ev.connectionID)
		return m.oskHandler.SetOsk(ctx, ev.key, ev.reason)
	default:
		return m.onOskFromBudding(ctx, ev)
	}
}

// onOskFromBudding promotes a budding connection to active. The promoted
// id is removed first; every remaining budding id strictly less than it
// is then cancelled and dropped (those rounds lost the race), while every
// budding id greater than it is left untouched (still in the running).
func (m *ConnectionManager) onOskFromBudding(ctx context.Context, ev oskEvent) error {
	newActiveID := ev.connectionID

	entry, ok := m.budding[newActiveID]
	if !ok {
		m.logger.Warnf("received output key from non-existent connection #%d; ignoring", newActiveID)
		return nil
	}
	delete(m.budding, newActiveID)
	m.removeFromBuddingOrder(newActiveID)

	var kept []ConnectionID
	droppedCount := 0
	for _, id := range m.buddingOrder {
		if id < newActiveID {
			m.budding[id].cancel()
			delete(m.budding, id)
			droppedCount++
			continue
		}
		kept = append(kept, id)
	}
	m.buddingOrder = kept

	oldActive := "<none>"
	if m.activeID != nil {
		oldActive = fmt.Sprintf("#%d", *m.activeID)
	}
	m.logger.Debugf(
		"receiving OSK from budding connection #%d: promoting to active, replacing previously active connection %s while skipping over %d budding connections that never became active",
		newActiveID, oldActive, droppedCount,
	)

	if m.activeCancel != nil {
		m.activeCancel()
	}
	m.activeID = &newActiveID
	m.activeCancel = entry.cancel

	return m.oskHandler.SetOsk(ctx, ev.key, ev.reason)
}

func (m *ConnectionManager) allocateConnectionID() ConnectionID {
	id := m.nextConnectionID
	m.nextConnectionID++
	return id
}
