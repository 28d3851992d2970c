package server

import (
	"context"
	"testing"

	"github.com/aparcar/daisyway/application"
	"github.com/aparcar/daisyway/domain/keycrypto"
)

type testLogger struct{}

func (testLogger) Debugf(string, ...any) {}
func (testLogger) Infof(string, ...any)  {}
func (testLogger) Warnf(string, ...any)  {}
func (testLogger) Errorf(string, ...any) {}

type recordingOsk struct {
	keys []keycrypto.Key
}

func (r *recordingOsk) SetOsk(_ context.Context, key keycrypto.Key, _ application.SetOskReason) error {
	r.keys = append(r.keys, key)
	return nil
}

// newTestManager builds a ConnectionManager with no real listener, for
// exercising the event-handling logic directly.
func newTestManager(osk application.OskHandler) *ConnectionManager {
	return NewConnectionManager(nil, keycrypto.ProtocolParameters{}, nil, osk, testLogger{}, 0)
}

func budKey(id byte) (id2 ConnectionID, key keycrypto.Key) {
	var k keycrypto.Key
	k[0] = id
	return ConnectionID(id), k
}

func addBudding(m *ConnectionManager, id ConnectionID) (cancelled *bool) {
	cancelled = new(bool)
	m.registerBudding(id, func() { *cancelled = true })
	return
}

func TestConnectionManager_FirstOskFromBuddingBecomesActive(t *testing.T) {
	osk := &recordingOsk{}
	m := newTestManager(osk)

	id, key := budKey(1)
	addBudding(m, id)

	if err := m.onOsk(context.Background(), oskEvent{connectionID: id, key: key}); err != nil {
		t.Fatalf("onOsk: %v", err)
	}

	if m.activeID == nil || *m.activeID != id {
		t.Fatalf("expected connection #%d to become active", id)
	}
	if len(osk.keys) != 1 || osk.keys[0] != key {
		t.Fatalf("expected the real sink to receive the key")
	}
}

func TestConnectionManager_PromotionDropsOlderBuddingKeepsYounger(t *testing.T) {
	osk := &recordingOsk{}
	m := newTestManager(osk)

	olderCancelled := addBudding(m, 1)
	_, promotedKey := budKey(5)
	addBudding(m, 5)
	youngerCancelled := addBudding(m, 9)

	if err := m.onOsk(context.Background(), oskEvent{connectionID: 5, key: promotedKey}); err != nil {
		t.Fatalf("onOsk: %v", err)
	}

	if !*olderCancelled {
		t.Fatal("expected budding connection #1 (older than promoted #5) to be cancelled")
	}
	if *youngerCancelled {
		t.Fatal("expected budding connection #9 (younger than promoted #5) to remain")
	}
	if _, stillBudding := m.budding[9]; !stillBudding {
		t.Fatal("expected connection #9 to remain in the budding map")
	}
	if _, stillBudding := m.budding[1]; stillBudding {
		t.Fatal("expected connection #1 to be removed from the budding map")
	}
	if m.activeID == nil || *m.activeID != 5 {
		t.Fatal("expected connection #5 to become active")
	}
}

func TestConnectionManager_NewerConnectionSupersedesActive(t *testing.T) {
	osk := &recordingOsk{}
	m := newTestManager(osk)

	_, firstKey := budKey(1)
	addBudding(m, 1)
	if err := m.onOsk(context.Background(), oskEvent{connectionID: 1, key: firstKey}); err != nil {
		t.Fatalf("onOsk: %v", err)
	}

	activeCancelled := false
	m.activeCancel = func() { activeCancelled = true }

	_, secondKey := budKey(2)
	addBudding(m, 2)
	if err := m.onOsk(context.Background(), oskEvent{connectionID: 2, key: secondKey}); err != nil {
		t.Fatalf("onOsk: %v", err)
	}

	if !activeCancelled {
		t.Fatal("expected the previously active connection to be cancelled when superseded")
	}
	if m.activeID == nil || *m.activeID != 2 {
		t.Fatal("expected connection #2 to become the new active connection")
	}
	if len(osk.keys) != 2 || osk.keys[1] != secondKey {
		t.Fatal("expected the real sink to receive the superseding key")
	}
}

func TestConnectionManager_OskFromStaleConnectionIsDiscarded(t *testing.T) {
	osk := &recordingOsk{}
	m := newTestManager(osk)

	_, activeKey := budKey(5)
	addBudding(m, 5)
	if err := m.onOsk(context.Background(), oskEvent{connectionID: 5, key: activeKey}); err != nil {
		t.Fatalf("onOsk: %v", err)
	}

	_, staleKey := budKey(3)
	if err := m.onOsk(context.Background(), oskEvent{connectionID: 3, key: staleKey}); err != nil {
		t.Fatalf("onOsk: %v", err)
	}

	if len(osk.keys) != 1 {
		t.Fatalf("expected the stale event to be discarded, sink received %d keys", len(osk.keys))
	}
	if m.activeID == nil || *m.activeID != 5 {
		t.Fatal("expected connection #5 to remain active")
	}
}

func TestConnectionManager_ExitOfActiveClearsActive(t *testing.T) {
	osk := &recordingOsk{}
	m := newTestManager(osk)

	_, key := budKey(7)
	addBudding(m, 7)
	if err := m.onOsk(context.Background(), oskEvent{connectionID: 7, key: key}); err != nil {
		t.Fatalf("onOsk: %v", err)
	}

	m.onExit(exitEvent{connectionID: 7})

	if m.activeID != nil {
		t.Fatal("expected active connection to be cleared on exit")
	}
}

func TestConnectionManager_ExitOfBuddingRemovesIt(t *testing.T) {
	osk := &recordingOsk{}
	m := newTestManager(osk)
	addBudding(m, 4)

	m.onExit(exitEvent{connectionID: 4})

	if _, ok := m.budding[4]; ok {
		t.Fatal("expected budding connection to be removed on exit")
	}
	for _, id := range m.buddingOrder {
		if id == 4 {
			t.Fatal("expected connection id to be removed from buddingOrder")
		}
	}
}

func TestConnectionManager_BuddingBoundEvictsOldest(t *testing.T) {
	osk := &recordingOsk{}
	m := newTestManager(osk)

	var oldestCancelled bool
	for i := 0; i < MaxBuddingConnections; i++ {
		id := m.allocateConnectionID()
		if i == 0 {
			m.registerBudding(id, func() { oldestCancelled = true })
		} else {
			addBudding(m, id)
		}
	}
	if len(m.budding) != MaxBuddingConnections {
		t.Fatalf("budding connections = %d, want %d", len(m.budding), MaxBuddingConnections)
	}

	oldestID := m.buddingOrder[0]
	newID := m.allocateConnectionID()
	m.pruneOldestBuddingIfNeeded(newID)
	m.registerBudding(newID, func() {})

	if len(m.budding) != MaxBuddingConnections {
		t.Fatalf("budding connections after eviction = %d, want %d", len(m.budding), MaxBuddingConnections)
	}
	if !oldestCancelled {
		t.Fatal("expected the oldest budding connection to be cancelled when the bound is exceeded")
	}
	if _, stillPresent := m.budding[oldestID]; stillPresent {
		t.Fatal("expected the oldest budding connection to be evicted")
	}
}
