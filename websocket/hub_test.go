package websocket

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
)

type fakeConn struct {
	mu         sync.Mutex
	events     []interface{}
	failWrites bool
	closed     bool
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return errors.New("write failed")
	}
	c.events = append(c.events, v)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) eventCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func TestBindMakesUserReachable(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()

	if hub.IsReachable(userID) {
		t.Fatal("user must not be reachable before bind")
	}

	conn := &fakeConn{}
	hub.Bind(userID, conn)
	if !hub.IsReachable(userID) {
		t.Error("user must be reachable after bind")
	}

	hub.Unbind(userID, conn)
	if hub.IsReachable(userID) {
		t.Error("user must be unreachable after last handle is unbound")
	}
}

func TestMultipleHandles(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	first := &fakeConn{}
	second := &fakeConn{}

	hub.Bind(userID, first)
	hub.Bind(userID, second)

	if routed := hub.RouteTo(userID, "event"); routed != 2 {
		t.Errorf("expected event routed to 2 handles, got %d", routed)
	}

	hub.Unbind(userID, first)
	if !hub.IsReachable(userID) {
		t.Error("user must stay reachable while a handle remains")
	}
	if routed := hub.RouteTo(userID, "event"); routed != 1 {
		t.Errorf("expected event routed to 1 remaining handle, got %d", routed)
	}
	if first.eventCount() != 1 {
		t.Errorf("unbound handle must stop receiving events, got %d", first.eventCount())
	}
}

func TestUnbindStaleHandleKeepsNewerOne(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	stale := &fakeConn{}
	current := &fakeConn{}

	hub.Bind(userID, stale)
	hub.Bind(userID, current)
	hub.Unbind(userID, stale)
	// A second unbind of the same stale handle must not evict the newer one.
	hub.Unbind(userID, stale)

	if !hub.IsReachable(userID) {
		t.Error("current handle was evicted by a stale unbind")
	}
}

func TestRouteToUnknownUserIsNoop(t *testing.T) {
	hub := NewHub()
	if routed := hub.RouteTo(uuid.New(), "event"); routed != 0 {
		t.Errorf("expected 0 routed handles for unknown user, got %d", routed)
	}
}

func TestRouteToEvictsFailedHandle(t *testing.T) {
	hub := NewHub()
	userID := uuid.New()
	broken := &fakeConn{failWrites: true}
	healthy := &fakeConn{}

	hub.Bind(userID, broken)
	hub.Bind(userID, healthy)

	if routed := hub.RouteTo(userID, "event"); routed != 1 {
		t.Errorf("expected 1 successful route, got %d", routed)
	}
	if !broken.closed {
		t.Error("failed handle must be closed")
	}

	// The broken handle is gone; only the healthy one remains bound.
	if routed := hub.RouteTo(userID, "event"); routed != 1 {
		t.Errorf("expected 1 route after eviction, got %d", routed)
	}
	if healthy.eventCount() != 2 {
		t.Errorf("healthy handle should have 2 events, got %d", healthy.eventCount())
	}
}

func TestConcurrentBindUnbind(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			conn := &fakeConn{}
			hub.Bind(userID, conn)
			hub.RouteTo(userID, "event")
			hub.Unbind(userID, conn)
		}()
	}
	wg.Wait()
}
