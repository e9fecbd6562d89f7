package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/barpos/api/internal/enum"
	"github.com/barpos/api/internal/notify"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, userID uuid.UUID, roles ...string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		roles:  roles,
		send:   make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID, enum.RoleWaiter)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if !hub.userRooms[userID][client] {
		t.Fatal("client not registered in user room")
	}
	if !hub.roleRooms[enum.RoleWaiter][client] {
		t.Fatal("client not registered in role room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID, enum.RoleManager)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Rooms should be cleaned up when empty
	if hub.userRooms[userID] != nil {
		t.Fatal("user room not cleaned up after last client unregistered")
	}
	if hub.roleRooms[enum.RoleManager] != nil {
		t.Fatal("role room not cleaned up after last client unregistered")
	}
}

func TestNotifyUserTargetsOnlyThatUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	user1 := uuid.New()
	user2 := uuid.New()

	client1 := mockClient(hub, user1, enum.RoleWaiter)
	client2 := mockClient(hub, user2, enum.RoleWaiter)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	event := notify.Event{
		Type:    enum.EventVoidRequestResolved,
		Payload: map[string]string{"resolution": "APPROVED"},
	}
	hub.NotifyUser(context.Background(), user1.String(), event)

	select {
	case msg := <-client1.send:
		var received struct {
			Type    string            `json:"type"`
			Payload map[string]string `json:"payload"`
		}
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != enum.EventVoidRequestResolved {
			t.Errorf("expected type %q, got %q", enum.EventVoidRequestResolved, received.Type)
		}
		if received.Payload["resolution"] != "APPROVED" {
			t.Errorf("unexpected payload: %v", received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not have received another user's message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestNotifyRoleReachesAllHolders(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	manager1 := mockClient(hub, uuid.New(), enum.RoleManager)
	manager2 := mockClient(hub, uuid.New(), enum.RoleManager, enum.RoleDirector)
	waiter := mockClient(hub, uuid.New(), enum.RoleWaiter)

	hub.register <- manager1
	hub.register <- manager2
	hub.register <- waiter
	time.Sleep(10 * time.Millisecond)

	event := notify.Event{
		Type:    enum.EventVoidRequestCreated,
		Payload: map[string]string{"order_id": uuid.NewString()},
	}
	hub.NotifyRole(context.Background(), enum.RoleManager, event)

	for i, client := range []*Client{manager1, manager2} {
		select {
		case msg := <-client.send:
			var received struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("manager%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != enum.EventVoidRequestCreated {
				t.Errorf("manager%d: expected type %q, got %q", i+1, enum.EventVoidRequestCreated, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("manager%d did not receive message", i+1)
		}
	}

	select {
	case <-waiter.send:
		t.Fatal("waiter should not receive manager group messages")
	case <-time.After(50 * time.Millisecond):
		// Expected
	}
}

func TestNotifyUserWithNoConnections(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	connected := mockClient(hub, uuid.New(), enum.RoleWaiter)
	hub.register <- connected
	time.Sleep(10 * time.Millisecond)

	// Target a user with no open sockets. Delivery is best-effort so
	// this must be a silent no-op.
	hub.NotifyUser(context.Background(), uuid.NewString(), notify.Event{
		Type:    enum.EventTransferRequestCreated,
		Payload: map[string]string{"tab_id": uuid.NewString()},
	})

	select {
	case <-connected.send:
		t.Fatal("unrelated client should not receive the message")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestUnregisterLeavesOtherRoleMembers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	manager1 := mockClient(hub, uuid.New(), enum.RoleManager)
	manager2 := mockClient(hub, uuid.New(), enum.RoleManager)

	hub.register <- manager1
	hub.register <- manager2
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- manager1
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.roleRooms[enum.RoleManager]) != 1 {
		t.Fatalf("expected 1 manager connection, got %d", len(hub.roleRooms[enum.RoleManager]))
	}
	hub.mu.RUnlock()

	hub.NotifyRole(context.Background(), enum.RoleManager, notify.Event{
		Type:    enum.EventVoidRequestCreated,
		Payload: map[string]string{},
	})

	select {
	case <-manager2.send:
		// Expected
	case <-time.After(100 * time.Millisecond):
		t.Fatal("remaining manager did not receive message")
	}
}
