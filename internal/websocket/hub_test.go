package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID, householdID uuid.UUID) *Client {
	return &Client{
		hub:         hub,
		send:        make(chan []byte, sendBufferSize),
		userID:      userID,
		householdID: householdID,
	}
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data := <-c.send:
		var got Message
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal message: %v", err)
		}
		return got
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func assertQuiet(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	default:
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := testHub()
	house := uuid.New()

	c1 := mockClient(hub, uuid.New(), house)
	c2 := mockClient(hub, uuid.New(), house)
	hub.Register(c1)
	hub.Register(c2)
	if got := hub.ClientCount(); got != 2 {
		t.Errorf("ClientCount() = %d, want 2", got)
	}
	if got := hub.CountIn(house); got != 2 {
		t.Errorf("CountIn() = %d, want 2", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 1 {
		t.Errorf("ClientCount() = %d, want 1", got)
	}

	hub.Unregister(c2)
	hub.Unregister(c2)
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d after double unregister, want 0", got)
	}
}

func TestBroadcastToIsScoped(t *testing.T) {
	hub := testHub()
	houseA, houseB := uuid.New(), uuid.New()
	user := uuid.New()

	inA := mockClient(hub, uuid.New(), houseA)
	inB := mockClient(hub, uuid.New(), houseB)
	hub.Register(inA)
	hub.Register(inB)

	hub.BroadcastTo(houseA, NewMessage("household_member", "joined", user, nil))

	got := receive(t, inA)
	if got.Type != "household_member_joined" {
		t.Errorf("Type = %q, want %q", got.Type, "household_member_joined")
	}
	if got.ID != user.String() {
		t.Errorf("ID = %q, want %q", got.ID, user.String())
	}
	assertQuiet(t, inB)
}

func TestRelocate(t *testing.T) {
	hub := testHub()
	from, to := uuid.New(), uuid.New()
	user := uuid.New()

	phone := mockClient(hub, user, from)
	laptop := mockClient(hub, user, from)
	other := mockClient(hub, uuid.New(), from)
	for _, c := range []*Client{phone, laptop, other} {
		hub.Register(c)
	}

	hub.Relocate(user, to)
	if got := hub.CountIn(to); got != 2 {
		t.Errorf("CountIn(to) = %d, want 2", got)
	}
	if got := hub.CountIn(from); got != 1 {
		t.Errorf("CountIn(from) = %d, want 1", got)
	}

	hub.BroadcastTo(from, NewMessage("household_member", "left", user, nil))
	assertQuiet(t, phone)
	assertQuiet(t, laptop)
	if got := receive(t, other).Type; got != "household_member_left" {
		t.Errorf("Type = %q, want %q", got, "household_member_left")
	}
}

func TestBroadcastFullBuffer(t *testing.T) {
	hub := testHub()
	house := uuid.New()

	c := mockClient(hub, uuid.New(), house)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.BroadcastTo(house, NewMessage("test", "fill", uuid.New(), nil))
	}
	// Dropped, not blocked.
	hub.BroadcastTo(house, NewMessage("test", "dropped", uuid.New(), nil))

	if len(c.send) != sendBufferSize {
		t.Errorf("buffered = %d, want %d", len(c.send), sendBufferSize)
	}
	hub.Unregister(c)
}

func TestNewMessageNilID(t *testing.T) {
	msg := NewMessage("household", "converted", uuid.Nil, map[string]any{"name": "Flat"})
	if msg.Type != "household_converted" {
		t.Errorf("Type = %q, want %q", msg.Type, "household_converted")
	}
	if msg.ID != "" {
		t.Errorf("ID = %q, want empty", msg.ID)
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), `"id"`) {
		t.Errorf("encoded message carries an id: %s", data)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := testHub()
	house := uuid.New()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := uuid.New()
			c := mockClient(hub, user, house)
			hub.Register(c)
			hub.BroadcastTo(house, NewMessage("test", "concurrent", user, nil))
			hub.Relocate(user, uuid.New())
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}()
	}

	wg.Wait()
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("ClientCount() = %d, want 0", got)
	}
}
