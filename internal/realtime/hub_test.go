package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/ayush-codes-ar/SRM-SWAP/internal/chat"
)

func testHub() *Hub {
	return NewHub(slog.Default())
}

func testClient(h *Hub, rooms ...string) *Client {
	c := &Client{
		hub:   h,
		send:  make(chan []byte, 256),
		rooms: make(map[string]bool),
	}
	for _, room := range rooms {
		c.rooms[room] = true
	}
	return c
}

// ---------------------------------------------------------------------------
// Hub lifecycle tests
// ---------------------------------------------------------------------------

func TestHub_Stats_Initial(t *testing.T) {
	h := testHub()

	stats := h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients, got %v", stats["connectedClients"])
	}
	if stats["totalFrames"].(int64) != 0 {
		t.Errorf("Expected 0 total frames, got %v", stats["totalFrames"])
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := testClient(h, "trd_1")

	h.register <- client
	time.Sleep(50 * time.Millisecond)

	stats := h.Stats()
	if stats["connectedClients"].(int) != 1 {
		t.Errorf("Expected 1 connected client, got %v", stats["connectedClients"])
	}
	if stats["activeRooms"].(int) != 1 {
		t.Errorf("Expected 1 active room, got %v", stats["activeRooms"])
	}
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak 1, got %v", stats["peakClients"])
	}

	h.unregister <- client
	time.Sleep(50 * time.Millisecond)

	stats = h.Stats()
	if stats["connectedClients"].(int) != 0 {
		t.Errorf("Expected 0 connected clients after unregister, got %v", stats["connectedClients"])
	}
	// Peak should still be 1
	if stats["peakClients"].(int64) != 1 {
		t.Errorf("Expected peak still 1, got %v", stats["peakClients"])
	}
}

func TestHub_RoomScopedBroadcast(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	member := testClient(h, "trd_1")
	outsider := testClient(h, "trd_other")

	h.register <- member
	h.register <- outsider
	time.Sleep(50 * time.Millisecond)

	h.MessageReceived("trd_1", &chat.Message{
		ID:      "msg_1",
		TradeID: "trd_1",
		Content: "hello",
	})

	select {
	case raw := <-member.send:
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unparseable frame: %v", err)
		}
		if frame.Type != FrameReceiveMessage || frame.TradeID != "trd_1" {
			t.Errorf("unexpected frame %s/%s", frame.Type, frame.TradeID)
		}
		var m chat.Message
		if err := json.Unmarshal(frame.Data, &m); err != nil {
			t.Fatalf("unparseable message payload: %v", err)
		}
		if m.ID != "msg_1" {
			t.Errorf("expected persisted message echoed, got %s", m.ID)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for room broadcast")
	}

	select {
	case <-outsider.send:
		t.Error("Client outside the room should not receive the frame")
	default:
	}
}

func TestHub_TradeUpdatedReachesRoom(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := testClient(h, "trd_1")
	h.register <- client
	time.Sleep(50 * time.Millisecond)

	h.TradeUpdated("trd_1", map[string]interface{}{"id": "trd_1", "status": "ACCEPTED"})

	select {
	case raw := <-client.send:
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("unparseable frame: %v", err)
		}
		if frame.Type != FrameTradeStatusUpdated {
			t.Errorf("expected trade_status_updated, got %s", frame.Type)
		}
	case <-time.After(time.Second):
		t.Error("Timeout waiting for status broadcast")
	}
}

func TestHub_FramesDeliveredInOrder(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	time.Sleep(50 * time.Millisecond)

	client := testClient(h, "trd_1")
	h.register <- client
	time.Sleep(50 * time.Millisecond)

	for _, content := range []string{"one", "two", "three"} {
		h.MessageReceived("trd_1", &chat.Message{TradeID: "trd_1", Content: content})
	}

	for _, want := range []string{"one", "two", "three"} {
		select {
		case raw := <-client.send:
			var frame Frame
			_ = json.Unmarshal(raw, &frame)
			var m chat.Message
			_ = json.Unmarshal(frame.Data, &m)
			if m.Content != want {
				t.Errorf("out of order: got %q, want %q", m.Content, want)
			}
		case <-time.After(time.Second):
			t.Fatal("Timeout waiting for ordered frames")
		}
	}
}

func TestHub_ContextCancellation(t *testing.T) {
	h := testHub()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
		// Hub stopped
	case <-time.After(2 * time.Second):
		t.Error("Hub did not stop after context cancellation")
	}
}
