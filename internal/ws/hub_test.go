package ws

import (
	"testing"
	"time"
)

func newTestClient(h *Hub) *Client {
	return &Client{hub: h, send: make(chan []byte, 64)}
}

func receive(t *testing.T, c *Client) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	a := newTestClient(h)
	b := newTestClient(h)
	h.register <- a
	h.register <- b

	h.Broadcast([]byte(`{"status":"ONLINE"}`))

	for _, c := range []*Client{a, b} {
		if got := string(receive(t, c)); got != `{"status":"ONLINE"}` {
			t.Errorf("unexpected message: %s", got)
		}
	}
}

func TestNewClientReceivesLatestSnapshot(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	first := newTestClient(h)
	h.register <- first
	h.Broadcast([]byte(`{"status":"ONLINE"}`))
	receive(t, first)

	late := newTestClient(h)
	h.register <- late

	if got := string(receive(t, late)); got != `{"status":"ONLINE"}` {
		t.Errorf("late joiner did not get cached snapshot: %s", got)
	}
}

func TestUnregisterClosesSendChannel(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	c := newTestClient(h)
	h.register <- c
	h.unregister <- c

	select {
	case _, ok := <-c.send:
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
}
