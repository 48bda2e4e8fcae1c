package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubDeliversTypedEvents(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Emit(TypeSearchDone, map[string]any{"total": 7})

	select {
	case evt := <-ch:
		if evt.Type != TypeSearchDone {
			t.Fatalf("type = %q", evt.Type)
		}
		if evt.Version != eventVersion {
			t.Fatalf("version = %d", evt.Version)
		}
		var data struct {
			Total int `json:"total"`
		}
		if err := json.Unmarshal(evt.Data, &data); err != nil {
			t.Fatal(err)
		}
		if data.Total != 7 {
			t.Fatalf("total = %d", data.Total)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestHubDropsWhenSubscriberFull(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	// Well past the subscriber buffer; Publish must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			h.Emit(TypePing, nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestHubUnsubscribeClosesChannel(t *testing.T) {
	h := NewHub()
	ch := h.Subscribe()
	h.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	// Publishing after unsubscribe must not panic on the closed channel.
	h.Emit(TypePing, nil)
}

func TestEventEncodeRoundTrips(t *testing.T) {
	evt := New("req-1", TypeSearchPage, map[string]int{"offset": 2})
	var decoded Event
	if err := json.Unmarshal([]byte(evt.Encode()), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != TypeSearchPage || decoded.RequestID != "req-1" {
		t.Fatalf("decoded = %+v", decoded)
	}
}
