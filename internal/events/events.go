package events

import (
	"encoding/json"
	"time"
)

// Event types published by the engine.
const (
	TypeSearchStarted   = "search_started"
	TypeSearchPage      = "search_page"
	TypeSearchDone      = "search_done"
	TypeSearchFailed    = "search_failed"
	TypeSearchCancelled = "search_cancelled"
	TypeEnrichProgress  = "enrich_progress"
	TypeEnrichDone      = "enrich_done"
	TypePing            = "ping"
)

const eventVersion = 1

type Event struct {
	Type      string          `json:"type"`
	Version   int             `json:"v"`
	At        time.Time       `json:"at"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// New builds a versioned event envelope. data is marshalled immediately so
// a publisher may mutate its payload after the call.
func New(reqID, typ string, data any) Event {
	var raw json.RawMessage
	if data != nil {
		b, _ := json.Marshal(data)
		raw = b
	}
	return Event{
		Type:      typ,
		Version:   eventVersion,
		At:        time.Now().UTC(),
		RequestID: reqID,
		Data:      raw,
	}
}

// Encode renders the event as one JSON line for the SSE wire.
func (e Event) Encode() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Emit publishes a typed event without a request id. The orchestrators use
// this for progress streaming outside any single HTTP request.
func (h *Hub) Emit(typ string, data any) {
	h.Publish(New("", typ, data))
}
