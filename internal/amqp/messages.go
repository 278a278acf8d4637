package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"fintrack/internal/core"
)

const (
	EventCreated     EventType = "created"
	EventUpdated     EventType = "updated"
	EventDeleted     EventType = "deleted"
	EventTransferred EventType = "transferred"
)

type EventType string

// EntryEvent announces a committed entry change. Consumers fetch the entry
// itself from the database; only deletions need the payload fields.
type EntryEvent struct {
	Type      EventType `json:"type"`
	EntryID   string    `json:"entryId"`
	Owner     string    `json:"owner"`
	Kind      core.Kind `json:"kind"`
	Date      string    `json:"date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewEntryEvent(typ EventType, e core.Entry) *EntryEvent {
	return &EntryEvent{
		Type:      typ,
		EntryID:   e.ID,
		Owner:     e.Owner,
		Kind:      e.Kind,
		Date:      e.Date.String(),
		Timestamp: time.Now().UTC(),
	}
}

func (m *EntryEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryEventFromJSON decodes a message body and rejects events without an entry id.
func EntryEventFromJSON(data []byte) (*EntryEvent, error) {
	var msg EntryEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.EntryID == "" {
		return nil, errors.New("entry event without entryId")
	}
	return &msg, nil
}
