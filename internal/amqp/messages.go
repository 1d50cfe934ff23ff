package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Message actions.
const (
	ActionSync   = "sync"
	ActionDelete = "delete"
)

// SyncMessage asks the worker to mirror one row. It carries only the row
// identity; the worker loads the current values from the database.
type SyncMessage struct {
	Recurso   string    `json:"recurso"`
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

func NewSyncMessage(recurso string, id, version int64) *SyncMessage {
	return &SyncMessage{Recurso: recurso, ID: id, Version: version, Action: ActionSync, Timestamp: time.Now()}
}

func NewDeleteMessage(recurso string, id int64) *SyncMessage {
	return &SyncMessage{Recurso: recurso, ID: id, Action: ActionDelete, Timestamp: time.Now()}
}

func (m *SyncMessage) Validate() error {
	if m.Recurso == "" {
		return errors.New("message without recurso")
	}
	if m.ID <= 0 {
		return errors.New("message without id")
	}
	if m.Action != ActionSync && m.Action != ActionDelete {
		return errors.New("unknown message action " + m.Action)
	}
	return nil
}

func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON decodes and validates a message body.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Action == "" {
		msg.Action = ActionSync
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
