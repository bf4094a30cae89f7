package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names the kind of change an ExpenseEvent reports.
type EventType string

const (
	EventCreated EventType = "expense.created"
	EventUpdated EventType = "expense.updated"
	EventDeleted EventType = "expense.deleted"
)

// ExpenseEvent is a lightweight change notification. Consumers reload what
// they need from the database; the event only says what changed.
type ExpenseEvent struct {
	EventID      string    `json:"event_id"`
	Type         EventType `json:"type"`
	ID           int64     `json:"id,omitempty"`
	Date         string    `json:"date"`
	Subcategory  string    `json:"subcategory"`
	RowsAffected int64     `json:"rows_affected"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewCreatedEvent reports a newly inserted record.
func NewCreatedEvent(id int64, date, subcategory string) *ExpenseEvent {
	return newEvent(EventCreated, id, date, subcategory, 1)
}

// NewUpdatedEvent reports an edit that touched rows records.
func NewUpdatedEvent(date, subcategory string, rows int64) *ExpenseEvent {
	return newEvent(EventUpdated, 0, date, subcategory, rows)
}

// NewDeletedEvent reports a delete that removed rows records.
func NewDeletedEvent(date, subcategory string, rows int64) *ExpenseEvent {
	return newEvent(EventDeleted, 0, date, subcategory, rows)
}

func newEvent(t EventType, id int64, date, subcategory string, rows int64) *ExpenseEvent {
	return &ExpenseEvent{
		EventID:      uuid.NewString(),
		Type:         t,
		ID:           id,
		Date:         date,
		Subcategory:  subcategory,
		RowsAffected: rows,
		Timestamp:    time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON creates an event from JSON bytes
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case EventCreated, EventUpdated, EventDeleted:
	default:
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	return &msg, nil
}
