package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SummaryMessage is the bus copy of a delivered cycle summary.
type SummaryMessage struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycle_id,omitempty"`
	Channel   string    `json:"channel"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSummaryMessage creates a message with a fresh id.
func NewSummaryMessage(cycleID, channel, text string, at time.Time) *SummaryMessage {
	return &SummaryMessage{
		ID:        uuid.NewString(),
		CycleID:   cycleID,
		Channel:   channel,
		Text:      text,
		Timestamp: at,
	}
}

// ToJSON converts the message to JSON bytes
func (m *SummaryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
