package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// LedgerChangedMessage announces that a group's ledger moved to a new version.
// It carries no ledger data; consumers reload the group from storage.
type LedgerChangedMessage struct {
	GroupID   string    `json:"group_id"`
	Version   int64     `json:"version"`
	ExpenseID string    `json:"expense_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(groupID string, version int64, expenseID string) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		GroupID:   groupID,
		Version:   version,
		ExpenseID: expenseID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *LedgerChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerChangedMessageFromJSON(data []byte) (*LedgerChangedMessage, error) {
	var msg LedgerChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.GroupID == "" {
		return nil, fmt.Errorf("ledger changed message without group_id")
	}
	return &msg, nil
}
