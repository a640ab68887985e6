package amqp

import (
	"encoding/json"
	"time"
)

// LedgerChangedMessage announces that a user's ledger was mutated through
// one BFF instance. It carries no ledger data: receivers re-fetch.
type LedgerChangedMessage struct {
	UserID    string    `json:"userId"`
	Instance  string    `json:"instance"`
	Token     uint64    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerChangedMessage(userID, instance string, token uint64) *LedgerChangedMessage {
	return &LedgerChangedMessage{
		UserID:    userID,
		Instance:  instance,
		Token:     token,
		Timestamp: time.Now(),
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
	return &msg, nil
}
