package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// TransactionSavedEvent carries only the transaction id; the worker loads the
// full row from the database so the payload can never go stale.
type TransactionSavedEvent struct {
	EventID       string    `json:"event_id"`
	TransactionID int64     `json:"transaction_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionSavedEvent(transactionID int64) *TransactionSavedEvent {
	return &TransactionSavedEvent{
		EventID:       uuid.NewString(),
		TransactionID: transactionID,
		Timestamp:     time.Now(),
	}
}

func (m *TransactionSavedEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionSavedEventFromJSON(data []byte) (*TransactionSavedEvent, error) {
	var msg TransactionSavedEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
