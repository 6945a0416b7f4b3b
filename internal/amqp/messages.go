package amqp

import (
	"encoding/json"
	"time"
)

const (
	KindBackup = "backup"
	KindExport = "export"
)

// DeliveryMessage carries a finished payload to the delivery worker. The
// content is already encrypted (backups) or plain CSV (exports); the worker
// only forwards it.
type DeliveryMessage struct {
	Kind      string    `json:"kind"`
	Recipient string    `json:"recipient"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDeliveryMessage(kind, recipient, content string) *DeliveryMessage {
	return &DeliveryMessage{
		Kind:      kind,
		Recipient: recipient,
		Content:   content,
		Timestamp: time.Now(),
	}
}

func (m *DeliveryMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func DeliveryMessageFromJSON(data []byte) (*DeliveryMessage, error) {
	var msg DeliveryMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
