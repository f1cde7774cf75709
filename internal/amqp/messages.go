package amqp

import (
	"encoding/json"
	"time"
)

// Mail job kinds understood by the mailer worker.
const (
	MailVerify        = "verify"
	MailPasswordReset = "password_reset"
)

// MailJobMessage asks the mailer worker to send one email. It carries the
// recipient and token directly so the worker never needs a database handle.
type MailJobMessage struct {
	Kind      string    `json:"kind"`
	To        string    `json:"to"`
	Token     string    `json:"token"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMailJobMessage builds a mail job stamped with the current time.
func NewMailJobMessage(kind, to, token string) *MailJobMessage {
	return &MailJobMessage{
		Kind:      kind,
		To:        to,
		Token:     token,
		Timestamp: time.Now(),
	}
}

func (m *MailJobMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func MailJobMessageFromJSON(data []byte) (*MailJobMessage, error) {
	var msg MailJobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
