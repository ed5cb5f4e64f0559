package messages

import "fmt"

// A Message is the payload exchanged over Kafka. CustomerID and Type discriminate messages for
// rate limiting and for grouping recent messages.
type Message struct {
	CustomerID string `json:"customer_id"`
	Type       string `json:"type"`
	Body       string `json:"body"`
}

// Key identifies the stream a message belongs to, "<customer_id>:<type>".
func (m Message) Key() string {
	return fmt.Sprintf("%s:%s", m.CustomerID, m.Type)
}

func (m Message) String() string {
	return fmt.Sprintf("%s %q", m.Key(), m.Body)
}
