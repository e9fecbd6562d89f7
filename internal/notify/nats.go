package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"
)

// NATSNotifier publishes events over NATS subjects so that multiple API
// instances can fan out to whichever one holds the client's socket.
// Subjects: pos.user.<id> and pos.role.<role>.
type NATSNotifier struct {
	conn *nats.Conn
}

func NewNATSNotifier(url string) (*NATSNotifier, error) {
	conn, err := nats.Connect(url, nats.Name("barpos-api"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &NATSNotifier{conn: conn}, nil
}

func (n *NATSNotifier) NotifyUser(ctx context.Context, userID string, event Event) {
	n.publish("pos.user."+userID, event)
}

func (n *NATSNotifier) NotifyRole(ctx context.Context, role string, event Event) {
	n.publish("pos.role."+role, event)
}

func (n *NATSNotifier) publish(subject string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ERROR: marshal event for %s: %v", subject, err)
		return
	}
	if err := n.conn.Publish(subject, data); err != nil {
		log.Printf("ERROR: publish to %s: %v", subject, err)
	}
}

func (n *NATSNotifier) Close() {
	n.conn.Close()
}
