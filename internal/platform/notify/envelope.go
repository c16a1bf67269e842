// Package notify delivers appointment change events to systems outside the
// process: a signed HTTP webhook and a Redis pub/sub channel.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope is the published form of a change event.
type Envelope struct {
	Event        string          `json:"event"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId"`
	OccurredAt   time.Time       `json:"occurredAt"`
	Data         json.RawMessage `json:"data"`
}

// Publisher hands an envelope to a transport.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}
