package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is written into every new envelope. Consumers reject
// versions newer than the one they were built against.
const SchemaVersion = 1

var errEmptyData = errors.New("envelope has no data")

// ActorRef identifies who produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// Envelope is the JSON stored in outbox_events.payload. EventID equals the
// outbox row id so sinks and the DLQ share one identifier.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload and checks it carries data this
// build understands.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Version < 1 || env.Version > SchemaVersion {
		return Envelope{}, fmt.Errorf("unsupported envelope version %d", env.Version)
	}
	if data := bytes.TrimSpace(env.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Envelope{}, errEmptyData
	}
	return env, nil
}
