package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sqlspec/sqlspec"
)

// envelope is the NOTIFY wire format: event_id, payload,
// metadata, published_at. The hybrid backend's wakeup NOTIFY carries only
// EventID (Payload/Metadata omitted), matching "may contain only
// { event_id: string }".
type envelope struct {
	EventID     string         `json:"event_id"`
	Payload     map[string]any `json:"payload,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	PublishedAt string         `json:"published_at,omitempty"`
}

func newEventID() string {
	return uuid.New().String()
}

func encodeEnvelope(eventID string, payload, metadata map[string]any, publishedAt time.Time) ([]byte, error) {
	env := envelope{
		EventID:  eventID,
		Payload:  payload,
		Metadata: metadata,
	}

	// The hybrid wakeup envelope carries only event_id; a zero
	// publishedAt stays omitted rather than rendering year 1.
	if !publishedAt.IsZero() {
		env.PublishedAt = publishedAt.UTC().Format(time.RFC3339Nano)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding notify envelope: %v", sqlspec.ErrEventChannel, err)
	}

	return data, nil
}

func decodeEnvelope(data []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: decoding notify envelope: %v", sqlspec.ErrEventChannel, err)
	}

	return env, nil
}

func publishedAtOf(env envelope) time.Time {
	if env.PublishedAt == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, env.PublishedAt)
	if err != nil {
		return time.Time{}
	}

	return t
}

// errPayloadTooLarge reports that native publish fails
// PayloadTooLarge iff the JSON envelope exceeds the configured byte
// bound.
func errPayloadTooLarge(size, max int) error {
	return sqlspec.NewError(sqlspec.KindPayloadTooLarge, sqlspec.ErrPayloadTooLarge, "", "",
		fmt.Sprintf("notify envelope is %d bytes, exceeds the configured bound of %d", size, max))
}
