package transcriber

import (
	"encoding/json"
	"strings"
)

// StreamEventKind discriminates normalized server push-messages.
type StreamEventKind int

const (
	EventIgnore StreamEventKind = iota
	EventDelta
	EventDone
	EventError
)

// StreamEvent is one normalized message from a streaming transcription
// transport. Text holds the incremental text for EventDelta, the final
// text for EventDone, or the server message for EventError.
type StreamEvent struct {
	Kind StreamEventKind
	Text string
}

// ParseStreamEvent decodes a single server message into a normalized
// event. Transports disagree on shapes: the discriminator may live under
// "type" or "event", delta intents appear as "response.delta" or
// "transcript.text.delta" or plain "delta", and error messages may be
// nested one level under an "error" object. Unparseable payloads and
// recognized-but-irrelevant message types both map to EventIgnore.
// Error intent wins over delta when a payload matches both.
func ParseStreamEvent(payload []byte) StreamEvent {
	var msg struct {
		Type  string `json:"type"`
		Event string `json:"event"`
		Delta string `json:"delta"`
		Text  string `json:"text"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		return StreamEvent{Kind: EventIgnore}
	}

	kind := msg.Type
	if kind == "" {
		kind = msg.Event
	}

	switch {
	case kind == "error" || strings.HasSuffix(kind, ".error"):
		text := msg.Error.Message
		if text == "" {
			text = msg.Message
		}
		if text == "" {
			text = strings.TrimSpace(string(payload))
		}
		return StreamEvent{Kind: EventError, Text: text}
	case kind == "delta" || strings.HasSuffix(kind, ".delta"):
		return StreamEvent{Kind: EventDelta, Text: msg.Delta}
	case kind == "done" || strings.HasSuffix(kind, ".done"):
		return StreamEvent{Kind: EventDone, Text: msg.Text}
	}
	return StreamEvent{Kind: EventIgnore}
}
