package agent

// EventType tags the variants flowing out of a loop invocation.
type EventType string

const (
	// EventToken carries one increment of the final answer text.
	EventToken EventType = "token"

	// EventCommand carries a UI-control instruction, out-of-band from the
	// answer text.
	EventCommand EventType = "command"

	// EventDone terminates the stream. Always the last event.
	EventDone EventType = "done"

	// EventError reports a failure the caller should surface. Followed by
	// done.
	EventError EventType = "error"
)

// Event is one item on the stream a loop invocation produces. The transport
// layer consumes these and maps them to its wire framing.
type Event struct {
	Type    EventType              `json:"type"`
	Content string                 `json:"content,omitempty"` // token text
	Action  string                 `json:"action,omitempty"`  // command action
	Params  map[string]interface{} `json:"params,omitempty"`  // command params
	Message string                 `json:"message,omitempty"` // error detail
}

// TokenEvent builds a token event.
func TokenEvent(content string) Event {
	return Event{Type: EventToken, Content: content}
}

// CommandEvent builds a command event.
func CommandEvent(action string, params map[string]interface{}) Event {
	return Event{Type: EventCommand, Action: action, Params: params}
}

// DoneEvent builds the terminal event.
func DoneEvent() Event {
	return Event{Type: EventDone}
}

// ErrorEvent builds an error event.
func ErrorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}
