package notification

// Client frame types.
const (
	WSMarkRead         = "mark_read"
	WSMarkAllRead      = "mark_all_read"
	WSDelete           = "delete"
	WSClear            = "clear"
	WSToggleSound      = "toggle_sound"
	WSTestSound        = "test_sound"
	WSTestNotification = "test_notification"
	WSPing             = "ping"
)

type WSClientMessage struct {
	Type string   `json:"type"`
	ID   string   `json:"id,omitempty"`
	Cue  SoundCue `json:"cue,omitempty"`
}

type WSServerMessage struct {
	Type         string        `json:"type"`
	State        *State        `json:"state,omitempty"`
	Cue          SoundCue      `json:"cue,omitempty"`
	Toast        *Toast        `json:"toast,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	ErrorCode    string        `json:"code,omitempty"`
	ErrorMessage string        `json:"message,omitempty"`
}

func NewStateEvent(s State) *WSServerMessage {
	return &WSServerMessage{Type: "state", State: &s}
}

func NewSoundEvent(cue SoundCue) *WSServerMessage {
	return &WSServerMessage{Type: "sound", Cue: cue}
}

func NewToastEvent(t Toast) *WSServerMessage {
	return &WSServerMessage{Type: "toast", Toast: &t}
}

func NewCreatedEvent(n *Notification) *WSServerMessage {
	return &WSServerMessage{Type: "test_notification", Notification: n}
}

func NewPongEvent() *WSServerMessage {
	return &WSServerMessage{Type: "pong"}
}

func NewErrorEvent(code, message string) *WSServerMessage {
	return &WSServerMessage{
		Type:         "error",
		ErrorCode:    code,
		ErrorMessage: message,
	}
}
