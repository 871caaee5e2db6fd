package ws

import "encoding/json"

// Inbound event names.
const (
	eventReadyToPair      = "readyToPair"
	eventChangePreference = "changePreference"
	eventJoin             = "join"
	eventSendMessage      = "sendMessage"
	eventTyping           = "typingMessage"
	eventTypingOff        = "typingMessageOff"
	eventLeftChatRoom     = "leftChatRoom"
	eventClosedApp        = "closedApp"
	eventGetWaitingUsers  = "getWaitingUsers"
)

// signalEvents maps inbound call-signaling events to the event name the
// peer receives. The payloads pass through untouched.
var signalEvents = map[string]string{
	"offer":       "offer",
	"answer":      "answer",
	"candidate":   "candidate",
	"call_user":   "incoming_call",
	"accept_call": "call_accepted",
	"reject_call": "call_rejected",
	"hang_up":     "call_ended",
}

// frame is the wire envelope for both directions.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type readyToPairPayload struct {
	ID           string `json:"id" validate:"required"`
	Gender       string `json:"gender" validate:"required"`
	InterestedIn string `json:"interestedIn" validate:"required"`
}

type changePreferencePayload struct {
	ID              string `json:"id" validate:"required"`
	NewInterestedIn string `json:"newInterestedIn" validate:"required"`
}

type chatRefPayload struct {
	ChatID string `json:"chatId" validate:"required"`
}

type typingPayload struct {
	ChatID   string `json:"chatId" validate:"required"`
	SenderID string `json:"senderId"`
}
