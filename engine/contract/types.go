package contract

import "time"

// Contact identifies the end user on the other side of the conversation.
// Name is used to narrow calendar lookups to the contact's own bookings.
type Contact struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// IncomingMessage is one inbound chat utterance. The caller owns transport,
// ordering and serialization per conversation.
type IncomingMessage struct {
	OrgID          string  `json:"org_id"`
	ConversationID string  `json:"conversation_id"`
	Text           string  `json:"text"`
	Contact        Contact `json:"contact"`
}

// ReplyMessage is one outbound chat message. Delivery is the caller's job.
type ReplyMessage struct {
	Text string `json:"text"`
}

// Result is the outcome of one engine turn. Handled=false means the
// utterance carried no scheduling intent and no flow was active, so the
// caller may route it elsewhere.
type Result struct {
	Handled  bool           `json:"handled"`
	Messages []ReplyMessage `json:"messages"`
}

// Event is an external calendar event as seen through the gateway.
// Times are RFC-3339 UTC at this boundary.
type Event struct {
	ID         string    `json:"id"`
	CalendarID string    `json:"calendar_id"`
	Summary    string    `json:"summary"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
}
