// Package models defines the shared data structures for lifelog.
//
// It contains the inbound event representation handed from the webhook
// transport to the flow engines, and the reply primitives the engines hand
// back to the messaging service.
package models

// EventKind distinguishes the input modality of an inbound message.
type EventKind string

// Event kind constants.
const (
	EventKindText  EventKind = "text"
	EventKindAudio EventKind = "audio"
)

// Event is a single inbound message after transport decoding. For audio
// messages, Text carries the transcription produced before dispatch.
type Event struct {
	UserID     string    `json:"user_id"`
	ReplyToken string    `json:"reply_token"`
	MessageID  string    `json:"message_id"`
	Kind       EventKind `json:"kind"`
	Text       string    `json:"text"`
	Time       int64     `json:"time"`
}

// IsAudio reports whether the event originated as a voice message.
func (e Event) IsAudio() bool {
	return e.Kind == EventKindAudio
}

// QuickReplyOption is one tappable choice attached to a reply message.
// Label is what the user sees; Text is what the platform sends back when
// the button is tapped.
type QuickReplyOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Option builds a QuickReplyOption where the label and sent text match.
func Option(label string) QuickReplyOption {
	return QuickReplyOption{Label: label, Text: label}
}
