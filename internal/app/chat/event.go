package chat

import (
	"fmt"
	"time"

	"lobbychat/internal/pkg/randx"
)

// EventKind separates user messages from server notices.
type EventKind string

const (
	// KindChat is a message typed by a participant.
	KindChat EventKind = "chat"

	// KindSystem is a notice generated by the server, such as a join announcement.
	KindSystem EventKind = "system"
)

// Event is one unit of broadcast content. It is immutable once built and never persisted.
type Event struct {
	// ID lets clients drop duplicates; it carries no ordering.
	ID string `json:"id"`

	Kind EventKind `json:"kind"`

	// Author is the display name of the participant the event is about.
	Author string `json:"author"`

	Body string `json:"body"`

	// Timestamp is the Unix time in milliseconds at which the event was built.
	Timestamp int64 `json:"timestamp"`
}

func newEvent(kind EventKind, author, body string) Event {
	return Event{
		ID:        randx.EventID(),
		Kind:      kind,
		Author:    author,
		Body:      body,
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewChatEvent builds a chat message authored by author.
func NewChatEvent(author, body string) Event {
	return newEvent(KindChat, author, body)
}

// NewJoinEvent builds the notice announcing that name entered the chat.
func NewJoinEvent(name string) Event {
	return newEvent(KindSystem, name, fmt.Sprintf("%s has joined the chat.", name))
}

// NewLeaveEvent builds the notice announcing that name left the chat.
func NewLeaveEvent(name string) Event {
	return newEvent(KindSystem, name, fmt.Sprintf("%s has left the chat.", name))
}
