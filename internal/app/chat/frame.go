package chat

import (
	"encoding/json"

	"lobbychat/internal/app/user"
)

// FrameType identifies the kind of a websocket frame.
type FrameType string

// Client → server.
const (
	TypeJoinGuest FrameType = "JOIN_GUEST"
	TypeLogin     FrameType = "LOGIN"
	TypeSignup    FrameType = "SIGNUP"
	TypeText      FrameType = "TEXT"
)

// Server → client.
const (
	TypeJoined FrameType = "JOINED"
	TypeEvent  FrameType = "EVENT"
	TypeError  FrameType = "ERROR"
)

// Frame is the JSON envelope of every websocket message in both directions.
type Frame struct {
	Type    FrameType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// JoinGuestPayload is the payload of a JOIN_GUEST frame.
type JoinGuestPayload struct {
	Name string `json:"name"`
}

// LoginPayload is the payload of a LOGIN frame.
type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupPayload is the payload of a SIGNUP frame.
type SignupPayload = user.Signup

// TextPayload is the payload of a TEXT frame.
type TextPayload struct {
	Content string `json:"content"`
}

// JoinedPayload acknowledges a successful entry with the identity now bound to the session.
type JoinedPayload struct {
	DisplayName string    `json:"displayName"`
	UserType    user.Type `json:"userType"`
}

// ErrorPayload reports a rejected frame.
type ErrorPayload struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Fields  []string `json:"fields,omitempty"`
}

// EncodeFrame marshals payload into a frame of type t.
func EncodeFrame(t FrameType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Frame{Type: t, Payload: raw})
}
