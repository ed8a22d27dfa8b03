/*
Package user holds chat participant identity and the credential store backing
signup and login.
*/
package user

import "time"

// Type distinguishes how a participant entered the chat.
type Type string

const (
	TypeGuest      Type = "guest"
	TypeRegistered Type = "registered"
)

// User is the identity bound to an active chat session.
type User struct {
	// DisplayName is the name shown as the author of the user's messages.
	DisplayName string `json:"displayName"`

	// UserType records whether the name was claimed as a guest or proven by login/signup.
	UserType Type `json:"userType"`
}

// Record is a row of the credential table.
type Record struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
