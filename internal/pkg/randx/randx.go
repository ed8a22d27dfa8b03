/*
Package randx generates identifiers for sessions and chat events.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// SessionIDPrefix is prepended to every generated session id.
	SessionIDPrefix = "sess_"

	// SessionIDRawLength is the length of the Base62 part of a session id.
	SessionIDRawLength = 10
)

// EventID generates a UUID v4 string identifying a chat event.
func EventID() string {
	return uuid.New().String()
}

// SessionID generates a Base62 session id using crypto/rand, e.g. "sess_4fZ0aQk9Lm".
func SessionID() (string, error) {
	result := make([]byte, SessionIDRawLength)

	for i := range SessionIDRawLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for session id: %w", err)
		}
		result[i] = Base62Chars[num.Int64()]
	}

	return SessionIDPrefix + string(result), nil
}
