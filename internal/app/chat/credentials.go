//go:generate go run go.uber.org/mock/mockgen -source=credentials.go -destination=mocks/mock_credentials.go -package=mocks
package chat

import (
	"context"

	"lobbychat/internal/app/user"
)

// Credentials is the credential store as seen by a session. *user.Store implements it.
type Credentials interface {
	// Register creates an account; a taken username or email yields an error
	// matching user.ErrDuplicateKey.
	Register(ctx context.Context, in user.Signup) error

	// Verify reports whether the username/password pair matches a stored account.
	Verify(ctx context.Context, username, password string) (bool, error)

	// Exists reports whether username belongs to a registered account.
	Exists(ctx context.Context, username string) (bool, error)
}
