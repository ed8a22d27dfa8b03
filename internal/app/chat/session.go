package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"lobbychat/internal/app/user"
	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/logx"
)

const (
	// MaxNameLength is the longest guest display name, in characters.
	MaxNameLength = 32

	// MaxContentBytes is the largest chat message body accepted.
	MaxContentBytes = 5000
)

// State is the position of a session in its lifecycle.
type State int

const (
	// StateAnonymous is the initial state: no display name, not subscribed.
	StateAnonymous State = iota

	// StateActive means a display name is bound and the session is subscribed.
	StateActive

	// StateDisconnected is terminal.
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateActive:
		return "active"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is one connected client's chat state machine:
// Anonymous → (guest join | login | signup) → Active → Disconnected.
// A session never returns to Anonymous.
type Session struct {
	// ID is the bus subscriber id of this session.
	ID string

	bus   *Bus
	creds Credentials

	// mu guards state, user and sub.
	mu    sync.Mutex
	state State
	user  user.User
	sub   *Subscription

	logger zerolog.Logger
}

// NewSession returns an Anonymous session that will publish to bus and check
// logins and signups against creds.
func NewSession(id string, bus *Bus, creds Credentials) *Session {
	return &Session{
		ID:     id,
		bus:    bus,
		creds:  creds,
		state:  StateAnonymous,
		logger: logx.Component("session").With().Str("session_id", id).Logger(),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// User returns the bound identity; it is the zero User until the session is Active.
func (s *Session) User() user.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.user
}

// Events returns the session's event queue, or nil while the session is not subscribed.
// The channel is closed when the session disconnects or the bus closes.
func (s *Session) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sub == nil {
		return nil
	}
	return s.sub.Events()
}

// JoinAsGuest activates the session under a self-chosen display name.
// Names of registered accounts are reserved for their owners.
func (s *Session) JoinAsGuest(ctx context.Context, name string) (user.User, *errs.CustomError) {
	if err := s.checkAnonymous(); err != nil {
		return user.User{}, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return user.User{}, errs.NewError(errs.ErrNameRequired).WithFields("name")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return user.User{}, errs.NewError(errs.ErrNameTooLong, MaxNameLength).WithFields("name")
	}

	taken, err := s.creds.Exists(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Msg("Registered name check failed.")
		return user.User{}, errs.NewError(errs.ErrUnknown)
	}
	if taken {
		return user.User{}, errs.NewError(errs.ErrNameTaken).WithFields("name")
	}

	u := user.User{DisplayName: name, UserType: user.TypeGuest}
	return s.enter(u)
}

// Login activates the session as username once the credential store accepts the password.
// A failed check leaves the session Anonymous; the error never says which part was wrong.
func (s *Session) Login(ctx context.Context, username, password string) (user.User, *errs.CustomError) {
	if err := s.checkAnonymous(); err != nil {
		return user.User{}, err
	}

	var missing []string
	if username == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return user.User{}, errs.NewError(errs.ErrFieldsRequired).WithFields(missing...)
	}

	ok, err := s.creds.Verify(ctx, username, password)
	if err != nil {
		s.logger.Error().Err(err).Msg("Credential check failed.")
		return user.User{}, errs.NewError(errs.ErrUnknown)
	}
	if !ok {
		s.logger.Info().Str("username", username).Msg("Login rejected.")
		return user.User{}, errs.NewError(errs.ErrInvalidCredentials).WithFields("username")
	}

	u := user.User{DisplayName: username, UserType: user.TypeRegistered}
	return s.enter(u)
}

// Signup validates the input, registers the account and activates the session as its username.
func (s *Session) Signup(ctx context.Context, in user.Signup) (user.User, *errs.CustomError) {
	if err := s.checkAnonymous(); err != nil {
		return user.User{}, err
	}

	if err := user.ValidateSignup(in); err != nil {
		return user.User{}, signupError(err)
	}

	if err := s.creds.Register(ctx, in); err != nil {
		var dup *user.DuplicateKeyError
		if errors.As(err, &dup) {
			if dup.Field == "email" {
				return user.User{}, errs.NewError(errs.ErrEmailAlreadyExists).WithFields("email")
			}
			return user.User{}, errs.NewError(errs.ErrUserAlreadyExists).WithFields("username")
		}

		s.logger.Error().Err(err).Msg("Registration failed.")
		return user.User{}, errs.NewError(errs.ErrUnknown)
	}

	u := user.User{DisplayName: in.Username, UserType: user.TypeRegistered}
	return s.enter(u)
}

// signupError maps validation failures onto field-level client errors.
func signupError(err error) *errs.CustomError {
	var fe *user.FieldError
	switch {
	case errors.As(err, &fe) && len(fe.Missing) > 0:
		return errs.NewError(errs.ErrFieldsRequired).WithFields(fe.Missing...)
	case errors.As(err, &fe):
		return errs.NewError(errs.ErrInvalidParams).WithFields(fe.Invalid...)
	case errors.Is(err, user.ErrPasswordTooLong):
		return errs.NewError(errs.ErrPasswordTooLong, user.MaxPasswordBytes).WithFields("password")
	case errors.Is(err, user.ErrPasswordTooShort),
		errors.Is(err, user.ErrPasswordForbiddenChar):
		return errs.NewError(errs.ErrInvalidPassword).WithFields("password")
	default:
		return errs.NewError(errs.ErrUnknown, err)
	}
}

// checkAnonymous rejects entry attempts on sessions that are already past Anonymous.
func (s *Session) checkAnonymous() *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	return stateError(s.state, StateAnonymous)
}

func stateError(current, want State) *errs.CustomError {
	switch {
	case current == want:
		return nil
	case current == StateDisconnected:
		return errs.NewError(errs.ErrSessionClosed)
	case current == StateActive:
		return errs.NewError(errs.ErrAlreadyJoined)
	default:
		return errs.NewError(errs.ErrNotJoined)
	}
}

func (s *Session) enter(u user.User) (user.User, *errs.CustomError) {
	if err := s.activate(u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

// activate binds u, subscribes to the bus and announces the join.
// The state is re-checked because credential checks run without the lock.
func (s *Session) activate(u user.User) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := stateError(s.state, StateAnonymous); err != nil {
		return err
	}

	sub, err := s.bus.Subscribe(s.ID)
	if err != nil {
		if errors.Is(err, ErrBusClosed) {
			return errs.NewError(errs.ErrSessionClosed)
		}
		s.logger.Error().Err(err).Msg("Failed to subscribe session.")
		return errs.NewError(errs.ErrUnknown)
	}

	s.sub = sub
	s.user = u
	s.state = StateActive
	s.logger = s.logger.With().Str("display_name", u.DisplayName).Logger()

	s.logger.Info().Str("user_type", string(u.UserType)).Msg("Session joined the chat.")

	s.bus.Publish(NewJoinEvent(u.DisplayName))
	return nil
}

// Send publishes body as a chat event authored by the session's display name.
// An empty body is ignored.
func (s *Session) Send(body string) *errs.CustomError {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := stateError(s.state, StateActive); err != nil {
		return err
	}

	if body == "" {
		return nil
	}
	if len(body) > MaxContentBytes {
		return errs.NewError(errs.ErrMessageContentTooLong)
	}

	s.bus.Publish(NewChatEvent(s.user.DisplayName, body))
	return nil
}

// Disconnect ends the session. It unsubscribes from the bus and, if the session
// had joined, tells the remaining sessions. Calling it again does nothing.
func (s *Session) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisconnected {
		return
	}

	wasActive := s.state == StateActive
	s.state = StateDisconnected

	if s.sub != nil {
		s.bus.Unsubscribe(s.ID)
	}

	if wasActive {
		s.bus.Publish(NewLeaveEvent(s.user.DisplayName))
		s.logger.Info().Msg("Session left the chat.")
	} else {
		s.logger.Debug().Msg("Anonymous session disconnected.")
	}
}
