package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"lobbychat/internal/app/db"
	"lobbychat/internal/pkg/logx"
)

const usersTable = "users"

var (
	// ErrDuplicateKey is matched by every *DuplicateKeyError.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned by Lookup for unknown usernames.
	ErrNotFound = errors.New("user not found")
)

// DuplicateKeyError reports which unique column rejected a registration.
type DuplicateKeyError struct {
	// Field is "username" or "email".
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %s already registered", e.Field)
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

// Store is the credential table: create and verify, nothing else.
type Store struct {
	db      *sql.DB
	builder sq.StatementBuilderType
	cost    int
	logger  zerolog.Logger

	// dummyHash is compared against when the username is unknown, so a failed
	// login costs the same whether or not the account exists.
	dummyHash func() []byte
}

// NewStore returns a Store over an open connection. The connection's lifecycle
// stays with the caller.
func NewStore(conn *db.Conn) *Store {
	return newStore(conn, bcrypt.DefaultCost)
}

// NewStoreWithCost is NewStore with an explicit bcrypt cost.
func NewStoreWithCost(conn *db.Conn, cost int) *Store {
	return newStore(conn, cost)
}

func newStore(conn *db.Conn, cost int) *Store {
	return &Store{
		db:      conn.DB,
		builder: sq.StatementBuilder.PlaceholderFormat(placeholderFor(conn.Dialect)),
		cost:    cost,
		logger:  logx.Component("credential_store"),
		dummyHash: sync.OnceValue(func() []byte {
			h, err := bcrypt.GenerateFromPassword([]byte("placeholder-password"), cost)
			if err != nil {
				logx.Error(err, "Failed to prepare dummy password hash")
			}
			return h
		}),
	}
}

// placeholderFor returns the bind parameter style of dialect.
func placeholderFor(dialect db.Dialect) sq.PlaceholderFormat {
	if dialect == db.DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Register stores a new user with a bcrypt hash of the password.
// A taken username or email yields a *DuplicateKeyError and leaves the table unchanged.
// The password policy is the caller's job (see ValidateSignup).
func (s *Store) Register(ctx context.Context, in Signup) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	query, args, err := s.builder.
		Insert(usersTable).
		Columns("username", "email", "password_hash").
		Values(in.Username, in.Email, string(hash)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if db.IsUniqueViolation(err) {
			return s.duplicateKey(ctx, in)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info().Str("username", in.Username).Msg("User registered.")
	return nil
}

// duplicateKey works out which unique column the rejected insert collided with.
func (s *Store) duplicateKey(ctx context.Context, in Signup) error {
	_, err := s.Lookup(ctx, in.Username)
	switch {
	case err == nil:
		s.logger.Warn().Str("username", in.Username).Msg("Registration conflict: username already exists.")
		return &DuplicateKeyError{Field: "username"}
	case errors.Is(err, ErrNotFound):
		s.logger.Warn().Str("username", in.Username).Msg("Registration conflict: email already exists.")
		return &DuplicateKeyError{Field: "email"}
	default:
		return err
	}
}

// Lookup returns the record for username, or ErrNotFound.
func (s *Store) Lookup(ctx context.Context, username string) (Record, error) {
	query, args, err := s.builder.
		Select("id", "username", "email", "password_hash", "created_at").
		From(usersTable).
		Where(sq.Eq{"username": username}).
		Limit(1).
		ToSql()
	if err != nil {
		return Record{}, fmt.Errorf("build select: %w", err)
	}

	var rec Record
	err = s.db.QueryRowContext(ctx, query, args...).
		Scan(&rec.ID, &rec.Username, &rec.Email, &rec.PasswordHash, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("select user: %w", err)
	}

	return rec, nil
}

// Exists reports whether username is registered.
func (s *Store) Exists(ctx context.Context, username string) (bool, error) {
	_, err := s.Lookup(ctx, username)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Verify reports whether username exists and password matches its stored hash.
// Unknown user and wrong password are indistinguishable to the caller; an error
// is returned only when the lookup itself fails.
func (s *Store) Verify(ctx context.Context, username, password string) (bool, error) {
	rec, err := s.Lookup(ctx, username)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Warn().Err(err).Str("username", username).Msg("Stored password hash could not be compared.")
		}
		return false, nil
	}

	return true, nil
}
