package user

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"lobbychat/internal/app/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	conn, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "user_cred.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return NewStoreWithCost(conn, bcrypt.MinCost)
}

func TestStore_RegisterAndVerify(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Register(ctx, Signup{Username: "alice", Email: "a@x.io", Password: "secret123"}))

	ok, err := store.Verify(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Verify(ctx, "alice", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Verify(ctx, "bob", "secret123")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.Verify(ctx, "Alice", "secret123")
	require.NoError(t, err)
	assert.False(t, ok, "usernames are case sensitive")
}

func TestStore_Exists(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Register(ctx, Signup{Username: "alice", Email: "a@x.io", Password: "secret123"}))

	ok, err := store.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_StoresHashNotPassword(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Register(ctx, Signup{Username: "alice", Email: "a@x.io", Password: "secret123"}))

	rec, err := store.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "a@x.io", rec.Email)
	assert.NotEqual(t, "secret123", rec.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte("secret123")))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestStore_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Register(ctx, Signup{Username: "alice", Email: "a@x.io", Password: "secret123"}))
	before, err := store.Lookup(ctx, "alice")
	require.NoError(t, err)

	err = store.Register(ctx, Signup{Username: "alice", Email: "other@x.io", Password: "different1"})
	require.ErrorIs(t, err, ErrDuplicateKey)

	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "username", dup.Field)

	after, err := store.Lookup(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, before.PasswordHash, after.PasswordHash)

	ok, err := store.Verify(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Register(ctx, Signup{Username: "alice", Email: "a@x.io", Password: "secret123"}))

	err := store.Register(ctx, Signup{Username: "bob", Email: "a@x.io", Password: "secret123"})

	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)

	_, err = store.Lookup(ctx, "bob")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ConcurrentRegisterSameUsername(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		dups      int
	)

	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Register(ctx, Signup{
				Username: "race",
				Email:    "race" + string(rune('a'+i)) + "@x.io",
				Password: "secret123",
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, ErrDuplicateKey):
				dups++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, dups)
}

func TestPlaceholderFor(t *testing.T) {
	tests := []struct {
		dialect db.Dialect
		want    string
	}{
		{dialect: db.DialectSQLite, want: "SELECT * FROM users WHERE username = ?"},
		{dialect: db.DialectPostgres, want: "SELECT * FROM users WHERE username = $1"},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			query, args, err := sq.StatementBuilder.
				PlaceholderFormat(placeholderFor(tt.dialect)).
				Select("*").From(usersTable).Where(sq.Eq{"username": "alice"}).
				ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.want, query)
			assert.Equal(t, []any{"alice"}, args)
		})
	}
}
