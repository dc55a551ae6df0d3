package identity

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"authd/cmd/identity/ids"
	"authd/cmd/internal/dbmigrate"
)

const testHash = "$2a$04$abcdefghijklmnopqrstuu5Yx4cFvQ6oXJQ3wPqM6cX5kNn7dGvXK"

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = dbmigrate.Up(context.Background(), db, dbmigrate.SQLite)
	require.NoError(t, err)

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return s
}

func storeBackends(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"sqlite": func(t *testing.T) Store { return newTestSQLiteStore(t) },
	}
}

func TestStore_CreateAndGet(t *testing.T) {
	for name, mk := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()
			now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

			u, err := s.CreateUser(ctx, CreateUserInput{Email: "  Alice@Example.com ", PasswordHash: testHash, Now: now})
			require.NoError(t, err)
			assert.True(t, ids.Valid(u.ID))
			assert.Equal(t, "Alice@Example.com", u.Email)
			assert.Equal(t, "alice@example.com", u.EmailNorm)
			assert.Equal(t, testHash, u.PasswordHash)
			assert.True(t, u.CreatedAt.Equal(now))

			byEmail, err := s.GetUserByEmail(ctx, "ALICE@example.COM")
			require.NoError(t, err)
			assert.Equal(t, u, byEmail)

			byID, err := s.GetUserByID(ctx, u.ID)
			require.NoError(t, err)
			assert.Equal(t, u, byID)
		})
	}
}

func TestStore_DuplicateEmail_CaseInsensitive(t *testing.T) {
	for name, mk := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()

			_, err := s.CreateUser(ctx, CreateUserInput{Email: "User@Example.com", PasswordHash: testHash})
			require.NoError(t, err)

			_, err = s.CreateUser(ctx, CreateUserInput{Email: "user@example.COM", PasswordHash: testHash})
			require.Error(t, err)
			assert.True(t, IsConflict(err), "got %v", err)
			assert.ErrorIs(t, err, ErrConflict)

			var ce ConflictError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, "email", ce.Field)
		})
	}
}

func TestStore_ConcurrentDuplicateCreate(t *testing.T) {
	for name, mk := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()

			const n = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				ok        int
				conflicts int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := s.CreateUser(ctx, CreateUserInput{Email: "race@example.com", PasswordHash: testHash})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case IsConflict(err):
						conflicts++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, 1, ok)
			assert.Equal(t, n-1, conflicts)

			_, err := s.GetUserByEmail(ctx, "race@example.com")
			require.NoError(t, err)
		})
	}
}

func TestStore_NotFound(t *testing.T) {
	for name, mk := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()

			_, err := s.GetUserByEmail(ctx, "nobody@example.com")
			assert.True(t, IsNotFound(err), "got %v", err)

			_, err = s.GetUserByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ")
			assert.True(t, IsNotFound(err), "got %v", err)
		})
	}
}

func TestStore_InvalidInput(t *testing.T) {
	for name, mk := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx := context.Background()

			_, err := s.CreateUser(ctx, CreateUserInput{Email: "   ", PasswordHash: testHash})
			assert.True(t, IsInvalidInput(err), "got %v", err)

			_, err = s.CreateUser(ctx, CreateUserInput{Email: "a@b.co", PasswordHash: ""})
			assert.True(t, IsInvalidInput(err), "got %v", err)
		})
	}
}

func TestStore_CanceledContext(t *testing.T) {
	for name, mk := range storeBackends(t) {
		t.Run(name, func(t *testing.T) {
			s := mk(t)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			_, err := s.CreateUser(ctx, CreateUserInput{Email: "a@b.co", PasswordHash: testHash})
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM\t"))
}
