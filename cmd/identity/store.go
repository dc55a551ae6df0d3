package identity

import (
	"context"
	"strings"
	"time"
)

// User is a registered account. PasswordHash is an encoded bcrypt or Argon2id
// string; plaintext passwords never reach the store.
type User struct {
	ID           string
	Email        string
	EmailNorm    string
	PasswordHash string
	CreatedAt    time.Time
}

// CreateUserInput describes a new account. Email is stored trimmed and
// uniqueness is decided on its normalized form.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Now          time.Time
}

// Store is the credential persistence boundary.
//
// Contract:
//   - CreateUser returns ConflictError{Field: "email"} when the normalized email exists.
//     Concurrent creates for the same email yield exactly one success.
//   - GetUserByEmail / GetUserByID return NotFoundError when absent.
//   - Implementations are safe for concurrent use.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}

// prepareUser validates input and builds the row to insert.
func prepareUser(op string, in CreateUserInput) (User, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return User{}, invalid(op, "email is required")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, invalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, OpError{Op: op, Kind: err, Msg: "id generation"}
	}

	return User{
		ID:           id,
		Email:        email,
		EmailNorm:    NormalizeEmail(email),
		PasswordHash: in.PasswordHash,
		CreatedAt:    now.UTC(),
	}, nil
}
