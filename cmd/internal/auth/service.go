package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"authd/cmd/identity"
	"authd/cmd/internal/auth/session"
	"authd/cmd/security/password"
)

const dummyPassword = "dummy-password-for-timing-only"

// Service implements the auth operations.
type Service struct {
	users    identity.Store
	sessions *session.Service
	hasher   password.Hasher
	log      *slog.Logger

	autoLogin bool
	now       func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithAutoLogin makes Register issue a session for the new account.
func WithAutoLogin(on bool) Option {
	return func(s *Service) { s.autoLogin = on }
}

// WithLogger sets the logger used for internal faults.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService wires the auth service. All three dependencies are required.
func NewService(users identity.Store, sessions *session.Service, hasher password.Hasher, opts ...Option) (*Service, error) {
	if users == nil || sessions == nil || hasher == nil {
		return nil, errors.New("auth: nil dependency")
	}
	s := &Service{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		log:      slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// SessionTTL returns the lifetime of issued sessions.
func (s *Service) SessionTTL() time.Duration { return s.sessions.TTL() }

// RegisterResult is the outcome of Register. Session is set only with auto-login.
type RegisterResult struct {
	User    identity.User
	Session *session.Issued
}

// LoginResult is the outcome of a successful Login.
type LoginResult struct {
	User    identity.User
	Session session.Issued
}

// Register creates an account for email with password.
func (s *Service) Register(ctx context.Context, email, plain string) (RegisterResult, error) {
	const op = "auth.Register"

	email = strings.TrimSpace(email)
	if email == "" || plain == "" {
		return RegisterResult{}, InputError{Field: "email", Msg: "email and password are required"}
	}
	if !ValidEmail(email) {
		return RegisterResult{}, InputError{Field: "email", Msg: "invalid email address"}
	}

	hash, err := s.hasher.Hash(plain)
	if err != nil {
		if ie := passwordInputError(err, s.minPasswordLength()); ie != nil {
			return RegisterResult{}, ie
		}
		return RegisterResult{}, unavailable(op, err)
	}

	now := s.now()
	u, err := s.users.CreateUser(ctx, identity.CreateUserInput{Email: email, PasswordHash: hash, Now: now})
	if err != nil {
		switch {
		case identity.IsConflict(err):
			return RegisterResult{}, ErrEmailTaken
		case identity.IsInvalidInput(err):
			return RegisterResult{}, InputError{Field: "email", Msg: "invalid email address"}
		default:
			return RegisterResult{}, unavailable(op, err)
		}
	}

	out := RegisterResult{User: u}
	if s.autoLogin {
		iss, err := s.sessions.Create(ctx, now, u.ID)
		if err != nil {
			// The account exists; the client can still log in explicitly.
			s.log.Error("auth.register.autologin.fail", "err", err, "user_id", u.ID)
			return out, nil
		}
		out.Session = &iss
	}
	return out, nil
}

// Login checks credentials and starts a session.
//
// Unknown email and wrong password both return ErrInvalidCredentials (as a
// LoginFailure carrying the internal reason).
func (s *Service) Login(ctx context.Context, email, plain string) (LoginResult, error) {
	const op = "auth.Login"

	email = strings.TrimSpace(email)
	if email == "" || plain == "" {
		return LoginResult{}, InputError{Field: "email", Msg: "email and password are required"}
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if identity.IsNotFound(err) {
			// Keep the unknown-email path about as slow as a real verify.
			_, _ = s.hasher.Verify(s.dummy(), plain)
			return LoginResult{}, LoginFailure{Reason: ReasonUnknownEmail}
		}
		return LoginResult{}, unavailable(op, err)
	}

	ok, err := s.hasher.Verify(u.PasswordHash, plain)
	if err != nil {
		s.log.Error("auth.login.hash.invalid", "err", err, "user_id", u.ID)
		return LoginResult{}, LoginFailure{Reason: ReasonBadHash}
	}
	if !ok {
		return LoginResult{}, LoginFailure{Reason: ReasonWrongPassword}
	}

	iss, err := s.sessions.Create(ctx, s.now(), u.ID)
	if err != nil {
		return LoginResult{}, unavailable(op, err)
	}
	return LoginResult{User: u, Session: iss}, nil
}

// Authorize resolves a session token to its user id.
func (s *Service) Authorize(ctx context.Context, token string) (string, error) {
	row, err := s.sessions.Resolve(ctx, s.now(), token)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) || errors.Is(err, session.ErrSessionExpired) {
			return "", ErrNotAuthenticated
		}
		return "", unavailable("auth.Authorize", err)
	}
	return row.UserID, nil
}

// CurrentUser returns the account behind a session token.
func (s *Service) CurrentUser(ctx context.Context, token string) (identity.User, error) {
	userID, err := s.Authorize(ctx, token)
	if err != nil {
		return identity.User{}, err
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, ErrNotFound
		}
		return identity.User{}, unavailable("auth.CurrentUser", err)
	}
	return u, nil
}

// Logout ends the session for token. It returns the user id the session belonged to.
func (s *Service) Logout(ctx context.Context, token string) (string, error) {
	userID, err := s.Authorize(ctx, token)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return userID, unavailable("auth.Logout", err)
	}
	return userID, nil
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		if h, err := s.hasher.Hash(dummyPassword); err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}

func (s *Service) minPasswordLength() int {
	if p, ok := s.hasher.(interface{ MinLength() int }); ok {
		return p.MinLength()
	}
	return password.DefaultConfig().MinLength()
}
