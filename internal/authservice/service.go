// Package authservice implements account signup and login.
package authservice

import (
	"context"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/starford/notely/internal/apperr"
	"github.com/starford/notely/internal/models"
	"github.com/starford/notely/internal/token"
)

// DefaultCost is the bcrypt work factor for new password hashes.
const DefaultCost = 12

// CredentialStore is the persistence the service needs.
type CredentialStore interface {
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
}

// TokenIssuer signs identity tokens.
type TokenIssuer interface {
	Issue(id token.Identity) (string, error)
}

// Credentials is a signup or login request.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate requires both fields.
func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Username, validation.Required),
		validation.Field(&c.Password, validation.Required),
	)
}

// Session is returned after a successful signup or login.
type Session struct {
	Token string         `json:"token"`
	User  token.Identity `json:"user"`
}

// Service coordinates password hashing, the credential store and token issuance.
type Service struct {
	store  CredentialStore
	tokens TokenIssuer
	cost   int
	// dummyHash is compared against on unknown usernames so both login
	// failure paths do the same bcrypt work.
	dummyHash []byte
}

// New creates a Service hashing at cost (DefaultCost when zero).
func New(store CredentialStore, tokens TokenIssuer, cost int) (*Service, error) {
	if cost == 0 {
		cost = DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("notely-timing-equaliser"), cost)
	if err != nil {
		return nil, fmt.Errorf("authservice: prepare hash: %w", err)
	}
	return &Service{store: store, tokens: tokens, cost: cost, dummyHash: dummy}, nil
}

// Signup registers a new user and returns a session for it.
func (s *Service) Signup(ctx context.Context, c Credentials) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, apperr.Validation("username and password are required")
	}

	existing, err := s.store.FindUserByUsername(ctx, c.Username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperr.Conflict("username already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(c.Password), s.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, apperr.Validation("password must be at most 72 bytes")
		}
		return nil, fmt.Errorf("authservice: hash password: %w", err)
	}

	// The store's unique index is authoritative if a concurrent signup won.
	u, err := s.store.CreateUser(ctx, c.Username, string(hash))
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// Login checks credentials and returns a session. Unknown usernames and wrong
// passwords both yield apperr.ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, c Credentials) (*Session, error) {
	if err := c.Validate(); err != nil {
		return nil, apperr.Validation("username and password are required")
	}

	u, err := s.store.FindUserByUsername(ctx, c.Username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(c.Password))
		return nil, apperr.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(c.Password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.session(u)
}

func (s *Service) session(u *models.User) (*Session, error) {
	id := token.Identity{ID: u.ID, Username: u.Username}
	raw, err := s.tokens.Issue(id)
	if err != nil {
		return nil, err
	}
	return &Session{Token: raw, User: id}, nil
}
