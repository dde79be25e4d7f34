// Package auth implements the authentication collaborator: password-based
// accounts and JWT session tokens. The ledger core never sees any of this;
// it only receives the actor's MemberRef.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/splitledger/splitledger/internal/models"
	"github.com/splitledger/splitledger/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
)

// Authenticator abstracts the credential scheme so the HTTP layer does not
// care whether accounts use passwords, passkeys or OAuth.
type Authenticator interface {
	// Register creates a new account and returns it.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate verifies credentials and returns the matching user.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)
}

// PasswordAuthenticator implements password accounts with bcrypt hashing.
type PasswordAuthenticator struct {
	store storage.Store
}

// NewPasswordAuthenticator creates a password-based authenticator backed by
// the given store.
func NewPasswordAuthenticator(store storage.Store) *PasswordAuthenticator {
	return &PasswordAuthenticator{store: store}
}

// Register creates a new user account with a hashed password.
func (a *PasswordAuthenticator) Register(ctx context.Context, email, displayName, credential string) (*models.User, error) {
	if len(credential) < 8 {
		return nil, ErrWeakPassword
	}

	existing, err := a.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: string(hash),
	}
	if err := a.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// History recorded against the email before the account existed now
	// belongs to the account: groups, expenses and shares referencing the
	// email-form member are rewritten to the ID form.
	if err := a.store.ClaimMember(ctx, models.MemberByEmail(user.Email), user.Ref()); err != nil {
		return nil, fmt.Errorf("failed to claim prior references: %w", err)
	}
	return user, nil
}

// Authenticate verifies the email and password, returning the user if valid.
// Lookup and hash failures both report the same error so the response does
// not leak which emails exist.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, email, credential string) (*models.User, error) {
	user, err := a.store.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(credential)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
