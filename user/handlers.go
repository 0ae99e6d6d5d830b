package user

import (
	"context"
	"fmt"

	cqrs "github.com/devbanana/weight-log-api-sub000"
)

// RegisterUser creates a new account. The password is plaintext here; the
// handler hashes it before anything is recorded.
type RegisterUser struct {
	UserID      string
	Email       string
	Password    string
	Name        string
	DateOfBirth string
}

func (c RegisterUser) AggregateID() string { return c.UserID }

// LoginUser authenticates an existing account.
type LoginUser struct {
	UserID   string
	Password string
}

func (c LoginUser) AggregateID() string { return c.UserID }

// EmailLookup answers whether an email address is already taken. The
// EmailIndex projection satisfies it.
type EmailLookup interface {
	UserIDByEmail(email string) (string, bool)
}

func newUser(id string) *User { return New(id) }

// NewRegisterUserHandler returns the command handler for RegisterUser.
//
// Uniqueness is checked against the lookup before the aggregate decides.
// The check is a fast reject, not a guarantee: two racing registrations of
// different user ids with the same email both pass it, and the second is
// caught once its registration event reaches the index. The password hash
// is computed per attempt, so a retried command never reuses state from a
// failed cycle.
func NewRegisterUserHandler(store cqrs.EventStore, lookup EmailLookup, opts ...cqrs.CommandHandlerOption) cqrs.CommandHandler[RegisterUser] {
	return cqrs.NewCommandHandler(store, newUser,
		func(ctx context.Context, u *User, cmd RegisterUser) error {
			if owner, taken := lookup.UserIDByEmail(cmd.Email); taken && owner != cmd.UserID {
				return fmt.Errorf("register user %s: %w", cmd.UserID, ErrEmailInUse)
			}

			hashed, err := HashPassword(cmd.Password)
			if err != nil {
				return fmt.Errorf("register user %s: hash password: %w", cmd.UserID, err)
			}

			return u.register(cmd.Email, hashed, cmd.Name, cmd.DateOfBirth)
		},
		opts...,
	)
}

// NewLoginUserHandler returns the command handler for LoginUser. A wrong
// password or an unknown account fails with ErrCouldNotAuthenticate and
// appends nothing.
func NewLoginUserHandler(store cqrs.EventStore, verifier PasswordVerifier, opts ...cqrs.CommandHandlerOption) cqrs.CommandHandler[LoginUser] {
	return cqrs.NewCommandHandler(store, newUser,
		func(ctx context.Context, u *User, cmd LoginUser) error {
			return u.Login(cmd.Password, verifier)
		},
		opts...,
	)
}
