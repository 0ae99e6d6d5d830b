// Package user implements an event-sourced user account: registration,
// login, and the read-side pieces built from the account's event stream.
package user

import (
	"errors"
	"fmt"
	"time"

	cqrs "github.com/devbanana/weight-log-api-sub000"
)

// AggregateType identifies user streams in the event store.
const AggregateType = "user"

const dateOfBirthLayout = "2006-01-02"

var (
	// ErrCouldNotAuthenticate is returned on a failed login attempt. It is
	// deliberately uniform: it does not reveal whether the account exists
	// or the password was wrong.
	ErrCouldNotAuthenticate = errors.New("could not authenticate")

	// ErrEmailInUse is returned when registering with an email address that
	// already belongs to another account.
	ErrEmailInUse = errors.New("email address already in use")

	// ErrNotRegistered is returned when an operation targets a user stream
	// that has no registration event.
	ErrNotRegistered = errors.New("user is not registered")

	errAlreadyRegistered = errors.New("user is already registered")
)

// User is the event-sourced account aggregate. All derived state comes from
// folding events in ApplyEvent; command methods validate against that state
// and raise new events.
type User struct {
	*cqrs.AggregateBase

	registered     bool
	email          string
	hashedPassword string
	name           string
	dateOfBirth    string
}

var _ cqrs.Aggregate = (*User)(nil)

// Option customizes a User at construction time.
type Option func(*User)

// WithClock replaces the clock used to timestamp raised events.
func WithClock(clock cqrs.Clock) Option {
	return func(u *User) { u.SetClock(clock) }
}

// New creates an empty user aggregate, ready for Reconstitute or Register.
func New(id string, opts ...Option) *User {
	u := &User{
		AggregateBase: cqrs.NewAggregateBase(id, AggregateType),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Email returns the registered email address.
func (u *User) Email() string { return u.email }

// Name returns the registered display name.
func (u *User) Name() string { return u.name }

// HashedPassword returns the stored password hash.
func (u *User) HashedPassword() string { return u.hashedPassword }

// Registered reports whether the account exists.
func (u *User) Registered() bool { return u.registered }

// Register creates a new account. The password must already be hashed; the
// aggregate never sees plaintext credentials. Validation failures leave the
// aggregate untouched.
func Register(id, email, hashedPassword, name, dateOfBirth string, opts ...Option) (*User, error) {
	u := New(id, opts...)
	if err := u.register(email, hashedPassword, name, dateOfBirth); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *User) register(email, hashedPassword, name, dateOfBirth string) error {
	if u.registered {
		return errAlreadyRegistered
	}
	if email == "" {
		return errors.New("email must not be empty")
	}
	if hashedPassword == "" {
		return errors.New("hashed password must not be empty")
	}
	if name == "" {
		return errors.New("name must not be empty")
	}
	if _, err := time.Parse(dateOfBirthLayout, dateOfBirth); err != nil {
		return fmt.Errorf("date of birth must be in %s format: %w", dateOfBirthLayout, err)
	}

	u.raise(WasRegistered{
		UserID:         u.EntityID(),
		Email:          email,
		HashedPassword: hashedPassword,
		Name:           name,
		DateOfBirth:    dateOfBirth,
	})
	return nil
}

// Login authenticates the account against the given plaintext password. A
// successful attempt raises LoggedIn; a failed one raises nothing and
// returns ErrCouldNotAuthenticate.
func (u *User) Login(password string, verifier PasswordVerifier) error {
	if !u.registered {
		return ErrCouldNotAuthenticate
	}
	if !verifier.Verify(u.hashedPassword, password) {
		return ErrCouldNotAuthenticate
	}

	u.raise(LoggedIn{UserID: u.EntityID()})
	return nil
}

// raise buffers the event for persistence and immediately folds it into
// derived state, so subsequent decisions in the same command see it.
func (u *User) raise(event cqrs.Event, options ...cqrs.EventOption) {
	u.Record(event, options...)
	u.ApplyEvent(event)
}

// ApplyEvent folds a single event into the aggregate state. The switch is
// exhaustive over the user event variants; an unknown variant means the
// stream is corrupt or the codec registration is out of sync, and there is
// no safe way to continue.
func (u *User) ApplyEvent(event cqrs.Event) {
	switch e := event.(type) {
	case WasRegistered:
		u.registered = true
		u.email = e.Email
		u.hashedPassword = e.HashedPassword
		u.name = e.Name
		u.dateOfBirth = e.DateOfBirth
	case LoggedIn:
		// No derived state changes; the event exists for listeners and audit.
	default:
		panic(fmt.Sprintf("user aggregate cannot apply event of type %T", event))
	}
}
