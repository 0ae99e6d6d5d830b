package user

import (
	cqrs "github.com/devbanana/weight-log-api-sub000"
)

// Event type discriminators as stored in the event stream. These are wire
// names; renaming a Go type must not change them.
const (
	EventTypeWasRegistered = "UserWasRegistered"
	EventTypeLoggedIn      = "UserLoggedIn"
)

// WasRegistered records the creation of a user account. It carries the
// hashed password, never the plaintext.
type WasRegistered struct {
	UserID         string `json:"userId"`
	Email          string `json:"email"`
	HashedPassword string `json:"hashedPassword"`
	Name           string `json:"name"`
	DateOfBirth    string `json:"dateOfBirth"`
}

func (e WasRegistered) AggregateID() string { return e.UserID }
func (e WasRegistered) EventType() string   { return EventTypeWasRegistered }

// LoggedIn records a successful authentication. Failed attempts produce no
// event at all.
type LoggedIn struct {
	UserID string `json:"userId"`
}

func (e LoggedIn) AggregateID() string { return e.UserID }
func (e LoggedIn) EventType() string   { return EventTypeLoggedIn }

// RegisterEvents registers decoders for every user event on the codec.
// Call once during wiring, before any Load.
func RegisterEvents(codec *cqrs.JSONCodec) {
	codec.Register(EventTypeWasRegistered, cqrs.DecodeJSON[WasRegistered]())
	codec.Register(EventTypeLoggedIn, cqrs.DecodeJSON[LoggedIn]())
}
