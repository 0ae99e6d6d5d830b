package user

import (
	"context"

	cqrs "github.com/devbanana/weight-log-api-sub000"
)

// UserIDByEmail asks for the id of the account registered under an email
// address.
type UserIDByEmail struct {
	Email string
}

// UserIDResult is the answer to UserIDByEmail. Found is false when no
// account owns the address.
type UserIDResult struct {
	UserID string
	Found  bool
}

// RegisterQueries wires the user read-side queries onto the bus, backed by
// the email index.
func RegisterQueries(bus *cqrs.QueryBus, index *EmailIndex) {
	cqrs.RegisterQueryHandler(bus, cqrs.NewQueryHandlerFunc(
		func(ctx context.Context, q UserIDByEmail) (UserIDResult, error) {
			id, ok := index.UserIDByEmail(q.Email)
			return UserIDResult{UserID: id, Found: ok}, nil
		},
	))
}
