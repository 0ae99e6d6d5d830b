package user

import (
	"context"
	"strings"
	"sync"

	cqrs "github.com/devbanana/weight-log-api-sub000"
)

// EmailIndex is an in-memory projection from email address to user id.
// It backs email uniqueness checks during registration and account lookup
// during login. Lookups are case-insensitive.
//
// The index is maintained by subscribing its Handler to the dispatching
// store, so it is updated only after registration events are durably
// committed. Applying the same event twice is a no-op.
type EmailIndex struct {
	mu    sync.RWMutex
	byKey map[string]string
}

func NewEmailIndex() *EmailIndex {
	return &EmailIndex{
		byKey: make(map[string]string),
	}
}

// Handler returns the event handler that keeps the index current. Events
// other than registrations are skipped.
func (idx *EmailIndex) Handler() cqrs.EventHandler {
	return cqrs.NewEventGroupProcessor(
		cqrs.OnEvent(idx.onRegistered),
	)
}

func (idx *EmailIndex) onRegistered(_ context.Context, ev WasRegistered) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byKey[emailKey(ev.Email)] = ev.UserID
	return nil
}

// UserIDByEmail returns the user id registered under the given email.
func (idx *EmailIndex) UserIDByEmail(email string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.byKey[emailKey(email)]
	return id, ok
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
