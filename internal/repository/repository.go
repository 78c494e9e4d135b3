package repository

import (
	"context"
	"time"

	"github.com/ohaline/ohaline/internal/model"
)

// UserRepository is the persistence boundary for users and their
// identity-link state. Implementations must keep line_messaging_id
// unique among non-null values and must treat link-token expiry as a
// query-time predicate (expired tokens are never matched, never purged).
type UserRepository interface {
	// Upsert creates the user on first login (keyed by LineUserID) or
	// refreshes the profile fields on subsequent logins.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByMessagingID(ctx context.Context, messagingID string) (*model.User, error)

	// SetLinkToken overwrites any previous token for the user; at most
	// one token is live per user at a time.
	SetLinkToken(ctx context.Context, userID, token string, expiresAt time.Time) error
	// FindByLinkToken resolves an unexpired token without consuming it.
	FindByLinkToken(ctx context.Context, token string, now time.Time) (*model.User, error)
	// ConsumeLinkToken atomically binds messagingID to the user holding
	// an unexpired token and clears the token, in a single conditional
	// update. Returns the linked user, or apperror.ErrNotFound when no
	// row matched (unknown token, expired token, or already consumed).
	ConsumeLinkToken(ctx context.Context, token, messagingID string, now time.Time) (*model.User, error)

	// FindUnlinkedByLineUserID finds a user whose login identity matches
	// and who has no messaging identity yet (auto-match on follow).
	FindUnlinkedByLineUserID(ctx context.Context, lineUserID string) (*model.User, error)
	// SetMessagingID binds a messaging identity to the user.
	SetMessagingID(ctx context.Context, userID, messagingID string) error
	// ClearMessagingID unlinks whichever user holds messagingID.
	// Clearing an unknown id is a no-op, not an error.
	ClearMessagingID(ctx context.Context, messagingID string) error

	SetNotificationTime(ctx context.Context, userID, hhmm string) error
	// ListDue returns linked users whose notification time equals the
	// given "HH:MM" slot.
	ListDue(ctx context.Context, hhmm string) ([]model.User, error)
}

// TodoRepository is the persistence boundary for tasks.
type TodoRepository interface {
	Create(ctx context.Context, todo *model.Todo) error
	GetByID(ctx context.Context, id string) (*model.Todo, error)
	ListByUser(ctx context.Context, userID string) ([]model.Todo, error)
	// ListByUserAndDate returns the user's todos for one day, ordered by
	// creation time (the order the notification message uses).
	ListByUserAndDate(ctx context.Context, userID, date string) ([]model.Todo, error)
	SetCompleted(ctx context.Context, id string, completed bool) error
	Delete(ctx context.Context, id string) error
}
