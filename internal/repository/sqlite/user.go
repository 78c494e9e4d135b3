package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/ohaline/ohaline/internal/apperror"
	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, line_user_id, line_display_name, line_picture_url,
	line_messaging_id, link_token, link_token_expires_at,
	notification_time, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var (
		u         model.User
		msgID     sql.NullString
		token     sql.NullString
		expiresAt sql.NullTime
	)
	err := row.Scan(
		&u.ID,
		&u.LineUserID,
		&u.LineDisplayName,
		&u.LinePictureURL,
		&msgID,
		&token,
		&expiresAt,
		&u.NotificationTime,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if msgID.Valid {
		u.LineMessagingID = &msgID.String
	}
	if token.Valid {
		u.LinkToken = &token.String
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		u.LinkTokenExpiresAt = &t
	}
	return &u, nil
}

// Upsert inserts a user on first login or refreshes the profile fields
// on a repeat login. The lookup key is line_user_id; the internal ID is
// kept stable across logins.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	var existingID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT id FROM users WHERE line_user_id = ?`, user.LineUserID,
	).Scan(&existingID)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("sqlite: looking up user by line_user_id %s: %w", user.LineUserID, err)
	}

	if existingID != "" {
		// Display name and picture may have changed on the LINE side.
		user.ID = existingID
		user.UpdatedAt = time.Now()
		_, err = db.conn.ExecContext(ctx,
			`UPDATE users SET line_display_name = ?, line_picture_url = ?, updated_at = ?
			 WHERE id = ?`,
			user.LineDisplayName,
			user.LinePictureURL,
			user.UpdatedAt,
			user.ID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
		}
		// Re-read so the caller sees the persisted linkage and
		// notification-time state, not just the profile fields.
		fresh, err := db.GetUserByID(ctx, user.ID)
		if err != nil {
			return err
		}
		*user = *fresh
		return nil
	}

	now := time.Now()
	user.ID = xid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.NotificationTime == "" {
		user.NotificationTime = model.DefaultNotificationTime
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO users (id, line_user_id, line_display_name, line_picture_url,
			notification_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		user.LineUserID,
		user.LineDisplayName,
		user.LinePictureURL,
		user.NotificationTime,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: inserting user (lineUserID=%s): %w", user.LineUserID, err)
	}
	return nil
}

// GetUserByID retrieves a user by internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByMessagingID retrieves the user bound to a messaging identity.
func (db *DB) GetByMessagingID(ctx context.Context, messagingID string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE line_messaging_id = ?`, messagingID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", messagingID)
		}
		return nil, fmt.Errorf("sqlite: getting user by messaging id %s: %w", messagingID, err)
	}
	return u, nil
}

// SetLinkToken stores a fresh token+expiry pair on the user row,
// overwriting whatever token was there before.
func (db *DB) SetLinkToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET link_token = ?, link_token_expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		token, expiresAt, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting link token for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: setting link token for user %s: %w", userID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// FindByLinkToken resolves an unexpired token without consuming it.
// Unknown and expired tokens are indistinguishable to the caller.
func (db *DB) FindByLinkToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE link_token = ? AND link_token_expires_at >= ?`,
		token, now,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("link token", token)
		}
		return nil, fmt.Errorf("sqlite: finding user by link token: %w", err)
	}
	return u, nil
}

// ConsumeLinkToken binds messagingID and clears the token in one
// conditional UPDATE. The WHERE clause carries the whole validity check,
// so two concurrent presentations of the same token cannot both win:
// the second one matches zero rows and gets ErrNotFound.
func (db *DB) ConsumeLinkToken(ctx context.Context, token, messagingID string, now time.Time) (*model.User, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET line_messaging_id = ?, link_token = NULL, link_token_expires_at = NULL, updated_at = ?
		 WHERE link_token = ? AND link_token_expires_at >= ?`,
		messagingID, now, token, now,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: consuming link token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: consuming link token: %w", err)
	}
	if n == 0 {
		return nil, apperror.NotFound("link token", token)
	}
	return db.GetByMessagingID(ctx, messagingID)
}

// FindUnlinkedByLineUserID finds a user by login identity who has no
// messaging identity yet. Used by the auto-match path on follow.
func (db *DB) FindUnlinkedByLineUserID(ctx context.Context, lineUserID string) (*model.User, error) {
	u, err := scanUser(db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE line_user_id = ? AND line_messaging_id IS NULL`,
		lineUserID,
	))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("user", lineUserID)
		}
		return nil, fmt.Errorf("sqlite: finding unlinked user %s: %w", lineUserID, err)
	}
	return u, nil
}

// SetMessagingID binds a messaging identity to the user and clears any
// pending token material.
func (db *DB) SetMessagingID(ctx context.Context, userID, messagingID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users
		 SET line_messaging_id = ?, link_token = NULL, link_token_expires_at = NULL, updated_at = ?
		 WHERE id = ?`,
		messagingID, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting messaging id for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: setting messaging id for user %s: %w", userID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// ClearMessagingID unlinks whichever user holds messagingID. A miss is a
// no-op: unfollow events arrive for contacts we never linked.
func (db *DB) ClearMessagingID(ctx context.Context, messagingID string) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET line_messaging_id = NULL, updated_at = ?
		 WHERE line_messaging_id = ?`,
		time.Now(), messagingID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: clearing messaging id %s: %w", messagingID, err)
	}
	return nil
}

// SetNotificationTime updates the user's delivery slot.
func (db *DB) SetNotificationTime(ctx context.Context, userID, hhmm string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET notification_time = ?, updated_at = ? WHERE id = ?`,
		hhmm, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting notification time for user %s: %w", userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: setting notification time for user %s: %w", userID, err)
	}
	if n == 0 {
		return apperror.NotFound("user", userID)
	}
	return nil
}

// ListDue returns linked users whose notification time equals the slot.
// The non-null messaging id predicate is what makes unfollow immediately
// disable scheduled delivery.
func (db *DB) ListDue(ctx context.Context, hhmm string) ([]model.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE notification_time = ? AND line_messaging_id IS NOT NULL
		 ORDER BY created_at`,
		hhmm,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing due users for %s: %w", hhmm, err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning due user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: listing due users for %s: %w", hhmm, err)
	}
	return users, nil
}
