// Package model defines the data structures used throughout the application.
package model

import "time"

// Notification defaults. Times are wall-clock "HH:MM" strings on a
// 30-minute grid, evaluated in the server's pinned notification zone.
const DefaultNotificationTime = "08:00"

// User correlates three loosely-coupled identities:
//
//   - LineUserID: the LINE Login identity asserted by the web OAuth flow.
//     Set at first login, unique, never cleared.
//   - LineMessagingID: the Messaging API identity the bot pushes to.
//     Nil until the user links their chat account; unique while set;
//     cleared again when the user blocks (unfollows) the bot.
//   - ID: our own xid, so primary keys don't ride on LINE's numbering.
//
// LinkToken and LinkTokenExpiresAt are set and cleared together: a
// non-nil token always carries an expiry, and expiry is enforced as a
// query-time predicate rather than a background sweep. Once a user is
// linked the token material is cleared and irrelevant.
type User struct {
	ID                 string     `json:"id"`
	LineUserID         string     `json:"lineUserId"`
	LineDisplayName    string     `json:"lineDisplayName"`
	LinePictureURL     string     `json:"linePictureUrl"`
	LineMessagingID    *string    `json:"lineMessagingId"`
	LinkToken          *string    `json:"-"`
	LinkTokenExpiresAt *time.Time `json:"-"`
	NotificationTime   string     `json:"notificationTime"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// Linked reports whether the user has a messaging identity bound and can
// therefore receive pushes.
func (u *User) Linked() bool {
	return u.LineMessagingID != nil && *u.LineMessagingID != ""
}
