// Package service contains the business logic layer: login and session
// handling, todo rules, identity linking, event routing for the bot
// webhook, and notification dispatch. Services accept plain values and
// return domain errors; HTTP concerns stay in the handler layer.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/ohaline/ohaline/internal/apperror"
	"github.com/ohaline/ohaline/internal/auth"
	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/repository"
)

// notificationTimePattern accepts wall-clock times on the 30-minute
// grid: "HH:00" or "HH:30".
var notificationTimePattern = regexp.MustCompile(`^(?:[01]\d|2[0-3]):(?:00|30)$`)

// AuthService handles login, sessions, and user profile operations.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	logger *slog.Logger
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// LoginResult is what a completed login produces: the stored user and a
// session token for them.
type LoginResult struct {
	User  *model.User
	Token string
}

// LoginOrRegisterLine upserts the user identified by the LINE Login
// profile and issues a session token. The user row is created on first
// login; repeat logins refresh the display name and picture.
func (s *AuthService) LoginOrRegisterLine(ctx context.Context, profile *auth.LineProfile) (*LoginResult, error) {
	if profile == nil || profile.UserID == "" {
		return nil, apperror.ValidationFailed("profile", "LINE profile is required")
	}

	user := &model.User{
		LineUserID:      profile.UserID,
		LineDisplayName: profile.DisplayName,
		LinePictureURL:  profile.PictureURL,
	}
	if err := s.users.Upsert(ctx, user); err != nil {
		s.logger.Error("login upsert failed",
			slog.String("lineUserID", profile.UserID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("registering user: %w", err)
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing session token: %w", err)
	}

	s.logger.Info("user authenticated",
		slog.String("userID", user.ID),
		slog.String("displayName", user.LineDisplayName),
	)

	return &LoginResult{User: user, Token: token}, nil
}

// ValidateToken verifies a session token and returns the userID inside.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}

// GetUserByID returns a user's profile.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID is required")
	}
	return s.users.GetUserByID(ctx, id)
}

// UpdateNotificationTime sets the user's delivery slot. Only times on
// the 30-minute grid are accepted.
func (s *AuthService) UpdateNotificationTime(ctx context.Context, userID, hhmm string) error {
	if !notificationTimePattern.MatchString(hhmm) {
		return apperror.ValidationFailed("notificationTime",
			"notification time must be HH:00 or HH:30")
	}

	if err := s.users.SetNotificationTime(ctx, userID, hhmm); err != nil {
		return err
	}

	s.logger.Info("notification time updated",
		slog.String("userID", userID),
		slog.String("time", hhmm),
	)
	return nil
}
