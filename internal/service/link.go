package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/ohaline/ohaline/internal/model"
	"github.com/ohaline/ohaline/internal/repository"
)

// linkTokenTTL is the validity window of a link token. Long enough to
// open LINE and paste the token, short enough that a leaked token is
// useless by the time anyone finds it.
const linkTokenTTL = 10 * time.Minute

// LinkService owns the identity-link state machine:
//
//	Unlinked --IssueLinkToken--> TokenIssued --CompleteLink--> Linked
//	Linked --Unlink (unfollow)--> Unlinked
//
// Two protocols converge on CompleteLink: the token typed into the chat
// ("LINK:<token>" message) and the platform-native accountLink callback
// carrying the token as its nonce. AutoMatchFollow is the shortcut for
// platforms where the login and messaging identities are the same id.
type LinkService struct {
	users      repository.UserRepository
	backendURL string
	logger     *slog.Logger
	now        func() time.Time // injectable clock for expiry tests
}

func NewLinkService(users repository.UserRepository, backendURL string, logger *slog.Logger) *LinkService {
	return &LinkService{
		users:      users,
		backendURL: backendURL,
		logger:     logger,
		now:        time.Now,
	}
}

// LinkTokenInfo is what token issuance hands back to the web client.
type LinkTokenInfo struct {
	Token     string    `json:"linkToken"`
	LinkURL   string    `json:"linkUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// IssueLinkToken generates a fresh 128-bit token for the user, valid for
// ten minutes. Any previously issued token for the user is dead the
// moment this persists — one live token per user.
func (s *LinkService) IssueLinkToken(ctx context.Context, userID string) (*LinkTokenInfo, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generating link token: %w", err)
	}
	token := hex.EncodeToString(buf)
	expiresAt := s.now().Add(linkTokenTTL)

	if err := s.users.SetLinkToken(ctx, userID, token, expiresAt); err != nil {
		return nil, fmt.Errorf("storing link token: %w", err)
	}

	s.logger.Info("link token issued", slog.String("userID", userID))

	return &LinkTokenInfo{
		Token:     token,
		LinkURL:   s.backendURL + "/link/verify/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyToken reports whether a token is currently valid. Read-only:
// the confirmation page may check any number of times without consuming
// the token. Unknown and expired tokens both come back false.
func (s *LinkService) VerifyToken(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, err := s.users.FindByLinkToken(ctx, token, s.now())
	return err == nil
}

// ResolveUserByToken returns the user holding an unexpired token,
// without consuming it. apperror.ErrNotFound covers unknown and expired
// alike.
func (s *LinkService) ResolveUserByToken(ctx context.Context, token string) (*model.User, error) {
	return s.users.FindByLinkToken(ctx, token, s.now())
}

// CompleteLink consumes a token and binds the messaging identity, in
// one atomic conditional update. The same expiry predicate as
// VerifyToken applies. Returns apperror.ErrNotFound for an unknown,
// expired, or already-consumed token — including the replay of a
// webhook delivery that already linked, which callers answer with the
// "invalid token" reply rather than an error.
func (s *LinkService) CompleteLink(ctx context.Context, token, messagingID string) (*model.User, error) {
	user, err := s.users.ConsumeLinkToken(ctx, token, messagingID, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("account linked",
		slog.String("userID", user.ID),
		slog.String("messagingID", messagingID),
	)
	return user, nil
}

// AutoMatchFollow links on follow when the inbound chat identity equals
// a stored, still-unlinked login identity. apperror.ErrNotFound means
// no candidate; the caller sends the "log in on the web first" reply.
func (s *LinkService) AutoMatchFollow(ctx context.Context, lineUserID, messagingID string) (*model.User, error) {
	user, err := s.users.FindUnlinkedByLineUserID(ctx, lineUserID)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetMessagingID(ctx, user.ID, messagingID); err != nil {
		return nil, fmt.Errorf("binding messaging id: %w", err)
	}

	s.logger.Info("account linked on follow",
		slog.String("userID", user.ID),
		slog.String("messagingID", messagingID),
	)
	msgID := messagingID
	user.LineMessagingID = &msgID
	return user, nil
}

// Unlink clears the messaging identity on unfollow, immediately
// removing the user from scheduled delivery. Unknown ids are a no-op.
func (s *LinkService) Unlink(ctx context.Context, messagingID string) error {
	if err := s.users.ClearMessagingID(ctx, messagingID); err != nil {
		return fmt.Errorf("unlinking messaging id: %w", err)
	}
	s.logger.Info("messaging id unlinked", slog.String("messagingID", messagingID))
	return nil
}
