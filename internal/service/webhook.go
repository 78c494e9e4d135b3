package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/ohaline/ohaline/internal/apperror"
	"github.com/ohaline/ohaline/internal/line"
)

// linkPrefix is the grammar for a typed-token link submission.
const linkPrefix = "LINK:"

// Pusher is the outbound side of the chat channel. *line.Client
// implements it; tests substitute a fake.
type Pusher interface {
	PushText(ctx context.Context, to, text string) error
	PushTexts(ctx context.Context, to string, texts []string) error
}

// WebhookRouter classifies inbound chat-platform events and drives the
// identity reconciler. Events within one delivery are handled in array
// order; each event is its own failure domain, so one bad event never
// suppresses processing of its siblings.
type WebhookRouter struct {
	links  *LinkService
	pusher Pusher
	logger *slog.Logger
}

func NewWebhookRouter(links *LinkService, pusher Pusher, logger *slog.Logger) *WebhookRouter {
	return &WebhookRouter{
		links:  links,
		pusher: pusher,
		logger: logger,
	}
}

// Route processes one webhook delivery batch.
func (r *WebhookRouter) Route(ctx context.Context, events []line.Event) {
	for _, ev := range events {
		if err := r.routeOne(ctx, ev); err != nil {
			r.logger.Error("webhook event failed",
				slog.String("type", ev.Type),
				slog.String("messagingID", ev.Source.UserID),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (r *WebhookRouter) routeOne(ctx context.Context, ev line.Event) error {
	messagingID := ev.Source.UserID
	if messagingID == "" {
		return nil
	}

	switch ev.Type {
	case line.EventFollow:
		return r.handleFollow(ctx, messagingID)
	case line.EventUnfollow:
		return r.links.Unlink(ctx, messagingID)
	case line.EventMessage:
		return r.handleMessage(ctx, messagingID, ev.Message)
	case line.EventAccountLink:
		return r.handleAccountLink(ctx, messagingID, ev.Link)
	default:
		// Unknown event kinds are ignored without error.
		return nil
	}
}

// handleFollow tries the auto-match path first: on platforms where the
// login identity and the messaging identity are the same external id,
// following the bot is already proof of control of both. Otherwise the
// user is asked to paste a token.
func (r *WebhookRouter) handleFollow(ctx context.Context, messagingID string) error {
	if _, err := r.links.AutoMatchFollow(ctx, messagingID, messagingID); err == nil {
		return r.pusher.PushText(ctx, messagingID, replyLinkSuccess)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return err
	}

	// No unlinked user with that login id. Either they are already
	// linked (greet them) or they have never logged in on the web.
	if _, err := r.links.users.GetByMessagingID(ctx, messagingID); err == nil {
		return r.pusher.PushText(ctx, messagingID, replyFollowLinked)
	}
	return r.pusher.PushText(ctx, messagingID, replyFollowInstruct)
}

// handleMessage treats "LINK:<token>" text as a manual link submission;
// everything else gets the static not-supported reply and causes no
// state change.
func (r *WebhookRouter) handleMessage(ctx context.Context, messagingID string, msg *line.MessageEvent) error {
	if msg == nil || msg.Type != "text" {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	if !strings.HasPrefix(text, linkPrefix) {
		return r.pusher.PushText(ctx, messagingID, replyNotSupported)
	}

	token := strings.TrimSpace(strings.TrimPrefix(text, linkPrefix))
	return r.reconcile(ctx, token, messagingID)
}

// handleAccountLink is the platform-native callback variant: on
// result=="ok" the nonce is the link token, fed into the same
// reconciler entry point as a typed token.
func (r *WebhookRouter) handleAccountLink(ctx context.Context, messagingID string, link *line.LinkEvent) error {
	if link == nil || link.Result != "ok" || link.Nonce == "" {
		return nil
	}
	return r.reconcile(ctx, link.Nonce, messagingID)
}

func (r *WebhookRouter) reconcile(ctx context.Context, token, messagingID string) error {
	if _, err := r.links.CompleteLink(ctx, token, messagingID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// Unknown, expired, or already consumed — including the
			// duplicate delivery of a token that already linked. Reply
			// and move on; this must never abort the batch.
			return r.pusher.PushText(ctx, messagingID, replyLinkInvalid)
		}
		return err
	}
	return r.pusher.PushText(ctx, messagingID, replyLinkSuccess)
}
