package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/ohaline/ohaline/internal/line"
	"github.com/ohaline/ohaline/internal/service"
)

// maxWebhookBody bounds the request body read for signature checking.
const maxWebhookBody = 1 << 20

// WebhookHandler is the inbound endpoint for the messaging platform.
// The signature is verified over the raw body before any decoding; a
// delivery that authenticates always gets 200, whatever happens to the
// individual events, so the platform does not retry half-processed
// batches.
type WebhookHandler struct {
	channelSecret string
	router        *service.WebhookRouter
	logger        *slog.Logger
}

func NewWebhookHandler(channelSecret string, router *service.WebhookRouter, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		channelSecret: channelSecret,
		router:        router,
		logger:        logger,
	}
}

// HandleWebhook validates, parses, and routes one delivery.
//
// POST /webhook/line
func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("webhook: reading body failed", slog.String("error", err.Error()))
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Line-Signature")
	if !line.ValidateSignature(h.channelSecret, body, signature) {
		h.logger.Warn("webhook: signature validation failed")
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	events, err := line.ParseWebhook(body)
	if err != nil {
		// Authenticated but malformed. Acknowledge anyway; a retry of
		// the same payload cannot do better.
		h.logger.Error("webhook: parsing failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusOK)
		return
	}

	h.router.Route(r.Context(), events)
	w.WriteHeader(http.StatusOK)
}
