package handler

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ohaline/ohaline/internal/auth"
	"github.com/ohaline/ohaline/internal/service"
)

// LinkHandler exposes the account-linking web surface: token issuance
// for the logged-in user and the human-facing verify page behind the
// link URL.
type LinkHandler struct {
	links      *service.LinkService
	botBasicID string // e.g. "@123abcd", used for the add-friend link
	logger     *slog.Logger
}

func NewLinkHandler(links *service.LinkService, botBasicID string, logger *slog.Logger) *LinkHandler {
	return &LinkHandler{
		links:      links,
		botBasicID: botBasicID,
		logger:     logger,
	}
}

// HandleGenerate issues a fresh link token for the session user.
//
// POST /api/link/generate (auth required)
//
// Reissuing is always allowed; the newest token is the only live one.
func (h *LinkHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		return
	}

	info, err := h.links.IssueLinkToken(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// HandleVerifyPage renders the page behind the link URL. It only
// confirms validity and walks the user through pasting the token into
// the chat; verification never consumes the token, so reloading is
// harmless.
//
// GET /link/verify/{token}
func (h *LinkHandler) HandleVerifyPage(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if !h.links.VerifyToken(r.Context(), token) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, verifyErrorPage)
		return
	}

	addFriendURL := "https://line.me/R/ti/p/" + h.botBasicID
	fmt.Fprintf(w, verifyOKPage, html.EscapeString(addFriendURL), html.EscapeString(token))
}

const verifyOKPage = `<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>OhaLINE アカウント連携</title></head>
<body>
<h1>トークンは有効です</h1>
<p>LINEでボットを友達追加して、以下のメッセージをトークに送信してください。</p>
<p><a href="%s">ボットを友達追加する</a></p>
<pre>LINK:%s</pre>
<p>トークンの有効期限は発行から10分間です。</p>
</body>
</html>
`

const verifyErrorPage = `<!DOCTYPE html>
<html lang="ja">
<head><meta charset="utf-8"><title>OhaLINE アカウント連携</title></head>
<body>
<h1>トークンが無効です</h1>
<p>連携トークンが見つからないか、有効期限が切れています。</p>
<p>Webアプリに戻って新しいトークンを発行してください。</p>
</body>
</html>
`
