package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"wanderplan/internal/middleware"
	"wanderplan/internal/models"
	"wanderplan/internal/planner"
)

// qrSize is the edge length of share-link QR codes in pixels.
const qrSize = 256

// Shares groups the share-link handlers.
type Shares struct {
	svc     *planner.Service
	baseURL string
}

// NewShares creates the share handler group. baseURL prefixes the public
// share links handed back to owners.
func NewShares(svc *planner.Service, baseURL string) *Shares {
	return &Shares{svc: svc, baseURL: strings.TrimRight(baseURL, "/")}
}

// shareResponse is a token as shown to its owner, with its public URL.
type shareResponse struct {
	models.ShareToken
	URL string `json:"url"`
}

func (h *Shares) shareURL(token string) string {
	return h.baseURL + "/share/" + token
}

type shareRequest struct {
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Create issues a new share link for a preset the caller owns. The body is
// optional.
func (h *Shares) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req shareRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	t, err := h.svc.Share(r.Context(), middleware.CallerID(r.Context()), id, planner.ShareOptions{ExpiresAt: req.ExpiresAt})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	slog.Info("share link issued", "preset_id", id, "expires_at", t.ExpiresAt)
	writeJSON(w, http.StatusCreated, shareResponse{ShareToken: *t, URL: h.shareURL(t.Token)})
}

// List returns every share link issued for a preset, revoked ones included.
func (h *Shares) List(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	tokens, err := h.svc.ListShares(r.Context(), middleware.CallerID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]shareResponse, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, shareResponse{ShareToken: t, URL: h.shareURL(t.Token)})
	}
	writeJSON(w, http.StatusOK, out)
}

// Revoke disables a share link.
func (h *Shares) Revoke(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := h.svc.RevokeShare(r.Context(), middleware.CallerID(r.Context()), token); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve returns the preset behind a share link. No session is needed.
func (h *Shares) Resolve(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ResolveShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, p)
}

// QRCode renders the share link as a PNG QR code. Dead links get 404 so a
// code is never printed for a link that no longer works.
func (h *Shares) QRCode(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if _, err := h.svc.ResolveShared(r.Context(), token); err != nil {
		writeServiceError(w, r, err)
		return
	}

	png, err := qrcode.Encode(h.shareURL(token), qrcode.Medium, qrSize)
	if err != nil {
		slog.Error("qr code generation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
