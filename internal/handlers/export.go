package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"wanderplan/internal/middleware"
	"wanderplan/internal/planner"
)

// Exports groups the PDF export handlers.
type Exports struct {
	svc *planner.Service
}

// NewExports creates the export handler group.
func NewExports(svc *planner.Service) *Exports {
	return &Exports{svc: svc}
}

// PDF streams the PDF of a preset addressed by id or share token. The
// response is written only once the whole document has been rendered.
func (h *Exports) PDF(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.ExportPDF(r.Context(), middleware.CallerID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writePDF(w, exp)
}

// SharedPDF streams the PDF of the preset behind a share link. Only a live
// token resolves here; preset ids are not accepted.
func (h *Exports) SharedPDF(w http.ResponseWriter, r *http.Request) {
	exp, err := h.svc.ExportShared(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writePDF(w, exp)
}

func writePDF(w http.ResponseWriter, exp *planner.Export) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exp.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(exp.Data)))
	w.Header().Set("Cache-Control", "private, no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(exp.Data)
}

// Link archives the PDF and returns a time-limited download URL.
func (h *Exports) Link(w http.ResponseWriter, r *http.Request) {
	link, err := h.svc.ExportLink(r.Context(), middleware.CallerID(r.Context()), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}
