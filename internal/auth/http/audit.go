package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/voltex/internal/auth/domain"
	"github.com/aussiebroadwan/voltex/internal/auth/service"
	"github.com/aussiebroadwan/voltex/pkg/authsdk"
	"github.com/aussiebroadwan/voltex/pkg/httpx"
)

const maxAuditPageSize = 200

type AuditHandler struct {
	Audit *service.AuditService
}

// ServeHTTP handles GET /api/audit
//
//	@Summary		List audit entries
//	@Description	Newest audit entries of the caller's organization, or the caller's own entries without one.
//	@Tags			Audit
//	@Security		BearerAuth
//	@Produce		json
//	@Param			action	query		string	false	"Only entries with this action"
//	@Param			limit	query		int		false	"Page size, 1-200 (default 50)"
//	@Success		200		{object}	authsdk.AuditListResponse
//	@Failure		400		{object}	httpx.ErrorResponse	"Invalid query"
//	@Failure		401		{object}	httpx.ErrorResponse	"Missing or invalid token"
//	@Failure		403		{object}	httpx.ErrorResponse	"Missing audit:read"
//	@Router			/api/audit [get].
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, httpx.MsgAuthRequired)
		return
	}

	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxAuditPageSize {
			httpx.WriteError(w, http.StatusBadRequest, "limit: must be between 1 and 200")
			return
		}
		limit = n
	}

	entries, err := h.Audit.ListForPrincipal(r.Context(), p, domain.AuditAction(q.Get("action")), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := authsdk.AuditListResponse{Entries: make([]authsdk.AuditEntryView, 0, len(entries))}
	for _, e := range entries {
		out.Entries = append(out.Entries, auditView(e))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
