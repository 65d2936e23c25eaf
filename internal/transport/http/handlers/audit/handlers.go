package audithandler

import (
	"context"
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"tbscrm/internal/domain/audit"
	"tbscrm/internal/domain/auth"
	"tbscrm/internal/transport/http/api"
	"tbscrm/internal/transport/http/middleware"
	"tbscrm/internal/transport/http/shared"
)

type Service interface {
	Count(ctx context.Context, filter audit.Filter) (int, error)
	List(ctx context.Context, filter audit.Filter, limit, offset int) ([]audit.Log, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequireCapability(auth.PermSettings))
		r.Get("/logs", h.handleListLogs)
		r.Get("/logs/export", h.handleExportLogs)
	})
}

type logPage struct {
	Items []audit.Log `json:"items"`
	shared.PageMeta
}

func filterOf(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     strings.ToUpper(strings.TrimSpace(q.Get("action"))),
		EntityType: strings.TrimSpace(q.Get("entityType")),
		User:       strings.TrimSpace(q.Get("user")),
	}
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	v := shared.NewValidator()
	page := shared.ParsePage(r, 50, 500, v)
	if v.Reject(w, shared.RequestID(r)) {
		return
	}
	filter := filterOf(r)
	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}

	logs, err := h.Service.List(r.Context(), filter, page.Limit, page.Offset)
	if err != nil {
		shared.StoreUnavailable(w, r, "audit list", err)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, logPage{Items: logs, PageMeta: page.Meta(total, len(logs))}, shared.RequestID(r))
}

const exportLimit = 10000

func (h *Handler) handleExportLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Service.List(r.Context(), filterOf(r), exportLimit, 0)
	if err != nil {
		shared.StoreUnavailable(w, r, "audit export", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-logs.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "timestamp", "action", "user", "entity_type", "entity_id", "details", "request_id"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, l := range logs {
		if err := writer.Write([]string{l.ID, l.Timestamp.UTC().Format(time.RFC3339), l.Action, l.User, l.EntityType, l.EntityID, l.Details, l.RequestID}); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
