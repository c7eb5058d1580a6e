package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealdesk/dealdesk/internal/platform/httpx"
	"github.com/dealdesk/dealdesk/internal/shared"
)

// Handler serves the dashboard overview endpoint.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the dashboard handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/overview", h.overview)
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	period, err := ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	overview, err := h.service.Overview(r.Context(), owner, period)
	if err != nil {
		h.logger.Error("build dashboard overview", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, overview)
}
