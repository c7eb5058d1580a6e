package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dealdesk/dealdesk/internal/deals"
	"github.com/dealdesk/dealdesk/internal/platform/httpx"
	"github.com/dealdesk/dealdesk/internal/shared"
)

// Lister is the slice of the deal store the deriver needs.
type Lister interface {
	ListByOwner(ctx context.Context, ownerID string) ([]deals.DealWithContact, error)
}

// Handler serves the derived notification feed.
type Handler struct {
	logger *slog.Logger
	lister Lister
	now    func() time.Time
}

// NewHandler builds the notifications handler.
func NewHandler(logger *slog.Logger, lister Lister) *Handler {
	return &Handler{
		logger: logger,
		lister: lister,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// MountRoutes registers notification routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	list, err := h.lister.ListByOwner(r.Context(), owner)
	if err != nil {
		h.logger.Error("list deals for notifications", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	items := Derive(list, h.now())
	if items == nil {
		items = []Notification{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": items})
}
