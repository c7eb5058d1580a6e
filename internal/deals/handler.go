package deals

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealdesk/dealdesk/internal/dates"
	"github.com/dealdesk/dealdesk/internal/platform/httpx"
	"github.com/dealdesk/dealdesk/internal/shared"
)

// Handler exposes the deal lifecycle over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the deals handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers deal routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/export.csv", h.exportCSV)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/status", h.changeStatus)
	r.Post("/{id}/convert", h.convert)
	r.Post("/{id}/invoice-status", h.changeInvoiceStatus)
	r.Put("/{id}/due-date", h.setDueDate)
}

func filtersFromQuery(r *http.Request) ListFilters {
	q := r.URL.Query()
	return ListFilters{
		View:          View(q.Get("view")),
		Status:        Status(q.Get("status")),
		InvoiceStatus: InvoiceStatus(q.Get("invoice_status")),
		Amount:        dates.AmountRange(q.Get("amount")),
		Due:           DueWindow(q.Get("due")),
		Search:        q.Get("q"),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	list, err := h.service.List(r.Context(), owner, filtersFromQuery(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"deals": NewListView(list),
		"total": len(list),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateDealRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	deal, err := h.service.Create(r.Context(), shared.OwnerFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewDealView(*deal))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	deal, err := h.service.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDealView(*deal))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateDealRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	deal, err := h.service.Update(r.Context(), owner, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDealView(*deal))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	if err := h.service.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	deal, err := h.service.ChangeProposalStatus(r.Context(), owner, chi.URLParam(r, "id"), Status(req.Status))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDealView(*deal))
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	invoice, err := h.service.ConvertToInvoice(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, NewDealView(*invoice))
}

func (h *Handler) changeInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeInvoiceStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	deal, err := h.service.ChangeInvoiceStatus(r.Context(), owner, chi.URLParam(r, "id"), InvoiceStatus(req.InvoiceStatus))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDealView(*deal))
}

func (h *Handler) setDueDate(w http.ResponseWriter, r *http.Request) {
	var req SetDueDateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	dueDate, err := req.dueDate()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	deal, err := h.service.SetDueDate(r.Context(), owner, chi.URLParam(r, "id"), dueDate)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, NewDealView(*deal))
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	list, err := h.service.List(r.Context(), owner, filtersFromQuery(r))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="deals.csv"`)
	if err := writeDealsCSV(w, list); err != nil {
		h.logger.Error("write deals csv", slog.Any("error", err))
	}
}

// respondError maps the lifecycle error taxonomy onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNotAProposal),
		errors.Is(err, ErrNotAnInvoice),
		errors.Is(err, ErrConversion):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Operation", err.Error())
	default:
		h.logger.Error("deals request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
