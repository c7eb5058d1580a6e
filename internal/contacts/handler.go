package contacts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dealdesk/dealdesk/internal/platform/httpx"
	"github.com/dealdesk/dealdesk/internal/shared"
)

// Handler exposes the contact book over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the contacts handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers contact routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/comments", h.listComments)
	r.Post("/{id}/comments", h.addComment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	list, err := h.service.List(r.Context(), owner)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []Contact{}
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"contacts": list,
		"total":    len(list),
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateContactRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	contact, err := h.service.Create(r.Context(), shared.OwnerFromContext(r.Context()), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, contact)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	contact, err := h.service.Get(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contact)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateContactRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	contact, err := h.service.Update(r.Context(), owner, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contact)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	if err := h.service.Delete(r.Context(), owner, chi.URLParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listComments(w http.ResponseWriter, r *http.Request) {
	owner := shared.OwnerFromContext(r.Context())
	list, err := h.service.ListComments(r.Context(), owner, chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if list == nil {
		list = []Comment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"comments": list})
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	owner := shared.OwnerFromContext(r.Context())
	comment, err := h.service.AddComment(r.Context(), owner, chi.URLParam(r, "id"), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, comment)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInUse):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("contacts request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
