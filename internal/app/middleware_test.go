package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dealdesk/dealdesk/internal/shared"
)

func TestRequireOwner(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.OwnerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireOwner(next)

	t.Run("rejects requests without the identity header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/deals", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("attaches the owner to context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/deals", nil)
		req.Header.Set(OwnerHeader, "user-42")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-42", seen)
	})
}
