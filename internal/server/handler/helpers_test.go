package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/predictbot/internal/domain"
)

func TestWriteDomainErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("guess %s: %w", "abc", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrLifecycleActive, http.StatusConflict},
		{domain.ErrLockHeld, http.StatusConflict},
		{domain.ErrPrecondition, http.StatusBadRequest},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("lifecycle: %w: %w", domain.ErrPrecondition, domain.ErrCooldownActive), http.StatusBadRequest},
		{domain.ErrRejectedByContract, http.StatusUnprocessableEntity},
		{assert.AnError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestParseListOpts(t *testing.T) {
	opts := parseListOpts(httptest.NewRequest(http.MethodGet, "/api/guesses", nil))
	assert.Equal(t, domain.ListOpts{Limit: 50, Offset: 0}, opts)

	opts = parseListOpts(httptest.NewRequest(http.MethodGet, "/api/guesses?limit=10&offset=30", nil))
	assert.Equal(t, domain.ListOpts{Limit: 10, Offset: 30}, opts)

	// Out-of-range values fall back to the bounds.
	opts = parseListOpts(httptest.NewRequest(http.MethodGet, "/api/guesses?limit=9999&offset=-5", nil))
	assert.Equal(t, domain.ListOpts{Limit: 500, Offset: 0}, opts)

	opts = parseListOpts(httptest.NewRequest(http.MethodGet, "/api/guesses?limit=abc", nil))
	assert.Equal(t, 50, opts.Limit)
}
