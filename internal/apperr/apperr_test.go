package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("offer")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("nope")))
	assert.Equal(t, KindInvalidState, KindOf(InvalidState("already accepted")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindConflict, KindOf(Conflict("duplicate")))

	// Wrapped causes keep their tag through fmt wrapping.
	wrapped := fmt.Errorf("outer: %w", NotFound("request"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))

	// Untagged errors default to internal.
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindInternal, cause, "query failed")
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "query failed")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindNotFound:     http.StatusNotFound,
		KindForbidden:    http.StatusForbidden,
		KindUnauthorized: http.StatusUnauthorized,
		KindInvalidState: http.StatusUnprocessableEntity,
		KindValidation:   http.StatusBadRequest,
		KindConflict:     http.StatusConflict,
		KindInternal:     http.StatusInternalServerError,
		Kind("unknown"):  http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind), string(kind))
	}
}

func TestRespond(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/offers/abc/accept", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Respond(c, InvalidState("offer is not pending")))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INVALID_STATE"`)
	assert.Contains(t, rec.Body.String(), "offer is not pending")
}

func TestRespondHidesInternalCause(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/payments", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, Respond(c, errors.New("pq: password authentication failed")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"INTERNAL"`)
	assert.False(t, strings.Contains(rec.Body.String(), "password"))
}
