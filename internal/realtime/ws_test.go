package realtime

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandshakeRejectsMissingToken(t *testing.T) {
	srv := NewServer(NewHub(NewRegistry()), Actions{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, srv.Handshake(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"UNAUTHORIZED"`)
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	srv := NewServer(NewHub(NewRegistry()), Actions{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, srv.Handshake(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandshakeChecksBearerHeader(t *testing.T) {
	// The Authorization header is an accepted alternative to the query param
	// and goes through the same verification.
	srv := NewServer(NewHub(NewRegistry()), Actions{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()

	require.NoError(t, srv.Handshake(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
