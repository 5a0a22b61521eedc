package certificates

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"certscribe/event-portal/event-portal-backend/internal/notifications"
	"certscribe/event-portal/event-portal-backend/internal/roster"
)

func newTestRouter(t *testing.T, mailer notifications.Mailer) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	service, store := newTestService(t, mailer)
	store.SetParticipants([]roster.Participant{
		{Name: "Alice Smith", Email: "alice@example.com"},
	})

	handler := NewHandler(service, store, nil, zap.NewNop())
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestEmailCertificatesWithoutMailer(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/certificates/email", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not configured")
}

func TestDownloadCertificate(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/download?name=Alice+Smith", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Alice_Smith.pdf")
	assert.NotEmpty(t, w.Header().Get("X-Document-Digest"))
}

func TestPreviewCertificateEmptyName(t *testing.T) {
	router := newTestRouter(t, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/preview", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
