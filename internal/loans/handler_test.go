package loans

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, svc)
	return r
}

func TestReturnHandler_InvalidLoanID(t *testing.T) {
	r := newTestRouter(newTestService(&fakeDirectory{}))

	req := httptest.NewRequest(http.MethodPost, "/loans/abc/return", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReturnHandler_ChunkedBodyIsStillBound(t *testing.T) {
	r := newTestRouter(newTestService(&fakeDirectory{}))

	// チャンク転送は ContentLength が -1 になるがボディは読むこと
	body := strings.NewReader(`{"return_date":"31/12/2026"}`)
	req := httptest.NewRequest(http.MethodPost, "/loans/7/return", body)
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "return_date")
}
