package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/clipforge-backend/internal/platform/logger"
)

func verifyRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	h := NewWebhookHandler(log, nil, nil, nil, nil)
	engine := gin.New()
	engine.GET("/youtube-webhook", h.Verify)
	return engine
}

func TestWebhookVerifyEchoesChallenge(t *testing.T) {
	engine := verifyRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/youtube-webhook?hub.mode=subscribe&hub.challenge=XYZ", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if rec.Body.String() != "XYZ" {
		t.Fatalf("body %q, want %q", rec.Body.String(), "XYZ")
	}
}

func TestWebhookVerifyMissingChallenge(t *testing.T) {
	engine := verifyRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/youtube-webhook?hub.mode=subscribe", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status %d, want 400", rec.Code)
	}
}
