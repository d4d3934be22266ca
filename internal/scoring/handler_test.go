package scoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRouter(store ConfigStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(store, nil)
	r := gin.New()
	r.GET("/organizations/:id/scoring-config", h.Get)
	r.PUT("/organizations/:id/scoring-config", h.Update)
	return r
}

type configBody struct {
	Success bool `json:"success"`
	Data    struct {
		Resolved PointTable `json:"resolved"`
	} `json:"data"`
}

func TestHandlerGetDefaults(t *testing.T) {
	r := newRouter(newMemStore())
	req := httptest.NewRequest(http.MethodGet, "/organizations/"+uuid.NewString()+"/scoring-config", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body configBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Resolved != Defaults {
		t.Fatalf("resolved = %+v", body.Data.Resolved)
	}
}

func TestHandlerUpdateThenGet(t *testing.T) {
	store := newMemStore()
	r := newRouter(store)
	tenant := uuid.New()

	req := httptest.NewRequest(http.MethodPut, "/organizations/"+tenant.String()+"/scoring-config",
		strings.NewReader(`{"cta_click":9,"milestone_100":50}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if store.configs[tenant] == nil {
		t.Fatalf("expected config row to be created")
	}

	req = httptest.NewRequest(http.MethodGet, "/organizations/"+tenant.String()+"/scoring-config", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body configBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Resolved.CTAClick != 9 || body.Data.Resolved.Milestone100 != 50 {
		t.Fatalf("resolved = %+v", body.Data.Resolved)
	}
	if body.Data.Resolved.ChatMessage != Defaults.ChatMessage {
		t.Fatalf("chat_message should keep default, got %d", body.Data.Resolved.ChatMessage)
	}
}

func TestHandlerUpdateRejectsNegative(t *testing.T) {
	r := newRouter(newMemStore())
	req := httptest.NewRequest(http.MethodPut, "/organizations/"+uuid.NewString()+"/scoring-config",
		strings.NewReader(`{"reaction":-1}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandlerInvalidTenantID(t *testing.T) {
	r := newRouter(newMemStore())
	req := httptest.NewRequest(http.MethodGet, "/organizations/not-a-uuid/scoring-config", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
