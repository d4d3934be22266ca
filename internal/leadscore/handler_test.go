package leadscore

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/models"
)

func newTestRouter(m *memBackend) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newTestCalculator(m, 1), nil)
	r := gin.New()
	r.POST("/registrations/:id/lead-score/calculate", h.Calculate)
	r.GET("/registrations/:id/lead-score", h.Get)
	r.POST("/webinars/:id/lead-scores/recalculate", h.Recalculate)
	return r
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestHandlerCalculateAndGet(t *testing.T) {
	m := newMemBackend()
	reg := m.add(uuid.New(), regEntry{points: 4, seconds: 125, flags: models.AttendanceFlags{Attended: true}})
	r := newTestRouter(m)

	w := serve(r, http.MethodGet, "/registrations/"+reg.String()+"/lead-score")
	if w.Code != http.StatusNotFound {
		t.Fatalf("get before calculate status=%d", w.Code)
	}
	w = serve(r, http.MethodPost, "/registrations/"+reg.String()+"/lead-score/calculate")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total_score":16`) {
		t.Fatalf("calculate status=%d body=%s", w.Code, w.Body.String())
	}
	w = serve(r, http.MethodGet, "/registrations/"+reg.String()+"/lead-score")
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d", w.Code)
	}
}

func TestHandlerCalculateUnknownRegistration(t *testing.T) {
	r := newTestRouter(newMemBackend())
	w := serve(r, http.MethodPost, "/registrations/"+uuid.NewString()+"/lead-score/calculate")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	w = serve(r, http.MethodPost, "/registrations/nope/lead-score/calculate")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", w.Code)
	}
}

func TestHandlerRecalculate(t *testing.T) {
	m := newMemBackend()
	webinar := uuid.New()
	m.add(webinar, regEntry{points: 1})
	m.add(webinar, regEntry{points: 2})
	r := newTestRouter(m)

	w := serve(r, http.MethodPost, "/webinars/"+webinar.String()+"/lead-scores/recalculate")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"processed":2`) {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
