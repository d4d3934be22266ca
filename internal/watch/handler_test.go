package watch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/middleware"
	"github.com/aura-webinar/engagement/internal/models"
)

type fakeAttendance struct {
	attended, replay []uuid.UUID
}

func (f *fakeAttendance) MarkAttended(_ context.Context, id uuid.UUID) error {
	f.attended = append(f.attended, id)
	return nil
}

func (f *fakeAttendance) MarkWatchedReplay(_ context.Context, id uuid.UUID) error {
	f.replay = append(f.replay, id)
	return nil
}

type countingTrigger struct {
	mu    sync.Mutex
	count int
}

func (c *countingTrigger) Trigger(context.Context, uuid.UUID, uuid.UUID) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

type fakeRegistrations map[uuid.UUID]*models.Registration

func (f fakeRegistrations) GetByID(_ context.Context, id uuid.UUID) (*models.Registration, error) {
	reg, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("registration")
	}
	return reg, nil
}

func (f fakeRegistrations) add(webinarID uuid.UUID, email string) uuid.UUID {
	reg := &models.Registration{ID: uuid.New(), WebinarID: webinarID, Email: email}
	f[reg.ID] = reg
	return reg.ID
}

type testEnv struct {
	router *gin.Engine
	store  *memStore
	regs   fakeRegistrations
	att    *fakeAttendance
	trig   *countingTrigger
}

func setupRouter() (*gin.Engine, *fakeAttendance, *countingTrigger, fakeRegistrations) {
	env := setupRouterAs(middleware.RoleAdmin, "host@example.com")
	return env.router, env.att, env.trig, env.regs
}

func setupRouterAs(role, email string) *testEnv {
	gin.SetMode(gin.TestMode)
	env := &testEnv{store: newMemStore(), regs: fakeRegistrations{}, att: &fakeAttendance{}, trig: &countingTrigger{}}
	tr := NewTracker(env.store, &fakeMilestones{}, nil)
	h := NewHandler(tr, env.store, env.regs, env.att, env.trig, nil)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserRole, role)
		c.Set(middleware.ContextUserEmail, email)
		c.Next()
	})
	r.POST("/webinars/:id/watch/start", h.Start)
	r.GET("/webinars/:id/watch-sessions", h.ListByWebinar)
	r.POST("/watch-sessions/:id/progress", h.Progress)
	r.POST("/watch-sessions/:id/end", h.End)
	env.router = r
	return env
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandlerStartMarksReplay(t *testing.T) {
	r, att, trig, regs := setupRouter()
	webinar := uuid.New()
	reg := regs.add(webinar, "ada@example.com")

	w := do(r, http.MethodPost, "/webinars/"+webinar.String()+"/watch/start",
		`{"registration_id":"`+reg.String()+`","replay":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if len(att.replay) != 1 || att.replay[0] != reg || len(att.attended) != 0 {
		t.Fatalf("attendance = %+v", att)
	}
	if trig.count != 1 {
		t.Fatalf("trigger count = %d", trig.count)
	}
}

func TestHandlerProgressValidation(t *testing.T) {
	r, _, _, _ := setupRouter()

	w := do(r, http.MethodPost, "/watch-sessions/not-a-uuid/progress", `{"current_seconds":1}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status=%d", w.Code)
	}
	w = do(r, http.MethodPost, "/watch-sessions/"+uuid.NewString()+"/progress", `{"total_duration_seconds":10}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing current_seconds status=%d", w.Code)
	}
	w = do(r, http.MethodPost, "/watch-sessions/"+uuid.NewString()+"/progress", `{"current_seconds":1,"total_duration_seconds":10}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown session status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestHandlerProgressAndEnd(t *testing.T) {
	r, _, trig, regs := setupRouter()
	webinar := uuid.NewString()
	reg := regs.add(uuid.MustParse(webinar), "ada@example.com")

	w := do(r, http.MethodPost, "/webinars/"+webinar+"/watch/start", `{"registration_id":"`+reg.String()+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("start status=%d", w.Code)
	}
	id := extractID(t, w.Body.String())

	w = do(r, http.MethodPost, "/watch-sessions/"+id+"/progress", `{"current_seconds":30,"total_duration_seconds":100}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"new_milestones":[25]`) {
		t.Fatalf("progress status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(r, http.MethodPost, "/watch-sessions/"+id+"/end", ``)
	if w.Code != http.StatusOK {
		t.Fatalf("end status=%d", w.Code)
	}
	w = do(r, http.MethodPost, "/watch-sessions/"+id+"/progress", `{"current_seconds":40,"total_duration_seconds":100}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("progress after end status=%d", w.Code)
	}
	// start, milestone progress, end
	if trig.count != 3 {
		t.Fatalf("trigger count = %d", trig.count)
	}

	w = do(r, http.MethodGet, "/webinars/"+webinar+"/watch-sessions", ``)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), id) {
		t.Fatalf("list status=%d body=%s", w.Code, w.Body.String())
	}
}

func extractID(t *testing.T, body string) string {
	t.Helper()
	const marker = `"id":"`
	i := strings.Index(body, marker)
	if i < 0 {
		t.Fatalf("no id in %s", body)
	}
	return body[i+len(marker) : i+len(marker)+36]
}

func TestHandlerStartRejectsRegistrationOfAnotherWebinar(t *testing.T) {
	env := setupRouterAs(middleware.RoleAdmin, "host@example.com")
	foreign := env.regs.add(uuid.New(), "ada@example.com")
	webinar := uuid.NewString()

	w := do(env.router, http.MethodPost, "/webinars/"+webinar+"/watch/start", `{"registration_id":"`+foreign.String()+`"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(env.router, http.MethodPost, "/webinars/"+webinar+"/watch/start", `{"registration_id":"`+uuid.NewString()+`"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown registration status=%d", w.Code)
	}
	if len(env.store.sessions) != 0 || len(env.att.attended) != 0 || env.trig.count != 0 {
		t.Fatalf("side effects for rejected start: sessions=%d attendance=%+v triggers=%d",
			len(env.store.sessions), env.att, env.trig.count)
	}
}

func TestHandlerStartAttendeeOwnership(t *testing.T) {
	env := setupRouterAs(middleware.RoleAttendee, "ada@example.com")
	webinar := uuid.New()
	mine := env.regs.add(webinar, "Ada@Example.com")
	theirs := env.regs.add(webinar, "eve@example.com")

	w := do(env.router, http.MethodPost, "/webinars/"+webinar.String()+"/watch/start", `{"registration_id":"`+theirs.String()+`"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("other attendee's registration status=%d body=%s", w.Code, w.Body.String())
	}
	w = do(env.router, http.MethodPost, "/webinars/"+webinar.String()+"/watch/start", `{"registration_id":"`+mine.String()+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("own registration status=%d body=%s", w.Code, w.Body.String())
	}
}
