package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
	"github.com/aura-webinar/engagement/pkg/queue"
)

type fakeCalc struct {
	mu           sync.Mutex
	calcErr      error
	webinarErr   error
	calculated   []uuid.UUID
	recalculated []uuid.UUID
}

func (f *fakeCalc) Calculate(_ context.Context, id uuid.UUID) (*models.LeadScore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calculated = append(f.calculated, id)
	if f.calcErr != nil {
		return nil, f.calcErr
	}
	return &models.LeadScore{RegistrationID: id}, nil
}

func (f *fakeCalc) RecalculateForWebinar(_ context.Context, id uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recalculated = append(f.recalculated, id)
	return 1, f.webinarErr
}

type fakeSource struct {
	mu      sync.Mutex
	jobs    []*queue.Job
	retried []*queue.Job
}

func (f *fakeSource) Dequeue(ctx context.Context, _ time.Duration) (*queue.Job, string, error) {
	f.mu.Lock()
	if len(f.jobs) > 0 {
		job := f.jobs[0]
		f.jobs = f.jobs[1:]
		f.mu.Unlock()
		return job, queue.QueueScoreRecalc, nil
	}
	f.mu.Unlock()
	select {
	case <-ctx.Done():
		return nil, "", ctx.Err()
	case <-time.After(time.Millisecond):
		return nil, "", nil
	}
}

func (f *fakeSource) Retry(_ context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeSource) retriedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retried)
}

func mustJob(t *testing.T, typ queue.JobType, payload any) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(typ, payload)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	return job
}

func TestProcessRegistrationJob(t *testing.T) {
	calc := &fakeCalc{}
	p := NewRecalcProcessor(calc, &fakeSource{}, nil)
	regID := uuid.New()
	job := mustJob(t, queue.JobTypeRecalcRegistration, queue.RecalcRegistrationPayload{WebinarID: uuid.New(), RegistrationID: regID})

	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(calc.calculated) != 1 || calc.calculated[0] != regID {
		t.Fatalf("calculated = %v", calc.calculated)
	}
}

func TestProcessMissingRegistrationDropped(t *testing.T) {
	calc := &fakeCalc{calcErr: apperr.NotFound("registration")}
	p := NewRecalcProcessor(calc, &fakeSource{}, nil)
	job := mustJob(t, queue.JobTypeRecalcRegistration, queue.RecalcRegistrationPayload{RegistrationID: uuid.New()})

	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("Process = %v, want nil", err)
	}
}

func TestProcessRegistrationStoreFailure(t *testing.T) {
	calc := &fakeCalc{calcErr: apperr.Unavailable("sum points", errors.New("conn refused"))}
	p := NewRecalcProcessor(calc, &fakeSource{}, nil)
	job := mustJob(t, queue.JobTypeRecalcRegistration, queue.RecalcRegistrationPayload{RegistrationID: uuid.New()})

	if err := p.Process(context.Background(), job); !apperr.IsUnavailable(err) {
		t.Fatalf("Process = %v, want unavailable", err)
	}
}

func TestProcessWebinarJob(t *testing.T) {
	calc := &fakeCalc{}
	p := NewRecalcProcessor(calc, &fakeSource{}, nil)
	webinarID := uuid.New()
	job := mustJob(t, queue.JobTypeRecalcWebinar, queue.RecalcWebinarPayload{WebinarID: webinarID})

	if err := p.Process(context.Background(), job); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(calc.recalculated) != 1 || calc.recalculated[0] != webinarID {
		t.Fatalf("recalculated = %v", calc.recalculated)
	}
}

func TestProcessUnknownType(t *testing.T) {
	p := NewRecalcProcessor(&fakeCalc{}, &fakeSource{}, nil)
	job := &queue.Job{ID: "x", Type: "recording_upload", Payload: []byte(`{}`)}
	if err := p.Process(context.Background(), job); err == nil {
		t.Fatal("expected error for unknown job type")
	}
}

func TestProcessBadPayload(t *testing.T) {
	p := NewRecalcProcessor(&fakeCalc{}, &fakeSource{}, nil)
	job := &queue.Job{ID: "x", Type: queue.JobTypeRecalcRegistration, Payload: []byte(`not json`)}
	if err := p.Process(context.Background(), job); err == nil {
		t.Fatal("expected unmarshal error")
	}
}

func TestRunRetriesFailedJobs(t *testing.T) {
	calc := &fakeCalc{webinarErr: errors.New("partial failure")}
	src := &fakeSource{jobs: []*queue.Job{
		mustJob(t, queue.JobTypeRecalcWebinar, queue.RecalcWebinarPayload{WebinarID: uuid.New()}),
		mustJob(t, queue.JobTypeRecalcRegistration, queue.RecalcRegistrationPayload{RegistrationID: uuid.New()}),
	}}
	p := NewRecalcProcessor(calc, src, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		calc.mu.Lock()
		n := len(calc.calculated)
		calc.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("jobs not processed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done

	if got := src.retriedCount(); got != 1 {
		t.Fatalf("retried = %d, want 1", got)
	}
}
