package leadscore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/pkg/queue"
)

type fakeJobQueue struct {
	jobs       []queue.RecalcRegistrationPayload
	dirty      []uuid.UUID
	enqueueErr error
	ctxErr     error
}

func (f *fakeJobQueue) EnqueueRegistrationRecalc(ctx context.Context, p queue.RecalcRegistrationPayload) error {
	f.ctxErr = ctx.Err()
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.jobs = append(f.jobs, p)
	return nil
}

func (f *fakeJobQueue) MarkWebinarDirty(_ context.Context, id uuid.UUID) error {
	f.dirty = append(f.dirty, id)
	return nil
}

func TestTriggerEnqueuesAndMarksDirty(t *testing.T) {
	q := &fakeJobQueue{}
	s := NewScheduler(q, nil)
	webinar, reg := uuid.New(), uuid.New()

	s.Trigger(context.Background(), webinar, reg)

	if len(q.jobs) != 1 || q.jobs[0].RegistrationID != reg || q.jobs[0].WebinarID != webinar {
		t.Fatalf("jobs = %+v", q.jobs)
	}
	if len(q.dirty) != 1 || q.dirty[0] != webinar {
		t.Fatalf("dirty = %v", q.dirty)
	}
}

func TestTriggerSurvivesCanceledRequest(t *testing.T) {
	q := &fakeJobQueue{}
	s := NewScheduler(q, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Trigger(ctx, uuid.New(), uuid.New())

	if q.ctxErr != nil {
		t.Fatalf("enqueue saw canceled context: %v", q.ctxErr)
	}
	if len(q.jobs) != 1 {
		t.Fatal("job not enqueued")
	}
}

func TestTriggerSwallowsEnqueueFailure(t *testing.T) {
	q := &fakeJobQueue{enqueueErr: errors.New("redis down")}
	s := NewScheduler(q, nil)
	// must not panic or block
	s.Trigger(context.Background(), uuid.New(), uuid.New())
	if len(q.jobs) != 0 {
		t.Fatal("unexpected job")
	}
}
