package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeDirty struct {
	batches [][]uuid.UUID
	err     error
}

func (f *fakeDirty) PopDirtyWebinars(_ context.Context, _ int64) ([]uuid.UUID, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

type fakeActivity struct {
	ids   []uuid.UUID
	since time.Time
}

func (f *fakeActivity) WebinarsWithEventsSince(_ context.Context, since time.Time) ([]uuid.UUID, error) {
	f.since = since
	return f.ids, nil
}

func TestSweepUnionsDirtyAndActive(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	calc := &fakeCalc{}
	dirty := &fakeDirty{batches: [][]uuid.UUID{{a, b}}}
	activity := &fakeActivity{ids: []uuid.UUID{b, c}}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s := NewSweeper(calc, dirty, activity, time.Minute, time.Hour, nil)
	s.now = func() time.Time { return now }

	if n := s.Sweep(context.Background()); n != 3 {
		t.Fatalf("Sweep = %d, want 3", n)
	}
	if len(calc.recalculated) != 3 {
		t.Fatalf("recalculated = %v", calc.recalculated)
	}
	if !activity.since.Equal(now.Add(-time.Hour)) {
		t.Fatalf("since = %v", activity.since)
	}
}

func TestSweepDrainsFullBatches(t *testing.T) {
	full := make([]uuid.UUID, dirtyBatch)
	for i := range full {
		full[i] = uuid.New()
	}
	tail := []uuid.UUID{uuid.New()}
	calc := &fakeCalc{}
	s := NewSweeper(calc, &fakeDirty{batches: [][]uuid.UUID{full, tail}}, nil, time.Minute, time.Hour, nil)

	if n := s.Sweep(context.Background()); n != dirtyBatch+1 {
		t.Fatalf("Sweep = %d, want %d", n, dirtyBatch+1)
	}
}

func TestSweepContinuesWhenDirtySetFails(t *testing.T) {
	c := uuid.New()
	calc := &fakeCalc{webinarErr: errors.New("one registration failed")}
	s := NewSweeper(calc, &fakeDirty{err: errors.New("redis down")}, &fakeActivity{ids: []uuid.UUID{c}}, time.Minute, time.Hour, nil)

	if n := s.Sweep(context.Background()); n != 1 {
		t.Fatalf("Sweep = %d, want 1", n)
	}
}

func TestRunDisabledReturns(t *testing.T) {
	s := NewSweeper(&fakeCalc{}, &fakeDirty{}, nil, 0, time.Hour, nil)
	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled sweeper did not return")
	}
}
