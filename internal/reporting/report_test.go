package reporting

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

type memStore struct {
	entries map[uuid.UUID][]models.LeaderboardEntry
	err     error
	limits  []int
}

func newMemStore() *memStore {
	return &memStore{entries: map[uuid.UUID][]models.LeaderboardEntry{}}
}

func (m *memStore) add(webinar uuid.UUID, name string, total int) models.LeaderboardEntry {
	e := models.LeaderboardEntry{
		LeadScore: models.LeadScore{
			ID: uuid.New(), RegistrationID: uuid.New(), TotalScore: total, EngagementScore: total,
			LastCalculatedAt: time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC),
		},
		Email:        name + "@example.com",
		FullName:     name,
		RegisteredAt: time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC),
	}
	m.entries[webinar] = append(m.entries[webinar], e)
	return e
}

func (m *memStore) Leaderboard(_ context.Context, webinarID uuid.UUID, limit, offset int, minScore *int) ([]models.LeaderboardEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.limits = append(m.limits, limit)
	list := make([]models.LeaderboardEntry, 0)
	for _, e := range m.entries[webinarID] {
		if minScore == nil || e.TotalScore >= *minScore {
			list = append(list, e)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].TotalScore != list[j].TotalScore {
			return list[i].TotalScore > list[j].TotalScore
		}
		return list[i].RegistrationID.String() < list[j].RegistrationID.String()
	})
	if offset >= len(list) {
		return []models.LeaderboardEntry{}, nil
	}
	list = list[offset:]
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (m *memStore) TotalScores(_ context.Context, webinarID uuid.UUID) ([]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]int, 0)
	for _, e := range m.entries[webinarID] {
		out = append(out, e.TotalScore)
	}
	return out, nil
}

func TestDistributeBuckets(t *testing.T) {
	scores := []int{0, 10, 11, 25, 26, 50, 51, 100, 101, 5000}
	got := Distribute(scores)
	if len(got) != 5 {
		t.Fatalf("buckets = %d", len(got))
	}
	total := 0
	for _, b := range got {
		if b.Count != 2 {
			t.Errorf("bucket %s count = %d, want 2", b.Range, b.Count)
		}
		if b.Percentage != 20 {
			t.Errorf("bucket %s pct = %d, want 20", b.Range, b.Percentage)
		}
		total += b.Count
	}
	if total != len(scores) {
		t.Fatalf("sum of counts = %d, want %d", total, len(scores))
	}
	if got[4].Max != nil || got[0].Max == nil || *got[0].Max != 10 {
		t.Fatal("unexpected bucket bounds")
	}
}

func TestDistributeRoundsPercentages(t *testing.T) {
	got := Distribute([]int{1, 2, 30})
	if got[0].Percentage != 67 || got[2].Percentage != 33 {
		t.Fatalf("percentages = %d, %d", got[0].Percentage, got[2].Percentage)
	}
}

func TestDistributeEmpty(t *testing.T) {
	got := Distribute(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("got %v, want empty list", got)
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		scores []int
		want   Summary
	}{
		{"odd", []int{3, 1, 2}, Summary{Count: 3, Mean: 2, Median: 2, Max: 3, Min: 1}},
		{"even averaged pair", []int{10, 1, 4, 7}, Summary{Count: 4, Mean: 6, Median: 6, Max: 10, Min: 1}},
		{"single", []int{12}, Summary{Count: 1, Mean: 12, Median: 12, Max: 12, Min: 12}},
		{"mean rounds", []int{1, 2}, Summary{Count: 2, Mean: 2, Median: 2, Max: 2, Min: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Summarize(tt.scores)
			if got.Count != tt.want.Count || got.Mean != tt.want.Mean || got.Median != tt.want.Median ||
				got.Max != tt.want.Max || got.Min != tt.want.Min {
				t.Fatalf("got %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestSummaryAllZeroShape(t *testing.T) {
	r := NewReporter(newMemStore(), 0, nil)
	s, err := r.Summary(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if s.Count != 0 || s.Mean != 0 || s.Median != 0 || s.Max != 0 || s.Min != 0 || s.Top == nil || len(s.Top) != 0 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestSummaryTopFive(t *testing.T) {
	store := newMemStore()
	webinar := uuid.New()
	for i := 0; i < 8; i++ {
		store.add(webinar, "r", i*10)
	}
	r := NewReporter(store, 0, nil)
	s, err := r.Summary(context.Background(), webinar)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(s.Top) != 5 || s.Top[0].TotalScore != 70 || s.Top[4].TotalScore != 30 {
		t.Fatalf("top = %+v", s.Top)
	}
	if s.Max != 70 || s.Min != 0 || s.Median != 35 {
		t.Fatalf("summary = %+v", s)
	}
}

func TestLeaderboardValidationAndFilter(t *testing.T) {
	store := newMemStore()
	webinar := uuid.New()
	store.add(webinar, "a", 5)
	store.add(webinar, "b", 50)
	store.add(webinar, "c", 50)
	r := NewReporter(store, 0, nil)
	ctx := context.Background()

	if _, err := r.Leaderboard(ctx, webinar, MaxLimit+1, 0, nil); !apperr.IsInvalid(err) {
		t.Fatalf("limit: err = %v", err)
	}
	if _, err := r.Leaderboard(ctx, webinar, 10, -1, nil); !apperr.IsInvalid(err) {
		t.Fatalf("offset: err = %v", err)
	}
	floor := 10
	list, err := r.Leaderboard(ctx, webinar, 0, 0, &floor)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("filtered entries = %d", len(list))
	}
	if list[0].RegistrationID.String() > list[1].RegistrationID.String() {
		t.Fatal("ties not ordered by registration id")
	}
	if store.limits[len(store.limits)-1] != DefaultLimit {
		t.Fatalf("limit passed = %d", store.limits[len(store.limits)-1])
	}
}

func TestReporterStorageFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("db down")
	r := NewReporter(store, 0, nil)
	if _, err := r.Distribution(context.Background(), uuid.New()); !apperr.IsUnavailable(err) {
		t.Fatalf("err = %v", err)
	}
}
