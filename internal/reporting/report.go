// Package reporting aggregates lead scores into leaderboards, distributions, summaries and exports.
package reporting

import (
	"context"
	"math"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

const (
	DefaultLimit = 50
	MaxLimit     = 1000
	summaryTop   = 5
)

// Store reads scored registrants of a webinar.
type Store interface {
	// Leaderboard returns entries ordered by total_score DESC, registration_id ASC.
	Leaderboard(ctx context.Context, webinarID uuid.UUID, limit, offset int, minScore *int) ([]models.LeaderboardEntry, error)
	// TotalScores returns the total_score of every scored registrant of the webinar.
	TotalScores(ctx context.Context, webinarID uuid.UUID) ([]int, error)
}

// Bucket is one fixed range of the score distribution. Max is nil for the open-ended bucket.
type Bucket struct {
	Range      string `json:"range"`
	Min        int    `json:"min"`
	Max        *int   `json:"max"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

type bucketRange struct {
	label    string
	min, max int // max < 0 means unbounded
}

var bucketRanges = []bucketRange{
	{"0-10", 0, 10},
	{"11-25", 11, 25},
	{"26-50", 26, 50},
	{"51-100", 51, 100},
	{"101+", 101, -1},
}

// Summary holds aggregate statistics of a webinar's lead scores.
type Summary struct {
	Count  int                       `json:"count"`
	Mean   int                       `json:"mean"`
	Median int                       `json:"median"`
	Max    int                       `json:"max"`
	Min    int                       `json:"min"`
	Top    []models.LeaderboardEntry `json:"top"`
}

// Reporter serves the read side of lead scoring.
type Reporter struct {
	store   Store
	maxRows int
	logger  *zap.Logger
}

// NewReporter creates a reporter. maxRows caps Export.
func NewReporter(store Store, maxRows int, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxRows <= 0 {
		maxRows = 10000
	}
	return &Reporter{store: store, maxRows: maxRows, logger: logger}
}

// Leaderboard returns one page of the ranking. limit 0 means DefaultLimit.
func (r *Reporter) Leaderboard(ctx context.Context, webinarID uuid.UUID, limit, offset int, minScore *int) ([]models.LeaderboardEntry, error) {
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit < 0 || limit > MaxLimit {
		return nil, apperr.Invalid("limit must be between 1 and %d", MaxLimit)
	}
	if offset < 0 {
		return nil, apperr.Invalid("offset must not be negative")
	}
	list, err := r.store.Leaderboard(ctx, webinarID, limit, offset, minScore)
	if err != nil {
		return nil, apperr.Unavailable("load leaderboard", err)
	}
	return list, nil
}

// Distribution buckets every scored registrant. No scored registrants yields an empty list.
func (r *Reporter) Distribution(ctx context.Context, webinarID uuid.UUID) ([]Bucket, error) {
	scores, err := r.store.TotalScores(ctx, webinarID)
	if err != nil {
		return nil, apperr.Unavailable("load scores", err)
	}
	return Distribute(scores), nil
}

// Distribute counts scores into the fixed inclusive ranges.
func Distribute(scores []int) []Bucket {
	out := make([]Bucket, 0, len(bucketRanges))
	if len(scores) == 0 {
		return out
	}
	for _, br := range bucketRanges {
		b := Bucket{Range: br.label, Min: br.min}
		if br.max >= 0 {
			hi := br.max
			b.Max = &hi
		}
		out = append(out, b)
	}
	for _, s := range scores {
		out[bucketIndex(s)].Count++
	}
	for i := range out {
		out[i].Percentage = int(math.Round(float64(out[i].Count) * 100 / float64(len(scores))))
	}
	return out
}

// bucketIndex places a score; negative scores (only possible with negative overrides) land in the first bucket.
func bucketIndex(score int) int {
	for i, br := range bucketRanges {
		if br.max < 0 || score <= br.max {
			return i
		}
	}
	return len(bucketRanges) - 1
}

// Summary returns count, rounded mean and median, extremes and the top entries.
// A webinar without scores returns the all-zero shape.
func (r *Reporter) Summary(ctx context.Context, webinarID uuid.UUID) (*Summary, error) {
	scores, err := r.store.TotalScores(ctx, webinarID)
	if err != nil {
		return nil, apperr.Unavailable("load scores", err)
	}
	sum := Summarize(scores)
	if sum.Count == 0 {
		return sum, nil
	}
	top, err := r.store.Leaderboard(ctx, webinarID, summaryTop, 0, nil)
	if err != nil {
		return nil, apperr.Unavailable("load top entries", err)
	}
	sum.Top = top
	return sum, nil
}

// Summarize computes the numeric part of Summary.
func Summarize(scores []int) *Summary {
	s := &Summary{Top: []models.LeaderboardEntry{}}
	if len(scores) == 0 {
		return s
	}
	sorted := append([]int(nil), scores...)
	sort.Ints(sorted)

	total := 0
	for _, v := range sorted {
		total += v
	}
	n := len(sorted)
	s.Count = n
	s.Mean = int(math.Round(float64(total) / float64(n)))
	if n%2 == 1 {
		s.Median = sorted[n/2]
	} else {
		s.Median = int(math.Round(float64(sorted[n/2-1]+sorted[n/2]) / 2))
	}
	s.Min = sorted[0]
	s.Max = sorted[n-1]
	return s
}
