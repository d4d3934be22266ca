package watch

import (
	"math"
	"sort"

	"github.com/aura-webinar/engagement/internal/models"
)

// MaxSeconds bounds reported playback positions and durations (about 68 years).
const MaxSeconds = math.MaxInt32

// Percentage returns floor(current/total*100), or 0 when total is not positive.
// The result is capped at math.MaxInt32 so huge ratios cannot overflow int.
func Percentage(currentSeconds, totalDurationSeconds float64) int {
	if totalDurationSeconds <= 0 || currentSeconds <= 0 {
		return 0
	}
	p := math.Floor(currentSeconds / totalDurationSeconds * 100)
	if p > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(p)
}

// NewMilestones returns the canonical milestones at or below percentage that are not in reached, ascending.
func NewMilestones(reached []int, percentage int) []int {
	out := make([]int, 0, len(models.Milestones))
	for _, m := range models.Milestones {
		if m > percentage {
			break
		}
		if !contains(reached, m) {
			out = append(out, m)
		}
	}
	return out
}

// MergeMilestones returns the sorted union of a and b without duplicates.
func MergeMilestones(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	for _, v := range a {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	for _, v := range b {
		if !contains(out, v) {
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}

func contains(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
