package reporting

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aura-webinar/engagement/internal/apperr"
	"github.com/aura-webinar/engagement/internal/models"
)

// CSVHeader is the fixed column order of the lead score export.
const CSVHeader = "email,name,total,engagement,watch-time,interaction,attended,watched-replay,registered-at,last-calculated-at"

// Export writes the full leaderboard, capped at the configured row limit, as CSV to w.
func (r *Reporter) Export(ctx context.Context, webinarID uuid.UUID, w io.Writer) (int, error) {
	entries, err := r.store.Leaderboard(ctx, webinarID, r.maxRows, 0, nil)
	if err != nil {
		return 0, apperr.Unavailable("load leaderboard for export", err)
	}
	if err := WriteCSV(w, entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// WriteCSV renders entries with a header row. Text fields are always quoted with embedded
// quotes doubled; numbers and booleans are bare.
func WriteCSV(w io.Writer, entries []models.LeaderboardEntry) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(CSVHeader + "\n"); err != nil {
		return err
	}
	for i := range entries {
		if _, err := bw.WriteString(csvLine(&entries[i])); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func csvLine(e *models.LeaderboardEntry) string {
	fields := []string{
		quoteCSV(e.Email),
		quoteCSV(e.FullName),
		strconv.Itoa(e.TotalScore),
		strconv.Itoa(e.EngagementScore),
		strconv.Itoa(e.WatchTimeScore),
		strconv.Itoa(e.InteractionScore),
		strconv.FormatBool(e.Attended),
		strconv.FormatBool(e.WatchedReplay),
		quoteCSV(e.RegisteredAt.UTC().Format(time.RFC3339)),
		quoteCSV(e.LastCalculatedAt.UTC().Format(time.RFC3339)),
	}
	return strings.Join(fields, ",") + "\n"
}

func quoteCSV(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
