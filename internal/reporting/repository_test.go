package reporting

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aura-webinar/engagement/pkg/database"
)

func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, dsn, 4, nil)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)
	if err := database.Migrate(ctx, pool, nil); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}

func seedScore(t *testing.T, pool *pgxpool.Pool, webinarID uuid.UUID, total int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	var regID uuid.UUID
	if err := pool.QueryRow(ctx, `INSERT INTO registrations (webinar_id, email, full_name) VALUES ($1, $2, 'Viewer') RETURNING id`,
		webinarID, uuid.NewString()+"@example.com").Scan(&regID); err != nil {
		t.Fatalf("seed registration: %v", err)
	}
	if _, err := pool.Exec(ctx, `INSERT INTO lead_scores (id, registration_id, total_score, engagement_score, watch_time_score, interaction_score, last_calculated_at)
		VALUES (gen_random_uuid(), $1, $2, 0, $2, 0, $3)`, regID, total, time.Now()); err != nil {
		t.Fatalf("seed score: %v", err)
	}
	return regID
}

func TestRepositoryLeaderboardOrderingAndPaging(t *testing.T) {
	pool := testPool(t)
	repo := NewRepository(pool)
	ctx := context.Background()

	var webinarID uuid.UUID
	if err := pool.QueryRow(ctx, `INSERT INTO webinars (title) VALUES ('Leaderboard') RETURNING id`).Scan(&webinarID); err != nil {
		t.Fatalf("seed webinar: %v", err)
	}
	tiedA := seedScore(t, pool, webinarID, 80)
	tiedB := seedScore(t, pool, webinarID, 80)
	mid := seedScore(t, pool, webinarID, 50)
	seedScore(t, pool, webinarID, 10)
	if tiedB.String() < tiedA.String() {
		tiedA, tiedB = tiedB, tiedA
	}

	all, err := repo.Leaderboard(ctx, webinarID, 10, 0, nil)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("entries = %d, want 4", len(all))
	}
	if all[0].RegistrationID != tiedA || all[1].RegistrationID != tiedB || all[2].RegistrationID != mid {
		t.Fatalf("order = %v %v %v, want ties by registration id then %v", all[0].RegistrationID, all[1].RegistrationID, all[2].RegistrationID, mid)
	}

	minScore := 50
	page, err := repo.Leaderboard(ctx, webinarID, 2, 1, &minScore)
	if err != nil {
		t.Fatalf("filtered page: %v", err)
	}
	if len(page) != 2 || page[0].RegistrationID != tiedB || page[1].RegistrationID != mid {
		t.Fatalf("page = %+v", page)
	}
	page, err = repo.Leaderboard(ctx, webinarID, 2, 3, &minScore)
	if err != nil {
		t.Fatalf("page past filter: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("entries past filtered set = %d", len(page))
	}

	scores, err := repo.TotalScores(ctx, webinarID)
	if err != nil {
		t.Fatalf("total scores: %v", err)
	}
	if len(scores) != 4 || scores[0] != 10 || scores[3] != 80 {
		t.Fatalf("scores = %v", scores)
	}
}
