package rating

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/repos/testutil"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
)

func newTestService(t *testing.T) (Service, *graph.MemoryStore) {
	t.Helper()
	store := graph.NewMemoryStore()
	return NewService(store, testutil.Logger(t)), store
}

func seedGraph(t *testing.T, store *graph.MemoryStore, userCount int) ([]uuid.UUID, uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	users := make([]uuid.UUID, 0, userCount)
	for i := 0; i < userCount; i++ {
		id := uuid.New()
		if err := store.UpsertUserNode(ctx, id, "user"); err != nil {
			t.Fatalf("seed user node: %v", err)
		}
		users = append(users, id)
	}
	courseID := uuid.New()
	if err := store.CreateCourseNode(ctx, courseID); err != nil {
		t.Fatalf("seed course node: %v", err)
	}
	return users, courseID
}

func TestRateRecomputesAggregate(t *testing.T) {
	svc, store := newTestService(t)
	users, courseID := seedGraph(t, store, 3)

	stats := mustRate(t, svc, users, courseID, []int{3, 4, 5})

	if stats.Average != 4.0 {
		t.Fatalf("expected average 4.0, got %v", stats.Average)
	}
	if stats.Count != 3 {
		t.Fatalf("expected count 3, got %d", stats.Count)
	}
	if len(stats.Values) != 3 || len(stats.Raters) != 3 {
		t.Fatalf("expected 3 values and 3 raters, got %d/%d", len(stats.Values), len(stats.Raters))
	}
}

func mustRate(t *testing.T, svc Service, users []uuid.UUID, courseID uuid.UUID, values []int) *domain.CourseRatingStats {
	t.Helper()
	ctx := context.Background()
	var last *domain.CourseRatingStats
	for i, userID := range users {
		stats, err := svc.Rate(ctx, userID, courseID, values[i])
		if err != nil {
			t.Fatalf("Rate: %v", err)
		}
		last = stats
	}
	return last
}

func TestDuplicateRateIsConflict(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedGraph(t, store, 1)

	if _, err := svc.Rate(ctx, users[0], courseID, 5); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	_, err := svc.Rate(ctx, users[0], courseID, 1)
	if !apierr.IsConflict(err) {
		t.Fatalf("expected Conflict, got %v", err)
	}

	// The aggregate must be untouched by the failed attempt.
	stats, err := svc.GetCourseStats(ctx, courseID)
	if err != nil {
		t.Fatalf("GetCourseStats: %v", err)
	}
	if stats.Count != 1 || stats.Average != 5.0 {
		t.Fatalf("aggregate changed by failed rate: %+v", stats)
	}
}

func TestConcurrentRateAdmitsExactlyOne(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedGraph(t, store, 1)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Rate(ctx, users[0], courseID, 4)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !apierr.IsConflict(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly 1 success, got %d", succeeded)
	}

	stats, err := svc.GetCourseStats(ctx, courseID)
	if err != nil {
		t.Fatalf("GetCourseStats: %v", err)
	}
	if stats.Count != 1 {
		t.Fatalf("expected a single edge, got count %d", stats.Count)
	}
}

// Randomized concurrent rate/update/remove sequences from several users.
// Every mutation ends in a full recompute, so whatever interleaving ran, the
// settled aggregate must equal a recount of the surviving edge set: average
// is the mean of the values, count matches values and raters, one edge per
// user at most.
func TestRandomizedMutationsMatchEdgeSet(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedGraph(t, store, 8)

	const opsPerUser = 25
	var wg sync.WaitGroup
	for i, userID := range users {
		wg.Add(1)
		go func(seed int64, userID uuid.UUID) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			// Only this goroutine touches this user's edge, so local
			// existence tracking is exact despite the global interleaving.
			has := false
			for op := 0; op < opsPerUser; op++ {
				value := 1 + r.Intn(5)
				switch r.Intn(3) {
				case 0:
					_, err := svc.Rate(ctx, userID, courseID, value)
					switch {
					case err == nil:
						if has {
							t.Errorf("duplicate rate succeeded for user %s", userID)
						}
						has = true
					case apierr.IsConflict(err):
						if !has {
							t.Errorf("rate without edge: unexpected Conflict")
						}
					default:
						t.Errorf("Rate: %v", err)
					}
				case 1:
					_, err := svc.UpdateRating(ctx, userID, courseID, value)
					if has && err != nil {
						t.Errorf("update with edge: %v", err)
					}
					if !has && !apierr.IsNotFound(err) {
						t.Errorf("update without edge: expected NotFound, got %v", err)
					}
				case 2:
					_, err := svc.RemoveRating(ctx, userID, courseID)
					if has && err != nil {
						t.Errorf("remove with edge: %v", err)
					}
					if !has && !apierr.IsNotFound(err) {
						t.Errorf("remove without edge: expected NotFound, got %v", err)
					}
					has = false
				}
			}
		}(int64(i)+1, userID)
	}
	wg.Wait()
	if t.Failed() {
		t.FailNow()
	}

	edges, err := store.ListCourseRatings(ctx, courseID)
	if err != nil {
		t.Fatalf("ListCourseRatings: %v", err)
	}
	stats, err := svc.GetCourseStats(ctx, courseID)
	if err != nil {
		t.Fatalf("GetCourseStats: %v", err)
	}

	sum := 0
	raters := make(map[uuid.UUID]struct{}, len(edges))
	for _, e := range edges {
		sum += e.Value
		raters[e.UserID] = struct{}{}
	}
	if len(raters) != len(edges) {
		t.Fatalf("a user holds more than one edge: %d edges, %d raters", len(edges), len(raters))
	}
	if stats.Count != int64(len(edges)) {
		t.Fatalf("count %d does not match %d edges", stats.Count, len(edges))
	}
	if len(stats.Values) != len(edges) || len(stats.Raters) != len(edges) {
		t.Fatalf("values/raters out of step with edges: %d/%d vs %d",
			len(stats.Values), len(stats.Raters), len(edges))
	}
	wantAvg := 0.0
	if len(edges) > 0 {
		wantAvg = float64(sum) / float64(len(edges))
	}
	if math.Abs(stats.Average-wantAvg) > 1e-9 {
		t.Fatalf("average %v does not match edge mean %v", stats.Average, wantAvg)
	}
}

func TestUpdateAndRemoveRating(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedGraph(t, store, 2)

	if _, err := svc.Rate(ctx, users[0], courseID, 2); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if _, err := svc.Rate(ctx, users[1], courseID, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	stats, err := svc.UpdateRating(ctx, users[0], courseID, 4)
	if err != nil {
		t.Fatalf("UpdateRating: %v", err)
	}
	if stats.Average != 4.0 || stats.Count != 2 {
		t.Fatalf("after update: expected avg 4.0 count 2, got %+v", stats)
	}

	stats, err = svc.RemoveRating(ctx, users[0], courseID)
	if err != nil {
		t.Fatalf("RemoveRating: %v", err)
	}
	if stats.Average != 4.0 || stats.Count != 1 {
		t.Fatalf("after remove: expected avg 4.0 count 1, got %+v", stats)
	}

	if _, err := svc.RemoveRating(ctx, users[0], courseID); !apierr.IsNotFound(err) {
		t.Fatalf("second remove: expected NotFound, got %v", err)
	}
	if _, err := svc.UpdateRating(ctx, users[0], courseID, 3); !apierr.IsNotFound(err) {
		t.Fatalf("update absent: expected NotFound, got %v", err)
	}
}

func TestRateValidatesValueAndNodes(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedGraph(t, store, 1)

	if _, err := svc.Rate(ctx, users[0], courseID, 0); err == nil {
		t.Fatalf("expected error for value 0")
	}
	if _, err := svc.Rate(ctx, users[0], courseID, 6); err == nil {
		t.Fatalf("expected error for value 6")
	}
	if _, err := svc.Rate(ctx, users[0], uuid.New(), 3); !apierr.IsNotFound(err) {
		t.Fatalf("absent course: expected NotFound, got %v", err)
	}
}

func TestStatsForAbsentCourse(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.GetCourseStats(context.Background(), uuid.New()); !apierr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestZeroEdgeStatsAreZeroValued(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	users, courseID := seedGraph(t, store, 1)

	if _, err := svc.Rate(ctx, users[0], courseID, 5); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if _, err := svc.RemoveRating(ctx, users[0], courseID); err != nil {
		t.Fatalf("RemoveRating: %v", err)
	}
	stats, err := svc.GetCourseStats(ctx, courseID)
	if err != nil {
		t.Fatalf("GetCourseStats: %v", err)
	}
	if stats.Average != 0 || stats.Count != 0 || len(stats.Values) != 0 || len(stats.Raters) != 0 {
		t.Fatalf("expected zero-valued stats, got %+v", stats)
	}
}
