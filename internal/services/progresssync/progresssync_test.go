package progresssync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/data/repos"
	"github.com/studylane/studylane-backend/internal/data/repos/testutil"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
)

type testEnv struct {
	engine Engine
	store  *progress.MemoryStore
	db     *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	store := progress.NewMemoryStore()
	engine := NewEngine(store, repos.NewCourseRepo(db, log), repos.NewClassRepo(db, log), log)
	return &testEnv{engine: engine, store: store, db: db}
}

func (e *testEnv) seedUser(t *testing.T, enrolled ...uuid.UUID) *domain.UserRecord {
	t.Helper()
	u := &domain.UserRecord{
		ID:              uuid.New(),
		Email:           uuid.NewString() + "@example.com",
		Username:        "learner-" + uuid.NewString()[:8],
		Role:            "student",
		EnrolledCourses: enrolled,
	}
	if err := e.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

// seedCourse creates one course with a single unit holding n published
// classes, returning the course and the class ids in creation order.
func seedCourse(t *testing.T, db *gorm.DB, published int) (*domain.Course, []uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, db, "Go from scratch")
	unit := testutil.SeedUnit(t, ctx, db, course.ID, 1)
	ids := make([]uuid.UUID, 0, published)
	for i := 0; i < published; i++ {
		class := testutil.SeedClass(t, ctx, db, unit.ID, true)
		ids = append(ids, class.ID)
	}
	return course, ids
}

func TestMarkItemCompletedComputesPercentageAndStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, classIDs := seedCourse(t, env.db, 10)
	u := env.seedUser(t, course.ID)

	var cp *domain.CourseProgress
	var err error
	for _, id := range classIDs[:3] {
		cp, err = env.engine.MarkItemCompleted(ctx, u.ID, course.ID, id, "")
		if err != nil {
			t.Fatalf("MarkItemCompleted: %v", err)
		}
	}
	if cp.Percentage != 30 {
		t.Fatalf("expected 30%%, got %d", cp.Percentage)
	}
	if cp.Status != domain.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", cp.Status)
	}

	for _, id := range classIDs[3:] {
		cp, err = env.engine.MarkItemCompleted(ctx, u.ID, course.ID, id, "")
		if err != nil {
			t.Fatalf("MarkItemCompleted: %v", err)
		}
	}
	if cp.Percentage != 100 {
		t.Fatalf("expected 100%%, got %d", cp.Percentage)
	}
	if cp.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", cp.Status)
	}
}

func TestMarkItemCompletedIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, classIDs := seedCourse(t, env.db, 4)
	u := env.seedUser(t, course.ID)

	first, err := env.engine.MarkItemCompleted(ctx, u.ID, course.ID, classIDs[0], "intro")
	if err != nil {
		t.Fatalf("MarkItemCompleted: %v", err)
	}
	second, err := env.engine.MarkItemCompleted(ctx, u.ID, course.ID, classIDs[0], "intro")
	if err != nil {
		t.Fatalf("MarkItemCompleted (repeat): %v", err)
	}
	if len(second.CompletedItems) != 1 {
		t.Fatalf("expected 1 completed item, got %d", len(second.CompletedItems))
	}
	if second.Percentage != first.Percentage {
		t.Fatalf("repeat changed percentage: %d -> %d", first.Percentage, second.Percentage)
	}
}

func TestMarkItemCompletedRejectsUnknownItem(t *testing.T) {
	env := newTestEnv(t)
	course, _ := seedCourse(t, env.db, 2)
	u := env.seedUser(t, course.ID)

	_, err := env.engine.MarkItemCompleted(context.Background(), u.ID, course.ID, uuid.New(), "")
	if !apierr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMarkItemCompletedRejectsUnpublishedItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, env.db, "drafts")
	unit := testutil.SeedUnit(t, ctx, env.db, course.ID, 1)
	draft := testutil.SeedClass(t, ctx, env.db, unit.ID, false)
	u := env.seedUser(t, course.ID)

	_, err := env.engine.MarkItemCompleted(ctx, u.ID, course.ID, draft.ID, "")
	if !apierr.IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSyncWithNoPublishedClasses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course := testutil.SeedCourse(t, ctx, env.db, "empty course")
	unit := testutil.SeedUnit(t, ctx, env.db, course.ID, 1)
	testutil.SeedClass(t, ctx, env.db, unit.ID, false)
	u := env.seedUser(t, course.ID)

	cp, err := env.engine.Sync(ctx, u.ID, course.ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cp.Percentage != 0 {
		t.Fatalf("expected 0%% for zero denominator, got %d", cp.Percentage)
	}
	if cp.Status != domain.StatusNotStarted {
		t.Fatalf("expected NOT_STARTED, got %s", cp.Status)
	}
}

func TestSyncTracksStructureChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, classIDs := seedCourse(t, env.db, 4)
	u := env.seedUser(t, course.ID)

	for _, id := range classIDs[:2] {
		if _, err := env.engine.MarkItemCompleted(ctx, u.ID, course.ID, id, ""); err != nil {
			t.Fatalf("MarkItemCompleted: %v", err)
		}
	}

	// Publishing two more classes widens the denominator; the stored 50% is
	// stale the moment the rows change and the next sync must repair it.
	unit := testutil.SeedUnit(t, ctx, env.db, course.ID, 2)
	testutil.SeedClass(t, ctx, env.db, unit.ID, true)
	testutil.SeedClass(t, ctx, env.db, unit.ID, true)

	cp, err := env.engine.Sync(ctx, u.ID, course.ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if cp.Percentage != 33 {
		t.Fatalf("expected 33%% (2 of 6), got %d", cp.Percentage)
	}
	if cp.Status != domain.StatusInProgress {
		t.Fatalf("expected IN_PROGRESS, got %s", cp.Status)
	}
}

func TestSyncPrunesMalformedItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, classIDs := seedCourse(t, env.db, 4)
	u := env.seedUser(t, course.ID)

	// Inject corrupted entries: nil item id, empty name, and a duplicate.
	rec, err := env.store.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	rec.CoursesProgress = map[uuid.UUID]*domain.CourseProgress{
		course.ID: {
			CourseID: course.ID,
			Status:   domain.StatusInProgress,
			CompletedItems: []domain.CompletedItem{
				{ItemID: classIDs[0], ItemName: "intro"},
				{ItemID: uuid.Nil, ItemName: "orphan"},
				{ItemID: classIDs[1], ItemName: ""},
				{ItemID: classIDs[0], ItemName: "intro"},
			},
		},
	}
	if err := env.store.PutUser(ctx, rec); err != nil {
		t.Fatalf("PutUser: %v", err)
	}

	cp, err := env.engine.Sync(ctx, u.ID, course.ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if len(cp.CompletedItems) != 1 {
		t.Fatalf("expected malformed items pruned to 1, got %d", len(cp.CompletedItems))
	}
	if cp.Percentage != 25 {
		t.Fatalf("expected 25%%, got %d", cp.Percentage)
	}
}

func TestResetProgress(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, classIDs := seedCourse(t, env.db, 3)
	u := env.seedUser(t, course.ID)

	for _, id := range classIDs {
		if _, err := env.engine.MarkItemCompleted(ctx, u.ID, course.ID, id, ""); err != nil {
			t.Fatalf("MarkItemCompleted: %v", err)
		}
	}
	before := time.Now().UTC()
	cp, err := env.engine.ResetProgress(ctx, u.ID, course.ID)
	if err != nil {
		t.Fatalf("ResetProgress: %v", err)
	}
	if len(cp.CompletedItems) != 0 || cp.Percentage != 0 {
		t.Fatalf("expected empty progress, got %d items at %d%%", len(cp.CompletedItems), cp.Percentage)
	}
	if cp.Status != domain.StatusNotStarted {
		t.Fatalf("expected NOT_STARTED, got %s", cp.Status)
	}
	// Both timestamps restart: the course begins over, it does not resume.
	if cp.StartDate.Before(before) {
		t.Fatalf("start date not reset: %v < %v", cp.StartDate, before)
	}
	if cp.LastAccessDate.Before(before) {
		t.Fatalf("last access date not reset: %v < %v", cp.LastAccessDate, before)
	}
}

func TestSyncPreconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	course, _ := seedCourse(t, env.db, 2)

	_, err := env.engine.Sync(ctx, uuid.New(), course.ID)
	if !apierr.IsNotFound(err) {
		t.Fatalf("unknown user: expected NotFound, got %v", err)
	}

	stranger := env.seedUser(t)
	_, err = env.engine.Sync(ctx, stranger.ID, course.ID)
	if !apierr.Is(err, apierr.CodeFailedPrecondition) {
		t.Fatalf("not enrolled: expected FailedPrecondition, got %v", err)
	}

	ghost := uuid.New()
	enrolled := env.seedUser(t, ghost)
	_, err = env.engine.Sync(ctx, enrolled.ID, ghost)
	if !apierr.IsNotFound(err) {
		t.Fatalf("missing course: expected NotFound, got %v", err)
	}
}

func TestSyncAllRepairsEveryCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	courseA, classA := seedCourse(t, env.db, 2)
	courseB, _ := seedCourse(t, env.db, 3)
	u := env.seedUser(t, courseA.ID, courseB.ID)

	for _, id := range classA {
		if _, err := env.engine.MarkItemCompleted(ctx, u.ID, courseA.ID, id, ""); err != nil {
			t.Fatalf("MarkItemCompleted: %v", err)
		}
	}

	rec, err := env.engine.SyncAll(ctx, u.ID)
	if err != nil {
		t.Fatalf("SyncAll: %v", err)
	}
	if got := rec.CoursesProgress[courseA.ID]; got == nil || got.Status != domain.StatusCompleted {
		t.Fatalf("course A: expected COMPLETED, got %+v", got)
	}
	if got := rec.CoursesProgress[courseB.ID]; got == nil || got.Status != domain.StatusNotStarted {
		t.Fatalf("course B: expected NOT_STARTED, got %+v", got)
	}
}

func TestRecomputeRoundingAndCap(t *testing.T) {
	cp := &domain.CourseProgress{CompletedItems: []domain.CompletedItem{
		{ItemID: uuid.New(), ItemName: "a"},
	}}
	recompute(cp, 3)
	if cp.Percentage != 33 {
		t.Fatalf("1/3: expected 33, got %d", cp.Percentage)
	}

	cp.CompletedItems = append(cp.CompletedItems,
		domain.CompletedItem{ItemID: uuid.New(), ItemName: "b"},
		domain.CompletedItem{ItemID: uuid.New(), ItemName: "c"},
		domain.CompletedItem{ItemID: uuid.New(), ItemName: "d"},
	)
	recompute(cp, 3)
	if cp.Percentage != 100 {
		t.Fatalf("4/3 capped: expected 100, got %d", cp.Percentage)
	}
	if cp.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", cp.Status)
	}

	cp.CompletedItems = nil
	recompute(cp, 0)
	if cp.Percentage != 0 || cp.Status != domain.StatusNotStarted {
		t.Fatalf("0/0: expected 0%% NOT_STARTED, got %d%% %s", cp.Percentage, cp.Status)
	}
}
