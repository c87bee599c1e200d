package cascade

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/data/repos"
	"github.com/studylane/studylane-backend/internal/data/repos/testutil"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
)

type testEnv struct {
	coord       Coordinator
	db          *gorm.DB
	users       *progress.MemoryStore
	graphStore  *graph.MemoryStore
	courses     repos.CourseRepo
	enrollments repos.EnrollmentRepo
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	users := progress.NewMemoryStore()
	graphStore := graph.NewMemoryStore()
	courses := repos.NewCourseRepo(db, log)
	units := repos.NewUnitRepo(db, log)
	classes := repos.NewClassRepo(db, log)
	enrollments := repos.NewEnrollmentRepo(db, log)
	coord := NewCoordinator(db, users, graphStore, courses, units, classes, enrollments, log)
	return &testEnv{
		coord:       coord,
		db:          db,
		users:       users,
		graphStore:  graphStore,
		courses:     courses,
		enrollments: enrollments,
	}
}

func (e *testEnv) seedUser(t *testing.T) *domain.UserRecord {
	t.Helper()
	u := &domain.UserRecord{
		ID:       uuid.New(),
		Email:    uuid.NewString() + "@example.com",
		Username: "u-" + uuid.NewString()[:8],
		Role:     "student",
	}
	if err := e.users.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed user record: %v", err)
	}
	if err := e.graphStore.UpsertUserNode(context.Background(), u.ID, u.Username); err != nil {
		t.Fatalf("seed user node: %v", err)
	}
	return u
}

func (e *testEnv) enroll(t *testing.T, courseID, userID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	if err := e.enrollments.Create(ctx, nil, courseID, userID); err != nil {
		t.Fatalf("seed enrollment: %v", err)
	}
	u, err := e.users.GetUser(ctx, userID)
	if err != nil || u == nil {
		t.Fatalf("load user: %v", err)
	}
	u.AddEnrolledCourse(courseID)
	u.CoursesProgress = map[uuid.UUID]*domain.CourseProgress{
		courseID: {CourseID: courseID, Status: domain.StatusInProgress, Percentage: 50},
	}
	if err := e.users.PutUser(ctx, u); err != nil {
		t.Fatalf("store enrollment: %v", err)
	}
}

func TestDeleteCourseStripsEveryStore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course := testutil.SeedCourse(t, ctx, env.db, "doomed")
	unit := testutil.SeedUnit(t, ctx, env.db, course.ID, 1)
	testutil.SeedClass(t, ctx, env.db, unit.ID, true)
	if err := env.graphStore.CreateCourseNode(ctx, course.ID); err != nil {
		t.Fatalf("seed course node: %v", err)
	}

	learner := env.seedUser(t)
	env.enroll(t, course.ID, learner.ID)

	instructor := env.seedUser(t)
	if _, err := env.courses.SetInstructor(ctx, nil, course.ID, instructor.ID); err != nil {
		t.Fatalf("set instructor: %v", err)
	}
	rec, _ := env.users.GetUser(ctx, instructor.ID)
	rec.AddInstructorCourse(course.ID)
	if err := env.users.PutUser(ctx, rec); err != nil {
		t.Fatalf("store instructor ref: %v", err)
	}

	if _, err := env.graphStore.CreateRatingEdge(ctx, learner.ID, course.ID, 5); err != nil {
		t.Fatalf("seed rating: %v", err)
	}

	if err := env.coord.DeleteCourse(ctx, course.ID); err != nil {
		t.Fatalf("DeleteCourse: %v", err)
	}

	got, _ := env.users.GetUser(ctx, learner.ID)
	if got.IsEnrolled(course.ID) {
		t.Fatalf("learner still enrolled after cascade")
	}
	if _, ok := got.CoursesProgress[course.ID]; ok {
		t.Fatalf("learner progress entry survived cascade")
	}

	got, _ = env.users.GetUser(ctx, instructor.ID)
	for _, id := range got.InstructorCourses {
		if id == course.ID {
			t.Fatalf("instructor reference survived cascade")
		}
	}

	stats, err := env.graphStore.CourseRatingStats(ctx, course.ID)
	if err != nil || stats != nil {
		t.Fatalf("course node survived cascade: %+v, %v", stats, err)
	}

	row, err := env.courses.GetByID(ctx, nil, course.ID)
	if err != nil || row != nil {
		t.Fatalf("course row survived cascade: %+v, %v", row, err)
	}
	ids, err := env.enrollments.ListUserIDsByCourse(ctx, nil, course.ID)
	if err != nil || len(ids) != 0 {
		t.Fatalf("enrollment rows survived cascade: %v, %v", ids, err)
	}

	if err := env.coord.DeleteCourse(ctx, course.ID); !apierr.IsNotFound(err) {
		t.Fatalf("rerun: expected NotFound, got %v", err)
	}
}

func TestDeleteUserRecomputesOrphanedAggregates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	course := testutil.SeedCourse(t, ctx, env.db, "rated course")
	if err := env.graphStore.CreateCourseNode(ctx, course.ID); err != nil {
		t.Fatalf("seed course node: %v", err)
	}

	doomed := env.seedUser(t)
	bystander := env.seedUser(t)
	env.enroll(t, course.ID, doomed.ID)

	if _, err := env.graphStore.CreateRatingEdge(ctx, doomed.ID, course.ID, 5); err != nil {
		t.Fatalf("seed rating: %v", err)
	}
	if _, err := env.graphStore.CreateRatingEdge(ctx, bystander.ID, course.ID, 3); err != nil {
		t.Fatalf("seed rating: %v", err)
	}
	if _, err := env.graphStore.RecomputeCourseRating(ctx, course.ID); err != nil {
		t.Fatalf("seed recompute: %v", err)
	}

	theirComment := &domain.Comment{ID: uuid.New(), Content: "nice", AuthorID: bystander.ID, CourseID: course.ID}
	if err := env.graphStore.CreateComment(ctx, theirComment); err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	if err := env.graphStore.CreateReactionEdge(ctx, doomed.ID, theirComment.ID, domain.ReactionLike); err != nil {
		t.Fatalf("seed reaction: %v", err)
	}
	if _, _, err := env.graphStore.RecomputeCommentReactions(ctx, theirComment.ID); err != nil {
		t.Fatalf("seed recompute: %v", err)
	}

	ownComment := &domain.Comment{ID: uuid.New(), Content: "mine", AuthorID: doomed.ID, CourseID: course.ID}
	if err := env.graphStore.CreateComment(ctx, ownComment); err != nil {
		t.Fatalf("seed comment: %v", err)
	}

	if err := env.coord.DeleteUser(ctx, doomed.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if got, _ := env.users.GetUser(ctx, doomed.ID); got != nil {
		t.Fatalf("record survived cascade")
	}

	stats, err := env.graphStore.CourseRatingStats(ctx, course.ID)
	if err != nil || stats == nil {
		t.Fatalf("stats read: %+v, %v", stats, err)
	}
	if stats.Count != 1 || stats.Average != 3.0 {
		t.Fatalf("aggregate not recomputed: %+v", stats)
	}

	c, err := env.graphStore.GetComment(ctx, theirComment.ID)
	if err != nil || c == nil {
		t.Fatalf("bystander comment read: %v", err)
	}
	if c.LikeCount != 0 {
		t.Fatalf("reaction counter not recomputed: %d", c.LikeCount)
	}

	if own, _ := env.graphStore.GetComment(ctx, ownComment.ID); own != nil {
		t.Fatalf("authored comment survived cascade")
	}

	ids, err := env.enrollments.ListUserIDsByCourse(ctx, nil, course.ID)
	if err != nil || len(ids) != 0 {
		t.Fatalf("enrollment rows survived cascade: %v, %v", ids, err)
	}

	if err := env.coord.DeleteUser(ctx, doomed.ID); !apierr.IsNotFound(err) {
		t.Fatalf("rerun: expected NotFound, got %v", err)
	}
}
