// Package cascade coordinates multi-store deletions. There is no distributed
// transaction: each cascade is an ordered list of individually idempotent
// steps, dependent stores first and the authoritative record last, so a crash
// between steps leaves only dangling references that a rerun cleans up. A
// failed step surfaces as a CascadeFailure naming the store and step.
package cascade

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/studylane/studylane-backend/internal/data/graph"
	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/data/repos"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

const casRetries = 5

type Coordinator interface {
	// DeleteCourse removes the course everywhere: learner and instructor
	// references in the progress store, the course subgraph, then the
	// structure rows.
	DeleteCourse(ctx context.Context, courseID uuid.UUID) error
	// DeleteUser removes the user everywhere: their subgraph (recomputing
	// every aggregate their edges fed into), the redis record, then their
	// structure references.
	DeleteUser(ctx context.Context, userID uuid.UUID) error
}

type coordinator struct {
	db          *gorm.DB
	users       progress.Store
	graphStore  graph.Store
	courses     repos.CourseRepo
	units       repos.UnitRepo
	classes     repos.ClassRepo
	enrollments repos.EnrollmentRepo
	log         *logger.Logger
}

func NewCoordinator(
	db *gorm.DB,
	users progress.Store,
	graphStore graph.Store,
	courses repos.CourseRepo,
	units repos.UnitRepo,
	classes repos.ClassRepo,
	enrollments repos.EnrollmentRepo,
	baseLog *logger.Logger,
) Coordinator {
	return &coordinator{
		db:          db,
		users:       users,
		graphStore:  graphStore,
		courses:     courses,
		units:       units,
		classes:     classes,
		enrollments: enrollments,
		log:         baseLog.With("service", "CascadeCoordinator"),
	}
}

// mutateUser CAS-loops a record mutation. fn returns false to skip the write
// when the record already lacks the reference, keeping the step idempotent.
func (c *coordinator) mutateUser(ctx context.Context, userID uuid.UUID, fn func(u *domain.UserRecord) bool) error {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		u, err := c.users.GetUser(ctx, userID)
		if err != nil {
			return err
		}
		if u == nil {
			return nil
		}
		if !fn(u) {
			return nil
		}
		err = c.users.PutUser(ctx, u)
		if apierr.IsConflict(err) {
			lastErr = err
			continue
		}
		return err
	}
	return lastErr
}

func (c *coordinator) DeleteCourse(ctx context.Context, courseID uuid.UUID) error {
	course, err := c.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		return apierr.Unavailable("structure store read failed", err)
	}
	if course == nil {
		return apierr.NotFound("course not found")
	}
	learnerIDs, err := c.enrollments.ListUserIDsByCourse(ctx, nil, courseID)
	if err != nil {
		return apierr.Unavailable("structure store read failed", err)
	}

	// Step 1: strip the enrollment reference and progress entry from every
	// enrolled learner. Records are independent, so the strips fan out.
	g, gctx := errgroup.WithContext(ctx)
	for _, learnerID := range learnerIDs {
		g.Go(func() error {
			return c.mutateUser(gctx, learnerID, func(u *domain.UserRecord) bool {
				return u.RemoveEnrolledCourse(courseID)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return apierr.CascadeFailure("progress_store", "strip_learners", err)
	}

	// Step 2: strip the instructor's course reference.
	if course.InstructorID != nil {
		err := c.mutateUser(ctx, *course.InstructorID, func(u *domain.UserRecord) bool {
			return u.RemoveInstructorCourse(courseID)
		})
		if err != nil {
			return apierr.CascadeFailure("progress_store", "strip_instructor", err)
		}
	}

	// Step 3: course subgraph — comments with their reaction edges, then the
	// course node with its rating edges.
	if err := c.graphStore.DeleteCourseGraph(ctx, courseID); err != nil {
		return apierr.CascadeFailure("graph_store", "delete_course_graph", err)
	}

	// Step 4: the authoritative structure rows, in one transaction.
	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := c.classes.DeleteByCourse(ctx, tx, courseID); err != nil {
			return err
		}
		if err := c.units.DeleteByCourse(ctx, tx, courseID); err != nil {
			return err
		}
		if err := c.enrollments.DeleteByCourse(ctx, tx, courseID); err != nil {
			return err
		}
		return c.courses.Delete(ctx, tx, courseID)
	})
	if err != nil {
		return apierr.CascadeFailure("structure_store", "delete_course", err)
	}

	c.log.Info("course cascade complete", "course_id", courseID, "learners", len(learnerIDs))
	return nil
}

func (c *coordinator) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	u, err := c.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if u == nil {
		return apierr.NotFound("user not found")
	}

	// Step 1: the user's subgraph. The removal report tells us which
	// aggregates their edges fed into.
	removal, err := c.graphStore.DeleteUserGraph(ctx, userID)
	if err != nil {
		return apierr.CascadeFailure("graph_store", "delete_user_graph", err)
	}

	// Step 2: recompute the orphaned aggregates. Comments the user authored
	// are gone with the subgraph, so only reactions on other users' comments
	// need recounting.
	deletedComments := make(map[uuid.UUID]struct{}, len(removal.DeletedCommentIDs))
	for _, id := range removal.DeletedCommentIDs {
		deletedComments[id] = struct{}{}
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, courseID := range removal.RatedCourseIDs {
		g.Go(func() error {
			_, err := c.graphStore.RecomputeCourseRating(gctx, courseID)
			return err
		})
	}
	for _, commentID := range removal.ReactedCommentIDs {
		if _, gone := deletedComments[commentID]; gone {
			continue
		}
		g.Go(func() error {
			_, _, err := c.graphStore.RecomputeCommentReactions(gctx, commentID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return apierr.CascadeFailure("graph_store", "recompute_aggregates", err)
	}

	// Step 3: detach the user from courses they instructed.
	for _, courseID := range u.InstructorCourses {
		if _, err := c.courses.UpdateFields(ctx, nil, courseID, map[string]any{"instructor_id": nil}); err != nil {
			return apierr.CascadeFailure("structure_store", "detach_instructor", err)
		}
	}

	// Step 4: enrollment rows.
	if err := c.enrollments.DeleteByUser(ctx, nil, userID); err != nil {
		return apierr.CascadeFailure("structure_store", "delete_enrollments", err)
	}

	// Step 5: the authoritative record, last.
	if err := c.users.DeleteUser(ctx, userID); err != nil {
		return apierr.CascadeFailure("progress_store", "delete_user", err)
	}

	c.log.Info("user cascade complete",
		"user_id", userID,
		"rated_courses", len(removal.RatedCourseIDs),
		"deleted_comments", len(removal.DeletedCommentIDs))
	return nil
}
