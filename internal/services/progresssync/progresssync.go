// Package progresssync keeps every learner's derived completion state
// consistent with the live course structure. Percentage and status are never
// trusted as stored: each call re-reads the published-class counts, prunes
// malformed completed items, recomputes both fields and CAS-writes the record
// back. A structure-store failure aborts the whole call before anything is
// written, so a stale denominator can never be persisted.
package progresssync

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/studylane/studylane-backend/internal/data/progress"
	"github.com/studylane/studylane-backend/internal/data/repos"
	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/apierr"
	"github.com/studylane/studylane-backend/internal/platform/logger"
)

// casRetries bounds the read-modify-write loop under record contention.
const casRetries = 5

type Engine interface {
	// Sync recomputes one course's progress from live structure and writes it
	// back. It is the read path too: callers get repaired state, never cached.
	Sync(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
	// SyncAll repairs every enrolled course of the record in one CAS write.
	SyncAll(ctx context.Context, userID uuid.UUID) (*domain.UserRecord, error)
	// MarkItemCompleted records a published class as completed. Idempotent:
	// re-marking an item changes nothing but the last-access timestamp.
	MarkItemCompleted(ctx context.Context, userID, courseID, itemID uuid.UUID, itemName string) (*domain.CourseProgress, error)
	// ResetProgress clears the completed set and restarts both timestamps.
	ResetProgress(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error)
}

type engine struct {
	users   progress.Store
	courses repos.CourseRepo
	classes repos.ClassRepo
	log     *logger.Logger
}

func NewEngine(users progress.Store, courses repos.CourseRepo, classes repos.ClassRepo, baseLog *logger.Logger) Engine {
	return &engine{
		users:   users,
		courses: courses,
		classes: classes,
		log:     baseLog.With("service", "ProgressSyncEngine"),
	}
}

// recompute derives percentage and status from the completed set and the live
// item count, pruning malformed entries (nil ids, empty names, duplicates)
// first.
//
//	percentage = round(min(completed/total, 1) * 100)
//	100%                      -> COMPLETED
//	0% with no completed item -> NOT_STARTED
//	anything else             -> IN_PROGRESS
//
// total == 0 pins percentage to 0, so COMPLETED is unreachable for a course
// with no published classes.
func recompute(cp *domain.CourseProgress, totalItems int) {
	seen := make(map[uuid.UUID]struct{}, len(cp.CompletedItems))
	items := cp.CompletedItems[:0]
	for _, it := range cp.CompletedItems {
		if it.ItemID == uuid.Nil || it.ItemName == "" {
			continue
		}
		if _, dup := seen[it.ItemID]; dup {
			continue
		}
		seen[it.ItemID] = struct{}{}
		items = append(items, it)
	}
	cp.CompletedItems = items

	n := len(items)
	pct := 0
	if totalItems > 0 {
		ratio := float64(n) / float64(totalItems)
		if ratio > 1 {
			ratio = 1
		}
		pct = int(math.Round(ratio * 100))
	}
	cp.Percentage = pct

	switch {
	case pct == 100:
		cp.Status = domain.StatusCompleted
	case pct == 0 && n == 0:
		cp.Status = domain.StatusNotStarted
	default:
		cp.Status = domain.StatusInProgress
	}
}

type courseSnapshot struct {
	course     *domain.Course
	totalItems int
}

func (e *engine) snapshot(ctx context.Context, courseID uuid.UUID) (*courseSnapshot, error) {
	course, err := e.courses.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, apierr.Unavailable("structure store read failed", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course not found")
	}
	counts, err := e.classes.PublishedClassCounts(ctx, nil, courseID)
	if err != nil {
		return nil, apierr.Unavailable("structure store read failed", err)
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &courseSnapshot{course: course, totalItems: total}, nil
}

// mutate runs the CAS loop for a single course: load record, apply fn,
// recompute, write back. fn may be nil for a pure sync. On a version conflict
// the whole sequence reruns against fresh state.
func (e *engine) mutate(ctx context.Context, userID, courseID uuid.UUID, fn func(snap *courseSnapshot, cp *domain.CourseProgress) error) (*domain.CourseProgress, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		u, err := e.users.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, apierr.NotFound("user not found")
		}
		if !u.IsEnrolled(courseID) {
			return nil, apierr.FailedPrecondition("user is not enrolled in course")
		}

		snap, err := e.snapshot(ctx, courseID)
		if err != nil {
			return nil, err
		}

		if u.CoursesProgress == nil {
			u.CoursesProgress = make(map[uuid.UUID]*domain.CourseProgress)
		}
		cp := u.CoursesProgress[courseID]
		if cp == nil {
			cp = &domain.CourseProgress{
				CourseID:  courseID,
				Status:    domain.StatusNotStarted,
				StartDate: time.Now().UTC(),
			}
			u.CoursesProgress[courseID] = cp
		}
		cp.CourseName = snap.course.Name

		if fn != nil {
			if err := fn(snap, cp); err != nil {
				return nil, err
			}
		}
		recompute(cp, snap.totalItems)

		if err := e.users.PutUser(ctx, u); err != nil {
			if apierr.IsConflict(err) {
				lastErr = err
				e.log.Debug("progress CAS conflict, retrying",
					"user_id", userID, "course_id", courseID, "attempt", attempt+1)
				continue
			}
			return nil, err
		}
		out := *cp
		return &out, nil
	}
	return nil, lastErr
}

func (e *engine) Sync(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	return e.mutate(ctx, userID, courseID, nil)
}

func (e *engine) SyncAll(ctx context.Context, userID uuid.UUID) (*domain.UserRecord, error) {
	var lastErr error
	for attempt := 0; attempt < casRetries; attempt++ {
		u, err := e.users.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, apierr.NotFound("user not found")
		}

		// Structure reads fan out; the record write stays single so the CAS
		// token covers all courses at once.
		snaps := make(map[uuid.UUID]*courseSnapshot, len(u.EnrolledCourses))
		g, gctx := errgroup.WithContext(ctx)
		var mu sync.Mutex
		for _, courseID := range u.EnrolledCourses {
			g.Go(func() error {
				snap, err := e.snapshot(gctx, courseID)
				if apierr.IsNotFound(err) {
					// Course deleted out from under the enrollment; cascade
					// owns stripping the reference, sync leaves it alone.
					e.log.Warn("enrolled course missing from structure store",
						"user_id", userID, "course_id", courseID)
					return nil
				}
				if err != nil {
					return err
				}
				mu.Lock()
				snaps[courseID] = snap
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		for courseID, snap := range snaps {
			if u.CoursesProgress == nil {
				u.CoursesProgress = make(map[uuid.UUID]*domain.CourseProgress)
			}
			cp := u.CoursesProgress[courseID]
			if cp == nil {
				cp = &domain.CourseProgress{
					CourseID:  courseID,
					Status:    domain.StatusNotStarted,
					StartDate: time.Now().UTC(),
				}
				u.CoursesProgress[courseID] = cp
			}
			cp.CourseName = snap.course.Name
			recompute(cp, snap.totalItems)
		}

		if err := e.users.PutUser(ctx, u); err != nil {
			if apierr.IsConflict(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		return u, nil
	}
	return nil, lastErr
}

func (e *engine) MarkItemCompleted(ctx context.Context, userID, courseID, itemID uuid.UUID, itemName string) (*domain.CourseProgress, error) {
	return e.mutate(ctx, userID, courseID, func(snap *courseSnapshot, cp *domain.CourseProgress) error {
		published := false
		for _, unit := range snap.course.Units {
			for _, class := range unit.Classes {
				if class.ID == itemID && class.IsPublished {
					published = true
					if itemName == "" {
						itemName = class.Name
					}
				}
			}
		}
		if !published {
			return apierr.NotFound("published class not found in course")
		}

		now := time.Now().UTC()
		cp.LastAccessDate = now
		if !cp.HasItem(itemID) {
			cp.CompletedItems = append(cp.CompletedItems, domain.CompletedItem{
				ItemID:      itemID,
				ItemName:    itemName,
				CompletedAt: now,
			})
		}
		return nil
	})
}

func (e *engine) ResetProgress(ctx context.Context, userID, courseID uuid.UUID) (*domain.CourseProgress, error) {
	return e.mutate(ctx, userID, courseID, func(snap *courseSnapshot, cp *domain.CourseProgress) error {
		now := time.Now().UTC()
		cp.CompletedItems = nil
		cp.StartDate = now
		cp.LastAccessDate = now
		return nil
	})
}
