package domain

import (
	"github.com/google/uuid"
)

// UserRecord is the monolithic learner record stored as one JSON value in
// Redis. Version is an optimistic-concurrency token: every successful write
// bumps it, and a write against a stale version fails with Conflict.
type UserRecord struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	Role         string    `json:"role"`

	EnrolledCourses   []uuid.UUID                   `json:"enrolledCourses"`
	InstructorCourses []uuid.UUID                   `json:"instructorCourses"`
	CoursesProgress   map[uuid.UUID]*CourseProgress `json:"coursesProgress,omitempty"`

	Version int64 `json:"version"`
}

// Sanitized returns a copy safe to hand to callers: no credential hash.
func (u *UserRecord) Sanitized() *UserRecord {
	if u == nil {
		return nil
	}
	out := *u
	out.PasswordHash = ""
	return &out
}

func (u *UserRecord) IsEnrolled(courseID uuid.UUID) bool {
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}

func (u *UserRecord) AddEnrolledCourse(courseID uuid.UUID) bool {
	if u.IsEnrolled(courseID) {
		return false
	}
	u.EnrolledCourses = append(u.EnrolledCourses, courseID)
	return true
}

func (u *UserRecord) RemoveEnrolledCourse(courseID uuid.UUID) bool {
	removed := false
	out := u.EnrolledCourses[:0]
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	u.EnrolledCourses = out
	if u.CoursesProgress != nil {
		if _, ok := u.CoursesProgress[courseID]; ok {
			delete(u.CoursesProgress, courseID)
			removed = true
		}
	}
	return removed
}

func (u *UserRecord) AddInstructorCourse(courseID uuid.UUID) bool {
	for _, id := range u.InstructorCourses {
		if id == courseID {
			return false
		}
	}
	u.InstructorCourses = append(u.InstructorCourses, courseID)
	return true
}

func (u *UserRecord) RemoveInstructorCourse(courseID uuid.UUID) bool {
	removed := false
	out := u.InstructorCourses[:0]
	for _, id := range u.InstructorCourses {
		if id == courseID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	u.InstructorCourses = out
	return removed
}
