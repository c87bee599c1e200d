package domain

import (
	"time"

	"github.com/google/uuid"
)

type CourseStatus string

const (
	StatusNotStarted CourseStatus = "NOT_STARTED"
	StatusInProgress CourseStatus = "IN_PROGRESS"
	StatusCompleted  CourseStatus = "COMPLETED"
)

type CompletedItem struct {
	ItemID      uuid.UUID `json:"itemId"`
	ItemName    string    `json:"itemName"`
	CompletedAt time.Time `json:"completedAt"`
}

// CourseProgress is a learner's derived completion state for one course.
// Percentage is a cache of round(min(len(CompletedItems)/totalItems,1)*100);
// it is never trusted as stored and is recomputed on every read or write by
// the sync engine, which is the only writer of Percentage and Status.
type CourseProgress struct {
	CourseID       uuid.UUID       `json:"courseId"`
	CourseName     string          `json:"courseName"`
	Status         CourseStatus    `json:"status"`
	StartDate      time.Time       `json:"startDate"`
	LastAccessDate time.Time       `json:"lastAccessDate"`
	CompletedItems []CompletedItem `json:"completedItems"`
	Percentage     int             `json:"progressPercentage"`
}

// HasItem reports whether itemID is already in the completed set.
func (cp *CourseProgress) HasItem(itemID uuid.UUID) bool {
	for _, it := range cp.CompletedItems {
		if it.ItemID == itemID {
			return true
		}
	}
	return false
}
