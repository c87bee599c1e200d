package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/studylane/studylane-backend/internal/domain"
)

// MemoryStore is a map-backed Store for tests. Single mutex; every operation
// is atomic, matching the transactional guarantees of the real backend.
type MemoryStore struct {
	mu sync.Mutex

	users   map[uuid.UUID]string
	courses map[uuid.UUID]*domain.CourseRatingStats

	ratings   map[uuid.UUID]map[uuid.UUID]*domain.RatingEdge // courseID -> userID -> edge
	comments  map[uuid.UUID]*domain.Comment
	reactions map[uuid.UUID]map[uuid.UUID]domain.ReactionKind // commentID -> userID -> kind
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[uuid.UUID]string),
		courses:   make(map[uuid.UUID]*domain.CourseRatingStats),
		ratings:   make(map[uuid.UUID]map[uuid.UUID]*domain.RatingEdge),
		comments:  make(map[uuid.UUID]*domain.Comment),
		reactions: make(map[uuid.UUID]map[uuid.UUID]domain.ReactionKind),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) EnsureSchema(ctx context.Context) error { return nil }

func (m *MemoryStore) UpsertUserNode(ctx context.Context, userID uuid.UUID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[userID] = name
	return nil
}

func (m *MemoryStore) UserNodeExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.users[userID]
	return ok, nil
}

func (m *MemoryStore) CreateCourseNode(ctx context.Context, courseID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[courseID]; !ok {
		m.courses[courseID] = &domain.CourseRatingStats{Values: []int{}, Raters: []uuid.UUID{}}
	}
	return nil
}

func (m *MemoryStore) CourseNodeExists(ctx context.Context, courseID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.courses[courseID]
	return ok, nil
}

func (m *MemoryStore) CommentNodeExists(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.comments[id]
	return ok, nil
}

func (m *MemoryStore) RatingEdgeExists(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ratings[courseID][userID]
	return ok, nil
}

func (m *MemoryStore) CreateRatingEdge(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.RatingEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return nil, nil
	}
	if _, ok := m.courses[courseID]; !ok {
		return nil, nil
	}
	now := time.Now().UTC()
	edge := &domain.RatingEdge{
		UserID:    userID,
		CourseID:  courseID,
		Value:     value,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if m.ratings[courseID] == nil {
		m.ratings[courseID] = make(map[uuid.UUID]*domain.RatingEdge)
	}
	m.ratings[courseID][userID] = edge
	out := *edge
	return &out, nil
}

func (m *MemoryStore) UpdateRatingEdge(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.RatingEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	edge, ok := m.ratings[courseID][userID]
	if !ok {
		return nil, nil
	}
	edge.Value = value
	edge.UpdatedAt = time.Now().UTC()
	out := *edge
	return &out, nil
}

func (m *MemoryStore) DeleteRatingEdge(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ratings[courseID][userID]; !ok {
		return false, nil
	}
	delete(m.ratings[courseID], userID)
	return true, nil
}

func (m *MemoryStore) GetRatingEdge(ctx context.Context, userID, courseID uuid.UUID) (*domain.RatingEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	edge, ok := m.ratings[courseID][userID]
	if !ok {
		return nil, nil
	}
	out := *edge
	return &out, nil
}

func (m *MemoryStore) ListCourseRatings(ctx context.Context, courseID uuid.UUID) ([]*domain.RatingEdge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	edges := make([]*domain.RatingEdge, 0, len(m.ratings[courseID]))
	for _, edge := range m.ratings[courseID] {
		out := *edge
		edges = append(edges, &out)
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].CreatedAt.After(edges[j].CreatedAt) })
	return edges, nil
}

func (m *MemoryStore) RecomputeCourseRating(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.courses[courseID]; !ok {
		return nil, nil
	}
	stats := &domain.CourseRatingStats{Values: []int{}, Raters: []uuid.UUID{}}
	sum := 0
	for userID, edge := range m.ratings[courseID] {
		stats.Values = append(stats.Values, edge.Value)
		stats.Raters = append(stats.Raters, userID)
		sum += edge.Value
	}
	stats.Count = int64(len(stats.Values))
	if stats.Count > 0 {
		stats.Average = float64(sum) / float64(stats.Count)
	}
	m.courses[courseID] = stats
	out := *stats
	return &out, nil
}

func (m *MemoryStore) CourseRatingStats(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats, ok := m.courses[courseID]
	if !ok {
		return nil, nil
	}
	out := *stats
	return &out, nil
}

func (m *MemoryStore) CreateComment(ctx context.Context, c *domain.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.users[c.AuthorID]
	if !ok {
		return fmt.Errorf("create comment: user node missing")
	}
	if _, ok := m.courses[c.CourseID]; !ok {
		return fmt.Errorf("create comment: course node missing")
	}
	now := time.Now().UTC()
	c.AuthorName = name
	c.LikeCount = 0
	c.DislikeCount = 0
	c.CreatedAt = now
	c.UpdatedAt = now
	stored := *c
	m.comments[c.ID] = &stored
	return nil
}

func (m *MemoryStore) GetComment(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, nil
	}
	out := *c
	return &out, nil
}

func (m *MemoryStore) ListComments(ctx context.Context) ([]*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Comment, 0, len(m.comments))
	for _, c := range m.comments {
		cc := *c
		out = append(out, &cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListCourseComments(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.courseComments(courseID)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) TopCourseComments(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.courseComments(courseID)
	sort.Slice(out, func(i, j int) bool {
		return out[i].LikeCount-out[i].DislikeCount > out[j].LikeCount-out[j].DislikeCount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) courseComments(courseID uuid.UUID) []*domain.Comment {
	var out []*domain.Comment
	for _, c := range m.comments {
		if c.CourseID == courseID {
			cc := *c
			out = append(out, &cc)
		}
	}
	return out
}

func (m *MemoryStore) UpdateComment(ctx context.Context, id uuid.UUID, title, content string) (*domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, nil
	}
	c.Title = title
	c.Content = content
	c.UpdatedAt = time.Now().UTC()
	out := *c
	return &out, nil
}

func (m *MemoryStore) DeleteComment(ctx context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return false, nil
	}
	delete(m.comments, id)
	delete(m.reactions, id)
	return true, nil
}

func (m *MemoryStore) ClearReaction(ctx context.Context, userID, commentID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reactions[commentID][userID]; !ok {
		return 0, nil
	}
	delete(m.reactions[commentID], userID)
	return 1, nil
}

func (m *MemoryStore) CreateReactionEdge(ctx context.Context, userID, commentID uuid.UUID, kind domain.ReactionKind) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid reaction kind: %q", kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reactions[commentID] == nil {
		m.reactions[commentID] = make(map[uuid.UUID]domain.ReactionKind)
	}
	m.reactions[commentID][userID] = kind
	return nil
}

func (m *MemoryStore) RecomputeCommentReactions(ctx context.Context, commentID uuid.UUID) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok {
		return 0, 0, nil
	}
	var likes, dislikes int64
	for _, kind := range m.reactions[commentID] {
		if kind == domain.ReactionLike {
			likes++
		} else {
			dislikes++
		}
	}
	c.LikeCount = likes
	c.DislikeCount = dislikes
	return likes, dislikes, nil
}

func (m *MemoryStore) DeleteCourseGraph(ctx context.Context, courseID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.comments {
		if c.CourseID == courseID {
			delete(m.comments, id)
			delete(m.reactions, id)
		}
	}
	delete(m.ratings, courseID)
	delete(m.courses, courseID)
	return nil
}

func (m *MemoryStore) DeleteUserGraph(ctx context.Context, userID uuid.UUID) (*UserGraphRemoval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removal := &UserGraphRemoval{}

	for courseID, byUser := range m.ratings {
		if _, ok := byUser[userID]; ok {
			removal.RatedCourseIDs = append(removal.RatedCourseIDs, courseID)
			delete(byUser, userID)
		}
	}
	for commentID, byUser := range m.reactions {
		if _, ok := byUser[userID]; ok {
			removal.ReactedCommentIDs = append(removal.ReactedCommentIDs, commentID)
			delete(byUser, userID)
		}
	}
	for id, c := range m.comments {
		if c.AuthorID == userID {
			removal.DeletedCommentIDs = append(removal.DeletedCommentIDs, id)
			delete(m.comments, id)
			delete(m.reactions, id)
		}
	}
	delete(m.users, userID)
	return removal, nil
}
