package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/studylane/studylane-backend/internal/domain"
	"github.com/studylane/studylane-backend/internal/platform/logger"
	"github.com/studylane/studylane-backend/internal/platform/neo4jdb"
)

type neo4jStore struct {
	client *neo4jdb.Client
	log    *logger.Logger
}

func NewNeo4jStore(client *neo4jdb.Client, baseLog *logger.Logger) Store {
	return &neo4jStore{client: client, log: baseLog.With("store", "GraphStore")}
}

func (s *neo4jStore) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.client.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.client.Database,
	})
}

func (s *neo4jStore) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	constraints := []string{
		`CREATE CONSTRAINT user_id_unique IF NOT EXISTS FOR (u:User) REQUIRE u.id IS UNIQUE`,
		`CREATE CONSTRAINT course_id_unique IF NOT EXISTS FOR (c:Course) REQUIRE c.id IS UNIQUE`,
		`CREATE CONSTRAINT comment_id_unique IF NOT EXISTS FOR (cm:Comment) REQUIRE cm.id IS UNIQUE`,
	}
	for _, stmt := range constraints {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			s.log.Warn("neo4j schema init failed (continuing)", "error", err)
			continue
		}
		_, _ = res.Consume(ctx)
	}
	return nil
}

func (s *neo4jStore) UpsertUserNode(ctx context.Context, userID uuid.UUID, name string) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (u:User {id: $user_id})
SET u.name = $name
`, map[string]any{"user_id": userID.String(), "name": name})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jStore) UserNodeExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.nodeExists(ctx, "User", userID)
}

func (s *neo4jStore) CreateCourseNode(ctx context.Context, courseID uuid.UUID) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (c:Course {id: $course_id})
ON CREATE SET c.averageRating = 0.0,
              c.totalRatings = 0,
              c.ratings = [],
              c.ratedBy = []
`, map[string]any{"course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jStore) CourseNodeExists(ctx context.Context, courseID uuid.UUID) (bool, error) {
	return s.nodeExists(ctx, "Course", courseID)
}

func (s *neo4jStore) CommentNodeExists(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.nodeExists(ctx, "Comment", id)
}

func (s *neo4jStore) nodeExists(ctx context.Context, label string, id uuid.UUID) (bool, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, fmt.Sprintf(`MATCH (n:%s {id: $id}) RETURN count(n) AS n`, label),
			map[string]any{"id": id.String()})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("n")
		return n, nil
	})
	if err != nil {
		return false, err
	}
	count, _ := out.(int64)
	return count > 0, nil
}

func (s *neo4jStore) RatingEdgeExists(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:User {id: $user_id})-[r:RATED]->(:Course {id: $course_id})
RETURN count(r) AS n
`, map[string]any{"user_id": userID.String(), "course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		n, _ := record.Get("n")
		return n, nil
	})
	if err != nil {
		return false, err
	}
	count, _ := out.(int64)
	return count > 0, nil
}

func (s *neo4jStore) CreateRatingEdge(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.RatingEdge, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})
MATCH (c:Course {id: $course_id})
CREATE (u)-[r:RATED {value: $value, createdAt: $now, updatedAt: $now}]->(c)
RETURN r.value AS value, r.createdAt AS createdAt, r.updatedAt AS updatedAt
`, map[string]any{
			"user_id":   userID.String(),
			"course_id": courseID.String(),
			"value":     int64(value),
			"now":       now,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, nil
	}
	return ratingEdgeFromRecord(records[0], userID, courseID), nil
}

func (s *neo4jStore) UpdateRatingEdge(ctx context.Context, userID, courseID uuid.UUID, value int) (*domain.RatingEdge, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC().Format(time.RFC3339Nano)
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})-[r:RATED]->(c:Course {id: $course_id})
SET r.value = $value, r.updatedAt = $now
RETURN r.value AS value, r.createdAt AS createdAt, r.updatedAt AS updatedAt
`, map[string]any{
			"user_id":   userID.String(),
			"course_id": courseID.String(),
			"value":     int64(value),
			"now":       now,
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, nil
	}
	return ratingEdgeFromRecord(records[0], userID, courseID), nil
}

func (s *neo4jStore) DeleteRatingEdge(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:User {id: $user_id})-[r:RATED]->(:Course {id: $course_id})
DELETE r
`, map[string]any{"user_id": userID.String(), "course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().RelationshipsDeleted(), nil
	})
	if err != nil {
		return false, err
	}
	deleted, _ := out.(int)
	return deleted > 0, nil
}

func (s *neo4jStore) GetRatingEdge(ctx context.Context, userID, courseID uuid.UUID) (*domain.RatingEdge, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $user_id})-[r:RATED]->(c:Course {id: $course_id})
RETURN r.value AS value, r.createdAt AS createdAt, r.updatedAt AS updatedAt
`, map[string]any{"user_id": userID.String(), "course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, nil
	}
	return ratingEdgeFromRecord(records[0], userID, courseID), nil
}

func (s *neo4jStore) ListCourseRatings(ctx context.Context, courseID uuid.UUID) ([]*domain.RatingEdge, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User)-[r:RATED]->(c:Course {id: $course_id})
RETURN u.id AS userId, r.value AS value, r.createdAt AS createdAt, r.updatedAt AS updatedAt
ORDER BY r.createdAt DESC
`, map[string]any{"course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	edges := make([]*domain.RatingEdge, 0, len(records))
	for _, record := range records {
		raterID, _ := record.Get("userId")
		userID, err := uuid.Parse(asString(raterID))
		if err != nil {
			continue
		}
		edges = append(edges, ratingEdgeFromRecord(record, userID, courseID))
	}
	return edges, nil
}

func (s *neo4jStore) RecomputeCourseRating(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Course {id: $course_id})
OPTIONAL MATCH (u:User)-[r:RATED]->(c)
WITH c, collect(r.value) AS values, collect(u.id) AS raters
SET c.averageRating = CASE WHEN size(values) = 0 THEN 0.0
                           ELSE toFloat(reduce(s = 0, v IN values | s + v)) / size(values) END,
    c.totalRatings = size(values),
    c.ratings = values,
    c.ratedBy = raters
RETURN c.averageRating AS average, c.totalRatings AS count, c.ratings AS values, c.ratedBy AS raters
`, map[string]any{"course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, nil
	}
	return statsFromRecord(records[0]), nil
}

func (s *neo4jStore) CourseRatingStats(ctx context.Context, courseID uuid.UUID) (*domain.CourseRatingStats, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Course {id: $course_id})
RETURN c.averageRating AS average, c.totalRatings AS count, c.ratings AS values, c.ratedBy AS raters
`, map[string]any{"course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, nil
	}
	return statsFromRecord(records[0]), nil
}

func (s *neo4jStore) CreateComment(ctx context.Context, c *domain.Comment) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	now := time.Now().UTC()
	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (u:User {id: $author_id})
MATCH (course:Course {id: $course_id})
CREATE (comment:Comment {
  id: $id,
  title: $title,
  content: $content,
  authorId: $author_id,
  authorName: u.name,
  courseId: $course_id,
  likeCount: 0,
  dislikeCount: 0,
  createdAt: $now,
  updatedAt: $now
})
CREATE (u)-[:COMMENTS]->(comment)
CREATE (comment)-[:BELONGS_TO]->(course)
RETURN comment
`, map[string]any{
			"id":        c.ID.String(),
			"title":     c.Title,
			"content":   c.Content,
			"author_id": c.AuthorID.String(),
			"course_id": c.CourseID.String(),
			"now":       now.Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return fmt.Errorf("create comment: user or course node missing")
	}
	if got := commentFromRecord(records[0]); got != nil {
		*c = *got
	}
	return nil
}

func (s *neo4jStore) GetComment(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	return s.queryComment(ctx, `MATCH (comment:Comment {id: $id}) RETURN comment`,
		map[string]any{"id": id.String()})
}

func (s *neo4jStore) ListComments(ctx context.Context) ([]*domain.Comment, error) {
	return s.queryComments(ctx, `
MATCH (comment:Comment)
RETURN comment
ORDER BY comment.createdAt DESC
`, nil)
}

func (s *neo4jStore) ListCourseComments(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error) {
	query := `
MATCH (comment:Comment)-[:BELONGS_TO]->(:Course {id: $course_id})
RETURN comment
ORDER BY comment.createdAt DESC
`
	params := map[string]any{"course_id": courseID.String()}
	if limit > 0 {
		query += "LIMIT $limit\n"
		params["limit"] = int64(limit)
	}
	return s.queryComments(ctx, query, params)
}

func (s *neo4jStore) TopCourseComments(ctx context.Context, courseID uuid.UUID, limit int) ([]*domain.Comment, error) {
	query := `
MATCH (comment:Comment)-[:BELONGS_TO]->(:Course {id: $course_id})
WITH comment, comment.likeCount - comment.dislikeCount AS relevance
RETURN comment
ORDER BY relevance DESC
`
	params := map[string]any{"course_id": courseID.String()}
	if limit > 0 {
		query += "LIMIT $limit\n"
		params["limit"] = int64(limit)
	}
	return s.queryComments(ctx, query, params)
}

func (s *neo4jStore) UpdateComment(ctx context.Context, id uuid.UUID, title, content string) (*domain.Comment, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (comment:Comment {id: $id})
SET comment.title = $title,
    comment.content = $content,
    comment.updatedAt = $now
RETURN comment
`, map[string]any{
			"id":      id.String(),
			"title":   title,
			"content": content,
			"now":     time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return nil, nil
	}
	return commentFromRecord(records[0]), nil
}

func (s *neo4jStore) DeleteComment(ctx context.Context, id uuid.UUID) (bool, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (comment:Comment {id: $id})
DETACH DELETE comment
`, map[string]any{"id": id.String()})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().NodesDeleted(), nil
	})
	if err != nil {
		return false, err
	}
	deleted, _ := out.(int)
	return deleted > 0, nil
}

func (s *neo4jStore) ClearReaction(ctx context.Context, userID, commentID uuid.UUID) (int, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (:User {id: $user_id})-[r:LIKES|DISLIKES]->(:Comment {id: $comment_id})
DELETE r
`, map[string]any{"user_id": userID.String(), "comment_id": commentID.String()})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().RelationshipsDeleted(), nil
	})
	if err != nil {
		return 0, err
	}
	deleted, _ := out.(int)
	return deleted, nil
}

func (s *neo4jStore) CreateReactionEdge(ctx context.Context, userID, commentID uuid.UUID, kind domain.ReactionKind) error {
	if !kind.Valid() {
		return fmt.Errorf("invalid reaction kind: %q", kind)
	}
	relType := "LIKES"
	if kind == domain.ReactionDislike {
		relType = "DISLIKES"
	}

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Relationship types cannot be parameterized; relType is one of two
		// validated constants.
		res, err := tx.Run(ctx, fmt.Sprintf(`
MATCH (u:User {id: $user_id})
MATCH (cm:Comment {id: $comment_id})
MERGE (u)-[:%s]->(cm)
`, relType), map[string]any{"user_id": userID.String(), "comment_id": commentID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jStore) RecomputeCommentReactions(ctx context.Context, commentID uuid.UUID) (int64, int64, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (cm:Comment {id: $comment_id})
OPTIONAL MATCH (:User)-[l:LIKES]->(cm)
WITH cm, count(l) AS likes
OPTIONAL MATCH (:User)-[d:DISLIKES]->(cm)
WITH cm, likes, count(d) AS dislikes
SET cm.likeCount = likes, cm.dislikeCount = dislikes
RETURN likes, dislikes
`, map[string]any{"comment_id": commentID.String()})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return 0, 0, err
	}
	records := out.([]*neo4j.Record)
	if len(records) == 0 {
		return 0, 0, nil
	}
	likes, _ := records[0].Get("likes")
	dislikes, _ := records[0].Get("dislikes")
	return asInt64(likes), asInt64(dislikes), nil
}

func (s *neo4jStore) DeleteCourseGraph(ctx context.Context, courseID uuid.UUID) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		// Comments first (taking their reaction edges with them), then the
		// course node with its remaining rating edges.
		res, err := tx.Run(ctx, `
MATCH (:Course {id: $course_id})<-[:BELONGS_TO]-(comment:Comment)
DETACH DELETE comment
`, map[string]any{"course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, `
MATCH (c:Course {id: $course_id})
DETACH DELETE c
`, map[string]any{"course_id": courseID.String()})
		if err != nil {
			return nil, err
		}
		_, err = res.Consume(ctx)
		return nil, err
	})
	return err
}

func (s *neo4jStore) DeleteUserGraph(ctx context.Context, userID uuid.UUID) (*UserGraphRemoval, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		removal := &UserGraphRemoval{}
		params := map[string]any{"user_id": userID.String()}

		rated, err := collectIDs(ctx, tx, `
MATCH (:User {id: $user_id})-[:RATED]->(c:Course)
RETURN collect(DISTINCT c.id) AS ids
`, params)
		if err != nil {
			return nil, err
		}
		removal.RatedCourseIDs = rated

		reacted, err := collectIDs(ctx, tx, `
MATCH (:User {id: $user_id})-[:LIKES|DISLIKES]->(cm:Comment)
RETURN collect(DISTINCT cm.id) AS ids
`, params)
		if err != nil {
			return nil, err
		}
		removal.ReactedCommentIDs = reacted

		owned, err := collectIDs(ctx, tx, `
MATCH (:User {id: $user_id})-[:COMMENTS]->(cm:Comment)
RETURN collect(DISTINCT cm.id) AS ids
`, params)
		if err != nil {
			return nil, err
		}
		removal.DeletedCommentIDs = owned

		res, err := tx.Run(ctx, `
MATCH (:User {id: $user_id})-[:COMMENTS]->(cm:Comment)
DETACH DELETE cm
`, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}

		res, err = tx.Run(ctx, `
MATCH (u:User {id: $user_id})
DETACH DELETE u
`, params)
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return removal, nil
	})
	if err != nil {
		return nil, err
	}
	return out.(*UserGraphRemoval), nil
}

func (s *neo4jStore) queryComment(ctx context.Context, query string, params map[string]any) (*domain.Comment, error) {
	comments, err := s.queryComments(ctx, query, params)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, nil
	}
	return comments[0], nil
}

func (s *neo4jStore) queryComments(ctx context.Context, query string, params map[string]any) ([]*domain.Comment, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, err
	}
	records := out.([]*neo4j.Record)
	comments := make([]*domain.Comment, 0, len(records))
	for _, record := range records {
		if c := commentFromRecord(record); c != nil {
			comments = append(comments, c)
		}
	}
	return comments, nil
}

func collectIDs(ctx context.Context, tx neo4j.ManagedTransaction, query string, params map[string]any) ([]uuid.UUID, error) {
	res, err := tx.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	record, err := res.Single(ctx)
	if err != nil {
		return nil, err
	}
	raw, _ := record.Get("ids")
	list, _ := raw.([]any)
	ids := make([]uuid.UUID, 0, len(list))
	for _, v := range list {
		id, err := uuid.Parse(asString(v))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func ratingEdgeFromRecord(record *neo4j.Record, userID, courseID uuid.UUID) *domain.RatingEdge {
	value, _ := record.Get("value")
	createdAt, _ := record.Get("createdAt")
	updatedAt, _ := record.Get("updatedAt")
	return &domain.RatingEdge{
		UserID:    userID,
		CourseID:  courseID,
		Value:     int(asInt64(value)),
		CreatedAt: parseTime(createdAt),
		UpdatedAt: parseTime(updatedAt),
	}
}

func statsFromRecord(record *neo4j.Record) *domain.CourseRatingStats {
	average, _ := record.Get("average")
	count, _ := record.Get("count")
	values, _ := record.Get("values")
	raters, _ := record.Get("raters")

	stats := &domain.CourseRatingStats{
		Average: asFloat64(average),
		Count:   asInt64(count),
		Values:  []int{},
		Raters:  []uuid.UUID{},
	}
	if list, ok := values.([]any); ok {
		for _, v := range list {
			stats.Values = append(stats.Values, int(asInt64(v)))
		}
	}
	if list, ok := raters.([]any); ok {
		for _, v := range list {
			if id, err := uuid.Parse(asString(v)); err == nil {
				stats.Raters = append(stats.Raters, id)
			}
		}
	}
	return stats
}

func commentFromRecord(record *neo4j.Record) *domain.Comment {
	raw, ok := record.Get("comment")
	if !ok {
		return nil
	}
	node, ok := raw.(neo4j.Node)
	if !ok {
		return nil
	}
	props := node.Props

	id, err := uuid.Parse(asString(props["id"]))
	if err != nil {
		return nil
	}
	authorID, _ := uuid.Parse(asString(props["authorId"]))
	courseID, _ := uuid.Parse(asString(props["courseId"]))

	return &domain.Comment{
		ID:           id,
		Title:        asString(props["title"]),
		Content:      asString(props["content"]),
		AuthorID:     authorID,
		AuthorName:   asString(props["authorName"]),
		CourseID:     courseID,
		LikeCount:    asInt64(props["likeCount"]),
		DislikeCount: asInt64(props["dislikeCount"]),
		CreatedAt:    parseTime(props["createdAt"]),
		UpdatedAt:    parseTime(props["updatedAt"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int64:
		return float64(t)
	case int:
		return float64(t)
	default:
		return 0
	}
}

func parseTime(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
