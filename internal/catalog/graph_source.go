package catalog

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

const ratedRelationshipsQuery = `
	MATCH (u:User)-[r:RATED]->(b:Book)
	WHERE r.rating IS NOT NULL
	RETURN toString(u.user_id) AS user_id, toString(b.book_id) AS book_id, toFloat(r.rating) AS rating
	ORDER BY coalesce(r.rated_at, 0), user_id, book_id`

// GraphRatingSource loads items from Base and replaces its ratings with the
// RATED relationships stored in Neo4j.
type GraphRatingSource struct {
	Base   Source
	Driver neo4j.DriverWithContext
	Logger *logrus.Logger
}

func NewGraphRatingSource(base Source, driver neo4j.DriverWithContext, logger *logrus.Logger) *GraphRatingSource {
	return &GraphRatingSource{Base: base, Driver: driver, Logger: logger}
}

func (s *GraphRatingSource) Name() string {
	return s.Base.Name() + "+neo4j"
}

func (s *GraphRatingSource) Load(ctx context.Context) (*Snapshot, error) {
	snapshot, err := s.Base.Load(ctx)
	if err != nil {
		return nil, err
	}

	session := s.Driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, ratedRelationshipsQuery, nil)
	if err != nil {
		return nil, newDatasetError(s.Name(), fmt.Errorf("rating graph query failed: %w", err))
	}

	builder := newSnapshotBuilder()
	for _, item := range snapshot.Items {
		builder.byID[item.ID] = item.ID
	}

	skipped := 0
	for result.Next(ctx) {
		event, ok := ratingFromValues(result.Record().Values)
		if !ok {
			skipped++
			continue
		}
		builder.addRating(event)
	}
	if err := result.Err(); err != nil {
		return nil, newDatasetError(s.Name(), fmt.Errorf("reading rating graph: %w", err))
	}

	s.Logger.WithFields(logrus.Fields{
		"ratings": len(builder.ratings),
		"skipped": skipped,
	}).Info("Rating events loaded from graph")

	return &Snapshot{Items: snapshot.Items, Ratings: builder.ratings}, nil
}

func ratingFromValues(values []any) (RatingEvent, bool) {
	if len(values) < 3 {
		return RatingEvent{}, false
	}

	userID, ok := values[0].(string)
	if !ok || userID == "" {
		return RatingEvent{}, false
	}
	itemID, ok := values[1].(string)
	if !ok || itemID == "" {
		return RatingEvent{}, false
	}

	var rating float64
	switch v := values[2].(type) {
	case float64:
		rating = v
	case int64:
		rating = float64(v)
	default:
		return RatingEvent{}, false
	}

	return RatingEvent{UserID: userID, ItemID: itemID, Rating: rating}, true
}
