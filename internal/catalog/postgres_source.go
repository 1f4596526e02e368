package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

// DatabaseQuerier interface for database operations
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const (
	catalogItemsQuery = `
		SELECT
			b.book_id::text,
			COALESCE(b.book_name, ''),
			COALESCE(a.name, ''),
			COALESCE(b.genre, ''),
			COALESCE(AVG(r.rating), -1)::float8
		FROM books b
		LEFT JOIN authors a ON a.author_id = b.author_id
		LEFT JOIN book_ratings r ON r.book_id = b.book_id
		GROUP BY b.book_id, b.book_name, a.name, b.genre
		ORDER BY b.book_id`

	ratingEventsQuery = `
		SELECT user_id::text, book_id::text, rating::float8
		FROM book_ratings
		ORDER BY rating_id`
)

// PostgresSource reads the snapshot from the catalog store's books, authors
// and book_ratings tables.
type PostgresSource struct {
	db     DatabaseQuerier
	logger *logrus.Logger
}

func NewPostgresSource(db DatabaseQuerier, logger *logrus.Logger) *PostgresSource {
	return &PostgresSource{db: db, logger: logger}
}

func (s *PostgresSource) Name() string {
	return "postgres"
}

func (s *PostgresSource) Load(ctx context.Context) (*Snapshot, error) {
	builder := newSnapshotBuilder()

	rows, err := s.db.Query(ctx, catalogItemsQuery)
	if err != nil {
		return nil, newDatasetError(s.Name(), fmt.Errorf("catalog query failed: %w", err))
	}

	for rows.Next() {
		var id, title, author, genre string
		var avgRating float64

		if err := rows.Scan(&id, &title, &author, &genre, &avgRating); err != nil {
			rows.Close()
			return nil, newDatasetError(s.Name(), fmt.Errorf("scanning catalog row: %w", err))
		}

		row := rawRow{ID: id, Title: title, Author: author, Genre: genre}
		if avgRating >= 0 {
			row.AvgRating = strconv.FormatFloat(avgRating, 'f', -1, 64)
		}
		builder.add(row)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, newDatasetError(s.Name(), fmt.Errorf("iterating catalog rows: %w", err))
	}

	ratingRows, err := s.db.Query(ctx, ratingEventsQuery)
	if err != nil {
		return nil, newDatasetError(s.Name(), fmt.Errorf("ratings query failed: %w", err))
	}
	defer ratingRows.Close()

	for ratingRows.Next() {
		var event RatingEvent
		if err := ratingRows.Scan(&event.UserID, &event.ItemID, &event.Rating); err != nil {
			s.logger.WithError(err).Warn("Failed to scan rating row")
			continue
		}
		builder.addRating(event)
	}
	if err := ratingRows.Err(); err != nil {
		return nil, newDatasetError(s.Name(), fmt.Errorf("iterating rating rows: %w", err))
	}

	snapshot, err := builder.build(s.Name())
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"items":   len(snapshot.Items),
		"ratings": len(snapshot.Ratings),
		"source":  s.Name(),
	}).Info("Catalog snapshot loaded")

	return snapshot, nil
}
