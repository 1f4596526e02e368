package catalog

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var columnAliases = map[string][]string{
	"id":         {"book_id", "id", "item_id", "bookid"},
	"title":      {"title", "book_name", "name"},
	"author":     {"author", "author_name", "authors"},
	"genre":      {"genres", "genre", "category"},
	"avg_rating": {"avg_rating", "average_rating", "rating_avg"},
	"user_id":    {"user_id", "userid"},
	"rating":     {"rating", "user_rating"},
}

// FileSource loads a snapshot from a CSV file with a header row.
type FileSource struct {
	Path   string
	Logger *logrus.Logger
}

func NewFileSource(path string, logger *logrus.Logger) *FileSource {
	return &FileSource{Path: path, Logger: logger}
}

func (s *FileSource) Name() string {
	return "file:" + s.Path
}

func (s *FileSource) Load(ctx context.Context) (*Snapshot, error) {
	snapshot, rows, err := LoadFile(s.Path)
	if err != nil {
		return nil, err
	}

	if s.Logger != nil {
		s.Logger.WithFields(logrus.Fields{
			"path":    s.Path,
			"rows":    rows,
			"items":   len(snapshot.Items),
			"ratings": len(snapshot.Ratings),
		}).Info("Catalog snapshot loaded")
	}

	return snapshot, nil
}

// LoadFile reads and cleans a CSV snapshot. It also returns the raw row count.
func LoadFile(path string) (*Snapshot, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, newDatasetError(path, err)
	}
	defer f.Close()

	snapshot, rows, err := readCSV(bufio.NewReader(f), path)
	if err != nil {
		return nil, rows, err
	}
	return snapshot, rows, nil
}

func readCSV(r io.Reader, source string) (*Snapshot, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, newDatasetError(source, ErrNoItems)
		}
		return nil, 0, newDatasetError(source, fmt.Errorf("reading header: %w", err))
	}

	columns := resolveColumns(header)
	if _, ok := columns["id"]; !ok {
		return nil, 0, newDatasetError(source, fmt.Errorf("missing item id column in header %v", header))
	}

	builder := newSnapshotBuilder()
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, builder.rowCount, newDatasetError(source, fmt.Errorf("reading row %d: %w", builder.rowCount+2, err))
		}

		builder.add(rawRow{
			ID:        field(record, columns, "id"),
			Title:     field(record, columns, "title"),
			Author:    field(record, columns, "author"),
			Genre:     field(record, columns, "genre"),
			AvgRating: field(record, columns, "avg_rating"),
			UserID:    field(record, columns, "user_id"),
			Rating:    field(record, columns, "rating"),
		})
	}

	snapshot, err := builder.build(source)
	return snapshot, builder.rowCount, err
}

func resolveColumns(header []string) map[string]int {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		key = strings.ReplaceAll(key, " ", "_")
		if _, exists := positions[key]; !exists {
			positions[key] = i
		}
	}

	columns := make(map[string]int)
	for column, aliases := range columnAliases {
		for _, alias := range aliases {
			if i, ok := positions[alias]; ok {
				columns[column] = i
				break
			}
		}
	}
	return columns
}

func field(record []string, columns map[string]int, column string) string {
	i, ok := columns[column]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}
