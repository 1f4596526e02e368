package catalog

import (
	"strconv"
	"strings"
)

// rawRow is one source row before cleaning. Empty strings mean "absent".
type rawRow struct {
	ID        string
	Title     string
	Author    string
	Genre     string
	AvgRating string
	UserID    string
	Rating    string
}

// snapshotBuilder applies the shared cleaning rules to rows from any source:
// rows without an id are dropped, duplicate ids and duplicate
// (normalized title, normalized author) pairs keep their first occurrence, and
// ratings on collapsed rows are attributed to the surviving item.
type snapshotBuilder struct {
	items    []CatalogItem
	ratings  []RatingEvent
	byID     map[string]string
	byTitle  map[string]string
	rowCount int
}

func newSnapshotBuilder() *snapshotBuilder {
	return &snapshotBuilder{
		byID:    make(map[string]string),
		byTitle: make(map[string]string),
	}
}

func (b *snapshotBuilder) add(row rawRow) {
	b.rowCount++

	id := strings.TrimSpace(row.ID)
	if id == "" {
		return
	}

	survivor, seen := b.byID[id]
	if !seen {
		genre := strings.TrimSpace(row.Genre)
		if genre == "" {
			genre = UnknownGenre
		}

		key := Normalize(row.Title) + "\x00" + Normalize(row.Author)
		if first, dup := b.byTitle[key]; dup {
			survivor = first
		} else {
			survivor = id
			b.byTitle[key] = id
			b.items = append(b.items, CatalogItem{
				ID:        id,
				Title:     strings.TrimSpace(row.Title),
				Author:    strings.TrimSpace(row.Author),
				Genre:     genre,
				AvgRating: parseOptionalFloat(row.AvgRating),
			})
		}
		b.byID[id] = survivor
	}

	userID := strings.TrimSpace(row.UserID)
	rating := parseOptionalFloat(row.Rating)
	if userID != "" && rating != nil {
		b.ratings = append(b.ratings, RatingEvent{UserID: userID, ItemID: survivor, Rating: *rating})
	}
}

func (b *snapshotBuilder) addRating(event RatingEvent) {
	if event.UserID == "" || event.ItemID == "" {
		return
	}
	if survivor, ok := b.byID[event.ItemID]; ok {
		event.ItemID = survivor
	}
	b.ratings = append(b.ratings, event)
}

func (b *snapshotBuilder) build(source string) (*Snapshot, error) {
	if len(b.items) == 0 {
		return nil, newDatasetError(source, ErrNoItems)
	}
	return &Snapshot{Items: b.items, Ratings: b.ratings}, nil
}

func parseOptionalFloat(value string) *float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil
	}
	return &f
}
