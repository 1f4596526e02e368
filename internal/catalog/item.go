package catalog

import "context"

// UnknownGenre is stored for items whose genre column is empty.
const UnknownGenre = "Unknown"

// CatalogItem is one book of a loaded snapshot.
type CatalogItem struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	Genre     string   `json:"genre"`
	AvgRating *float64 `json:"avg_rating,omitempty"`
}

// RatingEvent is a single (user, item, rating) triple.
type RatingEvent struct {
	UserID string  `json:"user_id"`
	ItemID string  `json:"item_id"`
	Rating float64 `json:"rating"`
}

// Snapshot is the immutable ground truth the recommendation index is built from.
type Snapshot struct {
	Items   []CatalogItem
	Ratings []RatingEvent
}

// Source produces a cleaned snapshot.
type Source interface {
	Load(ctx context.Context) (*Snapshot, error)
	Name() string
}
