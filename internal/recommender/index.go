package recommender

import (
	"strings"
	"time"

	"github.com/temcen/shelfrec/internal/catalog"
)

// ContentIndex owns the catalog items, the id lookup and the weighted term
// rows together, so row i always describes items[i]. It is never mutated
// after BuildContentIndex returns.
type ContentIndex struct {
	items     []catalog.CatalogItem
	titles    []string
	positions map[string]int
	rows      []sparseVector
	terms     []string
	minDF     int
	builtAt   time.Time
}

// BuildContentIndex vectorizes every item's weighted title/author/genre text.
func BuildContentIndex(items []catalog.CatalogItem, opts IndexOptions) *ContentIndex {
	opts = opts.withDefaults()

	docs := make([]string, len(items))
	titles := make([]string, len(items))
	positions := make(map[string]int, len(items))
	for i, item := range items {
		titles[i] = catalog.Normalize(item.Title)
		docs[i] = documentText(item)
		if _, exists := positions[item.ID]; !exists {
			positions[item.ID] = i
		}
	}

	v, rows := fitTransform(docs, opts)

	return &ContentIndex{
		items:     items,
		titles:    titles,
		positions: positions,
		rows:      rows,
		terms:     v.terms,
		minDF:     v.minDF,
		builtAt:   time.Now(),
	}
}

// documentText weights the title three times, the author twice and the genre once.
func documentText(item catalog.CatalogItem) string {
	title := catalog.Normalize(item.Title)
	author := catalog.Normalize(item.Author)
	genre := catalog.NormalizeGenre(item.Genre)

	parts := make([]string, 0, 6)
	for i := 0; i < 3; i++ {
		parts = append(parts, title)
	}
	for i := 0; i < 2; i++ {
		parts = append(parts, author)
	}
	parts = append(parts, genre)

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func (ix *ContentIndex) Len() int {
	return len(ix.items)
}

func (ix *ContentIndex) Terms() int {
	return len(ix.terms)
}

func (ix *ContentIndex) Item(pos int) catalog.CatalogItem {
	return ix.items[pos]
}

func (ix *ContentIndex) Items() []catalog.CatalogItem {
	return ix.items
}

func (ix *ContentIndex) Position(itemID string) (int, bool) {
	pos, ok := ix.positions[itemID]
	return pos, ok
}

func (ix *ContentIndex) Lookup(itemID string) (catalog.CatalogItem, bool) {
	pos, ok := ix.positions[itemID]
	if !ok {
		return catalog.CatalogItem{}, false
	}
	return ix.items[pos], true
}

// EffectiveMinDF is the document frequency floor actually applied. It drops
// to 1 when the configured floor would prune every term.
func (ix *ContentIndex) EffectiveMinDF() int {
	return ix.minDF
}

func (ix *ContentIndex) BuiltAt() time.Time {
	return ix.builtAt
}
