package recommender

import (
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/temcen/shelfrec/internal/catalog"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Seed = 42
	return opts
}

func item(id, title, author, genre string) catalog.CatalogItem {
	return catalog.CatalogItem{ID: id, Title: title, Author: author, Genre: genre}
}

func duneCatalog() []catalog.CatalogItem {
	return []catalog.CatalogItem{
		item("1", "Dune", "Herbert", "scifi"),
		item("2", "Dune Messiah", "Herbert", "scifi"),
		item("3", "Emma", "Austen", "romance"),
	}
}

// largeCatalog returns n items spread over a few authors and genres so the
// default document frequency floor keeps a vocabulary.
func largeCatalog(n int) []catalog.CatalogItem {
	authors := []string{"Ursula Le Guin", "Jane Austen", "Frank Herbert", "Agatha Christie"}
	genres := []string{"Fantasy|Science Fiction", "Romance, Classics", "Science Fiction", "Mystery"}
	items := make([]catalog.CatalogItem, n)
	for i := range items {
		a := i % len(authors)
		items[i] = item(fmt.Sprintf("%d", i+1), fmt.Sprintf("Volume %d of the %s saga", i+1, genres[a]), authors[a], genres[a])
	}
	return items
}

func newTestEngine(t *testing.T, items []catalog.CatalogItem, ratings []catalog.RatingEvent) *Engine {
	t.Helper()
	engine, err := NewEngine(&catalog.Snapshot{Items: items, Ratings: ratings}, testOptions(), testLogger())
	require.NoError(t, err)
	return engine
}

func candidateIDs(candidates []Candidate) []string {
	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ItemID
	}
	return ids
}
