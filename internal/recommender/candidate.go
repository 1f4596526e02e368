package recommender

import (
	"strconv"
	"strings"

	"github.com/temcen/shelfrec/internal/catalog"
)

// Origin tags which signal produced a candidate.
type Origin string

const (
	OriginContent           Origin = "content"
	OriginCollaborative     Origin = "collaborative"
	OriginFallback          Origin = "fallback"
	OriginEmergencyFallback Origin = "emergency_fallback"
)

// Tier orders origins: lower is better.
func (o Origin) Tier() int {
	switch o {
	case OriginContent:
		return 0
	case OriginCollaborative:
		return 1
	case OriginFallback:
		return 2
	default:
		return 3
	}
}

// Candidate is one ranked recommendation.
type Candidate struct {
	ItemID string  `json:"item_id"`
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Genre  string  `json:"genre"`
	Origin Origin  `json:"origin"`
	Score  float64 `json:"score"`
}

func newCandidate(item catalog.CatalogItem, origin Origin, score float64) Candidate {
	return Candidate{
		ItemID: item.ID,
		Title:  item.Title,
		Author: item.Author,
		Genre:  item.Genre,
		Origin: origin,
		Score:  score,
	}
}

// Result is the typed outcome of one signal stage: either candidates or a
// failure reason, never both.
type Result struct {
	Candidates []Candidate
	Err        error
}

func (r Result) OK() bool {
	return r.Err == nil
}

func failed(err error) Result {
	return Result{Err: err}
}

// compareIDs orders integer identifiers numerically before all other
// identifiers, which compare lexicographically. Equal numbers with different
// spellings ("07", "7") fall back to the string order.
func compareIDs(a, b string) int {
	x, errA := strconv.ParseInt(a, 10, 64)
	y, errB := strconv.ParseInt(b, 10, 64)
	switch {
	case errA == nil && errB != nil:
		return -1
	case errA != nil && errB == nil:
		return 1
	case errA == nil && errB == nil && x != y:
		if x < y {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}
