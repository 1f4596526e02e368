package recommender

import (
	"fmt"
	"sort"
)

// DefaultSimilarityThreshold is the cosine floor a content candidate must exceed.
const DefaultSimilarityThreshold = 0.1

// ContentEngine ranks items by cosine similarity of their term rows.
type ContentEngine struct {
	index     *ContentIndex
	sampler   *Sampler
	threshold float64
}

func NewContentEngine(index *ContentIndex, sampler *Sampler, threshold float64) *ContentEngine {
	return &ContentEngine{index: index, sampler: sampler, threshold: threshold}
}

// Similarities returns the cosine similarity of itemID against every row.
// Rows are L2-normalized so the dot product is the cosine.
func (e *ContentEngine) Similarities(itemID string) ([]float64, error) {
	pos, ok := e.index.Position(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownItem, itemID)
	}

	target := e.index.rows[pos]
	sims := make([]float64, len(e.index.rows))
	if target.isZero() {
		return sims, nil
	}
	for i, row := range e.index.rows {
		sims[i] = target.dot(row)
	}
	return sims, nil
}

// Similar returns up to n content candidates for itemID, or the reason there
// are none.
func (e *ContentEngine) Similar(itemID string, n int) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(&ComputeError{Stage: string(OriginContent), Cause: fmt.Errorf("panic: %v", r)})
		}
	}()

	pos, ok := e.index.Position(itemID)
	if !ok {
		return failed(fmt.Errorf("%w: %s", ErrUnknownItem, itemID))
	}

	targetTitle := e.index.titles[pos]
	if targetTitle == "" {
		return failed(fmt.Errorf("%w: %s", ErrInvalidTarget, itemID))
	}

	sims, err := e.Similarities(itemID)
	if err != nil {
		return failed(err)
	}

	order := make([]int, len(sims))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		x, y := order[a], order[b]
		if sims[x] != sims[y] {
			return sims[x] > sims[y]
		}
		return compareIDs(e.index.items[x].ID, e.index.items[y].ID) < 0
	})

	seenTitles := map[string]struct{}{targetTitle: {}}
	var candidates []Candidate
	for _, idx := range order {
		if len(candidates) >= n {
			break
		}
		if sims[idx] <= e.threshold {
			break
		}
		if idx == pos {
			continue
		}
		title := e.index.titles[idx]
		if _, seen := seenTitles[title]; seen {
			continue
		}
		seenTitles[title] = struct{}{}
		candidates = append(candidates, newCandidate(e.index.items[idx], OriginContent, sims[idx]))
	}

	if len(candidates) == 0 {
		return failed(fmt.Errorf("%w: %s", ErrNoCandidates, itemID))
	}
	return Result{Candidates: candidates}
}

// RecommendContent is the fail-soft form of Similar: any failure is replaced
// by n fallback samples.
func (e *ContentEngine) RecommendContent(itemID string, n int) []Candidate {
	res := e.Similar(itemID, n)
	if res.OK() {
		return res.Candidates
	}

	fallback, err := e.sampler.Sample(n, map[string]struct{}{itemID: {}})
	if err != nil {
		return []Candidate{}
	}
	return fallback
}
