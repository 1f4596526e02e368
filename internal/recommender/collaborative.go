package recommender

import (
	"errors"
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/temcen/shelfrec/internal/catalog"
)

// DefaultFactorRank is the number of latent dimensions kept by the factorization.
const DefaultFactorRank = 20

var errNoRatings = errors.New("no rating events to factorize")

// FactorModel is a low-rank factorization of the user x item rating matrix.
// Id lists, lookup maps and the factor matrices are built together and their
// positions stay aligned: userIDs[u] is row u of userFactors and ratings,
// itemIDs[j] is row j of itemFactors and column j of ratings.
type FactorModel struct {
	userIDs     []string
	itemIDs     []string
	userPos     map[string]int
	itemPos     map[string]int
	ratings     *mat.Dense
	userFactors *mat.Dense
	itemFactors *mat.Dense
	rank        int
}

// BuildFactorModel pivots the events into a dense matrix (later duplicates of
// a (user, item) pair overwrite earlier ones, missing cells are 0) and keeps
// the top rank singular triplets.
func BuildFactorModel(events []catalog.RatingEvent, rank int) (*FactorModel, error) {
	if len(events) == 0 {
		return nil, errNoRatings
	}
	if rank <= 0 {
		rank = DefaultFactorRank
	}

	userIDs, userPos := distinctIDs(events, func(e catalog.RatingEvent) string { return e.UserID })
	itemIDs, itemPos := distinctIDs(events, func(e catalog.RatingEvent) string { return e.ItemID })

	nu, ni := len(userIDs), len(itemIDs)
	ratings := mat.NewDense(nu, ni, nil)
	for _, e := range events {
		ratings.Set(userPos[e.UserID], itemPos[e.ItemID], e.Rating)
	}

	k := min(rank, nu, ni)

	var svd mat.SVD
	if !svd.Factorize(ratings, mat.SVDThin) {
		return nil, &ComputeError{Stage: string(OriginCollaborative), Cause: errors.New("SVD factorization did not converge")}
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)

	var userFactors mat.Dense
	userFactors.Mul(u.Slice(0, nu, 0, k), mat.NewDiagDense(k, values[:k]))
	itemFactors := mat.DenseCopyOf(v.Slice(0, ni, 0, k))

	return &FactorModel{
		userIDs:     userIDs,
		itemIDs:     itemIDs,
		userPos:     userPos,
		itemPos:     itemPos,
		ratings:     ratings,
		userFactors: &userFactors,
		itemFactors: itemFactors,
		rank:        k,
	}, nil
}

func distinctIDs(events []catalog.RatingEvent, key func(catalog.RatingEvent) string) ([]string, map[string]int) {
	seen := make(map[string]struct{})
	var ids []string
	for _, e := range events {
		id := key(e)
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return compareIDs(ids[i], ids[j]) < 0 })

	positions := make(map[string]int, len(ids))
	for i, id := range ids {
		positions[id] = i
	}
	return ids, positions
}

func (m *FactorModel) Rank() int {
	if m == nil {
		return 0
	}
	return m.rank
}

func (m *FactorModel) Users() int {
	if m == nil {
		return 0
	}
	return len(m.userIDs)
}

func (m *FactorModel) HasUser(userID string) bool {
	if m == nil {
		return false
	}
	_, ok := m.userPos[userID]
	return ok
}

// Scores predicts a score for every latent item for userID. Items the user
// already rated are zeroed.
func (m *FactorModel) Scores(userID string) ([]float64, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}
	u, ok := m.userPos[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, userID)
	}

	var predicted mat.VecDense
	predicted.MulVec(m.itemFactors, m.userFactors.RowView(u))

	scores := make([]float64, len(m.itemIDs))
	for j := range scores {
		if m.ratings.At(u, j) != 0 {
			continue
		}
		scores[j] = predicted.AtVec(j)
	}
	return scores, nil
}

// CollaborativeEngine maps factor model predictions back to catalog items.
type CollaborativeEngine struct {
	model   *FactorModel
	index   *ContentIndex
	sampler *Sampler
}

func NewCollaborativeEngine(model *FactorModel, index *ContentIndex, sampler *Sampler) *CollaborativeEngine {
	return &CollaborativeEngine{model: model, index: index, sampler: sampler}
}

// Predict returns the top n unseen items for userID. Latent items without a
// catalog entry are skipped after the cut, so fewer than n may come back.
func (e *CollaborativeEngine) Predict(userID string, n int) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(&ComputeError{Stage: string(OriginCollaborative), Cause: fmt.Errorf("panic: %v", r)})
		}
	}()

	scores, err := e.model.Scores(userID)
	if err != nil {
		return failed(err)
	}

	ids := e.model.itemIDs
	order := make([]int, len(scores))
	for j := range order {
		order[j] = j
	}
	sort.Slice(order, func(a, b int) bool {
		x, y := order[a], order[b]
		if scores[x] != scores[y] {
			return scores[x] > scores[y]
		}
		return compareIDs(ids[x], ids[y]) < 0
	})
	if len(order) > n {
		order = order[:n]
	}

	candidates := make([]Candidate, 0, len(order))
	for _, j := range order {
		item, ok := e.index.Lookup(ids[j])
		if !ok {
			continue
		}
		candidates = append(candidates, newCandidate(item, OriginCollaborative, scores[j]))
	}
	return Result{Candidates: candidates}
}

// PredictOrFallback never fails: unknown users and compute errors get n
// fallback samples instead.
func (e *CollaborativeEngine) PredictOrFallback(userID string, n int) []Candidate {
	res := e.Predict(userID, n)
	if res.OK() {
		return res.Candidates
	}

	fallback, err := e.sampler.Sample(n, nil)
	if err != nil {
		return []Candidate{}
	}
	return fallback
}
