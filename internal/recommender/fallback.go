package recommender

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/temcen/shelfrec/internal/catalog"
)

// Sampler draws random catalog items when no ranked signal is available.
// The random source is the only mutable state shared by readers, so it is
// guarded by a mutex.
type Sampler struct {
	items []catalog.CatalogItem
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewSampler seeds the sampler; seed 0 means time based.
func NewSampler(items []catalog.CatalogItem, seed uint64) *Sampler {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Sampler{
		items: items,
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// Sample returns up to n distinct items not in exclude, tagged fallback.
// n <= 0 yields an empty result.
func (s *Sampler) Sample(n int, exclude map[string]struct{}) ([]Candidate, error) {
	if n <= 0 {
		return []Candidate{}, nil
	}
	if len(s.items) == 0 {
		return nil, ErrEmptyCatalog
	}

	pool := make([]int, 0, len(s.items))
	for i, item := range s.items {
		if _, skip := exclude[item.ID]; !skip {
			pool = append(pool, i)
		}
	}
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}

	return s.draw(pool, n, OriginFallback), nil
}

// EmergencySample draws straight from the raw item list, skipping only ids
// in exclude, tagged emergency_fallback.
func (s *Sampler) EmergencySample(n int, exclude map[string]struct{}) ([]Candidate, error) {
	if n <= 0 {
		return []Candidate{}, nil
	}
	if len(s.items) == 0 {
		return nil, ErrEmptyCatalog
	}

	s.mu.Lock()
	perm := s.rng.Perm(len(s.items))
	s.mu.Unlock()

	candidates := make([]Candidate, 0, n)
	for _, i := range perm {
		if len(candidates) >= n {
			break
		}
		if _, skip := exclude[s.items[i].ID]; skip {
			continue
		}
		candidates = append(candidates, newCandidate(s.items[i], OriginEmergencyFallback, 0))
	}
	return candidates, nil
}

func (s *Sampler) draw(pool []int, n int, origin Origin) []Candidate {
	if n > len(pool) {
		n = len(pool)
	}

	s.mu.Lock()
	// partial Fisher-Yates over pool
	for i := 0; i < n; i++ {
		j := i + s.rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	s.mu.Unlock()

	candidates := make([]Candidate, n)
	for i := 0; i < n; i++ {
		candidates[i] = newCandidate(s.items[pool[i]], origin, 0)
	}
	return candidates
}
