package recommender

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// Request is a structured recommendation request. Empty ids mean absent.
type Request struct {
	UserID string
	ItemID string
	N      int
}

// Recommend blends content and collaborative candidates and fills any
// shortfall from the fallback tiers. It never fails: each stage degrades to
// the next tier on its own.
func (e *Engine) Recommend(req Request) []Candidate {
	n := req.N
	if n <= 0 {
		n = e.opts.DefaultCount
	}

	var merged []Candidate

	if req.ItemID != "" {
		res := e.runStage(string(OriginContent), func() Result {
			return e.content.Similar(req.ItemID, n)
		})
		if res.OK() {
			merged = append(merged, res.Candidates...)
		}
	}

	if req.UserID != "" {
		res := e.runStage(string(OriginCollaborative), func() Result {
			return e.collaborative.Predict(req.UserID, n)
		})
		if res.OK() {
			merged = append(merged, res.Candidates...)
		}
	}

	results := dedupeByItem(merged)

	if len(results) < n {
		exclude := make(map[string]struct{}, len(results)+1)
		for _, c := range results {
			exclude[c.ItemID] = struct{}{}
		}
		if req.ItemID != "" {
			exclude[req.ItemID] = struct{}{}
		}
		results = append(results, e.topUp(n-len(results), exclude)...)
	}

	sort.SliceStable(results, func(i, j int) bool {
		ti, tj := results[i].Origin.Tier(), results[j].Origin.Tier()
		if ti != tj {
			return ti < tj
		}
		return results[i].Score > results[j].Score
	})

	if len(results) > n {
		results = results[:n]
	}
	return results
}

func (e *Engine) topUp(needed int, exclude map[string]struct{}) []Candidate {
	res := e.runStage(string(OriginFallback), func() Result {
		candidates, err := e.sampler.Sample(needed, exclude)
		return Result{Candidates: candidates, Err: err}
	})
	if res.OK() {
		return res.Candidates
	}

	res = e.runStage(string(OriginEmergencyFallback), func() Result {
		candidates, err := e.sampler.EmergencySample(needed, exclude)
		return Result{Candidates: candidates, Err: err}
	})
	if res.OK() {
		return res.Candidates
	}
	return nil
}

// runStage isolates one stage: panics become ComputeErrors and failures are
// logged and reported, never returned to the caller of Recommend.
func (e *Engine) runStage(stage string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(&ComputeError{Stage: stage, Cause: fmt.Errorf("panic: %v", r)})
			e.reportFailure(stage, res.Err)
		}
	}()

	res = fn()
	if res.Err != nil {
		e.reportFailure(stage, res.Err)
	}
	return res
}

func (e *Engine) reportFailure(stage string, err error) {
	reason := failureReason(err)
	e.logger.WithFields(logrus.Fields{
		"stage":  stage,
		"reason": reason,
	}).WithError(err).Warn("Recommendation stage degraded")

	if e.opts.OnStageFailure != nil {
		e.opts.OnStageFailure(stage, reason)
	}
}

func dedupeByItem(candidates []Candidate) []Candidate {
	seen := make(map[string]struct{}, len(candidates))
	out := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := seen[c.ItemID]; dup {
			continue
		}
		seen[c.ItemID] = struct{}{}
		out = append(out, c)
	}
	return out
}
