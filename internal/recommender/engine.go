package recommender

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/catalog"
)

// DefaultCount is the result size used when a request does not ask for one.
const DefaultCount = 5

// Options configures engine construction.
type Options struct {
	Index               IndexOptions
	SimilarityThreshold float64
	FactorRank          int
	DefaultCount        int
	Seed                uint64

	// OnStageFailure, when set, is called for every degraded stage.
	OnStageFailure func(stage, reason string)
}

func DefaultOptions() Options {
	return Options{
		Index:               DefaultIndexOptions(),
		SimilarityThreshold: DefaultSimilarityThreshold,
		FactorRank:          DefaultFactorRank,
		DefaultCount:        DefaultCount,
	}
}

// Engine is one immutable build of the recommendation index over a snapshot.
// Concurrent readers need no locking; a new snapshot means a new Engine.
type Engine struct {
	snapshot      *catalog.Snapshot
	index         *ContentIndex
	factors       *FactorModel
	content       *ContentEngine
	collaborative *CollaborativeEngine
	sampler       *Sampler
	stats         *catalogStats
	opts          Options
	logger        *logrus.Logger
	builtAt       time.Time
	buildTime     time.Duration
}

// NewEngine builds the content index and factor model for snapshot. An empty
// catalog is refused with a DatasetError.
func NewEngine(snapshot *catalog.Snapshot, opts Options, logger *logrus.Logger) (*Engine, error) {
	startTime := time.Now()

	if snapshot == nil || len(snapshot.Items) == 0 {
		return nil, &catalog.DatasetError{Source: "engine", Err: catalog.ErrNoItems}
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.DefaultCount <= 0 {
		opts.DefaultCount = DefaultCount
	}

	index := BuildContentIndex(snapshot.Items, opts.Index)
	if index.EffectiveMinDF() < opts.Index.withDefaults().MinDF {
		logger.WithFields(logrus.Fields{
			"configured_min_df": opts.Index.withDefaults().MinDF,
			"effective_min_df":  index.EffectiveMinDF(),
		}).Warn("Document frequency floor pruned every term, relaxed to 1")
	}

	sampler := NewSampler(snapshot.Items, opts.Seed)

	factors, err := BuildFactorModel(snapshot.Ratings, opts.FactorRank)
	if err != nil {
		if errors.Is(err, errNoRatings) {
			logger.Info("No rating events in snapshot, collaborative signal disabled")
		} else {
			logger.WithError(err).Warn("Failed to build factor model, collaborative signal disabled")
		}
		factors = nil
	}

	e := &Engine{
		snapshot:      snapshot,
		index:         index,
		factors:       factors,
		content:       NewContentEngine(index, sampler, opts.SimilarityThreshold),
		collaborative: NewCollaborativeEngine(factors, index, sampler),
		sampler:       sampler,
		stats:         computeCatalogStats(snapshot),
		opts:          opts,
		logger:        logger,
		builtAt:       time.Now(),
	}
	e.buildTime = time.Since(startTime)

	logger.WithFields(logrus.Fields{
		"items":       index.Len(),
		"terms":       index.Terms(),
		"ratings":     len(snapshot.Ratings),
		"users":       factors.Users(),
		"factor_rank": factors.Rank(),
		"build_time":  e.buildTime,
	}).Info("Recommendation engine built")

	return e, nil
}

func (e *Engine) Content() *ContentEngine {
	return e.content
}

func (e *Engine) Collaborative() *CollaborativeEngine {
	return e.collaborative
}

func (e *Engine) Index() *ContentIndex {
	return e.index
}

func (e *Engine) Options() Options {
	return e.opts
}

// Info summarizes the build for health and metrics reporting.
type Info struct {
	Items      int           `json:"items"`
	Terms      int           `json:"terms"`
	Ratings    int           `json:"ratings"`
	Users      int           `json:"users"`
	FactorRank int           `json:"factor_rank"`
	BuiltAt    time.Time     `json:"built_at"`
	BuildTime  time.Duration `json:"build_time"`
}

func (e *Engine) Info() Info {
	return Info{
		Items:      e.index.Len(),
		Terms:      e.index.Terms(),
		Ratings:    len(e.snapshot.Ratings),
		Users:      e.factors.Users(),
		FactorRank: e.factors.Rank(),
		BuiltAt:    e.builtAt,
		BuildTime:  e.buildTime,
	}
}

// Version identifies this build; it changes on every reload.
func (e *Engine) Version() int64 {
	return e.builtAt.UnixNano()
}
