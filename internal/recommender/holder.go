package recommender

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/temcen/shelfrec/internal/catalog"
)

// Holder publishes the live Engine to readers. A reload builds a complete new
// Engine and swaps the pointer; the live one is never mutated.
type Holder struct {
	current atomic.Pointer[Engine]
	mu      sync.Mutex
	opts    Options
	logger  *logrus.Logger
}

func NewHolder(engine *Engine, opts Options, logger *logrus.Logger) *Holder {
	h := &Holder{opts: opts, logger: logger}
	h.current.Store(engine)
	return h
}

// Engine returns the engine serving requests right now.
func (h *Holder) Engine() *Engine {
	return h.current.Load()
}

// Reload loads a fresh snapshot from source and swaps it in. On any error the
// previous engine keeps serving.
func (h *Holder) Reload(ctx context.Context, source catalog.Source) (*Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	snapshot, err := source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot from %s: %w", source.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine, err := NewEngine(snapshot, h.opts, h.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build engine: %w", err)
	}

	previous := h.current.Swap(engine)
	fields := logrus.Fields{
		"source": source.Name(),
		"items":  engine.Index().Len(),
	}
	if previous != nil {
		fields["previous_items"] = previous.Index().Len()
	}
	h.logger.WithFields(fields).Info("Recommendation engine reloaded")

	return engine, nil
}
