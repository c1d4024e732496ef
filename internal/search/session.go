package search

import (
	"context"
	"errors"
	"sync"

	"github.com/libroglot/lector/internal/apperr"
	"github.com/libroglot/lector/internal/models"
)

// Session serializes search evaluation for one panel: at most one evaluation
// is in flight, and a new query supersedes the previous one. A superseded
// call's context is cancelled and its results are discarded.
type Session struct {
	engine *Engine

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// NewSession wraps engine for a single panel.
func NewSession(engine *Engine) *Session {
	return &Session{engine: engine}
}

// Search runs the query, cancelling any evaluation still in flight from an
// earlier call. If this call is itself superseded before finishing, it
// returns apperr.ErrSuperseded and its results are never delivered.
func (s *Session) Search(ctx context.Context, content, query string, opts models.SearchOptions) ([]models.SearchResult, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	results, err := s.engine.Search(runCtx, content, query, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return nil, apperr.ErrSuperseded
	}
	s.cancel = nil
	cancel()
	if errors.Is(err, context.Canceled) {
		return nil, apperr.ErrSuperseded
	}
	return results, err
}
