package translate

import (
	"context"
	"errors"
	"sync"

	"github.com/libroglot/lector/internal/apperr"
)

// Session scopes translations to the visible page: when the user navigates
// away, the in-flight request is cancelled and its late result is discarded
// rather than applied to stale state.
type Session struct {
	translator Translator

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint64
}

// NewSession wraps translator for one pane.
func NewSession(translator Translator) *Session {
	return &Session{translator: translator}
}

// Translate runs a request-scoped translation, cancelling any earlier one
// still in flight. A superseded or cancelled request returns
// apperr.ErrSuperseded; its result is never delivered.
func (s *Session) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	result, err := s.translator.Translate(runCtx, text, sourceLang, targetLang)

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return "", apperr.ErrSuperseded
	}
	s.cancel = nil
	cancel()
	if errors.Is(err, context.Canceled) {
		return "", apperr.ErrSuperseded
	}
	return result, err
}

// Cancel discards any in-flight translation, e.g. on page navigation.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.seq++
}
