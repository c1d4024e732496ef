// Package translate wraps the opaque translation capability: a pluggable
// backend behind an interface, with memoization, request-scoped cancellation,
// and fallback to the untranslated source text on failure.
package translate

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Translator is the external translation capability.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Service fronts a Translator with the reader's failure policy: a failed or
// timed-out call falls back to returning the untranslated source text.
type Service struct {
	backend Translator
	logger  *zap.Logger
}

// NewService wraps backend with the fallback policy.
func NewService(backend Translator, logger *zap.Logger) *Service {
	return &Service{backend: backend, logger: logger}
}

// Translate returns the translated text, or the source text unchanged when
// the capability fails. Cancellation is not masked: a cancelled context
// propagates so stale results can be discarded by the caller.
func (s *Service) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	translated, err := s.backend.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		s.logger.Warn("translation failed, returning source text",
			zap.String("source_lang", sourceLang),
			zap.String("target_lang", targetLang),
			zap.Error(err),
		)
		return text, nil
	}
	return translated, nil
}

// Static is a fixed-mapping Translator used in tests and demos. Words found
// in the mapping are replaced; everything else passes through.
type Static struct {
	Mapping map[string]string
}

// Translate replaces mapped words in text.
func (s *Static) Translate(_ context.Context, text, _, _ string) (string, error) {
	words := strings.Fields(text)
	for i, w := range words {
		if repl, ok := s.Mapping[strings.ToLower(w)]; ok {
			words[i] = repl
		}
	}
	return strings.Join(words, " "), nil
}
