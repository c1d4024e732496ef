package search

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/persist"
)

// DefaultRecentMax is the recent-searches list capacity.
const DefaultRecentMax = 5

// RecentSearches is a small capped, deduplicated, most-recent-first list of
// past queries, persisted under a single key.
type RecentSearches struct {
	store  persist.Store
	max    int
	logger *zap.Logger
}

// NewRecentSearches creates the list over store. max <= 0 uses DefaultRecentMax.
func NewRecentSearches(store persist.Store, max int, logger *zap.Logger) *RecentSearches {
	if max <= 0 {
		max = DefaultRecentMax
	}
	return &RecentSearches{store: store, max: max, logger: logger}
}

// Add records term at the front of the list, removing any earlier occurrence
// and dropping the oldest entry past capacity. Persistence failures are
// logged; the search that triggered the add is not affected.
func (r *RecentSearches) Add(ctx context.Context, term string) {
	terms := r.List(ctx)
	updated := make([]string, 0, r.max)
	updated = append(updated, term)
	for _, t := range terms {
		if t == term {
			continue
		}
		updated = append(updated, t)
		if len(updated) == r.max {
			break
		}
	}

	data, err := json.Marshal(updated)
	if err != nil {
		r.logger.Error("marshal recent searches", zap.Error(err))
		return
	}
	if err := r.store.Set(ctx, persist.RecentSearchesKey, string(data)); err != nil {
		r.logger.Error("persist recent searches", zap.Error(err))
	}
}

// List returns the persisted list, most recent first. A missing or corrupt
// value yields an empty list.
func (r *RecentSearches) List(ctx context.Context) []string {
	raw, ok, err := r.store.Get(ctx, persist.RecentSearchesKey)
	if err != nil {
		r.logger.Error("load recent searches", zap.Error(err))
		return nil
	}
	if !ok {
		return nil
	}
	var terms []string
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		r.logger.Warn("corrupt recent searches, resetting", zap.Error(err))
		return nil
	}
	if len(terms) > r.max {
		terms = terms[:r.max]
	}
	return terms
}
