// Package prefs manages the reading display preferences consumed by
// rendering: a defaults record merged per-key with persisted overrides.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/libroglot/lector/internal/apperr"
	"github.com/libroglot/lector/internal/models"
	"github.com/libroglot/lector/internal/persist"
)

// Manager holds the merged preferences and keeps them persisted under
// reading_preferences.
type Manager struct {
	store  persist.Store
	logger *zap.Logger

	mu     sync.Mutex
	loaded bool
	prefs  models.Preferences
}

// NewManager loads persisted preferences merged over the defaults: unknown
// keys in the stored value are dropped, missing keys keep their defaults.
// A missing or corrupt stored value yields the plain defaults. When the
// initial read fails the manager serves defaults and retries the load on
// the next update, so the stored record is never overwritten blind.
func NewManager(ctx context.Context, store persist.Store, logger *zap.Logger) *Manager {
	m := &Manager{
		store:  store,
		logger: logger,
		prefs:  models.DefaultPreferences(),
	}
	m.mu.Lock()
	_ = m.load(ctx)
	m.mu.Unlock()
	return m
}

// load populates prefs from the persistence layer once. The record is marked
// loaded only after the read succeeds; a failed read is retried on the next
// call. Caller holds m.mu.
func (m *Manager) load(ctx context.Context) error {
	if m.loaded {
		return nil
	}
	raw, ok, err := m.store.Get(ctx, persist.PreferencesKey)
	if err != nil {
		m.logger.Error("load preferences", zap.Error(err))
		return fmt.Errorf("%w: load preferences: %v", apperr.ErrPersistence, err)
	}
	m.loaded = true
	if !ok {
		return nil
	}
	merged := models.DefaultPreferences()
	if err := json.Unmarshal([]byte(raw), &merged); err != nil {
		m.logger.Warn("corrupt preferences, using defaults", zap.Error(err))
		return nil
	}
	m.prefs = normalize(merged)
	return nil
}

// Get returns a copy of the current preferences.
func (m *Manager) Get() models.Preferences {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prefs
}

// ReadingSpeed returns the words-per-minute preference.
func (m *Manager) ReadingSpeed() int {
	return m.Get().ReadingSpeed
}

// Update sets a single named preference. Unknown keys are dropped silently;
// a value of the wrong type is an error and leaves state unchanged.
func (m *Manager) Update(ctx context.Context, key string, value any) error {
	return m.UpdateMany(ctx, map[string]any{key: value})
}

// UpdateMany merges a partial settings record over the current preferences.
func (m *Manager) UpdateMany(ctx context.Context, partial map[string]any) error {
	data, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("marshal preference update: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return err
	}
	merged := m.prefs
	if err := json.Unmarshal(data, &merged); err != nil {
		return fmt.Errorf("invalid preference value: %w", err)
	}
	m.prefs = normalize(merged)
	return m.persist(ctx)
}

// Reset restores all preferences to their defaults.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	m.prefs = models.DefaultPreferences()
	return m.persist(ctx)
}

// AdjustFontSize steps the font size by delta steps of 0.1 rem, clamped to
// [0.8, 2.0], and returns the new size.
func (m *Manager) AdjustFontSize(ctx context.Context, delta int) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return m.prefs.FontSize, err
	}
	size := m.prefs.FontSize + float64(delta)*models.FontSizeStep
	size = math.Round(size*10) / 10
	m.prefs.FontSize = clampFontSize(size)
	return m.prefs.FontSize, m.persist(ctx)
}

// ToggleTheme cycles light -> dark -> sepia and returns the new theme.
func (m *Manager) ToggleTheme(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.load(ctx); err != nil {
		return m.prefs.Theme, err
	}
	switch m.prefs.Theme {
	case models.ThemeLight:
		m.prefs.Theme = models.ThemeDark
	case models.ThemeDark:
		m.prefs.Theme = models.ThemeSepia
	default:
		m.prefs.Theme = models.ThemeLight
	}
	return m.prefs.Theme, m.persist(ctx)
}

// Export serializes the current preferences as indented JSON.
func (m *Manager) Export() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.MarshalIndent(m.prefs, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Import parses a serialized preferences record and merges it over the
// defaults. Returns false and leaves state unchanged on parse failure.
func (m *Manager) Import(ctx context.Context, serialized string) bool {
	merged := models.DefaultPreferences()
	if err := json.Unmarshal([]byte(serialized), &merged); err != nil {
		m.logger.Warn("preferences import rejected", zap.Error(err))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	m.prefs = normalize(merged)
	if err := m.persist(ctx); err != nil {
		m.logger.Error("persist imported preferences", zap.Error(err))
	}
	return true
}

// persist writes the current record. Caller holds m.mu.
func (m *Manager) persist(ctx context.Context) error {
	data, err := json.Marshal(m.prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := m.store.Set(ctx, persist.PreferencesKey, string(data)); err != nil {
		m.logger.Error("persist preferences", zap.Error(err))
		return fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// normalize keeps loaded or merged values inside their valid ranges.
func normalize(p models.Preferences) models.Preferences {
	p.FontSize = clampFontSize(p.FontSize)
	if p.ReadingSpeed <= 0 {
		p.ReadingSpeed = models.DefaultPreferences().ReadingSpeed
	}
	switch p.Theme {
	case models.ThemeLight, models.ThemeDark, models.ThemeSepia:
	default:
		p.Theme = models.ThemeLight
	}
	return p
}

func clampFontSize(v float64) float64 {
	if v < models.FontSizeMin {
		return models.FontSizeMin
	}
	if v > models.FontSizeMax {
		return models.FontSizeMax
	}
	return v
}
