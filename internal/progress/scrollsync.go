package progress

import "sync"

// Pane is the scroll geometry of one reading pane.
type Pane struct {
	ScrollTop    float64 `json:"scrollTop"`
	ScrollHeight float64 `json:"scrollHeight"`
	ClientHeight float64 `json:"clientHeight"`
}

// Fraction returns the pane's scroll position as a value in [0, 1].
// Content shorter than the viewport yields 0.
func Fraction(p Pane) float64 {
	scrollable := p.ScrollHeight - p.ClientHeight
	if scrollable <= 0 {
		return 0
	}
	f := p.ScrollTop / scrollable
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ScrollSyncer maps scroll positions between the original and translated
// panes. Applying a position to the target pane raises a scroll event there;
// the syncer swallows that self-triggered event so the two panes observing
// each other cannot ping-pong.
type ScrollSyncer struct {
	mu sync.Mutex
	// pending names the pane whose next scroll event is the echo of a Sync
	// this syncer itself caused.
	pending string
}

// NewScrollSyncer returns a syncer for one pane pair.
func NewScrollSyncer() *ScrollSyncer {
	return &ScrollSyncer{}
}

// OnScroll handles a scroll event from sourceID. If the event is the echo of
// a previous sync it is swallowed and applied is false. Otherwise it returns
// the scrollTop to apply to the target pane, mapping the source's fractional
// position onto the target's scrollable range, and records that the target's
// next event is self-triggered.
func (s *ScrollSyncer) OnScroll(sourceID, targetID string, source, target Pane) (targetTop float64, applied bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == sourceID {
		s.pending = ""
		return 0, false
	}

	scrollable := target.ScrollHeight - target.ClientHeight
	if scrollable < 0 {
		scrollable = 0
	}
	s.pending = targetID
	return Fraction(source) * scrollable, true
}
