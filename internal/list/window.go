// Package list implements the sliding-window virtualization state machine for
// list components. Each index moves Unrequested → Requested → Rendered; there
// is no down-transition. Requested and rendered sets only grow between
// refreshes, matching the remote reconciliation contract.
package list

import (
	"sort"
	"time"

	"github.com/dcmaui/uibridge/internal/event"
	"github.com/dcmaui/uibridge/internal/logging/events"
)

const (
	// DefaultWindowSize is the realization window used when the list's
	// properties don't specify one.
	DefaultWindowSize = 21

	// DefaultEndThreshold is the distance from the content end, in layout
	// units, below which onEndReached fires.
	DefaultEndThreshold = 200

	// DefaultScrollInterval bounds the onScroll emission cadence.
	DefaultScrollInterval = 50 * time.Millisecond
)

// Config tunes one window. Zero fields fall back to the defaults above.
type Config struct {
	WindowSize     int
	EndThreshold   float64
	ScrollInterval time.Duration
}

// Emitter sends outbound events on behalf of the window.
type Emitter func(viewID, name string, params map[string]any)

// Offset is a scroll geometry sample: content offset, total content size and
// the viewport ("layout measurement") size.
type Offset struct {
	X, Y                 float64
	ContentW, ContentH   float64
	ViewportW, ViewportH float64
}

// Window tracks the realization state for one list view.
type Window struct {
	viewID string
	emit   Emitter

	dataLength int
	windowSize int

	visible   map[int]struct{}
	requested map[int]struct{}
	rendered  map[int]string
	keys      map[int]string
	pending   map[int]string

	scroll       *event.Limiter
	endThreshold float64
	endArmed     bool
}

func New(viewID string, emit Emitter, cfg Config) *Window {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.EndThreshold <= 0 {
		cfg.EndThreshold = DefaultEndThreshold
	}
	if cfg.ScrollInterval <= 0 {
		cfg.ScrollInterval = DefaultScrollInterval
	}
	return &Window{
		viewID:       viewID,
		emit:         emit,
		windowSize:   cfg.WindowSize,
		visible:      make(map[int]struct{}),
		requested:    make(map[int]struct{}),
		rendered:     make(map[int]string),
		keys:         make(map[int]string),
		pending:      make(map[int]string),
		scroll:       event.NewLimiter(cfg.ScrollInterval),
		endThreshold: cfg.EndThreshold,
		endArmed:     true,
	}
}

func (w *Window) DataLength() int { return w.dataLength }
func (w *Window) WindowSize() int { return w.windowSize }

// SetDataLength updates the total item count without resetting realization
// state, then recomputes the active window.
func (w *Window) SetDataLength(n int) {
	if n < 0 {
		n = 0
	}
	w.dataLength = n
	w.recompute()
}

// SetWindowSize changes the realization window and recomputes.
func (w *Window) SetWindowSize(n int) {
	if n <= 0 {
		return
	}
	w.windowSize = n
	w.recompute()
}

// Requested reports whether index has entered the Requested state.
func (w *Window) Requested(index int) bool {
	_, ok := w.requested[index]
	return ok
}

// RenderedWidget returns the widget id realized for index, if any.
func (w *Window) RenderedWidget(index int) (string, bool) {
	id, ok := w.rendered[index]
	return id, ok
}

// RequestedIndices returns the sorted requested set, for diagnostics.
func (w *Window) RequestedIndices() []int {
	out := make([]int, 0, len(w.requested))
	for i := range w.requested {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// ItemVisible records that index scrolled into view. It returns the widget id
// whose swap-in was deferred while the index was off screen, if any, and
// recomputes the active window.
func (w *Window) ItemVisible(index int) (string, bool) {
	w.visible[index] = struct{}{}
	w.recompute()
	if widgetID, ok := w.pending[index]; ok {
		delete(w.pending, index)
		return widgetID, true
	}
	return "", false
}

// ItemHidden records that index scrolled out of view.
func (w *Window) ItemHidden(index int) {
	delete(w.visible, index)
	w.recompute()
}

// SetItem marks index as Rendered by widgetID. The returned flag tells the
// caller whether the widget must be swapped in now (index currently visible)
// or on the next ItemVisible. Rendering an index the engine never requested
// still marks it requested, silently, so rendered stays a subset of
// requested.
func (w *Window) SetItem(index int, widgetID, key string) bool {
	w.requested[index] = struct{}{}
	w.rendered[index] = widgetID
	if key != "" {
		w.keys[index] = key
	}
	events.List.Rendered(w.viewID, index, widgetID)
	if _, visible := w.visible[index]; visible {
		delete(w.pending, index)
		return true
	}
	w.pending[index] = widgetID
	return false
}

// ScrollToIndex reports whether index is in range; out-of-range requests are
// no-ops with no event and no state change.
func (w *Window) ScrollToIndex(index int) bool {
	return index >= 0 && index < w.dataLength
}

// Refresh resets all realization state and installs a new data length. This
// is the only way window state shrinks.
func (w *Window) Refresh(dataLength int) {
	if dataLength < 0 {
		dataLength = 0
	}
	w.dataLength = dataLength
	w.visible = make(map[int]struct{})
	w.requested = make(map[int]struct{})
	w.rendered = make(map[int]string)
	w.keys = make(map[int]string)
	w.pending = make(map[int]string)
	w.endArmed = true
	events.List.Refreshed(w.viewID, dataLength)
}

// Scroll processes a scroll geometry sample: a rate-limited onScroll event
// plus a one-shot onEndReached when the offset comes within the threshold of
// the content end. The shot is re-armed only after scrolling back away.
func (w *Window) Scroll(off Offset) {
	if w.scroll.Allow() {
		w.emit(w.viewID, "onScroll", map[string]any{
			"contentOffset":     map[string]any{"x": off.X, "y": off.Y},
			"contentSize":       map[string]any{"width": off.ContentW, "height": off.ContentH},
			"layoutMeasurement": map[string]any{"width": off.ViewportW, "height": off.ViewportH},
		})
	}

	nearEnd := off.ContentH > 0 && off.Y > 0 && off.Y+off.ViewportH > off.ContentH-w.endThreshold
	if nearEnd {
		if w.endArmed {
			w.endArmed = false
			events.List.EndReached(w.viewID)
			w.emit(w.viewID, "onEndReached", nil)
		}
	} else {
		w.endArmed = true
	}
}

// recompute derives the active window from the visible set and promotes every
// uncovered index in it to Requested, emitting requestItem exactly once per
// index.
func (w *Window) recompute() {
	if len(w.visible) == 0 || w.dataLength == 0 {
		return
	}
	minIdx, maxIdx := -1, -1
	for i := range w.visible {
		if minIdx == -1 || i < minIdx {
			minIdx = i
		}
		if maxIdx == -1 || i > maxIdx {
			maxIdx = i
		}
	}
	half := w.windowSize / 2
	start := minIdx - half
	if start < 0 {
		start = 0
	}
	end := maxIdx + half
	if end > w.dataLength-1 {
		end = w.dataLength - 1
	}
	if start > end {
		return
	}
	events.List.Window(w.viewID, start, end)
	for i := start; i <= end; i++ {
		if _, ok := w.requested[i]; ok {
			continue
		}
		w.requested[i] = struct{}{}
		events.List.Requested(w.viewID, i)
		w.emit(w.viewID, "requestItem", map[string]any{"index": i})
	}
}
