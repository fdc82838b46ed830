// Package state holds the scrollable, filterable item list backing the
// inspector.
package state

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Item is one selectable row.
type Item struct {
	ID    string
	Label string
}

// List is a filtered view over a full item set plus cursor and viewport
// bookkeeping.
type List struct {
	Full           []Item
	Items          []Item
	Filter         string
	Cursor         int
	ViewportOffset int
	lastCursor     int
}

func NewList(items []Item) *List {
	l := &List{lastCursor: -1}
	l.SetItems(items)
	return l
}

// SetItems replaces the full item set, keeping the cursor on the same id when
// it survives the update.
func (l *List) SetItems(items []Item) {
	var selected string
	if cur, ok := l.Selected(); ok {
		selected = cur.ID
	}
	l.Full = cloneItems(items)
	l.applyFilter()
	if selected != "" {
		for i, item := range l.Items {
			if item.ID == selected {
				l.Cursor = i
				break
			}
		}
	}
	l.clamp()
}

// Selected returns the item under the cursor.
func (l *List) Selected() (Item, bool) {
	if l.Cursor < 0 || l.Cursor >= len(l.Items) {
		return Item{}, false
	}
	return l.Items[l.Cursor], true
}

// SetFilter updates the filter query, re-running the match and snapping the
// cursor to the best match. Clearing the filter restores the previous cursor
// when it is still valid.
func (l *List) SetFilter(query string) {
	trimmed := strings.TrimSpace(query)
	prevTrimmed := strings.TrimSpace(l.Filter)
	l.Filter = query
	if trimmed != "" && prevTrimmed == "" {
		l.lastCursor = l.Cursor
	}
	l.applyFilter()
	if trimmed != "" {
		if idx := bestMatchIndex(l.Items, trimmed); idx >= 0 {
			l.Cursor = idx
		}
	} else if prevTrimmed != "" {
		if l.lastCursor >= 0 && l.lastCursor < len(l.Items) {
			l.Cursor = l.lastCursor
		}
		l.lastCursor = -1
	}
	l.clamp()
}

func (l *List) applyFilter() {
	l.Items = filterItems(l.Full, l.Filter)
	l.clamp()
}

// MoveCursor moves the cursor by delta, clamped to the item range.
func (l *List) MoveCursor(delta int) bool {
	if len(l.Items) == 0 {
		l.Cursor = 0
		return false
	}
	old := l.Cursor
	l.Cursor += delta
	l.clamp()
	return l.Cursor != old
}

// MoveCursorHome moves the cursor to the first item.
func (l *List) MoveCursorHome() bool {
	old := l.Cursor
	l.Cursor = 0
	l.clamp()
	return l.Cursor != old
}

// MoveCursorEnd moves the cursor to the last item.
func (l *List) MoveCursorEnd() bool {
	old := l.Cursor
	l.Cursor = len(l.Items) - 1
	l.clamp()
	return l.Cursor != old
}

func (l *List) clamp() {
	if len(l.Items) == 0 {
		l.Cursor = 0
		l.ViewportOffset = 0
		return
	}
	if l.Cursor < 0 {
		l.Cursor = 0
	}
	if l.Cursor >= len(l.Items) {
		l.Cursor = len(l.Items) - 1
	}
	if l.ViewportOffset > len(l.Items)-1 {
		l.ViewportOffset = 0
	}
}

// EnsureCursorVisible adjusts the viewport offset so the cursor stays within
// the visible row range.
func (l *List) EnsureCursorVisible(maxVisible int) {
	l.clamp()
	if len(l.Items) == 0 || maxVisible <= 0 {
		l.ViewportOffset = 0
		return
	}
	maxOffset := len(l.Items) - maxVisible
	if maxOffset < 0 {
		maxOffset = 0
	}
	if l.ViewportOffset > maxOffset {
		l.ViewportOffset = maxOffset
	}
	if l.ViewportOffset < 0 {
		l.ViewportOffset = 0
	}
	if l.Cursor < l.ViewportOffset {
		l.ViewportOffset = l.Cursor
	}
	if upper := l.ViewportOffset + maxVisible - 1; l.Cursor > upper {
		l.ViewportOffset = l.Cursor - maxVisible + 1
		if l.ViewportOffset > maxOffset {
			l.ViewportOffset = maxOffset
		}
		if l.ViewportOffset < 0 {
			l.ViewportOffset = 0
		}
	}
}

func filterItems(items []Item, query string) []Item {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return cloneItems(items)
	}
	labels := make([]string, len(items))
	for i, item := range items {
		labels[i] = item.Label
	}
	ranks := fuzzy.RankFindNormalizedFold(trimmed, labels)
	if len(ranks) > 0 {
		matches := make(map[int]struct{}, len(ranks))
		for _, rank := range ranks {
			matches[rank.OriginalIndex] = struct{}{}
		}
		filtered := make([]Item, 0, len(matches))
		for idx, item := range items {
			if _, ok := matches[idx]; ok {
				filtered = append(filtered, item)
			}
		}
		if len(filtered) > 0 {
			return filtered
		}
	}
	lower := strings.ToLower(trimmed)
	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Label), lower) ||
			strings.Contains(strings.ToLower(item.ID), lower) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

func bestMatchIndex(items []Item, query string) int {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		if len(items) == 0 {
			return -1
		}
		return 0
	}
	lower := strings.ToLower(trimmed)
	for i, item := range items {
		if strings.EqualFold(item.ID, trimmed) || strings.EqualFold(item.Label, trimmed) {
			return i
		}
	}
	for i, item := range items {
		if strings.HasPrefix(strings.ToLower(item.ID), lower) {
			return i
		}
	}
	for i, item := range items {
		if strings.Contains(strings.ToLower(item.ID), lower) {
			return i
		}
	}
	if len(items) == 0 {
		return -1
	}
	return 0
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	copy(out, items)
	return out
}
