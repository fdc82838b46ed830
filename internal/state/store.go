// Package state holds per-view state maps, the global keyed state table, and
// the consumer sets that subscribe views to global keys. The store is passive:
// it records and answers, while the operation processor performs the fan-out
// side effects (widget updates, the outbound onStateChange notification).
package state

import (
	"sort"

	"github.com/dcmaui/uibridge/internal/view"
)

type Store struct {
	views     map[string]view.Props
	global    map[string]view.Value
	consumers map[string]map[string]struct{}
}

func New() *Store {
	return &Store{
		views:     make(map[string]view.Props),
		global:    make(map[string]view.Value),
		consumers: make(map[string]map[string]struct{}),
	}
}

// MergeViewState merges partial into viewID's state map, overwriting existing
// keys. Other keys and other views are untouched.
func (s *Store) MergeViewState(viewID string, partial view.Props) {
	cur, ok := s.views[viewID]
	if !ok {
		cur = make(view.Props, len(partial))
		s.views[viewID] = cur
	}
	cur.Merge(partial)
}

// ViewState returns the values for the requested keys. Absent keys are
// omitted from the result.
func (s *Store) ViewState(viewID string, keys []string) view.Props {
	out := make(view.Props, len(keys))
	cur := s.views[viewID]
	for _, k := range keys {
		if v, ok := cur[k]; ok {
			out[k] = v.Clone()
		}
	}
	return out
}

// Snapshot returns a deep copy of viewID's whole state map, used when a view
// is cloned on re-attach.
func (s *Store) Snapshot(viewID string) view.Props {
	return s.views[viewID].Clone()
}

// DropView removes viewID's state and every consumer registration that names
// it.
func (s *Store) DropView(viewID string) {
	delete(s.views, viewID)
	for key, set := range s.consumers {
		delete(set, viewID)
		if len(set) == 0 {
			delete(s.consumers, key)
		}
	}
}

// SetGlobal stores value under key and merges it into the state of every
// consumer. It returns the consumer ids, sorted, so the caller can push the
// change to each realized widget.
func (s *Store) SetGlobal(key string, value view.Value) []string {
	s.global[key] = value.Clone()
	set := s.consumers[key]
	ids := make([]string, 0, len(set))
	for id := range set {
		s.MergeViewState(id, view.Props{key: value})
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Global returns the current value for a global key.
func (s *Store) Global(key string) (view.Value, bool) {
	v, ok := s.global[key]
	return v, ok
}

// RegisterConsumer subscribes viewID to key. Registration is idempotent. When
// a value already exists for key it is merged into the view's state
// immediately, so there is no missed-initial-value window; the returned value
// tells the caller whether a widget update is due.
func (s *Store) RegisterConsumer(viewID, key string) (view.Value, bool) {
	set, ok := s.consumers[key]
	if !ok {
		set = make(map[string]struct{})
		s.consumers[key] = set
	}
	set[viewID] = struct{}{}
	v, ok := s.global[key]
	if !ok {
		return view.Value{}, false
	}
	s.MergeViewState(viewID, view.Props{key: v})
	return v.Clone(), true
}

// Consumers returns the sorted subscriber ids for key.
func (s *Store) Consumers(key string) []string {
	set := s.consumers[key]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
