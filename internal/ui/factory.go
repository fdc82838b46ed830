package ui

import (
	"sort"
	"sync"

	"github.com/dcmaui/uibridge/internal/view"
)

// Widget is the realized representation of one tree node, as the inspector
// sees it.
type Widget struct {
	ID    string
	Tag   view.TypeTag
	Text  string
	State view.Props
	Items map[int]string
}

// TermFactory realizes tree nodes as inspectable records and wakes the
// inspector after every change. It is called from the processor's dispatch
// goroutine while the inspector reads snapshots from the Bubble Tea
// goroutine, hence the mutex.
type TermFactory struct {
	mu      sync.Mutex
	widgets map[string]*Widget
	updates chan struct{}
}

func NewTermFactory() *TermFactory {
	return &TermFactory{
		widgets: make(map[string]*Widget),
		updates: make(chan struct{}, 1),
	}
}

// Updates signals after each mutation; signals coalesce while the inspector
// is busy.
func (f *TermFactory) Updates() <-chan struct{} { return f.updates }

func (f *TermFactory) notify() {
	select {
	case f.updates <- struct{}{}:
	default:
	}
}

func (f *TermFactory) Realize(id string, tag view.TypeTag, props view.Props) error {
	f.mu.Lock()
	w := &Widget{ID: id, Tag: tag, State: view.Props{}}
	if text, ok := props["text"].AsString(); ok {
		w.Text = text
	}
	f.widgets[id] = w
	f.mu.Unlock()
	f.notify()
	return nil
}

func (f *TermFactory) Attach(parentID, childID string) { f.notify() }
func (f *TermFactory) Detach(parentID, childID string) { f.notify() }

func (f *TermFactory) Destroy(id string) {
	f.mu.Lock()
	delete(f.widgets, id)
	f.mu.Unlock()
	f.notify()
}

func (f *TermFactory) ApplyState(id string, st view.Props) {
	f.mu.Lock()
	if w, ok := f.widgets[id]; ok {
		w.State.Merge(st)
		if text, ok := st["text"].AsString(); ok {
			w.Text = text
		}
	}
	f.mu.Unlock()
	f.notify()
}

func (f *TermFactory) ScrollTo(listID string, index int, animated bool) {
	f.notify()
}

func (f *TermFactory) SwapItem(listID string, index int, itemID string) {
	f.mu.Lock()
	if w, ok := f.widgets[listID]; ok {
		if w.Items == nil {
			w.Items = make(map[int]string)
		}
		w.Items[index] = itemID
	}
	f.mu.Unlock()
	f.notify()
}

// Snapshot returns a copy of every widget, sorted by id.
func (f *TermFactory) Snapshot() []Widget {
	f.mu.Lock()
	out := make([]Widget, 0, len(f.widgets))
	for _, w := range f.widgets {
		dup := Widget{ID: w.ID, Tag: w.Tag, Text: w.Text, State: w.State.Clone()}
		if len(w.Items) > 0 {
			dup.Items = make(map[int]string, len(w.Items))
			for k, v := range w.Items {
				dup.Items[k] = v
			}
		}
		out = append(out, dup)
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lookup returns a copy of one widget.
func (f *TermFactory) Lookup(id string) (Widget, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w, ok := f.widgets[id]
	if !ok {
		return Widget{}, false
	}
	dup := Widget{ID: w.ID, Tag: w.Tag, Text: w.Text, State: w.State.Clone()}
	if len(w.Items) > 0 {
		dup.Items = make(map[int]string, len(w.Items))
		for k, v := range w.Items {
			dup.Items[k] = v
		}
	}
	return dup, true
}
