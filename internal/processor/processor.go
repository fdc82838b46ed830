// Package processor is the single entry point through which the remote side
// mutates the view tree. Every operation is one atomic step against the
// registry and state store, serialized onto one dispatch goroutine: inbound
// calls and widget callbacks may arrive on any goroutine, but shared state is
// only ever touched by the loop.
package processor

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/dcmaui/uibridge/internal/event"
	"github.com/dcmaui/uibridge/internal/list"
	"github.com/dcmaui/uibridge/internal/logging/events"
	"github.com/dcmaui/uibridge/internal/registry"
	"github.com/dcmaui/uibridge/internal/state"
	"github.com/dcmaui/uibridge/internal/view"
)

// RootID is the id of the root container. The root is created lazily the
// first time an operation references it, so a missing root self-heals instead
// of failing the operation.
const RootID = "root"

// ErrClosed is returned for operations dispatched after Close.
var ErrClosed = errors.New("processor closed")

// Option adjusts processor construction.
type Option func(*Processor)

// WithListConfig overrides the virtualization defaults applied to new list
// views.
func WithListConfig(cfg list.Config) Option {
	return func(p *Processor) { p.listCfg = cfg }
}

type Processor struct {
	factory ComponentFactory
	bridge  *event.Bridge
	listCfg list.Config

	// Owned by the dispatch goroutine.
	reg       *registry.Registry
	store     *state.Store
	lists     map[string]*list.Window
	listeners map[string]map[string]struct{}

	ops  chan func()
	done chan struct{}
	once sync.Once
}

func New(factory ComponentFactory, bridge *event.Bridge, opts ...Option) *Processor {
	p := &Processor{
		factory:   factory,
		bridge:    bridge,
		reg:       registry.New(),
		store:     state.New(),
		lists:     make(map[string]*list.Window),
		listeners: make(map[string]map[string]struct{}),
		ops:       make(chan func(), 16),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	go p.run()
	return p
}

func (p *Processor) run() {
	for {
		select {
		case <-p.done:
			return
		case fn := <-p.ops:
			fn()
		}
	}
}

// Close stops the dispatch goroutine. In-flight operations complete;
// subsequent calls fail with ErrClosed.
func (p *Processor) Close() {
	p.once.Do(func() { close(p.done) })
}

func (p *Processor) do(fn func()) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}
	done := make(chan struct{})
	wrapped := func() {
		fn()
		close(done)
	}
	select {
	case p.ops <- wrapped:
	case <-p.done:
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-p.done:
		return ErrClosed
	}
}

// NotifyReady emits the system event announcing that the native side is ready
// to process operations. Called when an outbound sink attaches.
func (p *Processor) NotifyReady() {
	p.bridge.Send(event.SystemViewID, "nativeUIReady", nil)
}

// CreateView allocates a fresh id, registers the node and realizes its
// widget. Unknown type tags fall back to the generic container rather than
// erroring; any initialState in the properties is applied immediately.
func (p *Processor) CreateView(tag string, props view.Props) (string, error) {
	var (
		id  string
		err error
	)
	if derr := p.do(func() { id, err = p.createView(tag, props) }); derr != nil {
		return "", derr
	}
	return id, err
}

func (p *Processor) createView(rawTag string, props view.Props) (string, error) {
	tag, known := view.ParseTag(rawTag)
	if !known {
		events.View.UnknownTag(rawTag)
		tag = view.TagView
	}
	if err := view.ValidateProps(tag, props); err != nil {
		return "", err
	}
	id := view.NewID(tag)
	if err := p.realize(id, tag, props); err != nil {
		return "", err
	}
	events.View.Created(id, string(tag))
	return id, nil
}

// realize registers a node and produces its widget, rolling the registration
// back when the factory fails.
func (p *Processor) realize(id string, tag view.TypeTag, props view.Props) error {
	node := &view.Node{ID: id, Tag: tag, Props: props.Clone()}
	p.reg.Register(node)
	if err := p.factory.Realize(id, tag, props); err != nil {
		p.reg.Remove(id)
		return fmt.Errorf("%w: %s: %v", view.ErrCreationFailed, tag, err)
	}
	if tag == view.TagListView {
		p.lists[id] = list.New(id, p.bridge.Send, p.listConfigFor(props))
		p.applyListState(id, props)
	}
	if st, ok := props["initialState"]; ok {
		if m, ok := st.AsMap(); ok && len(m) > 0 {
			partial := view.Props(m)
			p.store.MergeViewState(id, partial)
			p.factory.ApplyState(id, partial)
			p.applyListState(id, partial)
		}
	}
	return nil
}

func (p *Processor) listConfigFor(props view.Props) list.Config {
	cfg := p.listCfg
	if n, ok := props["windowSize"].AsInt(); ok && n > 0 {
		cfg.WindowSize = n
	}
	if t, ok := props["onEndReachedThreshold"].AsNumber(); ok && t > 0 {
		cfg.EndThreshold = t
	}
	return cfg
}

// AttachView links childID under parentID. A child that already has a parent
// is never moved: a clone with a fresh id, copied properties and a state
// snapshot is attached instead, and the original keeps its place.
func (p *Processor) AttachView(parentID, childID string) (bool, error) {
	var err error
	if derr := p.do(func() { err = p.attachView(parentID, childID) }); derr != nil {
		return false, derr
	}
	return err == nil, err
}

func (p *Processor) attachView(parentID, childID string) error {
	parent, err := p.resolveView(parentID)
	if err != nil {
		return err
	}
	child, ok := p.reg.Get(childID)
	if !ok {
		return fmt.Errorf("child %s: %w", childID, view.ErrViewNotFound)
	}
	if child.ParentID != "" {
		cloneID, err := p.cloneView(child)
		if err != nil {
			return err
		}
		if err := p.reg.AddChild(parent.ID, cloneID); err != nil {
			return err
		}
		p.factory.Attach(parent.ID, cloneID)
		events.View.Cloned(childID, cloneID, parent.ID)
		return nil
	}
	if err := p.reg.AddChild(parent.ID, childID); err != nil {
		return err
	}
	p.factory.Attach(parent.ID, childID)
	events.View.Attached(parent.ID, childID)
	return nil
}

// cloneView duplicates a node (properties and state snapshot, not children)
// under a derived id and realizes a widget for it.
func (p *Processor) cloneView(orig *view.Node) (string, error) {
	cloneID := view.CloneID(orig.ID)
	if err := p.realize(cloneID, orig.Tag, orig.Props); err != nil {
		return "", err
	}
	if snapshot := p.store.Snapshot(orig.ID); len(snapshot) > 0 {
		p.store.MergeViewState(cloneID, snapshot)
		p.factory.ApplyState(cloneID, snapshot)
		p.applyListState(cloneID, snapshot)
	}
	return cloneID, nil
}

// DetachView removes childID from parentID's list without deleting it; the
// child stays registered, parentless, until re-attached or deleted.
// Detaching an id that is not currently a child is not an error.
func (p *Processor) DetachView(parentID, childID string) (bool, error) {
	var err error
	if derr := p.do(func() { err = p.detachView(parentID, childID) }); derr != nil {
		return false, derr
	}
	return err == nil, err
}

func (p *Processor) detachView(parentID, childID string) error {
	if _, ok := p.reg.Get(parentID); !ok {
		return fmt.Errorf("parent %s: %w", parentID, view.ErrViewNotFound)
	}
	if _, ok := p.reg.Get(childID); !ok {
		return fmt.Errorf("child %s: %w", childID, view.ErrViewNotFound)
	}
	if err := p.reg.DetachChild(parentID, childID); err != nil {
		return err
	}
	p.factory.Detach(parentID, childID)
	events.View.Detached(parentID, childID)
	return nil
}

// DeleteView removes id and every descendant. Deleting an absent id returns
// false without error, so remote reconciliation can repeat deletes safely.
func (p *Processor) DeleteView(id string) (bool, error) {
	var deleted bool
	if derr := p.do(func() { deleted = p.deleteView(id) }); derr != nil {
		return false, derr
	}
	return deleted, nil
}

func (p *Processor) deleteView(id string) bool {
	removed := p.reg.Remove(id)
	if removed == nil {
		return false
	}
	for _, rid := range removed {
		p.store.DropView(rid)
		delete(p.listeners, rid)
		delete(p.lists, rid)
		p.factory.Destroy(rid)
	}
	events.View.Deleted(id, len(removed))
	return true
}

// SetChildren atomically replaces parentID's ordered child list. Ids that
// don't exist yet are skipped with a diagnostic; a child that belongs to
// another parent is cloned rather than moved; dropped children are detached,
// never deleted.
func (p *Processor) SetChildren(parentID string, childIDs []string) (bool, error) {
	var err error
	if derr := p.do(func() { err = p.setChildren(parentID, childIDs) }); derr != nil {
		return false, derr
	}
	return err == nil, err
}

func (p *Processor) setChildren(parentID string, childIDs []string) error {
	parent, err := p.resolveView(parentID)
	if err != nil {
		return err
	}

	// Validate before mutating anything so the replacement stays atomic.
	type entry struct {
		id    string
		clone bool
	}
	entries := make([]entry, 0, len(childIDs))
	for _, id := range childIDs {
		child, ok := p.reg.Get(id)
		if !ok {
			events.View.ChildSkipped(parent.ID, id)
			continue
		}
		if p.reg.IsAncestor(id, parent.ID) {
			return fmt.Errorf("%w: %s is an ancestor of %s", view.ErrCycleDetected, id, parent.ID)
		}
		needsClone := child.ParentID != "" && child.ParentID != parent.ID
		entries = append(entries, entry{id: id, clone: needsClone})
	}

	before := p.reg.Children(parent.ID)
	wasChild := make(map[string]struct{}, len(before))
	for _, id := range before {
		wasChild[id] = struct{}{}
	}

	final := make([]string, 0, len(entries))
	for _, e := range entries {
		id := e.id
		if e.clone {
			orig, _ := p.reg.Get(e.id)
			cloneID, err := p.cloneView(orig)
			if err != nil {
				return err
			}
			events.View.Cloned(e.id, cloneID, parent.ID)
			id = cloneID
		}
		final = append(final, id)
	}
	if err := p.reg.SetChildren(parent.ID, final); err != nil {
		return err
	}

	inFinal := make(map[string]struct{}, len(final))
	for _, id := range final {
		inFinal[id] = struct{}{}
	}
	for _, old := range before {
		if _, keep := inFinal[old]; !keep {
			p.factory.Detach(parent.ID, old)
		}
	}
	for _, id := range final {
		if _, had := wasChild[id]; !had {
			p.factory.Attach(parent.ID, id)
		}
	}
	events.View.ChildrenSet(parent.ID, len(final))
	return nil
}

// UpdateViewState merges partial state into id's state map and pushes the
// change into the realized widget.
func (p *Processor) UpdateViewState(id string, partial view.Props) (bool, error) {
	var err error
	if derr := p.do(func() { err = p.updateViewState(id, partial) }); derr != nil {
		return false, derr
	}
	return err == nil, err
}

func (p *Processor) updateViewState(id string, partial view.Props) error {
	if _, ok := p.reg.Get(id); !ok {
		return fmt.Errorf("view %s: %w", id, view.ErrViewNotFound)
	}
	p.store.MergeViewState(id, partial)
	p.factory.ApplyState(id, partial)
	p.applyListState(id, partial)
	events.State.ViewMerged(id, partial.Keys())
	return nil
}

// applyListState routes the virtualization-relevant state keys into the
// list window, when id is a list view.
func (p *Processor) applyListState(id string, st view.Props) {
	w, ok := p.lists[id]
	if !ok {
		return
	}
	if n, ok := st["dataLength"].AsInt(); ok {
		w.SetDataLength(n)
	}
	if n, ok := st["windowSize"].AsInt(); ok {
		w.SetWindowSize(n)
	}
}

// GetState returns the values of the requested state keys for id.
func (p *Processor) GetState(id string, keys []string) (view.Props, error) {
	var (
		out view.Props
		err error
	)
	derr := p.do(func() {
		if _, ok := p.reg.Get(id); !ok {
			err = fmt.Errorf("view %s: %w", id, view.ErrViewNotFound)
			return
		}
		out = p.store.ViewState(id, keys)
	})
	if derr != nil {
		return nil, derr
	}
	return out, err
}

// GetChildrenIds returns the ordered child list for id.
func (p *Processor) GetChildrenIds(id string) ([]string, error) {
	var (
		out []string
		err error
	)
	derr := p.do(func() {
		if _, ok := p.reg.Get(id); !ok {
			err = fmt.Errorf("view %s: %w", id, view.ErrViewNotFound)
			return
		}
		out = p.reg.Children(id)
	})
	if derr != nil {
		return nil, derr
	}
	return out, err
}

// AddEventListener registers interest in an interaction event type for id.
// Interaction events are only forwarded for registered pairs.
func (p *Processor) AddEventListener(id, eventType string) (bool, error) {
	var err error
	derr := p.do(func() {
		if _, ok := p.reg.Get(id); !ok {
			err = fmt.Errorf("view %s: %w", id, view.ErrViewNotFound)
			return
		}
		set, ok := p.listeners[id]
		if !ok {
			set = make(map[string]struct{})
			p.listeners[id] = set
		}
		set[eventType] = struct{}{}
	})
	if derr != nil {
		return false, derr
	}
	return err == nil, err
}

// EmitInteraction forwards a widget interaction (press, focus, blur, ...)
// outbound, provided a listener was registered for the pair.
func (p *Processor) EmitInteraction(id, eventType string, params map[string]any) {
	_ = p.do(func() {
		set, ok := p.listeners[id]
		if !ok {
			return
		}
		if _, ok := set[eventType]; !ok {
			return
		}
		p.bridge.Send(id, eventType, params)
	})
}

// SimulateEvent re-emits an event outbound on behalf of a view, with the
// event name standardized (leading "on" stripped, first letter lowered).
func (p *Processor) SimulateEvent(id, eventName string, params map[string]any) (bool, error) {
	derr := p.do(func() {
		p.bridge.Send(id, standardizeEventName(eventName), params)
	})
	if derr != nil {
		return false, derr
	}
	return true, nil
}

func standardizeEventName(name string) string {
	if strings.HasPrefix(name, "on") && len(name) > 2 {
		rest := []rune(name[2:])
		rest[0] = unicode.ToLower(rest[0])
		return string(rest)
	}
	return name
}

// GetViewInfo returns the id, type tag and selected properties of a view.
func (p *Processor) GetViewInfo(id string) (map[string]any, error) {
	var (
		info map[string]any
		err  error
	)
	derr := p.do(func() {
		node, ok := p.reg.Get(id)
		if !ok {
			err = fmt.Errorf("view %s: %w", id, view.ErrViewNotFound)
			return
		}
		info = map[string]any{"id": node.ID, "type": string(node.Tag)}
		if text, ok := node.Props["text"].AsString(); ok {
			info["text"] = text
		}
		if style, ok := node.Props["style"].AsMap(); ok {
			info["style"] = view.Props(style).Interface()
		}
	})
	if derr != nil {
		return nil, derr
	}
	return info, err
}

// RegisterStateConsumer subscribes id to a global state key. Registration is
// idempotent, and an existing value for the key is applied immediately.
func (p *Processor) RegisterStateConsumer(id, key string) (bool, error) {
	var err error
	derr := p.do(func() {
		if _, ok := p.reg.Get(id); !ok {
			err = fmt.Errorf("view %s: %w", id, view.ErrViewNotFound)
			return
		}
		value, applied := p.store.RegisterConsumer(id, key)
		if applied {
			partial := view.Props{key: value}
			p.factory.ApplyState(id, partial)
			p.applyListState(id, partial)
		}
		events.State.ConsumerRegistered(id, key, applied)
	})
	if derr != nil {
		return false, derr
	}
	return err == nil, err
}

// SetGlobalState stores value under key, fans it out into every consumer's
// per-view state and widget, and emits a single onStateChange notification
// with the raw key/value (not one per consumer).
func (p *Processor) SetGlobalState(key string, value view.Value) (bool, error) {
	derr := p.do(func() {
		consumers := p.store.SetGlobal(key, value)
		partial := view.Props{key: value}
		for _, id := range consumers {
			p.factory.ApplyState(id, partial)
			p.applyListState(id, partial)
		}
		events.State.GlobalSet(key, len(consumers))
		p.bridge.Send(event.SystemViewID, "onStateChange", map[string]any{
			"key":   key,
			"value": value.Interface(),
		})
	})
	if derr != nil {
		return false, derr
	}
	return true, nil
}

// SetItem installs the realized widget for a list index. The swap into the
// visible list happens immediately when the index is on screen, otherwise on
// the next became-visible hook.
func (p *Processor) SetItem(listID string, index int, itemID, key string) (bool, error) {
	var err error
	derr := p.do(func() {
		w, werr := p.resolveList(listID)
		if werr != nil {
			err = werr
			return
		}
		if index < 0 {
			err = fmt.Errorf("%w: negative index %d", view.ErrInvalidArguments, index)
			return
		}
		if _, ok := p.reg.Get(itemID); !ok {
			err = fmt.Errorf("item %s: %w", itemID, view.ErrViewNotFound)
			return
		}
		if w.SetItem(index, itemID, key) {
			p.factory.SwapItem(listID, index, itemID)
		}
	})
	if derr != nil {
		return false, derr
	}
	return err == nil, err
}

// ScrollToIndex delegates to the platform scroll primitive. Out-of-range
// indices are a no-op: no event, no state change.
func (p *Processor) ScrollToIndex(listID string, index int, animated bool) (bool, error) {
	var err error
	derr := p.do(func() {
		w, werr := p.resolveList(listID)
		if werr != nil {
			err = werr
			return
		}
		if w.ScrollToIndex(index) {
			p.factory.ScrollTo(listID, index, animated)
		}
	})
	if derr != nil {
		return false, derr
	}
	return err == nil, err
}

// RefreshData resets the list's realization state and installs a new data
// length. This is the only way the requested/rendered sets shrink.
func (p *Processor) RefreshData(listID string, dataLength int) (bool, error) {
	var err error
	derr := p.do(func() {
		w, werr := p.resolveList(listID)
		if werr != nil {
			err = werr
			return
		}
		w.Refresh(dataLength)
		partial := view.Props{"dataLength": view.Int(dataLength)}
		p.store.MergeViewState(listID, partial)
		p.factory.ApplyState(listID, partial)
	})
	if derr != nil {
		return false, derr
	}
	return err == nil, err
}

// ItemBecameVisible is the hook fired by the widget-realization layer when a
// list row scrolls into view.
func (p *Processor) ItemBecameVisible(listID string, index int) {
	_ = p.do(func() {
		w, err := p.resolveList(listID)
		if err != nil {
			return
		}
		if widgetID, swap := w.ItemVisible(index); swap {
			p.factory.SwapItem(listID, index, widgetID)
		}
	})
}

// ItemStoppedBeingVisible is the counterpart hook for rows leaving the view.
func (p *Processor) ItemStoppedBeingVisible(listID string, index int) {
	_ = p.do(func() {
		if w, err := p.resolveList(listID); err == nil {
			w.ItemHidden(index)
		}
	})
}

// ScrollChanged feeds a scroll geometry sample from the realization layer
// into the window, driving the throttled onScroll and onEndReached events.
func (p *Processor) ScrollChanged(listID string, off list.Offset) {
	_ = p.do(func() {
		if w, err := p.resolveList(listID); err == nil {
			w.Scroll(off)
		}
	})
}

// ResetViewRegistry drops every view and recreates the root, as a recovery
// path after remote-side errors.
func (p *Processor) ResetViewRegistry() (bool, error) {
	derr := p.do(func() {
		ids := p.reg.IDs()
		for _, id := range ids {
			p.factory.Destroy(id)
		}
		p.reg = registry.New()
		p.store = state.New()
		p.lists = make(map[string]*list.Window)
		p.listeners = make(map[string]map[string]struct{})
		events.View.RegistryReset(len(ids))
		p.ensureRoot()
	})
	if derr != nil {
		return false, derr
	}
	return true, nil
}

// DescribeHierarchy renders the current tree as an indented diagnostic dump.
func (p *Processor) DescribeHierarchy() string {
	var out string
	_ = p.do(func() { out = p.reg.DescribeHierarchy() })
	return out
}

// ViewIDs returns every registered view id, sorted.
func (p *Processor) ViewIDs() []string {
	var out []string
	_ = p.do(func() { out = p.reg.IDs() })
	return out
}

// resolveView looks an id up, lazily (re)creating the root container when the
// root id is referenced but missing.
func (p *Processor) resolveView(id string) (*view.Node, error) {
	if node, ok := p.reg.Get(id); ok {
		return node, nil
	}
	if id == RootID {
		return p.ensureRoot(), nil
	}
	return nil, fmt.Errorf("view %s: %w", id, view.ErrViewNotFound)
}

func (p *Processor) ensureRoot() *view.Node {
	if node, ok := p.reg.Get(RootID); ok {
		return node
	}
	node := &view.Node{ID: RootID, Tag: view.TagView, Props: view.Props{}}
	p.reg.Register(node)
	// Root realization failures are not fatal: the tree stays usable and
	// the factory can catch up on the next reset.
	_ = p.factory.Realize(RootID, view.TagView, nil)
	events.View.RootCreated(RootID)
	return node
}

func (p *Processor) resolveList(listID string) (*list.Window, error) {
	if _, ok := p.reg.Get(listID); !ok {
		return nil, fmt.Errorf("list %s: %w", listID, view.ErrViewNotFound)
	}
	w, ok := p.lists[listID]
	if !ok {
		return nil, fmt.Errorf("%w: view %s is not a list", view.ErrInvalidArguments, listID)
	}
	return w, nil
}
