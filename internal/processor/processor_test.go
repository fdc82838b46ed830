package processor

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcmaui/uibridge/internal/event"
	"github.com/dcmaui/uibridge/internal/list"
	"github.com/dcmaui/uibridge/internal/view"
)

// recordingFactory captures every realization side effect for assertions.
type recordingFactory struct {
	mu       sync.Mutex
	realized map[string]view.TypeTag
	state    map[string]view.Props
	swaps    []string
	scrolls  []int
}

func newRecordingFactory() *recordingFactory {
	return &recordingFactory{
		realized: make(map[string]view.TypeTag),
		state:    make(map[string]view.Props),
	}
}

func (f *recordingFactory) Realize(id string, tag view.TypeTag, props view.Props) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.realized[id] = tag
	return nil
}

func (f *recordingFactory) Attach(parentID, childID string) {}
func (f *recordingFactory) Detach(parentID, childID string) {}

func (f *recordingFactory) Destroy(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.realized, id)
}

func (f *recordingFactory) ApplyState(id string, st view.Props) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.state[id]
	if !ok {
		cur = view.Props{}
		f.state[id] = cur
	}
	cur.Merge(st)
}

func (f *recordingFactory) ScrollTo(listID string, index int, animated bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scrolls = append(f.scrolls, index)
}

func (f *recordingFactory) SwapItem(listID string, index int, itemID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swaps = append(f.swaps, itemID)
}

func (f *recordingFactory) tagOf(id string) (view.TypeTag, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tag, ok := f.realized[id]
	return tag, ok
}

func (f *recordingFactory) stateOf(id string, key string) (view.Value, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.state[id]
	if !ok {
		return view.Value{}, false
	}
	v, ok := st[key]
	return v, ok
}

type fixture struct {
	proc    *Processor
	factory *recordingFactory
	bridge  *event.Bridge
	events  chan event.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	factory := newRecordingFactory()
	bridge := event.New()
	proc := New(factory, bridge)
	t.Cleanup(func() {
		proc.Close()
		bridge.Close()
	})
	events := make(chan event.Event, 64)
	bridge.Attach(event.SinkFunc(func(evt event.Event) { events <- evt }))
	return &fixture{proc: proc, factory: factory, bridge: bridge, events: events}
}

func (f *fixture) waitEvent(t *testing.T, name string) event.Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case evt := <-f.events:
			if evt.Name == name {
				return evt
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", name)
		}
	}
}

func (f *fixture) expectNoEvent(t *testing.T, name string) {
	t.Helper()
	timeout := time.After(100 * time.Millisecond)
	for {
		select {
		case evt := <-f.events:
			if evt.Name == name {
				t.Fatalf("unexpected event %+v", evt)
			}
		case <-timeout:
			return
		}
	}
}

func TestCreateViewAllocatesTaggedID(t *testing.T) {
	f := newFixture(t)
	id, err := f.proc.CreateView("Label", view.Props{"text": view.String("hi")})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "Label-"))
	tag, ok := f.factory.tagOf(id)
	require.True(t, ok)
	require.Equal(t, view.TagLabel, tag)
}

func TestCreateViewUnknownTagFallsBackToContainer(t *testing.T) {
	f := newFixture(t)
	id, err := f.proc.CreateView("Carousel", nil)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "View-"))
	tag, _ := f.factory.tagOf(id)
	require.Equal(t, view.TagView, tag)
}

func TestCreateViewRejectsBadProps(t *testing.T) {
	f := newFixture(t)
	_, err := f.proc.CreateView("Label", view.Props{"dataLength": view.Int(3)})
	require.ErrorIs(t, err, view.ErrInvalidArguments)
}

func TestCreateViewAppliesInitialState(t *testing.T) {
	f := newFixture(t)
	id, err := f.proc.CreateView("Label", view.Props{
		"initialState": view.Map(map[string]view.Value{"text": view.String("ready")}),
	})
	require.NoError(t, err)
	st, err := f.proc.GetState(id, []string{"text"})
	require.NoError(t, err)
	text, _ := st["text"].AsString()
	require.Equal(t, "ready", text)
}

func TestAttachToMissingRootSelfHeals(t *testing.T) {
	f := newFixture(t)
	id, err := f.proc.CreateView("View", nil)
	require.NoError(t, err)
	okAttach, err := f.proc.AttachView(RootID, id)
	require.NoError(t, err)
	require.True(t, okAttach)
	children, err := f.proc.GetChildrenIds(RootID)
	require.NoError(t, err)
	require.Equal(t, []string{id}, children)
}

func TestAttachParentedChildClonesInstead(t *testing.T) {
	f := newFixture(t)
	parentA, _ := f.proc.CreateView("View", nil)
	parentB, _ := f.proc.CreateView("View", nil)
	child, _ := f.proc.CreateView("Label", view.Props{"text": view.String("x")})
	_, err := f.proc.UpdateViewState(child, view.Props{"text": view.String("stateful")})
	require.NoError(t, err)

	_, err = f.proc.AttachView(parentA, child)
	require.NoError(t, err)
	_, err = f.proc.AttachView(parentB, child)
	require.NoError(t, err)

	// The original stays under parentA.
	childrenA, _ := f.proc.GetChildrenIds(parentA)
	require.Equal(t, []string{child}, childrenA)

	// parentB got a fresh duplicate carrying a state snapshot.
	childrenB, _ := f.proc.GetChildrenIds(parentB)
	require.Len(t, childrenB, 1)
	clone := childrenB[0]
	require.NotEqual(t, child, clone)
	require.Contains(t, clone, child+"-duplicate-")

	st, err := f.proc.GetState(clone, []string{"text"})
	require.NoError(t, err)
	text, _ := st["text"].AsString()
	require.Equal(t, "stateful", text)
}

func TestAttachUnknownViewFails(t *testing.T) {
	f := newFixture(t)
	parent, _ := f.proc.CreateView("View", nil)
	_, err := f.proc.AttachView(parent, "nope")
	require.ErrorIs(t, err, view.ErrViewNotFound)
	_, err = f.proc.AttachView("nope", parent)
	require.ErrorIs(t, err, view.ErrViewNotFound)
}

func TestDeleteViewCascadesAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	parent, _ := f.proc.CreateView("View", nil)
	child, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.AttachView(parent, child)
	require.NoError(t, err)

	deleted, err := f.proc.DeleteView(parent)
	require.NoError(t, err)
	require.True(t, deleted)
	_, ok := f.factory.tagOf(child)
	require.False(t, ok, "descendant widget must be destroyed")
	_, err = f.proc.GetChildrenIds(child)
	require.ErrorIs(t, err, view.ErrViewNotFound)

	deleted, err = f.proc.DeleteView(parent)
	require.NoError(t, err)
	require.False(t, deleted)
}

func TestDetachKeepsChildAlive(t *testing.T) {
	f := newFixture(t)
	parent, _ := f.proc.CreateView("View", nil)
	child, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.AttachView(parent, child)
	require.NoError(t, err)

	okDetach, err := f.proc.DetachView(parent, child)
	require.NoError(t, err)
	require.True(t, okDetach)
	children, _ := f.proc.GetChildrenIds(parent)
	require.Empty(t, children)
	_, err = f.proc.GetChildrenIds(child)
	require.NoError(t, err, "detached child must stay registered")
}

func TestSetChildrenSkipsUnknownAndDetachesDropped(t *testing.T) {
	f := newFixture(t)
	parent, _ := f.proc.CreateView("View", nil)
	a, _ := f.proc.CreateView("Label", nil)
	b, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.SetChildren(parent, []string{a, b})
	require.NoError(t, err)

	_, err = f.proc.SetChildren(parent, []string{b, "ghost"})
	require.NoError(t, err)
	children, _ := f.proc.GetChildrenIds(parent)
	require.Equal(t, []string{b}, children)
	// a was dropped from the list but not deleted.
	_, err = f.proc.GetChildrenIds(a)
	require.NoError(t, err)
}

func TestSetChildrenClonesForeignChildren(t *testing.T) {
	f := newFixture(t)
	parentA, _ := f.proc.CreateView("View", nil)
	parentB, _ := f.proc.CreateView("View", nil)
	child, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.AttachView(parentA, child)
	require.NoError(t, err)

	_, err = f.proc.SetChildren(parentB, []string{child})
	require.NoError(t, err)
	childrenA, _ := f.proc.GetChildrenIds(parentA)
	require.Equal(t, []string{child}, childrenA)
	childrenB, _ := f.proc.GetChildrenIds(parentB)
	require.Len(t, childrenB, 1)
	require.Contains(t, childrenB[0], child+"-duplicate-")
}

func TestSetChildrenRejectsCycles(t *testing.T) {
	f := newFixture(t)
	parent, _ := f.proc.CreateView("View", nil)
	child, _ := f.proc.CreateView("View", nil)
	_, err := f.proc.AttachView(parent, child)
	require.NoError(t, err)
	_, err = f.proc.SetChildren(child, []string{parent})
	require.ErrorIs(t, err, view.ErrCycleDetected)
}

func TestUpdateViewStateReachesWidget(t *testing.T) {
	f := newFixture(t)
	id, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.UpdateViewState(id, view.Props{"text": view.String("new")})
	require.NoError(t, err)
	v, ok := f.factory.stateOf(id, "text")
	require.True(t, ok)
	text, _ := v.AsString()
	require.Equal(t, "new", text)
}

func TestGlobalStateFanOut(t *testing.T) {
	f := newFixture(t)
	a, _ := f.proc.CreateView("Label", nil)
	b, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.RegisterStateConsumer(a, "theme")
	require.NoError(t, err)
	_, err = f.proc.RegisterStateConsumer(b, "theme")
	require.NoError(t, err)

	_, err = f.proc.SetGlobalState("theme", view.String("dark"))
	require.NoError(t, err)

	evt := f.waitEvent(t, "onStateChange")
	require.Equal(t, event.SystemViewID, evt.ViewID)
	require.Equal(t, "theme", evt.Params["key"])
	require.Equal(t, "dark", evt.Params["value"])

	for _, id := range []string{a, b} {
		v, ok := f.factory.stateOf(id, "theme")
		require.True(t, ok)
		theme, _ := v.AsString()
		require.Equal(t, "dark", theme)
	}
}

func TestRegisterConsumerAppliesCurrentValue(t *testing.T) {
	f := newFixture(t)
	_, err := f.proc.SetGlobalState("theme", view.String("light"))
	require.NoError(t, err)
	id, _ := f.proc.CreateView("Label", nil)
	_, err = f.proc.RegisterStateConsumer(id, "theme")
	require.NoError(t, err)
	v, ok := f.factory.stateOf(id, "theme")
	require.True(t, ok)
	theme, _ := v.AsString()
	require.Equal(t, "light", theme)
}

func TestInteractionEventsAreListenerGated(t *testing.T) {
	f := newFixture(t)
	id, _ := f.proc.CreateView("TouchableOpacity", nil)

	f.proc.EmitInteraction(id, "onPress", nil)
	f.expectNoEvent(t, "onPress")

	_, err := f.proc.AddEventListener(id, "onPress")
	require.NoError(t, err)
	f.proc.EmitInteraction(id, "onPress", map[string]any{"x": 1.0})
	evt := f.waitEvent(t, "onPress")
	require.Equal(t, id, evt.ViewID)
	require.Equal(t, 1.0, evt.Params["x"])
}

func TestSimulateEventStandardizesName(t *testing.T) {
	f := newFixture(t)
	id, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.SimulateEvent(id, "onPress", nil)
	require.NoError(t, err)
	evt := f.waitEvent(t, "press")
	require.Equal(t, id, evt.ViewID)

	// Names without the prefix pass through unchanged.
	_, err = f.proc.SimulateEvent(id, "custom", nil)
	require.NoError(t, err)
	f.waitEvent(t, "custom")
}

func TestListViewRequestsItemsAroundVisible(t *testing.T) {
	f := newFixture(t)
	listID, err := f.proc.CreateView("ListView", view.Props{
		"dataLength": view.Int(100),
		"windowSize": view.Int(5),
	})
	require.NoError(t, err)

	f.proc.ItemBecameVisible(listID, 50)
	seen := make(map[int]bool)
	for i := 0; i < 5; i++ {
		evt := f.waitEvent(t, "requestItem")
		require.Equal(t, listID, evt.ViewID)
		seen[evt.Params["index"].(int)] = true
	}
	for i := 48; i <= 52; i++ {
		require.True(t, seen[i], "expected index %d requested", i)
	}
}

func TestSetItemSwapsVisibleIndex(t *testing.T) {
	f := newFixture(t)
	listID, _ := f.proc.CreateView("ListView", view.Props{
		"dataLength": view.Int(10),
		"windowSize": view.Int(3),
	})
	itemID, _ := f.proc.CreateView("Label", nil)
	f.proc.ItemBecameVisible(listID, 2)

	okSet, err := f.proc.SetItem(listID, 2, itemID, "row-2")
	require.NoError(t, err)
	require.True(t, okSet)
	f.factory.mu.Lock()
	swaps := append([]string(nil), f.factory.swaps...)
	f.factory.mu.Unlock()
	require.Equal(t, []string{itemID}, swaps)
}

func TestSetItemRejectsBadArguments(t *testing.T) {
	f := newFixture(t)
	listID, _ := f.proc.CreateView("ListView", nil)
	plain, _ := f.proc.CreateView("View", nil)
	itemID, _ := f.proc.CreateView("Label", nil)

	_, err := f.proc.SetItem(listID, -1, itemID, "")
	require.ErrorIs(t, err, view.ErrInvalidArguments)
	_, err = f.proc.SetItem(listID, 0, "ghost", "")
	require.ErrorIs(t, err, view.ErrViewNotFound)
	_, err = f.proc.SetItem(plain, 0, itemID, "")
	require.ErrorIs(t, err, view.ErrInvalidArguments)
}

func TestScrollToIndexDelegatesInRangeOnly(t *testing.T) {
	f := newFixture(t)
	listID, _ := f.proc.CreateView("ListView", view.Props{"dataLength": view.Int(10)})
	_, err := f.proc.ScrollToIndex(listID, 5, true)
	require.NoError(t, err)
	_, err = f.proc.ScrollToIndex(listID, 50, false)
	require.NoError(t, err)
	f.factory.mu.Lock()
	scrolls := append([]int(nil), f.factory.scrolls...)
	f.factory.mu.Unlock()
	require.Equal(t, []int{5}, scrolls)
}

func TestRefreshDataResetsAndUpdatesState(t *testing.T) {
	f := newFixture(t)
	listID, _ := f.proc.CreateView("ListView", view.Props{
		"dataLength": view.Int(100),
		"windowSize": view.Int(3),
	})
	f.proc.ItemBecameVisible(listID, 50)
	f.waitEvent(t, "requestItem")

	_, err := f.proc.RefreshData(listID, 20)
	require.NoError(t, err)
	st, err := f.proc.GetState(listID, []string{"dataLength"})
	require.NoError(t, err)
	n, _ := st["dataLength"].AsInt()
	require.Equal(t, 20, n)
}

func TestScrollChangedEmitsScrollEvent(t *testing.T) {
	f := newFixture(t)
	listID, _ := f.proc.CreateView("ListView", view.Props{"dataLength": view.Int(100)})
	f.proc.ScrollChanged(listID, list.Offset{Y: 10, ContentH: 5000, ViewportH: 600})
	evt := f.waitEvent(t, "onScroll")
	require.Equal(t, listID, evt.ViewID)
}

func TestResetViewRegistryDropsEverythingAndRecreatesRoot(t *testing.T) {
	f := newFixture(t)
	id, _ := f.proc.CreateView("Label", nil)
	_, err := f.proc.AttachView(RootID, id)
	require.NoError(t, err)

	_, err = f.proc.ResetViewRegistry()
	require.NoError(t, err)
	require.Equal(t, []string{RootID}, f.proc.ViewIDs())
	children, err := f.proc.GetChildrenIds(RootID)
	require.NoError(t, err)
	require.Empty(t, children)
}

func TestNotifyReadyEmitsSystemEvent(t *testing.T) {
	f := newFixture(t)
	f.proc.NotifyReady()
	evt := f.waitEvent(t, "nativeUIReady")
	require.Equal(t, event.SystemViewID, evt.ViewID)
}

func TestGetViewInfoReturnsIdentityAndText(t *testing.T) {
	f := newFixture(t)
	id, _ := f.proc.CreateView("Label", view.Props{"text": view.String("hello")})
	info, err := f.proc.GetViewInfo(id)
	require.NoError(t, err)
	require.Equal(t, id, info["id"])
	require.Equal(t, "Label", info["type"])
	require.Equal(t, "hello", info["text"])

	_, err = f.proc.GetViewInfo("ghost")
	require.ErrorIs(t, err, view.ErrViewNotFound)
}

func TestOperationsAfterCloseFail(t *testing.T) {
	factory := newRecordingFactory()
	bridge := event.New()
	defer bridge.Close()
	proc := New(factory, bridge)
	proc.Close()
	_, err := proc.CreateView("Label", nil)
	require.ErrorIs(t, err, ErrClosed)
}
