package state

import (
	"testing"

	"github.com/dcmaui/uibridge/internal/view"
)

func TestMergeViewStateOverwritesOnlyGivenKeys(t *testing.T) {
	s := New()
	s.MergeViewState("v1", view.Props{"count": view.Int(1), "label": view.String("a")})
	s.MergeViewState("v1", view.Props{"count": view.Int(2)})
	got := s.ViewState("v1", []string{"count", "label", "missing"})
	if n, _ := got["count"].AsInt(); n != 2 {
		t.Fatalf("expected count 2, got %d", n)
	}
	if l, _ := got["label"].AsString(); l != "a" {
		t.Fatalf("expected label a, got %q", l)
	}
	if _, ok := got["missing"]; ok {
		t.Fatalf("expected missing key to be omitted")
	}
}

func TestSetGlobalFansOutToConsumers(t *testing.T) {
	s := New()
	s.RegisterConsumer("v1", "theme")
	s.RegisterConsumer("v2", "theme")
	s.RegisterConsumer("v3", "other")

	ids := s.SetGlobal("theme", view.String("dark"))
	if len(ids) != 2 || ids[0] != "v1" || ids[1] != "v2" {
		t.Fatalf("unexpected consumer ids: %v", ids)
	}
	for _, id := range ids {
		got := s.ViewState(id, []string{"theme"})
		if v, _ := got["theme"].AsString(); v != "dark" {
			t.Fatalf("expected %s to see dark, got %q", id, v)
		}
	}
	if got := s.ViewState("v3", []string{"theme"}); len(got) != 0 {
		t.Fatalf("expected non-consumer untouched, got %v", got)
	}
}

func TestRegisterConsumerAppliesExistingValue(t *testing.T) {
	s := New()
	s.SetGlobal("theme", view.String("light"))
	value, applied := s.RegisterConsumer("v1", "theme")
	if !applied {
		t.Fatalf("expected existing value to be applied")
	}
	if v, _ := value.AsString(); v != "light" {
		t.Fatalf("expected light, got %q", v)
	}
	got := s.ViewState("v1", []string{"theme"})
	if v, _ := got["theme"].AsString(); v != "light" {
		t.Fatalf("expected merged state light, got %q", v)
	}
}

func TestRegisterConsumerIdempotent(t *testing.T) {
	s := New()
	s.RegisterConsumer("v1", "theme")
	s.RegisterConsumer("v1", "theme")
	if ids := s.Consumers("theme"); len(ids) != 1 {
		t.Fatalf("expected a single registration, got %v", ids)
	}
}

func TestDropViewRemovesStateAndRegistrations(t *testing.T) {
	s := New()
	s.MergeViewState("v1", view.Props{"count": view.Int(1)})
	s.RegisterConsumer("v1", "theme")
	s.DropView("v1")
	if got := s.ViewState("v1", []string{"count"}); len(got) != 0 {
		t.Fatalf("expected state dropped, got %v", got)
	}
	if ids := s.Consumers("theme"); len(ids) != 0 {
		t.Fatalf("expected consumer registration dropped, got %v", ids)
	}
	if ids := s.SetGlobal("theme", view.String("dark")); len(ids) != 0 {
		t.Fatalf("expected no fan-out after drop, got %v", ids)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := New()
	s.MergeViewState("v1", view.Props{"count": view.Int(1)})
	snap := s.Snapshot("v1")
	snap["count"] = view.Int(9)
	got := s.ViewState("v1", []string{"count"})
	if n, _ := got["count"].AsInt(); n != 1 {
		t.Fatalf("expected stored state unchanged, got %d", n)
	}
}
