package processor

import "github.com/dcmaui/uibridge/internal/view"

// ComponentFactory is the external collaborator that realizes concrete
// widgets for tree nodes. The processor calls it from its dispatch goroutine,
// so implementations don't need their own serialization with respect to tree
// mutations. Realize is the only call that can veto an operation; the rest
// are best-effort side effects.
type ComponentFactory interface {
	// Realize produces a concrete widget for a freshly registered node.
	Realize(id string, tag view.TypeTag, props view.Props) error

	// Attach and Detach mirror parent/child link changes onto the widget
	// hierarchy.
	Attach(parentID, childID string)
	Detach(parentID, childID string)

	// Destroy disposes the widget for a deleted node.
	Destroy(id string)

	// ApplyState pushes merged state values into a realized widget.
	ApplyState(id string, st view.Props)

	// ScrollTo invokes the platform scroll primitive for a list widget.
	ScrollTo(listID string, index int, animated bool)

	// SwapItem replaces the placeholder at index with the realized item
	// widget.
	SwapItem(listID string, index int, itemID string)
}

// NopFactory discards all realization side effects. Useful for tests and for
// driving the protocol core without a host.
type NopFactory struct{}

func (NopFactory) Realize(string, view.TypeTag, view.Props) error { return nil }
func (NopFactory) Attach(string, string)                          {}
func (NopFactory) Detach(string, string)                          {}
func (NopFactory) Destroy(string)                                 {}
func (NopFactory) ApplyState(string, view.Props)                  {}
func (NopFactory) ScrollTo(string, int, bool)                     {}
func (NopFactory) SwapItem(string, int, string)                   {}
