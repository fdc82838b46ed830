// Package registry owns every node of the synchronized view tree and is the
// single place parent/child links are mutated. It is not safe for concurrent
// use; the operation processor serializes all access.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dcmaui/uibridge/internal/view"
)

type Registry struct {
	nodes map[string]*view.Node
}

func New() *Registry {
	return &Registry{nodes: make(map[string]*view.Node)}
}

// Register adds a node. An existing node with the same id is replaced.
func (r *Registry) Register(n *view.Node) {
	r.nodes[n.ID] = n
}

func (r *Registry) Get(id string) (*view.Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

func (r *Registry) Len() int { return len(r.nodes) }

// IDs returns every registered id in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Children returns a copy of the ordered child list for id.
func (r *Registry) Children(id string) []string {
	n, ok := r.nodes[id]
	if !ok || len(n.ChildIDs) == 0 {
		return nil
	}
	dup := make([]string, len(n.ChildIDs))
	copy(dup, n.ChildIDs)
	return dup
}

// Parent returns the parent id of a node, if it has one.
func (r *Registry) Parent(id string) (string, bool) {
	n, ok := r.nodes[id]
	if !ok || n.ParentID == "" {
		return "", false
	}
	return n.ParentID, true
}

// Remove deletes id and, transitively, every descendant. It returns the set
// of removed ids in removal order, or nil when id is absent. After Remove no
// surviving node references a removed id.
func (r *Registry) Remove(id string) []string {
	n, ok := r.nodes[id]
	if !ok {
		return nil
	}
	if n.ParentID != "" {
		if parent, ok := r.nodes[n.ParentID]; ok {
			parent.ChildIDs = withoutID(parent.ChildIDs, id)
		}
	}
	var removed []string
	r.removeSubtree(id, &removed)
	return removed
}

func (r *Registry) removeSubtree(id string, removed *[]string) {
	n, ok := r.nodes[id]
	if !ok {
		return
	}
	for _, childID := range n.ChildIDs {
		r.removeSubtree(childID, removed)
	}
	delete(r.nodes, id)
	*removed = append(*removed, id)
}

// AddChild appends childID to parentID's child list. The child must be
// parentless: attach conflicts are resolved by the processor (clone policy)
// before the registry is touched. Attaching a node to itself or to one of its
// descendants fails with ErrCycleDetected.
func (r *Registry) AddChild(parentID, childID string) error {
	parent, ok := r.nodes[parentID]
	if !ok {
		return fmt.Errorf("parent %s: %w", parentID, view.ErrViewNotFound)
	}
	child, ok := r.nodes[childID]
	if !ok {
		return fmt.Errorf("child %s: %w", childID, view.ErrViewNotFound)
	}
	if err := r.checkCycle(parentID, childID); err != nil {
		return err
	}
	if child.ParentID != "" {
		return fmt.Errorf("%w: view %s already has parent %s", view.ErrInvalidArguments, childID, child.ParentID)
	}
	if !parent.HasChild(childID) {
		parent.ChildIDs = append(parent.ChildIDs, childID)
	}
	child.ParentID = parentID
	return nil
}

// DetachChild removes childID from parentID's list without deleting the
// child; the child becomes parentless. Detaching an id that is not currently
// a child is not an error.
func (r *Registry) DetachChild(parentID, childID string) error {
	parent, ok := r.nodes[parentID]
	if !ok {
		return fmt.Errorf("parent %s: %w", parentID, view.ErrViewNotFound)
	}
	parent.ChildIDs = withoutID(parent.ChildIDs, childID)
	if child, ok := r.nodes[childID]; ok && child.ParentID == parentID {
		child.ParentID = ""
	}
	return nil
}

// SetChildren atomically replaces parentID's child list. Children dropped
// from the list are detached, never deleted. Every id in childIDs must exist
// and be either parentless or already a child of parentID; duplicates are
// collapsed to the first occurrence.
func (r *Registry) SetChildren(parentID string, childIDs []string) error {
	parent, ok := r.nodes[parentID]
	if !ok {
		return fmt.Errorf("parent %s: %w", parentID, view.ErrViewNotFound)
	}
	final := make([]string, 0, len(childIDs))
	seen := make(map[string]struct{}, len(childIDs))
	for _, id := range childIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		child, ok := r.nodes[id]
		if !ok {
			return fmt.Errorf("child %s: %w", id, view.ErrViewNotFound)
		}
		if err := r.checkCycle(parentID, id); err != nil {
			return err
		}
		if child.ParentID != "" && child.ParentID != parentID {
			return fmt.Errorf("%w: view %s already has parent %s", view.ErrInvalidArguments, id, child.ParentID)
		}
		seen[id] = struct{}{}
		final = append(final, id)
	}

	for _, old := range parent.ChildIDs {
		if _, keep := seen[old]; keep {
			continue
		}
		if child, ok := r.nodes[old]; ok && child.ParentID == parentID {
			child.ParentID = ""
		}
	}
	for _, id := range final {
		r.nodes[id].ParentID = parentID
	}
	parent.ChildIDs = final
	return nil
}

// IsAncestor reports whether ancID is id itself or one of its ancestors.
func (r *Registry) IsAncestor(ancID, id string) bool {
	for id != "" {
		if id == ancID {
			return true
		}
		n, ok := r.nodes[id]
		if !ok {
			return false
		}
		id = n.ParentID
	}
	return false
}

func (r *Registry) checkCycle(parentID, childID string) error {
	if childID == parentID || r.IsAncestor(childID, parentID) {
		return fmt.Errorf("%w: %s is an ancestor of %s", view.ErrCycleDetected, childID, parentID)
	}
	return nil
}

// DescribeHierarchy renders the tree as an indented diagnostic dump, one node
// per line, roots sorted by id.
func (r *Registry) DescribeHierarchy() string {
	var roots []string
	for id, n := range r.nodes {
		if n.ParentID == "" {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)

	var b strings.Builder
	b.WriteString("View Hierarchy:\n")
	for _, id := range roots {
		r.describeNode(&b, id, 0)
	}
	return b.String()
}

func (r *Registry) describeNode(b *strings.Builder, id string, depth int) {
	n, ok := r.nodes[id]
	if !ok {
		return
	}
	fmt.Fprintf(b, "%s- %s (%s)\n", strings.Repeat("  ", depth), id, n.Tag)
	for _, childID := range n.ChildIDs {
		r.describeNode(b, childID, depth+1)
	}
}

func withoutID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
