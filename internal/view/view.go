// Package view defines the node model of the synchronized UI tree: the node
// itself, the tagged property values it carries, and the per-type property
// schemas validated at the operation boundary.
package view

import (
	"fmt"

	"github.com/google/uuid"
)

// TypeTag identifies the component kind of a node.
type TypeTag string

const (
	TagView             TypeTag = "View"
	TagLabel            TypeTag = "Label"
	TagImage            TypeTag = "Image"
	TagScrollView       TypeTag = "ScrollView"
	TagTextInput        TypeTag = "TextInput"
	TagTouchableOpacity TypeTag = "TouchableOpacity"
	TagListView         TypeTag = "ListView"
	TagAnimatedView     TypeTag = "AnimatedView"
	TagSafeAreaView     TypeTag = "SafeAreaView"
)

var knownTags = map[TypeTag]struct{}{
	TagView:             {},
	TagLabel:            {},
	TagImage:            {},
	TagScrollView:       {},
	TagTextInput:        {},
	TagTouchableOpacity: {},
	TagListView:         {},
	TagAnimatedView:     {},
	TagSafeAreaView:     {},
}

// ParseTag resolves a type tag string. Unknown tags report ok=false; the
// processor falls back to the generic container rather than erroring.
func ParseTag(s string) (TypeTag, bool) {
	tag := TypeTag(s)
	_, ok := knownTags[tag]
	return tag, ok
}

// Node is one node of the synchronized tree. Nodes are owned exclusively by
// the registry; other components hold ids, never long-lived references.
type Node struct {
	ID       string
	Tag      TypeTag
	Props    Props
	ParentID string
	ChildIDs []string
}

// NewID allocates a fresh view id of the form "<tag>-<uuid>".
func NewID(tag TypeTag) string {
	return fmt.Sprintf("%s-%s", tag, uuid.NewString())
}

// CloneID derives the id used for the duplicate created when a view that
// already has a parent is attached somewhere else.
func CloneID(origID string) string {
	return fmt.Sprintf("%s-duplicate-%s", origID, uuid.NewString())
}

// HasChild reports whether id appears in the node's child list.
func (n *Node) HasChild(id string) bool {
	for _, c := range n.ChildIDs {
		if c == id {
			return true
		}
	}
	return false
}
