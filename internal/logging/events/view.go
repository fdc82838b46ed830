package events

import "github.com/dcmaui/uibridge/internal/logging"

type ViewTracer struct{}

var View = ViewTracer{}

func (ViewTracer) Created(viewID, tag string) {
	logging.Trace("view.create", map[string]interface{}{"view": viewID, "tag": tag})
}

func (ViewTracer) UnknownTag(tag string) {
	logging.Trace("view.unknown-tag", map[string]interface{}{"tag": tag})
}

func (ViewTracer) Attached(parentID, childID string) {
	logging.Trace("view.attach", map[string]interface{}{"parent": parentID, "child": childID})
}

func (ViewTracer) Cloned(origID, cloneID, parentID string) {
	logging.Trace("view.clone", map[string]interface{}{
		"original": origID,
		"clone":    cloneID,
		"parent":   parentID,
	})
}

func (ViewTracer) Detached(parentID, childID string) {
	logging.Trace("view.detach", map[string]interface{}{"parent": parentID, "child": childID})
}

func (ViewTracer) Deleted(viewID string, cascade int) {
	logging.Trace("view.delete", map[string]interface{}{"view": viewID, "cascade": cascade})
}

func (ViewTracer) ChildSkipped(parentID, childID string) {
	logging.Trace("view.child-skipped", map[string]interface{}{"parent": parentID, "child": childID})
}

func (ViewTracer) ChildrenSet(parentID string, count int) {
	logging.Trace("view.set-children", map[string]interface{}{"parent": parentID, "count": count})
}

func (ViewTracer) RootCreated(viewID string) {
	logging.Trace("view.root-created", map[string]interface{}{"view": viewID})
}

func (ViewTracer) RegistryReset(removed int) {
	logging.Trace("view.registry-reset", map[string]interface{}{"removed": removed})
}
