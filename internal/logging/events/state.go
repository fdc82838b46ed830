package events

import "github.com/dcmaui/uibridge/internal/logging"

type StateTracer struct{}

var State = StateTracer{}

func (StateTracer) GlobalSet(key string, consumers int) {
	logging.Trace("state.global-set", map[string]interface{}{"key": key, "consumers": consumers})
}

func (StateTracer) ConsumerRegistered(viewID, key string, applied bool) {
	logging.Trace("state.consumer", map[string]interface{}{
		"view":    viewID,
		"key":     key,
		"applied": applied,
	})
}

func (StateTracer) ViewMerged(viewID string, keys []string) {
	logging.Trace("state.view-merged", map[string]interface{}{"view": viewID, "keys": keys})
}
