package events

import "github.com/dcmaui/uibridge/internal/logging"

type BridgeTracer struct{}

var Bridge = BridgeTracer{}

func (BridgeTracer) SinkAttached() {
	logging.Trace("bridge.sink-attached", nil)
}

func (BridgeTracer) SinkDetached() {
	logging.Trace("bridge.sink-detached", nil)
}

func (BridgeTracer) Dropped(viewID, name string) {
	logging.Trace("bridge.dropped", map[string]interface{}{"view": viewID, "event": name})
}
