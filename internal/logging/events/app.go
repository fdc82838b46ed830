package events

import "github.com/dcmaui/uibridge/internal/logging"

type AppTracer struct{}

var App = AppTracer{}

func (AppTracer) Start(payload map[string]interface{}) {
	logging.Trace("app.start", payload)
}

func (AppTracer) Serving(addr string) {
	logging.Trace("app.serving", map[string]interface{}{"addr": addr})
}

func (AppTracer) ClientConnected() {
	logging.Trace("app.client-connected", nil)
}

func (AppTracer) ClientDisconnected() {
	logging.Trace("app.client-disconnected", nil)
}
