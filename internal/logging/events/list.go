package events

import "github.com/dcmaui/uibridge/internal/logging"

type ListTracer struct{}

var List = ListTracer{}

func (ListTracer) Requested(listID string, index int) {
	logging.Trace("list.request", map[string]interface{}{"list": listID, "index": index})
}

func (ListTracer) Rendered(listID string, index int, widgetID string) {
	logging.Trace("list.rendered", map[string]interface{}{
		"list":   listID,
		"index":  index,
		"widget": widgetID,
	})
}

func (ListTracer) Window(listID string, start, end int) {
	logging.Trace("list.window", map[string]interface{}{"list": listID, "start": start, "end": end})
}

func (ListTracer) Refreshed(listID string, dataLength int) {
	logging.Trace("list.refresh", map[string]interface{}{"list": listID, "dataLength": dataLength})
}

func (ListTracer) EndReached(listID string) {
	logging.Trace("list.end-reached", map[string]interface{}{"list": listID})
}
