// Package transport exposes the operation processor over JSON-RPC 2.0. Each
// accepted connection gets its own jsonrpc2 conn; outbound bridge events are
// forwarded to the most recently connected client as "event" notifications.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"

	"github.com/sourcegraph/jsonrpc2"

	"github.com/dcmaui/uibridge/internal/event"
	"github.com/dcmaui/uibridge/internal/logging/events"
	"github.com/dcmaui/uibridge/internal/processor"
	"github.com/dcmaui/uibridge/internal/view"
)

var (
	errMethodNotFound = &jsonrpc2.Error{
		Code: jsonrpc2.CodeMethodNotFound, Message: "method not found"}
	errInvalidParams = &jsonrpc2.Error{
		Code: jsonrpc2.CodeInvalidParams, Message: "invalid params"}
)

// Application error codes, outside the range reserved by JSON-RPC.
const (
	codeViewNotFound   = -32001
	codeCycleDetected  = -32002
	codeCreationFailed = -32003
)

type Server struct {
	proc   *processor.Processor
	bridge *event.Bridge
}

func NewServer(proc *processor.Processor, bridge *event.Bridge) *Server {
	return &Server{proc: proc, bridge: bridge}
}

// Serve accepts connections until the listener is closed or the context is
// cancelled. Each connection is served on its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		go s.ServeConn(ctx, conn)
	}
}

// ServeConn runs the JSON-RPC session on one stream and blocks until it
// disconnects. The connection becomes the outbound event sink for its
// lifetime, and nativeUIReady is announced once it is wired up.
func (s *Server) ServeConn(ctx context.Context, stream net.Conn) {
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(stream, jsonrpc2.VSCodeObjectCodec{}),
		s.handler())

	sub := s.bridge.Attach(connSink{ctx: ctx, conn: conn})
	s.proc.NotifyReady()
	events.App.ClientConnected()

	<-conn.DisconnectNotify()
	sub.Close()
	events.App.ClientDisconnected()
}

// connSink forwards bridge events to the client as "event" notifications.
// Delivery errors are swallowed; the bridge contract is fire and forget.
type connSink struct {
	ctx  context.Context
	conn *jsonrpc2.Conn
}

func (s connSink) Deliver(evt event.Event) {
	_ = s.conn.Notify(s.ctx, "event", evt)
}

type method func(context.Context, json.RawMessage) (any, error)

func (s *Server) handler() jsonrpc2.Handler {
	return routingHandler(map[string]method{
		"createView":     s.createView,
		"attachView":     s.attachView,
		"detachView":     s.detachView,
		"deleteView":     s.deleteView,
		"setChildren":    s.setChildren,
		"getChildrenIds": s.getChildrenIds,

		"updateViewState":       s.updateViewState,
		"getState":              s.getState,
		"setState":              s.setState,
		"registerStateConsumer": s.registerStateConsumer,

		"addEventListener": s.addEventListener,
		"simulateEvent":    s.simulateEvent,

		"setItem":       s.setItem,
		"scrollToIndex": s.scrollToIndex,
		"refreshData":   s.refreshData,

		"getViewInfo":       s.getViewInfo,
		"getViewHierarchy":  s.getViewHierarchy,
		"resetViewRegistry": s.resetViewRegistry,
	})
}

func routingHandler(methods map[string]method) jsonrpc2.Handler {
	return jsonrpc2.HandlerWithError(func(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		fn, ok := methods[req.Method]
		if !ok {
			return nil, errMethodNotFound
		}
		var raw json.RawMessage
		if req.Params != nil {
			raw = *req.Params
		}
		result, err := fn(ctx, raw)
		if err != nil {
			return nil, rpcError(err)
		}
		return result, nil
	})
}

// rpcError maps domain sentinels onto JSON-RPC error codes so clients can
// distinguish failure classes without parsing messages.
func rpcError(err error) error {
	var rpcErr *jsonrpc2.Error
	if errors.As(err, &rpcErr) {
		return err
	}
	code := int64(jsonrpc2.CodeInternalError)
	switch {
	case errors.Is(err, view.ErrInvalidArguments):
		code = jsonrpc2.CodeInvalidParams
	case errors.Is(err, view.ErrViewNotFound):
		code = codeViewNotFound
	case errors.Is(err, view.ErrCycleDetected):
		code = codeCycleDetected
	case errors.Is(err, view.ErrCreationFailed):
		code = codeCreationFailed
	}
	return &jsonrpc2.Error{Code: code, Message: err.Error()}
}

type successResult struct {
	Success bool `json:"success"`
}

var okResult = successResult{Success: true}

func (s *Server) createView(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewType   string         `json:"viewType"`
		Properties map[string]any `json:"properties"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	props, err := view.PropsFromInterface(params.Properties)
	if err != nil {
		return nil, err
	}
	id, err := s.proc.CreateView(params.ViewType, props)
	if err != nil {
		return nil, err
	}
	return map[string]any{"viewId": id}, nil
}

func (s *Server) attachView(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ParentID string `json:"parentId"`
		ChildID  string `json:"childId"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.AttachView(params.ParentID, params.ChildID); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) detachView(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ParentID string `json:"parentId"`
		ChildID  string `json:"childId"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.DetachView(params.ParentID, params.ChildID); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) deleteView(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID string `json:"viewId"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	deleted, err := s.proc.DeleteView(params.ViewID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"deleted": deleted}, nil
}

func (s *Server) setChildren(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID   string   `json:"viewId"`
		ChildIDs []string `json:"childIds"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.SetChildren(params.ViewID, params.ChildIDs); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) getChildrenIds(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID string `json:"viewId"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	children, err := s.proc.GetChildrenIds(params.ViewID)
	if err != nil {
		return nil, err
	}
	if children == nil {
		children = []string{}
	}
	return map[string]any{"childIds": children}, nil
}

func (s *Server) updateViewState(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID string         `json:"viewId"`
		State  map[string]any `json:"state"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	partial, err := view.PropsFromInterface(params.State)
	if err != nil {
		return nil, err
	}
	if _, err := s.proc.UpdateViewState(params.ViewID, partial); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) getState(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID string   `json:"viewId"`
		Keys   []string `json:"keys"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	st, err := s.proc.GetState(params.ViewID, params.Keys)
	if err != nil {
		return nil, err
	}
	return map[string]any{"state": st.Interface()}, nil
}

func (s *Server) setState(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		Key   string `json:"key"`
		Value any    `json:"value"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	value, err := view.FromInterface(params.Value)
	if err != nil {
		return nil, err
	}
	if _, err := s.proc.SetGlobalState(params.Key, value); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) registerStateConsumer(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID string `json:"viewId"`
		Key    string `json:"key"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.RegisterStateConsumer(params.ViewID, params.Key); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) addEventListener(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID    string `json:"viewId"`
		EventType string `json:"eventType"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.AddEventListener(params.ViewID, params.EventType); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) simulateEvent(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID    string         `json:"viewId"`
		EventName string         `json:"eventName"`
		Params    map[string]any `json:"params"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.SimulateEvent(params.ViewID, params.EventName, params.Params); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) setItem(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ListViewID string `json:"listViewId"`
		Index      int    `json:"index"`
		ItemViewID string `json:"itemViewId"`
		Key        string `json:"key"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.SetItem(params.ListViewID, params.Index, params.ItemViewID, params.Key); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) scrollToIndex(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ListViewID string `json:"listViewId"`
		Index      int    `json:"index"`
		Animated   bool   `json:"animated"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.ScrollToIndex(params.ListViewID, params.Index, params.Animated); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) refreshData(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ListViewID string `json:"listViewId"`
		DataLength int    `json:"dataLength"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	if _, err := s.proc.RefreshData(params.ListViewID, params.DataLength); err != nil {
		return nil, err
	}
	return okResult, nil
}

func (s *Server) getViewInfo(_ context.Context, raw json.RawMessage) (any, error) {
	var params struct {
		ViewID string `json:"viewId"`
	}
	if json.Unmarshal(raw, &params) != nil {
		return nil, errInvalidParams
	}
	info, err := s.proc.GetViewInfo(params.ViewID)
	if err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Server) getViewHierarchy(_ context.Context, _ json.RawMessage) (any, error) {
	return map[string]any{"hierarchy": s.proc.DescribeHierarchy()}, nil
}

func (s *Server) resetViewRegistry(_ context.Context, _ json.RawMessage) (any, error) {
	if _, err := s.proc.ResetViewRegistry(); err != nil {
		return nil, err
	}
	return okResult, nil
}
