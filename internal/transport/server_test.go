package transport

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/sourcegraph/jsonrpc2"
	"github.com/stretchr/testify/require"

	"github.com/dcmaui/uibridge/internal/event"
	"github.com/dcmaui/uibridge/internal/processor"
)

type notification struct {
	ViewID string         `json:"viewId"`
	Name   string         `json:"eventName"`
	Params map[string]any `json:"params"`
}

type testClient struct {
	conn   *jsonrpc2.Conn
	events chan notification
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	bridge := event.New()
	proc := processor.New(processor.NopFactory{}, bridge)
	server := NewServer(proc, bridge)
	t.Cleanup(func() {
		proc.Close()
		bridge.Close()
	})

	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go server.ServeConn(ctx, serverSide)

	events := make(chan notification, 64)
	handler := jsonrpc2.HandlerWithError(func(_ context.Context, _ *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
		if req.Method == "event" && req.Params != nil {
			var n notification
			if err := json.Unmarshal(*req.Params, &n); err == nil {
				events <- n
			}
		}
		return nil, nil
	})
	conn := jsonrpc2.NewConn(ctx,
		jsonrpc2.NewBufferedStream(clientSide, jsonrpc2.VSCodeObjectCodec{}),
		handler)
	t.Cleanup(func() { conn.Close() })
	return &testClient{conn: conn, events: events}
}

func (c *testClient) call(t *testing.T, method string, params, result any) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return c.conn.Call(ctx, method, params, result)
}

func (c *testClient) waitEvent(t *testing.T, name string) notification {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case n := <-c.events:
			if n.Name == name {
				return n
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q notification", name)
		}
	}
}

func TestConnectAnnouncesNativeUIReady(t *testing.T) {
	c := newTestClient(t)
	n := c.waitEvent(t, "nativeUIReady")
	require.Equal(t, "system", n.ViewID)
}

func TestCreateAttachAndQueryOverRPC(t *testing.T) {
	c := newTestClient(t)

	var created struct {
		ViewID string `json:"viewId"`
	}
	err := c.call(t, "createView", map[string]any{
		"viewType":   "Label",
		"properties": map[string]any{"text": "hello"},
	}, &created)
	require.NoError(t, err)
	require.NotEmpty(t, created.ViewID)

	var attach struct {
		Success bool `json:"success"`
	}
	err = c.call(t, "attachView", map[string]any{
		"parentId": "root",
		"childId":  created.ViewID,
	}, &attach)
	require.NoError(t, err)
	require.True(t, attach.Success)

	var children struct {
		ChildIDs []string `json:"childIds"`
	}
	err = c.call(t, "getChildrenIds", map[string]any{"viewId": "root"}, &children)
	require.NoError(t, err)
	require.Equal(t, []string{created.ViewID}, children.ChildIDs)

	var info map[string]any
	err = c.call(t, "getViewInfo", map[string]any{"viewId": created.ViewID}, &info)
	require.NoError(t, err)
	require.Equal(t, "Label", info["type"])
	require.Equal(t, "hello", info["text"])
}

func TestStateRoundTripOverRPC(t *testing.T) {
	c := newTestClient(t)

	var created struct {
		ViewID string `json:"viewId"`
	}
	err := c.call(t, "createView", map[string]any{"viewType": "Label"}, &created)
	require.NoError(t, err)

	var success struct {
		Success bool `json:"success"`
	}
	err = c.call(t, "updateViewState", map[string]any{
		"viewId": created.ViewID,
		"state":  map[string]any{"text": "updated", "count": 3},
	}, &success)
	require.NoError(t, err)

	var got struct {
		State map[string]any `json:"state"`
	}
	err = c.call(t, "getState", map[string]any{
		"viewId": created.ViewID,
		"keys":   []string{"text", "count"},
	}, &got)
	require.NoError(t, err)
	require.Equal(t, "updated", got.State["text"])
	require.Equal(t, 3.0, got.State["count"])
}

func TestGlobalStateChangeNotifiesClient(t *testing.T) {
	c := newTestClient(t)

	var success struct {
		Success bool `json:"success"`
	}
	err := c.call(t, "setState", map[string]any{"key": "theme", "value": "dark"}, &success)
	require.NoError(t, err)

	n := c.waitEvent(t, "onStateChange")
	require.Equal(t, "system", n.ViewID)
	require.Equal(t, "theme", n.Params["key"])
	require.Equal(t, "dark", n.Params["value"])
}

func TestSimulateEventFlowsBack(t *testing.T) {
	c := newTestClient(t)

	var created struct {
		ViewID string `json:"viewId"`
	}
	err := c.call(t, "createView", map[string]any{"viewType": "TouchableOpacity"}, &created)
	require.NoError(t, err)

	var success struct {
		Success bool `json:"success"`
	}
	err = c.call(t, "simulateEvent", map[string]any{
		"viewId":    created.ViewID,
		"eventName": "onPress",
		"params":    map[string]any{"x": 4.0},
	}, &success)
	require.NoError(t, err)

	n := c.waitEvent(t, "press")
	require.Equal(t, created.ViewID, n.ViewID)
	require.Equal(t, 4.0, n.Params["x"])
}

func TestUnknownViewMapsToApplicationError(t *testing.T) {
	c := newTestClient(t)
	var out map[string]any
	err := c.call(t, "getViewInfo", map[string]any{"viewId": "ghost"}, &out)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	require.EqualValues(t, codeViewNotFound, rpcErr.Code)
}

func TestUnknownMethodRejected(t *testing.T) {
	c := newTestClient(t)
	var out map[string]any
	err := c.call(t, "teleportView", map[string]any{}, &out)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	require.EqualValues(t, jsonrpc2.CodeMethodNotFound, rpcErr.Code)
}

func TestInvalidPropertyRejected(t *testing.T) {
	c := newTestClient(t)
	var out map[string]any
	err := c.call(t, "createView", map[string]any{
		"viewType":   "Label",
		"properties": map[string]any{"dataLength": 5},
	}, &out)
	var rpcErr *jsonrpc2.Error
	require.ErrorAs(t, err, &rpcErr)
	require.EqualValues(t, jsonrpc2.CodeInvalidParams, rpcErr.Code)
}

func TestHierarchyDumpOverRPC(t *testing.T) {
	c := newTestClient(t)

	var created struct {
		ViewID string `json:"viewId"`
	}
	err := c.call(t, "createView", map[string]any{"viewType": "View"}, &created)
	require.NoError(t, err)
	var success struct {
		Success bool `json:"success"`
	}
	err = c.call(t, "attachView", map[string]any{"parentId": "root", "childId": created.ViewID}, &success)
	require.NoError(t, err)

	var dump struct {
		Hierarchy string `json:"hierarchy"`
	}
	err = c.call(t, "getViewHierarchy", nil, &dump)
	require.NoError(t, err)
	require.Contains(t, dump.Hierarchy, "View Hierarchy:")
	require.Contains(t, dump.Hierarchy, created.ViewID)
}
