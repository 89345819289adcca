package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"filethings/internal/actions"
	"filethings/internal/app"
	"filethings/internal/command"
	"filethings/internal/config"
	"filethings/internal/logx"
	"filethings/internal/metrics"
	"filethings/internal/paths"
	"filethings/internal/shell"
)

func newTestServer(t *testing.T, m metrics.Metrics) *httptest.Server {
	t.Helper()
	root := t.TempDir()
	resolver := paths.NewAt(filepath.Join(root, "data"), filepath.Join(root, "res"), "0.3.1")
	svc := app.Assemble(config.DefaultSettings(), resolver, logx.Discard(), m, shell.CmdRunner{})
	if err := svc.Stores.LoadAll(); err != nil {
		t.Fatal(err)
	}
	srv := New(svc, actions.New(svc, command.New(svc)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rpc"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, req map[string]any) Response {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var resp Response
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestConfigCallRoundTrip(t *testing.T) {
	ts := newTestServer(t, metrics.Noop{})
	conn := dial(t, ts, nil)

	resp := roundTrip(t, conn, map[string]any{
		"id":     "1",
		"method": MethodConfigCall,
		"args":   map[string]any{"scope": "ui", "action": "set", "params": `{"theme":"dark"}`},
	})
	if resp.ID != "1" || resp.Error != nil {
		t.Fatalf("set = %+v", resp)
	}

	resp = roundTrip(t, conn, map[string]any{
		"id":     "2",
		"method": MethodConfigCall,
		"args":   map[string]any{"scope": "ui", "action": "get", "params": []string{"theme"}},
	})
	if resp.Error != nil || resp.Result == nil {
		t.Fatalf("get = %+v", resp)
	}
	var got map[string]any
	if err := json.Unmarshal([]byte(*resp.Result), &got); err != nil {
		t.Fatal(err)
	}
	if got["theme"] != "dark" {
		t.Fatalf("get result = %s", *resp.Result)
	}

	resp = roundTrip(t, conn, map[string]any{
		"id":     "3",
		"method": MethodConfigCall,
		"args":   map[string]any{"scope": "nope", "action": "get_all"},
	})
	if resp.Error == nil || resp.Error.Msg != "Invalid scope: nope" {
		t.Fatalf("bad scope = %+v", resp)
	}
}

func TestActionAndCommandCalls(t *testing.T) {
	m := metrics.NewProm("filethings_test")
	ts := newTestServer(t, m)
	conn := dial(t, ts, nil)

	resp := roundTrip(t, conn, map[string]any{
		"method": MethodActionCall,
		"args":   map[string]any{"action": "text.split", "params": `{"text":"a b","separator":" "}`},
	})
	if resp.ID == "" {
		t.Fatal("missing generated id")
	}
	if resp.Result == nil || !strings.Contains(*resp.Result, `"content":["a","b"]`) {
		t.Fatalf("action = %+v", resp)
	}

	resp = roundTrip(t, conn, map[string]any{
		"id":     "gate",
		"method": MethodCommandInvoke,
		"args":   map[string]any{"command": "shell.ls", "params": "{}"},
	})
	if resp.Error == nil || resp.Error.Msg != "shell command is not allowed" {
		t.Fatalf("gate = %+v", resp)
	}

	resp = roundTrip(t, conn, map[string]any{"id": "x", "method": "bogus", "args": map[string]any{}})
	if resp.Error == nil || resp.Error.Msg != "Unknown method: bogus" {
		t.Fatalf("bogus = %+v", resp)
	}

	res, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !strings.Contains(string(body), "filethings_test_rpc_calls_total") {
		t.Fatalf("metrics missing rpc counter:\n%s", body)
	}
}

func TestHealthzAndOrigin(t *testing.T) {
	ts := newTestServer(t, metrics.Noop{})
	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", res.StatusCode)
	}
	res, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("metrics without prom = %d", res.StatusCode)
	}

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/rpc"
	_, _, err = websocket.DefaultDialer.Dial(url, http.Header{"Origin": []string{"https://evil.example"}})
	if err == nil {
		t.Fatal("expected foreign origin to be rejected")
	}
	dial(t, ts, http.Header{"Origin": []string{"http://localhost:1420"}})
}

func TestServeStopsOnCancel(t *testing.T) {
	root := t.TempDir()
	resolver := paths.NewAt(root, root, "0.3.1")
	svc := app.Assemble(config.DefaultSettings(), resolver, logx.Discard(), metrics.Noop{}, shell.CmdRunner{})
	srv := New(svc, actions.New(svc, command.New(svc)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx, "127.0.0.1:0") }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestIsLoopbackOrigin(t *testing.T) {
	cases := map[string]bool{
		"":                      true,
		"http://127.0.0.1:3000": true,
		"http://[::1]:80":       true,
		"tauri://localhost":     true,
		"https://example.com":   false,
		"http://192.168.1.2:80": false,
	}
	for origin, want := range cases {
		r := httptest.NewRequest(http.MethodGet, "/rpc", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		if got := isLoopbackOrigin(r); got != want {
			t.Errorf("%q = %v, want %v", origin, got, want)
		}
	}
}

func TestCallPanicBecomesError(t *testing.T) {
	root := t.TempDir()
	resolver := paths.NewAt(root, root, "0.3.1")
	svc := app.Assemble(config.DefaultSettings(), resolver, logx.Discard(), metrics.Noop{}, shell.CmdRunner{})
	srv := New(svc, nil)

	resp := srv.safeCall(context.Background(), Request{
		ID:     "p1",
		Method: MethodActionCall,
		Args:   json.RawMessage(`{"action":"text.split","params":"{}"}`),
	})
	if resp.ID != "p1" || resp.Result != nil || resp.Error == nil {
		t.Fatalf("resp = %+v", resp)
	}
	if !strings.HasPrefix(resp.Error.Msg, "Internal error: ") {
		t.Fatalf("msg = %q", resp.Error.Msg)
	}
}
