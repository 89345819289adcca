// Package rpc serves the UI over a loopback websocket. Each text frame is a
// request {id, method, args}; each answer is {id, result} or
// {id, error:{msg}}. Requests on one connection run concurrently.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"filethings/internal/actions"
	"filethings/internal/app"
	"filethings/internal/config"
	"filethings/internal/metrics"
)

const (
	MethodConfigCall    = "config_call"
	MethodActionCall    = "action_call"
	MethodCommandInvoke = "file_function_command_invoke"

	writeTimeout = 10 * time.Second
)

// Request is one inbound frame.
type Request struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args"`
}

// Response is one outbound frame. Result is the JSON text the call
// produced; Error is set instead on failure.
type Response struct {
	ID     string            `json:"id"`
	Result *string           `json:"result,omitempty"`
	Error  *config.CallError `json:"error,omitempty"`
}

type configArgs struct {
	Scope  string          `json:"scope"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

type actionArgs struct {
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

type commandArgs struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params"`
}

// Server exposes config_call, action_call and file_function_command_invoke.
type Server struct {
	svc      *app.Services
	router   *actions.Router
	upgrader websocket.Upgrader
}

func New(svc *app.Services, router *actions.Router) *Server {
	s := &Server{svc: svc, router: router}
	s.upgrader = websocket.Upgrader{CheckOrigin: isLoopbackOrigin}
	return s
}

// Handler returns the HTTP routes: /rpc, /healthz and, when Prometheus
// metrics are enabled, /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.handleRPC)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if prom, ok := s.svc.Metrics.(*metrics.Prom); ok {
		mux.Handle("/metrics", prom.Handler())
	}
	return mux
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.svc.Log.Info("rpc", "listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.svc.Log.Info("rpc", "stopped")
		return nil
	}
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.svc.Log.Error("rpc", "ws upgrade failed", "err", err)
		return
	}
	defer ws.Close()
	s.svc.Log.Debug("rpc", "ws connected", "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	send := func(resp Response) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := ws.WriteJSON(resp); err != nil {
			s.svc.Log.Warn("rpc", "write failed", "id", resp.ID, "err", err)
		}
	}

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.svc.Log.Debug("rpc", "read ended", "err", err)
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			send(Response{ID: uuid.NewString(), Error: &config.CallError{Msg: "Invalid request: " + err.Error()}})
			continue
		}
		if req.ID == "" {
			req.ID = uuid.NewString()
		}
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			send(s.safeCall(ctx, req))
		}(req)
	}
	cancel()
	wg.Wait()
}

// Call runs one request and builds its response.
func (s *Server) Call(ctx context.Context, req Request) Response {
	start := time.Now()
	result, err := s.call(ctx, req)
	status := "ok"
	resp := Response{ID: req.ID}
	if err != nil {
		status = "error"
		var ce *config.CallError
		if !errors.As(err, &ce) {
			ce = &config.CallError{Msg: err.Error()}
		}
		resp.Error = ce
	} else {
		resp.Result = &result
	}
	s.svc.Metrics.IncRPC(req.Method, status)
	s.svc.Log.Debug("rpc", "call", "id", req.ID, "method", req.Method, "status", status, "took", time.Since(start))
	return resp
}

// safeCall is Call with panics turned into an error response so one bad
// request cannot take the connection or the process down.
func (s *Server) safeCall(ctx context.Context, req Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			s.svc.Log.Error("rpc", "call panicked", "id", req.ID, "method", req.Method, "panic", r)
			s.svc.Metrics.IncRPC(req.Method, "error")
			resp = Response{ID: req.ID, Error: &config.CallError{Msg: fmt.Sprintf("Internal error: %v", r)}}
		}
	}()
	return s.Call(ctx, req)
}

func (s *Server) call(ctx context.Context, req Request) (string, error) {
	switch req.Method {
	case MethodConfigCall:
		var a configArgs
		if err := decodeArgs(req.Args, &a); err != nil {
			return "", err
		}
		return s.svc.Stores.Call(a.Scope, a.Action, paramsText(a.Params))
	case MethodActionCall:
		var a actionArgs
		if err := decodeArgs(req.Args, &a); err != nil {
			return "", err
		}
		return s.router.Route(ctx, a.Action, paramsText(a.Params))
	case MethodCommandInvoke:
		var a commandArgs
		if err := decodeArgs(req.Args, &a); err != nil {
			return "", err
		}
		return s.router.Invoke(ctx, a.Command, paramsText(a.Params))
	default:
		return "", &config.CallError{Msg: "Unknown method: " + req.Method}
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &config.CallError{Msg: "Missing args"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &config.CallError{Msg: "Invalid args: " + err.Error()}
	}
	return nil
}

// paramsText accepts params either as a JSON-encoded string or inline JSON.
func paramsText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// isLoopbackOrigin admits clients without an Origin header and browser
// pages served from a loopback host.
func isLoopbackOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
