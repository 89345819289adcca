// Package actions is the outer facade the UI talks to: the action router
// for lifecycle operations and commands, and the narrower command gate
// exposed to file-function worker scripts.
package actions

import (
	"context"
	"encoding/json"
	"strings"

	"filethings/internal/app"
	"filethings/internal/command"
	"filethings/internal/config"
)

// shellAllowList names the shell commands worker scripts may run.
var shellAllowList = map[string]bool{
	"shell.xattr": true,
}

// Router handles action_call and file_function_command_invoke.
type Router struct {
	svc        *app.Services
	dispatcher *command.Dispatcher
}

func New(svc *app.Services, d *command.Dispatcher) *Router {
	return &Router{svc: svc, dispatcher: d}
}

func callError(msg string) error {
	return &config.CallError{Msg: msg}
}

func marshal(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", callError(err.Error())
	}
	return string(raw), nil
}

// Route runs action with its JSON-encoded params and returns the JSON
// result. Lifecycle actions answer with a bare value; everything else is
// dispatched as a command and answers with its envelope.
func (r *Router) Route(ctx context.Context, action, args string) (string, error) {
	var params any
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "", callError("Failed to unpack action_params: " + err.Error())
		}
	}

	switch action {
	case "open.dev_tools":
		if r.svc.Debug {
			r.svc.Log.Debug("actions", "dev tools requested")
		}
		return "{}", nil
	case "is.dev":
		return marshal(r.svc.Debug)
	case "log.info":
		r.svc.Log.Info("ui", "log.info", "payload", compact(params))
		return "{}", nil
	case "log.error":
		r.svc.Log.Error("ui", "log.error", "payload", compact(params))
		return "{}", nil
	case "load.file.functions":
		if _, err := r.svc.ReloadFunctions(); err != nil {
			return r.fail(action, err)
		}
		return marshal("ok")
	case "load.tools":
		if _, err := r.svc.ReloadTools(); err != nil {
			return r.fail(action, err)
		}
		return marshal("ok")
	}

	obj, _ := params.(map[string]any)
	env, err := r.dispatcher.Dispatch(ctx, action, command.Params(obj))
	if err != nil {
		return r.fail(action, err)
	}
	return envelopeJSON(env)
}

// Invoke is the command gate for worker scripts. Shell commands outside the
// allow-list are refused before params are even decoded.
func (r *Router) Invoke(ctx context.Context, name, args string) (string, error) {
	r.svc.Log.Debug("actions", "file function command", "command", name, "args", args)
	if name == "" {
		return "", callError("file function's command caller name is empty")
	}
	if strings.HasPrefix(name, "shell.") && !shellAllowList[name] {
		return "", callError("shell command is not allowed")
	}

	var params any
	if strings.TrimSpace(args) != "" {
		if err := json.Unmarshal([]byte(args), &params); err != nil {
			return "", callError("Failed to unpack command_params: " + err.Error())
		}
	}
	obj, _ := params.(map[string]any)
	env, err := r.dispatcher.Dispatch(ctx, name, command.Params(obj))
	if err != nil {
		r.svc.Log.Error("actions", "file function command failed", "command", name, "args", args, "err", err)
		return "", callError(err.Error())
	}
	return envelopeJSON(env)
}

func (r *Router) fail(action string, err error) (string, error) {
	r.svc.Log.Error("actions", "action failed", "action", action, "err", err)
	return "", callError(err.Error())
}

func envelopeJSON(env *command.Envelope) (string, error) {
	out, err := env.JSON()
	if err != nil {
		return "", callError(err.Error())
	}
	return out, nil
}

func compact(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "<unencodable>"
	}
	return string(raw)
}
