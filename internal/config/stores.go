package config

import (
	"encoding/json"
	"fmt"
)

const (
	ScopeUI           = "ui"
	ScopeFileFunction = "file_function"
)

var validActions = map[string]bool{"get": true, "set": true, "get_all": true, "set_all": true}

// Stores holds the user-domain config stores exposed over config_call.
type Stores struct {
	byScope map[string]*Store
	logger  Logger
}

// NewStores creates the ui and file_function stores under root.
func NewStores(root string, logger Logger) *Stores {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Stores{
		byScope: map[string]*Store{
			ScopeUI:           NewStore(root, "user", ScopeUI, logger),
			ScopeFileFunction: NewStore(root, "user", ScopeFileFunction, logger),
		},
		logger: logger,
	}
}

// Store returns the store for scope.
func (s *Stores) Store(scope string) (*Store, bool) {
	st, ok := s.byScope[scope]
	return st, ok
}

// LoadAll loads every store. Failures are logged and returned joined but
// never leave a store unusable.
func (s *Stores) LoadAll() error {
	var firstErr error
	for _, scope := range []string{ScopeUI, ScopeFileFunction} {
		st := s.byScope[scope]
		err := func() error {
			unlock, err := st.Lock()
			if err != nil {
				return err
			}
			defer unlock()
			return st.Load()
		}()
		if err != nil {
			s.logger.Printf("Failed to load %s config: %v", scope, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		s.logger.Printf("%s config loaded", scope)
	}
	return firstErr
}

// CallError is the error shape the UI receives.
type CallError struct {
	Msg string `json:"msg"`
}

func (e *CallError) Error() string { return e.Msg }

func callErrorf(format string, args ...any) *CallError {
	return &CallError{Msg: fmt.Sprintf(format, args...)}
}

// Call implements config_call: it validates scope and action, decodes the
// JSON params and returns the JSON-encoded result.
func (s *Stores) Call(scope, action, params string) (string, error) {
	st, ok := s.byScope[scope]
	if !ok {
		return "", callErrorf("Invalid scope: %s", scope)
	}
	if !validActions[action] {
		return "", callErrorf("Invalid action: %s", action)
	}

	var args any
	if params == "" {
		params = "null"
	}
	if err := json.Unmarshal([]byte(params), &args); err != nil {
		return "", callErrorf("Failed to unpack action_params: %v", err)
	}

	unlock, err := st.Lock()
	if err != nil {
		return "", callErrorf("Failed to acquire lock %s", scope)
	}
	defer unlock()

	var result any
	switch action {
	case "get_all":
		result = st.GetAll()
	case "get":
		keys, ok := args.([]any)
		if !ok {
			return "", callErrorf("Failed to get config: Invalid args, require an array")
		}
		result = st.Get(keys)
	case "set_all":
		doc, ok := args.(map[string]any)
		if !ok {
			return "", callErrorf("Failed to set_all config: Invalid args, require an object")
		}
		result, err = st.SetAll(doc)
	case "set":
		items, ok := args.(map[string]any)
		if !ok {
			return "", callErrorf("Failed to set config: Invalid args, require an object")
		}
		result, err = st.Set(items)
	}
	if err != nil {
		return "", callErrorf("Failed to %s config: %v", action, err)
	}

	out, err := json.Marshal(result)
	if err != nil {
		return "", callErrorf("Failed to %s config: %v", action, err)
	}
	return string(out), nil
}
