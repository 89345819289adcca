package functions

import (
	"sort"

	"filethings/internal/apperr"
	"filethings/internal/lockx"
)

// FileRegistry holds file-function descriptors keyed by name.
type FileRegistry struct {
	lock  *lockx.Mutex
	items map[string]FileFunction
}

func NewFileRegistry() *FileRegistry {
	return &FileRegistry{lock: lockx.New("FILE_FUNCTIONS"), items: map[string]FileFunction{}}
}

// Replace swaps the registry contents in one acquisition.
func (r *FileRegistry) Replace(items map[string]FileFunction) error {
	return r.lock.With(func() error {
		r.items = items
		return nil
	})
}

// List returns a copy of all descriptors.
func (r *FileRegistry) List() (map[string]FileFunction, error) {
	var out map[string]FileFunction
	err := r.lock.With(func() error {
		out = make(map[string]FileFunction, len(r.items))
		for k, v := range r.items {
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (r *FileRegistry) Get(name string) (FileFunction, bool, error) {
	var (
		fn FileFunction
		ok bool
	)
	err := r.lock.With(func() error {
		fn, ok = r.items[name]
		return nil
	})
	return fn, ok, err
}

// ToolRegistry holds tool descriptors keyed by name. Availability only
// ever flips from false to true.
type ToolRegistry struct {
	lock  *lockx.Mutex
	items map[string]ToolFunction
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{lock: lockx.New("TOOL_FUNCTIONS"), items: map[string]ToolFunction{}}
}

func (r *ToolRegistry) Replace(items map[string]ToolFunction) error {
	return r.lock.With(func() error {
		r.items = items
		return nil
	})
}

func (r *ToolRegistry) List() (map[string]ToolFunction, error) {
	var out map[string]ToolFunction
	err := r.lock.With(func() error {
		out = make(map[string]ToolFunction, len(r.items))
		for k, v := range r.items {
			out[k] = v
		}
		return nil
	})
	return out, err
}

func (r *ToolRegistry) Get(name string) (ToolFunction, bool, error) {
	var (
		tool ToolFunction
		ok   bool
	)
	err := r.lock.With(func() error {
		tool, ok = r.items[name]
		return nil
	})
	return tool, ok, err
}

// BinPath returns the resolved binary or model path for name.
func (r *ToolRegistry) BinPath(name string) (string, error) {
	tool, ok, err := r.Get(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", apperr.NotFound("Not found tool bin path for: %s", name)
	}
	return tool.BinPath, nil
}

// MarkAvailable records a successful probe. An empty version keeps the
// previously recorded one.
func (r *ToolRegistry) MarkAvailable(name, version string) error {
	return r.lock.With(func() error {
		tool, ok := r.items[name]
		if !ok {
			return nil
		}
		tool.Available = true
		if version != "" {
			tool.Version = version
		}
		r.items[name] = tool
		return nil
	})
}

// ToolList is the tool_data.get_all_tools payload.
type ToolList struct {
	Items      map[string]ToolFunction `json:"items"`
	ExeNames   []string                `json:"exe_names"`
	ModelNames []string                `json:"model_names"`
}

// ListTools partitions names by variant, each sorted.
func (r *ToolRegistry) ListTools() (ToolList, error) {
	items, err := r.List()
	if err != nil {
		return ToolList{}, err
	}
	list := ToolList{Items: items, ExeNames: []string{}, ModelNames: []string{}}
	for name, tool := range items {
		switch tool.FuncType {
		case TypeToolExe:
			list.ExeNames = append(list.ExeNames, name)
		case TypeToolModel:
			list.ModelNames = append(list.ModelNames, name)
		}
	}
	sort.Strings(list.ExeNames)
	sort.Strings(list.ModelNames)
	return list, nil
}
