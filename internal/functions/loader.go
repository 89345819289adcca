package functions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"filethings/internal/paths"
	"filethings/internal/schema"
)

// Logger is the subset of log.Logger used by the loader.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Tree locates the active function tree.
type Tree interface {
	FunctionDirUsing() string
	FunctionCategoryDirUsing(parts ...string) string
}

// Loader reads descriptors from the function tree.
type Loader struct {
	Tree   Tree
	Env    Env
	Logger Logger
}

func (l Loader) logger() Logger {
	if l.Logger == nil {
		return noopLogger{}
	}
	return l.Logger
}

type entry struct {
	name            string
	config          map[string]any
	workerFile      string
	workerUtilsFile string
}

// scan walks the immediate sub-directories of a category and returns the
// entries that have a readable, schema-valid config.json and a worker.js.
func (l Loader) scan(category, prefix, utilsName string) []entry {
	logger := l.logger()
	categoryDir := l.Tree.FunctionCategoryDirUsing(category)
	utilsFile := filepath.Join(l.Tree.FunctionDirUsing(), "_utils", utilsName)

	names, err := paths.SubDirNames(categoryDir)
	if err != nil {
		logger.Printf("WARN Failed to list %s: %v", categoryDir, err)
		return nil
	}

	var entries []entry
	for _, sub := range names {
		dir := filepath.Join(categoryDir, sub)
		configPath := filepath.Join(dir, "config.json")
		workerFile := filepath.Join(dir, "worker.js")
		name := prefix + "." + sub

		cfg, err := readConfig(configPath)
		if err != nil {
			logger.Printf("WARN Failed to read config.json: %v", err)
			continue
		}
		if ok, _ := paths.FileExists(workerFile); !ok {
			logger.Printf("WARN Worker file not found: %s", workerFile)
			continue
		}
		entries = append(entries, entry{
			name:            name,
			config:          cfg,
			workerFile:      workerFile,
			workerUtilsFile: utilsFile,
		})
	}
	return entries
}

func readConfig(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(schema.Descriptor, data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// LoadFileFunctions reloads reg from the files category and returns the
// number of admitted descriptors.
func (l Loader) LoadFileFunctions(reg *FileRegistry) (int, error) {
	logger := l.logger()
	items := map[string]FileFunction{}
	for _, e := range l.scan("files", "file", "file.js") {
		fn, err := NewFileFunction(e.name, e.config, e.workerFile, e.workerUtilsFile, l.Env)
		if err != nil {
			logger.Printf("WARN Ignore function %s, %v", e.name, err)
			continue
		}
		items[e.name] = fn
	}
	if err := reg.Replace(items); err != nil {
		return 0, err
	}
	logger.Printf("Loaded %d file functions", len(items))
	return len(items), nil
}

// LoadTools reloads reg from the executables and models categories.
func (l Loader) LoadTools(reg *ToolRegistry) (int, error) {
	logger := l.logger()
	items := map[string]ToolFunction{}
	for _, cat := range []struct{ dir, prefix string }{
		{"executables", TypeToolExe},
		{"models", TypeToolModel},
	} {
		count := 0
		for _, e := range l.scan(cat.dir, cat.prefix, "tool.js") {
			tool, err := NewToolFunction(e.name, e.config, e.workerFile, e.workerUtilsFile, l.Env)
			if err != nil {
				logger.Printf("WARN Ignore function %s, %v", e.name, err)
				continue
			}
			items[e.name] = tool
			count++
		}
		logger.Printf("Loaded %d %s tool functions", count, cat.dir)
	}
	if err := reg.Replace(items); err != nil {
		return 0, err
	}
	return len(items), nil
}
