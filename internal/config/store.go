package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"filethings/internal/apperr"
	"filethings/internal/lockx"
)

// Logger is the subset of log.Logger used by the stores.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Store is a JSON document persisted at <root>/settings/<domain>/<scope>.json.
// It is not safe for concurrent use; callers go through Lock.
type Store struct {
	Domain string
	Scope  string

	root   string
	doc    map[string]any
	lock   *lockx.Mutex
	logger Logger
}

// NewStore creates an empty store rooted at the app data dir.
func NewStore(root, domain, scope string, logger Logger) *Store {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Store{
		Domain: domain,
		Scope:  scope,
		root:   root,
		doc:    map[string]any{},
		lock:   lockx.New(scope),
		logger: logger,
	}
}

// File returns the backing file path.
func (s *Store) File() string {
	return filepath.Join(s.root, "settings", s.Domain, s.Scope+".json")
}

// Lock acquires the store with the bounded-wait policy.
func (s *Store) Lock() (func(), error) {
	return s.lock.Acquire()
}

// Load reads the document from disk. A missing file is created holding {}.
func (s *Store) Load() error {
	path := s.File()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("prepare settings dir: %w", err)
		}
		if err := os.WriteFile(path, []byte("{}"), 0o644); err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		s.doc = map[string]any{}
		return nil
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return apperr.Wrap(apperr.KindFormat, err, "parse %s", path)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	s.doc = doc
	return nil
}

// GetAll returns a shallow copy of the whole document.
func (s *Store) GetAll() map[string]any {
	out := make(map[string]any, len(s.doc))
	for k, v := range s.doc {
		out[k] = v
	}
	return out
}

// Get returns the requested keys. Missing keys map to nil; non-string keys
// are skipped.
func (s *Store) Get(keys []any) map[string]any {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		key, ok := k.(string)
		if !ok {
			continue
		}
		out[key] = s.doc[key]
	}
	return out
}

// SetAll replaces the document and saves it.
func (s *Store) SetAll(doc map[string]any) (map[string]any, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	s.doc = doc
	if err := s.Save(); err != nil {
		return nil, err
	}
	return map[string]any{"all": "ok"}, nil
}

// Set shallow-merges items into the top level of the document and saves it.
func (s *Store) Set(items map[string]any) (map[string]any, error) {
	for k, v := range items {
		s.doc[k] = v
	}
	if err := s.Save(); err != nil {
		return nil, err
	}
	return items, nil
}

// Save writes the document as indented JSON.
func (s *Store) Save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s config: %w", s.Scope, err)
	}
	path := s.File()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("prepare settings dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.logger.Printf("Saved %s config to file: %s", s.Scope, path)
	return nil
}
