package config

import (
	"encoding/json"
	"os"
	"testing"

	"filethings/internal/apperr"
)

func readDoc(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return doc
}

func TestLoadCreatesMissingFile(t *testing.T) {
	st := NewStore(t.TempDir(), "user", "ui", nil)
	if err := st.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(readDoc(t, st.File())) != 0 {
		t.Fatal("expected empty document on disk")
	}
	if len(st.GetAll()) != 0 {
		t.Fatal("expected empty document in memory")
	}
}

func TestSetShallowMerges(t *testing.T) {
	stores := NewStores(t.TempDir(), nil)
	if err := stores.LoadAll(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if _, err := stores.Call("ui", "set_all", `{"a":1,"b":2}`); err != nil {
		t.Fatalf("set_all: %v", err)
	}
	out, err := stores.Call("ui", "set", `{"b":3,"c":4}`)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if out != `{"b":3,"c":4}` {
		t.Fatalf("set should echo the applied items, got %s", out)
	}

	all, err := stores.Call("ui", "get_all", "{}")
	if err != nil {
		t.Fatalf("get_all: %v", err)
	}
	if all != `{"a":1,"b":3,"c":4}` {
		t.Fatalf("unexpected document %s", all)
	}

	st, _ := stores.Store("ui")
	doc := readDoc(t, st.File())
	if doc["b"].(float64) != 3 || doc["c"].(float64) != 4 || doc["a"].(float64) != 1 {
		t.Fatalf("persisted document mismatch: %v", doc)
	}
}

func TestGetSelectsKeys(t *testing.T) {
	stores := NewStores(t.TempDir(), nil)
	_ = stores.LoadAll()
	if _, err := stores.Call("file_function", "set_all", `{"lang":"en","theme":"dark"}`); err != nil {
		t.Fatal(err)
	}
	out, err := stores.Call("file_function", "get", `["lang","missing",3]`)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if out != `{"lang":"en","missing":null}` {
		t.Fatalf("unexpected get result %s", out)
	}
}

func TestCallValidation(t *testing.T) {
	stores := NewStores(t.TempDir(), nil)
	cases := []struct {
		scope, action, params, want string
	}{
		{"other", "get", "[]", "Invalid scope: other"},
		{"ui", "drop", "[]", "Invalid action: drop"},
		{"ui", "get", "{", ""},
		{"ui", "get", `{"a":1}`, "Failed to get config: Invalid args, require an array"},
	}
	for _, tc := range cases {
		_, err := stores.Call(tc.scope, tc.action, tc.params)
		if err == nil {
			t.Fatalf("%s/%s: expected error", tc.scope, tc.action)
		}
		if tc.want != "" && err.Error() != tc.want {
			t.Errorf("%s/%s: got %q want %q", tc.scope, tc.action, err.Error(), tc.want)
		}
	}
}

func TestSetAllRejectsNonObject(t *testing.T) {
	stores := NewStores(t.TempDir(), nil)
	if err := stores.LoadAll(); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := stores.Call(ScopeUI, "set", `{"a":1,"b":2}`); err != nil {
		t.Fatal(err)
	}
	_, err := stores.Call(ScopeUI, "set_all", "[1,2]")
	if err == nil || err.Error() != "Failed to set_all config: Invalid args, require an object" {
		t.Fatalf("set_all array: %v", err)
	}
	st, _ := stores.Store(ScopeUI)
	doc := readDoc(t, st.File())
	if doc["a"] != float64(1) || doc["b"] != float64(2) {
		t.Fatalf("document changed: %v", doc)
	}
}

func TestCallLockTimeout(t *testing.T) {
	stores := NewStores(t.TempDir(), nil)
	st, _ := stores.Store("ui")
	unlock, err := st.Lock()
	if err != nil {
		t.Fatal(err)
	}
	defer unlock()

	_, err = stores.Call("ui", "get_all", "{}")
	if err == nil || err.Error() != "Failed to acquire lock ui" {
		t.Fatalf("expected lock failure, got %v", err)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	st := NewStore(t.TempDir(), "user", "ui", nil)
	if err := st.Save(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(st.File(), []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	err := st.Load()
	if !apperr.Is(err, apperr.KindFormat) {
		t.Fatalf("expected format error, got %v", err)
	}
}
