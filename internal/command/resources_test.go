package command

import (
	"path/filepath"
	"reflect"
	"testing"

	"filethings/internal/apperr"
	"filethings/internal/functions"
)

func TestI18nLoad(t *testing.T) {
	e := newTestEnv(t)
	i18n := filepath.Join(e.root, "res", "i18n")
	writeFile(t, filepath.Join(i18n, "languages.json"), []byte(`[{"code":"en"},{"code":"zh-CN"}]`))
	writeFile(t, filepath.Join(i18n, "en", "app.json"), []byte(`{"hello":"Hello"}`))
	writeFile(t, filepath.Join(i18n, "en", "raw.json"), []byte(`{broken`))

	env := e.dispatch(t, "i18n.load.languages", nil)
	if langs := env.Content.([]any); len(langs) != 2 {
		t.Fatalf("languages = %v", env.Content)
	}

	env = e.dispatch(t, "i18n.load.translation", Params{"lang_code": "en"})
	want := map[string]any{
		"app": map[string]any{"hello": "Hello"},
		"raw": map[string]any{},
	}
	if !reflect.DeepEqual(env.Content, want) {
		t.Fatalf("translation = %v", env.Content)
	}

	err := e.dispatchErr(t, "i18n.load.translation", Params{"lang_code": "../../etc"})
	if err.Error() != "Invalid parameter: lang_code" {
		t.Fatalf("err = %v", err)
	}
}

func TestI18nPrefersAppData(t *testing.T) {
	e := newTestEnv(t)
	writeFile(t, filepath.Join(e.root, "res", "i18n", "languages.json"), []byte(`["bundled"]`))
	writeFile(t, filepath.Join(e.svc.Paths.I18nDirInAppData(), "languages.json"), []byte(`["updated"]`))

	env := e.dispatch(t, "i18n.load.languages", nil)
	if !reflect.DeepEqual(env.Content, []any{"updated"}) {
		t.Fatalf("languages = %v", env.Content)
	}
}

func TestTemplates(t *testing.T) {
	e := newTestEnv(t)
	base := filepath.Join(e.root, "res", "templates", "rename", "photo")
	writeFile(t, filepath.Join(base, "b-date", "meta.json"), []byte(`{"title":"By date"}`))
	writeFile(t, filepath.Join(base, "b-date", "preview.webp"), []byte{1, 2})
	writeFile(t, filepath.Join(base, "b-date", "content.txt"), []byte("{year}-{month}"))
	writeFile(t, filepath.Join(base, "a-seq", "meta.json"), []byte(`{"title":"Sequence"}`))
	writeFile(t, filepath.Join(base, "no-meta", "preview.webp"), nil)

	env := e.dispatch(t, "template.list_templates", Params{"scope": "rename", "category": "photo"})
	list := env.Content.([]Template)
	if len(list) != 2 || list[0].Name != "a-seq" || list[1].Name != "b-date" {
		t.Fatalf("templates = %+v", list)
	}
	if !reflect.DeepEqual(list[0].Preview, []int{}) || !reflect.DeepEqual(list[1].Preview, []int{1, 2}) {
		t.Fatalf("previews = %v %v", list[0].Preview, list[1].Preview)
	}

	err := e.dispatchErr(t, "template.list_templates", Params{"scope": "rename", "category": "video"})
	if !apperr.Is(err, apperr.KindNotFound) || err.Error() != "Template category not found" {
		t.Fatalf("err = %v", err)
	}

	env = e.dispatch(t, "template.get_template_content", Params{
		"scope": "rename", "category": "photo", "template": "b-date", "content_file": "content.txt",
	})
	if env.Content != "{year}-{month}" {
		t.Fatalf("content = %v", env.Content)
	}
}

func TestToolData(t *testing.T) {
	e := newTestEnv(t)
	_ = e.svc.Tools.Replace(map[string]functions.ToolFunction{
		"tool.exe.ffmpeg": {Name: "tool.exe.ffmpeg", FuncType: functions.TypeToolExe, BinPath: "/usr/bin/ffmpeg"},
	})
	env := e.dispatch(t, "tool_data.get_bin_path", Params{"tool_name": "tool.exe.ffmpeg"})
	if env.Content != "/usr/bin/ffmpeg" {
		t.Fatalf("bin path = %v", env.Content)
	}
	env = e.dispatch(t, "tool_data.get_bin_path", Params{"tool_name": "tool.exe.nope"})
	if env.Status != StatusError || env.Message != "Tool `tool.exe.nope` not found." {
		t.Fatalf("missing = %+v", env)
	}
	env = e.dispatch(t, "tool_data.get_all_tools", nil)
	if _, ok := env.Content.(functions.ToolList); !ok {
		t.Fatalf("all tools = %T", env.Content)
	}
}
