package command

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"filethings/internal/apperr"
)

var translationFiles = []string{"app.json", "file-info.json", "raw.json"}

func loadJSONFile(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.IO(err, "Failed to read %s", path)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, apperr.Wrap(apperr.KindFormat, err, "Failed to parse %s", path)
	}
	return v, nil
}

// localPart rejects parameters that would leave the resource tree.
func localPart(p Params, key string) (string, error) {
	v, err := p.Required(key)
	if err != nil {
		return "", err
	}
	if !filepath.IsLocal(v) {
		return "", apperr.Param("Invalid parameter: %s", key)
	}
	return v, nil
}

func (d *Dispatcher) i18nLoadLanguages(context.Context, Params) (*Envelope, error) {
	file := filepath.Join(d.svc.Paths.I18nDirUsing(), "languages.json")
	d.svc.Log.Info("i18n", "loading languages", "file", file)
	data, err := loadJSONFile(file)
	if err != nil {
		return nil, err
	}
	return withContent(data), nil
}

// i18nLoadTranslation returns {app, file-info, raw} for lang_code. Missing
// files are skipped and unreadable ones become empty objects.
func (d *Dispatcher) i18nLoadTranslation(_ context.Context, p Params) (*Envelope, error) {
	lang, err := localPart(p, "lang_code")
	if err != nil {
		return nil, err
	}
	langDir := filepath.Join(d.svc.Paths.I18nDirUsing(), lang)

	out := map[string]any{}
	for _, name := range translationFiles {
		file := filepath.Join(langDir, name)
		if !pathExists(file) {
			continue
		}
		key, _, _ := strings.Cut(name, ".")
		data, err := loadJSONFile(file)
		if err != nil {
			d.svc.Log.Error("i18n", "load translation failed", "file", file, "err", err)
			data = map[string]any{}
		}
		out[key] = data
	}
	return withContent(out), nil
}

// Template is one entry of template.list_templates.
type Template struct {
	Name    string `json:"name"`
	Meta    any    `json:"meta"`
	Preview []int  `json:"preview"`
}

func (d *Dispatcher) templateList(_ context.Context, p Params) (*Envelope, error) {
	scope, err := localPart(p, "scope")
	if err != nil {
		return nil, err
	}
	category, err := localPart(p, "category")
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(d.svc.Paths.TemplateDirUsing(), scope, category)
	if !pathExists(dir) {
		d.svc.Log.Error("template", "category not found", "dir", dir)
		return nil, apperr.NotFound("Template category not found")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	templates := []Template{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		tplDir := filepath.Join(dir, entry.Name())
		meta, err := loadJSONFile(filepath.Join(tplDir, "meta.json"))
		if err != nil {
			d.svc.Log.Error("template", "load meta failed", "err", err)
			continue
		}
		preview := []int{}
		if raw, err := os.ReadFile(filepath.Join(tplDir, "preview.webp")); err == nil {
			preview = make([]int, len(raw))
			for i, b := range raw {
				preview[i] = int(b)
			}
		} else {
			d.svc.Log.Warn("template", "failed to read preview", "template", entry.Name(), "err", err)
		}
		templates = append(templates, Template{Name: entry.Name(), Meta: meta, Preview: preview})
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].Name < templates[j].Name })
	return withContent(templates), nil
}

func (d *Dispatcher) templateContent(_ context.Context, p Params) (*Envelope, error) {
	parts := make([]string, 0, 4)
	for _, key := range []string{"scope", "category", "template", "content_file"} {
		v, err := localPart(p, key)
		if err != nil {
			return nil, err
		}
		parts = append(parts, v)
	}
	file := filepath.Join(append([]string{d.svc.Paths.TemplateDirUsing()}, parts...)...)
	if !pathExists(file) {
		d.svc.Log.Error("template", "content file not found", "file", file)
		return nil, apperr.NotFound("Template content file not found")
	}
	raw, err := os.ReadFile(file)
	if err != nil {
		d.svc.Log.Error("template", "read content failed", "file", file, "err", err)
		return nil, apperr.IO(err, "read content file error")
	}
	return withContent(string(raw)), nil
}

func (d *Dispatcher) toolDataGetAll(context.Context, Params) (*Envelope, error) {
	list, err := d.svc.Tools.ListTools()
	if err != nil {
		return nil, err
	}
	return withContent(list), nil
}

func (d *Dispatcher) toolDataGetBinPath(_ context.Context, p Params) (*Envelope, error) {
	name, err := p.String("tool_name", "name")
	if err != nil {
		return nil, err
	}
	tool, ok, err := d.svc.Tools.Get(name)
	if err != nil {
		return nil, err
	}
	env := NewEnvelope()
	if !ok {
		env.Status = StatusError
		env.Message = "Tool `" + name + "` not found."
		return env, nil
	}
	env.Content = tool.BinPath
	return env, nil
}
