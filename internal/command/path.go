package command

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"filethings/internal/apperr"
	"filethings/internal/functions"
	"filethings/internal/paths"
	"filethings/internal/shell"
)

// PathItem describes one selected path.
type PathItem struct {
	Full    string `json:"full"`
	RelFull string `json:"rel_full"`
	Dir     string `json:"dir"`
	Stem    string `json:"stem"`
	Ext     string `json:"ext"`
	IsDir   bool   `json:"is_dir"`
	IsFile  bool   `json:"is_file"`
	IsExist bool   `json:"is_exist"`
}

// TaskPaths is the content of path.parse_for_task.
type TaskPaths struct {
	Paths           []PathItem          `json:"paths"`
	FileExts        functions.StringSet `json:"file_exts"`
	FileFunctions   functions.Supported `json:"file_functions"`
	IsMultipleFiles bool                `json:"is_multiple_files"`
	IsMultipleDirs  bool                `json:"is_multiple_dirs"`
}

func (d *Dispatcher) pathExists(_ context.Context, p Params) (*Envelope, error) {
	path, err := p.String("input_path", "path")
	if err != nil {
		return nil, err
	}
	return withContent(pathExists(path)), nil
}

func (d *Dispatcher) pathSplit(_ context.Context, p Params) (*Envelope, error) {
	path, err := p.String("file_path", "path")
	if err != nil {
		return nil, err
	}
	dir, stem, ext := splitFilePath(path)
	return withContent(map[string]string{
		"dir":  dir,
		"stem": stem,
		"ext":  strings.ToLower(ext),
	}), nil
}

func (d *Dispatcher) pathRead(_ context.Context, p Params) (*Envelope, error) {
	path, err := p.String("file_path", "path")
	if err != nil {
		return nil, err
	}
	dir, stem, ext := splitFilePath(path)
	name := filepath.Base(filepath.Clean(path))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	content := map[string]any{
		"is_exists":  pathExists(path),
		"is_file":    isFile(path),
		"is_dir":     isDir(path),
		"parent_dir": dir,
		"file_name":  name,
		"file_stem":  stem,
		"file_ext":   strings.ToLower(ext),
	}

	if isDir(path) {
		if p.LooseBool("list_sub_names") {
			names, err := listDir(path, ".*", false, false, false)
			if err != nil {
				return nil, err
			}
			content["sub_names"] = names
		}
		if p.LooseBool("list_sub_paths") {
			full, err := listDir(path, ".*", true, false, false)
			if err != nil {
				return nil, err
			}
			content["sub_paths"] = full
		}
	}
	return withContent(content), nil
}

func (d *Dispatcher) pathJoin(_ context.Context, p Params) (*Envelope, error) {
	parts, err := p.RequiredArray("parts")
	if err != nil {
		return nil, err
	}
	elems := make([]string, 0, len(parts))
	for _, part := range parts {
		s, _ := part.(string)
		if filepath.IsAbs(s) {
			// an absolute part replaces everything before it
			elems = elems[:0]
		}
		elems = append(elems, s)
	}
	return withContent(filepath.Join(elems...)), nil
}

func inputPathList(p Params) ([]any, error) {
	arr, ok, err := p.Array("input_paths")
	if err != nil {
		return nil, apperr.Param("input_paths must be an array")
	}
	if !ok {
		return nil, apperr.Param("input_paths is required")
	}
	return arr, nil
}

func mapPathStrings(arr []any, fn func(string) string) ([]string, error) {
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, apperr.Param("path must be a string: %v", v)
		}
		out = append(out, fn(s))
	}
	return out, nil
}

func (d *Dispatcher) pathRelativeWithHome(_ context.Context, p Params) (*Envelope, error) {
	arr, err := inputPathList(p)
	if err != nil {
		return nil, err
	}
	out, err := mapPathStrings(arr, relativeToHome)
	if err != nil {
		return nil, err
	}
	return withContent(out), nil
}

func (d *Dispatcher) pathAbsoluteWithHome(_ context.Context, p Params) (*Envelope, error) {
	arr, err := inputPathList(p)
	if err != nil {
		return nil, err
	}
	out, err := mapPathStrings(arr, absoluteFromHome)
	if err != nil {
		return nil, err
	}
	return withContent(out), nil
}

func (d *Dispatcher) pathParseForTask(_ context.Context, p Params) (*Envelope, error) {
	arr, _, err := p.Array("input_paths")
	if err != nil || arr == nil {
		return nil, apperr.Param("Missing input_paths")
	}

	seen := map[string]bool{}
	unique := make([]string, 0, len(arr))
	for _, v := range arr {
		s, _ := v.(string)
		if seen[s] {
			continue
		}
		seen[s] = true
		unique = append(unique, s)
	}
	sort.Strings(unique)

	items := make([]PathItem, 0, len(unique))
	for _, path := range unique {
		dir, stem, ext := splitFilePath(path)
		isDirectory := isDir(path)
		if isDirectory {
			ext = ""
		}
		items = append(items, PathItem{
			Full:    path,
			RelFull: relativeToHome(path),
			Dir:     dir,
			Stem:    stem,
			Ext:     ext,
			IsDir:   isDirectory,
			IsFile:  isFile(path),
			IsExist: pathExists(path),
		})
	}

	exts := collectExtensions(unique, walkLimit)
	supported, err := functions.SupportedFunctions(d.svc.Files, exts.Sorted())
	if err != nil {
		return nil, err
	}
	files, dirs := countFilesAndDirs(unique)

	return withContent(TaskPaths{
		Paths:           items,
		FileExts:        exts,
		FileFunctions:   supported,
		IsMultipleFiles: files > 1,
		IsMultipleDirs:  dirs > 1,
	}), nil
}

func (d *Dispatcher) pathMakeUnused(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	// an unusable extension parameter just keeps the current one
	ext, _ := p.String("ext", "extension", "to_format", "format")
	return withContent(uniqueFilePath(input, ext)), nil
}

func (d *Dispatcher) pathNewTempFile(_ context.Context, p Params) (*Envelope, error) {
	ext, err := p.Optional("tmp", "ext", "extension")
	if err != nil {
		return nil, err
	}
	dir, err := p.Optional("", "parent_dir", "dir")
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = d.svc.Paths.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.IO(err, "Can't get dir for temp file")
	}
	return withContent(filepath.Join(dir, uuid.NewString()+"."+ext)), nil
}

func (d *Dispatcher) pathLocate(ctx context.Context, p Params) (*Envelope, error) {
	arr, _, err := p.Array("input_paths")
	if err != nil || arr == nil {
		return nil, apperr.Param("Missing input_paths")
	}
	for _, path := range stringsOf(arr) {
		abs := absoluteFromHome(path)
		if !pathExists(abs) {
			continue
		}
		if err := shell.Reveal(ctx, d.svc.Runner, abs); err != nil {
			d.svc.Log.Warn("path", "reveal failed", "path", abs, "err", err)
		}
	}
	return NewEnvelope(), nil
}

func (d *Dispatcher) pathLocateAppDataDir(ctx context.Context, _ Params) (*Envelope, error) {
	return d.pathLocate(ctx, Params{"input_paths": []any{d.svc.Paths.AppDataDir()}})
}

// pathDelete removes paths inside the app data dir directly and moves
// everything else to the OS trash. Content is the number of paths handled.
func (d *Dispatcher) pathDelete(ctx context.Context, p Params) (*Envelope, error) {
	arr, ok, err := p.Array("input_paths")
	if err != nil {
		return nil, apperr.Param("input_paths must be an array")
	}
	if !ok {
		arr, ok, err = p.Array("paths")
		if err != nil {
			return nil, apperr.Param("paths must be an array")
		}
		if !ok {
			return nil, apperr.Param("parameter `input_paths` or `paths` is required")
		}
	}

	appData := d.svc.Paths.AppDataDir()
	deleted := 0
	var toTrash []string
	for _, path := range stringsOf(arr) {
		if !paths.IsInside(appData, path) {
			toTrash = append(toTrash, path)
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return nil, apperr.IO(err, "Failed to delete %s", path)
		}
		deleted++
	}
	for _, path := range toTrash {
		if err := shell.Trash(ctx, d.svc.Runner, path); err != nil {
			return nil, apperr.IO(err, "Failed to move %s to trash", path)
		}
		deleted++
	}
	return withContent(deleted), nil
}

func (d *Dispatcher) dirList(_ context.Context, p Params) (*Envelope, error) {
	dir, err := p.String("input_dir", "dir")
	if err != nil {
		return nil, err
	}
	pattern, err := p.Optional(".*", "pattern")
	if err != nil {
		return nil, apperr.Param("regex `pattern` must be a string")
	}
	fullPath, err := p.Bool("is_full_path", false)
	if err != nil {
		return nil, err
	}
	ignoreFile, err := p.Bool("ignore_file", false)
	if err != nil {
		return nil, err
	}
	ignoreDir, err := p.Bool("ignore_dir", false)
	if err != nil {
		return nil, err
	}
	names, err := listDir(dir, pattern, fullPath, ignoreFile, ignoreDir)
	if err != nil {
		return nil, err
	}
	return withContent(names), nil
}
