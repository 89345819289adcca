package command

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"filethings/internal/apperr"
	"filethings/internal/functions"
)

// extensionLimit caps the number of distinct extensions collected for one
// selection; walkLimit caps the number of files visited.
const (
	extensionLimit = 100
	walkLimit      = 500
)

// splitFilePath returns the parent dir, the file stem and the extension
// without its dot. A bare name has an empty dir; dotfiles have no extension.
func splitFilePath(p string) (dir, stem, ext string) {
	if p == "" {
		return "", "", ""
	}
	clean := filepath.Clean(p)
	if strings.ContainsAny(p, `/\`) {
		dir = filepath.Dir(clean)
	}
	base := filepath.Base(clean)
	if base == "." || base == string(filepath.Separator) {
		return dir, "", ""
	}
	e := filepath.Ext(base)
	if e == base {
		return dir, base, ""
	}
	return dir, strings.TrimSuffix(base, e), strings.TrimPrefix(e, ".")
}

// uniqueFilePath returns <dir>/<stem>.<ext>, or the first free
// <dir>/<stem>-<n>.<ext>. newExt replaces the extension when non-empty.
func uniqueFilePath(p, newExt string) string {
	dir, stem, ext := splitFilePath(p)
	if newExt != "" {
		ext = newExt
	}
	candidate := filepath.Join(dir, stem+"."+ext)
	for n := 1; pathExists(candidate); n++ {
		candidate = filepath.Join(dir, stem+"-"+strconv.Itoa(n)+"."+ext)
	}
	return candidate
}

func pathExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func ensureParentDir(p string) error {
	dir := filepath.Dir(p)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}

// relativeToHome abbreviates a path under the home dir with ~.
func relativeToHome(p string) string {
	home := homeDir()
	if home == "" || !strings.HasPrefix(p, home) {
		return p
	}
	return "~" + strings.TrimPrefix(p, home)
}

// absoluteFromHome expands a leading ~ followed by a separator.
func absoluteFromHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}
	home := homeDir()
	if home == "" {
		return p
	}
	sep := string(filepath.Separator)
	return strings.Replace(p, "~"+sep, home+sep, 1)
}

// collectExtensions gathers the lower-cased extensions of every file in
// paths (directories are walked) plus the selection-shape tokens.
func collectExtensions(paths []string, limit int) functions.StringSet {
	exts := functions.NewStringSet()
	walked := 0
	for _, p := range paths {
		_ = walkExtensions(p, &walked, exts)
		if walked >= limit {
			break
		}
	}

	if len(paths) > 1 {
		exts["/paths"] = struct{}{}
	}
	files, dirs := countFilesAndDirs(paths)
	switch {
	case files == 1:
		exts["/file"] = struct{}{}
	case files > 1:
		exts["/files"] = struct{}{}
	}
	switch {
	case dirs == 1:
		exts["/dir"] = struct{}{}
	case dirs > 1:
		exts["/dirs"] = struct{}{}
	}
	return exts
}

func walkExtensions(p string, walked *int, exts functions.StringSet) error {
	info, err := os.Stat(p)
	if err != nil {
		return nil
	}
	if len(exts) >= extensionLimit {
		return nil
	}
	if info.Mode().IsRegular() {
		*walked++
		if _, _, ext := splitFilePath(p); ext != "" {
			exts[strings.ToLower(ext)] = struct{}{}
		}
		return nil
	}
	if !info.IsDir() {
		return nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := walkExtensions(filepath.Join(p, entry.Name()), walked, exts); err != nil {
			return err
		}
	}
	return nil
}

// countFilesAndDirs counts files and directories under paths, stopping once
// both counters exceed one. It only answers "one or many".
func countFilesAndDirs(paths []string) (files, dirs int) {
	var walk func(list []string)
	walk = func(list []string) {
		for _, p := range list {
			if files > 1 && dirs > 1 {
				return
			}
			info, err := os.Stat(p)
			if err != nil {
				continue
			}
			if info.Mode().IsRegular() {
				files++
				continue
			}
			if !info.IsDir() {
				continue
			}
			dirs++
			entries, err := os.ReadDir(p)
			if err != nil {
				continue
			}
			for _, entry := range entries {
				if files > 1 && dirs > 1 {
					return
				}
				sub := filepath.Join(p, entry.Name())
				subInfo, err := os.Stat(sub)
				if err != nil {
					continue
				}
				if subInfo.Mode().IsRegular() {
					files++
				} else if subInfo.IsDir() {
					// the recursive call counts sub itself
					walk([]string{sub})
				}
			}
		}
	}
	walk(paths)
	return files, dirs
}

// listDir returns the entries of dir whose name matches pattern. A path that
// is not a directory yields an empty list.
func listDir(dir, pattern string, fullPath, ignoreFile, ignoreDir bool) ([]string, error) {
	out := []string{}
	if !isDir(dir) {
		return out, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, apperr.Param("pattern error: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperr.IO(err, "Error reading directory:%s", dir)
	}
	for _, entry := range entries {
		if ignoreFile && entry.Type().IsRegular() {
			continue
		}
		if ignoreDir && entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !re.MatchString(name) {
			continue
		}
		if fullPath {
			out = append(out, filepath.Join(dir, name))
		} else {
			out = append(out, name)
		}
	}
	return out, nil
}

func fileNotFound(p string) error {
	return apperr.NotFound("File not found: '%s'", p)
}
