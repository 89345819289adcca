// Package archive unpacks ZIP files.
package archive

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filethings/internal/apperr"
)

// Unzip extracts archivePath into targetDir, creating it if needed. Entries
// whose cleaned path would land outside targetDir are refused.
func Unzip(archivePath, targetDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return apperr.Wrap(apperr.KindFormat, err, "open zip")
	}
	defer reader.Close()

	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return apperr.IO(err, "create dir %s", targetDir)
	}

	for _, file := range reader.File {
		target, err := entryPath(targetDir, file.Name)
		if err != nil {
			return err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return apperr.IO(err, "create dir %s", target)
			}
			continue
		}
		if err := extractFile(file, target); err != nil {
			return err
		}
	}
	return nil
}

func entryPath(targetDir, name string) (string, error) {
	cleaned := filepath.FromSlash(strings.ReplaceAll(name, `\`, "/"))
	if filepath.IsAbs(cleaned) || filepath.VolumeName(cleaned) != "" {
		return "", apperr.Format("Refusing absolute zip entry: %s", name)
	}
	target := filepath.Join(targetDir, cleaned)
	rel, err := filepath.Rel(filepath.Clean(targetDir), target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperr.Format("Refusing zip entry outside target dir: %s", name)
	}
	return target, nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return apperr.IO(err, "prepare file %s", target)
	}
	rc, err := file.Open()
	if err != nil {
		return apperr.Wrap(apperr.KindFormat, err, "open zip entry %s", file.Name)
	}
	defer rc.Close()

	mode := file.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return apperr.IO(err, "create file %s", target)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return apperr.IO(err, "copy file %s", target)
	}
	if err := out.Close(); err != nil {
		return apperr.IO(err, "close file %s", target)
	}
	return nil
}
