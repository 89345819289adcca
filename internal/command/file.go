package command

import (
	"bufio"
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"filethings/internal/apperr"
)

const (
	defaultChunkSize = 1024 * 1024
	firstPartSuffix  = ".001"
	dateLayout       = "2006-01-02 15:04:05 -07:00"
)

func (d *Dispatcher) fileGetName(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	name := filepath.Base(filepath.Clean(input))
	if name == "." || name == string(filepath.Separator) {
		return nil, apperr.Param("Invalid file name")
	}
	return withContent(name), nil
}

func (d *Dispatcher) fileGetExtension(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	_, _, ext := splitFilePath(input)
	return withContent(ext), nil
}

// fileInfoBasic reports name, type, size and modification time. Dates are
// local time.
func (d *Dispatcher) fileInfoBasic(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	linfo, err := os.Lstat(input)
	if err != nil {
		return nil, apperr.NotFound("File not found")
	}

	attrs := map[string]string{
		"PathName": filepath.Base(filepath.Clean(input)),
		"PathType": "UNKNOWN",
	}
	switch {
	case linfo.Mode()&os.ModeSymlink != 0:
		attrs["PathType"] = "SYMLINK"
		if target, err := os.Readlink(input); err == nil {
			attrs["LinkTarget"] = target
		}
	case linfo.Mode().IsRegular():
		attrs["PathType"] = "FILE"
	case linfo.IsDir():
		attrs["PathType"] = "DIR"
	}

	if info, err := os.Stat(input); err == nil {
		attrs["FileSize"] = fmt.Sprintf("%d", info.Size())
		attrs["FileModifyDate"] = info.ModTime().In(time.Local).Format(dateLayout)
	}
	return withContent(attrs), nil
}

type fileCounter struct {
	DirQuantity         uint64            `json:"dir_quantity"`
	FileQuantity        uint64            `json:"file_quantity"`
	FileQuantityOfTypes map[string]uint64 `json:"file_quantity_of_types"`
	FileSizeSum         uint64            `json:"file_size_sum"`
	FileSizeOfTypes     map[string]uint64 `json:"file_size_of_types"`
	FileTypeQuantity    uint64            `json:"file_type_quantity"`
}

func newFileCounter() *fileCounter {
	return &fileCounter{
		FileQuantityOfTypes: map[string]uint64{},
		FileSizeOfTypes:     map[string]uint64{},
	}
}

func (c *fileCounter) walk(p string) error {
	info, err := os.Stat(p)
	if err != nil {
		return err
	}
	if info.Mode().IsRegular() {
		_, _, ext := splitFilePath(p)
		size := uint64(info.Size())
		c.FileQuantity++
		c.FileSizeSum += size
		c.FileQuantityOfTypes[ext]++
		c.FileSizeOfTypes[ext] += size
	} else {
		c.DirQuantity++
		entries, err := os.ReadDir(p)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := c.walk(filepath.Join(p, entry.Name())); err != nil {
				return err
			}
		}
	}
	c.FileTypeQuantity = uint64(len(c.FileQuantityOfTypes))
	return nil
}

func (c *fileCounter) add(o *fileCounter) {
	c.DirQuantity += o.DirQuantity
	c.FileQuantity += o.FileQuantity
	c.FileSizeSum += o.FileSizeSum
	for ext, n := range o.FileQuantityOfTypes {
		c.FileQuantityOfTypes[ext] += n
	}
	for ext, n := range o.FileSizeOfTypes {
		c.FileSizeOfTypes[ext] += n
	}
	c.FileTypeQuantity = uint64(len(c.FileQuantityOfTypes))
}

// fileCountFiles counts files, dirs and sizes per input path (keyed by the
// home-relative path) plus a "total" entry.
func (d *Dispatcher) fileCountFiles(_ context.Context, p Params) (*Envelope, error) {
	arr, err := p.RequiredArray("input_paths")
	if err != nil {
		return nil, err
	}
	total := newFileCounter()
	result := map[string]*fileCounter{}
	for _, path := range stringsOf(arr) {
		c := newFileCounter()
		if err := c.walk(path); err != nil {
			return nil, apperr.IO(err, "")
		}
		result[relativeToHome(path)] = c
		total.add(c)
	}
	result["total"] = total
	return withContent(result), nil
}

func inputOutput(p Params) (string, string, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return "", "", err
	}
	output, err := p.String("output_file", "output_path")
	if err != nil {
		return "", "", err
	}
	return input, output, nil
}

// fileRename moves a file, falling back to copy and delete when a plain
// rename fails (different volumes).
func (d *Dispatcher) fileRename(_ context.Context, p Params) (*Envelope, error) {
	input, output, err := inputOutput(p)
	if err != nil {
		return nil, err
	}
	if err := ensureParentDir(output); err != nil {
		return nil, apperr.IO(err, "")
	}
	if err := os.Rename(input, output); err != nil {
		if err := copyFile(input, output); err != nil {
			return nil, apperr.IO(err, "")
		}
		if err := os.Remove(input); err != nil {
			return nil, apperr.IO(err, "")
		}
	}
	env := withContent(true)
	env.AddOutputPath(output)
	return env, nil
}

func (d *Dispatcher) fileCopy(_ context.Context, p Params) (*Envelope, error) {
	input, output, err := inputOutput(p)
	if err != nil {
		return nil, err
	}
	if err := ensureParentDir(output); err != nil {
		return nil, apperr.IO(err, "")
	}
	if err := copyFile(input, output); err != nil {
		return nil, apperr.IO(err, "")
	}
	env := withContent(true)
	env.AddOutputPath(output)
	return env, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func readFormat(p Params) (string, error) {
	format, err := p.Optional("text", "format")
	if err != nil {
		return "", err
	}
	switch format {
	case "text", "base64", "bytes":
		return format, nil
	}
	return "", apperr.Unsupported("Invalid format: '%s'. Must be 'text', 'base64' or 'bytes'", format)
}

func (d *Dispatcher) fileRead(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	if !isFile(input) {
		return nil, fileNotFound(input)
	}
	format, err := readFormat(p)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	switch format {
	case "base64":
		return withContent(base64.StdEncoding.EncodeToString(data)), nil
	case "bytes":
		nums := make([]int, len(data))
		for i, b := range data {
			nums[i] = int(b)
		}
		return withContent(nums), nil
	default:
		return withContent(string(data)), nil
	}
}

func (d *Dispatcher) fileWrite(_ context.Context, p Params) (*Envelope, error) {
	output, err := p.String("output_file", "output_path")
	if err != nil {
		return nil, err
	}
	format, err := readFormat(p)
	if err != nil {
		return nil, err
	}
	raw, ok := p.get("content")
	if !ok {
		return nil, apperr.Param("content is required")
	}

	var data []byte
	switch format {
	case "text", "base64":
		s, isStr := raw.(string)
		if !isStr {
			return nil, apperr.Param("content must be a string")
		}
		data = []byte(s)
		if format == "base64" {
			if data, err = base64.StdEncoding.DecodeString(s); err != nil {
				return nil, apperr.Wrap(apperr.KindFormat, err, "Invalid base64 content")
			}
		}
	case "bytes":
		arr, isArr := raw.([]any)
		if !isArr {
			return nil, apperr.Param("content must be an array")
		}
		data = make([]byte, len(arr))
		for i, v := range arr {
			n, _ := asInt(v)
			data[i] = byte(n)
		}
	}

	if err := ensureParentDir(output); err != nil {
		return nil, apperr.IO(err, "")
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return nil, apperr.IO(err, "")
	}
	env := withContent(true)
	env.AddOutputPath(output)
	return env, nil
}

// fileBinarySplit cuts a file into chunk_size parts named
// <stem>.<ext>.001, .002, ... in output_dir.
func (d *Dispatcher) fileBinarySplit(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	chunkSize, _, err := p.Uint("chunk_size", defaultChunkSize)
	if err != nil {
		return nil, apperr.Param("chunk_size must be an integer")
	}
	if chunkSize == 0 {
		return nil, apperr.Param("chunk_size must be greater than 0")
	}
	outputDir, err := p.String("output_dir")
	if err != nil {
		return nil, err
	}

	parts, err := splitInBytes(input, int64(chunkSize), outputDir)
	if err != nil {
		return nil, err
	}
	env := NewEnvelope()
	env.OutputPaths = parts
	return env, nil
}

func splitInBytes(input string, chunkSize int64, outputDir string) ([]string, error) {
	if !isFile(input) {
		return nil, apperr.Param("Not a file")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, apperr.IO(err, "")
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	defer f.Close()
	src := bufio.NewReader(f)

	_, stem, ext := splitFilePath(input)
	base := stem
	if ext != "" {
		base = stem + "." + ext
	}

	parts := []string{}
	for index := 1; ; index++ {
		if _, err := src.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, apperr.IO(err, "")
		}
		part := filepath.Join(outputDir, fmt.Sprintf("%s.%03d", base, index))
		if err := writePart(part, src, chunkSize); err != nil {
			return nil, apperr.IO(err, "")
		}
		parts = append(parts, part)
	}
	return parts, nil
}

// writePart copies at most n bytes of src into a new file at path.
func writePart(path string, src io.Reader, n int64) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := io.CopyN(out, src, n); err != nil && !errors.Is(err, io.EOF) {
		out.Close()
		return err
	}
	return out.Close()
}

// fileBinaryJoin concatenates <name>.001, <name>.002, ... while they exist.
func (d *Dispatcher) fileBinaryJoin(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(input, firstPartSuffix) {
		return nil, apperr.NotFound("Not found .001 file")
	}
	output, err := p.Optional("", "output_file")
	if err != nil {
		return nil, apperr.Param("Invalid parameter `output_file`")
	}
	if output == "" {
		output = strings.TrimSuffix(input, firstPartSuffix)
	}

	dir := filepath.Dir(input)
	name := strings.TrimSuffix(filepath.Base(input), firstPartSuffix)
	var parts []string
	for i := 1; ; i++ {
		part := filepath.Join(dir, fmt.Sprintf("%s.%03d", name, i))
		if !pathExists(part) {
			break
		}
		parts = append(parts, part)
	}

	if err := joinInBytes(parts, output); err != nil {
		return nil, err
	}
	env := NewEnvelope()
	env.AddOutputPath(output)
	return env, nil
}

func joinInBytes(parts []string, output string) error {
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return apperr.IO(err, "")
	}
	if err := ensureParentDir(output); err != nil {
		return apperr.IO(err, "")
	}
	out, err := os.Create(output)
	if err != nil {
		return apperr.IO(err, "")
	}
	defer out.Close()

	for _, part := range parts {
		if err := appendFile(out, part); err != nil {
			return apperr.IO(err, "")
		}
		if err := out.Sync(); err != nil {
			return apperr.IO(err, "")
		}
	}
	return out.Close()
}

func appendFile(out *os.File, part string) error {
	in, err := os.Open(part)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(out, in)
	return err
}

func (d *Dispatcher) fileHash(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	hashType, err := p.Optional("md5", "hash_type")
	if err != nil {
		return nil, err
	}
	var h hash.Hash
	switch hashType {
	case "md5":
		h = md5.New()
	case "sha1":
		h = sha1.New()
	case "sha256":
		h = sha256.New()
	case "sha512":
		h = sha512.New()
	default:
		return nil, apperr.Unsupported("Invalid hash type: '%s'", hashType)
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	defer f.Close()
	if _, err := io.Copy(h, f); err != nil {
		return nil, apperr.IO(err, "")
	}
	return withContent(hex.EncodeToString(h.Sum(nil))), nil
}

// filesClear deletes files whose base name or full path matches one of
// includes.name_patterns or includes.path_patterns. Directories are handled
// by re-issuing the call for each entry with the same includes.
func (d *Dispatcher) filesClear(ctx context.Context, p Params) (*Envelope, error) {
	inputs, err := clearInputs(p)
	if err != nil {
		return nil, err
	}

	includes, _ := p.Object("includes")
	namePatterns, _ := includes["name_patterns"].([]any)
	pathPatterns, _ := includes["path_patterns"].([]any)
	nameRes, err := compilePatterns(namePatterns, "name")
	if err != nil {
		return nil, err
	}
	pathRes, err := compilePatterns(pathPatterns, "path")
	if err != nil {
		return nil, err
	}

	deleted := 0
	for _, path := range inputs {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() {
			if matchAny(nameRes, filepath.Base(path)) || matchAny(pathRes, path) {
				if err := os.Remove(path); err != nil {
					return nil, apperr.IO(err, "")
				}
				deleted++
			}
			continue
		}
		if !info.IsDir() {
			continue
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			d.svc.Log.Error("files", "read dir failed", "path", path, "err", err)
			continue
		}
		for _, entry := range entries {
			sub, err := d.filesClear(ctx, Params{
				"input_paths": []any{filepath.Join(path, entry.Name())},
				"includes": map[string]any{
					"name_patterns": namePatterns,
					"path_patterns": pathPatterns,
				},
			})
			if err != nil {
				return nil, err
			}
			n, _ := sub.Content.(int)
			deleted += n
		}
	}

	env := withContent(deleted)
	env.Message = fmt.Sprintf("%d", deleted)
	return env, nil
}

func clearInputs(p Params) ([]string, error) {
	arr, _, err := p.Array("input_paths")
	if err != nil {
		return nil, apperr.Param("input_paths must be an array")
	}
	if len(arr) == 0 {
		if arr, _, err = p.Array("paths"); err != nil {
			return nil, apperr.Param("paths must be an array")
		}
	}
	if len(arr) == 0 {
		if v, ok := p.get("input_dir"); ok {
			arr = []any{v}
		}
	}
	if len(arr) == 0 {
		if v, ok := p.get("input_file"); ok {
			arr = []any{v}
		}
	}
	if len(arr) == 0 {
		return nil, apperr.Param("Missing parameter `input_paths`")
	}
	return stringsOf(arr), nil
}

func compilePatterns(patterns []any, kind string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, v := range patterns {
		s, _ := v.(string)
		if s == "" {
			return nil, apperr.Param("Invalid include %s patterns:%v", kind, v)
		}
		re, err := regexp.Compile(s)
		if err != nil {
			return nil, apperr.Param("Invalid include %s patterns:%q,error:%v", kind, s, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
