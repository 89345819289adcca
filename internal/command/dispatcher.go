// Package command implements the command dispatcher: dynamic shell and tool
// invocations plus the table of built-in path, file, text and resource
// commands. Every command returns an Envelope.
package command

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"strings"
	"time"

	"filethings/internal/app"
	"filethings/internal/apperr"
	"filethings/internal/functions"
	"filethings/internal/metrics"
	"filethings/internal/shell"
)

const (
	shellPrefix     = "shell."
	toolExePrefix   = functions.TypeToolExe + "."
	toolModelPrefix = functions.TypeToolModel + "."
)

// Handler runs one built-in command.
type Handler func(ctx context.Context, p Params) (*Envelope, error)

// Dispatcher routes command names to handlers. It holds no lock of its own,
// so handlers may call back into Dispatch.
type Dispatcher struct {
	svc   *app.Services
	table map[string]Handler
}

// New builds a dispatcher over svc.
func New(svc *app.Services) *Dispatcher {
	d := &Dispatcher{svc: svc}
	d.table = d.handlers()
	return d
}

func (d *Dispatcher) handlers() map[string]Handler {
	return map[string]Handler{
		"path.exists":                 d.pathExists,
		"path.split":                  d.pathSplit,
		"path.read":                   d.pathRead,
		"path.join":                   d.pathJoin,
		"path.relative.with_home_dir": d.pathRelativeWithHome,
		"path.absolute.with_home_dir": d.pathAbsoluteWithHome,
		"path.parse_for_task":         d.pathParseForTask,
		"path.make_unused_path":       d.pathMakeUnused,
		"path.new_temp_file_path":     d.pathNewTempFile,
		"path.locate":                 d.pathLocate,
		"path.locate.app_data_dir":    d.pathLocateAppDataDir,
		"path.delete":                 d.pathDelete,
		"path.rename":                 d.fileRename,
		"dir.list":                    d.dirList,

		"file.get_name":                d.fileGetName,
		"file.get_extension":           d.fileGetExtension,
		"file.info.basic":              d.fileInfoBasic,
		"file.info.metadata":           d.fileInfoMetadata,
		"file.exif.get":                d.fileExifGet,
		"file.count_files":             d.fileCountFiles,
		"file.rename":                  d.fileRename,
		"file.read":                    d.fileRead,
		"file.write":                   d.fileWrite,
		"file.copy":                    d.fileCopy,
		"file.binary.split":            d.fileBinarySplit,
		"file.binary.join":             d.fileBinaryJoin,
		"file.hash":                    d.fileHash,
		"file.svg_to_png":              d.fileSVGToPNG,
		"file.image_to_svg":            d.fileImageToSVG,
		"file.image.remove_background": d.fileRemoveBackground,
		"file.image.png_optimize":      d.filePNGOptimize,
		"files.clear":                  d.filesClear,

		"text.replace":        d.textReplace,
		"text.replace_words":  d.textReplaceWords,
		"text.regex.extract":  d.textRegexExtract,
		"text.regex.find_all": d.textRegexFindAll,
		"text.regex.match":    d.textRegexMatch,
		"text.split":          d.textSplit,
		"text.datetime.split": d.textDatetimeSplit,

		"env.platform":     d.envPlatform,
		"env.arch":         d.envArch,
		"env.is_debug":     d.envIsDebug,
		"env.app_data_dir": d.envAppDataDir,
		"env.home_dir":     d.envHomeDir,
		"array.get":        d.arrayGet,
		"semver.compare":   d.semverCompare,
		"url.open":         d.urlOpen,

		"i18n.load.languages":           d.i18nLoadLanguages,
		"i18n.load.translation":         d.i18nLoadTranslation,
		"tool_data.get_all_tools":       d.toolDataGetAll,
		"tool_data.get_bin_path":        d.toolDataGetBinPath,
		"image.svg_to_png":              d.imageSVGToPNG,
		"font.list_system_fonts":        d.fontListSystemFonts,
		"template.list_templates":       d.templateList,
		"template.get_template_content": d.templateContent,

		"updater.update_functions":               d.updaterUpdateFunctions,
		"updater.update_i18n":                    d.updaterUpdateI18n,
		"updater.download_app_windows_installer": d.updaterDownloadInstaller,
		"http.download_file":                     d.httpDownloadFile,
		"zip.unzip_file":                         d.zipUnzipFile,
	}
}

// Names returns the built-in command names, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.table))
	for name := range d.table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch runs the command called name. Failures are logged and returned
// as errors; an envelope with status "error" is a successful call that
// reports a soft failure.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, p Params) (env *Envelope, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.svc.Log.Error("command", "panic", "command", name, "panic", r, "stack", string(debug.Stack()))
			env, err = nil, apperr.Wrap(apperr.KindIO, fmt.Errorf("%v", r), "Command %s failed", name)
		}
	}()
	if p == nil {
		p = Params{}
	}
	start := time.Now()
	d.svc.Log.Debug("command", "route", "command", name)

	env, err = d.route(ctx, name, p)

	status := StatusError
	if err == nil && env != nil {
		status = env.Status
	}
	d.svc.Metrics.ObserveDispatch(metrics.Prefix(name), status, time.Since(start).Seconds())

	if err != nil {
		d.svc.Log.Error("command", "failed", "command", name, "err", err)
		return nil, err
	}
	if env == nil {
		env = NewEnvelope()
	}
	return env, nil
}

func (d *Dispatcher) route(ctx context.Context, name string, p Params) (*Envelope, error) {
	if strings.HasPrefix(name, shellPrefix) {
		return d.runShell(ctx, strings.TrimPrefix(name, shellPrefix), p)
	}

	if strings.HasPrefix(name, toolExePrefix) || strings.HasPrefix(name, toolModelPrefix) {
		available, err := d.svc.Prober.CheckAvailable(ctx, name)
		if err != nil {
			return nil, err
		}
		if !available {
			return nil, apperr.ToolUnavailable("Tool '%s' not available, please install it first.", name)
		}
		bin, err := d.svc.Tools.BinPath(name)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(name, toolExePrefix) {
			return d.runShell(ctx, bin, p)
		}
		return modelMock(p), nil
	}

	h, ok := d.table[name]
	if !ok {
		return nil, apperr.Unsupported("Unknown command: %s", name)
	}
	return h(ctx, p)
}

// runShell executes command with params.arguments. When the ignore_error key
// is present a failure is returned as ok with the error text as content.
func (d *Dispatcher) runShell(ctx context.Context, command string, p Params) (*Envelope, error) {
	raw, _ := p["arguments"].([]any)
	args, err := shell.FlattenArgs(raw)
	if err != nil {
		return nil, err
	}
	d.svc.Log.Debug("shell", "run", "command", command, "args", strings.Join(args, " "))

	out, err := shell.Exec(ctx, d.svc.Runner, command, args)
	if err != nil {
		if p.Has("ignore_error") {
			d.svc.Log.Warn("shell", "ignoring error", "command", command, "err", err)
			return withContent(err.Error()), nil
		}
		return nil, apperr.IO(err, "")
	}
	return withContent(out), nil
}

// modelMock stands in for running a model file: a version probe reports
// that the file exists, and an empty argument list is a soft error.
func modelMock(p Params) *Envelope {
	env := NewEnvelope()
	args, _ := p["arguments"].([]any)
	if len(args) == 0 {
		env.Status = StatusError
		env.Message = "No arguments provided."
		return env
	}
	if first, _ := args[0].(string); first == "-v" || first == "--version" {
		env.Content = "is_exists"
	}
	return env
}
