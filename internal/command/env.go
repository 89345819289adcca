package command

import (
	"context"
	"os"
	"runtime"

	"filethings/internal/apperr"
	"filethings/internal/functions"
	"filethings/internal/semver"
	"filethings/internal/shell"
)

var goarch = runtime.GOARCH

// archName reports the CPU architecture in the names workers expect.
func archName(arch string) string {
	switch arch {
	case "amd64":
		return "x86_64"
	case "arm64":
		return "aarch64"
	case "386":
		return "x86"
	}
	return arch
}

func (d *Dispatcher) envPlatform(context.Context, Params) (*Envelope, error) {
	return withContent(functions.CurrentPlatform()), nil
}

func (d *Dispatcher) envArch(context.Context, Params) (*Envelope, error) {
	return withContent(archName(goarch)), nil
}

func (d *Dispatcher) envIsDebug(context.Context, Params) (*Envelope, error) {
	return withContent(d.svc.Debug), nil
}

func (d *Dispatcher) envAppDataDir(context.Context, Params) (*Envelope, error) {
	return withContent(d.svc.Paths.AppDataDir()), nil
}

func (d *Dispatcher) envHomeDir(context.Context, Params) (*Envelope, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, apperr.IO(err, "Failed to get home dir")
	}
	return withContent(home), nil
}

// arrayGet returns array[index]; negative indexes count from the end.
func (d *Dispatcher) arrayGet(_ context.Context, p Params) (*Envelope, error) {
	arr, err := p.RequiredArray("array")
	if err != nil {
		return nil, err
	}
	raw, ok := p.get("index")
	if !ok {
		return nil, apperr.Param("`index` is required")
	}
	idx, isInt := asInt(raw)
	if !isInt {
		return nil, apperr.Param("`index` must be an integer")
	}
	if idx < 0 {
		idx += int64(len(arr))
	}
	if idx < 0 || idx >= int64(len(arr)) {
		return nil, apperr.Param("Index out of range")
	}
	return withContent(arr[idx]), nil
}

func (d *Dispatcher) semverCompare(_ context.Context, p Params) (*Envelope, error) {
	v1, err := p.Required("version1")
	if err != nil {
		return nil, err
	}
	v2, err := p.Required("version2")
	if err != nil {
		return nil, err
	}
	op, err := p.Required("operator")
	if err != nil {
		return nil, err
	}
	ok, err := semver.Compare(v1, op, v2)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindParam, err, "")
	}
	return withContent(ok), nil
}

func (d *Dispatcher) urlOpen(ctx context.Context, p Params) (*Envelope, error) {
	url, err := p.Required("url")
	if err != nil {
		return nil, err
	}
	out, err := shell.OpenURL(ctx, d.svc.Runner, url)
	if err != nil {
		return nil, apperr.IO(err, "")
	}
	env := withContent(url)
	env.Message = out
	return env, nil
}
