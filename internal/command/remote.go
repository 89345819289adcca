package command

import (
	"context"

	"filethings/internal/apperr"
	"filethings/internal/archive"
	"filethings/internal/updater"
)

func updateEnvelope(res updater.Result) *Envelope {
	env := withContent(res.Version)
	env.Message = res.Message
	if res.Status == updater.StatusIgnored {
		env.Status = StatusIgnored
	}
	return env
}

func (d *Dispatcher) updaterUpdateFunctions(ctx context.Context, _ Params) (*Envelope, error) {
	res, err := d.svc.Updater.UpdateFunctions(ctx)
	if err != nil {
		return nil, err
	}
	if res.Status == updater.StatusOK {
		if _, err := d.svc.ReloadFunctions(); err != nil {
			d.svc.Log.Error("updater", "reload functions failed", "err", err)
		}
	}
	return updateEnvelope(res), nil
}

func (d *Dispatcher) updaterUpdateI18n(ctx context.Context, _ Params) (*Envelope, error) {
	res, err := d.svc.Updater.UpdateI18n(ctx)
	if err != nil {
		return nil, err
	}
	return updateEnvelope(res), nil
}

func (d *Dispatcher) updaterDownloadInstaller(ctx context.Context, p Params) (*Envelope, error) {
	version, err := p.Required("version")
	if err != nil {
		return nil, err
	}
	target, err := d.svc.Updater.DownloadWindowsInstaller(ctx, version)
	if err != nil {
		return nil, apperr.Tag(apperr.KindIO, err)
	}
	env := withContent(target)
	env.Message = "Installer downloaded"
	env.AddOutputPath(target)
	return env, nil
}

// httpDownloadFile fetches url into output_file, resuming a partial file
// when resume is true.
func (d *Dispatcher) httpDownloadFile(ctx context.Context, p Params) (*Envelope, error) {
	url, ok := p["url"].(string)
	if !ok {
		return nil, apperr.Param("`url` is required")
	}
	output, err := p.String("output_file", "output_path")
	if err != nil {
		return nil, err
	}
	resume, err := p.Bool("resume", false)
	if err != nil {
		return nil, err
	}
	var headers map[string]string
	if raw, ok := p.Object("headers"); ok {
		headers = make(map[string]string, len(raw))
		for k, v := range raw {
			s, _ := v.(string)
			headers[k] = s
		}
	}

	if err := ensureParentDir(output); err != nil {
		return nil, apperr.IO(err, "")
	}
	if err := d.svc.Downloader.Download(ctx, url, output, headers, resume); err != nil {
		return nil, apperr.Tag(apperr.KindIO, err)
	}
	env := withContent(output)
	env.Message = "File downloaded successfully"
	env.AddOutputPath(output)
	return env, nil
}

func (d *Dispatcher) zipUnzipFile(_ context.Context, p Params) (*Envelope, error) {
	input, err := p.String("input_file", "input_path")
	if err != nil {
		return nil, err
	}
	outputDir, err := p.String("output_dir")
	if err != nil {
		return nil, err
	}
	if err := archive.Unzip(input, outputDir); err != nil {
		return nil, apperr.Tag(apperr.KindIO, err)
	}
	env := withContent(outputDir)
	env.Message = "File unzipped successfully"
	env.AddOutputPath(outputDir)
	return env, nil
}
