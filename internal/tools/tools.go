// Package tools checks whether registered external tools are usable.
package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"filethings/internal/functions"
	"filethings/internal/metrics"
	"filethings/internal/paths"
	"filethings/internal/shell"
)

// Logger is the subset of log.Logger used by the prober.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Prober verifies tool descriptors resolve to a working binary or an
// existing model file. Successful probes are remembered in the registry.
type Prober struct {
	Registry *functions.ToolRegistry
	Runner   shell.Runner
	Metrics  metrics.Metrics
	Logger   Logger
}

func (p *Prober) logger() Logger {
	if p.Logger == nil {
		return noopLogger{}
	}
	return p.Logger
}

func (p *Prober) metrics() metrics.Metrics {
	if p.Metrics == nil {
		return metrics.Noop{}
	}
	return p.Metrics
}

// CheckAvailable reports whether name is usable. Unknown names are simply
// unavailable; only lock failures are returned as errors.
func (p *Prober) CheckAvailable(ctx context.Context, name string) (bool, error) {
	tool, ok, err := p.Registry.Get(name)
	if err != nil {
		return false, err
	}
	if !ok {
		p.logger().Printf("Not found tool: %s in TOOL_FUNCTIONS", name)
		return false, nil
	}
	if tool.Available {
		return true, nil
	}

	binPath, err := p.Registry.BinPath(name)
	if err != nil {
		return false, nil
	}

	available, version := p.run(ctx, tool, binPath)
	p.metrics().IncToolProbe(name, available)
	if !available {
		return false, nil
	}
	if err := p.Registry.MarkAvailable(name, version); err != nil {
		return true, err
	}
	return true, nil
}

func (p *Prober) run(ctx context.Context, tool functions.ToolFunction, binPath string) (bool, string) {
	switch tool.FuncType {
	case functions.TypeToolModel:
		exists, _ := paths.FileExists(binPath)
		if !exists {
			exists, _ = paths.DirExists(binPath)
		}
		return exists, ""
	case functions.TypeToolExe:
		out, err := shell.Exec(ctx, p.Runner, binPath, tool.BinVersionArgs)
		if err != nil {
			p.logger().Printf("Tool %s probe failed: %v", tool.Name, err)
			return false, ""
		}
		return true, firstLine(out)
	default:
		return false, ""
	}
}

// Probe returns the full status of one tool, running the version check even
// when the tool was already marked available.
func (p *Prober) Probe(ctx context.Context, name string) (Status, error) {
	tool, ok, err := p.Registry.Get(name)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{Tool: name, Error: fmt.Sprintf("Tool `%s` not found.", name)}, nil
	}

	status := Status{
		Tool:    name,
		Type:    tool.FuncType,
		Path:    tool.BinPath,
		Minimum: tool.RequiredBinVersion.Min,
		Maximum: tool.RequiredBinVersion.Max,
	}
	available, version := p.run(ctx, tool, tool.BinPath)
	p.metrics().IncToolProbe(name, available)
	status.Available = available
	status.Version = version
	if !available {
		status.Error = "not available"
		return status, nil
	}
	if err := p.Registry.MarkAvailable(name, version); err != nil {
		return status, err
	}

	if tool.FuncType == functions.TypeToolModel {
		status.Satisfied = true
		return status, nil
	}
	normalized := normalizeVersion(version)
	status.Satisfied = meetsMinimum(normalized, status.Minimum) && meetsMaximum(normalized, status.Maximum)
	if !status.Satisfied {
		status.Error = fmt.Sprintf("version %s outside required range [%s, %s]", normalized, status.Minimum, status.Maximum)
	}
	return status, nil
}

// ProbeAll probes every registered tool, sorted by name. Each probe gets its
// own timeout so one hung binary cannot stall the rest.
func (p *Prober) ProbeAll(ctx context.Context, perTool time.Duration) ([]Status, error) {
	items, err := p.Registry.List()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	statuses := make([]Status, 0, len(names))
	for _, name := range names {
		probeCtx, cancel := context.WithTimeout(ctx, perTool)
		status, err := p.Probe(probeCtx, name)
		cancel()
		if err != nil {
			return statuses, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}
