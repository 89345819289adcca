package shell

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"filethings/internal/apperr"
)

// ExecError reports a failed child process. Its message is the trimmed
// stderr, or the launch error when stderr is empty.
type ExecError struct {
	Command string
	Stderr  string
	Err     error
}

func (e *ExecError) Error() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s failed", e.Command)
}

func (e *ExecError) Unwrap() error { return e.Err }

// Exec runs command with args and returns the trimmed stdout.
func Exec(ctx context.Context, runner Runner, command string, args []string) (string, error) {
	if runner == nil {
		runner = CmdRunner{}
	}
	res, err := runner.Run(ctx, command, args, RunOptions{})
	if err != nil {
		return "", &ExecError{
			Command: command,
			Stderr:  strings.TrimSpace(string(res.Stderr)),
			Err:     err,
		}
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// FlattenArgs converts JSON-decoded arguments to strings. Nested arrays are
// flattened in order; numbers use their shortest decimal form.
func FlattenArgs(args []any) ([]string, error) {
	out := make([]string, 0, len(args))
	var walk func(v any) error
	walk = func(v any) error {
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, formatNumber(t))
		case json.Number:
			out = append(out, t.String())
		case int:
			out = append(out, strconv.Itoa(t))
		case int64:
			out = append(out, strconv.FormatInt(t, 10))
		case []any:
			for _, item := range t {
				if err := walk(item); err != nil {
					return err
				}
			}
		case []string:
			out = append(out, t...)
		default:
			raw, _ := json.Marshal(v)
			return apperr.Param("Invalid type of command argument: %s", raw)
		}
		return nil
	}
	for _, arg := range args {
		if err := walk(arg); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formatNumber(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
