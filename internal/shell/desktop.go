package shell

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var goos = runtime.GOOS

// Trash moves path to the OS recycle bin.
func Trash(ctx context.Context, runner Runner, path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	switch goos {
	case "darwin":
		script := `tell application "Finder" to delete POSIX file "` + escapeAppleScript(abs) + `"`
		_, err = Exec(ctx, runner, "osascript", []string{"-e", script})
	case "windows":
		method := "DeleteFile"
		if info, statErr := os.Stat(abs); statErr == nil && info.IsDir() {
			method = "DeleteDirectory"
		}
		ps := "Add-Type -AssemblyName Microsoft.VisualBasic; " +
			"[Microsoft.VisualBasic.FileIO.FileSystem]::" + method +
			"('" + strings.ReplaceAll(abs, "'", "''") + "', 'OnlyErrorDialogs', 'SendToRecycleBin')"
		_, err = Exec(ctx, runner, "powershell", []string{"-NoProfile", "-NonInteractive", "-Command", ps})
	default:
		_, err = Exec(ctx, runner, "gio", []string{"trash", abs})
	}
	return err
}

// Reveal shows path in the platform file manager.
func Reveal(ctx context.Context, runner Runner, path string) error {
	switch goos {
	case "darwin":
		_, err := Exec(ctx, runner, "open", []string{"-R", path})
		return err
	case "windows":
		// explorer exits non-zero even when it succeeds.
		_, _ = Exec(ctx, runner, "explorer", []string{"/select," + path})
		return nil
	default:
		dir := path
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			dir = filepath.Dir(path)
		}
		_, err := Exec(ctx, runner, "xdg-open", []string{dir})
		return err
	}
}

// OpenURL opens url with the default handler and returns the launcher output.
func OpenURL(ctx context.Context, runner Runner, url string) (string, error) {
	switch goos {
	case "darwin":
		return Exec(ctx, runner, "open", []string{url})
	case "windows":
		return Exec(ctx, runner, "rundll32", []string{"url.dll,FileProtocolHandler", url})
	default:
		return Exec(ctx, runner, "xdg-open", []string{url})
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
