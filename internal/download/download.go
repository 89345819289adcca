// Package download streams HTTP resources to disk with optional resume.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"filethings/internal/apperr"
)

const chunkSize = 32 * 1024

// Logger is the subset of log.Logger used by the downloader.
type Logger interface {
	Printf(format string, v ...any)
}

type noopLogger struct{}

func (noopLogger) Printf(string, ...any) {}

// Downloader fetches URLs into files.
type Downloader struct {
	Client    *http.Client
	UserAgent string
	Logger    Logger
}

// New returns a Downloader. A zero timeout means no client-side deadline;
// callers bound the transfer with their context instead.
func New(timeout time.Duration, userAgent string, logger Logger) *Downloader {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Downloader{
		Client:    &http.Client{Timeout: timeout},
		UserAgent: userAgent,
		Logger:    logger,
	}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status string
	Code   int
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s. URL: %s", e.Status, e.URL)
}

// Download writes url to target. Without resume an existing target is
// replaced. With resume the request asks for the bytes past the current
// length and appends them; a 416 reply means the file is already complete.
// Partial files are left in place when the context is cancelled.
func (d *Downloader) Download(ctx context.Context, url, target string, headers map[string]string, resume bool) error {
	logger := d.logger()
	logger.Printf("Downloading file from %s to %s", url, target)

	var start int64
	info, err := os.Stat(target)
	switch {
	case err == nil && resume:
		start = info.Size()
	case err == nil:
		if err := os.Remove(target); err != nil {
			return apperr.IO(err, "remove existing file")
		}
	case !errors.Is(err, os.ErrNotExist):
		return apperr.IO(err, "stat %s", target)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return apperr.IO(err, "Failed to create parent directory")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindParam, err, "create request")
	}
	if d.UserAgent != "" {
		req.Header.Set("User-Agent", d.UserAgent)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if resume {
		req.Header.Set("Range", "bytes="+strconv.FormatInt(start, 10)+"-")
	}

	resp, err := d.client().Do(req)
	if err != nil {
		return apperr.IO(err, "download %s", url)
	}
	defer resp.Body.Close()

	if resume && resp.StatusCode == http.StatusRequestedRangeNotSatisfiable {
		logger.Printf("File already downloaded: %s", target)
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := &StatusError{Status: resp.Status, Code: resp.StatusCode, URL: url}
		if resp.StatusCode == http.StatusNotFound {
			return apperr.Wrap(apperr.KindNotFound, err, "")
		}
		return apperr.IO(err, "")
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resume && resp.StatusCode == http.StatusPartialContent {
		flags |= os.O_APPEND
	} else {
		// The server ignored the range; start over.
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(target, flags, 0o644)
	if err != nil {
		return apperr.IO(err, "open %s", target)
	}

	if err := copyChunks(file, resp.Body); err != nil {
		file.Close()
		return apperr.IO(err, "write %s", target)
	}
	if err := file.Close(); err != nil {
		return apperr.IO(err, "close %s", target)
	}
	logger.Printf("File downloaded to %s", target)
	return nil
}

// copyChunks writes each chunk and syncs it before reading the next.
func copyChunks(file *os.File, body io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return err
			}
			if err := file.Sync(); err != nil {
				return err
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

func (d *Downloader) client() *http.Client {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

func (d *Downloader) logger() Logger {
	if d.Logger == nil {
		return noopLogger{}
	}
	return d.Logger
}
