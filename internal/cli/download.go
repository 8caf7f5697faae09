package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
)

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// SaveDownload copies body into dir/filename while drawing a progress bar
// on progress. size is -1 when unknown. A partial file is removed on
// failure.
func SaveDownload(ctx context.Context, progress io.Writer, body io.Reader, size int64, dir, filename string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, filename)

	f, err := os.Create(path) //nolint:gosec // path is built from the configured report dir
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	var bar *progressbar.ProgressBar
	if progress == nil || IsPlain() {
		bar = progressbar.DefaultBytesSilent(size)
	} else {
		bar = progressbar.NewOptions64(size,
			progressbar.OptionSetWriter(progress),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetDescription("보고서 다운로드"),
			progressbar.OptionClearOnFinish(),
		)
	}

	_, copyErr := io.Copy(io.MultiWriter(f, bar), ctxReader{ctx: ctx, r: body})
	closeErr := f.Close()
	_ = bar.Finish()

	if copyErr != nil || closeErr != nil {
		_ = os.Remove(path)
		if copyErr != nil {
			return "", fmt.Errorf("failed to save report: %w", copyErr)
		}
		return "", fmt.Errorf("failed to save report: %w", closeErr)
	}
	return path, nil
}
