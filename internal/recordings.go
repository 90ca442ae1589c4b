package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DownloadChunkSize is the buffer used when streaming a recording to disk
const DownloadChunkSize = 1 << 20

// RecordingStore lists and opens recordings in a remote folder
type RecordingStore interface {
	List(ctx context.Context, folderID, mimeType string) ([]Recording, error)
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// LatestRecording returns the most recently created recording matching mimeType.
// The store's ordering is not trusted; selection is by CreatedTime.
func LatestRecording(ctx context.Context, store RecordingStore, folderID, mimeType string) (*Recording, error) {
	recordings, err := store.List(ctx, folderID, mimeType)
	if err != nil {
		return nil, fmt.Errorf("listing recordings: %w", err)
	}
	if len(recordings) == 0 {
		return nil, fmt.Errorf("%w: no %s files in folder %s", ErrNotFound, mimeType, folderID)
	}

	latest := recordings[0]
	for _, rec := range recordings[1:] {
		if rec.CreatedTime.After(latest.CreatedTime) {
			latest = rec
		}
	}
	return &latest, nil
}

// DownloadRecording streams the recording to path, reporting progress in percent.
// The file at path is replaced only once the download completed.
func DownloadRecording(ctx context.Context, store RecordingStore, rec *Recording, path string, bar ProgressBar) (int64, error) {
	if err := EnsureDirs(filepath.Dir(path)); err != nil {
		return 0, fmt.Errorf("creating download directory: %w", err)
	}

	body, err := store.Open(ctx, rec.ID)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", rec.Name, err)
	}
	defer body.Close()

	partPath := path + ".part"
	file, err := os.Create(partPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", partPath, err)
	}

	written, err := copyWithProgress(ctx, file, body, rec.Size, bar)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing %s: %w", partPath, closeErr)
	}
	if err != nil {
		cleanupFiles(partPath)
		return written, fmt.Errorf("downloading %s: %w", rec.Name, err)
	}

	if err := os.Rename(partPath, path); err != nil {
		cleanupFiles(partPath)
		return written, fmt.Errorf("moving download into place: %w", err)
	}

	if bar != nil {
		bar.Set(100)
	}
	return written, nil
}

// copyWithProgress copies src to dst in DownloadChunkSize pieces
func copyWithProgress(ctx context.Context, dst io.Writer, src io.Reader, total int64, bar ProgressBar) (int64, error) {
	buf := make([]byte, DownloadChunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := io.ReadFull(src, buf)
		if n > 0 {
			if _, err := dst.Write(buf[:n]); err != nil {
				return written, err
			}
			written += int64(n)
			if bar != nil {
				bar.Set(progressPercent(written, total))
			}
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

// progressPercent returns done/total as a whole percentage capped at 100.
// An unknown total reports 0 until the download finishes.
func progressPercent(done, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(done * 100 / total)
	if pct > 100 {
		return 100
	}
	return pct
}
