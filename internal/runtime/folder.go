package runtime

import (
	"context"
	"os"

	"golang.org/x/sync/semaphore"

	perr "github.com/typhfeng/stk-sub000/pkg/errors"
)

// FolderSemaphore bounds the number of extracted temp folders allowed
// on disk at once (spec §5b): one permit per folder, acquired before
// extraction and released on the owning FolderToken's Close.
type FolderSemaphore struct {
	sem *semaphore.Weighted
}

// NewFolderSemaphore builds a semaphore with the configured permit
// count.
func NewFolderSemaphore(permits int64) *FolderSemaphore {
	return &FolderSemaphore{sem: semaphore.NewWeighted(permits)}
}

// FolderToken is a scoped, move-only resource token (spec §5's
// "resource discipline"): acquired at extraction start, released on
// Close with guaranteed filesystem removal even on failure. Copy a
// FolderToken only by reference (*FolderToken); calling Close more
// than once is a no-op.
type FolderToken struct {
	sem     *semaphore.Weighted
	path    string
	closed  bool
}

// Acquire blocks until a permit is available (or ctx is cancelled),
// then returns a token scoped to path.
func (s *FolderSemaphore) Acquire(ctx context.Context, path string) (*FolderToken, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, perr.Wrap(perr.ArchiveMissing, err, "folder semaphore acquire failed")
	}
	return &FolderToken{sem: s.sem, path: path}, nil
}

// Close releases the semaphore permit and removes the extracted
// folder from disk. Safe to call multiple times.
func (t *FolderToken) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	err := os.RemoveAll(t.path)
	t.sem.Release(1)
	if err != nil {
		return perr.Wrap(perr.ArchiveCorrupt, err, "failed to remove extracted folder").WithDetail("path", t.path)
	}
	return nil
}

// Path is the folder this token scopes.
func (t *FolderToken) Path() string { return t.path }
