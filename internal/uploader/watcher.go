package uploader

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch keeps the mirror fresh after the initial pass: it monitors the
// tree rooted at root and pushes created or modified files through the
// same policy and retry pipeline, into the remote folder their
// directory maps to. It blocks until the context is cancelled.
func (u *Uploader) Watch(ctx context.Context, root, remotePath string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	defer watcher.Close()

	if err := addRecursive(watcher, abs); err != nil {
		return fmt.Errorf("adding %s to watcher: %w", root, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}

			u.handleEvent(ctx, watcher, abs, remotePath, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}
			// Non-fatal (e.g. too many watches); the affected paths
			// just stop being mirrored.
			u.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// handleEvent uploads the file behind a create/write event and keeps
// the watch set in step with directory churn.
func (u *Uploader) handleEvent(ctx context.Context, watcher *fsnotify.Watcher, root, remotePath string, event fsnotify.Event) {
	if shouldIgnore(event.Name) {
		return
	}

	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// Harmless if the path wasn't a watched directory.
		_ = watcher.Remove(event.Name)
		return
	}

	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	// New directory: start watching it so files created inside are
	// caught. Lstat so symlinks out of the tree are not followed.
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			_ = watcher.Add(event.Name)
			return
		}
	}

	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return
	}

	rel, err := filepath.Rel(root, event.Name)
	if err != nil {
		return
	}

	target := u.resolveFolderPath(ctx, joinRemote(remotePath, rel, u.withoutFolders))
	siblings := u.remoteDocuments(ctx, target)

	u.printf("%s\n", event.Name)
	u.uploadOne(ctx, newLocalFile(event.Name, info.Size()), target, siblings)
}

// joinRemote maps the directory of a changed file onto the remote
// namespace under remotePath.
func joinRemote(remotePath, rel string, withoutFolders bool) string {
	dir := filepath.ToSlash(filepath.Dir(rel))
	if withoutFolders || dir == "." {
		return remotePath
	}

	if remotePath == "" {
		return dir
	}

	return remotePath + "/" + dir
}

// addRecursive walks the tree and adds all non-hidden directories to
// the fsnotify watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if name := d.Name(); strings.HasPrefix(name, ".") && path != root {
			return filepath.SkipDir
		}

		return watcher.Add(path)
	})
}

// shouldIgnore filters hidden files and editor temp files out of the
// event stream.
func shouldIgnore(path string) bool {
	name := filepath.Base(path)

	if strings.HasPrefix(name, ".") {
		return true
	}

	return strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".swp")
}
