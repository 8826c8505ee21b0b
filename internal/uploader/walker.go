// Package uploader implements the recursive folder-synchronization
// engine: it walks a local tree depth-first, maps it onto the remote
// folder namespace, resolves duplicate-name conflicts against the
// documents already uploaded, and transfers files with bounded retries.
package uploader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docsup/docsup/internal/docs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
)

const defaultMaxAttempts = 3

// Options configures an Uploader.
type Options struct {
	// Recursive enables descending into subdirectories.
	Recursive bool

	// WithoutFolders suppresses recreating the local folder structure
	// remotely; every file in the subtree uploads into the root target.
	WithoutFolders bool

	// DisableRetries reduces the per-file attempt budget from 3 to 1.
	DisableRetries bool

	// MarkReadOnly marks local directories read-only as they are
	// visited, guarding against concurrent local modification during a
	// long traversal. Best-effort.
	MarkReadOnly bool

	// Policy presets the sticky conflict flags (--add-all and friends).
	Policy Policy

	// Decider answers duplicate prompts. Defaults to a console prompter
	// reading stdin.
	Decider DecisionProvider

	// Out receives the human-readable progress lines. Defaults to stdout.
	Out io.Writer

	// Logger receives diagnostics. Defaults to a discarding logger.
	Logger *slog.Logger
}

// Uploader walks a local tree and mirrors it into the remote store.
// The sticky conflict policy lives for the lifetime of one Uploader;
// create a fresh one per run.
type Uploader struct {
	svc     Service
	policy  Policy
	decider DecisionProvider
	out     io.Writer
	logger  *slog.Logger

	maxAttempts    int
	recursive      bool
	withoutFolders bool
	markReadOnly   bool
}

// New creates an Uploader over the given remote service.
func New(svc Service, opts Options) *Uploader {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	decider := opts.Decider
	if decider == nil {
		decider = NewConsolePrompter(os.Stdin, out)
	}

	maxAttempts := defaultMaxAttempts
	if opts.DisableRetries {
		maxAttempts = 1
	}

	return &Uploader{
		svc:            svc,
		policy:         opts.Policy,
		decider:        decider,
		out:            out,
		logger:         logger,
		maxAttempts:    maxAttempts,
		recursive:      opts.Recursive,
		withoutFolders: opts.WithoutFolders,
		markReadOnly:   opts.MarkReadOnly,
	}
}

func (u *Uploader) printf(format string, args ...interface{}) {
	fmt.Fprintf(u.out, format, args...)
}

// Upload mirrors the tree rooted at path into the remote namespace at
// remotePath ("" for the account root) and returns the number of
// successfully uploaded files. A nonexistent path is the one local
// condition treated as fatal.
func (u *Uploader) Upload(ctx context.Context, path, remotePath string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("specified path %s doesn't exist", path)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	if !info.IsDir() {
		return u.uploadSingle(ctx, abs, info.Size(), remotePath)
	}

	header := "\nUploading"
	if u.recursive {
		header += " recursively"
	}
	header += " the folder " + path
	if remotePath != "" {
		header += " to " + remotePath
	}
	u.printf("%s\n\n", header)

	// The remote-root resolution is network-bound and the pre-count is
	// disk-bound; overlap them. The walk itself stays single-threaded.
	var (
		target *docs.Entry
		total  int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		target = u.resolveFolderPath(gctx, remotePath)
		return nil
	})
	g.Go(func() error {
		var err error
		total, err = countFiles(abs, u.recursive)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, fmt.Errorf("scanning %s: %w", path, err)
	}

	uploaded := u.uploadFolder(ctx, abs, target, &counter{total: total})
	u.printf("\nFiles uploaded: %d\n", uploaded)

	return uploaded, nil
}

// uploadSingle handles a root path that is a file rather than a
// directory: a one-file walk.
func (u *Uploader) uploadSingle(ctx context.Context, abs string, size int64, remotePath string) (int, error) {
	u.printf("\n%s\n", abs)

	target := u.resolveFolderPath(ctx, remotePath)
	siblings := u.remoteDocuments(ctx, target)

	if u.uploadOne(ctx, newLocalFile(abs, size), target, siblings) != OutcomeUploaded {
		return 0, nil
	}

	u.printf("\nThe file has been uploaded\n")

	return 1, nil
}

// uploadFolder uploads the files of one local directory into target,
// then recurses into its subdirectories. Remote listings are fetched
// fresh on every entry so sibling branches never act on stale state.
// Returns the number of uploads in the subtree.
func (u *Uploader) uploadFolder(ctx context.Context, dir string, target *docs.Entry, c *counter) int {
	if ctx.Err() != nil {
		return 0
	}

	if u.markReadOnly {
		if err := os.Chmod(dir, 0o555); err != nil {
			u.logger.Debug("failed to mark directory read-only",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		u.logger.Warn("failed to read directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return 0
	}

	var subFolders []docs.Entry
	if u.recursive && !u.withoutFolders {
		subFolders = u.remoteFolders(ctx, target)
	}
	siblings := u.remoteDocuments(ctx, target)

	uploaded := 0
	for _, entry := range entries {
		if entry.IsDir() || ctx.Err() != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			u.logger.Warn("failed to stat file",
				slog.String("path", filepath.Join(dir, entry.Name())),
				slog.String("error", err.Error()),
			)
			continue
		}

		c.n++
		abs := filepath.Join(dir, entry.Name())
		u.printf("[%d/%d] %s\n", c.n, c.total, abs)

		if u.uploadOne(ctx, newLocalFile(abs, info.Size()), target, siblings) == OutcomeUploaded {
			uploaded++
		}
	}

	if !u.recursive {
		return uploaded
	}

	for _, entry := range entries {
		if !entry.IsDir() || ctx.Err() != nil {
			continue
		}

		child := target
		if !u.withoutFolders {
			child = u.resolveSubFolder(ctx, entry.Name(), target, subFolders)
		}

		uploaded += u.uploadFolder(ctx, filepath.Join(dir, entry.Name()), child, c)
	}

	return uploaded
}

// resolveSubFolder finds or creates the remote folder mirroring a local
// subdirectory. On creation failure the current target is returned so
// the subtree still uploads into the best-resolved ancestor.
func (u *Uploader) resolveSubFolder(ctx context.Context, name string, target *docs.Entry, subFolders []docs.Entry) *docs.Entry {
	title := norm.NFC.String(name)

	if existing := findFolder(subFolders, title); existing != nil {
		return existing
	}

	created, err := u.svc.CreateFolder(ctx, title, entryID(target))
	if err != nil {
		u.printf(" - Skipped: failed to create the folder, files will be uploaded to the upper-level folder\n")
		u.logger.Warn("failed to create remote folder",
			slog.String("name", title),
			slog.String("error", err.Error()),
		)
		return target
	}

	return created
}

// countFiles pre-computes the [n/total] denominator before the walk
// starts. Non-recursive runs count only the top-level files.
func countFiles(dir string, recursive bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
			continue
		}
		if recursive {
			n, err := countFiles(filepath.Join(dir, entry.Name()), recursive)
			if err != nil {
				return 0, err
			}
			count += n
		}
	}

	return count, nil
}
