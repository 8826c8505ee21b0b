package uploader

import (
	"context"
	"log/slog"
	"strings"

	"github.com/docsup/docsup/internal/docs"
	"golang.org/x/text/unicode/norm"
)

// resolveFolderPath maps a slash-separated remote path onto a chain of
// remote folders, creating missing segments on the way down. Empty
// segments are ignored; an empty path resolves to the root (nil).
//
// Folder creation failures are non-fatal: the failed segment resolves
// to nil and deeper segments carry on with root-parent semantics, so
// the walk can still upload into the best-resolved ancestor.
func (u *Uploader) resolveFolderPath(ctx context.Context, path string) *docs.Entry {
	if path == "" {
		return nil
	}

	var parent, current *docs.Entry
	siblings := u.remoteFolders(ctx, nil)

	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			continue
		}
		segment = norm.NFC.String(segment)

		current = findFolder(siblings, segment)
		if current == nil {
			created, err := u.svc.CreateFolder(ctx, segment, entryID(parent))
			if err != nil {
				u.logger.Warn("failed to create remote folder",
					slog.String("name", segment),
					slog.String("error", err.Error()),
				)
			} else {
				current = created
			}
		}

		siblings = u.remoteFolders(ctx, current)
		parent = current
	}

	return current
}

// remoteFolders lists the sub-folders of parent (root when nil),
// treating listing failures as an empty result. Listings are always
// fetched fresh; stale siblings would make duplicate detection act on
// folders another recursion branch just created.
func (u *Uploader) remoteFolders(ctx context.Context, parent *docs.Entry) []docs.Entry {
	entries, err := u.svc.ListFolders(ctx, entryID(parent))
	if err != nil {
		u.logger.Warn("failed to list remote folders",
			slog.String("parent", entryID(parent)),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return entries
}

// remoteDocuments lists the documents in parent (root when nil),
// treating listing failures as an empty result.
func (u *Uploader) remoteDocuments(ctx context.Context, parent *docs.Entry) []docs.Entry {
	entries, err := u.svc.ListDocuments(ctx, entryID(parent))
	if err != nil {
		u.logger.Warn("failed to list remote documents",
			slog.String("parent", entryID(parent)),
			slog.String("error", err.Error()),
		)
		return nil
	}

	return entries
}
