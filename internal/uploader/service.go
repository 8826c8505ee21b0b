package uploader

import (
	"context"

	"github.com/docsup/docsup/internal/docs"
)

//go:generate mockgen -source=service.go -destination=mock_service.go -package=uploader

// Service is the slice of the remote document store the uploader
// needs. An empty parentID addresses the root of the account's
// namespace. *docs.Client implements it.
type Service interface {
	// ListFolders returns the sub-folders of parent.
	ListFolders(ctx context.Context, parentID string) ([]docs.Entry, error)

	// ListDocuments returns the documents in parent, excluding folders.
	ListDocuments(ctx context.Context, parentID string) ([]docs.Entry, error)

	// CreateFolder creates a folder under parent.
	CreateFolder(ctx context.Context, title, parentID string) (*docs.Entry, error)

	// UploadFile transfers the file at localPath as a document titled
	// title. The call blocks until the transfer completes.
	UploadFile(ctx context.Context, localPath, title, parentID string) (*docs.Entry, error)

	// TrashDocument moves the document with the given id to the trash.
	TrashDocument(ctx context.Context, id string) error
}

// entryID returns the opaque identifier of a folder handle, or "" for
// the root. A nil handle is the root of the namespace, which is
// distinct from any actual top-level folder.
func entryID(e *docs.Entry) string {
	if e == nil {
		return ""
	}

	return e.ID
}
