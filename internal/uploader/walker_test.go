package uploader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/docsup/docsup/internal/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// testTree creates root/{f1.txt, sub/{f2.txt}} and returns the root.
func testTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1.txt"), []byte("one"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "f2.txt"), []byte("two"), 0o644))

	return dir
}

// --- Upload: directory walks ---

func TestUpload_RecursiveTree(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, out := testUploader(t, svc, Options{Recursive: true})

	dir := testTree(t)
	sub := folderEntry("fsub", "sub")

	svc.EXPECT().ListFolders(gomock.Any(), "").Return(nil, nil)
	svc.EXPECT().ListDocuments(gomock.Any(), "").Return(nil, nil)
	svc.EXPECT().ListFolders(gomock.Any(), "fsub").Return(nil, nil)
	svc.EXPECT().ListDocuments(gomock.Any(), "fsub").Return(nil, nil)

	// Files of a folder upload before the recursion into subfolders.
	gomock.InOrder(
		svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "f1.txt"), "f1", "").
			Return(&docs.Entry{ID: "d1"}, nil),
		svc.EXPECT().CreateFolder(gomock.Any(), "sub", "").Return(&sub, nil),
		svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "sub", "f2.txt"), "f2", "fsub").
			Return(&docs.Entry{ID: "d2"}, nil),
	)

	n, err := u.Upload(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), "[1/2] "+filepath.Join(dir, "f1.txt"))
	assert.Contains(t, out.String(), "[2/2] "+filepath.Join(dir, "sub", "f2.txt"))
	assert.Contains(t, out.String(), "Files uploaded: 2")
	assert.Contains(t, out.String(), "Uploading recursively the folder "+dir)
}

func TestUpload_NonRecursive_IgnoresSubdirs(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, out := testUploader(t, svc, Options{})

	dir := testTree(t)

	svc.EXPECT().ListDocuments(gomock.Any(), "").Return(nil, nil)
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "f1.txt"), "f1", "").
		Return(&docs.Entry{ID: "d1"}, nil)

	n, err := u.Upload(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "[1/1] ")
	assert.Contains(t, out.String(), "Files uploaded: 1")
}

func TestUpload_WithoutFolders_FlattensIntoTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, _ := testUploader(t, svc, Options{Recursive: true, WithoutFolders: true})

	dir := testTree(t)

	// One fresh document listing per directory entered, same target.
	svc.EXPECT().ListDocuments(gomock.Any(), "").Return(nil, nil).Times(2)
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "f1.txt"), "f1", "").
		Return(&docs.Entry{ID: "d1"}, nil)
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "sub", "f2.txt"), "f2", "").
		Return(&docs.Entry{ID: "d2"}, nil)

	n, err := u.Upload(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpload_ExistingRemoteSubfolderReused(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, _ := testUploader(t, svc, Options{Recursive: true})

	dir := testTree(t)
	sub := folderEntry("fsub", "sub")

	svc.EXPECT().ListFolders(gomock.Any(), "").Return([]docs.Entry{sub}, nil)
	svc.EXPECT().ListDocuments(gomock.Any(), "").Return(nil, nil)
	svc.EXPECT().ListFolders(gomock.Any(), "fsub").Return(nil, nil)
	svc.EXPECT().ListDocuments(gomock.Any(), "fsub").Return(nil, nil)
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "f1.txt"), "f1", "").
		Return(&docs.Entry{ID: "d1"}, nil)
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "sub", "f2.txt"), "f2", "fsub").
		Return(&docs.Entry{ID: "d2"}, nil)

	n, err := u.Upload(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUpload_SubfolderCreationFailure_FallsBackToCurrentTarget(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, out := testUploader(t, svc, Options{Recursive: true})

	dir := testTree(t)

	// The fallback target is the root, so the recursion into sub lists
	// the root's folders and documents a second time.
	svc.EXPECT().ListFolders(gomock.Any(), "").Return(nil, nil).Times(2)
	svc.EXPECT().ListDocuments(gomock.Any(), "").Return(nil, nil).Times(2)
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "f1.txt"), "f1", "").
		Return(&docs.Entry{ID: "d1"}, nil)
	svc.EXPECT().CreateFolder(gomock.Any(), "sub", "").
		Return(nil, &docs.CreationError{Name: "sub", Err: errors.New("quota exceeded")})
	// f2 degrades into the current (root) target.
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "sub", "f2.txt"), "f2", "").
		Return(&docs.Entry{ID: "d2"}, nil)

	n, err := u.Upload(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Contains(t, out.String(), "failed to create the folder, files will be uploaded to the upper-level folder")
}

func TestUpload_ReplaceAll_TrashPrecedesUpload(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, _ := testUploader(t, svc, Options{Policy: Policy{ReplaceAll: true}})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1.txt"), []byte("one"), 0o644))

	existing := docs.Entry{ID: "old1", Title: "f1", Type: docs.TypeDocument}
	svc.EXPECT().ListDocuments(gomock.Any(), "").Return([]docs.Entry{existing}, nil)

	gomock.InOrder(
		svc.EXPECT().TrashDocument(gomock.Any(), "old1").Return(nil),
		svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "f1.txt"), "f1", "").
			Return(&docs.Entry{ID: "new1"}, nil),
	)

	n, err := u.Upload(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// --- Upload: single file and errors ---

func TestUpload_SingleFileRoot(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, out := testUploader(t, svc, Options{})

	dir := t.TempDir()
	path := filepath.Join(dir, "report.txt")
	require.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

	svc.EXPECT().ListDocuments(gomock.Any(), "").Return(nil, nil)
	svc.EXPECT().UploadFile(gomock.Any(), path, "report", "").Return(&docs.Entry{ID: "d1"}, nil)

	n, err := u.Upload(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, out.String(), "The file has been uploaded")
}

func TestUpload_SingleFileRoot_SkippedFormat(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, out := testUploader(t, svc, Options{})

	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o644))

	svc.EXPECT().ListDocuments(gomock.Any(), "").Return(nil, nil)

	n, err := u.Upload(context.Background(), path, "")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.NotContains(t, out.String(), "The file has been uploaded")
}

func TestUpload_NonexistentPath_Fatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	u, _ := testUploader(t, NewMockService(ctrl), Options{})

	_, err := u.Upload(context.Background(), "/nonexistent/tree", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestUpload_RemoteRootPathResolved(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	u, _ := testUploader(t, svc, Options{})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "f1.txt"), []byte("one"), 0o644))

	dest := folderEntry("fdest", "Backups")
	svc.EXPECT().ListFolders(gomock.Any(), "").Return([]docs.Entry{dest}, nil)
	svc.EXPECT().ListFolders(gomock.Any(), "fdest").Return(nil, nil)
	svc.EXPECT().ListDocuments(gomock.Any(), "fdest").Return(nil, nil)
	svc.EXPECT().UploadFile(gomock.Any(), filepath.Join(dir, "f1.txt"), "f1", "fdest").
		Return(&docs.Entry{ID: "d1"}, nil)

	n, err := u.Upload(context.Background(), dir, "Backups")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// --- countFiles ---

func TestCountFiles(t *testing.T) {
	dir := testTree(t)

	n, err := countFiles(dir, true)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = countFiles(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
