package docs

// Document type tags used by the feed. Everything that is not a folder
// is a document of some category.
const (
	TypeFolder       = "folder"
	TypeDocument     = "document"
	TypeSpreadsheet  = "spreadsheet"
	TypePresentation = "presentation"
	TypePDF          = "pdf"
)

// Entry is one item in the document feed: a folder or a document.
// ID is opaque and only meaningful to the service.
type Entry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

// IsFolder reports whether the entry is a folder rather than a document.
func (e Entry) IsFolder() bool { return e.Type == TypeFolder }

// SigninRequest carries account credentials.
type SigninRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SigninResponse carries the session token issued for valid credentials.
type SigninResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type listResponse struct {
	Entries []Entry `json:"entries"`
}

type createFolderRequest struct {
	Title  string `json:"title"`
	Parent string `json:"parent,omitempty"`
}

type trashRequest struct {
	ID string `json:"id"`
}

// APIError is the error envelope the feed returns in response bodies.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
