// Package format decides which local files are eligible for upload:
// the supported extension set, the extension-to-category mapping and
// the per-category size ceilings. All functions are pure.
package format

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/docsup/docsup/internal/docs"
)

// categories maps a lowercased file extension to the document category
// it converts to. Extensions not listed here are not supported.
var categories = map[string]string{
	"doc":  docs.TypeDocument,
	"docx": docs.TypeDocument,
	"htm":  docs.TypeDocument,
	"html": docs.TypeDocument,
	"odt":  docs.TypeDocument,
	"rtf":  docs.TypeDocument,
	"sxw":  docs.TypeDocument,
	"txt":  docs.TypeDocument,

	"csv":  docs.TypeSpreadsheet,
	"ods":  docs.TypeSpreadsheet,
	"tab":  docs.TypeSpreadsheet,
	"tsv":  docs.TypeSpreadsheet,
	"xls":  docs.TypeSpreadsheet,
	"xlsx": docs.TypeSpreadsheet,

	"pps": docs.TypePresentation,
	"ppt": docs.TypePresentation,

	"pdf": docs.TypePDF,
}

// sizeLimits is the maximum byte size the service accepts per category.
// Categories without an entry have no ceiling.
var sizeLimits = map[string]int64{
	docs.TypeDocument:     500_000,
	docs.TypeSpreadsheet:  1_000_000,
	docs.TypePresentation: 10_000_000,
	docs.TypePDF:          10_000_000,
}

// Ext returns the lowercased extension of name without the leading dot.
func Ext(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// BaseName returns the file name without directory and extension. This
// is the title the document gets remotely.
func BaseName(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsSupported reports whether the file's extension belongs to the
// supported set. The check is case-insensitive.
func IsSupported(name string) bool {
	_, ok := categories[Ext(name)]
	return ok
}

// Classify returns the document category for the file, or the empty
// string when the extension is not mapped.
func Classify(name string) string {
	return categories[Ext(name)]
}

// WithinSizeLimit reports whether size does not exceed the ceiling for
// the file's category. Files whose category has no ceiling are always
// within limits.
func WithinSizeLimit(name string, size int64) bool {
	limit, ok := sizeLimits[Classify(name)]
	if !ok {
		return true
	}

	return size <= limit
}

// Supported returns the supported extensions in sorted order, for help
// and welcome text.
func Supported() []string {
	exts := make([]string, 0, len(categories))
	for ext := range categories {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	return exts
}
