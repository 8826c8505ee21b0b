package uploader

import (
	"github.com/docsup/docsup/internal/format"
	"golang.org/x/text/unicode/norm"
)

// localFile is an immutable snapshot of one file taken at visit time.
// The filesystem stays the source of truth; nothing is cached across
// traversal passes.
type localFile struct {
	path  string // absolute path
	title string // base name without extension, NFC-normalized
	size  int64
}

// newLocalFile snapshots a file. Titles are normalized to NFC so they
// compare byte-for-byte against remote titles regardless of how the
// local filesystem encodes composed characters.
func newLocalFile(path string, size int64) localFile {
	return localFile{
		path:  path,
		title: norm.NFC.String(format.BaseName(path)),
		size:  size,
	}
}

// Outcome is the per-file result of one upload attempt sequence.
type Outcome int

const (
	OutcomeUploaded Outcome = iota
	OutcomeUnsupportedFormat
	OutcomeOversize
	OutcomeSkippedByPolicy
	OutcomeRetriesExhausted
	OutcomePermanentError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUploaded:
		return "uploaded"
	case OutcomeUnsupportedFormat:
		return "skipped: unsupported format"
	case OutcomeOversize:
		return "skipped: oversize"
	case OutcomeSkippedByPolicy:
		return "skipped: by policy"
	case OutcomeRetriesExhausted:
		return "skipped: retries exhausted"
	case OutcomePermanentError:
		return "skipped: permanent error"
	}

	return "unknown"
}

// counter tracks the running [n/total] progress across the whole walk.
type counter struct {
	n     int
	total int
}
