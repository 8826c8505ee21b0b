package uploader

import (
	"context"
	"log/slog"

	"github.com/docsup/docsup/internal/docs"
	"github.com/docsup/docsup/internal/format"
)

// uploadOne runs the full per-file pipeline: format policy, size
// policy, conflict resolution, then the transfer with retries. Every
// failure is converted into an Outcome; nothing a single file does can
// abort the enclosing traversal.
func (u *Uploader) uploadOne(ctx context.Context, file localFile, target *docs.Entry, siblings []docs.Entry) Outcome {
	if !format.IsSupported(file.path) {
		u.printf(" - Skipped: the file format is not supported\n")
		return OutcomeUnsupportedFormat
	}

	if !format.WithinSizeLimit(file.path, file.size) {
		u.printf(" - Skipped: the file size exceeds the limit\n")
		return OutcomeOversize
	}

	decision, err := u.resolveConflict(ctx, file, siblings)
	if err != nil {
		u.logger.Warn("conflict resolution failed",
			slog.String("path", file.path),
			slog.String("error", err.Error()),
		)
		u.printf(" - Skipped\n")
		return OutcomeSkippedByPolicy
	}

	if decision == DecisionSkip {
		u.printf(" - Skipped\n")
		return OutcomeSkippedByPolicy
	}

	return u.transfer(ctx, file, target)
}

// transfer issues the upload with a bounded number of attempts.
// Permanently rejected content aborts immediately; any other failure
// retries right away until the attempt budget runs out. A retry never
// re-lists remote state; it re-sends the same file as-is.
func (u *Uploader) transfer(ctx context.Context, file localFile, target *docs.Entry) Outcome {
	for attempt := 1; ; attempt++ {
		_, err := u.svc.UploadFile(ctx, file.path, file.title, entryID(target))
		if err == nil {
			return OutcomeUploaded
		}

		if docs.IsInvalidEntry(err) {
			u.printf(" - Skipped: %s\n", err)
			return OutcomePermanentError
		}

		u.printf(" - Upload error: %s\n", err)
		u.logger.Warn("upload attempt failed",
			slog.String("path", file.path),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt >= u.maxAttempts || ctx.Err() != nil {
			u.printf(" - Skipped\n")
			return OutcomeRetriesExhausted
		}

		u.printf(" - Another try...\n")
	}
}
