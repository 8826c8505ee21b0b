package uploader

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/docsup/docsup/internal/docs"
	"github.com/docsup/docsup/internal/format"
)

// Decision is what happens to a file after duplicate resolution.
type Decision int

const (
	DecisionAdd Decision = iota
	DecisionSkip
	DecisionReplace
)

// Choice is one answer to the duplicate prompt. The -all variants set
// the corresponding sticky flag for the remainder of the run.
type Choice int

const (
	ChoiceAdd Choice = iota
	ChoiceSkip
	ChoiceReplace
	ChoiceAddAll
	ChoiceSkipAll
	ChoiceReplaceAll
)

// Policy holds the session-wide sticky conflict overrides. Each flag is
// set at most once and never unset within a run.
type Policy struct {
	AddAll     bool
	SkipAll    bool
	ReplaceAll bool
}

// DecisionProvider supplies an answer for one duplicate. The console
// implementation blocks on operator input; tests inject a scripted one.
type DecisionProvider interface {
	Decide(path string, match docs.Entry) (Choice, error)
}

// ConsolePrompter asks the operator on a terminal what to do with a
// duplicate. Invalid input re-prompts indefinitely.
type ConsolePrompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

func (p *ConsolePrompter) Decide(path string, match docs.Entry) (Choice, error) {
	fmt.Fprintln(p.out, " - A document with the same name and type already exists")

	for {
		fmt.Fprint(p.out, " - add (a) / skip (s) / replace (r) / add all (aa) / skip all (sa) / replace all (ra): ")

		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.EOF
		}

		switch strings.TrimSpace(p.scanner.Text()) {
		case "a":
			return ChoiceAdd, nil
		case "s":
			return ChoiceSkip, nil
		case "r":
			return ChoiceReplace, nil
		case "aa":
			return ChoiceAddAll, nil
		case "sa":
			return ChoiceSkipAll, nil
		case "ra":
			return ChoiceReplaceAll, nil
		}
	}
}

// resolveConflict decides whether file is added, skipped or replaces an
// existing remote document. A duplicate is a sibling whose title equals
// the file's title and whose type equals the file's category; the match
// is exact and case-sensitive. On Replace the existing document is
// trashed here, before the upload, so the transfer is a fresh create.
func (u *Uploader) resolveConflict(ctx context.Context, file localFile, siblings []docs.Entry) (Decision, error) {
	match := findMatch(siblings, file.title, format.Classify(file.path))
	if match == nil {
		return DecisionAdd, nil
	}

	// AddAll deliberately creates a second copy next to the existing
	// document; the service allows duplicate titles.
	switch {
	case u.policy.AddAll:
		return DecisionAdd, nil
	case u.policy.SkipAll:
		return DecisionSkip, nil
	case u.policy.ReplaceAll:
		u.trash(ctx, match)
		return DecisionReplace, nil
	}

	choice, err := u.decider.Decide(file.path, *match)
	if err != nil {
		return DecisionSkip, fmt.Errorf("reading conflict decision: %w", err)
	}

	switch choice {
	case ChoiceAddAll:
		u.policy.AddAll = true
		return DecisionAdd, nil
	case ChoiceSkip:
		return DecisionSkip, nil
	case ChoiceSkipAll:
		u.policy.SkipAll = true
		return DecisionSkip, nil
	case ChoiceReplaceAll:
		u.policy.ReplaceAll = true
		fallthrough
	case ChoiceReplace:
		u.trash(ctx, match)
		return DecisionReplace, nil
	}

	return DecisionAdd, nil
}

// trash moves a document being replaced to the trash. Failure is
// best-effort: the subsequent upload proceeds either way.
func (u *Uploader) trash(ctx context.Context, match *docs.Entry) {
	if err := u.svc.TrashDocument(ctx, match.ID); err != nil {
		u.logger.Warn("failed to trash existing document",
			slog.String("title", match.Title),
			slog.String("id", match.ID),
			slog.String("error", err.Error()),
		)
	}
}

// findMatch returns the first sibling with the given title and type.
func findMatch(siblings []docs.Entry, title, docType string) *docs.Entry {
	for i := range siblings {
		if siblings[i].Title == title && siblings[i].Type == docType {
			return &siblings[i]
		}
	}

	return nil
}

// findFolder returns the first folder-typed entry with the given title.
func findFolder(entries []docs.Entry, title string) *docs.Entry {
	return findMatch(entries, title, docs.TypeFolder)
}
