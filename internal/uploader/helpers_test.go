package uploader

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/docsup/docsup/internal/docs"
)

// deciderFunc adapts a function to the DecisionProvider interface.
type deciderFunc func(path string, match docs.Entry) (Choice, error)

func (f deciderFunc) Decide(path string, match docs.Entry) (Choice, error) {
	return f(path, match)
}

// noPrompt is a DecisionProvider that fails the test when consulted,
// for cases where no interactive prompt must happen.
func noPrompt(t *testing.T) DecisionProvider {
	t.Helper()
	return deciderFunc(func(path string, match docs.Entry) (Choice, error) {
		t.Fatalf("unexpected conflict prompt for %s (match %q)", path, match.Title)
		return 0, nil
	})
}

// scripted returns a DecisionProvider that replays the given choices in
// order and fails the test if consulted more often.
func scripted(t *testing.T, choices ...Choice) DecisionProvider {
	t.Helper()
	i := 0
	return deciderFunc(func(path string, match docs.Entry) (Choice, error) {
		if i >= len(choices) {
			t.Fatalf("conflict prompt #%d for %s, but only %d answers scripted", i+1, path, len(choices))
		}
		c := choices[i]
		i++
		return c, nil
	})
}

// testUploader builds an Uploader over svc with output captured in the
// returned buffer.
func testUploader(t *testing.T, svc Service, opts Options) (*Uploader, *bytes.Buffer) {
	t.Helper()

	out := &bytes.Buffer{}
	opts.Out = out
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Decider == nil {
		opts.Decider = noPrompt(t)
	}

	return New(svc, opts), out
}
