package diff

import "strings"

// Apply applies hunks to the original content and returns the patched text.
// Context and removal lines must match the original exactly; on any mismatch
// it returns a *ContextMismatchError and no partial output. The operation is
// all-or-nothing and deterministic for identical inputs.
func Apply(original string, hunks []Hunk) (string, error) {
	orig := strings.Split(original, "\n")
	out := make([]string, 0, len(orig))
	cursor := 0 // index into orig of the next unconsumed line

	for i, h := range hunks {
		start := h.OldStart - 1
		if h.OldCount == 0 {
			// An empty old range ("-N,0", the insertion-only form) anchors
			// after line N, not at it: new lines land between N and N+1,
			// and "-0,0" prepends to the file.
			start = h.OldStart
		} else if h.OldStart < 1 {
			return "", &ContextMismatchError{HunkIndex: i}
		}
		if start < cursor || start > len(orig) {
			return "", &ContextMismatchError{HunkIndex: i}
		}

		// Unchanged lines between the previous hunk and this one.
		out = append(out, orig[cursor:start]...)
		cursor = start

		for _, ln := range h.Lines {
			switch ln.Op {
			case OpContext, OpRemove:
				if cursor >= len(orig) || orig[cursor] != ln.Text {
					return "", &ContextMismatchError{HunkIndex: i}
				}
				if ln.Op == OpContext {
					out = append(out, ln.Text)
				}
				cursor++
			case OpAdd:
				out = append(out, ln.Text)
			}
		}
	}

	out = append(out, orig[cursor:]...)
	return strings.Join(out, "\n"), nil
}

// ApplyPatch parses and applies patch text in one step.
func ApplyPatch(original, patch string) (string, error) {
	hunks, err := Parse(patch)
	if err != nil {
		return "", err
	}
	return Apply(original, hunks)
}
