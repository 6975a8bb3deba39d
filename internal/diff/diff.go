// Package diff parses single-file unified diffs and applies them to original
// file content with exact context matching. Exact matching is deliberate: an
// automated apply path must never silently diverge from the proposed change,
// so there is no fuzzy or offset-search fallback.
package diff

import "fmt"

// LineOp tags a hunk line as context, addition, or removal.
type LineOp int

const (
	OpContext LineOp = iota
	OpAdd
	OpRemove
)

// Line is a single line within a hunk.
type Line struct {
	Op   LineOp
	Text string
}

// Hunk is one contiguous change block with its old/new line ranges.
type Hunk struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
	Lines    []Line
}

// MalformedPatchError reports a patch that cannot be parsed.
type MalformedPatchError struct {
	Line   int // 1-based line number in the patch text, 0 if not tied to a line
	Reason string
}

func (e *MalformedPatchError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed patch at line %d: %s", e.Line, e.Reason)
	}
	return fmt.Sprintf("malformed patch: %s", e.Reason)
}

// ContextMismatchError reports that a hunk's context or removal lines did not
// match the original content exactly. HunkIndex is the 0-based index of the
// failing hunk.
type ContextMismatchError struct {
	HunkIndex int
}

func (e *ContextMismatchError) Error() string {
	return fmt.Sprintf("hunk %d does not match original content", e.HunkIndex)
}
