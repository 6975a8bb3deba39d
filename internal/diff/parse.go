package diff

import (
	"regexp"
	"strconv"
	"strings"
)

// Hunk headers look like "@@ -12,3 +12,4 @@" with counts defaulting to 1
// when omitted ("@@ -12 +12 @@").
var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Parse parses unified-diff text into an ordered list of hunks. File headers
// ("--- a/...", "+++ b/...", "diff --git", "index ...") and "\ No newline at
// end of file" markers are tolerated and skipped. It returns a
// *MalformedPatchError if a hunk header is unparsable, a hunk contains no
// lines, or the patch contains no hunks at all.
func Parse(patch string) ([]Hunk, error) {
	lines := strings.Split(patch, "\n")

	var hunks []Hunk
	var cur *Hunk
	curStart := 0 // patch line number of the current hunk header

	flush := func() error {
		if cur == nil {
			return nil
		}
		if len(cur.Lines) == 0 {
			return &MalformedPatchError{Line: curStart, Reason: "hunk contains no lines"}
		}
		hunks = append(hunks, *cur)
		cur = nil
		return nil
	}

	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "@@"):
			if err := flush(); err != nil {
				return nil, err
			}
			m := hunkHeaderRe.FindStringSubmatch(line)
			if m == nil {
				return nil, &MalformedPatchError{Line: i + 1, Reason: "unparsable hunk header " + strconv.Quote(line)}
			}
			cur = &Hunk{
				OldStart: atoiDefault(m[1], 1),
				OldCount: atoiDefault(m[2], 1),
				NewStart: atoiDefault(m[3], 1),
				NewCount: atoiDefault(m[4], 1),
			}
			curStart = i + 1

		case cur == nil:
			// Preamble before the first hunk: git headers, index lines,
			// file headers. Nothing to do.

		case strings.HasPrefix(line, " "):
			cur.Lines = append(cur.Lines, Line{Op: OpContext, Text: line[1:]})
		case strings.HasPrefix(line, "+"):
			cur.Lines = append(cur.Lines, Line{Op: OpAdd, Text: line[1:]})
		case strings.HasPrefix(line, "-"):
			cur.Lines = append(cur.Lines, Line{Op: OpRemove, Text: line[1:]})
		case strings.HasPrefix(line, `\`):
			// "\ No newline at end of file"
		case line == "":
			// A bare empty line inside a hunk is an empty context line;
			// some generators drop the leading space. The final empty
			// element is usually the artifact of splitting a
			// newline-terminated patch, unless the header still declares
			// more lines than the hunk holds: then it is a real blank
			// context line ending a patch with no trailing newline.
			if i != len(lines)-1 || !hunkComplete(cur) {
				cur.Lines = append(cur.Lines, Line{Op: OpContext, Text: ""})
			}
		default:
			return nil, &MalformedPatchError{Line: i + 1, Reason: "unexpected line " + strconv.Quote(line) + " inside hunk"}
		}
	}

	if err := flush(); err != nil {
		return nil, err
	}
	if len(hunks) == 0 {
		return nil, &MalformedPatchError{Reason: "patch contains no hunks"}
	}

	return hunks, nil
}

// TargetFile extracts the target file path from a "+++ b/..." header, or
// returns "" if the patch carries no file header. The apply engine takes the
// path from the suggestion record; this is a consistency check for callers
// that want one.
func TargetFile(patch string) string {
	for _, line := range strings.Split(patch, "\n") {
		if strings.HasPrefix(line, "+++ b/") {
			return strings.TrimPrefix(line, "+++ b/")
		}
		if strings.HasPrefix(line, "+++ ") {
			return strings.TrimPrefix(line, "+++ ")
		}
	}
	return ""
}

// hunkComplete reports whether h already carries as many old and new lines
// as its header declares.
func hunkComplete(h *Hunk) bool {
	var oldN, newN int
	for _, ln := range h.Lines {
		switch ln.Op {
		case OpContext:
			oldN++
			newN++
		case OpRemove:
			oldN++
		case OpAdd:
			newN++
		}
	}
	return oldN >= h.OldCount && newN >= h.NewCount
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
