// Package remote abstracts the hosting provider's file, ref, and pull
// request operations behind typed results and a closed error taxonomy.
// Callers never see host-specific error shapes; classification happens at
// the adapter boundary.
package remote

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories surfaced by a Client.
type ErrorKind string

const (
	KindNotFound    ErrorKind = "not_found"
	KindConflict    ErrorKind = "conflict"
	KindRateLimited ErrorKind = "rate_limited"
	KindAuth        ErrorKind = "auth"
	KindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether failures of this kind may succeed on a later
// attempt. NotFound is the only kind that never will: a missing base branch
// or file is a configuration problem, not a transient one.
func (k ErrorKind) Retryable() bool {
	return k != KindNotFound
}

// Error is a classified remote failure.
type Error struct {
	Kind ErrorKind
	Op   string // the client operation that failed, e.g. "get file"
	Err  error  // underlying host error, for logs only
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("remote %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("remote %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classified kind of err, or KindUnknown for errors that
// did not pass through a Client.
func KindOf(err error) ErrorKind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a classified NotFound failure.
func IsNotFound(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindNotFound
}

// IsConflict reports whether err is a classified Conflict failure. This
// covers both stale-revision file updates and duplicate-create responses.
func IsConflict(err error) bool {
	var re *Error
	return errors.As(err, &re) && re.Kind == KindConflict
}

// FileRef is a file snapshot plus its opaque revision token. The token
// changes on any remote write to the file and guards optimistic updates.
type FileRef struct {
	Path     string
	Content  string
	Revision string
}

// BranchRef is a named branch and its head revision.
type BranchRef struct {
	Name string
	Head string
}

// PullRequest identifies an open or closed pull request.
type PullRequest struct {
	Number int
	URL    string
	Head   string
	Base   string
	State  string
}

// Client is the remote repository surface the engine depends on. All
// implementations classify host failures into *Error values.
type Client interface {
	// GetFile fetches a file's content and revision token at ref.
	GetFile(ctx context.Context, path, ref string) (*FileRef, error)

	// GetBranch resolves a branch's head revision; NotFound when absent.
	GetBranch(ctx context.Context, name string) (*BranchRef, error)

	// CreateBranch creates a branch at fromRevision. created is false when
	// the branch already existed, which callers treat as success.
	CreateBranch(ctx context.Context, name, fromRevision string) (created bool, err error)

	// UpdateFile writes content to path on branch, guarded by
	// expectedRevision. A stale revision surfaces as a Conflict error.
	// Returns the new revision token.
	UpdateFile(ctx context.Context, path, content, message, branch, expectedRevision string) (string, error)

	// ListOpenPRs lists open pull requests from head into base.
	ListOpenPRs(ctx context.Context, head, base string) ([]PullRequest, error)

	// CreatePR opens a pull request. A duplicate open PR for the same
	// head/base surfaces as a Conflict error.
	CreatePR(ctx context.Context, head, base, title, body string) (*PullRequest, error)
}
