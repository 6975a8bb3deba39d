package reconcile

import (
	"context"
	"fmt"
	"log"

	"github.com/patchops/suggestd/internal/remote"
)

// CreatePRError wraps a pull request creation failure that was not a
// duplicate race.
type CreatePRError struct {
	Head string
	Base string
	Err  error
}

func (e *CreatePRError) Error() string {
	return fmt.Sprintf("failed to create pull request %s -> %s: %v", e.Head, e.Base, e.Err)
}

func (e *CreatePRError) Unwrap() error { return e.Err }

// EnsurePR makes sure exactly one open pull request exists from head into
// base and returns it. An existing PR is returned as-is; a duplicate-create
// response (a concurrent creator won) resolves by re-listing, so two racing
// callers converge on the same PR number.
func EnsurePR(ctx context.Context, client remote.Client, head, base, title, body string) (*remote.PullRequest, error) {
	existing, err := client.ListOpenPRs(ctx, head, base)
	if err != nil {
		return nil, &CreatePRError{Head: head, Base: base, Err: err}
	}
	if len(existing) > 0 {
		return &existing[0], nil
	}

	pr, err := client.CreatePR(ctx, head, base, title, body)
	if err == nil {
		return pr, nil
	}
	if !remote.IsConflict(err) {
		return nil, &CreatePRError{Head: head, Base: base, Err: err}
	}

	// The host reported a duplicate: someone opened the PR between our list
	// and create. It must be visible now.
	log.Printf("[Reconcile] PR %s -> %s created concurrently, re-listing", head, base)
	existing, err = client.ListOpenPRs(ctx, head, base)
	if err != nil {
		return nil, &CreatePRError{Head: head, Base: base, Err: err}
	}
	if len(existing) == 0 {
		return nil, &CreatePRError{Head: head, Base: base, Err: fmt.Errorf("host reported duplicate but no open PR is visible")}
	}

	return &existing[0], nil
}
