// Package reconcile drives remote branch, file, and pull request state
// toward a desired state idempotently. "Already in the desired state" is
// success, never failure, so every operation here is safe to re-run after a
// partial failure and safe to race against a concurrent caller.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/patchops/suggestd/internal/remote"
)

// BranchOutcome says how EnsureBranch reached the desired state.
type BranchOutcome int

const (
	BranchExisting BranchOutcome = iota
	BranchCreated
)

func (o BranchOutcome) String() string {
	if o == BranchCreated {
		return "created"
	}
	return "existing"
}

// ErrNoSuchBase indicates the base branch the new branch should fork from
// does not exist. That is a configuration problem, not a transient one.
var ErrNoSuchBase = errors.New("base branch does not exist")

// EnsureBranch makes sure a branch named name exists, forked from base.
// Losing a creation race to a concurrent caller counts as BranchExisting:
// the branch name is a deterministic function of its suggestion, so whoever
// created it built the same thing.
func EnsureBranch(ctx context.Context, client remote.Client, name, base string) (BranchOutcome, error) {
	if _, err := client.GetBranch(ctx, name); err == nil {
		return BranchExisting, nil
	} else if !remote.IsNotFound(err) {
		return BranchExisting, fmt.Errorf("failed to look up branch %s: %w", name, err)
	}

	baseRef, err := client.GetBranch(ctx, base)
	if err != nil {
		if remote.IsNotFound(err) {
			return BranchExisting, fmt.Errorf("%w: %s", ErrNoSuchBase, base)
		}
		return BranchExisting, fmt.Errorf("failed to resolve base branch %s: %w", base, err)
	}

	created, err := client.CreateBranch(ctx, name, baseRef.Head)
	if err != nil {
		return BranchExisting, fmt.Errorf("failed to create branch %s: %w", name, err)
	}
	if !created {
		// Concurrent caller won the race between our lookup and create.
		log.Printf("[Reconcile] Branch %s appeared concurrently, treating as existing", name)
		return BranchExisting, nil
	}

	return BranchCreated, nil
}
