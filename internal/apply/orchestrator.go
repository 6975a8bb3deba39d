// Package apply runs the per-suggestion state machine that turns a stored
// suggestion into a branch, a commit, and an open pull request against the
// remote host. Every step is idempotent or atomic, so re-invoking apply on a
// failed suggestion resumes correctly from the top.
package apply

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/patchops/suggestd/internal/concurrency"
	"github.com/patchops/suggestd/internal/diff"
	"github.com/patchops/suggestd/internal/reconcile"
	"github.com/patchops/suggestd/internal/remote"
	"github.com/patchops/suggestd/internal/suggestion"
)

// FailureKind labels why an apply run failed.
type FailureKind string

const (
	FailMalformedPatch FailureKind = "malformed_patch"
	FailPatch          FailureKind = "patch_error"
	FailBranch         FailureKind = "branch_error"
	FailCommit         FailureKind = "commit_error"
	FailCommitConflict FailureKind = "commit_conflict"
	FailPR             FailureKind = "pr_error"
)

// Result is the outcome of one apply run. Status is Applied or Failed;
// failures carry a kind, a message, and whether re-invoking apply may
// succeed without operator intervention.
type Result struct {
	ID        string            `json:"id"`
	Status    suggestion.Status `json:"status"`
	PRNumber  int               `json:"pr_number,omitempty"`
	PRURL     string            `json:"pr_url,omitempty"`
	Kind      FailureKind       `json:"kind,omitempty"`
	Message   string            `json:"message,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// ErrFileBusy is returned when another apply run is already working on the
// same file. The suggestion's status is left untouched.
var ErrFileBusy = errors.New("another apply is in progress for this file")

// Orchestrator composes the branch reconciler, file commit manager, and PR
// reconciler over a single suggestion store and remote client. It holds no
// per-suggestion state beyond the file locks: all other coordination goes
// through the store's CAS and the remote host's consistency primitives.
type Orchestrator struct {
	store      *suggestion.Store
	client     remote.Client
	baseBranch string
	locks      *concurrency.PathLocks
}

// New creates an orchestrator applying suggestions on top of baseBranch.
func New(store *suggestion.Store, client remote.Client, baseBranch string) *Orchestrator {
	return &Orchestrator{
		store:      store,
		client:     client,
		baseBranch: baseBranch,
		locks:      concurrency.NewPathLocks(),
	}
}

// BranchName is the deterministic branch for a suggestion. Repeating an
// apply always lands on the same branch, which is what makes branch and PR
// reconciliation repeatable.
func BranchName(id string) string {
	return "fix/" + id
}

// ApplySuggestion runs the apply state machine for one suggestion. The
// returned error is reserved for guard violations (unknown id, suggestion
// not in an appliable state, file locked by another run); failures of the
// apply itself come back as a
// Result with Status Failed and the suggestion moved to Failed in the store.
func (o *Orchestrator) ApplySuggestion(ctx context.Context, id string) (*Result, error) {
	sugg, err := o.store.Get(id)
	if err != nil {
		return nil, err
	}

	if !o.locks.TryAcquire(sugg.FilePath) {
		return nil, fmt.Errorf("%w: %s", ErrFileBusy, sugg.FilePath)
	}
	defer o.locks.Release(sugg.FilePath)

	if err := o.beginApply(id); err != nil {
		return nil, err
	}

	log.Printf("[Apply] Suggestion %s: applying patch for %s", id, sugg.FilePath)

	// Parse before touching the remote: a malformed patch can never apply,
	// whatever the remote state is.
	hunks, err := diff.Parse(sugg.Patch)
	if err != nil {
		return o.fail(id, FailMalformedPatch, false, err)
	}

	branch := BranchName(id)

	outcome, err := reconcile.EnsureBranch(ctx, o.client, branch, o.baseBranch)
	if err != nil {
		return o.fail(id, FailBranch, retryable(err), err)
	}
	log.Printf("[Apply] Suggestion %s: branch %s %s", id, branch, outcome)

	patchFn := func(content string) (string, error) {
		return diff.Apply(content, hunks)
	}
	rev, err := reconcile.Commit(ctx, o.client, sugg.FilePath, branch, "Apply suggestion "+id, patchFn)
	var mismatch *diff.ContextMismatchError
	switch {
	case err == nil:
		log.Printf("[Apply] Suggestion %s: committed %s at revision %s", id, sugg.FilePath, rev)
	case errors.As(err, &mismatch):
		// A mismatch on the suggestion branch can mean a previous run
		// already committed the patch and died before opening the PR. In
		// that case the branch holds exactly the patched base content and
		// the commit step is done; the PR reconciler finishes the job.
		if !o.patchAlreadyApplied(ctx, sugg.FilePath, branch, hunks) {
			return o.fail(id, FailPatch, false, err)
		}
		log.Printf("[Apply] Suggestion %s: patch already present on %s, skipping commit", id, branch)
	case errors.Is(err, reconcile.ErrCommitConflict):
		return o.fail(id, FailCommitConflict, true, err)
	default:
		return o.fail(id, FailCommit, retryable(err), err)
	}

	pr, err := reconcile.EnsurePR(ctx, o.client, branch, o.baseBranch,
		fmt.Sprintf("Fix: Suggestion %s", id), sugg.Message)
	if err != nil {
		return o.fail(id, FailPR, retryable(err), err)
	}

	if err := o.store.Update(id, suggestion.StatusApplying, suggestion.StatusApplied); err != nil {
		return nil, err
	}
	if err := o.store.SetResult(id, pr.Number, pr.URL, ""); err != nil {
		return nil, err
	}

	log.Printf("[Apply] Suggestion %s: applied, PR #%d %s", id, pr.Number, pr.URL)
	return &Result{ID: id, Status: suggestion.StatusApplied, PRNumber: pr.Number, PRURL: pr.URL}, nil
}

// RejectSuggestion marks a suggestion Rejected. Only Pending and Failed
// suggestions can be rejected, and no remote calls are made.
func (o *Orchestrator) RejectSuggestion(id string) error {
	err := o.store.Update(id, suggestion.StatusPending, suggestion.StatusRejected)
	if err == nil {
		log.Printf("[Apply] Suggestion %s: rejected", id)
		return nil
	}

	var statusErr *suggestion.StatusError
	if errors.As(err, &statusErr) && statusErr.Actual == suggestion.StatusFailed {
		if casErr := o.store.Update(id, suggestion.StatusFailed, suggestion.StatusRejected); casErr != nil {
			return casErr
		}
		log.Printf("[Apply] Suggestion %s: rejected after failure", id)
		return nil
	}
	return err
}

// patchAlreadyApplied reports whether the suggestion branch's copy of path
// is exactly the patched form of the base branch's copy. Any lookup or
// apply failure here answers false; the original mismatch is then the
// failure that gets reported.
func (o *Orchestrator) patchAlreadyApplied(ctx context.Context, path, branch string, hunks []diff.Hunk) bool {
	baseFile, err := o.client.GetFile(ctx, path, o.baseBranch)
	if err != nil {
		return false
	}
	want, err := diff.Apply(baseFile.Content, hunks)
	if err != nil {
		return false
	}
	cur, err := o.client.GetFile(ctx, path, branch)
	if err != nil {
		return false
	}
	return cur.Content == want
}

// beginApply claims the suggestion for this run via compare-and-set.
// Pending is the normal entry; Failed re-enters because a failed apply is
// always safe to re-run from the top.
func (o *Orchestrator) beginApply(id string) error {
	err := o.store.Update(id, suggestion.StatusPending, suggestion.StatusApplying)
	if err == nil {
		return nil
	}

	var statusErr *suggestion.StatusError
	if errors.As(err, &statusErr) && statusErr.Actual == suggestion.StatusFailed {
		return o.store.Update(id, suggestion.StatusFailed, suggestion.StatusApplying)
	}
	return err
}

// fail moves the suggestion to Failed and records the failure on it.
func (o *Orchestrator) fail(id string, kind FailureKind, canRetry bool, cause error) (*Result, error) {
	log.Printf("[Apply] Suggestion %s: failed (%s): %v", id, kind, cause)

	if err := o.store.Update(id, suggestion.StatusApplying, suggestion.StatusFailed); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("%s: %v", kind, cause)
	if err := o.store.SetResult(id, 0, "", msg); err != nil {
		return nil, err
	}

	return &Result{
		ID:        id,
		Status:    suggestion.StatusFailed,
		Kind:      kind,
		Message:   cause.Error(),
		Retryable: canRetry,
	}, nil
}

// retryable preserves the remote taxonomy's retryable category for failures
// that passed through the client. ErrNoSuchBase is a configuration problem
// and never retryable.
func retryable(err error) bool {
	if errors.Is(err, reconcile.ErrNoSuchBase) {
		return false
	}
	return remote.KindOf(err).Retryable()
}
