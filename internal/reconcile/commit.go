package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/patchops/suggestd/internal/diff"
	"github.com/patchops/suggestd/internal/remote"
)

// commitAttempts bounds the fetch-patch-write loop. One retry is enough:
// the retry works on freshly fetched content, so a second conflict means
// the file is being actively contended and the caller should decide.
const commitAttempts = 2

// ErrCommitConflict indicates the file changed underneath us on every
// attempt. The commit made no partial write; re-invoking apply later is
// safe.
var ErrCommitConflict = errors.New("file changed concurrently, commit conflict")

// PatchFunc transforms file content. It must be pure: the commit loop may
// call it once per attempt against different snapshots of the file.
type PatchFunc func(content string) (string, error)

// Commit applies patchFn to the freshest content of path on branch and
// writes the result guarded by the fetched revision token. A stale token is
// retried once against re-fetched content; a *diff.ContextMismatchError from
// patchFn aborts immediately since re-reading the same content cannot fix
// it. Returns the new revision token.
func Commit(ctx context.Context, client remote.Client, path, branch, message string, patchFn PatchFunc) (string, error) {
	for attempt := 1; attempt <= commitAttempts; attempt++ {
		file, err := client.GetFile(ctx, path, branch)
		if err != nil {
			return "", fmt.Errorf("failed to fetch %s@%s: %w", path, branch, err)
		}

		patched, err := patchFn(file.Content)
		if err != nil {
			var mismatch *diff.ContextMismatchError
			if errors.As(err, &mismatch) {
				return "", err
			}
			return "", fmt.Errorf("patch function failed for %s: %w", path, err)
		}

		newRev, err := client.UpdateFile(ctx, path, patched, message, branch, file.Revision)
		if err == nil {
			return newRev, nil
		}
		if !remote.IsConflict(err) {
			return "", fmt.Errorf("failed to update %s on %s: %w", path, branch, err)
		}

		log.Printf("[Reconcile] Revision %s of %s went stale on attempt %d/%d", file.Revision, path, attempt, commitAttempts)
	}

	return "", ErrCommitConflict
}
