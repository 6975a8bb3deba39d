package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/patchops/suggestd/internal/remote"
)

func TestEnsureBranch_ExistingBranchShortCircuits(t *testing.T) {
	fake := remote.NewFakeClient()

	outcome, err := EnsureBranch(context.Background(), fake, "fix/abc", "main")
	if err != nil {
		t.Fatalf("EnsureBranch returned error: %v", err)
	}
	if outcome != BranchExisting {
		t.Fatalf("outcome = %s, want existing", outcome)
	}
	if len(fake.CreateBranchCalls) != 0 {
		t.Fatalf("CreateBranch called %d times, want 0", len(fake.CreateBranchCalls))
	}
}

func TestEnsureBranch_CreatesFromBaseHead(t *testing.T) {
	fake := remote.NewFakeClient()
	fake.GetBranchFunc = func(ctx context.Context, name string) (*remote.BranchRef, error) {
		if name == "fix/abc" {
			return nil, &remote.Error{Kind: remote.KindNotFound, Op: "get branch"}
		}
		return &remote.BranchRef{Name: name, Head: "base-sha"}, nil
	}

	outcome, err := EnsureBranch(context.Background(), fake, "fix/abc", "main")
	if err != nil {
		t.Fatalf("EnsureBranch returned error: %v", err)
	}
	if outcome != BranchCreated {
		t.Fatalf("outcome = %s, want created", outcome)
	}
	if len(fake.CreateBranchCalls) != 1 {
		t.Fatalf("CreateBranch called %d times, want 1", len(fake.CreateBranchCalls))
	}
	call := fake.CreateBranchCalls[0]
	if call.Name != "fix/abc" || call.FromRevision != "base-sha" {
		t.Fatalf("CreateBranch(%q, %q), want (fix/abc, base-sha)", call.Name, call.FromRevision)
	}
}

func TestEnsureBranch_IdempotentAcrossRepeatedCalls(t *testing.T) {
	fake := remote.NewFakeClient()
	// Branch exists on the remote; the reconciler must always answer
	// existing and never error no matter how often it runs.
	for i := 0; i < 3; i++ {
		outcome, err := EnsureBranch(context.Background(), fake, "fix/abc", "main")
		if err != nil {
			t.Fatalf("call %d returned error: %v", i, err)
		}
		if outcome != BranchExisting {
			t.Fatalf("call %d outcome = %s, want existing", i, outcome)
		}
	}
}

func TestEnsureBranch_LostCreateRaceIsSuccess(t *testing.T) {
	fake := remote.NewFakeClient()
	fake.GetBranchFunc = func(ctx context.Context, name string) (*remote.BranchRef, error) {
		if name == "fix/abc" {
			return nil, &remote.Error{Kind: remote.KindNotFound, Op: "get branch"}
		}
		return &remote.BranchRef{Name: name, Head: "base-sha"}, nil
	}
	fake.CreateBranchFunc = func(ctx context.Context, name, fromRevision string) (bool, error) {
		return false, nil // concurrent caller created it first
	}

	outcome, err := EnsureBranch(context.Background(), fake, "fix/abc", "main")
	if err != nil {
		t.Fatalf("EnsureBranch returned error: %v", err)
	}
	if outcome != BranchExisting {
		t.Fatalf("outcome = %s, want existing", outcome)
	}
}

func TestEnsureBranch_MissingBase(t *testing.T) {
	fake := remote.NewFakeClient()
	fake.GetBranchFunc = func(ctx context.Context, name string) (*remote.BranchRef, error) {
		return nil, &remote.Error{Kind: remote.KindNotFound, Op: "get branch"}
	}

	_, err := EnsureBranch(context.Background(), fake, "fix/abc", "missing-base")
	if !errors.Is(err, ErrNoSuchBase) {
		t.Fatalf("EnsureBranch error = %v, want ErrNoSuchBase", err)
	}
	if len(fake.CreateBranchCalls) != 0 {
		t.Fatalf("CreateBranch called %d times, want 0", len(fake.CreateBranchCalls))
	}
}

func TestEnsureBranch_LookupFailurePropagates(t *testing.T) {
	fake := remote.NewFakeClient()
	fake.GetBranchFunc = func(ctx context.Context, name string) (*remote.BranchRef, error) {
		return nil, &remote.Error{Kind: remote.KindRateLimited, Op: "get branch"}
	}

	_, err := EnsureBranch(context.Background(), fake, "fix/abc", "main")
	if err == nil {
		t.Fatal("EnsureBranch should propagate a non-NotFound lookup failure")
	}
	if remote.KindOf(err) != remote.KindRateLimited {
		t.Fatalf("error kind = %s, want rate_limited", remote.KindOf(err))
	}
}
