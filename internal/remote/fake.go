package remote

import (
	"context"
	"fmt"
	"sync"
)

// FakeClient is an in-memory Client for tests. Behavior can be overridden
// per operation with the *Func fields; every call is recorded so tests can
// assert exact call counts and arguments.
type FakeClient struct {
	GetFileFunc      func(ctx context.Context, path, ref string) (*FileRef, error)
	GetBranchFunc    func(ctx context.Context, name string) (*BranchRef, error)
	CreateBranchFunc func(ctx context.Context, name, fromRevision string) (bool, error)
	UpdateFileFunc   func(ctx context.Context, path, content, message, branch, expectedRevision string) (string, error)
	ListOpenPRsFunc  func(ctx context.Context, head, base string) ([]PullRequest, error)
	CreatePRFunc     func(ctx context.Context, head, base, title, body string) (*PullRequest, error)

	mu sync.Mutex

	GetFileCalls []struct {
		Path string
		Ref  string
	}
	GetBranchCalls    []string
	CreateBranchCalls []struct {
		Name         string
		FromRevision string
	}
	UpdateFileCalls []struct {
		Path             string
		Content          string
		Message          string
		Branch           string
		ExpectedRevision string
	}
	ListOpenPRsCalls []struct {
		Head string
		Base string
	}
	CreatePRCalls []struct {
		Head  string
		Base  string
		Title string
		Body  string
	}
}

// NewFakeClient creates a fake with default successful behavior.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// TotalCalls returns the number of client operations invoked so far.
func (f *FakeClient) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.GetFileCalls) + len(f.GetBranchCalls) + len(f.CreateBranchCalls) +
		len(f.UpdateFileCalls) + len(f.ListOpenPRsCalls) + len(f.CreatePRCalls)
}

func (f *FakeClient) GetFile(ctx context.Context, path, ref string) (*FileRef, error) {
	f.mu.Lock()
	f.GetFileCalls = append(f.GetFileCalls, struct {
		Path string
		Ref  string
	}{path, ref})
	f.mu.Unlock()

	if f.GetFileFunc != nil {
		return f.GetFileFunc(ctx, path, ref)
	}
	return &FileRef{Path: path, Content: "", Revision: "rev-0"}, nil
}

func (f *FakeClient) GetBranch(ctx context.Context, name string) (*BranchRef, error) {
	f.mu.Lock()
	f.GetBranchCalls = append(f.GetBranchCalls, name)
	f.mu.Unlock()

	if f.GetBranchFunc != nil {
		return f.GetBranchFunc(ctx, name)
	}
	return &BranchRef{Name: name, Head: "head-0"}, nil
}

func (f *FakeClient) CreateBranch(ctx context.Context, name, fromRevision string) (bool, error) {
	f.mu.Lock()
	f.CreateBranchCalls = append(f.CreateBranchCalls, struct {
		Name         string
		FromRevision string
	}{name, fromRevision})
	f.mu.Unlock()

	if f.CreateBranchFunc != nil {
		return f.CreateBranchFunc(ctx, name, fromRevision)
	}
	return true, nil
}

func (f *FakeClient) UpdateFile(ctx context.Context, path, content, message, branch, expectedRevision string) (string, error) {
	f.mu.Lock()
	f.UpdateFileCalls = append(f.UpdateFileCalls, struct {
		Path             string
		Content          string
		Message          string
		Branch           string
		ExpectedRevision string
	}{path, content, message, branch, expectedRevision})
	f.mu.Unlock()

	if f.UpdateFileFunc != nil {
		return f.UpdateFileFunc(ctx, path, content, message, branch, expectedRevision)
	}
	return fmt.Sprintf("rev-%d", len(f.UpdateFileCalls)), nil
}

func (f *FakeClient) ListOpenPRs(ctx context.Context, head, base string) ([]PullRequest, error) {
	f.mu.Lock()
	f.ListOpenPRsCalls = append(f.ListOpenPRsCalls, struct {
		Head string
		Base string
	}{head, base})
	f.mu.Unlock()

	if f.ListOpenPRsFunc != nil {
		return f.ListOpenPRsFunc(ctx, head, base)
	}
	return nil, nil
}

func (f *FakeClient) CreatePR(ctx context.Context, head, base, title, body string) (*PullRequest, error) {
	f.mu.Lock()
	f.CreatePRCalls = append(f.CreatePRCalls, struct {
		Head  string
		Base  string
		Title string
		Body  string
	}{head, base, title, body})
	f.mu.Unlock()

	if f.CreatePRFunc != nil {
		return f.CreatePRFunc(ctx, head, base, title, body)
	}
	return &PullRequest{Number: 1, URL: "https://github.com/owner/repo/pull/1", Head: head, Base: base, State: "open"}, nil
}
