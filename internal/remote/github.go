package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
)

// GitHubClient implements Client against the GitHub REST API for a single
// owner/repo pair. File revisions are blob SHAs: the Contents API rejects a
// write whose SHA no longer matches, which is the optimistic-concurrency
// primitive the commit manager relies on.
type GitHubClient struct {
	client *github.Client
	owner  string
	repo   string
}

// NewGitHubClient creates a client authenticated with a personal access or
// installation token.
func NewGitHubClient(token, owner, repo string) *GitHubClient {
	return &GitHubClient{
		client: github.NewClient(nil).WithAuthToken(token),
		owner:  owner,
		repo:   repo,
	}
}

// NewGitHubClientFrom wraps an existing go-github client. Used by tests and
// by callers that configure their own http transport.
func NewGitHubClientFrom(client *github.Client, owner, repo string) *GitHubClient {
	return &GitHubClient{client: client, owner: owner, repo: repo}
}

func (c *GitHubClient) GetFile(ctx context.Context, path, ref string) (*FileRef, error) {
	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, _, _, err := c.client.Repositories.GetContents(ctx, c.owner, c.repo, path, opts)
	if err != nil {
		return nil, classify("get file", err)
	}
	if file == nil {
		return nil, &Error{Kind: KindNotFound, Op: "get file", Err: fmt.Errorf("%s is a directory", path)}
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Op: "get file", Err: fmt.Errorf("decode content: %w", err)}
	}

	return &FileRef{Path: path, Content: content, Revision: file.GetSHA()}, nil
}

func (c *GitHubClient) GetBranch(ctx context.Context, name string) (*BranchRef, error) {
	ref, _, err := c.client.Git.GetRef(ctx, c.owner, c.repo, "refs/heads/"+name)
	if err != nil {
		return nil, classify("get branch", err)
	}
	return &BranchRef{Name: name, Head: ref.GetObject().GetSHA()}, nil
}

func (c *GitHubClient) CreateBranch(ctx context.Context, name, fromRevision string) (bool, error) {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{SHA: github.String(fromRevision)},
	}

	_, _, err := c.client.Git.CreateRef(ctx, c.owner, c.repo, ref)
	if err != nil {
		// 422 "Reference already exists" means a concurrent caller won the
		// creation race; the branch is there either way.
		if isAlreadyExists(err) {
			return false, nil
		}
		return false, classify("create branch", err)
	}

	return true, nil
}

func (c *GitHubClient) UpdateFile(ctx context.Context, path, content, message, branch, expectedRevision string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		SHA:     github.String(expectedRevision),
		Branch:  github.String(branch),
	}

	resp, _, err := c.client.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts)
	if err != nil {
		return "", classify("update file", err)
	}

	return resp.GetContent().GetSHA(), nil
}

func (c *GitHubClient) ListOpenPRs(ctx context.Context, head, base string) ([]PullRequest, error) {
	opts := &github.PullRequestListOptions{
		State: "open",
		Head:  c.owner + ":" + head,
		Base:  base,
	}

	prs, _, err := c.client.PullRequests.List(ctx, c.owner, c.repo, opts)
	if err != nil {
		return nil, classify("list pull requests", err)
	}

	out := make([]PullRequest, 0, len(prs))
	for _, pr := range prs {
		out = append(out, PullRequest{
			Number: pr.GetNumber(),
			URL:    pr.GetHTMLURL(),
			Head:   pr.GetHead().GetRef(),
			Base:   pr.GetBase().GetRef(),
			State:  pr.GetState(),
		})
	}
	return out, nil
}

func (c *GitHubClient) CreatePR(ctx context.Context, head, base, title, body string) (*PullRequest, error) {
	pr, _, err := c.client.PullRequests.Create(ctx, c.owner, c.repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		// GitHub reports a duplicate open PR as 422 "A pull request already
		// exists". Keep it in the Conflict category so the reconciler can
		// re-list instead of failing.
		if isAlreadyExists(err) {
			return nil, &Error{Kind: KindConflict, Op: "create pull request", Err: err}
		}
		return nil, classify("create pull request", err)
	}

	return &PullRequest{
		Number: pr.GetNumber(),
		URL:    pr.GetHTMLURL(),
		Head:   pr.GetHead().GetRef(),
		Base:   pr.GetBase().GetRef(),
		State:  pr.GetState(),
	}, nil
}

// classify maps go-github error shapes into the closed taxonomy. Everything
// downstream of the adapter branches only on ErrorKind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var rate *github.RateLimitError
	if errors.As(err, &rate) {
		return &Error{Kind: KindRateLimited, Op: op, Err: err}
	}
	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return &Error{Kind: KindRateLimited, Op: op, Err: err}
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusNotFound:
			return &Error{Kind: KindNotFound, Op: op, Err: err}
		case http.StatusConflict:
			return &Error{Kind: KindConflict, Op: op, Err: err}
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: KindAuth, Op: op, Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: KindRateLimited, Op: op, Err: err}
		}
	}

	return &Error{Kind: KindUnknown, Op: op, Err: err}
}

// isAlreadyExists detects GitHub's 422 "already exists" validation responses
// for refs and pull requests.
func isAlreadyExists(err error) bool {
	var ghErr *github.ErrorResponse
	if !errors.As(err, &ghErr) {
		return false
	}
	if ghErr.Response == nil || ghErr.Response.StatusCode != http.StatusUnprocessableEntity {
		return false
	}
	if strings.Contains(strings.ToLower(ghErr.Message), "already exists") {
		return true
	}
	for _, e := range ghErr.Errors {
		if strings.Contains(strings.ToLower(e.Message), "already exists") ||
			e.Code == "already_exists" {
			return true
		}
	}
	return false
}
