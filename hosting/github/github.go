package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v68/github"

	"github.com/sceneindex/submitd/hosting"
)

// Config holds the settings needed to create a GitHub
// host.
type Config struct {
	// RepoOwner is the GitHub user or organisation
	// that owns the content repository.
	RepoOwner string
	// Repo is the repository name (without owner).
	Repo string
	// AccessToken is the installation token minted
	// for this submission.
	AccessToken string
	// APIBaseURL overrides the GitHub API base URL.
	// Leave empty for api.github.com. Must end with
	// a slash.
	APIBaseURL string
}

// Host performs remote repository operations on GitHub.
//
// Pattern: Strategy -- implements hosting.Host.
type Host struct {
	client    *gh.Client
	repoOwner string
	repo      string
}

// NewHost validates cfg and returns a Host ready to
// serve one submission.
func NewHost(cfg Config) (*Host, error) {
	const errCtx = "creating github host"

	if cfg.RepoOwner == "" {
		return nil, fmt.Errorf(
			"%s: repo owner must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	if cfg.APIBaseURL != "" {
		var err error

		client, err = client.WithEnterpriseURLs(
			cfg.APIBaseURL, cfg.APIBaseURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: api base url: %w", errCtx, err,
			)
		}
	}

	return &Host{
		client:    client,
		repoOwner: cfg.RepoOwner,
		repo:      cfg.Repo,
	}, nil
}

// DefaultBranch returns the repository's default branch
// name.
func (h *Host) DefaultBranch(
	ctx context.Context,
) (string, error) {
	repo, resp, err := h.client.Repositories.Get(
		ctx, h.repoOwner, h.repo,
	)
	if err != nil {
		return "", callError(
			"reading repository metadata", resp, err,
		)
	}

	branch := repo.GetDefaultBranch()
	if branch == "" {
		return "", &hosting.CallError{
			Op:   "reading repository metadata",
			Body: "response missing default_branch",
		}
	}

	return branch, nil
}

// BranchHead returns the commit SHA the named branch
// points at.
func (h *Host) BranchHead(
	ctx context.Context,
	branch string,
) (string, error) {
	ref, resp, err := h.client.Git.GetRef(
		ctx, h.repoOwner, h.repo,
		"refs/heads/"+branch,
	)
	if err != nil {
		return "", callError(
			"reading branch ref", resp, err,
		)
	}

	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", &hosting.CallError{
			Op:   "reading branch ref",
			Body: "response missing object sha",
		}
	}

	return sha, nil
}

// CreateBranch creates a new branch pointing at the
// given commit SHA.
func (h *Host) CreateBranch(
	ctx context.Context,
	name string,
	sha string,
) error {
	refName := "refs/heads/" + name

	_, resp, err := h.client.Git.CreateRef(
		ctx, h.repoOwner, h.repo,
		&gh.Reference{
			Ref:    &refName,
			Object: &gh.GitObject{SHA: &sha},
		},
	)
	if err != nil {
		return callError("creating branch", resp, err)
	}

	return nil
}

// ReadFile reads a file at the given ref. Returns
// hosting.ErrNotFound when the file is absent.
func (h *Host) ReadFile(
	ctx context.Context,
	path string,
	ref string,
) (*hosting.File, error) {
	file, _, resp, err := h.client.Repositories.GetContents(
		ctx, h.repoOwner, h.repo, path,
		&gh.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		if resp != nil &&
			resp.StatusCode == http.StatusNotFound {
			return nil, hosting.ErrNotFound
		}

		return nil, callError(
			"reading file", resp, err,
		)
	}

	if file == nil {
		return nil, &hosting.CallError{
			Op:   "reading file",
			Body: "path is not a file",
		}
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, &hosting.CallError{
			Op:   "reading file",
			Body: "cannot decode content: " + err.Error(),
		}
	}

	return &hosting.File{
		Content: []byte(content),
		SHA:     file.GetSHA(),
	}, nil
}

// WriteFile commits content to path on branch. Pass the
// SHA observed at read time when overwriting; pass
// empty for a new file.
func (h *Host) WriteFile(
	ctx context.Context,
	path string,
	branch string,
	message string,
	content []byte,
	sha string,
) error {
	opts := &gh.RepositoryContentFileOptions{
		Message: &message,
		Content: content,
		Branch:  &branch,
	}

	var resp *gh.Response

	var err error

	if sha == "" {
		_, resp, err = h.client.Repositories.CreateFile(
			ctx, h.repoOwner, h.repo, path, opts,
		)
	} else {
		opts.SHA = &sha

		_, resp, err = h.client.Repositories.UpdateFile(
			ctx, h.repoOwner, h.repo, path, opts,
		)
	}

	if err != nil {
		return callError("writing file", resp, err)
	}

	return nil
}

// OpenPullRequest opens a pull request from head into
// base and returns its public URL.
func (h *Host) OpenPullRequest(
	ctx context.Context,
	head string,
	base string,
	title string,
	body string,
) (string, error) {
	pr, resp, err := h.client.PullRequests.Create(
		ctx, h.repoOwner, h.repo,
		&gh.NewPullRequest{
			Title: &title,
			Head:  &head,
			Base:  &base,
			Body:  &body,
		},
	)
	if err != nil {
		return "", callError(
			"creating pull request", resp, err,
		)
	}

	return pr.GetHTMLURL(), nil
}

// callError translates a go-github failure into the
// uniform hosting.CallError.
func callError(
	op string,
	resp *gh.Response,
	err error,
) *hosting.CallError {
	ce := &hosting.CallError{Op: op}

	if resp != nil {
		ce.Status = resp.StatusCode
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) &&
		ghErr.Message != "" {
		ce.Body = ghErr.Message

		return ce
	}

	if err != nil {
		ce.Body = err.Error()
	}

	return ce
}
