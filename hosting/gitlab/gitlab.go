package gitlab

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/sceneindex/submitd/hosting"
)

// Config holds the settings needed to create a GitLab
// host.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// Project is the full project path
	// (e.g. "org/project").
	Project string
	// AccessToken is a project or personal access
	// token used for authentication.
	AccessToken string
}

// Host performs remote repository operations on GitLab.
//
// Pattern: Strategy -- implements hosting.Host.
type Host struct {
	client  *gl.Client
	project string
}

// NewHost validates cfg and returns a Host ready to
// serve one submission.
func NewHost(cfg Config) (*Host, error) {
	const errCtx = "creating gitlab host"

	if cfg.Project == "" {
		return nil, fmt.Errorf(
			"%s: project must be set", errCtx,
		)
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Host{
		client:  client,
		project: cfg.Project,
	}, nil
}

// StaticCredentials mints nothing: GitLab access uses a
// long-lived configured token.
//
// Pattern: Strategy -- implements hosting.Credentials.
type StaticCredentials struct {
	token string
}

// NewStaticCredentials wraps a configured access token.
// A blank token is an auth_config_error.
func NewStaticCredentials(
	token string,
) (*StaticCredentials, error) {
	if token == "" {
		return nil, &hosting.AuthError{
			Code:    hosting.CodeAuthConfig,
			Message: "access token must be set",
		}
	}

	return &StaticCredentials{token: token}, nil
}

// Mint returns the configured token.
func (c *StaticCredentials) Mint(
	_ context.Context,
) (string, error) {
	return c.token, nil
}

// DefaultBranch returns the project's default branch
// name.
func (h *Host) DefaultBranch(
	_ context.Context,
) (string, error) {
	project, resp, err := h.client.Projects.GetProject(
		h.project, nil,
	)
	if err != nil {
		return "", callError(
			"reading project metadata", resp, err,
		)
	}

	if project.DefaultBranch == "" {
		return "", &hosting.CallError{
			Op:   "reading project metadata",
			Body: "response missing default_branch",
		}
	}

	return project.DefaultBranch, nil
}

// BranchHead returns the commit SHA the named branch
// points at.
func (h *Host) BranchHead(
	_ context.Context,
	branch string,
) (string, error) {
	b, resp, err := h.client.Branches.GetBranch(
		h.project, branch,
	)
	if err != nil {
		return "", callError(
			"reading branch", resp, err,
		)
	}

	if b.Commit == nil || b.Commit.ID == "" {
		return "", &hosting.CallError{
			Op:   "reading branch",
			Body: "response missing commit id",
		}
	}

	return b.Commit.ID, nil
}

// CreateBranch creates a new branch pointing at the
// given commit SHA.
func (h *Host) CreateBranch(
	_ context.Context,
	name string,
	sha string,
) error {
	_, resp, err := h.client.Branches.CreateBranch(
		h.project,
		&gl.CreateBranchOptions{
			Branch: &name,
			Ref:    &sha,
		},
	)
	if err != nil {
		return callError("creating branch", resp, err)
	}

	return nil
}

// ReadFile reads a file at the given ref. Returns
// hosting.ErrNotFound when the file is absent. The
// returned SHA is the file's last commit id, passed
// back on overwrite.
func (h *Host) ReadFile(
	_ context.Context,
	path string,
	ref string,
) (*hosting.File, error) {
	file, resp, err := h.client.RepositoryFiles.GetFile(
		h.project, path,
		&gl.GetFileOptions{Ref: &ref},
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

	content := []byte(file.Content)

	if file.Encoding == "base64" {
		content, err = base64.StdEncoding.DecodeString(
			file.Content,
		)
		if err != nil {
			return nil, &hosting.CallError{
				Op: "reading file",
				Body: "cannot decode content: " +
					err.Error(),
			}
		}
	}

	return &hosting.File{
		Content: content,
		SHA:     file.LastCommitID,
	}, nil
}

// WriteFile commits content to path on branch. Pass the
// SHA observed at read time when overwriting; pass
// empty for a new file.
func (h *Host) WriteFile(
	_ context.Context,
	path string,
	branch string,
	message string,
	content []byte,
	sha string,
) error {
	text := string(content)

	if sha == "" {
		_, resp, err := h.client.RepositoryFiles.CreateFile(
			h.project, path,
			&gl.CreateFileOptions{
				Branch:        &branch,
				Content:       &text,
				CommitMessage: &message,
			},
		)
		if err != nil {
			return callError(
				"writing file", resp, err,
			)
		}

		return nil
	}

	_, resp, err := h.client.RepositoryFiles.UpdateFile(
		h.project, path,
		&gl.UpdateFileOptions{
			Branch:        &branch,
			Content:       &text,
			CommitMessage: &message,
			LastCommitID:  &sha,
		},
	)
	if err != nil {
		return callError("writing file", resp, err)
	}

	return nil
}

// OpenPullRequest opens a merge request from head into
// base and returns its public URL.
func (h *Host) OpenPullRequest(
	_ context.Context,
	head string,
	base string,
	title string,
	body string,
) (string, error) {
	mr, resp, err := h.client.MergeRequests.CreateMergeRequest(
		h.project,
		&gl.CreateMergeRequestOptions{
			Title:        &title,
			Description:  &body,
			SourceBranch: &head,
			TargetBranch: &base,
		},
	)
	if err != nil {
		return "", callError(
			"creating merge request", resp, err,
		)
	}

	return mr.WebURL, nil
}

// callError translates a client-go failure into the
// uniform hosting.CallError.
func callError(
	op string,
	resp *gl.Response,
	err error,
) *hosting.CallError {
	ce := &hosting.CallError{Op: op}

	if resp != nil {
		ce.Status = resp.StatusCode
	}

	var glErr *gl.ErrorResponse
	if errors.As(err, &glErr) &&
		glErr.Message != "" {
		ce.Body = glErr.Message

		return ce
	}

	if err != nil {
		ce.Body = err.Error()
	}

	return ce
}
